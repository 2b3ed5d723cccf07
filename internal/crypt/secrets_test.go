package crypt

import (
	"bytes"
	"testing"

	"github.com/sem-hub/chatcrypt/internal/crypt/dh"
	"github.com/sem-hub/chatcrypt/internal/crypt/engines"
	"github.com/sem-hub/chatcrypt/internal/crypt/modes"
	"github.com/sem-hub/chatcrypt/internal/crypt/padding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(n int) []byte {
	k := make([]byte, n)
	for i := range k {
		k[i] = byte(i)
	}
	return k
}

func TestParseEngineString(t *testing.T) {
	cases := []struct {
		in      string
		cipher  string
		size    int
		mode    modes.Mode
		padding padding.Scheme
	}{
		{"rc6-256-cbc-pkcs7", "rc6", 256, modes.CBC, padding.PKCS7},
		{"rc6", "rc6", 0, modes.CBC, padding.PKCS7},
		{"twofish-128", "twofish", 128, modes.CBC, padding.PKCS7},
		{"twofish-ctr", "twofish", 0, modes.CTR, padding.PKCS7},
		{"RC6-192-PCBC-ANSI-X923", "rc6", 192, modes.PCBC, padding.ANSIX923},
		{"rc6-ecb-iso-10126", "rc6", 0, modes.ECB, padding.ISO10126},
		{"twofish-256-ofb-zeros", "twofish", 256, modes.OFB, padding.Zeros},
	}
	for _, c := range cases {
		cipherName, size, mode, scheme, err := ParseEngineString(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.cipher, cipherName, c.in)
		assert.Equal(t, c.size, size, c.in)
		assert.Equal(t, c.mode, mode, c.in)
		assert.Equal(t, c.padding, scheme, c.in)
	}
}

func TestParseEngineStringErrors(t *testing.T) {
	_, _, _, _, err := ParseEngineString("")
	assert.ErrorIs(t, err, engines.ErrUnsupportedEngine)
	_, _, _, _, err = ParseEngineString("aes-256-cbc")
	assert.ErrorIs(t, err, engines.ErrUnsupportedEngine)
	_, _, _, _, err = ParseEngineString("rc6-256-gcm")
	assert.ErrorIs(t, err, modes.ErrUnsupportedMode)
	_, _, _, _, err = ParseEngineString("rc6-256-random-delta")
	assert.ErrorIs(t, err, modes.ErrUnsupportedMode)
	_, _, _, _, err = ParseEngineString("rc6-256-cbc-oaep")
	assert.ErrorIs(t, err, padding.ErrUnsupportedScheme)
	_, _, _, _, err = ParseEngineString("rc6-0-cbc")
	assert.ErrorIs(t, err, engines.ErrInvalidKeySize)
}

func TestNewSecrets(t *testing.T) {
	s, err := NewSecrets("rc6-128-cfb", key(40))
	require.NoError(t, err)
	assert.Equal(t, "rc6-128-cfb-pkcs7", s.String())
	assert.Equal(t, key(16), s.GetKey())
	assert.Equal(t, 128, s.KeySize())

	s, err = NewSecrets("twofish", key(32))
	require.NoError(t, err)
	assert.Equal(t, "twofish-256-cbc-pkcs7", s.String())

	_, err = NewSecrets("twofish-256", key(16))
	assert.ErrorIs(t, err, engines.ErrInvalidKeySize)
	_, err = NewSecrets("twofish-160", key(32))
	assert.ErrorIs(t, err, engines.ErrInvalidKeySize)
	_, err = NewSecrets("rc6-100", key(32))
	assert.ErrorIs(t, err, engines.ErrInvalidKeySize)

	// RC6 takes any multiple of 32 bits
	s, err = NewSecrets("rc6-512-ctr", key(64))
	require.NoError(t, err)
	assert.Len(t, s.GetKey(), 64)
}

func TestKeyIsCopied(t *testing.T) {
	k := key(32)
	s, err := NewSecrets("rc6-256-cbc", k)
	require.NoError(t, err)
	k[0] = 0xFF
	assert.Equal(t, byte(0), s.GetKey()[0])
	s.GetKey()[1] = 0xFF
	assert.Equal(t, byte(1), s.GetKey()[1])
}

func TestSecretsRoundTrip(t *testing.T) {
	msg := []byte("the quick brown fox jumps over the lazy dog")
	for _, cipherName := range engines.EngineList {
		for _, mode := range []modes.Mode{modes.ECB, modes.CBC, modes.PCBC, modes.CFB, modes.OFB, modes.CTR} {
			s, err := NewSecrets(cipherName+"-128-"+string(mode)+"-pkcs7", key(16))
			require.NoError(t, err)

			ct, err := s.Encrypt(msg)
			require.NoError(t, err)
			if mode.NeedsIV() {
				assert.Greater(t, len(ct), len(msg)+15, s.String())
			}
			out, err := s.Decrypt(ct)
			require.NoError(t, err)
			assert.Equal(t, msg, out, s.String())
		}
	}
}

func TestFreshIVPerMessage(t *testing.T) {
	s, err := NewSecrets("twofish-128-cbc", key(16))
	require.NoError(t, err)
	a, err := s.Encrypt([]byte("same"))
	require.NoError(t, err)
	b, err := s.Encrypt([]byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a[:16], b[:16])
	assert.NotEqual(t, a, b)
}

func TestDecryptShortMessage(t *testing.T) {
	s, err := NewSecrets("rc6-128-ctr", key(16))
	require.NoError(t, err)
	_, err = s.Decrypt(make([]byte, 10))
	assert.ErrorIs(t, err, modes.ErrInvalidDataSize)

	// IV only is an empty message
	out, err := s.Decrypt(make([]byte, 16))
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSecretFromDH(t *testing.T) {
	group, err := dh.GroupByName("modp2048")
	require.NoError(t, err)
	alice, err := group.NewParty()
	require.NoError(t, err)
	bob, err := group.NewParty()
	require.NoError(t, err)
	s1, err := alice.ComputeSharedSecret(bob.PublicKey())
	require.NoError(t, err)
	s2, err := bob.ComputeSharedSecret(alice.PublicKey())
	require.NoError(t, err)

	a, err := NewSecrets("rc6-256-cbc-pkcs7", s1)
	require.NoError(t, err)
	b, err := NewSecrets("rc6-256-cbc-pkcs7", s2)
	require.NoError(t, err)
	assert.Equal(t, s1[:32], a.GetKey())

	ct, err := a.Encrypt([]byte("Hello World!"))
	require.NoError(t, err)
	out, err := b.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, "Hello World!", string(out))

	require.NoError(t, b.SetKey(bytes.Repeat([]byte{9}, 32)))
	out, err = b.Decrypt(ct)
	require.NoError(t, err)
	assert.NotEqual(t, "Hello World!", string(out))
}
