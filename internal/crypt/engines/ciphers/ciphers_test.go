package ciphers

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	rc6 "github.com/CampNowhere/golang-rc6"
	"github.com/sem-hub/chatcrypt/internal/configs"
	"github.com/sem-hub/chatcrypt/internal/crypt/engines"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vector struct {
	key, plain, cipher string
}

func unhex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// Vectors from the RC6 submission paper.
var rc6Vectors = []vector{
	{"00000000000000000000000000000000",
		"00000000000000000000000000000000", "8fc3a53656b1f778c129df4e9848a41e"},
	{"0123456789abcdef0112233445566778",
		"02132435465768798a9bacbdcedfe0f1", "524e192f4715c6231f51f6367ea43f18"},
	{"000000000000000000000000000000000000000000000000",
		"00000000000000000000000000000000", "6cd61bcb190b30384e8a3f168690ae82"},
	{"0123456789abcdef0112233445566778899aabbccddeeff0",
		"02132435465768798a9bacbdcedfe0f1", "688329d019e505041e52e92af95291d4"},
	{"0000000000000000000000000000000000000000000000000000000000000000",
		"00000000000000000000000000000000", "8f5fbd0510d15fa893fa3fda6e857ec2"},
	{"0123456789abcdef0112233445566778899aabbccddeeff01032547698badcfe",
		"02132435465768798a9bacbdcedfe0f1", "c8241816f0d7e48920ad16a1674e5d48"},
}

// Vectors from the Twofish ECB known-answer table.
var twofishVectors = []vector{
	{"00000000000000000000000000000000",
		"00000000000000000000000000000000", "9f589f5cf6122c32b6bfec2f2ae8c35a"},
	{"0123456789abcdeffedcba98765432100011223344556677",
		"00000000000000000000000000000000", "cfd1d2e5a9be9cdf501f13b892bd2248"},
	{"0123456789abcdeffedcba987654321000112233445566778899aabbccddeeff",
		"00000000000000000000000000000000", "37527be0052334b89f0cfccae87cfa20"},
}

func checkVectors(t *testing.T, engine engines.Cipher, vectors []vector) {
	for _, v := range vectors {
		key := unhex(t, v.key)
		plain := unhex(t, v.plain)
		expected := unhex(t, v.cipher)

		out, err := engine.Encrypt(plain, key)
		require.NoError(t, err)
		assert.Equal(t, expected, out, "encrypt key=%s", v.key)

		back, err := engine.Decrypt(out, key)
		require.NoError(t, err)
		assert.Equal(t, plain, back, "decrypt key=%s", v.key)
	}
}

func TestRc6Vectors(t *testing.T) {
	checkVectors(t, NewRc6Engine(), rc6Vectors)
}

func TestTwofishVectors(t *testing.T) {
	checkVectors(t, NewTwofishEngine(), twofishVectors)
}

func TestRc6MatchesReference(t *testing.T) {
	engine := NewRc6Engine()
	for _, size := range []int{16, 24, 32} {
		for n := 0; n < 20; n++ {
			key := make([]byte, size)
			plain := make([]byte, rc6BlockSize)
			_, _ = rand.Read(key)
			_, _ = rand.Read(plain)

			ref := rc6.NewCipher(append([]byte(nil), key...))
			expected := make([]byte, rc6BlockSize)
			ref.Encrypt(expected, plain)

			out, err := engine.Encrypt(plain, key)
			require.NoError(t, err)
			assert.Equal(t, expected, out, "key size %d", size)

			back := make([]byte, rc6BlockSize)
			ref.Decrypt(back, out)
			assert.Equal(t, plain, back)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, engine := range []engines.Cipher{NewRc6Engine(), NewTwofishEngine()} {
		for _, size := range engine.GetKeySizes() {
			key := make([]byte, size/8)
			_, _ = rand.Read(key)
			plain := make([]byte, engine.BlockSize())
			_, _ = rand.Read(plain)

			out, err := engine.Encrypt(plain, key)
			require.NoError(t, err)
			assert.NotEqual(t, plain, out)
			back, err := engine.Decrypt(out, key)
			require.NoError(t, err)
			assert.Equal(t, plain, back, "%s-%d", engine.GetName(), size)
		}
	}
}

func TestRc6LongKey(t *testing.T) {
	engine := NewRc6Engine()
	key := make([]byte, 252)
	_, _ = rand.Read(key)
	plain := []byte("sixteen byte blk")

	out, err := engine.Encrypt(plain, key)
	require.NoError(t, err)
	back, err := engine.Decrypt(out, key)
	require.NoError(t, err)
	assert.Equal(t, plain, back)
}

func TestInvalidBlockSize(t *testing.T) {
	key := make([]byte, 16)
	for _, engine := range []engines.Cipher{NewRc6Engine(), NewTwofishEngine()} {
		assert.Equal(t, 16, engine.BlockSize())
		for _, n := range []int{0, 10, 15, 17, 32} {
			_, err := engine.Encrypt(make([]byte, n), key)
			assert.ErrorIs(t, err, engines.ErrInvalidBlockSize, "%s encrypt %d", engine.GetName(), n)
			_, err = engine.Decrypt(make([]byte, n), key)
			assert.ErrorIs(t, err, engines.ErrInvalidBlockSize, "%s decrypt %d", engine.GetName(), n)
		}
	}
}

func TestInvalidKeySize(t *testing.T) {
	block := make([]byte, 16)

	rc6Engine := NewRc6Engine()
	for _, n := range []int{0, 10, 15, 256} {
		_, err := rc6Engine.Encrypt(block, make([]byte, n))
		assert.ErrorIs(t, err, engines.ErrInvalidKeySize, "rc6 key %d", n)
		_, err = rc6Engine.Decrypt(block, make([]byte, n))
		assert.ErrorIs(t, err, engines.ErrInvalidKeySize, "rc6 key %d", n)
	}

	twofishEngine := NewTwofishEngine()
	for _, n := range []int{0, 8, 20, 28, 64} {
		_, err := twofishEngine.Encrypt(block, make([]byte, n))
		assert.ErrorIs(t, err, engines.ErrInvalidKeySize, "twofish key %d", n)
		_, err = twofishEngine.Decrypt(block, make([]byte, n))
		assert.ErrorIs(t, err, engines.ErrInvalidKeySize, "twofish key %d", n)
	}
}

func TestBlockSizeCheckedFirst(t *testing.T) {
	for _, engine := range []engines.Cipher{NewRc6Engine(), NewTwofishEngine()} {
		_, err := engine.Encrypt(make([]byte, 3), make([]byte, 3))
		assert.ErrorIs(t, err, engines.ErrInvalidBlockSize)
	}
}

func TestInputNotModified(t *testing.T) {
	engine := NewRc6Engine()
	key := unhex(t, rc6Vectors[1].key)
	plain := unhex(t, rc6Vectors[1].plain)
	keyCopy := append([]byte(nil), key...)
	plainCopy := append([]byte(nil), plain...)

	_, err := engine.Encrypt(plain, key)
	require.NoError(t, err)
	assert.Equal(t, keyCopy, key)
	assert.Equal(t, plainCopy, plain)
}

func TestEngineType(t *testing.T) {
	for _, engine := range []engines.Cipher{NewRc6Engine(), NewTwofishEngine()} {
		assert.Equal(t, "block", engine.GetType(), engine.GetName())
	}
}

func TestTraceLogging(t *testing.T) {
	configs.ResetConfigFile()
	defer configs.ResetConfigFile()
	logFile := filepath.Join(t.TempDir(), "ciphers.log")
	cfg := configs.GetConfigFile()
	cfg.Log.Ciphers = "trace"
	cfg.Log.File = logFile

	key := unhex(t, rc6Vectors[1].key)
	block := unhex(t, rc6Vectors[1].plain)
	for _, engine := range []engines.Cipher{NewRc6Engine(), NewTwofishEngine()} {
		out, err := engine.Encrypt(block, key)
		require.NoError(t, err)
		_, err = engine.Decrypt(out, key)
		require.NoError(t, err)
	}

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	log := string(data)
	assert.Contains(t, log, "TRACE:")
	assert.Contains(t, log, "blocklen=16 keylen=16")
	assert.Contains(t, log, "NewCipher keylen=16")
	// Key bytes never reach the log
	assert.False(t, strings.Contains(log, hex.EncodeToString(key)))
}

func TestTraceLoggingOffByDefault(t *testing.T) {
	configs.ResetConfigFile()
	defer configs.ResetConfigFile()
	logFile := filepath.Join(t.TempDir(), "ciphers.log")
	configs.GetConfigFile().Log.File = logFile

	_, err := NewRc6Engine().Encrypt(make([]byte, 16), make([]byte, 16))
	require.NoError(t, err)

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Empty(t, data)
}
