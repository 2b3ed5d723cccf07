package padding

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blockSize = 16

func TestPadLength(t *testing.T) {
	for _, scheme := range SchemeList {
		for n := 0; n <= 3*blockSize; n++ {
			data := bytes.Repeat([]byte{0xA5}, n)
			padded, err := Pad(data, blockSize, scheme)
			require.NoError(t, err)

			assert.Zero(t, len(padded)%blockSize, "%s n=%d", scheme, n)
			assert.Greater(t, len(padded), n, "%s n=%d", scheme, n)
			assert.LessOrEqual(t, len(padded)-n, blockSize)
			assert.Equal(t, data, padded[:n])
		}
	}
}

func TestPadBytes(t *testing.T) {
	data := []byte("Hello World!")

	padded, err := Pad(data, blockSize, PKCS7)
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 4, 4, 4}, padded[12:])

	padded, err = Pad(data, blockSize, Zeros)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, padded[12:])

	padded, err = Pad(data, blockSize, ANSIX923)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 4}, padded[12:])

	padded, err = Pad(data, blockSize, ISO10126)
	require.NoError(t, err)
	assert.Equal(t, byte(4), padded[15])
}

func TestPadAlignedAddsFullBlock(t *testing.T) {
	data := bytes.Repeat([]byte{1}, blockSize)
	padded, err := Pad(data, blockSize, PKCS7)
	require.NoError(t, err)
	require.Len(t, padded, 2*blockSize)
	assert.Equal(t, bytes.Repeat([]byte{blockSize}, blockSize), padded[blockSize:])
}

func TestPadDoesNotAliasInput(t *testing.T) {
	data := make([]byte, 5, 64)
	padded, err := Pad(data, blockSize, PKCS7)
	require.NoError(t, err)
	padded[0] = 0xFF
	assert.Equal(t, byte(0), data[0])
}

func TestISO10126Random(t *testing.T) {
	data := []byte("x")
	a, err := Pad(data, blockSize, ISO10126)
	require.NoError(t, err)
	b, err := Pad(data, blockSize, ISO10126)
	require.NoError(t, err)
	// 14 random bytes colliding is not a realistic outcome
	assert.NotEqual(t, a[1:15], b[1:15])
}

func TestRoundTrip(t *testing.T) {
	for _, scheme := range SchemeList {
		for n := 0; n <= 3*blockSize; n++ {
			data := make([]byte, n)
			for i := range data {
				data[i] = byte(i%250) + 1
			}
			padded, err := Pad(data, blockSize, scheme)
			require.NoError(t, err)
			out, err := Unpad(padded, scheme)
			require.NoError(t, err)
			assert.Equal(t, data, out, "%s n=%d", scheme, n)
		}
	}
}

func TestUnpadPassthrough(t *testing.T) {
	// Last byte zero
	data := []byte{1, 2, 3, 0}
	out, err := Unpad(data, PKCS7)
	require.NoError(t, err)
	assert.Equal(t, data, out)

	// Length byte larger than the buffer
	data = []byte{1, 2, 3, 9}
	for _, scheme := range []Scheme{PKCS7, ANSIX923, ISO10126} {
		out, err = Unpad(data, scheme)
		require.NoError(t, err)
		assert.Equal(t, data, out, scheme)
	}

	// PKCS7 tail does not repeat the length
	data = []byte{'a', 'b', 7, 3, 3}
	out, err = Unpad(data, PKCS7)
	require.NoError(t, err)
	assert.Equal(t, data, out)

	// The same tail is trusted by ANSI X9.23
	out, err = Unpad(data, ANSIX923)
	require.NoError(t, err)
	assert.Equal(t, []byte{'a', 'b'}, out)

	out, err = Unpad([]byte{}, PKCS7)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestZerosAmbiguity(t *testing.T) {
	data := []byte{'a', 0, 0}
	padded, err := Pad(data, blockSize, Zeros)
	require.NoError(t, err)
	out, err := Unpad(padded, Zeros)
	require.NoError(t, err)
	assert.Equal(t, []byte{'a'}, out)
}

func TestUnsupportedScheme(t *testing.T) {
	_, err := Pad([]byte("x"), blockSize, Scheme("bogus"))
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
	_, err = Unpad([]byte("x"), Scheme("bogus"))
	assert.ErrorIs(t, err, ErrUnsupportedScheme)

	_, err = Pad([]byte("x"), 0, PKCS7)
	assert.Error(t, err)
}

func TestParseScheme(t *testing.T) {
	cases := map[string]Scheme{
		"PKCS7":     PKCS7,
		"zeros":     Zeros,
		"ZEROS":     Zeros,
		"ANSI_X923": ANSIX923,
		"ansi-x923": ANSIX923,
		"ISO_10126": ISO10126,
		"iso10126":  ISO10126,
	}
	for in, expected := range cases {
		s, err := ParseScheme(in)
		require.NoError(t, err, in)
		assert.Equal(t, expected, s, in)
	}
	_, err := ParseScheme("oaep")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}
