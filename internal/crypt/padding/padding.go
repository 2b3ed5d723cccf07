package padding

import (
	"crypto/rand"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/sem-hub/chatcrypt/internal/configs"
)

type Scheme string

const (
	PKCS7    Scheme = "pkcs7"
	Zeros    Scheme = "zeros"
	ANSIX923 Scheme = "ansi-x923"
	ISO10126 Scheme = "iso-10126"
)

var SchemeList = []Scheme{
	PKCS7,
	Zeros,
	ANSIX923,
	ISO10126,
}

var ErrUnsupportedScheme = errors.New("crypto/padding: unsupported padding scheme")

var (
	logger     *configs.ColorLogger
	loggerOnce sync.Once
)

func getLogger() *configs.ColorLogger {
	loggerOnce.Do(func() {
		logger = configs.InitLogger("padding")
	})
	return logger
}

func (s Scheme) String() string {
	return string(s)
}

func IsSchemeSupported(s Scheme) bool {
	return slices.Contains(SchemeList, s)
}

// ParseScheme accepts the canonical names as well as the spellings
// used by other clients (PKCS7, ANSI_X923, ISO_10126, ZEROS).
func ParseScheme(name string) (Scheme, error) {
	s := Scheme(strings.ReplaceAll(strings.ToLower(name), "_", "-"))
	switch s {
	case "ansix923", "x923":
		s = ANSIX923
	case "iso10126":
		s = ISO10126
	case "zero":
		s = Zeros
	}
	if !IsSchemeSupported(s) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedScheme, name)
	}
	return s, nil
}

// Pad returns a copy of data extended to a multiple of blockSize.
// At least one byte is always added, so aligned input grows by a full block.
func Pad(data []byte, blockSize int, scheme Scheme) ([]byte, error) {
	if blockSize <= 0 || blockSize > 255 {
		return nil, fmt.Errorf("crypto/padding: invalid block size %d", blockSize)
	}
	padLen := blockSize - len(data)%blockSize

	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	tail := padded[len(data):]

	switch scheme {
	case PKCS7:
		for i := range tail {
			tail[i] = byte(padLen)
		}
	case Zeros:
	case ANSIX923:
		tail[padLen-1] = byte(padLen)
	case ISO10126:
		if _, err := rand.Read(tail[:padLen-1]); err != nil {
			return nil, err
		}
		tail[padLen-1] = byte(padLen)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}
	getLogger().Trace("Pad", "scheme", scheme, "datalen", len(data), "padlen", padLen)
	return padded, nil
}

// Unpad strips padding written by Pad. A trailing length byte of zero or
// one that exceeds the buffer, and a PKCS7 tail that does not repeat the
// length, leave data unchanged instead of failing. Only PKCS7 checks the
// pad bytes; ANSI X9.23 and ISO 10126 trust the length byte.
//
// Zero padding carries no length, so every trailing zero byte is removed,
// including zeros that belonged to the plaintext.
func Unpad(data []byte, scheme Scheme) ([]byte, error) {
	if !IsSchemeSupported(scheme) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, scheme)
	}
	if len(data) == 0 {
		return data, nil
	}

	if scheme == Zeros {
		end := len(data)
		for end > 0 && data[end-1] == 0 {
			end--
		}
		return data[:end], nil
	}

	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		getLogger().Debug("Unpad: bad length byte, passing through", "scheme", scheme, "padlen", padLen)
		return data, nil
	}

	if scheme == PKCS7 {
		for _, v := range data[len(data)-padLen:] {
			if int(v) != padLen {
				getLogger().Debug("Unpad: PKCS7 mismatch, passing through", "padlen", padLen)
				return data, nil
			}
		}
	}
	return data[:len(data)-padLen], nil
}
