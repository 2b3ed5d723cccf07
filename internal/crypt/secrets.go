package crypt

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/sem-hub/chatcrypt/internal/configs"
	"github.com/sem-hub/chatcrypt/internal/crypt/engines"
	"github.com/sem-hub/chatcrypt/internal/crypt/engines/ciphers"
	"github.com/sem-hub/chatcrypt/internal/crypt/modes"
	"github.com/sem-hub/chatcrypt/internal/crypt/padding"
)

const (
	DefaultMode    = modes.CBC
	DefaultPadding = padding.PKCS7
)

// Secrets binds a key to one cipher/mode/padding selection.
type Secrets struct {
	key     []byte
	keySize int
	Engine  engines.Cipher
	Modes   *modes.Modes
	Mode    modes.Mode
	Padding padding.Scheme
}

var (
	logger     *configs.ColorLogger
	loggerOnce sync.Once
)

func getLogger() *configs.ColorLogger {
	loggerOnce.Do(func() {
		logger = configs.InitLogger("crypt")
	})
	return logger
}

// NewSecrets parses an engine string of the form cipher[-size][-mode][-padding],
// e.g. "rc6-256-cbc-pkcs7" or "twofish-ctr". The size is in bits and defaults
// to the largest the cipher supports. Key bytes beyond the size are dropped.
func NewSecrets(engine string, key []byte) (*Secrets, error) {
	s := Secrets{}
	cipherName, size, mode, scheme, err := ParseEngineString(engine)
	if err != nil {
		getLogger().Error("Failed to parse engine string", "engine", engine, "error", err)
		return nil, err
	}

	s.Engine, err = CreateEngine(cipherName)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		size = slices.Max(s.Engine.GetKeySizes())
	}
	if size%8 != 0 || s.Engine.CheckKey(make([]byte, size/8)) != nil {
		return nil, fmt.Errorf("%w: %s does not take %d-bit keys", engines.ErrInvalidKeySize, cipherName, size)
	}
	s.keySize = size
	s.Mode = mode
	s.Padding = scheme
	s.Modes = modes.NewModes(s.Engine)

	if err := s.SetKey(key); err != nil {
		return nil, err
	}
	getLogger().Debug("Cipher parameters", "cipher", cipherName, "size", size, "mode", mode, "padding", scheme)
	return &s, nil
}

// ParseEngineString splits cipher[-size][-mode][-padding]. Missing mode and
// padding fall back to CBC and PKCS7; a missing size is returned as 0.
func ParseEngineString(engine string) (string, int, modes.Mode, padding.Scheme, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(engine)), "-")
	cipherName := parts[0]
	if cipherName == "" {
		return "", 0, "", "", fmt.Errorf("%w: empty engine string", engines.ErrUnsupportedEngine)
	}
	if !engines.IsEngineSupported(cipherName) {
		return "", 0, "", "", fmt.Errorf("%w: %s", engines.ErrUnsupportedEngine, cipherName)
	}
	parts = parts[1:]

	size := 0
	if len(parts) > 0 {
		if v, err := strconv.Atoi(parts[0]); err == nil {
			if v <= 0 {
				return "", 0, "", "", fmt.Errorf("%w: %d bits", engines.ErrInvalidKeySize, v)
			}
			size = v
			parts = parts[1:]
		}
	}

	mode := DefaultMode
	if len(parts) > 0 {
		name := parts[0]
		parts = parts[1:]
		if name == "random" && len(parts) > 0 && parts[0] == "delta" {
			name = string(modes.RandomDelta)
			parts = parts[1:]
		}
		var err error
		if mode, err = modes.ParseMode(name); err != nil {
			return "", 0, "", "", err
		}
		if !modes.IsModeSupported(mode) {
			return "", 0, "", "", fmt.Errorf("%w: %s", modes.ErrUnsupportedMode, mode)
		}
	}

	scheme := DefaultPadding
	if len(parts) > 0 {
		var err error
		if scheme, err = padding.ParseScheme(strings.Join(parts, "-")); err != nil {
			return "", 0, "", "", err
		}
	}
	return cipherName, size, mode, scheme, nil
}

func CreateEngine(engineName string) (engines.Cipher, error) {
	switch engineName {
	case engines.RC6:
		return ciphers.NewRc6Engine(), nil
	case engines.Twofish:
		return ciphers.NewTwofishEngine(), nil
	}
	return nil, fmt.Errorf("%w: %s", engines.ErrUnsupportedEngine, engineName)
}

// SetKey replaces the session key, for example with a fresh DH secret.
func (s *Secrets) SetKey(key []byte) error {
	need := s.keySize / 8
	if len(key) < need {
		return fmt.Errorf("%w: need %d bytes, got %d", engines.ErrInvalidKeySize, need, len(key))
	}
	if len(key) > need {
		getLogger().Debug("Key truncated", "from", len(key), "to", need)
	}
	s.key = bytes.Clone(key[:need])
	return nil
}

func (s *Secrets) GetKey() []byte {
	return bytes.Clone(s.key)
}

func (s *Secrets) KeySize() int {
	return s.keySize
}

// String returns the canonical engine string.
func (s *Secrets) String() string {
	return fmt.Sprintf("%s-%d-%s-%s", s.Engine.GetName(), s.keySize, s.Mode, s.Padding)
}

func (s *Secrets) GenerateIV() ([]byte, error) {
	return s.Modes.GenerateIV()
}

// EncryptWithIV does not prefix the IV to the output.
func (s *Secrets) EncryptWithIV(data, iv []byte) ([]byte, error) {
	return s.Modes.Encrypt(data, s.key, iv, s.Mode, s.Padding)
}

func (s *Secrets) DecryptWithIV(data, iv []byte) ([]byte, error) {
	return s.Modes.Decrypt(data, s.key, iv, s.Mode, s.Padding)
}

// Encrypt draws a fresh IV and returns it followed by the ciphertext. ECB
// output carries no IV.
func (s *Secrets) Encrypt(data []byte) ([]byte, error) {
	getLogger().Trace("Encrypt", "datalen", len(data))
	if !s.Mode.NeedsIV() {
		return s.EncryptWithIV(data, nil)
	}
	iv, err := s.GenerateIV()
	if err != nil {
		return nil, err
	}
	out, err := s.EncryptWithIV(data, iv)
	if err != nil {
		return nil, err
	}
	return append(iv, out...), nil
}

func (s *Secrets) Decrypt(msg []byte) ([]byte, error) {
	getLogger().Trace("Decrypt", "msglen", len(msg))
	if !s.Mode.NeedsIV() {
		return s.DecryptWithIV(msg, nil)
	}
	bs := s.Engine.BlockSize()
	if len(msg) < bs {
		return nil, fmt.Errorf("%w: message shorter than IV", modes.ErrInvalidDataSize)
	}
	return s.DecryptWithIV(msg[bs:], msg[:bs])
}
