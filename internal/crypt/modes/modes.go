package modes

import (
	"bytes"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/sem-hub/chatcrypt/internal/configs"
	"github.com/sem-hub/chatcrypt/internal/crypt/engines"
	"github.com/sem-hub/chatcrypt/internal/crypt/padding"
)

type Mode string

const (
	ECB         Mode = "ecb"
	CBC         Mode = "cbc"
	PCBC        Mode = "pcbc"
	CFB         Mode = "cfb"
	OFB         Mode = "ofb"
	CTR         Mode = "ctr"
	RandomDelta Mode = "random-delta"
)

// ModeList holds every declared mode. RandomDelta is listed but has no
// implementation.
var ModeList = []Mode{
	ECB,
	CBC,
	PCBC,
	CFB,
	OFB,
	CTR,
	RandomDelta,
}

var (
	ErrInvalidIVSize   = errors.New("invalid IV size")
	ErrInvalidDataSize = errors.New("data is not a multiple of the block size")
	ErrUnsupportedMode = errors.New("unsupported mode")
)

func (m Mode) String() string {
	return string(m)
}

// NeedsPadding reports whether the mode works on whole blocks only.
func (m Mode) NeedsPadding() bool {
	return m == ECB || m == CBC || m == PCBC
}

func (m Mode) NeedsIV() bool {
	return m != ECB
}

func IsModeSupported(m Mode) bool {
	return m != RandomDelta && slices.Contains(ModeList, m)
}

func ParseMode(name string) (Mode, error) {
	m := Mode(strings.ReplaceAll(strings.ToLower(name), "_", "-"))
	if m == "randomdelta" {
		m = RandomDelta
	}
	if !slices.Contains(ModeList, m) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedMode, name)
	}
	return m, nil
}

// Modes drives one primitive over buffers of any length. It holds no
// per-call state and is safe for concurrent use.
type Modes struct {
	engine engines.Cipher
	logger *configs.ColorLogger
}

func NewModes(engine engines.Cipher) *Modes {
	return &Modes{
		engine: engine,
		logger: configs.InitLogger("modes"),
	}
}

func (m *Modes) Engine() engines.Cipher {
	return m.engine
}

// GenerateIV returns a random IV of the primitive's block size.
func (m *Modes) GenerateIV() ([]byte, error) {
	iv := make([]byte, m.engine.BlockSize())
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}
	return iv, nil
}

func (m *Modes) check(key, iv []byte, mode Mode) error {
	if !IsModeSupported(mode) {
		return fmt.Errorf("%w: %s", ErrUnsupportedMode, mode)
	}
	if err := m.engine.CheckKey(key); err != nil {
		return err
	}
	if mode.NeedsIV() && len(iv) != m.engine.BlockSize() {
		return fmt.Errorf("%w: %s needs %d bytes, got %d",
			ErrInvalidIVSize, mode, m.engine.BlockSize(), len(iv))
	}
	return nil
}

func (m *Modes) Encrypt(data, key, iv []byte, mode Mode, scheme padding.Scheme) ([]byte, error) {
	m.logger.Debug("Encrypt", "engine", m.engine.GetName(), "mode", mode, "padding", scheme, "datalen", len(data))
	if err := m.check(key, iv, mode); err != nil {
		return nil, err
	}

	if mode.NeedsPadding() {
		var err error
		data, err = padding.Pad(data, m.engine.BlockSize(), scheme)
		if err != nil {
			return nil, err
		}
	}

	switch mode {
	case ECB:
		return m.encryptECB(data, key)
	case CBC:
		return m.encryptCBC(data, key, iv)
	case PCBC:
		return m.encryptPCBC(data, key, iv)
	case CFB:
		return m.encryptCFB(data, key, iv)
	case OFB:
		return m.ofb(data, key, iv)
	case CTR:
		return m.ctr(data, key, iv)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedMode, mode)
}

func (m *Modes) Decrypt(data, key, iv []byte, mode Mode, scheme padding.Scheme) ([]byte, error) {
	m.logger.Debug("Decrypt", "engine", m.engine.GetName(), "mode", mode, "padding", scheme, "datalen", len(data))
	if err := m.check(key, iv, mode); err != nil {
		return nil, err
	}

	if mode.NeedsPadding() {
		if !padding.IsSchemeSupported(scheme) {
			return nil, fmt.Errorf("%w: %s", padding.ErrUnsupportedScheme, scheme)
		}
		if len(data)%m.engine.BlockSize() != 0 {
			return nil, fmt.Errorf("%w: %d bytes", ErrInvalidDataSize, len(data))
		}
	}

	var out []byte
	var err error
	switch mode {
	case ECB:
		out, err = m.decryptECB(data, key)
	case CBC:
		out, err = m.decryptCBC(data, key, iv)
	case PCBC:
		out, err = m.decryptPCBC(data, key, iv)
	case CFB:
		return m.decryptCFB(data, key, iv)
	case OFB:
		// XOR with the same keystream undoes itself
		return m.ofb(data, key, iv)
	case CTR:
		return m.ctr(data, key, iv)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMode, mode)
	}
	if err != nil {
		return nil, err
	}
	return padding.Unpad(out, scheme)
}

func (m *Modes) encryptECB(data, key []byte) ([]byte, error) {
	bs := m.engine.BlockSize()
	out := make([]byte, len(data))
	for i := 0; i < len(data); i += bs {
		c, err := m.engine.Encrypt(data[i:i+bs], key)
		if err != nil {
			return nil, err
		}
		copy(out[i:], c)
	}
	return out, nil
}

func (m *Modes) decryptECB(data, key []byte) ([]byte, error) {
	bs := m.engine.BlockSize()
	out := make([]byte, len(data))
	for i := 0; i < len(data); i += bs {
		p, err := m.engine.Decrypt(data[i:i+bs], key)
		if err != nil {
			return nil, err
		}
		copy(out[i:], p)
	}
	return out, nil
}

func (m *Modes) encryptCBC(data, key, iv []byte) ([]byte, error) {
	bs := m.engine.BlockSize()
	out := make([]byte, len(data))
	prevCipher := bytes.Clone(iv)
	buf := make([]byte, bs)
	for i := 0; i < len(data); i += bs {
		subtle.XORBytes(buf, data[i:i+bs], prevCipher)
		c, err := m.engine.Encrypt(buf, key)
		if err != nil {
			return nil, err
		}
		copy(out[i:], c)
		prevCipher = c
	}
	return out, nil
}

func (m *Modes) decryptCBC(data, key, iv []byte) ([]byte, error) {
	bs := m.engine.BlockSize()
	out := make([]byte, len(data))
	prevCipher := iv
	for i := 0; i < len(data); i += bs {
		cur := data[i : i+bs]
		p, err := m.engine.Decrypt(cur, key)
		if err != nil {
			return nil, err
		}
		subtle.XORBytes(out[i:i+bs], p, prevCipher)
		prevCipher = cur
	}
	return out, nil
}

// PCBC feeds both the previous ciphertext and the previous plaintext
// into the next block. The plaintext chain starts from zeros.
func (m *Modes) encryptPCBC(data, key, iv []byte) ([]byte, error) {
	bs := m.engine.BlockSize()
	out := make([]byte, len(data))
	prevCipher := bytes.Clone(iv)
	prevPlain := make([]byte, bs)
	buf := make([]byte, bs)
	for i := 0; i < len(data); i += bs {
		cur := data[i : i+bs]
		subtle.XORBytes(buf, cur, prevCipher)
		subtle.XORBytes(buf, buf, prevPlain)
		c, err := m.engine.Encrypt(buf, key)
		if err != nil {
			return nil, err
		}
		copy(out[i:], c)
		prevCipher = c
		prevPlain = cur
	}
	return out, nil
}

func (m *Modes) decryptPCBC(data, key, iv []byte) ([]byte, error) {
	bs := m.engine.BlockSize()
	out := make([]byte, len(data))
	prevCipher := iv
	prevPlain := make([]byte, bs)
	for i := 0; i < len(data); i += bs {
		cur := data[i : i+bs]
		p, err := m.engine.Decrypt(cur, key)
		if err != nil {
			return nil, err
		}
		plain := out[i : i+bs]
		subtle.XORBytes(plain, p, prevCipher)
		subtle.XORBytes(plain, plain, prevPlain)
		prevCipher = cur
		prevPlain = plain
	}
	return out, nil
}

// CFB with a full-block segment: the keystream is the encryption of the
// previous ciphertext block, the IV for the first one.
func (m *Modes) encryptCFB(data, key, iv []byte) ([]byte, error) {
	bs := m.engine.BlockSize()
	out := make([]byte, len(data))
	prevCipher := iv
	for i := 0; i < len(data); i += bs {
		keystream, err := m.engine.Encrypt(prevCipher, key)
		if err != nil {
			return nil, err
		}
		n := min(bs, len(data)-i)
		subtle.XORBytes(out[i:i+n], data[i:i+n], keystream)
		prevCipher = out[i : i+n]
	}
	return out, nil
}

func (m *Modes) decryptCFB(data, key, iv []byte) ([]byte, error) {
	bs := m.engine.BlockSize()
	out := make([]byte, len(data))
	prevCipher := iv
	for i := 0; i < len(data); i += bs {
		keystream, err := m.engine.Encrypt(prevCipher, key)
		if err != nil {
			return nil, err
		}
		n := min(bs, len(data)-i)
		subtle.XORBytes(out[i:i+n], data[i:i+n], keystream)
		prevCipher = data[i : i+n]
	}
	return out, nil
}

// ofb serves both directions.
func (m *Modes) ofb(data, key, iv []byte) ([]byte, error) {
	bs := m.engine.BlockSize()
	out := make([]byte, len(data))
	keystream := iv
	for i := 0; i < len(data); i += bs {
		var err error
		keystream, err = m.engine.Encrypt(keystream, key)
		if err != nil {
			return nil, err
		}
		n := min(bs, len(data)-i)
		subtle.XORBytes(out[i:i+n], data[i:i+n], keystream)
	}
	return out, nil
}

// ctr serves both directions.
func (m *Modes) ctr(data, key, nonce []byte) ([]byte, error) {
	bs := m.engine.BlockSize()
	out := make([]byte, len(data))
	counter := bytes.Clone(nonce)
	for i := 0; i < len(data); i += bs {
		keystream, err := m.engine.Encrypt(counter, key)
		if err != nil {
			return nil, err
		}
		n := min(bs, len(data)-i)
		subtle.XORBytes(out[i:i+n], data[i:i+n], keystream)
		IncrementCounter(counter)
	}
	return out, nil
}

// IncrementCounter adds one to counter as a big-endian number, wrapping
// to all zeros after all 0xFF.
func IncrementCounter(counter []byte) {
	for i := len(counter) - 1; i >= 0; i-- {
		counter[i]++
		if counter[i] != 0 {
			break
		}
	}
}
