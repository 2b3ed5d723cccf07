package engines

import (
	"errors"
	"slices"
	"strings"

	"github.com/sem-hub/chatcrypt/internal/configs"
)

const (
	RC6     = "rc6"
	Twofish = "twofish"
)

var EngineList = []string{
	RC6,
	Twofish,
}

var (
	ErrInvalidBlockSize  = errors.New("invalid block size")
	ErrInvalidKeySize    = errors.New("invalid key size")
	ErrUnsupportedEngine = errors.New("unsupported engine")
)

type EngineData struct {
	Name   string
	Type   string
	Logger *configs.ColorLogger
}

// Cipher is a single-block primitive. Implementations keep no per-call
// state: the key schedule is derived from key on every call.
type Cipher interface {
	Encrypt(block, key []byte) ([]byte, error)
	Decrypt(block, key []byte) ([]byte, error)
	BlockSize() int
	// CheckKey returns ErrInvalidKeySize when key cannot be used.
	CheckKey(key []byte) error
	GetName() string
	GetType() string
	// Key sizes in bits
	GetKeySizes() []int
}

func NewEngineData(Name, Type string) *EngineData {
	return &EngineData{
		Name:   Name,
		Type:   Type,
		Logger: configs.InitLogger("ciphers"),
	}
}

func (e *EngineData) GetType() string {
	return e.Type
}

func IsEngineSupported(engine string) bool {
	return slices.Contains(EngineList, strings.ToLower(engine))
}
