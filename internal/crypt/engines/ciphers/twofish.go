package ciphers

import (
	"crypto/cipher"
	"fmt"

	"github.com/sem-hub/chatcrypt/internal/crypt/engines"
	"golang.org/x/crypto/twofish"
)

type TwofishEngine struct {
	engines.EngineData
}

func NewTwofishEngine() *TwofishEngine {
	engine := TwofishEngine{}
	engine.EngineData = *engines.NewEngineData(engines.Twofish, "block")
	return &engine
}

func (e *TwofishEngine) GetName() string {
	return e.EngineData.Name
}

func (e *TwofishEngine) GetKeySizes() []int {
	return []int{128, 192, 256}
}

func (e *TwofishEngine) BlockSize() int {
	return twofish.BlockSize
}

func (e *TwofishEngine) CheckKey(key []byte) error {
	switch len(key) {
	case 16, 24, 32:
		return nil
	}
	return fmt.Errorf("%w: twofish key must be 16, 24 or 32 bytes, got %d",
		engines.ErrInvalidKeySize, len(key))
}

// NewCipher runs the key schedule. Called once per block operation.
func (e *TwofishEngine) NewCipher(key []byte) (cipher.Block, error) {
	e.Logger.Trace("NewCipher", "keylen", len(key))
	if err := e.CheckKey(key); err != nil {
		return nil, err
	}
	return twofish.NewCipher(key)
}

func (e *TwofishEngine) checkBlock(block []byte) error {
	if len(block) != twofish.BlockSize {
		return fmt.Errorf("%w: twofish block must be %d bytes, got %d",
			engines.ErrInvalidBlockSize, twofish.BlockSize, len(block))
	}
	return nil
}

func (e *TwofishEngine) Encrypt(block, key []byte) ([]byte, error) {
	if err := e.checkBlock(block); err != nil {
		return nil, err
	}
	c, err := e.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, twofish.BlockSize)
	c.Encrypt(out, block)
	return out, nil
}

func (e *TwofishEngine) Decrypt(block, key []byte) ([]byte, error) {
	if err := e.checkBlock(block); err != nil {
		return nil, err
	}
	c, err := e.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, twofish.BlockSize)
	c.Decrypt(out, block)
	return out, nil
}
