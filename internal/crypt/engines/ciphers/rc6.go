package ciphers

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/sem-hub/chatcrypt/internal/crypt/engines"
)

const (
	rc6Rounds    = 20
	rc6BlockSize = 16
	rc6MaxKeyLen = 255

	rc6P32 uint32 = 0xB7E15163
	rc6Q32 uint32 = 0x9E3779B9
)

// RC6-32/20/b. Keys are any multiple of 4 bytes up to 255 bytes;
// 16, 24 and 32 are the sizes the cipher was standardised with.
type Rc6Engine struct {
	engines.EngineData
}

func NewRc6Engine() *Rc6Engine {
	engine := Rc6Engine{}
	engine.EngineData = *engines.NewEngineData(engines.RC6, "block")
	return &engine
}

func (e *Rc6Engine) GetName() string {
	return e.EngineData.Name
}

func (e *Rc6Engine) GetKeySizes() []int {
	return []int{128, 192, 256}
}

func (e *Rc6Engine) BlockSize() int {
	return rc6BlockSize
}

func (e *Rc6Engine) CheckKey(key []byte) error {
	if len(key) == 0 || len(key)%4 != 0 || len(key) > rc6MaxKeyLen {
		return fmt.Errorf("%w: rc6 key must be a non-zero multiple of 4 bytes, got %d",
			engines.ErrInvalidKeySize, len(key))
	}
	return nil
}

func (e *Rc6Engine) checkBlock(block []byte) error {
	if len(block) != rc6BlockSize {
		return fmt.Errorf("%w: rc6 block must be %d bytes, got %d",
			engines.ErrInvalidBlockSize, rc6BlockSize, len(block))
	}
	return nil
}

func (e *Rc6Engine) Encrypt(block, key []byte) ([]byte, error) {
	e.Logger.Trace("Encrypt", "blocklen", len(block), "keylen", len(key))
	if err := e.checkBlock(block); err != nil {
		return nil, err
	}
	if err := e.CheckKey(key); err != nil {
		return nil, err
	}
	s := rc6KeySchedule(key)

	a := binary.LittleEndian.Uint32(block[0:4])
	b := binary.LittleEndian.Uint32(block[4:8])
	c := binary.LittleEndian.Uint32(block[8:12])
	d := binary.LittleEndian.Uint32(block[12:16])

	b += s[0]
	d += s[1]
	for i := 0; i < rc6Rounds; i++ {
		t := rotl(b*(2*b+1), 5)
		u := rotl(d*(2*d+1), 5)
		a = rotl(a^t, u) + s[2*i+2]
		c = rotl(c^u, t) + s[2*i+3]
		a, b, c, d = b, c, d, a
	}
	a += s[2*rc6Rounds+2]
	c += s[2*rc6Rounds+3]

	out := make([]byte, rc6BlockSize)
	binary.LittleEndian.PutUint32(out[0:4], a)
	binary.LittleEndian.PutUint32(out[4:8], b)
	binary.LittleEndian.PutUint32(out[8:12], c)
	binary.LittleEndian.PutUint32(out[12:16], d)
	return out, nil
}

func (e *Rc6Engine) Decrypt(block, key []byte) ([]byte, error) {
	e.Logger.Trace("Decrypt", "blocklen", len(block), "keylen", len(key))
	if err := e.checkBlock(block); err != nil {
		return nil, err
	}
	if err := e.CheckKey(key); err != nil {
		return nil, err
	}
	s := rc6KeySchedule(key)

	a := binary.LittleEndian.Uint32(block[0:4])
	b := binary.LittleEndian.Uint32(block[4:8])
	c := binary.LittleEndian.Uint32(block[8:12])
	d := binary.LittleEndian.Uint32(block[12:16])

	c -= s[2*rc6Rounds+3]
	a -= s[2*rc6Rounds+2]
	for i := rc6Rounds - 1; i >= 0; i-- {
		a, b, c, d = d, a, b, c
		u := rotl(d*(2*d+1), 5)
		t := rotl(b*(2*b+1), 5)
		c = rotr(c-s[2*i+3], t) ^ u
		a = rotr(a-s[2*i+2], u) ^ t
	}
	d -= s[1]
	b -= s[0]

	out := make([]byte, rc6BlockSize)
	binary.LittleEndian.PutUint32(out[0:4], a)
	binary.LittleEndian.PutUint32(out[4:8], b)
	binary.LittleEndian.PutUint32(out[8:12], c)
	binary.LittleEndian.PutUint32(out[12:16], d)
	return out, nil
}

// rc6KeySchedule expands key into the 2R+4 round keys.
func rc6KeySchedule(key []byte) [2*rc6Rounds + 4]uint32 {
	c := len(key) / 4
	l := make([]uint32, c)
	for i := range l {
		l[i] = binary.LittleEndian.Uint32(key[4*i:])
	}

	var s [2*rc6Rounds + 4]uint32
	s[0] = rc6P32
	for i := 1; i < len(s); i++ {
		s[i] = s[i-1] + rc6Q32
	}

	var a, b uint32
	i, j := 0, 0
	for k := 0; k < 3*max(c, len(s)); k++ {
		s[i] = rotl(s[i]+a+b, 3)
		a = s[i]
		l[j] = rotl(l[j]+a+b, a+b)
		b = l[j]
		i = (i + 1) % len(s)
		j = (j + 1) % c
	}
	return s
}

// Only the low five bits of n count.
func rotl(x, n uint32) uint32 {
	return bits.RotateLeft32(x, int(n&31))
}

func rotr(x, n uint32) uint32 {
	return bits.RotateLeft32(x, -int(n&31))
}
