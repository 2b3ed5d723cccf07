package dh

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"sync"

	"github.com/sem-hub/chatcrypt/internal/configs"
	"golang.org/x/crypto/blake2b"
)

type State int

const (
	Uninitialized State = iota
	KeyGenerated
	SecretComputed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case KeyGenerated:
		return "key-generated"
	case SecretComputed:
		return "secret-computed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	ErrInvalidPublicKey  = errors.New("dh: invalid public key")
	ErrInvalidParameters = errors.New("dh: invalid parameters")
)

var one = big.NewInt(1)

// Party is one side of a key agreement. The private exponent never leaves it.
type Party struct {
	p, g      *big.Int
	private   *big.Int
	public    *big.Int
	state     State
	stateLock sync.Mutex
	logger    *configs.ColorLogger
}

func NewParty(p, g *big.Int) (*Party, error) {
	return NewPartyWithRand(rand.Reader, p, g)
}

// NewPartyWithRand draws the private exponent from rng. It is uniform in
// [1, 2^(bitlen(p)-1)].
func NewPartyWithRand(rng io.Reader, p, g *big.Int) (*Party, error) {
	party := &Party{
		logger: configs.InitLogger("dh"),
	}
	if p == nil || g == nil || p.Cmp(big.NewInt(3)) <= 0 {
		return nil, fmt.Errorf("%w: modulus must be greater than 3", ErrInvalidParameters)
	}
	pMinusOne := new(big.Int).Sub(p, one)
	if g.Cmp(one) <= 0 || g.Cmp(pMinusOne) >= 0 {
		return nil, fmt.Errorf("%w: generator out of range", ErrInvalidParameters)
	}
	party.p = new(big.Int).Set(p)
	party.g = new(big.Int).Set(g)

	limit := new(big.Int).Lsh(one, uint(p.BitLen()-1))
	private, err := rand.Int(rng, limit)
	if err != nil {
		return nil, err
	}
	party.private = private.Add(private, one)
	party.public = new(big.Int).Exp(party.g, party.private, party.p)
	party.setState(KeyGenerated)

	party.logger.Debug("DH key generated", "pbits", p.BitLen(), "publicbits", party.public.BitLen())
	return party, nil
}

func (p *Party) State() State {
	p.stateLock.Lock()
	defer p.stateLock.Unlock()
	return p.state
}

func (p *Party) setState(state State) {
	p.stateLock.Lock()
	defer p.stateLock.Unlock()
	p.state = state
}

// PublicKey returns a copy of g^private mod p.
func (p *Party) PublicKey() *big.Int {
	if p.public == nil {
		return nil
	}
	return new(big.Int).Set(p.public)
}

func (p *Party) Modulus() *big.Int {
	if p.p == nil {
		return nil
	}
	return new(big.Int).Set(p.p)
}

// ComputeSharedSecret returns peer^private mod p as minimal big-endian
// bytes. No hashing is applied. The peer value must satisfy 1 < peer < p-1.
func (p *Party) ComputeSharedSecret(peer *big.Int) ([]byte, error) {
	if p.State() == Uninitialized {
		return nil, fmt.Errorf("%w: party has no key", ErrInvalidParameters)
	}
	if err := CheckPublicKey(p.p, peer); err != nil {
		p.logger.Debug("ComputeSharedSecret: rejected peer value", "error", err)
		return nil, err
	}
	secret := new(big.Int).Exp(peer, p.private, p.p).Bytes()
	p.setState(SecretComputed)

	p.logger.Debug("DH secret computed", "len", len(secret), "fingerprint", Fingerprint(secret))
	return secret, nil
}

// CheckPublicKey validates a peer value against modulus p.
func CheckPublicKey(p, peer *big.Int) error {
	if peer == nil {
		return fmt.Errorf("%w: missing", ErrInvalidPublicKey)
	}
	if peer.Cmp(one) <= 0 || peer.Cmp(new(big.Int).Sub(p, one)) >= 0 {
		return fmt.Errorf("%w: out of range (1, p-1)", ErrInvalidPublicKey)
	}
	return nil
}

// GenerateSafePrime returns a prime p = 2q+1 with q prime and p exactly
// bits long. Large sizes take a long time; prefer the standard groups.
func GenerateSafePrime(rng io.Reader, bits int) (*big.Int, error) {
	if bits < 3 {
		return nil, fmt.Errorf("%w: %d bits is too small", ErrInvalidParameters, bits)
	}
	for {
		q, err := rand.Prime(rng, bits-1)
		if err != nil {
			return nil, err
		}
		p := new(big.Int).Lsh(q, 1)
		p.Add(p, one)
		if p.BitLen() == bits && p.ProbablyPrime(20) {
			return p, nil
		}
	}
}

func EncodePublicKey(key *big.Int) string {
	return hex.EncodeToString(key.Bytes())
}

// DecodePublicKey parses a hex public value. An optional 0x prefix is accepted.
func DecodePublicKey(s string) (*big.Int, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPublicKey)
	}
	key, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, fmt.Errorf("%w: not a hex number", ErrInvalidPublicKey)
	}
	return key, nil
}

// Fingerprint is a short digest of a secret for display and logs, so two
// users can compare secrets without showing them. It is not a key.
func Fingerprint(secret []byte) string {
	sum := blake2b.Sum256(secret)
	return hex.EncodeToString(sum[:8])
}
