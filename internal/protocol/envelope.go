package protocol

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/sem-hub/chatcrypt/internal/configs"
	"github.com/sem-hub/chatcrypt/internal/crypt"
	"github.com/sem-hub/chatcrypt/internal/crypt/dh"
)

type Kind string

const (
	KindMessage     Kind = "message"
	KindKeyExchange Kind = "key-exchange"
)

var (
	ErrMalformed        = errors.New("protocol: malformed envelope")
	ErrSelectorMismatch = errors.New("protocol: cipher selection does not match session")
	ErrGroupMismatch    = errors.New("protocol: DH group does not match")
)

// ChatMessage carries one encrypted message with the selectors needed to
// decrypt it. Payload is base64 in JSON.
type ChatMessage struct {
	ID      uuid.UUID `json:"id"`
	ChatID  string    `json:"chat_id"`
	Sender  string    `json:"sender,omitempty"`
	Cipher  string    `json:"cipher"`
	KeySize int       `json:"key_size"`
	Mode    string    `json:"mode"`
	Padding string    `json:"padding"`
	IV      string    `json:"iv,omitempty"`
	Payload []byte    `json:"payload"`
	Time    time.Time `json:"time"`
}

// KeyExchange publishes one side's DH public value.
type KeyExchange struct {
	ID        uuid.UUID `json:"id"`
	ChatID    string    `json:"chat_id"`
	Sender    string    `json:"sender,omitempty"`
	Group     string    `json:"group"`
	PublicKey string    `json:"public_key"`
}

type Envelope struct {
	Type        Kind         `json:"type"`
	Message     *ChatMessage `json:"message,omitempty"`
	KeyExchange *KeyExchange `json:"key_exchange,omitempty"`
}

func getLogger() *configs.ColorLogger {
	return configs.InitLogger("protocol")
}

// Seal encrypts plaintext under s with a fresh IV.
func Seal(s *crypt.Secrets, chatID, sender string, plaintext []byte) (*ChatMessage, error) {
	msg := &ChatMessage{
		ID:      uuid.New(),
		ChatID:  chatID,
		Sender:  sender,
		Cipher:  s.Engine.GetName(),
		KeySize: s.KeySize(),
		Mode:    s.Mode.String(),
		Padding: s.Padding.String(),
		Time:    time.Now().UTC(),
	}

	var iv []byte
	if s.Mode.NeedsIV() {
		var err error
		iv, err = s.GenerateIV()
		if err != nil {
			return nil, err
		}
		msg.IV = hex.EncodeToString(iv)
	}
	payload, err := s.EncryptWithIV(plaintext, iv)
	if err != nil {
		return nil, err
	}
	msg.Payload = payload
	getLogger().Debug("Seal", "id", msg.ID, "chat", chatID, "len", len(payload))
	return msg, nil
}

// Open decrypts msg with s. Messages sealed under other selectors are refused.
func Open(s *crypt.Secrets, msg *ChatMessage) ([]byte, error) {
	if msg.Cipher != s.Engine.GetName() || msg.KeySize != s.KeySize() ||
		msg.Mode != s.Mode.String() || msg.Padding != s.Padding.String() {
		getLogger().Debug("Open: selector mismatch", "id", msg.ID, "session", s.String())
		return nil, fmt.Errorf("%w: got %s-%d-%s-%s, session is %s", ErrSelectorMismatch,
			msg.Cipher, msg.KeySize, msg.Mode, msg.Padding, s.String())
	}
	var iv []byte
	if s.Mode.NeedsIV() {
		var err error
		iv, err = hex.DecodeString(msg.IV)
		if err != nil {
			return nil, fmt.Errorf("%w: bad IV: %v", ErrMalformed, err)
		}
	}
	return s.DecryptWithIV(msg.Payload, iv)
}

func NewKeyExchange(chatID, sender string, group *dh.Group, party *dh.Party) *KeyExchange {
	return &KeyExchange{
		ID:        uuid.New(),
		ChatID:    chatID,
		Sender:    sender,
		Group:     group.Name,
		PublicKey: dh.EncodePublicKey(party.PublicKey()),
	}
}

func (k *KeyExchange) PeerKey() (*big.Int, error) {
	return dh.DecodePublicKey(k.PublicKey)
}

// Agree computes the shared secret between party and the sender of k.
func (k *KeyExchange) Agree(group *dh.Group, party *dh.Party) ([]byte, error) {
	if k.Group != group.Name {
		return nil, fmt.Errorf("%w: %s vs %s", ErrGroupMismatch, k.Group, group.Name)
	}
	peer, err := k.PeerKey()
	if err != nil {
		return nil, err
	}
	return party.ComputeSharedSecret(peer)
}

func MarshalMessage(msg *ChatMessage) ([]byte, error) {
	return json.Marshal(&Envelope{Type: KindMessage, Message: msg})
}

func MarshalKeyExchange(k *KeyExchange) ([]byte, error) {
	return json.Marshal(&Envelope{Type: KindKeyExchange, KeyExchange: k})
}

// Unmarshal decodes an envelope and checks that its body matches its type.
func Unmarshal(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch env.Type {
	case KindMessage:
		if env.Message == nil || env.KeyExchange != nil {
			return nil, fmt.Errorf("%w: message body", ErrMalformed)
		}
	case KindKeyExchange:
		if env.KeyExchange == nil || env.Message != nil {
			return nil, fmt.Errorf("%w: key exchange body", ErrMalformed)
		}
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformed, env.Type)
	}
	return &env, nil
}
