package main

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/mitchellh/go-homedir"
	"github.com/sem-hub/chatcrypt/internal/configs"
	"github.com/sem-hub/chatcrypt/internal/crypt"
	"github.com/sem-hub/chatcrypt/internal/crypt/dh"
	"github.com/sem-hub/chatcrypt/internal/crypt/modes"
	"github.com/sem-hub/chatcrypt/internal/protocol"
)

func newUUID() string {
	return uuid.New().String()
}

func expandDefault() string {
	path, err := homedir.Expand(configs.DefaultConfigFile)
	if err != nil {
		return ""
	}
	return path
}

func openInput() (io.ReadCloser, error) {
	if inFile == "" || inFile == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(inFile)
}

func openOutput() (io.WriteCloser, error) {
	if outFile == "" || outFile == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	return os.OpenFile(outFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func readInput() ([]byte, error) {
	in, err := openInput()
	if err != nil {
		return nil, err
	}
	defer in.Close()
	return io.ReadAll(in)
}

func writeOutput(data []byte) error {
	out, err := openOutput()
	if err != nil {
		return err
	}
	if _, err := out.Write(data); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func loadSecrets() (*crypt.Secrets, error) {
	if cfg.Crypt.Key == "" {
		return nil, errors.New("key is mandatory (-key or crypt.key)")
	}
	keyBytes, err := hex.DecodeString(strings.TrimSpace(cfg.Crypt.Key))
	if err != nil {
		return nil, fmt.Errorf("key is not hex: %w", err)
	}
	s, err := crypt.NewSecrets(cfg.Crypt.Engine, keyBytes)
	if err != nil {
		return nil, err
	}
	logger.Info("Using", "engine", s.String())
	return s, nil
}

func cmdIV() error {
	cipherName, _, _, _, err := crypt.ParseEngineString(cfg.Crypt.Engine)
	if err != nil {
		return err
	}
	engine, err := crypt.CreateEngine(cipherName)
	if err != nil {
		return err
	}
	iv, err := modes.NewModes(engine).GenerateIV()
	if err != nil {
		return err
	}
	return writeOutput([]byte(hex.EncodeToString(iv) + "\n"))
}

func cmdEncrypt() error {
	s, err := loadSecrets()
	if err != nil {
		return err
	}
	data, err := readInput()
	if err != nil {
		return err
	}

	if raw {
		out, err := s.Encrypt(data)
		if err != nil {
			return err
		}
		return writeOutput(out)
	}

	msg, err := protocol.Seal(s, chatID, sender, data)
	if err != nil {
		return err
	}
	out, err := protocol.MarshalMessage(msg)
	if err != nil {
		return err
	}
	logger.Debug("Encrypted", "id", msg.ID, "len", len(msg.Payload))
	return writeOutput(append(out, '\n'))
}

func cmdDecrypt() error {
	s, err := loadSecrets()
	if err != nil {
		return err
	}
	data, err := readInput()
	if err != nil {
		return err
	}

	if raw {
		out, err := s.Decrypt(data)
		if err != nil {
			return err
		}
		return writeOutput(out)
	}

	env, err := protocol.Unmarshal(data)
	if err != nil {
		return err
	}
	if env.Type != protocol.KindMessage {
		return fmt.Errorf("%w: expected a message, got %s", protocol.ErrMalformed, env.Type)
	}
	out, err := protocol.Open(s, env.Message)
	if err != nil {
		return err
	}
	return writeOutput(out)
}

// cmdDH prints our key exchange envelope, reads the peer's envelope from
// the input and prints the agreed key.
func cmdDH() error {
	g, err := dh.GroupByName(cfg.DH.Group)
	if err != nil {
		return err
	}
	party, err := g.NewParty()
	if err != nil {
		return err
	}
	ours, err := protocol.MarshalKeyExchange(protocol.NewKeyExchange(chatID, sender, g, party))
	if err != nil {
		return err
	}
	fmt.Println(string(ours))
	fmt.Fprintln(os.Stderr, "Paste the peer's key exchange line:")

	in, err := openInput()
	if err != nil {
		return err
	}
	defer in.Close()
	line, err := bufio.NewReader(in).ReadBytes('\n')
	if err != nil && (err != io.EOF || len(line) == 0) {
		return err
	}
	env, err := protocol.Unmarshal(line)
	if err != nil {
		return err
	}
	if env.Type != protocol.KindKeyExchange {
		return fmt.Errorf("%w: expected a key exchange, got %s", protocol.ErrMalformed, env.Type)
	}
	secret, err := env.KeyExchange.Agree(g, party)
	if err != nil {
		return err
	}

	logger.Info("Shared secret computed", "group", g.Name, "fingerprint", dh.Fingerprint(secret))
	return writeOutput([]byte(fmt.Sprintf("fingerprint: %s\nkey: %s\n",
		dh.Fingerprint(secret), hex.EncodeToString(secret))))
}
