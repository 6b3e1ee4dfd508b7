// Package credentials stores account passwords in an encrypted file
// beside the config. The encryption key is derived from stable
// machine-local facts, so the file is useless when copied elsewhere
// while staying readable here without a passphrase.
package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	fileName = ".credentials"
	keySalt  = "tidings-credentials-v1"
)

var ErrNotFound = errors.New("credential not found")

// Store is an encrypted name-to-secret map persisted as JSON. Values
// are AES-256-GCM sealed with a fresh random nonce prepended to each
// ciphertext.
type Store struct {
	path string
	key  [32]byte
}

func NewStore(dir string) *Store {
	return &Store{
		path: filepath.Join(dir, fileName),
		key:  deriveKey(),
	}
}

func deriveKey() [32]byte {
	user := os.Getenv("USER")
	if user == "" {
		user = os.Getenv("USERNAME")
	}
	home, _ := os.UserHomeDir()
	return sha256.Sum256([]byte(user + "\x00" + home + "\x00" + keySalt))
}

// Set stores one secret under the given name.
func (s *Store) Set(name, secret string) error {
	all, err := s.load()
	if err != nil {
		return err
	}
	sealed, err := s.seal([]byte(secret))
	if err != nil {
		return err
	}
	all[name] = sealed
	return s.save(all)
}

// Get returns the secret stored under the given name.
func (s *Store) Get(name string) (string, error) {
	all, err := s.load()
	if err != nil {
		return "", err
	}
	sealed, ok := all[name]
	if !ok {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	plain, err := s.open(sealed)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// Delete removes one secret. Deleting an absent name is a no-op.
func (s *Store) Delete(name string) error {
	all, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := all[name]; !ok {
		return nil
	}
	delete(all, name)
	return s.save(all)
}

func (s *Store) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var all map[string]string
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	if all == nil {
		all = map[string]string{}
	}
	return all, nil
}

func (s *Store) save(all map[string]string) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

func (s *Store) seal(plain []byte) (string, error) {
	block, err := aes.NewCipher(s.key[:])
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, plain, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *Store) open(sealed string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return nil, fmt.Errorf("decode credential: %w", err)
	}
	block, err := aes.NewCipher(s.key[:])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(raw) < gcm.NonceSize() {
		return nil, errors.New("credential data truncated")
	}
	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt credential: %w", err)
	}
	return plain, nil
}
