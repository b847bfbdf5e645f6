package vault

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// KeyLength defines AES-256 key size.
const KeyLength = 32

var ErrExists = errors.New("vault key already exists")

// DefaultPath returns the per-user key location used by the CLI.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".loyalty_vault_key")
}

// Exists checks if a key file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Generate creates and stores a new random key. It refuses to overwrite.
func Generate(path string) ([]byte, error) {
	if Exists(path) {
		return nil, ErrExists
	}
	key := make([]byte, KeyLength)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	if err := Save(path, key); err != nil {
		return nil, err
	}
	return key, nil
}

// Save writes key base64 encoded with 0600 perms.
func Save(path string, key []byte) error {
	if len(key) != KeyLength {
		return fmt.Errorf("invalid key length %d", len(key))
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	b64 := base64.StdEncoding.EncodeToString(key)
	return os.WriteFile(path, []byte(b64), 0o600)
}

func Load(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(b)))
	if err != nil {
		return nil, err
	}
	if len(key) != KeyLength {
		return nil, errors.New("invalid key length")
	}
	return key, nil
}

// LoadOrGenerate returns the key at path, creating one on first use.
func LoadOrGenerate(path string) ([]byte, error) {
	key, err := Load(path)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return Generate(path)
}
