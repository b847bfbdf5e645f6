package credstore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"loyalty/internal/client/observe"
	cryptohelper "loyalty/internal/shared/crypto"
)

var tokenAAD = []byte("loyalty:credential:v1")

// DefaultPath returns the per-user token location used by the CLI.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".loyalty_token")
}

// FileStore keeps the token sealed with a local vault key in a 0600 file.
type FileStore struct {
	path   string
	sealer *cryptohelper.Sealer
	log    *logrus.Entry

	mu      sync.Mutex // serializes file writes
	subject *observe.Subject[string]
}

// OpenFile loads the current token from path. A missing file means no token.
// A file that cannot be opened with key is treated as no token and logged.
func OpenFile(path string, key []byte, logger *logrus.Logger) (*FileStore, error) {
	sealer, err := cryptohelper.NewSealer(key)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	fs := &FileStore{
		path:   path,
		sealer: sealer,
		log:    logger.WithField("component", "credstore"),
	}
	fs.subject = observe.NewSubject(fs.load())
	return fs, nil
}

func (f *FileStore) load() string {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			f.log.WithError(err).Warn("read credential file")
		}
		return ""
	}
	tok, err := f.sealer.OpenString(strings.TrimSpace(string(b)), tokenAAD)
	if err != nil {
		f.log.WithError(err).Warn("credential file unreadable, ignoring")
		return ""
	}
	return tok
}

func (f *FileStore) Read() (string, bool) {
	t := f.subject.Get()
	return t, t != ""
}

func (f *FileStore) Write(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	sealed, err := f.sealer.SealString(token, tokenAAD)
	if err != nil {
		return fmt.Errorf("seal token: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(sealed), 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	f.subject.Publish(token)
	return nil
}

func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	f.subject.Publish("")
	return nil
}

func (f *FileStore) Subscribe() (<-chan string, func()) { return f.subject.Subscribe() }
