// Package credstore persists the single bearer token of the client and
// notifies subscribers whenever it changes.
package credstore

import (
	"errors"
	"strings"

	"loyalty/internal/client/observe"
)

var ErrEmptyToken = errors.New("token must not be blank")

// Store is the credential store contract. An empty string delivered on a
// subscription channel means the token is absent. Subscribers receive the
// current value immediately; delivery is conflated to the latest value.
type Store interface {
	Read() (string, bool)
	Write(token string) error
	Clear() error
	Subscribe() (<-chan string, func())
}

// MemoryStore keeps the token in process memory only.
type MemoryStore struct {
	subject *observe.Subject[string]
}

func NewMemory(initial string) *MemoryStore {
	return &MemoryStore{subject: observe.NewSubject(strings.TrimSpace(initial))}
}

func (m *MemoryStore) Read() (string, bool) {
	t := m.subject.Get()
	return t, t != ""
}

func (m *MemoryStore) Write(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	m.subject.Publish(token)
	return nil
}

func (m *MemoryStore) Clear() error {
	m.subject.Publish("")
	return nil
}

func (m *MemoryStore) Subscribe() (<-chan string, func()) { return m.subject.Subscribe() }

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*FileStore)(nil)
)
