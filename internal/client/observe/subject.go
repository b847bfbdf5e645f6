// Package observe provides a latest-value subject: subscribers receive the
// current value on subscription and every later value, conflated.
package observe

import "sync"

type Subject[T any] struct {
	mu      sync.Mutex
	current T
	nextID  int
	subs    map[int]chan T
	closed  bool
}

func NewSubject[T any](initial T) *Subject[T] {
	return &Subject[T]{current: initial, subs: make(map[int]chan T)}
}

func (s *Subject[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Subscribe returns a channel that already holds the current value. A
// subscriber that falls behind only sees the newest value. The cancel func
// closes the channel and is safe to call more than once.
func (s *Subject[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, 1)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ch <- s.current
		close(ch)
		return ch, func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	ch <- s.current
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// Publish replaces the current value and notifies subscribers without blocking.
func (s *Subject[T]) Publish(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.current = v
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

// Close closes every subscriber channel; later publishes are dropped.
func (s *Subject[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
