package blobstore

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrInjected is the default error produced by a FaultyStore.
var ErrInjected = errors.New("injected blobstore fault")

// FaultyStore wraps a BlobStore and injects write failures. It exists so
// tests can verify commit atomicity: a Put that fails midway must leave the
// previous generation fully intact.
type FaultyStore struct {
	BlobStore

	mu         sync.Mutex
	err        error
	failPrefix string // fail Puts whose name has this prefix; "" fails all
	remaining  int    // Puts to allow before failing; -1 disables injection
}

// NewFaultyStore wraps inner with fault injection disabled.
func NewFaultyStore(inner BlobStore) *FaultyStore {
	return &FaultyStore{BlobStore: inner, err: ErrInjected, remaining: -1}
}

// FailPutsAfter arms the store: the next n Puts matching prefix succeed,
// every later one fails with err (ErrInjected when err is nil).
func (s *FaultyStore) FailPutsAfter(n int, prefix string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remaining = n
	s.failPrefix = prefix
	if err != nil {
		s.err = err
	}
}

// Disarm turns fault injection off.
func (s *FaultyStore) Disarm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remaining = -1
}

// Put fails once the configured budget is used up.
func (s *FaultyStore) Put(ctx context.Context, name string, data []byte) error {
	s.mu.Lock()
	armed := s.remaining >= 0 && strings.HasPrefix(name, s.failPrefix)
	if armed {
		if s.remaining == 0 {
			err := s.err
			s.mu.Unlock()
			return err
		}
		s.remaining--
	}
	s.mu.Unlock()
	return s.BlobStore.Put(ctx, name, data)
}
