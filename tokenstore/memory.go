package tokenstore

import (
	"context"
	"sync"
)

// MemoryStore 内存令牌存储
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]string
	closed bool
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]string)}
}

// Load 实现 Store.Load
func (s *MemoryStore) Load(_ context.Context, name string) (string, error) {
	key, err := keyFor(name)
	if err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", ErrStoreClosed
	}
	tok, ok := s.tokens[key]
	if !ok {
		return "", ErrNotFound
	}
	return tok, nil
}

// Save 实现 Store.Save
func (s *MemoryStore) Save(_ context.Context, name, token string) error {
	key, err := keyFor(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	s.tokens[key] = token
	return nil
}

// Delete 实现 Store.Delete
func (s *MemoryStore) Delete(_ context.Context, name string) error {
	key, err := keyFor(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	delete(s.tokens, key)
	return nil
}

// Close 实现 Store.Close
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
