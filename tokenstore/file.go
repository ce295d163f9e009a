package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const tokenFileExt = ".token"

// FileStore 基于文件的令牌存储：<dir>/<name>.token
type FileStore struct {
	dir    string
	mu     sync.Mutex
	closed bool
}

// NewFileStore 创建文件存储，目录不存在时自动创建
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = ".npc-tokens"
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create token directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(name string) (string, error) {
	key, err := keyFor(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, key+tokenFileExt), nil
}

// Load 实现 Store.Load
func (s *FileStore) Load(_ context.Context, name string) (string, error) {
	p, err := s.path(name)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrStoreClosed
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	tok := strings.TrimSpace(string(data))
	if tok == "" {
		return "", ErrNotFound
	}
	return tok, nil
}

// Save 实现 Store.Save：先写临时文件再原子重命名
func (s *FileStore) Save(_ context.Context, name, token string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	tempPath := p + ".tmp"
	if err := os.WriteFile(tempPath, []byte(token), 0o600); err != nil {
		return err
	}
	return os.Rename(tempPath, p)
}

// Delete 实现 Store.Delete
func (s *FileStore) Delete(_ context.Context, name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Close 实现 Store.Close
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
