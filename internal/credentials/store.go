// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/quranchat-tui/internal/util"
)

// FileName is the token file name inside the config directory.
const FileName = "token"

// ErrEmptyToken is returned by Save for a blank token.
var ErrEmptyToken = errors.New("empty token")

// DefaultPath returns ~/.quranchat/token.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".quranchat", FileName)
	}
	return filepath.Join(home, ".quranchat", FileName)
}

// Options configures a Store.
type Options struct {
	// Path of the token file. Defaults to DefaultPath().
	Path string

	// Override is used instead of the file while set.
	Override string

	Logger *zap.Logger
}

// Store is the token accessor. It is safe for concurrent use.
type Store struct {
	path   string
	logger *zap.Logger

	mu       sync.RWMutex
	token    string
	override string
}

// NewStore creates a store and loads the token file if it exists.
func NewStore(opts Options) *Store {
	s := &Store{
		path:     opts.Path,
		override: strings.TrimSpace(opts.Override),
		logger:   opts.Logger,
	}
	if s.path == "" {
		s.path = DefaultPath()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if err := s.Load(); err != nil {
		s.logger.Warn("failed to read token file", zap.String("path", s.path), zap.Error(err))
	}
	return s
}

// Path returns the token file path.
func (s *Store) Path() string {
	return s.path
}

// Token returns the current token and whether one is available.
func (s *Store) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.override != "" {
		return s.override, true
	}
	return s.token, s.token != ""
}

// Load re-reads the token file. A missing file means no token.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.set("")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	s.set(strings.TrimSpace(string(data)))
	return nil
}

// Save writes token to the file and makes it current.
func (s *Store) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	if err := util.AtomicWriteFileWithDir(s.path, []byte(token+"\n"), 0600, 0700); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	s.mu.Lock()
	s.token = token
	s.override = ""
	s.mu.Unlock()
	return nil
}

// Clear forgets the token, including any override, and removes the file.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.override = ""
	s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

func (s *Store) set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}
