// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credentials

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreMissingFile(t *testing.T) {
	s := NewStore(Options{Path: filepath.Join(t.TempDir(), "token")})
	tok, ok := s.Token()
	assert.False(t, ok)
	assert.Empty(t, tok)
}

func TestStoreSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")
	s := NewStore(Options{Path: path})

	require.NoError(t, s.Save("  abc123 \n"))
	tok, ok := s.Token()
	assert.True(t, ok)
	assert.Equal(t, "abc123", tok)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	again := NewStore(Options{Path: path})
	tok, ok = again.Token()
	assert.True(t, ok)
	assert.Equal(t, "abc123", tok)
}

func TestStoreSaveEmpty(t *testing.T) {
	s := NewStore(Options{Path: filepath.Join(t.TempDir(), "token")})
	assert.ErrorIs(t, s.Save("   "), ErrEmptyToken)
}

func TestStoreOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	require.NoError(t, os.WriteFile(path, []byte("from-file"), 0600))

	s := NewStore(Options{Path: path, Override: "from-env"})
	tok, _ := s.Token()
	assert.Equal(t, "from-env", tok)

	require.NoError(t, s.Clear())
	_, ok := s.Token()
	assert.False(t, ok)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestStoreClearWithoutFile(t *testing.T) {
	s := NewStore(Options{Path: filepath.Join(t.TempDir(), "token")})
	assert.NoError(t, s.Clear())
}

func TestWatchPicksUpNewToken(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token")
	s := NewStore(Options{Path: path})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, func(token string, ok bool) {
			if ok {
				got <- token
			}
		})
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	writer := NewStore(Options{Path: path})
	require.NoError(t, writer.Save("fresh"))

	select {
	case tok := <-got:
		assert.Equal(t, "fresh", tok)
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not report the new token")
	}

	tok, ok := s.Token()
	assert.True(t, ok)
	assert.Equal(t, "fresh", tok)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop")
	}
}
