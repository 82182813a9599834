// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credentials

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces the bursts of events produced by an atomic
// rename into one reload.
const DefaultDebounce = 100 * time.Millisecond

// Watch reloads the token whenever the token file changes and calls onChange
// with the new state. It blocks until ctx is cancelled.
//
// The parent directory is watched rather than the file so that the file can
// be created, replaced by rename, or removed.
func (s *Store) Watch(ctx context.Context, onChange func(token string, ok bool)) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	name := filepath.Clean(s.path)
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			timer.Reset(DefaultDebounce)

		case <-timer.C:
			if err := s.Load(); err != nil {
				s.logger.Warn("token reload failed", zap.Error(err))
				continue
			}
			token, ok := s.Token()
			s.logger.Debug("token file changed", zap.Bool("present", ok))
			if onChange != nil {
				onChange(token, ok)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("token watcher error", zap.Error(err))
		}
	}
}
