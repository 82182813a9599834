// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reveal

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"
)

// Defaults used when Config leaves a field zero.
const (
	DefaultChunkSize = 3
	DefaultInterval  = 20 * time.Millisecond
)

// Config controls how registry reveals are paced.
type Config struct {
	Enabled   bool
	ChunkSize int
	Interval  time.Duration
}

// DefaultConfig returns an enabled configuration with the default pace.
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		ChunkSize: DefaultChunkSize,
		Interval:  DefaultInterval,
	}
}

// Listener receives notifications for every reveal in a registry.
type Listener interface {
	RevealTick(id string, revealed int)
	RevealComplete(id string)
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry owns one Scheduler per message id. Starting a reveal for an id
// cancels the previous scheduler for that id first.
type Registry struct {
	mu       sync.Mutex
	cfg      Config
	active   map[string]*Scheduler
	listener Listener
}

// NewRegistry creates a registry. listener may be nil.
func NewRegistry(cfg Config, listener Listener) *Registry {
	if cfg.ChunkSize < 1 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Registry{
		cfg:      cfg,
		active:   make(map[string]*Scheduler),
		listener: listener,
	}
}

// Config returns the effective configuration.
func (r *Registry) Config() Config {
	return r.cfg
}

// Start reveals content for message id. When reveals are disabled the
// reveal completes immediately.
func (r *Registry) Start(id, content string) *Scheduler {
	return r.StartAnimated(id, content, r.cfg.Enabled)
}

// StartAnimated is Start with an explicit animate flag.
func (r *Registry) StartAnimated(id, content string, animate bool) *Scheduler {
	var s *Scheduler
	s = NewScheduler(Callbacks{
		OnTick: func(revealed int) {
			if r.listener != nil {
				r.listener.RevealTick(id, revealed)
			}
		},
		OnComplete: func() {
			r.remove(id, s)
			if r.listener != nil {
				r.listener.RevealComplete(id)
			}
		},
	})

	r.mu.Lock()
	if old, ok := r.active[id]; ok {
		old.Cancel()
	}
	r.active[id] = s
	r.mu.Unlock()

	s.Start(utf8.RuneCountInString(content), r.cfg.ChunkSize, animate)
	return s
}

// SetContent updates the target of a running reveal when content grows.
func (r *Registry) SetContent(id, content string) {
	if s := r.get(id); s != nil {
		s.SetTarget(utf8.RuneCountInString(content))
	}
}

// Cancel stops the reveal for id, if any.
func (r *Registry) Cancel(id string) {
	r.mu.Lock()
	s, ok := r.active[id]
	delete(r.active, id)
	r.mu.Unlock()
	if ok {
		s.Cancel()
	}
}

// CancelAll stops every reveal. Used when the active chat changes.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	active := r.active
	r.active = make(map[string]*Scheduler)
	r.mu.Unlock()
	for _, s := range active {
		s.Cancel()
	}
}

// Tick advances every running reveal by one chunk and returns the number
// still running.
func (r *Registry) Tick() int {
	for _, s := range r.snapshot() {
		s.Tick()
	}
	return r.Active()
}

// Active returns the number of running reveals.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.active {
		if s.State() == StateRevealing {
			n++
		}
	}
	return n
}

// Revealing reports whether id has a running reveal.
func (r *Registry) Revealing(id string) bool {
	s := r.get(id)
	return s != nil && s.State() == StateRevealing
}

// Visible returns the part of content currently revealed for id. Messages
// without a running reveal are shown in full.
func (r *Registry) Visible(id, content string) string {
	s := r.get(id)
	if s == nil || s.State() != StateRevealing {
		return content
	}
	return Prefix(content, s.Revealed())
}

// Run ticks at the configured interval until no reveal is running or ctx is
// cancelled.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	for r.Active() > 0 {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Tick()
		}
	}
}

func (r *Registry) get(id string) *Scheduler {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active[id]
}

func (r *Registry) remove(id string, s *Scheduler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active[id] == s {
		delete(r.active, id)
	}
}

func (r *Registry) snapshot() []*Scheduler {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Scheduler, 0, len(r.active))
	for _, s := range r.active {
		out = append(out, s)
	}
	return out
}
