// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reveal

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// STATE
// =============================================================================

// State is the lifecycle state of a Scheduler.
type State int

const (
	StateIdle State = iota
	StateRevealing
	StateComplete
	StateCancelled
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRevealing:
		return "revealing"
	case StateComplete:
		return "complete"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further ticks will happen.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateCancelled
}

// =============================================================================
// SCHEDULER
// =============================================================================

// Callbacks receive scheduler notifications. They are called without the
// scheduler lock held and may call back into the scheduler.
type Callbacks struct {
	OnTick     func(revealed int)
	OnComplete func()
}

// Scheduler advances a revealed length toward a target length.
type Scheduler struct {
	mu       sync.Mutex
	state    State
	target   int
	revealed int
	chunk    int
	cb       Callbacks
}

// NewScheduler creates an idle scheduler.
func NewScheduler(cb Callbacks) *Scheduler {
	return &Scheduler{cb: cb}
}

// Start begins a reveal of target runes, chunk runes per tick. With animate
// false, or when the target is already reached, the reveal completes
// synchronously without a tick. Start is ignored once the scheduler has
// completed or been cancelled and reports whether it took effect.
func (s *Scheduler) Start(target, chunk int, animate bool) bool {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return false
	}
	if target < 0 {
		target = 0
	}
	if chunk < 1 {
		chunk = 1
	}
	s.target = target
	s.chunk = chunk
	if s.revealed > target {
		s.revealed = target
	}

	if !animate || s.revealed >= target {
		s.revealed = target
		s.state = StateComplete
		s.mu.Unlock()
		s.notifyComplete()
		return true
	}

	s.state = StateRevealing
	s.mu.Unlock()
	return true
}

// Tick advances the reveal by one chunk. It returns true while more ticks
// are needed.
func (s *Scheduler) Tick() bool {
	s.mu.Lock()
	if s.state != StateRevealing {
		s.mu.Unlock()
		return false
	}
	s.revealed += s.chunk
	if s.revealed > s.target {
		s.revealed = s.target
	}
	revealed := s.revealed
	done := s.revealed >= s.target
	if done {
		s.state = StateComplete
	}
	s.mu.Unlock()

	if s.cb.OnTick != nil {
		s.cb.OnTick(revealed)
	}
	if done {
		s.notifyComplete()
	}
	return !done
}

// SetTarget changes the target length. While revealing, the revealed length
// is clamped to the new target and ticking continues. After completion the
// whole new target is shown without further notifications.
func (s *Scheduler) SetTarget(target int) {
	if target < 0 {
		target = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateIdle, StateRevealing:
		s.target = target
		if s.revealed > target {
			s.revealed = target
		}
	case StateComplete:
		s.target = target
		s.revealed = target
	}
}

// Cancel stops the reveal without a completion notification. It is valid
// from idle or revealing and reports whether it took effect.
func (s *Scheduler) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return false
	}
	s.state = StateCancelled
	return true
}

// Run ticks every interval until the reveal ends or ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if s.State() != StateRevealing {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.Tick() {
				return
			}
		}
	}
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Revealed returns the revealed length.
func (s *Scheduler) Revealed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revealed
}

// Target returns the target length.
func (s *Scheduler) Target() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target
}

func (s *Scheduler) notifyComplete() {
	if s.cb.OnComplete != nil {
		s.cb.OnComplete()
	}
}

// Prefix returns the first n runes of content.
func Prefix(content string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range content {
		if i == n {
			return content[:pos]
		}
		i++
	}
	return content
}
