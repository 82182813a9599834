// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reveal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu        sync.Mutex
	ticks     []int
	completed int
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnTick: func(n int) {
			r.mu.Lock()
			r.ticks = append(r.ticks, n)
			r.mu.Unlock()
		},
		OnComplete: func() {
			r.mu.Lock()
			r.completed++
			r.mu.Unlock()
		},
	}
}

// =============================================================================
// SCHEDULER TESTS
// =============================================================================

func TestScheduler_TicksToTarget(t *testing.T) {
	rec := &recorder{}
	s := NewScheduler(rec.callbacks())

	require.True(t, s.Start(10, 3, true))
	assert.Equal(t, StateRevealing, s.State())

	for s.Tick() {
	}
	s.Tick()

	assert.Equal(t, []int{3, 6, 9, 10}, rec.ticks)
	assert.Equal(t, 1, rec.completed)
	assert.Equal(t, StateComplete, s.State())
	assert.Equal(t, 10, s.Revealed())
}

func TestScheduler_CancelSuppressesCompletion(t *testing.T) {
	rec := &recorder{}
	s := NewScheduler(rec.callbacks())
	s.Start(10, 3, true)

	s.Tick()
	s.Tick()
	require.True(t, s.Cancel())

	assert.False(t, s.Tick())
	assert.Equal(t, StateCancelled, s.State())
	assert.Equal(t, 0, rec.completed)
	assert.Equal(t, []int{3, 6}, rec.ticks)
	assert.False(t, s.Cancel(), "cancel is not valid twice")
}

func TestScheduler_CancelFromIdle(t *testing.T) {
	s := NewScheduler(Callbacks{})
	assert.True(t, s.Cancel())
	assert.False(t, s.Start(5, 1, true))
	assert.Equal(t, StateCancelled, s.State())
}

func TestScheduler_NoAnimation(t *testing.T) {
	rec := &recorder{}
	s := NewScheduler(rec.callbacks())

	s.Start(42, 3, false)

	assert.Equal(t, StateComplete, s.State())
	assert.Equal(t, 42, s.Revealed())
	assert.Equal(t, 1, rec.completed)
	assert.Empty(t, rec.ticks)
}

func TestScheduler_TargetAlreadySatisfied(t *testing.T) {
	rec := &recorder{}
	s := NewScheduler(rec.callbacks())

	s.Start(0, 3, true)

	assert.Equal(t, StateComplete, s.State())
	assert.Equal(t, 1, rec.completed)
}

func TestScheduler_RestartWithoutAnimation(t *testing.T) {
	rec := &recorder{}
	s := NewScheduler(rec.callbacks())
	s.Start(10, 3, true)
	s.Tick()

	s.Start(10, 3, false)

	assert.Equal(t, 10, s.Revealed())
	assert.Equal(t, 1, rec.completed)
	assert.Equal(t, []int{3}, rec.ticks)
}

func TestScheduler_SetTargetClamps(t *testing.T) {
	rec := &recorder{}
	s := NewScheduler(rec.callbacks())
	s.Start(20, 4, true)
	s.Tick()
	s.Tick() // 8

	s.SetTarget(5)
	assert.Equal(t, 5, s.Revealed())
	assert.Equal(t, StateRevealing, s.State())

	assert.False(t, s.Tick())
	assert.Equal(t, 5, s.Revealed())
	assert.Equal(t, 1, rec.completed)
}

func TestScheduler_SetTargetGrows(t *testing.T) {
	s := NewScheduler(Callbacks{})
	s.Start(4, 2, true)
	s.Tick()
	s.SetTarget(8)

	n := 0
	for s.Tick() {
		n++
	}
	assert.Equal(t, 8, s.Revealed())
	assert.Equal(t, 2, n)
}

func TestScheduler_Run(t *testing.T) {
	rec := &recorder{}
	s := NewScheduler(rec.callbacks())
	s.Start(6, 2, true)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.Run(ctx, time.Millisecond)

	assert.Equal(t, StateComplete, s.State())
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, 1, rec.completed)
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	s := NewScheduler(Callbacks{})
	s.Start(1000, 1, true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancel")
	}
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, "", Prefix("abc", 0))
	assert.Equal(t, "ab", Prefix("abc", 2))
	assert.Equal(t, "abc", Prefix("abc", 10))
	assert.Equal(t, "سل", Prefix("سلم", 2))
}
