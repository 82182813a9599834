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

type eventLog struct {
	mu       sync.Mutex
	ticks    map[string]int
	complete map[string]int
}

func newEventLog() *eventLog {
	return &eventLog{ticks: map[string]int{}, complete: map[string]int{}}
}

func (e *eventLog) RevealTick(id string, _ int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ticks[id]++
}

func (e *eventLog) RevealComplete(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.complete[id]++
}

// =============================================================================
// REGISTRY TESTS
// =============================================================================

func TestRegistry_StartReplacesScheduler(t *testing.T) {
	events := newEventLog()
	r := NewRegistry(Config{Enabled: true, ChunkSize: 2}, events)

	first := r.Start("m1", "abcdef")
	second := r.Start("m1", "abcdef")

	assert.Equal(t, StateCancelled, first.State())
	assert.Equal(t, StateRevealing, second.State())
	assert.Equal(t, 1, r.Active())

	for r.Tick() > 0 {
	}
	assert.Equal(t, 1, events.complete["m1"])
	assert.Equal(t, 3, events.ticks["m1"])
}

func TestRegistry_Visible(t *testing.T) {
	r := NewRegistry(Config{Enabled: true, ChunkSize: 4}, nil)
	r.Start("m1", "hello world")

	assert.Equal(t, "", r.Visible("m1", "hello world"))
	r.Tick()
	assert.Equal(t, "hell", r.Visible("m1", "hello world"))
	assert.Equal(t, "other", r.Visible("m2", "other"))

	for r.Tick() > 0 {
	}
	assert.Equal(t, "hello world", r.Visible("m1", "hello world"))
	assert.False(t, r.Revealing("m1"))
}

func TestRegistry_Disabled(t *testing.T) {
	events := newEventLog()
	r := NewRegistry(Config{Enabled: false}, events)

	s := r.Start("m1", "immediate")
	assert.Equal(t, StateComplete, s.State())
	assert.Equal(t, 0, r.Active())
	assert.Equal(t, 1, events.complete["m1"])
}

func TestRegistry_CancelAll(t *testing.T) {
	events := newEventLog()
	r := NewRegistry(DefaultConfig(), events)
	a := r.Start("a", "some content")
	b := r.Start("b", "more content")

	r.CancelAll()

	assert.Equal(t, StateCancelled, a.State())
	assert.Equal(t, StateCancelled, b.State())
	assert.Equal(t, 0, r.Tick())
	assert.Empty(t, events.complete)
}

func TestRegistry_SetContent(t *testing.T) {
	r := NewRegistry(Config{Enabled: true, ChunkSize: 5}, nil)
	s := r.Start("m1", "0123456789")
	r.Tick()
	r.SetContent("m1", "012")

	require.Equal(t, 3, s.Revealed())
	assert.Equal(t, 0, r.Tick())
}

func TestRegistry_Run(t *testing.T) {
	events := newEventLog()
	r := NewRegistry(Config{Enabled: true, ChunkSize: 3, Interval: time.Millisecond}, events)
	r.Start("m1", "abcdefghij")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	r.Run(ctx)

	events.mu.Lock()
	defer events.mu.Unlock()
	assert.Equal(t, 1, events.complete["m1"])
	assert.Equal(t, 4, events.ticks["m1"])
}
