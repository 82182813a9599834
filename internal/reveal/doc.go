// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reveal implements progressive ("typewriter") disclosure of message
// text.
//
// A Scheduler grows a revealed prefix length toward a target in fixed chunks,
// one chunk per tick. A Registry keeps at most one Scheduler per message id
// and cancels the old one whenever a reveal is restarted, so no ticker fires
// for a message that is no longer displayed.
//
// Ticks can be driven by the caller (the TUI uses tea.Tick) or by Run, which
// uses a time.Ticker until the context is cancelled or the reveal finishes.
// Lengths are counted in runes.
package reveal
