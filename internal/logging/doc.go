// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the zap logger shared by the quranchat packages.
//
// Components take a *zap.Logger and default to zap.NewNop(). The TUI always
// logs to a file so log lines never draw over the screen; line-mode commands
// may log to stderr.
package logging
