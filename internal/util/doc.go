// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the quranchat packages.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth, PadRight, StringWidth: terminal-column aware helpers
//     built on go-runewidth, used for chat lists and titles
//
// File Operations:
//   - AtomicWriteFileWithDir: crash-safe file writing with fsync, used for the
//     config and token files
//
// # Usage
//
//	title := util.TruncateWidth(chat.Title, 40)
//	err := util.AtomicWriteFileWithDir(path, data, 0600, 0700)
package util
