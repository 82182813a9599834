// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chats to files in Markdown, HTML or JSON.
//
// Every exporter runs message content through the render pipeline, so
// script blocks, emphasis and citations come out the same way they are shown
// in the terminal. Synthetic connectivity notices are never exported.
//
// # Key Types
//
//   - Exporter: the interface each format implements
//   - Options: export configuration
//
// # Usage
//
//	exp, err := export.ForFormat("markdown", opts)
//	path, err := export.ExportToFile(&chat, exp, opts)
package export
