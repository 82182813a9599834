// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage keeps a local transcript archive of chats in SQLite.
//
// The archive is a copy, not a cache: the chat service stays the source of
// truth and the archive is only read for offline export and search. Every
// chat the client loads or extends is written through; deleted chats are
// removed.
//
// # Key Types
//
//   - Archive: the SQLite-backed store
//   - ChatMeta: lightweight metadata for listing
//
// # Usage
//
//	archive, err := storage.Open(path)
//	err = archive.SaveChat(ctx, chat)
//	metas, err := archive.ListChats(ctx, 20)
//	chat, err := archive.LoadChat(ctx, metas[0].ID)
//
// # Storage Location
//
// The archive lives in ~/.quranchat/archive.db unless configured otherwise.
package storage
