// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chats and messages.
//
// This package defines the core domain types shared by the session
// controller, the chat service client, the render pipeline, and the
// presentation layers.
//
// # Key Types
//
//   - Message: one chat turn with role, content, optional thinking, and sources
//   - Citation: a scripture or tradition reference attached to a message or
//     detected inside its text
//   - Conversation: the ordered message log of the active chat
//   - ChatSummary: a chat list entry as reported by the chat service
//   - Role: message role enumeration (user, assistant)
//
// # Usage
//
//	conv := model.NewConversation()
//	msg := conv.AppendUser("What does the text say about patience?")
//	conv.RewriteID(msg.ID, "srv-42")
//
// Messages handed out by Conversation are copies; mutations go through the
// Conversation methods so the log stays ordered.
package model
