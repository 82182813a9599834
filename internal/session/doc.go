// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session manages the message log of the active chat against the
// remote chat service.
//
// The Controller owns the ordered log and reconciles it with the service:
// user messages are appended optimistically and confirmed when the answer
// arrives, bookmark flips are applied immediately and reverted if the
// service rejects them, and every new answer is handed to a reveal.Registry
// for the typewriter effect.
//
// # Concurrency
//
// Controller methods are safe to call from any goroutine. Blocking calls
// (Send, Regenerate, LoadChat, ListChats, DeleteChat) are meant to run off
// the UI loop, e.g. inside a tea.Cmd. At most one send, regenerate or load
// is in flight; a second one is rejected with ErrBusy rather than queued.
// NewChat abandons the in-flight request and its late response is dropped.
//
// # Key Types
//
//   - Controller: the session state machine
//   - Service: the five chat service operations (implemented by chatapi.Client)
//   - Listener: change, reveal and auth notifications for the presentation layer
//
// # Usage
//
//	ctrl := session.New(session.Options{Service: client, Credentials: tokens})
//	answer, err := ctrl.Send(ctx, "What does the Quran say about patience?")
//	visible := ctrl.Visible(answer.ID, answer.Content)
package session
