// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chatapi provides the HTTP client for the chat service.
//
// The chat service answers questions with retrieved scripture and tradition
// sources and stores chats per user. This package implements its five
// operations:
//
//   - SendMessage: POST /api/chat
//   - FetchChat: GET /api/chats/{id}
//   - ListChats: GET /api/chats?limit=N
//   - DeleteChat: DELETE /api/chats/{id}
//   - ToggleBookmark: POST /api/messages/{id}/bookmark
//
// Every call carries a bearer token from a TokenSource. When no token is
// available the call fails locally with ErrNoCredential and nothing is sent.
//
// # Errors
//
// Responses are mapped to ErrUnauthorized (401, 403), ErrNotFound (404) and
// *ServiceError for everything else, including transport failures. Use
// errors.Is and errors.As to inspect them.
//
// # Usage
//
//	client := chatapi.NewClient("http://localhost:8000", store).
//	    WithLogger(logger).
//	    WithRateLimit(5, 10)
//	res, err := client.SendMessage(ctx, "What is patience?", "")
package chatapi
