// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chats and messages.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// LocalIDPrefix marks ids assigned on this client before the server has
// confirmed a message.
const LocalIDPrefix = "local-"

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a chat.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`

	// Content
	Content  string     `json:"content"`
	Thinking string     `json:"thinking,omitempty"`
	Sources  []Citation `json:"sources,omitempty"`

	Bookmarked bool `json:"is_bookmarked"`

	// Local state (not persisted by the service)
	Synthetic bool `json:"synthetic,omitempty"` // connectivity notice generated on this client
	Pending   bool `json:"-"`                   // user message awaiting its server id
}

// NewUserMessage creates a user message with a local id.
func NewUserMessage(content string) Message {
	return Message{
		ID:        NewLocalID(),
		Role:      RoleUser,
		Content:   content,
		CreatedAt: time.Now(),
		Pending:   true,
	}
}

// NewAssistantMessage creates an assistant message with a server-issued id.
func NewAssistantMessage(id, content, thinking string, sources []Citation) Message {
	return Message{
		ID:        id,
		Role:      RoleAssistant,
		Content:   content,
		Thinking:  thinking,
		Sources:   sources,
		CreatedAt: time.Now(),
	}
}

// NewSyntheticMessage creates a locally generated assistant notice. It is
// never sent to the chat service and cannot be bookmarked.
func NewSyntheticMessage(content string) Message {
	return Message{
		ID:        NewLocalID(),
		Role:      RoleAssistant,
		Content:   content,
		CreatedAt: time.Now(),
		Synthetic: true,
	}
}

// NewLocalID returns a fresh client-side message id.
func NewLocalID() string {
	return LocalIDPrefix + uuid.NewString()
}

// IsLocalID reports whether id was assigned on this client.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, LocalIDPrefix)
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// Confirmed reports whether the message carries a server-issued id.
func (m Message) Confirmed() bool {
	return !m.Synthetic && !IsLocalID(m.ID)
}

// Bookmarkable reports whether the bookmark flag can be toggled remotely.
func (m Message) Bookmarkable() bool {
	return m.Confirmed()
}

// Preview returns a truncated single-line preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m Message) Preview(maxLen int) string {
	content := strings.Join(strings.Fields(m.Content), " ")
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// IsEmpty returns true if the message has no visible content.
func (m Message) IsEmpty() bool {
	return strings.TrimSpace(m.Content) == ""
}

// Clone returns a copy that shares no slices with m.
func (m Message) Clone() Message {
	if m.Sources != nil {
		m.Sources = append([]Citation(nil), m.Sources...)
	}
	return m
}
