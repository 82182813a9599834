// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"
)

// MaxTitleRunes is the length at which titles derived from a first message
// are cut.
const MaxTitleRunes = 60

// =============================================================================
// CHAT SUMMARY
// =============================================================================

// ChatSummary is one entry of the chat list. Ordering is decided by the chat
// service and never changed on this client.
type ChatSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Chat is a full chat as returned by the chat service.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Messages  []Message `json:"messages"`
}

// AutoTitle derives a chat title from the first user message.
func AutoTitle(content string) string {
	title := strings.Join(strings.Fields(content), " ")
	runes := []rune(title)
	if len(runes) > MaxTitleRunes {
		return string(runes[:MaxTitleRunes-3]) + "..."
	}
	if title == "" {
		return "New Chat"
	}
	return title
}

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is the ordered message log of the active chat. The log is
// append-only apart from RemoveLastAssistant, RewriteID and the bookmark
// flag. Conversation is not safe for concurrent use; the session controller
// serialises access.
type Conversation struct {
	ChatID    string
	Title     string
	UpdatedAt time.Time

	messages []Message
}

// NewConversation creates an empty conversation with no chat id.
func NewConversation() *Conversation {
	return &Conversation{UpdatedAt: time.Now()}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// Append adds a message at the end of the log.
func (c *Conversation) Append(msg Message) {
	c.messages = append(c.messages, msg.Clone())
	c.UpdatedAt = time.Now()
	if c.Title == "" && msg.Role == RoleUser {
		c.Title = AutoTitle(msg.Content)
	}
}

// AppendUser creates, appends and returns an optimistic user message.
func (c *Conversation) AppendUser(content string) Message {
	msg := NewUserMessage(content)
	c.Append(msg)
	return msg
}

// Messages returns a copy of the log.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	for i, m := range c.messages {
		out[i] = m.Clone()
	}
	return out
}

// Len returns the number of messages in the log.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// IsEmpty reports whether the log has no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.messages) == 0
}

// Find returns the message with the given id.
func (c *Conversation) Find(id string) (Message, bool) {
	if i := c.indexOf(id); i >= 0 {
		return c.messages[i].Clone(), true
	}
	return Message{}, false
}

// LastUser returns the most recent user message.
func (c *Conversation) LastUser() (Message, bool) {
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == RoleUser {
			return c.messages[i].Clone(), true
		}
	}
	return Message{}, false
}

// LastAssistant returns the most recent assistant message.
func (c *Conversation) LastAssistant() (Message, bool) {
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == RoleAssistant {
			return c.messages[i].Clone(), true
		}
	}
	return Message{}, false
}

// RemoveLastAssistant removes the most recent assistant message and returns
// it. Messages after it keep their order.
func (c *Conversation) RemoveLastAssistant() (Message, bool) {
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == RoleAssistant {
			removed := c.messages[i]
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
			c.UpdatedAt = time.Now()
			return removed, true
		}
	}
	return Message{}, false
}

// RewriteID replaces a message id in place, typically a local id with the
// server-issued one. The message is marked confirmed.
func (c *Conversation) RewriteID(oldID, newID string) bool {
	i := c.indexOf(oldID)
	if i < 0 || newID == "" {
		return false
	}
	c.messages[i].ID = newID
	c.messages[i].Pending = false
	return true
}

// SetPending updates the pending flag of a message.
func (c *Conversation) SetPending(id string, pending bool) bool {
	i := c.indexOf(id)
	if i < 0 {
		return false
	}
	c.messages[i].Pending = pending
	return true
}

// SetBookmarked sets the bookmark flag of a message.
func (c *Conversation) SetBookmarked(id string, bookmarked bool) bool {
	i := c.indexOf(id)
	if i < 0 {
		return false
	}
	c.messages[i].Bookmarked = bookmarked
	return true
}

// Replace swaps the whole log for a loaded chat.
func (c *Conversation) Replace(chat Chat) {
	c.ChatID = chat.ID
	c.Title = chat.Title
	c.UpdatedAt = chat.UpdatedAt
	c.messages = make([]Message, 0, len(chat.Messages))
	for _, m := range chat.Messages {
		c.messages = append(c.messages, m.Clone())
	}
}

// Clear removes all messages and forgets the chat id.
func (c *Conversation) Clear() {
	c.ChatID = ""
	c.Title = ""
	c.messages = nil
	c.UpdatedAt = time.Now()
}

// Snapshot returns the log as a Chat value.
func (c *Conversation) Snapshot() Chat {
	return Chat{
		ID:        c.ChatID,
		Title:     c.Title,
		UpdatedAt: c.UpdatedAt,
		Messages:  c.Messages(),
	}
}

func (c *Conversation) indexOf(id string) int {
	for i := range c.messages {
		if c.messages[i].ID == id {
			return i
		}
	}
	return -1
}
