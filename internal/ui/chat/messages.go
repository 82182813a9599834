// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/quranchat-tui/internal/chatapi"
	"github.com/jeranaias/quranchat-tui/internal/model"
)

// =============================================================================
// COMMAND RESULTS
// =============================================================================

// SendDoneMsg reports the end of a send or regenerate. Draft is the text
// that was sent, empty for a regenerate.
type SendDoneMsg struct {
	Draft  string
	Answer model.Message
	Err    error
}

// ChatLoadedMsg reports the end of a chat load.
type ChatLoadedMsg struct {
	ChatID string
	Err    error
}

// ChatsListedMsg carries a fresh chat list.
type ChatsListedMsg struct {
	Chats []model.ChatSummary
	Err   error
}

// ChatDeletedMsg reports the end of a delete.
type ChatDeletedMsg struct {
	ChatID string
	Err    error
}

// VerseMsg carries the verse for the welcome screen.
type VerseMsg struct {
	Verse *chatapi.Verse
	Err   error
}

// ExportDoneMsg reports the end of an export.
type ExportDoneMsg struct {
	Path string
	Err  error
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

// AuthRequiredMsg reports that the stored credential was rejected.
type AuthRequiredMsg struct{}

// TokenChangedMsg reports a change of the credential file.
type TokenChangedMsg struct {
	OK bool
}

type logChangedMsg struct{}

type revealDoneMsg struct {
	ID string
}

type revealTickMsg struct{}

// =============================================================================
// NOTIFIER
// =============================================================================

// Notifier forwards controller notifications to a running program. It is
// created before the program and attached once the program exists; until
// then notifications are dropped.
type Notifier struct {
	mu      sync.Mutex
	program *tea.Program
}

// NewNotifier creates a detached notifier.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Attach starts forwarding to p.
func (n *Notifier) Attach(p *tea.Program) {
	n.mu.Lock()
	n.program = p
	n.mu.Unlock()
}

// Send posts msg to the program. Delivery is asynchronous: notifications are
// raised from inside Update as well, where a blocking Send would never
// return.
func (n *Notifier) Send(msg tea.Msg) {
	n.mu.Lock()
	p := n.program
	n.mu.Unlock()
	if p != nil {
		go p.Send(msg)
	}
}

// RevealTick is ignored; the view redraws on its own tick.
func (n *Notifier) RevealTick(string, int) {}

// RevealComplete implements reveal.Listener.
func (n *Notifier) RevealComplete(id string) { n.Send(revealDoneMsg{ID: id}) }

// LogChanged implements session.Listener.
func (n *Notifier) LogChanged() { n.Send(logChangedMsg{}) }

// AuthRequired implements session.Listener.
func (n *Notifier) AuthRequired() { n.Send(AuthRequiredMsg{}) }
