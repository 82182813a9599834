// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the Bubble Tea chat view.

The view is a thin shell around a session.Controller: key presses become
controller calls run as tea.Cmds, and controller notifications arrive back
as messages through a Notifier. All chat state lives in the controller; the
model only keeps view state (selection, scroll position, overlays).

# Modes

  - chat: message log, input line and status bar
  - list: the chat list (Ctrl+L), Enter opens, d deletes, Esc closes
  - help: key reference rendered with glamour (F1)

# Reveal

Assistant answers are revealed a few runes per tick. The model drives the
controller's reveal registry with tea.Tick while any reveal is running and
renders only the visible prefix of each message.

# Usage

	notifier := chat.NewNotifier()
	ctrl := session.New(session.Options{Listener: notifier, ...})
	m := chat.New(ctrl, theme, chat.Options{...})
	p := tea.NewProgram(m, tea.WithAltScreen())
	notifier.Attach(p)
	_, err := p.Run()
*/
package chat
