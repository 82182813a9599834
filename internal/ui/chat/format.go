// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/quranchat-tui/internal/model"
	"github.com/jeranaias/quranchat-tui/internal/render"
	"github.com/jeranaias/quranchat-tui/internal/ui/styles"
	"github.com/jeranaias/quranchat-tui/internal/util"
)

// =============================================================================
// CONTENT RENDERING
// =============================================================================

// RenderContent renders message content for the terminal: script blocks are
// right-aligned on their own lines, spans get their own styles, prose is
// wrapped to width.
func RenderContent(theme *styles.Theme, r *render.Renderer, content string, width int) string {
	if width < 10 {
		width = 10
	}
	if r == nil {
		r = render.New(render.DefaultOptions())
	}
	doc := r.Render(content)

	lines := make([]string, 0, len(doc.Blocks))
	for _, b := range doc.Blocks {
		if b.Kind == render.BlockScript {
			lines = append(lines, theme.ScriptBlock.Width(width).Align(lipgloss.Right).Render(b.Text))
			continue
		}
		var sb strings.Builder
		for _, s := range b.Spans {
			sb.WriteString(renderSpan(theme, s, width))
		}
		lines = append(lines, lipgloss.NewStyle().Width(width).Render(sb.String()))
	}
	return strings.Join(lines, "\n")
}

func renderSpan(theme *styles.Theme, s render.Span, width int) string {
	switch s.Kind {
	case render.SpanStrong:
		return theme.Strong.Render(s.Inner)
	case render.SpanEmphasis:
		if s.ImpliedQuote {
			return theme.Emphasis.Render("“" + s.Inner + "”")
		}
		return theme.Emphasis.Render(s.Inner)
	case render.SpanCitation:
		return theme.Citation.Render(s.Inner)
	case render.SpanScript:
		if s.Inline {
			return theme.ScriptInline.Render(s.Inner)
		}
		return "\n" + theme.ScriptBlock.Width(width).Align(lipgloss.Right).Render(s.Inner) + "\n"
	default:
		return s.Text
	}
}

// =============================================================================
// MESSAGE RENDERING
// =============================================================================

func (m Model) renderMessage(msg model.Message, selected bool) string {
	t := m.theme
	width := t.ContentWidth()

	var label string
	switch {
	case msg.Synthetic:
		label = t.NoticeLabel.Render("Notice")
	case msg.Role == model.RoleUser:
		label = t.UserLabel.Render(msg.Role.DisplayName())
	default:
		label = t.AssistantLabel.Render(msg.Role.DisplayName())
	}
	if msg.Bookmarked {
		label += " " + t.Bookmark.Render("★")
	}
	if msg.Pending {
		label += " " + t.Muted.Render("sending...")
	}
	if !msg.CreatedAt.IsZero() {
		label += " " + t.Timestamp.Render(msg.CreatedAt.Local().Format("15:04"))
	}

	parts := []string{label}
	if m.showThinking && msg.Thinking != "" {
		parts = append(parts, t.Thinking.Width(width).Render(msg.Thinking))
	}

	revealing := m.ctrl.Revealing(msg.ID)
	content := m.ctrl.Visible(msg.ID, msg.Content)
	if msg.Role == model.RoleUser || msg.Synthetic {
		parts = append(parts, t.MessageBody.Width(width).Render(content))
	} else {
		parts = append(parts, t.MessageBody.Render(RenderContent(t, m.renderer, content, width-2)))
	}

	if m.showSources && !revealing && len(msg.Sources) > 0 {
		chips := make([]string, 0, len(msg.Sources))
		for _, c := range msg.Sources {
			chips = append(chips, t.SourceChip.Render(c.String()))
		}
		parts = append(parts, t.MessageBody.Render(lipgloss.JoinHorizontal(lipgloss.Top, chips...)))
	}

	block := lipgloss.JoinVertical(lipgloss.Left, parts...)
	if selected {
		block = t.Selected.Render(block)
	}
	return block
}

// renderWelcome renders the empty chat: a greeting and, once it has
// arrived, the service's verse with its reference.
func (m Model) renderWelcome() string {
	t := m.theme
	greeting := t.Muted.Render("\n  Assalamu Alaikum. Ask a question to begin.\n  Press F1 for keys.")
	v := m.verse
	if v == nil {
		return greeting
	}

	width := max(t.ContentWidth()-2, 10)
	var parts []string
	if v.Arabic != "" {
		parts = append(parts, RenderContent(t, m.renderer, v.Arabic, width))
	}
	if v.Translation != "" {
		parts = append(parts, lipgloss.NewStyle().Width(width).Render(v.Translation))
	}
	ref := t.Muted.Render(v.Reference)
	if v.Citation != nil {
		ref = t.Citation.Render(v.Citation.String())
	}
	parts = append(parts, ref)
	return greeting + "\n\n" + lipgloss.NewStyle().PaddingLeft(2).Render(strings.Join(parts, "\n"))
}

// renderChatList renders the chat list overlay.
func (m Model) renderChatList() string {
	t := m.theme
	width := t.ContentWidth()

	var sb strings.Builder
	sb.WriteString(t.Header.Render("Chats") + "\n\n")
	if len(m.chats) == 0 {
		sb.WriteString(t.Muted.Render("  No chats yet.") + "\n")
		return sb.String()
	}

	active := m.ctrl.ChatID()
	for i, c := range m.chats {
		title := c.Title
		if title == "" {
			title = "Untitled"
		}
		marker := "  "
		if c.ID == active {
			marker = "* "
		}
		date := ""
		if !c.CreatedAt.IsZero() {
			date = c.CreatedAt.Local().Format("2006-01-02")
		}
		line := marker + util.PadRight(util.TruncateWidth(util.SingleLine(title), width-16), width-14) + t.ListMeta.Render(date)
		if i == m.listIndex {
			sb.WriteString(t.ListSelected.Render(line))
		} else {
			sb.WriteString(t.ListItem.Render(line))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
