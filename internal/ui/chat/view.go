// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/quranchat-tui/internal/util"
)

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	bodyHeight := m.viewport.Height
	var body string
	switch m.mode {
	case modeList:
		body = m.renderChatList()
	case modeHelp:
		body = m.helpView
	default:
		body = m.viewport.View()
	}
	if m.mode != modeChat {
		body = lipgloss.NewStyle().Height(bodyHeight).MaxHeight(bodyHeight).Render(body)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.theme.InputContainer.Width(m.width).Render(m.input.View()),
		m.renderStatus(),
	)
}

func (m Model) renderHeader() string {
	title := m.ctrl.Title()
	if title == "" {
		title = "New chat"
	}
	brand := m.theme.Header.Render("quranchat")
	rest := util.TruncateWidth(util.SingleLine(title), max(m.width-lipgloss.Width(brand)-2, 0))
	return brand + " " + m.theme.HeaderTitle.Render(rest)
}

func (m Model) renderStatus() string {
	var left string
	switch {
	case m.ctrl.Busy():
		left = m.spinner.View() + " " + m.theme.StatusBusy.Render("Thinking...")
	case m.status != "" && m.statusErr:
		left = m.theme.StatusError.Render(m.status)
	case m.status != "":
		left = m.status
	default:
		left = m.help.View(m.keys)
	}
	return m.theme.StatusBar.Width(m.width).MaxHeight(1).Render(util.TruncateWidth(left, max(m.width-2, 0)))
}

// =============================================================================
// HELP
// =============================================================================

// helpMarkdown builds the key reference shown in the help overlay.
func helpMarkdown(k KeyMap) string {
	var sb strings.Builder
	sb.WriteString("# quranchat\n\n")
	sb.WriteString("Ask questions and get answers grounded in the Quran and hadith collections. ")
	sb.WriteString("References such as *Surah Al-Baqarah (2:153)* or *Sahih Bukhari #1* are highlighted ")
	sb.WriteString("and listed as sources under each answer.\n\n")
	sb.WriteString("| Key | Action |\n|-----|--------|\n")
	for _, group := range k.FullHelp() {
		for _, b := range group {
			h := b.Help()
			fmt.Fprintf(&sb, "| `%s` | %s |\n", h.Key, h.Desc)
		}
	}
	sb.WriteString("\nIn the chat list, use `up`/`down` or `k`/`j` to move.\n")
	return sb.String()
}

// renderHelp renders the help overlay with glamour, falling back to the raw
// markdown when the renderer cannot be built.
func renderHelp(k KeyMap, dark bool, width int) string {
	md := helpMarkdown(k)
	style := "light"
	if dark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(max(width-4, 20)),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

