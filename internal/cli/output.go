// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/quranchat-tui/internal/model"
	"github.com/jeranaias/quranchat-tui/internal/render"
	"github.com/jeranaias/quranchat-tui/internal/ui/chat"
	"github.com/jeranaias/quranchat-tui/internal/ui/styles"
	"github.com/jeranaias/quranchat-tui/internal/util"
)

// AnswerData is the --json payload for an answer.
type AnswerData struct {
	ChatID    string           `json:"chat_id"`
	MessageID string           `json:"message_id"`
	Response  string           `json:"response"`
	Thinking  string           `json:"thinking,omitempty"`
	Sources   []model.Citation `json:"sources"`
	Document  render.Document  `json:"document"`
}

func answerData(chatID string, msg model.Message, r *render.Renderer) AnswerData {
	sources := msg.Sources
	if sources == nil {
		sources = []model.Citation{}
	}
	return AnswerData{
		ChatID:    chatID,
		MessageID: msg.ID,
		Response:  msg.Content,
		Thinking:  msg.Thinking,
		Sources:   sources,
		Document:  r.Render(msg.Content),
	}
}

// printer writes messages for line-mode commands. On a color terminal the
// content goes through the same block layout as the chat view; otherwise the
// text is written unchanged.
type printer struct {
	w        io.Writer
	color    bool
	theme    *styles.Theme
	renderer *render.Renderer
	width    int
}

func newPrinter(w io.Writer, themeMode string, r *render.Renderer) *printer {
	p := &printer{w: w, color: ColorEnabled(w), renderer: r, width: DefaultTerminalWidth}
	if p.color {
		lipgloss.SetColorProfile(colorProfile(w))
		theme, err := styles.NewTheme(themeMode)
		if err != nil {
			theme = styles.DefaultTheme()
		}
		p.theme = theme
		p.width = GetTerminalWidth() - 2
	}
	return p
}

func (p *printer) content(text string) {
	if p.color {
		fmt.Fprintln(p.w, chat.RenderContent(p.theme, p.renderer, text, p.width))
		return
	}
	fmt.Fprintln(p.w, strings.TrimRight(text, "\n"))
}

func (p *printer) muted(format string, args ...any) {
	s := fmt.Sprintf(format, args...)
	if p.color {
		s = p.theme.Muted.Render(s)
	}
	fmt.Fprintln(p.w, s)
}

func (p *printer) notice(s string) {
	if p.color {
		s = styles.RenderWarning(s)
	}
	fmt.Fprintln(p.w, s)
}

// answer prints an assistant message with its reasoning and sources.
func (p *printer) answer(msg model.Message, showThinking bool) {
	if showThinking && strings.TrimSpace(msg.Thinking) != "" {
		p.muted("Reasoning: %s", util.SingleLine(msg.Thinking))
		fmt.Fprintln(p.w)
	}
	p.content(msg.Content)
	if len(msg.Sources) > 0 {
		labels := make([]string, 0, len(msg.Sources))
		for _, c := range msg.Sources {
			labels = append(labels, c.String())
		}
		fmt.Fprintln(p.w)
		p.muted("Sources: %s", strings.Join(labels, "; "))
	}
}

// transcript prints every message of a chat.
func (p *printer) transcript(c model.Chat, showThinking bool) {
	title := c.Title
	if title == "" {
		title = "Untitled chat"
	}
	fmt.Fprintf(p.w, "# %s (%s)\n", util.SingleLine(title), c.ID)
	for _, msg := range c.Messages {
		fmt.Fprintln(p.w)
		label := msg.Role.DisplayName()
		if msg.Bookmarked {
			label += " *"
		}
		p.muted("%s  [%s]", label, msg.ID)
		if msg.Role == model.RoleUser {
			p.content(msg.Content)
			continue
		}
		p.answer(msg, showThinking)
	}
}
