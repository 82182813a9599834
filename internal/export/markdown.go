// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/quranchat-tui/internal/model"
	"github.com/jeranaias/quranchat-tui/internal/render"
	"github.com/jeranaias/quranchat-tui/internal/util"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports chats to Markdown. Script blocks become block
// quotes and citations are set in bold and collected under each answer.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a chat to Markdown.
func (e *MarkdownExporter) Export(chat *model.Chat) ([]byte, error) {
	msgs, err := exportable(chat)
	if err != nil {
		return nil, err
	}
	now := e.options.now()
	title := chatTitle(chat, msgs)

	var sb strings.Builder

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "title: %s\n", escapeYAML(title))
		if chat.ID != "" {
			fmt.Fprintf(&sb, "chat_id: %s\n", escapeYAML(chat.ID))
		}
		if created := chatCreated(chat, msgs); !created.IsZero() {
			fmt.Fprintf(&sb, "date: %s\n", created.Format(time.RFC3339))
		}
		fmt.Fprintf(&sb, "messages: %d\n", len(msgs))
		fmt.Fprintf(&sb, "exported: %s\n", now.Format(time.RFC3339))
		sb.WriteString("generator: quranchat\n")
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(util.SingleLine(title)))

	for i, msg := range msgs {
		label := roleLabel(msg.Role)
		if msg.Bookmarked {
			label += " (bookmarked)"
		}
		if e.options.IncludeTimestamps && !msg.CreatedAt.IsZero() {
			fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n", label, formatShortTimestamp(msg.CreatedAt))
		} else {
			fmt.Fprintf(&sb, "### %s\n\n", label)
		}

		if e.options.IncludeThinking && msg.Thinking != "" {
			sb.WriteString("<details><summary>Reasoning</summary>\n\n")
			sb.WriteString(strings.TrimSpace(msg.Thinking))
			sb.WriteString("\n\n</details>\n\n")
		}

		doc := e.options.renderer().Render(msg.Content)
		sb.WriteString(markdownDocument(doc))
		sb.WriteString("\n\n")

		if sources := messageSources(msg, doc); len(sources) > 0 {
			sb.WriteString("**Sources**\n\n")
			for _, c := range sources {
				fmt.Fprintf(&sb, "- %s\n", c.String())
			}
			sb.WriteString("\n")
		}

		if i < len(msgs)-1 {
			sb.WriteString("---\n\n")
		}
	}

	sb.WriteString("\n---\n\n")
	fmt.Fprintf(&sb, "*Exported from quranchat on %s*\n", now.Format("January 2, 2006 at 3:04 PM"))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// markdownDocument writes a rendered document back out as Markdown.
func markdownDocument(doc render.Document) string {
	parts := make([]string, 0, len(doc.Blocks))
	for _, b := range doc.Blocks {
		if b.Kind == render.BlockScript {
			parts = append(parts, "> "+b.Text)
			continue
		}
		var sb strings.Builder
		for _, s := range b.Spans {
			switch s.Kind {
			case render.SpanCitation:
				sb.WriteString("**" + s.Inner + "**")
			default:
				// Markers are kept as written.
				sb.WriteString(s.Text)
			}
		}
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, "\n\n")
}

// messageSources merges the sources the service returned with citations
// found in the text, keeping the service order first.
func messageSources(msg model.Message, doc render.Document) []model.Citation {
	var out []model.Citation
	seen := make(map[string]bool)
	for _, c := range append(append([]model.Citation(nil), msg.Sources...), doc.Citations()...) {
		if seen[c.Key()] {
			continue
		}
		seen[c.Key()] = true
		out = append(out, c)
	}
	return out
}

func roleLabel(role model.Role) string {
	switch role {
	case model.RoleUser:
		return "Question"
	case model.RoleAssistant:
		return "Answer"
	case "":
		return "Unknown"
	default:
		return role.DisplayName()
	}
}

func chatTitle(chat *model.Chat, msgs []model.Message) string {
	if strings.TrimSpace(chat.Title) != "" {
		return chat.Title
	}
	for _, m := range msgs {
		if m.Role == model.RoleUser {
			return model.AutoTitle(m.Content)
		}
	}
	return "Chat"
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that would break formatting in headings.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer("#", `\#`, "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`)
	return r.Replace(s)
}

// escapeYAML quotes a front matter value when it contains special characters.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return "\"" + s + "\""
	}
	return s
}
