// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"

	"github.com/jeranaias/quranchat-tui/internal/model"
	"github.com/jeranaias/quranchat-tui/internal/render"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports chats to a standalone HTML page with embedded CSS.
// Script blocks are set right-to-left and citations become chips.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

// Export converts a chat to HTML.
func (e *HTMLExporter) Export(chat *model.Chat) ([]byte, error) {
	msgs, err := exportable(chat)
	if err != nil {
		return nil, err
	}
	title := chatTitle(chat, msgs)
	theme := e.options.Theme
	if theme != "light" {
		theme = "dark"
	}

	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "    <title>%s</title>\n", html.EscapeString(title))
	sb.WriteString("    <meta name=\"generator\" content=\"quranchat\">\n")
	sb.WriteString(htmlCSS)
	sb.WriteString("</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s-theme\">\n", theme)
	sb.WriteString("    <div class=\"container\">\n")

	sb.WriteString("        <header class=\"header\">\n")
	fmt.Fprintf(&sb, "            <h1>%s</h1>\n", html.EscapeString(title))
	if e.options.IncludeMetadata {
		sb.WriteString("            <div class=\"metadata\">\n")
		if created := chatCreated(chat, msgs); !created.IsZero() {
			fmt.Fprintf(&sb, "                <span class=\"meta-item\">Created: %s</span>\n", formatTimestamp(created))
		}
		fmt.Fprintf(&sb, "                <span class=\"meta-item\">Messages: %d</span>\n", len(msgs))
		sb.WriteString("            </div>\n")
	}
	sb.WriteString("        </header>\n")

	sb.WriteString("        <main class=\"chat\">\n")
	for _, msg := range msgs {
		sb.WriteString(e.renderMessage(msg))
	}
	sb.WriteString("        </main>\n")

	sb.WriteString("        <footer class=\"footer\">\n")
	fmt.Fprintf(&sb, "            <p>Exported from <strong>quranchat</strong> on %s</p>\n",
		e.options.now().Format("January 2, 2006 at 3:04 PM"))
	sb.WriteString("        </footer>\n")
	sb.WriteString("    </div>\n</body>\n</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

func (e *HTMLExporter) renderMessage(msg model.Message) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "            <div class=\"message %s-message\">\n", msg.Role)
	sb.WriteString("                <div class=\"message-header\">\n")
	fmt.Fprintf(&sb, "                    <span class=\"role-label\">%s</span>\n", html.EscapeString(roleLabel(msg.Role)))
	if msg.Bookmarked {
		sb.WriteString("                    <span class=\"bookmark\" title=\"Bookmarked\">&#9733;</span>\n")
	}
	if e.options.IncludeTimestamps && !msg.CreatedAt.IsZero() {
		fmt.Fprintf(&sb, "                    <span class=\"timestamp\">%s</span>\n", formatShortTimestamp(msg.CreatedAt))
	}
	sb.WriteString("                </div>\n")

	if e.options.IncludeThinking && msg.Thinking != "" {
		fmt.Fprintf(&sb, "                <details class=\"thinking\"><summary>Reasoning</summary><p>%s</p></details>\n",
			paragraphs(html.EscapeString(strings.TrimSpace(msg.Thinking))))
	}

	doc := e.options.renderer().Render(msg.Content)
	sb.WriteString("                <div class=\"message-content\">\n")
	sb.WriteString(htmlDocument(doc))
	sb.WriteString("                </div>\n")

	if sources := messageSources(msg, doc); len(sources) > 0 {
		sb.WriteString("                <div class=\"sources\">\n")
		for _, c := range sources {
			fmt.Fprintf(&sb, "                    <span class=\"chip %s\">%s</span>\n", c.Kind, html.EscapeString(c.String()))
		}
		sb.WriteString("                </div>\n")
	}

	sb.WriteString("            </div>\n")
	return sb.String()
}

// htmlDocument renders blocks and spans. All text is escaped; only the tags
// written here reach the output.
func htmlDocument(doc render.Document) string {
	var sb strings.Builder
	for _, b := range doc.Blocks {
		if b.Kind == render.BlockScript {
			fmt.Fprintf(&sb, "                    <p class=\"script\" dir=\"rtl\" lang=\"ar\">%s</p>\n", html.EscapeString(b.Text))
			continue
		}
		sb.WriteString("                    <p>")
		for _, s := range b.Spans {
			inner := html.EscapeString(s.Inner)
			switch s.Kind {
			case render.SpanStrong:
				sb.WriteString("<strong>" + inner + "</strong>")
			case render.SpanEmphasis:
				if s.ImpliedQuote {
					sb.WriteString("<em>&ldquo;" + inner + "&rdquo;</em>")
				} else {
					sb.WriteString("<em>" + inner + "</em>")
				}
			case render.SpanCitation:
				sb.WriteString("<span class=\"citation\">" + inner + "</span>")
			case render.SpanScript:
				if s.Inline {
					sb.WriteString("<span class=\"script\" dir=\"rtl\" lang=\"ar\">" + inner + "</span>")
				} else {
					sb.WriteString("</p>\n                    <p class=\"script\" dir=\"rtl\" lang=\"ar\">" + inner + "</p>\n                    <p>")
				}
			default:
				sb.WriteString(paragraphs(html.EscapeString(s.Text)))
			}
		}
		sb.WriteString("</p>\n")
	}
	return sb.String()
}

// paragraphs turns newlines of escaped text into line breaks.
func paragraphs(s string) string {
	s = strings.ReplaceAll(s, "\n\n", "</p><p>")
	return strings.ReplaceAll(s, "\n", "<br>")
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

const htmlCSS = `    <style>
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; line-height: 1.6; }
        .dark-theme { background: #1a1b26; color: #c0caf5; }
        .light-theme { background: #f7f7f5; color: #1f2328; }
        .container { max-width: 860px; margin: 0 auto; padding: 2rem 1rem; }
        .header h1 { font-size: 1.6rem; margin-bottom: .5rem; }
        .metadata { font-size: .85rem; opacity: .7; display: flex; gap: 1rem; }
        .message { margin: 1.5rem 0; padding: 1rem 1.25rem; border-radius: 10px; }
        .user-message { background: rgba(122, 162, 247, .12); }
        .assistant-message { background: rgba(158, 206, 106, .08); }
        .message-header { display: flex; gap: .75rem; align-items: baseline; margin-bottom: .5rem; }
        .role-label { font-weight: 600; }
        .timestamp { font-size: .8rem; opacity: .6; }
        .bookmark { color: #e0af68; }
        .message-content p { margin: .5rem 0; }
        .script { font-family: "Amiri", "Scheherazade New", serif; font-size: 1.35rem; text-align: right; }
        span.script { font-size: 1.15rem; }
        .citation { font-weight: 600; color: #2ac3de; }
        .sources { margin-top: .75rem; display: flex; flex-wrap: wrap; gap: .5rem; }
        .chip { font-size: .8rem; padding: .15rem .6rem; border-radius: 999px; border: 1px solid currentColor; }
        .chip.scripture { color: #9ece6a; }
        .chip.tradition { color: #e0af68; }
        .thinking { font-size: .9rem; opacity: .8; margin-bottom: .5rem; }
        .footer { margin-top: 2rem; font-size: .8rem; opacity: .6; text-align: center; }
    </style>
`
