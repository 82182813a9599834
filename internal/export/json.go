// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/quranchat-tui/internal/model"
	"github.com/jeranaias/quranchat-tui/internal/render"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports chats to JSON. Each message carries its rendered
// document so consumers get blocks and spans without reimplementing the
// parser. Display options do not apply.
type JSONExporter struct {
	options *Options
}

// JSONChat is the top-level document written by JSONExporter.
type JSONChat struct {
	Generator  string        `json:"generator"`
	ExportedAt time.Time     `json:"exported_at"`
	ID         string        `json:"id,omitempty"`
	Title      string        `json:"title"`
	CreatedAt  time.Time     `json:"created_at,omitempty"`
	UpdatedAt  time.Time     `json:"updated_at,omitempty"`
	Messages   []JSONMessage `json:"messages"`
}

// JSONMessage is a message with its rendered document.
type JSONMessage struct {
	model.Message
	Document render.Document `json:"document"`
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export converts a chat to JSON.
func (e *JSONExporter) Export(chat *model.Chat) ([]byte, error) {
	msgs, err := exportable(chat)
	if err != nil {
		return nil, err
	}

	out := JSONChat{
		Generator:  "quranchat",
		ExportedAt: e.options.now().UTC(),
		ID:         chat.ID,
		Title:      chatTitle(chat, msgs),
		CreatedAt:  chatCreated(chat, msgs),
		UpdatedAt:  chat.UpdatedAt,
		Messages:   make([]JSONMessage, 0, len(msgs)),
	}
	for _, m := range msgs {
		out.Messages = append(out.Messages, JSONMessage{
			Message:  m,
			Document: e.options.renderer().Render(m.Content),
		})
	}

	return json.MarshalIndent(out, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
