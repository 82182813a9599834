// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import "github.com/jeranaias/quranchat-tui/internal/model"

// RenderedBlock is a block together with its inline spans. Script blocks
// carry no spans.
type RenderedBlock struct {
	Block
	Spans []Span `json:"spans,omitempty"`
}

// Document is the structured form of one message.
type Document struct {
	Blocks []RenderedBlock `json:"blocks"`
}

// Render runs the full pipeline over content.
func (r *Renderer) Render(content string) Document {
	blocks := r.Segment(content)
	doc := Document{Blocks: make([]RenderedBlock, 0, len(blocks))}
	for _, b := range blocks {
		rb := RenderedBlock{Block: b}
		if b.Kind == BlockProse {
			rb.Spans = r.Tokenize(b.Text)
		}
		doc.Blocks = append(doc.Blocks, rb)
	}
	return doc
}

// Render runs the pipeline with the default options.
func Render(content string) Document {
	return defaultRenderer.Render(content)
}

// Citations returns the distinct citations of the document in order of
// first appearance.
func (d Document) Citations() []model.Citation {
	var out []model.Citation
	seen := make(map[string]bool)
	for _, b := range d.Blocks {
		for _, s := range b.Spans {
			if s.Citation == nil || seen[s.Citation.Key()] {
				continue
			}
			seen[s.Citation.Key()] = true
			out = append(out, *s.Citation)
		}
	}
	return out
}

// IsEmpty reports whether the document has no blocks.
func (d Document) IsEmpty() bool {
	return len(d.Blocks) == 0
}
