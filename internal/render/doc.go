// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns assistant message text into a structured document.
//
// The pipeline is pure and deterministic. A message is split into blocks by
// DocumentSegmenter; each line is classified as right-to-left script or
// prose; prose blocks are scanned by the citation tagger and the inline
// tokenizer into typed spans.
//
// # Key Types
//
//   - Renderer: holds the tunable thresholds and runs the pipeline
//   - Block: a script or prose block of a message
//   - Span: a typed, non-overlapping slice of a prose block
//   - CitationMatch: a detected reference with its byte range
//   - Document: blocks with their spans, ready for a presentation layer
//
// # Usage
//
//	r := render.New(render.DefaultOptions())
//	doc := r.Render("Surah Al-Baqarah (2:155) says patience is rewarded.")
//	for _, b := range doc.Blocks {
//	    for _, s := range b.Spans {
//	        fmt.Println(s.Kind, s.Text)
//	    }
//	}
//
// Every function in this package is total: malformed or unbalanced markup
// degrades to plain text and the scanners always advance.
package render
