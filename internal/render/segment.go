// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import "strings"

// BlockKind distinguishes script blocks from prose blocks.
type BlockKind string

const (
	BlockProse  BlockKind = "prose"
	BlockScript BlockKind = "script"
)

// Block is a maximal contiguous run of a message classified uniformly.
// Text is never empty.
type Block struct {
	Kind BlockKind `json:"kind"`
	Text string    `json:"text"`
}

// =============================================================================
// DOCUMENT SEGMENTER
// =============================================================================

// Segment splits content into ordered blocks. Consecutive prose lines are
// grouped into one block; every script line becomes its own block.
func (r *Renderer) Segment(content string) []Block {
	var (
		blocks []Block
		prose  []string
	)

	flush := func() {
		text := strings.TrimSpace(strings.Join(prose, "\n"))
		prose = prose[:0]
		if text != "" {
			blocks = append(blocks, Block{Kind: BlockProse, Text: text})
		}
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if r.ClassifyLine(line) == BlockScript {
			flush()
			blocks = append(blocks, Block{Kind: BlockScript, Text: strings.TrimSpace(line)})
			continue
		}
		prose = append(prose, line)
	}
	flush()

	return blocks
}

// Segment splits content with the default options.
func Segment(content string) []Block {
	return defaultRenderer.Segment(content)
}
