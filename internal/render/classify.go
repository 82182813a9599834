// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// OPTIONS
// =============================================================================

const (
	// DefaultScriptRatioThreshold is the script fraction above which a line
	// or run is treated as script.
	DefaultScriptRatioThreshold = 0.4

	// DefaultInlineScriptMax is the script rune count below which an embedded
	// run is rendered inline rather than as a call-out.
	DefaultInlineScriptMax = 15

	// minClassifiableRunes is the stripped length below which a line is
	// always prose.
	minClassifiableRunes = 3
)

// Options tunes the classifier and tokenizer.
type Options struct {
	ScriptRatioThreshold float64
	InlineScriptMax      int
}

// DefaultOptions returns the standard thresholds.
func DefaultOptions() Options {
	return Options{
		ScriptRatioThreshold: DefaultScriptRatioThreshold,
		InlineScriptMax:      DefaultInlineScriptMax,
	}
}

func (o Options) withDefaults() Options {
	if o.ScriptRatioThreshold <= 0 || o.ScriptRatioThreshold >= 1 {
		o.ScriptRatioThreshold = DefaultScriptRatioThreshold
	}
	if o.InlineScriptMax <= 0 {
		o.InlineScriptMax = DefaultInlineScriptMax
	}
	return o
}

// Renderer runs the render pipeline with a fixed set of options. A Renderer
// holds no mutable state and is safe for concurrent use.
type Renderer struct {
	opts Options
}

// New creates a Renderer. Out-of-range options fall back to the defaults.
func New(opts Options) *Renderer {
	return &Renderer{opts: opts.withDefaults()}
}

// Options returns the effective options.
func (r *Renderer) Options() Options {
	return r.opts
}

var defaultRenderer = New(DefaultOptions())

// =============================================================================
// LANGUAGE CLASSIFIER
// =============================================================================

// IsScriptRune reports whether r belongs to the Arabic block or one of its
// presentation-form blocks.
func IsScriptRune(r rune) bool {
	switch {
	case r >= 0x0600 && r <= 0x06FF:
		return true
	case r >= 0xFB50 && r <= 0xFDFF:
		return true
	case r >= 0xFE70 && r <= 0xFEFC:
		return true
	}
	return false
}

// scriptStats counts script runes and non-whitespace runes in s.
func scriptStats(s string) (script, total int) {
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if IsScriptRune(r) {
			script++
		}
	}
	return script, total
}

// ScriptRatio returns the fraction of non-whitespace runes in s that are
// script runes. It is 0 for blank input.
func ScriptRatio(s string) float64 {
	script, total := scriptStats(s)
	if total == 0 {
		return 0
	}
	return float64(script) / float64(total)
}

// ClassifyLine decides whether a line is a script line or prose.
func (r *Renderer) ClassifyLine(line string) BlockKind {
	stripped := norm.NFC.String(strings.TrimSpace(line))
	if utf8.RuneCountInString(stripped) < minClassifiableRunes {
		return BlockProse
	}
	if ScriptRatio(stripped) > r.opts.ScriptRatioThreshold {
		return BlockScript
	}
	return BlockProse
}

// ClassifyLine classifies with the default options.
func ClassifyLine(line string) BlockKind {
	return defaultRenderer.ClassifyLine(line)
}
