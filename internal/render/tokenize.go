// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jeranaias/quranchat-tui/internal/model"
)

// SpanKind is the type of an inline span.
type SpanKind string

const (
	SpanPlain    SpanKind = "plain"
	SpanStrong   SpanKind = "strong"
	SpanEmphasis SpanKind = "emphasis"
	SpanCitation SpanKind = "citation"
	SpanScript   SpanKind = "embeddedScript"
)

// Span is a typed, non-overlapping slice of a prose block. Text is the exact
// source slice including any markers, so concatenating the Text of all spans
// reproduces the input.
type Span struct {
	Kind  SpanKind `json:"kind"`
	Text  string   `json:"text"`
	Start int      `json:"start"`
	End   int      `json:"end"`

	// Inner is the content without markers.
	Inner string `json:"inner"`

	Citation     *model.Citation `json:"citation,omitempty"`
	Inline       bool            `json:"inline,omitempty"`        // embeddedScript rendered in the text flow
	ImpliedQuote bool            `json:"implied_quote,omitempty"` // emphasis without its own quotation mark
}

// quoteRunes open a quotation inside emphasis.
const quoteRunes = "\"'“‘«"

// =============================================================================
// INLINE TOKENIZER
// =============================================================================

// Tokenize scans text left to right and returns its spans. At each position
// the matchers are tried in order: strong, emphasis, embedded script, bare
// citation. When none applies one code point is emitted as plain text.
func (r *Renderer) Tokenize(text string) []Span {
	if text == "" {
		return nil
	}

	citations := r.TagCitations(text)
	next := 0

	var spans []Span
	pos := 0
	for pos < len(text) {
		for next < len(citations) && citations[next].Start < pos {
			next++
		}

		span, ok := r.matchStrong(text, pos)
		if !ok {
			span, ok = matchEmphasis(text, pos)
		}
		if !ok {
			span, ok = r.matchScript(text, pos)
		}
		if !ok && next < len(citations) && citations[next].Start == pos {
			span, ok = citationSpan(text, citations[next]), true
		}

		if !ok || span.End <= pos {
			_, size := utf8.DecodeRuneInString(text[pos:])
			spans = appendPlain(spans, text, pos, pos+size)
			pos += size
			continue
		}
		spans = append(spans, span)
		pos = span.End
	}
	return spans
}

// Tokenize tokenizes with the default options.
func Tokenize(text string) []Span {
	return defaultRenderer.Tokenize(text)
}

// matchStrong matches "**...**". Bold-wrapped citations and long script runs
// become citation and embeddedScript spans.
func (r *Renderer) matchStrong(text string, pos int) (Span, bool) {
	if !strings.HasPrefix(text[pos:], "**") {
		return Span{}, false
	}
	closeAt := strings.Index(text[pos+2:], "**")
	if closeAt <= 0 {
		return Span{}, false
	}
	innerStart := pos + 2
	innerEnd := innerStart + closeAt
	end := innerEnd + 2
	inner := text[innerStart:innerEnd]
	if strings.TrimSpace(inner) == "" {
		return Span{}, false
	}

	span := Span{Kind: SpanStrong, Text: text[pos:end], Start: pos, End: end, Inner: inner}

	if c, ok := r.ParseCitation(inner); ok {
		span.Kind = SpanCitation
		span.Citation = &c
		return span, true
	}

	script, _ := scriptStats(inner)
	if ScriptRatio(inner) > r.opts.ScriptRatioThreshold && script >= r.opts.InlineScriptMax {
		span.Kind = SpanScript
		span.Inner = strings.TrimSpace(inner)
	}
	return span, true
}

// matchEmphasis matches "*...*" closed on the same line. The markers must
// hug the text: "2 * 3 * 4" is arithmetic, not emphasis.
func matchEmphasis(text string, pos int) (Span, bool) {
	if text[pos] != '*' || strings.HasPrefix(text[pos:], "**") {
		return Span{}, false
	}
	rest := text[pos+1:]
	closeAt := strings.IndexByte(rest, '*')
	if closeAt <= 0 {
		return Span{}, false
	}
	inner := rest[:closeAt]
	if strings.ContainsAny(inner, "\r\n") || strings.TrimSpace(inner) == "" {
		return Span{}, false
	}
	first, _ := utf8.DecodeRuneInString(inner)
	last, _ := utf8.DecodeLastRuneInString(inner)
	if unicode.IsSpace(first) || unicode.IsSpace(last) {
		return Span{}, false
	}
	end := pos + 1 + closeAt + 1
	return Span{
		Kind:         SpanEmphasis,
		Text:         text[pos:end],
		Start:        pos,
		End:          end,
		Inner:        inner,
		ImpliedQuote: !strings.ContainsRune(quoteRunes, first),
	}, true
}

// matchScript matches a maximal run of script runes and the spaces between
// them. Trailing spaces are left to the next span.
func (r *Renderer) matchScript(text string, pos int) (Span, bool) {
	first, size := utf8.DecodeRuneInString(text[pos:])
	if !IsScriptRune(first) {
		return Span{}, false
	}
	end := pos + size
	count := 1
	for i := end; i < len(text); {
		c, n := utf8.DecodeRuneInString(text[i:])
		switch {
		case IsScriptRune(c):
			count++
			i += n
			end = i
		case c == ' ' || c == '\t':
			i += n
		default:
			i = len(text)
		}
	}
	return Span{
		Kind:   SpanScript,
		Text:   text[pos:end],
		Start:  pos,
		End:    end,
		Inner:  text[pos:end],
		Inline: count < r.opts.InlineScriptMax,
	}, true
}

func citationSpan(text string, m CitationMatch) Span {
	c := m.Citation
	return Span{
		Kind:     SpanCitation,
		Text:     text[m.Start:m.End],
		Start:    m.Start,
		End:      m.End,
		Inner:    text[m.Start:m.End],
		Citation: &c,
	}
}

func appendPlain(spans []Span, text string, start, end int) []Span {
	if n := len(spans); n > 0 && spans[n-1].Kind == SpanPlain && spans[n-1].End == start {
		last := &spans[n-1]
		last.End = end
		last.Text = text[last.Start:end]
		last.Inner = last.Text
		return spans
	}
	return append(spans, Span{
		Kind:  SpanPlain,
		Text:  text[start:end],
		Start: start,
		End:   end,
		Inner: text[start:end],
	})
}
