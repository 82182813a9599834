// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strconv"
)

// =============================================================================
// CITATION TYPE
// =============================================================================

// CitationKind distinguishes the two reference families.
type CitationKind string

const (
	// CitationScripture is a chapter/verse reference into the primary text.
	CitationScripture CitationKind = "scripture"
	// CitationTradition is a reference into a named tradition collection.
	CitationTradition CitationKind = "tradition"
)

// Citation is a tagged reference. Scripture citations use the Chapter and
// Verse fields; tradition citations use Collection and Record. The unused
// family is left zero.
type Citation struct {
	Kind CitationKind `json:"kind"`

	// Scripture
	ChapterName   string `json:"chapter_name,omitempty"`
	ChapterNumber int    `json:"chapter_number,omitempty"`
	VerseNumber   int    `json:"verse_number,omitempty"`
	VerseEnd      int    `json:"verse_end,omitempty"` // last verse of a range, 0 when single

	// Tradition
	CollectionName string `json:"collection_name,omitempty"`
	RecordNumber   string `json:"record_number,omitempty"`
}

// Scripture builds a single-verse scripture citation.
func Scripture(name string, chapter, verse int) Citation {
	return Citation{
		Kind:          CitationScripture,
		ChapterName:   name,
		ChapterNumber: chapter,
		VerseNumber:   verse,
	}
}

// Tradition builds a tradition citation. record may be empty.
func Tradition(collection, record string) Citation {
	return Citation{
		Kind:           CitationTradition,
		CollectionName: collection,
		RecordNumber:   record,
	}
}

// IsScripture reports whether c is a chapter/verse reference.
func (c Citation) IsScripture() bool { return c.Kind == CitationScripture }

// IsTradition reports whether c is a collection reference.
func (c Citation) IsTradition() bool { return c.Kind == CitationTradition }

// Valid reports whether the fields required by the citation's kind are set.
func (c Citation) Valid() bool {
	switch c.Kind {
	case CitationScripture:
		if c.ChapterNumber <= 0 || c.VerseNumber <= 0 {
			return false
		}
		return c.VerseEnd == 0 || c.VerseEnd >= c.VerseNumber
	case CitationTradition:
		return c.CollectionName != ""
	default:
		return false
	}
}

// VerseLabel returns "N:M" or "N:M-K".
func (c Citation) VerseLabel() string {
	if c.VerseEnd > c.VerseNumber {
		return fmt.Sprintf("%d:%d-%d", c.ChapterNumber, c.VerseNumber, c.VerseEnd)
	}
	return fmt.Sprintf("%d:%d", c.ChapterNumber, c.VerseNumber)
}

// String returns the human-readable form used in chips and exports,
// e.g. "Al-Baqarah 2:155" or "Bukhari #6114".
func (c Citation) String() string {
	switch c.Kind {
	case CitationScripture:
		if c.ChapterName == "" {
			return "Surah " + c.VerseLabel()
		}
		return c.ChapterName + " " + c.VerseLabel()
	case CitationTradition:
		if c.RecordNumber == "" {
			return c.CollectionName
		}
		return c.CollectionName + " #" + c.RecordNumber
	default:
		return ""
	}
}

// Key returns a stable identity used to de-duplicate citations.
func (c Citation) Key() string {
	if c.Kind == CitationScripture {
		return "s:" + c.VerseLabel()
	}
	return "t:" + c.CollectionName + ":" + c.RecordNumber
}

// RecordInt parses RecordNumber, returning 0 when it is not numeric.
func (c Citation) RecordInt() int {
	n, err := strconv.Atoi(c.RecordNumber)
	if err != nil {
		return 0
	}
	return n
}
