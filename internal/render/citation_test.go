// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/quranchat-tui/internal/model"
)

// =============================================================================
// SCRIPTURE TESTS
// =============================================================================

func TestTagCitations_Scripture(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		matched  string
		wantName string
		chapter  int
		verse    int
		verseEnd int
	}{
		{"marker and name", "Surah Al-Baqarah (2:155) says patience is rewarded.", "Surah Al-Baqarah (2:155)", "Al-Baqarah", 2, 155, 0},
		{"marker only", "The Quran 2:255 describes the Throne.", "Quran 2:255", "Al-Baqarah", 2, 255, 0},
		{"known name in parens", "as in Al-Baqarah (2:153).", "Al-Baqarah (2:153)", "Al-Baqarah", 2, 153, 0},
		{"known name bare", "Ya-Sin 36:1 opens with letters", "Ya-Sin 36:1", "Ya-Sin", 36, 1, 0},
		{"square brackets", "Quran Al-Fatiha [1:5]", "Quran Al-Fatiha [1:5]", "Al-Fatiha", 1, 5, 0},
		{"range", "Surah Al-Baqarah (2:155-157)", "Surah Al-Baqarah (2:155-157)", "Al-Baqarah", 2, 155, 157},
		{"word form", "see Chapter 2, verse 255 again", "Chapter 2, verse 255", "Al-Baqarah", 2, 255, 0},
		{"word form surah", "Surah 112 verse 1", "Surah 112 verse 1", "Al-Ikhlas", 112, 1, 0},
		{"lowercase marker", "in surah 103:1-3 we read", "surah 103:1-3", "Al-Asr", 103, 1, 3},
		{"name colon verse", "📖 **Al-Baqarah:155**", "Al-Baqarah:155", "Al-Baqarah", 2, 155, 0},
		{"marker name colon verse", "Read Surah Al-Kahf:10 tonight", "Surah Al-Kahf:10", "Al-Kahf", 18, 10, 0},
		{"name colon range", "Al-Asr:1-3 is short", "Al-Asr:1-3", "Al-Asr", 103, 1, 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			matches := TagCitations(tc.text)
			require.Len(t, matches, 1)

			m := matches[0]
			assert.Equal(t, tc.matched, m.Text(tc.text))
			assert.Equal(t, model.CitationScripture, m.Citation.Kind)
			assert.Equal(t, tc.wantName, m.Citation.ChapterName)
			assert.Equal(t, tc.chapter, m.Citation.ChapterNumber)
			assert.Equal(t, tc.verse, m.Citation.VerseNumber)
			assert.Equal(t, tc.verseEnd, m.Citation.VerseEnd)
		})
	}
}

func TestTagCitations_Rejected(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"clock time", "Meet at 10:30 tomorrow."},
		{"bare parenthesised pair", "The ratio was (2:155) overall."},
		{"chapter out of range", "Surah 115:1"},
		{"verse out of range", "Surah Al-Fatiha 1:8"},
		{"reversed range", "Surah 2:10-5"},
		{"timestamp", "logged at Surah 12:30:45"},
		{"long number", "Surah 1234:5"},
		{"ambiguous collection", "Every Muslim should be patient."},
		{"ambiguous collection with bare number", "Every Muslim 5 times a day."},
		{"name colon unknown chapter", "Note:5 items"},
		{"name colon verse out of range", "Al-Fatiha:8"},
		{"name colon spaced", "Hud: 3 reasons"},
		{"plural collection word", "Muslims pray five times."},
		{"empty", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Empty(t, TagCitations(tc.text))
		})
	}
}

// =============================================================================
// TRADITION TESTS
// =============================================================================

func TestTagCitations_Tradition(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		matched    string
		collection string
		record     string
	}{
		{"hash record", "See Sahih Bukhari #5590 for details.", "Sahih Bukhari #5590", "Bukhari", "5590"},
		{"bracket record", "In **Sahih Bukhari [#5590]**, the Prophet", "Sahih Bukhari [#5590]", "Bukhari", "5590"},
		{"article", "Sahih al-Bukhari reports", "Sahih al-Bukhari", "Bukhari", ""},
		{"ambiguous with prefix", "narrated in Sahih Muslim.", "Sahih Muslim", "Muslim", ""},
		{"ambiguous with record", "Muslim #2564 says", "Muslim #2564", "Muslim", "2564"},
		{"two word collection", "Sunan Ibn Majah No. 224", "Sunan Ibn Majah No. 224", "Ibn Majah", "224"},
		{"hadith keyword", "Tirmidhi hadith 2516", "Tirmidhi hadith 2516", "Tirmidhi", "2516"},
		{"case insensitive", "BUKHARI #1", "BUKHARI #1", "Bukhari", "1"},
		{"abu dawud", "Sunan Abu Dawud [4031]", "Sunan Abu Dawud [4031]", "Abu Dawud", "4031"},
		{"prefixed bare number", "reported in **Sahih Muslim 2564**.", "Sahih Muslim 2564", "Muslim", "2564"},
		{"prefixed article bare number", "Sahih al-Bukhari 6018 says", "Sahih al-Bukhari 6018", "Bukhari", "6018"},
		{"bare number without prefix", "Bukhari 5590 says", "Bukhari", "Bukhari", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			matches := TagCitations(tc.text)
			require.Len(t, matches, 1)

			m := matches[0]
			assert.Equal(t, tc.matched, m.Text(tc.text))
			assert.Equal(t, model.CitationTradition, m.Citation.Kind)
			assert.Equal(t, tc.collection, m.Citation.CollectionName)
			assert.Equal(t, tc.record, m.Citation.RecordNumber)
		})
	}
}

func TestTagCitations_OrderAndOverlap(t *testing.T) {
	text := "Surah Al-Baqarah 2:155 and Sahih Bukhari #1, then Quran 3:200."
	matches := TagCitations(text)
	require.Len(t, matches, 3)

	assert.Equal(t, model.CitationScripture, matches[0].Citation.Kind)
	assert.Equal(t, model.CitationTradition, matches[1].Citation.Kind)
	assert.Equal(t, "Aal-Imran", matches[2].Citation.ChapterName)

	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i].Start, matches[i-1].End)
	}
	for _, m := range matches {
		assert.True(t, m.Citation.Valid(), "citation %+v should be fully populated", m.Citation)
	}
}

func TestParseCitation(t *testing.T) {
	c, ok := defaultRenderer.ParseCitation("  Surah Al-Baqarah (2:155) ")
	require.True(t, ok)
	assert.Equal(t, 155, c.VerseNumber)

	_, ok = defaultRenderer.ParseCitation("Surah Al-Baqarah (2:155) says")
	assert.False(t, ok)
}

// =============================================================================
// CHAPTER TABLE TESTS
// =============================================================================

func TestChapterTable(t *testing.T) {
	assert.Equal(t, 114, ChapterCount)

	ch, ok := LookupChapter(2)
	require.True(t, ok)
	assert.Equal(t, "Al-Baqarah", ch.Name)
	assert.Equal(t, 286, ch.Verses)

	_, ok = LookupChapter(0)
	assert.False(t, ok)

	for _, name := range []string{"Al-Baqarah", "al baqara", "Baqarah", "Surah Al-Baqarah"} {
		ch, ok := ChapterByName(name)
		if assert.True(t, ok, name) {
			assert.Equal(t, 2, ch.Number, name)
		}
	}
	for _, name := range []string{"Al-Imran", "Ali 'Imran", "Aal-Imran"} {
		ch, ok := ChapterByName(name)
		if assert.True(t, ok, name) {
			assert.Equal(t, 3, ch.Number, name)
		}
	}

	assert.True(t, ValidVerse(1, 7))
	assert.False(t, ValidVerse(1, 8))
	assert.False(t, ValidVerse(115, 1))
}

func TestCanonicalCollection(t *testing.T) {
	assert.Equal(t, "Bukhari", CanonicalCollection("Sahih Bukhari"))
	assert.Equal(t, "Muslim", CanonicalCollection(" Sahih Muslim "))
	assert.Equal(t, "Abu Dawud", CanonicalCollection("Sunan Abu Dawud"))
	assert.Equal(t, "Unknown Book", CanonicalCollection("Unknown Book"))
}
