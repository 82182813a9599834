// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jeranaias/quranchat-tui/internal/model"
)

// CitationMatch is a detected reference and the byte range it covers.
type CitationMatch struct {
	Start    int
	End      int
	Citation model.Citation
}

// Text returns the matched slice of s.
func (m CitationMatch) Text(s string) string {
	return s[m.Start:m.End]
}

// =============================================================================
// PATTERNS
// =============================================================================

// maxNameTokens bounds the chapter-name phrase scanned before a reference.
const maxNameTokens = 4

var (
	// verseRefRe matches "N:M", "N:M-K" with optional brackets. Balance of
	// the brackets is checked after matching.
	verseRefRe = regexp.MustCompile(`([(\[]\s*)?(\d{1,3})\s*:\s*(\d{1,3})(?:\s*[-–]\s*(\d{1,3}))?(\s*[)\]])?`)

	// nameVerseRe matches the ":M" or ":M-K" tail of "Al-Baqarah:155". The
	// chapter name before the colon is resolved against the chapter table.
	nameVerseRe = regexp.MustCompile(`:(\d{1,3})(?:[-–](\d{1,3}))?`)

	// verseWordRe matches "Chapter N, verse M" and "Surah N, verse M".
	verseWordRe = regexp.MustCompile(`(?i)\b(?:chapter|surah|surat|sura)\s+(\d{1,3})(?:\s*,\s*|\s+)(?:verses?|ayahs?|ayat|aya)\s+(\d{1,3})(?:\s*[-–]\s*(\d{1,3}))?`)

	// traditionRe matches a named collection with optional honorific prefix
	// and optional record number ("#N", "[N]", "[#N]", "No. N", "Hadith N").
	// A bare number ("Sahih Muslim 2564") only counts after a prefix.
	traditionRe = regexp.MustCompile(`(?i)\b(?:(sahih|sunan|jami['’]?|musnad|muwatta['’]?)\s+(?:(?:al|an|at|as|ibn)[-\s])?)?` +
		`(bukhari|muslim|tirmidhi|abu\s+dawu?d|nasa['’]?i|ibn\s+majah|malik|ahmad|riyadh?\s+as[-\s]salihin|nawawi)\b` +
		`(?:\s*(?:#\s*(\d{1,6})|\[\s*#?\s*(\d{1,6})\s*\]|,?\s+(?:no\.?|number|hadith)\s*#?\s*(\d{1,6})|\s+(\d{1,6})))?`)
)

var scriptureMarkers = map[string]bool{
	"surah":  true,
	"surat":  true,
	"sura":   true,
	"quran":  true,
	"koran":  true,
	"qur'an": true,
	"qur’an": true,
}

// collectionNames maps a letters-only collection key to its canonical name.
var collectionNames = map[string]string{
	"bukhari":         "Bukhari",
	"muslim":          "Muslim",
	"tirmidhi":        "Tirmidhi",
	"abudawud":        "Abu Dawud",
	"abudaud":         "Abu Dawud",
	"nasai":           "Nasa'i",
	"ibnmajah":        "Ibn Majah",
	"malik":           "Malik",
	"ahmad":           "Ahmad",
	"riyadassalihin":  "Riyad as-Salihin",
	"riyadhassalihin": "Riyad as-Salihin",
	"nawawi":          "Nawawi",
}

// ambiguousCollections are collection names that are also ordinary words or
// personal names; they are only tagged with a prefix or record number.
var ambiguousCollections = map[string]bool{
	"muslim": true,
	"malik":  true,
	"ahmad":  true,
}

// =============================================================================
// CITATION TAGGER
// =============================================================================

const (
	familyScripture = iota
	familyTradition
)

type candidate struct {
	match  CitationMatch
	family int
}

// TagCitations finds scripture and tradition references in text. Matches are
// ordered, non-overlapping and chosen greedily from the left; scripture wins
// a tie with tradition at the same offset.
func (r *Renderer) TagCitations(text string) []CitationMatch {
	var cands []candidate
	for _, m := range scriptureRefs(text) {
		cands = append(cands, candidate{m, familyScripture})
	}
	for _, m := range scriptureNameRefs(text) {
		cands = append(cands, candidate{m, familyScripture})
	}
	for _, m := range scriptureWordRefs(text) {
		cands = append(cands, candidate{m, familyScripture})
	}
	for _, m := range traditionRefs(text) {
		cands = append(cands, candidate{m, familyTradition})
	}
	if len(cands) == 0 {
		return nil
	}

	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.match.Start != b.match.Start {
			return a.match.Start < b.match.Start
		}
		if a.family != b.family {
			return a.family < b.family
		}
		return a.match.End > b.match.End
	})

	out := make([]CitationMatch, 0, len(cands))
	last := 0
	for _, c := range cands {
		if c.match.Start < last {
			continue
		}
		out = append(out, c.match)
		last = c.match.End
	}
	return out
}

// TagCitations tags with the default options.
func TagCitations(text string) []CitationMatch {
	return defaultRenderer.TagCitations(text)
}

// ParseCitation returns the citation when s, ignoring surrounding
// whitespace, is exactly one reference.
func (r *Renderer) ParseCitation(s string) (model.Citation, bool) {
	trimmed := strings.TrimSpace(s)
	matches := r.TagCitations(trimmed)
	if len(matches) != 1 || matches[0].Start != 0 || matches[0].End != len(trimmed) {
		return model.Citation{}, false
	}
	return matches[0].Citation, true
}

// ParseCitation parses with the default options.
func ParseCitation(s string) (model.Citation, bool) {
	return defaultRenderer.ParseCitation(s)
}

// -----------------------------------------------------------------------------
// Scripture
// -----------------------------------------------------------------------------

func scriptureRefs(text string) []CitationMatch {
	var out []CitationMatch
	for _, m := range verseRefRe.FindAllStringSubmatchIndex(text, -1) {
		open, closed := m[2] >= 0, m[10] >= 0
		start, end := m[0], m[1]
		if open && !closed {
			start = m[4]
		}
		if closed && !open {
			end = m[10]
		}
		lastDigit := m[7]
		if m[8] >= 0 {
			lastDigit = m[9]
		}
		if !digitBoundaryBefore(text, m[4]) || !digitBoundaryAfter(text, lastDigit) {
			continue
		}

		chapter, verse, verseEnd, ok := verseNumbers(text, m[4:10])
		if !ok {
			continue
		}

		prefixStart, name, ok := scripturePrefix(text, start)
		if !ok {
			continue
		}
		if name == "" {
			ch, _ := LookupChapter(chapter)
			name = ch.Name
		}

		out = append(out, CitationMatch{
			Start: prefixStart,
			End:   end,
			Citation: model.Citation{
				Kind:          model.CitationScripture,
				ChapterName:   name,
				ChapterNumber: chapter,
				VerseNumber:   verse,
				VerseEnd:      verseEnd,
			},
		})
	}
	return out
}

func scriptureWordRefs(text string) []CitationMatch {
	var out []CitationMatch
	for _, m := range verseWordRe.FindAllStringSubmatchIndex(text, -1) {
		lastDigit := m[5]
		if m[6] >= 0 {
			lastDigit = m[7]
		}
		if !digitBoundaryAfter(text, lastDigit) {
			continue
		}
		groups := []int{m[2], m[3], m[4], m[5], m[6], m[7]}
		chapter, verse, verseEnd, ok := verseNumbers(text, groups)
		if !ok {
			continue
		}
		ch, _ := LookupChapter(chapter)
		out = append(out, CitationMatch{
			Start: m[0],
			End:   lastDigit,
			Citation: model.Citation{
				Kind:          model.CitationScripture,
				ChapterName:   ch.Name,
				ChapterNumber: chapter,
				VerseNumber:   verse,
				VerseEnd:      verseEnd,
			},
		})
	}
	return out
}

// scriptureNameRefs finds "Name:M" references, where Name is a known
// chapter name written directly before the colon.
func scriptureNameRefs(text string) []CitationMatch {
	var out []CitationMatch
	for _, m := range nameVerseRe.FindAllStringSubmatchIndex(text, -1) {
		colon := m[0]
		if colon == 0 {
			continue
		}
		if r, _ := utf8.DecodeLastRuneInString(text[:colon]); !unicode.IsLetter(r) {
			continue
		}
		lastDigit := m[3]
		if m[4] >= 0 {
			lastDigit = m[5]
		}
		if !digitBoundaryAfter(text, lastDigit) {
			continue
		}

		start, name, ch, ok := chapterBefore(text, colon)
		if !ok {
			continue
		}
		verse, _ := strconv.Atoi(text[m[2]:m[3]])
		verseEnd := 0
		if m[4] >= 0 {
			verseEnd, _ = strconv.Atoi(text[m[4]:m[5]])
		}
		verseEnd, ok = verseRange(ch.Number, verse, verseEnd)
		if !ok {
			continue
		}

		out = append(out, CitationMatch{
			Start: start,
			End:   lastDigit,
			Citation: model.Citation{
				Kind:          model.CitationScripture,
				ChapterName:   name,
				ChapterNumber: ch.Number,
				VerseNumber:   verse,
				VerseEnd:      verseEnd,
			},
		})
	}
	return out
}

// chapterBefore resolves the longest capitalized phrase ending at pos that
// names a chapter. A leading marker word is part of the match but not of
// the returned name.
func chapterBefore(text string, pos int) (int, string, Chapter, bool) {
	toks := precedingTokens(text, pos, maxNameTokens)
	for k := len(toks) - 1; k >= 0; k-- {
		if !capitalized(toks[k].text) {
			continue
		}
		ch, ok := ChapterByName(text[toks[k].start:toks[0].end])
		if !ok {
			continue
		}
		name := text[toks[k].start:toks[0].end]
		if k > 0 && scriptureMarkers[strings.ToLower(toks[k].text)] {
			name = text[toks[k-1].start:toks[0].end]
		}
		return toks[k].start, name, ch, true
	}
	return 0, "", Chapter{}, false
}

// verseNumbers parses the chapter, verse and optional range end from three
// submatch index pairs and validates them against the chapter table.
func verseNumbers(text string, idx []int) (chapter, verse, verseEnd int, ok bool) {
	chapter, _ = strconv.Atoi(text[idx[0]:idx[1]])
	verse, _ = strconv.Atoi(text[idx[2]:idx[3]])
	if idx[4] >= 0 {
		verseEnd, _ = strconv.Atoi(text[idx[4]:idx[5]])
	}
	verseEnd, ok = verseRange(chapter, verse, verseEnd)
	if !ok {
		return 0, 0, 0, false
	}
	return chapter, verse, verseEnd, true
}

// verseRange validates chapter:verse and an optional range end (0 for
// none). A range ending on its first verse collapses to a single verse.
func verseRange(chapter, verse, verseEnd int) (int, bool) {
	if !ValidVerse(chapter, verse) {
		return 0, false
	}
	switch {
	case verseEnd == 0, verseEnd == verse:
		return 0, true
	case verseEnd < verse, !ValidVerse(chapter, verseEnd):
		return 0, false
	}
	return verseEnd, true
}

type nameToken struct {
	start, end int
	text       string
}

// scripturePrefix finds the marker word and chapter-name phrase before a
// reference starting at pos. It returns the start of the citation, the name
// as written (empty when only a marker is present) and whether the
// reference is anchored at all.
func scripturePrefix(text string, pos int) (int, string, bool) {
	toks := precedingTokens(text, pos, maxNameTokens+1)

	for k, t := range toks {
		if scriptureMarkers[strings.ToLower(t.text)] {
			if k == 0 {
				return t.start, "", true
			}
			return t.start, text[toks[k-1].start:toks[0].end], true
		}
		if k >= maxNameTokens || !capitalized(t.text) {
			break
		}
	}

	// Without a marker the phrase must be a known chapter name.
	n := len(toks)
	if n > maxNameTokens {
		n = maxNameTokens
	}
	for k := n - 1; k >= 0; k-- {
		if !capitalized(toks[k].text) {
			continue
		}
		phrase := text[toks[k].start:toks[0].end]
		if _, ok := ChapterByName(phrase); ok {
			return toks[k].start, phrase, true
		}
	}
	return 0, "", false
}

// precedingTokens returns up to limit words ending before pos, nearest
// first. Words are separated by spaces or tabs; any other character ends
// the scan.
func precedingTokens(text string, pos, limit int) []nameToken {
	var toks []nameToken
	i := pos
	for len(toks) < limit {
		j := i
		for j > 0 {
			r, size := utf8.DecodeLastRuneInString(text[:j])
			if r != ' ' && r != '\t' {
				break
			}
			j -= size
		}
		if j == i && len(toks) > 0 {
			break
		}
		end := j
		for j > 0 {
			r, size := utf8.DecodeLastRuneInString(text[:j])
			if !isNameRune(r) {
				break
			}
			j -= size
		}
		if j == end {
			break
		}
		toks = append(toks, nameToken{start: j, end: end, text: text[j:end]})
		i = j
	}
	return toks
}

func isNameRune(r rune) bool {
	return unicode.IsLetter(r) || r == '-' || r == '\'' || r == '’'
}

// capitalized reports whether a name token starts with an upper-case
// letter, allowing a lower-case article such as "al-" in front.
func capitalized(word string) bool {
	word = strings.TrimLeft(word, "-'’")
	r, _ := utf8.DecodeRuneInString(word)
	if unicode.IsUpper(r) {
		return true
	}
	if i := strings.IndexByte(word, '-'); i > 0 && i <= 3 {
		r, _ = utf8.DecodeRuneInString(word[i+1:])
		return unicode.IsUpper(r)
	}
	return false
}

func digitBoundaryBefore(text string, pos int) bool {
	if pos == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:pos])
	return !unicode.IsDigit(r) && !unicode.IsLetter(r) && r != ':' && r != '.'
}

func digitBoundaryAfter(text string, pos int) bool {
	if pos >= len(text) {
		return true
	}
	r, size := utf8.DecodeRuneInString(text[pos:])
	if unicode.IsDigit(r) || unicode.IsLetter(r) || r == ':' {
		return false
	}
	if r == '.' && pos+size < len(text) {
		next, _ := utf8.DecodeRuneInString(text[pos+size:])
		return !unicode.IsDigit(next)
	}
	return true
}

// -----------------------------------------------------------------------------
// Tradition
// -----------------------------------------------------------------------------

func traditionRefs(text string) []CitationMatch {
	var out []CitationMatch
	for _, m := range traditionRe.FindAllStringSubmatchIndex(text, -1) {
		key := collectionKey(text[m[4]:m[5]])
		name, ok := collectionNames[key]
		if !ok {
			continue
		}

		end := m[1]
		hasPrefix := m[2] >= 0
		record := ""
		for g := 6; g <= 10; g += 2 {
			if m[g] >= 0 {
				record = text[m[g]:m[g+1]]
				break
			}
		}
		if m[12] >= 0 {
			// Bare trailing number: a record only after a prefixed
			// collection, otherwise the citation ends at the name.
			if hasPrefix && digitBoundaryAfter(text, m[13]) {
				record = text[m[12]:m[13]]
			} else {
				end = m[5]
			}
		}
		if record != "" && !digitBoundaryAfter(text, lastDigitEnd(text, m[0], end)) {
			continue
		}

		if ambiguousCollections[key] && !hasPrefix && record == "" {
			continue
		}

		out = append(out, CitationMatch{
			Start:    m[0],
			End:      end,
			Citation: model.Tradition(name, record),
		})
	}
	return out
}

func collectionKey(s string) string {
	return lettersOnly(strings.ToLower(s))
}

// lastDigitEnd returns the end offset of the last digit inside [start,end).
func lastDigitEnd(text string, start, end int) int {
	for i := end; i > start; i-- {
		if text[i-1] >= '0' && text[i-1] <= '9' {
			return i
		}
	}
	return end
}

// CanonicalCollection maps a collection name as written by the chat service
// ("Sahih Bukhari", "Sunan Abu Dawud") to the short name used in tagged
// citations. Unknown names are returned trimmed.
func CanonicalCollection(name string) string {
	trimmed := strings.TrimSpace(name)
	m := traditionRe.FindStringSubmatchIndex(trimmed)
	if m == nil {
		return trimmed
	}
	if canonical, ok := collectionNames[collectionKey(trimmed[m[4]:m[5]])]; ok {
		return canonical
	}
	return trimmed
}
