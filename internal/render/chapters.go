// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"
	"unicode"
)

// Chapter is one entry of the scripture chapter table.
type Chapter struct {
	Number int
	Name   string
	Verses int
}

// chapters is indexed by chapter number minus one.
var chapters = [...]Chapter{
	{1, "Al-Fatiha", 7},
	{2, "Al-Baqarah", 286},
	{3, "Aal-Imran", 200},
	{4, "An-Nisa", 176},
	{5, "Al-Ma'idah", 120},
	{6, "Al-An'am", 165},
	{7, "Al-A'raf", 206},
	{8, "Al-Anfal", 75},
	{9, "At-Tawbah", 129},
	{10, "Yunus", 109},
	{11, "Hud", 123},
	{12, "Yusuf", 111},
	{13, "Ar-Ra'd", 43},
	{14, "Ibrahim", 52},
	{15, "Al-Hijr", 99},
	{16, "An-Nahl", 128},
	{17, "Al-Isra", 111},
	{18, "Al-Kahf", 110},
	{19, "Maryam", 98},
	{20, "Ta-Ha", 135},
	{21, "Al-Anbiya", 112},
	{22, "Al-Hajj", 78},
	{23, "Al-Mu'minun", 118},
	{24, "An-Nur", 64},
	{25, "Al-Furqan", 77},
	{26, "Ash-Shu'ara", 227},
	{27, "An-Naml", 93},
	{28, "Al-Qasas", 88},
	{29, "Al-Ankabut", 69},
	{30, "Ar-Rum", 60},
	{31, "Luqman", 34},
	{32, "As-Sajdah", 30},
	{33, "Al-Ahzab", 73},
	{34, "Saba", 54},
	{35, "Fatir", 45},
	{36, "Ya-Sin", 83},
	{37, "As-Saffat", 182},
	{38, "Sad", 88},
	{39, "Az-Zumar", 75},
	{40, "Ghafir", 85},
	{41, "Fussilat", 54},
	{42, "Ash-Shura", 53},
	{43, "Az-Zukhruf", 89},
	{44, "Ad-Dukhan", 59},
	{45, "Al-Jathiyah", 37},
	{46, "Al-Ahqaf", 35},
	{47, "Muhammad", 38},
	{48, "Al-Fath", 29},
	{49, "Al-Hujurat", 18},
	{50, "Qaf", 45},
	{51, "Adh-Dhariyat", 60},
	{52, "At-Tur", 49},
	{53, "An-Najm", 62},
	{54, "Al-Qamar", 55},
	{55, "Ar-Rahman", 78},
	{56, "Al-Waqi'ah", 96},
	{57, "Al-Hadid", 29},
	{58, "Al-Mujadila", 22},
	{59, "Al-Hashr", 24},
	{60, "Al-Mumtahanah", 13},
	{61, "As-Saff", 14},
	{62, "Al-Jumu'ah", 11},
	{63, "Al-Munafiqun", 11},
	{64, "At-Taghabun", 18},
	{65, "At-Talaq", 12},
	{66, "At-Tahrim", 12},
	{67, "Al-Mulk", 30},
	{68, "Al-Qalam", 52},
	{69, "Al-Haqqah", 52},
	{70, "Al-Ma'arij", 44},
	{71, "Nuh", 28},
	{72, "Al-Jinn", 28},
	{73, "Al-Muzzammil", 20},
	{74, "Al-Muddaththir", 56},
	{75, "Al-Qiyamah", 40},
	{76, "Al-Insan", 31},
	{77, "Al-Mursalat", 50},
	{78, "An-Naba", 40},
	{79, "An-Nazi'at", 46},
	{80, "Abasa", 42},
	{81, "At-Takwir", 29},
	{82, "Al-Infitar", 19},
	{83, "Al-Mutaffifin", 36},
	{84, "Al-Inshiqaq", 25},
	{85, "Al-Buruj", 22},
	{86, "At-Tariq", 17},
	{87, "Al-A'la", 19},
	{88, "Al-Ghashiyah", 26},
	{89, "Al-Fajr", 30},
	{90, "Al-Balad", 20},
	{91, "Ash-Shams", 15},
	{92, "Al-Layl", 21},
	{93, "Ad-Duha", 11},
	{94, "Ash-Sharh", 8},
	{95, "At-Tin", 8},
	{96, "Al-Alaq", 19},
	{97, "Al-Qadr", 5},
	{98, "Al-Bayyinah", 8},
	{99, "Az-Zalzalah", 8},
	{100, "Al-Adiyat", 11},
	{101, "Al-Qari'ah", 11},
	{102, "At-Takathur", 8},
	{103, "Al-Asr", 3},
	{104, "Al-Humazah", 9},
	{105, "Al-Fil", 5},
	{106, "Quraysh", 4},
	{107, "Al-Ma'un", 7},
	{108, "Al-Kawthar", 3},
	{109, "Al-Kafirun", 6},
	{110, "An-Nasr", 3},
	{111, "Al-Masad", 5},
	{112, "Al-Ikhlas", 4},
	{113, "Al-Falaq", 5},
	{114, "An-Nas", 6},
}

// ChapterCount is the number of chapters in the table.
const ChapterCount = len(chapters)

// chapterAliases are spellings seen in model output that do not normalise
// to the table name.
var chapterAliases = map[string]int{
	"Ali 'Imran":  3,
	"Al-Imran":    3,
	"An-Nisaa":    4,
	"At-Taubah":   9,
	"Bani Israil": 17,
	"Taha":        20,
	"Yaseen":      36,
	"Ar-Rahmaan":  55,
	"Al-Ikhlaas":  112,
}

var chapterIndex = buildChapterIndex()

func buildChapterIndex() map[string]int {
	idx := make(map[string]int, len(chapters)+len(chapterAliases))
	for _, ch := range chapters {
		idx[normalizeChapterName(ch.Name)] = ch.Number
	}
	for alias, n := range chapterAliases {
		key := normalizeChapterName(alias)
		if _, ok := idx[key]; !ok {
			idx[key] = n
		}
	}
	return idx
}

// LookupChapter returns the table entry for a chapter number.
func LookupChapter(number int) (Chapter, bool) {
	if number < 1 || number > len(chapters) {
		return Chapter{}, false
	}
	return chapters[number-1], true
}

// ChapterByName resolves a written chapter name such as "Al-Baqarah",
// "Baqarah" or "Surah Al Baqara".
func ChapterByName(name string) (Chapter, bool) {
	n, ok := chapterIndex[normalizeChapterName(name)]
	if !ok {
		return Chapter{}, false
	}
	return chapters[n-1], true
}

// ValidVerse reports whether chapter:verse exists in the table.
func ValidVerse(chapter, verse int) bool {
	ch, ok := LookupChapter(chapter)
	return ok && verse >= 1 && verse <= ch.Verses
}

// articles dropped from the front of a name before comparison.
var articles = map[string]bool{
	"al": true, "an": true, "ar": true, "as": true, "at": true, "az": true,
	"ad": true, "adh": true, "ash": true, "aal": true, "ali": true,
	"surah": true, "surat": true, "sura": true,
}

// normalizeChapterName lowercases, drops a leading article, keeps letters
// only and strips a trailing "h" so that "Al-Baqarah", "al baqara" and
// "Baqarah" compare equal.
func normalizeChapterName(name string) string {
	parts := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return r == '-' || unicode.IsSpace(r)
	})
	for len(parts) > 1 && articles[lettersOnly(parts[0])] {
		parts = parts[1:]
	}
	s := lettersOnly(strings.Join(parts, ""))
	if len(s) > 3 {
		s = strings.TrimSuffix(s, "h")
	}
	return s
}

func lettersOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
