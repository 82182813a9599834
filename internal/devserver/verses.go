// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"fmt"

	"github.com/jeranaias/quranchat-tui/internal/render"
)

// Verse is one entry served by GET /v1/random.
type Verse struct {
	Chapter     int
	Number      int
	Arabic      string
	Translation string
}

// Reference formats the verse as the production service does:
// "Al-Baqarah 2:153".
func (v Verse) Reference() string {
	ch, _ := render.LookupChapter(v.Chapter)
	return fmt.Sprintf("%s %d:%d", ch.Name, v.Chapter, v.Number)
}

// DefaultVerses is the verse set used when Options.Verses is nil.
var DefaultVerses = []Verse{
	{
		Chapter:     2,
		Number:      153,
		Arabic:      "يَا أَيُّهَا الَّذِينَ آمَنُوا اسْتَعِينُوا بِالصَّبْرِ وَالصَّلَاةِ ۚ إِنَّ اللَّهَ مَعَ الصَّابِرِينَ",
		Translation: "O you who have believed, seek help through patience and prayer. Indeed, Allah is with the patient.",
	},
	{
		Chapter:     94,
		Number:      5,
		Arabic:      "فَإِنَّ مَعَ الْعُسْرِ يُسْرًا",
		Translation: "For indeed, with hardship will be ease.",
	},
	{
		Chapter:     21,
		Number:      107,
		Arabic:      "وَمَا أَرْسَلْنَاكَ إِلَّا رَحْمَةً لِّلْعَالَمِينَ",
		Translation: "And We have not sent you except as a mercy to the worlds.",
	},
	{
		Chapter:     13,
		Number:      28,
		Arabic:      "أَلَا بِذِكْرِ اللَّهِ تَطْمَئِنُّ الْقُلُوبُ",
		Translation: "Unquestionably, by the remembrance of Allah hearts are assured.",
	},
}
