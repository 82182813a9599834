// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"context"
	"regexp"
	"strings"

	"github.com/jeranaias/quranchat-tui/internal/model"
)

// Answer is one generated reply.
type Answer struct {
	Text     string
	Thinking string
	Sources  []model.Citation
}

// Answerer produces replies for the dev server.
type Answerer interface {
	Answer(ctx context.Context, question string, history []model.Message) (Answer, error)
}

// AnswerFunc adapts a function to Answerer.
type AnswerFunc func(ctx context.Context, question string, history []model.Message) (Answer, error)

// Answer implements Answerer.
func (f AnswerFunc) Answer(ctx context.Context, question string, history []model.Message) (Answer, error) {
	return f(ctx, question, history)
}

var smallTalkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(hi|hello|hey|howdy|hiya|greetings|salaam|assalamu alaikum|salam)[\s!?.]*$`),
	regexp.MustCompile(`(?i)^(good\s*(morning|afternoon|evening|day))[\s!?.]*$`),
	regexp.MustCompile(`(?i)^(how\s*are\s*you|how'?s\s*it\s*going|what'?s\s*up|sup)[\s!?.]*$`),
	regexp.MustCompile(`(?i)^(thanks|thank\s*you|thx)[\s!?.]*$`),
	regexp.MustCompile(`(?i)^(bye|goodbye|see\s*you|take\s*care)[\s!?.]*$`),
}

// IsSmallTalk reports whether a question is a greeting or pleasantry.
func IsSmallTalk(question string) bool {
	q := strings.TrimSpace(question)
	for _, re := range smallTalkPatterns {
		if re.MatchString(q) {
			return true
		}
	}
	return false
}

type cannedTopic struct {
	keywords []string
	answer   Answer
}

var cannedTopics = []cannedTopic{
	{
		keywords: []string{"patience", "patient", "sabr", "hardship"},
		answer: Answer{
			Text: "Bismillah. Patience is among the most praised qualities in the revelation. " +
				"In **Surah Al-Baqarah (2:153)** we read:\n" +
				"يَا أَيُّهَا الَّذِينَ آمَنُوا اسْتَعِينُوا بِالصَّبْرِ وَالصَّلَاةِ ۚ إِنَّ اللَّهَ مَعَ الصَّابِرِينَ\n" +
				"meaning *O you who have believed, seek help through patience and prayer. Indeed, Allah is with the patient.* " +
				"A few verses later, Surah Al-Baqarah (2:155) promises good tidings to those who remain patient through loss.",
			Thinking: "Question about patience; retrieved 2:153 and 2:155.",
			Sources: []model.Citation{
				model.Scripture("Al-Baqarah", 2, 153),
				model.Scripture("Al-Baqarah", 2, 155),
			},
		},
	},
	{
		keywords: []string{"intention", "niyyah", "niyya"},
		answer: Answer{
			Text: "The scholars open many collections with the hadith of intentions. " +
				"In **Sahih Bukhari [#1]**, the Prophet ﷺ said: **إِنَّمَا الأَعْمَالُ بِالنِّيَّاتِ وَإِنَّمَا لِكُلِّ امْرِئٍ مَا نَوَى** " +
				"meaning *'Actions are only by intentions, and every person will have only what they intended.'*",
			Thinking: "Question about intention; retrieved the first hadith of Bukhari.",
			Sources: []model.Citation{
				model.Tradition("Bukhari", "1"),
			},
		},
	},
	{
		keywords: []string{"mercy", "merciful", "rahma"},
		answer: Answer{
			Text: "Mercy is the first attribute mentioned after the name of Allah in every chapter but one. " +
				"Of the Prophet ﷺ it is said in Surah Al-Anbiya (21:107): *And We have not sent you except as a mercy to the worlds.*",
			Sources: []model.Citation{
				model.Scripture("Al-Anbiya", 21, 107),
			},
		},
	},
}

// CannedAnswerer answers from a small fixed set of topics.
type CannedAnswerer struct{}

// Answer implements Answerer.
func (CannedAnswerer) Answer(_ context.Context, question string, _ []model.Message) (Answer, error) {
	if IsSmallTalk(question) {
		return Answer{Text: "Assalamu Alaikum! How can I help you today?"}, nil
	}
	q := strings.ToLower(question)
	for _, topic := range cannedTopics {
		for _, kw := range topic.keywords {
			if strings.Contains(q, kw) {
				return topic.answer, nil
			}
		}
	}
	return Answer{
		Text: "*My library doesn't have the specific text for this right now*, " +
			"but the general scholarly consensus is that you should consult a qualified local scholar on this matter.",
	}, nil
}
