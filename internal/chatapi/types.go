// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatapi

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/quranchat-tui/internal/model"
	"github.com/jeranaias/quranchat-tui/internal/render"
)

// =============================================================================
// RESULTS
// =============================================================================

// SendResult is the validated result of SendMessage.
type SendResult struct {
	Response      string
	Thinking      string
	Citations     []model.Citation
	ChatID        string
	MessageID     string
	UserMessageID string // empty when the service did not report it
}

// Verse is a verse picked by the service, as returned by RandomVerse.
// Citation is nil when the reference is not a recognised chapter:verse.
type Verse struct {
	Arabic      string          `json:"arabic"`
	Translation string          `json:"translation"`
	Reference   string          `json:"reference"`
	Citation    *model.Citation `json:"citation,omitempty"`
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// SendRequest is the body of POST /api/chat.
type SendRequest struct {
	Message string `json:"message"`
	ChatID  string `json:"chat_id,omitempty"`
}

// SendResponse is the body returned by POST /api/chat. The original service
// used "sources_used" for the source list; both names are accepted.
type SendResponse struct {
	Response      string         `json:"response"`
	Thinking      string         `json:"thinking,omitempty"`
	Sources       []WireCitation `json:"sources,omitempty"`
	SourcesUsed   []WireCitation `json:"sources_used,omitempty"`
	ChatID        FlexString     `json:"chat_id"`
	MessageID     FlexString     `json:"message_id"`
	UserMessageID FlexString     `json:"user_message_id,omitempty"`
}

// WireCitation is a source reference as sent by the chat service:
// {"type":"quran","surah_name","surah_number","verse_number"} or
// {"type":"hadith","collection","hadith_number"}.
type WireCitation struct {
	Type         string     `json:"type"`
	SurahName    string     `json:"surah_name,omitempty"`
	SurahNumber  FlexString `json:"surah_number,omitempty"`
	VerseNumber  FlexString `json:"verse_number,omitempty"`
	VerseEnd     FlexString `json:"verse_end,omitempty"`
	Collection   string     `json:"collection,omitempty"`
	HadithNumber FlexString `json:"hadith_number,omitempty"`
}

// WireMessage is a stored message.
type WireMessage struct {
	ID           FlexString     `json:"id"`
	Role         string         `json:"role"`
	Content      string         `json:"content"`
	Thinking     string         `json:"thinking,omitempty"`
	Sources      []WireCitation `json:"sources,omitempty"`
	IsBookmarked bool           `json:"is_bookmarked"`
	CreatedAt    FlexTime       `json:"created_at"`
}

// WireChat is the body returned by GET /api/chats/{id}.
type WireChat struct {
	ID        FlexString    `json:"id"`
	Title     string        `json:"title"`
	CreatedAt FlexTime      `json:"created_at"`
	UpdatedAt FlexTime      `json:"updated_at"`
	Messages  []WireMessage `json:"messages"`
}

// WireSummary is one entry of GET /api/chats.
type WireSummary struct {
	ID        FlexString `json:"id"`
	Title     string     `json:"title"`
	CreatedAt FlexTime   `json:"created_at"`
	UpdatedAt FlexTime   `json:"updated_at"`
}

// ListResponse is the body returned by GET /api/chats.
type ListResponse struct {
	Chats []WireSummary `json:"chats"`
}

// BookmarkResponse is the body returned by the bookmark toggle.
type BookmarkResponse struct {
	Bookmarked bool `json:"bookmarked"`
}

// VerseResponse is the body returned by GET /v1/random. The original
// service answers 200 with only "error" set when it has no verses.
type VerseResponse struct {
	Arabic      string `json:"arabic"`
	Translation string `json:"translation"`
	Reference   string `json:"reference"`
	Error       string `json:"error,omitempty"`
}

// FlexString decodes from a JSON string or number. Ids and record numbers
// arrive as either depending on the backing database.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// String returns the value as a string.
func (f FlexString) String() string {
	return string(f)
}

// Int returns the value as an int, or 0 when it is not an integer.
func (f FlexString) Int() int {
	n, err := strconv.Atoi(string(f))
	if err != nil {
		return 0
	}
	return n
}

// FlexTime decodes RFC 3339 timestamps as well as the naive ISO form
// ("2006-01-02T15:04:05.999999") written by Python services. Naive times are
// taken as UTC; unparseable values decode to the zero time.
type FlexTime time.Time

var flexTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *FlexTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil || s == "" {
		*t = FlexTime{}
		return nil
	}
	for _, layout := range flexTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = FlexTime(parsed)
			return nil
		}
	}
	*t = FlexTime{}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t FlexTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t).UTC().Format(time.RFC3339Nano))
}

// Time returns the value as a time.Time.
func (t FlexTime) Time() time.Time {
	return time.Time(t)
}

// =============================================================================
// BOUNDARY VALIDATION
// =============================================================================

// Citation converts a wire citation. Unknown types and references that
// cannot be completed are rejected.
func (w WireCitation) Citation() (model.Citation, bool) {
	switch strings.ToLower(strings.TrimSpace(w.Type)) {
	case "quran", "scripture":
		c := model.Citation{
			Kind:          model.CitationScripture,
			ChapterName:   strings.TrimSpace(w.SurahName),
			ChapterNumber: w.SurahNumber.Int(),
			VerseNumber:   w.VerseNumber.Int(),
			VerseEnd:      w.VerseEnd.Int(),
		}
		if c.ChapterNumber == 0 {
			ch, ok := render.ChapterByName(c.ChapterName)
			if !ok {
				return model.Citation{}, false
			}
			c.ChapterNumber = ch.Number
		}
		if c.ChapterName == "" {
			ch, _ := render.LookupChapter(c.ChapterNumber)
			c.ChapterName = ch.Name
		}
		if c.VerseEnd == c.VerseNumber {
			c.VerseEnd = 0
		}
		return c, c.Valid() && render.ValidVerse(c.ChapterNumber, c.VerseNumber)
	case "hadith", "tradition":
		c := model.Tradition(render.CanonicalCollection(w.Collection), w.HadithNumber.String())
		return c, c.Valid()
	default:
		return model.Citation{}, false
	}
}

// WireFromCitation converts a citation to its wire form.
func WireFromCitation(c model.Citation) WireCitation {
	if c.IsScripture() {
		w := WireCitation{
			Type:        "quran",
			SurahName:   c.ChapterName,
			SurahNumber: FlexString(strconv.Itoa(c.ChapterNumber)),
			VerseNumber: FlexString(strconv.Itoa(c.VerseNumber)),
		}
		if c.VerseEnd > 0 {
			w.VerseEnd = FlexString(strconv.Itoa(c.VerseEnd))
		}
		return w
	}
	return WireCitation{
		Type:         "hadith",
		Collection:   c.CollectionName,
		HadithNumber: FlexString(c.RecordNumber),
	}
}

func citations(wire []WireCitation) []model.Citation {
	var out []model.Citation
	for _, w := range wire {
		if c, ok := w.Citation(); ok {
			out = append(out, c)
		}
	}
	return out
}

// result validates a send response.
func (r SendResponse) result() (*SendResult, error) {
	if strings.TrimSpace(r.Response) == "" {
		return nil, &ServiceError{Status: 200, Message: "response without text"}
	}
	if r.ChatID == "" || r.MessageID == "" {
		return nil, &ServiceError{Status: 200, Message: "response without chat or message id"}
	}
	sources := r.Sources
	if len(sources) == 0 {
		sources = r.SourcesUsed
	}
	return &SendResult{
		Response:      r.Response,
		Thinking:      r.Thinking,
		Citations:     citations(sources),
		ChatID:        r.ChatID.String(),
		MessageID:     r.MessageID.String(),
		UserMessageID: r.UserMessageID.String(),
	}, nil
}

// result validates a random verse response and parses its reference.
func (r VerseResponse) result() (*Verse, error) {
	if r.Error != "" {
		return nil, &ServiceError{Status: 200, Message: r.Error}
	}
	v := &Verse{
		Arabic:      strings.TrimSpace(r.Arabic),
		Translation: strings.TrimSpace(r.Translation),
		Reference:   strings.TrimSpace(r.Reference),
	}
	if v.Arabic == "" && v.Translation == "" {
		return nil, &ServiceError{Status: 200, Message: "verse without text"}
	}
	if c, ok := render.ParseCitation(v.Reference); ok && c.IsScripture() {
		v.Citation = &c
	}
	return v, nil
}

// Message converts a stored message. Messages with an unknown role are
// rejected.
func (w WireMessage) Message() (model.Message, bool) {
	role := model.Role(strings.ToLower(w.Role))
	if !role.Valid() || w.ID == "" {
		return model.Message{}, false
	}
	return model.Message{
		ID:         w.ID.String(),
		Role:       role,
		Content:    w.Content,
		Thinking:   w.Thinking,
		Sources:    citations(w.Sources),
		Bookmarked: w.IsBookmarked,
		CreatedAt:  w.CreatedAt.Time(),
	}, true
}

// Chat converts a fetched chat.
func (w WireChat) Chat() model.Chat {
	chat := model.Chat{
		ID:        w.ID.String(),
		Title:     w.Title,
		CreatedAt: w.CreatedAt.Time(),
		UpdatedAt: w.UpdatedAt.Time(),
		Messages:  make([]model.Message, 0, len(w.Messages)),
	}
	for _, wm := range w.Messages {
		if m, ok := wm.Message(); ok {
			chat.Messages = append(chat.Messages, m)
		}
	}
	return chat
}

// Summary converts a list entry.
func (w WireSummary) Summary() model.ChatSummary {
	return model.ChatSummary{
		ID:        w.ID.String(),
		Title:     w.Title,
		CreatedAt: w.CreatedAt.Time(),
		UpdatedAt: w.UpdatedAt.Time(),
	}
}
