// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/quranchat-tui/internal/chatapi"
	"github.com/jeranaias/quranchat-tui/internal/model"
	"github.com/jeranaias/quranchat-tui/internal/render"
)

func newTestServer(t *testing.T) (*Server, *chatapi.Client) {
	t.Helper()
	srv := New(Options{Tokens: map[string]string{"tok-a": "alice", "tok-b": "bob"}})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	client := chatapi.NewClient(ts.URL, chatapi.StaticToken("tok-a")).WithMaxRetries(1)
	return srv, client
}

func TestSendMessageCreatesChat(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	res, err := client.SendMessage(ctx, "What does the Quran say about patience?", "")
	require.NoError(t, err)
	assert.NotEmpty(t, res.ChatID)
	assert.NotEmpty(t, res.MessageID)
	assert.NotEmpty(t, res.UserMessageID)
	assert.Contains(t, res.Response, "Surah Al-Baqarah (2:153)")
	require.Len(t, res.Citations, 2)
	assert.Equal(t, model.Scripture("Al-Baqarah", 2, 153), res.Citations[0])

	chat, err := client.FetchChat(ctx, res.ChatID)
	require.NoError(t, err)
	assert.Equal(t, "What does the Quran say about patience?", chat.Title)
	require.Len(t, chat.Messages, 2)
	assert.Equal(t, model.RoleUser, chat.Messages[0].Role)
	assert.Equal(t, res.MessageID, chat.Messages[1].ID)
	assert.Len(t, chat.Messages[1].Sources, 2)
}

func TestSendMessageContinuesChat(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	first, err := client.SendMessage(ctx, "hello", "")
	require.NoError(t, err)
	assert.Equal(t, "Assalamu Alaikum! How can I help you today?", first.Response)
	assert.Empty(t, first.Citations)

	second, err := client.SendMessage(ctx, "Tell me about intention", first.ChatID)
	require.NoError(t, err)
	assert.Equal(t, first.ChatID, second.ChatID)
	require.Len(t, second.Citations, 1)
	assert.Equal(t, "1", second.Citations[0].RecordNumber)

	chat, err := client.FetchChat(ctx, first.ChatID)
	require.NoError(t, err)
	assert.Len(t, chat.Messages, 4)
}

func TestSendMessageUnknownChat(t *testing.T) {
	_, client := newTestServer(t)
	_, err := client.SendMessage(context.Background(), "hi", "missing")
	assert.True(t, chatapi.IsNotFound(err))
}

func TestListAndDeleteChats(t *testing.T) {
	srv, client := newTestServer(t)
	ctx := context.Background()

	a, err := client.SendMessage(ctx, "patience", "")
	require.NoError(t, err)
	b, err := client.SendMessage(ctx, "mercy", "")
	require.NoError(t, err)

	chats, err := client.ListChats(ctx, 0)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	ids := []string{chats[0].ID, chats[1].ID}
	assert.ElementsMatch(t, []string{a.ChatID, b.ChatID}, ids)

	limited, err := client.ListChats(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	require.NoError(t, client.DeleteChat(ctx, a.ChatID))
	_, err = client.FetchChat(ctx, a.ChatID)
	assert.True(t, chatapi.IsNotFound(err))
	assert.True(t, chatapi.IsNotFound(client.DeleteChat(ctx, a.ChatID)))

	assert.Len(t, srv.Store().List("alice", 0), 1)
}

func TestChatsAreScopedToOwner(t *testing.T) {
	srv, alice := newTestServer(t)
	ctx := context.Background()

	res, err := alice.SendMessage(ctx, "patience", "")
	require.NoError(t, err)

	ts := httptest.NewServer(srv)
	defer ts.Close()
	bob := chatapi.NewClient(ts.URL, chatapi.StaticToken("tok-b"))

	_, err = bob.FetchChat(ctx, res.ChatID)
	assert.True(t, chatapi.IsNotFound(err))
	_, err = bob.ToggleBookmark(ctx, res.MessageID)
	assert.True(t, chatapi.IsNotFound(err))

	chats, err := bob.ListChats(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, chats)
}

func TestToggleBookmark(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	res, err := client.SendMessage(ctx, "patience", "")
	require.NoError(t, err)

	on, err := client.ToggleBookmark(ctx, res.MessageID)
	require.NoError(t, err)
	assert.True(t, on)

	chat, err := client.FetchChat(ctx, res.ChatID)
	require.NoError(t, err)
	assert.True(t, chat.Messages[1].Bookmarked)

	off, err := client.ToggleBookmark(ctx, res.MessageID)
	require.NoError(t, err)
	assert.False(t, off)

	_, err = client.ToggleBookmark(ctx, "nope")
	assert.True(t, chatapi.IsNotFound(err))
}

func TestUnauthorized(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := chatapi.NewClient(ts.URL, chatapi.StaticToken("wrong"))
	_, err := client.ListChats(context.Background(), 0)
	assert.True(t, chatapi.IsUnauthorized(err))

	srv.AddToken("late", "carol")
	client = chatapi.NewClient(ts.URL, chatapi.StaticToken("late"))
	_, err = client.ListChats(context.Background(), 0)
	assert.NoError(t, err)

	srv.RevokeToken("late")
	_, err = client.ListChats(context.Background(), 0)
	assert.True(t, chatapi.IsUnauthorized(err))
}

func TestHealthNeedsNoToken(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := chatapi.NewClient(ts.URL, chatapi.StaticToken(""))
	assert.NoError(t, client.Health(context.Background()))
}

func TestRandomVerse(t *testing.T) {
	srv := New(Options{Pick: func(n int) int { return 1 }})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := chatapi.NewClient(ts.URL, chatapi.StaticToken("")).WithMaxRetries(1)
	v, err := client.RandomVerse(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Ash-Sharh 94:5", v.Reference)
	assert.Equal(t, "For indeed, with hardship will be ease.", v.Translation)
	require.NotNil(t, v.Citation)
	assert.Equal(t, model.Scripture("Ash-Sharh", 94, 5), *v.Citation)

	doc := render.Render(v.Arabic)
	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, render.BlockScript, doc.Blocks[0].Kind)
}

func TestRandomVerse_DefaultReferencesParse(t *testing.T) {
	for _, v := range DefaultVerses {
		t.Run(v.Reference(), func(t *testing.T) {
			c, ok := render.ParseCitation(v.Reference())
			require.True(t, ok)
			assert.Equal(t, v.Chapter, c.ChapterNumber)
			assert.Equal(t, v.Number, c.VerseNumber)
		})
	}
}

func TestRandomVerse_NoVerses(t *testing.T) {
	srv := New(Options{Verses: []Verse{}})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := chatapi.NewClient(ts.URL, chatapi.StaticToken("")).WithMaxRetries(1)
	_, err := client.RandomVerse(context.Background())
	var svcErr *chatapi.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "No Quran verses found", svcErr.Message)
}

func TestFailNext(t *testing.T) {
	srv, client := newTestServer(t)
	ctx := context.Background()

	srv.FailNext(http.StatusServiceUnavailable, 1)
	_, err := client.SendMessage(ctx, "patience", "")
	var svcErr *chatapi.ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, http.StatusServiceUnavailable, svcErr.Status)
	assert.Equal(t, "injected failure", svcErr.Message)

	_, err = client.SendMessage(ctx, "patience", "")
	assert.NoError(t, err)
}

func TestEmptyMessageRejected(t *testing.T) {
	_, client := newTestServer(t)
	_, err := client.SendMessage(context.Background(), "   ", "")
	var svcErr *chatapi.ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, http.StatusUnprocessableEntity, svcErr.Status)
}

func TestAnswererError(t *testing.T) {
	srv := New(Options{
		Tokens: map[string]string{"t": "u"},
		Answerer: AnswerFunc(func(context.Context, string, []model.Message) (Answer, error) {
			return Answer{}, errors.New("model offline")
		}),
	})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := chatapi.NewClient(ts.URL, chatapi.StaticToken("t"))
	_, err := client.SendMessage(context.Background(), "anything", "")
	var svcErr *chatapi.ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, http.StatusInternalServerError, svcErr.Status)
	assert.Empty(t, srv.Store().List("u", 0))
}

func TestIsSmallTalk(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"hi", true},
		{"Assalamu Alaikum!", true},
		{"good morning", true},
		{"how are you?", true},
		{"thank you", true},
		{"bye", true},
		{"hi, what is zakat?", false},
		{"What does the Quran say about patience?", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSmallTalk(tt.in))
		})
	}
}

func TestCannedAnswererFallback(t *testing.T) {
	ans, err := CannedAnswerer{}.Answer(context.Background(), "What is the ruling on crypto?", nil)
	require.NoError(t, err)
	assert.Contains(t, ans.Text, "My library doesn't have the specific text")
	assert.Empty(t, ans.Sources)
}
