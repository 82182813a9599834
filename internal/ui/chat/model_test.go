// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/quranchat-tui/internal/chatapi"
	"github.com/jeranaias/quranchat-tui/internal/model"
	"github.com/jeranaias/quranchat-tui/internal/reveal"
	"github.com/jeranaias/quranchat-tui/internal/session"
	"github.com/jeranaias/quranchat-tui/internal/ui/styles"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type stubService struct {
	mu      sync.Mutex
	sends   int
	sendErr error
	chats   []model.ChatSummary

	// release, when set, holds SendMessage until it is closed.
	release chan struct{}
}

func (s *stubService) SendMessage(_ context.Context, text, _ string) (*chatapi.SendResult, error) {
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sends++
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	return &chatapi.SendResult{
		Response:  "Assalamu Alaikum! See Surah Al-Baqarah (2:153).",
		ChatID:    "c1",
		MessageID: "a1",
		Citations: []model.Citation{model.Scripture("Al-Baqarah", 2, 153)},
	}, nil
}

func (s *stubService) FetchChat(_ context.Context, id string) (*model.Chat, error) {
	return &model.Chat{
		ID:    id,
		Title: "Loaded " + id,
		Messages: []model.Message{
			{ID: "m1", Role: model.RoleUser, Content: "question"},
			{ID: "m2", Role: model.RoleAssistant, Content: "answer"},
		},
	}, nil
}

func (s *stubService) ListChats(context.Context, int) ([]model.ChatSummary, error) {
	return s.chats, nil
}

func (s *stubService) DeleteChat(context.Context, string) error { return nil }

func (s *stubService) ToggleBookmark(context.Context, string) (bool, error) { return true, nil }

func (s *stubService) sendCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sends
}

type stubVerses struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubVerses) RandomVerse(context.Context) (*chatapi.Verse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	c := model.Scripture("Ash-Sharh", 94, 5)
	return &chatapi.Verse{
		Arabic:      "فَإِنَّ مَعَ الْعُسْرِ يُسْرًا",
		Translation: "For indeed, with hardship will be ease.",
		Reference:   "Ash-Sharh 94:5",
		Citation:    &c,
	}, nil
}

func (s *stubVerses) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestModel(t *testing.T, svc *stubService) (Model, *session.Controller) {
	t.Helper()
	ctrl := session.New(session.Options{
		Service: svc,
		Reveal:  reveal.Config{Enabled: false},
	})
	theme, err := styles.NewTheme("dark")
	require.NoError(t, err)

	m := New(ctrl, theme, Options{ShowSources: true, ExportDir: t.TempDir()})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(Model), ctrl
}

// run executes cmd and returns the messages it produces, expanding one
// level of batching. Spinner ticks are dropped.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	batch, ok := msg.(tea.BatchMsg)
	if !ok {
		return []tea.Msg{msg}
	}
	var out []tea.Msg
	for _, c := range batch {
		if c == nil {
			continue
		}
		out = append(out, c())
	}
	return out
}

func deliver(t *testing.T, m Model, msgs []tea.Msg, want any) Model {
	t.Helper()
	for _, msg := range msgs {
		switch msg.(type) {
		case SendDoneMsg, ChatLoadedMsg, ChatsListedMsg, ChatDeletedMsg, ExportDoneMsg, VerseMsg:
			updated, _ := m.Update(msg)
			return updated.(Model)
		}
	}
	t.Fatalf("no %T among %v", want, msgs)
	return m
}

func press(m Model, k tea.KeyMsg) (Model, tea.Cmd) {
	updated, cmd := m.Update(k)
	return updated.(Model), cmd
}

// =============================================================================
// TESTS
// =============================================================================

func TestSubmit_EmptyInputDoesNothing(t *testing.T) {
	svc := &stubService{}
	m, ctrl := newTestModel(t, svc)

	m.input.SetValue("   ")
	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Zero(t, svc.sendCount())
	assert.Empty(t, ctrl.Messages())
}

func TestSubmit_SendsAndRenders(t *testing.T) {
	svc := &stubService{}
	m, ctrl := newTestModel(t, svc)

	m.input.SetValue("hello")
	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Empty(t, m.input.Value())

	m = deliver(t, m, run(cmd), SendDoneMsg{})
	assert.Equal(t, 1, svc.sendCount())
	require.Len(t, ctrl.Messages(), 2)

	view := m.View()
	assert.Contains(t, view, "hello")
	assert.Contains(t, view, "Assalamu Alaikum!")
	assert.Contains(t, view, "Al-Baqarah 2:153", "source chip")
	assert.Contains(t, view, "hello", "title in header")
}

func TestSubmit_ServiceErrorShowsNotice(t *testing.T) {
	svc := &stubService{sendErr: &chatapi.ServiceError{Status: 502, Message: "bad gateway"}}
	m, ctrl := newTestModel(t, svc)

	m.input.SetValue("hi")
	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	m = deliver(t, m, run(cmd), SendDoneMsg{})

	msgs := ctrl.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, msgs[1].Synthetic)
	assert.True(t, m.statusErr)
	assert.Contains(t, m.View(), "Notice")
}

func TestSubmit_BusyRaceKeepsDraft(t *testing.T) {
	svc := &stubService{release: make(chan struct{})}
	m, ctrl := newTestModel(t, svc)

	// Both Enters land before the first send marks the controller busy.
	m.input.SetValue("first")
	m, first := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, first)
	m.input.SetValue("second")
	m, second := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, second)
	assert.Empty(t, m.input.Value())

	done := make(chan []tea.Msg, 1)
	go func() { done <- run(first) }()
	require.Eventually(t, ctrl.Busy, time.Second, time.Millisecond)

	m = deliver(t, m, run(second), SendDoneMsg{})
	assert.Equal(t, "second", m.input.Value())
	assert.False(t, m.statusErr)
	assert.Contains(t, m.status, "Still waiting")

	close(svc.release)
	m = deliver(t, m, <-done, SendDoneMsg{})
	assert.Equal(t, 1, svc.sendCount())
	require.Len(t, ctrl.Messages(), 2)
	assert.Equal(t, "first", ctrl.Messages()[0].Content)
	assert.Equal(t, "second", m.input.Value())
}

func TestWelcomeVerse(t *testing.T) {
	verses := &stubVerses{}
	ctrl := session.New(session.Options{Service: &stubService{}, Reveal: reveal.Config{Enabled: false}})
	theme, err := styles.NewTheme("dark")
	require.NoError(t, err)
	m := New(ctrl, theme, Options{Verses: verses})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = updated.(Model)

	m = deliver(t, m, run(m.Init()), VerseMsg{})
	assert.Equal(t, 1, verses.count())
	view := m.View()
	assert.Contains(t, view, "Assalamu Alaikum")
	assert.Contains(t, view, "For indeed, with hardship will be ease.")
	assert.Contains(t, view, "Ash-Sharh 94:5")

	// A new chat asks for a fresh verse.
	_, cmd := press(m, tea.KeyMsg{Type: tea.KeyCtrlN})
	require.NotNil(t, cmd)
	_, ok := cmd().(VerseMsg)
	assert.True(t, ok)
	assert.Equal(t, 2, verses.count())
}

func TestWelcomeVerse_ErrorKeepsGreeting(t *testing.T) {
	m, _ := newTestModel(t, &stubService{})
	updated, cmd := m.Update(VerseMsg{Err: errors.New("offline")})
	m = updated.(Model)
	assert.Nil(t, cmd)
	assert.Nil(t, m.verse)
	assert.Contains(t, m.View(), "Ask a question to begin")
	assert.Nil(t, m.verseCmd(), "no source configured")
}

func TestAuthRequiredFlow(t *testing.T) {
	svc := &stubService{sendErr: chatapi.ErrUnauthorized}
	m, ctrl := newTestModel(t, svc)

	m.input.SetValue("hi")
	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	m = deliver(t, m, run(cmd), SendDoneMsg{})
	assert.True(t, ctrl.AuthRequired())
	assert.Equal(t, LoginHint, m.status)

	// Further sends are held back until a new token arrives.
	m.input.SetValue("again")
	m, cmd = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, 1, svc.sendCount())

	updated, _ := m.Update(TokenChangedMsg{OK: true})
	m = updated.(Model)
	assert.False(t, ctrl.AuthRequired())
	assert.Equal(t, "Signed in", m.status)
}

func TestBookmarkKey(t *testing.T) {
	svc := &stubService{}
	m, ctrl := newTestModel(t, svc)

	m.input.SetValue("hello")
	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	m = deliver(t, m, run(cmd), SendDoneMsg{})

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyCtrlB})
	ctrl.Wait()

	msg, ok := findMessage(ctrl.Messages(), "a1")
	require.True(t, ok)
	assert.True(t, msg.Bookmarked)
	assert.False(t, m.statusErr)
}

func TestChatList(t *testing.T) {
	svc := &stubService{chats: []model.ChatSummary{
		{ID: "c1", Title: "Patience"},
		{ID: "c2", Title: "Intention"},
	}}
	m, ctrl := newTestModel(t, svc)

	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Equal(t, modeList, m.mode)
	m = deliver(t, m, run(cmd), ChatsListedMsg{})

	view := m.View()
	assert.Contains(t, view, "Patience")
	assert.Contains(t, view, "Intention")

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	assert.Equal(t, 1, m.listIndex)

	m, cmd = press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, modeChat, m.mode)
	m = deliver(t, m, run(cmd), ChatLoadedMsg{})

	assert.Equal(t, "c2", ctrl.ChatID())
	assert.Contains(t, m.View(), "Loaded c2")
}

func TestNewChatKey(t *testing.T) {
	svc := &stubService{}
	m, ctrl := newTestModel(t, svc)

	m.input.SetValue("hello")
	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	m = deliver(t, m, run(cmd), SendDoneMsg{})

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Empty(t, ctrl.Messages())
	assert.Contains(t, m.View(), "New chat")
}

func TestMoveSelection(t *testing.T) {
	svc := &stubService{}
	m, ctrl := newTestModel(t, svc)
	require.NoError(t, ctrl.LoadChat(context.Background(), "c1"))

	m.moveSelection(-1)
	assert.Equal(t, "m2", m.selected)
	m.moveSelection(-1)
	assert.Equal(t, "m1", m.selected)
	m.moveSelection(-1)
	assert.Equal(t, "m1", m.selected)
	m.moveSelection(1)
	m.moveSelection(1)
	assert.Empty(t, m.selected, "moving past the end returns to the latest answer")
}

func TestRevealTicksUntilDone(t *testing.T) {
	svc := &stubService{}
	ctrl := session.New(session.Options{
		Service: svc,
		Reveal:  reveal.Config{Enabled: true, ChunkSize: 1000},
	})
	theme, err := styles.NewTheme("dark")
	require.NoError(t, err)
	m := New(ctrl, theme, Options{})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = updated.(Model)

	answer, err := ctrl.Send(context.Background(), "hi")
	require.NoError(t, err)
	assert.True(t, ctrl.Revealing(answer.ID))

	updated, cmd := m.Update(SendDoneMsg{Answer: answer})
	m = updated.(Model)
	require.NotNil(t, cmd, "tick loop starts")
	assert.True(t, m.ticking)

	updated, cmd = m.Update(revealTickMsg{})
	m = updated.(Model)
	assert.Nil(t, cmd)
	assert.False(t, m.ticking)
	assert.False(t, ctrl.Revealing(answer.ID))
}

func TestHelpMarkdown(t *testing.T) {
	md := helpMarkdown(DefaultKeyMap())
	assert.Contains(t, md, "| `C-n` | new chat |")
	assert.Contains(t, md, "| `F1` | help |")
	assert.NotEmpty(t, renderHelp(DefaultKeyMap(), true, 80))
}

func TestRenderContent(t *testing.T) {
	theme, err := styles.NewTheme("dark")
	require.NoError(t, err)

	out := RenderContent(theme, nil, "", 40)
	assert.Empty(t, out)
}
