// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/quranchat-tui/internal/model"
)

var errNotFound = errors.New("not found")

type storedChat struct {
	chat  model.Chat
	owner string
}

// Store holds chats per token owner.
type Store struct {
	mu       sync.Mutex
	chats    map[string]*storedChat
	messages map[string]string // message id -> chat id
	now      func() time.Time
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		chats:    make(map[string]*storedChat),
		messages: make(map[string]string),
		now:      time.Now,
	}
}

// AddExchange stores a user message and its answer, creating the chat when
// chatID is empty. It returns the chat id and both message ids.
func (s *Store) AddExchange(owner, chatID, question string, answer Answer) (cid, userID, assistantID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sc, ok := s.chats[chatID]
	if chatID == "" {
		sc = &storedChat{owner: owner, chat: model.Chat{
			ID:        uuid.NewString(),
			Title:     model.AutoTitle(question),
			CreatedAt: now,
		}}
		s.chats[sc.chat.ID] = sc
	} else if !ok || sc.owner != owner {
		return "", "", "", errNotFound
	}

	user := model.Message{ID: uuid.NewString(), Role: model.RoleUser, Content: question, CreatedAt: now}
	reply := model.Message{
		ID:        uuid.NewString(),
		Role:      model.RoleAssistant,
		Content:   answer.Text,
		Thinking:  answer.Thinking,
		Sources:   answer.Sources,
		CreatedAt: now,
	}
	sc.chat.Messages = append(sc.chat.Messages, user, reply)
	sc.chat.UpdatedAt = now
	s.messages[user.ID] = sc.chat.ID
	s.messages[reply.ID] = sc.chat.ID

	return sc.chat.ID, user.ID, reply.ID, nil
}

// History returns the messages of a chat, or nil for a new chat.
func (s *Store) History(owner, chatID string) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.chats[chatID]
	if !ok || sc.owner != owner {
		return nil
	}
	return append([]model.Message(nil), sc.chat.Messages...)
}

// Chat returns a copy of a chat.
func (s *Store) Chat(owner, chatID string) (model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.chats[chatID]
	if !ok || sc.owner != owner {
		return model.Chat{}, errNotFound
	}
	chat := sc.chat
	chat.Messages = append([]model.Message(nil), sc.chat.Messages...)
	return chat, nil
}

// List returns the owner's chats, most recently updated first.
func (s *Store) List(owner string, limit int) []model.ChatSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.ChatSummary
	for _, sc := range s.chats {
		if sc.owner != owner {
			continue
		}
		out = append(out, model.ChatSummary{
			ID:        sc.chat.ID,
			Title:     sc.chat.Title,
			CreatedAt: sc.chat.CreatedAt,
			UpdatedAt: sc.chat.UpdatedAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Delete removes a chat and its messages.
func (s *Store) Delete(owner, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.chats[chatID]
	if !ok || sc.owner != owner {
		return errNotFound
	}
	for _, m := range sc.chat.Messages {
		delete(s.messages, m.ID)
	}
	delete(s.chats, chatID)
	return nil
}

// ToggleBookmark flips a message's bookmark and returns the new state.
func (s *Store) ToggleBookmark(owner, messageID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chatID, ok := s.messages[messageID]
	if !ok {
		return false, errNotFound
	}
	sc := s.chats[chatID]
	if sc == nil || sc.owner != owner {
		return false, errNotFound
	}
	for i := range sc.chat.Messages {
		if sc.chat.Messages[i].ID == messageID {
			sc.chat.Messages[i].Bookmarked = !sc.chat.Messages[i].Bookmarked
			return sc.chat.Messages[i].Bookmarked, nil
		}
	}
	return false, errNotFound
}
