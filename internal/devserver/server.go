// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/jeranaias/quranchat-tui/internal/chatapi"
	"github.com/jeranaias/quranchat-tui/internal/model"
)

// DefaultAddr is the listen address used by ListenAndServe when none is given.
const DefaultAddr = "127.0.0.1:8000"

// Options configures a Server.
type Options struct {
	// Tokens maps accepted bearer tokens to the owning user. Chats are
	// visible only to their owner.
	Tokens map[string]string

	// Answerer generates replies. Defaults to CannedAnswerer.
	Answerer Answerer

	// Delay is added before every answer to imitate generation latency.
	Delay time.Duration

	// Verses backs GET /v1/random. Nil means DefaultVerses; an empty slice
	// makes the route report that no verses exist.
	Verses []Verse

	// Pick chooses a verse index in [0, n). Defaults to rand.IntN.
	Pick func(n int) int

	Logger *zap.Logger
}

type injectedFailure struct {
	status int
	count  int
}

// Server is the dev chat service.
type Server struct {
	store    *Store
	answerer Answerer
	tokens   map[string]string
	delay    time.Duration
	verses   []Verse
	pick     func(n int) int
	logger   *zap.Logger

	mu       sync.Mutex
	failures []injectedFailure

	router chi.Router
}

// New creates a server with an empty store.
func New(opts Options) *Server {
	s := &Server{
		store:    NewStore(),
		answerer: opts.Answerer,
		tokens:   make(map[string]string, len(opts.Tokens)),
		delay:    opts.Delay,
		verses:   opts.Verses,
		pick:     opts.Pick,
		logger:   opts.Logger,
	}
	if s.verses == nil {
		s.verses = DefaultVerses
	}
	if s.pick == nil {
		s.pick = rand.IntN
	}
	if s.answerer == nil {
		s.answerer = CannedAnswerer{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	for tok, owner := range opts.Tokens {
		s.tokens[tok] = owner
	}
	s.router = s.routes()
	return s
}

// Store returns the backing store.
func (s *Server) Store() *Store {
	return s.store
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// AddToken accepts a new bearer token for owner.
func (s *Server) AddToken(token, owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = owner
}

// RevokeToken stops accepting a token.
func (s *Server) RevokeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// FailNext makes the next n authenticated API requests fail with status.
func (s *Server) FailNext(status, n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, injectedFailure{status: status, count: n})
}

func (s *Server) nextFailure() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.failures) == 0 {
		return 0
	}
	f := &s.failures[0]
	f.count--
	status := f.status
	if f.count <= 0 {
		s.failures = s.failures[1:]
	}
	return status
}

func (s *Server) owner(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.tokens[token]
	return owner, ok
}

// =============================================================================
// ROUTES
// =============================================================================

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/v1/random", s.handleRandomVerse)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Post("/chat", s.handleChat)
		r.Get("/chats", s.handleListChats)
		r.Get("/chats/{chatID}", s.handleGetChat)
		r.Delete("/chats/{chatID}", s.handleDeleteChat)
		r.Post("/messages/{messageID}/bookmark", s.handleBookmark)
	})
	return r
}

type ownerKey struct{}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		owner, known := s.owner(strings.TrimSpace(token))
		if !ok || !known {
			respondError(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		if status := s.nextFailure(); status != 0 {
			respondError(w, status, "injected failure")
			return
		}
		ctx := context.WithValue(r.Context(), ownerKey{}, owner)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("devserver request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func ownerFrom(r *http.Request) string {
	owner, _ := r.Context().Value(ownerKey{}).(string)
	return owner
}

// =============================================================================
// HANDLERS
// =============================================================================

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatapi.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	question := strings.TrimSpace(req.Message)
	if question == "" {
		respondError(w, http.StatusUnprocessableEntity, "message must not be empty")
		return
	}

	owner := ownerFrom(r)
	if req.ChatID != "" {
		if _, err := s.store.Chat(owner, req.ChatID); err != nil {
			respondError(w, http.StatusNotFound, "Chat not found")
			return
		}
	}

	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-r.Context().Done():
			return
		}
	}

	answer, err := s.answerer.Answer(r.Context(), question, s.store.History(owner, req.ChatID))
	if err != nil {
		s.logger.Warn("answer failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to generate answer")
		return
	}

	chatID, userID, replyID, err := s.store.AddExchange(owner, req.ChatID, question, answer)
	if err != nil {
		respondError(w, http.StatusNotFound, "Chat not found")
		return
	}

	resp := chatapi.SendResponse{
		Response:      answer.Text,
		Thinking:      answer.Thinking,
		SourcesUsed:   wireCitations(answer.Sources),
		ChatID:        chatapi.FlexString(chatID),
		MessageID:     chatapi.FlexString(replyID),
		UserMessageID: chatapi.FlexString(userID),
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusUnprocessableEntity, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	summaries := s.store.List(ownerFrom(r), limit)
	resp := chatapi.ListResponse{Chats: make([]chatapi.WireSummary, 0, len(summaries))}
	for _, c := range summaries {
		resp.Chats = append(resp.Chats, chatapi.WireSummary{
			ID:        chatapi.FlexString(c.ID),
			Title:     c.Title,
			CreatedAt: chatapi.FlexTime(c.CreatedAt),
			UpdatedAt: chatapi.FlexTime(c.UpdatedAt),
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	chat, err := s.store.Chat(ownerFrom(r), chi.URLParam(r, "chatID"))
	if err != nil {
		respondError(w, http.StatusNotFound, "Chat not found")
		return
	}
	respondJSON(w, http.StatusOK, wireChat(chat))
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(ownerFrom(r), chi.URLParam(r, "chatID")); err != nil {
		respondError(w, http.StatusNotFound, "Chat not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBookmark(w http.ResponseWriter, r *http.Request) {
	state, err := s.store.ToggleBookmark(ownerFrom(r), chi.URLParam(r, "messageID"))
	if err != nil {
		respondError(w, http.StatusNotFound, "Message not found")
		return
	}
	respondJSON(w, http.StatusOK, chatapi.BookmarkResponse{Bookmarked: state})
}

// handleRandomVerse needs no token, like the production route.
func (s *Server) handleRandomVerse(w http.ResponseWriter, _ *http.Request) {
	if len(s.verses) == 0 {
		respondJSON(w, http.StatusOK, chatapi.VerseResponse{Error: "No Quran verses found"})
		return
	}
	v := s.verses[s.pick(len(s.verses))]
	respondJSON(w, http.StatusOK, chatapi.VerseResponse{
		Arabic:      v.Arabic,
		Translation: v.Translation,
		Reference:   v.Reference(),
	})
}

// =============================================================================
// ENCODING
// =============================================================================

func wireCitations(cs []model.Citation) []chatapi.WireCitation {
	if len(cs) == 0 {
		return []chatapi.WireCitation{}
	}
	out := make([]chatapi.WireCitation, 0, len(cs))
	for _, c := range cs {
		out = append(out, chatapi.WireFromCitation(c))
	}
	return out
}

func wireChat(c model.Chat) chatapi.WireChat {
	wc := chatapi.WireChat{
		ID:        chatapi.FlexString(c.ID),
		Title:     c.Title,
		CreatedAt: chatapi.FlexTime(c.CreatedAt),
		UpdatedAt: chatapi.FlexTime(c.UpdatedAt),
		Messages:  make([]chatapi.WireMessage, 0, len(c.Messages)),
	}
	for _, m := range c.Messages {
		wc.Messages = append(wc.Messages, chatapi.WireMessage{
			ID:           chatapi.FlexString(m.ID),
			Role:         m.Role.String(),
			Content:      m.Content,
			Thinking:     m.Thinking,
			Sources:      wireCitations(m.Sources),
			IsBookmarked: m.Bookmarked,
			CreatedAt:    chatapi.FlexTime(m.CreatedAt),
		})
	}
	return wc
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError writes the {"detail": ...} shape the production service uses.
func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"detail": msg})
}

// =============================================================================
// LISTEN
// =============================================================================

// ListenAndServe serves s on addr until ctx is cancelled.
func ListenAndServe(ctx context.Context, addr string, s *Server) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("devserver listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
