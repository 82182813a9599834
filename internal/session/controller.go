// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/quranchat-tui/internal/chatapi"
	"github.com/jeranaias/quranchat-tui/internal/model"
	"github.com/jeranaias/quranchat-tui/internal/reveal"
)

// ConnectivityNotice is the text of the synthetic message appended when a
// send fails for any reason other than authentication.
const ConnectivityNotice = "Sorry, I couldn't reach the server. Please check your connection and try again."

// =============================================================================
// COLLABORATORS
// =============================================================================

// Service is the remote chat service. *chatapi.Client implements it.
type Service interface {
	SendMessage(ctx context.Context, text, chatID string) (*chatapi.SendResult, error)
	FetchChat(ctx context.Context, chatID string) (*model.Chat, error)
	ListChats(ctx context.Context, limit int) ([]model.ChatSummary, error)
	DeleteChat(ctx context.Context, chatID string) error
	ToggleBookmark(ctx context.Context, messageID string) (bool, error)
}

// Credentials is cleared when the service rejects the token.
type Credentials interface {
	Clear() error
}

// Archive receives a copy of every chat the controller loads or extends.
// *storage.Archive implements it.
type Archive interface {
	SaveChat(ctx context.Context, chat model.Chat) error
	SetBookmarked(ctx context.Context, messageID string, bookmarked bool) error
	DeleteChat(ctx context.Context, chatID string) error
}

// Listener receives notifications. Methods are called without the
// controller's lock held, from whichever goroutine caused the change, and
// may call back into the controller.
type Listener interface {
	reveal.Listener

	// LogChanged reports any change of the message log, the active chat or
	// the busy state.
	LogChanged()

	// AuthRequired reports that the credential was rejected and cleared.
	AuthRequired()
}

// NopListener ignores all notifications.
type NopListener struct{}

func (NopListener) RevealTick(string, int)  {}
func (NopListener) RevealComplete(string)   {}
func (NopListener) LogChanged()             {}
func (NopListener) AuthRequired()           {}

// Options configures a Controller.
type Options struct {
	Service     Service     // required
	Credentials Credentials // optional
	Archive     Archive     // optional
	Listener    Listener    // optional
	Reveal      reveal.Config
	Logger      *zap.Logger

	// ListLimit is used by ListChats when the caller passes 0.
	ListLimit int
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller is the chat session state machine.
type Controller struct {
	svc      Service
	creds    Credentials
	archive  Archive
	listener Listener
	logger   *zap.Logger
	reveals  *reveal.Registry
	limit    int

	mu           sync.Mutex
	conv         *model.Conversation
	chats        []model.ChatSummary
	busy         bool
	gen          uint64 // bumped whenever the active chat is replaced
	cancel       context.CancelFunc
	authRequired bool

	bookmarks sync.WaitGroup
}

// New creates a controller with an empty log.
func New(opts Options) *Controller {
	c := &Controller{
		svc:      opts.Service,
		creds:    opts.Credentials,
		archive:  opts.Archive,
		listener: opts.Listener,
		logger:   opts.Logger,
		limit:    opts.ListLimit,
		conv:     model.NewConversation(),
	}
	if c.listener == nil {
		c.listener = NopListener{}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.limit <= 0 {
		c.limit = chatapi.DefaultListLimit
	}
	c.reveals = reveal.NewRegistry(opts.Reveal, c.listener)
	return c
}

// =============================================================================
// SEND / REGENERATE
// =============================================================================

// Send appends text as a user message and asks the service for an answer.
//
// Empty input returns a *ValidationError without touching the log or the
// service. On an authentication failure the credential is cleared and
// AuthRequired is signalled; on any other failure a synthetic assistant
// message explains the problem. The user message stays in the log in every
// case.
func (c *Controller) Send(ctx context.Context, text string) (model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.Message{}, &ValidationError{Field: "message", Reason: "empty"}
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return model.Message{}, ErrBusy
	}
	user := c.conv.AppendUser(text)
	chatID := c.conv.ChatID
	opCtx, gen := c.beginLocked(ctx)
	c.mu.Unlock()
	c.listener.LogChanged()

	res, err := c.svc.SendMessage(opCtx, text, chatID)

	c.mu.Lock()
	if !c.endLocked(gen) {
		c.mu.Unlock()
		c.logger.Debug("discarding send response after chat change")
		return model.Message{}, ErrSuperseded
	}
	if err != nil {
		c.conv.SetPending(user.ID, false)
		auth := chatapi.IsUnauthorized(err)
		if !auth {
			c.conv.Append(model.NewSyntheticMessage(ConnectivityNotice))
		}
		c.mu.Unlock()
		c.logger.Warn("send failed", zap.Error(err))
		c.afterFailure(auth)
		return model.Message{}, err
	}

	answer := c.applyAnswerLocked(user.ID, res)
	snapshot := c.conv.Snapshot()
	c.mu.Unlock()

	c.reveals.Start(answer.ID, answer.Content)
	c.archiveChat(ctx, snapshot)
	c.listener.LogChanged()
	return answer, nil
}

// Regenerate removes the latest assistant message and asks again with the
// latest user message. On failure the log is left without a replacement.
func (c *Controller) Regenerate(ctx context.Context) (model.Message, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return model.Message{}, ErrBusy
	}
	user, ok := c.conv.LastUser()
	if !ok {
		c.mu.Unlock()
		return model.Message{}, ErrNothingToRegenerate
	}
	removed, hadAnswer := c.conv.RemoveLastAssistant()
	chatID := c.conv.ChatID
	opCtx, gen := c.beginLocked(ctx)
	c.mu.Unlock()

	if hadAnswer {
		c.reveals.Cancel(removed.ID)
	}
	c.listener.LogChanged()

	res, err := c.svc.SendMessage(opCtx, user.Content, chatID)

	c.mu.Lock()
	if !c.endLocked(gen) {
		c.mu.Unlock()
		return model.Message{}, ErrSuperseded
	}
	if err != nil {
		c.mu.Unlock()
		c.logger.Warn("regenerate failed", zap.Error(err))
		c.afterFailure(chatapi.IsUnauthorized(err))
		return model.Message{}, err
	}

	var answer model.Message
	if model.IsLocalID(user.ID) {
		answer = c.applyAnswerLocked(user.ID, res)
	} else {
		// The service stores the resent question as a new message; the log
		// keeps the original one.
		answer = c.applyAnswerLocked("", res)
	}
	snapshot := c.conv.Snapshot()
	c.mu.Unlock()

	c.reveals.Start(answer.ID, answer.Content)
	c.archiveChat(ctx, snapshot)
	c.listener.LogChanged()
	return answer, nil
}

// applyAnswerLocked confirms the user message and appends the answer.
func (c *Controller) applyAnswerLocked(userID string, res *chatapi.SendResult) model.Message {
	if userID != "" {
		if !c.conv.RewriteID(userID, res.UserMessageID) {
			c.conv.SetPending(userID, false)
		}
	}
	if res.ChatID != "" {
		c.conv.ChatID = res.ChatID
	}
	answer := model.NewAssistantMessage(res.MessageID, res.Response, res.Thinking, res.Citations)
	c.conv.Append(answer)
	return answer
}

// beginLocked marks the controller busy and returns a context that NewChat
// can cancel.
func (c *Controller) beginLocked(ctx context.Context) (context.Context, uint64) {
	opCtx, cancel := context.WithCancel(ctx)
	c.busy = true
	c.cancel = cancel
	return opCtx, c.gen
}

// endLocked clears the busy state of the request started at gen. It reports
// false when the chat was replaced in the meantime; the busy state then
// belongs to someone else and is left alone.
func (c *Controller) endLocked(gen uint64) bool {
	if gen != c.gen {
		return false
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.busy = false
	return true
}

// afterFailure handles a failed service call after the lock is released.
func (c *Controller) afterFailure(unauthorized bool) {
	if unauthorized {
		c.requireAuth()
	}
	c.listener.LogChanged()
}

func (c *Controller) requireAuth() {
	c.mu.Lock()
	c.authRequired = true
	c.mu.Unlock()

	if c.creds != nil {
		if err := c.creds.Clear(); err != nil {
			c.logger.Warn("failed to clear credential", zap.Error(err))
		}
	}
	c.listener.AuthRequired()
}

// =============================================================================
// BOOKMARKS
// =============================================================================

// ToggleBookmark flips the bookmark of a message at once and confirms it with
// the service in the background. If the service call fails the flag is
// flipped back. Wait blocks until all background calls have settled.
func (c *Controller) ToggleBookmark(ctx context.Context, messageID string) error {
	c.mu.Lock()
	msg, ok := c.conv.Find(messageID)
	if !ok {
		c.mu.Unlock()
		return ErrMessageNotFound
	}
	if !msg.Bookmarkable() {
		c.mu.Unlock()
		return ErrNotBookmarkable
	}
	want := !msg.Bookmarked
	c.conv.SetBookmarked(messageID, want)
	gen := c.gen
	c.bookmarks.Add(1)
	c.mu.Unlock()
	c.listener.LogChanged()

	bgCtx := context.WithoutCancel(ctx)
	go func() {
		defer c.bookmarks.Done()
		state, err := c.svc.ToggleBookmark(bgCtx, messageID)
		c.settleBookmark(bgCtx, gen, messageID, want, state, err)
	}()
	return nil
}

func (c *Controller) settleBookmark(ctx context.Context, gen uint64, id string, want, state bool, err error) {
	c.mu.Lock()
	current, ok := c.conv.Find(id)
	if gen != c.gen || !ok {
		c.mu.Unlock()
		return
	}
	switch {
	case err != nil:
		// Undo this flip. Flipping the current value rather than restoring a
		// saved one keeps overlapping toggles of the same message in step
		// with the service.
		c.conv.SetBookmarked(id, !current.Bookmarked)
		state = !current.Bookmarked
	case state != want:
		c.logger.Debug("bookmark state differs from service", zap.String("message_id", id))
		c.conv.SetBookmarked(id, state)
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("bookmark toggle failed, reverted", zap.String("message_id", id), zap.Error(err))
		if chatapi.IsUnauthorized(err) {
			c.requireAuth()
		}
	} else if c.archive != nil {
		if aerr := c.archive.SetBookmarked(ctx, id, state); aerr != nil {
			c.logger.Warn("archive bookmark failed", zap.Error(aerr))
		}
	}
	c.listener.LogChanged()
}

// Wait blocks until all background bookmark calls have settled.
func (c *Controller) Wait() {
	c.bookmarks.Wait()
}

// =============================================================================
// CHAT SWITCHING
// =============================================================================

// LoadChat replaces the log with a chat from the service. It is rejected
// with ErrBusy while a send is in flight, and the controller is busy while
// it loads. If the chat no longer exists the controller starts a new chat
// and returns the NotFound error.
func (c *Controller) LoadChat(ctx context.Context, chatID string) error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	opCtx, gen := c.beginLocked(ctx)
	c.mu.Unlock()
	c.listener.LogChanged()

	chat, err := c.svc.FetchChat(opCtx, chatID)

	c.mu.Lock()
	if !c.endLocked(gen) {
		c.mu.Unlock()
		return ErrSuperseded
	}
	if err != nil {
		c.mu.Unlock()
		switch {
		case chatapi.IsNotFound(err):
			c.dropCachedChat(chatID)
			c.NewChat()
		case chatapi.IsUnauthorized(err):
			c.requireAuth()
		}
		c.listener.LogChanged()
		return err
	}
	if chat.ID == "" {
		chat.ID = chatID
	}
	c.gen++
	c.conv.Replace(*chat)
	c.mu.Unlock()

	c.reveals.CancelAll()
	c.archiveChat(ctx, *chat)
	c.listener.LogChanged()
	return nil
}

// NewChat clears the log and the active chat locally. Running reveals are
// cancelled and an in-flight request is abandoned.
func (c *Controller) NewChat() {
	c.mu.Lock()
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.busy = false
	c.conv.Clear()
	c.mu.Unlock()

	c.reveals.CancelAll()
	c.listener.LogChanged()
}

// ListChats fetches the chat list and caches it. limit 0 uses the
// configured default.
func (c *Controller) ListChats(ctx context.Context, limit int) ([]model.ChatSummary, error) {
	if limit <= 0 {
		limit = c.limit
	}
	chats, err := c.svc.ListChats(ctx, limit)
	if err != nil {
		if chatapi.IsUnauthorized(err) {
			c.requireAuth()
		}
		return nil, err
	}

	c.mu.Lock()
	c.chats = append([]model.ChatSummary(nil), chats...)
	c.mu.Unlock()
	c.listener.LogChanged()
	return chats, nil
}

// DeleteChat deletes a chat on the service, drops it from the cached list
// and starts a new chat if it was the active one. A chat the service no
// longer has is dropped as well.
func (c *Controller) DeleteChat(ctx context.Context, chatID string) error {
	err := c.svc.DeleteChat(ctx, chatID)
	if err != nil && !chatapi.IsNotFound(err) {
		if chatapi.IsUnauthorized(err) {
			c.requireAuth()
		}
		return err
	}

	c.dropCachedChat(chatID)
	c.mu.Lock()
	active := c.conv.ChatID == chatID
	c.mu.Unlock()
	if active {
		c.NewChat()
	}
	if c.archive != nil {
		if aerr := c.archive.DeleteChat(context.WithoutCancel(ctx), chatID); aerr != nil {
			c.logger.Warn("archive delete failed", zap.Error(aerr))
		}
	}
	c.listener.LogChanged()
	return err
}

func (c *Controller) dropCachedChat(chatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.chats[:0]
	for _, s := range c.chats {
		if s.ID != chatID {
			out = append(out, s)
		}
	}
	c.chats = out
}

func (c *Controller) archiveChat(ctx context.Context, chat model.Chat) {
	if c.archive == nil || chat.ID == "" {
		return
	}
	if err := c.archive.SaveChat(context.WithoutCancel(ctx), chat); err != nil {
		c.logger.Warn("archive save failed", zap.String("chat_id", chat.ID), zap.Error(err))
	}
}

// =============================================================================
// STATE ACCESSORS
// =============================================================================

// Messages returns a snapshot of the log.
func (c *Controller) Messages() []model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.Messages()
}

// Snapshot returns the active chat with its log.
func (c *Controller) Snapshot() model.Chat {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.Snapshot()
}

// ChatID returns the active chat id, empty for a new chat.
func (c *Controller) ChatID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.ChatID
}

// Title returns the active chat title.
func (c *Controller) Title() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.Title
}

// Chats returns the cached chat list in service order.
func (c *Controller) Chats() []model.ChatSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.ChatSummary(nil), c.chats...)
}

// Busy reports whether a send, regenerate or load is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// AuthRequired reports whether the credential was rejected since the last
// ResumeAuth.
func (c *Controller) AuthRequired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authRequired
}

// ResumeAuth clears the auth-required state after a new credential arrived.
func (c *Controller) ResumeAuth() {
	c.mu.Lock()
	c.authRequired = false
	c.mu.Unlock()
	c.listener.LogChanged()
}

// Visible returns the part of a message's content revealed so far.
func (c *Controller) Visible(id, content string) string {
	return c.reveals.Visible(id, content)
}

// Revealing reports whether a message is still being revealed.
func (c *Controller) Revealing(id string) bool {
	return c.reveals.Revealing(id)
}

// Reveals returns the reveal registry, for callers that drive ticks.
func (c *Controller) Reveals() *reveal.Registry {
	return c.reveals
}

// IsAuthError reports whether err means the user must log in again.
func IsAuthError(err error) bool {
	return chatapi.IsUnauthorized(err)
}

// IsGone reports whether err means the chat no longer exists.
func IsGone(err error) bool {
	return chatapi.IsNotFound(err)
}
