// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jeranaias/quranchat-tui/internal/model"
)

// Configuration constants for the chat service client.
const (
	// DefaultBaseURL is the chat service address used when none is configured.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout is the default timeout for API requests. Answers are
	// generated by an LLM and can take a while.
	DefaultTimeout = 90 * time.Second

	// DefaultMaxRetries is the number of attempts for idempotent requests.
	DefaultMaxRetries = 3

	// DefaultListLimit is the chat list size used when a caller passes 0.
	DefaultListLimit = 50

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize is the maximum allowed response body size.
	MaxResponseSize = 10 * 1024 * 1024
)

// TokenSource supplies the bearer token for each call.
type TokenSource interface {
	Token() (string, bool)
}

// StaticToken is a TokenSource with a fixed token. An empty token means no
// credential.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token() (string, bool) {
	return string(t), t != ""
}

// Client is a client for the chat service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	limiter    *rate.Limiter
	maxRetries int
	userAgent  string
	logger     *zap.Logger
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, tokens TokenSource) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if tokens == nil {
		tokens = StaticToken("")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		tokens:     tokens,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		maxRetries: DefaultMaxRetries,
		userAgent:  "quranchat",
		logger:     zap.NewNop(),
	}
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	if timeout > 0 {
		c.httpClient.Timeout = timeout
	}
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// WithMaxRetries sets the number of attempts for idempotent requests.
func (c *Client) WithMaxRetries(maxRetries int) *Client {
	if maxRetries >= 1 {
		c.maxRetries = maxRetries
	}
	return c
}

// WithRateLimit limits outgoing requests to rps per second with the given
// burst. A non-positive rps disables limiting.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	if rps <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 1)
		return c
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// WithUserAgent sets the User-Agent header.
func (c *Client) WithUserAgent(ua string) *Client {
	if ua != "" {
		c.userAgent = ua
	}
	return c
}

// WithLogger sets the logger used for request logging.
func (c *Client) WithLogger(logger *zap.Logger) *Client {
	if logger != nil {
		c.logger = logger.Named("chatapi")
	}
	return c
}

// BaseURL returns the service address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// OPERATIONS
// =============================================================================

// SendMessage sends a user message and returns the assistant's answer. An
// empty chatID starts a new chat. SendMessage is never retried because the
// service stores the message before answering.
func (c *Client) SendMessage(ctx context.Context, text, chatID string) (*SendResult, error) {
	var resp SendResponse
	req := SendRequest{Message: text, ChatID: chatID}
	if err := c.do(ctx, http.MethodPost, "/api/chat", req, &resp); err != nil {
		return nil, err
	}
	return resp.result()
}

// FetchChat returns a chat with all of its messages.
func (c *Client) FetchChat(ctx context.Context, chatID string) (*model.Chat, error) {
	if chatID == "" {
		return nil, fmt.Errorf("%w: empty chat id", ErrNotFound)
	}
	var resp WireChat
	if err := c.do(ctx, http.MethodGet, "/api/chats/"+url.PathEscape(chatID), nil, &resp); err != nil {
		return nil, err
	}
	chat := resp.Chat()
	if chat.ID == "" {
		chat.ID = chatID
	}
	return &chat, nil
}

// ListChats returns up to limit chat summaries in service order.
func (c *Client) ListChats(ctx context.Context, limit int) ([]model.ChatSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var resp ListResponse
	path := "/api/chats?limit=" + strconv.Itoa(limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]model.ChatSummary, 0, len(resp.Chats))
	for _, w := range resp.Chats {
		if w.ID == "" {
			continue
		}
		out = append(out, w.Summary())
	}
	return out, nil
}

// DeleteChat deletes a chat.
func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	return c.do(ctx, http.MethodDelete, "/api/chats/"+url.PathEscape(chatID), nil, nil)
}

// ToggleBookmark flips the bookmark of a message and returns the new state.
func (c *Client) ToggleBookmark(ctx context.Context, messageID string) (bool, error) {
	var resp BookmarkResponse
	path := "/api/messages/" + url.PathEscape(messageID) + "/bookmark"
	if err := c.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return false, err
	}
	return resp.Bookmarked, nil
}

// RandomVerse returns a verse picked by the service from GET /v1/random.
// Like Health it needs no credential.
func (c *Client) RandomVerse(ctx context.Context) (*Verse, error) {
	var resp VerseResponse
	if err := c.send(ctx, http.MethodGet, "/v1/random", "", nil, &resp); err != nil {
		return nil, err
	}
	return resp.result()
}

// Health checks GET /health. It needs no credential.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ServiceError{Message: "request failed", Err: err}
	}
	defer resp.Body.Close()
	body, err := readResponse(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return handleErrorResponse(resp.StatusCode, body)
	}
	return nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

// do performs one authenticated API call. Without a credential it fails
// with ErrNoCredential and no request is made.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	token, ok := c.tokens.Token()
	if !ok || token == "" {
		return ErrNoCredential
	}
	return c.send(ctx, method, path, token, in, out)
}

// send performs one API call. GET requests are retried with exponential
// backoff on transport errors and 5xx responses. An empty token sends no
// Authorization header.
func (c *Client) send(ctx context.Context, method, path, token string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	attempts := 1
	if method == http.MethodGet {
		attempts = c.maxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return &ServiceError{Message: "request cancelled", Err: ctx.Err()}
			case <-time.After(c.calculateBackoff(attempt)):
			}
		}

		err := c.doOnce(ctx, method, path, token, body, out)
		if err == nil {
			return nil
		}
		if !c.isRetryable(ctx, err) {
			return err
		}
		lastErr = err
		c.logger.Warn("retrying request",
			zap.String("method", method),
			zap.String("path", stripQuery(path)),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method, path, token string, body []byte, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &ServiceError{Message: "rate limiter", Err: err}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, token, body != nil)

	c.logRequest(req)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	req.Header.Del("Authorization")
	if err != nil {
		return &ServiceError{Message: "request failed", Err: err}
	}
	defer resp.Body.Close()
	c.logResponse(req, resp, time.Since(start))

	data, err := readResponse(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return handleErrorResponse(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &ServiceError{Status: resp.StatusCode, Message: "malformed response", Err: err}
	}
	return nil
}

// setHeaders sets the headers for chat service requests.
func (c *Client) setHeaders(req *http.Request, token string, hasBody bool) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
}

// readResponse reads the response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, &ServiceError{Status: resp.StatusCode, Message: "failed to read response", Err: err}
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, &ServiceError{Status: resp.StatusCode, Message: fmt.Sprintf("response exceeded maximum size of %d bytes", MaxResponseSize)}
	}
	return body, nil
}

// isRetryable determines if an error should trigger a retry.
func (c *Client) isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return false
}

// calculateBackoff returns the delay to wait before the next retry.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt-1))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

// =============================================================================
// Request/Response Logging (without sensitive data)
// =============================================================================

// logRequest logs method and path only. Headers carry the bearer token and
// bodies carry user questions, so neither is logged.
func (c *Client) logRequest(req *http.Request) {
	c.logger.Debug("api request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path))
}

func (c *Client) logResponse(req *http.Request, resp *http.Response, d time.Duration) {
	c.logger.Debug("api response",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", d))
}

func stripQuery(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		return path[:i]
	}
	return path
}
