// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/quranchat-tui/internal/model"
	"github.com/jeranaias/quranchat-tui/internal/util"
)

// ErrChatNotFound is returned when the archive has no chat with the id.
var ErrChatNotFound = errors.New("chat not in archive")

// previewRunes bounds ChatMeta.Preview.
const previewRunes = 80

// ChatMeta contains metadata for listing archived chats.
type ChatMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	ArchivedAt   time.Time `json:"archived_at"`
	MessageCount int       `json:"message_count"`
	Bookmarks    int       `json:"bookmarks"`
	Preview      string    `json:"preview"` // first user message, truncated
}

// Archive is the SQLite transcript archive. It is safe for concurrent use.
type Archive struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
	now    func() time.Time
}

// Open opens or creates the archive at path. ":memory:" opens a private
// in-memory archive.
func Open(path string) (*Archive, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	// SQLite has a single writer; one connection also keeps an in-memory
	// database alive for the Archive's lifetime.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metadata: %w", err)
	}

	return &Archive{db: db, path: path, logger: zap.NewNop(), now: time.Now}, nil
}

// WithLogger sets the logger.
func (a *Archive) WithLogger(logger *zap.Logger) *Archive {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// Path returns the database path.
func (a *Archive) Path() string {
	return a.path
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// =============================================================================
// WRITE OPERATIONS
// =============================================================================

// SaveChat stores chat, replacing any earlier copy and its messages.
// Synthetic and pending messages are local state and are not archived.
func (a *Archive) SaveChat(ctx context.Context, chat model.Chat) error {
	if chat.ID == "" {
		return errors.New("cannot archive a chat without id")
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	title := chat.Title
	if title == "" {
		title = model.AutoTitle(firstUserContent(chat.Messages))
	}
	created, updated := chat.CreatedAt, chat.UpdatedAt
	if updated.IsZero() {
		updated = a.now()
	}
	if created.IsZero() {
		created = updated
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chats (id, title, created_at, updated_at, archived_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			archived_at = excluded.archived_at`,
		chat.ID, title, millis(created), millis(updated), millis(a.now()))
	if err != nil {
		return fmt.Errorf("save chat: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE chat_id = ?`, chat.ID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (chat_id, seq, id, role, content, thinking, sources, bookmarked, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	seq := 0
	for _, m := range chat.Messages {
		if !m.Confirmed() || m.ID == "" {
			continue
		}
		sources, err := json.Marshal(nonNil(m.Sources))
		if err != nil {
			return fmt.Errorf("encode sources: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, chat.ID, seq, m.ID, m.Role.String(), m.Content,
			m.Thinking, string(sources), boolInt(m.Bookmarked), millis(m.CreatedAt)); err != nil {
			return fmt.Errorf("save message %s: %w", m.ID, err)
		}
		seq++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	a.logger.Debug("chat archived", zap.String("chat_id", chat.ID), zap.Int("messages", seq))
	return nil
}

// SetBookmarked records a bookmark change for an archived message. Unknown
// messages are ignored.
func (a *Archive) SetBookmarked(ctx context.Context, messageID string, bookmarked bool) error {
	_, err := a.db.ExecContext(ctx, `UPDATE messages SET bookmarked = ? WHERE id = ?`,
		boolInt(bookmarked), messageID)
	if err != nil {
		return fmt.Errorf("set bookmark: %w", err)
	}
	return nil
}

// DeleteChat removes a chat and its messages. Deleting an unknown chat is
// not an error.
func (a *Archive) DeleteChat(ctx context.Context, id string) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	return nil
}

// =============================================================================
// READ OPERATIONS
// =============================================================================

// LoadChat returns an archived chat with its messages.
func (a *Archive) LoadChat(ctx context.Context, id string) (model.Chat, error) {
	var chat model.Chat
	var created, updated int64
	err := a.db.QueryRowContext(ctx,
		`SELECT id, title, created_at, updated_at FROM chats WHERE id = ?`, id).
		Scan(&chat.ID, &chat.Title, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Chat{}, fmt.Errorf("%w: %s", ErrChatNotFound, id)
	}
	if err != nil {
		return model.Chat{}, fmt.Errorf("load chat: %w", err)
	}
	chat.CreatedAt = fromMillis(created)
	chat.UpdatedAt = fromMillis(updated)

	rows, err := a.db.QueryContext(ctx, `
		SELECT id, role, content, thinking, sources, bookmarked, created_at
		FROM messages WHERE chat_id = ? ORDER BY seq`, id)
	if err != nil {
		return model.Chat{}, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m model.Message
		var role, sources string
		var bookmarked int
		var createdAt int64
		if err := rows.Scan(&m.ID, &role, &m.Content, &m.Thinking, &sources, &bookmarked, &createdAt); err != nil {
			return model.Chat{}, fmt.Errorf("scan message: %w", err)
		}
		m.Role = model.Role(role)
		m.Bookmarked = bookmarked != 0
		m.CreatedAt = fromMillis(createdAt)
		if err := json.Unmarshal([]byte(sources), &m.Sources); err != nil {
			a.logger.Warn("corrupt sources in archive", zap.String("message_id", m.ID), zap.Error(err))
			m.Sources = nil
		}
		if len(m.Sources) == 0 {
			m.Sources = nil
		}
		chat.Messages = append(chat.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return model.Chat{}, fmt.Errorf("load messages: %w", err)
	}
	return chat, nil
}

// ListChats returns archived chats, most recently updated first. A limit of
// zero or less returns all of them.
func (a *Archive) ListChats(ctx context.Context, limit int) ([]ChatMeta, error) {
	return a.queryMetas(ctx, "", limit)
}

// Search returns archived chats whose title or any message contains query,
// case-insensitively, most recently updated first.
func (a *Archive) Search(ctx context.Context, query string, limit int) ([]ChatMeta, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return a.ListChats(ctx, limit)
	}
	return a.queryMetas(ctx, query, limit)
}

func (a *Archive) queryMetas(ctx context.Context, query string, limit int) ([]ChatMeta, error) {
	q := `
		SELECT c.id, c.title, c.created_at, c.updated_at, c.archived_at,
			(SELECT COUNT(*) FROM messages m WHERE m.chat_id = c.id),
			(SELECT COUNT(*) FROM messages m WHERE m.chat_id = c.id AND m.bookmarked = 1),
			COALESCE((SELECT m.content FROM messages m
				WHERE m.chat_id = c.id AND m.role = 'user' ORDER BY m.seq LIMIT 1), '')
		FROM chats c`
	var args []any
	if query != "" {
		pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
		q += ` WHERE lower(c.title) LIKE ? ESCAPE '\'
			OR EXISTS (SELECT 1 FROM messages m
				WHERE m.chat_id = c.id AND lower(m.content) LIKE ? ESCAPE '\')`
		args = append(args, pattern, pattern)
	}
	q += ` ORDER BY c.updated_at DESC, c.id`
	if limit > 0 {
		q += ` LIMIT ` + strconv.Itoa(limit)
	}

	rows, err := a.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	metas := []ChatMeta{}
	for rows.Next() {
		var meta ChatMeta
		var created, updated, archived int64
		var preview string
		if err := rows.Scan(&meta.ID, &meta.Title, &created, &updated, &archived,
			&meta.MessageCount, &meta.Bookmarks, &preview); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		meta.CreatedAt = fromMillis(created)
		meta.UpdatedAt = fromMillis(updated)
		meta.ArchivedAt = fromMillis(archived)
		meta.Preview = util.TruncateRunes(util.SingleLine(preview), previewRunes)
		metas = append(metas, meta)
	}
	return metas, rows.Err()
}

// =============================================================================
// FORMATTING
// =============================================================================

// FormatChatList formats archived chats as a table for line-mode output.
func FormatChatList(metas []ChatMeta) string {
	if len(metas) == 0 {
		return "No archived chats."
	}

	var sb strings.Builder
	sb.WriteString(util.PadRight("ID", 12) + " " + util.PadRight("Updated", 16) + " " +
		util.PadRight("Msgs", 5) + " Title\n")
	sb.WriteString(strings.Repeat("-", 72) + "\n")
	for _, m := range metas {
		sb.WriteString(util.PadRight(m.ID, 12) + " " +
			util.PadRight(m.UpdatedAt.Local().Format("2006-01-02 15:04"), 16) + " " +
			util.PadRight(strconv.Itoa(m.MessageCount), 5) + " " +
			util.TruncateWidth(m.Title, 36) + "\n")
	}
	return sb.String()
}

// =============================================================================
// HELPERS
// =============================================================================

func firstUserContent(msgs []model.Message) string {
	for _, m := range msgs {
		if m.Role == model.RoleUser {
			return m.Content
		}
	}
	return ""
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nonNil(cs []model.Citation) []model.Citation {
	if cs == nil {
		return []model.Citation{}
	}
	return cs
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
