// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/quranchat-tui/internal/config"
	"github.com/jeranaias/quranchat-tui/internal/export"
	"github.com/jeranaias/quranchat-tui/internal/model"
	"github.com/jeranaias/quranchat-tui/internal/session"
	"github.com/jeranaias/quranchat-tui/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader is the prompt the REPL reads from.
type lineReader interface {
	Prompt(prompt string) (string, error)
	Close() error
}

// ChatCLI provides input history and line editing for the line-mode chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI and loads the saved history.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	c := &ChatCLI{line: line, historyFile: filepath.Join(dir, "chat_history")}
	if f, err := os.Open(c.historyFile); err == nil {
		_, _ = c.line.ReadHistory(f)
		f.Close()
	}
	return c
}

// Prompt reads a line. Non-blank input is added to the history.
func (c *ChatCLI) Prompt(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the history with mode 0600 and restores the terminal.
func (c *ChatCLI) Close() error {
	if err := os.MkdirAll(filepath.Dir(c.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			_, _ = c.line.WriteHistory(f)
			f.Close()
		}
	}
	return c.line.Close()
}

// =============================================================================
// COMMAND
// =============================================================================

func newChatCmd(a *app) *cobra.Command {
	var chatID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start a line-mode chat with input history",
		Long: `Chat reads questions line by line and prints each answer as it arrives.
Lines starting with a slash are commands; type /help to list them.`,
		Example: `  quranchat chat
  quranchat chat --chat 42`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotLogFile: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.jsonOut {
				return usageError("--json is not supported by the interactive chat")
			}
			return a.runChat(cmd, chatID)
		},
	}
	cmd.Flags().StringVar(&chatID, "chat", "", "open an existing chat")
	return cmd
}

func (a *app) runChat(cmd *cobra.Command, chatID string) error {
	ctx := cmd.Context()
	archive := a.openArchive()
	if archive != nil {
		defer archive.Close()
	}
	ctrl := a.controller(nil, archive, false)
	defer ctrl.Wait()

	r := newREPL(ctrl, newPrinter(cmd.OutOrStdout(), a.cfg.UI.Theme, a.renderer), a.logger.Named("repl"))
	r.listLimit = a.cfg.UI.ChatListLimit
	r.showThinking = a.cfg.UI.ShowThinking
	if chatID != "" {
		r.handle(ctx, "/open "+chatID)
	}

	input := NewChatCLI()
	defer input.Close()
	return r.loop(ctx, input)
}

// =============================================================================
// REPL
// =============================================================================

const replPrompt = "you> "

type repl struct {
	ctrl   *session.Controller
	out    *printer
	logger *zap.Logger

	listLimit    int
	showThinking bool
	exportDir    string

	// listed is the last /chats result; /open and /delete accept its
	// 1-based positions.
	listed []model.ChatSummary
}

func newREPL(ctrl *session.Controller, out *printer, logger *zap.Logger) *repl {
	return &repl{ctrl: ctrl, out: out, logger: logger, exportDir: "."}
}

func (r *repl) loop(ctx context.Context, in lineReader) error {
	r.out.muted("quranchat: ask a question, or /help for commands.")
	for {
		line, err := in.Prompt(replPrompt)
		switch {
		case errors.Is(err, io.EOF), errors.Is(err, liner.ErrPromptAborted):
			fmt.Fprintln(r.out.w)
			return nil
		case err != nil:
			return fmt.Errorf("read input: %w", err)
		}
		if r.handle(ctx, line) {
			return nil
		}
	}
}

// handle runs one input line and reports whether the REPL should exit.
func (r *repl) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		r.send(ctx, line)
		return false
	}

	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(name) {
	case "/quit", "/q", "/exit":
		return true
	case "/help", "/h", "/?":
		r.help()
	case "/new", "/n":
		r.ctrl.NewChat()
		r.out.muted("Started a new chat.")
	case "/chats", "/list":
		r.chats(ctx)
	case "/open":
		r.open(ctx, arg)
	case "/delete":
		r.delete(ctx, arg)
	case "/bookmark", "/b":
		r.bookmark(ctx, arg)
	case "/regenerate", "/r":
		r.regenerate(ctx)
	case "/thinking":
		r.showThinking = !r.showThinking
		r.out.muted("Reasoning %s.", onOff(r.showThinking))
	case "/export":
		r.export(arg)
	case "/show":
		r.out.transcript(r.ctrl.Snapshot(), r.showThinking)
	default:
		r.out.notice(fmt.Sprintf("Unknown command %s. Type /help for the list.", name))
	}
	return false
}

// interruptible cancels ctx on Ctrl+C while a request is running.
func interruptible(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt)
}

func (r *repl) send(ctx context.Context, text string) {
	sendCtx, stop := interruptible(ctx)
	defer stop()
	msg, err := r.ctrl.Send(sendCtx, text)
	if err != nil {
		r.failed(sendCtx, err)
		return
	}
	fmt.Fprintln(r.out.w)
	r.out.answer(msg, r.showThinking)
	fmt.Fprintln(r.out.w)
}

func (r *repl) regenerate(ctx context.Context) {
	sendCtx, stop := interruptible(ctx)
	defer stop()
	msg, err := r.ctrl.Regenerate(sendCtx)
	if err != nil {
		r.failed(sendCtx, err)
		return
	}
	fmt.Fprintln(r.out.w)
	r.out.answer(msg, r.showThinking)
	fmt.Fprintln(r.out.w)
}

func (r *repl) failed(ctx context.Context, err error) {
	r.logger.Debug("request failed", zap.Error(err))
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		r.out.muted("Cancelled.")
	case session.IsAuthError(err):
		r.out.notice("Your session has expired. Run 'quranchat login' and try again.")
	case session.IsValidation(err), errors.Is(err, session.ErrBusy),
		errors.Is(err, session.ErrNothingToRegenerate):
		r.out.notice(err.Error())
	default:
		r.out.notice(session.ConnectivityNotice)
	}
}

func (r *repl) chats(ctx context.Context) {
	chats, err := r.ctrl.ListChats(ctx, r.listLimit)
	if err != nil {
		r.failed(ctx, err)
		return
	}
	r.listed = chats
	if len(chats) == 0 {
		r.out.muted("No chats yet.")
		return
	}
	for i, c := range chats {
		title := c.Title
		if title == "" {
			title = "Untitled chat"
		}
		fmt.Fprintf(r.out.w, "%3d. %s  %s\n", i+1,
			util.PadRight(util.TruncateWidth(util.SingleLine(title), 50), 50),
			c.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
}

// resolveChat maps a list position or a chat id to a chat id.
func (r *repl) resolveChat(arg string) (string, bool) {
	if arg == "" {
		return "", false
	}
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(r.listed) {
		return r.listed[n-1].ID, true
	}
	return arg, true
}

func (r *repl) open(ctx context.Context, arg string) {
	id, ok := r.resolveChat(arg)
	if !ok {
		r.out.notice("Usage: /open <number|chat-id>")
		return
	}
	if err := r.ctrl.LoadChat(ctx, id); err != nil {
		if session.IsGone(err) {
			r.out.notice("That chat no longer exists. Started a new chat.")
			return
		}
		r.failed(ctx, err)
		return
	}
	r.out.transcript(r.ctrl.Snapshot(), r.showThinking)
}

func (r *repl) delete(ctx context.Context, arg string) {
	id, ok := r.resolveChat(arg)
	if !ok {
		id = r.ctrl.ChatID()
	}
	if id == "" {
		r.out.notice("Usage: /delete <number|chat-id>")
		return
	}
	if err := r.ctrl.DeleteChat(ctx, id); err != nil && !session.IsGone(err) {
		r.failed(ctx, err)
		return
	}
	r.listed = nil
	r.out.muted("Deleted chat %s.", id)
}

// bookmark toggles the named message, or the latest answer.
func (r *repl) bookmark(ctx context.Context, arg string) {
	id := arg
	if id == "" {
		msgs := r.ctrl.Messages()
		for i := len(msgs) - 1; i >= 0; i-- {
			if msgs[i].Role == model.RoleAssistant && msgs[i].Bookmarkable() {
				id = msgs[i].ID
				break
			}
		}
	}
	if id == "" {
		r.out.notice("Nothing to bookmark yet.")
		return
	}
	if err := r.ctrl.ToggleBookmark(ctx, id); err != nil {
		r.out.notice(err.Error())
		return
	}
	r.ctrl.Wait()
	for _, m := range r.ctrl.Messages() {
		if m.ID == id {
			if m.Bookmarked {
				r.out.muted("Bookmarked %s.", id)
			} else {
				r.out.muted("Removed bookmark from %s.", id)
			}
			return
		}
	}
}

func (r *repl) export(format string) {
	if format == "" {
		format = "markdown"
	}
	opts := export.DefaultOptions()
	opts.OutputDir = r.exportDir
	opts.Renderer = r.out.renderer
	opts.IncludeThinking = r.showThinking
	exporter, err := export.ForFormat(format, opts)
	if err != nil {
		r.out.notice(err.Error())
		return
	}
	chat := r.ctrl.Snapshot()
	path, err := export.ExportToFile(&chat, exporter, opts)
	if err != nil {
		r.out.notice(err.Error())
		return
	}
	r.out.muted("Exported to %s", path)
}

const replHelp = `# Commands

| command | action |
|---|---|
| ` + "`/new`" + ` | start a new chat |
| ` + "`/chats`" + ` | list recent chats |
| ` + "`/open <n or id>`" + ` | open a chat |
| ` + "`/delete [n or id]`" + ` | delete a chat, the current one by default |
| ` + "`/bookmark [id]`" + ` | toggle the bookmark of the latest answer |
| ` + "`/regenerate`" + ` | ask the last question again |
| ` + "`/show`" + ` | print the current chat |
| ` + "`/thinking`" + ` | show or hide the model's reasoning |
| ` + "`/export [markdown, html or json]`" + ` | save the chat to a file |
| ` + "`/quit`" + ` | leave |

Ctrl+C cancels a running request. Ctrl+D leaves.
`

func (r *repl) help() {
	if !r.out.color {
		fmt.Fprint(r.out.w, replHelp)
		return
	}
	tr, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(r.out.width))
	if err == nil {
		if s, err := tr.Render(replHelp); err == nil {
			fmt.Fprint(r.out.w, s)
			return
		}
	}
	fmt.Fprint(r.out.w, replHelp)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
