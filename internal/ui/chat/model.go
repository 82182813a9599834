// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/quranchat-tui/internal/chatapi"
	"github.com/jeranaias/quranchat-tui/internal/export"
	"github.com/jeranaias/quranchat-tui/internal/model"
	"github.com/jeranaias/quranchat-tui/internal/render"
	"github.com/jeranaias/quranchat-tui/internal/session"
	"github.com/jeranaias/quranchat-tui/internal/ui/styles"
)

// LoginHint is shown when the credential was rejected.
const LoginHint = "Signed out. Run `quranchat login --token <token>` in another terminal."

// =============================================================================
// CHAT MODEL
// =============================================================================

type viewMode int

const (
	modeChat viewMode = iota
	modeList
	modeHelp
)

// Options configures the chat view.
type Options struct {
	Context      context.Context
	Renderer     *render.Renderer
	ShowThinking bool
	ShowSources  bool
	ListLimit    int
	ExportDir    string
	Logger       *zap.Logger

	// Verses, when set, supplies a verse for the empty-chat welcome.
	Verses VerseSource
}

// VerseSource returns a verse picked by the service.
type VerseSource interface {
	RandomVerse(ctx context.Context) (*chatapi.Verse, error)
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	ctrl     *session.Controller
	theme    *styles.Theme
	keys     KeyMap
	renderer *render.Renderer
	logger   *zap.Logger
	ctx      context.Context
	opts     Options

	// UI Components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	help     help.Model

	// Dimensions
	width  int
	height int
	ready  bool

	mode viewMode

	// Chat list
	chats     []model.ChatSummary
	listIndex int

	// Message selection for bookmarks, empty means the latest answer
	selected string

	showThinking bool
	showSources  bool
	ticking      bool

	status    string
	statusErr bool
	helpView  string

	verse *chatapi.Verse
}

// New creates the chat view for ctrl.
func New(ctrl *session.Controller, theme *styles.Theme, opts Options) Model {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Renderer == nil {
		opts.Renderer = render.New(render.DefaultOptions())
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}
	if theme == nil {
		theme = styles.DefaultTheme()
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about a verse, a hadith or a topic..."
	ti.CharLimit = 4096
	ti.PromptStyle = theme.InputPrompt
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.StatusBusy

	return Model{
		ctrl:         ctrl,
		theme:        theme,
		keys:         DefaultKeyMap(),
		renderer:     opts.Renderer,
		logger:       opts.Logger,
		ctx:          opts.Context,
		opts:         opts,
		input:        ti,
		spinner:      sp,
		help:         help.New(),
		showThinking: opts.ShowThinking,
		showSources:  opts.ShowSources,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.verseCmd())
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.ctrl.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case logChangedMsg, revealDoneMsg:
		m.refresh()
		return m, nil

	case revealTickMsg:
		return m.handleRevealTick()

	case SendDoneMsg:
		return m.handleSendDone(msg)

	case ChatLoadedMsg:
		return m.handleChatLoaded(msg)

	case ChatsListedMsg:
		if msg.Err != nil {
			m.setError("Could not load chats", msg.Err)
			return m, nil
		}
		m.chats = msg.Chats
		if m.listIndex >= len(m.chats) {
			m.listIndex = max(len(m.chats)-1, 0)
		}
		return m, nil

	case ChatDeletedMsg:
		if msg.Err != nil {
			m.setError("Could not delete chat", msg.Err)
			return m, nil
		}
		m.chats = m.ctrl.Chats()
		if m.listIndex >= len(m.chats) {
			m.listIndex = max(len(m.chats)-1, 0)
		}
		m.setStatus("Chat deleted")
		m.refresh()
		return m, nil

	case VerseMsg:
		if msg.Err != nil {
			m.logger.Debug("random verse unavailable", zap.Error(msg.Err))
			return m, nil
		}
		m.verse = msg.Verse
		m.refresh()
		return m, nil

	case ExportDoneMsg:
		if msg.Err != nil {
			m.setError("Export failed", msg.Err)
		} else {
			m.setStatus("Exported to " + msg.Path)
		}
		return m, nil

	case AuthRequiredMsg:
		m.status = LoginHint
		m.statusErr = true
		return m, nil

	case TokenChangedMsg:
		if msg.OK && m.ctrl.AuthRequired() {
			m.ctrl.ResumeAuth()
			m.setStatus("Signed in")
		}
		return m, nil
	}

	return m, nil
}

// =============================================================================
// HANDLERS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	// header, input border and line, status bar
	vh := max(msg.Height-4, 3)
	if !m.ready {
		m.viewport = viewport.New(msg.Width, vh)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = vh
	}
	m.input.Width = max(msg.Width-4, 10)
	m.help.Width = msg.Width
	m.helpView = renderHelp(m.keys, m.theme.IsDark, msg.Width)
	m.refresh()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}
	if key.Matches(msg, m.keys.Help) {
		if m.mode == modeHelp {
			m.mode = modeChat
		} else {
			m.mode = modeHelp
		}
		return m, nil
	}

	switch m.mode {
	case modeHelp:
		if key.Matches(msg, m.keys.Close) {
			m.mode = modeChat
		}
		return m, nil
	case modeList:
		return m.handleListKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.NewChat):
		m.ctrl.NewChat()
		m.selected = ""
		m.setStatus("")
		m.refresh()
		return m, m.verseCmd()

	case key.Matches(msg, m.keys.Regenerate):
		if m.ctrl.Busy() {
			m.setStatus("Still waiting for the previous answer")
			return m, nil
		}
		m.setStatus("")
		return m, tea.Batch(m.regenerateCmd(), m.spinner.Tick)

	case key.Matches(msg, m.keys.Bookmark):
		id := m.bookmarkTarget()
		if id == "" {
			m.setStatus("Nothing to bookmark")
			return m, nil
		}
		if err := m.ctrl.ToggleBookmark(m.ctx, id); err != nil {
			m.setError("Cannot bookmark", err)
		}
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.SelectPrev):
		m.moveSelection(-1)
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.SelectNext):
		m.moveSelection(1)
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Thinking):
		m.showThinking = !m.showThinking
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.Export):
		return m, m.exportCmd()

	case key.Matches(msg, m.keys.Chats):
		m.mode = modeList
		m.chats = m.ctrl.Chats()
		return m, m.listCmd()

	case key.Matches(msg, m.keys.Up):
		m.viewport.LineUp(1)
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.viewport.LineDown(1)
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Close):
		m.mode = modeChat
	case msg.String() == "up" || msg.String() == "k":
		if m.listIndex > 0 {
			m.listIndex--
		}
	case msg.String() == "down" || msg.String() == "j":
		if m.listIndex < len(m.chats)-1 {
			m.listIndex++
		}
	case key.Matches(msg, m.keys.Open):
		if len(m.chats) == 0 {
			return m, nil
		}
		if m.ctrl.Busy() {
			m.setStatus("Still waiting for the previous answer")
			return m, nil
		}
		m.mode = modeChat
		m.selected = ""
		return m, tea.Batch(m.loadCmd(m.chats[m.listIndex].ID), m.spinner.Tick)
	case key.Matches(msg, m.keys.Delete):
		if len(m.chats) == 0 {
			return m, nil
		}
		return m, m.deleteCmd(m.chats[m.listIndex].ID)
	}
	return m, nil
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if m.ctrl.AuthRequired() {
		m.status = LoginHint
		m.statusErr = true
		return m, nil
	}
	if m.ctrl.Busy() {
		m.setStatus("Still waiting for the previous answer")
		return m, nil
	}
	m.input.Reset()
	m.selected = ""
	m.setStatus("")
	return m, tea.Batch(m.sendCmd(text), m.spinner.Tick)
}

func (m Model) handleSendDone(msg SendDoneMsg) (tea.Model, tea.Cmd) {
	err := msg.Err
	switch {
	case err == nil:
	case errors.Is(err, session.ErrBusy):
		// Another request won the race; hand the draft back.
		if msg.Draft != "" && m.input.Value() == "" {
			m.input.SetValue(msg.Draft)
			m.input.CursorEnd()
		}
		m.setStatus("Still waiting for the previous answer")
		return m, nil
	case errors.Is(err, session.ErrSuperseded), session.IsValidation(err):
		err = nil
	case session.IsAuthError(err):
		m.status = LoginHint
		m.statusErr = true
	default:
		m.setError("Request failed", err)
	}
	m.refresh()
	if err != nil {
		return m, nil
	}
	return m, m.startReveal()
}

func (m Model) handleChatLoaded(msg ChatLoadedMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Err == nil:
		m.setStatus("")
	case errors.Is(msg.Err, session.ErrSuperseded):
	case session.IsGone(msg.Err):
		m.chats = m.ctrl.Chats()
		m.setStatus("That chat no longer exists. Started a new one.")
	case session.IsAuthError(msg.Err):
		m.status = LoginHint
		m.statusErr = true
	default:
		m.setError("Could not open chat", msg.Err)
	}
	m.refresh()
	m.viewport.GotoTop()
	return m, nil
}

func (m Model) handleRevealTick() (tea.Model, tea.Cmd) {
	running := m.ctrl.Reveals().Tick()
	m.refresh()
	if running == 0 {
		m.ticking = false
		return m, nil
	}
	return m, m.tick()
}

// startReveal begins ticking when a reveal is running and no tick loop is.
func (m *Model) startReveal() tea.Cmd {
	if m.ticking || m.ctrl.Reveals().Active() == 0 {
		return nil
	}
	m.ticking = true
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.ctrl.Reveals().Config().Interval, func(time.Time) tea.Msg {
		return revealTickMsg{}
	})
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) sendCmd(text string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		answer, err := ctrl.Send(ctx, text)
		return SendDoneMsg{Draft: text, Answer: answer, Err: err}
	}
}

// verseCmd fetches a welcome verse, or returns nil without a source.
func (m Model) verseCmd() tea.Cmd {
	src, ctx := m.opts.Verses, m.ctx
	if src == nil {
		return nil
	}
	return func() tea.Msg {
		v, err := src.RandomVerse(ctx)
		return VerseMsg{Verse: v, Err: err}
	}
}

func (m Model) regenerateCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		answer, err := ctrl.Regenerate(ctx)
		if errors.Is(err, session.ErrNothingToRegenerate) {
			err = nil
		}
		return SendDoneMsg{Answer: answer, Err: err}
	}
}

func (m Model) loadCmd(chatID string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return ChatLoadedMsg{ChatID: chatID, Err: ctrl.LoadChat(ctx, chatID)}
	}
}

func (m Model) listCmd() tea.Cmd {
	ctrl, ctx, limit := m.ctrl, m.ctx, m.opts.ListLimit
	return func() tea.Msg {
		chats, err := ctrl.ListChats(ctx, limit)
		return ChatsListedMsg{Chats: chats, Err: err}
	}
}

func (m Model) deleteCmd(chatID string) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return ChatDeletedMsg{ChatID: chatID, Err: ctrl.DeleteChat(ctx, chatID)}
	}
}

func (m Model) exportCmd() tea.Cmd {
	chat := m.ctrl.Snapshot()
	opts := export.DefaultOptions()
	opts.OutputDir = m.opts.ExportDir
	opts.Renderer = m.renderer
	opts.IncludeThinking = m.showThinking
	return func() tea.Msg {
		path, err := export.ExportToFile(&chat, export.NewMarkdownExporter(opts), opts)
		return ExportDoneMsg{Path: path, Err: err}
	}
}

// =============================================================================
// STATE HELPERS
// =============================================================================

// refresh re-renders the log into the viewport, following the bottom when
// the view was already there.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	msgs := m.ctrl.Messages()
	if m.selected != "" {
		if _, ok := findMessage(msgs, m.selected); !ok {
			m.selected = ""
		}
	}

	var content string
	if len(msgs) == 0 {
		content = m.renderWelcome()
	} else {
		parts := make([]string, 0, len(msgs))
		for _, msg := range msgs {
			parts = append(parts, m.renderMessage(msg, msg.ID == m.selected))
		}
		content = strings.Join(parts, "\n\n")
	}

	follow := m.viewport.AtBottom() || m.ctrl.Busy() || m.ticking
	m.viewport.SetContent(content)
	if follow {
		m.viewport.GotoBottom()
	}
}

// bookmarkTarget returns the selected message, or the latest confirmed
// answer when nothing is selected.
func (m Model) bookmarkTarget() string {
	if m.selected != "" {
		return m.selected
	}
	msgs := m.ctrl.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == model.RoleAssistant && msgs[i].Bookmarkable() {
			return msgs[i].ID
		}
	}
	return ""
}

func (m *Model) moveSelection(delta int) {
	var ids []string
	for _, msg := range m.ctrl.Messages() {
		if msg.Bookmarkable() {
			ids = append(ids, msg.ID)
		}
	}
	if len(ids) == 0 {
		m.selected = ""
		return
	}

	idx := len(ids)
	for i, id := range ids {
		if id == m.selected {
			idx = i
			break
		}
	}
	idx += delta
	switch {
	case idx < 0:
		idx = 0
	case idx >= len(ids):
		m.selected = ""
		return
	}
	m.selected = ids[idx]
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(prefix string, err error) {
	m.logger.Debug(prefix, zap.Error(err))
	m.status = fmt.Sprintf("%s: %v", prefix, err)
	m.statusErr = true
}

func findMessage(msgs []model.Message, id string) (model.Message, bool) {
	for _, msg := range msgs {
		if msg.ID == id {
			return msg, true
		}
	}
	return model.Message{}, false
}
