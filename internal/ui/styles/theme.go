// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme modes accepted by NewTheme.
const (
	ModeAuto  = "auto"
	ModeDark  = "dark"
	ModeLight = "light"
)

// Theme holds all the styled components for the application.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER AND STATUS
	// ==========================================================================

	Header       lipgloss.Style
	HeaderTitle  lipgloss.Style
	StatusBar    lipgloss.Style
	StatusBusy   lipgloss.Style
	StatusError  lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	NoticeLabel    lipgloss.Style
	MessageBody    lipgloss.Style
	Selected       lipgloss.Style
	Bookmark       lipgloss.Style
	Thinking       lipgloss.Style
	Timestamp      lipgloss.Style

	// ==========================================================================
	// CONTENT
	// ==========================================================================

	ScriptBlock  lipgloss.Style
	ScriptInline lipgloss.Style
	Strong       lipgloss.Style
	Emphasis     lipgloss.Style
	Citation     lipgloss.Style
	SourceChip   lipgloss.Style

	// ==========================================================================
	// INPUT AND LISTS
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	ListItem       lipgloss.Style
	ListSelected   lipgloss.Style
	ListMeta       lipgloss.Style
	Muted          lipgloss.Style
}

// NewTheme creates a theme. mode is "auto", "dark" or "light"; auto asks the
// terminal for its background.
func NewTheme(mode string) (*Theme, error) {
	var isDark bool
	switch strings.ToLower(mode) {
	case "", ModeAuto:
		isDark = termenv.HasDarkBackground()
	case ModeDark:
		isDark = true
	case ModeLight:
		isDark = false
	default:
		return nil, fmt.Errorf("unknown theme %q", mode)
	}
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark:       isDark,
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t, nil
}

// DefaultTheme returns an auto-detected theme.
func DefaultTheme() *Theme {
	t, _ := NewTheme(ModeAuto)
	return t
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Emerald).
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)
	t.StatusBusy = lipgloss.NewStyle().Foreground(Cyan)
	t.StatusError = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	t.ShortcutKey = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.ShortcutDesc = lipgloss.NewStyle().Foreground(TextMuted)

	t.UserLabel = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.AssistantLabel = lipgloss.NewStyle().Foreground(Emerald).Bold(true)
	t.NoticeLabel = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	t.MessageBody = lipgloss.NewStyle().Foreground(TextPrimary).PaddingLeft(2)
	t.Selected = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(Gold)
	t.Bookmark = lipgloss.NewStyle().Foreground(Gold)
	t.Thinking = lipgloss.NewStyle().Foreground(TextMuted).Italic(true).PaddingLeft(2)
	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)

	t.ScriptBlock = lipgloss.NewStyle().Foreground(Script).Bold(true)
	t.ScriptInline = lipgloss.NewStyle().Foreground(Script)
	t.Strong = lipgloss.NewStyle().Bold(true)
	t.Emphasis = lipgloss.NewStyle().Foreground(Emphasis).Italic(true)
	t.Citation = lipgloss.NewStyle().Foreground(Gold).Underline(true)
	t.SourceChip = lipgloss.NewStyle().
		Foreground(Gold).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay)
	t.InputPrompt = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.ListItem = lipgloss.NewStyle().Foreground(TextPrimary).PaddingLeft(2)
	t.ListSelected = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SelectionBg).
		Bold(true).
		PaddingLeft(2)
	t.ListMeta = lipgloss.NewStyle().Foreground(TextMuted)
	t.Muted = lipgloss.NewStyle().Foreground(TextMuted)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)

// ContentWidth returns the width available to message text.
func (t *Theme) ContentWidth() int {
	switch t.GetLayoutMode() {
	case LayoutNarrow:
		return max(t.Width-2, 20)
	case LayoutMedium:
		return t.Width - 4
	default:
		return min(t.Width-8, 120)
	}
}
