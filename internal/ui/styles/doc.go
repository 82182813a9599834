// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the quranchat TUI.

All colors use Lip Gloss AdaptiveColor, so one palette serves light and dark
terminals. The theme mode comes from the ui.theme setting: "auto" asks the
terminal for its background through termenv, "dark" and "light" force it.

# Color System (colors.go)

  - Emerald - brand color and assistant label
  - Cyan - user label, info and key hints
  - Gold - citations, source chips and bookmarks
  - Script - Arabic script blocks
  - Rose - errors and connectivity notices

# Theme (theme.go)

Theme groups the lipgloss styles used by the chat view: message labels,
content styles for each block and span kind, the input area, the chat list
and the status bar.

	theme, err := styles.NewTheme(cfg.UI.Theme)
	theme.SetSize(width, height)
	body := theme.ScriptBlock.Render(block.Text)
*/
package styles
