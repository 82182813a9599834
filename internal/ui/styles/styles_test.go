// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTheme_Modes(t *testing.T) {
	dark, err := NewTheme("dark")
	require.NoError(t, err)
	assert.True(t, dark.IsDark)

	light, err := NewTheme("LIGHT")
	require.NoError(t, err)
	assert.False(t, light.IsDark)

	_, err = NewTheme("sepia")
	assert.Error(t, err)
}

func TestLayoutMode(t *testing.T) {
	tests := []struct {
		width int
		mode  LayoutMode
	}{
		{40, LayoutNarrow},
		{59, LayoutNarrow},
		{60, LayoutMedium},
		{99, LayoutMedium},
		{100, LayoutWide},
	}
	theme, err := NewTheme("dark")
	require.NoError(t, err)
	for _, tt := range tests {
		theme.SetSize(tt.width, 30)
		assert.Equal(t, tt.mode, theme.GetLayoutMode(), "width %d", tt.width)
	}
}

func TestContentWidth(t *testing.T) {
	theme, err := NewTheme("dark")
	require.NoError(t, err)

	theme.SetSize(10, 10)
	assert.Equal(t, 20, theme.ContentWidth())
	theme.SetSize(80, 10)
	assert.Equal(t, 76, theme.ContentWidth())
	theme.SetSize(200, 10)
	assert.Equal(t, 120, theme.ContentWidth())
}

func TestRenderHelpersKeepIndicators(t *testing.T) {
	tests := []struct {
		name   string
		render func(string) string
		want   string
	}{
		{"success", RenderSuccess, StatusIndicators.Success},
		{"error", RenderError, StatusIndicators.Error},
		{"warning", RenderWarning, StatusIndicators.Warning},
		{"info", RenderInfo, StatusIndicators.Info},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.render("done")
			assert.True(t, strings.Contains(out, tt.want+" done"))
		})
	}
}
