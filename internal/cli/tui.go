// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/quranchat-tui/internal/ui/chat"
	"github.com/jeranaias/quranchat-tui/internal/ui/styles"
)

// runTUI opens the full-screen chat.
func (a *app) runTUI(cmd *cobra.Command) error {
	if a.jsonOut {
		return usageError("--json is not supported by the interactive chat")
	}
	if !IsTTY() || !IsStdoutTTY() {
		return usageError("the chat needs a terminal; use 'quranchat ask' or 'quranchat chat' instead")
	}

	theme, err := styles.NewTheme(a.cfg.UI.Theme)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	archive := a.openArchive()
	if archive != nil {
		defer archive.Close()
	}

	notifier := chat.NewNotifier()
	ctrl := a.controller(notifier, archive, true)
	defer ctrl.Wait()

	m := chat.New(ctrl, theme, chat.Options{
		Context:      ctx,
		Renderer:     a.renderer,
		ShowThinking: a.cfg.UI.ShowThinking,
		ShowSources:  a.cfg.UI.ShowSources,
		ListLimit:    a.cfg.UI.ChatListLimit,
		Logger:       a.logger.Named("ui"),
		Verses:       a.client,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	notifier.Attach(p)

	if a.cfg.Auth.WatchTokenFile {
		go func() {
			err := a.creds.Watch(ctx, func(_ string, ok bool) {
				notifier.Send(chat.TokenChangedMsg{OK: ok})
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn("token watch stopped", zap.Error(err))
			}
		}()
	}

	a.logger.Info("tui starting", zap.String("server", a.cfg.Server.URL))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("chat ui: %w", err)
	}
	return nil
}
