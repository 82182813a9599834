// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// maxStdinQuestion bounds a question read from a pipe.
const maxStdinQuestion = 64 * 1024

func newAskCmd(a *app) *cobra.Command {
	var (
		chatID       string
		showThinking bool
	)
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question and print the answer",
		Long: `Ask sends one question and prints the answer. Without arguments the
question is read from stdin when stdin is not a terminal.`,
		Example: `  quranchat ask "What does the Quran say about patience?"
  quranchat ask --chat 42 "And about gratitude?"
  echo "Who was Maryam?" | quranchat ask --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			if strings.TrimSpace(question) == "" && !IsTTY() {
				data, err := io.ReadAll(io.LimitReader(cmd.InOrStdin(), maxStdinQuestion))
				if err != nil {
					return fmt.Errorf("read question: %w", err)
				}
				question = string(data)
			}
			return a.ask(cmd, question, chatID, showThinking)
		},
	}
	cmd.Flags().StringVar(&chatID, "chat", "", "continue an existing chat")
	cmd.Flags().BoolVar(&showThinking, "thinking", false, "print the model's reasoning")
	return cmd
}

func (a *app) ask(cmd *cobra.Command, question, chatID string, showThinking bool) error {
	ctx := cmd.Context()
	archive := a.openArchive()
	if archive != nil {
		defer archive.Close()
	}
	ctrl := a.controller(nil, archive, false)
	defer ctrl.Wait()

	if chatID != "" {
		if err := ctrl.LoadChat(ctx, chatID); err != nil {
			return fmt.Errorf("open chat %s: %w", chatID, err)
		}
	}

	msg, err := ctrl.Send(ctx, question)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	return a.emit(out, answerData(ctrl.ChatID(), msg, a.renderer), func() error {
		p := newPrinter(out, a.cfg.UI.Theme, a.renderer)
		p.answer(msg, showThinking || a.cfg.UI.ShowThinking)
		if chatID == "" {
			fmt.Fprintln(out)
			p.muted("chat %s", ctrl.ChatID())
		}
		return nil
	})
}
