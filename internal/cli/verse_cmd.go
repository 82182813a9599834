// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/quranchat-tui/internal/chatapi"
	"github.com/jeranaias/quranchat-tui/internal/render"
)

// VerseData is the --json payload of the verse command.
type VerseData struct {
	chatapi.Verse
	Document render.Document `json:"document"`
}

func newVerseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verse",
		Short: "Print a random verse from the service",
		Long: `Verse asks the service for a random verse and prints the Arabic text,
its translation and the reference. No login is needed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := a.client.RandomVerse(cmd.Context())
			if err != nil {
				return fmt.Errorf("random verse: %w", err)
			}

			out := cmd.OutOrStdout()
			data := VerseData{Verse: *v, Document: a.renderer.Render(v.Arabic)}
			return a.emit(out, data, func() error {
				p := newPrinter(out, a.cfg.UI.Theme, a.renderer)
				if v.Arabic != "" {
					p.content(v.Arabic)
					fmt.Fprintln(out)
				}
				if v.Translation != "" {
					p.content(v.Translation)
				}
				ref := v.Reference
				if v.Citation != nil {
					ref = v.Citation.String()
				}
				p.muted("%s", ref)
				return nil
			})
		},
	}
}
