// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newRenderCmd(a *app) *cobra.Command {
	var styled bool
	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Print the block and span structure of a message",
		Long: `Render runs a text through the message renderer and prints the resulting
document as JSON. The text is read from the file, or from stdin when no file
is given. With --styled the text is printed the way the chat shows it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if len(args) == 1 {
				data, err = os.ReadFile(args[0])
			} else {
				data, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			out := cmd.OutOrStdout()
			if styled {
				newPrinter(out, a.cfg.UI.Theme, a.renderer).content(string(data))
				return nil
			}
			doc := a.renderer.Render(string(data))
			return a.emit(out, doc, func() error {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(doc)
			})
		},
	}
	cmd.Flags().BoolVar(&styled, "styled", false, "print as the chat displays it")
	return cmd
}
