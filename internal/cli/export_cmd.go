// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/quranchat-tui/internal/export"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		format       string
		outDir       string
		offline      bool
		stdout       bool
		openAfter    bool
		withThinking bool
		noMetadata   bool
	)
	cmd := &cobra.Command{
		Use:   "export <chat-id>",
		Short: "Export a chat as markdown, html or json",
		Example: `  quranchat export 42
  quranchat export 42 --format html --out ~/notes
  quranchat export 42 --offline --stdout`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := export.DefaultOptions()
			opts.OutputDir = outDir
			opts.OpenAfterExport = openAfter
			opts.IncludeThinking = withThinking
			opts.IncludeMetadata = !noMetadata
			opts.Renderer = a.renderer
			if a.cfg.UI.Theme == "light" {
				opts.Theme = "light"
			}

			exporter, err := export.ForFormat(format, opts)
			if err != nil {
				return usageError("%s", err)
			}
			c, err := a.fetchChat(cmd.Context(), args[0], offline)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if stdout {
				data, err := exporter.Export(&c)
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}

			path, err := export.ExportToFile(&c, exporter, opts)
			if err != nil {
				return err
			}
			return a.emit(out, map[string]string{"path": path, "format": strings.ToLower(format)}, func() error {
				fmt.Fprintf(out, "Exported to %s\n", path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "output format: "+strings.Join(export.Formats, ", "))
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	cmd.Flags().BoolVar(&offline, "offline", false, "export from the local archive")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "write to stdout instead of a file")
	cmd.Flags().BoolVar(&openAfter, "open", false, "open the file after exporting")
	cmd.Flags().BoolVar(&withThinking, "thinking", false, "include the model's reasoning")
	cmd.Flags().BoolVar(&noMetadata, "no-metadata", false, "omit the metadata header")
	return cmd
}
