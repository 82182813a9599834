// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/quranchat-tui/internal/devserver"
	"github.com/jeranaias/quranchat-tui/internal/logging"
)

func newDevserverCmd(a *app) *cobra.Command {
	var (
		addr   string
		tokens []string
		delay  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run a local chat service with canned answers",
		Long: `Devserver serves the chat API from memory with canned answers that carry
citations. Point the client at it with --server http://127.0.0.1:8000 and log
in with one of the accepted tokens.`,
		Example: `  quranchat devserver --token dev
  quranchat devserver --addr :9000 --token alice --token bob --delay 2s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(tokens) == 0 {
				return usageError("at least one --token is required")
			}
			// The dev server always logs requests to stderr.
			logger, closeLog, err := logging.New(logging.Options{
				Level:  a.cfg.Log.Level,
				Stderr: cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			defer closeLog()

			owners := make(map[string]string, len(tokens))
			for _, t := range tokens {
				owners[t] = t
			}
			srv := devserver.New(devserver.Options{
				Tokens: owners,
				Delay:  delay,
				Logger: logger.Named("devserver"),
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			fmt.Fprintf(cmd.OutOrStdout(), "Serving the dev chat API on http://%s (Ctrl+C to stop)\n", addr)
			if err := devserver.ListenAndServe(ctx, addr, srv); err != nil {
				logger.Error("devserver stopped", zap.Error(err))
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", devserver.DefaultAddr, "listen address")
	cmd.Flags().StringArrayVar(&tokens, "token", nil, "accepted bearer token (repeatable)")
	cmd.Flags().DurationVar(&delay, "delay", 0, "artificial answer latency")
	return cmd
}
