// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/quranchat-tui/internal/chatapi"
)

func newLoginCmd(a *app) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the access token for the chat service",
		Long: `Login writes the bearer token to the token file (mode 0600). A running
chat notices the new token and resumes.

Without --token the token is read from the terminal without echo, or from
stdin when stdin is not a terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if token == "" {
				var err error
				if token, err = promptToken(cmd); err != nil {
					return err
				}
			}
			if strings.TrimSpace(token) == "" {
				return usageError("empty token")
			}
			if err := a.creds.Save(token); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, map[string]string{"token_file": a.creds.Path()}, func() error {
				fmt.Fprintf(out, "Token saved to %s\n", a.creds.Path())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "bearer token")
	return cmd
}

func promptToken(cmd *cobra.Command) (string, error) {
	if IsTTY() {
		fmt.Fprint(cmd.ErrOrStderr(), "Token: ")
		tok, err := readSecret()
		fmt.Fprintln(cmd.ErrOrStderr())
		return tok, err
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.creds.Clear(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, map[string]bool{"logged_out": true}, func() error {
				fmt.Fprintln(out, "Logged out.")
				return nil
			})
		},
	}
}

// StatusData is the --json payload of the status command.
type StatusData struct {
	Server        string `json:"server"`
	Reachable     bool   `json:"reachable"`
	ServerError   string `json:"server_error,omitempty"`
	HasToken      bool   `json:"has_token"`
	TokenValid    *bool  `json:"token_valid"`
	TokenFile     string `json:"token_file"`
	Archive       string `json:"archive,omitempty"`
	ConfigVersion string `json:"config_version"`
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check the service and the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			st := StatusData{
				Server:        a.cfg.Server.URL,
				TokenFile:     a.creds.Path(),
				ConfigVersion: a.cfg.Version,
			}
			if a.cfg.Storage.ArchiveEnabled {
				st.Archive = a.cfg.Storage.ArchivePath
			}
			if err := a.client.Health(ctx); err != nil {
				st.ServerError = err.Error()
			} else {
				st.Reachable = true
			}
			_, st.HasToken = a.creds.Token()
			if st.Reachable && st.HasToken {
				// Listing a single chat is the cheapest authenticated call.
				_, err := a.client.ListChats(ctx, 1)
				if err == nil || chatapi.IsUnauthorized(err) {
					valid := err == nil
					st.TokenValid = &valid
				}
			}

			out := cmd.OutOrStdout()
			return a.emit(out, st, func() error {
				p := newPrinter(out, a.cfg.UI.Theme, a.renderer)
				if st.Reachable {
					fmt.Fprintf(out, "Server:  %s (reachable)\n", st.Server)
				} else {
					fmt.Fprintf(out, "Server:  %s (unreachable: %s)\n", st.Server, st.ServerError)
				}
				switch {
				case !st.HasToken:
					fmt.Fprintln(out, "Token:   none, run 'quranchat login'")
				case st.TokenValid == nil:
					fmt.Fprintln(out, "Token:   present (not checked)")
				case *st.TokenValid:
					fmt.Fprintln(out, "Token:   valid")
				default:
					fmt.Fprintln(out, "Token:   rejected, run 'quranchat login'")
				}
				if st.Archive != "" {
					p.muted("Archive: %s", st.Archive)
				}
				return nil
			})
		},
	}
}
