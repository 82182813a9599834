// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/quranchat-tui/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the configuration",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration (token redacted)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				out := cmd.OutOrStdout()
				safe := a.cfg.Clone()
				if safe.Auth.Token != "" {
					safe.Auth.Token = "[REDACTED]"
				}
				return a.emit(out, safe, func() error {
					fmt.Fprintln(out, a.cfg.String())
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one value, e.g. reveal.chunk_size",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if strings.EqualFold(args[0], "auth.token") {
					return usageError("auth.token is not printed; use 'quranchat status'")
				}
				v, err := a.cfg.Get(args[0])
				if err != nil {
					return usageError("%s", err)
				}
				out := cmd.OutOrStdout()
				return a.emit(out, map[string]any{args[0]: v}, func() error {
					fmt.Fprintln(out, v)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Change one value in the config file",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := a.configFile()
				if err != nil {
					return err
				}
				// Start from the file alone so environment overrides are
				// not written back.
				cfg := config.Default()
				if _, err := os.Stat(path); err == nil {
					if err := config.LoadTOML(cfg, path); err != nil {
						return err
					}
				}
				if err := cfg.Set(args[0], args[1]); err != nil {
					return usageError("%s", err)
				}
				cfg.SetDefaults()
				if err := cfg.Validate(); err != nil {
					return usageError("%s", err)
				}
				if err := config.SaveTOML(cfg, path); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				return a.emit(out, map[string]string{"key": args[0], "value": args[1], "path": path}, func() error {
					fmt.Fprintf(out, "Set %s = %s in %s\n", args[0], args[1], path)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "keys",
			Short: "List every settable key",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				out := cmd.OutOrStdout()
				keys := config.Keys()
				return a.emit(out, keys, func() error {
					fmt.Fprintln(out, strings.Join(keys, "\n"))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file location",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				path, err := a.configFile()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				return a.emit(out, map[string]string{"path": path}, func() error {
					fmt.Fprintln(out, path)
					return nil
				})
			},
		},
	)
	return cmd
}

// configFile returns the TOML file config set writes to.
func (a *app) configFile() (string, error) {
	if a.configPath == "" {
		return config.ConfigPathTOML()
	}
	if strings.HasSuffix(a.configPath, ".json") {
		return "", errors.New("config set writes TOML; convert the JSON config first")
	}
	return a.configPath, nil
}
