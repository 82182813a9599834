// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/quranchat-tui/internal/model"
	"github.com/jeranaias/quranchat-tui/internal/storage"
	"github.com/jeranaias/quranchat-tui/internal/util"
)

func newChatsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "List, show, delete and search chats",
	}
	cmd.AddCommand(
		newChatsListCmd(a),
		newChatsShowCmd(a),
		newChatsDeleteCmd(a),
		newChatsSearchCmd(a),
		newBookmarkCmd(a),
	)
	return cmd
}

func newChatsListCmd(a *app) *cobra.Command {
	var (
		limit   int
		offline bool
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recent chats",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				limit = a.cfg.UI.ChatListLimit
			}
			out := cmd.OutOrStdout()
			if offline {
				metas, err := withArchive(a, func(ar *storage.Archive) ([]storage.ChatMeta, error) {
					return ar.ListChats(cmd.Context(), limit)
				})
				if err != nil {
					return err
				}
				return a.emit(out, metas, func() error {
					fmt.Fprint(out, storage.FormatChatList(metas))
					return nil
				})
			}

			chats, err := a.client.ListChats(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return a.emit(out, chats, func() error {
				if len(chats) == 0 {
					fmt.Fprintln(out, "No chats yet.")
					return nil
				}
				for _, c := range chats {
					title := c.Title
					if title == "" {
						title = "Untitled chat"
					}
					fmt.Fprintf(out, "%s  %s  %s\n",
						util.PadRight(c.ID, 12),
						c.UpdatedAt.Local().Format("2006-01-02 15:04"),
						util.TruncateWidth(util.SingleLine(title), 50))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of chats (default from config)")
	cmd.Flags().BoolVar(&offline, "offline", false, "list the local archive instead of the service")
	return cmd
}

func newChatsShowCmd(a *app) *cobra.Command {
	var (
		offline      bool
		showThinking bool
	)
	cmd := &cobra.Command{
		Use:   "show <chat-id>",
		Short: "Print a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.fetchChat(cmd.Context(), args[0], offline)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, c, func() error {
				newPrinter(out, a.cfg.UI.Theme, a.renderer).transcript(c, showThinking)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "read the chat from the local archive")
	cmd.Flags().BoolVar(&showThinking, "thinking", false, "print the model's reasoning")
	return cmd
}

func newChatsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <chat-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a chat",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if err := a.client.DeleteChat(cmd.Context(), id); err != nil {
				return err
			}
			if _, err := withArchive(a, func(ar *storage.Archive) (struct{}, error) {
				return struct{}{}, ar.DeleteChat(cmd.Context(), id)
			}); err != nil && a.cfg.Storage.ArchiveEnabled {
				a.logger.Warn("archive delete failed", zap.String("chat_id", id), zap.Error(err))
			}
			out := cmd.OutOrStdout()
			return a.emit(out, map[string]string{"deleted": id}, func() error {
				fmt.Fprintf(out, "Deleted chat %s.\n", id)
				return nil
			})
		},
	}
}

func newChatsSearchCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the local archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			metas, err := withArchive(a, func(ar *storage.Archive) ([]storage.ChatMeta, error) {
				return ar.Search(cmd.Context(), args[0], limit)
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return a.emit(out, metas, func() error {
				fmt.Fprint(out, storage.FormatChatList(metas))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum results")
	return cmd
}

func newBookmarkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "bookmark <message-id>",
		Short: "Toggle the bookmark of a message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			state, err := a.client.ToggleBookmark(cmd.Context(), id)
			if err != nil {
				return err
			}
			if _, err := withArchive(a, func(ar *storage.Archive) (struct{}, error) {
				return struct{}{}, ar.SetBookmarked(cmd.Context(), id, state)
			}); err != nil && a.cfg.Storage.ArchiveEnabled {
				a.logger.Debug("archive bookmark update skipped", zap.Error(err))
			}
			out := cmd.OutOrStdout()
			return a.emit(out, map[string]any{"message_id": id, "bookmarked": state}, func() error {
				if state {
					fmt.Fprintf(out, "Bookmarked %s.\n", id)
				} else {
					fmt.Fprintf(out, "Removed bookmark from %s.\n", id)
				}
				return nil
			})
		},
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// withArchive opens the archive for one call. It fails when the archive is
// disabled.
func withArchive[T any](a *app, fn func(*storage.Archive) (T, error)) (T, error) {
	var zero T
	if !a.cfg.Storage.ArchiveEnabled {
		return zero, usageError("the local archive is disabled (storage.archive_enabled)")
	}
	ar, err := storage.Open(a.cfg.Storage.ArchivePath)
	if err != nil {
		return zero, err
	}
	defer ar.Close()
	return fn(ar.WithLogger(a.logger.Named("archive")))
}

// fetchChat loads a chat from the service and archives it, or reads it from
// the archive when offline is set.
func (a *app) fetchChat(ctx context.Context, id string, offline bool) (model.Chat, error) {
	if offline {
		return withArchive(a, func(ar *storage.Archive) (model.Chat, error) {
			return ar.LoadChat(ctx, id)
		})
	}
	c, err := a.client.FetchChat(ctx, id)
	if err != nil {
		return model.Chat{}, err
	}
	if a.cfg.Storage.ArchiveEnabled {
		if _, err := withArchive(a, func(ar *storage.Archive) (struct{}, error) {
			return struct{}{}, ar.SaveChat(ctx, *c)
		}); err != nil {
			a.logger.Warn("archive save failed", zap.String("chat_id", id), zap.Error(err))
		}
	}
	return *c, nil
}
