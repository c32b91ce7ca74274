package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/slogan-gen/internal/config"
	"github.com/steveyegge/slogan-gen/internal/output"
	"github.com/steveyegge/slogan-gen/internal/storage"
	"github.com/steveyegge/slogan-gen/internal/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded sessions",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent sessions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		reasonFlag, _ := cmd.Flags().GetString("reason")

		reason := types.CompletionReason(reasonFlag)
		if reason != "" && !reason.IsValid() {
			return fmt.Errorf("--reason must be %s, %s or %s (got %q)",
				types.ReasonApproved, types.ReasonRoundLimitReached, types.ReasonError, reasonFlag)
		}

		return withStore(cmd.Context(), func(store storage.Storage) error {
			sessions, err := store.ListSessions(cmd.Context(), limit, reason)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions recorded")
				return nil
			}
			for _, s := range sessions {
				fmt.Fprintln(out, output.FormatSummary(s))
			}
			return nil
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a recorded session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return withStore(cmd.Context(), func(store storage.Storage) error {
			session, err := store.GetSession(cmd.Context(), args[0])
			if err != nil {
				return notFound(err, args[0])
			}
			if asJSON {
				return output.WriteJSON(cmd.OutOrStdout(), session)
			}
			fmt.Fprint(cmd.OutOrStdout(), output.FormatSession(session, true))
			return nil
		})
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a recorded session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(store storage.Storage) error {
			if err := store.DeleteSession(cmd.Context(), args[0]); err != nil {
				return notFound(err, args[0])
			}
			green := color.New(color.FgGreen).SprintFunc()
			fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted session %s\n", green("✓"), args[0])
			return nil
		})
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention policy now",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(store storage.Storage) error {
			if !cfg.Storage.Retention.Enabled() {
				fmt.Fprintln(cmd.OutOrStdout(), "Retention is disabled (max_age_hours is 0); nothing to prune")
				return nil
			}
			n, err := storage.ApplyRetention(cmd.Context(), store, cfg.Storage.Retention, timeNow())
			if err != nil {
				return err
			}
			green := color.New(color.FgGreen).SprintFunc()
			fmt.Fprintf(cmd.OutOrStdout(), "%s Pruned %d sessions\n", green("✓"), n)
			return nil
		})
	},
}

// withStore opens the configured store for the duration of fn.
func withStore(ctx context.Context, fn func(storage.Storage) error) error {
	if cfg.Storage.Kind == config.StoreNone {
		return fmt.Errorf("session history is disabled (storage.kind is %q)", config.StoreNone)
	}
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func notFound(err error, id string) error {
	if errors.Is(err, types.ErrNotFound) {
		return fmt.Errorf("session %s not found", id)
	}
	return err
}

func init() {
	historyListCmd.Flags().Int("limit", 20, "maximum sessions to list (0 for all)")
	historyListCmd.Flags().String("reason", "", "only list sessions with this completion reason")
	historyShowCmd.Flags().Bool("json", false, "print the session as JSON")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}
