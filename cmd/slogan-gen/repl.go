package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/steveyegge/slogan-gen/internal/config"
	"github.com/steveyegge/slogan-gen/internal/repl"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive session",
	Long: `Start an interactive shell. Each line is a slogan request; slash
commands (/model, /turns, /verbose, /history, ...) adjust the session.
Type /help inside the shell for the full list.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := openService(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer cleanup()

		r, err := repl.New(&repl.Config{
			Service:     svc,
			HistoryFile: replHistoryPath(cfg),
		})
		if err != nil {
			return err
		}
		return r.Run(cmd.Context(), nil)
	},
}

// replHistoryPath keeps input history next to the session database, or next
// to the config file when sessions are not stored on disk.
func replHistoryPath(c *config.Config) string {
	if c.Storage.Kind == config.StoreSQLite && c.Storage.DBPath != "" {
		return filepath.Join(filepath.Dir(c.Storage.DBPath), "repl_history")
	}
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	return filepath.Join(filepath.Dir(path), "repl_history")
}

func init() {
	rootCmd.AddCommand(replCmd)
}
