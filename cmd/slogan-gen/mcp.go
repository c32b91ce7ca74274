package main

import (
	"github.com/spf13/cobra"

	"github.com/steveyegge/slogan-gen/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the generator as an MCP server over stdio",
	Long: `Serve the generator as a Model Context Protocol server on stdin/stdout.

Tools:
  generate_slogan   run a Writer-Reviewer session
  list_models       list models on the configured backend

Logs go to stderr so they do not corrupt the protocol stream.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := openService(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer cleanup()

		return mcpserver.NewServer(svc, version).ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
