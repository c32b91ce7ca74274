package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/slogan-gen/internal/generator"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models available on the configured backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := generator.NewClient(cfg, logger)
		if err != nil {
			return err
		}

		models, err := client.Models(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list models from %s: %w", client.Backend().URL(), err)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		if len(models) == 0 {
			fmt.Printf("No models available on %s\n", client.Backend().URL())
			return nil
		}

		fmt.Printf("\n%s\n\n", cyan("📦 Available Models:"))
		def := cfg.ActiveModel()
		for i, m := range models {
			name := m.Name
			if name == def {
				fmt.Printf("  %2d. %s %s\n", i+1, green(name), gray("(default)"))
				continue
			}
			fmt.Printf("  %2d. %s\n", i+1, name)
		}
		fmt.Printf("\n%s Total: %d models\n", green("✓"), len(models))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
