package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/slogan-gen/internal/config"
	"github.com/steveyegge/slogan-gen/internal/generator"
	"github.com/steveyegge/slogan-gen/internal/output"
	"github.com/steveyegge/slogan-gen/internal/types"
)

var generateCmd = &cobra.Command{
	Use:   "generate INPUT",
	Short: "Generate a slogan for a product or service",
	Long: `Generate a slogan through Writer-Reviewer collaboration.

The writer drafts a slogan, the reviewer critiques it, and the writer
revises until the reviewer approves or the turn budget is spent.

Examples:
  slogan-gen generate "eco-friendly water bottle"
  slogan-gen generate "coffee shop" --max-turns 3 --verbose
  slogan-gen generate "fitness app" -o result.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, _ := cmd.Flags().GetString("model")
		maxTurns, _ := cmd.Flags().GetInt("max-turns")
		verbose, _ := cmd.Flags().GetBool("verbose")
		outPath, _ := cmd.Flags().GetString("output")
		noHistory, _ := cmd.Flags().GetBool("no-history")

		input := strings.TrimSpace(args[0])
		if input == "" {
			return fmt.Errorf("input cannot be empty")
		}
		if maxTurns != 0 && (maxTurns < types.MinRoundBudget || maxTurns > types.MaxRoundBudget) {
			return fmt.Errorf("--max-turns must be between %d and %d (got %d)",
				types.MinRoundBudget, types.MaxRoundBudget, maxTurns)
		}
		if noHistory {
			cfg.Storage.Kind = config.StoreNone
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc, cleanup, err := openService(ctx, nil)
		if err != nil {
			return err
		}
		defer cleanup()

		if model == "" {
			model = svc.DefaultModel()
		}
		warnIfUnavailable(ctx, svc, model)

		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Printf("🚀 Generating slogan for: %s\n", cyan(input))
		fmt.Printf("%s\n\n", gray(fmt.Sprintf("Using model: %s", model)))

		session, err := svc.Generate(ctx, generator.Request{
			Input:    input,
			Model:    model,
			MaxTurns: maxTurns,
		})
		if err != nil {
			return err
		}

		fmt.Print(output.FormatSession(session, verbose))

		if outPath != "" {
			format, err := output.Save(outPath, session, verbose)
			if err != nil {
				return err
			}
			green := color.New(color.FgGreen).SprintFunc()
			if format == output.FormatJSON {
				fmt.Printf("\n%s\n", green(fmt.Sprintf("💾 Session saved to %s (JSON format)", outPath)))
			} else {
				fmt.Printf("\n%s\n", green(fmt.Sprintf("💾 Results saved to %s", outPath)))
			}
		}

		if _, err := svc.Prune(ctx); err != nil {
			logger.Warn("retention pass failed", "error", err)
		}

		if reason, _ := session.CompletionReason(); reason == types.ReasonError {
			return fmt.Errorf("generation failed: %s", session.Fault())
		}
		return nil
	},
}

// warnIfUnavailable prints a warning when model is missing from the
// backend. Listing failures are left to the generation itself to report.
func warnIfUnavailable(ctx context.Context, svc *generator.Service, model string) {
	ok, err := svc.Client().HasModel(ctx, model)
	if err != nil || ok {
		return
	}
	yellow := color.New(color.FgYellow).SprintFunc()
	fmt.Fprintf(os.Stderr, "%s\n", yellow(fmt.Sprintf("⚠️  Model %q is not available on %s", model, svc.Client().Backend().Name())))
	fmt.Fprintf(os.Stderr, "%s\n\n", yellow("   Run 'slogan-gen models' to see available models"))
}

func init() {
	generateCmd.Flags().String("model", "", "model to use (default: configured model)")
	generateCmd.Flags().Int("max-turns", 0, "maximum writer-reviewer turns, 1-10 (default: configured max_turns)")
	generateCmd.Flags().BoolP("verbose", "v", false, "show every turn")
	generateCmd.Flags().StringP("output", "o", "", "save results to a file (.json for JSON, anything else for text)")
	generateCmd.Flags().Bool("no-history", false, "do not record this session")
	rootCmd.AddCommand(generateCmd)
}
