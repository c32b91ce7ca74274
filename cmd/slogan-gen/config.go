package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steveyegge/slogan-gen/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}
		printConfig(cmd.OutOrStdout(), cfg, path)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Persist a setting to the config file",
	Long: fmt.Sprintf(`Persist a setting to the config file.

Keys: %s

Examples:
  slogan-gen config set model mistral:latest
  slogan-gen config set turns 3
  slogan-gen config set temp 0.9`, strings.Join(config.SettableKeys(), ", ")),
	Args: cobra.ExactArgs(2),
	// The file is edited on its own so environment overrides are not saved
	// and a currently invalid file can still be repaired
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}

		fileCfg := config.Default()
		if err := fileCfg.LoadFile(path); err != nil {
			return err
		}
		// Never written, but needed to validate an anthropic backend
		fileCfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")

		if err := fileCfg.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := fileCfg.Save(path); err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Fprintf(cmd.OutOrStdout(), "%s Set %s = %s in %s\n", green("✓"), strings.ToUpper(args[0]), args[1], path)
		return nil
	},
}

func printConfig(w io.Writer, c *config.Config, path string) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	row := func(name string, value any, note string) {
		if note != "" {
			fmt.Fprintf(w, "  %-22s %v %s\n", name+":", value, gray("("+note+")"))
			return
		}
		fmt.Fprintf(w, "  %-22s %v\n", name+":", value)
	}

	fmt.Fprintf(w, "\n%s\n", cyan("⚙️  Configuration"))
	fmt.Fprintf(w, "%s\n\n", gray("File: "+path))

	row("Backend", c.Backend, "ollama or anthropic")
	if c.Backend == config.BackendAnthropic {
		row("Anthropic Model", c.AnthropicModel, "")
		key := "not set"
		if c.AnthropicAPIKey != "" {
			key = "set"
		}
		row("Anthropic API Key", key, "ANTHROPIC_API_KEY")
	} else {
		row("Base URL", c.BaseURL, "")
		row("Model", c.ModelName, "")
	}
	row("Temperature", c.Temperature, "0.0-2.0")
	row("Max Tokens", c.MaxTokens, "1-4096")
	row("Timeout", fmt.Sprintf("%ds", c.TimeoutSeconds), "1-300")
	row("Max Turns", c.MaxTurns, "1-10")
	row("Approval Phrase", fmt.Sprintf("%q", c.ApprovalPhrase), "")
	row("Log Level", c.LogLevel, "")
	rate := "unlimited"
	if c.RateLimit > 0 {
		rate = fmt.Sprintf("%g/s", c.RateLimit)
	}
	row("Rate Limit", rate, "")
	row("Max Concurrent", c.MaxConcurrent, "1-100")

	fmt.Fprintf(w, "\n%s\n", cyan("💾 Storage"))
	row("Kind", c.Storage.Kind, "none, sqlite or redis")
	switch c.Storage.Kind {
	case config.StoreSQLite:
		row("DB Path", c.Storage.DBPath, "")
	case config.StoreRedis:
		row("Redis", fmt.Sprintf("%s/%d", c.Storage.RedisAddr, c.Storage.RedisDB), "")
	}
	retention := "keep forever"
	if c.Storage.Retention.Enabled() {
		retention = fmt.Sprintf("prune after %dh, keep newest %d", c.Storage.Retention.MaxAgeHours, c.Storage.Retention.Keep)
	}
	row("Retention", retention, "")

	fmt.Fprintf(w, "\n%s\n", cyan("🌐 Server"))
	row("Address", c.Server.Addr, "")
	row("Generation Timeout", fmt.Sprintf("%ds", c.Server.GenerationTimeoutSeconds), "1-3600")
	fmt.Fprintln(w)
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
