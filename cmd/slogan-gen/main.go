package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/slogan-gen/internal/config"
	"github.com/steveyegge/slogan-gen/internal/generator"
	"github.com/steveyegge/slogan-gen/internal/iterative"
	"github.com/steveyegge/slogan-gen/internal/logging"
	"github.com/steveyegge/slogan-gen/internal/storage"
)

// Set at build time with -ldflags "-X main.version=..."
var version = "0.1.0"

var (
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger

	// timeNow is replaced in tests
	timeNow = time.Now
)

var rootCmd = &cobra.Command{
	Use:   "slogan-gen",
	Short: "AI-powered slogan generation using Writer-Reviewer collaboration",
	Long: `slogan-gen drafts a slogan with a writer model and refines it with a
reviewer model until the reviewer approves or the turn budget runs out.

Configuration is read from the YAML file (see 'slogan-gen config show'),
then from OLLAMA_* / SLOGAN_* / ANTHROPIC_* environment variables, then
from flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.LogLevel = logLevel
		}
		level, err := logging.ParseLevel(loaded.LogLevel)
		if err != nil {
			return err
		}
		cfg = loaded
		logger = logging.New(level)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $SLOGAN_CONFIG or the user config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
}

// openService builds the generator service from cfg. The returned cleanup
// closes storage; it is never nil.
func openService(ctx context.Context, collector iterative.MetricsCollector) (*generator.Service, func(), error) {
	client, err := generator.NewClient(cfg, logger)
	if err != nil {
		return nil, func() {}, err
	}

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		// History is optional; generation still works without it
		logger.Warn("session history disabled", "error", err)
		store = nil
	}
	cleanup := func() {
		if store != nil {
			store.Close()
		}
	}

	svc, err := generator.New(generator.Options{
		Config:    cfg,
		Client:    client,
		Store:     store,
		Collector: collector,
		Logger:    logger,
	})
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return svc, cleanup, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}
}
