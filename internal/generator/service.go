// Package generator wires configuration, the AI backends, the iteration
// engine and session storage into one entry point shared by the CLI, the
// HTTP API, the MCP server and the REPL.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/steveyegge/slogan-gen/internal/ai"
	"github.com/steveyegge/slogan-gen/internal/config"
	"github.com/steveyegge/slogan-gen/internal/iterative"
	"github.com/steveyegge/slogan-gen/internal/storage"
	"github.com/steveyegge/slogan-gen/internal/types"
)

// NewBackend builds the backend selected by cfg.Backend.
func NewBackend(cfg *config.Config) (ai.Backend, error) {
	switch cfg.Backend {
	case config.BackendOllama:
		return ai.NewOllamaBackend(cfg.BaseURL, &http.Client{}), nil
	case config.BackendAnthropic:
		return ai.NewAnthropicBackend(cfg.AnthropicAPIKey)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// NewClient builds an ai.Client for cfg with its retry, concurrency and
// rate limits.
func NewClient(cfg *config.Config, logger *slog.Logger) (*ai.Client, error) {
	backend, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	retry := ai.DefaultRetryConfig()
	retry.Timeout = cfg.Timeout()
	return ai.NewClient(backend, ai.ClientConfig{
		Model:              cfg.ActiveModel(),
		Temperature:        cfg.Temperature,
		MaxTokens:          cfg.MaxTokens,
		Retry:              retry,
		MaxConcurrentCalls: cfg.MaxConcurrent,
		RateLimit:          cfg.RateLimit,
		Logger:             logger,
	})
}

// Options configures a Service.
type Options struct {
	Config    *config.Config
	Client    *ai.Client
	Store     storage.Storage            // optional
	Collector iterative.MetricsCollector // optional
	Logger    *slog.Logger
	Clock     func() time.Time
}

// Service runs generation sessions and records them.
type Service struct {
	cfg       *config.Config
	client    *ai.Client
	store     storage.Storage
	collector iterative.MetricsCollector
	detector  iterative.ApprovalDetector
	logger    *slog.Logger
	clock     func() time.Time
}

// New creates a Service. Config and Client are required.
func New(opts Options) (*Service, error) {
	if opts.Config == nil || opts.Client == nil {
		return nil, fmt.Errorf("config and client are required")
	}
	detector, err := iterative.NewPhraseDetector(opts.Config.ApprovalPhrase)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		cfg:       opts.Config,
		client:    opts.Client,
		store:     opts.Store,
		collector: opts.Collector,
		detector:  detector,
		logger:    logger,
		clock:     clock,
	}, nil
}

// Request is one generation request. Zero fields take configured defaults.
type Request struct {
	Input    string
	Model    string
	MaxTurns int
}

// Client returns the AI client.
func (s *Service) Client() *ai.Client { return s.client }

// Store returns the session store, or nil when history is disabled.
func (s *Service) Store() storage.Storage { return s.store }

// Config returns the service configuration.
func (s *Service) Config() *config.Config { return s.cfg }

// DefaultModel is the model used when a request names none.
func (s *Service) DefaultModel() string { return s.cfg.ActiveModel() }

// Generate runs one session to completion. Capability failures do not
// produce an error: they complete the session with ReasonError. Storing the
// session is best effort.
func (s *Service) Generate(ctx context.Context, req Request) (*types.Session, error) {
	model := req.Model
	if model == "" {
		model = s.DefaultModel()
	}
	maxTurns := req.MaxTurns
	if maxTurns == 0 {
		maxTurns = s.cfg.MaxTurns
	}

	engine := iterative.NewEngine(iterative.Config{
		Detector:  s.detector,
		Collector: s.collector,
		Logger:    s.logger,
		Clock:     s.clock,
		Model:     model,
	})

	writer := ai.NewWriter(s.client, model)
	reviewer := ai.NewReviewer(s.client, model, s.cfg.ApprovalPhrase)

	session, err := engine.Run(ctx, req.Input, maxTurns, writer, reviewer)
	if err != nil {
		return nil, err
	}

	if s.store != nil {
		// Detached so a canceled request still records its session
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := s.store.SaveSession(saveCtx, session); err != nil {
			s.logger.Warn("failed to store session", "session", session.ID(), "error", err)
		}
	}
	return session, nil
}

// Prune applies the configured retention policy to the store.
func (s *Service) Prune(ctx context.Context) (int, error) {
	n, err := storage.ApplyRetention(ctx, s.store, s.cfg.Storage.Retention, s.clock())
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	if n > 0 {
		s.logger.Info("pruned sessions", "count", n)
	}
	return n, nil
}

// RunRetention prunes every interval until ctx is done.
func (s *Service) RunRetention(ctx context.Context, interval time.Duration) {
	if s.store == nil || !s.cfg.Storage.Retention.Enabled() {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Prune(ctx); err != nil {
				s.logger.Warn("retention pass failed", "error", err)
			}
		}
	}
}
