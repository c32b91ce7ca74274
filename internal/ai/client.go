package ai

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ClientConfig holds client configuration
type ClientConfig struct {
	Model       string  // Default model for completions
	Temperature float64 // Sampling temperature
	MaxTokens   int     // Token cap per completion

	Retry RetryConfig // Retry configuration (uses defaults if MaxRetries is 0)

	// MaxConcurrentCalls bounds in-flight backend calls (0 = unlimited)
	MaxConcurrentCalls int

	// RateLimit is the maximum calls per second (0 = unlimited)
	RateLimit float64

	Logger *slog.Logger
}

// Usage is the running token total of a Client.
type Usage struct {
	Calls        int64
	InputTokens  int64
	OutputTokens int64
}

// HealthStatus is the result of probing a backend.
type HealthStatus struct {
	Connected    bool
	URL          string
	ResponseTime time.Duration
	Error        string
}

// Client wraps a Backend with retries, a circuit breaker, a concurrency
// limit and a rate limit. It is safe for concurrent use.
type Client struct {
	backend     Backend
	model       string
	temperature float64
	maxTokens   int
	retry       RetryConfig
	breaker     *CircuitBreaker
	sem         *semaphore.Weighted
	limiter     *rate.Limiter
	logger      *slog.Logger

	mu    sync.Mutex
	usage Usage
}

// NewClient creates a Client for backend.
func NewClient(backend Backend, cfg ClientConfig) (*Client, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if cfg.MaxTokens <= 0 {
		return nil, fmt.Errorf("max tokens must be positive (got %d)", cfg.MaxTokens)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("backend", backend.Name())

	retry := cfg.Retry
	if retry.MaxRetries == 0 {
		timeout := retry.Timeout
		retry = DefaultRetryConfig()
		if timeout > 0 {
			retry.Timeout = timeout
		}
	}

	c := &Client{
		backend:     backend,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		retry:       retry,
		logger:      logger,
	}

	if retry.CircuitBreakerEnabled {
		c.breaker = NewCircuitBreaker(retry.FailureThreshold, retry.SuccessThreshold, retry.OpenTimeout, logger)
	}
	if cfg.MaxConcurrentCalls > 0 {
		c.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrentCalls))
	}
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	logger.Debug("ai client initialized",
		"model", cfg.Model, "max_concurrent", cfg.MaxConcurrentCalls, "rate_limit", cfg.RateLimit,
		"circuit_breaker", retry.CircuitBreakerEnabled)

	return c, nil
}

// Backend returns the wrapped backend.
func (c *Client) Backend() Backend { return c.backend }

// Model returns the default model.
func (c *Client) Model() string { return c.model }

// Chat sends system and messages to the backend and returns the reply text.
// An empty model uses the client default.
func (c *Client) Chat(ctx context.Context, model, system string, messages []Message) (string, error) {
	if model == "" {
		model = c.model
	}

	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return "", fmt.Errorf("failed to acquire concurrency slot: %w", err)
		}
		defer c.sem.Release(1)
	}

	req := CompletionRequest{
		Model:       model,
		System:      system,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	var completion *Completion
	start := time.Now()
	err := c.retryWithBackoff(ctx, "chat completion", func(attemptCtx context.Context) error {
		resp, err := c.backend.Complete(attemptCtx, req)
		if err != nil {
			return err
		}
		completion = resp
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%s completion failed: %w", c.backend.Name(), err)
	}

	c.mu.Lock()
	c.usage.Calls++
	c.usage.InputTokens += completion.InputTokens
	c.usage.OutputTokens += completion.OutputTokens
	c.mu.Unlock()

	c.logger.Debug("completion finished",
		"model", model, "duration", time.Since(start),
		"input_tokens", completion.InputTokens, "output_tokens", completion.OutputTokens)

	return completion.Text, nil
}

// Models lists the backend's models, with retries.
func (c *Client) Models(ctx context.Context) ([]Model, error) {
	var models []Model
	err := c.retryWithBackoff(ctx, "list models", func(attemptCtx context.Context) error {
		m, err := c.backend.ListModels(attemptCtx)
		if err != nil {
			return err
		}
		models = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return models, nil
}

// HasModel reports whether name is among the backend's models. When the
// list cannot be fetched it returns the error and false.
func (c *Client) HasModel(ctx context.Context, name string) (bool, error) {
	models, err := c.backend.ListModels(ctx)
	if err != nil {
		return false, err
	}
	for _, m := range models {
		if m.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// Health probes the backend once, without retries, and reports the circuit
// breaker as a failure when it is open.
func (c *Client) Health(ctx context.Context) HealthStatus {
	status := HealthStatus{URL: c.backend.URL()}

	if c.breaker != nil && c.breaker.State() == CircuitOpen {
		status.Error = ErrCircuitOpen.Error()
		return status
	}

	start := time.Now()
	_, err := c.backend.ListModels(ctx)
	status.ResponseTime = time.Since(start)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Connected = true
	return status
}

// Usage returns token totals since the client was created.
func (c *Client) Usage() Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// CircuitState exposes the breaker state for monitoring. Without a breaker
// it is always CircuitClosed.
func (c *Client) CircuitState() CircuitState {
	if c.breaker == nil {
		return CircuitClosed
	}
	return c.breaker.State()
}
