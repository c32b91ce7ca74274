package ai

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/slogan-gen/internal/logging"
)

// stubBackend replays scripted results and records requests.
type stubBackend struct {
	mu       sync.Mutex
	results  []stubResult
	requests []CompletionRequest
	models   []Model
	listErr  error
}

type stubResult struct {
	text string
	err  error
}

func (s *stubBackend) Name() string { return "stub" }
func (s *stubBackend) URL() string  { return "stub://local" }

func (s *stubBackend) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if len(s.results) == 0 {
		return &Completion{Text: "default", InputTokens: 1, OutputTokens: 1}, nil
	}
	r := s.results[0]
	s.results = s.results[1:]
	if r.err != nil {
		return nil, r.err
	}
	return &Completion{Text: r.text, InputTokens: 10, OutputTokens: 5}, nil
}

func (s *stubBackend) ListModels(ctx context.Context) ([]Model, error) {
	return s.models, s.listErr
}

func fastRetry() RetryConfig {
	r := DefaultRetryConfig()
	r.InitialBackoff = time.Millisecond
	r.MaxBackoff = 2 * time.Millisecond
	r.Timeout = time.Second
	return r
}

func newTestClient(t *testing.T, backend Backend, retry RetryConfig) *Client {
	t.Helper()
	c, err := NewClient(backend, ClientConfig{
		Model:       "llama3.2:latest",
		Temperature: 0.7,
		MaxTokens:   500,
		Retry:       retry,
		Logger:      logging.NewNop(),
	})
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(nil, ClientConfig{MaxTokens: 10})
	assert.Error(t, err)

	_, err = NewClient(&stubBackend{}, ClientConfig{MaxTokens: 0})
	assert.Error(t, err)
}

func TestClient_ChatPassesParameters(t *testing.T) {
	backend := &stubBackend{results: []stubResult{{text: "Hydrate the planet"}}}
	c := newTestClient(t, backend, fastRetry())

	text, err := c.Chat(context.Background(), "", "be brief", []Message{{Role: MessageUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "Hydrate the planet", text)

	require.Len(t, backend.requests, 1)
	req := backend.requests[0]
	assert.Equal(t, "llama3.2:latest", req.Model)
	assert.Equal(t, "be brief", req.System)
	assert.Equal(t, 0.7, req.Temperature)
	assert.Equal(t, 500, req.MaxTokens)

	_, err = c.Chat(context.Background(), "mistral", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "mistral", backend.requests[1].Model)

	usage := c.Usage()
	assert.Equal(t, int64(2), usage.Calls)
	assert.Equal(t, int64(11), usage.InputTokens)
	assert.Equal(t, int64(6), usage.OutputTokens)
}

func TestClient_RetriesTransientErrors(t *testing.T) {
	backend := &stubBackend{results: []stubResult{
		{err: &StatusError{Backend: "stub", StatusCode: 503}},
		{err: &StatusError{Backend: "stub", StatusCode: 429}},
		{text: "third time lucky"},
	}}
	c := newTestClient(t, backend, fastRetry())

	text, err := c.Chat(context.Background(), "", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "third time lucky", text)
	assert.Len(t, backend.requests, 3)
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	backend := &stubBackend{results: []stubResult{
		{err: &StatusError{Backend: "stub", StatusCode: 404, Body: "model 'nope' not found"}},
	}}
	c := newTestClient(t, backend, fastRetry())

	_, err := c.Chat(context.Background(), "nope", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.Len(t, backend.requests, 1)

	var statusErr *StatusError
	assert.True(t, errors.As(err, &statusErr))
	assert.Equal(t, CircuitClosed, c.CircuitState())
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	fail := stubResult{err: &StatusError{Backend: "stub", StatusCode: 500}}
	backend := &stubBackend{results: []stubResult{fail, fail, fail, fail}}
	retry := fastRetry()
	retry.MaxRetries = 2
	c := newTestClient(t, backend, retry)

	_, err := c.Chat(context.Background(), "", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Len(t, backend.requests, 3)
}

func TestClient_CircuitOpensAndFailsFast(t *testing.T) {
	fail := stubResult{err: &StatusError{Backend: "stub", StatusCode: 500}}
	backend := &stubBackend{results: []stubResult{fail, fail, fail, fail, fail, fail}}
	retry := fastRetry()
	retry.MaxRetries = 1
	retry.FailureThreshold = 2
	retry.OpenTimeout = time.Hour
	c := newTestClient(t, backend, retry)

	_, err := c.Chat(context.Background(), "", "", nil)
	require.Error(t, err)
	assert.Equal(t, CircuitOpen, c.CircuitState())

	calls := len(backend.requests)
	_, err = c.Chat(context.Background(), "", "", nil)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, calls, len(backend.requests), "open circuit must not reach the backend")

	health := c.Health(context.Background())
	assert.False(t, health.Connected)
	assert.Contains(t, health.Error, "circuit breaker")
}

func TestClient_CanceledContext(t *testing.T) {
	backend := &stubBackend{results: []stubResult{{err: &StatusError{StatusCode: 503}}}}
	retry := fastRetry()
	retry.InitialBackoff = time.Hour
	retry.MaxBackoff = time.Hour
	c := newTestClient(t, backend, retry)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Chat(ctx, "", "", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_ConcurrencyLimit(t *testing.T) {
	gate := make(chan struct{})
	var mu sync.Mutex
	inFlight, peak := 0, 0

	backend := &blockingBackend{gate: gate, onEnter: func() {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()
	}, onExit: func() {
		mu.Lock()
		inFlight--
		mu.Unlock()
	}}

	c, err := NewClient(backend, ClientConfig{
		MaxTokens:          10,
		Retry:              fastRetry(),
		MaxConcurrentCalls: 2,
		Logger:             logging.NewNop(),
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Chat(context.Background(), "", "", nil)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.LessOrEqual(t, peak, 2)
}

type blockingBackend struct {
	gate    chan struct{}
	onEnter func()
	onExit  func()
}

func (b *blockingBackend) Name() string { return "blocking" }
func (b *blockingBackend) URL() string  { return "" }

func (b *blockingBackend) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	b.onEnter()
	defer b.onExit()
	select {
	case <-b.gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &Completion{Text: "ok"}, nil
}

func (b *blockingBackend) ListModels(ctx context.Context) ([]Model, error) { return nil, nil }

func TestClient_ModelsAndHealth(t *testing.T) {
	backend := &stubBackend{models: []Model{{Name: "llama3.2:latest"}, {Name: "mistral:latest"}}}
	c := newTestClient(t, backend, fastRetry())

	models, err := c.Models(context.Background())
	require.NoError(t, err)
	assert.Len(t, models, 2)

	ok, err := c.HasModel(context.Background(), "mistral:latest")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.HasModel(context.Background(), "phi3")
	require.NoError(t, err)
	assert.False(t, ok)

	health := c.Health(context.Background())
	assert.True(t, health.Connected)
	assert.Equal(t, "stub://local", health.URL)
	assert.Empty(t, health.Error)

	backend.listErr = errors.New("connection refused")
	health = c.Health(context.Background())
	assert.False(t, health.Connected)
	assert.Equal(t, "connection refused", health.Error)
}
