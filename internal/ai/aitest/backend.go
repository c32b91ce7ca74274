// Package aitest provides a scripted ai.Backend for tests of packages that
// drive a full writer/reviewer session.
package aitest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/steveyegge/slogan-gen/internal/ai"
)

// Backend plays both roles. The writer answers "Draft N" and the reviewer
// approves the ApproveOn-th review of each conversation; zero never
// approves.
type Backend struct {
	ApproveOn int
	Models    []ai.Model
	Err       error // returned by every Complete call when set
	ListErr   error

	// Delay holds every Complete call, or until its context ends
	Delay time.Duration

	mu       sync.Mutex
	requests []ai.CompletionRequest
}

// New returns a backend that approves on review approveOn and lists a
// single llama3.2:latest model.
func New(approveOn int) *Backend {
	return &Backend{
		ApproveOn: approveOn,
		Models:    []ai.Model{{Name: "llama3.2:latest", DisplayName: "Llama3.2 (latest)"}},
	}
}

func (b *Backend) Name() string { return "fake" }

func (b *Backend) URL() string { return "fake://backend" }

func (b *Backend) Complete(ctx context.Context, req ai.CompletionRequest) (*ai.Completion, error) {
	if b.Delay > 0 {
		select {
		case <-time.After(b.Delay):
		case <-ctx.Done():
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	b.requests = append(b.requests, req)
	b.mu.Unlock()

	if b.Err != nil {
		return nil, b.Err
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("no messages")
	}

	last := req.Messages[len(req.Messages)-1].Content
	if strings.HasPrefix(last, "Review this slogan") {
		// Reviews carry no history; the draft number tells which round this is
		if b.ApproveOn > 0 && strings.Contains(last, fmt.Sprintf("Draft %d", b.ApproveOn)) {
			return &ai.Completion{Text: "SHIP IT!", InputTokens: 20, OutputTokens: 3}, nil
		}
		return &ai.Completion{Text: "Make it punchier.", InputTokens: 20, OutputTokens: 4}, nil
	}

	// One user message per prior turn plus the opening request
	draft := (len(req.Messages) + 1) / 2
	return &ai.Completion{Text: fmt.Sprintf("\"Draft %d\"", draft), InputTokens: 30, OutputTokens: 5}, nil
}

func (b *Backend) ListModels(ctx context.Context) ([]ai.Model, error) {
	if b.ListErr != nil {
		return nil, b.ListErr
	}
	return b.Models, nil
}

// Requests returns a copy of every completion request seen.
func (b *Backend) Requests() []ai.CompletionRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]ai.CompletionRequest(nil), b.requests...)
}
