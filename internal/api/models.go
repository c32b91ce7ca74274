package api

import (
	"time"

	"github.com/steveyegge/slogan-gen/internal/ai"
	"github.com/steveyegge/slogan-gen/internal/types"
)

// MaxInputLength bounds GenerateRequest.Input, in characters.
const MaxInputLength = 500

// GenerateRequest is the body of POST /api/v1/slogans/generate.
type GenerateRequest struct {
	Input    string `json:"input"`
	Model    string `json:"model,omitempty"`
	MaxTurns *int   `json:"max_turns,omitempty"`
	Verbose  bool   `json:"verbose,omitempty"`
}

// TurnDetail is one turn in a verbose generate response.
type TurnDetail struct {
	TurnNumber int       `json:"turn_number"`
	Slogan     string    `json:"slogan"`
	Feedback   string    `json:"feedback"`
	Approved   bool      `json:"approved"`
	Timestamp  time.Time `json:"timestamp"`
}

// GenerateResponse is the result of a generation request. Capability
// failures still produce a response, with CompletionReason "error".
type GenerateResponse struct {
	Slogan                 string                 `json:"slogan"`
	Input                  string                 `json:"input"`
	CompletionReason       types.CompletionReason `json:"completion_reason"`
	TurnCount              int                    `json:"turn_count"`
	ModelName              string                 `json:"model_name"`
	TotalDurationSeconds   float64                `json:"total_duration_seconds"`
	AverageDurationPerTurn float64                `json:"average_duration_per_turn"`
	Turns                  []TurnDetail           `json:"turns,omitempty"`
	CreatedAt              time.Time              `json:"created_at"`
	RequestID              string                 `json:"request_id"`
	SessionID              string                 `json:"session_id"`
	Error                  string                 `json:"error,omitempty"`
}

// ModelsResponse lists the models the backend can serve.
type ModelsResponse struct {
	Models       []ai.Model `json:"models"`
	DefaultModel string     `json:"default_model"`
	Count        int        `json:"count"`
}

// DependencyStatus reports one upstream dependency.
type DependencyStatus struct {
	Connected      bool   `json:"connected"`
	URL            string `json:"url"`
	ResponseTimeMS *int64 `json:"response_time_ms,omitempty"`
	Error          string `json:"error,omitempty"`
}

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status       string                      `json:"status"`
	Version      string                      `json:"version"`
	Timestamp    time.Time                   `json:"timestamp"`
	Dependencies map[string]DependencyStatus `json:"dependencies"`
}

// SessionsResponse is the body of GET /api/v1/sessions.
type SessionsResponse struct {
	Sessions []*types.Session `json:"sessions"`
	Count    int              `json:"count"`
}

// RootResponse describes the service.
type RootResponse struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}

// NewGenerateResponse projects a completed session.
func NewGenerateResponse(s *types.Session, verbose bool, requestID string) GenerateResponse {
	reason, _ := s.CompletionReason()
	final, _ := s.FinalArtifact()
	total := s.Duration().Seconds()
	avg := 0.0
	if s.TurnCount() > 0 {
		avg = total / float64(s.TurnCount())
	}

	resp := GenerateResponse{
		Slogan:                 final,
		Input:                  s.Request(),
		CompletionReason:       reason,
		TurnCount:              s.TurnCount(),
		ModelName:              s.Model(),
		TotalDurationSeconds:   round2(total),
		AverageDurationPerTurn: round2(avg),
		CreatedAt:              s.StartedAt(),
		RequestID:              requestID,
		SessionID:              s.ID(),
		Error:                  s.Fault(),
	}
	if verbose {
		for _, t := range s.Turns() {
			resp.Turns = append(resp.Turns, TurnDetail{
				TurnNumber: t.Sequence(),
				Slogan:     t.Artifact(),
				Feedback:   t.Critique(),
				Approved:   t.Approved(),
				Timestamp:  t.CreatedAt(),
			})
		}
	}
	return resp
}
