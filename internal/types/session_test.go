package types

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 10, 19, 14, 30, 0, 0, time.UTC)

func mustTurn(t *testing.T, seq int, artifact, critique string, approved bool) Turn {
	t.Helper()
	turn, err := NewTurn(seq, artifact, critique, approved, t0.Add(time.Duration(seq)*time.Second))
	require.NoError(t, err)
	return turn
}

func TestNewSession_Validation(t *testing.T) {
	tests := []struct {
		name    string
		request string
		budget  int
		wantErr bool
	}{
		{name: "valid", request: "eco-friendly water bottle", budget: 5},
		{name: "min budget", request: "x", budget: MinRoundBudget},
		{name: "max budget", request: "x", budget: MaxRoundBudget},
		{name: "empty request", request: "", budget: 5, wantErr: true},
		{name: "whitespace request", request: "   \n\t", budget: 5, wantErr: true},
		{name: "request too long", request: strings.Repeat("a", MaxRequestLength+1), budget: 5, wantErr: true},
		{name: "request at limit", request: strings.Repeat("é", MaxRequestLength), budget: 5},
		{name: "zero budget", request: "x", budget: 0, wantErr: true},
		{name: "budget over range", request: "x", budget: MaxRoundBudget + 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSession(tt.request, tt.budget, t0)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidInput)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatusNameInProgress, s.Status().Name())
			assert.Equal(t, 0, s.TurnCount())
			assert.NotEmpty(t, s.ID())
			_, ok := s.FinalArtifact()
			assert.False(t, ok)
			_, ok = s.CompletionReason()
			assert.False(t, ok)
			require.NoError(t, s.Validate())
		})
	}
}

func TestNewSession_TrimsRequest(t *testing.T) {
	s, err := NewSession("  cloud platform \n", 3, t0, WithModel("llama3.2:latest"), WithID("fixed"))
	require.NoError(t, err)
	assert.Equal(t, "cloud platform", s.Request())
	assert.Equal(t, "llama3.2:latest", s.Model())
	assert.Equal(t, "fixed", s.ID())
}

func TestNewTurn_Validation(t *testing.T) {
	_, err := NewTurn(0, "slogan", "", false, t0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewTurn(1, "  ", "", false, t0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewTurn(1, strings.Repeat("s", MaxArtifactLength+1), "", false, t0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewTurn(1, "slogan", strings.Repeat("c", MaxCritiqueLength+1), false, t0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewTurn(1, "slogan", "", false, time.Time{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	turn, err := NewTurn(2, "Sip green", "SHIP IT!", true, t0)
	require.NoError(t, err)
	assert.Equal(t, 2, turn.Sequence())
	assert.Equal(t, "Sip green", turn.Artifact())
	assert.Equal(t, "SHIP IT!", turn.Critique())
	assert.True(t, turn.Approved())
	assert.Equal(t, t0, turn.CreatedAt())
}

func TestSession_AppendTurn(t *testing.T) {
	s, err := NewSession("water bottle", 2, t0)
	require.NoError(t, err)

	require.NoError(t, s.AppendTurn(mustTurn(t, 1, "one", "meh", false)))

	// Gap in sequence
	err = s.AppendTurn(mustTurn(t, 3, "three", "meh", false))
	assert.ErrorIs(t, err, ErrInvariantViolation)

	// Duplicate sequence
	err = s.AppendTurn(mustTurn(t, 1, "again", "meh", false))
	assert.ErrorIs(t, err, ErrInvariantViolation)

	require.NoError(t, s.AppendTurn(mustTurn(t, 2, "two", "meh", false)))

	// Budget exhausted
	err = s.AppendTurn(mustTurn(t, 3, "three", "meh", false))
	assert.ErrorIs(t, err, ErrInvariantViolation)
	assert.Equal(t, 2, s.TurnCount())

	// Zero-value turn is never fully formed
	s2, err := NewSession("water bottle", 2, t0)
	require.NoError(t, err)
	assert.ErrorIs(t, s2.AppendTurn(Turn{sequence: 1}), ErrInvariantViolation)
}

func TestSession_AppendTurnRejectsTimeTravel(t *testing.T) {
	s, err := NewSession("water bottle", 3, t0)
	require.NoError(t, err)

	early, err := NewTurn(1, "slogan", "meh", false, t0.Add(-time.Second))
	require.NoError(t, err)
	assert.ErrorIs(t, s.AppendTurn(early), ErrInvariantViolation)

	require.NoError(t, s.AppendTurn(mustTurn(t, 1, "one", "meh", false)))
	before, err := NewTurn(2, "two", "meh", false, t0)
	require.NoError(t, err)
	assert.ErrorIs(t, s.AppendTurn(before), ErrInvariantViolation)
}

func TestSession_Complete(t *testing.T) {
	s, err := NewSession("water bottle", 3, t0)
	require.NoError(t, err)

	// Cannot complete as approved without turns
	err = s.Complete(ReasonApproved, t0.Add(time.Minute), "")
	assert.ErrorIs(t, err, ErrInvariantViolation)
	assert.False(t, s.IsCompleted())

	require.NoError(t, s.AppendTurn(mustTurn(t, 1, "one", "meh", false)))
	require.NoError(t, s.AppendTurn(mustTurn(t, 2, "two", "Ship it!", true)))

	require.NoError(t, s.Complete(ReasonApproved, t0.Add(time.Minute), "ignored"))
	assert.True(t, s.IsCompleted())

	reason, ok := s.CompletionReason()
	require.True(t, ok)
	assert.Equal(t, ReasonApproved, reason)

	final, ok := s.FinalArtifact()
	require.True(t, ok)
	assert.Equal(t, "two", final)
	assert.Empty(t, s.Fault(), "fault only recorded for error completions")
	assert.Equal(t, time.Minute, s.Duration())

	// Second completion is a programming fault
	assert.ErrorIs(t, s.Complete(ReasonError, t0.Add(2*time.Minute), "boom"), ErrInvariantViolation)
	// No turns after completion
	assert.ErrorIs(t, s.AppendTurn(mustTurn(t, 3, "three", "meh", false)), ErrInvariantViolation)
	require.NoError(t, s.Validate())
}

func TestSession_CompleteWithErrorAndNoTurns(t *testing.T) {
	s, err := NewSession("water bottle", 3, t0)
	require.NoError(t, err)

	require.NoError(t, s.Complete(ReasonError, t0.Add(time.Second), "connection refused"))
	_, ok := s.FinalArtifact()
	assert.False(t, ok)
	assert.Equal(t, "connection refused", s.Fault())
	require.NoError(t, s.Validate())
}

func TestSession_CompleteRejectsInvalidReasonAndTime(t *testing.T) {
	s, err := NewSession("water bottle", 3, t0)
	require.NoError(t, err)
	require.NoError(t, s.AppendTurn(mustTurn(t, 1, "one", "meh", false)))

	assert.ErrorIs(t, s.Complete("max_turns", t0.Add(time.Minute), ""), ErrInvariantViolation)
	assert.ErrorIs(t, s.Complete(ReasonRoundLimitReached, t0, ""), ErrInvariantViolation)
	assert.False(t, s.IsCompleted())
}

func TestSession_ReasonMustMatchTurns(t *testing.T) {
	s, err := NewSession("water bottle", 2, t0)
	require.NoError(t, err)
	require.NoError(t, s.AppendTurn(mustTurn(t, 1, "one", "meh", false)))

	assert.ErrorIs(t, s.Complete(ReasonApproved, t0.Add(time.Minute), ""), ErrInvariantViolation)
	assert.ErrorIs(t, s.Complete(ReasonRoundLimitReached, t0.Add(time.Minute), ""), ErrInvariantViolation)
	assert.False(t, s.IsCompleted())

	require.NoError(t, s.AppendTurn(mustTurn(t, 2, "two", "meh", false)))
	require.NoError(t, s.Complete(ReasonRoundLimitReached, t0.Add(time.Minute), ""))
	require.NoError(t, s.Validate())
}

func TestSession_NoTurnAfterApproval(t *testing.T) {
	s, err := NewSession("water bottle", 3, t0)
	require.NoError(t, err)
	require.NoError(t, s.AppendTurn(mustTurn(t, 1, "one", "Ship it!", true)))

	assert.ErrorIs(t, s.AppendTurn(mustTurn(t, 2, "two", "meh", false)), ErrInvariantViolation)
	assert.ErrorIs(t, s.Complete(ReasonError, t0.Add(time.Minute), "boom"), ErrInvariantViolation)
	require.NoError(t, s.Complete(ReasonApproved, t0.Add(time.Minute), ""))
}

func TestSession_TurnsReturnsCopy(t *testing.T) {
	s, err := NewSession("water bottle", 3, t0)
	require.NoError(t, err)
	require.NoError(t, s.AppendTurn(mustTurn(t, 1, "one", "meh", false)))

	turns := s.Turns()
	turns[0] = Turn{}
	last, ok := s.LastTurn()
	require.True(t, ok)
	assert.Equal(t, "one", last.Artifact())
}

func TestSession_JSONRoundTrip(t *testing.T) {
	s, err := NewSession("eco-friendly water bottle slogan", 5, t0, WithModel("mistral:latest"))
	require.NoError(t, err)
	require.NoError(t, s.AppendTurn(mustTurn(t, 1, "Drink green", "Too plain", false)))
	require.NoError(t, s.AppendTurn(mustTurn(t, 2, "Sip the future", "SHIP IT!", true)))
	require.NoError(t, s.Complete(ReasonApproved, t0.Add(time.Minute), ""))

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(data, &generic))
	assert.Equal(t, "completed", generic["status"])
	assert.Equal(t, "approved", generic["completion_reason"])
	assert.Equal(t, "Sip the future", generic["final_artifact"])
	assert.Len(t, generic["turns"], 2)

	var decoded Session
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, s.ID(), decoded.ID())
	assert.Equal(t, s.Request(), decoded.Request())
	assert.Equal(t, s.Model(), decoded.Model())
	assert.Equal(t, s.RoundBudget(), decoded.RoundBudget())
	assert.Equal(t, s.TurnCount(), decoded.TurnCount())
	final, ok := decoded.FinalArtifact()
	require.True(t, ok)
	assert.Equal(t, "Sip the future", final)
	for i, turn := range decoded.Turns() {
		orig := s.Turns()[i]
		assert.Equal(t, orig.Sequence(), turn.Sequence())
		assert.Equal(t, orig.Critique(), turn.Critique())
		assert.Equal(t, orig.Approved(), turn.Approved())
		assert.True(t, orig.CreatedAt().Equal(turn.CreatedAt()))
	}
}

func TestSession_UnmarshalRejectsBrokenInvariants(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "sequence gap",
			doc: `{"id":"a","request":"x","round_budget":3,"status":"in-progress","started_at":"2025-10-19T14:30:00Z",
				"turns":[{"sequence":2,"artifact":"s","critique":"c","approved":false,"created_at":"2025-10-19T14:30:01Z"}]}`,
		},
		{
			name: "too many turns",
			doc: `{"id":"a","request":"x","round_budget":1,"status":"in-progress","started_at":"2025-10-19T14:30:00Z",
				"turns":[{"sequence":1,"artifact":"s","critique":"c","approved":false,"created_at":"2025-10-19T14:30:01Z"},
				{"sequence":2,"artifact":"s","critique":"c","approved":false,"created_at":"2025-10-19T14:30:02Z"}]}`,
		},
		{
			name: "completed without reason",
			doc: `{"id":"a","request":"x","round_budget":3,"status":"completed","completed_at":"2025-10-19T14:31:00Z","started_at":"2025-10-19T14:30:00Z",
				"turns":[{"sequence":1,"artifact":"s","critique":"c","approved":false,"created_at":"2025-10-19T14:30:01Z"}]}`,
		},
		{
			name: "in progress with final artifact",
			doc: `{"id":"a","request":"x","round_budget":3,"status":"in-progress","final_artifact":"s","started_at":"2025-10-19T14:30:00Z",
				"turns":[{"sequence":1,"artifact":"s","critique":"c","approved":false,"created_at":"2025-10-19T14:30:01Z"}]}`,
		},
		{
			name: "final artifact mismatch",
			doc: `{"id":"a","request":"x","round_budget":3,"status":"completed","completion_reason":"approved","final_artifact":"other",
				"completed_at":"2025-10-19T14:31:00Z","started_at":"2025-10-19T14:30:00Z",
				"turns":[{"sequence":1,"artifact":"s","critique":"ship it","approved":true,"created_at":"2025-10-19T14:30:01Z"}]}`,
		},
		{
			name: "approved with no turns",
			doc: `{"id":"a","request":"x","round_budget":3,"status":"completed","completion_reason":"approved",
				"completed_at":"2025-10-19T14:31:00Z","started_at":"2025-10-19T14:30:00Z","turns":[]}`,
		},
		{
			name: "turn after approval",
			doc: `{"id":"a","request":"x","round_budget":3,"status":"completed","completion_reason":"approved","final_artifact":"t",
				"completed_at":"2025-10-19T14:31:00Z","started_at":"2025-10-19T14:30:00Z",
				"turns":[{"sequence":1,"artifact":"s","critique":"ship it","approved":true,"created_at":"2025-10-19T14:30:01Z"},
				{"sequence":2,"artifact":"t","critique":"meh","approved":false,"created_at":"2025-10-19T14:30:02Z"}]}`,
		},
		{
			name: "approved without approved last turn",
			doc: `{"id":"a","request":"x","round_budget":3,"status":"completed","completion_reason":"approved","final_artifact":"s",
				"completed_at":"2025-10-19T14:31:00Z","started_at":"2025-10-19T14:30:00Z",
				"turns":[{"sequence":1,"artifact":"s","critique":"meh","approved":false,"created_at":"2025-10-19T14:30:01Z"}]}`,
		},
		{
			name: "round limit before budget spent",
			doc: `{"id":"a","request":"x","round_budget":5,"status":"completed","completion_reason":"round-limit-reached","final_artifact":"s",
				"completed_at":"2025-10-19T14:31:00Z","started_at":"2025-10-19T14:30:00Z",
				"turns":[{"sequence":1,"artifact":"s","critique":"meh","approved":false,"created_at":"2025-10-19T14:30:01Z"}]}`,
		},
		{
			name: "round limit with approved last turn",
			doc: `{"id":"a","request":"x","round_budget":1,"status":"completed","completion_reason":"round-limit-reached","final_artifact":"s",
				"completed_at":"2025-10-19T14:31:00Z","started_at":"2025-10-19T14:30:00Z",
				"turns":[{"sequence":1,"artifact":"s","critique":"ship it","approved":true,"created_at":"2025-10-19T14:30:01Z"}]}`,
		},
		{
			name: "error after approval",
			doc: `{"id":"a","request":"x","round_budget":3,"status":"completed","completion_reason":"error","final_artifact":"s",
				"error":"boom","completed_at":"2025-10-19T14:31:00Z","started_at":"2025-10-19T14:30:00Z",
				"turns":[{"sequence":1,"artifact":"s","critique":"ship it","approved":true,"created_at":"2025-10-19T14:30:01Z"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Session
			assert.Error(t, json.Unmarshal([]byte(tt.doc), &s))
		})
	}
}
