package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// turnJSON is the wire projection of a Turn.
type turnJSON struct {
	Sequence  int       `json:"sequence"`
	Artifact  string    `json:"artifact"`
	Critique  string    `json:"critique"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
}

// sessionJSON is the wire projection of a Session: one key per field, turns
// as an ordered array. Completion fields are omitted while in progress.
type sessionJSON struct {
	ID               string            `json:"id"`
	Request          string            `json:"request"`
	Model            string            `json:"model,omitempty"`
	RoundBudget      int               `json:"round_budget"`
	Status           string            `json:"status"`
	CompletionReason *CompletionReason `json:"completion_reason,omitempty"`
	FinalArtifact    *string           `json:"final_artifact,omitempty"`
	Error            string            `json:"error,omitempty"`
	StartedAt        time.Time         `json:"started_at"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
	Turns            []turnJSON        `json:"turns"`
}

// MarshalJSON implements json.Marshaler.
func (t Turn) MarshalJSON() ([]byte, error) {
	return json.Marshal(turnJSON{
		Sequence:  t.sequence,
		Artifact:  t.artifact,
		Critique:  t.critique,
		Approved:  t.approved,
		CreatedAt: t.createdAt,
	})
}

// UnmarshalJSON implements json.Unmarshaler, validating the decoded fields.
func (t *Turn) UnmarshalJSON(data []byte) error {
	var raw turnJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	turn, err := NewTurn(raw.Sequence, raw.Artifact, raw.Critique, raw.Approved, raw.CreatedAt)
	if err != nil {
		return err
	}
	*t = turn
	return nil
}

// MarshalJSON implements json.Marshaler.
func (s *Session) MarshalJSON() ([]byte, error) {
	out := sessionJSON{
		ID:          s.id,
		Request:     s.request,
		Model:       s.model,
		RoundBudget: s.roundBudget,
		Status:      s.status.Name(),
		StartedAt:   s.startedAt,
		Turns:       make([]turnJSON, 0, len(s.turns)),
	}
	for _, t := range s.turns {
		out.Turns = append(out.Turns, turnJSON{
			Sequence:  t.sequence,
			Artifact:  t.artifact,
			Critique:  t.critique,
			Approved:  t.approved,
			CreatedAt: t.createdAt,
		})
	}
	if c, ok := s.status.(Completed); ok {
		reason := c.Reason
		completedAt := c.CompletedAt
		out.CompletionReason = &reason
		out.CompletedAt = &completedAt
		out.Error = c.Fault
		if c.FinalArtifact != "" {
			final := c.FinalArtifact
			out.FinalArtifact = &final
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler. The decoded session must
// satisfy every invariant Validate checks, and a stored final artifact must
// agree with the last turn.
func (s *Session) UnmarshalJSON(data []byte) error {
	var raw sessionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	turns := make([]Turn, 0, len(raw.Turns))
	for _, rt := range raw.Turns {
		t, err := NewTurn(rt.Sequence, rt.Artifact, rt.Critique, rt.Approved, rt.CreatedAt)
		if err != nil {
			return fmt.Errorf("turn %d: %w", rt.Sequence, err)
		}
		turns = append(turns, t)
	}

	var status Status
	switch raw.Status {
	case StatusNameInProgress:
		if raw.CompletionReason != nil || raw.FinalArtifact != nil || raw.CompletedAt != nil {
			return invariantViolation("in-progress session %s carries completion fields", raw.ID)
		}
		status = InProgress{}
	case StatusNameCompleted:
		if raw.CompletionReason == nil || raw.CompletedAt == nil {
			return invariantViolation("completed session %s is missing completion fields", raw.ID)
		}
		c := Completed{
			Reason:      *raw.CompletionReason,
			CompletedAt: *raw.CompletedAt,
			Fault:       raw.Error,
		}
		if raw.FinalArtifact != nil {
			c.FinalArtifact = *raw.FinalArtifact
		}
		status = c
	default:
		return fmt.Errorf("unknown session status %q", raw.Status)
	}

	decoded, err := RestoreSession(raw.ID, raw.Request, raw.Model, raw.RoundBudget, raw.StartedAt, turns, status)
	if err != nil {
		return err
	}
	*s = *decoded
	return nil
}
