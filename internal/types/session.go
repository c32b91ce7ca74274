package types

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// CompletionReason explains why a session stopped.
type CompletionReason string

const (
	ReasonApproved          CompletionReason = "approved"            // critic approved the latest artifact
	ReasonRoundLimitReached CompletionReason = "round-limit-reached" // round budget exhausted
	ReasonError             CompletionReason = "error"               // a capability faulted
)

// IsValid checks if the reason value is valid
func (r CompletionReason) IsValid() bool {
	switch r {
	case ReasonApproved, ReasonRoundLimitReached, ReasonError:
		return true
	}
	return false
}

// Status is the session lifecycle state. It is one of InProgress or
// Completed; fields that only make sense once a session has finished live
// on Completed so an in-progress session cannot carry them.
type Status interface {
	// Name returns the serialized status name.
	Name() string
	isStatus()
}

// Status names as serialized.
const (
	StatusNameInProgress = "in-progress"
	StatusNameCompleted  = "completed"
)

// InProgress is the status of a session whose loop is still running.
type InProgress struct{}

func (InProgress) Name() string { return StatusNameInProgress }
func (InProgress) isStatus() {}

// Completed is the terminal status.
type Completed struct {
	Reason CompletionReason
	// FinalArtifact equals the artifact of the last turn. It is empty only
	// when the session failed before any turn was recorded.
	FinalArtifact string
	CompletedAt   time.Time
	// Fault holds the capability error message when Reason is ReasonError.
	Fault string
}

func (Completed) Name() string { return StatusNameCompleted }
func (Completed) isStatus() {}

// Session is the bounded interaction from initial request to termination.
// It exclusively owns its turn sequence; turns are only added through
// AppendTurn and the session is finalized exactly once through Complete.
type Session struct {
	id          string
	request     string
	model       string
	roundBudget int
	turns       []Turn
	status      Status
	startedAt   time.Time
}

// SessionOption customizes a new session.
type SessionOption func(*Session)

// WithID overrides the generated session ID.
func WithID(id string) SessionOption {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// WithModel records the model name the capabilities run against.
func WithModel(model string) SessionOption {
	return func(s *Session) {
		s.model = model
	}
}

// ValidateRequest checks the request text and round budget a session would
// be created with.
func ValidateRequest(request string, roundBudget int) error {
	trimmed := strings.TrimSpace(request)
	if trimmed == "" {
		return invalidInput("request cannot be empty")
	}
	if n := utf8.RuneCountInString(trimmed); n > MaxRequestLength {
		return invalidInput("request must be %d characters or less (got %d)", MaxRequestLength, n)
	}
	if roundBudget < MinRoundBudget || roundBudget > MaxRoundBudget {
		return invalidInput("round budget must be between %d and %d (got %d)",
			MinRoundBudget, MaxRoundBudget, roundBudget)
	}
	return nil
}

// NewSession creates an in-progress session with no turns. The request is
// stored trimmed of surrounding whitespace.
func NewSession(request string, roundBudget int, startedAt time.Time, opts ...SessionOption) (*Session, error) {
	if err := ValidateRequest(request, roundBudget); err != nil {
		return nil, err
	}
	if startedAt.IsZero() {
		return nil, invalidInput("session start time is required")
	}
	s := &Session{
		id:          uuid.New().String(),
		request:     strings.TrimSpace(request),
		roundBudget: roundBudget,
		turns:       make([]Turn, 0, roundBudget),
		status:      InProgress{},
		startedAt:   startedAt,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Session) ID() string { return s.id }
func (s *Session) Request() string { return s.request }
func (s *Session) Model() string { return s.model }
func (s *Session) RoundBudget() int { return s.roundBudget }
func (s *Session) StartedAt() time.Time { return s.startedAt }
func (s *Session) Status() Status { return s.status }
func (s *Session) TurnCount() int { return len(s.turns) }

// Turns returns a copy of the ordered turn history.
func (s *Session) Turns() []Turn {
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// LastTurn returns the most recent turn, if any.
func (s *Session) LastTurn() (Turn, bool) {
	if len(s.turns) == 0 {
		return Turn{}, false
	}
	return s.turns[len(s.turns)-1], true
}

// IsCompleted reports whether the session has been finalized.
func (s *Session) IsCompleted() bool {
	_, ok := s.status.(Completed)
	return ok
}

// CompletionReason returns the reason the session ended, if it has.
func (s *Session) CompletionReason() (CompletionReason, bool) {
	c, ok := s.status.(Completed)
	if !ok {
		return "", false
	}
	return c.Reason, true
}

// FinalArtifact returns the artifact the session settled on, if any.
func (s *Session) FinalArtifact() (string, bool) {
	c, ok := s.status.(Completed)
	if !ok || c.FinalArtifact == "" {
		return "", false
	}
	return c.FinalArtifact, true
}

// CompletedAt returns when the session was finalized, if it has been.
func (s *Session) CompletedAt() (time.Time, bool) {
	c, ok := s.status.(Completed)
	if !ok {
		return time.Time{}, false
	}
	return c.CompletedAt, true
}

// Fault returns the capability error message of a session that ended with
// ReasonError.
func (s *Session) Fault() string {
	if c, ok := s.status.(Completed); ok {
		return c.Fault
	}
	return ""
}

// Duration is the wall time from start to completion, or zero while the
// session is still in progress.
func (s *Session) Duration() time.Duration {
	if at, ok := s.CompletedAt(); ok {
		return at.Sub(s.startedAt)
	}
	return 0
}

// AppendTurn records a completed turn. The turn must carry the next
// sequence number, fit within the round budget and not predate the
// previous turn.
func (s *Session) AppendTurn(t Turn) error {
	if s.IsCompleted() {
		return invariantViolation("cannot append turn %d to completed session %s", t.sequence, s.id)
	}
	if len(s.turns) >= s.roundBudget {
		return invariantViolation("session %s already has %d turns (round budget %d)",
			s.id, len(s.turns), s.roundBudget)
	}
	if want := len(s.turns) + 1; t.sequence != want {
		return invariantViolation("turn sequence %d out of order (want %d)", t.sequence, want)
	}
	if t.artifact == "" || t.createdAt.IsZero() {
		return invariantViolation("turn %d was not fully formed", t.sequence)
	}
	if last, ok := s.LastTurn(); ok && last.approved {
		return invariantViolation("turn %d follows approved turn %d", t.sequence, last.sequence)
	}
	floor := s.startedAt
	if last, ok := s.LastTurn(); ok {
		floor = last.createdAt
	}
	if t.createdAt.Before(floor) {
		return invariantViolation("turn %d created at %s precedes %s",
			t.sequence, t.createdAt.Format(time.RFC3339Nano), floor.Format(time.RFC3339Nano))
	}
	s.turns = append(s.turns, t)
	return nil
}

// Complete finalizes the session. The final artifact is taken from the last
// turn. fault is recorded only for ReasonError.
func (s *Session) Complete(reason CompletionReason, at time.Time, fault string) error {
	if s.IsCompleted() {
		return invariantViolation("session %s is already completed", s.id)
	}
	if !reason.IsValid() {
		return invariantViolation("invalid completion reason: %q", reason)
	}
	if err := s.checkReason(reason); err != nil {
		return err
	}
	floor := s.startedAt
	if last, ok := s.LastTurn(); ok {
		floor = last.createdAt
	}
	if at.Before(floor) {
		return invariantViolation("completion time %s precedes %s",
			at.Format(time.RFC3339Nano), floor.Format(time.RFC3339Nano))
	}

	c := Completed{Reason: reason, CompletedAt: at}
	if last, ok := s.LastTurn(); ok {
		c.FinalArtifact = last.artifact
	}
	if reason == ReasonError {
		c.Fault = fault
	}
	s.status = c
	return nil
}

// RestoreSession rebuilds a session read back from storage. Unlike
// NewSession it keeps the given id and status, and it fails with
// ErrInvariantViolation unless the result passes Validate.
func RestoreSession(id, request, model string, roundBudget int, startedAt time.Time, turns []Turn, status Status) (*Session, error) {
	if status == nil {
		return nil, invariantViolation("session %s has no status", id)
	}
	s := &Session{
		id:          id,
		request:     request,
		model:       model,
		roundBudget: roundBudget,
		turns:       append(make([]Turn, 0, len(turns)), turns...),
		status:      status,
		startedAt:   startedAt,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks every session invariant. It is run after deserialization
// and before the engine hands a session back to its caller.
func (s *Session) Validate() error {
	if s.id == "" {
		return invariantViolation("session id is required")
	}
	if err := ValidateRequest(s.request, s.roundBudget); err != nil {
		return invariantViolation("%v", err)
	}
	if len(s.turns) > s.roundBudget {
		return invariantViolation("session has %d turns, round budget is %d", len(s.turns), s.roundBudget)
	}
	prev := s.startedAt
	for i, t := range s.turns {
		if t.sequence != i+1 {
			return invariantViolation("turn at index %d has sequence %d", i, t.sequence)
		}
		if t.approved && i != len(s.turns)-1 {
			return invariantViolation("approved turn %d is followed by more turns", t.sequence)
		}
		if t.createdAt.Before(prev) {
			return invariantViolation("turn %d created before its predecessor", t.sequence)
		}
		prev = t.createdAt
	}

	switch st := s.status.(type) {
	case InProgress:
		return nil
	case Completed:
		if !st.Reason.IsValid() {
			return invariantViolation("invalid completion reason: %q", st.Reason)
		}
		if err := s.checkReason(st.Reason); err != nil {
			return err
		}
		want := ""
		if last, ok := s.LastTurn(); ok {
			want = last.artifact
		}
		if st.FinalArtifact != want {
			return invariantViolation("final artifact does not match last turn")
		}
		if st.CompletedAt.Before(prev) {
			return invariantViolation("completed_at precedes the last recorded time")
		}
		return nil
	default:
		return invariantViolation("unknown session status %T", s.status)
	}
}

// checkReason reports whether reason agrees with the recorded turns. An
// approved session ends on its approved turn. The round limit needs the
// whole budget spent without approval.
func (s *Session) checkReason(reason CompletionReason) error {
	last, ok := s.LastTurn()
	switch reason {
	case ReasonApproved:
		if !ok || !last.approved {
			return invariantViolation("session %s completed as %s but its last turn is not approved", s.id, reason)
		}
	case ReasonRoundLimitReached:
		if !ok || last.approved {
			return invariantViolation("session %s completed as %s but its last turn is approved", s.id, reason)
		}
		if len(s.turns) != s.roundBudget {
			return invariantViolation("session %s completed as %s after %d of %d turns",
				s.id, reason, len(s.turns), s.roundBudget)
		}
	case ReasonError:
		if ok && last.approved {
			return invariantViolation("session %s completed as %s after an approved turn", s.id, reason)
		}
	}
	return nil
}
