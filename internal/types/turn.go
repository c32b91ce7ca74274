package types

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Length bounds, counted in Unicode code points.
const (
	MaxRequestLength  = 1000
	MaxArtifactLength = 500
	MaxCritiqueLength = 1000
)

// Round budget bounds.
const (
	MinRoundBudget     = 1
	MaxRoundBudget     = 10
	DefaultRoundBudget = 5
)

// Turn is one completed producer-then-critic exchange. A Turn is immutable
// once constructed; the zero value is not a valid Turn.
type Turn struct {
	sequence  int
	artifact  string
	critique  string
	approved  bool
	createdAt time.Time
}

// NewTurn validates and builds a completed turn.
func NewTurn(sequence int, artifact, critique string, approved bool, createdAt time.Time) (Turn, error) {
	if sequence < 1 {
		return Turn{}, invalidInput("turn sequence must be >= 1 (got %d)", sequence)
	}
	if sequence > MaxRoundBudget {
		return Turn{}, invalidInput("turn sequence must be <= %d (got %d)", MaxRoundBudget, sequence)
	}
	if err := ValidateArtifact(artifact); err != nil {
		return Turn{}, err
	}
	if err := ValidateCritique(critique); err != nil {
		return Turn{}, err
	}
	if createdAt.IsZero() {
		return Turn{}, invalidInput("turn creation time is required")
	}
	return Turn{
		sequence:  sequence,
		artifact:  artifact,
		critique:  critique,
		approved:  approved,
		createdAt: createdAt,
	}, nil
}

// Sequence is the 1-based position of the turn within its session.
func (t Turn) Sequence() int { return t.sequence }

// Artifact is the producer's output for this turn.
func (t Turn) Artifact() string { return t.artifact }

// Critique is the critic's response to Artifact.
func (t Turn) Critique() string { return t.critique }

// Approved reports whether the critique was judged an approval.
func (t Turn) Approved() bool { return t.approved }

// CreatedAt is when the turn was recorded.
func (t Turn) CreatedAt() time.Time { return t.createdAt }

// ValidateArtifact checks a producer output against the turn bounds.
func ValidateArtifact(artifact string) error {
	if strings.TrimSpace(artifact) == "" {
		return invalidInput("artifact is required")
	}
	if n := utf8.RuneCountInString(artifact); n > MaxArtifactLength {
		return invalidInput("artifact must be %d characters or less (got %d)", MaxArtifactLength, n)
	}
	return nil
}

// ValidateCritique checks a critic output against the turn bounds.
func ValidateCritique(critique string) error {
	if n := utf8.RuneCountInString(critique); n > MaxCritiqueLength {
		return invalidInput("critique must be %d characters or less (got %d)", MaxCritiqueLength, n)
	}
	return nil
}
