package iterative

import (
	"fmt"
	"strings"
)

// DefaultApprovalPhrase is what reviewers are prompted to answer with.
const DefaultApprovalPhrase = "ship it"

// ApprovalDetector maps a critique to an approval signal. Implementations
// must be pure: the same critique always yields the same answer.
type ApprovalDetector interface {
	Detect(critique string) bool
}

// ApprovalDetectorFunc adapts a function to the ApprovalDetector interface.
type ApprovalDetectorFunc func(critique string) bool

// Detect implements ApprovalDetector.
func (f ApprovalDetectorFunc) Detect(critique string) bool {
	return f(critique)
}

// PhraseDetector approves any critique containing its phrase, compared
// case-insensitively, anywhere in the text.
type PhraseDetector struct {
	phrase string // lower-cased
}

// NewPhraseDetector creates a detector for phrase. Surrounding whitespace
// in phrase is ignored.
func NewPhraseDetector(phrase string) (*PhraseDetector, error) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return nil, fmt.Errorf("approval phrase cannot be empty")
	}
	return &PhraseDetector{phrase: strings.ToLower(phrase)}, nil
}

// Phrase returns the normalized phrase the detector looks for.
func (d *PhraseDetector) Phrase() string {
	return d.phrase
}

// Detect implements ApprovalDetector.
func (d *PhraseDetector) Detect(critique string) bool {
	return strings.Contains(strings.ToLower(critique), d.phrase)
}

var defaultDetector = &PhraseDetector{phrase: DefaultApprovalPhrase}

// DetectApproval reports whether critique contains DefaultApprovalPhrase.
func DetectApproval(critique string) bool {
	return defaultDetector.Detect(critique)
}
