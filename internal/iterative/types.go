package iterative

import (
	"context"
	"fmt"

	"github.com/steveyegge/slogan-gen/internal/types"
)

// Role identifies which side of the exchange a capability plays.
type Role string

const (
	RoleProducer Role = "producer"
	RoleCritic   Role = "critic"
)

// CapabilityRequest is the context handed to a capability for one turn.
type CapabilityRequest struct {
	Role Role

	// Request is the original, trimmed request text
	Request string

	// History holds every completed turn before this one, oldest first
	History []types.Turn

	// Sequence is the number of the turn being produced (1-based)
	Sequence int

	// Artifact is the candidate under review. Empty for the producer.
	Artifact string
}

// Capability is an external text generator: the producer or the critic.
// Implementations own their transport, retries and timeouts.
type Capability interface {
	Generate(ctx context.Context, req CapabilityRequest) (string, error)
}

// CapabilityFunc adapts a function to the Capability interface.
type CapabilityFunc func(ctx context.Context, req CapabilityRequest) (string, error)

// Generate implements Capability.
func (f CapabilityFunc) Generate(ctx context.Context, req CapabilityRequest) (string, error) {
	return f(ctx, req)
}

// CapabilityFault records a producer or critic failure, including output
// that could not be recorded as a turn.
type CapabilityFault struct {
	Role     Role
	Sequence int
	Err      error
}

func (f *CapabilityFault) Error() string {
	return fmt.Sprintf("%s failed on turn %d: %v", f.Role, f.Sequence, f.Err)
}

func (f *CapabilityFault) Unwrap() error {
	return f.Err
}
