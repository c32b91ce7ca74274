package iterative

import "github.com/steveyegge/slogan-gen/internal/types"

// Decision is the outcome of a termination check.
type Decision struct {
	Stop   bool
	Reason types.CompletionReason // set only when Stop is true
}

// Continue is the decision to run another turn.
var Continue = Decision{}

// TerminationPolicy decides after each completed turn whether the session
// ends and why.
type TerminationPolicy func(turnCount, roundBudget int, lastTurnApproved bool) Decision

// Decide is the default TerminationPolicy. Rules apply in order:
//  1. the last turn was approved: stop as approved
//  2. the budget is used up: stop as round-limit-reached
//  3. otherwise continue
func Decide(turnCount, roundBudget int, lastTurnApproved bool) Decision {
	if lastTurnApproved {
		return Decision{Stop: true, Reason: types.ReasonApproved}
	}
	if turnCount == roundBudget {
		return Decision{Stop: true, Reason: types.ReasonRoundLimitReached}
	}
	return Continue
}
