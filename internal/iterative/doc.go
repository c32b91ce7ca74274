// Package iterative drives a bounded, turn-based refinement loop between a
// producer capability that writes an artifact and a critic capability that
// reviews it.
//
// # Overview
//
// Engine.Run creates a types.Session and repeats one turn at a time:
//
//  1. The producer is asked for an artifact, given the request and every
//     prior turn.
//  2. The critic is asked for a critique of that artifact, given the same
//     context.
//  3. An ApprovalDetector turns the critique into an approval signal.
//  4. The completed turn is appended to the session.
//  5. A TerminationPolicy decides whether the session stops.
//
// Approval always wins over budget exhaustion: a session approved on its
// final permitted turn completes as types.ReasonApproved.
//
// # Error Handling
//
//   - Invalid requests and round budgets are rejected before any session
//     exists (types.ErrInvalidInput).
//   - A failing producer or critic is a CapabilityFault. The session is
//     finalized with types.ReasonError and returned normally; the engine
//     never retries.
//   - Context cancellation is observed between turns and finalizes the
//     session the same way.
//   - Anything that would break turn sequencing, the round budget cap or the
//     completed/in-progress pairing is returned as types.ErrInvariantViolation
//     together with a nil session.
//
// # Approval Phrase
//
// PhraseDetector matches its phrase case-insensitively anywhere in the
// critique. A critic that merely mentions the phrase ("I would not say
// ship it yet") is read as approving. That false positive is known and kept
// for compatibility with reviewers prompted to answer "SHIP IT!".
//
// # Metrics
//
// Pass a MetricsCollector in Config to observe turns and sessions.
// InMemoryMetricsCollector keeps everything in memory for analysis and
// tests; internal/metrics provides a Prometheus implementation.
package iterative
