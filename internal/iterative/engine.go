package iterative

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/steveyegge/slogan-gen/internal/types"
)

// Config controls how the Engine runs sessions. The zero value is usable.
type Config struct {
	// Detector judges critiques. Default: PhraseDetector for DefaultApprovalPhrase.
	Detector ApprovalDetector

	// Policy decides termination after each turn. Default: Decide.
	Policy TerminationPolicy

	// Collector receives turn and session metrics. Optional.
	Collector MetricsCollector

	// Logger receives structured progress records. Default: slog.Default().
	Logger *slog.Logger

	// Clock supplies timestamps. It must never go backwards. Default: time.Now.
	Clock func() time.Time

	// Timeout caps a whole session. Zero means no engine-imposed limit; the
	// capabilities still apply their own per-call timeouts.
	Timeout time.Duration

	// Model is recorded on every session for display and storage.
	Model string
}

// Engine orchestrates the producer/critic turn loop.
type Engine struct {
	detector  ApprovalDetector
	policy    TerminationPolicy
	collector MetricsCollector
	logger    *slog.Logger
	clock     func() time.Time
	timeout   time.Duration
	model     string
}

// NewEngine creates an Engine, filling unset Config fields with defaults.
func NewEngine(cfg Config) *Engine {
	e := &Engine{
		detector:  cfg.Detector,
		policy:    cfg.Policy,
		collector: cfg.Collector,
		logger:    cfg.Logger,
		clock:     cfg.Clock,
		timeout:   cfg.Timeout,
		model:     cfg.Model,
	}
	if e.detector == nil {
		e.detector = defaultDetector
	}
	if e.policy == nil {
		e.policy = Decide
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	return e
}

// Run drives one session from request to termination.
//
// On success the returned session is always completed and satisfies every
// session invariant. Producer and critic failures do not surface as errors:
// they finalize the session with types.ReasonError. The error return is
// reserved for types.ErrInvalidInput (no session was created) and
// types.ErrInvariantViolation (the engine itself is broken); in both cases
// the session is nil.
func (e *Engine) Run(ctx context.Context, request string, roundBudget int, producer, critic Capability) (*types.Session, error) {
	if producer == nil || critic == nil {
		return nil, fmt.Errorf("%w: producer and critic are required", types.ErrInvalidInput)
	}

	session, err := types.NewSession(request, roundBudget, e.clock(), types.WithModel(e.model))
	if err != nil {
		return nil, err
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	log := e.logger.With("session", session.ID())
	log.Info("session started", "round_budget", roundBudget, "model", e.model)

	turnMetrics := make([]*TurnMetrics, 0, roundBudget)

	for session.TurnCount() < roundBudget {
		seq := session.TurnCount() + 1

		// Cancellation is only observed between turns
		if err := ctx.Err(); err != nil {
			log.Warn("session abandoned", "turn", seq, "error", err)
			return e.finalize(session, types.ReasonError,
				fmt.Sprintf("canceled before turn %d: %v", seq, err), turnMetrics)
		}

		if e.collector != nil {
			e.collector.RecordTurnStart(seq)
		}
		turnStart := e.clock()

		history := session.Turns()
		artifact, err := producer.Generate(ctx, CapabilityRequest{
			Role:     RoleProducer,
			Request:  session.Request(),
			History:  history,
			Sequence: seq,
		})
		if err == nil {
			err = types.ValidateArtifact(artifact)
		}
		if err != nil {
			return e.fault(session, &CapabilityFault{Role: RoleProducer, Sequence: seq, Err: err}, turnMetrics)
		}
		producerDone := e.clock()

		critique, err := critic.Generate(ctx, CapabilityRequest{
			Role:     RoleCritic,
			Request:  session.Request(),
			History:  history,
			Sequence: seq,
			Artifact: artifact,
		})
		if err == nil {
			err = types.ValidateCritique(critique)
		}
		if err != nil {
			return e.fault(session, &CapabilityFault{Role: RoleCritic, Sequence: seq, Err: err}, turnMetrics)
		}

		approved := e.detector.Detect(critique)
		turnEnd := e.clock()

		turn, err := types.NewTurn(seq, artifact, critique, approved, turnEnd)
		if err != nil {
			return nil, fmt.Errorf("%w: building turn %d: %v", types.ErrInvariantViolation, seq, err)
		}
		if err := session.AppendTurn(turn); err != nil {
			return nil, err
		}

		tm := &TurnMetrics{
			Sequence:         seq,
			ProducerDuration: producerDone.Sub(turnStart),
			CriticDuration:   turnEnd.Sub(producerDone),
			Duration:         turnEnd.Sub(turnStart),
			ArtifactLength:   len(artifact),
			CritiqueLength:   len(critique),
			Approved:         approved,
		}
		turnMetrics = append(turnMetrics, tm)
		if e.collector != nil {
			e.collector.RecordTurnEnd(tm)
		}
		log.Info("turn completed", "turn", seq, "approved", approved, "duration", tm.Duration)

		decision := e.policy(session.TurnCount(), roundBudget, approved)
		if decision.Stop {
			return e.finalize(session, decision.Reason, "", turnMetrics)
		}
	}

	// Decide always stops at the budget boundary; reaching here means the
	// policy let a full session continue.
	return nil, fmt.Errorf("%w: session %s used all %d turns without a stop decision",
		types.ErrInvariantViolation, session.ID(), roundBudget)
}

// fault absorbs a capability failure into a terminal session.
func (e *Engine) fault(session *types.Session, fault *CapabilityFault, turns []*TurnMetrics) (*types.Session, error) {
	e.logger.Warn("capability fault",
		"session", session.ID(), "role", fault.Role, "turn", fault.Sequence, "error", fault.Err)
	if e.collector != nil {
		e.collector.RecordCapabilityFault(fault)
	}
	return e.finalize(session, types.ReasonError, fault.Error(), turns)
}

func (e *Engine) finalize(session *types.Session, reason types.CompletionReason, fault string, turns []*TurnMetrics) (*types.Session, error) {
	if err := session.Complete(reason, e.clock(), fault); err != nil {
		return nil, err
	}
	if err := session.Validate(); err != nil {
		return nil, err
	}

	if e.collector != nil {
		e.collector.RecordSessionComplete(session, &SessionMetrics{
			SessionID:     session.ID(),
			Model:         session.Model(),
			Reason:        reason,
			RoundBudget:   session.RoundBudget(),
			TotalTurns:    session.TurnCount(),
			TotalDuration: session.Duration(),
			Turns:         turns,
		})
	}

	e.logger.Info("session completed",
		"session", session.ID(), "reason", reason, "turns", session.TurnCount(), "duration", session.Duration())
	return session, nil
}
