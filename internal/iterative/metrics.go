package iterative

import (
	"sort"
	"sync"
	"time"

	"github.com/steveyegge/slogan-gen/internal/types"
)

// MetricsCollector provides instrumentation for sessions run by the Engine.
// Implementations must be safe for concurrent use: one Engine may drive
// several sessions at once (e.g. behind the HTTP API).
//
// This interface is optional - leave Config.Collector nil to disable
// metrics collection.
type MetricsCollector interface {
	// RecordTurnStart is called before the producer is invoked for a turn
	RecordTurnStart(sequence int)

	// RecordTurnEnd is called once a turn has been appended to its session
	RecordTurnEnd(metrics *TurnMetrics)

	// RecordCapabilityFault is called when the producer or critic fails
	RecordCapabilityFault(fault *CapabilityFault)

	// RecordSessionComplete is called once per finalized session
	RecordSessionComplete(session *types.Session, metrics *SessionMetrics)
}

// TurnMetrics captures metrics for a single turn.
type TurnMetrics struct {
	// Sequence is the turn number (1-based)
	Sequence int

	// ProducerDuration is the time spent waiting on the producer
	ProducerDuration time.Duration

	// CriticDuration is the time spent waiting on the critic
	CriticDuration time.Duration

	// Duration is the time spent on the whole turn
	Duration time.Duration

	// ArtifactLength and CritiqueLength are in bytes
	ArtifactLength int
	CritiqueLength int

	// Approved is the approval signal of the turn
	Approved bool
}

// SessionMetrics captures metrics for an entire session.
type SessionMetrics struct {
	SessionID   string
	Model       string
	Reason      types.CompletionReason
	RoundBudget int

	// TotalTurns is the number of turns recorded
	TotalTurns int

	// TotalDuration is the wall time from start to completion
	TotalDuration time.Duration

	// Turns contains the per-turn metrics
	Turns []*TurnMetrics
}

// AggregateMetrics provides rolled-up statistics across sessions.
type AggregateMetrics struct {
	// TotalSessions is the number of finalized sessions
	TotalSessions int

	// ApprovedSessions, RoundLimitSessions and ErroredSessions break
	// TotalSessions down by completion reason
	ApprovedSessions   int
	RoundLimitSessions int
	ErroredSessions    int

	// TotalTurns is the sum of turns across all sessions
	TotalTurns int

	// MeanTurns is the average turns per session
	MeanTurns float64

	// P50TurnsToApproval is the median turn count of approved sessions
	P50TurnsToApproval int

	// P95TurnsToApproval is the 95th percentile turn count of approved sessions
	P95TurnsToApproval int

	// TotalDuration is the sum of session durations
	TotalDuration time.Duration

	// CapabilityFaults counts producer and critic failures by role
	CapabilityFaults map[Role]int

	// ByModel breaks down metrics by model name
	ByModel map[string]*ModelMetrics
}

// ApprovalRate is the percentage of sessions that ended approved.
func (a *AggregateMetrics) ApprovalRate() float64 {
	if a.TotalSessions == 0 {
		return 0
	}
	return float64(a.ApprovedSessions) / float64(a.TotalSessions) * 100
}

// ModelMetrics provides aggregate statistics for one model.
type ModelMetrics struct {
	Count         int
	ApprovedCount int
	MeanTurns     float64
}

// InMemoryMetricsCollector is a simple in-memory implementation of MetricsCollector.
// It stores all metrics in memory for analysis and testing.
type InMemoryMetricsCollector struct {
	mu       sync.Mutex
	sessions []*SessionMetrics
	started  int
	ended    int
	faults   map[Role]int
}

// NewInMemoryMetricsCollector creates a new in-memory metrics collector
func NewInMemoryMetricsCollector() *InMemoryMetricsCollector {
	return &InMemoryMetricsCollector{
		sessions: make([]*SessionMetrics, 0),
		faults:   make(map[Role]int),
	}
}

// RecordTurnStart implements MetricsCollector
func (m *InMemoryMetricsCollector) RecordTurnStart(sequence int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started++
}

// RecordTurnEnd implements MetricsCollector. Per-turn detail arrives again,
// attached to its session, in RecordSessionComplete; only the count is kept.
func (m *InMemoryMetricsCollector) RecordTurnEnd(metrics *TurnMetrics) {
	if metrics == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ended++
}

// RecordCapabilityFault implements MetricsCollector
func (m *InMemoryMetricsCollector) RecordCapabilityFault(fault *CapabilityFault) {
	if fault == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[fault.Role]++
}

// RecordSessionComplete implements MetricsCollector
func (m *InMemoryMetricsCollector) RecordSessionComplete(session *types.Session, metrics *SessionMetrics) {
	if metrics == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, metrics)
}

// TurnsStarted returns how many turns were started, including turns that
// ended in a fault.
func (m *InMemoryMetricsCollector) TurnsStarted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// TurnsEnded returns how many turns completed. A turn that ended in a
// fault is started but never ended.
func (m *InMemoryMetricsCollector) TurnsEnded() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ended
}

// GetSessions returns all collected session metrics (useful for analysis)
func (m *InMemoryMetricsCollector) GetSessions() []*SessionMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*SessionMetrics, len(m.sessions))
	copy(out, m.sessions)
	return out
}

// GetAggregateMetrics rolls up everything collected so far.
func (m *InMemoryMetricsCollector) GetAggregateMetrics() *AggregateMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	agg := &AggregateMetrics{
		CapabilityFaults: make(map[Role]int, len(m.faults)),
		ByModel:          make(map[string]*ModelMetrics),
	}
	for role, n := range m.faults {
		agg.CapabilityFaults[role] = n
	}

	var approvalTurns []int
	turnsByModel := make(map[string]int)

	for _, s := range m.sessions {
		agg.TotalSessions++
		agg.TotalTurns += s.TotalTurns
		agg.TotalDuration += s.TotalDuration

		switch s.Reason {
		case types.ReasonApproved:
			agg.ApprovedSessions++
			approvalTurns = append(approvalTurns, s.TotalTurns)
		case types.ReasonRoundLimitReached:
			agg.RoundLimitSessions++
		case types.ReasonError:
			agg.ErroredSessions++
		}

		mm := agg.ByModel[s.Model]
		if mm == nil {
			mm = &ModelMetrics{}
			agg.ByModel[s.Model] = mm
		}
		mm.Count++
		if s.Reason == types.ReasonApproved {
			mm.ApprovedCount++
		}
		turnsByModel[s.Model] += s.TotalTurns
	}

	if agg.TotalSessions > 0 {
		agg.MeanTurns = float64(agg.TotalTurns) / float64(agg.TotalSessions)
	}
	for model, mm := range agg.ByModel {
		mm.MeanTurns = float64(turnsByModel[model]) / float64(mm.Count)
	}

	if len(approvalTurns) > 0 {
		sort.Ints(approvalTurns)
		agg.P50TurnsToApproval = percentile(approvalTurns, 50)
		agg.P95TurnsToApproval = percentile(approvalTurns, 95)
	}

	return agg
}

// Helper: percentile calculates the Nth percentile from a sorted slice
func percentile(sorted []int, p int) int {
	if len(sorted) == 0 {
		return 0
	}
	index := (len(sorted) * p) / 100
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
