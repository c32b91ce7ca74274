package iterative

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/steveyegge/slogan-gen/internal/logging"
	"github.com/steveyegge/slogan-gen/internal/types"
)

func TestInMemoryMetricsCollector_Aggregate(t *testing.T) {
	m := NewInMemoryMetricsCollector()

	add := func(model string, reason types.CompletionReason, turns int, d time.Duration) {
		m.RecordSessionComplete(nil, &SessionMetrics{
			Model:         model,
			Reason:        reason,
			TotalTurns:    turns,
			TotalDuration: d,
		})
	}
	add("llama3", types.ReasonApproved, 1, time.Second)
	add("llama3", types.ReasonApproved, 3, 3*time.Second)
	add("llama3", types.ReasonRoundLimitReached, 5, 5*time.Second)
	add("mistral", types.ReasonApproved, 2, 2*time.Second)
	add("mistral", types.ReasonError, 0, time.Second)

	m.RecordCapabilityFault(&CapabilityFault{Role: RoleProducer, Sequence: 1, Err: errors.New("x")})
	m.RecordCapabilityFault(nil)

	agg := m.GetAggregateMetrics()

	if agg.TotalSessions != 5 {
		t.Errorf("Expected 5 sessions, got %d", agg.TotalSessions)
	}
	if agg.ApprovedSessions != 3 || agg.RoundLimitSessions != 1 || agg.ErroredSessions != 1 {
		t.Errorf("Unexpected reason breakdown: %+v", agg)
	}
	if agg.TotalTurns != 11 {
		t.Errorf("Expected 11 total turns, got %d", agg.TotalTurns)
	}
	if agg.MeanTurns != 2.2 {
		t.Errorf("Expected mean turns 2.2, got %f", agg.MeanTurns)
	}
	if agg.P50TurnsToApproval != 2 {
		t.Errorf("Expected P50 of 2, got %d", agg.P50TurnsToApproval)
	}
	if agg.P95TurnsToApproval != 3 {
		t.Errorf("Expected P95 of 3, got %d", agg.P95TurnsToApproval)
	}
	if agg.TotalDuration != 12*time.Second {
		t.Errorf("Expected 12s total, got %v", agg.TotalDuration)
	}
	if agg.ApprovalRate() != 60 {
		t.Errorf("Expected 60%% approval rate, got %f", agg.ApprovalRate())
	}
	if agg.CapabilityFaults[RoleProducer] != 1 || agg.CapabilityFaults[RoleCritic] != 0 {
		t.Errorf("Unexpected fault counts: %v", agg.CapabilityFaults)
	}

	llama := agg.ByModel["llama3"]
	if llama == nil || llama.Count != 3 || llama.ApprovedCount != 2 || llama.MeanTurns != 3 {
		t.Errorf("Unexpected llama3 breakdown: %+v", llama)
	}
	mistral := agg.ByModel["mistral"]
	if mistral == nil || mistral.Count != 2 || mistral.ApprovedCount != 1 || mistral.MeanTurns != 1 {
		t.Errorf("Unexpected mistral breakdown: %+v", mistral)
	}
}

func TestInMemoryMetricsCollector_Empty(t *testing.T) {
	agg := NewInMemoryMetricsCollector().GetAggregateMetrics()
	if agg.TotalSessions != 0 || agg.MeanTurns != 0 || agg.ApprovalRate() != 0 {
		t.Errorf("Expected zero aggregate, got %+v", agg)
	}
}

func TestInMemoryMetricsCollector_FromEngine(t *testing.T) {
	m := NewInMemoryMetricsCollector()
	e := NewEngine(Config{Logger: logging.NewNop(), Collector: m, Clock: newFakeClock().Now, Model: "llama3"})

	s, err := e.Run(context.Background(), "tea", 5, &scriptedProducer{}, approveOn(2))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if m.TurnsStarted() != 2 {
		t.Errorf("Expected 2 turns started, got %d", m.TurnsStarted())
	}
	if m.TurnsEnded() != 2 {
		t.Errorf("Expected 2 turns ended, got %d", m.TurnsEnded())
	}
	sessions := m.GetSessions()
	if len(sessions) != 1 {
		t.Fatalf("Expected 1 session, got %d", len(sessions))
	}
	got := sessions[0]
	if got.SessionID != s.ID() || got.Model != "llama3" || got.Reason != types.ReasonApproved {
		t.Errorf("Unexpected session metrics: %+v", got)
	}
	if got.TotalTurns != 2 || len(got.Turns) != 2 {
		t.Errorf("Expected 2 turns recorded, got %d/%d", got.TotalTurns, len(got.Turns))
	}
	if !got.Turns[1].Approved || got.Turns[0].Approved {
		t.Error("Approval flags recorded on the wrong turns")
	}
	for _, tm := range got.Turns {
		// The fake clock ticks once per reading, so each phase takes 1s
		if tm.ProducerDuration != time.Second || tm.CriticDuration != time.Second {
			t.Errorf("Turn %d: unexpected durations %v/%v", tm.Sequence, tm.ProducerDuration, tm.CriticDuration)
		}
		if tm.ArtifactLength != len("slogan v1") {
			t.Errorf("Turn %d: unexpected artifact length %d", tm.Sequence, tm.ArtifactLength)
		}
	}
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		sorted []int
		p      int
		want   int
	}{
		{nil, 50, 0},
		{[]int{4}, 95, 4},
		{[]int{1, 2, 3, 4}, 50, 3},
		{[]int{1, 2, 3, 4}, 100, 4},
	}
	for _, tt := range tests {
		if got := percentile(tt.sorted, tt.p); got != tt.want {
			t.Errorf("percentile(%v, %d) = %d, want %d", tt.sorted, tt.p, got, tt.want)
		}
	}
}
