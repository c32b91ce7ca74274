// Package storagetest holds the behavior every storage.Storage must share.
package storagetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/slogan-gen/internal/storage"
	"github.com/steveyegge/slogan-gen/internal/types"
)

// Epoch anchors the timestamps of sessions built by NewSession.
var Epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

// NewSession builds a completed session started offset after Epoch with one
// turn per entry of approvals. Only the last entry may be true; it decides
// the reason. Sessions ending unapproved get a budget of exactly their turns.
func NewSession(t *testing.T, request string, offset time.Duration, approvals ...bool) *types.Session {
	t.Helper()
	start := Epoch.Add(offset)
	budget := types.MaxRoundBudget
	if n := len(approvals); n > 0 && !approvals[n-1] {
		budget = n
	}
	s, err := types.NewSession(request, budget, start, types.WithModel("llama3.2:latest"))
	require.NoError(t, err)

	for i, approved := range approvals {
		critique := fmt.Sprintf("feedback %d", i+1)
		if approved {
			critique = "SHIP IT!"
		}
		turn, err := types.NewTurn(i+1, fmt.Sprintf("%s v%d", request, i+1), critique, approved,
			start.Add(time.Duration(i+1)*time.Second))
		require.NoError(t, err)
		require.NoError(t, s.AppendTurn(turn))
	}

	end := start.Add(time.Duration(len(approvals)+1) * time.Second)
	switch {
	case len(approvals) == 0:
		require.NoError(t, s.Complete(types.ReasonError, end, "producer failed on turn 1: boom"))
	case approvals[len(approvals)-1]:
		require.NoError(t, s.Complete(types.ReasonApproved, end, ""))
	default:
		require.NoError(t, s.Complete(types.ReasonRoundLimitReached, end, ""))
	}
	return s
}

// RunContract exercises store. It expects an empty store.
func RunContract(t *testing.T, store storage.Storage) {
	ctx := context.Background()

	t.Run("Save and Get", func(t *testing.T) {
		s := NewSession(t, "eco bottle", 0, false, false, true)
		require.NoError(t, store.SaveSession(ctx, s))
		defer func() { _ = store.DeleteSession(ctx, s.ID()) }()

		loaded, err := store.GetSession(ctx, s.ID())
		require.NoError(t, err)
		AssertSameSession(t, s, loaded)
	})

	t.Run("Save errored session without turns", func(t *testing.T) {
		s := NewSession(t, "no turns", time.Minute)
		require.NoError(t, store.SaveSession(ctx, s))
		defer func() { _ = store.DeleteSession(ctx, s.ID()) }()

		loaded, err := store.GetSession(ctx, s.ID())
		require.NoError(t, err)
		_, ok := loaded.FinalArtifact()
		assert.False(t, ok)
		assert.Equal(t, "producer failed on turn 1: boom", loaded.Fault())
	})

	t.Run("Save replaces", func(t *testing.T) {
		s := NewSession(t, "replace me", 0, true)
		require.NoError(t, store.SaveSession(ctx, s))
		require.NoError(t, store.SaveSession(ctx, s))
		defer func() { _ = store.DeleteSession(ctx, s.ID()) }()

		all, err := store.ListSessions(ctx, 0, "")
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("Reject in-progress", func(t *testing.T) {
		s, err := types.NewSession("draft", 3, Epoch)
		require.NoError(t, err)
		assert.ErrorIs(t, store.SaveSession(ctx, s), types.ErrInvalidInput)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.GetSession(ctx, "non-existent")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		s := NewSession(t, "delete me", 0, true)
		require.NoError(t, store.SaveSession(ctx, s))

		require.NoError(t, store.DeleteSession(ctx, s.ID()))
		_, err := store.GetSession(ctx, s.ID())
		assert.ErrorIs(t, err, types.ErrNotFound)

		assert.ErrorIs(t, store.DeleteSession(ctx, s.ID()), types.ErrNotFound)
	})

	t.Run("List", func(t *testing.T) {
		older := NewSession(t, "older", time.Hour, true)
		middle := NewSession(t, "middle", 2*time.Hour, false)
		newest := NewSession(t, "newest", 3*time.Hour, false, true)
		for _, s := range []*types.Session{middle, older, newest} {
			require.NoError(t, store.SaveSession(ctx, s))
		}
		defer func() {
			for _, s := range []*types.Session{older, middle, newest} {
				_ = store.DeleteSession(ctx, s.ID())
			}
		}()

		all, err := store.ListSessions(ctx, 0, "")
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, newest.ID(), all[0].ID())
		assert.Equal(t, middle.ID(), all[1].ID())
		assert.Equal(t, older.ID(), all[2].ID())

		limited, err := store.ListSessions(ctx, 2, "")
		require.NoError(t, err)
		require.Len(t, limited, 2)
		assert.Equal(t, newest.ID(), limited[0].ID())

		approved, err := store.ListSessions(ctx, 0, types.ReasonApproved)
		require.NoError(t, err)
		require.Len(t, approved, 2)
		for _, s := range approved {
			reason, _ := s.CompletionReason()
			assert.Equal(t, types.ReasonApproved, reason)
		}
	})

	t.Run("Prune", func(t *testing.T) {
		var ids []string
		for i := 0; i < 4; i++ {
			s := NewSession(t, fmt.Sprintf("prune %d", i), time.Duration(i)*time.Hour, true)
			require.NoError(t, store.SaveSession(ctx, s))
			ids = append(ids, s.ID())
		}
		defer func() {
			for _, id := range ids {
				_ = store.DeleteSession(ctx, id)
			}
		}()

		// Sessions 0..2 are older than the cutoff, but keep spares the newest two
		n, err := store.Prune(ctx, Epoch.Add(150*time.Minute), 2)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		remaining, err := store.ListSessions(ctx, 0, "")
		require.NoError(t, err)
		require.Len(t, remaining, 2)
		assert.Equal(t, ids[3], remaining[0].ID())
		assert.Equal(t, ids[2], remaining[1].ID())

		n, err = store.Prune(ctx, Epoch, 0)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}

// AssertSameSession compares every observable field of two sessions.
func AssertSameSession(t *testing.T, want, got *types.Session) {
	t.Helper()
	assert.Equal(t, want.ID(), got.ID())
	assert.Equal(t, want.Request(), got.Request())
	assert.Equal(t, want.Model(), got.Model())
	assert.Equal(t, want.RoundBudget(), got.RoundBudget())
	assert.True(t, want.StartedAt().Equal(got.StartedAt()), "started_at %v != %v", want.StartedAt(), got.StartedAt())

	wantReason, _ := want.CompletionReason()
	gotReason, _ := got.CompletionReason()
	assert.Equal(t, wantReason, gotReason)

	wantFinal, wantOK := want.FinalArtifact()
	gotFinal, gotOK := got.FinalArtifact()
	assert.Equal(t, wantOK, gotOK)
	assert.Equal(t, wantFinal, gotFinal)
	assert.Equal(t, want.Fault(), got.Fault())

	wantDone, _ := want.CompletedAt()
	gotDone, _ := got.CompletedAt()
	assert.True(t, wantDone.Equal(gotDone), "completed_at %v != %v", wantDone, gotDone)

	wantTurns, gotTurns := want.Turns(), got.Turns()
	require.Len(t, gotTurns, len(wantTurns))
	for i := range wantTurns {
		assert.Equal(t, wantTurns[i].Sequence(), gotTurns[i].Sequence())
		assert.Equal(t, wantTurns[i].Artifact(), gotTurns[i].Artifact())
		assert.Equal(t, wantTurns[i].Critique(), gotTurns[i].Critique())
		assert.Equal(t, wantTurns[i].Approved(), gotTurns[i].Approved())
		assert.True(t, wantTurns[i].CreatedAt().Equal(gotTurns[i].CreatedAt()))
	}
}
