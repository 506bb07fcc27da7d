package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairplay/gamesync/internal/session"
)

func memStore() *Memory {
	return NewMemory(session.StaticContent{
		Counts: map[string]int{"slot": 2},
		Ladders: map[string]session.LadderState{
			"ladder-slot": {StartWord: "COLD", EndWord: "WARM"},
		},
	})
}

func TestGetOrCreateReusesLiveSlot(t *testing.T) {
	s := memStore()
	ctx := context.Background()

	m1, err := s.GetOrCreate(ctx, session.KindQuiz, "slot", [2]string{"a", "b"})
	require.NoError(t, err)
	m2, err := s.GetOrCreate(ctx, session.KindQuiz, "slot", [2]string{"b", "a"})
	require.NoError(t, err)
	assert.Equal(t, m1.ID, m2.ID)

	// A completed match frees the slot for a fresh document.
	recs := []session.AnswerRecord{{Step: 0}, {Step: 1}}
	_, err = s.AppendAllAnswers(ctx, m1.ID, "a", recs)
	require.NoError(t, err)
	_, err = s.AppendAllAnswers(ctx, m1.ID, "b", recs)
	require.NoError(t, err)

	m3, err := s.GetOrCreate(ctx, session.KindQuiz, "slot", [2]string{"a", "b"})
	require.NoError(t, err)
	assert.NotEqual(t, m1.ID, m3.ID)
}

func TestGetOrCreateSeedsLadderState(t *testing.T) {
	s := memStore()

	m, err := s.GetOrCreate(context.Background(), session.KindWordLadder, "ladder-slot", [2]string{"a", "b"})
	require.NoError(t, err)
	require.NotNil(t, m.Ladder)
	assert.Equal(t, "COLD", m.Ladder.CurrentWord)
	assert.Equal(t, []string{"COLD"}, m.Ladder.WordChain)
	assert.Equal(t, "a", m.TurnHolder)
}

func TestGetReturnsIsolatedCopies(t *testing.T) {
	s := memStore()
	ctx := context.Background()

	m, err := s.GetOrCreate(ctx, session.KindQuiz, "slot", [2]string{"a", "b"})
	require.NoError(t, err)

	// Mutating a returned document never leaks into the store.
	m.Status = session.StatusCompleted
	m.Answers["a"] = append(m.Answers["a"], session.AnswerRecord{Step: 0})

	fresh, err := s.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusActive, fresh.Status)
	assert.Zero(t, fresh.AnswerCount("a"))
}

func TestLadderMoveRevalidatedInCriticalSection(t *testing.T) {
	s := memStore()
	ctx := context.Background()

	m, err := s.GetOrCreate(ctx, session.KindWordLadder, "ladder-slot", [2]string{"a", "b"})
	require.NoError(t, err)

	// The holder yields, the partner's assist lands first.
	_, err = s.SetYielded(ctx, m.ID, "a", true)
	require.NoError(t, err)
	_, err = s.AppendLadderMove(ctx, m.ID, "b", "CORD")
	require.NoError(t, err)

	// The holder's own move was validated against the pre-assist chain.
	// The turn check alone would admit it (the assist handed the turn
	// back), so the store re-checks reuse and adjacency.
	_, err = s.AppendLadderMove(ctx, m.ID, "a", "CORD")
	assert.ErrorIs(t, err, session.ErrInvalidMove)
	assert.True(t, session.IsStale(err), "caller should re-fetch and re-validate")

	_, err = s.AppendLadderMove(ctx, m.ID, "a", "WARM")
	assert.ErrorIs(t, err, session.ErrInvalidMove, "non-adjacent against the moved chain")

	fresh, err := s.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"COLD", "CORD"}, fresh.Ladder.WordChain)
	assert.Equal(t, "a", fresh.TurnHolder)
}

func TestFailNextWrapsTransient(t *testing.T) {
	s := memStore()
	ctx := context.Background()

	m, err := s.GetOrCreate(ctx, session.KindQuiz, "slot", [2]string{"a", "b"})
	require.NoError(t, err)

	s.FailNext = errors.New("boom")
	_, err = s.Get(ctx, m.ID)
	assert.True(t, session.IsTransient(err))

	_, err = s.Get(ctx, m.ID)
	assert.NoError(t, err, "failure injected once")
}

func TestCompletedSince(t *testing.T) {
	s := memStore()
	ctx := context.Background()

	m, err := s.GetOrCreate(ctx, session.KindQuiz, "slot", [2]string{"a", "b"})
	require.NoError(t, err)

	ids, err := s.CompletedSince(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, ids)

	recs := []session.AnswerRecord{{Step: 0}, {Step: 1}}
	_, err = s.AppendAllAnswers(ctx, m.ID, "a", recs)
	require.NoError(t, err)
	_, err = s.AppendAllAnswers(ctx, m.ID, "b", recs)
	require.NoError(t, err)

	ids, err = s.CompletedSince(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{m.ID}, ids)

	ids, err = s.CompletedSince(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestForgetRemovesMatchAndSlot(t *testing.T) {
	s := memStore()
	ctx := context.Background()

	m, err := s.GetOrCreate(ctx, session.KindQuiz, "slot", [2]string{"a", "b"})
	require.NoError(t, err)

	s.Forget(m.ID)
	_, err = s.Get(ctx, m.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)

	replacement, err := s.GetOrCreate(ctx, session.KindQuiz, "slot", [2]string{"a", "b"})
	require.NoError(t, err)
	assert.NotEqual(t, m.ID, replacement.ID)
}
