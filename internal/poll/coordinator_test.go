package poll_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairplay/gamesync/internal/poll"
	"github.com/pairplay/gamesync/internal/session"
	"github.com/pairplay/gamesync/internal/store"
)

type recordingEvents struct {
	mu        sync.Mutex
	completed []string
	gone      []string
	ctxErrs   []error
}

func (e *recordingEvents) MatchCompleted(ctx context.Context, m *session.Match) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.completed = append(e.completed, m.ID)
	e.ctxErrs = append(e.ctxErrs, ctx.Err())
}

func (e *recordingEvents) MatchGone(ctx context.Context, matchID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gone = append(e.gone, matchID)
	e.ctxErrs = append(e.ctxErrs, ctx.Err())
}

func (e *recordingEvents) completedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.completed)
}

func (e *recordingEvents) goneCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.gone)
}

func testStore(t *testing.T) (*store.Memory, *session.Match) {
	t.Helper()
	mem := store.NewMemory(session.StaticContent{Counts: map[string]int{"slot": 2}})
	m, err := mem.GetOrCreate(context.Background(), session.KindQuiz, "slot", [2]string{"a", "b"})
	require.NoError(t, err)
	return mem, m
}

func completeMatch(t *testing.T, mem *store.Memory, matchID string) {
	t.Helper()
	ctx := context.Background()
	recs := []session.AnswerRecord{{Step: 0, Payload: "x"}, {Step: 1, Payload: "y"}}
	_, err := mem.AppendAllAnswers(ctx, matchID, "a", recs)
	require.NoError(t, err)
	_, err = mem.AppendAllAnswers(ctx, matchID, "b", recs)
	require.NoError(t, err)
}

func newCoordinator(mem *store.Memory, events poll.Events) (*poll.Coordinator, *poll.CompletionGuard) {
	guard := poll.NewCompletionGuard()
	return poll.NewCoordinator(mem, guard, events, zerolog.New(io.Discard)), guard
}

func TestTimerPathDetectsCompletion(t *testing.T) {
	mem, m := testStore(t)
	events := &recordingEvents{}
	coord, _ := newCoordinator(mem, events)

	ctx := context.Background()
	coord.Start(ctx, m.ID, 10*time.Millisecond, nil)
	require.True(t, coord.Polling(m.ID))

	completeMatch(t, mem, m.ID)

	require.Eventually(t, func() bool {
		return events.completedCount() == 1
	}, 2*time.Second, 5*time.Millisecond)

	assert.False(t, coord.Polling(m.ID), "completion stops polling")

	// Later ticks or checks never fire the handler again.
	_, err := coord.CheckNow(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, events.completedCount())
}

func TestCompletionContextOutlivesPollLoop(t *testing.T) {
	// Completion detection stops the poll loop before notifying, which
	// cancels the loop context. The listener's context must stay live so
	// completion-time writes (archive, rewards) are not aborted.
	mem, m := testStore(t)
	events := &recordingEvents{}
	coord, _ := newCoordinator(mem, events)

	coord.Start(context.Background(), m.ID, 10*time.Millisecond, nil)
	completeMatch(t, mem, m.ID)

	require.Eventually(t, func() bool {
		return events.completedCount() == 1
	}, 2*time.Second, 5*time.Millisecond)

	events.mu.Lock()
	defer events.mu.Unlock()
	require.Len(t, events.ctxErrs, 1)
	assert.NoError(t, events.ctxErrs[0], "timer-path delivery context was canceled")
}

func TestGoneContextOutlivesPollLoop(t *testing.T) {
	mem, m := testStore(t)
	events := &recordingEvents{}
	coord, _ := newCoordinator(mem, events)

	coord.Start(context.Background(), m.ID, 10*time.Millisecond, nil)
	mem.Forget(m.ID)

	require.Eventually(t, func() bool {
		return events.goneCount() == 1
	}, 2*time.Second, 5*time.Millisecond)

	events.mu.Lock()
	defer events.mu.Unlock()
	require.Len(t, events.ctxErrs, 1)
	assert.NoError(t, events.ctxErrs[0])
}

func TestCheckNowWithoutPolling(t *testing.T) {
	mem, m := testStore(t)
	events := &recordingEvents{}
	coord, guard := newCoordinator(mem, events)

	ctx := context.Background()
	state, err := coord.CheckNow(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusActive, state.Status)
	assert.Zero(t, events.completedCount())

	completeMatch(t, mem, m.ID)

	state, err = coord.CheckNow(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusCompleted, state.Status)
	assert.Equal(t, 1, events.completedCount())
	assert.True(t, guard.Claimed(m.ID))
}

func TestRacingChecksFireCompletionOnce(t *testing.T) {
	mem, m := testStore(t)
	events := &recordingEvents{}
	coord, _ := newCoordinator(mem, events)

	ctx := context.Background()
	coord.Start(ctx, m.ID, 5*time.Millisecond, nil)
	completeMatch(t, mem, m.ID)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = coord.CheckNow(ctx, m.ID)
		}()
	}
	wg.Wait()
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 1, events.completedCount(), "manual checks and timer ticks share one claim")
}

func TestTransientErrorsAreSwallowed(t *testing.T) {
	mem, m := testStore(t)
	events := &recordingEvents{}
	coord, _ := newCoordinator(mem, events)

	mem.FailNext = errors.New("store hiccup")

	ctx := context.Background()
	coord.Start(ctx, m.ID, 10*time.Millisecond, nil)
	completeMatch(t, mem, m.ID)

	// The failed tick retries on the next one; completion still lands.
	require.Eventually(t, func() bool {
		return events.completedCount() == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestOnUpdateSerializedPerMatch(t *testing.T) {
	mem, m := testStore(t)
	events := &recordingEvents{}
	coord, _ := newCoordinator(mem, events)

	var inFlight atomic.Int32
	var overlapped atomic.Bool
	onUpdate := func(_ *session.Match) {
		if inFlight.Add(1) > 1 {
			overlapped.Store(true)
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
	}

	ctx := context.Background()
	coord.Start(ctx, m.ID, 2*time.Millisecond, onUpdate)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = coord.CheckNow(ctx, m.ID)
		}()
	}
	wg.Wait()
	coord.Stop(m.ID)

	assert.False(t, overlapped.Load(), "onUpdate for one match never overlaps")
}

func TestStopIsIdempotent(t *testing.T) {
	mem, m := testStore(t)
	coord, _ := newCoordinator(mem, &recordingEvents{})

	coord.Start(context.Background(), m.ID, 10*time.Millisecond, nil)
	coord.Stop(m.ID)
	coord.Stop(m.ID)
	coord.Stop("never-started")
	assert.False(t, coord.Polling(m.ID))
}

func TestStartTwiceKeepsOneLoop(t *testing.T) {
	mem, m := testStore(t)
	coord, _ := newCoordinator(mem, &recordingEvents{})

	ctx := context.Background()
	coord.Start(ctx, m.ID, 10*time.Millisecond, nil)
	coord.Start(ctx, m.ID, 10*time.Millisecond, nil)

	coord.Stop(m.ID)
	assert.False(t, coord.Polling(m.ID), "single stop tears down the single loop")
}

func TestVanishedMatchRoutesToGone(t *testing.T) {
	mem, m := testStore(t)
	events := &recordingEvents{}
	coord, _ := newCoordinator(mem, events)

	ctx := context.Background()
	coord.Start(ctx, m.ID, 10*time.Millisecond, nil)
	mem.Forget(m.ID)

	require.Eventually(t, func() bool {
		return events.goneCount() == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.False(t, coord.Polling(m.ID))
	assert.Zero(t, events.completedCount())
}
