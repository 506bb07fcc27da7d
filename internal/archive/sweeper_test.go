package archive

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairplay/gamesync/internal/session"
	"github.com/pairplay/gamesync/internal/store"
)

type stubWriter struct {
	mu       sync.Mutex
	rows     map[string]bool
	recordFn func(m *session.Match) error
}

func newStubWriter() *stubWriter {
	return &stubWriter{rows: make(map[string]bool)}
}

func (w *stubWriter) Has(_ context.Context, matchID string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows[matchID], nil
}

func (w *stubWriter) Record(_ context.Context, m *session.Match) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.recordFn != nil {
		if err := w.recordFn(m); err != nil {
			return err
		}
	}
	w.rows[m.ID] = true
	return nil
}

func completedStoreMatch(t *testing.T, mem *store.Memory) *session.Match {
	t.Helper()
	ctx := context.Background()
	m, err := mem.GetOrCreate(ctx, session.KindQuiz, "slot", [2]string{"a", "b"})
	require.NoError(t, err)
	recs := []session.AnswerRecord{{Step: 0}, {Step: 1}}
	_, err = mem.AppendAllAnswers(ctx, m.ID, "a", recs)
	require.NoError(t, err)
	done, err := mem.AppendAllAnswers(ctx, m.ID, "b", recs)
	require.NoError(t, err)
	return done
}

func TestSweepBackfillsMissedCompletions(t *testing.T) {
	mem := store.NewMemory(session.StaticContent{Counts: map[string]int{"slot": 2}})
	m := completedStoreMatch(t, mem)
	w := newStubWriter()

	s := NewSweeper(mem, w, time.Minute, time.Hour, zerolog.New(io.Discard))
	s.sweep(context.Background())

	has, err := w.Has(context.Background(), m.ID)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestSweepSkipsAlreadyArchived(t *testing.T) {
	mem := store.NewMemory(session.StaticContent{Counts: map[string]int{"slot": 2}})
	m := completedStoreMatch(t, mem)

	w := newStubWriter()
	w.rows[m.ID] = true
	recorded := 0
	w.recordFn = func(_ *session.Match) error {
		recorded++
		return nil
	}

	s := NewSweeper(mem, w, time.Minute, time.Hour, zerolog.New(io.Discard))
	s.sweep(context.Background())

	assert.Zero(t, recorded)
}

func TestSweepToleratesWriteFailures(t *testing.T) {
	mem := store.NewMemory(session.StaticContent{Counts: map[string]int{"slot": 2}})
	completedStoreMatch(t, mem)

	w := newStubWriter()
	w.recordFn = func(_ *session.Match) error { return errors.New("db down") }

	s := NewSweeper(mem, w, time.Minute, time.Hour, zerolog.New(io.Discard))
	s.sweep(context.Background())

	// Next sweep retries once the writer recovers.
	w.recordFn = nil
	s.sweep(context.Background())
	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Len(t, w.rows, 1)
}
