package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pairplay/gamesync/internal/session"
)

// Memory is an in-process session store. It backs tests and the
// simulator's standalone mode; both simulated devices share one instance,
// which stands in for the remote document store.
type Memory struct {
	content session.ContentResolver

	mu      sync.Mutex
	matches map[string]*session.Match
	slots   map[string]string // pair slot key -> match id

	// FailNext, when set, is returned (wrapped as transient) by the next
	// Get call. Lets tests exercise the swallow-and-retry poll path.
	FailNext error
}

var _ session.Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory(content session.ContentResolver) *Memory {
	return &Memory{
		content: content,
		matches: make(map[string]*session.Match),
		slots:   make(map[string]string),
	}
}

func slotKey(gameKind, contentSlot string, players [2]string) string {
	pair := []string{players[0], players[1]}
	sort.Strings(pair)
	return strings.Join([]string{gameKind, contentSlot, pair[0], pair[1]}, "|")
}

// newMatch builds a fresh active document. The pending state is never
// observable: both players are known at creation time.
func newMatch(gameKind, contentSlot string, players [2]string, content session.ContentResolver) *session.Match {
	m := &session.Match{
		ID:          uuid.New().String(),
		GameKind:    gameKind,
		ContentSlot: contentSlot,
		Players:     players,
		Status:      session.StatusActive,
		Answers:     make(map[string][]session.AnswerRecord, 2),
		CreatedAt:   time.Now().UTC(),
	}
	if session.RulesFor(gameKind).TurnBased() {
		m.TurnHolder = players[0]
	}
	if content != nil {
		m.ExpectedAnswers = content.QuestionCount(contentSlot)
		if gameKind == session.KindWordLadder {
			if puzzle, ok := content.LadderPuzzle(contentSlot); ok {
				puzzle.CurrentWord = puzzle.StartWord
				puzzle.WordChain = []string{puzzle.StartWord}
				m.Ladder = &puzzle
			}
		}
	}
	return m
}

// GetOrCreate returns the live match for this pair slot or creates one.
func (s *Memory) GetOrCreate(ctx context.Context, gameKind, contentSlot string, players [2]string) (*session.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := slotKey(gameKind, contentSlot, players)
	if id, ok := s.slots[key]; ok {
		if m, ok := s.matches[id]; ok && m.Status != session.StatusCompleted {
			return m.Clone(), nil
		}
	}

	m := newMatch(gameKind, contentSlot, players, s.content)
	s.matches[m.ID] = m
	s.slots[key] = m.ID
	return m.Clone(), nil
}

// Get fetches a match by id.
func (s *Memory) Get(ctx context.Context, matchID string) (*session.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.FailNext; err != nil {
		s.FailNext = nil
		return nil, session.Transient(err)
	}

	m, ok := s.matches[matchID]
	if !ok {
		return nil, session.ErrNotFound
	}
	return m.Clone(), nil
}

// Forget drops a match, simulating an admin reset or archival expiry.
func (s *Memory) Forget(matchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[matchID]
	if !ok {
		return
	}
	delete(s.matches, matchID)
	delete(s.slots, slotKey(m.GameKind, m.ContentSlot, m.Players))
}

func (s *Memory) update(matchID string, fn func(m *session.Match) error) (*session.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[matchID]
	if !ok {
		return nil, session.ErrNotFound
	}
	if err := fn(m); err != nil {
		return nil, err
	}
	return m.Clone(), nil
}

// AppendAnswer records one turn-based entry.
func (s *Memory) AppendAnswer(ctx context.Context, matchID, playerID string, rec session.AnswerRecord) (*session.Match, error) {
	return s.update(matchID, func(m *session.Match) error {
		return applyAnswer(m, playerID, rec, time.Now().UTC())
	})
}

// AppendAllAnswers records a bulk answer set.
func (s *Memory) AppendAllAnswers(ctx context.Context, matchID, playerID string, recs []session.AnswerRecord) (*session.Match, error) {
	return s.update(matchID, func(m *session.Match) error {
		return applyAllAnswers(m, playerID, recs, time.Now().UTC())
	})
}

// UpdateTurn hands the turn to nextHolder.
func (s *Memory) UpdateTurn(ctx context.Context, matchID, nextHolder string) (*session.Match, error) {
	return s.update(matchID, func(m *session.Match) error {
		return applyTurn(m, nextHolder)
	})
}

// SetYielded flips the ladder assistance flag.
func (s *Memory) SetYielded(ctx context.Context, matchID, playerID string, yielded bool) (*session.Match, error) {
	return s.update(matchID, func(m *session.Match) error {
		return applyYield(m, playerID, yielded)
	})
}

// AppendLadderMove records an accepted ladder word.
func (s *Memory) AppendLadderMove(ctx context.Context, matchID, playerID, word string) (*session.Match, error) {
	return s.update(matchID, func(m *session.Match) error {
		return applyLadderMove(m, playerID, word, time.Now().UTC())
	})
}

// CompletedSince lists matches completed at or after the given time.
func (s *Memory) CompletedSince(ctx context.Context, since time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for id, m := range s.matches {
		if m.CompletedAt != nil && !m.CompletedAt.Before(since) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
