// Package store provides the session store implementations: a Redis-backed
// production store and an in-memory store for tests and standalone runs.
// Both apply mutations through the helpers in this file inside their
// per-document critical section, so the append-only, turn-alternation and
// frozen-after-completion invariants hold regardless of backend.
package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/pairplay/gamesync/internal/ladder"
	"github.com/pairplay/gamesync/internal/session"
)

// mutable rejects writes against a frozen or foreign document.
func mutable(m *session.Match, playerID string) error {
	if m.Status == session.StatusCompleted {
		return session.ErrCompleted
	}
	if playerID != "" && !m.HasPlayer(playerID) {
		return fmt.Errorf("player %s: %w", playerID, session.ErrNotFound)
	}
	return nil
}

// finalize transitions the document to completed when its rules say the
// pair is satisfied. Called after every successful mutation; the write
// that completes the pair is the one that flips the status.
func finalize(m *session.Match, now time.Time) bool {
	if m.Status == session.StatusCompleted {
		return false
	}
	if !session.RulesFor(m.GameKind).Complete(m) {
		return false
	}
	m.Status = session.StatusCompleted
	m.CompletedAt = &now
	m.TurnHolder = ""
	return true
}

func applyAnswer(m *session.Match, playerID string, rec session.AnswerRecord, now time.Time) error {
	if err := mutable(m, playerID); err != nil {
		return err
	}
	rules := session.RulesFor(m.GameKind)
	if rules.TurnBased() && m.TurnHolder != playerID {
		return session.ErrNotYourTurn
	}
	for _, existing := range m.Answers[playerID] {
		if existing.Step == rec.Step {
			return session.ErrAlreadyAnswered
		}
	}
	if m.ExpectedAnswers > 0 && len(m.Answers[playerID]) >= m.ExpectedAnswers {
		return session.ErrAlreadyAnswered
	}
	if m.Answers == nil {
		m.Answers = make(map[string][]session.AnswerRecord, 2)
	}
	m.Answers[playerID] = append(m.Answers[playerID], rec)
	if !finalize(m, now) && rules.TurnBased() {
		m.TurnHolder = m.Other(playerID)
	}
	return nil
}

func applyAllAnswers(m *session.Match, playerID string, recs []session.AnswerRecord, now time.Time) error {
	if err := mutable(m, playerID); err != nil {
		return err
	}
	if len(m.Answers[playerID]) > 0 {
		return session.ErrAlreadyAnswered
	}
	if m.ExpectedAnswers > 0 && len(recs) != m.ExpectedAnswers {
		return session.ErrWrongAnswerCount
	}
	if m.Answers == nil {
		m.Answers = make(map[string][]session.AnswerRecord, 2)
	}
	m.Answers[playerID] = append(m.Answers[playerID], recs...)
	finalize(m, now)
	return nil
}

func applyTurn(m *session.Match, nextHolder string) error {
	if err := mutable(m, nextHolder); err != nil {
		return err
	}
	m.TurnHolder = nextHolder
	return nil
}

func applyYield(m *session.Match, playerID string, yielded bool) error {
	if err := mutable(m, playerID); err != nil {
		return err
	}
	if m.Ladder == nil {
		return fmt.Errorf("ladder state: %w", session.ErrNotFound)
	}
	if m.TurnHolder != playerID {
		return session.ErrNotYourTurn
	}
	m.Ladder.IsYielded = yielded
	return nil
}

func applyLadderMove(m *session.Match, playerID, word string, now time.Time) error {
	if err := mutable(m, playerID); err != nil {
		return err
	}
	if m.Ladder == nil {
		return fmt.Errorf("ladder state: %w", session.ErrNotFound)
	}
	// A yielded turn lets the partner move on the holder's behalf.
	if m.TurnHolder != playerID && !m.Ladder.IsYielded {
		return session.ErrNotYourTurn
	}
	// The caller validated against its own snapshot; the chain may have
	// moved since. Adjacency and reuse are re-checked here, where the
	// document cannot change underneath. Dictionary membership is not:
	// words cannot leave the dictionary between validation and write.
	if !ladder.Adjacent(m.Ladder.CurrentWord, word) {
		return session.ErrInvalidMove
	}
	for _, used := range m.Ladder.WordChain {
		if strings.EqualFold(used, word) {
			return session.ErrInvalidMove
		}
	}
	m.Ladder.WordChain = append(m.Ladder.WordChain, word)
	m.Ladder.CurrentWord = word
	m.Ladder.IsYielded = false
	if !finalize(m, now) {
		m.TurnHolder = m.Other(playerID)
	}
	return nil
}
