package session

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pairplay/gamesync/internal/ladder"
)

// Machine encapsulates the legal transitions for a match and rejects
// illegal ones. It validates against the freshest view it has, then hands
// the mutation to the store, which re-validates inside its per-document
// critical section; the store's verdict is authoritative.
type Machine struct {
	store  Store
	dict   ladder.Dictionary
	logger zerolog.Logger
}

// Result carries the outcome of a submit-style operation. On stale-view
// errors Match holds the re-fetched authoritative document so the caller
// can refresh before retrying.
type Result struct {
	Match     *Match
	Completed bool
}

// NewMachine creates the match state machine.
func NewMachine(store Store, dict ladder.Dictionary, logger zerolog.Logger) *Machine {
	return &Machine{
		store:  store,
		dict:   dict,
		logger: logger.With().Str("component", "match_machine").Logger(),
	}
}

// GetOrCreate fetches or lazily creates the match for this pair and
// content slot. Calling twice with the same inputs before any answer
// returns the same match id.
func (m *Machine) GetOrCreate(ctx context.Context, gameKind, contentSlot string, players [2]string) (*Match, error) {
	if players[0] == "" || players[1] == "" || players[0] == players[1] {
		return nil, fmt.Errorf("need exactly two distinct players")
	}
	match, err := m.store.GetOrCreate(ctx, gameKind, contentSlot, players)
	if err != nil {
		return nil, fmt.Errorf("get or create match: %w", err)
	}
	return match, nil
}

// SubmitAnswer records one entry for a turn-based kind. The step index is
// derived from the player's own entry count, so a duplicate submit for
// the same step comes back as ErrAlreadyAnswered.
func (m *Machine) SubmitAnswer(ctx context.Context, matchID, playerID, payload string) (Result, error) {
	current, err := m.store.Get(ctx, matchID)
	if err != nil {
		return Result{}, err
	}
	rec := AnswerRecord{
		Step:        current.AnswerCount(playerID),
		Payload:     payload,
		SubmittedAt: time.Now().UTC(),
	}
	updated, err := m.store.AppendAnswer(ctx, matchID, playerID, rec)
	if err != nil {
		return m.staleResult(ctx, matchID, err)
	}

	m.logger.Info().
		Str("match_id", matchID).
		Str("player_id", playerID).
		Int("step", rec.Step).
		Bool("completed", updated.Status == StatusCompleted).
		Msg("answer submitted")
	return Result{Match: updated, Completed: updated.Status == StatusCompleted}, nil
}

// SubmitAllAnswers records a player's full answer set for a bulk kind.
// If the partner's set is already present the store completes the match
// within the same write; there is no separate checker.
func (m *Machine) SubmitAllAnswers(ctx context.Context, matchID, playerID string, payloads []string) (Result, error) {
	now := time.Now().UTC()
	recs := make([]AnswerRecord, len(payloads))
	for i, p := range payloads {
		recs[i] = AnswerRecord{Step: i, Payload: p, SubmittedAt: now}
	}
	updated, err := m.store.AppendAllAnswers(ctx, matchID, playerID, recs)
	if err != nil {
		return m.staleResult(ctx, matchID, err)
	}

	m.logger.Info().
		Str("match_id", matchID).
		Str("player_id", playerID).
		Int("answers", len(recs)).
		Bool("completed", updated.Status == StatusCompleted).
		Msg("bulk answers submitted")
	return Result{Match: updated, Completed: updated.Status == StatusCompleted}, nil
}

// YieldTurn signals the partner may assist with the current ladder step.
// Turn ownership does not transfer.
func (m *Machine) YieldTurn(ctx context.Context, matchID, playerID string) (Result, error) {
	updated, err := m.store.SetYielded(ctx, matchID, playerID, true)
	if err != nil {
		return m.staleResult(ctx, matchID, err)
	}
	m.logger.Info().Str("match_id", matchID).Str("player_id", playerID).Msg("turn yielded")
	return Result{Match: updated}, nil
}

// ApplyLadderMove validates candidateWord against the current chain and,
// if valid, records it. Reaching the end word completes the match.
func (m *Machine) ApplyLadderMove(ctx context.Context, matchID, playerID, candidateWord string) (Result, *ladder.Reject, error) {
	current, err := m.store.Get(ctx, matchID)
	if err != nil {
		return Result{}, nil, err
	}
	if current.Ladder == nil {
		return Result{Match: current}, nil, fmt.Errorf("ladder state: %w", ErrNotFound)
	}

	word, reason := ladder.Validate(current.Ladder.CurrentWord, candidateWord, current.Ladder.WordChain, m.dict)
	if reason != ladder.ReasonNone {
		m.logger.Debug().
			Str("match_id", matchID).
			Str("candidate", word).
			Str("reason", string(reason)).
			Msg("ladder move rejected")
		return Result{Match: current}, &ladder.Reject{Word: word, Reason: reason}, nil
	}

	updated, err := m.store.AppendLadderMove(ctx, matchID, playerID, word)
	if err != nil {
		res, err := m.staleResult(ctx, matchID, err)
		return res, nil, err
	}

	m.logger.Info().
		Str("match_id", matchID).
		Str("player_id", playerID).
		Str("word", word).
		Bool("completed", updated.Status == StatusCompleted).
		Msg("ladder move accepted")
	return Result{Match: updated, Completed: updated.Status == StatusCompleted}, nil, nil
}

// staleResult re-fetches the authoritative document when a mutation was
// rejected for staleness, so the caller refreshes before retrying.
// Transient failures pass through untouched.
func (m *Machine) staleResult(ctx context.Context, matchID string, cause error) (Result, error) {
	if !IsStale(cause) {
		return Result{}, cause
	}
	fresh, err := m.store.Get(ctx, matchID)
	if err != nil {
		m.logger.Warn().Err(err).Str("match_id", matchID).Msg("refresh after stale submit failed")
		return Result{}, cause
	}
	return Result{Match: fresh, Completed: fresh.Status == StatusCompleted}, cause
}
