package session

import (
	"context"
	"time"
)

// Store is the remote session store the sync core runs against. One
// document per match; per-document atomicity only, no cross-document
// transactions. Implementations must enforce the frozen-after-completion
// and append-only invariants inside their per-document critical section
// and return the domain error kinds from this package.
type Store interface {
	// GetOrCreate returns the existing non-completed match for this pair
	// slot, or creates a new active one. Idempotent for identical inputs.
	GetOrCreate(ctx context.Context, gameKind, contentSlot string, players [2]string) (*Match, error)

	// Get fetches a match by id. Returns ErrNotFound for unknown or
	// expired ids.
	Get(ctx context.Context, matchID string) (*Match, error)

	// AppendAnswer records one entry for a turn-based kind and advances
	// the turn holder, completing the match when the entry finishes the
	// pair.
	AppendAnswer(ctx context.Context, matchID, playerID string, rec AnswerRecord) (*Match, error)

	// AppendAllAnswers records a player's full answer set for a bulk
	// kind, completing the match when the partner's set is already
	// present.
	AppendAllAnswers(ctx context.Context, matchID, playerID string, recs []AnswerRecord) (*Match, error)

	// UpdateTurn hands the turn to nextHolder without recording an entry.
	UpdateTurn(ctx context.Context, matchID, nextHolder string) (*Match, error)

	// SetYielded flips the word-ladder assistance flag. Only the current
	// turn holder may yield.
	SetYielded(ctx context.Context, matchID, playerID string, yielded bool) (*Match, error)

	// AppendLadderMove records an accepted ladder word, clears the yield
	// flag, alternates the turn, and completes the match when the end
	// word is reached.
	AppendLadderMove(ctx context.Context, matchID, playerID, word string) (*Match, error)

	// CompletedSince lists ids of matches completed at or after the given
	// time, for archive backfill.
	CompletedSince(ctx context.Context, since time.Time) ([]string, error)
}
