// Package archive persists completed matches into Postgres for reward and
// quest bookkeeping. The session store stays authoritative for live play;
// archive rows are write-once records of finished matches.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/pairplay/gamesync/internal/session"
)

// Repository writes completed-match rows.
type Repository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewRepository creates an archive repository.
func NewRepository(pool *pgxpool.Pool, logger zerolog.Logger) *Repository {
	return &Repository{
		pool:   pool,
		logger: logger.With().Str("component", "match_archive").Logger(),
	}
}

// Record upserts the archive row for a completed match. Idempotent: the
// completion path and the sweeper can both write the same match.
func (r *Repository) Record(ctx context.Context, m *session.Match) error {
	if m.Status != session.StatusCompleted {
		return fmt.Errorf("match %s not completed", m.ID)
	}
	return r.insert(ctx, m)
}

// OnMatchCompleted implements the quest completion listener: the reward
// bookkeeping trigger is the archive row. The match may still carry a
// lagging status here; terminal detection already vouched for it.
func (r *Repository) OnMatchCompleted(ctx context.Context, m *session.Match) error {
	if err := r.insert(ctx, m); err != nil {
		return fmt.Errorf("record completion: %w", err)
	}
	r.logger.Info().Str("match_id", m.ID).Msg("completion archived")
	return nil
}

func (r *Repository) insert(ctx context.Context, m *session.Match) error {
	completedAt := time.Now().UTC()
	if m.CompletedAt != nil {
		completedAt = *m.CompletedAt
	}

	const q = `
		INSERT INTO match_archive (match_id, game_kind, content_slot, player1, player2, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (match_id) DO NOTHING`
	if _, err := r.pool.Exec(ctx, q, m.ID, m.GameKind, m.ContentSlot, m.Players[0], m.Players[1], completedAt); err != nil {
		return fmt.Errorf("insert archive row: %w", err)
	}
	return nil
}

// Has reports whether a match is already archived.
func (r *Repository) Has(ctx context.Context, matchID string) (bool, error) {
	var exists bool
	const q = `SELECT EXISTS (SELECT 1 FROM match_archive WHERE match_id = $1)`
	if err := r.pool.QueryRow(ctx, q, matchID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check archive row: %w", err)
	}
	return exists, nil
}
