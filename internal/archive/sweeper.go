package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"github.com/pairplay/gamesync/internal/session"
)

// writer is the subset of the repository the sweeper needs.
type writer interface {
	Has(ctx context.Context, matchID string) (bool, error)
	Record(ctx context.Context, m *session.Match) error
}

// Sweeper periodically backfills archive rows for matches whose
// completion-time write was missed (device crashed between the guard win
// and the listener call, or the listener hit a transient DB failure).
type Sweeper struct {
	store    session.Store
	repo     writer
	logger   zerolog.Logger
	interval time.Duration
	lookback time.Duration

	sched gocron.Scheduler
}

// NewSweeper creates a sweeper. Zero interval defaults to 5m, zero
// lookback to 24h.
func NewSweeper(store session.Store, repo writer, interval, lookback time.Duration, logger zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	return &Sweeper{
		store:    store,
		repo:     repo,
		logger:   logger.With().Str("component", "archive_sweeper").Logger(),
		interval: interval,
		lookback: lookback,
	}
}

// Start schedules the sweep job. Call Shutdown to stop.
func (s *Sweeper) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			s.sweep(ctx)
		}),
	)
	if err != nil {
		return fmt.Errorf("schedule sweep job: %w", err)
	}
	sched.Start()
	s.sched = sched
	s.logger.Info().Dur("interval", s.interval).Msg("archive sweeper started")
	return nil
}

// Shutdown stops the scheduler.
func (s *Sweeper) Shutdown() {
	if s.sched != nil {
		if err := s.sched.Shutdown(); err != nil {
			s.logger.Warn().Err(err).Msg("sweeper shutdown error")
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	ids, err := s.store.CompletedSince(ctx, time.Now().Add(-s.lookback))
	if err != nil {
		s.logger.Warn().Err(err).Msg("sweep listing failed")
		return
	}

	backfilled := 0
	for _, id := range ids {
		archived, err := s.repo.Has(ctx, id)
		if err != nil {
			s.logger.Warn().Err(err).Str("match_id", id).Msg("archive check failed")
			continue
		}
		if archived {
			continue
		}
		m, err := s.store.Get(ctx, id)
		if err != nil {
			s.logger.Warn().Err(err).Str("match_id", id).Msg("fetch for backfill failed")
			continue
		}
		if err := s.repo.Record(ctx, m); err != nil {
			s.logger.Warn().Err(err).Str("match_id", id).Msg("backfill failed")
			continue
		}
		backfilled++
	}
	if backfilled > 0 {
		s.logger.Info().Int("backfilled", backfilled).Msg("archive sweep done")
	}
}
