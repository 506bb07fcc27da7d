// Package app wires shared infrastructure (session store, archive,
// dictionary) for the gamesync binaries.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pairplay/gamesync/internal/archive"
	"github.com/pairplay/gamesync/internal/config"
	"github.com/pairplay/gamesync/internal/ladder"
	"github.com/pairplay/gamesync/internal/logging"
	"github.com/pairplay/gamesync/internal/session"
	"github.com/pairplay/gamesync/internal/store"
)

// Application aggregates the infrastructure behind the sync core.
type Application struct {
	Cfg    *config.App
	Logger zerolog.Logger

	Store      session.Store
	Machine    *session.Machine
	Dictionary ladder.Dictionary
	Archive    *archive.Repository
	Sweeper    *archive.Sweeper

	redis   *redis.Client
	pool    *pgxpool.Pool
	metrics *http.Server
}

// New bootstraps config-driven infrastructure. content supplies the
// externally-loaded question counts and puzzles.
func New(ctx context.Context, cfg *config.App, content session.ContentResolver) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Str("store", cfg.Store.Backend).Msg("starting application bootstrap")

	dict, err := loadDictionary(cfg.Ladder.DictionaryPath)
	if err != nil {
		return nil, err
	}

	a := &Application{Cfg: cfg, Logger: logger, Dictionary: dict}

	switch cfg.Store.Backend {
	case "memory":
		a.Store = store.NewMemory(content)
	default:
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.Store = store.NewRedis(a.redis, content, logger)
	}

	if cfg.Postgres.Host != "" {
		connString := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=10",
			cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database, cfg.Postgres.SSLMode)
		pool, err := pgxpool.New(ctx, connString)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.pool = pool
		a.Archive = archive.NewRepository(pool, logger)
		a.Sweeper = archive.NewSweeper(a.Store, a.Archive, cfg.Archive.SweepInterval, cfg.Archive.SweepLookback, logger)
	} else {
		logger.Warn().Msg("postgres not configured, match archive disabled")
	}

	a.Machine = session.NewMachine(a.Store, dict, logger)

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		a.metrics = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listener started")
			if err := a.metrics.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn().Err(err).Msg("metrics listener stopped")
			}
		}()
	}

	if a.Sweeper != nil {
		if err := a.Sweeper.Start(); err != nil {
			return nil, err
		}
	}

	return a, nil
}

func loadDictionary(path string) (ladder.Dictionary, error) {
	if path == "" {
		return ladder.Default(), nil
	}
	dict, err := ladder.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load dictionary: %w", err)
	}
	return dict, nil
}

// Close releases all infrastructure.
func (a *Application) Close(ctx context.Context) {
	if a.Sweeper != nil {
		a.Sweeper.Shutdown()
	}
	if a.metrics != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.metrics.Shutdown(shutdownCtx); err != nil {
			a.Logger.Warn().Err(err).Msg("metrics shutdown error")
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("redis shutdown error")
		}
	}
	a.Logger.Info().Msg("shutdown complete")
}
