package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pairplay/gamesync/internal/session"
)

const (
	docTTL  = 30 * 24 * time.Hour
	lockTTL = 10 * time.Second
)

// Redis is the production session store: one JSON document per match,
// mutated under a per-document SetNX lock. Last writer wins at the field
// level; correctness comes from append-only entries and forward-only
// status, both enforced here inside the critical section.
type Redis struct {
	client  *redis.Client
	content session.ContentResolver
	logger  zerolog.Logger
}

var _ session.Store = (*Redis)(nil)

// NewRedis creates a Redis-backed session store.
func NewRedis(client *redis.Client, content session.ContentResolver, logger zerolog.Logger) *Redis {
	return &Redis{
		client:  client,
		content: content,
		logger:  logger.With().Str("component", "session_store").Logger(),
	}
}

func matchKey(matchID string) string { return "session:match:" + matchID }

func (s *Redis) slotIndexKey(gameKind, contentSlot string, players [2]string) string {
	pair := []string{players[0], players[1]}
	sort.Strings(pair)
	return fmt.Sprintf("session:slot:%s:%s:%s:%s", gameKind, contentSlot, pair[0], pair[1])
}

// lock acquires a short-lived per-key lock. Returns an unlock func.
// The Lua script ensures we only delete our own lock.
func (s *Redis) lock(ctx context.Context, key string) (func(), error) {
	lockKey := "session:lock:" + key
	lockValue := uuid.New().String()

	acquired, err := s.client.SetNX(ctx, lockKey, lockValue, lockTTL).Result()
	if err != nil {
		return nil, session.Transient(fmt.Errorf("acquire lock: %w", err))
	}
	if !acquired {
		return nil, session.Transient(fmt.Errorf("lock %s already held", key))
	}

	unlock := func() {
		script := `
			if redis.call("get", KEYS[1]) == ARGV[1] then
				return redis.call("del", KEYS[1])
			else
				return 0
			end
		`
		if err := s.client.Eval(ctx, script, []string{lockKey}, lockValue).Err(); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("unlock failed")
		}
	}
	return unlock, nil
}

func (s *Redis) load(ctx context.Context, matchID string) (*session.Match, error) {
	data, err := s.client.Get(ctx, matchKey(matchID)).Bytes()
	if err == redis.Nil {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, session.Transient(fmt.Errorf("get match: %w", err))
	}
	var m session.Match
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal match: %w", err)
	}
	return &m, nil
}

func (s *Redis) save(ctx context.Context, m *session.Match) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal match: %w", err)
	}
	if err := s.client.Set(ctx, matchKey(m.ID), data, docTTL).Err(); err != nil {
		return session.Transient(fmt.Errorf("save match: %w", err))
	}
	return nil
}

// GetOrCreate returns the live match for this pair slot or creates one.
// The slot index key makes repeated calls with the same inputs converge
// on the same document from either device.
func (s *Redis) GetOrCreate(ctx context.Context, gameKind, contentSlot string, players [2]string) (*session.Match, error) {
	slotKey := s.slotIndexKey(gameKind, contentSlot, players)

	unlock, err := s.lock(ctx, slotKey)
	if err != nil {
		return nil, err
	}
	defer unlock()

	id, err := s.client.Get(ctx, slotKey).Result()
	if err != nil && err != redis.Nil {
		return nil, session.Transient(fmt.Errorf("get slot index: %w", err))
	}
	if err == nil {
		m, loadErr := s.load(ctx, id)
		if loadErr == nil && m.Status != session.StatusCompleted {
			return m, nil
		}
		if loadErr != nil && !errors.Is(loadErr, session.ErrNotFound) && !session.IsTransient(loadErr) {
			return nil, loadErr
		}
		// Completed or vanished: a fresh document takes over the slot.
	}

	m := newMatch(gameKind, contentSlot, players, s.content)
	if err := s.save(ctx, m); err != nil {
		return nil, err
	}
	if err := s.client.Set(ctx, slotKey, m.ID, docTTL).Err(); err != nil {
		return nil, session.Transient(fmt.Errorf("set slot index: %w", err))
	}

	s.logger.Info().
		Str("match_id", m.ID).
		Str("game_kind", gameKind).
		Str("content_slot", contentSlot).
		Msg("match created")
	return m, nil
}

// Get fetches a match by id.
func (s *Redis) Get(ctx context.Context, matchID string) (*session.Match, error) {
	return s.load(ctx, matchID)
}

// update runs fn against the document under its lock and persists the
// result. Completion transitions are indexed for archive backfill.
func (s *Redis) update(ctx context.Context, matchID string, fn func(m *session.Match) error) (*session.Match, error) {
	unlock, err := s.lock(ctx, matchKey(matchID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	m, err := s.load(ctx, matchID)
	if err != nil {
		return nil, err
	}

	wasCompleted := m.Status == session.StatusCompleted
	if err := fn(m); err != nil {
		return nil, err
	}
	if err := s.save(ctx, m); err != nil {
		return nil, err
	}

	if !wasCompleted && m.Status == session.StatusCompleted {
		score := float64(m.CompletedAt.Unix())
		if err := s.client.ZAdd(ctx, "session:completed", redis.Z{Score: score, Member: m.ID}).Err(); err != nil {
			s.logger.Warn().Err(err).Str("match_id", m.ID).Msg("failed to index completion")
		}
		s.logger.Info().Str("match_id", m.ID).Str("game_kind", m.GameKind).Msg("match completed")
	}
	return m, nil
}

// AppendAnswer records one turn-based entry.
func (s *Redis) AppendAnswer(ctx context.Context, matchID, playerID string, rec session.AnswerRecord) (*session.Match, error) {
	return s.update(ctx, matchID, func(m *session.Match) error {
		return applyAnswer(m, playerID, rec, time.Now().UTC())
	})
}

// AppendAllAnswers records a bulk answer set.
func (s *Redis) AppendAllAnswers(ctx context.Context, matchID, playerID string, recs []session.AnswerRecord) (*session.Match, error) {
	return s.update(ctx, matchID, func(m *session.Match) error {
		return applyAllAnswers(m, playerID, recs, time.Now().UTC())
	})
}

// UpdateTurn hands the turn to nextHolder.
func (s *Redis) UpdateTurn(ctx context.Context, matchID, nextHolder string) (*session.Match, error) {
	return s.update(ctx, matchID, func(m *session.Match) error {
		return applyTurn(m, nextHolder)
	})
}

// SetYielded flips the ladder assistance flag.
func (s *Redis) SetYielded(ctx context.Context, matchID, playerID string, yielded bool) (*session.Match, error) {
	return s.update(ctx, matchID, func(m *session.Match) error {
		return applyYield(m, playerID, yielded)
	})
}

// AppendLadderMove records an accepted ladder word.
func (s *Redis) AppendLadderMove(ctx context.Context, matchID, playerID, word string) (*session.Match, error) {
	return s.update(ctx, matchID, func(m *session.Match) error {
		return applyLadderMove(m, playerID, word, time.Now().UTC())
	})
}

// CompletedSince lists matches completed at or after the given time.
func (s *Redis) CompletedSince(ctx context.Context, since time.Time) ([]string, error) {
	ids, err := s.client.ZRangeByScore(ctx, "session:completed", &redis.ZRangeBy{
		Min: strconv.FormatInt(since.Unix(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, session.Transient(fmt.Errorf("list completed: %w", err))
	}
	return ids, nil
}
