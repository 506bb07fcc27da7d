package poll

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/pairplay/gamesync/internal/metrics"
	"github.com/pairplay/gamesync/internal/session"
)

// DefaultInterval between poll ticks when the caller passes zero.
const DefaultInterval = 5 * time.Second

// UpdateFunc receives each successfully fetched match state. Invocations
// for the same match id never overlap.
type UpdateFunc func(m *session.Match)

// Events receives terminal notifications. At most one subscriber per
// coordinator, injected at construction; there is no global registry.
type Events interface {
	// MatchCompleted runs the once-per-match completion handling. The
	// coordinator has already stopped polling and won the guard claim.
	MatchCompleted(ctx context.Context, m *session.Match)
	// MatchGone fires when a previously valid match id is no longer in
	// the store (archived or admin-reset).
	MatchGone(ctx context.Context, matchID string)
}

// Coordinator owns the poll loops of one device. Explicit lifecycle: one
// handle per watched match id, created by Start and removed by Stop.
type Coordinator struct {
	store  session.Store
	guard  *CompletionGuard
	events Events
	logger zerolog.Logger

	mu      sync.Mutex
	handles map[string]*handle
}

// handle is one match's poll loop: idle -> polling -> stopped.
type handle struct {
	matchID  string
	cancel   context.CancelFunc
	onUpdate UpdateFunc

	// updateMu serializes onUpdate and terminal handling for this match
	// across the timer path and CheckNow.
	updateMu sync.Mutex
	// ticking skips timer ticks that overlap an in-flight fetch.
	ticking atomic.Bool
}

// NewCoordinator creates a coordinator for one device.
func NewCoordinator(store session.Store, guard *CompletionGuard, events Events, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		store:   store,
		guard:   guard,
		events:  events,
		logger:  logger.With().Str("component", "poll_coordinator").Logger(),
		handles: make(map[string]*handle),
	}
}

// Start begins periodic polling of matchID. A second Start for the same
// id is a no-op while the first loop is alive.
func (c *Coordinator) Start(ctx context.Context, matchID string, interval time.Duration, onUpdate UpdateFunc) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	c.mu.Lock()
	if _, exists := c.handles[matchID]; exists {
		c.mu.Unlock()
		c.logger.Debug().Str("match_id", matchID).Msg("already polling")
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	h := &handle{matchID: matchID, cancel: cancel, onUpdate: onUpdate}
	c.handles[matchID] = h
	c.mu.Unlock()

	c.logger.Info().Str("match_id", matchID).Dur("interval", interval).Msg("polling started")

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				c.tick(loopCtx, h)
			}
		}
	}()
}

// tick is the timer path. Errors are swallowed; the next tick retries.
func (c *Coordinator) tick(ctx context.Context, h *handle) {
	if !h.ticking.CompareAndSwap(false, true) {
		metrics.PollTicksSkipped.Inc()
		return
	}
	defer h.ticking.Store(false)

	metrics.PollTicks.Inc()
	m, err := c.store.Get(ctx, h.matchID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.handleGone(ctx, h.matchID)
			return
		}
		metrics.PollTransientErrors.Inc()
		c.logger.Debug().Err(err).Str("match_id", h.matchID).Msg("poll tick failed, will retry")
		return
	}

	h.updateMu.Lock()
	defer h.updateMu.Unlock()
	c.deliver(ctx, h, m)
}

// CheckNow is the manual path: one immediate fetch, sharing the timer
// path's completion detection. Usable whether or not polling is active.
func (c *Coordinator) CheckNow(ctx context.Context, matchID string) (*session.Match, error) {
	m, err := c.store.Get(ctx, matchID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			c.handleGone(ctx, matchID)
		}
		return nil, err
	}

	c.mu.Lock()
	h := c.handles[matchID]
	c.mu.Unlock()

	if h != nil {
		h.updateMu.Lock()
		defer h.updateMu.Unlock()
		c.deliver(ctx, h, m)
		return m, nil
	}

	c.detectTerminal(ctx, m)
	return m, nil
}

// deliver invokes onUpdate and runs terminal detection. Callers hold the
// handle's updateMu.
func (c *Coordinator) deliver(ctx context.Context, h *handle, m *session.Match) {
	if h.onUpdate != nil {
		h.onUpdate(m)
	}
	c.detectTerminal(ctx, m)
}

// detectTerminal applies the uniform terminal rule: status completed, or
// both answer sets full for bulk kinds (covers status replication lag).
func (c *Coordinator) detectTerminal(ctx context.Context, m *session.Match) {
	if !m.Terminal() {
		return
	}
	if !c.guard.TryEnter(m.ID) {
		return
	}
	metrics.CompletionsHandled.Inc()
	c.Stop(m.ID)
	c.logger.Info().Str("match_id", m.ID).Msg("completion detected")
	if c.events != nil {
		// Stop cancels the loop context on the timer path; completion-time
		// writes must outlive it.
		c.events.MatchCompleted(context.WithoutCancel(ctx), m)
	}
}

// handleGone routes a vanished match to the identity-change path, once.
func (c *Coordinator) handleGone(ctx context.Context, matchID string) {
	if !c.guard.TryEnter(matchID) {
		return
	}
	c.Stop(matchID)
	c.logger.Warn().Str("match_id", matchID).Msg("match gone from store")
	if c.events != nil {
		c.events.MatchGone(context.WithoutCancel(ctx), matchID)
	}
}

// Stop cancels the poll loop for matchID. Idempotent: stopping a match
// that is not being polled is a no-op, so the completion path and the
// screen teardown path can both call it.
func (c *Coordinator) Stop(matchID string) {
	c.mu.Lock()
	h, ok := c.handles[matchID]
	if ok {
		delete(c.handles, matchID)
	}
	c.mu.Unlock()

	if !ok {
		return
	}
	h.cancel()
	c.logger.Info().Str("match_id", matchID).Msg("polling stopped")
}

// StopAll cancels every poll loop, for device teardown.
func (c *Coordinator) StopAll() {
	c.mu.Lock()
	handles := make([]*handle, 0, len(c.handles))
	for _, h := range c.handles {
		handles = append(handles, h)
	}
	c.handles = make(map[string]*handle)
	c.mu.Unlock()

	for _, h := range handles {
		h.cancel()
	}
}

// Polling reports whether a loop is active for matchID.
func (c *Coordinator) Polling(matchID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.handles[matchID]
	return ok
}
