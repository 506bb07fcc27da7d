// Package poll drives convergence detection for one device: a periodic
// coordinator per watched match plus the single-flight completion guard.
package poll

import (
	"sync"

	"github.com/pairplay/gamesync/internal/metrics"
)

// CompletionGuard makes completion handling single-shot per match per
// process. Timer ticks, manual refreshes and wake-up checks can all race
// to claim the same completion; exactly one wins.
type CompletionGuard struct {
	mu      sync.Mutex
	claimed map[string]struct{}
}

// NewCompletionGuard creates an empty guard.
func NewCompletionGuard() *CompletionGuard {
	return &CompletionGuard{claimed: make(map[string]struct{})}
}

// TryEnter claims the completion of matchID. Returns true exactly once
// per match id until Reset.
func (g *CompletionGuard) TryEnter(matchID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, taken := g.claimed[matchID]; taken {
		metrics.CompletionsSuppressed.Inc()
		return false
	}
	g.claimed[matchID] = struct{}{}
	return true
}

// Reset releases the claim for matchID, used when a new match replaces an
// old one in the same content slot.
func (g *CompletionGuard) Reset(matchID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.claimed, matchID)
}

// Claimed reports whether matchID's completion has been handled.
func (g *CompletionGuard) Claimed(matchID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, taken := g.claimed[matchID]
	return taken
}
