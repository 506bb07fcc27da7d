// Package quest mirrors authoritative match results into the device-local
// quest/progress cache. Derived state only: any conflict with a freshly
// fetched match is resolved by overwriting local state with the remote.
package quest

import (
	"sync"
	"time"
)

// Completion state of a local quest entry. Provisional marks the local
// player's own submission before the remote confirms both sides.
const (
	CompletionNone        = "none"
	CompletionProvisional = "provisional"
	CompletionConfirmed   = "confirmed"
)

// Entry is one quest's locally cached progress.
type Entry struct {
	QuestID         string
	MatchID         string
	Completion      string
	UserCompletions map[string]bool
	UpdatedAt       time.Time
}

// Cache is the in-memory local quest cache for one device.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewCache creates an empty local quest cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Entry)}
}

// Get returns the entry for questID, if present.
func (c *Cache) Get(questID string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[questID]
	return e, ok
}

// Put overwrites the entry for questID.
func (c *Cache) Put(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e.UpdatedAt = time.Now().UTC()
	c.entries[e.QuestID] = e
}

// Drop removes the entry for questID.
func (c *Cache) Drop(questID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, questID)
}
