package quest

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pairplay/gamesync/internal/metrics"
	"github.com/pairplay/gamesync/internal/poll"
	"github.com/pairplay/gamesync/internal/session"
)

// CompletionListener is the reward/quest bookkeeping collaborator. Award
// amounts and rules live outside this core. It receives the full match so
// durable records keep the kind and content slot.
type CompletionListener interface {
	OnMatchCompleted(ctx context.Context, m *session.Match) error
}

// Notifier is the UI-facing signal that a quest's state changed. At most
// one subscriber per reconciler.
type Notifier interface {
	QuestCompleted(questID, matchID string)
	QuestReset(questID string)
}

// Reconciler keeps the local quest cache in line with the authoritative
// match and detects remote identity drift. It is the coordinator's Events
// subscriber: completion handling runs here after the guard admits it.
type Reconciler struct {
	cache    *Cache
	guard    *poll.CompletionGuard
	listener CompletionListener
	notifier Notifier
	logger   zerolog.Logger

	// questForMatch maps a watched match id back to its quest entry.
	questForMatch func(matchID string) (questID string, ok bool)
}

var _ poll.Events = (*Reconciler)(nil)

// NewReconciler creates a reconciler. listener and notifier may be nil.
func NewReconciler(cache *Cache, guard *poll.CompletionGuard, listener CompletionListener, notifier Notifier, logger zerolog.Logger) *Reconciler {
	r := &Reconciler{
		cache:    cache,
		guard:    guard,
		listener: listener,
		notifier: notifier,
		logger:   logger.With().Str("component", "quest_reconciler").Logger(),
	}
	r.questForMatch = r.lookupByScan
	return r
}

func (r *Reconciler) lookupByScan(matchID string) (string, bool) {
	r.cache.mu.RLock()
	defer r.cache.mu.RUnlock()
	for questID, e := range r.cache.entries {
		if e.MatchID == matchID {
			return questID, true
		}
	}
	return "", false
}

// MarkOwnSubmission optimistically records the local player's submission
// as provisional completion, before the remote confirms the pair.
func (r *Reconciler) MarkOwnSubmission(questID string, m *session.Match, playerID string) {
	entry, ok := r.cache.Get(questID)
	if !ok || entry.MatchID != m.ID {
		entry = Entry{QuestID: questID, MatchID: m.ID, UserCompletions: make(map[string]bool, 2)}
	}
	if entry.UserCompletions == nil {
		entry.UserCompletions = make(map[string]bool, 2)
	}
	entry.UserCompletions[playerID] = true
	if entry.Completion != CompletionConfirmed {
		entry.Completion = CompletionProvisional
	}
	r.cache.Put(entry)
}

// Reconcile overwrites the quest entry from the authoritative match.
// Confirmed completion requires the remote completed status; anything
// less downgrades a stale local flag.
func (r *Reconciler) Reconcile(questID string, m *session.Match) {
	entry := Entry{
		QuestID:         questID,
		MatchID:         m.ID,
		UserCompletions: make(map[string]bool, 2),
	}
	for _, p := range m.Players {
		entry.UserCompletions[p] = m.AnswerCount(p) >= m.ExpectedAnswers && m.ExpectedAnswers > 0
	}
	switch {
	case m.Status == session.StatusCompleted:
		entry.Completion = CompletionConfirmed
		entry.UserCompletions[m.Players[0]] = true
		entry.UserCompletions[m.Players[1]] = true
	case entry.UserCompletions[m.Players[0]] || entry.UserCompletions[m.Players[1]]:
		entry.Completion = CompletionProvisional
	default:
		entry.Completion = CompletionNone
	}
	r.cache.Put(entry)
}

// DetectIdentityChange compares the id a screen was last showing against
// a fresh get-or-create result. When the remote advanced underneath an
// untouched local view, it signals a full local reset: drop the quest
// entry and release the old id's guard claim so the replacement match can
// complete cleanly.
func (r *Reconciler) DetectIdentityChange(questID, previousMatchID string, fresh *session.Match, localStarted bool) bool {
	if previousMatchID == "" || fresh == nil || fresh.ID == previousMatchID {
		return false
	}
	if localStarted {
		// The player already began answering; keep their view and let the
		// submit path surface the staleness.
		return false
	}
	metrics.IdentityResets.Inc()
	r.cache.Drop(questID)
	r.guard.Reset(previousMatchID)
	r.logger.Warn().
		Str("quest_id", questID).
		Str("old_match_id", previousMatchID).
		Str("new_match_id", fresh.ID).
		Msg("remote match identity changed, local state reset")
	if r.notifier != nil {
		r.notifier.QuestReset(questID)
	}
	return true
}

// MatchCompleted implements poll.Events. The guard has already admitted
// exactly one caller for this match id on this device.
func (r *Reconciler) MatchCompleted(ctx context.Context, m *session.Match) {
	questID, ok := r.questForMatch(m.ID)
	if !ok {
		questID = m.ContentSlot
	}
	r.Reconcile(questID, m)

	if r.listener != nil {
		if err := r.listener.OnMatchCompleted(ctx, m); err != nil {
			r.logger.Warn().Err(err).Str("match_id", m.ID).Msg("completion listener failed")
		}
	}
	if r.notifier != nil {
		r.notifier.QuestCompleted(questID, m.ID)
	}
	r.logger.Info().Str("match_id", m.ID).Str("quest_id", questID).Msg("quest reconciled after completion")
}

// MatchGone implements poll.Events: a previously valid id disappeared
// from the store. Treated as archived-or-reset, not a hard failure.
func (r *Reconciler) MatchGone(ctx context.Context, matchID string) {
	questID, ok := r.questForMatch(matchID)
	if !ok {
		return
	}
	metrics.IdentityResets.Inc()
	r.cache.Drop(questID)
	r.logger.Warn().Str("match_id", matchID).Str("quest_id", questID).Msg("match vanished, quest entry dropped")
	if r.notifier != nil {
		r.notifier.QuestReset(questID)
	}
}
