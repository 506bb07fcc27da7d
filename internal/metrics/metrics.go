// Package metrics exposes Prometheus counters for the sync core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PollTicks counts session store fetches driven by the poll timer.
	PollTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamesync_poll_ticks_total",
		Help: "Periodic session store fetches.",
	})

	// PollTicksSkipped counts ticks skipped because the previous fetch
	// for the same match was still in flight.
	PollTicksSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamesync_poll_ticks_skipped_total",
		Help: "Poll ticks skipped due to an in-flight fetch.",
	})

	// PollTransientErrors counts swallowed transient fetch failures.
	PollTransientErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamesync_poll_transient_errors_total",
		Help: "Transient store errors swallowed by the poll loop.",
	})

	// CompletionsHandled counts completion handlers that actually ran.
	CompletionsHandled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamesync_completions_handled_total",
		Help: "Match completions handled exactly once per device.",
	})

	// CompletionsSuppressed counts duplicate completion triggers the
	// guard rejected.
	CompletionsSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamesync_completions_suppressed_total",
		Help: "Duplicate completion triggers suppressed by the guard.",
	})

	// IdentityResets counts full local resets after the remote match
	// identity changed underneath a screen.
	IdentityResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamesync_identity_resets_total",
		Help: "Local resets triggered by remote match identity changes.",
	})
)
