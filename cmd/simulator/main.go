// The simulator runs two in-process "devices" against one session store
// and drives a bulk quiz and a word ladder to completion, demonstrating
// that both devices converge and each handles completion exactly once.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/pairplay/gamesync/internal/app"
	"github.com/pairplay/gamesync/internal/config"
	"github.com/pairplay/gamesync/internal/poll"
	"github.com/pairplay/gamesync/internal/quest"
	"github.com/pairplay/gamesync/internal/session"
)

const (
	playerA = "player-a"
	playerB = "player-b"

	quizSlot   = "daily-quiz-007"
	ladderSlot = "ladder-cold-warm"
)

// device bundles the per-device sync core: its own guard, coordinator,
// cache and reconciler, all sharing the remote store.
type device struct {
	name        string
	playerID    string
	guard       *poll.CompletionGuard
	cache       *quest.Cache
	reconciler  *quest.Reconciler
	coordinator *poll.Coordinator
	machine     *session.Machine
	logger      zerolog.Logger
}

type logNotifier struct {
	logger zerolog.Logger
}

func (n logNotifier) QuestCompleted(questID, matchID string) {
	n.logger.Info().Str("quest_id", questID).Str("match_id", matchID).Msg("UI: quest completed")
}

func (n logNotifier) QuestReset(questID string) {
	n.logger.Info().Str("quest_id", questID).Msg("UI: quest reset")
}

func newDevice(name, playerID string, a *app.Application, listener quest.CompletionListener) *device {
	logger := a.Logger.With().Str("device", name).Logger()
	guard := poll.NewCompletionGuard()
	cache := quest.NewCache()
	reconciler := quest.NewReconciler(cache, guard, listener, logNotifier{logger}, logger)
	return &device{
		name:        name,
		playerID:    playerID,
		guard:       guard,
		cache:       cache,
		reconciler:  reconciler,
		coordinator: poll.NewCoordinator(a.Store, guard, reconciler, logger),
		machine:     a.Machine,
		logger:      logger,
	}
}

func (d *device) watch(ctx context.Context, questID string, m *session.Match, interval time.Duration) {
	d.cache.Put(quest.Entry{QuestID: questID, MatchID: m.ID, UserCompletions: map[string]bool{}})
	d.coordinator.Start(ctx, m.ID, interval, func(state *session.Match) {
		d.logger.Debug().Str("match_id", state.ID).Str("status", state.Status).Msg("poll update")
	})
}

func main() {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(".env"); err != nil {
			log.Printf("no .env file loaded: %v", err)
		}
	}

	ctx := context.Background()
	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	content := session.StaticContent{
		Counts: map[string]int{quizSlot: 5},
		Ladders: map[string]session.LadderState{
			ladderSlot: {StartWord: "COLD", EndWord: "WARM", OptimalSteps: 4},
		},
	}

	instance, err := app.New(ctx, cfg, content)
	if err != nil {
		log.Fatalf("failed to build app: %v", err)
	}
	defer instance.Close(ctx)

	var listener quest.CompletionListener
	if instance.Archive != nil {
		listener = instance.Archive
	}

	devA := newDevice("device-a", playerA, instance, listener)
	devB := newDevice("device-b", playerB, instance, listener)

	runQuiz(ctx, instance, devA, devB)
	runLadder(ctx, instance, devA, devB)
}

// runQuiz plays a bulk quiz: A submits 5 answers, match stays
// active; B submits 5, the second write completes the pair; both poll
// loops converge and each device fires its completion handling once.
func runQuiz(ctx context.Context, a *app.Application, devA, devB *device) {
	interval := a.Cfg.Poll.Interval
	players := [2]string{playerA, playerB}

	m, err := devA.machine.GetOrCreate(ctx, session.KindQuiz, quizSlot, players)
	if err != nil {
		a.Logger.Fatal().Err(err).Msg("quiz get-or-create failed")
	}
	devA.watch(ctx, quizSlot, m, interval)
	devB.watch(ctx, quizSlot, m, interval)

	answersA := []string{"A", "B", "A", "C", "D"}
	if res, err := devA.machine.SubmitAllAnswers(ctx, m.ID, playerA, answersA); err != nil {
		a.Logger.Fatal().Err(err).Msg("device-a submit failed")
	} else {
		devA.reconciler.MarkOwnSubmission(quizSlot, res.Match, playerA)
		a.Logger.Info().Bool("completed", res.Completed).Msg("device-a submitted")
	}

	time.Sleep(interval / 2)

	answersB := []string{"B", "B", "A", "C", "A"}
	if res, err := devB.machine.SubmitAllAnswers(ctx, m.ID, playerB, answersB); err != nil {
		a.Logger.Fatal().Err(err).Msg("device-b submit failed")
	} else {
		devB.reconciler.MarkOwnSubmission(quizSlot, res.Match, playerB)
		a.Logger.Info().Bool("completed", res.Completed).Msg("device-b submitted")
	}

	waitForConvergence(a, m.ID, devA, devB, 10*interval)
}

// runLadder alternates scripted moves, including a yield, until the end
// word completes the match.
func runLadder(ctx context.Context, a *app.Application, devA, devB *device) {
	interval := a.Cfg.Poll.Interval
	players := [2]string{playerA, playerB}

	m, err := devA.machine.GetOrCreate(ctx, session.KindWordLadder, ladderSlot, players)
	if err != nil {
		a.Logger.Fatal().Err(err).Msg("ladder get-or-create failed")
	}
	devA.watch(ctx, ladderSlot, m, interval)
	devB.watch(ctx, ladderSlot, m, interval)

	// A: COLD->CORD, B: ->WORD, A: ->WARD, then A... B holds the turn,
	// yields, and A finishes on B's behalf.
	moves := []struct {
		dev  *device
		word string
	}{
		{devA, "CORD"},
		{devB, "WORD"},
		{devA, "WARD"},
	}
	for _, mv := range moves {
		res, reject, err := mv.dev.machine.ApplyLadderMove(ctx, m.ID, mv.dev.playerID, mv.word)
		if err != nil {
			a.Logger.Fatal().Err(err).Str("word", mv.word).Msg("ladder move failed")
		}
		if reject != nil {
			a.Logger.Fatal().Str("word", reject.Word).Str("reason", string(reject.Reason)).Msg("ladder move rejected")
		}
		a.Logger.Info().Str("word", mv.word).Bool("completed", res.Completed).Msg("ladder move accepted")
	}

	if _, err := devB.machine.YieldTurn(ctx, m.ID, playerB); err != nil {
		a.Logger.Fatal().Err(err).Msg("yield failed")
	}
	res, reject, err := devA.machine.ApplyLadderMove(ctx, m.ID, playerA, "WARM")
	if err != nil || reject != nil {
		a.Logger.Fatal().Err(err).Msg("assisted final move failed")
	}
	a.Logger.Info().Bool("completed", res.Completed).Msg("ladder finished via assist")

	waitForConvergence(a, m.ID, devA, devB, 10*interval)
}

// waitForConvergence blocks until both devices' guards have claimed the
// completion, i.e. each device handled it exactly once.
func waitForConvergence(a *app.Application, matchID string, devA, devB *device, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if devA.guard.Claimed(matchID) && devB.guard.Claimed(matchID) {
			a.Logger.Info().Str("match_id", matchID).Msg("both devices converged")
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	a.Logger.Error().Str("match_id", matchID).Msg("devices did not converge in time")
}
