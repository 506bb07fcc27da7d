package session

// GameRules captures the per-kind legality rules the state machine and
// store apply. Selected once at match creation from the game kind.
type GameRules interface {
	// TurnBased reports whether entries alternate between the players.
	TurnBased() bool
	// BulkSubmission reports whether a player submits all answers at once.
	BulkSubmission() bool
	// Complete reports whether the document satisfies the kind's
	// completion condition. Evaluated by whichever write completes the
	// pair, inside the store's per-document critical section.
	Complete(m *Match) bool
}

// RulesFor returns the rules for a game kind. Unknown kinds fall back to
// bulk-submission rules.
func RulesFor(kind string) GameRules {
	switch kind {
	case KindYouOrMe:
		return turnRules{}
	case KindWordLadder:
		return ladderRules{}
	default:
		return bulkRules{}
	}
}

// bulkRules: quiz and affirmation-quiz. Each player submits the whole
// answer set in one call.
type bulkRules struct{}

func (bulkRules) TurnBased() bool        { return false }
func (bulkRules) BulkSubmission() bool   { return true }
func (bulkRules) Complete(m *Match) bool { return m.BothAnswered() }

// turnRules: "You or Me" cards, one entry per turn, alternating.
type turnRules struct{}

func (turnRules) TurnBased() bool        { return true }
func (turnRules) BulkSubmission() bool   { return false }
func (turnRules) Complete(m *Match) bool { return m.BothAnswered() }

// ladderRules: word ladder. Completion is reaching the end word, not an
// answer count.
type ladderRules struct{}

func (ladderRules) TurnBased() bool      { return true }
func (ladderRules) BulkSubmission() bool { return false }
func (ladderRules) Complete(m *Match) bool {
	return m.Ladder != nil && m.Ladder.CurrentWord != "" && m.Ladder.CurrentWord == m.Ladder.EndWord
}
