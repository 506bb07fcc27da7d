package session

import (
	"time"
)

// GameKind constants.
const (
	KindQuiz            = "quiz"
	KindAffirmationQuiz = "affirmation_quiz"
	KindYouOrMe         = "you_or_me"
	KindWordLadder      = "word_ladder"
)

// Match lifecycle states. Forward-only: pending -> active -> completed.
const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Match is one instance of a two-player mini-game, mirrored from the
// remote session store. Exactly two participants; order is meaningful
// for turn-based kinds (Players[0] created the pairing slot).
type Match struct {
	ID              string                    `json:"id"`
	GameKind        string                    `json:"game_kind"`
	ContentSlot     string                    `json:"content_slot"`
	Players         [2]string                 `json:"players"`
	Status          string                    `json:"status"`
	TurnHolder      string                    `json:"turn_holder,omitempty"`
	ExpectedAnswers int                       `json:"expected_answers"`
	Answers         map[string][]AnswerRecord `json:"answers"`
	Ladder          *LadderState              `json:"ladder,omitempty"`
	CreatedAt       time.Time                 `json:"created_at"`
	CompletedAt     *time.Time                `json:"completed_at,omitempty"`
}

// AnswerRecord is one player's entry for a given step. Append-only: once
// written for a step it is never edited.
type AnswerRecord struct {
	Step        int       `json:"step"`
	Payload     string    `json:"payload"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// LadderState is the word-ladder specialization of a match document.
type LadderState struct {
	StartWord    string   `json:"start_word"`
	EndWord      string   `json:"end_word"`
	CurrentWord  string   `json:"current_word"`
	WordChain    []string `json:"word_chain"`
	OptimalSteps int      `json:"optimal_steps"`
	IsYielded    bool     `json:"is_yielded"`
}

// HasPlayer reports whether id is one of the two participants.
func (m *Match) HasPlayer(id string) bool {
	return m.Players[0] == id || m.Players[1] == id
}

// Other returns the partner of the given participant, or "" if id is not
// a participant.
func (m *Match) Other(id string) string {
	switch id {
	case m.Players[0]:
		return m.Players[1]
	case m.Players[1]:
		return m.Players[0]
	}
	return ""
}

// AnswerCount returns how many entries the player has recorded.
func (m *Match) AnswerCount(playerID string) int {
	return len(m.Answers[playerID])
}

// BothAnswered reports whether both players have recorded the expected
// number of entries.
func (m *Match) BothAnswered() bool {
	if m.ExpectedAnswers <= 0 {
		return false
	}
	return m.AnswerCount(m.Players[0]) >= m.ExpectedAnswers &&
		m.AnswerCount(m.Players[1]) >= m.ExpectedAnswers
}

// Terminal reports whether the match should be treated as finished by a
// polling client. status==completed is authoritative; the both-answered
// fallback covers the window where the store's status field lags the
// answer fields.
func (m *Match) Terminal() bool {
	if m.Status == StatusCompleted {
		return true
	}
	return RulesFor(m.GameKind).BulkSubmission() && m.BothAnswered()
}

// Clone returns a deep copy so callers can hand matches across goroutine
// boundaries without sharing the answer slices.
func (m *Match) Clone() *Match {
	cp := *m
	cp.Answers = make(map[string][]AnswerRecord, len(m.Answers))
	for player, recs := range m.Answers {
		cp.Answers[player] = append([]AnswerRecord(nil), recs...)
	}
	if m.Ladder != nil {
		ladder := *m.Ladder
		ladder.WordChain = append([]string(nil), m.Ladder.WordChain...)
		cp.Ladder = &ladder
	}
	if m.CompletedAt != nil {
		ts := *m.CompletedAt
		cp.CompletedAt = &ts
	}
	return &cp
}
