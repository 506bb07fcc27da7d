package session

// ContentResolver supplies the externally-loaded content parameters for a
// content slot. Quiz/puzzle content loading and localization live outside
// this core; the store only needs the expected answer count and, for word
// ladders, the puzzle definition when it creates a document.
type ContentResolver interface {
	// QuestionCount returns the expected answer count for the slot, or 0
	// when unknown.
	QuestionCount(contentSlot string) int
	// LadderPuzzle returns the puzzle for the slot, if it is a ladder.
	LadderPuzzle(contentSlot string) (LadderState, bool)
}

// StaticContent is a fixed in-memory ContentResolver.
type StaticContent struct {
	Counts  map[string]int
	Ladders map[string]LadderState
}

var _ ContentResolver = StaticContent{}

func (c StaticContent) QuestionCount(contentSlot string) int {
	return c.Counts[contentSlot]
}

func (c StaticContent) LadderPuzzle(contentSlot string) (LadderState, bool) {
	puzzle, ok := c.Ladders[contentSlot]
	return puzzle, ok
}
