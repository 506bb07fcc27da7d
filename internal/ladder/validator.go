// Package ladder implements the word-ladder move validator. Pure logic,
// no I/O: the state machine runs it before any store mutation.
package ladder

import "strings"

// Reason classifies why a candidate word was rejected.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonNotAdjacent Reason = "not_adjacent"
	ReasonUnknownWord Reason = "unknown_word"
	ReasonAlreadyUsed Reason = "already_used"
)

// Reject describes a refused candidate word.
type Reject struct {
	Word   string
	Reason Reason
}

// Validate checks one ladder move. The candidate is normalized to
// uppercase before all checks; the returned word is the normalized form.
// A valid move has the same length as the current word, differs from it
// in exactly one position, exists in the dictionary, and has not appeared
// earlier in the chain.
func Validate(currentWord, candidateWord string, wordChain []string, dict Dictionary) (string, Reason) {
	current := strings.ToUpper(strings.TrimSpace(currentWord))
	candidate := strings.ToUpper(strings.TrimSpace(candidateWord))

	if !Adjacent(current, candidate) {
		return candidate, ReasonNotAdjacent
	}
	if dict == nil || !dict.Contains(candidate) {
		return candidate, ReasonUnknownWord
	}
	for _, used := range wordChain {
		if strings.EqualFold(used, candidate) {
			return candidate, ReasonAlreadyUsed
		}
	}
	return candidate, ReasonNone
}

// Adjacent reports Hamming distance exactly 1 over equal-length words.
// Insertions and deletions are never adjacent. The store re-runs this
// check inside its critical section, where the chain cannot move.
func Adjacent(a, b string) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	diff := 0
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			diff++
			if diff > 1 {
				return false
			}
		}
	}
	return diff == 1
}
