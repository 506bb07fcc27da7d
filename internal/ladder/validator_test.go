package ladder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testDict() WordList {
	return NewWordList([]string{"COLD", "CORD", "CARD", "WARD", "WARM", "WORD", "CORE", "WARE"})
}

func TestValidateAcceptsSingleLetterChange(t *testing.T) {
	dict := testDict()

	word, reason := Validate("CORD", "WORD", []string{"COLD", "CORD"}, dict)
	assert.Equal(t, ReasonNone, reason)
	assert.Equal(t, "WORD", word)

	word, reason = Validate("CORD", "CORE", []string{"COLD", "CORD"}, dict)
	assert.Equal(t, ReasonNone, reason)
	assert.Equal(t, "CORE", word)
}

func TestValidateNormalizesCase(t *testing.T) {
	word, reason := Validate("cord", "word", []string{"COLD", "CORD"}, testDict())
	assert.Equal(t, ReasonNone, reason)
	assert.Equal(t, "WORD", word)
}

func TestValidateRejectsNonAdjacent(t *testing.T) {
	tests := []struct {
		name      string
		current   string
		candidate string
	}{
		{"two letters differ", "CORD", "WARD"},
		{"identical", "CORD", "CORD"},
		{"length mismatch", "CORD", "CORDS"},
		{"empty candidate", "CORD", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, reason := Validate(tc.current, tc.candidate, nil, testDict())
			assert.Equal(t, ReasonNotAdjacent, reason)
		})
	}
}

func TestValidateRejectsUnknownWord(t *testing.T) {
	_, reason := Validate("CORD", "CORM", []string{"COLD", "CORD"}, testDict())
	assert.Equal(t, ReasonUnknownWord, reason)

	_, reason = Validate("CORD", "WORD", nil, nil)
	assert.Equal(t, ReasonUnknownWord, reason, "nil dictionary accepts nothing")
}

func TestValidateRejectsReusedWord(t *testing.T) {
	chain := []string{"COLD", "CORD", "WORD"}
	_, reason := Validate("WORD", "CORD", chain, testDict())
	assert.Equal(t, ReasonAlreadyUsed, reason)

	// Case-insensitive against the chain too.
	_, reason = Validate("WORD", "cord", chain, testDict())
	assert.Equal(t, ReasonAlreadyUsed, reason)
}

func TestValidateChecksAdjacencyBeforeDictionary(t *testing.T) {
	_, reason := Validate("CORD", "QQQQ", nil, testDict())
	assert.Equal(t, ReasonNotAdjacent, reason)
}

func TestDefaultDictionary(t *testing.T) {
	dict := Default()
	assert.True(t, dict.Contains("COLD"))
	assert.True(t, dict.Contains("warm"))
	assert.False(t, dict.Contains("XYZZY"))
}
