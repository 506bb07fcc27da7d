package ladder

import (
	"bufio"
	_ "embed"
	"fmt"
	"os"
	"strings"
)

// Dictionary answers membership queries for a puzzle's language.
type Dictionary interface {
	Contains(word string) bool
}

// WordList is an uppercase-keyed in-memory dictionary.
type WordList map[string]struct{}

var _ Dictionary = WordList{}

//go:embed words_en.txt
var embeddedWords string

// NewWordList builds a dictionary from words, normalizing to uppercase
// and skipping blanks.
func NewWordList(words []string) WordList {
	list := make(WordList, len(words))
	for _, w := range words {
		w = strings.ToUpper(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		list[w] = struct{}{}
	}
	return list
}

// Contains reports whether word is in the list (case-insensitive).
func (l WordList) Contains(word string) bool {
	_, ok := l[strings.ToUpper(strings.TrimSpace(word))]
	return ok
}

// Default returns the embedded English word list.
func Default() WordList {
	return NewWordList(strings.Split(embeddedWords, "\n"))
}

// LoadFile reads a newline-separated word list from path. Lines starting
// with '#' are skipped.
func LoadFile(path string) (WordList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word list: %w", err)
	}
	defer f.Close()

	list := make(WordList)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		list[strings.ToUpper(line)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read word list: %w", err)
	}
	return list, nil
}
