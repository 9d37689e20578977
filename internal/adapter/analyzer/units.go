package analyzer

import (
	"fmt"
	"unicode/utf8"

	"docqa/internal/port"
)

// RuneCounter measures text in runes.
type RuneCounter struct{}

func (RuneCounter) Count(text string) int {
	return utf8.RuneCountInString(text)
}

func (RuneCounter) Truncate(text string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for idx := range text {
		if i == n {
			return text[:idx]
		}
		i++
	}
	return text
}

func (RuneCounter) Name() string { return "chars" }

// WordCounter measures text in words. Truncation keeps whole words and the
// text between them, cutting right after the n-th word.
type WordCounter struct{}

func (WordCounter) Count(text string) int {
	return len(wordEnds(text))
}

func (WordCounter) Truncate(text string, n int) string {
	if n <= 0 {
		return ""
	}
	ends := wordEnds(text)
	if len(ends) <= n {
		return text
	}
	return RuneCounter{}.Truncate(text, ends[n-1])
}

func (WordCounter) Name() string { return "words" }

// Counter returns the counter for a configured unit name.
func Counter(unit string) (port.UnitCounter, error) {
	switch unit {
	case "", "chars":
		return RuneCounter{}, nil
	case "words":
		return WordCounter{}, nil
	default:
		return nil, fmt.Errorf("unknown unit %q", unit)
	}
}

// wordEnds returns, for each letter/digit run in text, the rune offset just
// past its last rune.
func wordEnds(text string) []int {
	var ends []int
	inWord := false
	pos := 0
	for _, r := range text {
		if isSeparator(r) {
			if inWord {
				ends = append(ends, pos)
			}
			inWord = false
		} else {
			inWord = true
		}
		pos++
	}
	if inWord {
		ends = append(ends, pos)
	}
	return ends
}
