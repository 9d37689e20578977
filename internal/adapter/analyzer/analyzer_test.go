package analyzer

import (
	"testing"
)

func TestTokenizer_StopwordAndShortWordRemoval(t *testing.T) {
	tok := NewTokenizer()

	tokens := tok.Tokenize("The quick brown fox is a I go")
	want := []string{"quick", "brown", "fox", "go"}
	if len(tokens) != len(want) {
		t.Fatalf("expected %v, got %v", want, tokens)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("token %d: expected %s, got %s", i, want[i], tokens[i])
		}
	}
}

func TestTokenizer_EmptyInput(t *testing.T) {
	tok := NewTokenizer()
	if tokens := tok.Tokenize(""); len(tokens) != 0 {
		t.Errorf("expected no tokens, got %v", tokens)
	}
	if tokens := tok.Tokenize("  ,,; "); len(tokens) != 0 {
		t.Errorf("expected no tokens for punctuation, got %v", tokens)
	}
}

func TestRuneCounter(t *testing.T) {
	c := RuneCounter{}

	if got := c.Count("héllo"); got != 5 {
		t.Errorf("expected 5 runes, got %d", got)
	}

	tests := []struct {
		text string
		n    int
		want string
	}{
		{"héllo", 2, "hé"},
		{"héllo", 5, "héllo"},
		{"héllo", 10, "héllo"},
		{"héllo", 0, ""},
	}
	for _, tt := range tests {
		if got := c.Truncate(tt.text, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.text, tt.n, got, tt.want)
		}
		if c.Count(c.Truncate(tt.text, tt.n)) > tt.n {
			t.Errorf("Truncate(%q, %d) exceeded budget", tt.text, tt.n)
		}
	}
}

func TestWordCounter(t *testing.T) {
	c := WordCounter{}

	if got := c.Count("one, two three"); got != 3 {
		t.Errorf("expected 3 words, got %d", got)
	}
	if got := c.Truncate("one, two three", 2); got != "one, two" {
		t.Errorf("expected %q, got %q", "one, two", got)
	}
	if got := c.Truncate("one two", 5); got != "one two" {
		t.Errorf("short text should be unchanged, got %q", got)
	}
}

func TestCounter(t *testing.T) {
	for unit, name := range map[string]string{"": "chars", "chars": "chars", "words": "words"} {
		c, err := Counter(unit)
		if err != nil {
			t.Fatalf("unit %q: %v", unit, err)
		}
		if c.Name() != name {
			t.Errorf("unit %q: expected %s, got %s", unit, name, c.Name())
		}
	}
	if _, err := Counter("tokens"); err == nil {
		t.Error("expected error for unknown unit")
	}
}
