package chunker

import (
	"errors"
	"strings"
	"testing"

	"docqa/internal/domain"
)

func TestSplitScenario(t *testing.T) {
	spans, err := Split(500, 100, 20)
	if err != nil {
		t.Fatal(err)
	}

	wantStarts := []int{0, 80, 160, 240, 320, 400}
	if len(spans) != len(wantStarts) {
		t.Fatalf("expected %d chunks, got %d", len(wantStarts), len(spans))
	}
	for i, s := range spans {
		if s.Start != wantStarts[i] {
			t.Errorf("chunk %d: expected start %d, got %d", i, wantStarts[i], s.Start)
		}
		if s.End-s.Start > 100 {
			t.Errorf("chunk %d longer than chunk size: %d", i, s.End-s.Start)
		}
	}
	if spans[len(spans)-1].End != 500 {
		t.Errorf("last chunk should end at 500, got %d", spans[len(spans)-1].End)
	}
}

func TestSplitInvalidConfig(t *testing.T) {
	tests := []struct {
		size, overlap int
	}{
		{100, 100},
		{100, 150},
		{0, 0},
		{-5, 0},
		{10, -1},
	}

	for _, tt := range tests {
		_, err := Split(50, tt.size, tt.overlap)
		if !errors.Is(err, domain.ErrInvalidConfig) {
			t.Errorf("size=%d overlap=%d: expected ErrInvalidConfig, got %v", tt.size, tt.overlap, err)
		}
		if _, err := NewWindowChunker(tt.size, tt.overlap); !errors.Is(err, domain.ErrInvalidConfig) {
			t.Errorf("constructor size=%d overlap=%d: expected ErrInvalidConfig, got %v", tt.size, tt.overlap, err)
		}
	}
}

func TestChunkEmptyDocument(t *testing.T) {
	c, err := NewWindowChunker(100, 20)
	if err != nil {
		t.Fatal(err)
	}
	chunks, err := c.Chunk(domain.Document{ID: "doc1"})
	if err != nil {
		t.Fatalf("empty document should not error: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

// reconstruct concatenates chunk texts, dropping each chunk's overlap with
// its predecessor.
func reconstruct(chunks []domain.Chunk) string {
	var sb strings.Builder
	for _, c := range chunks {
		runes := []rune(c.Text)
		sb.WriteString(string(runes[c.Overlap:]))
	}
	return sb.String()
}

func TestChunkReconstructsDocument(t *testing.T) {
	texts := []string{
		"a",
		strings.Repeat("x", 99),
		strings.Repeat("abcdefghij", 50),
		strings.Repeat("héllo wörld — ünïcode ", 37),
		"short text with a tail that is not a multiple of the step",
	}
	params := []struct{ size, overlap int }{
		{10, 0}, {10, 3}, {7, 6}, {100, 20}, {1, 0},
	}

	for _, text := range texts {
		for _, p := range params {
			c, err := NewWindowChunker(p.size, p.overlap)
			if err != nil {
				t.Fatal(err)
			}
			doc := domain.Document{ID: "doc", Filename: "f.txt", Text: text}
			chunks, err := c.Chunk(doc)
			if err != nil {
				t.Fatal(err)
			}

			if got := reconstruct(chunks); got != text {
				t.Errorf("size=%d overlap=%d: reconstruction mismatch\nwant %q\ngot  %q", p.size, p.overlap, text, got)
			}

			n := len([]rune(text))
			for i, ch := range chunks {
				if ch.Position != i {
					t.Errorf("expected position %d, got %d", i, ch.Position)
				}
				if ch.Start < 0 || ch.End > n || ch.Start >= ch.End {
					t.Errorf("chunk %d offsets out of bounds: [%d,%d) of %d", i, ch.Start, ch.End, n)
				}
				if ch.Overlap > p.overlap {
					t.Errorf("chunk %d overlaps by %d, more than %d", i, ch.Overlap, p.overlap)
				}
				if ch.DocumentID != "doc" || ch.Source != "f.txt" {
					t.Errorf("chunk %d lost provenance: %+v", i, ch)
				}
			}
		}
	}
}

func TestChunkOffsetsAreRunes(t *testing.T) {
	c, err := NewWindowChunker(3, 1)
	if err != nil {
		t.Fatal(err)
	}
	chunks, err := c.Chunk(domain.Document{ID: "d", Text: "ééééé"})
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Text != "ééé" || chunks[1].Text != "ééé" {
		t.Errorf("unexpected chunk texts %q %q", chunks[0].Text, chunks[1].Text)
	}
	if chunks[1].Start != 2 || chunks[1].End != 5 || chunks[1].Overlap != 1 {
		t.Errorf("unexpected second span: %+v", chunks[1])
	}
}
