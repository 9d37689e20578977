package chunker

import (
	"fmt"

	"docqa/internal/domain"
)

// Span is a half-open rune range [Start, End) of a document.
type Span struct {
	Start   int
	End     int
	Overlap int
}

// Split cuts n runes into consecutive windows of size runes, each starting
// size-overlap runes after the previous one. The first window that reaches
// the end of the text is the last; it may be shorter than size.
func Split(n, size, overlap int) ([]Span, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}

	step := size - overlap
	spans := make([]Span, 0, (n+step-1)/step)
	prevEnd := 0

	for start := 0; ; start += step {
		end := start + size
		if end > n {
			end = n
		}
		span := Span{Start: start, End: end}
		if len(spans) > 0 {
			span.Overlap = prevEnd - start
		}
		spans = append(spans, span)
		if end == n {
			break
		}
		prevEnd = end
	}

	return spans, nil
}

func validate(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfig, size)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("%w: overlap must be in [0, %d), got %d", domain.ErrInvalidConfig, size, overlap)
	}
	return nil
}

// WindowChunker splits documents into fixed-size rune windows.
type WindowChunker struct {
	size    int
	overlap int
}

// NewWindowChunker returns a chunker, rejecting parameters that could never split.
func NewWindowChunker(size, overlap int) (*WindowChunker, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}
	return &WindowChunker{size: size, overlap: overlap}, nil
}

func (c *WindowChunker) Chunk(doc domain.Document) ([]domain.Chunk, error) {
	runes := []rune(doc.Text)

	spans, err := Split(len(runes), c.size, c.overlap)
	if err != nil {
		return nil, err
	}

	chunks := make([]domain.Chunk, 0, len(spans))
	for i, s := range spans {
		chunks = append(chunks, domain.Chunk{
			DocumentID: doc.ID,
			Source:     doc.Filename,
			Position:   i,
			Start:      s.Start,
			End:        s.End,
			Overlap:    s.Overlap,
			Text:       string(runes[s.Start:s.End]),
		})
	}

	return chunks, nil
}

// Size returns the window size in runes.
func (c *WindowChunker) Size() int { return c.size }

// Overlap returns the overlap in runes.
func (c *WindowChunker) Overlap() int { return c.overlap }
