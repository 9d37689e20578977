package domain

import (
	"fmt"
	"strings"
	"time"
)

// Document is an uploaded source file after text extraction.
type Document struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Text       string    `json:"-"`
	Hash       string    `json:"hash"`
	Units      int       `json:"units"`
	Chunks     int       `json:"chunks"`
	// FirstRow is the index row of chunk 0; the chunks occupy
	// [FirstRow, FirstRow+Chunks).
	FirstRow   int       `json:"first_row"`
	IngestedAt time.Time `json:"ingested_at"`
}

// Chunk is a contiguous span of a document's text. Start and End are rune
// offsets into the parent document; Overlap is the number of runes shared
// with the previous chunk of the same document.
type Chunk struct {
	DocumentID string `json:"document_id"`
	Source     string `json:"source"`
	Position   int    `json:"position"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Overlap    int    `json:"overlap"`
	Text       string `json:"text"`
}

// IndexEntry is one row of the vector index.
type IndexEntry struct {
	ID     uint64
	Vector []float32
	Chunk  Chunk
}

// ScoredChunk is a single retrieval hit.
type ScoredChunk struct {
	EntryID uint64  `json:"entry_id"`
	Chunk   Chunk   `json:"chunk"`
	Score   float64 `json:"score"`
}

// Citation points from an answer back to the passage that was sent to the model.
type Citation struct {
	Ref        int     `json:"ref"`
	DocumentID string  `json:"document_id"`
	Source     string  `json:"source"`
	Position   int     `json:"position"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Score      float64 `json:"score"`
}

// Passage is a chunk as it appears inside an assembled context block.
type Passage struct {
	Citation Citation `json:"citation"`
	Text     string   `json:"text"`
}

// ContextBlock is the bounded context forwarded to the generative model.
type ContextBlock struct {
	Passages    []Passage `json:"passages"`
	BudgetUnits int       `json:"budget_units"`
	UsedUnits   int       `json:"used_units"`
	Truncated   bool      `json:"truncated"`
}

// Empty reports whether the block carries no passages.
func (b ContextBlock) Empty() bool {
	return len(b.Passages) == 0
}

// Citations returns the citation map in passage order.
func (b ContextBlock) Citations() []Citation {
	citations := make([]Citation, 0, len(b.Passages))
	for _, p := range b.Passages {
		citations = append(citations, p.Citation)
	}
	return citations
}

// Render formats the passages as they are shown to the model.
func (b ContextBlock) Render() string {
	parts := make([]string, 0, len(b.Passages))
	for _, p := range b.Passages {
		c := p.Citation
		parts = append(parts, fmt.Sprintf("[%d] Source: %s (doc %s, chunk %d)\n%s", c.Ref, c.Source, c.DocumentID, c.Position, p.Text))
	}
	return strings.Join(parts, "\n\n")
}

// AnswerStatus classifies an AnswerResponse.
type AnswerStatus string

const (
	StatusAnswered              AnswerStatus = "answered"
	StatusNoRelevantInformation AnswerStatus = "no_relevant_information"
	StatusEmptyIndex            AnswerStatus = "empty_index"
)

// AnswerResponse is the result of a query.
type AnswerResponse struct {
	Question  string       `json:"question"`
	Answer    string       `json:"answer"`
	Status    AnswerStatus `json:"status"`
	Citations []Citation   `json:"citations"`
	TopScore  float64      `json:"top_score"`
	Model     string       `json:"model,omitempty"`
}

// IngestResult summarizes one ingested document.
type IngestResult struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Chunks     int    `json:"chunks"`
	Units      int    `json:"units"`
	// Warning is set when the document is indexed but the index could not
	// be saved.
	Warning    string `json:"warning,omitempty"`
}

// HealthStatus is reported by the health entry point.
type HealthStatus struct {
	EmbeddingReachable  bool   `json:"embedding_reachable"`
	GenerationReachable bool   `json:"generation_reachable"`
	IndexPopulated      bool   `json:"index_populated"`
	IndexEntries        int    `json:"index_entries"`
	Documents           int    `json:"documents"`
	EmbeddingError      string `json:"embedding_error,omitempty"`
	GenerationError     string `json:"generation_error,omitempty"`
}

// Healthy reports whether both external services answered.
func (h HealthStatus) Healthy() bool {
	return h.EmbeddingReachable && h.GenerationReachable
}
