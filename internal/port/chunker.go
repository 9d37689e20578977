package port

import "docqa/internal/domain"

// Chunker splits a document into overlapping passages.
type Chunker interface {
	Chunk(doc domain.Document) ([]domain.Chunk, error)
}
