package port

import (
	"context"

	"docqa/internal/domain"
)

// Retriever defines the interface for searching indexed content.
type Retriever interface {
	// Search returns up to k chunks for the query, best first.
	Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error)
}
