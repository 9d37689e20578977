package retriever

import (
	"context"
	"fmt"

	"docqa/internal/domain"
	"docqa/internal/port"
)

var _ port.Retriever = (*SemanticRetriever)(nil)

// SemanticRetriever embeds the query and runs a similarity search.
type SemanticRetriever struct {
	index    port.VectorIndex
	embedder port.Embedder
}

func NewSemanticRetriever(index port.VectorIndex, embedder port.Embedder) *SemanticRetriever {
	return &SemanticRetriever{
		index:    index,
		embedder: embedder,
	}
}

func (r *SemanticRetriever) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	// Nothing to compare against, so skip the embedding call.
	if r.index.Len() == 0 {
		return nil, domain.ErrEmptyIndex
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("%w: expected 1 query vector, got %d", domain.ErrEmbeddingUnavailable, len(embeddings))
	}

	results, err := r.index.Search(embeddings[0], k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	return results, nil
}
