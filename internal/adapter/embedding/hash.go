package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"docqa/internal/adapter/analyzer"
	"docqa/internal/port"
)

var (
	_ port.Embedder = (*HashEmbedder)(nil)
	_ port.Pinger   = (*HashEmbedder)(nil)
)

// HashEmbedder is an offline embedder based on feature hashing of word
// tokens. Texts sharing words get a positive cosine similarity, which is
// enough for tests and air-gapped demos.
type HashEmbedder struct {
	dimension int
	tokenizer *analyzer.Tokenizer
}

func NewHashEmbedder(dimension int) *HashEmbedder {
	return &HashEmbedder{dimension: dimension, tokenizer: analyzer.NewTokenizer()}
}

func (e *HashEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = e.vector(text)
	}
	return embeddings, nil
}

func (e *HashEmbedder) vector(text string) []float32 {
	v := make([]float32, e.dimension)
	for _, tok := range e.tokenizer.Tokenize(text) {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()
		idx := int(sum % uint64(e.dimension))
		// The high bit picks the sign so collisions tend to cancel out.
		if sum>>63 == 1 {
			v[idx]--
		} else {
			v[idx]++
		}
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

func (e *HashEmbedder) Dimension() int {
	return e.dimension
}

func (e *HashEmbedder) ModelName() string {
	return "hash"
}

func (e *HashEmbedder) Ping(context.Context) error {
	return nil
}
