package store

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// Metric selects the similarity function of a VectorIndex.
type Metric string

const (
	MetricCosine       Metric = "cosine"
	MetricInnerProduct Metric = "inner_product"
)

// ParseMetric validates a configured metric name.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricCosine, MetricInnerProduct:
		return Metric(s), nil
	default:
		return "", fmt.Errorf("%w: unknown metric %q", domain.ErrInvalidConfig, s)
	}
}

// VectorIndex is an append-only, in-memory brute-force index. Row ids are
// positions in insertion order. Writers (Add) take the exclusive lock;
// Search, Len and Save share the read lock.
type VectorIndex struct {
	mu        sync.RWMutex
	saveMu    sync.Mutex
	metric    Metric
	dimension int
	model     string
	vectors   [][]float32
	norms     []float64
	chunks    []domain.Chunk
}

var _ port.VectorIndex = (*VectorIndex)(nil)

// NewVectorIndex creates an empty index. model is recorded in the saved
// header for operators; it does not affect search.
func NewVectorIndex(metric Metric, model string) *VectorIndex {
	return &VectorIndex{metric: metric, model: model}
}

// Add appends entries and returns their row ids. Either every entry is
// added or none is.
func (x *VectorIndex) Add(entries []domain.IndexEntry) ([]uint64, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	dim := x.dimension
	if dim == 0 {
		dim = len(entries[0].Vector)
		if dim == 0 {
			return nil, fmt.Errorf("%w: empty vector", domain.ErrDimensionMismatch)
		}
	}
	for i, e := range entries {
		if len(e.Vector) != dim {
			return nil, fmt.Errorf("%w: entry %d has %d dimensions, index has %d", domain.ErrDimensionMismatch, i, len(e.Vector), dim)
		}
	}

	x.dimension = dim
	ids := make([]uint64, len(entries))
	for i, e := range entries {
		ids[i] = uint64(len(x.vectors))
		vec := make([]float32, dim)
		copy(vec, e.Vector)
		x.vectors = append(x.vectors, vec)
		x.norms = append(x.norms, norm(vec))
		x.chunks = append(x.chunks, e.Chunk)
	}

	return ids, nil
}

// Search returns up to k entries ordered by descending similarity, ties
// going to the lower row id.
func (x *VectorIndex) Search(query []float32, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidConfig, k)
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.vectors) == 0 {
		return nil, domain.ErrEmptyIndex
	}
	if len(query) != x.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", domain.ErrDimensionMismatch, len(query), x.dimension)
	}

	type scored struct {
		id    int
		score float64
	}

	qNorm := norm(query)
	scores := make([]scored, len(x.vectors))
	for i, v := range x.vectors {
		scores[i] = scored{id: i, score: x.similarity(query, qNorm, v, x.norms[i])}
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].id < scores[j].id
	})

	if k > len(scores) {
		k = len(scores)
	}

	results := make([]domain.ScoredChunk, k)
	for i := 0; i < k; i++ {
		results[i] = domain.ScoredChunk{
			EntryID: uint64(scores[i].id),
			Chunk:   x.chunks[scores[i].id],
			Score:   scores[i].score,
		}
	}

	return results, nil
}

func (x *VectorIndex) similarity(q []float32, qNorm float64, v []float32, vNorm float64) float64 {
	var dot float64
	for i := range q {
		dot += float64(q[i]) * float64(v[i])
	}
	if x.metric == MetricInnerProduct {
		return dot
	}

	if qNorm == 0 || vNorm == 0 {
		return 0
	}
	sim := dot / (qNorm * vNorm)
	// Rounding can push identical vectors slightly past 1.
	return math.Max(-1, math.Min(1, sim))
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Len returns the number of entries.
func (x *VectorIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

// Dimension returns the established dimensionality, 0 before the first Add.
func (x *VectorIndex) Dimension() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dimension
}

func (x *VectorIndex) Metric() Metric {
	return x.metric
}

// Model returns the embedding model recorded for this index.
func (x *VectorIndex) Model() string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.model
}

// Populated reports whether the index has left the Uninitialized state.
func (x *VectorIndex) Populated() bool {
	return x.Len() > 0
}

// Entries returns copies of up to n entries starting at row from, in row
// order. Rows never change once added, so successive calls read a
// consistent prefix without holding the lock in between.
func (x *VectorIndex) Entries(from, n int) []domain.IndexEntry {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if from < 0 || n <= 0 || from >= len(x.vectors) {
		return nil
	}
	end := min(from+n, len(x.vectors))
	out := make([]domain.IndexEntry, 0, end-from)
	for i := from; i < end; i++ {
		vec := make([]float32, len(x.vectors[i]))
		copy(vec, x.vectors[i])
		out = append(out, domain.IndexEntry{ID: uint64(i), Vector: vec, Chunk: x.chunks[i]})
	}
	return out
}
