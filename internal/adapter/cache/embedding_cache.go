package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"docqa/internal/port"
)

// EmbeddingCache is a small LRU of text embeddings. Embeddings are
// deterministic for a given model, so entries never go stale; the model name
// is part of the key.
type EmbeddingCache struct {
	mu      sync.Mutex
	entries map[string][]float32
	order   []string
	maxSize int
	hits    uint64
	misses  uint64
}

func NewEmbeddingCache(maxSize int) *EmbeddingCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	return &EmbeddingCache{
		entries: make(map[string][]float32),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
	}
}

func cacheKey(model, text string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil)[:16])
}

func (c *EmbeddingCache) Get(model, text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(model, text)
	vec, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.moveToEnd(key)
	return vec, true
}

func (c *EmbeddingCache) Put(model, text string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(model, text)
	if _, exists := c.entries[key]; exists {
		c.entries[key] = vec
		c.moveToEnd(key)
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = vec
	c.order = append(c.order, key)
}

func (c *EmbeddingCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns hit and miss counts.
func (c *EmbeddingCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *EmbeddingCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *EmbeddingCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *EmbeddingCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// CachedEmbedder answers repeated texts from the cache and forwards the
// rest to the wrapped embedder in a single call.
type CachedEmbedder struct {
	port.Embedder
	cache *EmbeddingCache
}

var _ port.Embedder = (*CachedEmbedder)(nil)

func NewCachedEmbedder(embedder port.Embedder, cache *EmbeddingCache) *CachedEmbedder {
	return &CachedEmbedder{Embedder: embedder, cache: cache}
}

func (e *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	model := e.ModelName()
	out := make([][]float32, len(texts))

	var missing []string
	var missingIdx []int
	for i, t := range texts {
		if vec, ok := e.cache.Get(model, t); ok {
			out[i] = vec
			continue
		}
		missing = append(missing, t)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vecs, err := e.Embedder.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, vec := range vecs {
		out[missingIdx[j]] = vec
		e.cache.Put(model, missing[j], vec)
	}
	return out, nil
}

// Ping forwards to the wrapped embedder when it supports it.
func (e *CachedEmbedder) Ping(ctx context.Context) error {
	if p, ok := e.Embedder.(port.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
