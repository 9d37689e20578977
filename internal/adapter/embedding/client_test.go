package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/adapter/retry"
	"docqa/internal/domain"
)

func testPolicy() retry.Policy {
	return retry.Policy{
		Timeout:        time.Second,
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}
}

// scriptedProvider fails the first failures calls, then echoes text lengths.
type scriptedProvider struct {
	mu       sync.Mutex
	failures int
	err      error
	calls    int
	batches  [][]string
}

func (p *scriptedProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.failures > 0 {
		p.failures--
		return nil, p.err
	}
	p.batches = append(p.batches, texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func (p *scriptedProvider) Dimension() int    { return 2 }
func (p *scriptedProvider) ModelName() string { return "scripted" }

func TestClient_BatchesPreserveOrder(t *testing.T) {
	p := &scriptedProvider{}
	c := NewClient(p, testPolicy(), 2)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := c.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))

	for i, v := range vecs {
		assert.Equal(t, float32(len(texts[i])), v[0])
	}
	assert.Len(t, p.batches, 3)
}

func TestClient_RetriesTransientFailure(t *testing.T) {
	p := &scriptedProvider{failures: 2, err: errors.New("connection refused")}
	c := NewClient(p, testPolicy(), 10)

	vecs, err := c.Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)
	assert.Len(t, vecs, 1)
	assert.Equal(t, 3, p.calls)
}

func TestClient_ExhaustedRetriesSurfaceUnavailable(t *testing.T) {
	p := &scriptedProvider{failures: 10, err: errors.New("connection refused")}
	c := NewClient(p, testPolicy(), 10)

	_, err := c.Embed(context.Background(), []string{"hello"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 3, p.calls)
}

func TestClient_ClientErrorIsNotRetried(t *testing.T) {
	p := &scriptedProvider{failures: 10, err: &retry.StatusError{Code: 400, Body: "bad input"}}
	c := NewClient(p, testPolicy(), 10)

	_, err := c.Embed(context.Background(), []string{"hello"})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Equal(t, 1, p.calls)
}

func TestClient_MissingModelIsNotRetried(t *testing.T) {
	p := &scriptedProvider{failures: 10, err: errors.New(`model "nomic-embed-text" not found, try pulling it first`)}
	c := NewClient(p, testPolicy(), 10)

	_, err := c.Embed(context.Background(), []string{"hello"})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Equal(t, 1, p.calls)
}

type slowProvider struct{ scriptedProvider }

func (p *slowProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestClient_Timeout(t *testing.T) {
	policy := testPolicy()
	policy.Timeout = 5 * time.Millisecond
	policy.MaxRetries = 1
	c := NewClient(&slowProvider{}, policy, 10)

	_, err := c.Embed(context.Background(), []string{"hello"})
	assert.ErrorIs(t, err, domain.ErrEmbeddingTimeout)
}

type shortProvider struct{ scriptedProvider }

func (p *shortProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	return [][]float32{{1, 2}}, nil
}

func TestClient_CountMismatch(t *testing.T) {
	c := NewClient(&shortProvider{}, testPolicy(), 10)
	_, err := c.Embed(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestHashEmbedder_Idempotent(t *testing.T) {
	e := NewHashEmbedder(64)
	a, err := e.Embed(context.Background(), []string{"the quick brown fox", "the quick brown fox"})
	require.NoError(t, err)
	assert.Equal(t, a[0], a[1])

	b, err := e.Embed(context.Background(), []string{"the quick brown fox"})
	require.NoError(t, err)
	assert.Equal(t, a[0], b[0])
	assert.Len(t, b[0], 64)
}

func TestHashEmbedder_SimilarTextsScoreHigher(t *testing.T) {
	e := NewHashEmbedder(256)
	vecs, err := e.Embed(context.Background(), []string{
		"invoice payment terms net thirty days",
		"payment terms for the invoice",
		"kubernetes pod scheduling",
	})
	require.NoError(t, err)

	dot := func(a, b []float32) float64 {
		var s float64
		for i := range a {
			s += float64(a[i]) * float64(b[i])
		}
		return s
	}
	assert.Greater(t, dot(vecs[0], vecs[1]), dot(vecs[0], vecs[2]))
}

func TestOpenAIEmbedder_RestoresResponseOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)

		// Answer in reverse order.
		resp := embedResponse{}
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, embedItem{Index: i, Embedding: []float32{float32(i)}})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder(srv.URL, "", "test-model", 1)
	require.NoError(t, err)

	vecs, err := e.Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0}, {1}, {2}}, vecs)
}

func TestOpenAIEmbedder_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder(srv.URL, "", "m", 1)
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), []string{"a"})
	var se *retry.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
}

func TestOllamaEmbedder_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		http.NotFound(w, r)
	}))

	e, err := NewOllamaEmbedder(srv.URL, "nomic-embed-text", 0)
	require.NoError(t, err)
	assert.Equal(t, 768, e.Dimension())

	c := NewClient(e, testPolicy(), 8)
	assert.NoError(t, c.Ping(context.Background()))

	srv.Close()
	assert.ErrorIs(t, c.Ping(context.Background()), domain.ErrEmbeddingUnavailable)
}
