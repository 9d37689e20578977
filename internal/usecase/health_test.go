package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/adapter/memstore"
	"docqa/internal/adapter/store"
	"docqa/internal/domain"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth_Check(t *testing.T) {
	idx := store.NewVectorIndex(store.MetricCosine, "m")
	docs := memstore.NewMemoryStore()
	up := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	status := NewHealthUseCase(up, down, idx, docs, time.Second).Check(context.Background())
	assert.True(t, status.EmbeddingReachable)
	assert.False(t, status.GenerationReachable)
	assert.Contains(t, status.GenerationError, "connection refused")
	assert.False(t, status.IndexPopulated)
	assert.False(t, status.Healthy())

	_, err := idx.Add([]domain.IndexEntry{{Vector: []float32{1, 0}}})
	require.NoError(t, err)
	require.NoError(t, docs.PutDoc(domain.Document{ID: "d1", Hash: "h1"}))

	status = NewHealthUseCase(up, up, idx, docs, time.Second).Check(context.Background())
	assert.True(t, status.Healthy())
	assert.True(t, status.IndexPopulated)
	assert.Equal(t, 1, status.IndexEntries)
	assert.Equal(t, 1, status.Documents)
}

func TestHealth_PingTimeout(t *testing.T) {
	slow := pingFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	up := pingFunc(func(context.Context) error { return nil })

	status := NewHealthUseCase(slow, up, store.NewVectorIndex(store.MetricCosine, "m"), memstore.NewMemoryStore(), 20*time.Millisecond).
		Check(context.Background())
	assert.False(t, status.EmbeddingReachable)
	assert.True(t, status.GenerationReachable)
}
