package usecase

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// HealthUseCase reports on external services and the index.
type HealthUseCase struct {
	embedder port.Pinger
	llm      port.Pinger
	index    port.VectorIndex
	docs     port.DocumentStore
	timeout  time.Duration
}

func NewHealthUseCase(embedder, llm port.Pinger, index port.VectorIndex, docs port.DocumentStore, timeout time.Duration) *HealthUseCase {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthUseCase{
		embedder: embedder,
		llm:      llm,
		index:    index,
		docs:     docs,
		timeout:  timeout,
	}
}

// Check pings both services concurrently. Failures are reported in the
// status, never returned.
func (u *HealthUseCase) Check(ctx context.Context) domain.HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	var status domain.HealthStatus
	var g errgroup.Group
	g.Go(func() error {
		if err := u.embedder.Ping(ctx); err != nil {
			status.EmbeddingError = err.Error()
			return nil
		}
		status.EmbeddingReachable = true
		return nil
	})
	g.Go(func() error {
		if err := u.llm.Ping(ctx); err != nil {
			status.GenerationError = err.Error()
			return nil
		}
		status.GenerationReachable = true
		return nil
	})
	_ = g.Wait()

	status.IndexEntries = u.index.Len()
	status.IndexPopulated = status.IndexEntries > 0
	if n, err := u.docs.Count(); err == nil {
		status.Documents = n
	}
	return status
}
