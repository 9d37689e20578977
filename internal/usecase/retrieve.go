package usecase

import (
	"context"
	"fmt"
	"strings"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// RetrieveUseCase bounds k and drops matches under the score floor.
type RetrieveUseCase struct {
	retriever port.Retriever
	defaultK  int
	maxK      int
	minScore  float64 // 0 keeps everything
}

func NewRetrieveUseCase(retriever port.Retriever, defaultK, maxK int, minScore float64) *RetrieveUseCase {
	if defaultK < 1 {
		defaultK = 5
	}
	return &RetrieveUseCase{
		retriever: retriever,
		defaultK:  defaultK,
		maxK:      max(maxK, defaultK),
		minScore:  minScore,
	}
}

// Retrieve returns up to k chunks for the question, best first. k ≤ 0 selects
// the configured default and k above the ceiling is lowered to it.
func (u *RetrieveUseCase) Retrieve(ctx context.Context, question string, k int) ([]domain.ScoredChunk, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrEmptyInput)
	}

	matches, err := u.retriever.Search(ctx, question, u.clampK(k))
	if err != nil {
		return nil, err
	}
	return aboveScore(matches, u.minScore), nil
}

func (u *RetrieveUseCase) clampK(k int) int {
	if k <= 0 {
		return u.defaultK
	}
	return min(k, u.maxK)
}

// aboveScore keeps matches scoring at least floor, preserving order.
func aboveScore(matches []domain.ScoredChunk, floor float64) []domain.ScoredChunk {
	if floor <= 0 {
		return matches
	}
	kept := make([]domain.ScoredChunk, 0, len(matches))
	for _, m := range matches {
		if m.Score >= floor {
			kept = append(kept, m)
		}
	}
	return kept
}
