package usecase

import (
	"fmt"
	"sort"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// ContextAssembler packs retrieval results into a bounded context block.
type ContextAssembler struct {
	counter port.UnitCounter
}

func NewContextAssembler(counter port.UnitCounter) *ContextAssembler {
	return &ContextAssembler{counter: counter}
}

// Unit names the budget unit, "chars" or "words".
func (a *ContextAssembler) Unit() string {
	return a.counter.Name()
}

// Assemble takes passages best first until the next one would overflow
// maxUnits. A first passage that is too large on its own is truncated and
// sent alone.
func (a *ContextAssembler) Assemble(results []domain.ScoredChunk, maxUnits int) (domain.ContextBlock, error) {
	if maxUnits <= 0 {
		return domain.ContextBlock{}, fmt.Errorf("%w: context budget must be positive, got %d", domain.ErrInvalidConfig, maxUnits)
	}

	block := domain.ContextBlock{
		Passages:    []domain.Passage{},
		BudgetUnits: maxUnits,
	}
	if len(results) == 0 {
		return block, nil
	}

	ranked := make([]domain.ScoredChunk, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].EntryID < ranked[j].EntryID
	})

	for i, r := range ranked {
		text := r.Chunk.Text
		units := a.counter.Count(text)

		if block.UsedUnits+units > maxUnits {
			if i > 0 {
				break
			}
			text = a.counter.Truncate(text, maxUnits)
			units = a.counter.Count(text)
			block.Truncated = true
		}

		block.Passages = append(block.Passages, domain.Passage{
			Citation: domain.Citation{
				Ref:        i + 1,
				DocumentID: r.Chunk.DocumentID,
				Source:     r.Chunk.Source,
				Position:   r.Chunk.Position,
				Start:      r.Chunk.Start,
				End:        r.Chunk.End,
				Score:      r.Score,
			},
			Text: text,
		})
		block.UsedUnits += units

		if block.Truncated {
			break
		}
	}

	return block, nil
}
