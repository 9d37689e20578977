package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"docqa/internal/domain"
	"docqa/internal/port"
	"docqa/internal/progress"
)

// EmptyIndexAnswer is returned when nothing has been ingested yet.
const EmptyIndexAnswer = "I don't have any relevant documents to answer this question. Please upload some documents first."

// QueryUseCase runs the query pipeline: retrieve, assemble, generate.
type QueryUseCase struct {
	retrieve  *RetrieveUseCase
	assembler *ContextAssembler
	generator *Generator
	maxUnits  int
	recorder  port.ProgressRecorder
}

// NewQueryUseCase creates a new query use case.
func NewQueryUseCase(
	retrieve *RetrieveUseCase,
	assembler *ContextAssembler,
	generator *Generator,
	maxUnits int,
) *QueryUseCase {
	return &QueryUseCase{
		retrieve:  retrieve,
		assembler: assembler,
		generator: generator,
		maxUnits:  maxUnits,
	}
}

// SetRecorder reports steps to rec for requests carrying a progress session.
func (u *QueryUseCase) SetRecorder(rec port.ProgressRecorder) {
	u.recorder = rec
}

func (u *QueryUseCase) step(ctx context.Context, step, status, details string) {
	if u.recorder == nil {
		return
	}
	u.recorder.Step(progress.SessionID(ctx), step, status, details)
}

// Context retrieves and assembles the context block for a question without
// calling the model.
func (u *QueryUseCase) Context(ctx context.Context, question string, k int) (domain.ContextBlock, error) {
	u.step(ctx, "Searching for relevant documents", progress.StatusInfo, "")
	results, err := u.retrieve.Retrieve(ctx, question, k)
	if err != nil {
		return domain.ContextBlock{}, err
	}
	if len(results) == 0 {
		u.step(ctx, "No relevant documents found", progress.StatusWarning, "")
	} else {
		u.step(ctx, fmt.Sprintf("Found %d relevant chunks", len(results)), progress.StatusSuccess, "")
	}
	return u.assembler.Assemble(results, u.maxUnits)
}

// Answer runs the whole pipeline. An empty index is a normal outcome with
// status empty_index, not an error.
func (u *QueryUseCase) Answer(ctx context.Context, question string, k int) (domain.AnswerResponse, error) {
	question = strings.TrimSpace(question)
	start := time.Now()

	block, err := u.Context(ctx, question, k)
	if errors.Is(err, domain.ErrEmptyIndex) {
		u.step(ctx, "Index is empty", progress.StatusWarning, "")
		return domain.AnswerResponse{
			Question:  question,
			Answer:    EmptyIndexAnswer,
			Status:    domain.StatusEmptyIndex,
			Citations: []domain.Citation{},
		}, nil
	}
	if err != nil {
		u.step(ctx, "Query failed", progress.StatusError, err.Error())
		return domain.AnswerResponse{}, err
	}

	if !block.Empty() {
		u.step(ctx, "Generating answer", progress.StatusInfo, fmt.Sprintf("%d passages", len(block.Passages)))
	}
	resp, err := u.generator.Generate(ctx, question, block)
	if err != nil {
		u.step(ctx, "Generation failed", progress.StatusError, err.Error())
		return domain.AnswerResponse{}, err
	}

	u.step(ctx, "Answer ready", progress.StatusSuccess, "")
	slog.Info("query answered",
		"status", resp.Status,
		"citations", len(resp.Citations),
		"top_score", resp.TopScore,
		"truncated", block.Truncated,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return resp, nil
}

// Prompt renders the prompt that Answer would send for question.
func (u *QueryUseCase) Prompt(ctx context.Context, question string, k int) (string, error) {
	block, err := u.Context(ctx, question, k)
	if err != nil {
		return "", err
	}
	return Prompt(strings.TrimSpace(question), block)
}
