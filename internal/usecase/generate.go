package usecase

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"text/template"

	"docqa/internal/domain"
	"docqa/internal/port"
)

//go:embed templates/answer_prompt.txt
var answerPrompt string

var answerTemplate = template.Must(template.New("answer").Parse(answerPrompt))

// NoRelevantInformationAnswer is returned without consulting the model when
// no passage made it into the context.
const NoRelevantInformationAnswer = "I could not find any relevant information in the provided documents to answer this question."

// PromptData is the input of the answer template.
type PromptData struct {
	Question string
	Context  string
}

// Generator turns a question and its context block into an answer.
type Generator struct {
	llm port.LLM
}

func NewGenerator(llm port.LLM) *Generator {
	return &Generator{llm: llm}
}

// Prompt renders the prompt sent to the model.
func Prompt(question string, block domain.ContextBlock) (string, error) {
	var buf bytes.Buffer
	err := answerTemplate.Execute(&buf, PromptData{
		Question: question,
		Context:  block.Render(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}

func (g *Generator) Generate(ctx context.Context, question string, block domain.ContextBlock) (domain.AnswerResponse, error) {
	resp := domain.AnswerResponse{
		Question:  question,
		Citations: block.Citations(),
		Model:     g.llm.ModelName(),
	}
	if len(block.Passages) > 0 {
		resp.TopScore = block.Passages[0].Citation.Score
	}

	if block.Empty() {
		resp.Answer = NoRelevantInformationAnswer
		resp.Status = domain.StatusNoRelevantInformation
		return resp, nil
	}

	prompt, err := Prompt(question, block)
	if err != nil {
		return domain.AnswerResponse{}, err
	}

	slog.Debug("generating answer", "model", resp.Model, "passages", len(block.Passages), "units", block.UsedUnits)
	answer, err := g.llm.Generate(ctx, prompt)
	if err != nil {
		return domain.AnswerResponse{}, fmt.Errorf("failed to generate answer: %w", err)
	}

	resp.Answer = answer
	resp.Status = domain.StatusAnswered
	return resp, nil
}
