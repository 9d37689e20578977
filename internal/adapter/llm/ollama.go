// Package llm adapts generative models to port.LLM.
package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"docqa/internal/adapter/ollamaapi"
	"docqa/internal/port"
)

var (
	_ port.LLM    = (*OllamaLLM)(nil)
	_ port.Pinger = (*OllamaLLM)(nil)
)

// OllamaLLM generates completions from a local Ollama server.
type OllamaLLM struct {
	llm         *ollama.LLM
	model       string
	baseURL     string
	temperature float64
	maxTokens   int
	client      *http.Client
}

func NewOllamaLLM(baseURL, model string, temperature float64, maxTokens int) (*OllamaLLM, error) {
	baseURL = ollamaapi.BaseURL(baseURL)

	llm, err := ollama.New(ollama.WithModel(model), ollama.WithServerURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	return &OllamaLLM{
		llm:         llm,
		model:       model,
		baseURL:     baseURL,
		temperature: temperature,
		maxTokens:   maxTokens,
		client:      &http.Client{},
	}, nil
}

func (o *OllamaLLM) Generate(ctx context.Context, prompt string) (string, error) {
	opts := []llms.CallOption{llms.WithTemperature(o.temperature)}
	if o.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(o.maxTokens))
	}
	return llms.GenerateFromSinglePrompt(ctx, o.llm, prompt, opts...)
}

func (o *OllamaLLM) ModelName() string {
	return o.model
}

func (o *OllamaLLM) Ping(ctx context.Context) error {
	return ollamaapi.Ping(ctx, o.client, o.baseURL)
}
