package embedding

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/llms/ollama"

	"docqa/internal/adapter/ollamaapi"
	"docqa/internal/port"
)

var (
	_ port.Embedder = (*OllamaEmbedder)(nil)
	_ port.Pinger   = (*OllamaEmbedder)(nil)
)

// OllamaEmbedder embeds through a local Ollama server using langchaingo.
type OllamaEmbedder struct {
	llm       *ollama.LLM
	model     string
	baseURL   string
	dimension int
	client    *http.Client
}

// NewOllamaEmbedder creates an embedder for model served at baseURL.
func NewOllamaEmbedder(baseURL, model string, dimension int) (*OllamaEmbedder, error) {
	baseURL = ollamaapi.BaseURL(baseURL)

	llm, err := ollama.New(ollama.WithModel(model), ollama.WithServerURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}

	if dimension == 0 {
		switch model {
		case "nomic-embed-text":
			dimension = 768
		case "mxbai-embed-large":
			dimension = 1024
		case "all-minilm":
			dimension = 384
		}
	}

	return &OllamaEmbedder{
		llm:       llm,
		model:     model,
		baseURL:   baseURL,
		dimension: dimension,
		client:    &http.Client{},
	}, nil
}

func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.llm.CreateEmbedding(ctx, texts)
}

func (e *OllamaEmbedder) Dimension() int {
	return e.dimension
}

func (e *OllamaEmbedder) ModelName() string {
	return e.model
}

// Ping checks the server is up by listing local models.
func (e *OllamaEmbedder) Ping(ctx context.Context) error {
	return ollamaapi.Ping(ctx, e.client, e.baseURL)
}
