package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"docqa/internal/adapter/retry"
	"docqa/internal/port"
)

var (
	_ port.Embedder = (*OpenAIEmbedder)(nil)
	_ port.Pinger   = (*OpenAIEmbedder)(nil)
)

const defaultOpenAIURL = "https://api.openai.com/v1"

// knownDimensions covers the hosted models; anything else learns its
// dimension from the first response.
var knownDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIEmbedder talks to any OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	endpoint  string
	apiKey    string
	model     string
	dimension int
	http      *http.Client
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedItem struct {
	Index     int       `json:"index"`
	Embedding []float32 `json:"embedding"`
}

type embedResponse struct {
	Data  []embedItem `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenAIEmbedder reads the API key from apiKeyEnv. The key may be empty
// for self-hosted servers, but not for api.openai.com.
func NewOpenAIEmbedder(baseURL, apiKeyEnv, model string, dimension int) (*OpenAIEmbedder, error) {
	if baseURL == "" {
		baseURL = defaultOpenAIURL
	}
	key := os.Getenv(apiKeyEnv)
	if key == "" && strings.Contains(baseURL, "api.openai.com") {
		return nil, fmt.Errorf("environment variable %s holds no API key", apiKeyEnv)
	}
	if dimension == 0 {
		dimension = knownDimensions[model]
	}
	return &OpenAIEmbedder{
		endpoint:  strings.TrimRight(baseURL, "/"),
		apiKey:    key,
		model:     model,
		dimension: dimension,
		http:      &http.Client{},
	}, nil
}

// Embed sends all texts in a single request. Client does the batching.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	payload, err := json.Marshal(embedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, err
	}

	body, err := e.call(ctx, http.MethodPost, "/embeddings", payload)
	if err != nil {
		return nil, err
	}

	var out embedResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode embeddings (body: %s): %w", preview(body), err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("embeddings API: %s", out.Error.Message)
	}

	// Items carry their input position; servers need not answer in order.
	vecs := make([][]float32, len(texts))
	for _, item := range out.Data {
		if item.Index < 0 || item.Index >= len(vecs) {
			return nil, fmt.Errorf("embedding index %d outside request of %d", item.Index, len(vecs))
		}
		vecs[item.Index] = item.Embedding
	}
	for i := range vecs {
		if len(vecs[i]) == 0 {
			return nil, fmt.Errorf("no embedding returned for input %d", i)
		}
	}
	return vecs, nil
}

func (e *OpenAIEmbedder) Dimension() int { return e.dimension }

func (e *OpenAIEmbedder) ModelName() string { return e.model }

// Ping lists models, which compatible servers answer at no cost.
func (e *OpenAIEmbedder) Ping(ctx context.Context) error {
	_, err := e.call(ctx, http.MethodGet, "/models", nil)
	return err
}

// call performs one request and returns the body of a 200 response. Other
// statuses come back as *retry.StatusError so the client can decide on
// retrying.
func (e *OpenAIEmbedder) call(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, e.endpoint+path, reader)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &retry.StatusError{Code: resp.StatusCode, Body: preview(body)}
	}
	return body, nil
}

func preview(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit])
	}
	return string(body)
}
