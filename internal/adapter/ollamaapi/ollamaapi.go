// Package ollamaapi holds the raw HTTP calls made to an Ollama server
// outside langchaingo.
package ollamaapi

import (
	"context"
	"io"
	"net/http"
	"strings"

	"docqa/internal/adapter/retry"
)

const DefaultURL = "http://localhost:11434"

// BaseURL returns raw without a trailing slash, or DefaultURL when empty.
func BaseURL(raw string) string {
	if raw == "" {
		return DefaultURL
	}
	return strings.TrimRight(raw, "/")
}

// Ping lists local models; a 200 means the server is up. Other statuses
// come back as *retry.StatusError.
func Ping(ctx context.Context, client *http.Client, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		text := strings.TrimSpace(string(body))
		if len(text) > 200 {
			text = text[:200] + "..."
		}
		return &retry.StatusError{Code: resp.StatusCode, Body: text}
	}
	return nil
}
