package config

import (
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates every problem found by Validate.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return "invalid configuration: " + strings.Join(msgs, "; ")
}

// Err returns nil when there are no validation errors.
func (e ValidationErrors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg})
	}

	if c.Chunk.Size <= 0 {
		add("chunk.size", "size must be positive")
	}
	if c.Chunk.Overlap < 0 || c.Chunk.Overlap >= c.Chunk.Size {
		add("chunk.overlap", "overlap must be non-negative and less than size")
	}

	switch c.Index.Metric {
	case "cosine", "inner_product":
	default:
		add("index.metric", fmt.Sprintf("unknown metric %q (want cosine or inner_product)", c.Index.Metric))
	}
	if c.Index.Dir == "" {
		add("index.dir", "index directory is required")
	}

	if c.Retrieve.TopK < 1 {
		add("retrieve.top_k", "top_k must be positive")
	}
	if c.Retrieve.MaxTopK < c.Retrieve.TopK {
		add("retrieve.max_top_k", "max_top_k must be at least top_k")
	}

	if c.Assemble.MaxContextUnits < 1 {
		add("assemble.max_context_units", "max_context_units must be positive")
	}
	switch c.Assemble.Unit {
	case "chars", "words":
	default:
		add("assemble.unit", fmt.Sprintf("unknown unit %q (want chars or words)", c.Assemble.Unit))
	}

	switch c.Embedding.Provider {
	case "ollama", "openai":
		validateURL(&errs, "embedding.base_url", c.Embedding.BaseURL)
	case "hash":
		if c.Embedding.Dimension < 1 {
			add("embedding.dimension", "hash embeddings need a positive dimension")
		}
	default:
		add("embedding.provider", fmt.Sprintf("unknown provider %q", c.Embedding.Provider))
	}
	if c.Embedding.BatchSize < 1 {
		add("embedding.batch_size", "batch_size must be positive")
	}
	validateRetry(&errs, "embedding", c.Embedding.RetryConfig)

	switch c.Generation.Provider {
	case "ollama":
		validateURL(&errs, "generation.base_url", c.Generation.BaseURL)
	case "echo":
	default:
		add("generation.provider", fmt.Sprintf("unknown provider %q", c.Generation.Provider))
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		add("generation.temperature", "temperature must be between 0 and 2")
	}
	validateRetry(&errs, "generation", c.Generation.RetryConfig)

	if c.Progress.MaxSessions < 1 {
		add("progress.max_sessions", "max_sessions must be positive")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		add("logging.level", fmt.Sprintf("unknown level %q", c.Logging.Level))
	}

	return errs
}

func validateURL(errs *ValidationErrors, field, raw string) {
	u, err := url.Parse(raw)
	if raw == "" || err != nil || u.Scheme == "" || u.Host == "" {
		*errs = append(*errs, ValidationError{Field: field, Message: "a valid http(s) URL is required"})
	}
}

func validateRetry(errs *ValidationErrors, prefix string, r RetryConfig) {
	if r.Timeout <= 0 {
		*errs = append(*errs, ValidationError{Field: prefix + ".timeout", Message: "timeout must be positive"})
	}
	if r.MaxRetries < 0 {
		*errs = append(*errs, ValidationError{Field: prefix + ".max_retries", Message: "max_retries must be non-negative"})
	}
	if r.InitialBackoff <= 0 || r.MaxBackoff < r.InitialBackoff {
		*errs = append(*errs, ValidationError{Field: prefix + ".initial_backoff", Message: "backoff must be positive and not exceed max_backoff"})
	}
	if r.RequestsPerSecond < 0 {
		*errs = append(*errs, ValidationError{Field: prefix + ".requests_per_second", Message: "requests_per_second must be non-negative"})
	}
}
