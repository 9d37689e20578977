package port

import "context"

// LLM represents a language model for text generation.
type LLM interface {
	// Generate returns the completion for a fully rendered prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
