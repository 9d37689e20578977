package llm

import (
	"context"
	"strings"

	"docqa/internal/port"
)

var _ port.LLM = (*EchoLLM)(nil)

// EchoLLM answers with the first passage of the prompt's context. It needs
// no model server and is used for offline runs and tests.
type EchoLLM struct{}

func NewEchoLLM() *EchoLLM {
	return &EchoLLM{}
}

func (EchoLLM) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	start := strings.Index(prompt, "\n[1] ")
	if start < 0 {
		return "I don't know based on the provided documents.", nil
	}
	rest := prompt[start+1:]
	if end := strings.Index(rest, "\n\n"); end >= 0 {
		rest = rest[:end]
	}
	lines := strings.SplitN(rest, "\n", 2)
	if len(lines) < 2 {
		return "I don't know based on the provided documents.", nil
	}
	return strings.TrimSpace(lines[1]) + " [1]", nil
}

func (EchoLLM) ModelName() string {
	return "echo"
}
