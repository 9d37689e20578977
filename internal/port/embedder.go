package port

import "context"

// Embedder maps texts to vectors, one per input and in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the configured vector size, or 0 when the provider
	// reports it only through its responses.
	Dimension() int

	ModelName() string
}

// Pinger reports whether an external service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
