package port

import "context"

// Extractor turns uploaded bytes into plain text.
type Extractor interface {
	Extract(ctx context.Context, filename string, data []byte) (string, error)
}

// ProgressRecorder receives pipeline steps for a session.
type ProgressRecorder interface {
	Step(sessionID, step, status, details string)
}
