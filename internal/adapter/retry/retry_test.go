package retry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(retries int) Policy {
	return Policy{
		Timeout:        200 * time.Millisecond,
		MaxRetries:     retries,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	r := NewRunner("test", fastPolicy(3))
	var calls int32

	err := r.Do(context.Background(), func(ctx context.Context) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls)
}

func TestDo_ReturnsLastErrorWhenExhausted(t *testing.T) {
	r := NewRunner("test", fastPolicy(2))
	var calls int32

	err := r.Do(context.Background(), func(ctx context.Context) error {
		n := atomic.AddInt32(&calls, 1)
		return errors.New("failure " + string(rune('0'+n)))
	})

	require.Error(t, err)
	assert.Equal(t, int32(3), calls, "one attempt plus two retries")
	assert.Equal(t, "failure 3", err.Error())
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	r := NewRunner("test", fastPolicy(5))
	sentinel := errors.New("bad request")
	var calls int32

	err := r.Do(context.Background(), func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return Permanent(sentinel)
	})

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, int32(1), calls)
}

func TestDo_AttemptDeadline(t *testing.T) {
	p := fastPolicy(1)
	p.Timeout = 10 * time.Millisecond
	r := NewRunner("test", p)
	var timedOut int32

	err := r.Do(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		if TimedOut(ctx, ctx.Err()) {
			atomic.AddInt32(&timedOut, 1)
		}
		return ctx.Err()
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(2), timedOut)
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(errors.New("dial tcp: refused")))
	assert.True(t, Retryable(&StatusError{Code: 503}))
	assert.True(t, Retryable(&StatusError{Code: 429}))
	assert.False(t, Retryable(&StatusError{Code: 400}))
	assert.False(t, Retryable(&StatusError{Code: 404}))
}

func TestRetryable_OllamaMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"model not pulled", errors.New(`404 Not Found: model "llama3.2:3b" not found, try pulling it first`), false},
		{"bare message", errors.New(`model "nomic-embed-text" not found, try pulling it first`), false},
		{"wrapped status line", fmt.Errorf("embed: %w", errors.New("400 Bad Request: invalid input")), false},
		{"embedding unsupported", errors.New(`"llama3.2:3b" does not support embeddings`), false},
		{"rate limited", errors.New("429 Too Many Requests: slow down"), true},
		{"server error", errors.New("500 Internal Server Error: out of memory"), true},
		{"no status", errors.New("unexpected EOF"), true},
		{"number in text", errors.New("read 404 bytes: connection reset"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}
