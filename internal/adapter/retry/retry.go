// Package retry runs calls to external services with a per-attempt
// deadline, a rate limit and bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

// Policy bounds how an external call is attempted.
type Policy struct {
	Timeout        time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// RequestsPerSecond throttles attempts; 0 means unlimited.
	RequestsPerSecond float64
}

// Runner applies a Policy. It is safe for concurrent use.
type Runner struct {
	name    string
	policy  Policy
	limiter *rate.Limiter
}

// NewRunner creates a runner; name only appears in logs.
func NewRunner(name string, p Policy) *Runner {
	limit := rate.Inf
	burst := 1
	if p.RequestsPerSecond > 0 {
		limit = rate.Limit(p.RequestsPerSecond)
		burst = int(p.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}
	return &Runner{
		name:    name,
		policy:  p,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do calls op until it succeeds, returns a permanent error, or the retry
// budget runs out. Each attempt gets its own context bounded by
// Policy.Timeout. The error of the last attempt is returned, so callers see
// the real failure rather than a generic retry error.
func (r *Runner) Do(ctx context.Context, op func(ctx context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.policy.InitialBackoff
	b.MaxInterval = r.policy.MaxBackoff
	b.MaxElapsedTime = 0

	var bo backoff.BackOff = backoff.WithMaxRetries(b, uint64(max(r.policy.MaxRetries, 0)))
	bo = backoff.WithContext(bo, ctx)

	var lastErr error
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		if err := r.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		callCtx, cancel := context.WithTimeout(ctx, r.policy.Timeout)
		defer cancel()

		lastErr = op(callCtx)
		if lastErr != nil && !isPermanent(lastErr) {
			slog.Debug("external call failed", "service", r.name, "attempt", attempt, "error", lastErr)
		}
		return lastErr
	}, bo)

	if err == nil {
		return nil
	}
	if lastErr != nil {
		var perm *backoff.PermanentError
		if errors.As(lastErr, &perm) {
			return perm.Err
		}
		if attempt > 1 {
			slog.Warn("external call gave up", "service", r.name, "attempts", attempt, "error", lastErr)
		}
		return lastErr
	}
	return err
}

func isPermanent(err error) bool {
	var perm *backoff.PermanentError
	return errors.As(err, &perm)
}

// TimedOut reports whether an attempt failed because its own deadline expired.
func TimedOut(callCtx context.Context, err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded)
}

// StatusError is a non-2xx HTTP response from an external service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("service returned status %d: %s", e.Code, e.Body)
}

// Clients that do not expose a typed status, langchaingo's Ollama client
// among them, put the HTTP status line at the start of the message, e.g.
// `404 Not Found: model "x" not found, try pulling it first`.
var statusLine = regexp.MustCompile(`(?:^|: )([1-5][0-9]{2}) [A-Z]`)

// finalMessages mark responses no retry can fix.
var finalMessages = []string{
	"try pulling it first",
	"model not found",
	"does not support",
}

// Retryable reports whether err may succeed on a later attempt. Client
// errors other than 429 are final, as are known permanent server messages.
func Retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return retryableStatus(se.Code)
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	for _, m := range finalMessages {
		if strings.Contains(lower, m) {
			return false
		}
	}
	if m := statusLine.FindStringSubmatch(msg); m != nil {
		code, _ := strconv.Atoi(m[1])
		return retryableStatus(code)
	}
	return true
}

func retryableStatus(code int) bool {
	return code < 400 || code == http.StatusTooManyRequests || code >= 500
}
