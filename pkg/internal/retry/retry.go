// Package retry implements jittered exponential backoff for idempotent
// provider calls. Streaming requests are never retried here; mid-body
// failures surface on the chunk sequence instead.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	llmerrors "github.com/digitallysavvy/go-llm/pkg/provider/errors"
)

// Config controls the backoff schedule.
type Config struct {
	// MaxRetries is the number of attempts after the first.
	MaxRetries int

	// InitialDelay is the base delay (default 1s).
	InitialDelay time.Duration

	// MaxDelay caps the computed delay (default 30s).
	MaxDelay time.Duration
}

// DefaultConfig returns the default schedule. Do takes InitialDelay and
// MaxDelay from it when a Config leaves them zero; MaxRetries is never
// defaulted, so a zero MaxRetries means a single attempt.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
	}
}

// Func is the retried operation.
type Func func(ctx context.Context) error

// Do runs fn with up to cfg.MaxRetries retries. Only canonical retryable
// errors (transport failures, 429, 5xx) are retried; a 429 carrying a
// Retry-After hint waits at least that long. The hint still counts against
// MaxRetries.
func Do(ctx context.Context, cfg Config, fn Func) error {
	if cfg.InitialDelay == 0 {
		cfg.InitialDelay = DefaultConfig().InitialDelay
	}
	if cfg.MaxDelay == 0 {
		cfg.MaxDelay = DefaultConfig().MaxDelay
	}

	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt >= cfg.MaxRetries || !llmerrors.IsRetryable(lastErr) {
			return lastErr
		}

		delay := backoffDelay(attempt, cfg)
		if hint := retryAfterHint(lastErr); hint > delay {
			delay = hint
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}
}

// backoffDelay computes initial * 2^attempt with up to 25% jitter, capped
// at MaxDelay.
func backoffDelay(attempt int, cfg Config) time.Duration {
	delay := float64(cfg.InitialDelay) * math.Pow(2, float64(attempt))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	delay += delay * 0.25 * rand.Float64()
	return time.Duration(delay)
}

// retryAfterHint returns the Retry-After hint carried by a 429 error. The
// HTTP client parses the response header into Error.RetryAfter.
func retryAfterHint(err error) time.Duration {
	var e *llmerrors.Error
	if !errors.As(err, &e) || e.Status != http.StatusTooManyRequests {
		return 0
	}
	return e.RetryAfter
}

// ParseRetryAfter parses a Retry-After header value in seconds form.
// HTTP-date forms are ignored; rate limits in practice use seconds.
func ParseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	secs, err := strconv.Atoi(value)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
