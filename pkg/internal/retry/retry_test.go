package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	llmerrors "github.com/digitallysavvy/go-llm/pkg/provider/errors"
)

func fastConfig(maxRetries int) Config {
	return Config{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	}
}

func TestDo_SucceedsAfterRetryableFailures(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(3), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return llmerrors.FromStatus(500, nil)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDo_NonRetryableFailsImmediately(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(3), func(ctx context.Context) error {
		attempts++
		return llmerrors.FromStatus(400, nil)
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDo_ExhaustsRetries(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(2), func(ctx context.Context) error {
		attempts++
		return llmerrors.FromStatus(503, nil)
	})
	require.Error(t, err)
	assert.Equal(t, 3, attempts) // first try + two retries
}

func TestDo_RateLimitedIsRetryable(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(1), func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			return llmerrors.FromStatus(429, nil)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestDo_HonorsRetryAfterHint(t *testing.T) {
	hint := 30 * time.Millisecond
	attempts := 0
	start := time.Now()
	err := Do(context.Background(), fastConfig(1), func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			rateErr := llmerrors.FromStatus(429, nil)
			rateErr.RetryAfter = hint
			return rateErr
		}
		return nil
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), hint)
}

func TestDo_ContextCancellationStopsWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, Config{MaxRetries: 3, InitialDelay: time.Hour}, func(ctx context.Context) error {
		return llmerrors.FromStatus(500, nil)
	})
	require.Error(t, err)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 7*time.Second, ParseRetryAfter("7"))
	assert.Zero(t, ParseRetryAfter(""))
	assert.Zero(t, ParseRetryAfter("soon"))
	assert.Zero(t, ParseRetryAfter("-3"))
}
