package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func failing(_ context.Context) (int, error) { return 0, errors.New("down") }
func healthy(_ context.Context) (int, error) { return 1, nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker(2, time.Minute)
	ctx := context.Background()

	_, _ = Call(ctx, b, failing)
	assert.False(t, b.Open())
	_, _ = Call(ctx, b, failing)
	assert.True(t, b.Open())

	calls := 0
	_, err := Call(ctx, b, func(_ context.Context) (int, error) {
		calls++
		return 1, nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.Equal(t, 0, calls)
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b := NewBreaker(2, time.Minute)
	ctx := context.Background()

	_, _ = Call(ctx, b, failing)
	_, err := Call(ctx, b, healthy)
	require.NoError(t, err)
	_, _ = Call(ctx, b, failing)
	assert.False(t, b.Open())
}

func TestBreaker_ProbeAfterCooldown(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker(1, time.Minute)
	b.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = Call(ctx, b, failing)
	require.True(t, b.Open())

	now = now.Add(2 * time.Minute)
	assert.False(t, b.Open())

	// A failed probe reopens immediately.
	_, _ = Call(ctx, b, failing)
	assert.True(t, b.Open())

	now = now.Add(2 * time.Minute)
	v, err := Call(ctx, b, healthy)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.False(t, b.Open())
}

func TestBreaker_CancellationDoesNotTrip(t *testing.T) {
	b := NewBreaker(1, time.Minute)
	_, _ = Call(context.Background(), b, func(_ context.Context) (int, error) {
		return 0, context.Canceled
	})
	assert.False(t, b.Open())
}

func TestBreaker_NeutralNeitherCountsNorResets(t *testing.T) {
	b := NewBreaker(2, time.Minute)
	ctx := context.Background()
	neutral := func(_ context.Context) (int, error) {
		return 0, Neutral(errors.New("not configured"))
	}

	_, _ = Call(ctx, b, failing)
	_, err := Call(ctx, b, neutral)
	require.Error(t, err)
	assert.False(t, b.Open())
	_, _ = Call(ctx, b, failing)
	assert.True(t, b.Open())
}

func TestBreaker_NeutralProbeKeepsBreakerOpen(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := NewBreaker(2, time.Minute)
	b.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = Call(ctx, b, failing)
	_, _ = Call(ctx, b, failing)
	require.True(t, b.Open())
	now = now.Add(2 * time.Minute)
	_, _ = Call(ctx, b, func(_ context.Context) (int, error) {
		return 0, Neutral(errors.New("not configured"))
	})

	// Still half-open: the next real failure reopens at once.
	_, _ = Call(ctx, b, failing)
	assert.True(t, b.Open())
}
