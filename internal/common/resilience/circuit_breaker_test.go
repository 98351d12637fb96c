package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlibekovAA/defis-users/internal/common/clock"
	commonerrors "github.com/AlibekovAA/defis-users/internal/common/errors"
	"github.com/AlibekovAA/defis-users/internal/observability/metrics"
)

var (
	errBoom     = errors.New("boom")
	errExpected = errors.New("not found")
)

func newTestBreaker(clk clock.Clock) *CircuitBreaker {
	return NewCircuitBreaker(CircuitBreakerConfig{
		Threshold:  2,
		Timeout:    time.Second,
		ResetAfter: 10 * time.Second,
		Name:       "test",
		IsFailure:  func(err error) bool { return !errors.Is(err, errExpected) },
		Clock:      clk,
	})
}

func failing(err error) func(context.Context) error {
	return func(context.Context) error { return err }
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := newTestBreaker(clock.NewMockClock(time.Now()))
	ctx := context.Background()

	assert.ErrorIs(t, cb.Call(ctx, failing(errBoom)), errBoom)
	assert.ErrorIs(t, cb.Call(ctx, failing(errBoom)), errBoom)

	called := false
	err := cb.Call(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, commonerrors.ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_IgnoresExpectedErrors(t *testing.T) {
	cb := newTestBreaker(clock.NewMockClock(time.Now()))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, cb.Call(ctx, failing(errExpected)), errExpected)
	}
	assert.False(t, cb.IsOpen())
}

func TestCircuitBreaker_ResetsAfterWindow(t *testing.T) {
	clk := clock.NewMockClock(time.Now())
	cb := newTestBreaker(clk)
	ctx := context.Background()

	_ = cb.Call(ctx, failing(errBoom))
	_ = cb.Call(ctx, failing(errBoom))
	require.True(t, cb.IsOpen())

	clk.Advance(11 * time.Second)
	assert.False(t, cb.IsOpen())
	assert.NoError(t, cb.Call(ctx, failing(nil)))
}

func TestCircuitBreaker_CountsRejections(t *testing.T) {
	cb := newTestBreaker(clock.NewMockClock(time.Now()))
	ctx := context.Background()
	rejected := metrics.CircuitBreakerRejections.WithLabelValues("test")

	_ = cb.Call(ctx, failing(errBoom))
	_ = cb.Call(ctx, failing(errBoom))
	require.True(t, cb.IsOpen())

	before := testutil.ToFloat64(rejected)
	assert.ErrorIs(t, cb.Call(ctx, failing(nil)), commonerrors.ErrCircuitOpen)
	assert.ErrorIs(t, cb.Call(ctx, failing(nil)), commonerrors.ErrCircuitOpen)
	assert.Equal(t, before+2, testutil.ToFloat64(rejected))
}

func TestCircuitBreaker_AppliesTimeout(t *testing.T) {
	cb := newTestBreaker(clock.NewMockClock(time.Now()))

	err := cb.Call(context.Background(), func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return nil
	})
	assert.NoError(t, err)
}
