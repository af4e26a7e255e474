package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		err       error
		wantClass ErrorClass
		retryable bool
	}{
		{"rate limited", 429, nil, ClassRateLimited, true},
		{"server error", 503, nil, ClassServer, true},
		{"network", 0, errors.New("connection reset"), ClassNetwork, true},
		{"not found", 404, nil, ClassNotFound, false},
		{"bad request", 400, nil, ClassClient, false},
		{"unauthorized", 401, nil, ClassClient, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := Classify("/reviews", tt.status, tt.err)
			require.NotNil(t, ce)
			assert.Equal(t, tt.wantClass, ce.Class)
			assert.Equal(t, tt.retryable, ce.Retryable())
			assert.Equal(t, !tt.retryable, errors.Is(ce, ErrPermanent))
		})
	}

	assert.Nil(t, Classify("/reviews", 200, nil))
}

func TestRetryPolicyDelay(t *testing.T) {
	p := DefaultRetryPolicy()

	assert.Equal(t, 2*time.Second, p.Delay(&ClassifiedError{Class: ClassRateLimited}, 0))
	assert.Equal(t, 4*time.Second, p.Delay(&ClassifiedError{Class: ClassRateLimited}, 1))
	assert.Equal(t, 1*time.Second, p.Delay(&ClassifiedError{Class: ClassServer}, 0))
	assert.Equal(t, 2*time.Second, p.Delay(&ClassifiedError{Class: ClassServer}, 1))
	assert.Equal(t, 1*time.Second, p.Delay(&ClassifiedError{Class: ClassNetwork}, 2))
	assert.Equal(t, time.Duration(0), p.Delay(&ClassifiedError{Class: ClassNotFound}, 0))
}

func TestExecute_RetriesThenSucceeds(t *testing.T) {
	sleeper := &recordingSleeper{}
	statuses := []int{429, 500, 200}

	got, err := Execute(context.Background(), DefaultRetryPolicy(), sleeper.sleep,
		func(_ context.Context, attempt int) (int, error) {
			if ce := Classify("/reviews", statuses[attempt], nil); ce != nil {
				return 0, ce
			}
			return statuses[attempt], nil
		})

	require.NoError(t, err)
	assert.Equal(t, 200, got)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, sleeper.delays)
}

func TestExecute_NotFoundIsImmediate(t *testing.T) {
	sleeper := &recordingSleeper{}
	calls := 0

	_, err := Execute(context.Background(), DefaultRetryPolicy(), sleeper.sleep,
		func(_ context.Context, _ int) (struct{}, error) {
			calls++
			return struct{}{}, Classify("/reviews", 404, nil)
		})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeper.delays)

	var ce *ClassifiedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 404, ce.Status)
	assert.Equal(t, 1, ce.Attempts)
}

func TestExecute_SurfacesLastErrorAfterMaxAttempts(t *testing.T) {
	sleeper := &recordingSleeper{}
	calls := 0

	_, err := Execute(context.Background(), DefaultRetryPolicy(), sleeper.sleep,
		func(_ context.Context, _ int) (string, error) {
			calls++
			return "", Classify("/reviews", 502, nil)
		})

	var ce *ClassifiedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, ce.Attempts)
	assert.Equal(t, ClassServer, ce.Class)
	assert.Len(t, sleeper.delays, 2)
}

func TestExecute_PlainErrorTreatedAsNetwork(t *testing.T) {
	sleeper := &recordingSleeper{}

	_, err := Execute(context.Background(), RetryPolicy{MaxAttempts: 2, NetworkDelay: time.Second}, sleeper.sleep,
		func(_ context.Context, _ int) (int, error) {
			return 0, errors.New("dial tcp: timeout")
		})

	var ce *ClassifiedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ClassNetwork, ce.Class)
	assert.Equal(t, []time.Duration{time.Second}, sleeper.delays)
}

func TestExecute_StopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Execute(ctx, DefaultRetryPolicy(), ContextSleep,
		func(_ context.Context, _ int) (int, error) {
			calls++
			return 0, Classify("/reviews", 500, nil)
		})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfigPolicy(t *testing.T) {
	p := Config{MaxAttempts: 5, BaseDelayMs: 10}.Policy()
	assert.Equal(t, 5, p.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, p.BaseDelay)
	assert.Equal(t, time.Second, p.NetworkDelay)
}
