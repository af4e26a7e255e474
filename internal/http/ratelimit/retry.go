package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"
)

// ErrPermanent matches every classified error that must not be retried
var ErrPermanent = errors.New("permanent failure")

// ErrorClass categorises a failed outbound call
type ErrorClass string

const (
	ClassRateLimited ErrorClass = "rate_limited" // 429
	ClassServer      ErrorClass = "server"       // 5xx
	ClassNetwork     ErrorClass = "network"      // transport failure
	ClassNotFound    ErrorClass = "not_found"    // 404
	ClassClient      ErrorClass = "client"       // other 4xx
)

// ClassifiedError is the error surfaced by a failed outbound call
type ClassifiedError struct {
	Class    ErrorClass
	Status   int
	Endpoint string
	Attempts int
	Err      error
}

func (e *ClassifiedError) Error() string {
	msg := fmt.Sprintf("request to %s failed (%s", e.Endpoint, e.Class)
	if e.Status != 0 {
		msg += fmt.Sprintf(", HTTP %d", e.Status)
	}
	msg += fmt.Sprintf(", %d attempts)", e.Attempts)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrPermanent) true for non-retryable classes
func (e *ClassifiedError) Is(target error) bool {
	return target == ErrPermanent && !e.Retryable()
}

// Retryable reports whether another attempt may succeed
func (e *ClassifiedError) Retryable() bool {
	switch e.Class {
	case ClassRateLimited, ClassServer, ClassNetwork:
		return true
	default:
		return false
	}
}

// Classify maps an HTTP outcome to a ClassifiedError.
// Returns nil for a successful (2xx/3xx) status with no transport error.
func Classify(endpoint string, status int, err error) *ClassifiedError {
	if err != nil {
		return &ClassifiedError{Class: ClassNetwork, Endpoint: endpoint, Err: err}
	}
	switch {
	case status == http.StatusTooManyRequests:
		return &ClassifiedError{Class: ClassRateLimited, Status: status, Endpoint: endpoint}
	case status >= 500:
		return &ClassifiedError{Class: ClassServer, Status: status, Endpoint: endpoint}
	case status == http.StatusNotFound:
		return &ClassifiedError{Class: ClassNotFound, Status: status, Endpoint: endpoint}
	case status >= 400:
		return &ClassifiedError{Class: ClassClient, Status: status, Endpoint: endpoint}
	}
	return nil
}

// IsRetryableStatus checks if an HTTP status code is retryable
// Retryable: 429, 5xx
func IsRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// RetryPolicy is the stateless retry schedule for outbound calls
type RetryPolicy struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	NetworkDelay time.Duration
}

// DefaultRetryPolicy returns 3 attempts with a 1s base delay
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		BaseDelay:    time.Second,
		NetworkDelay: time.Second,
	}
}

// Delay returns how long to wait after the given zero-based attempt failed
func (p RetryPolicy) Delay(err *ClassifiedError, attempt int) time.Duration {
	exp := time.Duration(math.Pow(2, float64(attempt)))
	switch err.Class {
	case ClassRateLimited:
		// Rate limited - back off twice as long
		return p.BaseDelay * exp * 2
	case ClassServer:
		return p.BaseDelay * exp
	case ClassNetwork:
		return p.NetworkDelay
	default:
		return 0
	}
}

// Sleeper waits for d or until ctx is done
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep is the production Sleeper
func ContextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Execute runs op under the policy. op receives the zero-based attempt
// number. Errors that are not *ClassifiedError are treated as network
// failures. The last classified error is returned once attempts run out.
func Execute[T any](ctx context.Context, p RetryPolicy, sleep Sleeper, op func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	if sleep == nil {
		sleep = ContextSleep
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 0; ; attempt++ {
		result, err := op(ctx, attempt)
		if err == nil {
			return result, nil
		}

		var ce *ClassifiedError
		if !errors.As(err, &ce) {
			ce = &ClassifiedError{Class: ClassNetwork, Err: err}
		}
		ce.Attempts = attempt + 1

		if !ce.Retryable() || attempt+1 >= maxAttempts {
			return zero, ce
		}
		if err := sleep(ctx, p.Delay(ce, attempt)); err != nil {
			ce.Err = errors.Join(ce.Err, err)
			return zero, ce
		}
	}
}
