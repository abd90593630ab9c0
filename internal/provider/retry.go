package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"
)

var retryableStatusCodes = map[int]struct{}{
	408: {}, 409: {}, 425: {}, 429: {},
	500: {}, 502: {}, 503: {}, 504: {},
}

// Retrying re-invokes a provider on transient failures with exponential
// backoff: the n-th retry waits baseDelay * 2^(n-1).
type Retrying struct {
	inner      Provider
	maxRetries int
	baseDelay  time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewRetrying(inner Provider, maxRetries int, baseDelay time.Duration) *Retrying {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay < 0 {
		baseDelay = 0
	}
	return &Retrying{inner: inner, maxRetries: maxRetries, baseDelay: baseDelay, sleep: sleepContext}
}

func (r *Retrying) Name() string {
	return r.inner.Name()
}

func (r *Retrying) Generate(ctx context.Context, req Request) (any, error) {
	attempts := r.maxRetries + 1
	for attempt := 1; ; attempt++ {
		plan, err := r.inner.Generate(ctx, req)
		if err == nil {
			return plan, nil
		}
		if attempt >= attempts || !IsRetryable(ctx, err) {
			if attempt > 1 {
				return nil, fmt.Errorf("after %d attempts: %w", attempt, err)
			}
			return nil, err
		}
		delay := r.baseDelay * time.Duration(1<<(attempt-1))
		if err := r.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// IsRetryable reports whether err is worth another attempt while ctx is
// still alive.
func IsRetryable(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		_, ok := retryableStatusCodes[statusErr.Code]
		return ok
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
