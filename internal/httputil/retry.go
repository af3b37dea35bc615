// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across the API clients:
// the retry loop with per-attempt deadlines, status-code classification,
// and context-aware waiting.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/report-engine/pkg/types"
)

// Policy describes how an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of attempts. Values below 1 mean 1.
	MaxAttempts int

	// BaseDelay is the wait after the first failed attempt.
	BaseDelay time.Duration

	// MaxDelay caps exponential growth. Zero disables the cap.
	MaxDelay time.Duration

	// Exponential doubles the wait after every failed attempt.
	Exponential bool

	// Timeout bounds each attempt. Zero leaves attempts unbounded.
	Timeout time.Duration
}

// NewPolicy builds a Policy from retry settings and a per-attempt timeout.
func NewPolicy(rc types.RetryConfig, timeout time.Duration) Policy {
	return Policy{
		MaxAttempts: rc.MaxAttempts,
		BaseDelay:   rc.BaseDelay,
		MaxDelay:    rc.MaxDelay,
		Exponential: rc.Exponential,
		Timeout:     timeout,
	}
}

// Delay returns the wait after the given failed attempt (1-based). For an
// exponential policy with base 1s and cap 8s: 1s, 2s, 4s, 8s, 8s.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if !p.Exponential {
		return p.BaseDelay
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// RetryFunc is notified before each wait between attempts.
type RetryFunc func(attempt int, err error, wait time.Duration)

// Do runs fn until it succeeds, returns an error rejected by retryable, or
// the policy's attempts are exhausted. Each attempt gets its own context
// bounded by p.Timeout. A deadline hit by the attempt (not the parent) is
// reported as types.ErrTransient. When the parent context is cancelled Do
// returns the context error. The last attempt's error is returned on
// exhaustion.
func Do(ctx context.Context, p Policy, retryable func(error) bool, onRetry RetryFunc, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	if retryable == nil {
		retryable = Retryable
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = runAttempt(ctx, p.Timeout, fn)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == attempts || !retryable(err) {
			return err
		}

		wait := p.Delay(attempt)
		if onRetry != nil {
			onRetry(attempt, err, wait)
		}
		if werr := Wait(ctx, wait); werr != nil {
			return werr
		}
	}
	return err
}

func runAttempt(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(actx)
	if err != nil && ctx.Err() == nil && errors.Is(actx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: attempt timed out after %v: %v", types.ErrTransient, timeout, err)
	}
	return err
}

// Wait sleeps for d or until ctx is done, whichever comes first.
func Wait(ctx context.Context, d time.Duration) error {
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

// Retryable reports whether err is worth another attempt. Configuration and
// validation errors and context cancellation are final; everything else
// (network failures, 403, 429, 5xx, malformed bodies) may be retried.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, types.ErrConfiguration),
		errors.Is(err, types.ErrValidation),
		errors.Is(err, context.Canceled):
		return false
	}
	return true
}

// RetryableGeneration is Retryable minus authorization failures and other
// non-2xx responses outside 429 and 5xx. Gemini reports an invalid key as 400.
func RetryableGeneration(err error) bool {
	return Retryable(err) &&
		!errors.Is(err, types.ErrAuth) &&
		!errors.Is(err, types.ErrRequestFailed)
}
