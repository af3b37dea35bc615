// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/report-engine/pkg/types"
)

func fastPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 8 * time.Millisecond, Exponential: true}
}

func TestPolicyDelay(t *testing.T) {
	exp := Policy{BaseDelay: time.Second, MaxDelay: 8 * time.Second, Exponential: true}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{7, 8 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exp.Delay(tt.attempt), "attempt %d", tt.attempt)
	}

	fixed := Policy{BaseDelay: time.Second}
	assert.Equal(t, time.Second, fixed.Delay(1))
	assert.Equal(t, time.Second, fixed.Delay(5))
}

func TestDo_ImmediateSuccess(t *testing.T) {
	var calls int32
	err := Do(context.Background(), fastPolicy(3), nil, nil, func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDo_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	var retries []int
	err := Do(context.Background(), fastPolicy(3), nil,
		func(attempt int, _ error, _ time.Duration) { retries = append(retries, attempt) },
		func(context.Context) error {
			if atomic.AddInt32(&calls, 1) < 3 {
				return NewStatusError("test", 503, "")
			}
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, []int{1, 2}, retries)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	var calls int32
	err := Do(context.Background(), fastPolicy(3), nil, nil, func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return NewStatusError("test", 429, "slow down")
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrRateLimit)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDo_NonRetryableStopsEarly(t *testing.T) {
	var calls int32
	err := Do(context.Background(), fastPolicy(3), nil, nil, func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return fmt.Errorf("%w: missing key", types.ErrConfiguration)
	})
	assert.ErrorIs(t, err, types.ErrConfiguration)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDo_CustomPredicate(t *testing.T) {
	var calls int32
	noAuth := func(err error) bool { return Retryable(err) && !errors.Is(err, types.ErrAuth) }
	err := Do(context.Background(), fastPolicy(3), noAuth, nil, func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return NewStatusError("test", 403, "")
	})
	assert.ErrorIs(t, err, types.ErrAuth)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDo_AttemptTimeoutIsTransient(t *testing.T) {
	p := fastPolicy(2)
	p.Timeout = 20 * time.Millisecond
	var calls int32
	err := Do(context.Background(), p, nil, nil, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, types.ErrTransient)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestDo_ParentCancelled(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: 500 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := Do(ctx, p, nil, nil, func(context.Context) error {
		return NewStatusError("test", 500, "")
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWait(t *testing.T) {
	require.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}

func TestStatusErrorClassification(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{403, types.ErrAuth},
		{429, types.ErrRateLimit},
		{500, types.ErrTransient},
		{503, types.ErrTransient},
		{400, types.ErrRequestFailed},
		{404, types.ErrRequestFailed},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			err := NewStatusError("Gemini API", tt.code, "body")
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "Gemini API")
			assert.Contains(t, err.Error(), fmt.Sprintf("HTTP %d", tt.code))
		})
	}
}

func TestStatusErrorTruncatesBody(t *testing.T) {
	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'x'
	}
	err := NewStatusError("svc", 500, string(long))
	assert.Less(t, len(err.Error()), 500)
}

func TestStatusErrorTruncatesOnRuneBoundary(t *testing.T) {
	body := strings.Repeat("認証エラー", 100)
	err := NewStatusError("svc", 400, body)
	assert.True(t, utf8.ValidString(err.Body))
	assert.Equal(t, maxBodyInMessage+len("..."), utf8.RuneCountInString(err.Body))
}

func TestRetryable(t *testing.T) {
	assert.False(t, Retryable(nil))
	assert.False(t, Retryable(types.ErrConfiguration))
	assert.False(t, Retryable(fmt.Errorf("wrap: %w", types.ErrValidation)))
	assert.False(t, Retryable(context.Canceled))
	assert.True(t, Retryable(types.ErrAuth))
	assert.True(t, Retryable(types.ErrTransient))
	assert.True(t, Retryable(errors.New("connection reset")))
}

func TestRetryableGeneration(t *testing.T) {
	assert.False(t, RetryableGeneration(NewStatusError("svc", 403, "")))
	assert.False(t, RetryableGeneration(types.ErrConfiguration))
	assert.False(t, RetryableGeneration(NewStatusError("svc", 400, "API key not valid")))
	assert.False(t, RetryableGeneration(NewStatusError("svc", 404, "")))
	assert.True(t, RetryableGeneration(NewStatusError("svc", 429, "")))
	assert.True(t, RetryableGeneration(types.ErrTransient))
}
