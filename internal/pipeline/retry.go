// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/report-engine/internal/httputil"
	"github.com/pdiddy/report-engine/pkg/types"
)

// Rerunnable reports whether a failed run is worth starting again from the
// beginning.
func Rerunnable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, types.ErrTransient) ||
		errors.Is(err, types.ErrRateLimit) ||
		errors.Is(err, types.ErrRequestFailed) ||
		errors.Is(err, types.ErrDraftGeneration)
}

// RunWithRetries calls Run up to 1+retries times, pausing between attempts,
// while the failure is Rerunnable. Every attempt is a fresh run with its own
// id and its own event sequence. The last Run and error are returned.
func (p *Pipeline) RunWithRetries(ctx context.Context, req types.TopicRequest, events chan<- types.Event, retries int, pause time.Duration) (*Run, error) {
	var (
		run *Run
		err error
	)
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			p.log.Info("rerunning report",
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", retries+1),
				zap.Error(err))
			if werr := httputil.Wait(ctx, pause); werr != nil {
				return run, werr
			}
		}
		run, err = p.Run(ctx, req, events)
		if err == nil || !Rerunnable(err) {
			return run, err
		}
	}
	return run, err
}
