// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/report-engine/internal/collect"
	"github.com/pdiddy/report-engine/internal/compose"
	"github.com/pdiddy/report-engine/internal/gemini"
	"github.com/pdiddy/report-engine/internal/httputil"
	"github.com/pdiddy/report-engine/internal/openaicompat"
	"github.com/pdiddy/report-engine/internal/pipeline"
	"github.com/pdiddy/report-engine/internal/plan"
	"github.com/pdiddy/report-engine/internal/review"
	"github.com/pdiddy/report-engine/internal/search"
	"github.com/pdiddy/report-engine/pkg/types"
)

func logRetry(service string) httputil.RetryFunc {
	return func(attempt int, err error, delay time.Duration) {
		logger.Info("retrying request",
			zap.String("service", service),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
	}
}

// newGenerator returns the client for the configured provider. Per-attempt
// timeouts come from the retry policy, so the HTTP client has none.
func newGenerator(cfg types.GenerationConfig) (plan.Generator, error) {
	httpClient := &http.Client{}
	switch cfg.Provider {
	case types.ProviderGemini, "":
		c := gemini.New(cfg, httpClient, logger)
		c.OnRetry = logRetry("gemini")
		return c, nil
	case types.ProviderOpenAI:
		c := openaicompat.New(cfg, httpClient, logger)
		c.OnRetry = logRetry("openai")
		return c, nil
	default:
		return nil, fmt.Errorf("%w: unknown generation provider %q (want gemini or openai)", types.ErrConfiguration, cfg.Provider)
	}
}

func newSearcher(cfg types.SearchConfig) *search.Client {
	c := search.New(cfg, logger)
	c.OnRetry = logRetry("search")
	return c
}

func newPipeline(cfg types.PipelineConfig) (*pipeline.Pipeline, error) {
	gen, err := newGenerator(cfg.Generation)
	if err != nil {
		return nil, err
	}
	return pipeline.New(pipeline.Stages{
		Planner:   plan.New(gen, logger),
		Collector: collect.New(newSearcher(cfg.Search), cfg.Collect, logger),
		Composer:  compose.New(gen, logger),
		Reviewer:  review.NewReviewer(gen, cfg.Review, logger),
		Reviser:   review.NewReviser(gen, logger),
	}, cfg.Run, logger), nil
}
