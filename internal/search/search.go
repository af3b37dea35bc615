// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search queries the Google Custom Search JSON API and maps each
// result to a types.EvidenceItem. It performs no caching and no dedup;
// merging results across terms belongs to the evidence collector.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	customsearch "google.golang.org/api/customsearch/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/pdiddy/report-engine/internal/httputil"
	"github.com/pdiddy/report-engine/internal/logging"
	"github.com/pdiddy/report-engine/pkg/types"
)

const serviceName = "Google Search API"

// maxResultsPerQuery is the Custom Search API's upper bound on num.
const maxResultsPerQuery = 10

// Placeholder values for result fields the API left empty.
const (
	unknownTitle  = "不明なタイトル"
	unknownLink   = "#"
	noSnippet     = "説明なし"
	unknownSource = "不明なリンク"
)

// Client runs single-query web searches. Construct with New.
type Client struct {
	cfg     types.SearchConfig
	policy  httputil.Policy
	limiter *rate.Limiter
	log     *zap.Logger
	opts    []option.ClientOption

	// OnRetry, when set, is called before each wait between attempts.
	OnRetry httputil.RetryFunc
}

// New returns a Client for cfg. A nil logger discards logs.
func New(cfg types.SearchConfig, log *zap.Logger) *Client {
	if cfg.MaxResults <= 0 || cfg.MaxResults > maxResultsPerQuery {
		cfg.MaxResults = maxResultsPerQuery
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, option.WithUserAgent(cfg.UserAgent))
	}

	c := &Client{
		cfg:    cfg,
		policy: httputil.NewPolicy(cfg.Retry, cfg.Timeout),
		log:    logging.OrNop(log).Named("search"),
		opts:   opts,
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

// Search runs query and returns up to MaxResults items in API order. A
// response without items yields an empty slice and no error.
func (c *Client) Search(ctx context.Context, query string) ([]types.EvidenceItem, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is empty", types.ErrValidation)
	}
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: search API key is not set", types.ErrConfiguration)
	}
	if c.cfg.EngineID == "" {
		return nil, fmt.Errorf("%w: search engine id is not set", types.ErrConfiguration)
	}

	svc, err := customsearch.NewService(ctx, c.opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: creating search service: %v", types.ErrConfiguration, err)
	}

	onRetry := func(attempt int, err error, wait time.Duration) {
		c.log.Warn("search attempt failed, retrying",
			zap.String("query", query),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
		if c.OnRetry != nil {
			c.OnRetry(attempt, err, wait)
		}
	}

	var items []types.EvidenceItem
	err = httputil.Do(ctx, c.policy, httputil.Retryable, onRetry, func(actx context.Context) error {
		if c.limiter != nil {
			if err := c.limiter.Wait(actx); err != nil {
				return err
			}
		}
		res, err := svc.Cse.List().
			Q(query).
			Cx(c.cfg.EngineID).
			Num(int64(c.cfg.MaxResults)).
			Context(actx).
			Do()
		if err != nil {
			return classify(err)
		}
		items = toEvidence(query, res.Items)
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.log.Debug("search complete", zap.String("query", query), zap.Int("results", len(items)))
	return items, nil
}

// classify maps googleapi errors onto the shared sentinels. gerr.Code is the
// error.code from the response body when present, which Google sets to the
// HTTP status; CheckResponse falls back to the status only when it is absent.
func classify(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		msg := gerr.Message
		if msg == "" {
			msg = gerr.Body
		}
		return httputil.NewStatusError(serviceName, gerr.Code, msg)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: calling %s: %v", types.ErrTransient, serviceName, err)
}

func toEvidence(query string, results []*customsearch.Result) []types.EvidenceItem {
	items := make([]types.EvidenceItem, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		items = append(items, types.EvidenceItem{
			Title:       orDefault(r.Title, unknownTitle),
			URL:         orDefault(r.Link, unknownLink),
			Snippet:     orDefault(r.Snippet, noSnippet),
			SourceLabel: orDefault(r.DisplayLink, orDefault(r.Link, unknownSource)),
			Term:        query,
		})
	}
	return items
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
