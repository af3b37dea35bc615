// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package collect runs every planned search term in order, tolerates
// per-term failures, and merges the results into one evidence set keyed by
// URL. When nothing usable comes back it substitutes a single synthetic
// placeholder so composition can still proceed.
package collect

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pdiddy/report-engine/internal/httputil"
	"github.com/pdiddy/report-engine/internal/logging"
	"github.com/pdiddy/report-engine/pkg/types"
)

// Searcher runs one web search.
type Searcher interface {
	Search(ctx context.Context, query string) ([]types.EvidenceItem, error)
}

// Placeholder evidence used when collection yields nothing.
const (
	PlaceholderURL     = "https://example.com/general-knowledge"
	PlaceholderLabel   = "一般情報ソース"
	PlaceholderTerm    = "一般情報"
	placeholderTitle   = "一般情報 - "
	placeholderSnippet = "検索結果が十分に得られなかったため、トピックに関する一般的な知識も使用してレポートを作成します。"
)

// TermStatus describes where a term is in collection.
type TermStatus string

const (
	TermSearching TermStatus = "searching"
	TermRetrying  TermStatus = "retrying"
	TermFound     TermStatus = "found"
	TermEmpty     TermStatus = "empty"
	TermFailed    TermStatus = "failed"
)

// TermOutcome is reported to the Observer as each term progresses.
type TermOutcome struct {
	Term    string
	Index   int // 1-based position in the term list
	Total   int
	Status  TermStatus
	Results int
	Attempt int
	Err     error
}

// Result is the merged evidence set and collection statistics.
type Result struct {
	Items      []types.EvidenceItem
	Duplicates int
	Succeeded  int
	Failed     int
	Warnings   []string

	// Synthetic is true when Items is only the placeholder.
	Synthetic bool
}

// Collector gathers evidence for a list of search terms.
type Collector struct {
	search Searcher
	cfg    types.CollectConfig
	log    *zap.Logger
}

// Observer receives per-term progress.
type Observer func(TermOutcome)

// New returns a Collector using s for searches.
func New(s Searcher, cfg types.CollectConfig, log *zap.Logger) *Collector {
	if cfg.TermRetries < 0 {
		cfg.TermRetries = 0
	}
	return &Collector{search: s, cfg: cfg, log: logging.OrNop(log).Named("collect")}
}

// Collect searches terms strictly in order. A failing term becomes a warning
// and collection moves on. Only a cancelled context returns an error.
// onTerm may be nil.
func (c *Collector) Collect(ctx context.Context, topic string, terms []string, onTerm Observer) (Result, error) {
	var (
		all []types.EvidenceItem
		res Result
	)

	for i, term := range terms {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		out := TermOutcome{Term: term, Index: i + 1, Total: len(terms)}
		notify(onTerm, out, TermSearching, 1, 0, nil)

		items, attempts, err := c.searchTerm(ctx, out, onTerm)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Failed++
			msg := fmt.Sprintf("search for %q failed: %v", term, err)
			res.Warnings = append(res.Warnings, msg)
			c.log.Warn("term failed, continuing", zap.String("term", term), zap.Error(err))
			notify(onTerm, out, TermFailed, attempts, 0, err)
			continue
		}

		if len(items) == 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("search for %q returned no results", term))
			notify(onTerm, out, TermEmpty, attempts, 0, nil)
			continue
		}

		res.Succeeded++
		for j := range items {
			items[j].Term = term
		}
		all = append(all, items...)
		notify(onTerm, out, TermFound, attempts, len(items), nil)
	}

	res.Items, res.Duplicates = Merge(all)
	if len(res.Items) == 0 {
		res.Items = []types.EvidenceItem{Placeholder(topic, terms)}
		res.Synthetic = true
		res.Warnings = append(res.Warnings, "no search results; the report will rely on general knowledge")
		c.log.Warn("no evidence collected, using placeholder", zap.Int("terms", len(terms)))
	}

	c.log.Debug("collection complete",
		zap.Int("items", len(res.Items)),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed))
	return res, nil
}

// searchTerm wraps one term in the local retry guard.
func (c *Collector) searchTerm(ctx context.Context, out TermOutcome, onTerm Observer) ([]types.EvidenceItem, int, error) {
	attempts := c.cfg.TermRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := httputil.Wait(ctx, c.cfg.RetryPause); err != nil {
				return nil, attempt - 1, err
			}
			notify(onTerm, out, TermRetrying, attempt, 0, lastErr)
		}
		items, err := c.search.Search(ctx, out.Term)
		if err == nil {
			return items, attempt, nil
		}
		lastErr = err
		if ctx.Err() != nil || !httputil.Retryable(err) {
			return nil, attempt, err
		}
	}
	return nil, attempts, lastErr
}

func notify(onTerm Observer, out TermOutcome, status TermStatus, attempt, results int, err error) {
	if onTerm == nil {
		return
	}
	out.Status = status
	out.Attempt = attempt
	out.Results = results
	out.Err = err
	onTerm(out)
}

// Merge removes items whose URL was already seen. URLs are compared as
// literal strings; the first occurrence wins and keeps its origin term.
// It returns the merged items and the number of duplicates dropped.
func Merge(items []types.EvidenceItem) ([]types.EvidenceItem, int) {
	seen := make(map[string]struct{}, len(items))
	merged := make([]types.EvidenceItem, 0, len(items))
	removed := 0
	for _, it := range items {
		if _, ok := seen[it.URL]; ok {
			removed++
			continue
		}
		seen[it.URL] = struct{}{}
		merged = append(merged, it)
	}
	return merged, removed
}

// Placeholder builds the synthetic evidence item for topic.
func Placeholder(topic string, terms []string) types.EvidenceItem {
	term := PlaceholderTerm
	if len(terms) > 0 {
		term = terms[0]
	}
	return types.EvidenceItem{
		Title:       placeholderTitle + topic,
		URL:         PlaceholderURL,
		Snippet:     placeholderSnippet,
		SourceLabel: PlaceholderLabel,
		Term:        term,
		Synthetic:   true,
	}
}
