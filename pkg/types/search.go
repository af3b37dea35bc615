// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the report-engine pipeline:
// the topic request, evidence items, drafts, review verdicts, run events,
// stage configuration, and the sentinel errors every stage wraps.
package types

// EvidenceItem is a single web search result carried through the pipeline as
// citation material. Within a collected set no two items share URL.
type EvidenceItem struct {
	// Title is the result title as returned by the search API.
	Title string `json:"title" yaml:"title"`

	// URL is the result link. It is the dedup key and is compared literally.
	URL string `json:"url" yaml:"url"`

	// Snippet is the short excerpt the search API returned.
	Snippet string `json:"snippet" yaml:"snippet"`

	// SourceLabel is the display form of the source (the API's displayLink).
	SourceLabel string `json:"source_label" yaml:"source_label"`

	// Term is the search term that produced this item.
	Term string `json:"term" yaml:"term"`

	// Synthetic marks the placeholder injected when collection found nothing.
	Synthetic bool `json:"synthetic,omitempty" yaml:"synthetic,omitempty"`
}

// OnlySynthetic reports whether items consists solely of synthetic
// placeholders (or is empty).
func OnlySynthetic(items []EvidenceItem) bool {
	for _, it := range items {
		if !it.Synthetic {
			return false
		}
	}
	return true
}
