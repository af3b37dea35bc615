// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/report-engine/pkg/types"
)

// FormatTable writes items as a human-readable table to w.
func FormatTable(items []types.EvidenceItem, w io.Writer) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-50s  %-30s  %s\n", "#", "Title", "Source", "URL")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for i, it := range items {
		fmt.Fprintf(w, "%-4d  %-50s  %-30s  %s\n",
			i+1, truncate(it.Title, 50), truncate(it.SourceLabel, 30), it.URL)
	}
	fmt.Fprintf(w, "\n%d results\n", len(items))
}

// FormatJSON writes items as indented JSON to w.
func FormatJSON(items []types.EvidenceItem, w io.Writer) error {
	if items == nil {
		items = []types.EvidenceItem{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// truncate shortens s to max runes, marking the cut with "...".
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
