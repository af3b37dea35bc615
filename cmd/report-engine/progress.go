// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/report-engine/pkg/types"
)

var levelMarks = map[types.Level]string{
	types.LevelInfo:    " ",
	types.LevelSuccess: "✓",
	types.LevelWarning: "!",
	types.LevelError:   "✗",
}

// printEvent writes one progress line per event. The user-facing message is
// preferred; the log message is shown indented when both are present.
func printEvent(w io.Writer, ev types.Event) {
	mark := levelMarks[ev.Level]
	if mark == "" {
		mark = " "
	}
	stage := fmt.Sprintf("%-10s", ev.Stage)

	switch {
	case ev.Message != "" && ev.LogMessage != "" && ev.Message != ev.LogMessage:
		fmt.Fprintf(w, "%s %s %s\n", mark, stage, ev.Message)
		fmt.Fprintf(w, "  %s   %s\n", strings.Repeat(" ", len(stage)), ev.LogMessage)
	case ev.Message != "":
		fmt.Fprintf(w, "%s %s %s\n", mark, stage, ev.Message)
	case ev.LogMessage != "":
		fmt.Fprintf(w, "%s %s %s\n", mark, stage, ev.LogMessage)
	}

	if ev.Stage == types.StagePlanning && len(ev.SearchTerms) > 0 && ev.Level == types.LevelSuccess {
		for i, term := range ev.SearchTerms {
			fmt.Fprintf(w, "    %d. %s\n", i+1, term)
		}
	}
	if ev.Verdict != nil && ev.Stage == types.StageReviewing {
		printIssues(w, ev.Verdict.Issues)
	}
}

// printIssues lists review issues grouped under their category headings in
// first-seen order.
func printIssues(w io.Writer, issues []types.Issue) {
	var order []types.Category
	groups := make(map[types.Category][]types.Issue)
	for _, is := range issues {
		if _, ok := groups[is.Category]; !ok {
			order = append(order, is.Category)
		}
		groups[is.Category] = append(groups[is.Category], is)
	}
	for _, c := range order {
		fmt.Fprintf(w, "    %s\n", c.Title())
		for _, is := range groups[c] {
			fmt.Fprintf(w, "      [%s] %s\n", is.Severity, is.Description)
		}
	}
}
