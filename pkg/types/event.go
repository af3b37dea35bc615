// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Stage is a pipeline run state.
type Stage string

const (
	StageIdle       Stage = "idle"
	StagePlanning   Stage = "planning"
	StageCollecting Stage = "collecting"
	StageComposing  Stage = "composing"
	StageReviewing  Stage = "reviewing"
	StageRevising   Stage = "revising"
	StageDone       Stage = "done"
	StageError      Stage = "error"
)

// Terminal reports whether no further transitions follow s.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageError
}

// Level tags an event's severity.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Event is a status notification published at every stage transition and
// for per-term collection progress. Consumers treat later events as
// authoritative over earlier ones for the same field.
type Event struct {
	RunID      string    `json:"run_id"`
	Stage      Stage     `json:"stage"`
	Level      Level     `json:"type"`
	Message    string    `json:"message,omitempty"`
	LogMessage string    `json:"log_message,omitempty"`
	Time       time.Time `json:"time"`

	SearchTerms   []string       `json:"search_terms,omitempty"`
	SearchResults []EvidenceItem `json:"search_results,omitempty"`
	ReportContent string         `json:"report_content,omitempty"`
	Verdict       *Verdict       `json:"validation_results,omitempty"`
}
