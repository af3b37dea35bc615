// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// Constraints narrows what the report should look like. All fields are
// optional; the configuration layer fills academic level and target length
// with defaults.
type Constraints struct {
	// Description is free-text detail about what the report should cover.
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`

	// AcademicLevel is the intended reader level (e.g. "大学学部").
	AcademicLevel string `json:"academic_level,omitempty" yaml:"academic_level,omitempty" mapstructure:"academic_level"`

	// TargetLength is the desired length in characters (e.g. "1500").
	TargetLength string `json:"target_length,omitempty" yaml:"target_length,omitempty" mapstructure:"target_length"`
}

// TopicRequest is the immutable input to a single pipeline run.
type TopicRequest struct {
	Topic       string      `json:"topic" yaml:"topic"`
	Constraints Constraints `json:"constraints" yaml:"constraints"`
}

// Validate reports ErrValidation when the topic is blank.
func (r TopicRequest) Validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return fmt.Errorf("%w: report topic is empty", ErrValidation)
	}
	return nil
}

// Draft is the document produced by the composing stage.
type Draft struct {
	// Content is the document text (Markdown).
	Content string `json:"content" yaml:"content"`

	// Degraded is true when Content is the fixed fallback document rather
	// than model output.
	Degraded bool `json:"degraded,omitempty" yaml:"degraded,omitempty"`

	// Cause holds the generation error that forced the fallback.
	Cause string `json:"cause,omitempty" yaml:"cause,omitempty"`
}

// Severity ranks a review issue.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Category classifies a review issue by what it is about.
type Category string

const (
	CategoryWordCount  Category = "word-count"
	CategoryCitation   Category = "citation"
	CategoryRepetition Category = "repetition"
	CategoryStructure  Category = "structure"
	CategoryGeneral    Category = "general"
)

// Title returns the display heading for the category.
func (c Category) Title() string {
	switch c {
	case CategoryWordCount:
		return "文字数の問題"
	case CategoryCitation:
		return "引用・参照の問題"
	case CategoryRepetition:
		return "表現の重複"
	case CategoryStructure:
		return "構成の問題"
	default:
		return "品質の問題"
	}
}

// Issue is one problem the reviewer flagged.
type Issue struct {
	Severity    Severity `json:"severity" yaml:"severity"`
	Category    Category `json:"category" yaml:"category"`
	Description string   `json:"description" yaml:"description"`
}

// Verdict is the structured judgment parsed from the reviewer's free text.
type Verdict struct {
	// Score is the overall grade, 0-100.
	Score int `json:"score" yaml:"score"`

	// NeedsImprovement triggers the single revision pass.
	NeedsImprovement bool `json:"needs_improvement" yaml:"needs_improvement"`

	// Issues lists flagged problems in the order they appeared.
	Issues []Issue `json:"issues" yaml:"issues"`

	// RawText is the reviewer output the verdict was parsed from.
	RawText string `json:"raw_text" yaml:"raw_text"`
}
