// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/report-engine/pkg/types"
)

func TestPrintEvent_MessageAndLog(t *testing.T) {
	var buf bytes.Buffer
	printEvent(&buf, types.Event{
		Stage:      types.StagePlanning,
		Level:      types.LevelInfo,
		Message:    "検索ワードを生成中...",
		LogMessage: "検索ワードの自律的生成を開始します",
	})
	assert.Equal(t,
		"  planning   検索ワードを生成中...\n"+
			"               検索ワードの自律的生成を開始します\n",
		buf.String())
}

func TestPrintEvent_SearchTerms(t *testing.T) {
	var buf bytes.Buffer
	printEvent(&buf, types.Event{
		Stage:       types.StagePlanning,
		Level:       types.LevelSuccess,
		LogMessage:  "2個の検索ワードが生成されました",
		SearchTerms: []string{"a", "b"},
	})
	assert.Contains(t, buf.String(), "✓ planning   2個の検索ワードが生成されました\n")
	assert.Contains(t, buf.String(), "    1. a\n    2. b\n")
}

func TestPrintEvent_GroupsIssues(t *testing.T) {
	var buf bytes.Buffer
	printEvent(&buf, types.Event{
		Stage:      types.StageReviewing,
		Level:      types.LevelWarning,
		LogMessage: "総合評価: 55点、問題点3件",
		Verdict: &types.Verdict{Issues: []types.Issue{
			{Severity: types.SeverityHigh, Category: types.CategoryRepetition, Description: "重複1"},
			{Severity: types.SeverityLow, Category: types.CategoryCitation, Description: "引用"},
			{Severity: types.SeverityMedium, Category: types.CategoryRepetition, Description: "重複2"},
		}},
	})
	assert.Equal(t,
		"! reviewing  総合評価: 55点、問題点3件\n"+
			"    表現の重複\n"+
			"      [high] 重複1\n"+
			"      [medium] 重複2\n"+
			"    引用・参照の問題\n"+
			"      [low] 引用\n",
		buf.String())
}

func TestRequestFromFlags_AppliesDefaults(t *testing.T) {
	cmd := generateCmd
	t.Cleanup(func() {
		_ = cmd.Flags().Set("topic", "")
		_ = cmd.Flags().Set("length", "")
	})
	_ = cmd.Flags().Set("topic", "気候変動")
	_ = cmd.Flags().Set("length", "3000")

	req := requestFromFlags(cmd, types.Constraints{AcademicLevel: "大学学部", TargetLength: "1500"})
	assert.Equal(t, "気候変動", req.Topic)
	assert.Equal(t, "大学学部", req.Constraints.AcademicLevel)
	assert.Equal(t, "3000", req.Constraints.TargetLength)
}
