// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package review

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pdiddy/report-engine/pkg/types"
)

// DefaultThreshold is the lowest passing score.
const DefaultThreshold = 70

var (
	scorePatterns = []*regexp.Regexp{
		regexp.MustCompile(`総合評価.*?(\d+)点`),
		regexp.MustCompile(`(?i)overall score.*?(\d+)\s*points?`),
		// Score on the line after the heading, e.g. "1. 総合評価\n78点".
		regexp.MustCompile(`総合評価[^\n]*\n\D{0,20}?(\d+)\s*点`),
	}

	issuePatterns = []*regexp.Regexp{
		regexp.MustCompile(`問題点.*?([高中低]).*?[：:]\s*(.+)`),
		regexp.MustCompile(`(?i)problem.*?\b(high|medium|low)\b.*?:\s*(.+)`),
	}

	improvementMarkers = regexp.MustCompile(`改善必要|(?i:improvement needed)`)
)

var severities = map[string]types.Severity{
	"高":      types.SeverityHigh,
	"中":      types.SeverityMedium,
	"低":      types.SeverityLow,
	"high":   types.SeverityHigh,
	"medium": types.SeverityMedium,
	"low":    types.SeverityLow,
}

// categoryKeywords is checked in order; the first category with a matching
// keyword wins.
var categoryKeywords = []struct {
	category types.Category
	keywords []string
}{
	{types.CategoryWordCount, []string{"文字数", "長さ", "word count", "length"}},
	{types.CategoryCitation, []string{"引用", "参考文献", "citation", "reference"}},
	{types.CategoryRepetition, []string{"繰り返し", "重複", "冗長", "repetit", "redundan", "duplicat"}},
	{types.CategoryStructure, []string{"構成", "構造", "流れ", "structure", "flow"}},
}

// ParseVerdict turns free-text review output into a Verdict. It never fails:
// a missing score reads as 0, which is below any positive threshold.
// A threshold of 0 or less selects DefaultThreshold.
func ParseVerdict(text string, threshold int) types.Verdict {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	score := parseScore(text)
	return types.Verdict{
		Score:            score,
		NeedsImprovement: improvementMarkers.MatchString(text) || score < threshold,
		Issues:           parseIssues(text),
		RawText:          text,
	}
}

func parseScore(text string) int {
	for _, re := range scorePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			// Too many digits to fit an int; treat as the maximum.
			return 100
		}
		return clamp(n, 0, 100)
	}
	return 0
}

func parseIssues(text string) []types.Issue {
	var issues []types.Issue
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		for _, re := range issuePatterns {
			m := re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			desc := strings.TrimSpace(m[2])
			if desc == "" {
				break
			}
			issues = append(issues, types.Issue{
				Severity:    severities[strings.ToLower(m[1])],
				Category:    Categorize(desc),
				Description: desc,
			})
			break
		}
	}
	return issues
}

// Categorize classifies an issue description by keyword.
func Categorize(desc string) types.Category {
	lower := strings.ToLower(desc)
	for _, ck := range categoryKeywords {
		for _, kw := range ck.keywords {
			if strings.Contains(lower, kw) {
				return ck.category
			}
		}
	}
	return types.CategoryGeneral
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
