// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package plan turns a topic request into an ordered list of bilingual web
// search terms by asking the generation backend for a numbered list.
package plan

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/pdiddy/report-engine/internal/logging"
	"github.com/pdiddy/report-engine/pkg/types"
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

var planPromptTmpl = template.Must(template.New("plan").Parse(`あなたは、与えられたトピックについて効果的なウェブ検索ワードを考える専門家です。
日本語と英語の両方で検索ワードを作成してください。

【条件】
- トピックの主要な側面を網羅すること
- 単語だけでなくフレーズも含めること
- 日本語と英語を合わせて5〜8個にすること
- 日本語と英語をバランスよく含めること
- 具体的で、検索エンジンで良い結果が得られそうなものにすること

【レポートトピック】
{{.Topic}}
{{if .Constraints.Description}}
【詳細説明】
{{.Constraints.Description}}
{{end}}{{if .Constraints.AcademicLevel}}
【学術レベル】
{{.Constraints.AcademicLevel}}
{{end}}
【出力形式】
検索ワードだけを番号付きリストで出力してください。

1. 検索ワード
2. 検索ワード
3. 検索ワード

前置きや説明は不要です。
`))

// termLine matches one numbered list entry: "1. term", "2) term", "３．term".
var termLine = regexp.MustCompile(`^\s*[0-9０-９]+[.．)）:：、\s]+(.+)$`)

// Planner produces search terms for a topic.
type Planner struct {
	gen Generator
	log *zap.Logger
}

// New returns a Planner backed by gen.
func New(gen Generator, log *zap.Logger) *Planner {
	return &Planner{gen: gen, log: logging.OrNop(log).Named("plan")}
}

// Plan asks the generator for search terms and parses its numbered list.
// Zero parsed terms is types.ErrEmptyPlan.
func (p *Planner) Plan(ctx context.Context, req types.TopicRequest) ([]string, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	prompt, err := RenderPrompt(req)
	if err != nil {
		return nil, fmt.Errorf("rendering plan prompt: %w", err)
	}

	text, err := p.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generating search terms: %w", err)
	}

	terms := ParseTerms(text)
	if len(terms) == 0 {
		p.log.Warn("no search terms in model output", zap.String("raw", logging.Truncate(text, 500)))
		return nil, fmt.Errorf("%w: model output had no numbered entries", types.ErrEmptyPlan)
	}
	p.log.Debug("search terms planned", zap.Strings("terms", terms))
	return terms, nil
}

// RenderPrompt executes the plan prompt template for req.
func RenderPrompt(req types.TopicRequest) (string, error) {
	var buf bytes.Buffer
	if err := planPromptTmpl.Execute(&buf, req); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ParseTerms extracts the entries of a numbered list in source order. Lines
// that are not numbered entries are ignored. Surrounding brackets and
// Markdown emphasis the model sometimes adds are stripped. An entry left
// empty after stripping, such as "1. **", yields no term.
func ParseTerms(text string) []string {
	var terms []string
	for _, line := range strings.Split(text, "\n") {
		m := termLine.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		term := cleanTerm(m[1])
		if term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}

func cleanTerm(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "*_`")
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		switch {
		case strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"):
			s = s[1 : len(s)-1]
		case strings.HasPrefix(s, "「") && strings.HasSuffix(s, "」"):
			s = strings.TrimSuffix(strings.TrimPrefix(s, "「"), "」")
		case strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`):
			s = s[1 : len(s)-1]
		}
	}
	return strings.TrimSpace(s)
}
