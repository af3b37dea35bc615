// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package review grades a report draft against a fixed rubric, parses the
// grader's free-text answer into a structured verdict, and performs the
// single revision pass when the verdict asks for one.
package review

import (
	"bytes"
	"context"
	"fmt"
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

var reviewPromptTmpl = template.Must(template.New("review").Parse(`あなたは学術レポートの品質評価の専門家です。以下のレポートを厳格に評価し、問題点と改善が必要な箇所を具体的に指摘してください。

【評価するレポート】
{{.Draft}}

【評価基準】
1. 文字数: {{if .TargetLength}}{{.TargetLength}}字の±20%以内か{{else}}適切か{{end}}
2. 引用: 適切に引用されているか、引用と自分の意見の区別は明確か
3. 参考文献: 引用元が適切に示されているか
4. 論理構造: 序論、本論、結論の構成は明確か
5. 重複・冗長性: 同じ表現や文の構造を繰り返していないか
6. 文章スタイル: 学術的な文体が一貫しているか
7. 全体的な品質: 分かりやすく説得力のある内容か

【回答形式】
1. 総合評価（0〜100の整数で「総合評価: NN点」と記載）
2. 検出された問題点（1行に1つ、「問題点（重要度: 高/中/低）: 内容」の形式）
3. 改善が必要かどうかの判断（「改善必要」または「合格」）
4. 改善すべき具体的な箇所と提案

評価結果のみを出力してください。レポート本文は繰り返さないでください。
`))

var revisePromptTmpl = template.Must(template.New("revise").Parse(`あなたは学術レポートの改善の専門家です。以下のレポートを検証結果に基づいて改善してください。

【元のレポート】
{{.Draft}}

【検証結果】
{{.Review}}

【改善指示】
1. 指摘された問題点をすべて修正してください
2. レポートの構成と論理展開を保ったまま改善してください
3. 引用が適切か確認し、必要に応じて修正してください
4. 文体と表現の一貫性を保ってください
5. 明らかな事実誤認や論理的な矛盾を解消してください

改善したレポート全体を出力してください。修正箇所の説明は不要です。
`))

// Reviewer grades drafts.
type Reviewer struct {
	gen       Generator
	threshold int
	log       *zap.Logger
}

// NewReviewer returns a Reviewer. A threshold of 0 or less selects
// DefaultThreshold.
func NewReviewer(gen Generator, cfg types.ReviewConfig, log *zap.Logger) *Reviewer {
	t := cfg.PassThreshold
	if t <= 0 {
		t = DefaultThreshold
	}
	return &Reviewer{gen: gen, threshold: t, log: logging.OrNop(log).Named("review")}
}

// Review asks the generator to grade draft and parses the answer.
func (r *Reviewer) Review(ctx context.Context, draft string, c types.Constraints) (types.Verdict, error) {
	if strings.TrimSpace(draft) == "" {
		return types.Verdict{}, fmt.Errorf("%w: draft is empty", types.ErrValidation)
	}

	var buf bytes.Buffer
	if err := reviewPromptTmpl.Execute(&buf, struct {
		Draft        string
		TargetLength string
	}{draft, c.TargetLength}); err != nil {
		return types.Verdict{}, fmt.Errorf("rendering review prompt: %w", err)
	}

	text, err := r.gen.Generate(ctx, buf.String())
	if err != nil {
		return types.Verdict{}, fmt.Errorf("reviewing draft: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return types.Verdict{}, fmt.Errorf("%w: reviewer returned no text", types.ErrTransient)
	}

	v := ParseVerdict(text, r.threshold)
	r.log.Debug("draft reviewed",
		zap.Int("score", v.Score),
		zap.Bool("needs_improvement", v.NeedsImprovement),
		zap.Int("issues", len(v.Issues)))
	return v, nil
}

// Reviser rewrites a draft from review feedback.
type Reviser struct {
	gen Generator
	log *zap.Logger
}

// NewReviser returns a Reviser backed by gen.
func NewReviser(gen Generator, log *zap.Logger) *Reviser {
	return &Reviser{gen: gen, log: logging.OrNop(log).Named("revise")}
}

// Revise sends the draft and the raw review text and returns the corrected
// document. Empty output is an error.
func (r *Reviser) Revise(ctx context.Context, draft string, v types.Verdict) (string, error) {
	if strings.TrimSpace(draft) == "" {
		return "", fmt.Errorf("%w: draft is empty", types.ErrValidation)
	}

	var buf bytes.Buffer
	if err := revisePromptTmpl.Execute(&buf, struct {
		Draft  string
		Review string
	}{draft, v.RawText}); err != nil {
		return "", fmt.Errorf("rendering revise prompt: %w", err)
	}

	text, err := r.gen.Generate(ctx, buf.String())
	if err != nil {
		return "", fmt.Errorf("revising draft: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: reviser returned no text", types.ErrTransient)
	}
	r.log.Debug("draft revised", zap.Int("chars", len([]rune(text))))
	return text, nil
}
