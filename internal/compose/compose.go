// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package compose writes the report draft from the topic request and the
// collected evidence. When generation fails it returns the fixed fallback
// document flagged as degraded rather than an error, so a run can finish.
package compose

import (
	"bytes"
	"context"
	"errors"
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

const defaultFallbackSubject = "指定されたトピック"

var draftPromptTmpl = template.Must(template.New("draft").Parse(`あなたは学術レポート作成の専門家です。以下の条件に従い、引用を適切に含む学術レポートを作成してください。

【レポートトピック】
{{.Topic}}
{{with .Constraints.Description}}
【詳細説明】
{{.}}
{{end}}{{with .Constraints.AcademicLevel}}
【学術レベル】
{{.}}
{{end}}{{with .Constraints.TargetLength}}
【文字数目安】
{{.}}字程度
{{end}}
【参考文献】
{{.Sources}}

【作成上の注意】
1. 抽象的で分かりにくい言い回しを避けること
2. 断定を避け、根拠を示しながら主張すること
3. 同じ視点を示す定型句を多用しないこと
4. 同じパターンの書き方を繰り返さないこと
5. 「〜した。〜した」のように同じ語尾を重ねないこと
6. 参考文献が十分にある場合は、引用部分を「」で示し、（）で出典を示すこと
   例）〜によると「引用部分」（出典）と述べられている。
7. 引用は元の文献の内容に忠実に行うこと（存在しない内容や文章を引用しないこと）
8. 参考文献に含まれない情報を引用として書かないこと
9. 出典が不明な場合は「〜と考えられる」などの表現を使い、無理に出典を示さないこと
{{- with .Constraints.TargetLength}}
10. 文字数は{{.}}字の±20%以内に収めること
{{- end}}
{{- if .GeneralKnowledge}}
11. 十分な参考文献が得られなかったため、一般的な知識に基づいて作成し、出典を捏造しないこと
{{- end}}

【レポートの構成】
- タイトル
- 序論（背景と目的）
- 本論（複数のセクションに分けて論じる）
- 結論（要約と考察）
- 参考文献リスト

レポート全体を出力してください。
`))

type promptData struct {
	types.TopicRequest
	Sources          string
	GeneralKnowledge bool
}

// Composer produces report drafts.
type Composer struct {
	gen Generator
	log *zap.Logger
}

// New returns a Composer backed by gen.
func New(gen Generator, log *zap.Logger) *Composer {
	return &Composer{gen: gen, log: logging.OrNop(log).Named("compose")}
}

// Compose generates the draft. A generation failure other than a
// configuration error or cancellation yields the fallback document with
// Degraded set. Configuration errors and empty output are
// types.ErrDraftGeneration.
func (c *Composer) Compose(ctx context.Context, req types.TopicRequest, terms []string, evidence []types.EvidenceItem) (types.Draft, error) {
	if err := req.Validate(); err != nil {
		return types.Draft{}, err
	}

	prompt, err := RenderPrompt(req, evidence)
	if err != nil {
		return types.Draft{}, fmt.Errorf("rendering draft prompt: %w", err)
	}

	text, err := c.gen.Generate(ctx, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return types.Draft{}, ctx.Err()
		}
		if errors.Is(err, types.ErrConfiguration) {
			return types.Draft{}, fmt.Errorf("%w: %w", types.ErrDraftGeneration, err)
		}
		c.log.Warn("draft generation failed, using fallback document", zap.Error(err))
		return types.Draft{
			Content:  FallbackDocument(firstTerm(terms)),
			Degraded: true,
			Cause:    err.Error(),
		}, nil
	}

	if strings.TrimSpace(text) == "" {
		return types.Draft{}, fmt.Errorf("%w: model returned an empty draft", types.ErrDraftGeneration)
	}
	c.log.Debug("draft generated", zap.Int("chars", len([]rune(text))))
	return types.Draft{Content: text}, nil
}

// RenderPrompt executes the draft prompt template. When the evidence is only
// the synthetic placeholder the prompt tells the model to rely on general
// knowledge.
func RenderPrompt(req types.TopicRequest, evidence []types.EvidenceItem) (string, error) {
	var buf bytes.Buffer
	err := draftPromptTmpl.Execute(&buf, promptData{
		TopicRequest:     req,
		Sources:          FormatSources(evidence),
		GeneralKnowledge: types.OnlySynthetic(evidence),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// FormatSources renders evidence as a numbered reference list, one block per
// item separated by a blank line.
func FormatSources(evidence []types.EvidenceItem) string {
	if len(evidence) == 0 {
		return "利用可能な参考文献がありません。一般的な知識に基づいてレポートを作成してください。"
	}
	blocks := make([]string, 0, len(evidence))
	for i, e := range evidence {
		blocks = append(blocks, fmt.Sprintf("%d. タイトル: %s\n   URL: %s\n   概要: %s", i+1, e.Title, e.URL, e.Snippet))
	}
	return strings.Join(blocks, "\n\n")
}

// FallbackDocument is the fixed document used when the draft cannot be
// generated. subject is the first search term; empty selects a generic
// subject.
func FallbackDocument(subject string) string {
	if strings.TrimSpace(subject) == "" {
		subject = defaultFallbackSubject
	}
	return fmt.Sprintf(`# %sに関するレポート

## はじめに
このレポートは、API接続の問題により制限された情報を基に作成されました。

## 概要
このトピックに関する一般的な情報を基にレポートを作成します。

## 結論
さらに詳細な情報を得るためには、インターネット接続やAPIの状態が改善された後に再試行することをお勧めします。

## 参考文献
- 一般情報ソース
`, subject)
}

func firstTerm(terms []string) string {
	if len(terms) == 0 {
		return ""
	}
	return terms[0]
}
