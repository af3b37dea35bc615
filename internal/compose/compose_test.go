// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package compose

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/report-engine/pkg/types"
)

type fakeGenerator struct {
	text   string
	err    error
	prompt string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.text, f.err
}

var request = types.TopicRequest{
	Topic: "再生可能エネルギー",
	Constraints: types.Constraints{
		Description:   "太陽光と風力",
		AcademicLevel: "大学学部",
		TargetLength:  "1500",
	},
}

var evidence = []types.EvidenceItem{
	{Title: "太陽光発電の現状", URL: "https://a.example/solar", Snippet: "導入量が増加"},
	{Title: "Wind power", URL: "https://b.example/wind", Snippet: "capacity grows"},
}

func TestFormatSources(t *testing.T) {
	want := "1. タイトル: 太陽光発電の現状\n   URL: https://a.example/solar\n   概要: 導入量が増加\n\n" +
		"2. タイトル: Wind power\n   URL: https://b.example/wind\n   概要: capacity grows"
	assert.Equal(t, want, FormatSources(evidence))
	assert.Contains(t, FormatSources(nil), "一般的な知識")
}

func TestRenderPrompt(t *testing.T) {
	prompt, err := RenderPrompt(request, evidence)
	require.NoError(t, err)

	assert.Contains(t, prompt, "【レポートトピック】\n再生可能エネルギー")
	assert.Contains(t, prompt, "【文字数目安】\n1500字程度")
	assert.Contains(t, prompt, "10. 文字数は1500字の±20%以内に収めること")
	assert.Contains(t, prompt, "https://b.example/wind")
	assert.NotContains(t, prompt, "11. ")
}

func TestRenderPrompt_NoTargetLength(t *testing.T) {
	req := types.TopicRequest{Topic: "AI"}
	prompt, err := RenderPrompt(req, evidence)
	require.NoError(t, err)
	assert.NotContains(t, prompt, "【文字数目安】")
	assert.NotContains(t, prompt, "10. ")
	assert.NotContains(t, prompt, "【詳細説明】")
}

func TestRenderPrompt_PlaceholderOnly(t *testing.T) {
	placeholder := []types.EvidenceItem{{Title: "一般情報 - AI", URL: "https://example.com/general-knowledge", Synthetic: true}}
	prompt, err := RenderPrompt(types.TopicRequest{Topic: "AI"}, placeholder)
	require.NoError(t, err)
	assert.Contains(t, prompt, "11. 十分な参考文献が得られなかったため")
}

func TestCompose_Success(t *testing.T) {
	gen := &fakeGenerator{text: "# 再生可能エネルギー\n\n本文"}
	draft, err := New(gen, nil).Compose(context.Background(), request, []string{"太陽光"}, evidence)
	require.NoError(t, err)
	assert.Equal(t, "# 再生可能エネルギー\n\n本文", draft.Content)
	assert.False(t, draft.Degraded)
	assert.Contains(t, gen.prompt, "太陽光発電の現状")
}

func TestCompose_DegradesOnGenerationFailure(t *testing.T) {
	for _, cause := range []error{types.ErrAuth, types.ErrRateLimit, types.ErrTransient, types.ErrRequestFailed} {
		t.Run(cause.Error(), func(t *testing.T) {
			gen := &fakeGenerator{err: fmt.Errorf("Gemini API: %w", cause)}
			draft, err := New(gen, nil).Compose(context.Background(), request, []string{"太陽光 発電"}, evidence)
			require.NoError(t, err)
			assert.True(t, draft.Degraded)
			assert.Contains(t, draft.Cause, cause.Error())
			assert.Equal(t, FallbackDocument("太陽光 発電"), draft.Content)
		})
	}
}

func TestCompose_ConfigurationErrorIsFatal(t *testing.T) {
	gen := &fakeGenerator{err: fmt.Errorf("%w: key missing", types.ErrConfiguration)}
	_, err := New(gen, nil).Compose(context.Background(), request, nil, evidence)
	assert.ErrorIs(t, err, types.ErrDraftGeneration)
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestCompose_EmptyTextIsFatal(t *testing.T) {
	gen := &fakeGenerator{text: "  \n"}
	_, err := New(gen, nil).Compose(context.Background(), request, nil, evidence)
	assert.ErrorIs(t, err, types.ErrDraftGeneration)
}

func TestCompose_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := &fakeGenerator{err: context.Canceled}
	_, err := New(gen, nil).Compose(ctx, request, nil, evidence)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFallbackDocument(t *testing.T) {
	doc := FallbackDocument("量子計算")
	assert.Contains(t, doc, "# 量子計算に関するレポート\n")
	assert.Contains(t, doc, "## はじめに")
	assert.Contains(t, doc, "## 参考文献\n- 一般情報ソース")

	assert.Contains(t, FallbackDocument(""), "# 指定されたトピックに関するレポート")
}
