// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package output

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/report-engine/pkg/types"
)

var day = time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)

func TestFilename(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"Renewable Energy", "report_Renewable_Energy_2026-10-19.md"},
		{"AI & society: 2030?", "report_AI_society_2030_2026-10-19.md"},
		{"  spaced   out  ", "report_spaced_out_2026-10-19.md"},
		{"気候変動", "report_abcd1234_2026-10-19.md"},
		{"気候変動 and climate", "report_and_climate_2026-10-19.md"},
		{"a very long topic name that keeps going on", "report_a_very_long_topic_name_that_ke_2026-10-19.md"},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			assert.Equal(t, tt.want, Filename(tt.topic, "abcd1234", day))
		})
	}
}

func TestRenderHTML(t *testing.T) {
	page, err := RenderHTML("気候変動 <test>", "# 見出し\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")
	require.NoError(t, err)
	s := string(page)
	assert.Contains(t, s, "<title>気候変動 &lt;test&gt;</title>")
	assert.Contains(t, s, "<h1>見出し</h1>")
	assert.Contains(t, s, "<table>")
}

func TestWriter_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	w := NewWriter(types.OutputConfig{Dir: dir, HTML: true}, nil)
	w.now = func() time.Time { return day }

	files, err := w.Write("Solar Power", "run-id-123456", "# Solar\n\nbody")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report_Solar_Power_2026-10-19.md"), files.Markdown)
	assert.Equal(t, filepath.Join(dir, "report_Solar_Power_2026-10-19.html"), files.HTML)

	data, err := os.ReadFile(files.Markdown)
	require.NoError(t, err)
	assert.Equal(t, "# Solar\n\nbody", string(data))

	html, err := os.ReadFile(files.HTML)
	require.NoError(t, err)
	assert.Contains(t, string(html), "<h1>Solar</h1>")
}

func TestWriter_MarkdownOnly(t *testing.T) {
	w := NewWriter(types.OutputConfig{Dir: t.TempDir()}, nil)
	w.now = func() time.Time { return day }

	files, err := w.Write("再生可能エネルギー", "0b6f3c1e-aaaa", "本文")
	require.NoError(t, err)
	assert.Equal(t, "report_0b6f3c1e_2026-10-19.md", filepath.Base(files.Markdown))
	assert.Empty(t, files.HTML)
}

func TestWriter_EmptyContent(t *testing.T) {
	w := NewWriter(types.OutputConfig{Dir: t.TempDir()}, nil)
	_, err := w.Write("topic", "id", "  \n")
	assert.ErrorIs(t, err, types.ErrValidation)
}
