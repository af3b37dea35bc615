// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package output writes finished reports to disk as Markdown and, when
// asked, as a standalone HTML page.
package output

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"github.com/pdiddy/report-engine/internal/logging"
	"github.com/pdiddy/report-engine/pkg/types"
)

const maxTopicChars = 30

var (
	nonWord    = regexp.MustCompile(`[^\w\s]`)
	whitespace = regexp.MustCompile(`\s+`)

	md = goldmark.New(goldmark.WithExtensions(extension.GFM))

	pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="ja">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<article>
{{.Body}}
</article>
</body>
</html>
`))
)

// Filename returns report_<topic>_<YYYY-MM-DD>.md. The topic keeps only
// ASCII word characters and whitespace, whitespace runs become "_", and the
// result is cut to 30 characters. When nothing survives, fallback is used.
func Filename(topic, fallback string, date time.Time) string {
	slug := nonWord.ReplaceAllString(topic, "")
	slug = whitespace.ReplaceAllString(strings.TrimSpace(slug), "_")
	if len(slug) > maxTopicChars {
		slug = slug[:maxTopicChars]
	}
	if slug == "" {
		slug = fallback
	}
	return fmt.Sprintf("report_%s_%s.md", slug, date.Format(time.DateOnly))
}

// RenderHTML converts Markdown to a complete HTML page titled title.
func RenderHTML(title, markdown string) ([]byte, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return nil, fmt.Errorf("converting markdown: %w", err)
	}
	var page bytes.Buffer
	err := pageTmpl.Execute(&page, struct {
		Title string
		Body  template.HTML
	}{title, template.HTML(body.String())}) //nolint: gosec
	if err != nil {
		return nil, fmt.Errorf("rendering page: %w", err)
	}
	return page.Bytes(), nil
}

// Files lists what Write produced.
type Files struct {
	Markdown string `json:"markdown"`
	HTML     string `json:"html,omitempty"`
}

// Writer saves reports under a directory.
type Writer struct {
	cfg types.OutputConfig
	log *zap.Logger
	now func() time.Time
}

// NewWriter returns a Writer for cfg.
func NewWriter(cfg types.OutputConfig, log *zap.Logger) *Writer {
	return &Writer{cfg: cfg, log: logging.OrNop(log).Named("output"), now: time.Now}
}

// Write saves content for topic. runID supplies the file name when the topic
// has no ASCII characters. An existing file with the same name is
// overwritten.
func (w *Writer) Write(topic, runID, content string) (Files, error) {
	if strings.TrimSpace(content) == "" {
		return Files{}, fmt.Errorf("%w: report is empty", types.ErrValidation)
	}
	if err := os.MkdirAll(w.cfg.Dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("creating output directory: %w", err)
	}

	fallback := runID
	if len(fallback) > 8 {
		fallback = fallback[:8]
	}
	name := Filename(topic, fallback, w.now())

	var files Files
	files.Markdown = filepath.Join(w.cfg.Dir, name)
	if err := os.WriteFile(files.Markdown, []byte(content), 0o644); err != nil {
		return Files{}, fmt.Errorf("writing report: %w", err)
	}

	if w.cfg.HTML {
		page, err := RenderHTML(topic, content)
		if err != nil {
			return files, err
		}
		files.HTML = strings.TrimSuffix(files.Markdown, ".md") + ".html"
		if err := os.WriteFile(files.HTML, page, 0o644); err != nil {
			return files, fmt.Errorf("writing html: %w", err)
		}
	}

	w.log.Debug("report written", zap.String("markdown", files.Markdown), zap.String("html", files.HTML))
	return files, nil
}
