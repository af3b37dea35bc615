// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewWithWriter_Verbose(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, true)
	l.Debug("planning", zap.String("topic", "量子コンピュータ"))
	_ = l.Sync()

	assert.Contains(t, buf.String(), "planning")
	assert.Contains(t, buf.String(), "量子コンピュータ")
}

func TestNewWithWriter_QuietDropsDebugAndInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, false)
	l.Debug("debug line")
	l.Info("info line")
	l.Warn("warn line", zap.Int("attempt", 2))
	_ = l.Sync()

	out := buf.String()
	assert.NotContains(t, out, "debug line")
	assert.NotContains(t, out, "info line")
	assert.Contains(t, out, `"msg":"warn line"`)
	assert.Contains(t, out, `"attempt":2`)
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l := zap.NewExample()
	assert.Same(t, l, OrNop(l))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "日本...(truncated)", Truncate("日本語", 2))
}
