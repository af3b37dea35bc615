// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/report-engine/internal/logging"
	"github.com/pdiddy/report-engine/pkg/types"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
		want  map[string]string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, GeminiAPIKey, "  gk_abc123  \n")
				writeFile(t, dir, SearchAPIKey, "sk_xyz789")
				writeFile(t, dir, SearchEngineID, "cx-001\n")
				return dir
			},
			want: map[string]string{
				GeminiAPIKey:   "gk_abc123",
				SearchAPIKey:   "sk_xyz789",
				SearchEngineID: "cx-001",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, OpenAIAPIKey, "valid-key")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: map[string]string{OpenAIAPIKey: "valid-key"},
		},
		{
			name: "skips dotfiles and subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, SearchAPIKey, "sk_real")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{SearchAPIKey: "sk_real"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.setup(t), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read files without permission bits")
	}
	dir := t.TempDir()
	writeFile(t, dir, "good-key", "value123")

	badPath := filepath.Join(dir, "bad-key")
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	var logs bytes.Buffer
	got, err := Load(dir, logging.NewWithWriter(&logs, false))
	require.NoError(t, err)
	assert.Equal(t, "value123", got["good-key"])
	assert.NotContains(t, got, "bad-key")
	assert.Contains(t, logs.String(), "bad-key")
}

func TestApply(t *testing.T) {
	s := map[string]string{
		GeminiAPIKey:   "gk",
		OpenAIAPIKey:   "ok",
		SearchAPIKey:   "sk",
		SearchEngineID: "cx",
	}

	cfg := types.DefaultPipelineConfig()
	cfg.Search.APIKey = "from-config"
	used := Apply(&cfg, s)

	assert.Equal(t, "gk", cfg.Generation.APIKey)
	assert.Equal(t, "from-config", cfg.Search.APIKey, "explicit config wins")
	assert.Equal(t, "cx", cfg.Search.EngineID)
	assert.ElementsMatch(t, []string{GeminiAPIKey, SearchEngineID}, used)
}

func TestApply_OpenAIProvider(t *testing.T) {
	cfg := types.DefaultPipelineConfig()
	cfg.Generation.Provider = types.ProviderOpenAI
	Apply(&cfg, map[string]string{GeminiAPIKey: "gk", OpenAIAPIKey: "ok"})
	assert.Equal(t, "ok", cfg.Generation.APIKey)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
