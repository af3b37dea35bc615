// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API credentials from a directory of plain-text files.
// Each file holds one secret: the filename is the key name and the trimmed
// file contents are the value.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/report-engine/internal/logging"
	"github.com/pdiddy/report-engine/pkg/types"
)

// DefaultDir is where the CLI looks for secret files.
const DefaultDir = ".secrets"

// Key file names.
const (
	GeminiAPIKey   = "gemini-api-key"
	OpenAIAPIKey   = "openai-api-key"
	SearchAPIKey   = "search-api-key"
	SearchEngineID = "search-engine-id"
)

// Load reads all files in dir and returns a map of filename to trimmed
// contents. A missing directory is not an error and yields an empty map.
// Unreadable files are logged and skipped.
func Load(dir string, log *zap.Logger) (map[string]string, error) {
	log = logging.OrNop(log)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("could not read secret", zap.String("name", name), zap.Error(err))
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// Apply copies loaded secrets into cfg wherever the configuration left the
// credential empty, and returns the key names it used. The generation key
// follows the configured provider.
func Apply(cfg *types.PipelineConfig, s map[string]string) []string {
	var used []string
	fill := func(dst *string, key string) {
		if *dst != "" {
			return
		}
		if v, ok := s[key]; ok {
			*dst = v
			used = append(used, key)
		}
	}

	switch cfg.Generation.Provider {
	case types.ProviderOpenAI:
		fill(&cfg.Generation.APIKey, OpenAIAPIKey)
	default:
		fill(&cfg.Generation.APIKey, GeminiAPIKey)
	}
	fill(&cfg.Search.APIKey, SearchAPIKey)
	fill(&cfg.Search.EngineID, SearchEngineID)
	return used
}
