// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/report-engine/pkg/types"
)

func TestQueryFile_WriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search.yaml")
	items := []types.EvidenceItem{
		{Title: "再生可能エネルギー白書", URL: "https://example.go.jp/a", Snippet: "概要", SourceLabel: "example.go.jp", Term: "再生可能エネルギー"},
	}
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	require.NoError(t, WriteQueryFile(path, "再生可能エネルギー", types.SearchConfig{MaxResults: 5}, items, now))

	qf, err := ReadQueryFile(path)
	require.NoError(t, err)
	assert.Equal(t, "再生可能エネルギー", qf.Query)
	assert.Equal(t, 5, qf.MaxResults)
	assert.Equal(t, items, qf.Results)
	assert.True(t, qf.Timestamp.Equal(now))
}

func TestReadQueryFile_Missing(t *testing.T) {
	_, err := ReadQueryFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
