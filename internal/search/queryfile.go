// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/report-engine/pkg/types"
)

// QueryFile is a saved search: the query, the settings that produced it,
// and its evidence items. It can be reloaded and printed without querying
// the API again.
type QueryFile struct {
	Query      string               `yaml:"query"`
	MaxResults int                  `yaml:"max_results"`
	Results    []types.EvidenceItem `yaml:"results"`
	Timestamp  time.Time            `yaml:"timestamp"`
}

// WriteQueryFile saves query and its results to a YAML file at path.
func WriteQueryFile(path, query string, cfg types.SearchConfig, items []types.EvidenceItem, now time.Time) error {
	qf := QueryFile{
		Query:      query,
		MaxResults: cfg.MaxResults,
		Results:    items,
		Timestamp:  now.UTC(),
	}
	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadQueryFile loads a previously saved query file.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	return &qf, nil
}
