// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// Export formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

const exportLimit = 100000

// Export writes every run matching opts, with its evidence, to
// history/index/export.<format> and returns the file path.
func (s *Store) Export(ctx context.Context, format string, opts QueryOptions) (string, error) {
	var marshal func([]Record) ([]byte, error)
	switch format {
	case FormatYAML, "":
		format = FormatYAML
		marshal = func(r []Record) ([]byte, error) { return yaml.Marshal(r) }
	case FormatJSON:
		marshal = func(r []Record) ([]byte, error) { return json.MarshalIndent(r, "", "  ") }
	default:
		return "", fmt.Errorf("unsupported export format %q (want yaml or json)", format)
	}

	records, err := s.exportRecords(ctx, opts)
	if err != nil {
		return "", err
	}

	data, err := marshal(records)
	if err != nil {
		return "", fmt.Errorf("marshaling %s: %w", format, err)
	}
	path := filepath.Join(s.dir, indexDir, "export."+format)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing export: %w", err)
	}
	return path, nil
}

func (s *Store) exportRecords(ctx context.Context, opts QueryOptions) ([]Record, error) {
	opts.MaxResults = exportLimit
	sums, err := s.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}

	records := make([]Record, 0, len(sums))
	for _, sum := range sums {
		rec, err := s.Get(ctx, sum.ID)
		if err != nil {
			return nil, fmt.Errorf("loading run %s: %w", sum.ID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
