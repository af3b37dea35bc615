// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/report-engine/pkg/types"
)

// QueryOptions filters history listings.
type QueryOptions struct {
	// Query matches as a substring of the topic or the final report.
	Query string

	// Stage keeps only runs that ended in this stage.
	Stage types.Stage

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// Summary is the list view of a saved run.
type Summary struct {
	ID            string      `json:"id" yaml:"id"`
	Topic         string      `json:"topic" yaml:"topic"`
	Stage         types.Stage `json:"stage" yaml:"stage"`
	Score         *int        `json:"score,omitempty" yaml:"score,omitempty"`
	Revised       bool        `json:"revised" yaml:"revised"`
	Degraded      bool        `json:"degraded" yaml:"degraded"`
	EvidenceCount int         `json:"evidence_count" yaml:"evidence_count"`
	StartedAt     string      `json:"started_at" yaml:"started_at"`
}

// List returns saved runs, newest first.
func (s *Store) List(ctx context.Context, opts QueryOptions) ([]Summary, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT r.id, r.topic, r.stage, r.score, r.revised, r.degraded, r.started_at,
			(SELECT count(*) FROM evidence e WHERE e.run_id = r.id)
		FROM runs r
		WHERE 1=1`)

	if opts.Query != "" {
		qb.WriteString(` AND (r.topic LIKE ? ESCAPE '\' OR r.final_report LIKE ? ESCAPE '\')`)
		pattern := "%" + escapeLike(opts.Query) + "%"
		args = append(args, pattern, pattern)
	}
	if opts.Stage != "" {
		qb.WriteString(` AND r.stage = ?`)
		args = append(args, string(opts.Stage))
	}
	qb.WriteString(` ORDER BY r.started_at DESC, r.id LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum   Summary
			stage string
			score sql.NullInt64
		)
		if err := rows.Scan(&sum.ID, &sum.Topic, &stage, &score, &sum.Revised, &sum.Degraded,
			&sum.StartedAt, &sum.EvidenceCount); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		sum.Stage = types.Stage(stage)
		if score.Valid {
			n := int(score.Int64)
			sum.Score = &n
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Get loads the run whose id equals or starts with id. A prefix matching
// several runs is ErrAmbiguousID.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Record{}, fmt.Errorf("%w: empty id", ErrNotFound)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, topic, description, academic_level, target_length, stage, search_terms,
			draft, degraded, score, needs_improvement, review_text, revised, final_report,
			warnings, error, started_at, finished_at
		FROM runs WHERE id = ? OR id LIKE ? ESCAPE '\'
		ORDER BY id = ? DESC LIMIT 2`,
		id, escapeLike(id)+"%", id)
	if err != nil {
		return Record{}, fmt.Errorf("querying run: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return Record{}, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return Record{}, err
	}
	rows.Close()

	switch {
	case len(recs) == 0:
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	case len(recs) > 1 && recs[0].ID != id:
		return Record{}, fmt.Errorf("%w: %s", ErrAmbiguousID, id)
	}

	rec := recs[0]
	rec.Evidence, err = s.evidence(ctx, rec.ID)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		rec                        Record
		desc, level, length        sql.NullString
		stage                      string
		termsJSON, warningsJSON    sql.NullString
		draft, reviewText, final   sql.NullString
		errText, started, finished sql.NullString
		score                      sql.NullInt64
	)
	if err := rows.Scan(&rec.ID, &rec.Topic, &desc, &level, &length, &stage, &termsJSON,
		&draft, &rec.Degraded, &score, &rec.NeedsImprovement, &reviewText, &rec.Revised,
		&final, &warningsJSON, &errText, &started, &finished); err != nil {
		return Record{}, fmt.Errorf("scanning run: %w", err)
	}

	rec.Constraints = types.Constraints{
		Description:   desc.String,
		AcademicLevel: level.String,
		TargetLength:  length.String,
	}
	rec.Stage = types.Stage(stage)
	rec.Draft = draft.String
	rec.ReviewText = reviewText.String
	rec.FinalReport = final.String
	rec.Error = errText.String
	rec.StartedAt = parseTime(started)
	rec.FinishedAt = parseTime(finished)
	if score.Valid {
		n := int(score.Int64)
		rec.Score = &n
	}
	if termsJSON.Valid {
		_ = json.Unmarshal([]byte(termsJSON.String), &rec.SearchTerms)
	}
	if warningsJSON.Valid {
		_ = json.Unmarshal([]byte(warningsJSON.String), &rec.Warnings)
	}
	return rec, nil
}

func (s *Store) evidence(ctx context.Context, runID string) ([]types.EvidenceItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, url, snippet, source_label, term, synthetic
		FROM evidence WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying evidence: %w", err)
	}
	defer rows.Close()

	var out []types.EvidenceItem
	for rows.Next() {
		var (
			e                          types.EvidenceItem
			title, url, snippet, label sql.NullString
			term                       sql.NullString
		)
		if err := rows.Scan(&title, &url, &snippet, &label, &term, &e.Synthetic); err != nil {
			return nil, fmt.Errorf("scanning evidence: %w", err)
		}
		e.Title, e.URL, e.Snippet, e.SourceLabel, e.Term = title.String, url.String, snippet.String, label.String, term.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
