// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists finished report runs, done or failed, in a local
// SQLite database and exports them as YAML or JSON.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/report-engine/internal/pipeline"
	"github.com/pdiddy/report-engine/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "reports.db"

	// timeLayout is fixed-width so stored timestamps sort as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

var (
	// ErrNotFound means no saved run matches the requested id.
	ErrNotFound = errors.New("run not found")

	// ErrAmbiguousID means an id prefix matches more than one saved run.
	ErrAmbiguousID = errors.New("run id prefix is ambiguous")
)

// Record is one saved run.
type Record struct {
	ID               string               `json:"id" yaml:"id"`
	Topic            string               `json:"topic" yaml:"topic"`
	Constraints      types.Constraints    `json:"constraints" yaml:"constraints"`
	Stage            types.Stage          `json:"stage" yaml:"stage"`
	SearchTerms      []string             `json:"search_terms" yaml:"search_terms"`
	Evidence         []types.EvidenceItem `json:"evidence" yaml:"evidence"`
	Draft            string               `json:"draft,omitempty" yaml:"draft,omitempty"`
	Degraded         bool                 `json:"degraded" yaml:"degraded"`
	Score            *int                 `json:"score,omitempty" yaml:"score,omitempty"`
	NeedsImprovement bool                 `json:"needs_improvement" yaml:"needs_improvement"`
	ReviewText       string               `json:"review_text,omitempty" yaml:"review_text,omitempty"`
	Revised          bool                 `json:"revised" yaml:"revised"`
	FinalReport      string               `json:"final_report,omitempty" yaml:"final_report,omitempty"`
	Warnings         []string             `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Error            string               `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt        time.Time            `json:"started_at" yaml:"started_at"`
	FinishedAt       time.Time            `json:"finished_at" yaml:"finished_at"`
}

// FromRun converts a pipeline run into a Record.
func FromRun(r *pipeline.Run) Record {
	rec := Record{
		ID:          r.ID,
		Topic:       r.Request.Topic,
		Constraints: r.Request.Constraints,
		Stage:       r.Stage,
		SearchTerms: r.Terms,
		Evidence:    r.Evidence,
		Draft:       r.Draft.Content,
		Degraded:    r.Draft.Degraded,
		Revised:     r.Revised,
		FinalReport: r.Final,
		Warnings:    r.Warnings,
		Error:       r.Error,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
	}
	if r.Verdict != nil {
		score := r.Verdict.Score
		rec.Score = &score
		rec.NeedsImprovement = r.Verdict.NeedsImprovement
		rec.ReviewText = r.Verdict.RawText
	}
	return rec
}

// Store manages the run history database.
type Store struct {
	db         *sql.DB
	dir        string
	maxResults int
}

// Open opens or creates the history database at cfg.Dir/index/reports.db
// and creates the schema if it does not exist.
func Open(cfg types.HistoryConfig) (*Store, error) {
	dbDir := filepath.Join(cfg.Dir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dbDir, dbFile)+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{db: db, dir: cfg.Dir, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			topic TEXT NOT NULL,
			description TEXT,
			academic_level TEXT,
			target_length TEXT,
			stage TEXT NOT NULL,
			search_terms TEXT,
			draft TEXT,
			degraded INTEGER NOT NULL DEFAULT 0,
			score INTEGER,
			needs_improvement INTEGER NOT NULL DEFAULT 0,
			review_text TEXT,
			revised INTEGER NOT NULL DEFAULT 0,
			final_report TEXT,
			warnings TEXT,
			error TEXT,
			started_at TEXT NOT NULL,
			finished_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE TABLE IF NOT EXISTS evidence (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			title TEXT,
			url TEXT,
			snippet TEXT,
			source_label TEXT,
			term TEXT,
			synthetic INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_evidence_run_id ON evidence(run_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save inserts rec, replacing any earlier record with the same id.
func (s *Store) Save(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: run has no id", types.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	termsJSON, _ := json.Marshal(rec.SearchTerms)
	warningsJSON, _ := json.Marshal(rec.Warnings)
	var score sql.NullInt64
	if rec.Score != nil {
		score = sql.NullInt64{Int64: int64(*rec.Score), Valid: true}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, rec.ID); err != nil {
		return fmt.Errorf("deleting previous record: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, topic, description, academic_level, target_length, stage,
			search_terms, draft, degraded, score, needs_improvement, review_text, revised,
			final_report, warnings, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Topic, rec.Constraints.Description, rec.Constraints.AcademicLevel,
		rec.Constraints.TargetLength, string(rec.Stage), string(termsJSON), rec.Draft,
		rec.Degraded, score, rec.NeedsImprovement, rec.ReviewText, rec.Revised,
		rec.FinalReport, string(warningsJSON), rec.Error,
		formatTime(rec.StartedAt), formatTime(rec.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO evidence (run_id, position, title, url, snippet, source_label, term, synthetic)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range rec.Evidence {
		if _, err := stmt.ExecContext(ctx,
			rec.ID, i, e.Title, e.URL, e.Snippet, e.SourceLabel, e.Term, e.Synthetic,
		); err != nil {
			return fmt.Errorf("inserting evidence %d: %w", i, err)
		}
	}

	return tx.Commit()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return time.Time{}
	}
	return t
}
