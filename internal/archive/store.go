// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive records completed pipeline runs in a SQLite database so
// the CLI can list and reprint earlier reports.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

const (
	dbFile          = "archive.db"
	defaultMaxRuns  = 20
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// ErrNotFound is returned when no run matches an ID.
var ErrNotFound = errors.New("run not found")

// Store manages the archive database.
type Store struct {
	db *sql.DB
}

// Open opens or creates dir/archive.db and its schema.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, dbFile)+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
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
			created_at TEXT NOT NULL,
			question TEXT NOT NULL,
			as_of TEXT NOT NULL,
			mode TEXT NOT NULL,
			strategy TEXT,
			inputs TEXT,
			text TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS quotes (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			text TEXT NOT NULL,
			score REAL NOT NULL,
			url TEXT NOT NULL,
			title TEXT,
			published_date TEXT,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_quotes_url ON quotes(url)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save stores rep under a new ID and returns the record.
func (s *Store) Save(ctx context.Context, rep types.Report) (types.RunRecord, error) {
	rec := types.RunRecord{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Report:    rep,
	}

	inputsJSON, err := json.Marshal(rep.Inputs)
	if err != nil {
		return types.RunRecord{}, fmt.Errorf("encoding inputs: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.RunRecord{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, question, as_of, mode, strategy, inputs, text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CreatedAt.Format(timestampLayout), rep.Question,
		rep.AsOf.Format(timestampLayout), string(rep.Mode), rep.Strategy,
		string(inputsJSON), rep.Text,
	); err != nil {
		return types.RunRecord{}, fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO quotes (run_id, position, text, score, url, title, published_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return types.RunRecord{}, fmt.Errorf("preparing quote insert: %w", err)
	}
	defer stmt.Close()

	for i, q := range rep.Quotes {
		var published sql.NullString
		if q.Source.PublishedDate != nil {
			published = sql.NullString{String: q.Source.PublishedDate.Format(timestampLayout), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			rec.ID, i+1, q.Text, q.Score, q.Source.URL, q.Source.Title, published,
		); err != nil {
			return types.RunRecord{}, fmt.Errorf("inserting quote %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return types.RunRecord{}, fmt.Errorf("committing run: %w", err)
	}
	return rec, nil
}

// Summary is one line of run history.
type Summary struct {
	ID        string           `json:"id" yaml:"id"`
	CreatedAt time.Time        `json:"created_at" yaml:"created_at"`
	Question  string           `json:"question" yaml:"question"`
	Mode      types.OutputMode `json:"mode" yaml:"mode"`
	Strategy  string           `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Quotes    int              `json:"quotes" yaml:"quotes"`
}

// ListOptions filters run history.
type ListOptions struct {
	// Limit caps the number of runs returned (default 20).
	Limit int

	// Contains keeps runs whose question contains this text.
	Contains string
}

// List returns runs newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Summary, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultMaxRuns
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT r.id, r.created_at, r.question, r.mode, r.strategy,
			(SELECT count(*) FROM quotes q WHERE q.run_id = r.id)
		FROM runs r WHERE 1=1`)
	if opts.Contains != "" {
		qb.WriteString(` AND instr(lower(r.question), lower(?)) > 0`)
		args = append(args, opts.Contains)
	}
	qb.WriteString(` ORDER BY r.created_at DESC LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum      Summary
			created  string
			mode     string
			strategy sql.NullString
		)
		if err := rows.Scan(&sum.ID, &created, &sum.Question, &mode, &strategy, &sum.Quotes); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		sum.CreatedAt, _ = time.Parse(timestampLayout, created)
		sum.Mode = types.OutputMode(mode)
		sum.Strategy = strategy.String
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Get loads a run by ID or by a unique ID prefix.
func (s *Store) Get(ctx context.Context, id string) (*types.RunRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, types.Invalid(errors.New("run id is empty"))
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, question, as_of, mode, strategy, inputs, text
		FROM runs WHERE id = ? OR id LIKE ? LIMIT 2`, id, id+"%")
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}

	var recs []types.RunRecord
	for rows.Next() {
		var (
			rec                 types.RunRecord
			created, asOf, mode string
			strategy, inputs    sql.NullString
		)
		if err := rows.Scan(&rec.ID, &created, &rec.Report.Question, &asOf, &mode, &strategy, &inputs, &rec.Report.Text); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(timestampLayout, created)
		rec.Report.AsOf, _ = time.Parse(timestampLayout, asOf)
		rec.Report.Mode = types.OutputMode(mode)
		rec.Report.Strategy = strategy.String
		if inputs.Valid && inputs.String != "" {
			if err := json.Unmarshal([]byte(inputs.String), &rec.Report.Inputs); err != nil {
				rows.Close()
				return nil, fmt.Errorf("decoding inputs: %w", err)
			}
		}
		recs = append(recs, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch {
	case len(recs) == 0:
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	case len(recs) > 1 && recs[0].ID != id && recs[1].ID != id:
		return nil, types.Invalid(fmt.Errorf("run id prefix %q is ambiguous", id))
	}
	rec := recs[0]
	if len(recs) > 1 && recs[1].ID == id {
		rec = recs[1]
	}

	quotes, err := s.quotes(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	rec.Report.Quotes = quotes
	return &rec, nil
}

func (s *Store) quotes(ctx context.Context, runID string) ([]types.Quote, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT text, score, url, title, published_date
		FROM quotes WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying quotes: %w", err)
	}
	defer rows.Close()

	var out []types.Quote
	for rows.Next() {
		var (
			q         types.Quote
			title     sql.NullString
			published sql.NullString
		)
		if err := rows.Scan(&q.Text, &q.Score, &q.Source.URL, &title, &published); err != nil {
			return nil, fmt.Errorf("scanning quote: %w", err)
		}
		q.Source.Title = title.String
		if published.Valid {
			if t, err := time.Parse(timestampLayout, published.String); err == nil {
				q.Source.PublishedDate = &t
			}
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// WriteYAML writes rec to w as YAML.
func WriteYAML(w io.Writer, rec *types.RunRecord) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("encoding run: %w", err)
	}
	return enc.Close()
}
