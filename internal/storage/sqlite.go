package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/cessda/skgif-api/internal/study"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger used to report skipped lines during rebuilds.
func WithLogger(l *slog.Logger) Option {
	return func(d *DB) {
		d.logger = l
	}
}

// OpenDB opens or creates a SQLite database at the given path.
func OpenDB(path string, opts ...Option) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	d := &DB{db: db}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createSchema creates the database schema if it doesn't exist.
func createSchema(db *sql.DB) error {
	schema := `
		-- Raw harvested records keyed by aggregator identifier
		CREATE TABLE IF NOT EXISTS studies (
			aggregator_id TEXT PRIMARY KEY,
			study_number TEXT,
			raw_json TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_studies_number ON studies(study_number)
			WHERE study_number IS NOT NULL AND study_number != '';

		-- Full-text search virtual table (standalone, not external content)
		CREATE VIRTUAL TABLE IF NOT EXISTS studies_fts USING fts5(
			aggregator_id,
			titles,
			abstracts
		);
	`

	_, err := db.Exec(schema)
	return err
}

// RebuildFromJSONL clears the database and rebuilds it from a JSONL file.
// Lines that are not storable records are logged and skipped. When two lines
// carry the same identifier the later one wins. It returns the number of
// distinct studies indexed.
func (d *DB) RebuildFromJSONL(jsonlPath string) (int, error) {
	studies, skipped, err := ReadAll(jsonlPath)
	if err != nil {
		return 0, fmt.Errorf("reading JSONL: %w", err)
	}
	for _, s := range skipped {
		d.logger.Warn("skipping study line", slog.String("file", jsonlPath), slog.Any("error", s))
	}

	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM studies"); err != nil {
		return 0, fmt.Errorf("clearing studies table: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM studies_fts"); err != nil {
		return 0, fmt.Errorf("clearing studies_fts table: %w", err)
	}

	studiesStmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO studies (aggregator_id, study_number, raw_json)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing studies insert: %w", err)
	}
	defer studiesStmt.Close()

	ftsDeleteStmt, err := tx.Prepare(`DELETE FROM studies_fts WHERE aggregator_id = ?`)
	if err != nil {
		return 0, fmt.Errorf("preparing fts delete: %w", err)
	}
	defer ftsDeleteStmt.Close()

	ftsStmt, err := tx.Prepare(`
		INSERT INTO studies_fts (aggregator_id, titles, abstracts)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing fts insert: %w", err)
	}
	defer ftsStmt.Close()

	ids := make(map[string]bool, len(studies))
	for _, s := range studies {
		id := s.ID()
		rec := s.Record

		_, err := studiesStmt.Exec(id, nullableStringValue(rec.StudyNumber.String()), string(s.Raw))
		if err != nil {
			return 0, fmt.Errorf("inserting study %s: %w", id, err)
		}

		if ids[id] {
			if _, err := ftsDeleteStmt.Exec(id); err != nil {
				return 0, fmt.Errorf("replacing fts for %s: %w", id, err)
			}
		}
		ids[id] = true

		_, err = ftsStmt.Exec(id, titlesText(rec), abstractsText(rec))
		if err != nil {
			return 0, fmt.Errorf("inserting fts for %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing rebuild: %w", err)
	}
	return len(ids), nil
}

// titlesText creates a searchable text of the titles in every language.
func titlesText(rec *study.Record) string {
	var parts []string
	for _, t := range rec.Titles {
		if s := t.Title.String(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

func abstractsText(rec *study.Record) string {
	var parts []string
	for _, a := range rec.Abstracts {
		if s := a.Abstract.String(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// Get retrieves a study by its aggregator identifier, falling back to its
// study number. It returns nil without error when there is no such study.
func (d *DB) Get(ctx context.Context, id string) (*study.Record, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT raw_json FROM studies
		WHERE aggregator_id = ? OR study_number = ?
		ORDER BY aggregator_id = ? DESC
		LIMIT 1`, id, id, id)
	return scanStudy(row)
}

// List returns studies ordered by identifier.
func (d *DB) List(ctx context.Context, offset, limit int) ([]*study.Record, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT raw_json FROM studies
		ORDER BY aggregator_id
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing studies: %w", err)
	}
	defer rows.Close()

	return scanStudies(rows)
}

// Count returns the total number of studies.
func (d *DB) Count(ctx context.Context) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM studies").Scan(&count)
	return count, err
}

// Query selects studies by full-text match. Every term must match as a
// phrase; a zero Query matches every study.
type Query struct {
	// Text terms are matched against titles and abstracts.
	Text []string
	// Title terms are matched against titles only.
	Title []string
}

// match returns the FTS5 MATCH expression, or "" for a zero Query.
func (q Query) match() string {
	var parts []string
	for _, term := range q.Text {
		if t := prepareFTSQuery(term); t != "" {
			parts = append(parts, "{titles abstracts} : ("+t+")")
		}
	}
	for _, term := range q.Title {
		if t := prepareFTSQuery(term); t != "" {
			parts = append(parts, "titles : ("+t+")")
		}
	}
	return strings.Join(parts, " AND ")
}

// Search performs a full-text search over titles and abstracts.
func (d *DB) Search(ctx context.Context, q Query, offset, limit int) ([]*study.Record, error) {
	ftsQuery := q.match()
	if ftsQuery == "" {
		return d.List(ctx, offset, limit)
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT raw_json
		FROM studies
		WHERE aggregator_id IN (SELECT aggregator_id FROM studies_fts WHERE studies_fts MATCH ?)
		ORDER BY aggregator_id
		LIMIT ? OFFSET ?`, ftsQuery, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	defer rows.Close()

	return scanStudies(rows)
}

// SearchCount returns the number of studies matching a full-text query.
func (d *DB) SearchCount(ctx context.Context, q Query) (int, error) {
	ftsQuery := q.match()
	if ftsQuery == "" {
		return d.Count(ctx)
	}

	var count int
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT aggregator_id) FROM studies_fts WHERE studies_fts MATCH ?`,
		ftsQuery).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting search results: %w", err)
	}
	return count, nil
}

// scanner interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanStudy(s scanner) (*study.Record, error) {
	var raw string
	if err := s.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rec, err := study.Decode([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("decoding stored study: %w", err)
	}
	return rec, nil
}

func scanStudies(rows *sql.Rows) ([]*study.Record, error) {
	var recs []*study.Record
	for rows.Next() {
		rec, err := scanStudy(rows)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			recs = append(recs, rec)
		}
	}
	return recs, rows.Err()
}

// nullableStringValue converts a string to sql.NullString, treating empty as NULL.
func nullableStringValue(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// prepareFTSQuery turns a search term into an FTS5 prefix phrase: the words
// of the term in order, the last one matched as a prefix. The term is always
// quoted, so FTS5 operators and punctuation in it are plain text. Terms
// without any letter or digit yield "".
func prepareFTSQuery(term string) string {
	term = strings.TrimSpace(term)
	if !strings.ContainsFunc(term, isWordRune) {
		return ""
	}
	return `"` + strings.ReplaceAll(term, `"`, `""`) + `"*`
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}
