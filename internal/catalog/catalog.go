package catalog

import (
	"database/sql"
	"fmt"
	"time"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS reforms (
    document_hash  TEXT PRIMARY KEY,
    title          TEXT,
    author         TEXT,
    baseline       TEXT,
    reform_file    TEXT,
    applied_count  INTEGER NOT NULL DEFAULT 1,
    created_at     TEXT NOT NULL,
    updated_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS reform_touches (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    document_hash  TEXT NOT NULL,
    param          TEXT NOT NULL,
    first_year     INTEGER NOT NULL,
    last_year      INTEGER NOT NULL,
    touches        INTEGER NOT NULL DEFAULT 1,
    created_at     TEXT NOT NULL,
    updated_at     TEXT NOT NULL,
    UNIQUE(document_hash, param),
    FOREIGN KEY (document_hash) REFERENCES reforms(document_hash)
);
CREATE INDEX IF NOT EXISTS idx_touches_param ON reform_touches(param);
`

// #endregion schema

// #region types

// ReformRow describes one catalogued reform document.
type ReformRow struct {
	DocumentHash string
	Title        string
	Author       string
	Baseline     string
	ReformFile   string
	AppliedCount int
}

// TouchRow links a reform to one parameter it overrides.
type TouchRow struct {
	DocumentHash string
	Param        string
	FirstYear    int
	LastYear     int
	Touches      int
}

// #endregion types

// #region catalog

// Catalog indexes applied reforms by the parameters they touch.
type Catalog struct {
	db *sql.DB
}

// New creates the catalog tables if needed and returns a catalog.
func New(db *sql.DB) (*Catalog, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create catalog tables: %w", err)
	}
	return &Catalog{db: db}, nil
}

// #endregion catalog

// #region record

// RecordApply upserts a reform and its parameter touches after a
// successful apply. Re-applying the same document reinforces its
// counters instead of inserting duplicates.
func (c *Catalog) RecordApply(row ReformRow, touches []TouchRow) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO reforms (document_hash, title, author, baseline, reform_file, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(document_hash) DO UPDATE SET
		   applied_count = applied_count + 1,
		   updated_at = excluded.updated_at`,
		row.DocumentHash, row.Title, row.Author, row.Baseline, row.ReformFile, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert reform: %w", err)
	}

	for _, t := range touches {
		_, err = tx.Exec(
			`INSERT INTO reform_touches (document_hash, param, first_year, last_year, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(document_hash, param) DO UPDATE SET
			   touches = touches + 1,
			   first_year = MIN(first_year, excluded.first_year),
			   last_year = MAX(last_year, excluded.last_year),
			   updated_at = excluded.updated_at`,
			row.DocumentHash, t.Param, t.FirstYear, t.LastYear, now, now,
		)
		if err != nil {
			return fmt.Errorf("upsert touch %s: %w", t.Param, err)
		}
	}

	return tx.Commit()
}

// #endregion record

// #region queries

// ParamsForReform lists the parameters a reform touches.
func (c *Catalog) ParamsForReform(documentHash string) ([]TouchRow, error) {
	return c.queryTouches(
		`SELECT document_hash, param, first_year, last_year, touches
		 FROM reform_touches WHERE document_hash = ? ORDER BY param`, documentHash)
}

// ReformsForParam lists the reforms touching a parameter.
func (c *Catalog) ReformsForParam(param string) ([]TouchRow, error) {
	return c.queryTouches(
		`SELECT document_hash, param, first_year, last_year, touches
		 FROM reform_touches WHERE param = ? ORDER BY document_hash`, param)
}

// TopParams returns the parameters most often touched by reforms.
func (c *Catalog) TopParams(limit int) ([]TouchRow, error) {
	rows, err := c.db.Query(
		`SELECT '' AS document_hash, param, MIN(first_year), MAX(last_year), SUM(touches)
		 FROM reform_touches GROUP BY param ORDER BY SUM(touches) DESC, param LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top params: %w", err)
	}
	defer rows.Close()
	return scanTouches(rows)
}

// Reforms lists catalogued reforms, most recently applied first.
func (c *Catalog) Reforms(limit int) ([]ReformRow, error) {
	rows, err := c.db.Query(
		`SELECT document_hash, title, author, baseline, reform_file, applied_count
		 FROM reforms ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query reforms: %w", err)
	}
	defer rows.Close()

	var out []ReformRow
	for rows.Next() {
		var r ReformRow
		var title, author, baseline, file sql.NullString
		if err := rows.Scan(&r.DocumentHash, &title, &author, &baseline, &file, &r.AppliedCount); err != nil {
			return nil, fmt.Errorf("scan reform row: %w", err)
		}
		r.Title = title.String
		r.Author = author.String
		r.Baseline = baseline.String
		r.ReformFile = file.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (c *Catalog) queryTouches(query string, arg interface{}) ([]TouchRow, error) {
	rows, err := c.db.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("query touches: %w", err)
	}
	defer rows.Close()
	return scanTouches(rows)
}

func scanTouches(rows *sql.Rows) ([]TouchRow, error) {
	var out []TouchRow
	for rows.Next() {
		var t TouchRow
		if err := rows.Scan(&t.DocumentHash, &t.Param, &t.FirstYear, &t.LastYear, &t.Touches); err != nil {
			return nil, fmt.Errorf("scan touch row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// #endregion queries
