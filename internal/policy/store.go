package policy

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS policy_versions (
	version_id    TEXT PRIMARY KEY,
	parent_id     TEXT,
	baseline      TEXT NOT NULL,
	start_year    INTEGER NOT NULL,
	end_year      INTEGER NOT NULL,
	values_json   TEXT NOT NULL,
	indexed_json  TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	metrics_json  TEXT,
	FOREIGN KEY (parent_id) REFERENCES policy_versions(version_id)
);

CREATE TABLE IF NOT EXISTS provenance_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	version_id    TEXT NOT NULL,
	document_hash TEXT,
	reform_file   TEXT,
	trigger_type  TEXT NOT NULL,
	record_json   TEXT,
	decision      TEXT NOT NULL,
	reason        TEXT,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES policy_versions(version_id)
);

CREATE TABLE IF NOT EXISTS active_policy (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	version_id    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES policy_versions(version_id)
);
`

// #endregion schema

// #region store-struct
// Store manages versioned policy snapshots in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages
// (provenance, catalog).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #region initialized
// Initialized reports whether an active policy version exists.
func (s *Store) Initialized() (bool, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM active_policy WHERE id = 1`).Scan(&n); err != nil {
		return false, fmt.Errorf("check active: %w", err)
	}
	return n > 0, nil
}

// #endregion initialized

// #region create-baseline
// CreateBaseline stores a parentless baseline snapshot and makes it
// active. Fails if the store already holds an active policy.
func (s *Store) CreateBaseline(snap Snapshot) error {
	ok, err := s.Initialized()
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("store already initialized with an active policy")
	}
	if snap.ParentID != "" {
		return fmt.Errorf("baseline snapshot must have no parent")
	}

	valuesJSON, indexedJSON, err := encodeTables(snap)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO policy_versions (version_id, parent_id, baseline, start_year, end_year, values_json, indexed_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.VersionID, nil, snap.Baseline, snap.StartYear, snap.EndYear,
		valuesJSON, indexedJSON, snap.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert baseline: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO active_policy (id, version_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET version_id = excluded.version_id`,
		snap.VersionID,
	)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}

	return tx.Commit()
}

// #endregion create-baseline

// #region commit-snapshot
// CommitSnapshot inserts a new version and updates the active pointer
// atomically.
func (s *Store) CommitSnapshot(snap Snapshot) error {
	valuesJSON, indexedJSON, err := encodeTables(snap)
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parentPtr interface{}
	if snap.ParentID != "" {
		parentPtr = snap.ParentID
	}
	var metricsPtr interface{}
	if snap.MetricsJSON != "" {
		metricsPtr = snap.MetricsJSON
	}

	_, err = tx.Exec(
		`INSERT INTO policy_versions (version_id, parent_id, baseline, start_year, end_year, values_json, indexed_json, created_at, metrics_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.VersionID, parentPtr, snap.Baseline, snap.StartYear, snap.EndYear,
		valuesJSON, indexedJSON, snap.CreatedAt.Format(time.RFC3339Nano), metricsPtr,
	)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}

	_, err = tx.Exec(
		`UPDATE active_policy SET version_id = ? WHERE id = 1`, snap.VersionID,
	)
	if err != nil {
		return fmt.Errorf("update active: %w", err)
	}

	return tx.Commit()
}

// #endregion commit-snapshot

// #region get-current
// GetCurrent reads the active policy version.
func (s *Store) GetCurrent() (Snapshot, error) {
	var versionID string
	err := s.db.QueryRow(`SELECT version_id FROM active_policy WHERE id = 1`).Scan(&versionID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("get active: %w", err)
	}
	return s.GetVersion(versionID)
}

// #endregion get-current

// #region get-version
// GetVersion retrieves a specific policy version by ID.
func (s *Store) GetVersion(id string) (Snapshot, error) {
	row := s.db.QueryRow(
		`SELECT version_id, parent_id, baseline, start_year, end_year, values_json, indexed_json, created_at, metrics_json
		 FROM policy_versions WHERE version_id = ?`, id,
	)
	snap, err := scanSnapshot(row)
	if err != nil {
		return Snapshot{}, fmt.Errorf("get version %s: %w", id, err)
	}
	return snap, nil
}

// #endregion get-version

// #region rollback
// Rollback sets the active pointer to a previous version.
func (s *Store) Rollback(targetVersionID string) error {
	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM policy_versions WHERE version_id = ?`, targetVersionID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("version %s not found", targetVersionID)
	}

	_, err = s.db.Exec(`UPDATE active_policy SET version_id = ? WHERE id = 1`, targetVersionID)
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// #endregion rollback

// #region list-versions
// ListVersions returns the most recent policy versions.
func (s *Store) ListVersions(limit int) ([]Snapshot, error) {
	rows, err := s.db.Query(
		`SELECT version_id, parent_id, baseline, start_year, end_year, values_json, indexed_json, created_at, metrics_json
		 FROM policy_versions ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// #endregion list-versions

// #region provenance-joins

// VersionWithProvenance pairs a policy version with its latest
// provenance row fields.
type VersionWithProvenance struct {
	Snapshot
	Decision   string
	Reason     string
	RecordJSON string
	ReformFile string
}

// GetVersionWithProvenance retrieves a version plus its provenance.
func (s *Store) GetVersionWithProvenance(id string) (VersionWithProvenance, error) {
	snap, err := s.GetVersion(id)
	if err != nil {
		return VersionWithProvenance{}, err
	}
	vp := VersionWithProvenance{Snapshot: snap}

	var decision, reason, recordJSON, reformFile sql.NullString
	err = s.db.QueryRow(
		`SELECT decision, reason, record_json, reform_file FROM provenance_log
		 WHERE version_id = ? ORDER BY id DESC LIMIT 1`, id,
	).Scan(&decision, &reason, &recordJSON, &reformFile)
	if err != nil && err != sql.ErrNoRows {
		return VersionWithProvenance{}, fmt.Errorf("get provenance for %s: %w", id, err)
	}
	vp.Decision = decision.String
	vp.Reason = reason.String
	vp.RecordJSON = recordJSON.String
	vp.ReformFile = reformFile.String
	return vp, nil
}

// ListVersionsWithProvenance returns recent versions joined to their
// latest provenance rows, newest first.
func (s *Store) ListVersionsWithProvenance(limit int) ([]VersionWithProvenance, error) {
	snaps, err := s.ListVersions(limit)
	if err != nil {
		return nil, err
	}
	out := make([]VersionWithProvenance, 0, len(snaps))
	for _, snap := range snaps {
		vp, err := s.GetVersionWithProvenance(snap.VersionID)
		if err != nil {
			return nil, err
		}
		out = append(out, vp)
	}
	return out, nil
}

// #endregion provenance-joins

// #region encoding

func encodeTables(snap Snapshot) (string, string, error) {
	valuesJSON, err := json.Marshal(snap.Values)
	if err != nil {
		return "", "", fmt.Errorf("marshal values: %w", err)
	}
	indexedJSON, err := json.Marshal(snap.Indexed)
	if err != nil {
		return "", "", fmt.Errorf("marshal indexed: %w", err)
	}
	return string(valuesJSON), string(indexedJSON), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (Snapshot, error) {
	var snap Snapshot
	var parentID sql.NullString
	var valuesJSON, indexedJSON, createdStr string
	var metricsJSON sql.NullString

	err := row.Scan(&snap.VersionID, &parentID, &snap.Baseline, &snap.StartYear, &snap.EndYear,
		&valuesJSON, &indexedJSON, &createdStr, &metricsJSON)
	if err != nil {
		return Snapshot{}, err
	}

	if parentID.Valid {
		snap.ParentID = parentID.String
	}
	if err := json.Unmarshal([]byte(valuesJSON), &snap.Values); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal values: %w", err)
	}
	if err := json.Unmarshal([]byte(indexedJSON), &snap.Indexed); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal indexed: %w", err)
	}
	snap.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	if metricsJSON.Valid {
		snap.MetricsJSON = metricsJSON.String
	}
	return snap, nil
}

// #endregion encoding
