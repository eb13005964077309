package provenance

import (
	"database/sql"
	"fmt"
	"time"
)

// #region log-decision
// LogDecision writes a provenance entry to the provenance_log table.
func LogDecision(db *sql.DB, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO provenance_log (version_id, document_hash, reform_file, trigger_type, record_json, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.VersionID,
		nullIfEmpty(entry.DocumentHash),
		nullIfEmpty(entry.ReformFile),
		entry.TriggerType,
		nullIfEmpty(entry.RecordJSON),
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region trail
// Trail returns reform_apply entries in chronological order.
func Trail(db *sql.DB, limit int) ([]Entry, error) {
	rows, err := db.Query(
		`SELECT version_id, document_hash, reform_file, trigger_type, record_json, decision, reason, created_at FROM (
			SELECT version_id, document_hash, reform_file, trigger_type, record_json, decision, reason, created_at, id
			FROM provenance_log WHERE trigger_type = 'reform_apply'
			ORDER BY id DESC LIMIT ?
		) sub ORDER BY id ASC`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query trail: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var docHash, reformFile, recordJSON, reason sql.NullString
		var createdStr string
		if err := rows.Scan(&e.VersionID, &docHash, &reformFile, &e.TriggerType, &recordJSON, &e.Decision, &reason, &createdStr); err != nil {
			return nil, fmt.Errorf("scan trail row: %w", err)
		}
		e.DocumentHash = docHash.String
		e.ReformFile = reformFile.String
		e.RecordJSON = recordJSON.String
		e.Reason = reason.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion trail

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
