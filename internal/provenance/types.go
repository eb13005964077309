package provenance

import (
	"encoding/json"
	"time"
)

// #region entry
// Entry is one row of the provenance log: which reform produced which
// policy version, and what the pipeline decided.
type Entry struct {
	VersionID    string
	DocumentHash string
	ReformFile   string
	TriggerType  string // "baseline_init" | "reform_apply" | "replay"
	RecordJSON   string
	Decision     string // "commit" | "reject" | "no_op" | "check_rollback"
	Reason       string
	CreatedAt    time.Time
}

// #endregion entry

// #region apply-record
// ApplyRecord is the structured payload stored in record_json. It
// carries the comment-stripped document body so a DB trail can be
// replayed without the original reform files.
type ApplyRecord struct {
	ReformFile    string          `json:"reform_file"`
	Title         string          `json:"title,omitempty"`
	Baseline      string          `json:"baseline"`
	DocumentHash  string          `json:"document_hash"`
	Document      json.RawMessage `json:"document,omitempty"`
	ParamsTouched []string        `json:"params_touched"`
	FirstYear     int             `json:"first_year"`
	CellsChanged  int             `json:"cells_changed"`
	Provisions    int             `json:"provisions"`
	CheckPassed   bool            `json:"check_passed"`
	CheckReason   string          `json:"check_reason,omitempty"`
}

// #endregion apply-record
