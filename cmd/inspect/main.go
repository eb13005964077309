package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/policy-reforms/internal/catalog"
	"github.com/danielpatrickdp/policy-reforms/internal/policy"
	"github.com/danielpatrickdp/policy-reforms/internal/provenance"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to policy DB")
	last := flag.Int("last", 20, "show N most recent versions")
	version := flag.String("version", "", "show single version detail")
	param := flag.String("param", "", "show a parameter's year-by-year values")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/policy.db [--last N] [--version id] [--param name] [--json]")
		os.Exit(2)
	}

	store, err := policy.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	switch {
	case *param != "":
		err = runParamMode(store, *param, *version, *jsonOut)
	case *version != "":
		err = runDetailMode(store, *version, *jsonOut)
	default:
		err = runListMode(store, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	VersionID  string `json:"version_id"`
	ParentID   string `json:"parent_id,omitempty"`
	Baseline   string `json:"baseline"`
	Decision   string `json:"decision,omitempty"`
	Reason     string `json:"reason,omitempty"`
	ReformFile string `json:"reform_file,omitempty"`
	Params     int    `json:"params"`
	Cells      int    `json:"cells_changed,omitempty"`
	CreatedAt  string `json:"created_at"`
}

func runListMode(store *policy.Store, last int, jsonOut bool) error {
	versions, err := store.ListVersionsWithProvenance(last)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Fprintln(os.Stderr, "no versions found")
		return nil
	}

	// Store returns DESC, reverse for chronological order.
	rows := make([]listRow, len(versions))
	for i, vp := range versions {
		lr := listRow{
			VersionID:  vp.VersionID,
			ParentID:   vp.ParentID,
			Baseline:   vp.Baseline,
			Decision:   vp.Decision,
			Reason:     vp.Reason,
			ReformFile: vp.ReformFile,
			Params:     len(vp.Values),
			CreatedAt:  vp.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
		if ar := parseApplyRecord(vp.RecordJSON); ar != nil {
			lr.Cells = ar.CellsChanged
		}
		rows[len(versions)-1-i] = lr
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-12s  %-20s  %-10s  %6s  %6s  %s\n",
		"Version", "Reform", "Decision", "Params", "Cells", "Time")
	fmt.Printf("%-12s+-%-20s+-%-10s+-%6s+-%6s+-%s\n",
		"------------", "--------------------", "----------", "------", "------", "--------------------")
	for _, r := range rows {
		reformFile := r.ReformFile
		if reformFile == "" {
			reformFile = "(baseline)"
		}
		fmt.Printf("%-12s  %-20s  %-10s  %6d  %6d  %s\n",
			shortID(r.VersionID), reformFile, r.Decision, r.Params, r.Cells, r.CreatedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	VersionID string                  `json:"version_id"`
	ParentID  string                  `json:"parent_id"`
	Baseline  string                  `json:"baseline"`
	Years     [2]int                  `json:"years"`
	CreatedAt string                  `json:"created_at"`
	Decision  string                  `json:"decision,omitempty"`
	Reason    string                  `json:"reason,omitempty"`
	Record    *provenance.ApplyRecord `json:"apply_record,omitempty"`
	Touches   []catalog.TouchRow      `json:"touches,omitempty"`
}

func runDetailMode(store *policy.Store, versionID string, jsonOut bool) error {
	vp, err := store.GetVersionWithProvenance(versionID)
	if err != nil {
		return err
	}

	out := detailOutput{
		VersionID: vp.VersionID,
		ParentID:  vp.ParentID,
		Baseline:  vp.Baseline,
		Years:     [2]int{vp.StartYear, vp.EndYear},
		CreatedAt: vp.CreatedAt.Format("2006-01-02T15:04:05Z"),
		Decision:  vp.Decision,
		Reason:    vp.Reason,
		Record:    parseApplyRecord(vp.RecordJSON),
	}

	if out.Record != nil {
		cat, err := catalog.New(store.DB())
		if err == nil {
			out.Touches, _ = cat.ParamsForReform(out.Record.DocumentHash)
		}
	}

	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Version:   %s\n", out.VersionID)
	fmt.Printf("Parent:    %s\n", out.ParentID)
	fmt.Printf("Baseline:  %s\n", out.Baseline)
	fmt.Printf("Years:     [%d,%d]\n", out.Years[0], out.Years[1])
	fmt.Printf("Created:   %s\n", out.CreatedAt)
	fmt.Printf("Decision:  %s\n", out.Decision)
	fmt.Printf("Reason:    %s\n", out.Reason)

	if out.Record != nil {
		fmt.Printf("\nApply Record:\n")
		fmt.Printf("  Reform:         %s\n", out.Record.ReformFile)
		if out.Record.Title != "" {
			fmt.Printf("  Title:          %s\n", out.Record.Title)
		}
		fmt.Printf("  First Year:     %d\n", out.Record.FirstYear)
		fmt.Printf("  Params Touched: %v\n", out.Record.ParamsTouched)
		fmt.Printf("  Cells Changed:  %d\n", out.Record.CellsChanged)
	}
	if len(out.Touches) > 0 {
		fmt.Printf("\nCatalog touches:\n")
		for _, t := range out.Touches {
			fmt.Printf("  %-28s [%d,%d] x%d\n", t.Param, t.FirstYear, t.LastYear, t.Touches)
		}
	}
	return nil
}

// #endregion detail-mode

// #region param-mode

type paramRow struct {
	Year  int          `json:"year"`
	Value policy.Value `json:"value"`
}

func runParamMode(store *policy.Store, param, versionID string, jsonOut bool) error {
	var snap policy.Snapshot
	var err error
	if versionID != "" {
		snap, err = store.GetVersion(versionID)
	} else {
		snap, err = store.GetCurrent()
	}
	if err != nil {
		return err
	}

	series, ok := snap.Series(param)
	if !ok {
		return fmt.Errorf("parameter %s not in version %s", param, shortID(snap.VersionID))
	}

	rows := make([]paramRow, len(series))
	for i, v := range series {
		rows[i] = paramRow{Year: snap.StartYear + i, Value: v}
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%s (version %s, indexed=%v)\n", param, shortID(snap.VersionID), snap.Indexed[param])
	fmt.Printf("%-6s  %s\n", "Year", "Value")
	fmt.Printf("%-6s+-%s\n", "------", "--------------------")
	for _, r := range rows {
		fmt.Printf("%-6d  %s\n", r.Year, r.Value)
	}
	return nil
}

// #endregion param-mode

// #region output

func parseApplyRecord(recordJSON string) *provenance.ApplyRecord {
	if recordJSON == "" {
		return nil
	}
	var ar provenance.ApplyRecord
	if err := json.Unmarshal([]byte(recordJSON), &ar); err == nil && ar.DocumentHash != "" {
		return &ar
	}
	return nil
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
