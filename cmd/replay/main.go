package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/policy-reforms/internal/growth"
	"github.com/danielpatrickdp/policy-reforms/internal/policy"
	"github.com/danielpatrickdp/policy-reforms/internal/provenance"
	"github.com/danielpatrickdp/policy-reforms/internal/reform"
	"github.com/danielpatrickdp/policy-reforms/internal/replay"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to policy DB (DB mode)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	registryPath := flag.String("registry", "", "baseline registry for DB mode")
	growthPath := flag.String("growth", "", "growth factors for DB mode (optional)")
	last := flag.Int("last", 100, "number of trail entries to replay in DB mode")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json")
		fmt.Fprintln(os.Stderr, "       replay --db path/to/policy.db --registry path/to/registry.json [--growth path] [--last N]")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath)
	} else {
		exitCode = runDBMode(*dbPath, *registryPath, *growthPath, *last)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region fixture-mode

func runFixtureMode(path string) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	reg, err := f.BuildRegistry()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fixture registry: %v\n", err)
		return 2
	}
	factors, err := f.BuildFactors(reg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fixture growth: %v\n", err)
		return 2
	}
	steps, err := f.BuildSteps()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fixture steps: %v\n", err)
		return 2
	}

	results, final, err := replay.Replay(reg, factors, steps, f.BuildConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}

	code := printComparison(results, f.ExpectedDecisions)

	if len(f.ExpectedValues) > 0 {
		mismatches, err := f.VerifyValues(final)
		if err != nil {
			fmt.Fprintf(os.Stderr, "verify values: %v\n", err)
			return 2
		}
		fmt.Printf("\nValue assertions: %d total, %d failed\n",
			len(f.ExpectedValues), len(mismatches))
		for _, m := range mismatches {
			fmt.Printf("  MISMATCH %s\n", m)
		}
		if len(mismatches) > 0 {
			code = 1
		}
	}
	return code
}

// #endregion fixture-mode

// #region db-mode

// runDBMode re-runs the reform_apply trail from the baseline and
// compares recomputed decisions against the recorded ones.
func runDBMode(dbPath, registryPath, growthPath string, last int) int {
	if registryPath == "" {
		fmt.Fprintln(os.Stderr, "DB mode requires --registry")
		return 2
	}

	reg, err := policy.LoadRegistry(registryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load registry: %v\n", err)
		return 2
	}
	factors := growth.Zero(reg.StartYear, reg.EndYear)
	if growthPath != "" {
		factors, err = growth.Load(growthPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load growth factors: %v\n", err)
			return 2
		}
	}

	store, err := policy.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer store.Close()

	entries, err := provenance.Trail(store.DB(), last)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read trail: %v\n", err)
		return 2
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no reform_apply entries found in provenance_log")
		return 2
	}

	var steps []replay.Step
	var recorded []string
	for _, e := range entries {
		var ar provenance.ApplyRecord
		if e.RecordJSON == "" || json.Unmarshal([]byte(e.RecordJSON), &ar) != nil {
			continue
		}
		if ar.Document == nil {
			continue // pre-Document trail rows cannot be replayed
		}
		doc, err := reform.ParseDocument(ar.Document)
		if err != nil {
			fmt.Fprintf(os.Stderr, "parse trail document %s: %v\n", ar.ReformFile, err)
			return 2
		}
		steps = append(steps, replay.Step{Name: ar.ReformFile, Document: doc})
		recorded = append(recorded, e.Decision)
	}
	if len(steps) == 0 {
		fmt.Fprintln(os.Stderr, "no replayable documents in trail")
		return 2
	}

	results, _, err := replay.Replay(reg, factors, steps, replay.DefaultConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}
	return printComparison(results, recorded)
}

// #endregion db-mode

// #region output

// printComparison outputs a decision comparison table and returns the
// exit code. expected holds the reference actions (fixture or trail).
func printComparison(results []replay.Result, expected []string) int {
	fmt.Printf("%-24s| %-15s| %-15s| %s\n", "Step", "Expected", "Replayed", "Match")
	fmt.Printf("%-24s+%-16s+%-16s+%s\n",
		"------------------------", "----------------", "----------------", "------")

	rows, matches, compared := replay.Compare(results, expected)
	for _, row := range rows {
		fmt.Printf("%-24s| %-15s| %-15s| %s\n", row.Name, row.Expected, row.Replayed, row.Match)
	}

	s := replay.Summarize(results)
	fmt.Printf("\nSummary: %d steps, %d commit, %d no_op, %d reject, %d rollback",
		s.TotalSteps, s.Commits, s.NoOps, s.Rejects, s.Rollbacks)
	diverge := compared - matches
	fmt.Printf(" | %d match, %d diverge, %d uncompared\n",
		matches, diverge, len(rows)-compared)

	if diverge > 0 {
		return 1
	}
	return 0
}

// #endregion output
