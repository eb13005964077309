package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/policy-reforms/internal/policy"
	"github.com/danielpatrickdp/policy-reforms/internal/provenance"
	"github.com/danielpatrickdp/policy-reforms/internal/replay"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to policy DB")
	registryPath := flag.String("registry", "", "registry file path to reference from the fixture")
	last := flag.Int("last", 4, "number of most recent trail entries to export")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *outPath == "" || *registryPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/db --registry path/to/registry.json --out path/to/fixture.json [--last N]")
		os.Exit(2)
	}

	if err := run(*dbPath, *registryPath, *last, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

// trailRow holds a parsed provenance row with its ApplyRecord.
type trailRow struct {
	Record   provenance.ApplyRecord
	Decision string
}

func run(dbPath, registryPath string, last int, outPath string) error {
	store, err := policy.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	entries, err := provenance.Trail(store.DB(), last)
	if err != nil {
		return fmt.Errorf("read trail: %w", err)
	}

	var rows []trailRow
	for _, e := range entries {
		if e.RecordJSON == "" {
			continue
		}
		var ar provenance.ApplyRecord
		if err := json.Unmarshal([]byte(e.RecordJSON), &ar); err != nil {
			continue
		}
		if ar.Document == nil {
			continue // not replayable without the document body
		}
		rows = append(rows, trailRow{Record: ar, Decision: e.Decision})
	}
	if len(rows) == 0 {
		return fmt.Errorf("no replayable ApplyRecord rows found in last %d trail entries", last)
	}

	fmt.Printf("Found %d replayable trail rows\n", len(rows))

	current, err := store.GetCurrent()
	if err != nil {
		return fmt.Errorf("get current policy: %w", err)
	}

	fixture, err := buildFixture(registryPath, rows, current)
	if err != nil {
		return err
	}
	return writeFixture(fixture, outPath)
}

// #endregion extract

// #region output

// buildFixture assembles a replay fixture: the trail's documents as
// steps, recorded decisions as expectations, and the current value of
// every touched parameter at its first override year as value
// assertions.
func buildFixture(registryPath string, rows []trailRow, current policy.Snapshot) (replay.Fixture, error) {
	fixture := replay.Fixture{
		Description:  fmt.Sprintf("exported from policy DB trail (%d steps, baseline %s)", len(rows), current.Baseline),
		RegistryFile: registryPath,
	}

	seen := map[string]bool{}
	for _, r := range rows {
		fixture.Steps = append(fixture.Steps, replay.FixtureStep{
			Name:     r.Record.ReformFile,
			Document: r.Record.Document,
		})
		fixture.ExpectedDecisions = append(fixture.ExpectedDecisions, r.Decision)

		if r.Decision != "commit" {
			continue
		}
		for _, param := range r.Record.ParamsTouched {
			key := fmt.Sprintf("%s@%d", param, r.Record.FirstYear)
			if seen[key] {
				continue
			}
			seen[key] = true
			val, err := current.ValueAt(param, r.Record.FirstYear)
			if err != nil {
				continue
			}
			raw, err := json.Marshal(val)
			if err != nil {
				return replay.Fixture{}, fmt.Errorf("marshal value %s: %w", key, err)
			}
			fixture.ExpectedValues = append(fixture.ExpectedValues, replay.ExpectedValue{
				Param: param,
				Year:  r.Record.FirstYear,
				Value: raw,
			})
		}
	}
	return fixture, nil
}

func writeFixture(fixture replay.Fixture, outPath string) error {
	data, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(outPath, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}
	fmt.Printf("Wrote %s (%d steps, %d value assertions)\n",
		outPath, len(fixture.Steps), len(fixture.ExpectedValues))
	return nil
}

// #endregion output
