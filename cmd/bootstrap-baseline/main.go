package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/policy-reforms/internal/catalog"
	"github.com/danielpatrickdp/policy-reforms/internal/growth"
	"github.com/danielpatrickdp/policy-reforms/internal/policy"
	"github.com/danielpatrickdp/policy-reforms/internal/provenance"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to policy DB to create")
	registryPath := flag.String("registry", "", "path to baseline registry JSON")
	growthPath := flag.String("growth", "", "path to growth factors JSON (optional)")
	flag.Parse()

	if *dbPath == "" || *registryPath == "" {
		fmt.Fprintln(os.Stderr, "usage: bootstrap-baseline --db path/to/policy.db --registry path/to/registry.json [--growth path]")
		os.Exit(2)
	}

	if err := run(*dbPath, *registryPath, *growthPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region run

func run(dbPath, registryPath, growthPath string) error {
	reg, err := policy.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}

	factors := growth.Zero(reg.StartYear, reg.EndYear)
	if growthPath != "" {
		factors, err = growth.Load(growthPath)
		if err != nil {
			return fmt.Errorf("load growth factors: %w", err)
		}
	}

	store, err := policy.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	if _, err := catalog.New(store.DB()); err != nil {
		return fmt.Errorf("create catalog: %w", err)
	}

	snap, err := policy.BaselineSnapshot(reg, factors)
	if err != nil {
		return fmt.Errorf("expand baseline: %w", err)
	}
	if err := store.CreateBaseline(snap); err != nil {
		return fmt.Errorf("store baseline: %w", err)
	}

	err = provenance.LogDecision(store.DB(), provenance.Entry{
		VersionID:   snap.VersionID,
		TriggerType: "baseline_init",
		Decision:    "commit",
		Reason:      fmt.Sprintf("baseline %s expanded over [%d,%d]", reg.Name, reg.StartYear, reg.EndYear),
	})
	if err != nil {
		return fmt.Errorf("log baseline: %w", err)
	}

	fmt.Printf("Initialized %s\n", dbPath)
	fmt.Printf("  Baseline: %s | Years: [%d,%d] | Parameters: %d\n",
		reg.Name, reg.StartYear, reg.EndYear, len(reg.Specs))
	fmt.Printf("  Version: %s\n", snap.VersionID)
	return nil
}

// #endregion run
