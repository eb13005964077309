package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/danielpatrickdp/policy-reforms/internal/catalog"
	"github.com/danielpatrickdp/policy-reforms/internal/check"
	"github.com/danielpatrickdp/policy-reforms/internal/config"
	"github.com/danielpatrickdp/policy-reforms/internal/growth"
	"github.com/danielpatrickdp/policy-reforms/internal/policy"
	"github.com/danielpatrickdp/policy-reforms/internal/provenance"
	"github.com/danielpatrickdp/policy-reforms/internal/reform"
)

// #region main

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	dbPath := flag.String("db", "", "path to policy DB (overrides config)")
	registryPath := flag.String("registry", "", "path to baseline registry JSON (overrides config)")
	growthPath := flag.String("growth", "", "path to growth factors JSON (overrides config)")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: apply [--config file] [--db path] [--registry path] [--growth path] reform.json [reform2.json ...]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *registryPath != "" {
		cfg.RegistryPath = *registryPath
	}
	if *growthPath != "" {
		cfg.GrowthPath = *growthPath
	}
	if cfg.RegistryPath == "" {
		log.Fatal("no baseline registry configured (--registry, config file, or POLICY_REGISTRY)")
	}

	reg, err := policy.LoadRegistry(cfg.RegistryPath)
	if err != nil {
		log.Fatalf("load registry: %v", err)
	}

	factors := growth.Zero(reg.StartYear, reg.EndYear)
	if cfg.GrowthPath != "" {
		factors, err = growth.Load(cfg.GrowthPath)
		if err != nil {
			log.Fatalf("load growth factors: %v", err)
		}
	}

	store, err := policy.NewStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer store.Close()

	cat, err := catalog.New(store.DB())
	if err != nil {
		log.Fatalf("open catalog: %v", err)
	}

	// Ensure the baseline snapshot exists.
	initialized, err := store.Initialized()
	if err != nil {
		log.Fatalf("check store: %v", err)
	}
	if !initialized {
		log.Printf("No active policy found, expanding baseline %s...", reg.Name)
		snap, err := policy.BaselineSnapshot(reg, factors)
		if err != nil {
			log.Fatalf("expand baseline: %v", err)
		}
		if err := store.CreateBaseline(snap); err != nil {
			log.Fatalf("store baseline: %v", err)
		}
		logInit(store, snap)
	}

	applyCfg := reform.ApplyConfig{ExtendIndexed: cfg.ExtendIndexed}
	checkCfg := check.Config{EnforceBounds: cfg.EnforceBounds, MaxAnnualGrowth: cfg.MaxAnnualGrowth}
	harness := check.NewHarness(checkCfg)

	exitCode := 0
	for _, path := range flag.Args() {
		if err := applyOne(store, cat, harness, reg, factors, applyCfg, path); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}

// #endregion main

// #region apply-one

func applyOne(
	store *policy.Store,
	cat *catalog.Catalog,
	harness *check.Harness,
	reg *policy.Registry,
	factors *growth.Factors,
	applyCfg reform.ApplyConfig,
	path string,
) error {
	doc, err := reform.LoadDocument(path)
	if err != nil {
		return err
	}
	if doc.Empty() {
		fmt.Printf("[%s] no provisions, skipped\n", filepath.Base(path))
		return nil
	}
	if doc.Metadata.Baseline != "" && doc.Metadata.Baseline != reg.Name {
		log.Printf("warning: %s declares baseline %q but registry is %q",
			filepath.Base(path), doc.Metadata.Baseline, reg.Name)
	}

	current, err := store.GetCurrent()
	if err != nil {
		return fmt.Errorf("get current policy: %w", err)
	}

	result, err := reform.Apply(current, doc, reg, factors, applyCfg)
	if err != nil {
		// Validation failure: nothing applied, record the rejection
		// against the unchanged current version.
		logDecision(store, current.VersionID, doc, path, nil, "reject", err.Error())
		return err
	}

	if result.Decision.Action == "no_op" {
		fmt.Printf("[%s] no_op: %s\n", filepath.Base(path), result.Decision.Reason)
		logDecision(store, current.VersionID, doc, path, &result, "no_op", result.Decision.Reason)
		return nil
	}

	checkRes := harness.Run(result.NewSnapshot, reg)
	if !checkRes.Passed {
		logDecision(store, current.VersionID, doc, path, &result, "check_rollback", checkRes.Reason)
		return fmt.Errorf("post-apply check failed: %s", checkRes.Reason)
	}

	// Attach metrics before commit.
	metricsJSON, _ := json.Marshal(result.Metrics)
	result.NewSnapshot.MetricsJSON = string(metricsJSON)

	if err := store.CommitSnapshot(result.NewSnapshot); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	logDecision(store, result.NewSnapshot.VersionID, doc, path, &result, "commit", result.Decision.Reason)

	touches := make([]catalog.TouchRow, 0, len(result.Metrics.PerParam))
	for _, pm := range result.Metrics.PerParam {
		t := catalog.TouchRow{DocumentHash: doc.SourceHash, Param: pm.Param}
		if len(pm.Years) > 0 {
			t.FirstYear = pm.Years[0]
			t.LastYear = pm.Years[len(pm.Years)-1]
		} else {
			t.FirstYear = result.Metrics.FirstYear
			t.LastYear = result.Metrics.FirstYear
		}
		touches = append(touches, t)
	}
	err = cat.RecordApply(catalog.ReformRow{
		DocumentHash: doc.SourceHash,
		Title:        doc.Metadata.Title,
		Author:       doc.Metadata.Author,
		Baseline:     doc.Metadata.Baseline,
		ReformFile:   filepath.Base(path),
	}, touches)
	if err != nil {
		log.Printf("catalog error: %v", err)
	}

	fmt.Printf("[%s] commit version=%s params=%v cells=%d\n",
		filepath.Base(path), shortID(result.NewSnapshot.VersionID),
		result.Metrics.ParamsTouched, result.Metrics.CellsChanged)
	return nil
}

// #endregion apply-one

// #region provenance

func logInit(store *policy.Store, snap policy.Snapshot) {
	err := provenance.LogDecision(store.DB(), provenance.Entry{
		VersionID:   snap.VersionID,
		TriggerType: "baseline_init",
		Decision:    "commit",
		Reason:      fmt.Sprintf("baseline %s expanded over [%d,%d]", snap.Baseline, snap.StartYear, snap.EndYear),
	})
	if err != nil {
		log.Printf("provenance error: %v", err)
	}
}

func logDecision(store *policy.Store, versionID string, doc *reform.Document, path string, result *reform.ApplyResult, decision, reason string) {
	record := provenance.ApplyRecord{
		ReformFile:   filepath.Base(path),
		Title:        doc.Metadata.Title,
		Baseline:     doc.Metadata.Baseline,
		DocumentHash: doc.SourceHash,
	}
	if body, err := doc.Body(); err == nil {
		record.Document = body
	}
	if result != nil {
		record.ParamsTouched = result.Metrics.ParamsTouched
		record.FirstYear = result.Metrics.FirstYear
		record.CellsChanged = result.Metrics.CellsChanged
		record.Provisions = result.Metrics.Provisions
		record.CheckPassed = decision == "commit"
	}
	recordJSON, _ := json.Marshal(record)

	err := provenance.LogDecision(store.DB(), provenance.Entry{
		VersionID:    versionID,
		DocumentHash: doc.SourceHash,
		ReformFile:   filepath.Base(path),
		TriggerType:  "reform_apply",
		RecordJSON:   string(recordJSON),
		Decision:     decision,
		Reason:       reason,
	})
	if err != nil {
		log.Printf("provenance error: %v", err)
	}
}

// #endregion provenance

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
