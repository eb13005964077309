package check

import (
	"fmt"

	"github.com/danielpatrickdp/policy-reforms/internal/policy"
)

// #region harness
// Harness runs lightweight post-apply validation on a snapshot.
type Harness struct {
	config Config
}

// NewHarness creates a check harness with the given configuration.
func NewHarness(config Config) *Harness {
	return &Harness{config: config}
}

// Run re-verifies a derived snapshot against the registry: full year
// coverage, per-year arity, and registry bounds for every parameter.
// The annual-growth check is informational and never blocks.
func (h *Harness) Run(snap policy.Snapshot, reg *policy.Registry) Result {
	var metrics []Metric
	passed := true
	var failReasons []string

	record := func(m Metric, reason string) {
		metrics = append(metrics, m)
		if !m.Pass {
			passed = false
			failReasons = append(failReasons, reason)
		}
	}

	numYears := reg.NumYears()

	// 1. Coverage: every registry parameter has a full-width series.
	covered := 0
	for _, name := range reg.Names() {
		if series, ok := snap.Series(name); ok && len(series) == numYears {
			covered++
		}
	}
	coveragePass := covered == len(reg.Specs)
	record(Metric{Name: "coverage", Value: float64(covered), Pass: coveragePass},
		fmt.Sprintf("only %d of %d parameters have full year coverage", covered, len(reg.Specs)))

	// 2. Arity and bounds per parameter.
	arityViolations := 0
	boundsViolations := 0
	for _, name := range reg.Names() {
		spec, _ := reg.Lookup(name)
		series, ok := snap.Series(name)
		if !ok {
			continue
		}
		for _, v := range series {
			if spec.Kind == policy.KindArray && v.Arity() != spec.Arity {
				arityViolations++
				continue
			}
			if h.config.EnforceBounds {
				boundsViolations += countBoundsViolations(spec, v)
			}
		}
	}
	record(Metric{Name: "arity", Value: float64(arityViolations), Pass: arityViolations == 0},
		fmt.Sprintf("%d year cells violate declared arity", arityViolations))
	record(Metric{Name: "bounds", Value: float64(boundsViolations), Pass: boundsViolations == 0},
		fmt.Sprintf("%d year cells outside registry bounds", boundsViolations))

	// 3. Annual growth cap: informational only.
	if h.config.MaxAnnualGrowth > 0 {
		jumps := countGrowthJumps(snap, reg, h.config.MaxAnnualGrowth)
		metrics = append(metrics, Metric{Name: "annual_growth", Value: float64(jumps), Pass: jumps == 0})
	}

	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("check failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("check failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return Result{Passed: passed, Metrics: metrics, Reason: reason}
}

// #endregion harness

// #region helpers

func countBoundsViolations(spec *policy.ParamSpec, v policy.Value) int {
	if spec.Kind != policy.KindNumber && spec.Kind != policy.KindArray {
		return 0
	}
	nums := v.Arr
	if spec.Kind == policy.KindNumber {
		nums = []float64{v.Num}
	}
	n := 0
	for _, x := range nums {
		if spec.Min != nil && x < *spec.Min {
			n++
		}
		if spec.Max != nil && x > *spec.Max {
			n++
		}
	}
	return n
}

// countGrowthJumps counts year-over-year relative changes beyond cap
// for scalar number parameters. Zero-valued years are skipped.
func countGrowthJumps(snap policy.Snapshot, reg *policy.Registry, cap float64) int {
	jumps := 0
	for _, name := range reg.Names() {
		spec, _ := reg.Lookup(name)
		if spec.Kind != policy.KindNumber {
			continue
		}
		series, ok := snap.Series(name)
		if !ok {
			continue
		}
		for i := 1; i < len(series); i++ {
			prev := series[i-1].Num
			if prev == 0 {
				continue
			}
			rel := series[i].Num/prev - 1
			if rel > cap || rel < -cap {
				jumps++
			}
		}
	}
	return jumps
}

// #endregion helpers
