package reform

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/policy-reforms/internal/growth"
	"github.com/danielpatrickdp/policy-reforms/internal/policy"
)

// #region apply-config
// ApplyConfig holds knobs for the override applier.
type ApplyConfig struct {
	// ExtendIndexed continues indexed growth past an override year.
	// Disabling it carries every override forward as a constant.
	ExtendIndexed bool
}

// DefaultApplyConfig returns current-law extension semantics.
func DefaultApplyConfig() ApplyConfig {
	return ApplyConfig{ExtendIndexed: true}
}

// #endregion apply-config

// #region decision
// Decision records what the applier decided.
type Decision struct {
	Action string // "commit" | "no_op"
	Reason string
}

// #endregion decision

// #region metrics
// ProvisionMetric captures per-parameter telemetry from an apply.
type ProvisionMetric struct {
	Param        string
	Years        []int
	CellsChanged int
}

// Metrics captures telemetry from one apply.
type Metrics struct {
	Provisions    int
	ParamsTouched []string
	FirstYear     int
	CellsChanged  int
	PerParam      []ProvisionMetric
	ApplyTimeMs   int64
}

// #endregion metrics

// #region apply-result
// ApplyResult bundles everything returned by Apply.
type ApplyResult struct {
	NewSnapshot policy.Snapshot
	Decision    Decision
	Metrics     Metrics
}

// #endregion apply-result

// #region apply

// Apply is a pure function layering a reform over a baseline snapshot.
// It validates the document against the registry first and applies
// nothing on failure; on success it returns a fresh child snapshot with
// set-and-carry-forward semantics: each override holds from its year
// until the next override, with indexed parameters continuing to grow
// by their factor series.
//
// The input snapshot is never modified.
func Apply(base policy.Snapshot, doc *Document, reg *policy.Registry, f *growth.Factors, cfg ApplyConfig) (ApplyResult, error) {
	start := time.Now()

	if err := NewValidator(reg).Validate(doc); err != nil {
		return ApplyResult{}, err
	}
	if base.StartYear != reg.StartYear || base.EndYear != reg.EndYear {
		return ApplyResult{}, fmt.Errorf("snapshot range [%d,%d] does not match registry [%d,%d]",
			base.StartYear, base.EndYear, reg.StartYear, reg.EndYear)
	}

	values, indexed := base.CloneValues()
	numYears := base.EndYear - base.StartYear + 1

	var perParam []ProvisionMetric
	totalCells := 0

	// Union of parameters with value overrides or indexing toggles.
	touched := doc.Params()
	for _, name := range doc.IndexingParams() {
		if _, ok := doc.Provisions[name]; !ok {
			touched = append(touched, name)
		}
	}

	for _, name := range touched {
		spec, _ := reg.Lookup(name)
		series, ok := values[name]
		if !ok || len(series) != numYears {
			// The snapshot predates this registry parameter (e.g. the
			// registry file grew after bootstrap).
			return ApplyResult{}, fmt.Errorf("parameter %s: snapshot %s has no value series for it; re-bootstrap the baseline",
				name, base.VersionID)
		}

		// Indexing status per year: start from the snapshot's current
		// status, toggles take effect from their year onward.
		status := make([]bool, numYears)
		for i := range status {
			status[i] = indexed[name]
		}
		for _, ty := range doc.IndexingYears(name) {
			for i := ty - base.StartYear; i < numYears; i++ {
				status[i] = doc.Indexing[name][ty]
			}
		}

		before := make([]policy.Value, numYears)
		for i, v := range series {
			before[i] = v
		}

		// Re-extension points: every value override year, plus every
		// toggle year without a same-year override (re-extend the held
		// value under the new indexing status).
		overrideYears := doc.Years(name)
		points := append([]int{}, overrideYears...)
		for _, ty := range doc.IndexingYears(name) {
			if _, ok := doc.Provisions[name][ty]; !ok {
				points = append(points, ty)
			}
		}
		sort.Ints(points)

		for _, year := range points {
			iy := year - base.StartYear
			if v, ok := doc.Provisions[name][year]; ok {
				series[iy] = v.Clone()
			}
			for i := iy + 1; i < numYears; i++ {
				extend := cfg.ExtendIndexed && status[i-1]
				series[i] = policy.CarryForward(series[i-1], extend, spec.WageIndexed, base.StartYear+i-1, f)
			}
		}

		cells := 0
		for i := range series {
			if !series[i].Equal(before[i]) {
				cells++
			}
		}
		if cells > 0 || len(doc.IndexingYears(name)) > 0 {
			perParam = append(perParam, ProvisionMetric{
				Param:        name,
				Years:        overrideYears,
				CellsChanged: cells,
			})
		}
		totalCells += cells
		indexed[name] = status[numYears-1]
	}

	newSnap := policy.Snapshot{
		VersionID: uuid.New().String(),
		ParentID:  base.VersionID,
		Baseline:  base.Baseline,
		StartYear: base.StartYear,
		EndYear:   base.EndYear,
		Values:    values,
		Indexed:   indexed,
		CreatedAt: time.Now().UTC(),
	}

	paramsTouched := make([]string, 0, len(perParam))
	for _, pm := range perParam {
		paramsTouched = append(paramsTouched, pm.Param)
	}

	metrics := Metrics{
		Provisions:    len(touched),
		ParamsTouched: paramsTouched,
		FirstYear:     doc.FirstYear(),
		CellsChanged:  totalCells,
		PerParam:      perParam,
		ApplyTimeMs:   time.Since(start).Milliseconds(),
	}

	decision := Decision{Action: "no_op", Reason: "no value changed"}
	if totalCells > 0 {
		decision = Decision{
			Action: "commit",
			Reason: fmt.Sprintf("parameters touched: %v, cells changed: %d", paramsTouched, totalCells),
		}
	}

	return ApplyResult{NewSnapshot: newSnap, Decision: decision, Metrics: metrics}, nil
}

// #endregion apply
