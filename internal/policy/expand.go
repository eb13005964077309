package policy

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/policy-reforms/internal/growth"
)

// valueCap keeps indexed extrapolation from overflowing the sentinel
// "effectively unbounded" registry values.
const valueCap = 9e99

// #region carry

// CarryForward derives the value for year+1 from the value at year.
// Unindexed parameters copy unchanged; indexed number parameters grow by
// the factor series rate and round to whole cents.
func CarryForward(v Value, indexed, wageIndexed bool, year int, f *growth.Factors) Value {
	if !indexed || f == nil {
		return v.Clone()
	}
	rate := f.Rate(wageIndexed, year)
	switch v.Kind {
	case KindNumber:
		return Number(grow(v.Num, rate))
	case KindArray:
		next := make([]float64, len(v.Arr))
		for i, x := range v.Arr {
			next[i] = grow(x, rate)
		}
		return Array(next)
	default:
		return v.Clone()
	}
}

func grow(x, rate float64) float64 {
	if x >= valueCap {
		return valueCap
	}
	next := x * (1 + rate)
	if next >= valueCap {
		return valueCap
	}
	return math.Round(next*100) / 100
}

// #endregion carry

// #region expand-series

// ExpandSeries fills the registry year window from a spec's sparse base
// values: explicit years are taken as-is, gaps carry the previous year
// forward (with indexing growth where the spec is indexed).
func ExpandSeries(spec *ParamSpec, startYear, endYear int, f *growth.Factors) ([]Value, error) {
	n := endYear - startYear + 1
	series := make([]Value, n)

	prev, ok := spec.Base[startYear]
	if !ok {
		return nil, fmt.Errorf("parameter %s: no base value at start year %d", spec.Name, startYear)
	}
	series[0] = prev.Clone()

	for i := 1; i < n; i++ {
		year := startYear + i
		if v, ok := spec.Base[year]; ok {
			series[i] = v.Clone()
		} else {
			series[i] = CarryForward(series[i-1], spec.Indexed, spec.WageIndexed, year-1, f)
		}
	}
	return series, nil
}

// #endregion expand-series

// #region baseline-snapshot

// BaselineSnapshot expands a registry into the initial (current-law)
// snapshot. It has no parent; every later snapshot descends from it.
func BaselineSnapshot(reg *Registry, f *growth.Factors) (Snapshot, error) {
	values := make(map[string][]Value, len(reg.Specs))
	indexed := make(map[string]bool, len(reg.Specs))

	for name, spec := range reg.Specs {
		series, err := ExpandSeries(spec, reg.StartYear, reg.EndYear, f)
		if err != nil {
			return Snapshot{}, err
		}
		values[name] = series
		indexed[name] = spec.Indexed
	}

	return Snapshot{
		VersionID: uuid.New().String(),
		ParentID:  "",
		Baseline:  reg.Name,
		StartYear: reg.StartYear,
		EndYear:   reg.EndYear,
		Values:    values,
		Indexed:   indexed,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// #endregion baseline-snapshot
