package growth

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// #region factors
// Factors holds annual growth rate series used to extrapolate indexed
// parameter values past their last known year. Inflation covers
// price-indexed parameters; WageGrowth covers wage-indexed ones
// (e.g. taxable maximum earnings thresholds).
type Factors struct {
	FirstYear  int
	LastYear   int
	Inflation  map[int]float64
	WageGrowth map[int]float64
}

// Zero returns a factor set with no growth over [first, last].
// Carrying a value forward under Zero copies it unchanged.
func Zero(first, last int) *Factors {
	return &Factors{
		FirstYear:  first,
		LastYear:   last,
		Inflation:  map[int]float64{},
		WageGrowth: map[int]float64{},
	}
}

// #endregion factors

// #region rates
// InflationRate returns the price growth rate from year to year+1.
// Years outside the loaded series return 0.
func (f *Factors) InflationRate(year int) float64 {
	return f.Inflation[year]
}

// WageRate returns the wage growth rate from year to year+1.
func (f *Factors) WageRate(year int) float64 {
	return f.WageGrowth[year]
}

// Rate selects the series appropriate for a parameter's indexing class.
func (f *Factors) Rate(wageIndexed bool, year int) float64 {
	if wageIndexed {
		return f.WageRate(year)
	}
	return f.InflationRate(year)
}

// #endregion rates

// #region load

type factorsFile struct {
	FirstYear  int                `json:"first_year"`
	LastYear   int                `json:"last_year"`
	Inflation  map[string]float64 `json:"inflation"`
	WageGrowth map[string]float64 `json:"wage_growth"`
}

// Load reads a growth factors JSON file.
func Load(path string) (*Factors, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read growth factors: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a growth factors document.
func Parse(raw []byte) (*Factors, error) {
	var ff factorsFile
	if err := json.Unmarshal(raw, &ff); err != nil {
		return nil, fmt.Errorf("parse growth factors: %w", err)
	}
	if ff.FirstYear <= 0 || ff.LastYear < ff.FirstYear {
		return nil, fmt.Errorf("growth factors: invalid year range [%d,%d]", ff.FirstYear, ff.LastYear)
	}

	f := Zero(ff.FirstYear, ff.LastYear)
	for series, src := range map[string]map[string]float64{
		"inflation":   ff.Inflation,
		"wage_growth": ff.WageGrowth,
	} {
		dst := f.Inflation
		if series == "wage_growth" {
			dst = f.WageGrowth
		}
		for ys, rate := range src {
			year, err := strconv.Atoi(ys)
			if err != nil || year < ff.FirstYear || year > ff.LastYear {
				return nil, fmt.Errorf("growth factors: %s year %q outside [%d,%d]", series, ys, ff.FirstYear, ff.LastYear)
			}
			if rate < -1.0 {
				return nil, fmt.Errorf("growth factors: %s rate %g for %d below -1", series, rate, year)
			}
			dst[year] = rate
		}
	}
	return f, nil
}

// #endregion load
