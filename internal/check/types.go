package check

// #region check-config
// Config holds thresholds for post-apply validation.
type Config struct {
	EnforceBounds   bool    // re-check registry min/max over the full table
	MaxAnnualGrowth float64 // warn when a scalar moves more than this year-over-year (0 = disabled)
}

// DefaultConfig returns the standard post-apply checks.
func DefaultConfig() Config {
	return Config{
		EnforceBounds:   true,
		MaxAnnualGrowth: 0.5,
	}
}

// #endregion check-config

// #region check-metric
// Metric captures a single validation check result.
type Metric struct {
	Name  string
	Value float64
	Pass  bool
}

// #endregion check-metric

// #region check-result
// Result is the output of post-apply validation.
type Result struct {
	Passed  bool
	Metrics []Metric
	Reason  string
}

// #endregion check-result
