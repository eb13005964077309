package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/danielpatrickdp/policy-reforms/internal/growth"
	"github.com/danielpatrickdp/policy-reforms/internal/policy"
	"github.com/danielpatrickdp/policy-reforms/internal/reform"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: a
// baseline, a sequence of reform documents, and the expected outcomes.
type Fixture struct {
	Description  string          `json:"description"`
	Registry     json.RawMessage `json:"registry,omitempty"`
	RegistryFile string          `json:"registry_file,omitempty"`
	Growth       json.RawMessage `json:"growth,omitempty"`
	GrowthFile   string          `json:"growth_file,omitempty"`
	Config       FixtureConfig   `json:"config"`

	Steps             []FixtureStep   `json:"steps"`
	ExpectedDecisions []string        `json:"expected_decisions,omitempty"`
	ExpectedValues    []ExpectedValue `json:"expected_values,omitempty"`
}

// FixtureConfig mirrors Config with JSON tags.
type FixtureConfig struct {
	ExtendIndexed   *bool   `json:"extend_indexed,omitempty"`
	EnforceBounds   *bool   `json:"enforce_bounds,omitempty"`
	MaxAnnualGrowth float64 `json:"max_annual_growth,omitempty"`
}

// FixtureStep is one reform document to apply.
type FixtureStep struct {
	Name     string          `json:"name"`
	File     string          `json:"file,omitempty"`
	Document json.RawMessage `json:"document,omitempty"`
}

// ExpectedValue asserts a parameter's value at one year in the final
// snapshot.
type ExpectedValue struct {
	Param string          `json:"param"`
	Year  int             `json:"year"`
	Value json.RawMessage `json:"value"`
}

// Mismatch reports one expected-value assertion that failed.
type Mismatch struct {
	Param string
	Year  int
	Want  policy.Value
	Got   policy.Value
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s @ %d: want %s, got %s", m.Param, m.Year, m.Want, m.Got)
}

// #endregion fixture-types

// #region load

// LoadFixture reads a fixture JSON file. Relative registry/growth/step
// file paths resolve against the fixture's directory.
func LoadFixture(path string) (*Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if f.Registry == nil && f.RegistryFile == "" {
		return nil, fmt.Errorf("fixture declares neither registry nor registry_file")
	}
	if len(f.Steps) == 0 {
		return nil, fmt.Errorf("fixture declares no steps")
	}

	dir := filepath.Dir(path)
	f.RegistryFile = resolve(dir, f.RegistryFile)
	f.GrowthFile = resolve(dir, f.GrowthFile)
	for i := range f.Steps {
		f.Steps[i].File = resolve(dir, f.Steps[i].File)
	}
	return &f, nil
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// #endregion load

// #region conversion

// BuildRegistry materializes the fixture's baseline registry.
func (f *Fixture) BuildRegistry() (*policy.Registry, error) {
	if f.Registry != nil {
		return policy.ParseRegistry(f.Registry)
	}
	return policy.LoadRegistry(f.RegistryFile)
}

// BuildFactors materializes the fixture's growth factors; absent both
// inline and file forms, zero growth over the registry window is used.
func (f *Fixture) BuildFactors(reg *policy.Registry) (*growth.Factors, error) {
	if f.Growth != nil {
		return growth.Parse(f.Growth)
	}
	if f.GrowthFile != "" {
		return growth.Load(f.GrowthFile)
	}
	return growth.Zero(reg.StartYear, reg.EndYear), nil
}

// BuildSteps parses each step's reform document.
func (f *Fixture) BuildSteps() ([]Step, error) {
	steps := make([]Step, len(f.Steps))
	for i, fs := range f.Steps {
		var doc *reform.Document
		var err error
		switch {
		case fs.Document != nil:
			doc, err = reform.ParseDocument(fs.Document)
		case fs.File != "":
			doc, err = reform.LoadDocument(fs.File)
		default:
			return nil, fmt.Errorf("step %d (%s): neither document nor file given", i, fs.Name)
		}
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, fs.Name, err)
		}
		steps[i] = Step{Name: fs.Name, File: fs.File, Document: doc}
	}
	return steps, nil
}

// BuildConfig merges the fixture's overrides onto the defaults.
func (f *Fixture) BuildConfig() Config {
	cfg := DefaultConfig()
	if f.Config.ExtendIndexed != nil {
		cfg.ApplyConfig.ExtendIndexed = *f.Config.ExtendIndexed
	}
	if f.Config.EnforceBounds != nil {
		cfg.CheckConfig.EnforceBounds = *f.Config.EnforceBounds
	}
	if f.Config.MaxAnnualGrowth != 0 {
		cfg.CheckConfig.MaxAnnualGrowth = f.Config.MaxAnnualGrowth
	}
	return cfg
}

// #endregion conversion

// #region verify

// VerifyValues checks the fixture's expected values against the final
// snapshot, returning one Mismatch per failed assertion.
func (f *Fixture) VerifyValues(snap policy.Snapshot) ([]Mismatch, error) {
	var mismatches []Mismatch
	for _, ev := range f.ExpectedValues {
		want, err := policy.DecodeValue(ev.Value)
		if err != nil {
			return nil, fmt.Errorf("expected value for %s @ %d: %w", ev.Param, ev.Year, err)
		}
		got, err := snap.ValueAt(ev.Param, ev.Year)
		if err != nil {
			return nil, fmt.Errorf("expected value for %s @ %d: %w", ev.Param, ev.Year, err)
		}
		if !got.Equal(want) {
			mismatches = append(mismatches, Mismatch{Param: ev.Param, Year: ev.Year, Want: want, Got: got})
		}
	}
	return mismatches, nil
}

// #endregion verify
