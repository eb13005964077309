package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// #region file-format

type registryFile struct {
	Name       string                   `json:"name"`
	StartYear  int                      `json:"start_year"`
	EndYear    int                      `json:"end_year"`
	Parameters map[string]registryParam `json:"parameters"`
}

type registryParam struct {
	Description string                     `json:"description"`
	Type        string                     `json:"type"`
	Arity       int                        `json:"arity"`
	Indexed     bool                       `json:"indexed"`
	WageIndexed bool                       `json:"wage_indexed"`
	Min         *float64                   `json:"min"`
	Max         *float64                   `json:"max"`
	Values      map[string]json.RawMessage `json:"values"`
}

// #endregion file-format

// #region load

// LoadRegistry reads a baseline registry JSON file (e.g. the
// current-law parameter set a reform is expressed against).
func LoadRegistry(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return ParseRegistry(raw)
}

// ParseRegistry decodes and validates a baseline registry document.
// Every parameter must declare a value at the registry start year so
// the full year window can be expanded without gaps.
func ParseRegistry(raw []byte) (*Registry, error) {
	var rf registryFile
	if err := json.Unmarshal(raw, &rf); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	if rf.StartYear < 1000 || rf.StartYear > 9999 {
		return nil, fmt.Errorf("registry start_year %d is not a 4-digit year", rf.StartYear)
	}
	if rf.EndYear < rf.StartYear {
		return nil, fmt.Errorf("registry year range [%d,%d] is inverted", rf.StartYear, rf.EndYear)
	}
	if len(rf.Parameters) == 0 {
		return nil, fmt.Errorf("registry declares no parameters")
	}

	reg := &Registry{
		Name:      rf.Name,
		StartYear: rf.StartYear,
		EndYear:   rf.EndYear,
		Specs:     make(map[string]*ParamSpec, len(rf.Parameters)),
	}

	for name, rp := range rf.Parameters {
		spec, err := buildSpec(name, rp, reg)
		if err != nil {
			return nil, err
		}
		reg.Specs[name] = spec
	}
	return reg, nil
}

func buildSpec(name string, rp registryParam, reg *Registry) (*ParamSpec, error) {
	kind, err := KindFromString(rp.Type)
	if err != nil {
		return nil, fmt.Errorf("parameter %s: %w", name, err)
	}

	arity := rp.Arity
	if kind != KindArray {
		arity = 1
	} else if arity < 2 {
		return nil, fmt.Errorf("parameter %s: array type requires arity >= 2, got %d", name, rp.Arity)
	}
	if rp.Min != nil && rp.Max != nil && *rp.Min > *rp.Max {
		return nil, fmt.Errorf("parameter %s: min %g exceeds max %g", name, *rp.Min, *rp.Max)
	}
	if rp.Indexed && kind != KindNumber && kind != KindArray {
		return nil, fmt.Errorf("parameter %s: only number parameters can be indexed", name)
	}

	spec := &ParamSpec{
		Name:        name,
		Description: rp.Description,
		Kind:        kind,
		Arity:       arity,
		Indexed:     rp.Indexed,
		WageIndexed: rp.WageIndexed,
		Min:         rp.Min,
		Max:         rp.Max,
		Base:        make(map[int]Value, len(rp.Values)),
	}

	for ys, rawVal := range rp.Values {
		year, err := strconv.Atoi(ys)
		if err != nil || year < reg.StartYear || year > reg.EndYear {
			return nil, fmt.Errorf("parameter %s: year %q outside registry range [%d,%d]", name, ys, reg.StartYear, reg.EndYear)
		}
		val, err := DecodeValue(rawVal)
		if err != nil {
			return nil, fmt.Errorf("parameter %s year %d: %w", name, year, err)
		}
		if val.Kind != kind {
			return nil, fmt.Errorf("parameter %s year %d: expected %s value, got %s", name, year, kind, val.Kind)
		}
		if kind == KindArray && val.Arity() != arity {
			return nil, fmt.Errorf("parameter %s year %d: expected %d elements, got %d", name, year, arity, val.Arity())
		}
		spec.Base[year] = val
	}

	if _, ok := spec.Base[reg.StartYear]; !ok {
		return nil, fmt.Errorf("parameter %s: no value declared for start year %d", name, reg.StartYear)
	}
	return spec, nil
}

// #endregion load

// #region base-years

// BaseYears returns the years a spec declares explicit values for, ascending.
func (p *ParamSpec) BaseYears() []int {
	years := make([]int, 0, len(p.Base))
	for y := range p.Base {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// #endregion base-years
