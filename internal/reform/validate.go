package reform

import (
	"github.com/danielpatrickdp/policy-reforms/internal/policy"
)

// #region validator
// Validator checks a parsed document against a baseline registry.
// All violations are collected in one pass; a document either passes
// whole or is rejected whole.
type Validator struct {
	reg *policy.Registry
}

// NewValidator creates a validator for the given baseline.
func NewValidator(reg *policy.Registry) *Validator {
	return &Validator{reg: reg}
}

// #endregion validator

// #region validate

// Validate returns nil for a clean document, or a ValidationErrors
// aggregating every violation found.
func (v *Validator) Validate(doc *Document) error {
	var errs ValidationErrors

	for _, name := range doc.Params() {
		spec, ok := v.reg.Lookup(name)
		if !ok {
			errs = append(errs, &UnknownParameterError{Param: name})
			continue
		}
		for _, year := range doc.Years(name) {
			errs = append(errs, v.checkProvision(spec, year, doc.Provisions[name][year])...)
		}
	}

	for _, name := range doc.IndexingParams() {
		spec, ok := v.reg.Lookup(name)
		if !ok {
			errs = append(errs, &UnknownParameterError{Param: name + indexingSuffix})
			continue
		}
		for _, year := range doc.IndexingYears(name) {
			if year < v.reg.StartYear || year > v.reg.EndYear {
				errs = append(errs, &YearRangeError{
					Param: name + indexingSuffix, Year: year,
					StartYear: v.reg.StartYear, EndYear: v.reg.EndYear,
				})
			}
		}
		if spec.Kind != policy.KindNumber && spec.Kind != policy.KindArray {
			errs = append(errs, &ValueTypeError{
				Param: name + indexingSuffix, Year: 0,
				Want: "number or array parameter", Got: spec.Kind.String(),
			})
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// checkProvision validates one (parameter, year, value) override.
func (v *Validator) checkProvision(spec *policy.ParamSpec, year int, val policy.Value) ValidationErrors {
	var errs ValidationErrors

	if year < v.reg.StartYear || year > v.reg.EndYear {
		errs = append(errs, &YearRangeError{
			Param: spec.Name, Year: year,
			StartYear: v.reg.StartYear, EndYear: v.reg.EndYear,
		})
	}

	if val.Kind != spec.Kind {
		errs = append(errs, &ValueTypeError{
			Param: spec.Name, Year: year,
			Want: spec.Kind.String(), Got: val.Kind.String(),
		})
		return errs // bounds and arity checks need the right kind
	}

	if spec.Kind == policy.KindArray && val.Arity() != spec.Arity {
		errs = append(errs, &ArityError{
			Param: spec.Name, Year: year,
			Want: spec.Arity, Got: val.Arity(),
		})
		return errs
	}

	errs = append(errs, checkBounds(spec, year, val)...)
	return errs
}

func checkBounds(spec *policy.ParamSpec, year int, val policy.Value) ValidationErrors {
	if spec.Kind != policy.KindNumber && spec.Kind != policy.KindArray {
		return nil
	}
	nums := val.Arr
	if spec.Kind == policy.KindNumber {
		nums = []float64{val.Num}
	}

	var errs ValidationErrors
	for _, n := range nums {
		if spec.Min != nil && n < *spec.Min {
			errs = append(errs, &RangeError{Param: spec.Name, Year: year, Value: n, Bound: *spec.Min, Op: "min"})
		}
		if spec.Max != nil && n > *spec.Max {
			errs = append(errs, &RangeError{Param: spec.Name, Year: year, Value: n, Bound: *spec.Max, Op: "max"})
		}
	}
	return errs
}

// #endregion validate
