//go:build property
// +build property

package reform

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestApplyDeterminism verifies applying the same document to the same
// snapshot always yields the same values.
func TestApplyDeterminism(t *testing.T) {
	reg := testBaseline(t)
	f := growFactors()
	base := baselineSnap(t, reg, f)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("apply is deterministic", prop.ForAll(
		func(year int, rate float64) bool {
			doc := parse(t, fmt.Sprintf(`{"FICA_ss_trt_employer": {"%d": %g}}`, year, rate))
			r1, err1 := Apply(base, doc, reg, f, DefaultApplyConfig())
			r2, err2 := Apply(base, doc, reg, f, DefaultApplyConfig())
			if err1 != nil || err2 != nil {
				return (err1 == nil) == (err2 == nil)
			}
			return r1.NewSnapshot.SameValues(&r2.NewSnapshot)
		},
		gen.IntRange(2017, 2026),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}

// TestApplyIdempotence verifies re-applying a reform to its own output
// changes nothing.
func TestApplyIdempotence(t *testing.T) {
	reg := testBaseline(t)
	f := growFactors()
	base := baselineSnap(t, reg, f)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("apply is idempotent", prop.ForAll(
		func(year int, cap float64) bool {
			doc := parse(t, fmt.Sprintf(`{"SS_Earnings_c": {"%d": %g}}`, year, cap))
			first, err := Apply(base, doc, reg, f, DefaultApplyConfig())
			if err != nil {
				return false
			}
			second, err := Apply(first.NewSnapshot, doc, reg, f, DefaultApplyConfig())
			if err != nil {
				return false
			}
			return second.Decision.Action == "no_op" &&
				second.NewSnapshot.SameValues(&first.NewSnapshot)
		},
		gen.IntRange(2017, 2026),
		gen.Float64Range(100000, 500000),
	))

	properties.TestingRun(t)
}

// TestApplyNeverMutatesBase verifies the input snapshot survives any
// successful or failed apply unchanged.
func TestApplyNeverMutatesBase(t *testing.T) {
	reg := testBaseline(t)
	f := growFactors()
	base := baselineSnap(t, reg, f)
	pristine, _ := base.CloneValues()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("base snapshot is never mutated", prop.ForAll(
		func(year int, rate float64) bool {
			doc := parse(t, fmt.Sprintf(`{"FICA_ss_trt_employer": {"%d": %g}}`, year, rate))
			_, _ = Apply(base, doc, reg, f, DefaultApplyConfig())

			for name, series := range pristine {
				for i, v := range series {
					if !base.Values[name][i].Equal(v) {
						return false
					}
				}
			}
			return true
		},
		gen.IntRange(2010, 2030),
		gen.Float64Range(-1, 2),
	))

	properties.TestingRun(t)
}
