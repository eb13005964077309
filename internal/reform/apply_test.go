package reform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/policy-reforms/internal/growth"
	"github.com/danielpatrickdp/policy-reforms/internal/policy"
)

func growFactors() *growth.Factors {
	f := growth.Zero(2017, 2026)
	for y := 2017; y <= 2026; y++ {
		f.Inflation[y] = 0.02
		f.WageGrowth[y] = 0.03
	}
	return f
}

func baselineSnap(t *testing.T, reg *policy.Registry, f *growth.Factors) policy.Snapshot {
	t.Helper()
	snap, err := policy.BaselineSnapshot(reg, f)
	require.NoError(t, err)
	return snap
}

func valueAt(t *testing.T, snap policy.Snapshot, name string, year int) policy.Value {
	t.Helper()
	v, err := snap.ValueAt(name, year)
	require.NoError(t, err)
	return v
}

func TestApplySetAndCarryForward(t *testing.T) {
	reg := testBaseline(t)
	f := zeroFactors()
	base := baselineSnap(t, reg, f)

	doc := parse(t, `{"SS_Earnings_thd": {"2019": 400000}}`)
	res, err := Apply(base, doc, reg, f, DefaultApplyConfig())
	require.NoError(t, err)

	assert.Equal(t, "commit", res.Decision.Action)
	snap := res.NewSnapshot

	// Years before the override keep the baseline value.
	assert.Equal(t, 9e99, valueAt(t, snap, "SS_Earnings_thd", 2018).Num)
	// The override holds from its year through the end of the window.
	for y := 2019; y <= 2026; y++ {
		assert.Equal(t, 400000.0, valueAt(t, snap, "SS_Earnings_thd", y).Num, "year %d", y)
	}
}

func TestApplyLaterOverrideWins(t *testing.T) {
	reg := testBaseline(t)
	f := zeroFactors()
	base := baselineSnap(t, reg, f)

	doc := parse(t, `{"FICA_ss_trt_employer": {"2020": 0.0625, "2021": 0.063}}`)
	res, err := Apply(base, doc, reg, f, DefaultApplyConfig())
	require.NoError(t, err)
	snap := res.NewSnapshot

	assert.Equal(t, 0.062, valueAt(t, snap, "FICA_ss_trt_employer", 2019).Num)
	assert.Equal(t, 0.0625, valueAt(t, snap, "FICA_ss_trt_employer", 2020).Num)
	for y := 2021; y <= 2026; y++ {
		assert.Equal(t, 0.063, valueAt(t, snap, "FICA_ss_trt_employer", y).Num, "year %d", y)
	}
}

func TestApplyIndexedOverrideKeepsGrowing(t *testing.T) {
	reg := testBaseline(t)
	f := growFactors()
	base := baselineSnap(t, reg, f)

	doc := parse(t, `{"SS_Earnings_c": {"2020": 140000}}`)
	res, err := Apply(base, doc, reg, f, DefaultApplyConfig())
	require.NoError(t, err)
	snap := res.NewSnapshot

	assert.Equal(t, 140000.0, valueAt(t, snap, "SS_Earnings_c", 2020).Num)
	// Wage-indexed, so later years grow at 3% from the override.
	assert.Equal(t, 144200.0, valueAt(t, snap, "SS_Earnings_c", 2021).Num)
	assert.Equal(t, 148526.0, valueAt(t, snap, "SS_Earnings_c", 2022).Num)
}

func TestApplyExtendIndexedDisabled(t *testing.T) {
	reg := testBaseline(t)
	f := growFactors()
	base := baselineSnap(t, reg, f)

	doc := parse(t, `{"SS_Earnings_c": {"2020": 140000}}`)
	res, err := Apply(base, doc, reg, f, ApplyConfig{ExtendIndexed: false})
	require.NoError(t, err)
	snap := res.NewSnapshot

	for y := 2020; y <= 2026; y++ {
		assert.Equal(t, 140000.0, valueAt(t, snap, "SS_Earnings_c", y).Num, "year %d", y)
	}
}

func TestApplyIndexingToggle(t *testing.T) {
	reg := testBaseline(t)
	f := growFactors()
	base := baselineSnap(t, reg, f)

	// Freeze the taxable maximum from 2020 on without changing its level.
	doc := parse(t, `{"SS_Earnings_c_cpi": {"2020": false}}`)
	res, err := Apply(base, doc, reg, f, DefaultApplyConfig())
	require.NoError(t, err)
	snap := res.NewSnapshot

	frozen := valueAt(t, snap, "SS_Earnings_c", 2020).Num
	assert.Equal(t, valueAt(t, base, "SS_Earnings_c", 2020).Num, frozen)
	for y := 2021; y <= 2026; y++ {
		assert.Equal(t, frozen, valueAt(t, snap, "SS_Earnings_c", y).Num, "year %d", y)
	}
	assert.False(t, snap.Indexed["SS_Earnings_c"])
	assert.True(t, base.Indexed["SS_Earnings_c"], "input snapshot must not change")
}

func TestApplyRejectsInvalidDocumentAtomically(t *testing.T) {
	reg := testBaseline(t)
	f := zeroFactors()
	base := baselineSnap(t, reg, f)

	// One valid provision plus one unknown parameter: nothing applies.
	doc := parse(t, `{
		"FICA_ss_trt_employer": {"2020": 0.07},
		"II_em": {"2020": 5000}
	}`)
	_, err := Apply(base, doc, reg, f, DefaultApplyConfig())
	require.Error(t, err)

	var upe *UnknownParameterError
	require.True(t, errors.As(err, &upe))
	assert.Equal(t, 0.062, valueAt(t, base, "FICA_ss_trt_employer", 2020).Num)
}

func TestApplyPreBaselineYearRejected(t *testing.T) {
	reg := testBaseline(t)
	f := zeroFactors()
	base := baselineSnap(t, reg, f)

	_, err := Apply(base, parse(t, `{"FICA_ss_trt_employer": {"2013": 0.07}}`), reg, f, DefaultApplyConfig())
	require.Error(t, err)
	var yre *YearRangeError
	require.True(t, errors.As(err, &yre))
	assert.Equal(t, 2013, yre.Year)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	reg := testBaseline(t)
	f := zeroFactors()
	base := baselineSnap(t, reg, f)
	beforeSTD := valueAt(t, base, "STD", 2020)

	doc := parse(t, `{"STD": {"2020": [13000, 26000, 13000, 19500, 26000]}}`)
	res, err := Apply(base, doc, reg, f, DefaultApplyConfig())
	require.NoError(t, err)

	assert.True(t, valueAt(t, base, "STD", 2020).Equal(beforeSTD))
	assert.False(t, res.NewSnapshot.SameValues(&base))
	assert.Equal(t, base.VersionID, res.NewSnapshot.ParentID)
}

func TestApplySameReformTwiceIsNoOp(t *testing.T) {
	reg := testBaseline(t)
	f := growFactors()
	base := baselineSnap(t, reg, f)

	doc := parse(t, `{"SS_Earnings_c": {"2020": 140000}, "FICA_ss_trt_employer": {"2021": 0.07}}`)
	first, err := Apply(base, doc, reg, f, DefaultApplyConfig())
	require.NoError(t, err)
	require.Equal(t, "commit", first.Decision.Action)

	second, err := Apply(first.NewSnapshot, doc, reg, f, DefaultApplyConfig())
	require.NoError(t, err)
	assert.Equal(t, "no_op", second.Decision.Action)
	assert.Equal(t, 0, second.Metrics.CellsChanged)
	assert.True(t, second.NewSnapshot.SameValues(&first.NewSnapshot))
}

func TestApplyMetrics(t *testing.T) {
	reg := testBaseline(t)
	f := zeroFactors()
	base := baselineSnap(t, reg, f)

	doc := parse(t, `{
		"FICA_ss_trt_employer": {"2020": 0.07},
		"SS_Earnings_thd": {"2019": 400000}
	}`)
	res, err := Apply(base, doc, reg, f, DefaultApplyConfig())
	require.NoError(t, err)

	m := res.Metrics
	assert.Equal(t, 2, m.Provisions)
	assert.Equal(t, 2019, m.FirstYear)
	assert.ElementsMatch(t, []string{"FICA_ss_trt_employer", "SS_Earnings_thd"}, m.ParamsTouched)
	// 0.07 holds 2020-2026 (7 cells), 400000 holds 2019-2026 (8 cells).
	assert.Equal(t, 15, m.CellsChanged)
}

func TestApplyMissingSnapshotSeries(t *testing.T) {
	reg := testBaseline(t)
	f := zeroFactors()
	base := baselineSnap(t, reg, f)
	// Simulate a registry that gained a parameter after the snapshot
	// was bootstrapped.
	delete(base.Values, "FICA_ss_trt_employer")

	_, err := Apply(base, parse(t, `{"FICA_ss_trt_employer": {"2020": 0.07}}`), reg, f, DefaultApplyConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FICA_ss_trt_employer")
	assert.Contains(t, err.Error(), "no value series")

	// A short series is just as unusable as a missing one.
	base = baselineSnap(t, reg, f)
	base.Values["FICA_ss_trt_employer"] = base.Values["FICA_ss_trt_employer"][:3]
	_, err = Apply(base, parse(t, `{"FICA_ss_trt_employer": {"2020": 0.07}}`), reg, f, DefaultApplyConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no value series")
}

func TestApplyRangeMismatch(t *testing.T) {
	reg := testBaseline(t)
	f := zeroFactors()
	base := baselineSnap(t, reg, f)
	base.EndYear = 2030

	_, err := Apply(base, parse(t, `{"FICA_ss_trt_employer": {"2020": 0.07}}`), reg, f, DefaultApplyConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match registry")
}
