package reform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/policy-reforms/internal/growth"
	"github.com/danielpatrickdp/policy-reforms/internal/policy"
)

const baselineJSON = `{
	"name": "current-law-2017",
	"start_year": 2017,
	"end_year": 2026,
	"parameters": {
		"SS_Earnings_c": {
			"type": "number", "indexed": true, "wage_indexed": true, "min": 0,
			"values": {"2017": 127200, "2018": 128400, "2019": 132900}
		},
		"SS_Earnings_thd": {
			"type": "number", "min": 0,
			"values": {"2017": 9e99}
		},
		"FICA_ss_trt_employer": {
			"type": "number", "min": 0, "max": 1,
			"values": {"2017": 0.062}
		},
		"STD": {
			"type": "array", "arity": 5, "indexed": true, "min": 0,
			"values": {"2017": [6350, 12700, 6350, 9350, 12700]}
		},
		"CTC_refundable": {
			"type": "bool",
			"values": {"2017": true}
		}
	}
}`

func testBaseline(t *testing.T) *policy.Registry {
	t.Helper()
	reg, err := policy.ParseRegistry([]byte(baselineJSON))
	require.NoError(t, err)
	return reg
}

func parse(t *testing.T, raw string) *Document {
	t.Helper()
	doc, err := ParseDocument([]byte(raw))
	require.NoError(t, err)
	return doc
}

func TestValidateCleanDocument(t *testing.T) {
	v := NewValidator(testBaseline(t))
	doc := parse(t, `{
		"FICA_ss_trt_employer": {"2020": 0.0625},
		"STD": {"2020": [13000, 26000, 13000, 19500, 26000]},
		"SS_Earnings_c_cpi": {"2021": false}
	}`)
	require.NoError(t, v.Validate(doc))
}

func TestValidateUnknownParameter(t *testing.T) {
	v := NewValidator(testBaseline(t))
	err := v.Validate(parse(t, `{"II_em": {"2020": 5000}}`))
	require.Error(t, err)

	var upe *UnknownParameterError
	require.True(t, errors.As(err, &upe))
	assert.Equal(t, "II_em", upe.Param)
}

func TestValidateYearRange(t *testing.T) {
	v := NewValidator(testBaseline(t))

	// Pre-baseline and beyond-window years are both out of range.
	err := v.Validate(parse(t, `{"FICA_ss_trt_employer": {"2013": 0.07, "2030": 0.07}}`))
	require.Error(t, err)

	var ve ValidationErrors
	require.True(t, errors.As(err, &ve))
	require.Len(t, ve, 2)
	for _, e := range ve {
		var yre *YearRangeError
		require.True(t, errors.As(e, &yre))
		assert.Equal(t, 2017, yre.StartYear)
		assert.Equal(t, 2026, yre.EndYear)
	}
}

func TestValidateArity(t *testing.T) {
	v := NewValidator(testBaseline(t))
	err := v.Validate(parse(t, `{"STD": {"2020": [13000, 26000]}}`))
	require.Error(t, err)

	var ae *ArityError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, 5, ae.Want)
	assert.Equal(t, 2, ae.Got)
}

func TestValidateValueType(t *testing.T) {
	v := NewValidator(testBaseline(t))
	err := v.Validate(parse(t, `{"CTC_refundable": {"2020": 1}}`))
	require.Error(t, err)

	var te *ValueTypeError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "bool", te.Want)
	assert.Equal(t, "number", te.Got)
}

func TestValidateBounds(t *testing.T) {
	v := NewValidator(testBaseline(t))
	err := v.Validate(parse(t, `{"FICA_ss_trt_employer": {"2020": 1.5}}`))
	require.Error(t, err)

	var re *RangeError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "max", re.Op)
	assert.Equal(t, 1.5, re.Value)

	// Array bounds are checked element-wise.
	err = v.Validate(parse(t, `{"STD": {"2020": [13000, -1, 13000, 19500, 26000]}}`))
	require.Error(t, err)
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "min", re.Op)
}

func TestValidateIndexingToggle(t *testing.T) {
	v := NewValidator(testBaseline(t))

	// Toggling indexing on a bool parameter makes no sense.
	err := v.Validate(parse(t, `{"CTC_refundable_cpi": {"2020": true}}`))
	require.Error(t, err)
	var te *ValueTypeError
	require.True(t, errors.As(err, &te))

	// Unknown root parameter.
	err = v.Validate(parse(t, `{"II_em_cpi": {"2020": true}}`))
	var upe *UnknownParameterError
	require.True(t, errors.As(err, &upe))
	assert.Equal(t, "II_em_cpi", upe.Param)

	// Toggle year outside the window.
	err = v.Validate(parse(t, `{"SS_Earnings_c_cpi": {"2030": false}}`))
	var yre *YearRangeError
	require.True(t, errors.As(err, &yre))
}

func TestValidateCollectsAllViolations(t *testing.T) {
	v := NewValidator(testBaseline(t))
	err := v.Validate(parse(t, `{
		"II_em": {"2020": 5000},
		"FICA_ss_trt_employer": {"2013": 0.07, "2020": 1.5},
		"STD": {"2020": [1, 2]}
	}`))
	require.Error(t, err)

	var ve ValidationErrors
	require.True(t, errors.As(err, &ve))
	// unknown param + year range + max bound + arity
	assert.Len(t, ve, 4)
	assert.Contains(t, err.Error(), "ERROR: ")
}

func zeroFactors() *growth.Factors {
	return growth.Zero(2017, 2026)
}
