package reform

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/policy-reforms/internal/policy"
)

const sampleReform = `// Title: Payroll tax increase of 2020
// Author: Policy Shop
// Baseline: current-law-2017
// Description: Raises the employer-side payroll rate and
// restores indexing of the taxable maximum.
// FICA_ss_trt_employer: Sec. 2(a)
{
	"FICA_ss_trt_employer": {
		"2020": 0.0625, // phase one
		"2021": 0.063
	},
	"SS_Earnings_c_cpi": {"2020": true},
	"STD": {
		"2020": [13000, 26000, 13000, 19500, 26000]
	}
}
`

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument([]byte(sampleReform))
	require.NoError(t, err)

	assert.Equal(t, "Payroll tax increase of 2020", doc.Metadata.Title)
	assert.Equal(t, "Policy Shop", doc.Metadata.Author)
	assert.Equal(t, "current-law-2017", doc.Metadata.Baseline)
	assert.Equal(t, "Raises the employer-side payroll rate and restores indexing of the taxable maximum.", doc.Metadata.Description)
	assert.Equal(t, map[string]string{"FICA_ss_trt_employer": "Sec. 2(a)"}, doc.Metadata.ProvisionMap)

	require.Equal(t, []string{"FICA_ss_trt_employer", "STD"}, doc.Params())
	assert.Equal(t, []int{2020, 2021}, doc.Years("FICA_ss_trt_employer"))
	assert.Equal(t, policy.Number(0.0625), doc.Provisions["FICA_ss_trt_employer"][2020])
	assert.Equal(t, policy.KindArray, doc.Provisions["STD"][2020].Kind)

	// The _cpi key lands in the indexing map under the root name.
	require.Equal(t, []string{"SS_Earnings_c"}, doc.IndexingParams())
	assert.True(t, doc.Indexing["SS_Earnings_c"][2020])

	assert.Equal(t, 2020, doc.FirstYear())
	assert.False(t, doc.Empty())
	assert.Len(t, doc.SourceHash, 64)
}

func TestParseDocumentCommentsInStrings(t *testing.T) {
	// A // inside a string literal is content, not a comment.
	doc, err := ParseDocument([]byte(`// Source: https://example.org/bill // mirror
{"FICA_ss_trt_employer": {"2020": 0.07}} // trailing
`))
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/bill // mirror", doc.Metadata.Source)
	assert.Equal(t, 0.07, doc.Provisions["FICA_ss_trt_employer"][2020].Num)
}

func TestParseDocumentEmpty(t *testing.T) {
	doc, err := ParseDocument([]byte("// Title: nothing here\n{}\n"))
	require.NoError(t, err)
	assert.True(t, doc.Empty())
	assert.Equal(t, 0, doc.FirstYear())
}

func TestParseDocumentSchemaErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"malformed json", `{"X": {"2020": }`},
		{"non-object provision", `{"X": 5}`},
		{"bad year key", `{"X": {"20": 1}}`},
		{"null value", `{"X": {"2020": null}}`},
		{"nested object value", `{"X": {"2020": {"a": 1}}}`},
		{"non-bool cpi toggle", `{"X_cpi": {"2020": 1}}`},
	}
	for _, c := range cases {
		_, err := ParseDocument([]byte(c.raw))
		require.Error(t, err, c.name)
		var se *SchemaError
		assert.True(t, errors.As(err, &se), "%s: want SchemaError, got %T", c.name, err)
	}
}

func TestLoadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reform.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleReform), 0o644))

	doc, err := LoadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, "Payroll tax increase of 2020", doc.Metadata.Title)

	_, err = LoadDocument(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestDocumentBodyRoundTrip(t *testing.T) {
	doc, err := ParseDocument([]byte(sampleReform))
	require.NoError(t, err)

	body, err := doc.Body()
	require.NoError(t, err)

	again, err := ParseDocument(body)
	require.NoError(t, err)
	assert.Equal(t, doc.Provisions, again.Provisions)
	assert.Equal(t, doc.Indexing, again.Indexing)
}
