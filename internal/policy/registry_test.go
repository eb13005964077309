package policy

import (
	"strings"
	"testing"
)

const testRegistryJSON = `{
	"name": "current-law-2017",
	"start_year": 2017,
	"end_year": 2026,
	"parameters": {
		"SS_Earnings_c": {
			"description": "Maximum taxable earnings for Social Security",
			"type": "number",
			"indexed": true,
			"wage_indexed": true,
			"min": 0,
			"values": {"2017": 127200, "2018": 128400, "2019": 132900}
		},
		"FICA_ss_trt_employer": {
			"description": "Employer-side Social Security payroll tax rate",
			"type": "number",
			"min": 0,
			"max": 1,
			"values": {"2017": 0.062}
		},
		"STD": {
			"description": "Standard deduction by filing status",
			"type": "array",
			"arity": 5,
			"indexed": true,
			"min": 0,
			"values": {
				"2017": [6350, 12700, 6350, 9350, 12700],
				"2018": [12000, 24000, 12000, 18000, 24000]
			}
		},
		"CTC_refundable": {
			"description": "Whether the child tax credit is refundable",
			"type": "bool",
			"values": {"2017": false}
		}
	}
}`

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := ParseRegistry([]byte(testRegistryJSON))
	if err != nil {
		t.Fatalf("ParseRegistry: %v", err)
	}
	return reg
}

func TestParseRegistry(t *testing.T) {
	reg := testRegistry(t)

	if reg.StartYear != 2017 || reg.EndYear != 2026 {
		t.Fatalf("unexpected year range [%d,%d]", reg.StartYear, reg.EndYear)
	}
	if reg.NumYears() != 10 {
		t.Fatalf("expected 10 years, got %d", reg.NumYears())
	}

	spec, ok := reg.Lookup("SS_Earnings_c")
	if !ok {
		t.Fatal("SS_Earnings_c missing from registry")
	}
	if !spec.Indexed || !spec.WageIndexed {
		t.Fatal("SS_Earnings_c should be wage-indexed")
	}
	if got := spec.BaseYears(); len(got) != 3 || got[0] != 2017 || got[2] != 2019 {
		t.Fatalf("unexpected base years %v", got)
	}

	std, _ := reg.Lookup("STD")
	if std.Kind != KindArray || std.Arity != 5 {
		t.Fatalf("STD should be a 5-element array parameter, got %s arity %d", std.Kind, std.Arity)
	}
}

func TestParseRegistryRejects(t *testing.T) {
	cases := []struct {
		name string
		json string
		want string
	}{
		{
			"bad type",
			`{"start_year": 2017, "end_year": 2020, "parameters": {"X": {"type": "decimal", "values": {"2017": 1}}}}`,
			"unknown value type",
		},
		{
			"array arity one",
			`{"start_year": 2017, "end_year": 2020, "parameters": {"X": {"type": "array", "arity": 1, "values": {"2017": [1]}}}}`,
			"arity >= 2",
		},
		{
			"indexed bool",
			`{"start_year": 2017, "end_year": 2020, "parameters": {"X": {"type": "bool", "indexed": true, "values": {"2017": true}}}}`,
			"can be indexed",
		},
		{
			"missing start-year value",
			`{"start_year": 2017, "end_year": 2020, "parameters": {"X": {"type": "number", "values": {"2018": 1}}}}`,
			"no value declared for start year",
		},
		{
			"value outside range",
			`{"start_year": 2017, "end_year": 2020, "parameters": {"X": {"type": "number", "values": {"2017": 1, "2030": 2}}}}`,
			"outside registry range",
		},
		{
			"inverted range",
			`{"start_year": 2020, "end_year": 2017, "parameters": {"X": {"type": "number", "values": {"2020": 1}}}}`,
			"inverted",
		},
	}

	for _, c := range cases {
		_, err := ParseRegistry([]byte(c.json))
		if err == nil {
			t.Fatalf("%s: expected error", c.name)
		}
		if !strings.Contains(err.Error(), c.want) {
			t.Fatalf("%s: error %q does not mention %q", c.name, err, c.want)
		}
	}
}
