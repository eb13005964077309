package reform

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/danielpatrickdp/policy-reforms/internal/policy"
)

// #region metadata
// Metadata holds the advisory free-text header of a reform file, parsed
// from its leading comment block. None of it is machine-enforced; the
// Baseline reference is checked against the configured registry only to
// warn on mismatch.
type Metadata struct {
	Title        string
	Author       string
	Source       string
	Baseline     string
	Description  string
	ProvisionMap map[string]string // parameter name → legislative provision
}

// #endregion metadata

// #region document
// Document is a validated reform: parameter overrides keyed by effective
// year, plus indexing-status toggles. SourceHash fingerprints the
// comment-stripped body for provenance and catalog identity.
type Document struct {
	Metadata   Metadata
	Provisions map[string]map[int]policy.Value // parameter → year → value
	Indexing   map[string]map[int]bool         // parameter → year → indexed status
	SourceHash string
}

// Params returns the override parameter names in sorted order.
func (d *Document) Params() []string {
	names := make([]string, 0, len(d.Provisions))
	for n := range d.Provisions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// IndexingParams returns parameters with indexing toggles, sorted.
func (d *Document) IndexingParams() []string {
	names := make([]string, 0, len(d.Indexing))
	for n := range d.Indexing {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Years returns a parameter's override years in ascending order.
func (d *Document) Years(name string) []int {
	years := make([]int, 0, len(d.Provisions[name]))
	for y := range d.Provisions[name] {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// IndexingYears returns a parameter's toggle years in ascending order.
func (d *Document) IndexingYears(name string) []int {
	years := make([]int, 0, len(d.Indexing[name]))
	for y := range d.Indexing[name] {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// FirstYear returns the earliest year any provision takes effect, or 0
// for an empty document.
func (d *Document) FirstYear() int {
	first := 0
	for name := range d.Provisions {
		for y := range d.Provisions[name] {
			if first == 0 || y < first {
				first = y
			}
		}
	}
	for name := range d.Indexing {
		for y := range d.Indexing[name] {
			if first == 0 || y < first {
				first = y
			}
		}
	}
	return first
}

// Empty reports whether the document carries no provisions at all.
func (d *Document) Empty() bool {
	return len(d.Provisions) == 0 && len(d.Indexing) == 0
}

// Body reconstructs the comment-free JSON body of the document. It is
// what the provenance log stores so a DB trail can be replayed without
// the original reform files.
func (d *Document) Body() (json.RawMessage, error) {
	out := make(map[string]map[string]policy.Value, len(d.Provisions)+len(d.Indexing))
	for name, years := range d.Provisions {
		ym := make(map[string]policy.Value, len(years))
		for y, v := range years {
			ym[strconv.Itoa(y)] = v
		}
		out[name] = ym
	}
	for name, years := range d.Indexing {
		key := name + indexingSuffix
		ym := make(map[string]policy.Value, len(years))
		for y, b := range years {
			ym[strconv.Itoa(y)] = policy.Bool(b)
		}
		out[key] = ym
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal document body: %w", err)
	}
	return raw, nil
}

// #endregion document
