package policy

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// #region value
// Kind tags the concrete type held by a Value.
type Kind int

const (
	KindNumber Kind = iota
	KindBool
	KindString
	KindArray // fixed-length array of numbers, one element per filing status
)

// String returns the registry file spelling of the kind.
func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// KindFromString parses a registry file type label.
func KindFromString(s string) (Kind, error) {
	switch s {
	case "number":
		return KindNumber, nil
	case "bool":
		return KindBool, nil
	case "string":
		return KindString, nil
	case "array":
		return KindArray, nil
	default:
		return 0, fmt.Errorf("unknown value type %q", s)
	}
}

// Value is a tagged union decoded eagerly at load time. Exactly the
// fields implied by Kind are meaningful; the zero Value is the number 0.
type Value struct {
	Kind Kind
	Num  float64
	Flag bool
	Str  string
	Arr  []float64
}

// Number wraps a scalar number.
func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{Kind: KindBool, Flag: b} }

// Str wraps a string.
func Str(s string) Value { return Value{Kind: KindString, Str: s} }

// Array wraps a number array. The slice is not copied.
func Array(a []float64) Value { return Value{Kind: KindArray, Arr: a} }

// Clone returns a deep copy (array values share no storage).
func (v Value) Clone() Value {
	if v.Kind != KindArray {
		return v
	}
	arr := make([]float64, len(v.Arr))
	copy(arr, v.Arr)
	return Value{Kind: KindArray, Arr: arr}
}

// Equal reports exact equality of kind and payload.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNumber:
		return v.Num == o.Num
	case KindBool:
		return v.Flag == o.Flag
	case KindString:
		return v.Str == o.Str
	case KindArray:
		if len(v.Arr) != len(o.Arr) {
			return false
		}
		for i := range v.Arr {
			if v.Arr[i] != o.Arr[i] {
				return false
			}
		}
		return true
	}
	return false
}

// Arity is 1 for scalars and the element count for arrays.
func (v Value) Arity() int {
	if v.Kind == KindArray {
		return len(v.Arr)
	}
	return 1
}

func (v Value) String() string {
	switch v.Kind {
	case KindNumber:
		return fmt.Sprintf("%g", v.Num)
	case KindBool:
		return fmt.Sprintf("%v", v.Flag)
	case KindString:
		return v.Str
	case KindArray:
		return fmt.Sprintf("%v", v.Arr)
	}
	return "?"
}

// MarshalJSON emits the bare JSON form (number, bool, string, or array).
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber:
		return json.Marshal(v.Num)
	case KindBool:
		return json.Marshal(v.Flag)
	case KindString:
		return json.Marshal(v.Str)
	case KindArray:
		if v.Arr == nil {
			return json.Marshal([]float64{})
		}
		return json.Marshal(v.Arr)
	}
	return nil, fmt.Errorf("marshal value: unknown kind %d", v.Kind)
}

// UnmarshalJSON infers the kind from the JSON type.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec, err := DecodeValue(data)
	if err != nil {
		return err
	}
	*v = dec
	return nil
}

// DecodeValue converts a raw JSON scalar or number array to a Value.
func DecodeValue(raw json.RawMessage) (Value, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return Bool(b), nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return Number(n), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return Str(s), nil
	}
	var arr []float64
	if err := json.Unmarshal(raw, &arr); err == nil {
		return Array(arr), nil
	}
	return Value{}, fmt.Errorf("value %s is not a number, bool, string, or number array", string(raw))
}

// #endregion value

// #region param-spec
// ParamSpec describes one parameter in a baseline registry.
type ParamSpec struct {
	Name        string
	Description string
	Kind        Kind
	Arity       int // 1 for scalars, fixed length for arrays
	Indexed     bool
	WageIndexed bool
	Min         *float64
	Max         *float64
	Base        map[int]Value // sparse year → value from the registry file
}

// #endregion param-spec

// #region registry
// Registry is a baseline policy parameter set covering a fixed year window.
type Registry struct {
	Name      string
	StartYear int
	EndYear   int
	Specs     map[string]*ParamSpec
}

// NumYears is the width of the registry's year window.
func (r *Registry) NumYears() int {
	return r.EndYear - r.StartYear + 1
}

// Lookup returns the spec for a parameter name.
func (r *Registry) Lookup(name string) (*ParamSpec, bool) {
	s, ok := r.Specs[name]
	return s, ok
}

// Names returns all parameter names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.Specs))
	for n := range r.Specs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// #endregion registry

// #region snapshot
// Snapshot is one versioned policy state: a dense value table covering
// [StartYear, EndYear] for every registry parameter. Snapshots are never
// mutated after construction; the applier derives a new one each time.
type Snapshot struct {
	VersionID   string
	ParentID    string
	Baseline    string
	StartYear   int
	EndYear     int
	Values      map[string][]Value // parameter → one value per year
	Indexed     map[string]bool    // current indexing status (reforms may toggle)
	CreatedAt   time.Time
	MetricsJSON string
}

// ValueAt returns the parameter's value for a calendar year.
func (s *Snapshot) ValueAt(name string, year int) (Value, error) {
	series, ok := s.Values[name]
	if !ok {
		return Value{}, fmt.Errorf("parameter %s not in snapshot", name)
	}
	if year < s.StartYear || year > s.EndYear {
		return Value{}, fmt.Errorf("year %d outside snapshot range [%d,%d]", year, s.StartYear, s.EndYear)
	}
	return series[year-s.StartYear], nil
}

// Series returns the full per-year series for a parameter.
func (s *Snapshot) Series(name string) ([]Value, bool) {
	series, ok := s.Values[name]
	return series, ok
}

// Params returns the snapshot's parameter names in sorted order.
func (s *Snapshot) Params() []string {
	names := make([]string, 0, len(s.Values))
	for n := range s.Values {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// CloneValues deep-copies the value table and indexing map, for deriving
// a child snapshot without touching the parent.
func (s *Snapshot) CloneValues() (map[string][]Value, map[string]bool) {
	values := make(map[string][]Value, len(s.Values))
	for name, series := range s.Values {
		cp := make([]Value, len(series))
		for i, v := range series {
			cp[i] = v.Clone()
		}
		values[name] = cp
	}
	indexed := make(map[string]bool, len(s.Indexed))
	for name, b := range s.Indexed {
		indexed[name] = b
	}
	return values, indexed
}

// SameValues reports whether two snapshots hold identical value tables.
func (s *Snapshot) SameValues(o *Snapshot) bool {
	if len(s.Values) != len(o.Values) {
		return false
	}
	for name, series := range s.Values {
		other, ok := o.Values[name]
		if !ok || len(series) != len(other) {
			return false
		}
		for i := range series {
			if !series[i].Equal(other[i]) {
				return false
			}
		}
	}
	return true
}

// #endregion snapshot
