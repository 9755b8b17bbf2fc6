package view

import (
	"cmp"
	"reflect"
	"slices"
	"strings"
	"time"
)

// Direction is the sort direction of a SortSpec.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// SortSpec orders records by Field. ThenBy optionally names a secondary
// field used only when the primary values compare equal; without it, ties
// keep their input order.
type SortSpec struct {
	Field     string    `json:"field" yaml:"field"`
	Direction Direction `json:"direction" yaml:"direction"`
	ThenBy    string    `json:"thenBy,omitempty" yaml:"then_by,omitempty"`
}

// Validate returns a *ConfigurationError for a spec without a field or with
// an unknown direction. A nil spec is valid.
func (s *SortSpec) Validate() error {
	if s == nil {
		return nil
	}
	if strings.TrimSpace(s.Field) == "" {
		return configErrorf("sort", "field is empty")
	}
	switch s.Direction {
	case "", Ascending, Descending:
		return nil
	default:
		return configErrorf("sort", "direction %q (expected %q or %q)", s.Direction, Ascending, Descending)
	}
}

func (s *SortSpec) clone() *SortSpec {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// ParseSortSpec parses "field", "field:asc" or "field:desc".
// An empty string yields a nil spec.
func ParseSortSpec(s string) (*SortSpec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	field, dir, found := strings.Cut(s, ":")
	spec := &SortSpec{Field: strings.TrimSpace(field), Direction: Ascending}
	if found {
		switch strings.ToLower(strings.TrimSpace(dir)) {
		case "", "asc", "ascending":
		case "desc", "descending":
			spec.Direction = Descending
		default:
			return nil, configErrorf("sort", "direction %q in %q (expected asc or desc)", dir, s)
		}
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// Compare orders a and b by spec: negative when a sorts first, positive
// when b does, zero for a tie. A nil spec always returns zero.
//
// Numbers compare numerically, strings case-insensitively, times
// chronologically and booleans false before true. Values of different
// kinds (nil included) fall back to comparing their string forms
// case-insensitively.
func Compare(a, b Record, spec *SortSpec) int {
	if spec == nil {
		return 0
	}
	c := compareValues(a[spec.Field], b[spec.Field])
	if c == 0 && spec.ThenBy != "" {
		c = compareValues(a[spec.ThenBy], b[spec.ThenBy])
	}
	if spec.Direction == Descending {
		c = -c
	}
	return c
}

// SortRecords returns a stably sorted copy of records. The input slice is
// left untouched; with a nil spec the copy keeps input order.
func SortRecords(records []Record, spec *SortSpec) []Record {
	out := slices.Clone(records)
	sortInPlace(out, spec)
	return out
}

func sortInPlace(records []Record, spec *SortSpec) {
	if spec == nil {
		return
	}
	slices.SortStableFunc(records, func(a, b Record) int {
		return Compare(a, b, spec)
	})
}

type numberClass int

const (
	notNumber numberClass = iota
	signedNumber
	unsignedNumber
	floatNumber
)

func classifyNumber(v any) (numberClass, reflect.Value) {
	if v == nil {
		return notNumber, reflect.Value{}
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return signedNumber, rv
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return unsignedNumber, rv
	case reflect.Float32, reflect.Float64:
		return floatNumber, rv
	default:
		return notNumber, rv
	}
}

func asFloat(class numberClass, rv reflect.Value) float64 {
	switch class {
	case signedNumber:
		return float64(rv.Int())
	case unsignedNumber:
		return float64(rv.Uint())
	default:
		return rv.Float()
	}
}

func compareValues(a, b any) int {
	ac, av := classifyNumber(a)
	bc, bv := classifyNumber(b)
	if ac != notNumber && bc != notNumber {
		switch {
		case ac == signedNumber && bc == signedNumber:
			return cmp.Compare(av.Int(), bv.Int())
		case ac == unsignedNumber && bc == unsignedNumber:
			return cmp.Compare(av.Uint(), bv.Uint())
		default:
			return cmp.Compare(asFloat(ac, av), asFloat(bc, bv))
		}
	}

	switch at := a.(type) {
	case string:
		if bt, ok := b.(string); ok {
			return strings.Compare(strings.ToLower(at), strings.ToLower(bt))
		}
	case time.Time:
		if bt, ok := b.(time.Time); ok {
			return at.Compare(bt)
		}
	case bool:
		if bt, ok := b.(bool); ok {
			switch {
			case at == bt:
				return 0
			case !at:
				return -1
			default:
				return 1
			}
		}
	}

	return strings.Compare(strings.ToLower(stringOrEmpty(a)), strings.ToLower(stringOrEmpty(b)))
}
