package view

import (
	"encoding"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"time"
)

// Record is one row of domain data: a field name to primitive value mapping.
// The engine treats records as read-only.
type Record map[string]any

// Fields returns the record's field names in ascending order.
func (r Record) Fields() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Stringify returns the canonical string form of a field value.
//
//	nil        -> "" (nil pointers included)
//	string     -> as is
//	integers   -> base 10
//	floats     -> shortest decimal form ("1.5", "3")
//	bool       -> "true" / "false"
//	time.Time  -> RFC 3339
//
// Values implementing encoding.TextMarshaler or fmt.Stringer use those.
// A marshaler error or a panic during conversion is returned as an error.
func Stringify(v any) (s string, err error) {
	defer func() {
		if p := recover(); p != nil {
			s, err = "", fmt.Errorf("conversion panicked: %v", p)
		}
	}()

	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr && rv.IsNil() {
		return "", nil
	}

	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case time.Time:
		return t.Format(time.RFC3339), nil
	case encoding.TextMarshaler:
		b, err := t.MarshalText()
		if err != nil {
			return "", err
		}
		return string(b), nil
	case fmt.Stringer:
		return t.String(), nil
	case error:
		return t.Error(), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32), nil
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return "", nil
		}
		return Stringify(rv.Elem().Interface())
	default:
		// Maps, slices and structs use their %v form.
		return fmt.Sprint(v), nil
	}
}

// stringOrEmpty is Stringify with failures coerced to "".
func stringOrEmpty(v any) string {
	s, err := Stringify(v)
	if err != nil {
		return ""
	}
	return s
}
