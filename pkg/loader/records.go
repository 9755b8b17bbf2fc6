package loader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/oakwood-commons/dview/pkg/view"
)

// ScalarField holds the value of a list element that is not an object.
const ScalarField = "value"

// Records turns a decoded document into records.
//
// With a non-empty path the value at that dotted path is used. Otherwise a
// list yields one record per element; an object with exactly one list
// field yields that list (so {"devices": [...]} works without a path); any
// other object is a single record. Scalar list elements become
// {"value": element}.
func Records(root any, path string) ([]view.Record, error) {
	node := root
	if path = strings.TrimSpace(path); path != "" {
		v, ok := Lookup(root, path)
		if !ok {
			return nil, fmt.Errorf("records path %q not found", path)
		}
		node = v
	}
	if m, ok := node.(map[any]any); ok {
		node = stringKeys(m)
	}

	switch v := node.(type) {
	case nil:
		return []view.Record{}, nil
	case []any:
		out := make([]view.Record, 0, len(v))
		for _, elem := range v {
			out = append(out, toRecord(elem))
		}
		return out, nil
	case map[string]any:
		if path == "" {
			if list, ok := soleList(v); ok {
				return Records(list, "")
			}
		}
		return []view.Record{view.Record(v)}, nil
	default:
		return []view.Record{{ScalarField: v}}, nil
	}
}

// Lookup follows a dotted path through maps and lists. Numeric segments
// index lists.
func Lookup(root any, path string) (any, bool) {
	node := root
	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			continue
		}
		switch v := node.(type) {
		case map[string]any:
			next, ok := v[seg]
			if !ok {
				return nil, false
			}
			node = next
		case map[any]any:
			next, ok := v[seg]
			if !ok {
				return nil, false
			}
			node = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(v) {
				return nil, false
			}
			node = v[i]
		default:
			return nil, false
		}
	}
	return node, true
}

func soleList(m map[string]any) ([]any, bool) {
	var found []any
	count := 0
	for _, v := range m {
		if list, ok := v.([]any); ok {
			found = list
			count++
		}
	}
	return found, count == 1
}

func toRecord(v any) view.Record {
	switch t := v.(type) {
	case map[string]any:
		return view.Record(t)
	case map[any]any:
		return view.Record(stringKeys(t))
	default:
		return view.Record{ScalarField: v}
	}
}

func stringKeys(m map[any]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[fmt.Sprint(k)] = v
	}
	return out
}
