package view

import "strings"

// MatchSearch reports whether text occurs, case-insensitively, in any of
// the named fields of rec (all fields when fields is empty). Blank text
// matches every record. A record with a field that cannot be stringified
// never matches.
func MatchSearch(rec Record, text string, fields []string) bool {
	ok, _ := matchSearch(rec, text, fields)
	return ok
}

// matchSearch is MatchSearch that also reports the coercion failure that
// excluded the record, if any.
func matchSearch(rec Record, text string, fields []string) (bool, error) {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return true, nil
	}
	if len(fields) == 0 {
		fields = rec.Fields()
	}

	// Convert every searched field first: one bad value fails the record
	// regardless of field order.
	values := make([]string, 0, len(fields))
	for _, f := range fields {
		s, err := Stringify(rec[f])
		if err != nil {
			return false, &DataCoercionError{Field: f, Err: err}
		}
		values = append(values, s)
	}
	for _, s := range values {
		if strings.Contains(strings.ToLower(s), needle) {
			return true, nil
		}
	}
	return false, nil
}
