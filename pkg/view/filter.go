package view

import (
	"strings"
)

// Operator is the comparison applied by a FilterToken.
type Operator string

const (
	OpContains    Operator = ":"
	OpNotContains Operator = "!:"
	OpEquals      Operator = "="
	OpNotEquals   Operator = "!="
)

// Valid reports whether o is one of the four supported operators.
func (o Operator) Valid() bool {
	switch o {
	case OpContains, OpNotContains, OpEquals, OpNotEquals:
		return true
	default:
		return false
	}
}

// Operation combines the tokens of a FilterQuery.
type Operation string

const (
	OperationAnd Operation = "and"
	OperationOr  Operation = "or"
)

// FilterToken is one structured constraint on a record field.
type FilterToken struct {
	PropertyKey string   `json:"propertyKey" yaml:"property_key"`
	Operator    Operator `json:"operator" yaml:"operator"`
	Value       string   `json:"value" yaml:"value"`
}

// String renders the token in the same syntax accepted by ParseFilterToken.
func (t FilterToken) String() string {
	return t.PropertyKey + string(t.Operator) + t.Value
}

// FilterQuery is an ordered list of tokens and the operation joining them.
// An empty Operation means OperationAnd.
type FilterQuery struct {
	Tokens    []FilterToken `json:"tokens" yaml:"tokens"`
	Operation Operation     `json:"operation" yaml:"operation"`
}

// IsEmpty reports whether the query admits every record.
func (q FilterQuery) IsEmpty() bool {
	return len(q.Tokens) == 0
}

// Validate checks every operator and the operation up front, so that an
// invalid token fails even when evaluation would short-circuit past it.
func (q FilterQuery) Validate() error {
	switch q.Operation {
	case "", OperationAnd, OperationOr:
	default:
		return configErrorf("filter operation", "%q (expected %q or %q)", q.Operation, OperationAnd, OperationOr)
	}
	for i, tok := range q.Tokens {
		if !tok.Operator.Valid() {
			return configErrorf("filter operator", "token %d (%s): unknown operator %q", i, tok.PropertyKey, tok.Operator)
		}
	}
	return nil
}

func (q FilterQuery) clone() FilterQuery {
	out := FilterQuery{Operation: q.Operation}
	if q.Tokens != nil {
		out.Tokens = append([]FilterToken(nil), q.Tokens...)
	}
	return out
}

// MatchToken reports whether rec satisfies tok. Missing fields and values
// that cannot be stringified compare as the empty string. Comparison is
// case-insensitive on both sides.
func MatchToken(rec Record, tok FilterToken) (bool, error) {
	if !tok.Operator.Valid() {
		return false, configErrorf("filter operator", "unknown operator %q for property %q", tok.Operator, tok.PropertyKey)
	}
	return matchToken(rec, tok), nil
}

func matchToken(rec Record, tok FilterToken) bool {
	got := strings.ToLower(stringOrEmpty(rec[tok.PropertyKey]))
	want := strings.ToLower(tok.Value)
	switch tok.Operator {
	case OpContains:
		return strings.Contains(got, want)
	case OpNotContains:
		return !strings.Contains(got, want)
	case OpEquals:
		return got == want
	case OpNotEquals:
		return got != want
	default:
		return false
	}
}

// EvaluateFilter reports whether rec satisfies q. An empty query matches.
func EvaluateFilter(rec Record, q FilterQuery) (bool, error) {
	if err := q.Validate(); err != nil {
		return false, err
	}
	return evaluateFilter(rec, q), nil
}

// evaluateFilter assumes q has been validated.
func evaluateFilter(rec Record, q FilterQuery) bool {
	if len(q.Tokens) == 0 {
		return true
	}
	if q.Operation == OperationOr {
		for _, tok := range q.Tokens {
			if matchToken(rec, tok) {
				return true
			}
		}
		return false
	}
	for _, tok := range q.Tokens {
		if !matchToken(rec, tok) {
			return false
		}
	}
	return true
}

// ParseFilterToken parses "key<op>value" where op is the first of
// "!=", "!:", "=" or ":" found in the string. The value may be empty and may
// itself contain operator characters.
func ParseFilterToken(s string) (FilterToken, error) {
	for i := 0; i < len(s); i++ {
		var op Operator
		switch s[i] {
		case '!':
			if i+1 < len(s) && (s[i+1] == '=' || s[i+1] == ':') {
				op = Operator(s[i : i+2])
			}
		case '=':
			op = OpEquals
		case ':':
			op = OpContains
		}
		if op == "" {
			continue
		}
		key := strings.TrimSpace(s[:i])
		if key == "" {
			return FilterToken{}, configErrorf("filter token", "%q has no property name", s)
		}
		return FilterToken{
			PropertyKey: key,
			Operator:    op,
			Value:       strings.TrimSpace(s[i+len(op):]),
		}, nil
	}
	return FilterToken{}, configErrorf("filter token", "%q has no operator (expected one of : !: = !=)", s)
}

// ParseOperation accepts "and", "or" (any case) or "" for the default.
func ParseOperation(s string) (Operation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "and", "&&":
		return OperationAnd, nil
	case "or", "||":
		return OperationOr, nil
	default:
		return "", configErrorf("filter operation", "%q (expected and or or)", s)
	}
}
