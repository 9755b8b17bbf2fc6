package view

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchToken(t *testing.T) {
	rec := Record{"id": 7, "name": "Router-001", "status": "Active", "online": true}

	tests := []struct {
		name string
		tok  FilterToken
		want bool
	}{
		{name: "contains case-insensitive", tok: FilterToken{"name", OpContains, "router"}, want: true},
		{name: "contains miss", tok: FilterToken{"name", OpContains, "switch"}, want: false},
		{name: "not contains", tok: FilterToken{"name", OpNotContains, "switch"}, want: true},
		{name: "not contains hit", tok: FilterToken{"name", OpNotContains, "ROUTER"}, want: false},
		{name: "equals case-insensitive", tok: FilterToken{"status", OpEquals, "active"}, want: true},
		{name: "equals is exact", tok: FilterToken{"status", OpEquals, "Activ"}, want: false},
		{name: "not equals", tok: FilterToken{"status", OpNotEquals, "Inactive"}, want: true},
		{name: "number stringified", tok: FilterToken{"id", OpEquals, "7"}, want: true},
		{name: "bool stringified", tok: FilterToken{"online", OpEquals, "TRUE"}, want: true},
		{name: "missing field equals empty", tok: FilterToken{"location", OpEquals, ""}, want: true},
		{name: "missing field contains empty", tok: FilterToken{"location", OpContains, ""}, want: true},
		{name: "missing field not equals value", tok: FilterToken{"location", OpNotEquals, "lab"}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MatchToken(rec, tt.tok)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchTokenUnknownOperator(t *testing.T) {
	_, err := MatchToken(Record{"a": "b"}, FilterToken{PropertyKey: "a", Operator: "~", Value: "b"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Detail, `"~"`)
}

func TestMatchTokenNilRecord(t *testing.T) {
	got, err := MatchToken(nil, FilterToken{PropertyKey: "x", Operator: OpEquals, Value: ""})
	require.NoError(t, err)
	assert.True(t, got)
}

func TestEvaluateFilter(t *testing.T) {
	rec := Record{"name": "Switch-002", "status": "Maintenance"}

	tests := []struct {
		name  string
		query FilterQuery
		want  bool
	}{
		{name: "empty query passes", query: FilterQuery{}, want: true},
		{name: "empty or query passes", query: FilterQuery{Operation: OperationOr}, want: true},
		{
			name: "and all match",
			query: FilterQuery{Operation: OperationAnd, Tokens: []FilterToken{
				{"name", OpContains, "switch"},
				{"status", OpEquals, "maintenance"},
			}},
			want: true,
		},
		{
			name: "and one fails",
			query: FilterQuery{Operation: OperationAnd, Tokens: []FilterToken{
				{"name", OpContains, "switch"},
				{"status", OpEquals, "active"},
			}},
			want: false,
		},
		{
			name: "default operation is and",
			query: FilterQuery{Tokens: []FilterToken{
				{"name", OpContains, "switch"},
				{"status", OpEquals, "active"},
			}},
			want: false,
		},
		{
			name: "or one matches",
			query: FilterQuery{Operation: OperationOr, Tokens: []FilterToken{
				{"name", OpContains, "router"},
				{"status", OpEquals, "maintenance"},
			}},
			want: true,
		},
		{
			name: "or none match",
			query: FilterQuery{Operation: OperationOr, Tokens: []FilterToken{
				{"name", OpContains, "router"},
				{"status", OpEquals, "active"},
			}},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvaluateFilter(rec, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateFilterValidatesBeforeShortCircuit(t *testing.T) {
	q := FilterQuery{Operation: OperationOr, Tokens: []FilterToken{
		{"name", OpContains, "switch"},
		{"name", "like", "x"},
	}}
	_, err := EvaluateFilter(Record{"name": "switch"}, q)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestEvaluateFilterBadOperation(t *testing.T) {
	_, err := EvaluateFilter(Record{}, FilterQuery{Operation: "xor"})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestParseFilterToken(t *testing.T) {
	tests := []struct {
		in      string
		want    FilterToken
		wantErr bool
	}{
		{in: "status=Active", want: FilterToken{"status", OpEquals, "Active"}},
		{in: "status!=Inactive", want: FilterToken{"status", OpNotEquals, "Inactive"}},
		{in: "name:router", want: FilterToken{"name", OpContains, "router"}},
		{in: "name!:test", want: FilterToken{"name", OpNotContains, "test"}},
		{in: " name : router ", want: FilterToken{"name", OpContains, "router"}},
		{in: "url:http://x", want: FilterToken{"url", OpContains, "http://x"}},
		{in: "note=a=b", want: FilterToken{"note", OpEquals, "a=b"}},
		{in: "location=", want: FilterToken{"location", OpEquals, ""}},
		{in: "name!x", wantErr: true},
		{in: "=value", wantErr: true},
		{in: "plain", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFilterToken(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrConfiguration)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.PropertyKey+string(tt.want.Operator)+tt.want.Value, got.String())
		})
	}
}

func TestParseOperation(t *testing.T) {
	op, err := ParseOperation("")
	require.NoError(t, err)
	assert.Equal(t, OperationAnd, op)

	op, err = ParseOperation("OR")
	require.NoError(t, err)
	assert.Equal(t, OperationOr, op)

	_, err = ParseOperation("nand")
	assert.ErrorIs(t, err, ErrConfiguration)
}
