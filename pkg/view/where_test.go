package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileWhere(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantNil bool
		wantErr bool
	}{
		{name: "blank", expr: "  ", wantNil: true},
		{name: "bool expression", expr: `_.status == "Active"`},
		{name: "dyn field", expr: `_.enabled`},
		{name: "string extension", expr: `_.name.lowerAscii().startsWith("router")`},
		{name: "syntax error", expr: `_.status ==`, wantErr: true},
		{name: "non-bool result", expr: `1 + 2`, wantErr: true},
		{name: "unknown variable", expr: `device.status == "x"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := CompileWhere(tt.expr)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrConfiguration)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, w)
				return
			}
			assert.NotNil(t, w)
			assert.NotEmpty(t, w.String())
		})
	}
}

func TestWhereMatch(t *testing.T) {
	rec := Record{
		"name":    "Router-001",
		"ports":   8,
		"enabled": true,
		"seen":    time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		expr    string
		want    bool
		wantErr bool
	}{
		{expr: `_.ports > 4`, want: true},
		{expr: `_.ports > 40`, want: false},
		{expr: `_.enabled`, want: true},
		{expr: `_.name.contains("001")`, want: true},
		{expr: `_.seen > timestamp("2024-01-01T00:00:00Z")`, want: true},
		{expr: `"location" in _`, want: false},
		{expr: `_.location == "lab"`, wantErr: true},
		{expr: `_.name`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			w, err := CompileWhere(tt.expr)
			require.NoError(t, err)
			got, err := w.Match(rec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNilWhereMatches(t *testing.T) {
	var w *Where
	ok, err := w.Match(Record{"a": 1})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "", w.String())
}
