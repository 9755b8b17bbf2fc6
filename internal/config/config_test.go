package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/dview/pkg/settings"
	"github.com/oakwood-commons/dview/pkg/view"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Defaults.PageSize)
	assert.Equal(t, "table", cfg.Defaults.Output)
	assert.False(t, cfg.NoColor())
	assert.Equal(t, []string{"forecast", "people"}, cfg.ViewNames())
	require.NoError(t, cfg.Validate())

	people, err := cfg.View("people")
	require.NoError(t, err)
	assert.Equal(t, "directory", people.Source)
	assert.Equal(t, "id", people.TrackBy)

	forecast, err := cfg.View("forecast")
	require.NoError(t, err)
	assert.Equal(t, "weather", forecast.Source)
	assert.Equal(t, "Berlin", forecast.City)
}

func TestDefaultYAMLIsACopy(t *testing.T) {
	a := DefaultYAML()
	a[0] = 'X'
	assert.NotEqual(t, a[0], DefaultYAML()[0])
}

func TestLoadMergesUserFile(t *testing.T) {
	path := writeConfig(t, `
defaults:
  page_size: 25
  no_color: true
views:
  devices:
    source: ./devices.json
    track_by: id
    filters: ["status=Active", "name:router"]
    operation: or
    sort: name:desc
  people:
    source: directory
    page_size: 5
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Defaults.PageSize)
	assert.Equal(t, "table", cfg.Defaults.Output, "unset fields keep defaults")
	assert.True(t, cfg.NoColor())
	assert.Equal(t, []string{"devices", "forecast", "people"}, cfg.ViewNames())

	people, err := cfg.View("people")
	require.NoError(t, err)
	assert.Equal(t, 5, people.PageSize)
	assert.Empty(t, people.TrackBy, "user views replace built-in views whole")

	devices, err := cfg.View("devices")
	require.NoError(t, err)
	q, spec, err := devices.Criteria()
	require.NoError(t, err)
	assert.Equal(t, view.OperationOr, q.Operation)
	assert.Equal(t, []view.FilterToken{
		{PropertyKey: "status", Operator: view.OpEquals, Value: "Active"},
		{PropertyKey: "name", Operator: view.OpContains, Value: "router"},
	}, q.Tokens)
	assert.Equal(t, &view.SortSpec{Field: "name", Direction: view.Descending}, spec)
}

func TestLoadEmptyPathAndEmptyFile(t *testing.T) {
	def, err := Default()
	require.NoError(t, err)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, def, cfg)

	cfg, err = Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, def.Defaults, cfg.Defaults)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		errMsg string
	}{
		{name: "unknown field", body: "defaults:\n  colour: red\n", errMsg: "decode config file"},
		{name: "bad output", body: "defaults:\n  output: xml\n", errMsg: "defaults.output"},
		{name: "negative page size", body: "defaults:\n  page_size: -1\n", errMsg: "page_size"},
		{name: "bad filter", body: "views:\n  v:\n    filters: [\"nooperator\"]\n", errMsg: `view "v"`},
		{name: "bad sort", body: "views:\n  v:\n    sort: name:sideways\n", errMsg: `view "v"`},
		{name: "bad where", body: "views:\n  v:\n    where: \"_.ports >\"\n", errMsg: `view "v"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config file")
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, "/explicit.yaml", ResolvePath("/explicit.yaml"))

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	assert.Empty(t, ResolvePath(""), "missing file is not resolved")

	path := filepath.Join(dir, "dview", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("defaults: {}\n"), 0o644))
	assert.Equal(t, path, ResolvePath(""))
}

func TestViewUnknown(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)
	_, err = cfg.View("nope")
	assert.ErrorContains(t, err, "available: forecast, people")
}

func TestViewOptionsConfigureController(t *testing.T) {
	v := View{
		TrackBy:      "id",
		PageSize:     2,
		SearchFields: []string{"name"},
		Filters:      []string{"status=Active"},
		Sort:         "ports:desc",
		Where:        "_.ports > 1",
	}
	opts, err := v.Options()
	require.NoError(t, err)

	c := view.NewController(opts...)
	assert.Equal(t, "id", c.TrackBy())
	assert.Equal(t, 2, c.PageSize())

	res, err := c.Query([]view.Record{
		{"id": 1, "name": "a", "status": "Active", "ports": 8},
		{"id": 2, "name": "b", "status": "Inactive", "ports": 24},
		{"id": 3, "name": "c", "status": "Active", "ports": 1},
		{"id": 4, "name": "d", "status": "Active", "ports": 48},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalCount)
	assert.Equal(t, 4, res.Page[0]["id"])
	assert.Equal(t, 1, res.Page[1]["id"])
}

func TestApplyTo(t *testing.T) {
	yes := true
	cfg := Config{Defaults: Defaults{PageSize: 30, Output: "json", NoColor: &yes, Width: 100}}

	run := settings.NewCliParams()
	cfg.ApplyTo(run, func(string) bool { return false })
	assert.Equal(t, 30, run.PageSize)
	assert.Equal(t, "json", run.Output)
	assert.True(t, run.NoColor)
	assert.Equal(t, 100, run.Width)

	run = settings.NewCliParams()
	run.Output = "csv"
	cfg.ApplyTo(run, func(flag string) bool { return flag == "output" })
	assert.Equal(t, "csv", run.Output, "explicit flags win")
	assert.Equal(t, 30, run.PageSize)
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)
	out, err := Marshal(cfg)
	require.NoError(t, err)

	var back Config
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, cfg, back)
}
