package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/dview/pkg/logger"
	"github.com/oakwood-commons/dview/pkg/settings"
)

const devicesJSON = `[
  {"id": 1, "name": "Router-001", "status": "Active", "ports": 8},
  {"id": 2, "name": "Switch-002", "status": "Inactive", "ports": 48},
  {"id": 3, "name": "Router-003", "status": "Active", "ports": 16},
  {"id": 4, "name": "Firewall-004", "status": "Maintenance", "ports": 4}
]`

// execute runs a fresh command tree with an isolated config directory.
func execute(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("NO_COLOR", "")

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	if stdin == nil {
		devNull, err := os.Open(os.DevNull)
		require.NoError(t, err)
		t.Cleanup(func() { _ = devNull.Close() })
		stdin = devNull
	}
	root.SetIn(stdin)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

type jsonResult struct {
	Page       []map[string]any `json:"page"`
	TotalCount int              `json:"totalCount"`
	TotalPages int              `json:"totalPages"`
	PageIndex  int              `json:"pageIndex"`
	PageSize   int              `json:"pageSize"`
}

func decodeResult(t *testing.T, out string) jsonResult {
	t.Helper()
	var res jsonResult
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	return res
}

func ids(res jsonResult) []any {
	out := make([]any, len(res.Page))
	for i, r := range res.Page {
		out[i] = r["id"]
	}
	return out
}

func TestQueryFileWithCriteria(t *testing.T) {
	path := writeFile(t, "devices.json", devicesJSON)

	tests := []struct {
		name  string
		args  []string
		want  []any
		total int
	}{
		{
			name:  "all records",
			args:  []string{},
			want:  []any{1.0, 2.0, 3.0, 4.0},
			total: 4,
		},
		{
			name:  "and filters with sort",
			args:  []string{"--filter", "status=Active", "--sort", "ports:desc"},
			want:  []any{3.0, 1.0},
			total: 2,
		},
		{
			name:  "or filters",
			args:  []string{"--or", "-f", "status=Maintenance", "-f", "name:switch"},
			want:  []any{2.0, 4.0},
			total: 2,
		},
		{
			name:  "negated filters",
			args:  []string{"-f", "status!=Active", "-f", "name!:fire"},
			want:  []any{2.0},
			total: 1,
		},
		{
			name:  "search limited to a field",
			args:  []string{"--search", "ROUTER", "--search-field", "name"},
			want:  []any{1.0, 3.0},
			total: 2,
		},
		{
			name:  "where clause",
			args:  []string{"--where", "_.ports >= 16"},
			want:  []any{2.0, 3.0},
			total: 2,
		},
		{
			name:  "second page",
			args:  []string{"--page-size", "3", "--page", "2"},
			want:  []any{4.0},
			total: 4,
		},
		{
			name:  "page past the end is clamped",
			args:  []string{"--page-size", "3", "--page", "9"},
			want:  []any{4.0},
			total: 4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"query", path, "-o", "json"}, tt.args...)
			out, err := execute(t, nil, args...)
			require.NoError(t, err)
			res := decodeResult(t, out)
			assert.Equal(t, tt.want, ids(res))
			assert.Equal(t, tt.total, res.TotalCount)
		})
	}
}

func TestQueryStdinCSV(t *testing.T) {
	in := strings.NewReader("id,name,status\n1,Router-001,Active\n2,Switch-002,Inactive\n")
	out, err := execute(t, in, "query", "--input-format", "csv", "--filter", "status=Inactive", "-o", "csv")
	require.NoError(t, err)
	assert.Equal(t, "id,name,status\n2,Switch-002,Inactive\n", out)
}

func TestQueryCSVSortsNumbers(t *testing.T) {
	path := writeFile(t, "devices.csv", "id,ports\n1,8\n2,48\n3,24\n")
	out, err := execute(t, nil, "query", path, "--sort", "ports:desc", "-o", "csv")
	require.NoError(t, err)
	assert.Equal(t, "id,ports\n2,48\n3,24\n1,8\n", out)
}

func TestQueryTableOutput(t *testing.T) {
	path := writeFile(t, "devices.yaml", "- name: Router-001\n  status: Active\n- name: Switch-002\n  status: Inactive\n")
	out, err := execute(t, nil, "query", path, "--no-color", "--width", "80", "--columns", "name,status")
	require.NoError(t, err)
	assert.Contains(t, out, "Router-001")
	assert.Contains(t, out, "Switch-002")
	assert.Contains(t, out, "page 1 of 1 (2 records)")

	out, err = execute(t, nil, "query", path, "--no-color", "-q")
	require.NoError(t, err)
	assert.NotContains(t, out, "page 1 of 1")
}

func TestQueryErrors(t *testing.T) {
	path := writeFile(t, "devices.json", devicesJSON)
	tests := []struct {
		name   string
		args   []string
		errMsg string
	}{
		{name: "bad filter token", args: []string{"query", path, "--filter", "status"}, errMsg: "--filter"},
		{name: "bad sort", args: []string{"query", path, "--sort", "name:sideways"}, errMsg: "--sort"},
		{name: "bad where", args: []string{"query", path, "--where", "_.ports >"}, errMsg: "--where"},
		{name: "bad output", args: []string{"query", path, "-o", "xml"}, errMsg: "invalid output"},
		{name: "missing file", args: []string{"query", filepath.Join(t.TempDir(), "nope.json")}, errMsg: "nope.json"},
		{name: "unknown view", args: []string{"query", "--view", "nope"}, errMsg: "unknown view"},
		{name: "no input", args: []string{"query"}, errMsg: "no input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, nil, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestQueryNamedView(t *testing.T) {
	data := writeFile(t, "devices.json", devicesJSON)
	cfg := writeFile(t, "config.yaml", `
defaults:
  page_size: 2
views:
  active:
    source: `+data+`
    filters: ["status=Active"]
    sort: name:desc
`)
	out, err := execute(t, nil, "--config-file", cfg, "query", "--view", "active", "-o", "json")
	require.NoError(t, err)
	res := decodeResult(t, out)
	assert.Equal(t, []any{3.0, 1.0}, ids(res))
	assert.Equal(t, 2, res.PageSize)

	// Flags layer on top of the view.
	out, err = execute(t, nil, "--config-file", cfg, "query", "--view", "active", "--sort", "ports", "--page-size", "1", "-o", "json")
	require.NoError(t, err)
	res = decodeResult(t, out)
	assert.Equal(t, []any{1.0}, ids(res))
	assert.Equal(t, 2, res.TotalPages)
}

func TestFetchURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data": {"items": `+devicesJSON+`}}`)
	}))
	t.Cleanup(srv.Close)

	out, err := execute(t, nil, "fetch", "--url", srv.URL, "--records-path", "data.items", "--sort", "name", "-o", "json")
	require.NoError(t, err)
	res := decodeResult(t, out)
	assert.Equal(t, []any{4.0, 1.0, 3.0, 2.0}, ids(res))
}

func TestFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	_, err := execute(t, nil, "fetch", "--url", srv.URL, "--retries", "0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestFetchRequiresSource(t *testing.T) {
	_, err := execute(t, nil, "fetch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--url")

	_, err = execute(t, nil, "fetch", "--url", "http://x", "--directory")
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, nil, "version", "-o", "json")
	require.NoError(t, err)
	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "commit")
	assert.Contains(t, info, "goVersion")

	out, err = execute(t, nil, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "dview "), out)
}

func TestConfigCommand(t *testing.T) {
	out, err := execute(t, nil, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "people:")
	assert.Contains(t, out, "page_size: 10")

	out, err = execute(t, nil, "config", "views")
	require.NoError(t, err)
	assert.Equal(t, "forecast\tweather\npeople\tdirectory\n", out)

	out, err = execute(t, nil, "config", "--defaults")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# dview configuration."))
}

func TestConfigFileErrors(t *testing.T) {
	cfg := writeFile(t, "config.yaml", "defaults:\n  colour: true\n")
	_, err := execute(t, nil, "--config-file", cfg, "config")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colour")
}

func TestTerminalDeviceNames(t *testing.T) {
	in, out := terminalDeviceNames("windows")
	assert.Equal(t, "CONIN$", in)
	assert.Equal(t, "CONOUT$", out)

	in, out = terminalDeviceNames("linux")
	assert.Equal(t, "/dev/tty", in)
	assert.Equal(t, in, out)
}

func TestQueryExpandEmbedded(t *testing.T) {
	in := strings.NewReader("id,meta\n1,\"{\"\"region\"\": \"\"eu\"\"}\"\n2,\"{\"\"region\"\": \"\"us\"\"}\"\n")
	out, err := execute(t, in, "query", "-", "--input-format", "csv", "--expand", "--where", `_.meta.region == "eu"`, "-o", "json")
	require.NoError(t, err)
	res := decodeResult(t, out)
	assert.Equal(t, []any{float64(1)}, ids(res))
}

func TestCommandContextCarriesSettingsAndLogger(t *testing.T) {
	run := settings.NewCliParams()
	run.Output = "json"
	lgr := logr.Discard().WithName("test")

	cmd := &cobra.Command{}
	cmd.SetContext(logger.WithLogger(settings.IntoContext(context.Background(), run), &lgr))
	assert.Same(t, run, runSettings(cmd))
	assert.Equal(t, lgr, commandLogger(cmd))

	bare := &cobra.Command{}
	assert.Equal(t, settings.NewCliParams(), runSettings(bare))
	assert.Equal(t, *logger.GetNoopLogger(), commandLogger(bare))
}

func TestConfigDefaultsReachSubcommands(t *testing.T) {
	cfg := writeFile(t, "config.yaml", "defaults:\n  output: json\n  page_size: 1\n")
	path := writeFile(t, "devices.json", devicesJSON)

	out, err := execute(t, nil, "--config-file", cfg, "query", path)
	require.NoError(t, err)
	res := decodeResult(t, out)
	assert.Equal(t, 1, res.PageSize)
	assert.Equal(t, 4, res.TotalPages)
	assert.Len(t, res.Page, 1)

	out, err = execute(t, nil, "--config-file", cfg, "version")
	require.NoError(t, err)
	var info map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &info), out)
	assert.Contains(t, info, "goVersion")
}
