// Package loader parses record collections from JSON, newline-delimited
// JSON, YAML (single or multi-document), TOML and CSV.
package loader

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/dview/pkg/view"
)

// Format names an input encoding. FormatAuto detects it from the content.
type Format string

const (
	FormatAuto   Format = ""
	FormatJSON   Format = "json"
	FormatNDJSON Format = "ndjson"
	FormatYAML   Format = "yaml"
	FormatTOML   Format = "toml"
	FormatCSV    Format = "csv"
)

// ParseFormat maps a user-supplied name (case-insensitive, "yml" and
// "jsonl" accepted) to a Format. "" and "auto" yield FormatAuto.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "json":
		return FormatJSON, nil
	case "ndjson", "jsonl":
		return FormatNDJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	case "csv":
		return FormatCSV, nil
	default:
		return FormatAuto, fmt.Errorf("unknown input format %q (expected json, ndjson, yaml, toml or csv)", s)
	}
}

// FormatFromPath infers a Format from a file extension, or FormatAuto.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".ndjson", ".jsonl":
		return FormatNDJSON
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	case ".csv":
		return FormatCSV
	default:
		return FormatAuto
	}
}

// Options controls how input becomes records.
type Options struct {
	Format Format
	// RecordsPath is a dotted path to the record list inside the document,
	// e.g. "results" or "data.devices".
	RecordsPath string
	// ExpandEmbedded decodes string fields holding JSON or a JWT.
	ExpandEmbedded bool
}

// Option configures Options.
type Option func(*Options)

// WithFormat forces the input format instead of detecting it.
func WithFormat(f Format) Option {
	return func(o *Options) {
		o.Format = f
	}
}

// WithRecordsPath selects the record list inside the document.
func WithRecordsPath(path string) Option {
	return func(o *Options) {
		o.RecordsPath = path
	}
}

func buildOptions(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// LoadRecords parses data into records. See Records for how documents map
// onto records.
func LoadRecords(data []byte, opts ...Option) ([]view.Record, error) {
	o := buildOptions(opts)
	root, err := decode(data, o.Format)
	if err != nil {
		return nil, err
	}
	recs, err := Records(root, o.RecordsPath)
	if err != nil {
		return nil, err
	}
	return o.finish(recs), nil
}

func (o Options) finish(recs []view.Record) []view.Record {
	if !o.ExpandEmbedded {
		return recs
	}
	for i, r := range recs {
		recs[i] = ExpandEmbedded(r)
	}
	return recs
}

// LoadReader reads r fully and parses it with LoadRecords.
func LoadReader(r io.Reader, opts ...Option) ([]view.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return LoadRecords(data, opts...)
}

// LoadFile reads path and parses it. Without WithFormat, the extension
// picks the format and unknown extensions fall back to detection.
func LoadFile(path string, opts ...Option) ([]view.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	if o.Format == FormatAuto {
		o.Format = FormatFromPath(path)
	}
	root, err := decode(data, o.Format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	recs, err := Records(root, o.RecordsPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return o.finish(recs), nil
}

// decode parses input into a generic tree. Multi-document inputs (NDJSON,
// multi-document YAML) decode into a []any with one element per document.
func decode(data []byte, format Format) (any, error) {
	input := strings.TrimSpace(string(data))
	if input == "" {
		return nil, errors.New("empty input")
	}
	if format == FormatAuto {
		format = detect(input)
	}
	switch format {
	case FormatJSON:
		return decodeJSON(input)
	case FormatNDJSON:
		return decodeNDJSON(input)
	case FormatYAML:
		return decodeYAML(input)
	case FormatTOML:
		return decodeTOML(input)
	case FormatCSV:
		return decodeCSV(input)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// detect guesses the format of trimmed, non-empty input.
func detect(input string) Format {
	if strings.HasPrefix(input, "---") || strings.Contains(input, "\n---") {
		return FormatYAML
	}
	lines := strings.Split(input, "\n")
	if len(lines) > 1 && isLikelyNDJSON(lines) {
		return FormatNDJSON
	}
	// TOML section headers look like JSON arrays, so check TOML first.
	if isLikelyTOML(lines) {
		return FormatTOML
	}
	if strings.HasPrefix(input, "{") || strings.HasPrefix(input, "[") {
		return FormatJSON
	}
	return FormatYAML
}

// isLikelyNDJSON requires more than one non-empty line and a majority of
// lines opening a JSON object or array.
func isLikelyNDJSON(lines []string) bool {
	jsonLines, nonEmpty := 0, 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		nonEmpty++
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			jsonLines++
		}
	}
	return nonEmpty > 1 && jsonLines > nonEmpty/2
}

var (
	tomlSection  = regexp.MustCompile(`^\s*\[{1,2}[A-Za-z_][A-Za-z0-9_.\-"']*\]{1,2}\s*$`)
	tomlKeyValue = regexp.MustCompile(`^\s*[A-Za-z_][A-Za-z0-9_.\-]*\s*=\s*.+$`)
)

// isLikelyTOML looks for [table] / [[array]] headers or a majority of
// key = value lines.
func isLikelyTOML(lines []string) bool {
	sections, pairs, nonEmpty := 0, 0, 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		nonEmpty++
		if tomlSection.MatchString(line) {
			sections++
		}
		if tomlKeyValue.MatchString(line) {
			pairs++
		}
	}
	return sections > 0 || (nonEmpty > 0 && pairs > nonEmpty/2)
}

func decodeJSON(input string) (any, error) {
	var data any
	if err := json.Unmarshal([]byte(input), &data); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return data, nil
}

// decodeNDJSON keeps lines that are not valid JSON as plain strings.
func decodeNDJSON(input string) (any, error) {
	var docs []any
	for _, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var doc any
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			docs = append(docs, line)
			continue
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return nil, errors.New("no data found in input")
	}
	return docs, nil
}

func decodeYAML(input string) (any, error) {
	dec := yaml.NewDecoder(strings.NewReader(input))
	var docs []any
	for {
		var doc yaml.Node
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
		if v := yamlNodeValue(&doc); v != nil {
			docs = append(docs, v)
		}
	}
	switch len(docs) {
	case 0:
		return nil, errors.New("no documents found in YAML input")
	case 1:
		return docs[0], nil
	default:
		return docs, nil
	}
}

// yamlNodeValue converts a node tree to generic values. Unlike decoding
// straight into an interface, timestamps become time.Time so that they sort
// chronologically.
func yamlNodeValue(n *yaml.Node) any {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) > 0 {
			return yamlNodeValue(n.Content[0])
		}
		return nil
	case yaml.MappingNode:
		m := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			m[fmt.Sprint(yamlNodeValue(n.Content[i]))] = yamlNodeValue(n.Content[i+1])
		}
		return m
	case yaml.SequenceNode:
		arr := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			arr = append(arr, yamlNodeValue(c))
		}
		return arr
	case yaml.ScalarNode:
		if n.ShortTag() == "!!timestamp" {
			var ts time.Time
			if err := n.Decode(&ts); err == nil {
				return ts
			}
		}
		var val any
		if err := n.Decode(&val); err != nil {
			return n.Value
		}
		return val
	case yaml.AliasNode:
		if n.Alias != nil {
			return yamlNodeValue(n.Alias)
		}
		return nil
	default:
		return nil
	}
}

func decodeTOML(input string) (any, error) {
	var data map[string]any
	if err := toml.Unmarshal([]byte(input), &data); err != nil {
		return nil, fmt.Errorf("invalid TOML: %w", err)
	}
	return data, nil
}

// decodeCSV treats the first row as the header. Short rows leave their
// missing columns unset. Cells are typed with csvValue.
func decodeCSV(input string) (any, error) {
	r := csv.NewReader(bytes.NewBufferString(input))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("CSV input has no header row")
	}
	header := rows[0]
	out := make([]any, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = csvValue(row[i])
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// csvValue types a CSV cell the way a YAML scalar would be: integers,
// finite floats and true/false become numbers and booleans. Anything else,
// including numbers with leading zeros such as postal codes, stays a string.
func csvValue(cell string) any {
	t := strings.TrimSpace(cell)
	if t == "" || hasLeadingZero(t) {
		return cell
	}
	if i, err := strconv.Atoi(t); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) && isDecimal(t) {
		return f
	}
	switch strings.ToLower(t) {
	case "true":
		return true
	case "false":
		return false
	}
	return cell
}

func hasLeadingZero(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) > 1 && s[0] == '0' && s[1] != '.' && s[1] != 'e' && s[1] != 'E'
}

// isDecimal rejects the hex, "inf" and "nan" spellings ParseFloat accepts.
func isDecimal(s string) bool {
	return strings.Trim(s, "+-0123456789.eE") == "" && strings.ContainsAny(s, "0123456789")
}
