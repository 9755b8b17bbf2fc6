// Package config loads the dview YAML configuration: output defaults and
// named views that preset a source and query criteria.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oakwood-commons/dview/pkg/settings"
	"github.com/oakwood-commons/dview/pkg/view"
)

//go:embed default.yaml
var embeddedDefault []byte

// Config is the merged configuration.
type Config struct {
	Defaults Defaults        `yaml:"defaults" json:"defaults"`
	Views    map[string]View `yaml:"views,omitempty" json:"views,omitempty"`
}

// Defaults apply to every command unless a flag overrides them.
type Defaults struct {
	PageSize int    `yaml:"page_size,omitempty" json:"page_size,omitempty"`
	Output   string `yaml:"output,omitempty" json:"output,omitempty"`
	NoColor  *bool  `yaml:"no_color,omitempty" json:"no_color,omitempty"`
	Width    int    `yaml:"width,omitempty" json:"width,omitempty"`
}

// View is a named preset. Source is a file path, an http(s) URL,
// "directory" or "weather".
type View struct {
	Source      string `yaml:"source,omitempty" json:"source,omitempty"`
	RecordsPath string `yaml:"records_path,omitempty" json:"records_path,omitempty"`
	// City is the place looked up by the weather source.
	City         string   `yaml:"city,omitempty" json:"city,omitempty"`
	TrackBy      string   `yaml:"track_by,omitempty" json:"track_by,omitempty"`
	PageSize     int      `yaml:"page_size,omitempty" json:"page_size,omitempty"`
	SearchFields []string `yaml:"search_fields,omitempty" json:"search_fields,omitempty"`
	Search       string   `yaml:"search,omitempty" json:"search,omitempty"`
	Sort         string   `yaml:"sort,omitempty" json:"sort,omitempty"`
	// Filters are tokens such as "status=Active" or "name:router".
	Filters []string `yaml:"filters,omitempty" json:"filters,omitempty"`
	// Operation joins Filters: "and" (default) or "or".
	Operation string   `yaml:"operation,omitempty" json:"operation,omitempty"`
	Where     string   `yaml:"where,omitempty" json:"where,omitempty"`
	Columns   []string `yaml:"columns,omitempty" json:"columns,omitempty"`
}

// DefaultYAML returns a copy of the embedded default configuration.
func DefaultYAML() []byte {
	return slices.Clone(embeddedDefault)
}

// Default parses the embedded defaults.
func Default() (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(embeddedDefault, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode default config: %w", err)
	}
	return cfg, nil
}

// ResolvePath returns explicit if set, otherwise
// $XDG_CONFIG_HOME/dview/config.yaml or ~/.config/dview/config.yaml when
// that file exists, otherwise "".
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	candidate := ""
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		candidate = filepath.Join(xdg, settings.CliBinaryName, "config.yaml")
	} else if home, err := os.UserHomeDir(); err == nil {
		candidate = filepath.Join(home, ".config", settings.CliBinaryName, "config.yaml")
	}
	if candidate != "" {
		if st, err := os.Stat(candidate); err == nil && !st.IsDir() {
			return candidate
		}
	}
	return ""
}

// Load merges the file at path over the embedded defaults. An empty path
// yields the defaults alone.
func Load(path string) (Config, error) {
	cfg, err := Default()
	if err != nil {
		return cfg, err
	}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	var user Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&user); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("decode config file %s: %w", path, err)
	}
	cfg = cfg.merge(user)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) merge(o Config) Config {
	if o.Defaults.PageSize != 0 {
		c.Defaults.PageSize = o.Defaults.PageSize
	}
	if o.Defaults.Output != "" {
		c.Defaults.Output = o.Defaults.Output
	}
	if o.Defaults.NoColor != nil {
		c.Defaults.NoColor = o.Defaults.NoColor
	}
	if o.Defaults.Width != 0 {
		c.Defaults.Width = o.Defaults.Width
	}
	views := make(map[string]View, len(c.Views)+len(o.Views))
	maps.Copy(views, c.Views)
	maps.Copy(views, o.Views)
	c.Views = views
	return c
}

// Validate checks defaults and that every view's criteria parse.
func (c Config) Validate() error {
	if c.Defaults.PageSize < 0 {
		return fmt.Errorf("defaults.page_size must not be negative")
	}
	switch c.Defaults.Output {
	case "", "table", "json", "yaml", "csv":
	default:
		return fmt.Errorf("defaults.output %q is not one of table, json, yaml, csv", c.Defaults.Output)
	}
	for _, name := range c.ViewNames() {
		if _, err := c.Views[name].Options(); err != nil {
			return fmt.Errorf("view %q: %w", name, err)
		}
	}
	return nil
}

// ViewNames returns the view names in sorted order.
func (c Config) ViewNames() []string {
	return slices.Sorted(maps.Keys(c.Views))
}

// View looks up a named view.
func (c Config) View(name string) (View, error) {
	v, ok := c.Views[name]
	if !ok {
		return View{}, fmt.Errorf("unknown view %q (available: %s)", name, strings.Join(c.ViewNames(), ", "))
	}
	return v, nil
}

// NoColor reports the configured color default.
func (c Config) NoColor() bool {
	return c.Defaults.NoColor != nil && *c.Defaults.NoColor
}

// ApplyTo copies defaults onto run settings, leaving fields named in
// explicit (flag names the user set) untouched.
func (c Config) ApplyTo(run *settings.Run, explicit func(flag string) bool) {
	if c.Defaults.PageSize > 0 && !explicit("page-size") {
		run.PageSize = c.Defaults.PageSize
	}
	if c.Defaults.Output != "" && !explicit("output") {
		run.Output = c.Defaults.Output
	}
	if c.Defaults.NoColor != nil && !explicit("no-color") {
		run.NoColor = *c.Defaults.NoColor
	}
	if c.Defaults.Width > 0 && !explicit("width") {
		run.Width = c.Defaults.Width
	}
}

// Criteria parses the view's filters and sort.
func (v View) Criteria() (view.FilterQuery, *view.SortSpec, error) {
	op, err := view.ParseOperation(v.Operation)
	if err != nil {
		return view.FilterQuery{}, nil, err
	}
	q := view.FilterQuery{Operation: op}
	for _, raw := range v.Filters {
		tok, err := view.ParseFilterToken(raw)
		if err != nil {
			return view.FilterQuery{}, nil, err
		}
		q.Tokens = append(q.Tokens, tok)
	}
	spec, err := view.ParseSortSpec(v.Sort)
	if err != nil {
		return view.FilterQuery{}, nil, err
	}
	return q, spec, nil
}

// Options converts the view into controller options.
func (v View) Options() ([]view.Option, error) {
	q, spec, err := v.Criteria()
	if err != nil {
		return nil, err
	}
	if _, err := view.CompileWhere(v.Where); err != nil {
		return nil, err
	}
	opts := []view.Option{view.WithFilterQuery(q), view.WithSort(spec)}
	if v.TrackBy != "" {
		opts = append(opts, view.WithTrackBy(v.TrackBy))
	}
	if v.PageSize > 0 {
		opts = append(opts, view.WithPageSize(v.PageSize))
	}
	if len(v.SearchFields) > 0 {
		opts = append(opts, view.WithSearchFields(v.SearchFields...))
	}
	if v.Where != "" {
		opts = append(opts, view.WithWhere(v.Where))
	}
	return opts, nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
