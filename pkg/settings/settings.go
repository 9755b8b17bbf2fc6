// Package settings holds build metadata, per-invocation options and the
// context helpers that carry them through the dview commands.
package settings

// CliBinaryName is the canonical binary name for this tool.
const CliBinaryName = "dview"

// VersionInformation is populated at build time via ldflags.
var VersionInformation = VersionInfo{
	Commit:       "unknown",
	BuildVersion: "v0.0.0-nightly",
	BuildTime:    "unknown",
}

// VersionInfo holds metadata about the build.
type VersionInfo struct {
	Commit       string `json:"commit" yaml:"commit"`
	BuildVersion string `json:"version" yaml:"version"`
	BuildTime    string `json:"buildTime" yaml:"buildTime"`
}

// Run holds the settings for a single execution. Values set on the command
// line win over the config file; the config file wins over these defaults.
type Run struct {
	MinLogLevel int8
	ConfigFile  string
	// Output is the render format: table, json, yaml or csv.
	Output   string
	PageSize int
	Width    int
	IsQuiet  bool
	NoColor  bool
}

// DefaultOutput is the render format used when neither flags nor config
// choose one.
const DefaultOutput = "table"

// NewCliParams returns the defaults for a CLI invocation.
func NewCliParams() *Run {
	return &Run{
		MinLogLevel: 0,
		Output:      DefaultOutput,
		PageSize:    10,
	}
}
