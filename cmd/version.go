package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/dview/internal/formatter"
	"github.com/oakwood-commons/dview/pkg/settings"
)

type versionOutput struct {
	settings.VersionInfo `yaml:",inline"`
	GoVersion            string `json:"goVersion" yaml:"goVersion"`
	Platform             string `json:"platform" yaml:"platform"`
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print dview version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versionOutput{
				VersionInfo: settings.VersionInformation,
				GoVersion:   runtime.Version(),
				Platform:    runtime.GOOS + "/" + runtime.GOARCH,
			}
			w := cmd.OutOrStdout()
			switch runSettings(cmd).Output {
			case "json":
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			case "yaml":
				out, err := formatter.RenderYAML(info, formatter.YAMLFormatOptions{})
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(w, out)
				return err
			default:
				_, err := fmt.Fprintf(w, "%s %s (commit %s, built %s, %s %s)\n",
					settings.CliBinaryName, info.BuildVersion, info.Commit, info.BuildTime, info.GoVersion, info.Platform)
				return err
			}
		},
	}
}
