package commands

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version information set at build time via ldflags.
// Example: go build -ldflags "-X github.com/petal-labs/oaikit/cli/commands.Version=v1.0.0"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// currentVersion fills values not set by ldflags from the embedded build
// info, so binaries built with go install still report a version.
func currentVersion() versionInfo {
	v := versionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return v
	}
	if v.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		v.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && v.Commit == "unknown":
			v.Commit = s.Value
		case s.Key == "vcs.time" && v.BuildDate == "unknown":
			v.BuildDate = s.Value
		}
	}
	return v
}

func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := currentVersion()
			if a.jsonOutput {
				return a.printJSON(v)
			}
			tw := a.table()
			fmt.Fprintf(tw, "oaikit %s\n", v.Version)
			fmt.Fprintf(tw, "  commit:\t%s\n", v.Commit)
			fmt.Fprintf(tw, "  built:\t%s\n", v.BuildDate)
			fmt.Fprintf(tw, "  go version:\t%s\n", v.GoVersion)
			fmt.Fprintf(tw, "  platform:\t%s\n", v.Platform)
			return tw.Flush()
		},
	}
}
