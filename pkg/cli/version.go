package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/getmockd/mqfacade/pkg/cli/internal/output"
	"github.com/getmockd/mqfacade/pkg/pcf"
)

// VersionOutput represents JSON output format
type VersionOutput struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	Go        string `json:"go"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	Transport string `json:"transport"`
}

func newVersionCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show mqfacade version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := versionInfo(o.info)
			w := cmd.OutOrStdout()
			if o.jsonOutput {
				return output.JSON(w, out)
			}

			v := out.Version
			if len(v) > 0 && v[0] != 'v' && v != "dev" && v != "(devel)" {
				v = "v" + v
			}
			fmt.Fprintf(w, "mqfacade %s (%s, %s)\n", v, out.Commit, out.Date)
			fmt.Fprintf(w, "%s %s/%s, transport %s\n", out.Go, out.OS, out.Arch, out.Transport)
			return nil
		},
	}
}

// versionInfo fills unset ldflags values from the embedded build info.
func versionInfo(info BuildInfo) VersionOutput {
	version, commit, date := info.Version, info.Commit, info.BuildDate
	if version == "" {
		version = "dev"
	}
	if commit == "" {
		commit = "none"
	}
	if date == "" {
		date = "unknown"
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		if version == "dev" && bi.Main.Version != "" {
			version = bi.Main.Version
		}
		for _, setting := range bi.Settings {
			switch setting.Key {
			case "vcs.revision":
				if commit == "none" {
					commit = setting.Value
				}
			case "vcs.time":
				if date == "unknown" {
					date = setting.Value
				}
			case "vcs.modified":
				if setting.Value == "true" {
					commit += "-dirty"
				}
			}
		}
	}

	transport := "ibmmq"
	if !pcf.Available() {
		transport = "unavailable (built without ibm_mq)"
	}
	return VersionOutput{
		Version:   version,
		Commit:    commit,
		Date:      date,
		Go:        runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		Transport: transport,
	}
}
