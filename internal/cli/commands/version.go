package commands

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// VersionInfo is the machine-readable version output.
type VersionInfo struct {
	Version   string `json:"version" yaml:"version"`
	BuildDate string `json:"build_date" yaml:"build_date"`
	GitCommit string `json:"git_commit" yaml:"git_commit"`
	GoVersion string `json:"go_version" yaml:"go_version"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(version, buildDate, gitCommit string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display leapseq version and build information.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := VersionInfo{
				Version:   version,
				BuildDate: buildDate,
				GitCommit: gitCommit,
				GoVersion: runtime.Version(),
			}

			r := NewCommandContext(cmd).Renderer
			if ok, err := r.Structured(info); ok {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "leapseq v%s\n", info.Version)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "commit %s, built %s with %s\n", info.GitCommit, info.BuildDate, info.GoVersion)
			return nil
		},
	}
}
