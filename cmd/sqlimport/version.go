package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pthm/sqlimport/internal/cli"
	"github.com/pthm/sqlimport/internal/update"
	"github.com/pthm/sqlimport/internal/version"
)

var versionCheck bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Example: `  # Print the version
  sqlimport version

  # Also check GitHub for a newer release
  sqlimport version --check`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintln(out, version.Info())
		if !versionCheck {
			return nil
		}

		info, err := update.NewChecker().CheckWithCache(cmd.Context())
		if err != nil {
			return cli.GeneralError("checking for updates", err)
		}
		if info.UpdateAvailable {
			_, _ = fmt.Fprintf(out, "A new version is available: %s (current %s)\n", info.LatestVersion, info.CurrentVersion)
			if info.ReleaseURL != "" {
				_, _ = fmt.Fprintln(out, info.ReleaseURL)
			}
			_, _ = fmt.Fprintln(out, "Update with: go install github.com/pthm/sqlimport/cmd/sqlimport@latest")
		} else {
			_, _ = fmt.Fprintln(out, "sqlimport is up to date")
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "check for a newer release")
}
