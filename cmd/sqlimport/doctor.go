package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pthm/sqlimport/internal/cli"
	"github.com/pthm/sqlimport/internal/doctor"
)

var (
	doctorFlags   generateFlags
	doctorVerbose bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks",
	Long:  `Run health checks over the query files under the root directory.`,
	Example: `  # Run health checks
  sqlimport doctor

  # List every offending module
  sqlimport doctor --verbose`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		verboseFlag := resolveBool(doctorVerbose, cfg.Doctor.Verbose)

		proj, err := openProject(&doctorFlags)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if !quiet {
			_, _ = fmt.Fprintln(out, "sqlimport doctor - Health Check")
		}

		report, err := doctor.New(proj).Run(cmd.Context())
		if err != nil {
			return cli.GeneralError("running doctor", err)
		}

		report.Print(out, verboseFlag)

		if report.HasErrors() {
			return cli.GeneralError("health checks failed", nil)
		}
		return nil
	},
}

func init() {
	doctorFlags.register(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorVerbose, "verbose", false, "show detailed output")
}
