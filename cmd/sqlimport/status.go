package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pthm/sqlimport/internal/cli"
)

var statusFlags generateFlags

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List generated files that are out of date",
	Long: `Generate every artifact in memory and compare it with the file on disk.
Exits with status 4 when any generated file is missing or differs, which makes
it suitable as a CI check.`,
	Example: `  # Fail CI when generated code was not committed
  sqlimport status`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		proj, err := openProject(&statusFlags)
		if err != nil {
			return err
		}

		stale, err := proj.Status(cmd.Context())
		if err != nil {
			return projectError("checking generated files", err)
		}

		out := statusOutput(cmd)
		if len(stale) == 0 {
			_, _ = fmt.Fprintln(out, "Generated files are up to date")
			return nil
		}

		for _, path := range stale {
			if rel, err := filepath.Rel(proj.Root(), path); err == nil {
				path = rel
			}
			_, _ = fmt.Fprintf(out, "stale: %s\n", path)
		}
		return cli.StaleError(fmt.Sprintf("%d generated files are out of date; run 'sqlimport generate'", len(stale)))
	},
}

func init() {
	statusFlags.register(statusCmd)
}
