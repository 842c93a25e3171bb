package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var genFlags generateFlags

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate code for every query file",
	Long: `Generate code for every *.sql file under the root directory.

Each query file produces a source file and a type declaration file, written
next to it or under --output and --types-dir. Files matched by an alias in
sqlimport.yaml are also declared in the aggregate manifest.`,
	Example: `  # Generate Go code next to each query file
  sqlimport generate

  # Generate TypeScript into separate directories
  sqlimport generate --runtime typescript --output dist --types-dir types

  # Generate Go code into a package directory
  sqlimport generate --root db/queries --output internal/queries --package queries`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		proj, err := openProject(&genFlags)
		if err != nil {
			return err
		}

		summary, err := proj.Generate(cmd.Context())
		if err != nil {
			return projectError("generating", err)
		}

		out := statusOutput(cmd)
		for _, path := range summary.Written {
			_, _ = fmt.Fprintf(out, "Generated %s\n", path)
		}
		_, _ = fmt.Fprintf(out, "%d files, %d modules, %d warnings\n",
			summary.Files, summary.Modules, len(summary.Warnings))
		return nil
	},
}

func init() {
	genFlags.register(generateCmd)
}
