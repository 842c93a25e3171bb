package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/pthm/sqlimport/internal/cli"
	"github.com/pthm/sqlimport/pkg/parser"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.sql>",
	Short: "Print the parsed modules of a query file",
	Long: `Print the modules parsed from a query file as YAML: function names,
execution tags, parameters and the inferred result columns of each statement.`,
	Example: `  # Show what sqlimport infers for a file
  sqlimport inspect db/users.sql`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		text, err := os.ReadFile(path)
		if err != nil {
			return cli.ParseError(fmt.Sprintf("reading %s", path), err)
		}

		file := parser.ParseFile(filepath.ToSlash(path), string(text))
		out, err := yaml.Marshal(file)
		if err != nil {
			return cli.GeneralError("encoding descriptors", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}
