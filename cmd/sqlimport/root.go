package main

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/pthm/sqlimport/internal/cli"
	"github.com/pthm/sqlimport/internal/project"
	"github.com/pthm/sqlimport/internal/version"
	"github.com/pthm/sqlimport/pkg/compiler"
)

var (
	// Global state set during PersistentPreRunE
	cfg        *cli.Config
	configPath string

	// logger is replaced in PersistentPreRunE once verbosity flags are parsed.
	logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Persistent flags
	cfgFile     string
	verbose     int
	quiet       bool
	rootDir     string
	runtimeName string
)

var rootCmd = &cobra.Command{
	Use:   "sqlimport",
	Short: "Typed functions from annotated SQL files",
	Long: `sqlimport - typed functions from annotated SQL files

sqlimport reads *.sql files whose statements are preceded by annotations such
as "-- name: GetUser :one" and generates one callable function per statement
with parameter and row types inferred from the SQL.

Supported runtimes: ` + strings.Join(compiler.Runtimes(), ", "),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = newLogger(cmd.ErrOrStderr())

		// Skip config loading for help/completion/version commands
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, configPath, err = cli.LoadConfig(cfgFile)
		if err != nil {
			return cli.ConfigError("loading configuration", err)
		}
		if configPath != "" {
			logger.Debug("loaded configuration", "path", configPath)
		}
		return nil
	},
	SilenceUsage:  true, // Don't show usage on errors
	SilenceErrors: true, // We handle errors ourselves
}

// Command group IDs
const (
	groupQueries = "queries"
	groupUtility = "utility"
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: auto-discover sqlimport.yaml)")
	pf.CountVarP(&verbose, "verbose", "v", "increase verbosity (can be repeated)")
	pf.BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	pf.StringVar(&rootDir, "root", "", "directory scanned for query files (default: .)")
	pf.StringVar(&runtimeName, "runtime", "", "target runtime: "+strings.Join(compiler.Runtimes(), ", "))

	rootCmd.AddGroup(
		&cobra.Group{ID: groupQueries, Title: "Queries:"},
		&cobra.Group{ID: groupUtility, Title: "Utility:"},
	)

	generateCmd.GroupID = groupQueries
	watchCmd.GroupID = groupQueries
	inspectCmd.GroupID = groupQueries
	statusCmd.GroupID = groupQueries
	doctorCmd.GroupID = groupQueries
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(doctorCmd)

	configCmd.GroupID = groupUtility
	versionCmd.GroupID = groupUtility
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cli.ExitWithError(err)
	}
}

// newLogger builds the stderr logger: -v enables debug, --quiet keeps errors
// only.
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case quiet:
		level = slog.LevelError
	case verbose > 0:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// generateFlags are shared by the commands that build a project.
type generateFlags struct {
	output        string
	typesDir      string
	pkg           string
	runtimeImport string
}

func (f *generateFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.output, "output", "", "directory for generated sources (default: next to each .sql file)")
	fs.StringVar(&f.typesDir, "types-dir", "", "directory for type declarations (default: --output)")
	fs.StringVar(&f.pkg, "package", "", "Go package name of generated files (default: queries)")
	fs.StringVar(&f.runtimeImport, "runtime-import", "", "import path of the runtime support package")
}

// openProject resolves flags > config > defaults into a project on the OS
// filesystem.
func openProject(f *generateFlags) (*project.Project, error) {
	if f == nil {
		f = &generateFlags{}
	}
	runtime := resolveString(runtimeName, cfg.Runtime, "go")
	if _, err := compiler.DefaultConfig(runtime); err != nil {
		return nil, cli.ConfigError("unknown runtime "+runtime, err)
	}

	proj, err := project.New(afero.NewOsFs(), project.Options{
		Root:          resolveString(rootDir, cfg.Root, "."),
		Output:        resolveString(f.output, cfg.Generate.Output),
		TypesDir:      resolveString(f.typesDir, cfg.Generate.TypesDir),
		Runtime:       runtime,
		Package:       resolveString(f.pkg, cfg.Generate.Package),
		RuntimeImport: resolveString(f.runtimeImport, cfg.Generate.RuntimeImport),
		Version:       version.Short(),
		Aliases:       cfg.Aliases,
		Concurrency:   cfg.Generate.Concurrency,
		Logger:        logger,
	})
	if err != nil {
		return nil, cli.ConfigError("configuring project", err)
	}
	return proj, nil
}

// projectError maps a project failure to an exit code: generator failures
// exit with ExitParse, filesystem failures with ExitGeneral.
func projectError(msg string, err error) error {
	if project.IsGenerateErr(err) {
		return cli.ParseError(msg, err)
	}
	return cli.GeneralError(msg, err)
}

// statusOutput returns where human-readable command output goes, or
// io.Discard under --quiet.
func statusOutput(cmd *cobra.Command) io.Writer {
	if quiet {
		return io.Discard
	}
	return cmd.OutOrStdout()
}

// resolveString returns the first non-empty string from the provided values.
// Used to implement precedence: flag > config > default.
func resolveString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// resolveBool returns true if any of the provided values is true.
// Used for boolean flags where any true value should win.
func resolveBool(values ...bool) bool {
	for _, v := range values {
		if v {
			return true
		}
	}
	return false
}
