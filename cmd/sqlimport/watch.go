package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pthm/sqlimport/internal/cli"
	"github.com/pthm/sqlimport/internal/watch"
)

var (
	watchFlags    generateFlags
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Generate, then regenerate query files as they change",
	Long: `Generate code for every query file, then watch the root directory and
regenerate each query file when it is written, created or removed. Runs until
interrupted.`,
	Example: `  # Watch with the configured settings
  sqlimport watch

  # Wait longer for editors that write in several steps
  sqlimport watch --debounce 300ms`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		debounce := cfg.Watch.Debounce
		if watchDebounce > 0 {
			debounce = watchDebounce
		}

		proj, err := openProject(&watchFlags)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		summary, err := proj.Generate(ctx)
		if err != nil {
			return projectError("generating", err)
		}

		w, err := watch.New(proj, watch.WithDebounce(debounce), watch.WithLogger(logger))
		if err != nil {
			return cli.GeneralError("starting watcher", err)
		}
		defer func() { _ = w.Close() }()

		_, _ = fmt.Fprintf(statusOutput(cmd), "Watching %s (%d files, %d modules)\n",
			proj.Root(), summary.Files, summary.Modules)

		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return cli.GeneralError("watching", err)
		}
		return nil
	},
}

func init() {
	watchFlags.register(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "quiet period before regenerating (default: 100ms)")
}
