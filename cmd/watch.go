package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zjrosen/frontdesk/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch <scenario-file>",
	Short: "Re-run a scenario whenever its file changes",
	Long: `Run a scenario, then keep watching its file and re-run on every save.

Useful while writing a scenario: edit the YAML in one terminal and see
the fresh registry report in the other. A failing run (for example a
half-saved file) is reported and watching continues.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := runOptionsFromFlags(cmd)
		if err != nil {
			return err
		}
		return watchScenario(cmd, args[0], opts)
	},
}

func init() {
	addRunFlags(watchCmd)
	rootCmd.AddCommand(watchCmd)
}

func watchScenario(cmd *cobra.Command, path string, opts runOptions) error {
	out := cmd.OutOrStdout()

	w, err := watcher.New(watcher.DefaultConfig(path))
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = w.Stop() }()

	onChange, err := w.Start()
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		// A failed run keeps the watch alive; the next save may fix it
		if err := runScenario(out, path, opts); err != nil {
			fmt.Fprintf(out, "scenario failed: %v\n", err)
		}
		fmt.Fprintf(out, "\nwatching %s for changes (ctrl-c to exit)\n", path)

		select {
		case <-ctx.Done():
			return nil
		case <-onChange:
			fmt.Fprintf(out, "\n%s changed, re-running\n\n", filepath.Base(path))
		}
	}
}
