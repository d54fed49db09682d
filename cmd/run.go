package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/frontdesk/desk"
	"github.com/zjrosen/frontdesk/internal/report"
	"github.com/zjrosen/frontdesk/internal/scenario"
	"github.com/zjrosen/frontdesk/internal/tracing"
	"github.com/zjrosen/frontdesk/observe"
)

var runCmd = &cobra.Command{
	Use:   "run <scenario-file>",
	Short: "Run a scenario against a fresh desk",
	Long: `Run a YAML scenario against a fresh desk and print the final registry.

Each step checks children in, updates them, checks them out, clears the
desk, or waits. The report lists whatever is still registered when the
last step finishes.

Examples:
  # Run a scenario and print the registry table
  frontdesk run scenario.yaml

  # Sort the report by a data field, newest first
  frontdesk run scenario.yaml --sort-by timestamp --order desc

  # JSON output for scripting
  frontdesk run scenario.yaml --json | jq '.[].id'

  # Include the recorded activity trail with update diffs
  frontdesk run scenario.yaml --trail

  # Flag check-ins missing a field, block reserved ids
  frontdesk run scenario.yaml --require port --reserve admin`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := runOptionsFromFlags(cmd)
		if err != nil {
			return err
		}
		return runScenario(cmd.OutOrStdout(), args[0], opts)
	},
}

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

// addRunFlags registers the reporting flags shared by run and watch.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("sort-by", "",
		`sort the report by this field ("id", "timestamp", or a data/meta key)`)
	cmd.Flags().String("order", "asc", "sort direction: asc or desc")
	cmd.Flags().Bool("json", false, "print the registry as JSON instead of a table")
	cmd.Flags().Bool("trail", false, "append the recorded activity trail")
	cmd.Flags().StringSlice("require", nil,
		"data fields every check-in should carry; missing ones are reported")
	cmd.Flags().StringSlice("reserve", nil,
		"ids the gatekeeper plugin refuses to check in")
}

type runOptions struct {
	sortBy   string
	order    desk.Order
	jsonOut  bool
	trail    bool
	require  []string
	reserved []string
	debug    bool
	tracing  tracing.Config
}

func runOptionsFromFlags(cmd *cobra.Command) (runOptions, error) {
	flags := cmd.Flags()
	sortBy, _ := flags.GetString("sort-by")
	order, _ := flags.GetString("order")
	jsonOut, _ := flags.GetBool("json")
	trail, _ := flags.GetBool("trail")
	require, _ := flags.GetStringSlice("require")
	reserved, _ := flags.GetStringSlice("reserve")

	parsedOrder, err := parseOrder(order)
	if err != nil {
		return runOptions{}, err
	}

	return runOptions{
		sortBy:   sortBy,
		order:    parsedOrder,
		jsonOut:  jsonOut,
		trail:    trail,
		require:  require,
		reserved: reserved,
		debug:    viper.GetBool("debug"),
		tracing:  tracingConfig(),
	}, nil
}

func parseOrder(order string) (desk.Order, error) {
	switch order {
	case "", "asc":
		return desk.OrderAsc, nil
	case "desc":
		return desk.OrderDesc, nil
	default:
		return "", fmt.Errorf("unknown order %q (want asc or desc)", order)
	}
}

// runScenario loads the scenario at path, applies its steps to a fresh
// desk, and writes the report to out.
func runScenario(out io.Writer, path string, opts runOptions) error {
	sc, err := scenario.Load(path)
	if err != nil {
		return err
	}

	provider, err := tracing.NewProvider(opts.tracing)
	if err != nil {
		return fmt.Errorf("configure tracing: %w", err)
	}
	defer func() { _ = provider.Shutdown(context.Background()) }()

	recent := observe.NewRecentSink(0, 0)
	sinks := observe.Fanout{recent}
	if provider.Enabled() {
		sinks = append(sinks, observe.NewSpanSink(provider.Tracer()))
	}

	var plugins []desk.Plugin[map[string]any]
	if len(opts.require) > 0 {
		plugins = append(plugins, newAuditor(opts.require).Plugin())
	}
	if len(opts.reserved) > 0 {
		plugins = append(plugins, gatekeeper(opts.reserved))
	}

	label := sc.Label
	if label == "" {
		label = filepath.Base(path)
	}

	d, err := desk.New(desk.Config[map[string]any]{
		Label:   label,
		Debug:   opts.debug,
		Sink:    sinks,
		Plugins: plugins,
	})
	if err != nil {
		return fmt.Errorf("build desk: %w", err)
	}

	if err := applySteps(d, sc); err != nil {
		return err
	}

	var items []desk.Item[map[string]any]
	if opts.sortBy != "" {
		items = d.GetAll(desk.SortSpec{By: opts.sortBy, Order: opts.order})
	} else {
		items = d.GetAll()
	}

	fmt.Fprintf(out, "scenario %q: %d steps applied, %d registered\n\n",
		label, len(sc.Steps), d.Size())

	if opts.jsonOut {
		if err := report.WriteJSON(out, items); err != nil {
			return err
		}
	} else {
		if err := report.WriteTable(out, items); err != nil {
			return err
		}
	}

	if len(opts.require) > 0 {
		value, err := d.ComputedValue("auditFindings")
		if err != nil {
			return err
		}
		if findings, ok := value.([]string); ok && len(findings) > 0 {
			fmt.Fprintf(out, "\naudit findings:\n")
			for _, finding := range findings {
				fmt.Fprintf(out, "  - %s\n", finding)
			}
		}
	}

	if opts.trail {
		fmt.Fprintln(out)
		if err := report.WriteTrail(out, recent.Snapshot()); err != nil {
			return err
		}
	}
	return nil
}

// applySteps runs each scenario step against the desk in order. Vetoed
// or no-op steps are not errors; they show up in the activity trail.
func applySteps(d *desk.Desk[map[string]any], sc *scenario.Scenario) error {
	for i, step := range sc.Steps {
		switch step.Action {
		case scenario.ActionCheckIn:
			d.CheckInEntry(desk.Entry[map[string]any]{
				ID:   desk.Key(step.ID),
				Data: step.Data,
				Meta: step.Meta,
			})
		case scenario.ActionUpdate:
			d.Update(desk.Key(step.ID), step.Data)
		case scenario.ActionCheckOut:
			d.CheckOut(desk.Key(step.ID))
		case scenario.ActionClear:
			d.Clear()
		case scenario.ActionCheckInMany:
			entries := make([]desk.Entry[map[string]any], len(step.Entries))
			for j, entry := range step.Entries {
				entries[j] = desk.Entry[map[string]any]{
					ID:   desk.Key(entry.ID),
					Data: entry.Data,
					Meta: entry.Meta,
				}
			}
			d.CheckInMany(entries)
		case scenario.ActionUpdateMany:
			patches := make([]desk.Patch[map[string]any], len(step.Entries))
			for j, entry := range step.Entries {
				patches[j] = desk.Patch[map[string]any]{
					ID:   desk.Key(entry.ID),
					Data: entry.Data,
				}
			}
			d.UpdateMany(patches)
		case scenario.ActionCheckOutMany:
			ids := make([]desk.Key, len(step.IDs))
			for j, id := range step.IDs {
				ids[j] = desk.Key(id)
			}
			d.CheckOutMany(ids)
		case scenario.ActionWait:
			time.Sleep(step.Duration.Std())
		default:
			return fmt.Errorf("step %d: unknown action %q", i+1, step.Action)
		}
	}
	return nil
}
