package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/codegenius/internal/storage"
)

var runsLimitFlag int

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded documentation runs",
	Long: `Runs lists documentation runs recorded in the run database. Recording is
enabled with storage.enabled in .codegenius/config.yml or
CODEGENIUS_STORAGE_ENABLED=true.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := requireStore()
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.ListRuns(runsLimitFlag)
		if err != nil {
			return err
		}
		return printRuns(cmd.OutOrStdout(), runs)
	},
}

// runsShowCmd prints the document of one run
var runsShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Print the document of a run (default: the latest)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := requireStore()
		if err != nil {
			return err
		}
		defer store.Close()

		var run *storage.Run
		if len(args) == 1 {
			run, err = store.GetRun(args[0])
		} else {
			run, err = store.LatestRun()
		}
		if errors.Is(err, storage.ErrRunNotFound) {
			return fmt.Errorf("no such run")
		}
		if err != nil {
			return err
		}

		if run.Document == "" {
			return fmt.Errorf("run %s has no document (status: %s)", run.ID, run.Status)
		}
		_, err = io.WriteString(cmd.OutOrStdout(), run.Document)
		return err
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.Flags().IntVarP(&runsLimitFlag, "limit", "n", 20, "Maximum runs to list")
}

func requireStore() (*storage.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Storage.Enabled {
		return nil, fmt.Errorf("run history is disabled (set storage.enabled in .codegenius/config.yml)")
	}
	return openStore(cfg)
}

func printRuns(w io.Writer, runs []*storage.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tSTARTED\tDURATION\tTARGET")
	for _, run := range runs {
		duration := "-"
		if !run.FinishedAt.IsZero() {
			duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			run.ID, run.Status, run.StartedAt.Local().Format(time.DateTime), duration, run.Target)
	}
	return tw.Flush()
}
