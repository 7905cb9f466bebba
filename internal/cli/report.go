package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/cohort/internal/ledger"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Ledger string
	RunID  string
	List   bool
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the conformance report for a probe run",
		Long: `Summarize the assertions a probe run recorded in the ledger: a pass, fail
and not-supported matrix per profile and requirement, call timing
percentiles, and the properties discovered about the repository.

Without --run the most recent run is reported. Exit status is 1 when the
run recorded failures.

Example:
  cohort report --ledger probe.db
  cohort report --ledger probe.db --run nightly --format json
  cohort report --ledger probe.db --list`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "path to SQLite assertion ledger (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run to report (default: most recent)")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list the runs in the ledger instead")
	_ = cmd.MarkFlagRequired("ledger")

	return cmd
}

func runReport(opts *ReportOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	// Open would create a missing file.
	if _, err := os.Stat(opts.Ledger); err != nil {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("ledger not found: %s", opts.Ledger), nil)
	}
	led, err := ledger.Open(opts.Ledger)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeLedger, err.Error(), nil)
	}
	defer led.Close()

	ctx := cmd.Context()
	runs, err := led.Runs(ctx)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeLedger, err.Error(), nil)
	}

	if opts.List {
		return f.Render(runs, func(w io.Writer) error {
			return renderRuns(w, runs)
		})
	}

	runID := opts.RunID
	if runID == "" {
		if len(runs) == 0 {
			return f.Fail(ExitCommandError, ErrCodeLedger, "ledger holds no runs", nil)
		}
		runID = runs[len(runs)-1].ID
		f.VerboseLog("Reporting most recent run %s", runID)
	} else if !hasRun(runs, runID) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("run %q not found in ledger", runID), nil)
	}

	report, err := buildReport(ctx, led, runID)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeLedger, err.Error(), nil)
	}
	if err := f.Render(report, func(w io.Writer) error {
		return ledger.RenderText(w, report)
	}); err != nil {
		return err
	}
	if !report.Conformant() {
		return NewExitError(ExitFailure, fmt.Sprintf("run %s recorded %d failure(s)", runID, report.Totals.Fail))
	}
	return nil
}

func hasRun(runs []ledger.Run, id string) bool {
	for _, r := range runs {
		if r.ID == id {
			return true
		}
	}
	return false
}

func renderRuns(w io.Writer, runs []ledger.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded")
		return err
	}
	for _, r := range runs {
		fmt.Fprintf(w, "%-24s %6d assertion(s) %6d failure(s)\n", r.ID, r.Assertions, r.Failures)
	}
	return nil
}
