package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/cohort/internal/event"
	"github.com/roach88/cohort/internal/ledger"
	"github.com/roach88/cohort/internal/metrics"
	"github.com/roach88/cohort/internal/probe"
	"github.com/roach88/cohort/internal/repository"
	"github.com/roach88/cohort/internal/repository/memory"
)

// ProbeOptions holds flags for the probe command.
type ProbeOptions struct {
	*RootOptions
	TypesDir    string
	Config      string
	Ledger      string
	Unsupported []string
	Supported   []string
	MetricsOut  string
}

// ProbeResult is the JSON payload of the probe command.
type ProbeResult struct {
	Summary probe.Summary `json:"summary"`
	Report  ledger.Report `json:"report"`
}

// NewProbeCommand creates the probe command.
func NewProbeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ProbeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Run the conformance probe against the in-memory repository",
		Long: `Exercise a repository under test with the configured workloads and record
every assertion in the ledger.

The repository under test is the in-memory reference repository, with the
identity from the config's tut section. --supported narrows the types it
advertises (default: every type); --unsupported makes it decline the named
operations, which the probe records as not supported.

Exit status is 1 when any test case failed.

Example:
  cohort probe --types ./typedefs --config probe.yaml --ledger probe.db
  cohort probe --types ./typedefs --config probe.yaml --unsupported reTypeEntity`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.TypesDir, "types", "", "typedefs directory (required)")
	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "probe config file (required)")
	cmd.Flags().StringVar(&opts.Ledger, "ledger", ":memory:", "path to SQLite assertion ledger")
	cmd.Flags().StringSliceVar(&opts.Unsupported, "unsupported", nil, "repository operations the TUT declines")
	cmd.Flags().StringSliceVar(&opts.Supported, "supported", nil, "types the TUT advertises (default: all)")
	cmd.Flags().StringVar(&opts.MetricsOut, "metrics-out", "", "write call metrics in Prometheus text format to this file")
	_ = cmd.MarkFlagRequired("types")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runProbe(opts *ProbeOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	logger := f.Logger()

	types, err := loadTypesOrFail(f, opts.TypesDir)
	if err != nil {
		return err
	}

	cfg, err := probe.LoadConfig(opts.Config)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}

	declined := make([]repository.Operation, 0, len(opts.Unsupported))
	for _, name := range opts.Unsupported {
		op, err := repository.ParseOperation(name)
		if err != nil {
			return f.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
		}
		declined = append(declined, op)
	}

	led, err := ledger.Open(opts.Ledger)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeLedger, err.Error(), nil)
	}
	defer func() {
		if closeErr := led.Close(); closeErr != nil {
			logger.Error("error closing ledger", "error", closeErr)
		}
	}()

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	for _, name := range opts.Supported {
		if _, ok := types.Lookup(name); !ok {
			return f.Fail(ExitCommandError, ErrCodeUnknownType, fmt.Sprintf("supported type %q is not defined", name), nil)
		}
	}

	events := event.NewRecorder()
	tut := cfg.TUT
	name := tut.CollectionName
	if name == "" {
		name = tut.CollectionID
	}
	server := tut.ServerName
	if server == "" {
		server = name
	}
	repoOpts := []memory.Option{
		memory.WithName(name),
		memory.WithPublisher(events),
		memory.WithOriginator(event.Originator{
			SourceName:       name,
			HomeCollectionID: tut.CollectionID,
			ServerName:       server,
			ServerType:       memory.ServerType,
			Organization:     tut.Organization,
		}),
		memory.WithUnsupported(declined...),
		memory.WithLogger(logger),
	}
	if len(opts.Supported) > 0 {
		repoOpts = append(repoOpts, memory.WithSupportedTypes(opts.Supported...))
	}
	repo := memory.New(tut.CollectionID, types, repoOpts...)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := probe.NewRunner(repo, types, led, cfg,
		probe.WithLogger(logger),
		probe.WithObserver(m),
		probe.WithEvents(events),
	)
	summary, runErr := runner.Run(ctx)
	if runErr != nil {
		// The summary is complete; only ledger writes or planning failed.
		logger.Error("probe run incomplete", "run", cfg.RunID, "error", runErr)
	}

	report, err := buildReport(context.WithoutCancel(ctx), led, cfg.RunID)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeLedger, err.Error(), nil)
	}

	if opts.MetricsOut != "" {
		if err := prometheus.WriteToTextfile(opts.MetricsOut, reg); err != nil {
			return f.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("write metrics: %v", err), nil)
		}
		f.VerboseLog("Wrote metrics to %s", opts.MetricsOut)
	}

	result := ProbeResult{Summary: summary, Report: report}
	if err := f.Render(result, func(w io.Writer) error {
		return renderProbe(w, result)
	}); err != nil {
		return err
	}

	switch {
	case runErr != nil && len(summary.Cases) == 0:
		return WrapExitError(ExitCommandError, ErrCodeRun+": probe run failed", runErr)
	case !summary.OK():
		return NewExitError(ExitFailure, fmt.Sprintf("%d test case(s) failed", summary.Failed))
	}
	return nil
}

// buildReport summarizes one run from the ledger.
func buildReport(ctx context.Context, led *ledger.Ledger, runID string) (ledger.Report, error) {
	assertions, err := led.Assertions(ctx, runID, ledger.Filter{})
	if err != nil {
		return ledger.Report{}, err
	}
	discovered, err := led.Discovered(ctx, runID)
	if err != nil {
		return ledger.Report{}, err
	}
	return ledger.Summarize(runID, assertions, discovered), nil
}

func renderProbe(w io.Writer, r ProbeResult) error {
	s := r.Summary
	fmt.Fprintf(w, "Run %s: %d passed, %d failed, %d not supported, %d not run\n",
		s.RunID, s.Passed, s.Failed, s.NotSupported, s.NotRun)
	for _, c := range s.Cases {
		fmt.Fprintf(w, "  %-14s %s\n", c.Status, c.ID)
		if c.Error != "" {
			fmt.Fprintf(w, "                 %s\n", c.Error)
		}
	}
	fmt.Fprintln(w)
	return ledger.RenderText(w, r.Report)
}
