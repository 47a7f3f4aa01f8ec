package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"voicecohort/internal/config"
	"voicecohort/internal/curation"
	"voicecohort/internal/export"
	"voicecohort/internal/ledger"
	"voicecohort/internal/metrics"
)

const lockFileName = ".voicecohort.lock"

func newCurateCommand(ctx *commandContext) *cobra.Command {
	var dropUnmatched bool
	var noExport bool

	cmd := &cobra.Command{
		Use:   "curate [dataset]",
		Short: "Build a matched positive/control cohort from a dataset folder or zip",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("drop-unmatched") {
				cfg.Matching.DropUnmatched = dropUnmatched
			}

			root := cfg.Paths.DatasetRoot
			if len(args) == 1 {
				root, err = config.ExpandPath(strings.TrimSpace(args[0]))
				if err != nil {
					return fmt.Errorf("resolve dataset path: %w", err)
				}
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			report, err := runCuration(signalCtx, ctx, cfg, root, !noExport)
			if report != nil && report.Submissions > 0 {
				printCurationSummary(cmd.OutOrStdout(), report)
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&dropUnmatched, "drop-unmatched", false, "Drop positives without a valid control from the exported cohort")
	cmd.Flags().BoolVar(&noExport, "no-export", false, "Skip spreadsheet, JSON, file copy and upload exporters")
	return cmd
}

func runCuration(ctx context.Context, cmdCtx *commandContext, cfg *config.Config, root string, withExports bool) (*curation.Report, error) {
	logger, err := cmdCtx.ensureLogger()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Paths.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	lockPath := filepath.Join(cfg.Paths.OutputDir, lockFileName)
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another curation run is writing to %s", cfg.Paths.OutputDir)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	var opts []curation.Option
	if withExports {
		exporters, err := export.FromConfig(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		opts = append(opts, curation.WithExporters(exporters...))
	}
	if cfg.Ledger.Enabled {
		store, err := ledger.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("open ledger: %w", err)
		}
		defer store.Close()
		opts = append(opts, curation.WithLedger(store))
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, curation.WithMetrics(metrics.New(), cfg.MetricsPath()))
	}

	driver := curation.NewDriver(cfg, logger, opts...)
	return driver.Run(ctx, root)
}

func printCurationSummary(out io.Writer, report *curation.Report) {
	fmt.Fprintf(out, "Run %s\n", report.RunID)
	fmt.Fprintln(out, renderTable(
		[]string{"Step", "Count"},
		[][]string{
			{"Submissions", fmt.Sprint(report.Submissions)},
			{"Kept after filtering", fmt.Sprint(report.Filter.Kept)},
			{"Positives", fmt.Sprint(report.Positives)},
			{"Valid positives", fmt.Sprint(report.ValidPositives())},
			{"Negatives", fmt.Sprint(report.Negatives)},
			{"Controls", fmt.Sprint(len(report.Cohort.MatchedControls()))},
			{"Unmatched", fmt.Sprint(len(report.Unmatched))},
		},
		[]columnAlignment{alignLeft, alignRight},
	))

	if len(report.PositiveRejections) > 0 {
		rows := make([][]string, 0, len(report.PositiveRejections))
		for _, rej := range report.PositiveRejections {
			rows = append(rows, []string{rej.ID, colorize(out, rej.Result.Reason, text.Colors{text.FgYellow})})
		}
		fmt.Fprintln(out, "Rejected positives")
		fmt.Fprintln(out, renderTable([]string{"ID", "Reason"}, rows, nil))
	}

	b := report.Balance
	groupRow := func(name string, count int, mean, median, stddev, minAge, maxAge float64) []string {
		if count == 0 {
			return []string{name, "0", "-", "-", "-", "-"}
		}
		return []string{
			name,
			fmt.Sprint(count),
			fmt.Sprintf("%.1f", mean),
			fmt.Sprintf("%.1f", median),
			fmt.Sprintf("%.1f", stddev),
			fmt.Sprintf("%g-%g", minAge, maxAge),
		}
	}
	fmt.Fprintln(out, "Cohort balance")
	fmt.Fprintln(out, renderTable(
		[]string{"Group", "Count", "Age mean", "Age median", "Age stddev", "Age range"},
		[][]string{
			groupRow("Positive", b.Positive.Count, b.Positive.AgeMean, b.Positive.AgeMedian, b.Positive.AgeStdDev, b.Positive.AgeMin, b.Positive.AgeMax),
			groupRow("Control", b.Control.Count, b.Control.AgeMean, b.Control.AgeMedian, b.Control.AgeStdDev, b.Control.AgeMin, b.Control.AgeMax),
		},
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	))
	if len(b.Fields) > 0 {
		rows := make([][]string, 0, len(b.Fields))
		for _, f := range b.Fields {
			rows = append(rows, []string{f.Field, fmt.Sprintf("%.0f%%", f.Agreement*100), fmt.Sprintf("%.2f", f.MeanDistance)})
		}
		fmt.Fprintln(out, renderTable([]string{"Field", "Agreement", "Mean distance"}, rows, []columnAlignment{alignLeft, alignRight, alignRight}))
	}

	fmt.Fprintf(out, "Positive ids: %s\n", joinIDs(report.Cohort.Positives()))
	fmt.Fprintf(out, "Control ids: %s\n", joinIDs(report.Cohort.Controls()))
	if len(report.Unmatched) > 0 {
		fmt.Fprintf(out, "Unmatched positives: %s\n", colorize(out, joinIDs(report.Unmatched), text.Colors{text.FgRed}))
	}
}

func joinIDs(ids []string) string {
	if len(ids) == 0 {
		return "(none)"
	}
	shown := make([]string, len(ids))
	for i, id := range ids {
		if id == "" {
			id = "-"
		}
		shown[i] = id
	}
	return strings.Join(shown, ", ")
}
