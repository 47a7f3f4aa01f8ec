package curation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"voicecohort/internal/cohort"
	"voicecohort/internal/config"
	"voicecohort/internal/ledger"
	"voicecohort/internal/logging"
	"voicecohort/internal/metrics"
	"voicecohort/internal/recording"
	"voicecohort/internal/services"
	"voicecohort/internal/submissions"
)

// Exporter consumes a finished report, for example by writing files.
type Exporter interface {
	Name() string
	Export(ctx context.Context, report *Report) error
}

// Option customizes a Driver.
type Option func(*Driver)

// WithExporters appends exporters run after matching, in order.
func WithExporters(exporters ...Exporter) Option {
	return func(d *Driver) {
		d.exporters = append(d.exporters, exporters...)
	}
}

// WithLedger records runs and decisions in store.
func WithLedger(store *ledger.Store) Option {
	return func(d *Driver) {
		d.ledger = store
	}
}

// WithMetrics records run metrics and writes them to path when the run ends.
func WithMetrics(recorder *metrics.Recorder, path string) Option {
	return func(d *Driver) {
		d.metrics = recorder
		d.metricsPath = path
	}
}

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) {
		d.now = now
	}
}

// Driver runs curation passes with a fixed configuration.
type Driver struct {
	cfg         *config.Config
	logger      *slog.Logger
	validator   *recording.Validator
	exporters   []Exporter
	ledger      *ledger.Store
	metrics     *metrics.Recorder
	metricsPath string
	now         func() time.Time
}

// NewDriver constructs a Driver.
func NewDriver(cfg *config.Config, logger *slog.Logger, opts ...Option) *Driver {
	d := &Driver{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "curation"),
		validator: recording.NewValidator(recording.OptionsFromConfig(cfg.Validation)),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run curates the dataset at root, falling back to paths.dataset_root.
func (d *Driver) Run(ctx context.Context, root string) (*Report, error) {
	if root == "" {
		root = d.cfg.Paths.DatasetRoot
	}
	if root == "" {
		return nil, services.Wrap(services.ErrConfiguration, "curation", "run", "no dataset given and paths.dataset_root is empty", nil)
	}

	report := &Report{
		RunID:       ledger.NewRunID(),
		DatasetRoot: root,
		OutputDir:   d.cfg.Paths.OutputDir,
		StartedAt:   d.now(),
		Validation:  make(map[string]recording.Result),
	}
	ctx = services.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, d.logger)
	logger.Info("curation run started", logging.String("dataset", root), logging.String("output_dir", report.OutputDir))

	if d.ledger != nil {
		if err := d.ledger.StartRun(ctx, report.LedgerRun()); err != nil {
			return nil, services.Wrap(services.ErrExternal, "curation", "start run", "record run in ledger", err)
		}
	}

	runErr := d.run(ctx, report)
	report.FinishedAt = d.now()
	if err := d.finish(ctx, report, runErr); err != nil && runErr == nil {
		runErr = err
	}

	if runErr != nil {
		logging.ErrorWithContext(logger, "curation run failed", "run_failed",
			logging.Error(runErr),
			logging.String(logging.FieldErrorHint, "check the dataset layout and configuration"),
		)
		return report, runErr
	}
	logger.Info("curation run finished",
		logging.Int("positives", len(report.Cohort.Positives())),
		logging.Int("controls", len(report.Cohort.MatchedControls())),
		logging.Int("unmatched", len(report.Unmatched)),
		logging.Duration("duration", report.Duration()),
	)
	return report, nil
}

func (d *Driver) run(ctx context.Context, report *Report) error {
	m := d.cfg.Matching

	ds, err := recording.OpenDataset(report.DatasetRoot)
	if err != nil {
		return err
	}
	defer func() {
		report.Dataset = nil
		_ = ds.Close()
	}()
	report.Dataset = ds
	logging.WithContext(services.WithStage(ctx, "load"), d.logger).Info("dataset opened",
		logging.String("root", ds.Root()),
		logging.Bool("archive", ds.IsArchive()),
	)

	table, err := d.loadTable(ctx, ds)
	if err != nil {
		return err
	}
	report.Columns = table.Columns()
	report.Submissions = table.Len()

	filtered, stats := submissions.Filter(table, submissions.RulesFromConfig(m))
	report.Filter = stats
	d.observeFilter(ctx, stats)

	positives, negatives := filtered.Split(m.DiagnosisField, m.PositiveValue)
	report.Positives = len(positives)
	report.Negatives = len(negatives)
	logging.WithContext(services.WithStage(ctx, "split"), d.logger).Info("submissions split",
		logging.Int("positives", len(positives)),
		logging.Int("negatives", len(negatives)),
	)

	valid, err := d.validatePositives(ctx, ds, positives, report)
	if err != nil {
		return err
	}

	matchCtx := services.WithStage(ctx, "match")
	matcher := cohort.NewMatcher(m.KeyFields, func(ctx context.Context, p *submissions.Person) recording.Result {
		res := ds.ValidatePerson(d.validator, p.ID())
		report.Validation[p.ID()] = res
		return res
	}, d.logger)
	result, err := matcher.Build(matchCtx, valid, negatives)
	if err != nil {
		return err
	}
	report.Unmatched = result.Unmatched()
	if m.DropUnmatched && len(report.Unmatched) > 0 {
		logging.WarnWithContext(logging.WithContext(matchCtx, d.logger), "dropping unmatched positives", "cohort_unmatched_dropped",
			logging.Strings("positive_ids", report.Unmatched),
			logging.String(logging.FieldImpact, "positives removed from exported cohort"),
			logging.String(logging.FieldErrorHint, "set matching.drop_unmatched=false to keep them"),
		)
		result = result.WithoutUnmatched()
	}
	report.Cohort = result
	report.Balance = cohort.ComputeBalance(result, m.KeyFields, m.AgeField)

	return d.export(ctx, report)
}

func (d *Driver) loadTable(ctx context.Context, ds *recording.Dataset) (*submissions.Table, error) {
	m := d.cfg.Matching
	data, err := ds.ReadSubmissions()
	if err != nil {
		return nil, err
	}
	table, err := submissions.Load(data, m.IDField)
	if err != nil {
		return nil, err
	}
	required := append([]string{m.IDField, m.DiagnosisField}, m.KeyFields...)
	if err := table.Require(required...); err != nil {
		return nil, err
	}
	logging.WithContext(services.WithStage(ctx, "load"), d.logger).Info("submissions loaded",
		logging.Int("records", table.Len()),
		logging.Int("columns", len(table.Columns())),
	)
	return table, nil
}

func (d *Driver) observeFilter(ctx context.Context, stats submissions.FilterStats) {
	logger := logging.WithContext(services.WithStage(ctx, "filter"), d.logger)
	attrs := []logging.Attr{
		logging.Int("input", stats.Input),
		logging.Int("kept", stats.Kept),
		logging.Int("no_recordings", stats.NoRecordings),
		logging.Int("excluded_gender", stats.ExcludedGender),
		logging.Int("age_out_of_range", stats.AgeOutOfRange),
		logging.Int("corrected", stats.Corrected),
	}
	for _, field := range stats.MissingFields() {
		attrs = append(attrs, logging.Int("missing."+field, stats.MissingField[field]))
		d.metrics.Dropped("missing_field", stats.MissingField[field])
	}
	logger.Info("submissions filtered", logging.Args(attrs...)...)

	d.metrics.Dropped("no_recordings", stats.NoRecordings)
	d.metrics.Dropped("excluded_gender", stats.ExcludedGender)
	d.metrics.Dropped("age_out_of_range", stats.AgeOutOfRange)
}

// validatePositives checks every positive on a bounded worker pool. Results
// land in index-addressed slots so the output keeps input order.
func (d *Driver) validatePositives(ctx context.Context, ds *recording.Dataset, positives []*submissions.Person, report *Report) ([]*submissions.Person, error) {
	stageCtx := services.WithStage(ctx, "validate")
	results := make([]recording.Result, len(positives))

	logger := logging.WithContext(stageCtx, d.logger)
	progress := logging.NewProgress(len(positives), 10)

	g, gctx := errgroup.WithContext(stageCtx)
	g.SetLimit(max(1, d.cfg.Validation.Workers))
	for i, p := range positives {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = ds.ValidatePerson(d.validator, p.ID())
			if done, percent, ok := progress.Step(); ok {
				logger.Debug("validating positives",
					logging.Int("done", done),
					logging.Int("total", len(positives)),
					logging.Float64("percent", percent),
				)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	valid := make([]*submissions.Person, 0, len(positives))
	for i, p := range positives {
		res := results[i]
		report.Validation[p.ID()] = res
		if res.Valid {
			valid = append(valid, p)
			continue
		}
		report.PositiveRejections = append(report.PositiveRejections, PersonResult{ID: p.ID(), Result: res})
		logging.WarnWithContext(logging.WithContext(services.WithPersonID(stageCtx, p.ID()), d.logger),
			"positive rejected", "positive_rejected",
			logging.String("reason", res.Reason),
			logging.String(logging.FieldErrorHint, "inspect the recordings with voicecohort inspect"),
		)
	}
	return valid, nil
}

func (d *Driver) export(ctx context.Context, report *Report) error {
	stageCtx := services.WithStage(ctx, "export")
	logger := logging.WithContext(stageCtx, d.logger)
	var errs []error
	for _, exp := range d.exporters {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		if err := exp.Export(stageCtx, report); err != nil {
			logging.ErrorWithContext(logger, "export failed", "export_failed",
				logging.String("exporter", exp.Name()),
				logging.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", exp.Name(), err))
			continue
		}
		logger.Info("export completed", logging.String("exporter", exp.Name()), logging.Duration("duration", time.Since(start)))
	}
	return errors.Join(errs...)
}

// finish records the run outcome in the ledger and metrics. Failures here are
// returned but never mask the run error.
func (d *Driver) finish(ctx context.Context, report *Report, runErr error) error {
	decisions := report.Decisions()
	for _, dec := range decisions {
		d.metrics.Decision(dec.Stage, dec.Result)
	}
	for _, rej := range report.PositiveRejections {
		d.metrics.Rejection(StagePositive, rej.Result.Code())
	}
	for _, rej := range report.Cohort.Rejections {
		d.metrics.Rejection(StageControl, rej.Result.Code())
	}
	d.metrics.Cohort(len(report.Cohort.Positives()), len(report.Cohort.MatchedControls()), len(report.Unmatched))
	d.metrics.Finished(report.StartedAt, report.FinishedAt)

	var errs []error
	if d.metrics != nil && d.metricsPath != "" {
		if err := d.metrics.WriteTextfile(d.metricsPath); err != nil {
			errs = append(errs, services.Wrap(services.ErrExternal, "curation", "write metrics", d.metricsPath, err))
		}
	}

	if d.ledger != nil {
		// The run context may already be cancelled; the ledger still records the outcome.
		lctx := context.WithoutCancel(ctx)
		if err := d.ledger.RecordDecisions(lctx, report.RunID, decisions); err != nil {
			errs = append(errs, services.Wrap(services.ErrExternal, "curation", "record decisions", "append decisions to ledger", err))
		}
		run := report.LedgerRun()
		run.Status = ledger.StatusCompleted
		if runErr != nil {
			run.Status = ledger.StatusFailed
			run.ErrorMessage = runErr.Error()
		}
		if balance, err := json.Marshal(report.Balance); err == nil {
			run.BalanceJSON = string(balance)
		}
		if err := d.ledger.FinishRun(lctx, run); err != nil {
			errs = append(errs, services.Wrap(services.ErrExternal, "curation", "finish run", "update ledger run", err))
		}
	}
	return errors.Join(errs...)
}
