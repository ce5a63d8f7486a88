package calculator

import (
	"context"
	"fmt"
	"io"
	"time"

	"churn-features/pkg/models"
	"churn-features/pkg/observability"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Source yields the cleaned transaction lines.
type Source interface {
	Load(ctx context.Context) ([]models.Transaction, models.LoadStats, error)
}

// Sink persists the feature table and returns the written size in bytes.
type Sink interface {
	Write(ctx context.Context, rows []models.CustomerFeatureRow) (int64, error)
}

// Options carries the collaborators of a run. Zero values are replaced by no-op defaults.
type Options struct {
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	Report   io.Writer // feature report destination (stdout in the CLI)
	Progress io.Writer // progress bar destination when cfg.Verbose
	Now      func() time.Time
}

// Result is what a run produced.
type Result struct {
	Rows         []models.CustomerFeatureRow
	Load         models.LoadStats
	Observation  models.WindowRange
	Outcome      models.WindowRange
	Cohort       models.CohortResult
	ChurnRate    float64
	Churned      int
	Validation   ValidationReport
	Report       string
	BytesWritten int64
}

var stages = []string{"load", "split", "cohort", "aggregate", "merge", "validate", "export"}

// Run executes the whole pipeline: load → split → cohort filter → {RFM, behavioral,
// returns, labels} → merge → validate → report → export.
// Any fatal error stops the run before the export step.
func Run(ctx context.Context, src Source, sink Sink, cfg models.Config, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	progressOut := io.Discard
	if cfg.Verbose && opts.Progress != nil {
		progressOut = opts.Progress
	}
	bar := progressbar.NewOptions(len(stages),
		progressbar.OptionSetWriter(progressOut),
		progressbar.OptionSetDescription("features"),
		progressbar.OptionClearOnFinish(),
	)
	step := func(done string) {
		bar.Describe(done)
		_ = bar.Add(1)
	}

	started := now()
	res := &Result{}
	err := run(ctx, src, sink, cfg, opts, logger, res, step)

	if opts.Metrics != nil {
		opts.Metrics.ObserveRun(now().Sub(started), err == nil, now())
		if cfg.MetricsPath != "" {
			if werr := opts.Metrics.WriteTextfile(cfg.MetricsPath); werr != nil {
				logger.Warn("failed to write metrics textfile", zap.String("path", cfg.MetricsPath), zap.Error(werr))
			}
		}
	}
	return res, err
}

func run(ctx context.Context, src Source, sink Sink, cfg models.Config, opts Options, logger *zap.Logger, res *Result, step func(string)) error {
	m := opts.Metrics

	// 1) load
	logger.Info("loading transactions")
	txs, stats, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	res.Load = stats
	logger.Info("transactions loaded", zap.String("source", stats.Source), zap.Int("rows", stats.Rows))
	if stats.MissingPrice > 0 {
		logger.Warn("missing values in price, read as 0", zap.Int("rows", stats.MissingPrice))
	}
	if stats.MissingInvoice > 0 || stats.MissingStockCode > 0 {
		logger.Warn("missing values in non-critical columns",
			zap.Int("invoice", stats.MissingInvoice),
			zap.Int("stock_code", stats.MissingStockCode))
	}
	if stats.DerivedAmount > 0 || stats.DerivedReturn > 0 {
		logger.Warn("derived columns absent from input",
			zap.Int("total_amount_derived", stats.DerivedAmount),
			zap.Int("is_return_derived", stats.DerivedReturn))
	}
	if m != nil {
		m.SetTransactions("input", len(txs))
	}
	step("load")

	// 2) split + leakage guard
	observation, outcome, err := SplitWindows(txs, cfg.ObservationEnd, cfg.OutcomeStart, logger)
	if err != nil {
		return fmt.Errorf("split: %w", err)
	}
	res.Observation, res.Outcome = rangeOf(observation), rangeOf(outcome)
	if m != nil {
		m.SetTransactions("observation", len(observation))
		m.SetTransactions("outcome", len(outcome))
	}
	step("split")

	// 3) cohort filter
	restricted, eligible, cohort := FilterCohort(observation, cfg, logger)
	res.Cohort = cohort
	if m != nil {
		m.SetTransactions("restricted", len(restricted))
		m.SetCustomers("candidates", cohort.Candidates)
		m.SetCustomers("eligible", cohort.Eligible)
		m.SetCustomers("filtered_out", cohort.FilteredOut)
	}
	step("cohort")

	// 4) independent aggregators
	var (
		rfm        []models.RFMRow
		behavioral map[int64]models.BehavioralRow
		returns    map[int64]models.ReturnRow
		labels     []models.LabelRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("calculating RFM metrics")
		rfm = ComputeRFM(restricted, cfg.ObservationEnd)
		return gctx.Err()
	})
	g.Go(func() error {
		logger.Info("calculating behavioral features", zap.String("unique_products_scope", string(cfg.ProductScope)))
		behavioral = ComputeBehavioral(restricted, cfg.ProductScope)
		return gctx.Err()
	})
	g.Go(func() error {
		logger.Info("calculating return metrics")
		returns = ComputeReturns(restricted, eligible)
		return gctx.Err()
	})
	g.Go(func() error {
		logger.Info("defining churn labels")
		labels = GenerateLabels(outcome, eligible)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}
	res.ChurnRate, res.Churned = ChurnRate(labels)
	logger.Info("churn labels defined",
		zap.Float64("churn_rate", res.ChurnRate),
		zap.Int("churned", res.Churned),
		zap.Int("labeled", len(labels)))
	if m != nil {
		m.SetChurnRate(res.ChurnRate)
	}
	step("aggregate")

	// 5) merge
	logger.Info("merging feature sets")
	res.Rows = MergeFeatures(rfm, behavioral, returns, labels)
	step("merge")

	// 6) validate, then always report
	logger.Info("running data quality checks")
	validation, verr := ValidateFeatures(res.Rows, logger)
	res.Validation = validation
	res.Report = RenderReport(res.Rows, validation)
	if opts.Report != nil {
		fmt.Fprint(opts.Report, res.Report)
	}
	if m != nil {
		m.SetSerialReturners(validation.SerialReturners)
		m.SetWarnings(len(validation.Warnings))
	}
	if verr != nil {
		return fmt.Errorf("validate: %w", verr)
	}
	step("validate")

	// 7) export
	if err := ctx.Err(); err != nil {
		return err
	}
	n, err := sink.Write(ctx, res.Rows)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	res.BytesWritten = n
	step("export")
	logger.Info("features exported",
		zap.String("path", cfg.OutputPath),
		zap.Int("rows", len(res.Rows)),
		zap.String("size", humanize.Bytes(uint64(n))))
	logger.Info("feature engineering complete - ready for modeling")
	return nil
}
