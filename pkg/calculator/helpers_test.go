package calculator

import (
	"context"
	"time"

	"churn-features/pkg/models"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var (
	obsEnd       = date("2011-06-01")
	outcomeStart = date("2011-06-01")
)

func date(s string) time.Time {
	t, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func ts(s string) time.Time {
	t, err := time.ParseInLocation(time.DateTime, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

// line builds a cleaned transaction line the way the upstream cleaning stage does.
func line(invoice, stock string, customer, qty int64, price float64, at time.Time) models.Transaction {
	return models.Transaction{
		Invoice:     invoice,
		StockCode:   stock,
		CustomerID:  customer,
		Quantity:    qty,
		Price:       price,
		InvoiceDate: at,
		Country:     "United Kingdom",
		TotalAmount: float64(qty) * price,
		IsReturn:    qty < 0,
	}
}

func testConfig() models.Config {
	return models.Config{
		ObservationStart: date("2009-12-01"),
		ObservationEnd:   obsEnd,
		OutcomeStart:     outcomeStart,
		OutcomeEnd:       date("2011-12-09"),
		MinTenureDays:    90,
		MinFrequency:     2,
		ProductScope:     models.ProductScopeAll,
		OutputPath:       "features.csv",
	}
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.InfoLevel)
	return zap.New(core), logs
}

// buildFeatures runs the in-memory part of the pipeline (split → merge).
func buildFeatures(txs []models.Transaction, cfg models.Config) ([]models.CustomerFeatureRow, error) {
	logger := zap.NewNop()
	observation, outcome, err := SplitWindows(txs, cfg.ObservationEnd, cfg.OutcomeStart, logger)
	if err != nil {
		return nil, err
	}
	restricted, eligible, _ := FilterCohort(observation, cfg, logger)
	return MergeFeatures(
		ComputeRFM(restricted, cfg.ObservationEnd),
		ComputeBehavioral(restricted, cfg.ProductScope),
		ComputeReturns(restricted, eligible),
		GenerateLabels(outcome, eligible),
	), nil
}

type sliceSource struct {
	txs []models.Transaction
	err error
}

func (s sliceSource) Load(context.Context) ([]models.Transaction, models.LoadStats, error) {
	if s.err != nil {
		return nil, models.LoadStats{}, s.err
	}
	out := make([]models.Transaction, len(s.txs))
	copy(out, s.txs)
	return out, models.LoadStats{Source: "memory", Rows: len(out)}, nil
}

type recordingSink struct {
	calls int
	rows  []models.CustomerFeatureRow
}

func (s *recordingSink) Write(_ context.Context, rows []models.CustomerFeatureRow) (int64, error) {
	s.calls++
	s.rows = rows
	return int64(len(rows) * 100), nil
}
