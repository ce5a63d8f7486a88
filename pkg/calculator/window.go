package calculator

import (
	"time"

	"churn-features/pkg/models"

	"go.uber.org/zap"
)

const day = 24 * time.Hour

// SplitWindows partitions txs into observation (InvoiceDate < observationEnd)
// and outcome (InvoiceDate >= outcomeStart) sets, then checks that the two do not overlap.
func SplitWindows(txs []models.Transaction, observationEnd, outcomeStart time.Time, logger *zap.Logger) ([]models.Transaction, []models.Transaction, error) {
	var observation, outcome []models.Transaction
	for _, tx := range txs {
		if tx.InvoiceDate.Before(observationEnd) {
			observation = append(observation, tx)
		}
		if !tx.InvoiceDate.Before(outcomeStart) {
			outcome = append(outcome, tx)
		}
	}

	obsRange, outRange := rangeOf(observation), rangeOf(outcome)
	logger.Info("observation window",
		zap.Int("rows", obsRange.Rows),
		zap.Time("min", obsRange.Start),
		zap.Time("max", obsRange.End),
	)
	logger.Info("outcome window",
		zap.Int("rows", outRange.Rows),
		zap.Time("min", outRange.Start),
		zap.Time("max", outRange.End),
	)

	if err := CheckLeakage(obsRange, outRange, logger); err != nil {
		return nil, nil, err
	}
	return observation, outcome, nil
}

// CheckLeakage fails when max(observation) >= min(outcome).
// An empty partition has nothing to compare and only yields a warning.
func CheckLeakage(observation, outcome models.WindowRange, logger *zap.Logger) error {
	if observation.Rows == 0 || outcome.Rows == 0 {
		logger.Warn("leakage check skipped: empty partition",
			zap.Int("observation_rows", observation.Rows),
			zap.Int("outcome_rows", outcome.Rows),
		)
		return nil
	}
	if !observation.End.Before(outcome.Start) {
		return &models.DataLeakageError{ObservationMax: observation.End, OutcomeMin: outcome.Start}
	}
	logger.Info("no temporal data leakage detected")
	return nil
}

func rangeOf(txs []models.Transaction) models.WindowRange {
	r := models.WindowRange{Rows: len(txs)}
	for i, tx := range txs {
		if i == 0 || tx.InvoiceDate.Before(r.Start) {
			r.Start = tx.InvoiceDate
		}
		if i == 0 || tx.InvoiceDate.After(r.End) {
			r.End = tx.InvoiceDate
		}
	}
	return r
}

// floorDays converts a duration to whole days, rounding towards negative infinity.
func floorDays(d time.Duration) int {
	days := d / day
	if d%day != 0 && d < 0 {
		days--
	}
	return int(days)
}
