package calculator

import (
	"fmt"
	"math"

	"churn-features/pkg/models"

	"go.uber.org/zap"
)

// ValidationReport lists what the checks found on the merged table.
type ValidationReport struct {
	Violations      []string // fatal
	Warnings        []string // advisory
	SerialReturners int      // customers with negative monetary_net
}

// Passed reports whether no fatal violation was found.
func (r ValidationReport) Passed() bool {
	return len(r.Violations) == 0
}

// ValidateFeatures runs every data quality check over the full feature table and logs each finding.
// Negative recency, missing labels, duplicate ids and negative monetary_gross are fatal and
// returned as a *models.IntegrityError; the other checks only warn.
func ValidateFeatures(rows []models.CustomerFeatureRow, logger *zap.Logger) (ValidationReport, error) {
	var rep ValidationReport
	var negRecency, zeroFreq, missing, negGross int
	var negDays, badRate, inconsistent, nonFinite int
	seen := make(map[int64]struct{}, len(rows))
	var duplicates []int64

	for _, r := range rows {
		if _, dup := seen[r.CustomerID]; dup {
			duplicates = append(duplicates, r.CustomerID)
		}
		seen[r.CustomerID] = struct{}{}

		if r.Recency < 0 {
			negRecency++
		}
		if r.Frequency == 0 {
			zeroFreq++
		}
		if r.Churned != 0 && r.Churned != 1 {
			missing++
		}
		if r.MonetaryGross < 0 {
			negGross++
		}
		if r.MonetaryNet < 0 {
			rep.SerialReturners++
		}
		if r.DaysAsCustomer < 0 {
			negDays++
		}
		if r.ReturnRate < 0 || r.ReturnRate > 1 {
			badRate++
		}
		if r.HasReturns != (r.NReturnInvoices > 0) {
			inconsistent++
		}
		if !finite(r.MonetaryNet, r.MonetaryGross, r.AvgItemsPerBasket, r.AvgUnitsPerLine,
			r.PurchaseVelocity, r.AvgDaysBetweenPurchases, r.ReturnAmount, r.ReturnRate) ||
			r.FirstPurchaseDate.IsZero() || r.LastPurchaseDate.IsZero() {
			nonFinite++
		}
	}

	if negRecency > 0 {
		rep.fatal(logger, fmt.Sprintf("%d customers with negative recency - check observation window logic", negRecency))
	}
	if missing > 0 {
		rep.fatal(logger, fmt.Sprintf("%d missing churn labels", missing))
	}
	if len(duplicates) > 0 {
		rep.fatal(logger, fmt.Sprintf("%d duplicate customer_ids detected (first: %d)", len(duplicates), duplicates[0]))
	}
	if negGross > 0 {
		rep.fatal(logger, fmt.Sprintf("%d customers with negative monetary_gross - should be impossible", negGross))
	}

	if zeroFreq > 0 {
		rep.warn(logger, fmt.Sprintf("%d customers with zero frequency", zeroFreq))
	}
	if negDays > 0 {
		rep.warn(logger, fmt.Sprintf("%d customers with negative days_as_customer", negDays))
	}
	if badRate > 0 {
		rep.warn(logger, fmt.Sprintf("%d customers with return_rate outside [0, 1]", badRate))
	}
	if inconsistent > 0 {
		rep.warn(logger, fmt.Sprintf("%d customers where has_returns disagrees with n_return_invoices", inconsistent))
	}
	if nonFinite > 0 {
		rep.warn(logger, fmt.Sprintf("%d customers with missing or non-finite values", nonFinite))
	}

	if rep.SerialReturners > 0 {
		logger.Info("customers with negative net monetary (serial returners)",
			zap.Int("count", rep.SerialReturners))
	}

	if !rep.Passed() {
		return rep, &models.IntegrityError{Violations: rep.Violations}
	}
	logger.Info("data quality checks passed", zap.Int("warnings", len(rep.Warnings)))
	return rep, nil
}

func (r *ValidationReport) fatal(logger *zap.Logger, msg string) {
	r.Violations = append(r.Violations, msg)
	logger.Error(msg)
}

func (r *ValidationReport) warn(logger *zap.Logger, msg string) {
	r.Warnings = append(r.Warnings, msg)
	logger.Warn(msg)
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
