package calculator

import (
	"sort"
	"time"

	"churn-features/pkg/models"

	"go.uber.org/zap"
)

// CohortStats computes first purchase and distinct invoice count per customer,
// and evaluates both eligibility criteria against cfg.
func CohortStats(observation []models.Transaction, cfg models.Config) []models.CustomerCohortStats {
	type acc struct {
		first    models.Transaction
		invoices map[string]struct{}
	}
	byCustomer := make(map[int64]*acc)
	for _, tx := range observation {
		a, ok := byCustomer[tx.CustomerID]
		if !ok {
			a = &acc{first: tx, invoices: make(map[string]struct{})}
			byCustomer[tx.CustomerID] = a
		}
		if tx.InvoiceDate.Before(a.first.InvoiceDate) {
			a.first = tx
		}
		a.invoices[tx.Invoice] = struct{}{}
	}

	minAcquisition := minAcquisitionDate(cfg)
	stats := make([]models.CustomerCohortStats, 0, len(byCustomer))
	for id, a := range byCustomer {
		s := models.CustomerCohortStats{
			CustomerID:    id,
			FirstPurchase: a.first.InvoiceDate,
			NTransactions: len(a.invoices),
		}
		s.TenureOK = !s.FirstPurchase.After(minAcquisition)
		s.FrequencyOK = s.NTransactions >= cfg.MinFrequency
		stats = append(stats, s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].CustomerID < stats[j].CustomerID })
	return stats
}

// FilterCohort keeps the customers whose first purchase is on or before
// observation_end - min_tenure_days and who have at least min_frequency invoices.
// It returns the observation lines of eligible customers and the sorted eligible ids.
func FilterCohort(observation []models.Transaction, cfg models.Config, logger *zap.Logger) ([]models.Transaction, []int64, models.CohortResult) {
	stats := CohortStats(observation, cfg)

	res := models.CohortResult{
		Candidates:     len(stats),
		MinAcquisition: minAcquisitionDate(cfg),
	}
	eligible := make([]int64, 0, len(stats))
	keep := make(map[int64]struct{}, len(stats))
	for _, s := range stats {
		if !s.TenureOK {
			res.TenureFailed++
		}
		if !s.FrequencyOK {
			res.FrequencyFail++
		}
		if !s.TenureOK && !s.FrequencyOK {
			res.BothFailed++
		}
		if s.Eligible() {
			eligible = append(eligible, s.CustomerID)
			keep[s.CustomerID] = struct{}{}
		}
	}
	res.Eligible = len(eligible)
	res.FilteredOut = res.Candidates - res.Eligible

	restricted := make([]models.Transaction, 0, len(observation))
	for _, tx := range observation {
		if _, ok := keep[tx.CustomerID]; ok {
			restricted = append(restricted, tx)
		}
	}

	logger.Info("cohort eligibility results",
		zap.Int("total_customers", res.Candidates),
		zap.Int("eligible", res.Eligible),
		zap.Int("filtered_out", res.FilteredOut),
		zap.Float64("filtered_pct", res.FilteredPct()),
		zap.Int("failed_tenure", res.TenureFailed),
		zap.Int("min_tenure_days", cfg.MinTenureDays),
		zap.Int("failed_frequency", res.FrequencyFail),
		zap.Int("min_frequency", cfg.MinFrequency),
		zap.Int("failed_both", res.BothFailed),
		zap.Int("restricted_rows", len(restricted)),
	)
	return restricted, eligible, res
}

func minAcquisitionDate(cfg models.Config) time.Time {
	return cfg.ObservationEnd.AddDate(0, 0, -cfg.MinTenureDays)
}
