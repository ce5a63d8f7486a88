package calculator

import (
	"fmt"
	"strings"

	"churn-features/pkg/models"

	"github.com/dustin/go-humanize"
)

const reportRule = "============================================================================="

type summary struct {
	min, max, mean float64
}

func summarize(rows []models.CustomerFeatureRow, field func(models.CustomerFeatureRow) float64) summary {
	var s summary
	for i, r := range rows {
		v := field(r)
		if i == 0 || v < s.min {
			s.min = v
		}
		if i == 0 || v > s.max {
			s.max = v
		}
		s.mean += v
	}
	if len(rows) > 0 {
		s.mean /= float64(len(rows))
	}
	return s
}

// RenderReport summarises the feature table: dimensions, RFM ranges, churn distribution,
// return behaviour, serial returners and any validation findings.
func RenderReport(rows []models.CustomerFeatureRow, v ValidationReport) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line("\n%s", reportRule)
	line("FEATURE ENGINEERING REPORT")
	line(reportRule)
	line("\nDataset Dimensions: %s customers × %d features", humanize.Comma(int64(len(rows))), len(models.FeatureColumns))
	line("")

	if n := len(rows); n > 0 {
		rec := summarize(rows, func(r models.CustomerFeatureRow) float64 { return float64(r.Recency) })
		freq := summarize(rows, func(r models.CustomerFeatureRow) float64 { return float64(r.Frequency) })
		net := summarize(rows, func(r models.CustomerFeatureRow) float64 { return r.MonetaryNet })
		gross := summarize(rows, func(r models.CustomerFeatureRow) float64 { return r.MonetaryGross })
		line("RFM Metrics:")
		line("  Recency (days): min=%.0f, max=%.0f, mean=%.1f", rec.min, rec.max, rec.mean)
		line("  Frequency: min=%.0f, max=%.0f, mean=%.1f", freq.min, freq.max, freq.mean)
		line("  Monetary Net (£): min=%.2f, max=%.2f, mean=%.2f", net.min, net.max, net.mean)
		line("  Monetary Gross (£): min=%.2f, max=%.2f, mean=%.2f", gross.min, gross.max, gross.mean)
		line("")

		churned, withReturns := 0, 0
		rateSum := 0.0
		for _, r := range rows {
			if r.Churned == 1 {
				churned++
			}
			if r.HasReturns {
				withReturns++
			}
			rateSum += r.ReturnRate
		}
		churnPct := float64(churned) / float64(n) * 100
		line("Churn Distribution:")
		line("  Churned (1): %s (%.1f%%)", humanize.Comma(int64(churned)), churnPct)
		line("  Retained (0): %s (%.1f%%)", humanize.Comma(int64(n-churned)), 100-churnPct)
		line("")

		line("Return Behavior:")
		line("  Customers with returns: %s (%.1f%%)", humanize.Comma(int64(withReturns)), float64(withReturns)/float64(n)*100)
		line("  Average return rate: %.1f%%", rateSum/float64(n)*100)
		line("")

		if v.SerialReturners > 0 {
			line("Serial Returners:")
			line("  Customers with negative net value: %s (%.1f%%)",
				humanize.Comma(int64(v.SerialReturners)), float64(v.SerialReturners)/float64(n)*100)
			line("")
		}
	}

	if len(v.Violations) > 0 || len(v.Warnings) > 0 {
		line("Validation:")
		for _, msg := range v.Violations {
			line("  [ERROR] %s", msg)
		}
		for _, msg := range v.Warnings {
			line("  [WARN] %s", msg)
		}
		line("")
	}

	line(reportRule)
	return b.String()
}
