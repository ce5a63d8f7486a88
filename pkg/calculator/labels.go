package calculator

import (
	"churn-features/pkg/models"
)

// GenerateLabels marks every eligible customer churned (1) unless it has at least one
// purchase line (quantity > 0) in the outcome window. Returns are not retention evidence.
func GenerateLabels(outcome []models.Transaction, eligible []int64) []models.LabelRow {
	purchasers := make(map[int64]struct{})
	for _, tx := range outcome {
		if tx.Quantity > 0 {
			purchasers[tx.CustomerID] = struct{}{}
		}
	}

	labels := make([]models.LabelRow, 0, len(eligible))
	for _, id := range eligible {
		churned := 1
		if _, ok := purchasers[id]; ok {
			churned = 0
		}
		labels = append(labels, models.LabelRow{CustomerID: id, Churned: churned})
	}
	return labels
}

// ChurnRate returns the churned share and count of labels.
func ChurnRate(labels []models.LabelRow) (float64, int) {
	if len(labels) == 0 {
		return 0, 0
	}
	churned := 0
	for _, l := range labels {
		churned += l.Churned
	}
	return float64(churned) / float64(len(labels)), churned
}
