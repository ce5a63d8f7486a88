package calculator

import (
	"churn-features/pkg/models"
)

// MergeFeatures left-joins behavioral, return and label tables onto the RFM rows.
// Absent basket metrics are filled with 0; an absent label is left as models.LabelMissing
// so that validation can report it.
func MergeFeatures(
	rfm []models.RFMRow,
	behavioral map[int64]models.BehavioralRow,
	returns map[int64]models.ReturnRow,
	labels []models.LabelRow,
) []models.CustomerFeatureRow {
	churned := make(map[int64]int, len(labels))
	for _, l := range labels {
		churned[l.CustomerID] = l.Churned
	}

	rows := make([]models.CustomerFeatureRow, 0, len(rfm))
	for _, r := range rfm {
		row := models.CustomerFeatureRow{
			CustomerID:    r.CustomerID,
			Recency:       r.Recency,
			Frequency:     r.Frequency,
			MonetaryNet:   r.MonetaryNet,
			MonetaryGross: r.MonetaryGross,
			Churned:       models.LabelMissing,
		}
		if b, ok := behavioral[r.CustomerID]; ok {
			row.UniqueProducts = b.UniqueProducts
			row.FirstPurchaseDate = b.FirstPurchaseDate
			row.LastPurchaseDate = b.LastPurchaseDate
			row.DaysAsCustomer = b.DaysAsCustomer
			row.PurchaseVelocity = b.PurchaseVelocity
			row.AvgDaysBetweenPurchases = b.AvgDaysBetweenPurchases
			if b.HasBasket {
				row.AvgItemsPerBasket = b.AvgItemsPerBasket
				row.AvgUnitsPerLine = b.AvgUnitsPerLine
			}
		}
		if ret, ok := returns[r.CustomerID]; ok {
			row.NReturnInvoices = ret.NReturnInvoices
			row.ReturnAmount = ret.ReturnAmount
			row.ReturnRate = ret.ReturnRate
			row.HasReturns = ret.HasReturns
		}
		if c, ok := churned[r.CustomerID]; ok {
			row.Churned = c
		}
		rows = append(rows, row)
	}
	return rows
}
