package calculator

import (
	"sort"
	"time"

	"churn-features/pkg/models"

	"github.com/shopspring/decimal"
)

type rfmAcc struct {
	last     time.Time
	invoices map[string]struct{}
	net      decimal.Decimal
	gross    decimal.Decimal
}

// ComputeRFM folds the restricted observation lines into one row per customer:
// recency in days before observationEnd, distinct invoices (purchases and returns),
// net amount over all lines and gross amount over positive lines.
func ComputeRFM(observation []models.Transaction, observationEnd time.Time) []models.RFMRow {
	byCustomer := make(map[int64]*rfmAcc)
	for _, tx := range observation {
		a, ok := byCustomer[tx.CustomerID]
		if !ok {
			a = &rfmAcc{last: tx.InvoiceDate, invoices: make(map[string]struct{})}
			byCustomer[tx.CustomerID] = a
		}
		if tx.InvoiceDate.After(a.last) {
			a.last = tx.InvoiceDate
		}
		a.invoices[tx.Invoice] = struct{}{}

		amount := decimal.NewFromFloat(tx.TotalAmount)
		a.net = a.net.Add(amount)
		if amount.IsPositive() {
			a.gross = a.gross.Add(amount)
		}
	}

	rows := make([]models.RFMRow, 0, len(byCustomer))
	for id, a := range byCustomer {
		rows = append(rows, models.RFMRow{
			CustomerID:    id,
			Recency:       floorDays(observationEnd.Sub(a.last)),
			Frequency:     len(a.invoices),
			MonetaryNet:   a.net.InexactFloat64(),
			MonetaryGross: a.gross.InexactFloat64(),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CustomerID < rows[j].CustomerID })
	return rows
}
