package calculator

import (
	"time"

	"churn-features/pkg/models"
)

type behavioralAcc struct {
	first, last   time.Time
	invoices      map[string]struct{}
	products      map[string]struct{}
	baskets       map[string]struct{} // invoices with at least one purchase line
	purchaseLines int
	purchaseUnits int64
}

// ComputeBehavioral folds the restricted observation lines into basket, product and tenure metrics.
//
// Basket metrics only consider purchase lines (quantity > 0): avg_items_per_basket is the mean
// of per-invoice unit sums, avg_units_per_line the mean line quantity. Customers without any
// purchase line get 0 for both. scope decides whether return lines count towards unique_products.
//
// purchase_velocity = frequency / ((days_as_customer + 1) / 30) and
// avg_days_between_purchases = (days_as_customer + 1) / frequency are inverse up to the 30 factor.
func ComputeBehavioral(observation []models.Transaction, scope models.ProductScope) map[int64]models.BehavioralRow {
	byCustomer := make(map[int64]*behavioralAcc)
	for _, tx := range observation {
		a, ok := byCustomer[tx.CustomerID]
		if !ok {
			a = &behavioralAcc{
				first:    tx.InvoiceDate,
				last:     tx.InvoiceDate,
				invoices: make(map[string]struct{}),
				products: make(map[string]struct{}),
				baskets:  make(map[string]struct{}),
			}
			byCustomer[tx.CustomerID] = a
		}
		if tx.InvoiceDate.Before(a.first) {
			a.first = tx.InvoiceDate
		}
		if tx.InvoiceDate.After(a.last) {
			a.last = tx.InvoiceDate
		}
		a.invoices[tx.Invoice] = struct{}{}

		purchase := tx.Quantity > 0
		if scope != models.ProductScopePurchases || purchase {
			a.products[tx.StockCode] = struct{}{}
		}
		if purchase {
			a.baskets[tx.Invoice] = struct{}{}
			a.purchaseLines++
			a.purchaseUnits += tx.Quantity
		}
	}

	out := make(map[int64]models.BehavioralRow, len(byCustomer))
	for id, a := range byCustomer {
		row := models.BehavioralRow{
			CustomerID:        id,
			UniqueProducts:    len(a.products),
			FirstPurchaseDate: a.first,
			LastPurchaseDate:  a.last,
			DaysAsCustomer:    floorDays(a.last.Sub(a.first)),
			HasBasket:         a.purchaseLines > 0,
		}
		if row.HasBasket {
			row.AvgItemsPerBasket = float64(a.purchaseUnits) / float64(len(a.baskets))
			row.AvgUnitsPerLine = float64(a.purchaseUnits) / float64(a.purchaseLines)
		}

		frequency := float64(len(a.invoices))
		span := float64(row.DaysAsCustomer + 1)
		row.PurchaseVelocity = frequency / (span / 30)
		row.AvgDaysBetweenPurchases = span / frequency
		out[id] = row
	}
	return out
}
