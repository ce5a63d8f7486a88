package calculator

import (
	"churn-features/pkg/models"

	"github.com/shopspring/decimal"
)

type returnAcc struct {
	invoices       map[string]struct{}
	returnInvoices map[string]struct{}
	returnSum      decimal.Decimal
}

// ComputeReturns emits one row for every id of population, zero-filled when the
// customer has no return line. return_rate divides return invoices by all distinct invoices.
func ComputeReturns(observation []models.Transaction, population []int64) map[int64]models.ReturnRow {
	byCustomer := make(map[int64]*returnAcc)
	for _, tx := range observation {
		a, ok := byCustomer[tx.CustomerID]
		if !ok {
			a = &returnAcc{
				invoices:       make(map[string]struct{}),
				returnInvoices: make(map[string]struct{}),
			}
			byCustomer[tx.CustomerID] = a
		}
		a.invoices[tx.Invoice] = struct{}{}
		if tx.IsReturn {
			a.returnInvoices[tx.Invoice] = struct{}{}
			a.returnSum = a.returnSum.Add(decimal.NewFromFloat(tx.TotalAmount))
		}
	}

	out := make(map[int64]models.ReturnRow, len(population))
	for _, id := range population {
		row := models.ReturnRow{CustomerID: id}
		if a, ok := byCustomer[id]; ok {
			row.NReturnInvoices = len(a.returnInvoices)
			row.ReturnAmount = a.returnSum.Abs().InexactFloat64()
			if len(a.invoices) > 0 {
				row.ReturnRate = float64(row.NReturnInvoices) / float64(len(a.invoices))
			}
		}
		row.HasReturns = row.NReturnInvoices > 0
		out[id] = row
	}
	return out
}
