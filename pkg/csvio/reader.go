package csvio

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"churn-features/pkg/models"

	"github.com/pkg/errors"
)

var requiredColumns = []string{"invoice", "stock_code", "customer_id", "quantity", "price", "invoice_date"}

// Accepted invoice_date layouts, all read as UTC.
var dateLayouts = []string{
	time.DateTime,
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.DateOnly,
}

// Source reads the cleaned transaction file.
type Source struct {
	Path string
}

// Load opens Path and parses every row.
func (s Source) Load(ctx context.Context) ([]models.Transaction, models.LoadStats, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, models.LoadStats{}, errors.Wrap(err, "open input")
	}
	defer f.Close()

	txs, stats, err := ReadTransactions(ctx, f)
	stats.Source = s.Path
	return txs, stats, err
}

// ReadTransactions parses a CSV stream with a header row.
// customer_id, quantity and invoice_date must be present on every row.
func ReadTransactions(ctx context.Context, r io.Reader) ([]models.Transaction, models.LoadStats, error) {
	var stats models.LoadStats

	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, stats, models.ErrEmptyInput
	}
	if err != nil {
		return nil, stats, errors.Wrap(err, "read header")
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := idx[c]; !ok {
			return nil, stats, &models.ParseError{Line: 1, Column: c, Err: fmt.Errorf("column not found")}
		}
	}
	col := func(rec []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var txs []models.Transaction
	line := 1
	for {
		if line%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
		}
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, stats, errors.Wrapf(err, "read line %d", line)
		}

		tx, err := parseRow(rec, col, line, &stats)
		if err != nil {
			return nil, stats, err
		}
		txs = append(txs, tx)
	}
	stats.Rows = len(txs)
	if len(txs) == 0 {
		return nil, stats, models.ErrEmptyInput
	}
	return txs, stats, nil
}

func parseRow(rec []string, col func([]string, string) string, line int, stats *models.LoadStats) (models.Transaction, error) {
	tx := models.Transaction{
		Invoice:   col(rec, "invoice"),
		StockCode: col(rec, "stock_code"),
		Country:   col(rec, "country"),
	}

	if tx.Invoice == "" {
		stats.MissingInvoice++
	}
	if tx.StockCode == "" {
		stats.MissingStockCode++
	}

	var err error
	if tx.CustomerID, err = ParseCustomerID(col(rec, "customer_id")); err != nil {
		return tx, &models.ParseError{Line: line, Column: "customer_id", Err: err}
	}
	if tx.Quantity, err = parseInt(col(rec, "quantity")); err != nil {
		return tx, &models.ParseError{Line: line, Column: "quantity", Err: err}
	}
	if tx.InvoiceDate, err = ParseTimestamp(col(rec, "invoice_date")); err != nil {
		return tx, &models.ParseError{Line: line, Column: "invoice_date", Err: err}
	}

	if raw := col(rec, "price"); raw == "" {
		stats.MissingPrice++
	} else if tx.Price, err = strconv.ParseFloat(raw, 64); err != nil {
		return tx, &models.ParseError{Line: line, Column: "price", Err: err}
	}

	if raw := col(rec, "total_amount"); raw == "" {
		tx.TotalAmount = float64(tx.Quantity) * tx.Price
		stats.DerivedAmount++
	} else if tx.TotalAmount, err = strconv.ParseFloat(raw, 64); err != nil {
		return tx, &models.ParseError{Line: line, Column: "total_amount", Err: err}
	}

	if raw := col(rec, "is_return"); raw == "" {
		tx.IsReturn = tx.Quantity < 0
		stats.DerivedReturn++
	} else if tx.IsReturn, err = strconv.ParseBool(raw); err != nil {
		return tx, &models.ParseError{Line: line, Column: "is_return", Err: err}
	}
	return tx, nil
}

// ParseCustomerID accepts positive integers and integral floats ("17850.0").
func ParseCustomerID(raw string) (int64, error) {
	id, err := parseInt(raw)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("customer id must be positive, got %d", id)
	}
	return id, nil
}

func parseInt(raw string) (int64, error) {
	if raw == "" {
		return 0, fmt.Errorf("required value is empty")
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	// float64(math.MaxInt64) rounds up to 2^63, which no longer fits
	if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("invalid integer %q", raw)
	}
	return int64(f), nil
}

// ParseTimestamp parses an invoice_date value in any accepted layout.
func ParseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("required value is empty")
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized datetime %q", raw)
}
