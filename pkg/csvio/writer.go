package csvio

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"churn-features/pkg/models"

	"github.com/pkg/errors"
)

// Sink writes the feature table, replacing any previous file.
type Sink struct {
	Path string
}

// Write creates the parent directory, writes to a temp file and renames it over Path.
// It returns the size of the written file.
func (s Sink) Write(ctx context.Context, rows []models.CustomerFeatureRow) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, errors.Wrap(err, "create output directory")
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+".*")
	if err != nil {
		return 0, errors.Wrap(err, "create temp output")
	}
	defer os.Remove(tmp.Name())

	if err := WriteFeatures(tmp, rows); err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, errors.Wrap(err, "close temp output")
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return 0, errors.Wrap(err, "replace output")
	}

	info, err := os.Stat(s.Path)
	if err != nil {
		return 0, errors.Wrap(err, "stat output")
	}
	return info.Size(), nil
}

// WriteFeatures encodes rows as CSV with the models.FeatureColumns header.
func WriteFeatures(w io.Writer, rows []models.CustomerFeatureRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(models.FeatureColumns); err != nil {
		return errors.Wrap(err, "write header")
	}
	rec := make([]string, len(models.FeatureColumns))
	for _, r := range rows {
		rec[0] = strconv.FormatInt(r.CustomerID, 10)
		rec[1] = strconv.Itoa(r.Recency)
		rec[2] = strconv.Itoa(r.Frequency)
		rec[3] = formatFloat(r.MonetaryNet)
		rec[4] = formatFloat(r.MonetaryGross)
		rec[5] = formatFloat(r.AvgItemsPerBasket)
		rec[6] = formatFloat(r.AvgUnitsPerLine)
		rec[7] = strconv.Itoa(r.UniqueProducts)
		rec[8] = r.FirstPurchaseDate.UTC().Format(time.DateTime)
		rec[9] = r.LastPurchaseDate.UTC().Format(time.DateTime)
		rec[10] = strconv.Itoa(r.DaysAsCustomer)
		rec[11] = formatFloat(r.PurchaseVelocity)
		rec[12] = formatFloat(r.AvgDaysBetweenPurchases)
		rec[13] = strconv.Itoa(r.NReturnInvoices)
		rec[14] = formatFloat(r.ReturnAmount)
		rec[15] = formatFloat(r.ReturnRate)
		rec[16] = strconv.FormatBool(r.HasReturns)
		rec[17] = strconv.Itoa(r.Churned)
		if err := cw.Write(rec); err != nil {
			return errors.Wrapf(err, "write customer %d", r.CustomerID)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush output")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
