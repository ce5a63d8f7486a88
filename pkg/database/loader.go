package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"churn-features/pkg/csvio"
	"churn-features/pkg/models"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

var tableNameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Open DSN mariadb://, mysql://, postgres://, postgresql:// or sqlite:// → (driver, *sql.DB)
func Open(dsn string) (*sql.DB, string, error) {
	driver, driverDSN, err := toDriverDSN(dsn)
	if err != nil {
		return nil, "", err
	}
	db, err := sql.Open(driver, driverDSN)
	if err != nil {
		return nil, "", err
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
	}
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, driver, nil
}

func toDriverDSN(dsn string) (string, string, error) {
	switch {
	case strings.HasPrefix(dsn, "mariadb://"), strings.HasPrefix(dsn, "mysql://"):
		out, err := toMySQLDSN(dsn)
		return "mysql", out, err
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "pgx", dsn, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		path := strings.TrimPrefix(dsn, "sqlite://")
		if path == "" {
			return "", "", fmt.Errorf("sqlite dsn without path")
		}
		return "sqlite", path, nil
	case dsn == "":
		return "", "", fmt.Errorf("empty dsn")
	}
	// native go-sql-driver DSN
	return "mysql", dsn, nil
}

func toMySQLDSN(dsn string) (string, error) {
	if strings.HasPrefix(dsn, "mariadb://") || strings.HasPrefix(dsn, "mysql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", fmt.Errorf("parse dsn: %w", err)
		}
		user := ""
		pass := ""
		if u.User != nil {
			user = u.User.Username()
			pw, _ := u.User.Password()
			pass = pw
		}
		host := u.Host
		db := strings.TrimPrefix(u.Path, "/")
		if user == "" || host == "" || db == "" {
			return "", fmt.Errorf("incomplete dsn (user/host/db)")
		}
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&interpolateParams=true",
			user, pass, host, db), nil
	}
	return dsn, nil
}

// Source reads transactions from an SQL table holding the cleaned input columns.
type Source struct {
	DB    *sql.DB
	Table string
	DSN   string // for logs only
}

// Load runs LoadTransactions with the source's table.
func (s Source) Load(ctx context.Context) ([]models.Transaction, models.LoadStats, error) {
	txs, stats, err := LoadTransactions(ctx, s.DB, s.Table)
	stats.Source = redact(s.DSN) + "#" + s.Table
	return txs, stats, err
}

// LoadTransactions selects every line of tableName.
// price, total_amount and is_return may be NULL: they are read as 0 / derived.
func LoadTransactions(ctx context.Context, db *sql.DB, tableName string) ([]models.Transaction, models.LoadStats, error) {
	var stats models.LoadStats
	if !tableNameRe.MatchString(tableName) {
		return nil, stats, fmt.Errorf("invalid table name %q", tableName)
	}

	q := fmt.Sprintf(`
		SELECT invoice, stock_code, customer_id, quantity, price, country,
		       invoice_date, total_amount, is_return
		FROM %s
		ORDER BY invoice_date, invoice`, tableName)

	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, stats, errors.Wrap(err, "query transactions")
	}
	defer rows.Close()

	var txs []models.Transaction
	line := 0
	for rows.Next() {
		line++
		var (
			tx          models.Transaction
			invoice     sql.NullString
			stockCode   sql.NullString
			customerID  sql.NullInt64
			quantity    sql.NullInt64
			price       sql.NullFloat64
			country     sql.NullString
			invoiceDate any
			total       sql.NullFloat64
			isReturn    sql.NullBool
		)
		if err := rows.Scan(&invoice, &stockCode, &customerID, &quantity, &price,
			&country, &invoiceDate, &total, &isReturn); err != nil {
			return nil, stats, errors.Wrapf(err, "scan row %d", line)
		}
		if !customerID.Valid {
			return nil, stats, &models.ParseError{Line: line, Column: "customer_id", Err: fmt.Errorf("required value is NULL")}
		}
		if customerID.Int64 <= 0 {
			return nil, stats, &models.ParseError{Line: line, Column: "customer_id", Err: fmt.Errorf("customer id must be positive, got %d", customerID.Int64)}
		}
		if !quantity.Valid {
			return nil, stats, &models.ParseError{Line: line, Column: "quantity", Err: fmt.Errorf("required value is NULL")}
		}
		ts, err := scanTime(invoiceDate)
		if err != nil {
			return nil, stats, &models.ParseError{Line: line, Column: "invoice_date", Err: err}
		}

		tx.Invoice = invoice.String
		tx.StockCode = stockCode.String
		if tx.Invoice == "" {
			stats.MissingInvoice++
		}
		if tx.StockCode == "" {
			stats.MissingStockCode++
		}
		tx.CustomerID = customerID.Int64
		tx.Quantity = quantity.Int64
		tx.Country = country.String
		tx.InvoiceDate = ts
		if price.Valid {
			tx.Price = price.Float64
		} else {
			stats.MissingPrice++
		}
		if total.Valid {
			tx.TotalAmount = total.Float64
		} else {
			tx.TotalAmount = float64(tx.Quantity) * tx.Price
			stats.DerivedAmount++
		}
		if isReturn.Valid {
			tx.IsReturn = isReturn.Bool
		} else {
			tx.IsReturn = tx.Quantity < 0
			stats.DerivedReturn++
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, stats, errors.Wrap(err, "iterate transactions")
	}

	stats.Rows = len(txs)
	if len(txs) == 0 {
		return nil, stats, models.ErrEmptyInput
	}
	return txs, stats, nil
}

// scanTime normalises driver-specific datetime values (time.Time, text, bytes) to UTC.
func scanTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return parseTimeText(t)
	case []byte:
		return parseTimeText(string(t))
	case nil:
		return time.Time{}, fmt.Errorf("required value is NULL")
	}
	return time.Time{}, fmt.Errorf("unsupported datetime type %T", v)
}

// time.Time.String() layout, written by drivers that store bound times as text.
const goTimeLayout = "2006-01-02 15:04:05.999999999 -0700 MST"

func parseTimeText(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(goTimeLayout, raw); err == nil {
		return t.UTC(), nil
	}
	return csvio.ParseTimestamp(raw)
}

func redact(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
