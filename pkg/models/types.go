package models

import (
	"time"
)

/*
LOAD → raw transaction lines as read from the cleaned input (CSV or SQL table).
*/

// Transaction is one invoice line of the cleaned retail log.
type Transaction struct {
	Invoice     string
	StockCode   string
	CustomerID  int64
	Quantity    int64   // negative on return lines
	Price       float64 // unit price, >= 0
	InvoiceDate time.Time
	Country     string
	TotalAmount float64 // Quantity × Price, signed
	IsReturn    bool
}

/*
SPLIT/FILTER → intermediate structures used to build the cohort.
*/

// WindowRange describes the timestamps covered by one partition.
type WindowRange struct {
	Rows  int
	Start time.Time // zero when Rows == 0
	End   time.Time
}

// CustomerCohortStats holds the eligibility inputs of one customer (observation window only).
type CustomerCohortStats struct {
	CustomerID    int64
	FirstPurchase time.Time
	NTransactions int // distinct invoices
	TenureOK      bool
	FrequencyOK   bool
}

// Eligible reports whether both cohort criteria hold.
func (s CustomerCohortStats) Eligible() bool {
	return s.TenureOK && s.FrequencyOK
}

// CohortResult summarises the cohort filter for the run report.
type CohortResult struct {
	Candidates     int
	Eligible       int
	FilteredOut    int
	TenureFailed   int
	FrequencyFail  int
	BothFailed     int
	MinAcquisition time.Time // observation_end - min_tenure_days
}

// FilteredPct is the share of candidates removed by the filter, in percent.
func (c CohortResult) FilteredPct() float64 {
	if c.Candidates == 0 {
		return 0
	}
	return float64(c.FilteredOut) / float64(c.Candidates) * 100
}

/*
COMPUTE → per-customer metric rows, one table per aggregator.
*/

// RFMRow carries recency, frequency and monetary metrics.
type RFMRow struct {
	CustomerID    int64
	Recency       int
	Frequency     int
	MonetaryNet   float64
	MonetaryGross float64
}

// BehavioralRow carries basket, product and tenure metrics.
type BehavioralRow struct {
	CustomerID              int64
	UniqueProducts          int
	AvgItemsPerBasket       float64
	AvgUnitsPerLine         float64
	HasBasket               bool // false when the customer has no purchase line
	FirstPurchaseDate       time.Time
	LastPurchaseDate        time.Time
	DaysAsCustomer          int
	PurchaseVelocity        float64
	AvgDaysBetweenPurchases float64
}

// ReturnRow carries return behaviour metrics.
type ReturnRow struct {
	CustomerID      int64
	NReturnInvoices int
	ReturnAmount    float64
	ReturnRate      float64
	HasReturns      bool
}

// LabelRow is the churn outcome of one eligible customer.
type LabelRow struct {
	CustomerID int64
	Churned    int
}

// LabelMissing marks a merged row that received no churn label.
const LabelMissing = -1

/*
EXPORT → final customer-level feature table.
*/

// CustomerFeatureRow is one line of the exported feature table.
type CustomerFeatureRow struct {
	CustomerID              int64
	Recency                 int
	Frequency               int
	MonetaryNet             float64
	MonetaryGross           float64
	AvgItemsPerBasket       float64
	AvgUnitsPerLine         float64
	UniqueProducts          int
	FirstPurchaseDate       time.Time
	LastPurchaseDate        time.Time
	DaysAsCustomer          int
	PurchaseVelocity        float64
	AvgDaysBetweenPurchases float64
	NReturnInvoices         int
	ReturnAmount            float64
	ReturnRate              float64
	HasReturns              bool
	Churned                 int // 1 = no purchase in outcome window, LabelMissing if unlabeled
}

// FeatureColumns is the exported column order.
var FeatureColumns = []string{
	"customer_id",
	"recency",
	"frequency",
	"monetary_net",
	"monetary_gross",
	"avg_items_per_basket",
	"avg_units_per_line",
	"unique_products",
	"first_purchase_date",
	"last_purchase_date",
	"days_as_customer",
	"purchase_velocity",
	"avg_days_between_purchases",
	"n_return_invoices",
	"return_amount",
	"return_rate",
	"has_returns",
	"churned",
}

/*
CONFIG → run parameters, built by pkg/config and passed explicitly to each component.
*/

// ProductScope selects which lines count towards unique_products.
type ProductScope string

const (
	ProductScopeAll       ProductScope = "all"       // every line, returns included
	ProductScopePurchases ProductScope = "purchases" // quantity > 0 lines only
)

// Config contains the parameters consumed by the pipeline.
type Config struct {
	ObservationStart time.Time // informational, not used to filter
	ObservationEnd   time.Time // exclusive upper bound of the observation window
	OutcomeStart     time.Time // inclusive lower bound of the outcome window
	OutcomeEnd       time.Time // informational, not used to filter

	MinTenureDays int
	MinFrequency  int
	ProductScope  ProductScope

	InputPath   string
	OutputPath  string
	MetricsPath string // optional Prometheus textfile

	DSN   string // SQL source, takes precedence over InputPath
	Table string

	LogLevel string
	Verbose  bool // progress bar
}

// LoadStats describes how a source was read, for the input audit log.
type LoadStats struct {
	Source           string
	Rows             int
	MissingPrice     int // empty/NULL price read as 0
	MissingInvoice   int // empty/NULL invoice, all such lines share one invoice key
	MissingStockCode int
	DerivedAmount    int // total_amount computed as quantity × price
	DerivedReturn    int // is_return computed from the quantity sign
}
