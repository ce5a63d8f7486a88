package observability

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus gauges describing one pipeline run.
// Batch runs have no scrape endpoint: the registry is dumped to a textfile
// picked up by node_exporter's textfile collector.
type Metrics struct {
	Registry *prometheus.Registry

	transactions    *prometheus.GaugeVec
	customers       *prometheus.GaugeVec
	churnRate       prometheus.Gauge
	serialReturners prometheus.Gauge
	warnings        prometheus.Gauge
	duration        prometheus.Gauge
	lastSuccess     prometheus.Gauge
}

// NewMetrics creates a dedicated registry so that several runs (or tests) never collide.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		transactions: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "churn_features_transactions",
				Help: "Transaction lines per partition.",
			},
			[]string{"window"},
		),
		customers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "churn_features_customers",
				Help: "Customers per cohort stage.",
			},
			[]string{"stage"},
		),
		churnRate: factory.NewGauge(prometheus.GaugeOpts{
			Name: "churn_features_churn_rate",
			Help: "Share of eligible customers labeled churned.",
		}),
		serialReturners: factory.NewGauge(prometheus.GaugeOpts{
			Name: "churn_features_serial_returners",
			Help: "Eligible customers with negative net monetary value.",
		}),
		warnings: factory.NewGauge(prometheus.GaugeOpts{
			Name: "churn_features_validation_warnings",
			Help: "Advisory validation warnings raised by the last run.",
		}),
		duration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "churn_features_run_duration_seconds",
			Help: "Wall time of the last run.",
		}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "churn_features_last_success_timestamp_seconds",
			Help: "Unix time of the last successful export.",
		}),
	}
}

// SetTransactions records the size of a partition ("input", "observation", "outcome", "restricted").
func (m *Metrics) SetTransactions(window string, n int) {
	m.transactions.WithLabelValues(window).Set(float64(n))
}

// SetCustomers records the customer count of a cohort stage ("candidates", "eligible", "filtered_out").
func (m *Metrics) SetCustomers(stage string, n int) {
	m.customers.WithLabelValues(stage).Set(float64(n))
}

func (m *Metrics) SetChurnRate(rate float64) { m.churnRate.Set(rate) }

func (m *Metrics) SetSerialReturners(n int) { m.serialReturners.Set(float64(n)) }

func (m *Metrics) SetWarnings(n int) { m.warnings.Set(float64(n)) }

// ObserveRun records the run duration and, on success, the completion time.
func (m *Metrics) ObserveRun(d time.Duration, success bool, now time.Time) {
	m.duration.Set(d.Seconds())
	if success {
		m.lastSuccess.Set(float64(now.Unix()))
	}
}

// WriteTextfile atomically writes the registry in the Prometheus text format,
// creating the parent directory if needed.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
