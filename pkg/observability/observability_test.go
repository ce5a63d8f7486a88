package observability

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewLogger_Levels(t *testing.T) {
	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		logger, err := NewLogger(lvl)
		if err != nil {
			t.Fatalf("level %q: unexpected error: %v", lvl, err)
		}
		if logger == nil {
			t.Fatalf("level %q: nil logger", lvl)
		}
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	if _, err := NewLogger("verbose"); err == nil {
		t.Fatal("expected error for unknown level, got nil")
	}
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.SetTransactions("observation", 120)
	m.SetCustomers("eligible", 7)
	m.SetChurnRate(0.25)
	m.SetSerialReturners(1)
	m.SetWarnings(0)
	m.ObserveRun(1500*time.Millisecond, true, time.Unix(1700000000, 0))

	path := filepath.Join(t.TempDir(), "churn.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	out := string(raw)
	for _, want := range []string{
		`churn_features_transactions{window="observation"} 120`,
		`churn_features_customers{stage="eligible"} 7`,
		`churn_features_churn_rate 0.25`,
		`churn_features_run_duration_seconds 1.5`,
		`churn_features_last_success_timestamp_seconds 1.7e+09`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestMetrics_WriteTextfile_CreatesDirectory(t *testing.T) {
	m := NewMetrics()
	m.SetChurnRate(0.5)

	path := filepath.Join(t.TempDir(), "data", "metrics", "churn_features.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(raw), "churn_features_churn_rate 0.5") {
		t.Errorf("unexpected textfile:\n%s", raw)
	}
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := NewMetrics(), NewMetrics()
	if a.Registry == b.Registry {
		t.Fatal("expected distinct registries")
	}
}
