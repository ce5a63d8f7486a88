package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"churn-features/pkg/models"

	"gopkg.in/yaml.v3"
)

// DateLayout is the format of every date key in the config file.
const DateLayout = "2006-01-02"

const (
	legacyInputName  = "cleaned_retail_data.csv"
	legacyOutputName = "customers_features.csv"
)

// File mirrors config.yaml.
type File struct {
	Features FeaturesSection `yaml:"features"`
	Paths    PathsSection    `yaml:"paths"`
	Source   SourceSection   `yaml:"source"`
	LogLevel string          `yaml:"log_level"`
}

// FeaturesSection holds the window boundaries and cohort thresholds.
type FeaturesSection struct {
	ObservationStart    Date   `yaml:"observation_start"`
	ObservationEnd      Date   `yaml:"observation_end"`
	OutcomeStart        Date   `yaml:"outcome_start"`
	OutcomeEnd          Date   `yaml:"outcome_end"`
	MinTenureDays       *int   `yaml:"min_tenure_days"`
	MinFrequency        *int   `yaml:"min_frequency"`
	UniqueProductsScope string `yaml:"unique_products_scope,omitempty"`
}

// PathsSection holds file locations. InterimData/ProcessedData are the legacy directory keys.
type PathsSection struct {
	Input         string `yaml:"input,omitempty"`
	Output        string `yaml:"output,omitempty"`
	Metrics       string `yaml:"metrics,omitempty"`
	InterimData   string `yaml:"interim_data,omitempty"`
	ProcessedData string `yaml:"processed_data,omitempty"`
}

// SourceSection selects an SQL source instead of the CSV input.
type SourceSection struct {
	DSN   string `yaml:"dsn,omitempty"`
	Table string `yaml:"table,omitempty"`
}

// Date is a YYYY-MM-DD calendar date (UTC midnight).
type Date struct {
	time.Time
	Raw string
}

// UnmarshalYAML keeps the scalar text so unquoted dates are not resolved as timestamps.
func (d *Date) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a date scalar", node.Line)
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		return nil
	}
	t, err := time.ParseInLocation(DateLayout, raw, time.UTC)
	if err != nil {
		return fmt.Errorf("line %d: date %q: expected format YYYY-MM-DD", node.Line, raw)
	}
	d.Time = t
	d.Raw = raw
	return nil
}

// Load reads a YAML config file, applies env overrides and validates the result.
func Load(path string) (models.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Config{}, fmt.Errorf("load config %q: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return models.Config{}, fmt.Errorf("parse config %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML bytes into a validated models.Config.
func Parse(data []byte) (models.Config, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return models.Config{}, err
	}
	cfg := f.toConfig()
	ApplyEnv(&cfg)
	if err := Validate(cfg); err != nil {
		return models.Config{}, err
	}
	return cfg, nil
}

func (f File) toConfig() models.Config {
	cfg := models.Config{
		ObservationStart: f.Features.ObservationStart.Time,
		ObservationEnd:   f.Features.ObservationEnd.Time,
		OutcomeStart:     f.Features.OutcomeStart.Time,
		OutcomeEnd:       f.Features.OutcomeEnd.Time,
		MinTenureDays:    -1,
		MinFrequency:     0,
		ProductScope:     models.ProductScope(strings.ToLower(f.Features.UniqueProductsScope)),
		InputPath:        f.Paths.Input,
		OutputPath:       f.Paths.Output,
		MetricsPath:      f.Paths.Metrics,
		DSN:              f.Source.DSN,
		Table:            f.Source.Table,
		LogLevel:         f.LogLevel,
	}
	if f.Features.MinTenureDays != nil {
		cfg.MinTenureDays = *f.Features.MinTenureDays
	}
	if f.Features.MinFrequency != nil {
		cfg.MinFrequency = *f.Features.MinFrequency
	}
	if cfg.ProductScope == "" {
		cfg.ProductScope = models.ProductScopeAll
	}
	if cfg.InputPath == "" && f.Paths.InterimData != "" {
		cfg.InputPath = filepath.Join(f.Paths.InterimData, legacyInputName)
	}
	if cfg.OutputPath == "" && f.Paths.ProcessedData != "" {
		cfg.OutputPath = filepath.Join(f.Paths.ProcessedData, legacyOutputName)
	}
	if cfg.Table == "" {
		cfg.Table = "transactions"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return cfg
}

// ApplyEnv overrides the DSN and log level from the environment when set.
func ApplyEnv(cfg *models.Config) {
	cfg.DSN = getEnv("CHURN_FEATURES_DSN", cfg.DSN)
	cfg.LogLevel = getEnv("CHURN_FEATURES_LOG_LEVEL", cfg.LogLevel)
}

// Validate checks the structural constraints of a config.
// Overlap between the two windows is left to the splitter's leakage guard.
func Validate(cfg models.Config) error {
	dates := []struct {
		field string
		t     time.Time
	}{
		{"features.observation_start", cfg.ObservationStart},
		{"features.observation_end", cfg.ObservationEnd},
		{"features.outcome_start", cfg.OutcomeStart},
		{"features.outcome_end", cfg.OutcomeEnd},
	}
	for _, d := range dates {
		if d.t.IsZero() {
			return &models.ConfigError{Field: d.field, Message: "required (YYYY-MM-DD)"}
		}
	}
	if !cfg.ObservationStart.Before(cfg.ObservationEnd) {
		return &models.ConfigError{Field: "features.observation_end", Message: "must be after observation_start"}
	}
	if !cfg.OutcomeStart.Before(cfg.OutcomeEnd) {
		return &models.ConfigError{Field: "features.outcome_end", Message: "must be after outcome_start"}
	}
	if cfg.MinTenureDays < 0 {
		return &models.ConfigError{Field: "features.min_tenure_days", Message: "required, must be >= 0"}
	}
	if cfg.MinFrequency < 1 {
		return &models.ConfigError{Field: "features.min_frequency", Message: "required, must be >= 1"}
	}
	switch cfg.ProductScope {
	case models.ProductScopeAll, models.ProductScopePurchases:
	default:
		return &models.ConfigError{Field: "features.unique_products_scope", Message: fmt.Sprintf("unknown scope %q (all|purchases)", cfg.ProductScope)}
	}
	if cfg.InputPath == "" && cfg.DSN == "" {
		return &models.ConfigError{Field: "paths.input", Message: "an input path or source.dsn is required"}
	}
	if cfg.OutputPath == "" {
		return &models.ConfigError{Field: "paths.output", Message: "required"}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
