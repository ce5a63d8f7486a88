package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEmptyInput is returned when a source yields no transaction at all.
var ErrEmptyInput = errors.New("no transactions loaded")

// DataLeakageError indicates overlapping observation and outcome windows.
type DataLeakageError struct {
	ObservationMax time.Time
	OutcomeMin     time.Time
}

func (e *DataLeakageError) Error() string {
	return fmt.Sprintf("data leakage detected: observation max (%s) >= outcome min (%s)",
		e.ObservationMax.Format(time.DateTime), e.OutcomeMin.Format(time.DateTime))
}

// IntegrityError collects the fatal violations found while validating the feature table.
type IntegrityError struct {
	Violations []string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("feature table integrity check failed: %s", strings.Join(e.Violations, "; "))
}

// ConfigError indicates an invalid configuration value.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error on '%s': %s", e.Field, e.Message)
}

// ParseError indicates a malformed input row.
type ParseError struct {
	Line   int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d, column %q: %v", e.Line, e.Column, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
