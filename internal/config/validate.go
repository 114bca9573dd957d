// This file adds a lightweight validator for Config values. It performs
// static checks and returns a list of issues (errors and warnings) that the
// CLI surfaces before touching the warehouse.
package config

import (
	"fmt"
	"strings"

	"github.com/GabrielTheophilo/movieflix-cicd/internal/logging"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is the dotted config key (e.g. "store.driver"). Message is
// human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static validation of cfg. It does not mutate cfg.
// Callers decide whether warnings are fatal.
func Validate(cfg Config) []Issue {
	var issues []Issue
	issues = append(issues, validateStore(cfg.Store)...)
	issues = append(issues, validateRun(cfg)...)
	issues = append(issues, validateMetrics(cfg.Metrics)...)
	return issues
}

func validateStore(s StoreConfig) []Issue {
	var issues []Issue

	switch s.Driver {
	case DriverPostgres, DriverMySQL, DriverMSSQL, DriverSQLite:
	case "":
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "store.driver",
			Message:  "store.driver must not be empty",
		})
	default:
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "store.driver",
			Message:  fmt.Sprintf("unknown store driver %q; expected one of postgres, sqlite, mysql, mssql", s.Driver),
		})
	}

	// A DSN overrides every other connection field.
	if s.DSN != "" {
		return issues
	}

	if strings.TrimSpace(s.Database) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "store.db",
			Message:  "store.db must not be empty",
		})
	}
	if s.Driver == DriverSQLite {
		return issues
	}

	if strings.TrimSpace(s.Host) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "store.host",
			Message:  "store.host must not be empty",
		})
	}
	if s.Port < 0 || s.Port > 65535 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "store.port",
			Message:  fmt.Sprintf("store.port=%d is out of range", s.Port),
		})
	}
	if s.Driver == DriverPostgres {
		switch s.SSLMode {
		case "", "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
		default:
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "store.sslmode",
				Message:  fmt.Sprintf("unknown postgres sslmode %q; the driver may reject it", s.SSLMode),
			})
		}
	}
	return issues
}

func validateRun(cfg Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(cfg.DataLakeDir) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "data_lake_dir",
			Message:  "data_lake_dir must not be empty",
		})
	}
	if cfg.Ready.MaxAttempts < 1 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "ready.max_attempts",
			Message:  fmt.Sprintf("ready.max_attempts=%d; at least one attempt is required", cfg.Ready.MaxAttempts),
		})
	}
	if cfg.Ready.Delay < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "ready.delay",
			Message:  "ready.delay must not be negative",
		})
	}
	if cfg.BatchSize < 1 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "load.batch_size",
			Message:  fmt.Sprintf("load.batch_size=%d; batches need at least one row", cfg.BatchSize),
		})
	}
	if !knownLevel(cfg.LogLevel) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "log.level",
			Message:  fmt.Sprintf("unknown log level %q; expected one of %s", cfg.LogLevel, strings.Join(logging.Levels, ", ")),
		})
	}
	if cfg.EnforceReferences {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "enforce_references",
			Message:  "ratings with unknown user_id or movie_id will be dropped",
		})
	}
	return issues
}

func knownLevel(name string) bool {
	for _, l := range logging.Levels {
		if l == name {
			return true
		}
	}
	return false
}

func validateMetrics(m MetricsConfig) []Issue {
	var issues []Issue

	switch m.Backend {
	case "", MetricsNone:
	case MetricsPushgateway:
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "pushgateway backend requires a URL",
			})
		}
	case MetricsDatadog:
		if strings.TrimSpace(m.DogStatsDAddr) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.dogstatsd_addr",
				Message:  "datadog backend requires a DogStatsD address",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; metrics disabled", m.Backend),
		})
	}
	return issues
}
