// This file wires configuration, logging, metrics and the storage backend
// into one ETL run. It keeps the CLI layer thin: it depends only on
// storage-agnostic interfaces and never imports database drivers directly.
package main

import (
	"context"
	"io"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/GabrielTheophilo/movieflix-cicd/internal/config"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/etl"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/logging"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/metrics"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/metrics/datadog"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/metrics/prompush"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/storage"
)

// errInvalidConfig is returned when validation reports at least one error.
var errInvalidConfig = errors.New("invalid configuration")

// Function variables used to introduce test seams.
// In production these point to real implementations; tests can override them.
var (
	newRepositoryFn = storage.New

	newPushBackendFn = func(job, url string) (metrics.Backend, error) {
		return prompush.NewBackend(job, url)
	}

	newDatadogBackendFn = func(cfg datadog.Config) (metrics.Backend, error) {
		return datadog.NewBackend(cfg)
	}
)

// run loads the configuration from v and executes the pipeline.
func run(ctx context.Context, v *viper.Viper, out io.Writer, validateOnly bool) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	logger, err := logging.New(out, cfg.LogLevel)
	if err != nil {
		logger = logging.Must(out, "info")
	}

	issues := config.Validate(cfg)
	for _, iss := range issues {
		l := level.Warn(logger)
		if iss.Severity == config.SeverityError {
			l = level.Error(logger)
		}
		l.Log("msg", "config issue", "severity", iss.Severity, "path", iss.Path, "issue", iss.Message)
	}
	if config.HasErrors(issues) {
		return errors.Wrapf(errInvalidConfig, "%d issue(s)", len(issues))
	}
	if validateOnly {
		level.Info(logger).Log("msg", "configuration is valid", "store", cfg.Store.Driver, "target", cfg.Store.Target())
		return nil
	}

	flush := setupMetrics(cfg.Metrics, logger)
	defer flush()

	scfg := cfg.Storage(logger)
	scfg.OnBatch = func(table string, _ int64) {
		metrics.RecordBatches(cfg.Metrics.Job, table, 1)
	}

	level.Info(logger).Log("msg", "opening warehouse", "store", cfg.Store.Driver, "target", cfg.Store.Target())
	repo, err := newRepositoryFn(ctx, scfg)
	if err != nil {
		return errors.Wrap(err, "open warehouse")
	}
	defer repo.Close()

	_, err = etl.New(repo, cfg, etl.WithLogger(logger), etl.WithOutput(out)).Run(ctx)
	if err != nil {
		return errors.Wrap(err, "etl run")
	}
	level.Info(logger).Log("msg", "etl completed successfully")
	return nil
}

// setupMetrics installs the configured backend and returns the function
// that flushes it at exit. Backend failures never abort the run.
func setupMetrics(cfg config.MetricsConfig, logger log.Logger) func() {
	var (
		b   metrics.Backend
		err error
	)
	switch cfg.Backend {
	case config.MetricsPushgateway:
		b, err = newPushBackendFn(cfg.Job, cfg.PushgatewayURL)
	case config.MetricsDatadog:
		b, err = newDatadogBackendFn(datadog.Config{
			Addr:       cfg.DogStatsDAddr,
			GlobalTags: []string{"job:" + cfg.Job},
		})
	case "", config.MetricsNone:
		level.Debug(logger).Log("msg", "metrics disabled")
		return func() {}
	default:
		level.Warn(logger).Log("msg", "unknown metrics backend; metrics disabled", "backend", cfg.Backend)
		return func() {}
	}
	if err != nil {
		level.Warn(logger).Log("msg", "metrics backend init failed; metrics disabled", "backend", cfg.Backend, "err", err)
		return func() {}
	}

	metrics.SetBackend(b)
	level.Info(logger).Log("msg", "metrics enabled", "backend", cfg.Backend, "job", cfg.Job)
	return func() {
		if err := metrics.Flush(); err != nil {
			level.Warn(logger).Log("msg", "metrics flush failed", "backend", cfg.Backend, "err", err)
		}
		metrics.Reset()
	}
}
