// Package etl runs the MovieFlix pipeline end to end: wait for the warehouse,
// reset it, clean and load movies, users and ratings, rebuild the data mart
// views and optionally print the analytics reports.
package etl

import (
	"context"
	"io"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/GabrielTheophilo/movieflix-cicd/internal/cleaner"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/config"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/datasource/file"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/mart"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/metrics"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/readiness"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/report"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/schema"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/storage"
	"github.com/GabrielTheophilo/movieflix-cicd/pkg/records"
)

// ErrMissingSource is returned when a data lake file is absent. The check
// runs before the warehouse is touched.
var ErrMissingSource = errors.New("source file missing from data lake")

// EntitySummary holds the counts of one entity.
type EntitySummary struct {
	Entity      string
	Table       string
	Extracted   int
	Cleaned     int
	Rejected    int
	Duplicates  int
	Loaded      int64
	Fingerprint uint64
}

// Summary describes a finished run.
type Summary struct {
	Entities []EntitySummary
	Views    []string
	Reports  int
	Elapsed  time.Duration
}

// Entity returns the summary for name, if present.
func (s Summary) Entity(name string) (EntitySummary, bool) {
	for _, e := range s.Entities {
		if e.Entity == name {
			return e, true
		}
	}
	return EntitySummary{}, false
}

// Log writes one line per entity and a closing line.
func (s Summary) Log(logger log.Logger) {
	for _, e := range s.Entities {
		level.Info(logger).Log(
			"msg", "entity summary",
			"entity", e.Entity,
			"extracted", e.Extracted,
			"cleaned", e.Cleaned,
			"rejected", e.Rejected,
			"duplicates", e.Duplicates,
			"loaded", e.Loaded,
			"fingerprint", records.FormatFingerprint(e.Fingerprint),
		)
	}
	level.Info(logger).Log("msg", "etl finished", "views", len(s.Views), "reports", s.Reports, "elapsed", s.Elapsed.Truncate(time.Millisecond))
}

// Pipeline is one configured run against a warehouse.
type Pipeline struct {
	repo   storage.Repository
	cfg    config.Config
	lake   *file.Lake
	logger log.Logger
	out    io.Writer
	now    func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the progress logger.
func WithLogger(l log.Logger) Option { return func(p *Pipeline) { p.logger = l } }

// WithOutput sets where analytics tables are printed.
func WithOutput(w io.Writer) Option { return func(p *Pipeline) { p.out = w } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(p *Pipeline) { p.now = now } }

// New prepares a run of cfg against repo.
func New(repo storage.Repository, cfg config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		repo:   repo,
		cfg:    cfg,
		lake:   file.NewLake(cfg.DataLakeDir),
		logger: log.NewNopLogger(),
		out:    io.Discard,
		now:    time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run executes every stage in order and stops at the first fatal error.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	start := p.now()
	var sum Summary

	level.Info(p.logger).Log("msg", "starting etl", "store", p.repo.Kind(), "data_lake", p.lake.Dir())

	if err := p.checkSources(); err != nil {
		return sum, err
	}

	err := p.step("readiness", func() error {
		return readiness.Wait(ctx, p.repo, readiness.Config{
			MaxAttempts: p.cfg.Ready.MaxAttempts,
			Delay:       p.cfg.Ready.Delay,
			Target:      p.cfg.Store.Target(),
		}, p.logger)
	})
	if err != nil {
		return sum, err
	}

	if p.cfg.EnsureSchema {
		err := p.step("schema", func() error {
			return errors.Wrap(p.repo.EnsureSchema(ctx, schema.LoadOrder()), "ensure schema")
		})
		if err != nil {
			return sum, err
		}
	}

	tables := schema.Tables()
	err = p.step("reset", func() error {
		level.Info(p.logger).Log("msg", "resetting tables", "tables", len(tables))
		return errors.Wrap(p.repo.Reset(ctx, tables), "reset tables")
	})
	if err != nil {
		return sum, err
	}

	var refs cleaner.References
	if p.cfg.EnforceReferences {
		refs = cleaner.References{}
	}
	for _, e := range schema.LoadOrder() {
		es, ids, err := p.loadEntity(ctx, e, refs)
		if err != nil {
			return sum, err
		}
		sum.Entities = append(sum.Entities, es)
		if refs != nil {
			refs[e.Name()] = ids
		}
	}

	err = p.step("views", func() error {
		names, err := mart.Build(ctx, p.repo)
		sum.Views = names
		return err
	})
	if err != nil {
		return sum, err
	}
	level.Info(p.logger).Log("msg", "data mart views ready", "views", len(sum.Views))

	if p.cfg.RunAnalytics {
		err = p.step("analytics", func() error {
			tables, err := mart.RunReports(ctx, p.repo)
			if err != nil {
				return err
			}
			report.PrintAll(p.out, tables)
			sum.Reports = len(tables)
			return nil
		})
		if err != nil {
			return sum, err
		}
	}

	sum.Elapsed = p.now().Sub(start)
	sum.Log(p.logger)
	return sum, nil
}

func (p *Pipeline) checkSources() error {
	var names []string
	for _, e := range schema.LoadOrder() {
		names = append(names, e.File)
	}
	if missing := p.lake.Missing(names...); len(missing) > 0 {
		return errors.Wrapf(ErrMissingSource, "%s: %v", p.lake.Dir(), missing)
	}
	return nil
}

// loadEntity cleans one entity and appends it to its table. It returns the
// cleaned ids so later entities can be checked against them.
func (p *Pipeline) loadEntity(ctx context.Context, e schema.Entity, refs cleaner.References) (EntitySummary, cleaner.IDSet, error) {
	name := e.Name()
	es := EntitySummary{Entity: name, Table: e.Table}
	src := p.lake.Source(e.File)

	level.Info(p.logger).Log("msg", "processing entity", "entity", name, "source", src.Path())

	var res cleaner.Result
	err := p.step("clean:"+name, func() error {
		var err error
		res, err = cleaner.New(e, cleaner.WithLogger(p.logger)).Clean(ctx, src, refs)
		return err
	})
	if err != nil {
		return es, nil, err
	}

	es.Extracted = res.Extracted
	es.Cleaned = res.Cleaned
	es.Rejected = res.Rejected
	es.Duplicates = res.Duplicates
	es.Fingerprint = res.Fingerprint

	level.Info(p.logger).Log("msg", "records extracted", "entity", name, "count", res.Extracted)
	level.Info(p.logger).Log("msg", "records after cleaning", "entity", name, "count", res.Cleaned, "rejected", res.Rejected, "duplicates", res.Duplicates)
	for _, r := range res.RejectedRows {
		level.Debug(p.logger).Log("msg", "row rejected", "entity", name, "line", r.Line, "stage", r.Stage, "reason", r.Reason)
	}

	columns := e.Contract.Columns()
	err = p.step("load:"+name, func() error {
		n, err := p.repo.Load(ctx, e.Table, columns, records.Rows(columns, res.Records))
		es.Loaded = n
		return errors.Wrapf(err, "load %s", e.Table)
	})
	if err != nil {
		return es, nil, err
	}
	level.Info(p.logger).Log("msg", "records loaded", "entity", name, "table", e.Table, "count", es.Loaded)

	job := p.cfg.Metrics.Job
	metrics.RecordRecords(job, name, metrics.KindExtracted, int64(es.Extracted))
	metrics.RecordRecords(job, name, metrics.KindCleaned, int64(es.Cleaned))
	metrics.RecordRecords(job, name, metrics.KindRejected, int64(es.Rejected))
	metrics.RecordRecords(job, name, metrics.KindDuplicates, int64(es.Duplicates))
	metrics.RecordRecords(job, name, metrics.KindLoaded, es.Loaded)

	var ids cleaner.IDSet
	if refs != nil {
		ids = cleaner.IDs(res.Records, e.Contract.Key)
	}
	return es, ids, nil
}

// step times fn and records it under name.
func (p *Pipeline) step(name string, fn func() error) error {
	start := p.now()
	err := fn()
	metrics.RecordStep(p.cfg.Metrics.Job, name, err, p.now().Sub(start))
	if err != nil {
		level.Error(p.logger).Log("msg", "step failed", "step", name, "err", err)
	}
	return err
}
