// Package cleaner turns a raw data lake file into the cleaned record set of
// one warehouse entity. The stages come from the entity contract:
//
//	project -> normalize -> defaults -> require -> coerce -> range -> known -> dedup
//
// Each stage is a pure function over record slices. Coercion failures and
// missing required values abort the file; out-of-range scores and unknown
// references are dropped and counted.
package cleaner

import (
	"context"
	"sort"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"github.com/GabrielTheophilo/movieflix-cicd/internal/colname"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/datasource"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/parser"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/parser/csv"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/schema"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/transformer"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/transformer/builtin"
	"github.com/GabrielTheophilo/movieflix-cicd/pkg/records"
)

// ErrMissingColumn is returned when a required contract column is absent from
// the file header.
var ErrMissingColumn = errors.New("required column missing from header")

// IDSet is the set of ids of one entity.
type IDSet map[int64]struct{}

// References holds the ids loaded in the current run, keyed by entity name.
// A nil References disables referential filtering.
type References map[string]IDSet

// IDs collects the int64 values of key across recs.
func IDs(recs []records.Record, key string) IDSet {
	out := make(IDSet, len(recs))
	for _, r := range recs {
		if id, ok := r[key].(int64); ok {
			out[id] = struct{}{}
		}
	}
	return out
}

// Result is the cleaned output of one entity plus its bookkeeping.
type Result struct {
	Entity  string
	Headers []string
	Records []records.Record

	Extracted  int
	Cleaned    int
	Rejected   int
	Duplicates int

	Fingerprint  uint64
	Steps        []transformer.Step
	RejectedRows []builtin.RejectedRow
}

// Cleaner cleans one entity.
type Cleaner struct {
	entity schema.Entity
	parser parser.Parser
	logger log.Logger
}

// Option configures a Cleaner.
type Option func(*Cleaner)

// WithParser replaces the default CSV parser.
func WithParser(p parser.Parser) Option { return func(c *Cleaner) { c.parser = p } }

// WithLogger sets the logger used for per-stage debug lines.
func WithLogger(l log.Logger) Option { return func(c *Cleaner) { c.logger = l } }

// New returns a Cleaner for e. Headers are normalized with colname.Normalize.
func New(e schema.Entity, opts ...Option) *Cleaner {
	c := &Cleaner{
		entity: e,
		parser: csv.NewParser(csv.Options{NormalizeHeader: colname.Normalize}),
		logger: log.NewNopLogger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Entity returns the entity this cleaner serves.
func (c *Cleaner) Entity() schema.Entity { return c.entity }

// Clean opens src, parses it and runs the cleaning chain.
func (c *Cleaner) Clean(ctx context.Context, src datasource.Source, refs References) (Result, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return Result{}, errors.Wrapf(err, "%s: open source", c.entity.Name())
	}
	defer rc.Close()

	headers, recs, err := c.parser.Parse(rc)
	if err != nil {
		return Result{}, errors.Wrapf(err, "%s: parse %s", c.entity.Name(), c.entity.File)
	}
	return c.CleanRecords(headers, recs, refs)
}

// CleanRecords runs the cleaning chain over already parsed records.
func (c *Cleaner) CleanRecords(headers []string, recs []records.Record, refs References) (Result, error) {
	name := c.entity.Name()
	if err := c.checkHeaders(headers); err != nil {
		return Result{}, err
	}

	res := Result{Entity: name, Headers: headers, Extracted: len(recs)}
	chain := c.Chain(func(r builtin.RejectedRow) { res.RejectedRows = append(res.RejectedRows, r) }, refs)

	out, steps, err := chain.Apply(recs)
	if err != nil {
		return Result{}, errors.Wrap(err, name)
	}
	for _, s := range steps {
		level.Debug(c.logger).Log("msg", "stage done", "entity", name, "stage", s.Name, "in", s.In, "out", s.Out)
		if s.Name == "dedup" {
			res.Duplicates += s.Dropped()
		} else {
			res.Rejected += s.Dropped()
		}
	}

	res.Records = out
	res.Cleaned = len(out)
	res.Steps = steps
	res.Fingerprint = records.Fingerprint(c.entity.Contract.Columns(), out)
	return res, nil
}

// Chain builds the cleaning stages for the entity. reject receives every
// dropped row; refs enables the referential filter for each declared
// reference whose entity is present.
func (c *Cleaner) Chain(reject func(builtin.RejectedRow), refs References) transformer.Chain {
	ct := c.entity.Contract

	defaults := map[string]any{}
	types := map[string]string{}
	var required []string
	for _, f := range ct.Fields {
		if f.Default != nil {
			defaults[f.Name] = f.Default
		}
		if f.Required {
			required = append(required, f.Name)
		}
		types[f.Name] = string(f.Type)
	}

	chain := transformer.Chain{
		builtin.Project{Fields: ct.Columns()},
		builtin.Normalize{},
		builtin.Defaults{Values: defaults},
		builtin.Require{Fields: required},
		builtin.Coerce{Types: types},
	}
	for _, f := range ct.Fields {
		if f.Ranged() {
			chain = append(chain, builtin.Range{Field: f.Name, Min: f.Min, Max: f.Max, Reject: reject})
		}
	}
	if refs != nil {
		for _, ref := range ct.References {
			if ids, ok := refs[ref.Entity]; ok {
				chain = append(chain, builtin.Known{Field: ref.Field, IDs: ids, Reject: reject})
			}
		}
	}
	return append(chain, builtin.DeDup{Keys: []string{ct.Key}})
}

func (c *Cleaner) checkHeaders(headers []string) error {
	have := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		have[h] = struct{}{}
	}
	var missing []string
	for _, f := range c.entity.Contract.Fields {
		if _, ok := have[f.Name]; !ok && f.Required {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return errors.Wrapf(ErrMissingColumn, "%s: %s missing %v", c.entity.Name(), c.entity.File, missing)
	}
	return nil
}
