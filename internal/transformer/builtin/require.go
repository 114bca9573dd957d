// Package builtin contains the reusable cleaning stages composed by the
// entity cleaners.
package builtin

import (
	"github.com/pkg/errors"

	"github.com/GabrielTheophilo/movieflix-cicd/pkg/records"
)

// ErrMissingValue marks a required field that is null after defaults.
var ErrMissingValue = errors.New("missing required value")

// Require fails when any record lacks a value for one of Fields. A missing
// identifier or title cannot be repaired, so the whole file is rejected.
type Require struct {
	Fields []string
}

func (Require) Name() string { return "require" }

func (r Require) Apply(in []records.Record) ([]records.Record, error) {
	for _, rec := range in {
		for _, f := range r.Fields {
			if v, ok := rec[f]; !ok || v == nil || v == "" {
				return nil, errors.Wrapf(ErrMissingValue, "line %d: field %q", rec.Line(), f)
			}
		}
	}
	out := make([]records.Record, len(in))
	copy(out, in)
	return out, nil
}
