package builtin

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/GabrielTheophilo/movieflix-cicd/pkg/records"
)

// RejectedRow describes a record removed by a domain rule.
type RejectedRow struct {
	Line   int
	Raw    records.Record
	Reason string
	Stage  string
}

// Range drops records whose integer Field falls outside [Min, Max]. Nil
// bounds are open. Dropped rows are not errors; they are only counted and,
// when Reject is set, reported to it.
type Range struct {
	Field    string
	Min, Max *int64
	Reject   func(RejectedRow)
}

func (r Range) Name() string { return "range:" + r.Field }

func (r Range) Apply(in []records.Record) ([]records.Record, error) {
	out := make([]records.Record, 0, len(in))
	for _, rec := range in {
		n, ok := rec[r.Field].(int64)
		if !ok {
			return nil, errors.Errorf("line %d: field %q is %T, want int64 (run coerce first)", rec.Line(), r.Field, rec[r.Field])
		}
		switch {
		case r.Min != nil && n < *r.Min:
			r.reject(rec, fmt.Sprintf("%s=%d below %d", r.Field, n, *r.Min))
		case r.Max != nil && n > *r.Max:
			r.reject(rec, fmt.Sprintf("%s=%d above %d", r.Field, n, *r.Max))
		default:
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r Range) reject(rec records.Record, reason string) {
	if r.Reject != nil {
		r.Reject(RejectedRow{Line: rec.Line(), Raw: rec, Reason: reason, Stage: r.Name()})
	}
}

// Known drops records whose integer Field is not in IDs. It backs the
// opt-in referential check between ratings and the users/movies loaded in
// the same run.
type Known struct {
	Field  string
	IDs    map[int64]struct{}
	Reject func(RejectedRow)
}

func (k Known) Name() string { return "known:" + k.Field }

func (k Known) Apply(in []records.Record) ([]records.Record, error) {
	out := make([]records.Record, 0, len(in))
	for _, rec := range in {
		id, ok := rec[k.Field].(int64)
		if !ok {
			return nil, errors.Errorf("line %d: field %q is %T, want int64 (run coerce first)", rec.Line(), k.Field, rec[k.Field])
		}
		if _, found := k.IDs[id]; found {
			out = append(out, rec)
			continue
		}
		if k.Reject != nil {
			k.Reject(RejectedRow{Line: rec.Line(), Raw: rec, Reason: fmt.Sprintf("%s=%d unknown", k.Field, id), Stage: k.Name()})
		}
	}
	return out, nil
}
