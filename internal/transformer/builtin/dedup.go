package builtin

import (
	"fmt"
	"strings"

	"github.com/GabrielTheophilo/movieflix-cicd/pkg/records"
)

// DeDup collapses duplicate records by a configured key and keeps the earliest
// occurrence, in its source position. Records missing a key field cannot be
// keyed and pass through after the winners.
// Run DeDup after Coerce so "1" and "1.0" have already become the same id.
type DeDup struct {
	// Keys are the field names that form the business key, e.g. ["id"].
	Keys []string
}

func (DeDup) Name() string { return "dedup" }

// Apply returns a new slice holding one record per key.
func (d DeDup) Apply(in []records.Record) ([]records.Record, error) {
	if len(in) == 0 || len(d.Keys) == 0 {
		out := make([]records.Record, len(in))
		copy(out, in)
		return out, nil
	}

	seen := make(map[string]struct{}, len(in))
	out := make([]records.Record, 0, len(in))
	var passthrough []records.Record

	for _, r := range in {
		key, ok := d.keyOf(r)
		if !ok {
			passthrough = append(passthrough, r)
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return append(out, passthrough...), nil
}

func (d DeDup) keyOf(r records.Record) (string, bool) {
	var b strings.Builder
	for i, k := range d.Keys {
		v, ok := r[k]
		if !ok || v == nil {
			return "", false
		}
		if i > 0 {
			b.WriteByte('\x1f')
		}
		switch t := v.(type) {
		case string:
			b.WriteString(t)
		default:
			b.WriteString(fmt.Sprint(t))
		}
	}
	return b.String(), true
}
