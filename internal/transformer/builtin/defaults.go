package builtin

import "github.com/GabrielTheophilo/movieflix-cicd/pkg/records"

// Defaults substitutes a configured value wherever a field is null.
type Defaults struct {
	Values map[string]any
}

func (Defaults) Name() string { return "defaults" }

func (d Defaults) Apply(in []records.Record) ([]records.Record, error) {
	if len(d.Values) == 0 {
		return in, nil
	}
	out := make([]records.Record, len(in))
	for i, r := range in {
		c := r.Clone()
		for field, def := range d.Values {
			if c[field] == nil {
				c[field] = def
			}
		}
		out[i] = c
	}
	return out, nil
}
