package builtin

import "github.com/GabrielTheophilo/movieflix-cicd/pkg/records"

// Project keeps only Fields (plus the source line) on every record. Columns
// missing from a row are left absent, which downstream stages treat as null.
type Project struct {
	Fields []string
}

func (Project) Name() string { return "project" }

func (p Project) Apply(in []records.Record) ([]records.Record, error) {
	out := make([]records.Record, len(in))
	for i, r := range in {
		c := make(records.Record, len(p.Fields)+1)
		for _, f := range p.Fields {
			if v, ok := r[f]; ok {
				c[f] = v
			}
		}
		if line, ok := r[records.LineKey]; ok {
			c[records.LineKey] = line
		}
		out[i] = c
	}
	return out, nil
}
