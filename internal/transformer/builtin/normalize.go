package builtin

import (
	"strings"

	"github.com/GabrielTheophilo/movieflix-cicd/pkg/records"
)

// Normalize trims surrounding whitespace from every string value. Values
// that are empty after trimming become nil so later stages see them as null.
type Normalize struct{}

func (Normalize) Name() string { return "normalize" }

func (Normalize) Apply(in []records.Record) ([]records.Record, error) {
	out := make([]records.Record, len(in))
	for i, r := range in {
		c := r.Clone()
		for k, v := range c {
			s, ok := v.(string)
			if !ok {
				continue
			}
			if s = strings.TrimSpace(s); s == "" {
				c[k] = nil
			} else {
				c[k] = s
			}
		}
		out[i] = c
	}
	return out, nil
}
