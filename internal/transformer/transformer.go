// Package transformer chains record-slice transformations. Every transformer
// is a pure function: it returns a new slice and never mutates the records it
// was given, so each cleaning stage can be tested on its own.
package transformer

import (
	"github.com/pkg/errors"

	"github.com/GabrielTheophilo/movieflix-cicd/pkg/records"
)

// Transformer is a single cleaning stage.
type Transformer interface {
	Name() string
	Apply(in []records.Record) ([]records.Record, error)
}

// Step reports how many records entered and left one stage.
type Step struct {
	Name string
	In   int
	Out  int
}

// Dropped is the number of records the stage removed.
func (s Step) Dropped() int { return s.In - s.Out }

// Chain is an ordered list of transformers.
type Chain []Transformer

// Apply runs every stage in order. The first stage error stops the chain and
// is returned annotated with the stage name.
func (c Chain) Apply(in []records.Record) ([]records.Record, []Step, error) {
	out := in
	steps := make([]Step, 0, len(c))
	for _, t := range c {
		next, err := t.Apply(out)
		if err != nil {
			return nil, steps, errors.Wrap(err, t.Name())
		}
		steps = append(steps, Step{Name: t.Name(), In: len(out), Out: len(next)})
		out = next
	}
	return out, steps, nil
}
