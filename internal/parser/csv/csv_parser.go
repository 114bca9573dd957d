// Package csv parses delimited data lake files into records keyed by
// canonical column names. Parsing is strict: a malformed row aborts the whole
// file, because a partially read dataset must never reach the warehouse.
package csv

import (
	"encoding/csv"
	"io"

	"github.com/pkg/errors"

	"github.com/GabrielTheophilo/movieflix-cicd/pkg/records"
)

// ErrNoHeader is returned when the input holds no header row.
var ErrNoHeader = errors.New("csv: missing header row")

// Options configures the CSV parser. The zero value keeps header cells as
// written (minus a leading BOM).
type Options struct {
	// NormalizeHeader maps each raw header cell to its canonical key.
	NormalizeHeader func(string) string
}

// Parser parses CSV input according to Options. It is safe to reuse across
// inputs, but Parser itself is not concurrency-safe.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// Parse reads the header row and every data row from r.
//
// Cell values are kept verbatim; empty cells become nil. Rows narrower than
// the header leave the trailing columns absent (null), rows wider than the
// header are an error. Every record carries its source line under
// records.LineKey.
func (p *Parser) Parse(r io.Reader) ([]string, []records.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	raw, err := cr.Read()
	if err == io.EOF {
		return nil, nil, ErrNoHeader
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "read csv header")
	}
	headers, err := p.normalizeHeaders(raw)
	if err != nil {
		return nil, nil, err
	}

	var out []records.Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrap(err, "read csv row")
		}
		line, _ := cr.FieldPos(0)
		if len(row) > len(headers) {
			return nil, nil, errors.Errorf("csv line %d: expected at most %d fields, got %d", line, len(headers), len(row))
		}

		rec := make(records.Record, len(row)+1)
		for i, val := range row {
			rec[headers[i]] = emptyToNil(val)
		}
		rec[records.LineKey] = line
		out = append(out, rec)
	}

	return headers, out, nil
}

// normalizeHeaders strips the BOM, applies NormalizeHeader and rejects
// headers that collide after normalization.
func (p *Parser) normalizeHeaders(h []string) ([]string, error) {
	h = StripHeaderBOM(append([]string(nil), h...))
	res := make([]string, len(h))
	seen := make(map[string]int, len(h))
	for i, col := range h {
		key := col
		if p.opt.NormalizeHeader != nil {
			key = p.opt.NormalizeHeader(col)
		}
		if prev, dup := seen[key]; dup && key != "" {
			return nil, errors.Errorf("csv header: columns %d and %d both map to %q", prev+1, i+1, key)
		}
		seen[key] = i
		res[i] = key
	}
	return res, nil
}

// emptyToNil converts an empty string to nil; all other values are returned as-is.
func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
