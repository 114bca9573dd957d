// Package records defines the generic row representation that flows between
// the parser, the cleaning transformers and the storage backends.
package records

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/xxh3"
)

// Record is a single row keyed by canonical column name. After cleaning,
// integer columns hold int64 and text columns hold string; nil means null.
type Record map[string]any

// Clone returns a shallow copy of r so transformers can derive new rows
// without mutating their input.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Line returns the 1-based source line recorded by the parser, or 0.
func (r Record) Line() int {
	if n, ok := r[LineKey].(int); ok {
		return n
	}
	return 0
}

// LineKey is the reserved key the CSV parser uses to remember where a row
// came from. It is never projected into storage columns.
const LineKey = "__line"

// Values returns the values of r in columns order, ready for COPY/INSERT.
func (r Record) Values(columns []string) []any {
	out := make([]any, len(columns))
	for i, c := range columns {
		out[i] = r[c]
	}
	return out
}

// Rows converts recs into positional rows aligned to columns.
func Rows(columns []string, recs []Record) [][]any {
	rows := make([][]any, len(recs))
	for i, r := range recs {
		rows[i] = r.Values(columns)
	}
	return rows
}

// Fingerprint hashes the values of recs (in order, restricted to columns)
// into a single xxh3 digest. Two runs over identical cleaned data produce the
// same fingerprint, which makes idempotent reloads easy to compare in logs.
func Fingerprint(columns []string, recs []Record) uint64 {
	h := xxh3.New()
	var buf [8]byte
	for _, r := range recs {
		for _, c := range columns {
			switch v := r[c].(type) {
			case nil:
				_, _ = h.Write([]byte{0})
			case int64:
				binary.LittleEndian.PutUint64(buf[:], uint64(v))
				_, _ = h.Write([]byte{1})
				_, _ = h.Write(buf[:])
			case string:
				_, _ = h.Write([]byte{2})
				_, _ = h.WriteString(v)
			default:
				_, _ = h.Write([]byte{3})
				_, _ = h.WriteString(fmt.Sprint(v))
			}
			_, _ = h.Write([]byte{0x1f})
		}
		_, _ = h.Write([]byte{0x1e})
	}
	return h.Sum64()
}

// FormatFingerprint renders a fingerprint as fixed-width hex for log lines.
func FormatFingerprint(fp uint64) string {
	return fmt.Sprintf("%016x", fp)
}
