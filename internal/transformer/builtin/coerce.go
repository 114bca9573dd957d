package builtin

import (
	"math"
	"strconv"

	"github.com/pkg/errors"

	"github.com/GabrielTheophilo/movieflix-cicd/pkg/records"
)

// ErrCoerce marks a value that cannot be converted to its declared type.
var ErrCoerce = errors.New("cannot coerce value")

// Coerce converts string values to their declared types. Supported types are
// "int" (to int64) and "string"/"text" (kept as-is). A value that does not
// parse is an error: numeric columns with text in them are not repairable.
type Coerce struct {
	Types map[string]string // field -> "int" | "string" | "text"
}

func (Coerce) Name() string { return "coerce" }

func (c Coerce) Apply(in []records.Record) ([]records.Record, error) {
	out := make([]records.Record, len(in))
	for i, r := range in {
		cr := r.Clone()
		for field, typ := range c.Types {
			v, ok := cr[field]
			if !ok || v == nil {
				continue
			}
			switch typ {
			case "int":
				n, err := toInt64(v)
				if err != nil {
					return nil, errors.Wrapf(ErrCoerce, "line %d: field %q: %v", r.Line(), field, err)
				}
				cr[field] = n
			case "string", "text":
				if _, isStr := v.(string); !isStr {
					return nil, errors.Wrapf(ErrCoerce, "line %d: field %q: %T is not text", r.Line(), field, v)
				}
			default:
				return nil, errors.Errorf("coerce: unsupported type %q for field %q", typ, field)
			}
		}
		out[i] = cr
	}
	return out, nil
}

// toInt64 accepts integers and integral decimals such as "2001.0", which is
// how spreadsheet exports often write whole numbers.
func toInt64(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err == nil {
			return n, nil
		}
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return 0, errors.Errorf("%q overflows int64", t)
		}
		f, err := strconv.ParseFloat(t, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, errors.Errorf("%q is not an integer", t)
		}
		if f != math.Trunc(f) || f >= 0x1p63 || f < -0x1p63 {
			return 0, errors.Errorf("%q is not a whole number", t)
		}
		return int64(f), nil
	default:
		return 0, errors.Errorf("%T is not an integer", v)
	}
}
