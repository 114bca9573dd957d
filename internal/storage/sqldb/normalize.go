package sqldb

import (
	"strconv"
	"strings"
	"time"
)

// normalize maps driver values onto int64, float64, string or nil. Drivers
// that return numeric columns as text (mysql DECIMAL, mssql DECIMAL) are
// parsed back to numbers based on the column's database type.
func normalize(v any, dbType string) any {
	switch t := v.(type) {
	case nil:
		return nil
	case []byte:
		return fromText(string(t), dbType)
	case string:
		return fromText(t, dbType)
	case int64, float64:
		return t
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case int16:
		return int64(t)
	case uint8:
		return int64(t)
	case float32:
		return float64(t)
	case bool:
		if t {
			return int64(1)
		}
		return int64(0)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return t
	}
}

func numericType(dbType string) bool {
	switch strings.ToUpper(dbType) {
	case "DECIMAL", "NUMERIC", "MONEY", "FLOAT", "DOUBLE", "REAL", "INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT":
		return true
	}
	return false
}

func fromText(s, dbType string) any {
	if !numericType(dbType) {
		return s
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
