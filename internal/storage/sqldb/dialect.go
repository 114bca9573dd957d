package sqldb

import (
	"context"
	"database/sql"
	"strings"

	"github.com/GabrielTheophilo/movieflix-cicd/internal/ddl"
)

// Dialect captures the SQL differences between database/sql backends.
type Dialect struct {
	// Kind is the storage kind the dialect serves.
	Kind string

	// Types maps contract types to column types.
	Types ddl.TypeMap

	// Guard is the CREATE TABLE existence guard.
	Guard ddl.Guard

	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string

	// Quote quotes an identifier.
	Quote func(ident string) string

	// MaxParams bounds the bind parameters of one INSERT statement.
	MaxParams int

	// Reset returns the statements that empty tables (dependents first) and
	// reset identity counters. They run inside one transaction.
	Reset func(ctx context.Context, tx *sql.Tx, tables []string) ([]string, error)

	// Bulk, when set, replaces multi-row INSERT for loading a batch.
	Bulk func(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) (int64, error)
}

// QuestionMark is the "?" placeholder used by sqlite and mysql.
func QuestionMark(int) string { return "?" }

// DoubleQuote quotes an identifier with ANSI double quotes.
func DoubleQuote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// DeleteAll returns one DELETE per table, in the order given.
func DeleteAll(quote func(string) string, tables []string) []string {
	out := make([]string, len(tables))
	for i, t := range tables {
		out[i] = "DELETE FROM " + quote(t)
	}
	return out
}

// insertSQL renders a multi-row INSERT for n rows.
func (d Dialect) insertSQL(table string, columns []string, n int) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(d.Quote(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.Quote(c))
	}
	b.WriteString(") VALUES ")
	p := 1
	for r := 0; r < n; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := range columns {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteString(d.Placeholder(p))
			p++
		}
		b.WriteByte(')')
	}
	return b.String()
}

// rowsPerStatement bounds a multi-row INSERT by MaxParams.
func (d Dialect) rowsPerStatement(columns int) int {
	if d.MaxParams <= 0 || columns == 0 {
		return 1
	}
	n := d.MaxParams / columns
	if n < 1 {
		return 1
	}
	return n
}
