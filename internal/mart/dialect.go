package mart

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Dialect holds the SQL differences that matter for the views.
type Dialect struct {
	Kind string

	// avg formats the rounded two-decimal average of an integer column.
	avg string

	// define renders the statements that create or replace a view.
	define func(name, body string) []string

	// top selects SELECT TOP n instead of LIMIT n, and OFFSET 0 ROWS for an
	// ordered view without a limit.
	top bool
}

var dialects = map[string]Dialect{
	"postgres": {
		Kind:   "postgres",
		avg:    "ROUND(AVG(%s)::numeric, 2)",
		define: replaceView("CREATE OR REPLACE VIEW"),
	},
	"mysql": {
		Kind:   "mysql",
		avg:    "ROUND(AVG(%s), 2)",
		define: replaceView("CREATE OR REPLACE VIEW"),
	},
	"sqlite": {
		Kind: "sqlite",
		avg:  "ROUND(AVG(%s), 2)",
		define: func(name, body string) []string {
			return []string{
				"DROP VIEW IF EXISTS " + name,
				"CREATE VIEW " + name + " AS\n" + body,
			}
		},
	},
	"mssql": {
		Kind:   "mssql",
		avg:    "ROUND(AVG(CAST(%s AS DECIMAL(10, 2))), 2)",
		define: replaceView("CREATE OR ALTER VIEW"),
		top:    true,
	},
}

func replaceView(verb string) func(name, body string) []string {
	return func(name, body string) []string {
		return []string{verb + " " + name + " AS\n" + body}
	}
}

// For returns the dialect of a storage kind.
func For(kind string) (Dialect, error) {
	d, ok := dialects[kind]
	if !ok {
		return Dialect{}, errors.Errorf("mart: no view dialect for storage kind %q", kind)
	}
	return d, nil
}

// Avg renders the rounded average of expr.
func (d Dialect) Avg(expr string) string { return fmt.Sprintf(d.avg, expr) }

// query is a single-level SELECT.
type query struct {
	columns []string
	from    string
	groupBy []string
	orderBy string
	limit   int
	view    bool // rendered inside a view definition
}

// render builds the SELECT for d. An ordered view without a limit needs
// OFFSET 0 ROWS on SQL Server; elsewhere the ORDER BY is kept as written.
func (d Dialect) render(q query) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if d.top && q.limit > 0 {
		fmt.Fprintf(&b, "TOP %d ", q.limit)
	}
	b.WriteString(strings.Join(q.columns, ", "))
	b.WriteString("\nFROM ")
	b.WriteString(q.from)
	if len(q.groupBy) > 0 {
		b.WriteString("\nGROUP BY ")
		b.WriteString(strings.Join(q.groupBy, ", "))
	}
	if q.orderBy != "" {
		b.WriteString("\nORDER BY ")
		b.WriteString(q.orderBy)
		if d.top && q.limit == 0 && q.view {
			b.WriteString("\nOFFSET 0 ROWS")
		}
	}
	if !d.top && q.limit > 0 {
		fmt.Fprintf(&b, "\nLIMIT %d", q.limit)
	}
	return b.String()
}
