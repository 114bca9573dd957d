// Package report prints analytic query results as text tables.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/GabrielTheophilo/movieflix-cicd/internal/mart"
	"github.com/GabrielTheophilo/movieflix-cicd/internal/storage"
)

// Print writes one titled table to w.
func Print(w io.Writer, title string, res storage.Result) {
	fmt.Fprintf(w, "\n[QUERY] %s:\n", title)
	if len(res.Rows) == 0 {
		fmt.Fprintln(w, "(no rows)")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(res.Columns)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = Format(v)
		}
		table.Append(cells)
	}
	table.Render()
}

// PrintAll writes every report table to w.
func PrintAll(w io.Writer, tables []mart.Table) {
	fmt.Fprintln(w, "\n=== ANALYTICS ===")
	for _, t := range tables {
		Print(w, t.Title, t.Result)
	}
}

// Format renders a cell value. Averages print with two decimals.
func Format(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', 2, 64)
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
