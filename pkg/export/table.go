// Package export renders tabular reports for download.
package export

import "errors"

// ErrNoColumns is returned when a table has nothing to render.
var ErrNoColumns = errors.New("export: table has no columns")

// Column is a table column. Weight sets its share of the page width in PDF
// output; zero counts as one.
type Column struct {
	Header string
	Weight float64
}

// Table is the renderer-neutral content of a report. Each row holds one
// cell per column; missing cells render empty.
type Table struct {
	Title    string
	Subtitle string
	Columns  []Column
	Rows     [][]string
}

func (t Table) headers() []string {
	headers := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		headers[i] = col.Header
	}
	return headers
}

func (t Table) cells(row []string) []string {
	record := make([]string, len(t.Columns))
	copy(record, row)
	return record
}
