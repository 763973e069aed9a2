// Package export turns aggregated sheets into tables and writes them as an xlsx workbook.
package export

import (
	"github.com/joseph-ayodele/pdftoxl/internal/sheet"
)

// Summary sheets are transposed into these three columns.
const (
	MetricColumn = "Metric"
	ValueColumn  = "Value"
)

const missingSource = "N/A"

// Table is one worksheet's worth of cells. Rows are aligned with Columns; a nil
// cell is left empty.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// BuildTables lays out every non-empty sheet of data in order. Summary sheets
// become one (Source File, Metric, Value) row per field; other sheets use the
// union of their row keys in first-seen order with Source File pinned first.
// A nil isSummary treats every sheet as flat. data is not modified.
func BuildTables(data *sheet.AggregatedData, isSummary func(name string) bool) []Table {
	if data == nil {
		return nil
	}
	var tables []Table
	for _, name := range data.Names() {
		rows := data.Rows(name)
		if len(rows) == 0 {
			continue
		}
		var t Table
		if isSummary != nil && isSummary(name) {
			t = summaryTable(name, rows)
		} else {
			t = flatTable(name, rows)
		}
		if len(t.Rows) == 0 {
			continue
		}
		tables = append(tables, t)
	}
	return tables
}

func summaryTable(name string, rows []*sheet.Row) Table {
	t := Table{Name: name, Columns: []string{sheet.SourceFileColumn, MetricColumn, ValueColumn}}
	for _, row := range rows {
		source := row.SourceFile()
		if source == "" {
			source = missingSource
		}
		for _, key := range row.Keys() {
			if key == sheet.SourceFileColumn {
				continue
			}
			v, _ := row.Get(key)
			t.Rows = append(t.Rows, []any{source, key, v})
		}
	}
	return t
}

func flatTable(name string, rows []*sheet.Row) Table {
	columns := []string{sheet.SourceFileColumn}
	seen := map[string]bool{sheet.SourceFileColumn: true}
	for _, row := range rows {
		for _, key := range row.Keys() {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}

	t := Table{Name: name, Columns: columns, Rows: make([][]any, 0, len(rows))}
	for _, row := range rows {
		cells := make([]any, len(columns))
		for i, col := range columns {
			cells[i], _ = row.Get(col)
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}
