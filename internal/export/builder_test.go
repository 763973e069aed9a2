package export

import (
	"reflect"
	"slices"
	"testing"

	"github.com/joseph-ayodele/pdftoxl/internal/sheet"
	"github.com/joseph-ayodele/pdftoxl/internal/templates"
)

func row(kv ...any) *sheet.Row {
	r := sheet.NewRow()
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(kv[i].(string), kv[i+1])
	}
	return r
}

func summaryOf(names ...string) func(string) bool {
	return func(name string) bool { return slices.Contains(names, name) }
}

func sampleData() *sheet.AggregatedData {
	agg := sheet.NewAggregatedData()
	agg.Append("Fund Data",
		row("Fund Name", "Alpha", "Vintage Year", int64(2019), "Source File", "a.pdf"),
		row("Source File", "b.pdf", "Fund Name", "Beta", "Fund Size", 150.5, "Currency", "USD"),
	)
	agg.Append("LP cashflows",
		row("Date", "2023-01-01", "Amount", int64(-10), "Source File", "a.pdf"),
		row("Source File", "b.pdf", "Type", "Distribution", "Date", "2023-02-01"),
	)
	agg.Append("Company Valuation")
	agg.AddError("c.pdf", "No text could be extracted.")
	return agg
}

func TestBuildTablesSummaryTriples(t *testing.T) {
	tables := BuildTables(sampleData(), summaryOf("Fund Data"))
	fund := tables[0]
	if fund.Name != "Fund Data" {
		t.Fatalf("first table = %q", fund.Name)
	}
	if !reflect.DeepEqual(fund.Columns, []string{"Source File", "Metric", "Value"}) {
		t.Errorf("columns = %v", fund.Columns)
	}
	// 3 fields - 1 and 4 fields - 1
	if len(fund.Rows) != 2+3 {
		t.Fatalf("triples = %d, want 5", len(fund.Rows))
	}
	want := [][]any{
		{"a.pdf", "Fund Name", "Alpha"},
		{"a.pdf", "Vintage Year", int64(2019)},
		{"b.pdf", "Fund Name", "Beta"},
		{"b.pdf", "Fund Size", 150.5},
		{"b.pdf", "Currency", "USD"},
	}
	if !reflect.DeepEqual(fund.Rows, want) {
		t.Errorf("rows = %v", fund.Rows)
	}
}

func TestBuildTablesFlatColumns(t *testing.T) {
	tables := BuildTables(sampleData(), summaryOf("Fund Data"))
	lp := tables[1]
	if !reflect.DeepEqual(lp.Columns, []string{"Source File", "Date", "Amount", "Type"}) {
		t.Errorf("columns = %v", lp.Columns)
	}
	want := [][]any{
		{"a.pdf", "2023-01-01", int64(-10), nil},
		{"b.pdf", "2023-02-01", nil, "Distribution"},
	}
	if !reflect.DeepEqual(lp.Rows, want) {
		t.Errorf("rows = %v", lp.Rows)
	}
}

func TestBuildTablesSkipsEmptySheets(t *testing.T) {
	tables := BuildTables(sampleData(), nil)
	var names []string
	for _, tb := range tables {
		names = append(names, tb.Name)
	}
	if !reflect.DeepEqual(names, []string{"Fund Data", "LP cashflows", "Errors"}) {
		t.Errorf("tables = %v", names)
	}

	agg := sheet.NewAggregatedData()
	agg.Append("Portfolio Summary", row("Source File", "only.pdf"))
	if got := BuildTables(agg, summaryOf("Portfolio Summary")); len(got) != 0 {
		t.Errorf("summary sheet without fields produced %d tables", len(got))
	}
}

func TestBuildTablesIsPure(t *testing.T) {
	data := sampleData()
	before, _ := data.MarshalJSON()
	first := BuildTables(data, summaryOf("Fund Data"))
	second := BuildTables(data, summaryOf("Fund Data"))
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated builds differ")
	}
	after, _ := data.MarshalJSON()
	if string(before) != string(after) {
		t.Errorf("input mutated:\n%s\n%s", before, after)
	}
}

func TestBuildTablesMissingSourceInSummary(t *testing.T) {
	agg := sheet.NewAggregatedData()
	agg.Append("Portfolio Summary", row("Fund", "X"))
	tables := BuildTables(agg, summaryOf("Portfolio Summary"))
	if got := tables[0].Rows[0][0]; got != "N/A" {
		t.Errorf("source = %v, want N/A", got)
	}
}

func TestBuildTablesFollowsTemplateSummaries(t *testing.T) {
	tpl, err := templates.Default().Lookup("2")
	if err != nil {
		t.Fatal(err)
	}
	agg := sheet.NewAggregatedData()
	agg.Append("Fund Data", row("Source File", "a.pdf", "Fund Name", "Alpha"))
	agg.Append("Portfolio Summary", row("Source File", "a.pdf", "Companies", int64(12)))

	tables := BuildTables(agg, tpl.IsSummary)
	if len(tables) != 2 {
		t.Fatalf("tables = %d, want 2", len(tables))
	}
	if got := tables[0].Columns; !reflect.DeepEqual(got, []string{"Source File", "Fund Name"}) {
		t.Errorf("Fund Data columns = %v, want flat layout", got)
	}
	if got := tables[1].Rows; !reflect.DeepEqual(got, [][]any{{"a.pdf", "Companies", int64(12)}}) {
		t.Errorf("Portfolio Summary rows = %v", got)
	}
}
