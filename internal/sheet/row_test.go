package sheet

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestRowKeepsInsertionOrder(t *testing.T) {
	r := NewRow()
	r.Set("b", 1)
	r.Set("a", 2)
	r.Set("b", 3)

	if got, want := r.Keys(), []string{"b", "a"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("keys = %v, want %v", got, want)
	}
	if v, _ := r.Get("b"); v != 3 {
		t.Errorf("b = %v, want 3", v)
	}
}

func TestRowMarshalJSONOrdered(t *testing.T) {
	r := NewRow()
	r.Set("Zeta", "z")
	r.Set("Alpha", int64(1))
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"Zeta":"z","Alpha":1}` {
		t.Errorf("got %s", b)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	r := NewRow()
	r.Set("a", 1)
	c := r.Clone()
	c.Set("b", 2)
	if r.Len() != 1 {
		t.Errorf("original mutated: %v", r.Keys())
	}
}

func TestAggregatedData(t *testing.T) {
	a := NewAggregatedData()
	if a.HasData() {
		t.Fatal("empty data reports HasData")
	}
	a.AddError("x.pdf", "boom")
	if a.HasData() {
		t.Fatal("errors alone must not count as data")
	}
	if a.ErrorCount() != 1 {
		t.Fatalf("ErrorCount = %d", a.ErrorCount())
	}

	doc := NewSheets()
	doc.Append("Empty")
	row := NewRow()
	row.Set("k", "v")
	doc.Append("Fund Data", row)
	a.Merge(doc)

	if !a.HasData() {
		t.Fatal("expected HasData after merge")
	}
	if got, want := a.Names(), []string{ErrorsSheet, "Empty", "Fund Data"}; !reflect.DeepEqual(got, want) {
		t.Errorf("names = %v, want %v", got, want)
	}
	if a.RowCount() != 2 {
		t.Errorf("RowCount = %d, want 2", a.RowCount())
	}
}
