package sheet

import (
	"reflect"
	"testing"
)

func TestDecodePreservesOrderAndNumberKinds(t *testing.T) {
	v, err := Decode([]byte(`{"Fund Data":[{"Fund Name":"Alpha","Fund Size":100,"Hurdle Rate %":8.0,"Closed":true,"Note":null}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	doc, ok := v.(*Row)
	if !ok {
		t.Fatalf("top-level is %T", v)
	}
	rows, ok := doc.values["Fund Data"].([]any)
	if !ok || len(rows) != 1 {
		t.Fatalf("Fund Data = %#v", doc.values["Fund Data"])
	}
	row := rows[0].(*Row)
	if got, want := row.Keys(), []string{"Fund Name", "Fund Size", "Hurdle Rate %", "Closed", "Note"}; !reflect.DeepEqual(got, want) {
		t.Errorf("keys = %v, want %v", got, want)
	}
	if v, _ := row.Get("Fund Size"); v != int64(100) {
		t.Errorf("Fund Size = %#v, want int64(100)", v)
	}
	if v, _ := row.Get("Hurdle Rate %"); v != float64(8) {
		t.Errorf("Hurdle Rate = %#v, want float64(8)", v)
	}
	if v, ok := row.Get("Note"); !ok || v != nil {
		t.Errorf("Note = %#v, %v", v, ok)
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := map[string]string{
		"empty":     ``,
		"truncated": `{"a": [1, 2`,
		"prose":     `Here is your JSON: {"a": 1}`,
		"trailing":  `{"a": 1} and more`,
		"two":       `{}{}`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode([]byte(in)); err == nil {
				t.Errorf("expected error for %q", in)
			}
		})
	}
}
