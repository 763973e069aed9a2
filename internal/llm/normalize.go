package llm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/pdftoxl/internal/sheet"
)

// ErrMalformedResponse marks model output that is not a JSON object of sheets.
var ErrMalformedResponse = errors.New("LLM returned data in an invalid format")

// StripFences trims the reply and removes every ```json and ``` marker.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// Normalize parses a model reply into ordered sheets. Sheet values that are not
// arrays are ignored and array items that are not objects are dropped; anything
// that is not a single JSON object fails with ErrMalformedResponse.
func Normalize(raw string) (*sheet.Sheets, error) {
	doc, _, err := NormalizeChecked(raw, nil)
	return doc, err
}

// NormalizeChecked is Normalize plus the reply's deviations from contract.
// A nil contract reports nothing.
func NormalizeChecked(raw string, contract *SheetContract) (*sheet.Sheets, []string, error) {
	cleaned := StripFences(raw)
	if cleaned == "" {
		return nil, nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	v, err := sheet.Decode([]byte(cleaned))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	generic := schemaValue(v)
	if err := shapes.document.Validate(generic); err != nil {
		return nil, nil, fmt.Errorf("%w: top-level value is not an object", ErrMalformedResponse)
	}
	deviations := contract.check(generic)

	doc := v.(*sheet.Row)
	out := sheet.NewSheets()
	for _, name := range doc.Keys() {
		val, _ := doc.Get(name)
		if shapes.sheet.Validate(schemaValue(val)) != nil {
			continue
		}
		var rows []*sheet.Row
		for _, item := range val.([]any) {
			if shapes.row.Validate(schemaValue(item)) != nil {
				continue
			}
			rows = append(rows, item.(*sheet.Row))
		}
		out.Append(name, rows...)
	}
	return out, deviations, nil
}
