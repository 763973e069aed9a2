package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/pdftoxl/internal/sheet"
)

// Only the outer shape is checked: document -> sheet arrays -> row objects.
// Column names and cell values are whatever the model produced.
const (
	documentSchema = `{"type": "object"}`
	sheetSchema    = `{"type": "array"}`
	rowSchema      = `{"type": "object"}`
)

type shapeSchemas struct {
	document *jsonschema.Schema
	sheet    *jsonschema.Schema
	row      *jsonschema.Schema
}

var shapes = mustCompileShapes()

func mustCompileShapes() shapeSchemas {
	compiler := jsonschema.NewCompiler()
	compile := func(url, src string) *jsonschema.Schema {
		if err := compiler.AddResource(url, strings.NewReader(src)); err != nil {
			panic(fmt.Sprintf("add schema %s: %v", url, err))
		}
		s, err := compiler.Compile(url)
		if err != nil {
			panic(fmt.Sprintf("compile schema %s: %v", url, err))
		}
		return s
	}
	return shapeSchemas{
		document: compile("document.json", documentSchema),
		sheet:    compile("sheet.json", sheetSchema),
		row:      compile("row.json", rowSchema),
	}
}

// schemaValue converts decoded values into the generic form the validator walks.
func schemaValue(v any) any {
	switch t := v.(type) {
	case *sheet.Row:
		m := make(map[string]any, t.Len())
		for _, k := range t.Keys() {
			cell, _ := t.Get(k)
			m[k] = schemaValue(cell)
		}
		return m
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = schemaValue(item)
		}
		return out
	case int64:
		return json.Number(strconv.FormatInt(t, 10))
	default:
		return v
	}
}

// SheetContract describes the sheets a template asks for: each expected sheet
// present as an array of row objects and nothing else. Replies are not rejected
// for breaking it; Check reports the deviations for logging.
type SheetContract struct {
	schema *jsonschema.Schema
}

// NewSheetContract compiles the contract for the expected sheet names.
func NewSheetContract(sheets []string) (*SheetContract, error) {
	props := make(map[string]any, len(sheets))
	for _, name := range sheets {
		props[name] = map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "object"},
		}
	}
	doc := map[string]any{
		"type":                 "object",
		"required":             sheets,
		"properties":           props,
		"additionalProperties": false,
	}
	if len(sheets) == 0 {
		delete(doc, "required")
	}
	src, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode sheet contract: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("sheets.json", strings.NewReader(string(src))); err != nil {
		return nil, fmt.Errorf("add sheet contract: %w", err)
	}
	schema, err := compiler.Compile("sheets.json")
	if err != nil {
		return nil, fmt.Errorf("compile sheet contract: %w", err)
	}
	return &SheetContract{schema: schema}, nil
}

// check returns one line per violated keyword, e.g.
// `missing properties: 'Fund Data'` or `/Footnotes: expected array, but got string`.
func (c *SheetContract) check(v any) []string {
	if c == nil {
		return nil
	}
	err := c.schema.Validate(v)
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil
	}
	var out []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			if e.InstanceLocation != "" {
				out = append(out, e.InstanceLocation+": "+e.Message)
			} else {
				out = append(out, e.Message)
			}
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(ve)
	return out
}
