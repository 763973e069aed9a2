// Package templates holds the extraction templates: a fixed instruction prompt plus
// the sheets it asks the model to produce. The catalog ships embedded as TOML.
package templates

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed templates.toml
var defaultCatalog []byte

// ErrUnknownTemplate is returned for identifiers that match no template.
var ErrUnknownTemplate = errors.New("unknown template")

type Template struct {
	ID            string   `toml:"id"`
	Aliases       []string `toml:"aliases"`
	Name          string   `toml:"name"`
	Sheets        []string `toml:"sheets"`
	SummarySheets []string `toml:"summary_sheets"`
	Prompt        string   `toml:"prompt"`
}

// IsSummary reports whether sheet is rendered as Metric/Value pairs for this template.
func (t Template) IsSummary(sheet string) bool {
	return slices.Contains(t.SummarySheets, sheet)
}

// Expects reports whether sheet is one the prompt asks for.
func (t Template) Expects(sheet string) bool {
	return slices.Contains(t.Sheets, sheet)
}

// BuildPrompt appends the extracted text verbatim after the instruction prompt.
func (t Template) BuildPrompt(text string) string {
	var b strings.Builder
	b.Grow(len(t.Prompt) + len(text) + 64)
	b.WriteString(strings.TrimRight(t.Prompt, "\n"))
	b.WriteString("\n\nHere is the text to process:\n---\n")
	b.WriteString(text)
	b.WriteString("\n---\n")
	return b.String()
}

type Catalog struct {
	templates []Template
	byKey     map[string]int
}

type catalogFile struct {
	Templates []Template `toml:"templates"`
}

// Parse decodes and validates a TOML catalog.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return nil, fmt.Errorf("decode catalog: unknown keys %v", undec)
	}
	if len(f.Templates) == 0 {
		return nil, errors.New("catalog has no templates")
	}

	c := &Catalog{byKey: make(map[string]int)}
	for i, t := range f.Templates {
		if strings.TrimSpace(t.ID) == "" {
			return nil, fmt.Errorf("template #%d: id is required", i+1)
		}
		if strings.TrimSpace(t.Prompt) == "" {
			return nil, fmt.Errorf("template %q: prompt is required", t.ID)
		}
		for _, s := range t.SummarySheets {
			if !t.Expects(s) {
				return nil, fmt.Errorf("template %q: summary sheet %q is not in sheets", t.ID, s)
			}
		}
		for _, key := range append([]string{t.ID}, t.Aliases...) {
			k := normalizeKey(key)
			if _, dup := c.byKey[k]; dup {
				return nil, fmt.Errorf("template %q: identifier %q already taken", t.ID, key)
			}
			c.byKey[k] = i
		}
		c.templates = append(c.templates, t)
	}
	return c, nil
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic("templates: embedded catalog: " + err.Error())
	}
	return c
}

// Lookup resolves an identifier ("1", "template1", " Template1 ") to its template.
func (c *Catalog) Lookup(id string) (Template, error) {
	i, ok := c.byKey[normalizeKey(id)]
	if !ok {
		return Template{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, id)
	}
	return c.templates[i], nil
}

// Build returns the full prompt for id and the extracted text.
func (c *Catalog) Build(id, text string) (string, error) {
	t, err := c.Lookup(id)
	if err != nil {
		return "", err
	}
	return t.BuildPrompt(text), nil
}

// IDs returns the canonical identifiers in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.templates))
	for i, t := range c.templates {
		ids[i] = t.ID
	}
	return ids
}

func normalizeKey(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
