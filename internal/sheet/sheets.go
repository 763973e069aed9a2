package sheet

import (
	"bytes"
	"encoding/json"
)

// Sheets is an ordered mapping from sheet name to rows. Sheet order is first-seen.
type Sheets struct {
	order []string
	rows  map[string][]*Row
}

func NewSheets() *Sheets {
	return &Sheets{rows: make(map[string][]*Row)}
}

// Append registers name (even with no rows) and appends rows to it.
func (s *Sheets) Append(name string, rows ...*Row) {
	if s.rows == nil {
		s.rows = make(map[string][]*Row)
	}
	if _, ok := s.rows[name]; !ok {
		s.order = append(s.order, name)
		s.rows[name] = nil
	}
	s.rows[name] = append(s.rows[name], rows...)
}

func (s *Sheets) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Sheets) Rows(name string) []*Row {
	if s == nil {
		return nil
	}
	return s.rows[name]
}

// Len is the number of registered sheets, empty ones included.
func (s *Sheets) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// RowCount is the total number of rows across all sheets.
func (s *Sheets) RowCount() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, name := range s.order {
		n += len(s.rows[name])
	}
	return n
}

func (s *Sheets) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range s.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		nb, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(nb)
		buf.WriteByte(':')
		rows := s.rows[name]
		if rows == nil {
			rows = []*Row{}
		}
		rb, err := json.Marshal(rows)
		if err != nil {
			return nil, err
		}
		buf.Write(rb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// AggregatedData is the cross-file result of one batch. Failures live in ErrorsSheet.
type AggregatedData struct {
	Sheets
}

func NewAggregatedData() *AggregatedData {
	return &AggregatedData{Sheets: *NewSheets()}
}

// Merge appends every sheet of doc, in doc's order.
func (a *AggregatedData) Merge(doc *Sheets) {
	for _, name := range doc.Names() {
		a.Append(name, doc.Rows(name)...)
	}
}

// AddError records a file-level failure.
func (a *AggregatedData) AddError(sourceFile, message string) {
	row := NewRow()
	row.Set(SourceFileColumn, sourceFile)
	row.Set(ErrorColumn, message)
	a.Append(ErrorsSheet, row)
}

// HasData reports whether any sheet other than ErrorsSheet holds rows.
func (a *AggregatedData) HasData() bool {
	for _, name := range a.order {
		if name != ErrorsSheet && len(a.rows[name]) > 0 {
			return true
		}
	}
	return false
}

func (a *AggregatedData) ErrorCount() int {
	return len(a.rows[ErrorsSheet])
}
