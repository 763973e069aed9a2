package export

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/width"

	"github.com/joseph-ayodele/pdftoxl/internal/sheet"
)

const (
	columnPadding  = 2
	maxColumnWidth = 255
)

// displayWidth counts East Asian wide and fullwidth runes as two columns. For
// multi-line text the widest line wins.
func displayWidth(s string) int {
	widest := 0
	for _, line := range strings.Split(s, "\n") {
		w := 0
		for _, r := range line {
			switch width.LookupRune(r).Kind() {
			case width.EastAsianWide, width.EastAsianFullwidth:
				w += 2
			default:
				w++
			}
		}
		widest = max(widest, w)
	}
	return widest
}

// columnWidths sizes every column to its widest header or cell plus padding.
func columnWidths(t Table) []float64 {
	widths := make([]float64, len(t.Columns))
	for i, col := range t.Columns {
		w := displayWidth(col)
		for _, row := range t.Rows {
			if i < len(row) {
				w = max(w, displayWidth(cellText(row[i])))
			}
		}
		widths[i] = float64(min(w+columnPadding, maxColumnWidth))
	}
	return widths
}

// cellValue converts a decoded LLM value into something excelize writes natively.
// Nested objects and arrays are written as compact JSON.
func cellValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string, int64, float64, bool:
		return t
	case *sheet.Row, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

// cellText is the textual form used for sizing.
func cellText(v any) string {
	switch t := cellValue(v).(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strings.ToUpper(strconv.FormatBool(t))
	default:
		return fmt.Sprint(t)
	}
}
