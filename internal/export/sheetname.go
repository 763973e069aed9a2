package export

import (
	"fmt"
	"strings"
	"unicode/utf16"
)

// maxSheetNameLen is Excel's limit, counted in UTF-16 code units.
const maxSheetNameLen = 31

const fallbackSheetName = "Sheet"

// SheetName makes name acceptable as a worksheet name: the characters []:*?/\
// are removed, surrounding apostrophes and spaces trimmed, and the result cut
// to 31 characters. An empty result becomes "Sheet".
func SheetName(name string) string {
	s := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return -1
		}
		return r
	}, name)
	s = trimName(s)
	s = trimName(truncateUTF16(s, maxSheetNameLen))
	if s == "" {
		return fallbackSheetName
	}
	return s
}

// SheetNames sanitizes names and resolves collisions, which Excel judges
// case-insensitively, by appending " (2)", " (3)", ... within the length limit.
func SheetNames(names []string) []string {
	out := make([]string, len(names))
	used := make(map[string]bool, len(names))
	for i, name := range names {
		base := SheetName(name)
		candidate := base
		for n := 2; used[strings.ToLower(candidate)]; n++ {
			suffix := fmt.Sprintf(" (%d)", n)
			stem := trimName(truncateUTF16(base, maxSheetNameLen-len(suffix)))
			candidate = stem + suffix
		}
		used[strings.ToLower(candidate)] = true
		out[i] = candidate
	}
	return out
}

func trimName(s string) string {
	return strings.Trim(s, "' ")
}

func truncateUTF16(s string, limit int) string {
	n := 0
	for i, r := range s {
		l := utf16.RuneLen(r)
		if l < 0 {
			l = 1
		}
		if n+l > limit {
			return s[:i]
		}
		n += l
	}
	return s
}
