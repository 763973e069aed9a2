package constants

import "strings"

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// OutputFilename is the attachment name of every generated workbook.
	OutputFilename = "extracted_data.xlsx"
)

// genericContentTypes are sent by clients that do not sniff uploads; for these the
// file extension decides.
var genericContentTypes = map[string]struct{}{
	"":                         {},
	"application/octet-stream": {},
	"binary/octet-stream":      {},
	"application/x-pdf":        {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsPDF reports whether an upload should be treated as a PDF.
func IsPDF(contentType, ext string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == ContentTypePDF {
		return true
	}
	if _, ok := genericContentTypes[ct]; ok {
		return NormalizeExt(ext) == "pdf"
	}
	return false
}
