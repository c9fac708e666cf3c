// Package extract pulls plain text out of uploaded PDF, DOCX, XLSX and plain
// text byte streams. It dispatches on the declared MIME type with the file
// extension as a fallback. The package is deliberately independent of the
// PDF generator; the two only meet at the HTTP layer.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupported reports a file type none of the extractors understand.
var ErrUnsupported = errors.New("unsupported file type")

// Text returns the plain text contained in data. The filename is only used
// for its extension when the content type is missing or unhelpful.
func Text(filename, contentType string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "pdf") || ext == ".pdf":
		return pdfText(data)
	case strings.Contains(ct, "wordprocessingml") || ext == ".docx":
		return docxText(data)
	case strings.Contains(ct, "spreadsheetml") || ext == ".xlsx":
		return xlsxText(data)
	case strings.Contains(ct, "text/plain") || ext == ".txt":
		return plainText(data)
	}
	kind := contentType
	if kind == "" {
		kind = ext
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupported, kind)
}
