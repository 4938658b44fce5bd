// Package source opens the document files shown in the paginated
// pane and knows how many pages they have.
package source

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind identifies how a source file is displayed.
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindDOCX Kind = "docx"
	KindText Kind = "text"
)

// Document is an opened source file.
type Document interface {
	Kind() Kind
	NumPages() int
	// PageText returns the plain text of page n (1-based).
	PageText(n int) (string, error)
}

// SupportedExtensions lists file extensions the paginated pane can handle.
var SupportedExtensions = map[string]Kind{
	".pdf":      KindPDF,
	".docx":     KindDOCX,
	".txt":      KindText,
	".md":       KindText,
	".markdown": KindText,
}

// KindForFile returns the document kind for a filename.
func KindForFile(filename string) (Kind, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	kind, ok := SupportedExtensions[ext]
	if !ok {
		return "", fmt.Errorf("unsupported file extension: %q", ext)
	}
	return kind, nil
}

// Parse opens raw file bytes as a Document.
func Parse(data []byte, filename string) (Document, error) {
	kind, err := KindForFile(filename)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindPDF:
		return parsePDF(data)
	case KindDOCX:
		return parseDOCX(data)
	default:
		return parseText(data), nil
	}
}

func checkPage(n, total int) error {
	if n < 1 || n > total {
		return fmt.Errorf("page %d out of range 1..%d", n, total)
	}
	return nil
}
