package source

import (
	"bytes"
	"fmt"
	"sync"

	pdflib "github.com/ledongthuc/pdf"
)

type pdfDocument struct {
	mu     sync.Mutex
	reader *pdflib.Reader
	pages  int
	text   map[int]string
}

func parsePDF(data []byte) (*pdfDocument, error) {
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &pdfDocument{
		reader: reader,
		pages:  reader.NumPage(),
		text:   make(map[int]string),
	}, nil
}

func (d *pdfDocument) Kind() Kind { return KindPDF }

func (d *pdfDocument) NumPages() int { return d.pages }

// PageText extracts and memoizes the text of page n. The underlying reader
// is not safe for concurrent use.
func (d *pdfDocument) PageText(n int) (string, error) {
	if err := checkPage(n, d.pages); err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.text[n]; ok {
		return t, nil
	}
	page := d.reader.Page(n)
	if page.V.IsNull() {
		d.text[n] = ""
		return "", nil
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extract page %d: %w", n, err)
	}
	d.text[n] = text
	return text, nil
}
