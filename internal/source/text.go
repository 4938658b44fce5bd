package source

import "strings"

// textDocument splits plain text into pages on form feeds.
type textDocument struct {
	pages []string
}

func parseText(data []byte) *textDocument {
	pages := strings.Split(string(data), "\f")
	for i, p := range pages {
		pages[i] = strings.TrimSpace(p)
	}
	return &textDocument{pages: pages}
}

func (d *textDocument) Kind() Kind { return KindText }

func (d *textDocument) NumPages() int { return len(d.pages) }

func (d *textDocument) PageText(n int) (string, error) {
	if err := checkPage(n, len(d.pages)); err != nil {
		return "", err
	}
	return d.pages[n-1], nil
}
