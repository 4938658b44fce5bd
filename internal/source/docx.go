package source

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"
)

// docxDocument has no page geometry, so the whole body is one page.
type docxDocument struct {
	text string
}

func parseDOCX(data []byte) (*docxDocument, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var paragraphs []string
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		if text := docxParagraphText(para); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}
	return &docxDocument{text: strings.Join(paragraphs, "\n\n")}, nil
}

func (d *docxDocument) Kind() Kind { return KindDOCX }

func (d *docxDocument) NumPages() int { return 1 }

func (d *docxDocument) PageText(n int) (string, error) {
	if err := checkPage(n, 1); err != nil {
		return "", err
	}
	return d.text, nil
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
