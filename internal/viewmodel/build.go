// Package viewmodel turns flat backend chunk records into per-page view
// models for the viewer panes.
package viewmodel

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
)

// FallbackFileName stands in for an empty file name in ids and titles.
const FallbackFileName = "document"

const (
	chunkDivider    = `<hr class="chunk-divider"/>`
	emptyJoinMarkup = `<p class="empty">No content.</p>`
	emptyPageMarkup = `<p class="empty">This page has no content.</p>`
	previewMaxRunes = 160
)

// Chunk is the render-ready form of one backend record.
type Chunk struct {
	ID          string      `json:"id"`
	Page        int         `json:"page"`
	Title       string      `json:"title"`
	Content     string      `json:"content"`
	ContentType ContentType `json:"content_type"`
	Preview     string      `json:"preview"`
	StartIndex  int         `json:"startIndex"`
	EndIndex    int         `json:"endIndex"`
}

// Page bundles the chunks of one page with the markup assembled from them.
type Page struct {
	PageNumber    int     `json:"pageNumber"`
	Chunks        []Chunk `json:"chunks"`
	MarkupContent string  `json:"markupContent"`

	// rendered chunk bodies, parallel to Chunks
	sections []string
}

// EmptyPage is the sentinel shown for a page number with no entry.
func EmptyPage(pageNumber int) *Page {
	return &Page{
		PageNumber:    pageNumber,
		Chunks:        []Chunk{},
		MarkupContent: emptyPageMarkup,
	}
}

// HasChunk reports whether id belongs to this page.
func (p *Page) HasChunk(id string) bool {
	for _, c := range p.Chunks {
		if c.ID == id {
			return true
		}
	}
	return false
}

var tagLike = regexp.MustCompile(`<[^>]+>`)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

var lineBreaks = strings.NewReplacer("\r\n", "<br/>", "\n", "<br/>")

// Build groups records by page. Records with an unusable page are dropped.
// Chunk order within a page follows input order, and ids are derived from
// the position within the page, so they only hold for a fixed input order.
func Build(records []Record) map[int]*Page {
	pages := make(map[int]*Page)

	for _, rec := range records {
		page, ok := rec.Page.Int()
		if !ok {
			continue
		}

		p, exists := pages[page]
		if !exists {
			p = &Page{PageNumber: page, Chunks: []Chunk{}}
			pages[page] = p
		}

		name := rec.FileName
		if name == "" {
			name = FallbackFileName
		}
		p.Chunks = append(p.Chunks, Chunk{
			ID:          name + "-" + strconv.Itoa(page) + "-" + strconv.Itoa(len(p.Chunks)),
			Page:        page,
			Title:       fmt.Sprintf("%s - page %d", name, page),
			Content:     rec.Content,
			ContentType: resolveContentType(rec),
			StartIndex:  0,
			EndIndex:    utf8.RuneCountInString(rec.Content),
		})
	}

	md := goldmark.New()
	for _, p := range pages {
		for i := range p.Chunks {
			p.Chunks[i].Preview = previewText(p.Chunks[i])
		}
		p.MarkupContent = pageMarkup(md, p)
	}

	return pages
}

// resolveContentType prefers the declared type and otherwise sniffs for
// anything tag-like.
func resolveContentType(rec Record) ContentType {
	if rec.ContentType != ContentUnknown {
		return rec.ContentType
	}
	if tagLike.MatchString(rec.Content) {
		return ContentHTML
	}
	return ContentText
}

func pageMarkup(md goldmark.Markdown, p *Page) string {
	p.sections = make([]string, len(p.Chunks))
	for i, c := range p.Chunks {
		p.sections[i] = chunkMarkup(md, c)
	}
	return p.assemble("")
}

// Highlighted returns the page markup with the section of chunkID carrying
// the "highlighted" class. Chunk bodies are reused verbatim, so the result
// differs from MarkupContent only in that class attribute. It returns
// MarkupContent when chunkID is empty or not on the page.
func (p *Page) Highlighted(chunkID string) string {
	if chunkID == "" || len(p.sections) != len(p.Chunks) || !p.HasChunk(chunkID) {
		return p.MarkupContent
	}
	return p.assemble(chunkID)
}

func (p *Page) assemble(activeID string) string {
	var body strings.Builder
	hasContent := false
	for i, c := range p.Chunks {
		if p.sections[i] != "" {
			hasContent = true
		}
		if i > 0 {
			body.WriteString(chunkDivider)
		}
		body.WriteString(`<section class="chunk`)
		if c.ID == activeID {
			body.WriteString(` highlighted`)
		}
		body.WriteString(`" data-chunk-id="`)
		body.WriteString(htmlEscaper.Replace(c.ID))
		body.WriteString(`">`)
		body.WriteString(p.sections[i])
		body.WriteString(`</section>`)
	}

	joined := body.String()
	if !hasContent {
		joined = emptyJoinMarkup
	}

	return `<div class="page-content"><h2>Page ` + strconv.Itoa(p.PageNumber) + `</h2><div>` + joined + `</div></div>`
}

func chunkMarkup(md goldmark.Markdown, c Chunk) string {
	switch c.ContentType {
	case ContentHTML:
		return c.Content
	case ContentMarkdown:
		var buf bytes.Buffer
		if err := md.Convert([]byte(c.Content), &buf); err == nil {
			return strings.TrimSpace(buf.String())
		}
	}
	return EscapeText(c.Content)
}

// EscapeText escapes the five reserved markup characters and turns line
// breaks into <br/>.
func EscapeText(s string) string {
	return lineBreaks.Replace(htmlEscaper.Replace(s))
}
