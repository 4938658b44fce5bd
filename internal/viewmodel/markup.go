package viewmodel

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Elements that separate words when markup is flattened to text.
const blockSelector = "br, p, div, li, tr, td, th, h1, h2, h3, h4, h5, h6"

// previewText returns a short plain-text rendition of a chunk for list cards.
func previewText(c Chunk) string {
	text := c.Content
	if c.ContentType == ContentHTML {
		text = markupText(text)
	}
	text = strings.Join(strings.Fields(text), " ")

	if n := len([]rune(text)); n > previewMaxRunes {
		text = string([]rune(text)[:previewMaxRunes]) + "…"
	}
	return text
}

// markupText strips tags from a markup fragment. Unparseable input is
// returned as-is.
func markupText(fragment string) string {
	root := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), root)
	if err != nil {
		return fragment
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}

	doc := goquery.NewDocumentFromNode(root)
	doc.Find("script, style").Remove()
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		n.Parent.InsertBefore(&html.Node{Type: html.TextNode, Data: " "}, n)
	})
	return doc.Text()
}
