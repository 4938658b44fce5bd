package viewmodel

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ContentType is the declared format of a record's content.
type ContentType string

const (
	ContentUnknown  ContentType = ""
	ContentText     ContentType = "text"
	ContentHTML     ContentType = "html"
	ContentMarkdown ContentType = "markdown"
)

// Record is a single chunk row as returned by the backend's file endpoint.
type Record struct {
	Content     string      `json:"content"`
	FileName    string      `json:"file_name"`
	FilePath    string      `json:"file_path"`
	Page        PageNumber  `json:"i_page"`
	ContentType ContentType `json:"content_type,omitempty"`
}

// UnmarshalJSON accepts the page under either "i_page" or "page".
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw struct {
		Content     *string         `json:"content"`
		FileName    *string         `json:"file_name"`
		FilePath    *string         `json:"file_path"`
		IPage       json.RawMessage `json:"i_page"`
		Page        json.RawMessage `json:"page"`
		ContentType string          `json:"content_type"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}

	*r = Record{ContentType: parseContentType(raw.ContentType)}
	if raw.Content != nil {
		r.Content = *raw.Content
	}
	if raw.FileName != nil {
		r.FileName = *raw.FileName
	}
	if raw.FilePath != nil {
		r.FilePath = *raw.FilePath
	}

	page := raw.IPage
	if len(page) == 0 {
		page = raw.Page
	}
	r.Page = parsePageNumber(page)
	return nil
}

func parseContentType(s string) ContentType {
	switch ContentType(strings.ToLower(strings.TrimSpace(s))) {
	case ContentText:
		return ContentText
	case ContentHTML:
		return ContentHTML
	case ContentMarkdown, "md":
		return ContentMarkdown
	}
	return ContentUnknown
}

// PageNumber is a page value as it arrived on the wire. It may be missing
// or hold a value that is not a usable page.
type PageNumber struct {
	value float64
	set   bool
}

// PageOf returns a PageNumber holding n.
func PageOf(n int) PageNumber {
	return PageNumber{value: float64(n), set: true}
}

// PageFloat returns a PageNumber holding an arbitrary float, including NaN.
func PageFloat(f float64) PageNumber {
	return PageNumber{value: f, set: true}
}

// Int reports the page as an int. ok is false for missing, non-finite,
// negative or fractional values.
func (p PageNumber) Int() (n int, ok bool) {
	if !p.set || math.IsNaN(p.value) || math.IsInf(p.value, 0) {
		return 0, false
	}
	if p.value < 0 || p.value != math.Trunc(p.value) || p.value > math.MaxInt32 {
		return 0, false
	}
	return int(p.value), true
}

func (p PageNumber) MarshalJSON() ([]byte, error) {
	n, ok := p.Int()
	if !ok {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(n)), nil
}

func (p *PageNumber) UnmarshalJSON(data []byte) error {
	*p = parsePageNumber(data)
	return nil
}

func parsePageNumber(data []byte) PageNumber {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return PageNumber{}
	}

	s := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return PageNumber{}
		}
		s = strings.TrimSpace(s)
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Out-of-range numbers still parse to ±Inf; anything else is garbage.
		var ne *strconv.NumError
		if errors.As(err, &ne) && errors.Is(ne.Err, strconv.ErrRange) {
			return PageFloat(f)
		}
		return PageFloat(math.NaN())
	}
	return PageFloat(f)
}
