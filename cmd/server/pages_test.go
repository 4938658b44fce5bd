package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dgallion1/docviewer/internal/viewmodel"
)

func TestPrintPages(t *testing.T) {
	pages := viewmodel.Build([]viewmodel.Record{
		{Content: "c", FileName: "guide.pdf", Page: viewmodel.PageOf(3)},
		{Content: "a", FileName: "guide.pdf", Page: viewmodel.PageOf(1)},
		{Content: "b", FileName: "guide.pdf", Page: viewmodel.PageOf(1)},
	})

	var buf bytes.Buffer
	if err := printPages(&buf, pages); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[0], "PAGE") {
		t.Errorf("expected header row, got %q", lines[0])
	}
	if fields := strings.Fields(lines[1]); fields[0] != "1" || fields[1] != "2" {
		t.Errorf("expected page 1 with 2 chunks, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "guide.pdf - page 3") {
		t.Errorf("expected first chunk title on page 3 row, got %q", lines[2])
	}
}

func TestPrintPages_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := printPages(&buf, map[int]*viewmodel.Page{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "no pages" {
		t.Errorf("expected %q, got %q", "no pages", got)
	}
}
