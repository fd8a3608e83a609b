package catalog_test

import (
	"errors"
	"strings"
	"testing"

	"croon/pkg/catalog"
)

const sampleXML = `
<TITLE>Midnight Run</TITLE>
<LYRICS>verse one
chorus</LYRICS>
<STYLE>synthwave, dark</STYLE>
<TITLE>Morning Light</TITLE>
<LYRICS>verse two</LYRICS>
<STYLE>acoustic folk</STYLE>
`

func TestParseXML_GroupsTriplesInOrder(t *testing.T) {
	items, err := catalog.ParseXML(strings.NewReader(sampleXML), "test")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Title != "Midnight Run" || items[1].Title != "Morning Light" {
		t.Fatalf("titles = %q, %q", items[0].Title, items[1].Title)
	}
	if !strings.Contains(items[0].Lyrics, "chorus") {
		t.Fatalf("lyrics = %q", items[0].Lyrics)
	}
	if items[1].Style != "acoustic folk" {
		t.Fatalf("style = %q", items[1].Style)
	}
}

func TestParseXML_DropsUnmatchedTrailingElements(t *testing.T) {
	src := sampleXML + "<TITLE>Orphan</TITLE>"
	items, err := catalog.ParseXML(strings.NewReader(src), "test")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
}

func TestParseXML_MalformedInput(t *testing.T) {
	_, err := catalog.ParseXML(strings.NewReader("<TITLE>broken"), "test")
	var perr *catalog.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestParseXML_Empty(t *testing.T) {
	_, err := catalog.ParseXML(strings.NewReader(""), "test")
	var empty *catalog.EmptyCatalogError
	if !errors.As(err, &empty) {
		t.Fatalf("expected EmptyCatalogError, got %v", err)
	}
}

func TestParseYAML_List(t *testing.T) {
	src := `
- title: Midnight Run
  lyrics: verse one
  style: synthwave
- title: Morning Light
  lyrics: verse two
  style: folk
`
	items, err := catalog.ParseYAML(strings.NewReader(src), "test")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(items) != 2 || items[1].Style != "folk" {
		t.Fatalf("items = %+v", items)
	}
}

func TestParseYAML_IncompleteEntry(t *testing.T) {
	src := `
- title: No Style
  lyrics: words
`
	_, err := catalog.ParseYAML(strings.NewReader(src), "test")
	var perr *catalog.ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}
