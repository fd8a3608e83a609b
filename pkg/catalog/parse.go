package catalog

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseXML reads a catalog in the prompt-sheet XML format: repeated
// TITLE, LYRICS and STYLE elements at the top level, grouped in order
// of appearance. The source has no document root, so the content is
// wrapped before decoding.
func ParseXML(r io.Reader, source string) ([]WorkItem, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Source: source, Reason: "read", Err: err}
	}

	wrapped := "<catalog>" + string(raw) + "</catalog>"
	dec := xml.NewDecoder(strings.NewReader(wrapped))

	var titles, lyrics, styles []string
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ParseError{Source: source, Reason: "malformed xml", Err: err}
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "TITLE", "LYRICS", "STYLE":
			var text string
			if err := dec.DecodeElement(&text, &start); err != nil {
				return nil, &ParseError{Source: source, Reason: "malformed element", Err: err}
			}
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			switch start.Name.Local {
			case "TITLE":
				titles = append(titles, text)
			case "LYRICS":
				lyrics = append(lyrics, text)
			case "STYLE":
				styles = append(styles, text)
			}
		}
	}

	// Triples pair up in order of appearance; trailing unmatched
	// elements are dropped.
	n := min(len(titles), min(len(lyrics), len(styles)))
	items := make([]WorkItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, WorkItem{Title: titles[i], Lyrics: lyrics[i], Style: styles[i]})
	}
	if len(items) == 0 {
		return nil, &EmptyCatalogError{Source: source}
	}
	return items, nil
}

// ParseYAML reads a catalog as a YAML list of {title, lyrics, style}
// entries. Entries missing any field are rejected.
func ParseYAML(r io.Reader, source string) ([]WorkItem, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Source: source, Reason: "read", Err: err}
	}

	var items []WorkItem
	if err := yaml.Unmarshal(raw, &items); err != nil {
		return nil, &ParseError{Source: source, Reason: "malformed yaml", Err: err}
	}
	for i, it := range items {
		if !it.complete() {
			return nil, &ParseError{Source: source, Reason: fmt.Sprintf("entry %d missing title, lyrics or style", i)}
		}
	}
	if len(items) == 0 {
		return nil, &EmptyCatalogError{Source: source}
	}
	return items, nil
}

// ParseFile loads a catalog from path, choosing the format by
// extension: .yaml/.yml for YAML, anything else is treated as the
// prompt-sheet XML format.
func ParseFile(path string) ([]WorkItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Source: path, Reason: "open", Err: err}
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(f, path)
	default:
		return ParseXML(f, path)
	}
}
