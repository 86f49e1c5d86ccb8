// Package formats adapts source documents to the inline-marker text form
// the pipeline consumes. Plain UTF-8 text passes through unchanged; TEI-ish
// XML sources are flattened into marker text first.
package formats

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/scriptorium/lectio/internal/fileutil"
)

// Format identifies the shape of a source document.
type Format string

const (
	FormatText Format = "text"
	FormatXML  Format = "xml"
)

// markerElements are the TEI-ish elements whose n attribute carries a
// citation reference.
var markerElements = map[string]bool{
	"milestone": true,
	"l":         true,
	"lb":        true,
	"seg":       true,
	"div":       true,
}

// skipElements are containers whose text is metadata, not source text.
var skipElements = map[string]bool{
	"teiHeader": true,
	"note":      true,
}

// Detect sniffs the format of a source stream. It returns the detected
// format and a reader that replays the sniffed bytes.
func Detect(r io.Reader) (Format, io.Reader, error) {
	br := bufio.NewReader(r)
	peek, err := br.Peek(512)
	if err != nil && err != io.EOF {
		return FormatText, br, fmt.Errorf("sniffing source format: %w", err)
	}
	for _, b := range peek {
		if unicode.IsSpace(rune(b)) {
			continue
		}
		if b == '<' {
			return FormatXML, br, nil
		}
		break
	}
	return FormatText, br, nil
}

// Flatten converts a TEI-ish XML document into inline-marker text.
// Elements carrying an n attribute become citation markers; text content
// follows its marker in document order. Header and note content is dropped.
func Flatten(r io.Reader) (string, error) {
	root, err := xmlquery.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parsing XML source: %w", err)
	}
	var b strings.Builder
	flattenNode(root, &b)
	return b.String(), nil
}

func flattenNode(n *xmlquery.Node, b *strings.Builder) {
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case xmlquery.TextNode, xmlquery.CharDataNode:
			b.WriteString(child.Data)
		case xmlquery.ElementNode:
			if skipElements[child.Data] {
				continue
			}
			if ref := child.SelectAttr("n"); ref != "" && markerElements[child.Data] {
				b.WriteString("[" + ref + "]")
			}
			flattenNode(child, b)
			// Verse containers end a physical line.
			if child.Data == "l" {
				b.WriteString("\n")
			}
		}
	}
}

var refExpr = xpath.MustCompile("//*[@n]")

// References lists the citation references declared by marker elements of
// an XML source, in document order.
func References(r io.Reader) ([]string, error) {
	root, err := xmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing XML source: %w", err)
	}
	var refs []string
	for _, n := range xmlquery.QuerySelectorAll(root, refExpr) {
		if markerElements[n.Data] {
			refs = append(refs, n.SelectAttr("n"))
		}
	}
	return refs, nil
}

// Source opens a file and returns its content as inline-marker text,
// decompressing and flattening as needed.
func Source(path string) (io.ReadCloser, error) {
	f, err := fileutil.Open(path)
	if err != nil {
		return nil, err
	}
	format, r, err := Detect(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	if format == FormatText {
		return &sourceReader{Reader: r, closer: f}, nil
	}
	text, err := Flatten(r)
	f.Close()
	if err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(text)), nil
}

type sourceReader struct {
	io.Reader
	closer io.Closer
}

func (s *sourceReader) Close() error { return s.closer.Close() }
