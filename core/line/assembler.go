// Package line segments citation-marked source text into citation-addressable
// Line records.
//
// Citation markers, not physical line breaks, are the unit of segmentation:
// a marker in the middle of a physical line starts a new Line, and one
// citation's text may wrap across several physical lines. Whitespace trimmed
// at segment boundaries is preserved as a join-separator candidate so that
// sentence reconstruction keeps natural spacing.
package line

import (
	"bufio"
	"io"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/scriptorium/lectio/core/citation"
	lerrors "github.com/scriptorium/lectio/core/errors"
)

// Line is one citation-addressable unit of source text. Write-once: never
// mutated after assembly.
type Line struct {
	// Ordinal is the 0-based index of the line within the document.
	Ordinal int

	// Coord is the fully resolved citation coordinate.
	Coord citation.Coordinate

	// Text is the line's content, edge-trimmed and NFC-normalized, with
	// interior line-wrap breaks collapsed to single spaces.
	Text string

	// JoinBefore is the separator candidate between the previous Line's
	// text and this one: " " when whitespace (or a physical line break)
	// separated them in the source, "" when the marker sat flush between
	// two text runs.
	JoinBefore string
}

// Options configures line assembly for one document run.
type Options struct {
	// Seed, when non-nil, is the coordinate assigned to text preceding the
	// first marker. Without a seed, leading prose fails with
	// UnresolvedCitation.
	Seed *citation.Coordinate

	// SkipMalformed downgrades unparsable markers from document-fatal to a
	// recorded warning; the marker text is dropped from the stream.
	// Default false: citation integrity is load-bearing downstream.
	SkipMalformed bool
}

// Assembler scans a raw text stream and emits Lines in document order.
// Stateful and thread-confined: one per document run.
type Assembler struct {
	schema *citation.Schema
	opts   Options

	cursor   *citation.Cursor
	buf      strings.Builder
	lines    []Line
	warnings []string

	markerOrd int
	pendingWS bool
	started   bool // a marker has been seen or the pre-marker segment emitted
}

// NewAssembler returns an assembler for one document run.
func NewAssembler(schema *citation.Schema, opts Options) *Assembler {
	cursor := citation.NewCursor(schema)
	if opts.Seed != nil {
		cursor = citation.NewSeededCursor(schema, *opts.Seed)
	}
	return &Assembler{schema: schema, opts: opts, cursor: cursor}
}

// Warnings returns messages recorded for skipped malformed markers.
func (a *Assembler) Warnings() []string { return a.warnings }

// Assemble scans r and returns the document's Lines in order.
func (a *Assembler) Assemble(r io.Reader) ([]Line, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		if err := a.scanPhysicalLine(norm.NFC.String(scanner.Text())); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, lerrors.Wrap(err, "reading source text")
	}

	if err := a.flushSegment(true); err != nil {
		return nil, err
	}
	return a.lines, nil
}

func (a *Assembler) scanPhysicalLine(text string) error {
	pos := 0
	for _, m := range citation.MarkerPattern.FindAllStringIndex(text, -1) {
		a.buf.WriteString(text[pos:m[0]])
		if err := a.flushSegment(false); err != nil {
			return err
		}
		if err := a.advanceMarker(text[m[0]:m[1]]); err != nil {
			return err
		}
		pos = m[1]
	}
	a.buf.WriteString(text[pos:])
	a.buf.WriteByte('\n')
	return nil
}

func (a *Assembler) advanceMarker(marker string) error {
	levels, err := citation.Parse(a.schema, marker)
	if err != nil {
		if a.opts.SkipMalformed {
			a.warnings = append(a.warnings, err.Error())
			return nil
		}
		var mc *lerrors.MalformedCitationError
		if lerrors.As(err, &mc) {
			mc.Ordinal = a.markerOrd
		}
		return err
	}
	if _, err := a.cursor.Advance(levels); err != nil {
		return err
	}
	a.markerOrd++
	a.started = true
	return nil
}

// flushSegment emits the accumulated segment as a Line. Final segments and
// segments under an assigned coordinate are emitted even when empty, so a
// marker with no following text still advances citation continuity in the
// Line sequence; whitespace-only prose before the first marker is dropped.
func (a *Assembler) flushSegment(final bool) error {
	raw := a.buf.String()
	a.buf.Reset()

	trimLeft := strings.TrimLeftFunc(raw, unicode.IsSpace)
	leadingWS := len(trimLeft) < len(raw)
	trimmed := strings.TrimRightFunc(trimLeft, unicode.IsSpace)
	trailingWS := len(trimmed) < len(trimLeft)

	join := ""
	if a.pendingWS || leadingWS {
		join = " "
	}

	coord, seeded := a.cursor.Current()
	if trimmed == "" {
		if a.started {
			a.emit(coord, "", join)
		}
		a.pendingWS = a.pendingWS || raw != ""
		return nil
	}

	if !seeded {
		return &lerrors.UnresolvedCitationError{
			Message: "text precedes the first citation marker and no seed coordinate was given",
		}
	}

	a.emit(coord, collapseWraps(trimmed), join)
	a.started = true
	a.pendingWS = trailingWS
	return nil
}

func (a *Assembler) emit(coord citation.Coordinate, text, join string) {
	if len(a.lines) == 0 {
		join = ""
	}
	a.lines = append(a.lines, Line{
		Ordinal:    len(a.lines),
		Coord:      coord,
		Text:       text,
		JoinBefore: join,
	})
}

// collapseWraps replaces every interior whitespace run containing a line
// break with a single space, undoing typesetting line wrap without touching
// deliberate spacing elsewhere.
func collapseWraps(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	i := 0
	for i < len(s) {
		r := s[i]
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			b.WriteByte(r)
			i++
			continue
		}
		j := i
		hasBreak := false
		for j < len(s) {
			c := s[j]
			if c == '\n' || c == '\r' {
				hasBreak = true
			} else if c != ' ' && c != '\t' {
				break
			}
			j++
		}
		if hasBreak {
			b.WriteByte(' ')
		} else {
			b.WriteString(s[i:j])
		}
		i = j
	}
	return b.String()
}
