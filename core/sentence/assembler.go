// Package sentence coalesces citation-addressed Lines into linguistically
// bounded Sentences, recording exactly which character ranges of which
// Lines built each one.
//
// The round-trip invariant holds for every Sentence: concatenating its
// span texts in order, each preceded by its recorded join separator,
// reproduces the Sentence text byte for byte.
package sentence

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	lerrors "github.com/scriptorium/lectio/core/errors"
	"github.com/scriptorium/lectio/core/line"
)

// Span records one contiguous character range of one Line contributing to
// a Sentence.
type Span struct {
	// LineIndex indexes the assembled Line slice for the document.
	LineIndex int

	// Start and End are byte offsets into the Line's text.
	Start, End int

	// Join is the separator inserted before this span's text when the
	// Sentence was reconstructed. Always empty for a Sentence's first span.
	Join string
}

// Sentence is a reconstructed sentence and its provenance.
type Sentence struct {
	// Index is the 0-based sentence position within the document.
	Index int

	// Text is the reconstructed sentence sent to the tagging capability.
	Text string

	// Spans lists the contributing Line ranges in Line-ordinal order.
	Spans []Span
}

// Assemble walks lines in order and returns the document's Sentences.
// A pure function of the Line sequence and the boundary profile: it never
// reorders Lines, never drops text, and flushes a trailing unterminated
// buffer as a final Sentence at end of document.
func Assemble(lines []line.Line, cfg *BoundaryConfig) ([]Sentence, error) {
	cc, err := cfg.compile()
	if err != nil {
		return nil, err
	}

	var (
		sents    []Sentence
		spans    []Span
		text     strings.Builder
		joinNext string
	)

	flush := func() error {
		if len(spans) == 0 {
			return nil
		}
		s := Sentence{Index: len(sents), Text: text.String(), Spans: spans}
		if err := verify(lines, s); err != nil {
			return err
		}
		sents = append(sents, s)
		spans = nil
		text.Reset()
		return nil
	}

	appendSpan := func(li, start, end int, join string) {
		if len(spans) == 0 {
			join = ""
		}
		text.WriteString(join)
		text.WriteString(lines[li].Text[start:end])
		spans = append(spans, Span{LineIndex: li, Start: start, End: end, Join: join})
	}

	for li, ln := range lines {
		if ln.Text == "" {
			// Whitespace-only Lines contribute no span but keep the
			// separator candidate alive across the gap.
			joinNext = mergeJoin(joinNext, ln.JoinBefore)
			continue
		}
		join := mergeJoin(joinNext, ln.JoinBefore)
		joinNext = ""

		segStart := 0
		for _, end := range boundaries(ln.Text, cc) {
			appendSpan(li, segStart, end, join)
			if err := flush(); err != nil {
				return nil, err
			}
			segStart = end
			join = ""
		}
		if segStart < len(ln.Text) {
			appendSpan(li, segStart, len(ln.Text), join)
		}
	}

	// End-of-document flush: trailing text without a terminator still
	// becomes a Sentence, never dropped.
	if err := flush(); err != nil {
		return nil, err
	}
	return sents, nil
}

// mergeJoin combines separator candidates across a segment gap: whitespace
// anywhere at the junction yields a single space.
func mergeJoin(a, b string) string {
	if a != "" || b != "" {
		return " "
	}
	return ""
}

// boundaries returns the byte offsets at which text ends a sentence. Each
// offset sits after the terminator run and any trailing whitespace, so
// consecutive boundaries partition the whole string with no gaps.
func boundaries(text string, cc *compiled) []int {
	var out []int
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !cc.terminators[r] {
			i += size
			continue
		}
		if r == '.' && isAbbreviation(text, i, cc) {
			i += size
			continue
		}

		// Absorb the whole terminator run ("?!", "..") into one boundary.
		end := i + size
		for end < len(text) {
			r2, s2 := utf8.DecodeRuneInString(text[end:])
			if !cc.terminators[r2] {
				break
			}
			end += s2
		}

		// Attach trailing whitespace to the terminated sentence so span
		// coverage stays gapless.
		wsEnd := end
		for wsEnd < len(text) {
			r2, s2 := utf8.DecodeRuneInString(text[wsEnd:])
			if !unicode.IsSpace(r2) {
				break
			}
			wsEnd += s2
		}

		if cc.lowerCont && wsEnd < len(text) {
			next, _ := utf8.DecodeRuneInString(text[wsEnd:])
			if unicode.IsLower(next) {
				i = end
				continue
			}
		}
		// A terminator as the very last character of a Line ends the
		// sentence at the Line's end; the next Line starts fresh.

		out = append(out, wsEnd)
		i = wsEnd
	}
	return out
}

// isAbbreviation reports whether the dot at byte offset i closes a word in
// the abbreviation-exception set.
func isAbbreviation(text string, i int, cc *compiled) bool {
	if len(cc.exceptions) == 0 {
		return false
	}
	start := i
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:start])
		if !unicode.IsLetter(r) {
			break
		}
		start -= size
	}
	if start == i {
		return false
	}
	return cc.exceptions[lowerFold(text[start:i])]
}

func lowerFold(s string) string {
	return strings.ToLower(s)
}

// verify is the defensive span-bookkeeping check. A failure here is a bug,
// not a data condition, and is fatal for the document.
func verify(lines []line.Line, s Sentence) error {
	var rebuilt strings.Builder
	prevLine, prevEnd := -1, 0
	for k, sp := range s.Spans {
		if sp.LineIndex < 0 || sp.LineIndex >= len(lines) {
			return &lerrors.AssemblyError{Sentence: s.Index, Message: fmt.Sprintf("span %d references line %d of %d", k, sp.LineIndex, len(lines))}
		}
		lt := lines[sp.LineIndex].Text
		if sp.Start < 0 || sp.End > len(lt) || sp.Start >= sp.End {
			return &lerrors.AssemblyError{Sentence: s.Index, Message: fmt.Sprintf("span %d range [%d,%d) out of bounds for line %d", k, sp.Start, sp.End, sp.LineIndex)}
		}
		if sp.LineIndex < prevLine || (sp.LineIndex == prevLine && sp.Start < prevEnd) {
			return &lerrors.AssemblyError{Sentence: s.Index, Message: fmt.Sprintf("span %d claims range [%d,%d) of line %d already covered", k, sp.Start, sp.End, sp.LineIndex)}
		}
		if k == 0 && sp.Join != "" {
			return &lerrors.AssemblyError{Sentence: s.Index, Message: "first span carries a join separator"}
		}
		rebuilt.WriteString(sp.Join)
		rebuilt.WriteString(lt[sp.Start:sp.End])
		prevLine, prevEnd = sp.LineIndex, sp.End
	}
	if rebuilt.String() != s.Text {
		return &lerrors.AssemblyError{Sentence: s.Index, Message: "span concatenation does not reproduce sentence text"}
	}
	return nil
}
