package align

import (
	"context"
	"unicode/utf8"

	"github.com/google/uuid"

	lerrors "github.com/scriptorium/lectio/core/errors"
	"github.com/scriptorium/lectio/core/line"
	"github.com/scriptorium/lectio/core/sentence"
)

// AlignedToken is a tagged token re-expressed in source-Line coordinates.
// A token whose sentence-level range straddles a Line join is split into
// fragments sharing a FragmentGroup id.
type AlignedToken struct {
	// TokenIndex is the index of the source token within its sentence.
	TokenIndex int

	// LineIndex indexes the document's Line slice.
	LineIndex int

	// Start and End are byte offsets into the Line's text.
	Start, End int

	// Surface is the Line-local text slice for this (fragment of a) token.
	Surface string

	Lemma string
	POS   string
	Morph string

	// Fragment marks a token split across Lines. FragmentGroup links the
	// parts; FragmentOrd orders them (0-based).
	Fragment      bool
	FragmentGroup string
	FragmentOrd   int
}

// Alignment is the aligned output for one Sentence.
type Alignment struct {
	// SentenceIndex is the sentence's position within the document.
	SentenceIndex int

	// Tokens are the aligned tokens in sentence token order; split tokens
	// contribute consecutive fragment entries.
	Tokens []AlignedToken

	// Categories are the sentence's category spans, still expressed as
	// token-index ranges; projection to Lines happens downstream.
	Categories []CategorySpan
}

// Aligner aligns tagged sentences back to their source Lines.
type Aligner struct {
	tagger Tagger
}

// NewAligner returns an aligner over the given tagging capability.
func NewAligner(t Tagger) *Aligner {
	return &Aligner{tagger: t}
}

// posRef maps one byte of sentence text to its source position.
// lineIdx is -1 for join-separator bytes, which belong to no Line.
type posRef struct {
	lineIdx int
	off     int
}

// Align tags one sentence and maps every token back to Line-local offsets.
// Alignment itself is a pure function of the sentence's own span table, so
// sentences of a document may be aligned concurrently. A tagging failure is
// reported as TaggingUnavailable, never silently swallowed.
func (a *Aligner) Align(ctx context.Context, lines []line.Line, s sentence.Sentence) (*Alignment, error) {
	table := offsetTable(s)
	if len(table) != len(s.Text) {
		return nil, &lerrors.ValidationError{
			Field:   "sentence",
			Message: "span table does not cover the sentence text",
		}
	}

	res, err := a.tagger.Tag(ctx, s.Text)
	if err != nil {
		return nil, &lerrors.TaggingError{Sentence: s.Index, Err: err}
	}
	if err := ValidateResult(res, s.Text); err != nil {
		return nil, &lerrors.TaggingError{Sentence: s.Index, Err: err}
	}

	out := &Alignment{SentenceIndex: s.Index, Categories: res.Categories}

	for ti, tok := range res.Tokens {
		frags := a.alignToken(lines, table, ti, tok)
		out.Tokens = append(out.Tokens, frags...)
	}
	return out, nil
}

// offsetTable builds the prefix-sum position table for a sentence: one
// posRef per byte of reconstructed text, walking spans and join separators
// in order.
func offsetTable(s sentence.Sentence) []posRef {
	table := make([]posRef, 0, len(s.Text))
	for _, sp := range s.Spans {
		for i := 0; i < len(sp.Join); i++ {
			table = append(table, posRef{lineIdx: -1})
		}
		for b := sp.Start; b < sp.End; b++ {
			table = append(table, posRef{lineIdx: sp.LineIndex, off: b})
		}
	}
	return table
}

// alignToken maps one token range to one or more Line-local fragments.
// Ranges reaching into separator bytes are narrowed to the nearest real
// position on the correct side; a token falling entirely inside a
// separator is snapped to the adjacent source byte (lossy but safe).
func (a *Aligner) alignToken(lines []line.Line, table []posRef, ti int, tok Token) []AlignedToken {
	start, end := tok.Start, tok.End
	for start < end && table[start].lineIdx < 0 {
		start++
	}
	for end > start && table[end-1].lineIdx < 0 {
		end--
	}
	if start >= end {
		start, end = snapToSource(table, tok.Start)
		if start < 0 {
			return nil
		}
	}

	// Group contiguous bytes by owning Line; separator bytes interior to
	// the range belong to no token and are skipped.
	type group struct{ lineIdx, start, end int }
	var groups []group
	for p := start; p < end; p++ {
		ref := table[p]
		if ref.lineIdx < 0 {
			continue
		}
		if n := len(groups); n > 0 && groups[n-1].lineIdx == ref.lineIdx && groups[n-1].end == ref.off {
			groups[n-1].end = ref.off + 1
			continue
		}
		groups = append(groups, group{lineIdx: ref.lineIdx, start: ref.off, end: ref.off + 1})
	}
	if len(groups) == 0 {
		return nil
	}

	groupID := ""
	if len(groups) > 1 {
		groupID = uuid.NewString()
	}
	frags := make([]AlignedToken, len(groups))
	for gi, g := range groups {
		lt := lines[g.lineIdx].Text
		for g.start > 0 && !utf8.RuneStart(lt[g.start]) {
			g.start--
		}
		for g.end < len(lt) && !utf8.RuneStart(lt[g.end]) {
			g.end++
		}
		frags[gi] = AlignedToken{
			TokenIndex:    ti,
			LineIndex:     g.lineIdx,
			Start:         g.start,
			End:           g.end,
			Surface:       lt[g.start:g.end],
			Lemma:         tok.Lemma,
			POS:           tok.POS,
			Morph:         tok.Morph,
			Fragment:      len(groups) > 1,
			FragmentGroup: groupID,
			FragmentOrd:   gi,
		}
	}
	return frags
}

// snapToSource finds the nearest non-separator byte around pos, preferring
// the left side. The caller widens the result to rune boundaries.
func snapToSource(table []posRef, pos int) (int, int) {
	for p := min(pos, len(table)-1); p >= 0; p-- {
		if table[p].lineIdx >= 0 {
			return p, p + 1
		}
	}
	for p := pos + 1; p < len(table); p++ {
		if table[p].lineIdx >= 0 {
			return p, p + 1
		}
	}
	return -1, -1
}
