// Package category projects sentence-level category spans onto the
// per-Line aligned token records, splitting spans that cross Line
// boundaries without ever dropping one.
package category

import (
	"github.com/google/uuid"

	"github.com/scriptorium/lectio/core/align"
)

// Part orders the pieces of a category span split across Lines.
type Part string

const (
	// PartWhole marks a span confined to one Line.
	PartWhole Part = "whole"
	// PartFirst marks the first piece of a split span.
	PartFirst Part = "first"
	// PartMiddle marks an interior piece.
	PartMiddle Part = "middle"
	// PartLast marks the final piece.
	PartLast Part = "last"
)

// LineCategory is one per-Line category record. Pieces of a span that
// crossed Lines share a Group id so consumers can reassemble the full
// extent.
type LineCategory struct {
	// LineIndex indexes the document's Line slice.
	LineIndex int

	// Label is the category label from the tagging output.
	Label string

	// Start and End are byte offsets into the Line's text covering the
	// Line's contributing tokens.
	Start, End int

	// TokenStart and TokenEnd delimit the sentence token-index range
	// [TokenStart, TokenEnd) this piece covers on its Line.
	TokenStart, TokenEnd int

	// Group links the pieces of a split span; empty for whole spans.
	Group string

	// Part is the piece's position: whole, first, middle, or last.
	Part Part
}

// Project resolves each category span to its underlying aligned tokens and
// emits per-Line records in Line order. A span whose tokens straddle Lines
// becomes one record per Line with a shared group id and part ordinals.
func Project(categories []align.CategorySpan, tokens []align.AlignedToken) []LineCategory {
	// Index fragments by sentence token index.
	byToken := make(map[int][]align.AlignedToken)
	for _, tok := range tokens {
		byToken[tok.TokenIndex] = append(byToken[tok.TokenIndex], tok)
	}

	var out []LineCategory
	for _, cat := range categories {
		pieces := projectOne(cat, byToken)
		out = append(out, pieces...)
	}
	return out
}

func projectOne(cat align.CategorySpan, byToken map[int][]align.AlignedToken) []LineCategory {
	// Collect the span's fragments grouped by Line, preserving Line order.
	type acc struct {
		lineIdx              int
		start, end           int
		tokenStart, tokenEnd int
	}
	var accs []*acc
	byLine := make(map[int]*acc)

	for ti := cat.StartToken; ti < cat.EndToken; ti++ {
		for _, frag := range byToken[ti] {
			a, ok := byLine[frag.LineIndex]
			if !ok {
				a = &acc{
					lineIdx:    frag.LineIndex,
					start:      frag.Start,
					end:        frag.End,
					tokenStart: ti,
					tokenEnd:   ti + 1,
				}
				byLine[frag.LineIndex] = a
				accs = append(accs, a)
				continue
			}
			if frag.Start < a.start {
				a.start = frag.Start
			}
			if frag.End > a.end {
				a.end = frag.End
			}
			if ti+1 > a.tokenEnd {
				a.tokenEnd = ti + 1
			}
		}
	}
	if len(accs) == 0 {
		return nil
	}

	if len(accs) == 1 {
		a := accs[0]
		return []LineCategory{{
			LineIndex:  a.lineIdx,
			Label:      cat.Label,
			Start:      a.start,
			End:        a.end,
			TokenStart: a.tokenStart,
			TokenEnd:   a.tokenEnd,
			Part:       PartWhole,
		}}
	}

	group := uuid.NewString()
	pieces := make([]LineCategory, len(accs))
	for i, a := range accs {
		part := PartMiddle
		switch i {
		case 0:
			part = PartFirst
		case len(accs) - 1:
			part = PartLast
		}
		pieces[i] = LineCategory{
			LineIndex:  a.lineIdx,
			Label:      cat.Label,
			Start:      a.start,
			End:        a.end,
			TokenStart: a.tokenStart,
			TokenEnd:   a.tokenEnd,
			Group:      group,
			Part:       part,
		}
	}
	return pieces
}
