// Package align reconciles token offsets returned by the external tagging
// capability with the source Lines and citation coordinates a Sentence was
// reconstructed from.
package align

import (
	"context"
	"fmt"
	"unicode/utf8"

	lerrors "github.com/scriptorium/lectio/core/errors"
)

// Token is one tagged token as returned by the tagging capability.
// Offsets are byte offsets into the UTF-8 sentence text that was tagged.
// Ephemeral: tokens exist only during alignment.
type Token struct {
	Surface string `json:"surface"`
	Lemma   string `json:"lemma"`
	POS     string `json:"pos"`
	Morph   string `json:"morph"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// CategorySpan is a semantic tag over a token-index range [StartToken,
// EndToken) of the tagged sentence.
type CategorySpan struct {
	StartToken int    `json:"start_token"`
	EndToken   int    `json:"end_token"`
	Label      string `json:"label"`
}

// Result is the validated output of one tagging call. The capability's
// response is shaped into this type exactly once, at the boundary; the
// aligner and projector operate on it without further shape checks.
type Result struct {
	Tokens     []Token        `json:"tokens"`
	Categories []CategorySpan `json:"categories,omitempty"`
}

// Tagger is the external tagging capability. Any model satisfying this
// contract is interchangeable.
type Tagger interface {
	// Tag annotates text and reports token offsets into it. A transport
	// or capability failure is returned as-is; callers wrap it in the
	// document-level taxonomy.
	Tag(ctx context.Context, text string) (*Result, error)
}

// ValidateResult checks a tagging response against the text it annotates:
// token offsets in bounds, on rune boundaries, with non-decreasing starts,
// and category ranges within the token count. Returns a ValidationError
// naming the first offending entry.
func ValidateResult(res *Result, text string) error {
	if res == nil {
		return &lerrors.ValidationError{Field: "result", Message: "tagging returned no result"}
	}
	prevStart := 0
	for i, tok := range res.Tokens {
		if tok.Start < 0 || tok.End > len(text) || tok.Start >= tok.End {
			return &lerrors.ValidationError{
				Field:   "tokens",
				Message: fmt.Sprintf("token %d range [%d,%d) out of bounds for %d-byte text", i, tok.Start, tok.End, len(text)),
			}
		}
		if !utf8.RuneStart(text[tok.Start]) || (tok.End < len(text) && !utf8.RuneStart(text[tok.End])) {
			return &lerrors.ValidationError{
				Field:   "tokens",
				Message: fmt.Sprintf("token %d range [%d,%d) splits a UTF-8 sequence", i, tok.Start, tok.End),
			}
		}
		if tok.Start < prevStart {
			return &lerrors.ValidationError{
				Field:   "tokens",
				Message: fmt.Sprintf("token %d starts at %d before preceding token", i, tok.Start),
			}
		}
		prevStart = tok.Start
	}
	for i, cat := range res.Categories {
		if cat.StartToken < 0 || cat.EndToken > len(res.Tokens) || cat.StartToken >= cat.EndToken {
			return &lerrors.ValidationError{
				Field:   "categories",
				Message: fmt.Sprintf("category %d token range [%d,%d) invalid for %d tokens", i, cat.StartToken, cat.EndToken, len(res.Tokens)),
			}
		}
	}
	return nil
}
