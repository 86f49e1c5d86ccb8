// Package document holds the write-once output of one document-processing
// run and the per-Line hand-off records consumed by the persistence
// collaborator.
//
// Everything here is created once per run and never mutated; reprocessing
// a document discards and rebuilds the full set.
package document

import (
	"github.com/scriptorium/lectio/core/align"
	"github.com/scriptorium/lectio/core/category"
	"github.com/scriptorium/lectio/core/line"
	"github.com/scriptorium/lectio/core/sentence"
)

// Document is the complete result of one run.
type Document struct {
	// ID identifies the document (caller-supplied, e.g. the source path).
	ID string `json:"id"`

	// RunID uniquely identifies this processing run.
	RunID string `json:"run_id"`

	// SourceHash is the BLAKE3 hash of the raw source bytes, for change
	// detection across reprocessing runs.
	SourceHash string `json:"source_hash"`

	// Lines are the citation-addressed source lines in document order.
	Lines []line.Line `json:"lines"`

	// Sentences are the reconstructed sentences with their span tables.
	Sentences []sentence.Sentence `json:"sentences"`

	// Records are the per-Line hand-off records, aligned with Lines.
	Records []LineRecord `json:"records"`

	// Warnings holds non-fatal notes (e.g. skipped malformed markers).
	Warnings []string `json:"warnings,omitempty"`
}

// LineRecord is the hand-off contract for one Line: citation coordinate,
// raw text, ordered aligned tokens, and per-Line category spans with
// cross-Line group references.
type LineRecord struct {
	Ordinal    int                     `json:"ordinal"`
	Citation   string                  `json:"citation"`
	Text       string                  `json:"text"`
	Tokens     []align.AlignedToken    `json:"tokens,omitempty"`
	Categories []category.LineCategory `json:"categories,omitempty"`
}

// BuildRecords distributes aligned tokens and projected categories onto
// per-Line records. Alignments must be in document sentence order; token
// order within a Line follows sentence and token order, which is also
// Line-offset order.
func BuildRecords(lines []line.Line, alignments []*align.Alignment, categories [][]category.LineCategory) []LineRecord {
	records := make([]LineRecord, len(lines))
	for i, ln := range lines {
		records[i] = LineRecord{
			Ordinal:  ln.Ordinal,
			Citation: ln.Coord.String(),
			Text:     ln.Text,
		}
	}
	for _, al := range alignments {
		for _, tok := range al.Tokens {
			records[tok.LineIndex].Tokens = append(records[tok.LineIndex].Tokens, tok)
		}
	}
	for _, cats := range categories {
		for _, c := range cats {
			records[c.LineIndex].Categories = append(records[c.LineIndex].Categories, c)
		}
	}
	return records
}
