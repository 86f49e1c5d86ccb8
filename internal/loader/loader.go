// Package loader persists completed document runs to SQLite for the
// database-loading collaborator.
//
// Loading is all-or-nothing at document grain: one transaction covers the
// document row, its lines, tokens, and category spans. Reprocessing a
// document replaces its previous rows entirely; there is no in-place
// update path.
package loader

import (
	"context"
	"database/sql"
	"time"

	"github.com/scriptorium/lectio/core/document"
	lerrors "github.com/scriptorium/lectio/core/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	doc_id       TEXT PRIMARY KEY,
	run_id       TEXT NOT NULL,
	source_hash  TEXT NOT NULL,
	processed_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS lines (
	doc_id   TEXT NOT NULL,
	ordinal  INTEGER NOT NULL,
	citation TEXT NOT NULL,
	text     TEXT NOT NULL,
	PRIMARY KEY (doc_id, ordinal)
);

CREATE TABLE IF NOT EXISTS tokens (
	doc_id         TEXT NOT NULL,
	line_ordinal   INTEGER NOT NULL,
	seq            INTEGER NOT NULL,
	token_index    INTEGER NOT NULL,
	start_offset   INTEGER NOT NULL,
	end_offset     INTEGER NOT NULL,
	surface        TEXT NOT NULL,
	lemma          TEXT NOT NULL,
	pos            TEXT NOT NULL,
	morph          TEXT NOT NULL,
	fragment       INTEGER NOT NULL,
	fragment_group TEXT NOT NULL,
	fragment_ord   INTEGER NOT NULL,
	PRIMARY KEY (doc_id, line_ordinal, seq)
);

CREATE TABLE IF NOT EXISTS categories (
	doc_id       TEXT NOT NULL,
	line_ordinal INTEGER NOT NULL,
	seq          INTEGER NOT NULL,
	label        TEXT NOT NULL,
	start_offset INTEGER NOT NULL,
	end_offset   INTEGER NOT NULL,
	token_start  INTEGER NOT NULL,
	token_end    INTEGER NOT NULL,
	span_group   TEXT NOT NULL,
	part         TEXT NOT NULL,
	PRIMARY KEY (doc_id, line_ordinal, seq)
);
`

// Init creates the hand-off tables if they do not exist.
func Init(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return lerrors.Wrap(err, "creating hand-off tables")
	}
	return nil
}

// Load writes one completed document in a single transaction, replacing
// any rows from a previous run of the same document.
func Load(ctx context.Context, db *sql.DB, doc *document.Document) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return lerrors.Wrap(err, "beginning load transaction")
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, table := range []string{"documents", "lines", "tokens", "categories"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE doc_id = ?", doc.ID); err != nil {
			return lerrors.Wrapf(err, "clearing %s", table)
		}
	}

	if _, err = tx.ExecContext(ctx,
		"INSERT INTO documents (doc_id, run_id, source_hash, processed_at) VALUES (?, ?, ?, ?)",
		doc.ID, doc.RunID, doc.SourceHash, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return lerrors.Wrap(err, "inserting document row")
	}

	lineStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO lines (doc_id, ordinal, citation, text) VALUES (?, ?, ?, ?)")
	if err != nil {
		return lerrors.Wrap(err, "preparing line insert")
	}
	defer lineStmt.Close()

	tokStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tokens (doc_id, line_ordinal, seq, token_index, start_offset, end_offset,
			surface, lemma, pos, morph, fragment, fragment_group, fragment_ord)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return lerrors.Wrap(err, "preparing token insert")
	}
	defer tokStmt.Close()

	catStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO categories (doc_id, line_ordinal, seq, label, start_offset, end_offset,
			token_start, token_end, span_group, part)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return lerrors.Wrap(err, "preparing category insert")
	}
	defer catStmt.Close()

	for _, rec := range doc.Records {
		if _, err = lineStmt.ExecContext(ctx, doc.ID, rec.Ordinal, rec.Citation, rec.Text); err != nil {
			return lerrors.Wrapf(err, "inserting line %d", rec.Ordinal)
		}
		for seq, tok := range rec.Tokens {
			fragment := 0
			if tok.Fragment {
				fragment = 1
			}
			if _, err = tokStmt.ExecContext(ctx, doc.ID, rec.Ordinal, seq,
				tok.TokenIndex, tok.Start, tok.End, tok.Surface, tok.Lemma,
				tok.POS, tok.Morph, fragment, tok.FragmentGroup, tok.FragmentOrd,
			); err != nil {
				return lerrors.Wrapf(err, "inserting token %d of line %d", seq, rec.Ordinal)
			}
		}
		for seq, cat := range rec.Categories {
			if _, err = catStmt.ExecContext(ctx, doc.ID, rec.Ordinal, seq,
				cat.Label, cat.Start, cat.End, cat.TokenStart, cat.TokenEnd,
				cat.Group, string(cat.Part),
			); err != nil {
				return lerrors.Wrapf(err, "inserting category %d of line %d", seq, rec.Ordinal)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return lerrors.Wrap(err, "committing load transaction")
	}
	return nil
}
