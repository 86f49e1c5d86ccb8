package loader

import (
	"context"
	"testing"

	"github.com/scriptorium/lectio/core/align"
	"github.com/scriptorium/lectio/core/category"
	"github.com/scriptorium/lectio/core/document"
	"github.com/scriptorium/lectio/core/sqlite"
)

func testDocument() *document.Document {
	return &document.Document{
		ID:         "aeneid-1",
		RunID:      "run-0001",
		SourceHash: "deadbeef",
		Records: []document.LineRecord{
			{
				Ordinal:  0,
				Citation: "1.1.1.1",
				Text:     "arma virumque cano",
				Tokens: []align.AlignedToken{
					{TokenIndex: 0, LineIndex: 0, Start: 0, End: 4, Surface: "arma", Lemma: "arma", POS: "NOUN"},
					{TokenIndex: 1, LineIndex: 0, Start: 5, End: 13, Surface: "virumque", Lemma: "vir", POS: "NOUN"},
					{TokenIndex: 2, LineIndex: 0, Start: 14, End: 18, Surface: "cano", Lemma: "cano", POS: "VERB"},
				},
				Categories: []category.LineCategory{
					{LineIndex: 0, Label: "NP", Start: 0, End: 14, TokenStart: 0, TokenEnd: 2, Part: category.PartWhole},
				},
			},
			{
				Ordinal:  1,
				Citation: "1.1.1.2",
				Text:     "Troiae qui primus ab oris",
				Tokens: []align.AlignedToken{
					{TokenIndex: 3, LineIndex: 1, Start: 0, End: 6, Surface: "Troiae", Lemma: "Troia", POS: "NOUN"},
				},
			},
		},
	}
}

func TestLoadWritesAllRows(t *testing.T) {
	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := Init(ctx, db); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := Load(ctx, db, testDocument()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	counts := map[string]int{"documents": 1, "lines": 2, "tokens": 4, "categories": 1}
	for table, want := range counts {
		var got int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&got); err != nil {
			t.Fatalf("counting %s: %v", table, err)
		}
		if got != want {
			t.Errorf("%s rows = %d, want %d", table, got, want)
		}
	}

	var surface string
	err = db.QueryRowContext(ctx,
		"SELECT surface FROM tokens WHERE doc_id = ? AND line_ordinal = 0 AND seq = 1",
		"aeneid-1").Scan(&surface)
	if err != nil {
		t.Fatalf("reading token back: %v", err)
	}
	if surface != "virumque" {
		t.Errorf("token surface = %q, want %q", surface, "virumque")
	}
}

func TestLoadReplacesPreviousRun(t *testing.T) {
	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := Init(ctx, db); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := Load(ctx, db, testDocument()); err != nil {
		t.Fatalf("first Load: %v", err)
	}

	second := testDocument()
	second.RunID = "run-0002"
	second.Records = second.Records[:1]
	if err := Load(ctx, db, second); err != nil {
		t.Fatalf("second Load: %v", err)
	}

	var runID string
	if err := db.QueryRowContext(ctx,
		"SELECT run_id FROM documents WHERE doc_id = ?", "aeneid-1").Scan(&runID); err != nil {
		t.Fatalf("reading document row: %v", err)
	}
	if runID != "run-0002" {
		t.Errorf("run_id = %q, want %q", runID, "run-0002")
	}

	var lines int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM lines").Scan(&lines); err != nil {
		t.Fatalf("counting lines: %v", err)
	}
	if lines != 1 {
		t.Errorf("lines after replace = %d, want 1", lines)
	}
}

func TestLoadRollsBackOnConflict(t *testing.T) {
	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := Init(ctx, db); err != nil {
		t.Fatalf("Init: %v", err)
	}

	bad := testDocument()
	// Duplicate line ordinal violates the primary key mid-transaction.
	bad.Records[1].Ordinal = 0
	if err := Load(ctx, db, bad); err == nil {
		t.Fatal("Load with duplicate ordinals succeeded, want error")
	}

	for _, table := range []string{"documents", "lines", "tokens"} {
		var got int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&got); err != nil {
			t.Fatalf("counting %s: %v", table, err)
		}
		if got != 0 {
			t.Errorf("%s rows after rollback = %d, want 0", table, got)
		}
	}
}
