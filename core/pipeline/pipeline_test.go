package pipeline

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/scriptorium/lectio/core/align"
	lerrors "github.com/scriptorium/lectio/core/errors"
)

// testTagger splits on single spaces and can fail a configurable number
// of times before succeeding.
type testTagger struct {
	mu         sync.Mutex
	failures   int
	calls      int
	delay      time.Duration
	categorize bool
}

func (f *testTagger) Tag(ctx context.Context, text string) (*align.Result, error) {
	f.mu.Lock()
	f.calls++
	shouldFail := f.failures > 0
	if shouldFail {
		f.failures--
	}
	f.mu.Unlock()

	if shouldFail {
		return nil, errors.New("capability offline")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var res align.Result
	start := -1
	for i := 0; i <= len(text); i++ {
		if i == len(text) || text[i] == ' ' {
			if start >= 0 {
				res.Tokens = append(res.Tokens, align.Token{
					Surface: text[start:i],
					Lemma:   strings.ToLower(text[start:i]),
					POS:     "n",
					Start:   start,
					End:     i,
				})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if f.categorize && len(res.Tokens) > 0 {
		res.Categories = append(res.Categories, align.CategorySpan{
			StartToken: 0,
			EndToken:   len(res.Tokens),
			Label:      "OMNIA",
		})
	}
	return &res, nil
}

const testSource = `[1/1/1/1] Arma uirumque cano, Troiae qui
[-/-/-/2] primus ab oris Italiam uenit.
[-/-/-/3] Multum ille et terris iactatus et alto.
`

func TestProcessDocument(t *testing.T) {
	tagger := &testTagger{categorize: true}
	p := New(tagger, Config{})

	doc, err := p.Process(context.Background(), "aeneid-1", strings.NewReader(testSource))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(doc.Lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(doc.Lines))
	}
	if len(doc.Sentences) != 2 {
		t.Fatalf("len(sentences) = %d, want 2", len(doc.Sentences))
	}
	if doc.SourceHash == "" || doc.RunID == "" {
		t.Error("document must carry a source hash and run id")
	}
	if len(doc.Records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(doc.Records))
	}
	if doc.Records[0].Citation != "1.1.1.1" || doc.Records[2].Citation != "1.1.1.3" {
		t.Errorf("citations = %s ... %s", doc.Records[0].Citation, doc.Records[2].Citation)
	}
	for i, rec := range doc.Records {
		if len(rec.Tokens) == 0 {
			t.Errorf("record %d has no tokens", i)
		}
		for _, tok := range rec.Tokens {
			if rec.Text[tok.Start:tok.End] != tok.Surface {
				t.Errorf("record %d token %q does not match line range", i, tok.Surface)
			}
		}
	}
	// The first sentence spans lines 0 and 1, so its category projects
	// onto both with a shared group.
	var groups []string
	for _, rec := range doc.Records[:2] {
		for _, c := range rec.Categories {
			if c.Group != "" {
				groups = append(groups, c.Group)
			}
		}
	}
	if len(groups) != 2 || groups[0] != groups[1] {
		t.Errorf("cross-line category groups = %v, want one shared pair", groups)
	}
}

func TestProcessRetriesTransientFailures(t *testing.T) {
	tagger := &testTagger{failures: 2}
	p := New(tagger, Config{Workers: 1, TagRetries: 3, RetryBackoff: time.Millisecond})

	doc, err := p.Process(context.Background(), "doc", strings.NewReader(testSource))
	if err != nil {
		t.Fatalf("Process failed after retries: %v", err)
	}
	if doc == nil || len(doc.Records) != 3 {
		t.Fatal("expected a complete document after retries")
	}
}

func TestProcessFailsWholeDocument(t *testing.T) {
	tagger := &testTagger{failures: 1000}
	p := New(tagger, Config{Workers: 2, TagRetries: 1, RetryBackoff: time.Millisecond})

	doc, err := p.Process(context.Background(), "doc", strings.NewReader(testSource))
	if doc != nil {
		t.Error("no partial document may be returned on failure")
	}
	if !lerrors.Is(err, lerrors.ErrTaggingUnavailable) {
		t.Errorf("err = %v, want ErrTaggingUnavailable", err)
	}
}

func TestProcessCancellation(t *testing.T) {
	tagger := &testTagger{delay: 50 * time.Millisecond}
	p := New(tagger, Config{Workers: 1})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	doc, err := p.Process(ctx, "doc", strings.NewReader(testSource))
	if doc != nil || err == nil {
		t.Error("cancelled run must discard the document and report an error")
	}
}

func TestProcessResultsInDocumentOrder(t *testing.T) {
	// Many single-line sentences tagged concurrently must come back in
	// document order.
	var b strings.Builder
	b.WriteString("[1/1/1/1] Primus versus est.\n")
	for i := 2; i <= 30; i++ {
		b.WriteString("[-/-/-/" + strconv.Itoa(i) + "] Versus numero sequitur hic est.\n")
	}

	tagger := &testTagger{delay: time.Millisecond}
	p := New(tagger, Config{Workers: 8})

	doc, err := p.Process(context.Background(), "doc", strings.NewReader(b.String()))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(doc.Records) != 30 {
		t.Fatalf("len(records) = %d, want 30", len(doc.Records))
	}
	for i, rec := range doc.Records {
		if rec.Ordinal != i {
			t.Fatalf("record %d has ordinal %d", i, rec.Ordinal)
		}
		want := "1.1.1." + strconv.Itoa(i+1)
		if rec.Citation != want {
			t.Fatalf("record %d citation = %s, want %s", i, rec.Citation, want)
		}
	}
}

func TestProcessAbortsOnMalformedMarker(t *testing.T) {
	src := "[1/1/1/1] bona uerba [9/9/9/9/9/9] sequentia.\n"
	p := New(&testTagger{}, Config{})

	_, err := p.Process(context.Background(), "doc", strings.NewReader(src))
	if !lerrors.Is(err, lerrors.ErrMalformedCitation) {
		t.Errorf("err = %v, want ErrMalformedCitation", err)
	}

	p = New(&testTagger{}, Config{SkipMalformed: true})
	doc, err := p.Process(context.Background(), "doc", strings.NewReader(src))
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(doc.Warnings) != 1 {
		t.Errorf("warnings = %v, want one", doc.Warnings)
	}
}
