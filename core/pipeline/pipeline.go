// Package pipeline orchestrates one document-processing run: line
// assembly, sentence assembly, concurrent tagging with alignment, and
// category projection, in document order.
//
// A run either completes the whole document or reports failure for the
// whole document; no partial result is ever returned. Runs share no
// mutable state, so separate documents may be processed concurrently.
package pipeline

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scriptorium/lectio/core/align"
	"github.com/scriptorium/lectio/core/category"
	"github.com/scriptorium/lectio/core/citation"
	"github.com/scriptorium/lectio/core/document"
	lerrors "github.com/scriptorium/lectio/core/errors"
	"github.com/scriptorium/lectio/core/line"
	"github.com/scriptorium/lectio/core/sentence"
	"github.com/scriptorium/lectio/internal/logging"
)

// Config tunes one pipeline instance. Zero values pick sensible defaults.
type Config struct {
	// Schema is the citation hierarchy; nil selects the default schema.
	Schema *citation.Schema

	// Boundary is the sentence-boundary profile; nil selects the default.
	Boundary *sentence.BoundaryConfig

	// Seed, when non-nil, covers text preceding the first marker.
	Seed *citation.Coordinate

	// SkipMalformed downgrades malformed markers to warnings.
	SkipMalformed bool

	// Workers bounds concurrent tagging calls per document. Default 4.
	Workers int

	// TagRetries is the number of retries per sentence after a tagging
	// failure. Default 2.
	TagRetries int

	// RetryBackoff is the initial backoff between retries, doubling each
	// attempt. Default 500ms.
	RetryBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.Schema == nil {
		c.Schema = citation.DefaultSchema()
	}
	if c.Boundary == nil {
		c.Boundary = sentence.DefaultBoundaryConfig()
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.TagRetries < 0 {
		c.TagRetries = 0
	} else if c.TagRetries == 0 {
		c.TagRetries = 2
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
	return c
}

// Pipeline processes documents against one tagging capability.
type Pipeline struct {
	cfg    Config
	tagger align.Tagger
}

// New returns a pipeline over the given tagging capability.
func New(tagger align.Tagger, cfg Config) *Pipeline {
	return &Pipeline{cfg: cfg.withDefaults(), tagger: tagger}
}

// Process runs one document end to end. The returned Document is complete;
// on any error the whole document is discarded and nil is returned.
func (p *Pipeline) Process(ctx context.Context, id string, src io.Reader) (*document.Document, error) {
	ctx = logging.WithDocumentID(ctx, id)
	log := logging.FromContext(ctx)
	started := time.Now()

	hasher := document.NewSourceHasher()
	assembler := line.NewAssembler(p.cfg.Schema, line.Options{
		Seed:          p.cfg.Seed,
		SkipMalformed: p.cfg.SkipMalformed,
	})
	lines, err := assembler.Assemble(hasher.Tee(src))
	if err != nil {
		return nil, lerrors.Wrapf(err, "assembling lines of %s", id)
	}
	for _, w := range assembler.Warnings() {
		log.Warn("skipped malformed citation marker", "detail", w)
	}

	sents, err := sentence.Assemble(lines, p.cfg.Boundary)
	if err != nil {
		return nil, lerrors.Wrapf(err, "assembling sentences of %s", id)
	}

	alignments, err := p.alignAll(ctx, lines, sents)
	if err != nil {
		return nil, err
	}

	categories := make([][]category.LineCategory, len(alignments))
	for i, al := range alignments {
		categories[i] = category.Project(al.Categories, al.Tokens)
	}

	doc := &document.Document{
		ID:         id,
		RunID:      uuid.NewString(),
		SourceHash: hasher.Sum(),
		Lines:      lines,
		Sentences:  sents,
		Records:    document.BuildRecords(lines, alignments, categories),
		Warnings:   assembler.Warnings(),
	}
	log.Info("document processed",
		"lines", len(lines),
		"sentences", len(sents),
		"elapsed", time.Since(started))
	return doc, nil
}

// alignAll dispatches sentences to the tagging capability through a
// bounded worker pool and collects alignments back into document order.
// The first failure cancels the remaining work and fails the document.
func (p *Pipeline) alignAll(ctx context.Context, lines []line.Line, sents []sentence.Sentence) ([]*align.Alignment, error) {
	aligner := align.NewAligner(p.tagger)
	alignments := make([]*align.Alignment, len(sents))

	workers := p.cfg.Workers
	if workers > len(sents) {
		workers = len(sents)
	}
	if workers == 0 {
		return alignments, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				al, err := p.alignWithRetry(ctx, aligner, lines, sents[i])
				if err != nil {
					fail(err)
					return
				}
				alignments[i] = al
			}
		}()
	}

dispatch:
	for i := range sents {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return alignments, nil
}

// alignWithRetry retries transient tagging failures with doubling backoff.
// Validation failures are not retried; the capability's response shape will
// not change on a second call.
func (p *Pipeline) alignWithRetry(ctx context.Context, aligner *align.Aligner, lines []line.Line, s sentence.Sentence) (*align.Alignment, error) {
	backoff := p.cfg.RetryBackoff
	var lastErr error
	for attempt := 0; attempt <= p.cfg.TagRetries; attempt++ {
		if attempt > 0 {
			logging.FromContext(ctx).Warn("retrying tagging",
				"sentence", s.Index, "attempt", attempt, "backoff", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}
		al, err := aligner.Align(ctx, lines, s)
		if err == nil {
			return al, nil
		}
		lastErr = err
		if !lerrors.Is(err, lerrors.ErrTaggingUnavailable) || lerrors.Is(err, lerrors.ErrInvalidInput) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, err
		}
	}
	return nil, lastErr
}
