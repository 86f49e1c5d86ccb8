// Command lectio reconstructs sentences from citation-marked source texts,
// aligns tagger output back onto citation lines, and hands the result off
// as JSON or SQLite.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/scriptorium/lectio/core/citation"
	"github.com/scriptorium/lectio/core/line"
	"github.com/scriptorium/lectio/core/pipeline"
	"github.com/scriptorium/lectio/core/sentence"
	"github.com/scriptorium/lectio/core/sqlite"
	"github.com/scriptorium/lectio/internal/formats"
	"github.com/scriptorium/lectio/internal/loader"
	"github.com/scriptorium/lectio/internal/logging"
	"github.com/scriptorium/lectio/internal/tagger"
)

const version = "0.1.0"

// CLI defines the command-line interface for lectio.
var CLI struct {
	LogLevel  string `name:"log-level" default:"info" enum:"debug,info,warn,error" help:"Log level"`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" help:"Log output format"`

	Process ProcessCmd `cmd:"" help:"Process a source document end to end"`
	Check   CheckCmd   `cmd:"" help:"Validate a source document's citation markers without tagging"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// ProcessCmd runs the full pipeline over one source document.
type ProcessCmd struct {
	Input string `arg:"" help:"Source file (plain text, .xz, .gz, or TEI-ish XML)" type:"path"`

	DocID         string        `name:"doc-id" help:"Document identifier (defaults to the input filename)"`
	Engine        string        `name:"engine" required:"" help:"Tagging engine binary" type:"path"`
	DB            string        `name:"db" help:"SQLite database to load the result into" type:"path"`
	JSON          string        `name:"json" help:"Write the document as JSON to this path ('-' for stdout)"`
	Schema        string        `name:"schema" help:"YAML citation schema (defaults to volume/chapter/section/line)" type:"path"`
	Profile       string        `name:"profile" help:"YAML sentence-boundary profile" type:"path"`
	Seed          string        `name:"seed" help:"Citation coordinate covering text before the first marker (e.g. 1/1/1/1)"`
	SkipMalformed bool          `name:"skip-malformed" help:"Record malformed markers as warnings instead of failing"`
	Workers       int           `name:"workers" default:"4" help:"Concurrent tagging calls"`
	Retries       int           `name:"retries" default:"2" help:"Retries per sentence after a tagging failure"`
	Timeout       time.Duration `name:"timeout" default:"60s" help:"Per-sentence tagging timeout"`
}

func (c *ProcessCmd) Run() error {
	cfg := pipeline.Config{
		Workers:       c.Workers,
		TagRetries:    c.Retries,
		SkipMalformed: c.SkipMalformed,
	}

	if c.Schema != "" {
		f, err := os.Open(c.Schema)
		if err != nil {
			return fmt.Errorf("opening schema: %w", err)
		}
		cfg.Schema, err = citation.LoadSchema(f)
		f.Close()
		if err != nil {
			return err
		}
	}
	if c.Profile != "" {
		f, err := os.Open(c.Profile)
		if err != nil {
			return fmt.Errorf("opening boundary profile: %w", err)
		}
		cfg.Boundary, err = sentence.LoadBoundaryConfig(f)
		f.Close()
		if err != nil {
			return err
		}
	}
	if c.Seed != "" {
		schema := cfg.Schema
		if schema == nil {
			schema = citation.DefaultSchema()
		}
		seed, err := citation.ParseSeed(schema, c.Seed)
		if err != nil {
			return err
		}
		cfg.Seed = &seed
	}

	docID := c.DocID
	if docID == "" {
		docID = filenameID(c.Input)
	}

	src, err := formats.Source(c.Input)
	if err != nil {
		return err
	}
	defer src.Close()

	engine := tagger.New(c.Engine)
	engine.Timeout = c.Timeout

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	doc, err := pipeline.New(engine, cfg).Process(ctx, docID, src)
	if err != nil {
		return err
	}

	log := logging.GetLogger()
	log.Info("document processed",
		"doc_id", doc.ID,
		"run_id", doc.RunID,
		"lines", len(doc.Lines),
		"sentences", len(doc.Sentences),
		"warnings", len(doc.Warnings))

	if c.JSON != "" {
		if err := writeJSON(c.JSON, doc); err != nil {
			return err
		}
	}
	if c.DB != "" {
		db, err := sqlite.Open(c.DB)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := loader.Init(ctx, db); err != nil {
			return err
		}
		if err := loader.Load(ctx, db, doc); err != nil {
			return err
		}
		log.Info("document loaded", "doc_id", doc.ID, "db", c.DB, "driver", sqlite.DriverType())
	}
	if c.JSON == "" && c.DB == "" {
		return writeJSON("-", doc)
	}
	return nil
}

// CheckCmd assembles lines and sentences but never calls the tagger.
type CheckCmd struct {
	Input string `arg:"" help:"Source file to validate" type:"path"`

	Schema        string `name:"schema" help:"YAML citation schema" type:"path"`
	Seed          string `name:"seed" help:"Citation coordinate covering text before the first marker"`
	SkipMalformed bool   `name:"skip-malformed" help:"Record malformed markers as warnings instead of failing"`
	Refs          bool   `name:"refs" help:"List citation references declared by an XML source and exit"`
}

func (c *CheckCmd) Run() error {
	if c.Refs {
		return c.listRefs()
	}

	schema := citation.DefaultSchema()
	if c.Schema != "" {
		f, err := os.Open(c.Schema)
		if err != nil {
			return fmt.Errorf("opening schema: %w", err)
		}
		schema, err = citation.LoadSchema(f)
		f.Close()
		if err != nil {
			return err
		}
	}

	opts := line.Options{SkipMalformed: c.SkipMalformed}
	if c.Seed != "" {
		seed, err := citation.ParseSeed(schema, c.Seed)
		if err != nil {
			return err
		}
		opts.Seed = &seed
	}

	src, err := formats.Source(c.Input)
	if err != nil {
		return err
	}
	defer src.Close()

	assembler := line.NewAssembler(schema, opts)
	lines, err := assembler.Assemble(src)
	if err != nil {
		return err
	}

	sents, err := sentence.Assemble(lines, sentence.DefaultBoundaryConfig())
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d lines, %d sentences\n", c.Input, len(lines), len(sents))
	for _, w := range assembler.Warnings() {
		fmt.Printf("warning: %s\n", w)
	}
	return nil
}

func (c *CheckCmd) listRefs() error {
	f, err := os.Open(c.Input)
	if err != nil {
		return err
	}
	defer f.Close()

	refs, err := formats.References(f)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		fmt.Println(ref)
	}
	return nil
}

// VersionCmd prints the version and the active SQLite driver.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("lectio version %s (sqlite driver: %s)\n", version, sqlite.DriverType())
	return nil
}

func writeJSON(path string, v interface{}) error {
	out := os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating JSON output: %w", err)
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func filenameID(path string) string {
	base := filepath.Base(path)
	for _, suffix := range []string{".xz", ".gz", ".txt", ".xml"} {
		base = strings.TrimSuffix(base, suffix)
	}
	return base
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("lectio"),
		kong.Description("Citation-aware sentence reconstruction and token alignment"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	logging.InitLogger(logging.ParseLevel(CLI.LogLevel), parseFormat(CLI.LogFormat))
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

func parseFormat(s string) logging.Format {
	if s == "json" {
		return logging.FormatJSON
	}
	return logging.FormatText
}
