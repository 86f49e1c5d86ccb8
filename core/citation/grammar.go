// Package citation parses inline citation markers and tracks the current
// citation coordinate as text is scanned.
//
// A marker is a bracketed, slash-delimited hierarchy, e.g. "[2/10/3/41]"
// for volume 2, chapter 10, section 3, line 41. Trailing levels may be
// omitted ("[2/10]"), any level may be omitted positionally with "-"
// ("[-/-/4]"), and "*" marks a level as explicitly absent in the source
// edition (present-but-empty, never inherited).
package citation

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"gopkg.in/yaml.v3"

	lerrors "github.com/scriptorium/lectio/core/errors"
)

// LevelKind classifies a single parsed level value.
type LevelKind int

const (
	// LevelOmitted means the source omitted the level; it inherits from
	// the previous coordinate.
	LevelOmitted LevelKind = iota
	// LevelEmpty means the source explicitly marked the level absent.
	// It resolves to the empty placeholder and is never inherited.
	LevelEmpty
	// LevelNumber is a concrete numeric value.
	LevelNumber
	// LevelText is a concrete non-numeric value (e.g. a named book).
	LevelText
)

// Level is one parsed hierarchy level from a marker.
type Level struct {
	Kind LevelKind
	Num  int
	Text string
}

// Levels is the ordered parse result of one marker. Its length is at most
// the schema length; missing trailing entries are treated as omitted.
type Levels []Level

// SchemaLevel describes one level of the citation hierarchy.
type SchemaLevel struct {
	// Name identifies the level (e.g. "volume", "chapter").
	Name string `yaml:"name"`

	// Numeric requires the level's concrete values to be integers.
	Numeric bool `yaml:"numeric"`
}

// Schema is the ordered citation hierarchy for a corpus.
type Schema struct {
	Levels []SchemaLevel `yaml:"levels"`
}

// DefaultSchema returns the four-level hierarchy used by the reference
// corpus: volume/chapter/section/line, all numeric.
func DefaultSchema() *Schema {
	return &Schema{Levels: []SchemaLevel{
		{Name: "volume", Numeric: true},
		{Name: "chapter", Numeric: true},
		{Name: "section", Numeric: true},
		{Name: "line", Numeric: true},
	}}
}

// Len returns the number of hierarchy levels.
func (s *Schema) Len() int { return len(s.Levels) }

// LoadSchema reads a YAML schema definition and validates it.
func LoadSchema(r io.Reader) (*Schema, error) {
	var s Schema
	if err := yaml.NewDecoder(r).Decode(&s); err != nil {
		return nil, lerrors.Wrapf(lerrors.ErrInvalidInput, "decoding schema: %v", err)
	}
	if len(s.Levels) == 0 {
		return nil, lerrors.Wrap(lerrors.ErrInvalidInput, "schema declares no levels")
	}
	seen := make(map[string]bool, len(s.Levels))
	for _, lvl := range s.Levels {
		if lvl.Name == "" {
			return nil, lerrors.Wrap(lerrors.ErrInvalidInput, "schema level with empty name")
		}
		if seen[lvl.Name] {
			return nil, lerrors.Wrapf(lerrors.ErrInvalidInput, "duplicate schema level %q", lvl.Name)
		}
		seen[lvl.Name] = true
	}
	return &s, nil
}

// MarkerPattern matches the delimiter grammar for citation markers in
// running text. Line assembly uses this pattern for detection; the matched
// substring is then parsed against the schema.
var MarkerPattern = regexp.MustCompile(`\[[^\[\]\n]*\]`)

// markerGrammar is the participle grammar for citation markers.
// Examples: "[2/10/3/41]", "[2/10]", "[-/-/4]", "[2/*/3]"
//
type markerGrammar struct {
	Levels []*levelPart `parser:"'[' @@ ( '/' @@ )* ']'"`
}

type levelPart struct {
	Omit  bool    `parser:"  @Dash"`
	Empty bool    `parser:"| @Star"`
	Num   *int    `parser:"| @Int"`
	Text  *string `parser:"| @Ident"`
}

// markerLexer defines the lexer for citation markers.
var markerLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[\p{L}][\p{L}0-9]*`},
	{Name: "Dash", Pattern: `-`},
	{Name: "Star", Pattern: `\*`},
	{Name: "Punct", Pattern: `[\[\]/]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// markerParser is the participle parser for citation markers.
var markerParser = participle.MustBuild[markerGrammar](
	participle.Lexer(markerLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// Parse parses a literal marker substring against the schema.
// It accepts fully specified markers, markers with omitted levels
// (trailing absence or positional "-"), and the explicit-empty "*"
// placeholder. It returns a MalformedCitationError when the marker does
// not match the delimiter grammar or violates the schema.
func Parse(schema *Schema, marker string) (Levels, error) {
	s := strings.TrimSpace(marker)
	if s == "" {
		return nil, &lerrors.MalformedCitationError{Marker: marker, Message: "empty marker"}
	}

	parsed, err := markerParser.ParseString("", s)
	if err != nil {
		return nil, &lerrors.MalformedCitationError{
			Marker:  marker,
			Message: "does not match delimiter grammar",
			Err:     err,
		}
	}

	if len(parsed.Levels) > schema.Len() {
		return nil, &lerrors.MalformedCitationError{
			Marker:  marker,
			Message: fmt.Sprintf("%d levels exceeds schema depth %d", len(parsed.Levels), schema.Len()),
		}
	}

	levels := make(Levels, len(parsed.Levels))
	for i, p := range parsed.Levels {
		def := schema.Levels[i]
		switch {
		case p.Omit:
			levels[i] = Level{Kind: LevelOmitted}
		case p.Empty:
			levels[i] = Level{Kind: LevelEmpty}
		case p.Num != nil:
			levels[i] = Level{Kind: LevelNumber, Num: *p.Num}
		case p.Text != nil:
			if def.Numeric {
				return nil, &lerrors.MalformedCitationError{
					Marker:  marker,
					Message: fmt.Sprintf("non-numeric value %q for numeric level %q", *p.Text, def.Name),
				}
			}
			levels[i] = Level{Kind: LevelText, Text: *p.Text}
		default:
			return nil, &lerrors.MalformedCitationError{
				Marker:  marker,
				Message: fmt.Sprintf("empty value for level %q", def.Name),
			}
		}
	}
	return levels, nil
}
