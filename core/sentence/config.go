package sentence

import (
	"fmt"
	"io"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	lerrors "github.com/scriptorium/lectio/core/errors"
)

// BoundaryConfig is the sentence-boundary heuristic as configuration data.
// Corpora with different conventions load different profiles; no code
// changes are involved.
type BoundaryConfig struct {
	// Terminators are the sentence-ending characters, one rune per entry.
	Terminators []string `yaml:"terminators"`

	// AbbreviationExceptions lists words whose trailing dot is a scribal
	// abbreviation, not a sentence end. Compared case-insensitively.
	AbbreviationExceptions []string `yaml:"abbreviation_exceptions"`

	// ContinuationLowercaseSuppressesBreak suppresses a boundary when the
	// next visible rune on the same line is lowercase.
	ContinuationLowercaseSuppressesBreak bool `yaml:"continuation_lowercase_suppresses_break"`
}

// DefaultBoundaryConfig returns the profile for the reference corpus:
// Latin/Greek editorial punctuation with lowercase-continuation suppression.
func DefaultBoundaryConfig() *BoundaryConfig {
	return &BoundaryConfig{
		Terminators:                          []string{".", ";", "·", "?", "!"},
		AbbreviationExceptions:               []string{"cf", "etc", "id", "ib", "ibid", "sc", "uid"},
		ContinuationLowercaseSuppressesBreak: true,
	}
}

// LoadBoundaryConfig reads a YAML boundary profile.
func LoadBoundaryConfig(r io.Reader) (*BoundaryConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, lerrors.Wrap(err, "reading boundary profile")
	}
	var cfg BoundaryConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, lerrors.Wrap(err, "parsing boundary profile")
	}
	if _, err := cfg.compile(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// compiled is the validated, lookup-ready form of a BoundaryConfig.
type compiled struct {
	terminators map[rune]bool
	exceptions  map[string]bool
	lowerCont   bool
}

func (c *BoundaryConfig) compile() (*compiled, error) {
	if len(c.Terminators) == 0 {
		return nil, &lerrors.ValidationError{
			Field:   "terminators",
			Message: "at least one terminator is required",
		}
	}
	cc := &compiled{
		terminators: make(map[rune]bool, len(c.Terminators)),
		exceptions:  make(map[string]bool, len(c.AbbreviationExceptions)),
		lowerCont:   c.ContinuationLowercaseSuppressesBreak,
	}
	for _, t := range c.Terminators {
		r, size := utf8.DecodeRuneInString(t)
		if r == utf8.RuneError || size != len(t) {
			return nil, &lerrors.ValidationError{
				Field:   "terminators",
				Value:   t,
				Message: fmt.Sprintf("terminator %q is not a single character", t),
			}
		}
		cc.terminators[r] = true
	}
	for _, a := range c.AbbreviationExceptions {
		if a == "" {
			continue
		}
		cc.exceptions[lowerFold(a)] = true
	}
	return cc, nil
}
