package citation

import (
	"fmt"
	"strconv"
	"strings"

	lerrors "github.com/scriptorium/lectio/core/errors"
)

// ValueKind classifies a resolved coordinate level.
type ValueKind int

const (
	// ValueNumber is a concrete numeric level.
	ValueNumber ValueKind = iota
	// ValueText is a concrete non-numeric level.
	ValueText
	// ValueEmpty is the explicit-empty placeholder.
	ValueEmpty
)

// Value is one fully resolved coordinate level.
type Value struct {
	Kind ValueKind
	Num  int
	Text string
}

// String renders the level: a number, a name, or "*" for explicit-empty.
func (v Value) String() string {
	switch v.Kind {
	case ValueNumber:
		return strconv.Itoa(v.Num)
	case ValueText:
		return v.Text
	default:
		return "*"
	}
}

// Coordinate is a fully resolved citation location. Every level carries a
// value (concrete or explicit-empty); nothing is left ambiguous. Immutable
// once created.
type Coordinate struct {
	schema *Schema
	values []Value
}

// NewCoordinate builds a coordinate from resolved values. The number of
// values must equal the schema depth.
func NewCoordinate(schema *Schema, values []Value) (Coordinate, error) {
	if len(values) != schema.Len() {
		return Coordinate{}, &lerrors.ValidationError{
			Field:   "values",
			Message: fmt.Sprintf("got %d values for schema depth %d", len(values), schema.Len()),
		}
	}
	vs := make([]Value, len(values))
	copy(vs, values)
	return Coordinate{schema: schema, values: vs}, nil
}

// Schema returns the hierarchy this coordinate is resolved against.
func (c Coordinate) Schema() *Schema { return c.schema }

// Depth returns the number of levels.
func (c Coordinate) Depth() int { return len(c.values) }

// Value returns the resolved value at level index i.
func (c Coordinate) Value(i int) Value { return c.values[i] }

// Level returns the resolved value for a named level.
func (c Coordinate) Level(name string) (Value, bool) {
	for i, def := range c.schema.Levels {
		if def.Name == name {
			return c.values[i], true
		}
	}
	return Value{}, false
}

// String renders the coordinate as dot-joined level values, e.g. "2.10.3.41".
func (c Coordinate) String() string {
	parts := make([]string, len(c.values))
	for i, v := range c.values {
		parts[i] = v.String()
	}
	return strings.Join(parts, ".")
}

// Equal reports whether two coordinates resolve to the same location.
func (c Coordinate) Equal(o Coordinate) bool {
	if len(c.values) != len(o.values) {
		return false
	}
	for i := range c.values {
		if c.values[i] != o.values[i] {
			return false
		}
	}
	return true
}

// ParseSeed parses a fully specified slash-joined coordinate string such as
// "1/1/1/1", used to seed a cursor before the first marker. Omission is not
// allowed in a seed; "*" is accepted for explicit-empty levels.
func ParseSeed(schema *Schema, s string) (Coordinate, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != schema.Len() {
		return Coordinate{}, &lerrors.ValidationError{
			Field:   "seed",
			Value:   s,
			Message: fmt.Sprintf("got %d levels for schema depth %d", len(parts), schema.Len()),
		}
	}
	values := make([]Value, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		def := schema.Levels[i]
		switch {
		case p == "" || p == "-":
			return Coordinate{}, &lerrors.ValidationError{
				Field:   "seed",
				Value:   s,
				Message: fmt.Sprintf("level %q must be fully specified", def.Name),
			}
		case p == "*":
			values[i] = Value{Kind: ValueEmpty}
		default:
			n, err := strconv.Atoi(p)
			if err == nil {
				values[i] = Value{Kind: ValueNumber, Num: n}
				continue
			}
			if def.Numeric {
				return Coordinate{}, &lerrors.ValidationError{
					Field:   "seed",
					Value:   s,
					Message: fmt.Sprintf("non-numeric value %q for numeric level %q", p, def.Name),
				}
			}
			values[i] = Value{Kind: ValueText, Text: p}
		}
	}
	return NewCoordinate(schema, values)
}
