package citation

import (
	lerrors "github.com/scriptorium/lectio/core/errors"
)

// Cursor tracks the current citation coordinate as text is scanned.
// Each Advance merges a marker's parsed levels onto the previously
// resolved coordinate: omitted levels inherit, concrete and explicit-empty
// levels overwrite.
//
// A cursor is thread-confined: one per document-processing run, never
// shared. Concurrent document runs each own an independent cursor.
type Cursor struct {
	schema *Schema
	prev   *Coordinate
}

// NewCursor returns an unseeded cursor. The first Advance must carry a
// fully specified marker, or Advance fails with UnresolvedCitation.
func NewCursor(schema *Schema) *Cursor {
	return &Cursor{schema: schema}
}

// NewSeededCursor returns a cursor whose inheritance state starts at seed.
func NewSeededCursor(schema *Schema, seed Coordinate) *Cursor {
	return &Cursor{schema: schema, prev: &seed}
}

// Seeded reports whether the cursor has a coordinate to inherit from.
func (c *Cursor) Seeded() bool { return c.prev != nil }

// Current returns the most recently resolved coordinate.
func (c *Cursor) Current() (Coordinate, bool) {
	if c.prev == nil {
		return Coordinate{}, false
	}
	return *c.prev, true
}

// Advance resolves levels against the cursor state and returns the new
// coordinate. Omitted levels (positional "-" or trailing absence) take the
// prior coordinate's value; explicitly present levels, including the
// explicit-empty placeholder, overwrite. Advance fails with
// UnresolvedCitation when a level must inherit and no prior coordinate
// exists.
func (c *Cursor) Advance(levels Levels) (Coordinate, error) {
	values := make([]Value, c.schema.Len())
	for i := range values {
		var lv Level
		if i < len(levels) {
			lv = levels[i]
		} else {
			lv = Level{Kind: LevelOmitted}
		}

		switch lv.Kind {
		case LevelNumber:
			values[i] = Value{Kind: ValueNumber, Num: lv.Num}
		case LevelText:
			values[i] = Value{Kind: ValueText, Text: lv.Text}
		case LevelEmpty:
			values[i] = Value{Kind: ValueEmpty}
		case LevelOmitted:
			if c.prev == nil {
				return Coordinate{}, &lerrors.UnresolvedCitationError{
					Level:   c.schema.Levels[i].Name,
					Message: "level omitted with no prior coordinate to inherit from",
				}
			}
			values[i] = c.prev.values[i]
		}
	}

	coord := Coordinate{schema: c.schema, values: values}
	c.prev = &coord
	return coord, nil
}
