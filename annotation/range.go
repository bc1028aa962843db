package annotation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidKey is returned when a string does not have the "L:C-L:C" shape.
var ErrInvalidKey = errors.New("invalid range key")

// Position is a zero-based (line, column) location in a document.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Range is a span of text between two positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// NewRange builds a Range from its four components.
func NewRange(startLine, startCol, endLine, endCol int) Range {
	return Range{
		Start: Position{Line: startLine, Column: startCol},
		End:   Position{Line: endLine, Column: endCol},
	}
}

// IsEmpty reports whether the range has zero width.
func (r Range) IsEmpty() bool {
	return r.Start == r.End
}

// WidenToLine expands a zero-width range to cover its whole line(s).
// Non-empty ranges are returned unchanged.
func (r Range) WidenToLine(lineLength int) Range {
	if !r.IsEmpty() {
		return r
	}
	return NewRange(r.Start.Line, 0, r.End.Line, lineLength)
}

// Key returns the canonical key for the range.
func (r Range) Key() Key {
	return Key(fmt.Sprintf("%d:%d-%d:%d", r.Start.Line, r.Start.Column, r.End.Line, r.End.Column))
}

func (r Range) String() string { return string(r.Key()) }

// Key is the canonical string form of a Range, "sL:sC-eL:eC". It is the
// primary key of an annotation map and is always derived from a Range.
type Key string

// Range decodes the key. It never panics; malformed keys yield ErrInvalidKey.
func (k Key) Range() (Range, error) {
	return ParseKey(string(k))
}

// Valid reports whether the key decodes.
func (k Key) Valid() bool {
	_, err := ParseKey(string(k))
	return err == nil
}

// ParseKey decodes "sL:sC-eL:eC" into a Range.
func ParseKey(s string) (Range, error) {
	start, end, ok := strings.Cut(s, "-")
	if !ok || strings.Contains(end, "-") {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	sp, err := parsePosition(start)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	ep, err := parsePosition(end)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
	}
	return Range{Start: sp, End: ep}, nil
}

func parsePosition(s string) (Position, error) {
	line, col, ok := strings.Cut(s, ":")
	if !ok || strings.Contains(col, ":") {
		return Position{}, ErrInvalidKey
	}
	l, err := parseComponent(line)
	if err != nil {
		return Position{}, err
	}
	c, err := parseComponent(col)
	if err != nil {
		return Position{}, err
	}
	return Position{Line: l, Column: c}, nil
}

// parseComponent accepts only unsigned decimal digits.
func parseComponent(s string) (int, error) {
	if s == "" {
		return 0, ErrInvalidKey
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, ErrInvalidKey
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrInvalidKey
	}
	return n, nil
}
