package annotation

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode/utf8"
)

const maxDescriptionLength = 60

// Item is one entry of the position-sorted list view.
type Item struct {
	Annotation Annotation `json:"-"`
	Key        Key        `json:"key"`
	Index      int        `json:"index"`
	// Range is nil when Key does not decode.
	Range *Range `json:"range,omitempty"`
}

// Sorted flattens the map into items ordered by start line, start column,
// then list index. Items with an undecodable key sort last.
func Sorted(m Map) []Item {
	items := make([]Item, 0, m.Count())
	for k, list := range m {
		var rp *Range
		if r, err := k.Range(); err == nil {
			rp = &r
		}
		for i, a := range list {
			items = append(items, Item{Annotation: a, Key: k, Index: i, Range: rp})
		}
	}
	slices.SortFunc(items, compareItems)
	return items
}

func compareItems(a, b Item) int {
	if c := cmp.Compare(a.startLine(), b.startLine()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.startColumn(), b.startColumn()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Index, b.Index); c != 0 {
		return c
	}
	// Distinct keys can share a start position (and undecodable keys share
	// the sentinel); order by key so map iteration order never leaks out.
	return cmp.Compare(a.Key, b.Key)
}

func (it Item) startLine() int {
	if it.Range == nil {
		return math.MaxInt
	}
	return it.Range.Start.Line
}

func (it Item) startColumn() int {
	if it.Range == nil {
		return math.MaxInt
	}
	return it.Range.Start.Column
}

// Label is "Line N" or "Lines N-M" (1-based), or "Unknown location".
func (it Item) Label() string {
	if it.Range == nil {
		return "Unknown location"
	}
	start, end := it.Range.Start.Line+1, it.Range.End.Line+1
	if start == end {
		return fmt.Sprintf("Line %d", start)
	}
	return fmt.Sprintf("Lines %d-%d", start, end)
}

// Description is the annotation text on one line, truncated for display.
func (it Item) Description() string {
	normalized := strings.Join(strings.Fields(it.Annotation.Text), " ")
	if utf8.RuneCountInString(normalized) <= maxDescriptionLength {
		return normalized
	}
	runes := []rune(normalized)
	return string(runes[:maxDescriptionLength-1]) + "…"
}

// Decoration is an inline highlight for one annotation.
type Decoration struct {
	Range Range  `json:"range"`
	Hover string `json:"hover"`
}

// Decorations returns one highlight per annotation whose key decodes.
func Decorations(m Map) []Decoration {
	out := make([]Decoration, 0, m.Count())
	for _, it := range Sorted(m) {
		if it.Range == nil {
			continue
		}
		out = append(out, Decoration{Range: *it.Range, Hover: "💬\n" + it.Annotation.Text})
	}
	return out
}
