package annotation

import (
	"bytes"
	"encoding/json"
)

// DefaultAuthor is recorded when an annotation is created or loaded without an author.
const DefaultAuthor = "TODO"

// Annotation is a free-text note attached to a range of a document. It has
// no identity of its own beyond the key of its range.
type Annotation struct {
	Range  Range
	Text   string
	Author string
}

// New creates an annotation. Empty text is allowed; an empty author is
// replaced by DefaultAuthor.
func New(r Range, text, author string) Annotation {
	if author == "" {
		author = DefaultAuthor
	}
	return Annotation{Range: r, Text: text, Author: author}
}

// Key returns the key of the annotation's range.
func (a Annotation) Key() Key {
	return a.Range.Key()
}

// entry is the persisted shape of an annotation. The range lives in the
// enclosing map key.
type entry struct {
	Text   string `json:"text"`
	Author string `json:"author,omitempty"`
}

// UnmarshalJSON accepts an object, a legacy bare string, or anything else.
// Anything it cannot interpret becomes an empty-text entry rather than an error.
func (e *entry) UnmarshalJSON(data []byte) error {
	*e = entry{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			e.Text = s
		}
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil
		}
		if raw, ok := obj["text"]; ok {
			var s string
			if json.Unmarshal(raw, &s) == nil {
				e.Text = s
			}
		}
		if raw, ok := obj["author"]; ok {
			var s string
			if json.Unmarshal(raw, &s) == nil {
				e.Author = s
			}
		}
	}
	return nil
}

func (e entry) annotation(r Range) Annotation {
	return New(r, e.Text, e.Author)
}

func entryOf(a Annotation) entry {
	author := a.Author
	if author == "" {
		author = DefaultAuthor
	}
	return entry{Text: a.Text, Author: author}
}
