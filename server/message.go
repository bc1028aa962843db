package server

import (
	"encoding/json"

	"github.com/alimasry/boxesnlines/annotation"
)

// Message types exchanged over WebSocket.
const (
	MsgFocus       = "focus"
	MsgAdd         = "add"
	MsgUpdate      = "update"
	MsgDelete      = "delete"
	MsgSelection   = "selection"
	MsgList        = "list"
	MsgAnnotations = "annotations"
	MsgError       = "error"
)

// ClientMessage is a message from the editor to the server.
type ClientMessage struct {
	Type  string            `json:"type"`
	DocID string            `json:"docId,omitempty"`
	Range *annotation.Range `json:"range,omitempty"`
	// LineLength widens an empty add range to the whole line.
	LineLength int            `json:"lineLength,omitempty"`
	Key        annotation.Key `json:"key,omitempty"`
	Index      int            `json:"index"`
	// Text is nil when the user dismissed the input prompt.
	Text   *string `json:"text,omitempty"`
	Author string  `json:"author,omitempty"`
}

// ServerMessage is a message from the server to the editor.
type ServerMessage struct {
	Type        string                  `json:"type"`
	DocID       string                  `json:"docId,omitempty"`
	ClientID    string                  `json:"clientId,omitempty"`
	Items       []ItemView              `json:"items,omitempty"`
	Decorations []annotation.Decoration `json:"decorations,omitempty"`
	Annotations []AnnotationView        `json:"annotations,omitempty"`
	Status      string                  `json:"status,omitempty"`
	Message     string                  `json:"message,omitempty"`
}

// ItemView is one row of the list view.
type ItemView struct {
	Key         annotation.Key    `json:"key"`
	Index       int               `json:"index"`
	Range       *annotation.Range `json:"range,omitempty"`
	Label       string            `json:"label"`
	Description string            `json:"description"`
	Text        string            `json:"text"`
	Author      string            `json:"author"`
}

// AnnotationView is an annotation returned for a selection lookup.
type AnnotationView struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

func itemViews(items []annotation.Item) []ItemView {
	views := make([]ItemView, len(items))
	for i, it := range items {
		views[i] = ItemView{
			Key:         it.Key,
			Index:       it.Index,
			Range:       it.Range,
			Label:       it.Label(),
			Description: it.Description(),
			Text:        it.Annotation.Text,
			Author:      it.Annotation.Author,
		}
	}
	return views
}

// Encode serializes a ServerMessage to JSON bytes.
func (m ServerMessage) Encode() []byte {
	b, _ := json.Marshal(m)
	return b
}
