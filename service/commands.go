package service

import (
	"context"
	"errors"

	"github.com/alimasry/boxesnlines/annotation"
)

// ErrNoItem is returned by item commands invoked without a selected list item.
var ErrNoItem = errors.New("no annotation selected")

// Editor exposes the host editor's state.
type Editor interface {
	// ActiveDocument returns the absolute path of the focused document.
	ActiveDocument() (string, bool)
	// Selection returns the current selection in the active document.
	Selection() annotation.Range
	// LineLength returns the length of a line in the active document.
	LineLength(line int) int
}

// Prompter asks the user for text. ok is false when the prompt was dismissed.
type Prompter interface {
	Prompt(ctx context.Context, message, value string) (text string, ok bool, err error)
}

// Commands implements the user-facing annotation flows on top of a Service.
type Commands struct {
	svc    *Service
	editor Editor
	prompt Prompter
	author string
}

// NewCommands binds svc to the editor and prompt collaborators. author is
// recorded on new annotations; empty means annotation.DefaultAuthor.
func NewCommands(svc *Service, editor Editor, prompt Prompter, author string) *Commands {
	return &Commands{svc: svc, editor: editor, prompt: prompt, author: author}
}

// Service returns the underlying service.
func (c *Commands) Service() *Service { return c.svc }

// FocusChanged refreshes the service for whatever document is now active.
func (c *Commands) FocusChanged(ctx context.Context) error {
	doc, ok := c.editor.ActiveDocument()
	if !ok {
		doc = ""
	}
	return c.svc.Refresh(ctx, doc)
}

// AddAnnotation annotates the current selection, widened to the full line
// when it is empty. A dismissed prompt abandons the command.
func (c *Commands) AddAnnotation(ctx context.Context) error {
	if _, ok := c.editor.ActiveDocument(); !ok {
		return nil
	}
	sel := c.editor.Selection()
	if sel.IsEmpty() {
		sel = sel.WidenToLine(c.editor.LineLength(sel.End.Line))
	}

	text, ok, err := c.prompt.Prompt(ctx, "Enter annotation text", "")
	if err != nil || !ok {
		return err
	}
	return c.svc.Add(ctx, annotation.New(sel, text, c.author))
}

// EditAnnotation prompts for new text for item, prefilled with the current text.
func (c *Commands) EditAnnotation(ctx context.Context, item *annotation.Item) error {
	if item == nil {
		return ErrNoItem
	}
	text, ok, err := c.prompt.Prompt(ctx, "Update annotation text", item.Annotation.Text)
	if err != nil || !ok {
		return err
	}
	return c.svc.Update(ctx, item.Key, item.Index, text)
}

// DeleteAnnotation removes item.
func (c *Commands) DeleteAnnotation(ctx context.Context, item *annotation.Item) error {
	if item == nil {
		return ErrNoItem
	}
	return c.svc.Delete(ctx, item.Key, item.Index)
}

// RevealAnnotation returns the range to select for item. ok is false when
// the item's location is unknown.
func (c *Commands) RevealAnnotation(item *annotation.Item) (annotation.Range, bool) {
	if item == nil || item.Range == nil {
		return annotation.Range{}, false
	}
	return *item.Range, true
}
