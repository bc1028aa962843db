package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alimasry/boxesnlines/annotation"
)

type fakeEditor struct {
	doc       string
	selection annotation.Range
	lines     map[int]int
}

func (e *fakeEditor) ActiveDocument() (string, bool) { return e.doc, e.doc != "" }
func (e *fakeEditor) Selection() annotation.Range     { return e.selection }
func (e *fakeEditor) LineLength(line int) int         { return e.lines[line] }

// scriptedPrompt answers prompts from a queue; an exhausted queue cancels.
type scriptedPrompt struct {
	answers  []*string
	err      error
	messages []string
	values   []string
}

func (p *scriptedPrompt) Prompt(_ context.Context, message, value string) (string, bool, error) {
	p.messages = append(p.messages, message)
	p.values = append(p.values, value)
	if p.err != nil {
		return "", false, p.err
	}
	if len(p.answers) == 0 {
		return "", false, nil
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	if a == nil {
		return "", false, nil
	}
	return *a, true, nil
}

func answer(s string) *string { return &s }

func setup(t *testing.T, ed *fakeEditor, p *scriptedPrompt) (*Commands, *recordingRepo) {
	t.Helper()
	repo := newRecordingRepo()
	c := NewCommands(New(repo), ed, p, "ada")
	require.NoError(t, c.FocusChanged(ctx()))
	return c, repo
}

func TestCommands_AddUsesSelection(t *testing.T) {
	sel := annotation.NewRange(2, 3, 2, 9)
	ed := &fakeEditor{doc: "/a.go", selection: sel}
	p := &scriptedPrompt{answers: []*string{answer("note")}}
	c, repo := setup(t, ed, p)

	require.NoError(t, c.AddAnnotation(ctx()))
	assert.Equal(t, []string{"Enter annotation text"}, p.messages)
	assert.Equal(t, 1, repo.sets)
	assert.Equal(t, []annotation.Annotation{annotation.New(sel, "note", "ada")}, c.Service().ForSelection(sel))
}

func TestCommands_AddWidensEmptySelection(t *testing.T) {
	ed := &fakeEditor{
		doc:       "/a.go",
		selection: annotation.NewRange(4, 6, 4, 6),
		lines:     map[int]int{4: 17},
	}
	p := &scriptedPrompt{answers: []*string{answer("")}}
	c, _ := setup(t, ed, p)

	require.NoError(t, c.AddAnnotation(ctx()))
	widened := annotation.NewRange(4, 0, 4, 17)
	list := c.Service().ForSelection(widened)
	require.Len(t, list, 1)
	assert.Equal(t, "", list[0].Text)
}

func TestCommands_AddCancelled(t *testing.T) {
	ed := &fakeEditor{doc: "/a.go", selection: annotation.NewRange(0, 0, 0, 5)}
	p := &scriptedPrompt{answers: []*string{nil}}
	c, repo := setup(t, ed, p)

	require.NoError(t, c.AddAnnotation(ctx()))
	assert.Zero(t, repo.sets)
	assert.Empty(t, c.Service().Annotations())
}

func TestCommands_AddPromptError(t *testing.T) {
	ed := &fakeEditor{doc: "/a.go", selection: annotation.NewRange(0, 0, 0, 5)}
	p := &scriptedPrompt{err: errors.New("ui gone")}
	c, repo := setup(t, ed, p)

	require.ErrorIs(t, c.AddAnnotation(ctx()), p.err)
	assert.Zero(t, repo.sets)
}

func TestCommands_AddNoActiveDocument(t *testing.T) {
	ed := &fakeEditor{selection: annotation.NewRange(0, 0, 0, 5)}
	p := &scriptedPrompt{answers: []*string{answer("x")}}
	c, repo := setup(t, ed, p)

	require.NoError(t, c.AddAnnotation(ctx()))
	assert.Empty(t, p.messages)
	assert.Zero(t, repo.sets)
}

func TestCommands_EditPrefillsText(t *testing.T) {
	sel := annotation.NewRange(1, 0, 1, 4)
	ed := &fakeEditor{doc: "/a.go", selection: sel}
	p := &scriptedPrompt{answers: []*string{answer("before"), answer("after")}}
	c, _ := setup(t, ed, p)
	require.NoError(t, c.AddAnnotation(ctx()))

	items := c.Service().Items()
	require.Len(t, items, 1)
	require.NoError(t, c.EditAnnotation(ctx(), &items[0]))

	assert.Equal(t, "Update annotation text", p.messages[1])
	assert.Equal(t, "before", p.values[1])
	list := c.Service().ForSelection(sel)
	assert.Equal(t, annotation.New(sel, "after", "ada"), list[0])
}

func TestCommands_EditCancelled(t *testing.T) {
	sel := annotation.NewRange(1, 0, 1, 4)
	ed := &fakeEditor{doc: "/a.go", selection: sel}
	p := &scriptedPrompt{answers: []*string{answer("before"), nil}}
	c, repo := setup(t, ed, p)
	require.NoError(t, c.AddAnnotation(ctx()))

	items := c.Service().Items()
	require.NoError(t, c.EditAnnotation(ctx(), &items[0]))
	assert.Equal(t, 1, repo.sets)
	assert.Equal(t, "before", c.Service().ForSelection(sel)[0].Text)
}

func TestCommands_NoItem(t *testing.T) {
	c, _ := setup(t, &fakeEditor{doc: "/a.go"}, &scriptedPrompt{})
	assert.ErrorIs(t, c.EditAnnotation(ctx(), nil), ErrNoItem)
	assert.ErrorIs(t, c.DeleteAnnotation(ctx(), nil), ErrNoItem)
}

func TestCommands_Delete(t *testing.T) {
	sel := annotation.NewRange(1, 0, 1, 4)
	ed := &fakeEditor{doc: "/a.go", selection: sel}
	p := &scriptedPrompt{answers: []*string{answer("gone")}}
	c, _ := setup(t, ed, p)
	require.NoError(t, c.AddAnnotation(ctx()))

	items := c.Service().Items()
	require.NoError(t, c.DeleteAnnotation(ctx(), &items[0]))
	assert.Empty(t, c.Service().Annotations())
}

func TestCommands_Reveal(t *testing.T) {
	c, _ := setup(t, &fakeEditor{doc: "/a.go"}, &scriptedPrompt{})
	r := annotation.NewRange(3, 1, 4, 0)

	got, ok := c.RevealAnnotation(&annotation.Item{Key: r.Key(), Range: &r})
	assert.True(t, ok)
	assert.Equal(t, r, got)

	_, ok = c.RevealAnnotation(&annotation.Item{Key: "bogus"})
	assert.False(t, ok)
	_, ok = c.RevealAnnotation(nil)
	assert.False(t, ok)
}
