package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/alimasry/boxesnlines/annotation"
	"github.com/alimasry/boxesnlines/service"
)

// argEditor stands in for the host editor: the document and selection come
// from the command line.
type argEditor struct {
	doc        string
	selection  annotation.Range
	lineLength int
}

func (e argEditor) ActiveDocument() (string, bool) { return e.doc, e.doc != "" }
func (e argEditor) Selection() annotation.Range { return e.selection }
func (e argEditor) LineLength(int) int { return e.lineLength }

// stdinPrompt reads the annotation text from r. Empty input dismisses the prompt.
type stdinPrompt struct {
	r io.Reader
}

func (p stdinPrompt) Prompt(ctx context.Context, _, _ string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	data, err := io.ReadAll(bufio.NewReader(p.r))
	if err != nil {
		return "", false, err
	}
	if len(data) == 0 {
		return "", false, nil
	}
	text := strings.TrimSuffix(string(data), "\n")
	return strings.TrimSuffix(text, "\r"), true, nil
}

// commands builds the command set for doc, already focused.
func (e *env) commands(ctx context.Context, doc string, ed argEditor, author string) (*service.Commands, error) {
	abs, err := filepath.Abs(doc)
	if err != nil {
		return nil, err
	}
	ed.doc = abs
	svc := service.New(e.files, service.WithLogger(e.logger), service.WithIgnore(e.cfg.Ignored))
	if author == "" {
		author = e.cfg.Author
	}
	cmds := service.NewCommands(svc, ed, stdinPrompt{r: e.stdin}, author)
	if err := cmds.FocusChanged(ctx); err != nil {
		return nil, err
	}
	if svc.ActiveDocument() == "" {
		return nil, fmt.Errorf("%s is ignored by the workspace configuration", doc)
	}
	return cmds, nil
}

func (e *env) list(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: list <doc>")
	}
	cmds, err := e.commands(ctx, args[0], argEditor{}, "")
	if err != nil {
		return err
	}
	svc := cmds.Service()
	items := svc.Items()
	if len(items) == 0 {
		fmt.Fprintln(e.stdout, svc.StatusMessage())
		return nil
	}
	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", it.Label(), it.Key, it.Index, it.Annotation.Author, it.Description())
	}
	return tw.Flush()
}

func (e *env) add(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	lineLength := fs.Int("line-length", 0, "length of the line, used to widen an empty range")
	author := fs.String("author", "", "author recorded on the annotation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("usage: add [-line-length n] [-author a] <doc> <range-key>")
	}
	r, err := annotation.ParseKey(fs.Arg(1))
	if err != nil {
		return err
	}
	cmds, err := e.commands(ctx, fs.Arg(0), argEditor{selection: r, lineLength: *lineLength}, *author)
	if err != nil {
		return err
	}
	before := cmds.Service().Annotations().Count()
	if err := cmds.AddAnnotation(ctx); err != nil {
		return err
	}
	if cmds.Service().Annotations().Count() == before {
		fmt.Fprintln(e.stdout, "cancelled")
	}
	return nil
}

func (e *env) edit(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return errors.New("usage: edit <doc> <key> <index>")
	}
	cmds, item, err := e.lookup(ctx, args)
	if err != nil {
		return err
	}
	return cmds.EditAnnotation(ctx, item)
}

func (e *env) delete(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return errors.New("usage: delete <doc> <key> <index>")
	}
	cmds, item, err := e.lookup(ctx, args)
	if err != nil {
		return err
	}
	return cmds.DeleteAnnotation(ctx, item)
}

// lookup resolves <doc> <key> <index> to a list item.
func (e *env) lookup(ctx context.Context, args []string) (*service.Commands, *annotation.Item, error) {
	index, err := strconv.Atoi(args[2])
	if err != nil {
		return nil, nil, fmt.Errorf("invalid index %q: %w", args[2], err)
	}
	cmds, err := e.commands(ctx, args[0], argEditor{}, "")
	if err != nil {
		return nil, nil, err
	}
	key := annotation.Key(args[1])
	for _, it := range cmds.Service().Items() {
		if it.Key == key && it.Index == index {
			return cmds, &it, nil
		}
	}
	return nil, nil, fmt.Errorf("%s #%d: %w", key, index, service.ErrNoItem)
}
