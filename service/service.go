package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alimasry/boxesnlines/annotation"
	"github.com/alimasry/boxesnlines/store"
)

// Service is the in-memory annotation index of the active document.
//
// Every mutation writes the whole map through the repository and then
// reloads it, so memory always reflects what storage returns. A Service is
// not safe for concurrent use: callers serialize calls, and only one
// Service should mutate a given document at a time.
type Service struct {
	repo    store.Repository
	logger  *slog.Logger
	ignored func(docID string) bool

	active      string
	annotations annotation.Map
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIgnore installs a predicate for documents that must never be
// annotated. Focusing such a document behaves like having none active.
func WithIgnore(fn func(docID string) bool) Option {
	return func(s *Service) { s.ignored = fn }
}

// New creates a Service with no active document.
func New(repo store.Repository, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		logger:      slog.Default(),
		annotations: annotation.Map{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "service")
	return s
}

// ActiveDocument returns the active document, or "" if there is none.
func (s *Service) ActiveDocument() string { return s.active }

// Refresh makes docID the active document and loads its annotations.
// An empty docID means no document is active and clears the index. If the
// load fails, no document is active afterwards.
func (s *Service) Refresh(ctx context.Context, docID string) error {
	if docID != "" && s.ignored != nil && s.ignored(docID) {
		s.logger.DebugContext(ctx, "document ignored", "doc", docID)
		docID = ""
	}
	s.active = docID
	return s.reload(ctx)
}

// reload re-reads the active document from the repository.
func (s *Service) reload(ctx context.Context) error {
	if s.active == "" {
		s.annotations = annotation.Map{}
		return nil
	}
	m, err := s.repo.Get(ctx, s.active)
	if err != nil {
		// A failed load leaves no document active.
		doc := s.active
		s.active = ""
		s.annotations = annotation.Map{}
		return fmt.Errorf("load annotations for %q: %w", doc, err)
	}
	s.annotations = m
	s.logger.DebugContext(ctx, "annotations loaded", "doc", s.active, "count", m.Count())
	return nil
}

// Annotations returns a copy of the active document's annotations.
func (s *Service) Annotations() annotation.Map {
	return s.annotations.Clone()
}

// ForSelection returns the annotations on exactly this range. The result
// is never nil.
func (s *Service) ForSelection(r annotation.Range) []annotation.Annotation {
	return s.annotations.Get(r.Key())
}

// Items returns the position-sorted list view of the active document.
func (s *Service) Items() []annotation.Item {
	return annotation.Sorted(s.annotations)
}

// Add appends a to the list at its range key. It does nothing when no
// document is active.
func (s *Service) Add(ctx context.Context, a annotation.Annotation) error {
	if s.active == "" {
		return nil
	}
	next := s.annotations.Clone()
	k := a.Key()
	next[k] = append(next[k], a)
	return s.commit(ctx, next, "add", k)
}

// Update replaces the text of one annotation, keeping its range and author.
// A missing key or index is a no-op.
func (s *Service) Update(ctx context.Context, k annotation.Key, index int, text string) error {
	if s.active == "" || !s.exists(k, index) {
		return nil
	}
	next := s.annotations.Clone()
	next[k][index].Text = text
	return s.commit(ctx, next, "update", k)
}

// Delete removes one annotation. A key whose list becomes empty is removed.
// A missing key or index is a no-op.
func (s *Service) Delete(ctx context.Context, k annotation.Key, index int) error {
	if s.active == "" || !s.exists(k, index) {
		return nil
	}
	next := s.annotations.Clone()
	list := next[k]
	list = append(list[:index], list[index+1:]...)
	if len(list) == 0 {
		delete(next, k)
	} else {
		next[k] = list
	}
	return s.commit(ctx, next, "delete", k)
}

func (s *Service) exists(k annotation.Key, index int) bool {
	list, ok := s.annotations[k]
	return ok && index >= 0 && index < len(list)
}

// commit persists next and reloads. On a failed write the index is left as it was.
func (s *Service) commit(ctx context.Context, next annotation.Map, op string, k annotation.Key) error {
	if err := s.repo.Set(ctx, s.active, next); err != nil {
		s.logger.ErrorContext(ctx, op+" failed", "doc", s.active, "key", string(k), "error", err)
		return fmt.Errorf("%s annotation: %w", op, err)
	}
	s.logger.DebugContext(ctx, op+" committed", "doc", s.active, "key", string(k))
	return s.reload(ctx)
}

// StatusMessage is the list view's placeholder text, or "" when there is
// something to show.
func (s *Service) StatusMessage() string {
	switch {
	case s.active == "":
		return "Open a file to view annotations"
	case s.annotations.Count() == 0:
		return "No annotations for this file"
	default:
		return ""
	}
}
