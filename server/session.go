package server

import (
	"context"
	"sync"

	"github.com/alimasry/boxesnlines/annotation"
	"github.com/alimasry/boxesnlines/service"
)

// Session is the annotation context of one client. All messages of the
// client are handled by a single goroutine, which keeps mutations on its
// index strictly sequential.
type Session struct {
	hub    *Hub
	client *Client
	svc    *service.Service
	author string

	incoming chan ClientMessage
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func newSession(hub *Hub, c *Client, svc *service.Service, author string) *Session {
	return &Session{
		hub:      hub,
		client:   c,
		svc:      svc,
		author:   author,
		incoming: make(chan ClientMessage, 64),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run is the session's main loop.
func (s *Session) Run() {
	defer close(s.done)
	for {
		select {
		case msg := <-s.incoming:
			s.handle(context.Background(), msg)
		case <-s.stop:
			return
		}
	}
}

// Stop ends the main loop and waits for the message in flight to finish.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

// Service exposes the session's annotation index.
func (s *Session) Service() *service.Service { return s.svc }

func (s *Session) handle(ctx context.Context, msg ClientMessage) {
	var err error
	switch msg.Type {
	case MsgFocus:
		err = s.svc.Refresh(ctx, msg.DocID)
	case MsgList:
	case MsgAdd:
		if msg.Range == nil {
			s.client.sendError("add requires a range")
			return
		}
		if msg.Text != nil {
			err = s.mutate(ctx, func() error {
				r := *msg.Range
				if r.IsEmpty() && msg.LineLength > 0 {
					r = r.WidenToLine(msg.LineLength)
				}
				author := msg.Author
				if author == "" {
					author = s.author
				}
				return s.svc.Add(ctx, annotation.New(r, *msg.Text, author))
			})
		}
	case MsgUpdate:
		if msg.Text != nil {
			err = s.mutate(ctx, func() error {
				return s.svc.Update(ctx, msg.Key, msg.Index, *msg.Text)
			})
		}
	case MsgDelete:
		err = s.mutate(ctx, func() error {
			return s.svc.Delete(ctx, msg.Key, msg.Index)
		})
	case MsgSelection:
		if msg.Range == nil {
			s.client.sendError("selection requires a range")
			return
		}
		s.client.sendMsg(s.selection(*msg.Range))
		return
	default:
		s.client.sendError("unknown message type: " + msg.Type)
		return
	}

	if err != nil {
		s.client.logger.Error("request failed", "type", msg.Type, "error", err)
		s.client.sendError(msg.Type + " failed: " + err.Error())
	}
	s.client.sendMsg(s.snapshot())
}

// mutate runs fn under the active document's lock, on a freshly loaded index.
func (s *Session) mutate(ctx context.Context, fn func() error) error {
	doc := s.svc.ActiveDocument()
	if doc == "" {
		return nil
	}
	unlock := s.hub.lockDoc(doc)
	defer unlock()
	if err := s.svc.Refresh(ctx, doc); err != nil {
		return err
	}
	return fn()
}

func (s *Session) snapshot() ServerMessage {
	return ServerMessage{
		Type:        MsgAnnotations,
		DocID:       s.svc.ActiveDocument(),
		ClientID:    s.client.ID,
		Items:       itemViews(s.svc.Items()),
		Decorations: annotation.Decorations(s.svc.Annotations()),
		Status:      s.svc.StatusMessage(),
	}
}

func (s *Session) selection(r annotation.Range) ServerMessage {
	list := s.svc.ForSelection(r)
	views := make([]AnnotationView, len(list))
	for i, a := range list {
		views[i] = AnnotationView{Text: a.Text, Author: a.Author}
	}
	return ServerMessage{
		Type:        MsgSelection,
		DocID:       s.svc.ActiveDocument(),
		Annotations: views,
	}
}
