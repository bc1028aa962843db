package server

import (
	"log/slog"
	"sync"

	"github.com/alimasry/boxesnlines/service"
	"github.com/alimasry/boxesnlines/store"
)

// Config controls the sessions a Hub creates.
type Config struct {
	// Author is recorded on annotations added without an explicit author.
	Author string
	// Ignore reports documents that are never annotated.
	Ignore func(docID string) bool
	// MessagesPerSecond limits inbound messages per connection; 0 disables.
	MessagesPerSecond float64
	Logger            *slog.Logger
}

// Hub owns the shared repository and one Session per connected client.
// Each session has its own annotation index, so there is no process-wide
// current document.
type Hub struct {
	repo   store.Repository
	cfg    Config
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	// docLocks serializes read-modify-write cycles on one document across sessions.
	locksMu  sync.Mutex
	docLocks map[string]*sync.Mutex
}

func NewHub(repo store.Repository, cfg Config) *Hub {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		repo:     repo,
		cfg:      cfg,
		logger:   logger.With("component", "server"),
		sessions: make(map[string]*Session),
		docLocks: make(map[string]*sync.Mutex),
	}
}

// attach creates and starts the session for a new client.
func (h *Hub) attach(c *Client) *Session {
	svc := service.New(h.repo,
		service.WithLogger(c.logger),
		service.WithIgnore(h.cfg.Ignore),
	)
	s := newSession(h, c, svc, h.cfg.Author)
	c.session = s

	h.mu.Lock()
	h.sessions[c.ID] = s
	h.mu.Unlock()

	go s.Run()
	c.logger.Info("client connected")
	return s
}

// detach stops the client's session and closes its send channel.
func (h *Hub) detach(c *Client) {
	h.mu.Lock()
	s, ok := h.sessions[c.ID]
	delete(h.sessions, c.ID)
	h.mu.Unlock()
	if !ok {
		return
	}
	s.Stop()
	close(c.send)
	c.logger.Info("client disconnected")
}

// GetSession returns the session of a connected client.
func (h *Hub) GetSession(clientID string) *Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sessions[clientID]
}

// SessionCount returns the number of connected clients.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// lockDoc acquires the mutation lock of a document.
func (h *Hub) lockDoc(docID string) func() {
	h.locksMu.Lock()
	l, ok := h.docLocks[docID]
	if !ok {
		l = &sync.Mutex{}
		h.docLocks[docID] = l
	}
	h.locksMu.Unlock()

	l.Lock()
	return l.Unlock
}
