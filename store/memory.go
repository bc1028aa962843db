package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/alimasry/boxesnlines/annotation"
)

// MemoryStore is an in-memory Repository. Maps are kept in their encoded
// form so reads normalize exactly like FileStore.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]byte)}
}

func (s *MemoryStore) Get(ctx context.Context, fileKey string) (annotation.Map, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, ok := s.docs[Token(fileKey)]
	s.mu.RUnlock()
	if !ok {
		return annotation.Map{}, nil
	}
	m, err := annotation.Decode(data)
	if err != nil {
		return annotation.Map{}, nil
	}
	return m, nil
}

func (s *MemoryStore) Set(ctx context.Context, fileKey string, m annotation.Map) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := annotation.Encode(m)
	if err != nil {
		return fmt.Errorf("encode annotations: %w", err)
	}
	s.mu.Lock()
	s.docs[Token(fileKey)] = data
	s.mu.Unlock()
	return nil
}

// Len returns the number of documents stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
