package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory document store for development and tests.
// Contents are lost when the process exits.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]*Document
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*Document)}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, nil
	}
	copy := *doc
	copy.Diagram = doc.Diagram.Clone()
	return &copy, nil
}

func (s *MemoryStore) Put(ctx context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *doc
	copy.Diagram = doc.Diagram.Clone()
	s.docs[doc.ID] = &copy
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.docs, id)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Document, 0, len(s.docs))
	for _, doc := range s.docs {
		copy := *doc
		copy.Diagram = doc.Diagram.Clone()
		out = append(out, &copy)
	}
	return out, nil
}
