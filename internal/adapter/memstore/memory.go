package memstore

import (
	"fmt"
	"sort"
	"sync"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// MemoryStore is an in-memory document registry for tests and ephemeral runs.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string]domain.Document
	hashes map[string]string
}

var _ port.DocumentStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:   make(map[string]domain.Document),
		hashes: make(map[string]string),
	}
}

func (s *MemoryStore) PutDoc(doc domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[doc.ID]; ok {
		return fmt.Errorf("%w: id %s", domain.ErrDuplicateDocument, doc.ID)
	}
	if existing, ok := s.hashes[doc.Hash]; ok && doc.Hash != "" {
		return fmt.Errorf("%w: same content as %s", domain.ErrDuplicateDocument, existing)
	}
	s.docs[doc.ID] = doc
	if doc.Hash != "" {
		s.hashes[doc.Hash] = doc.ID
	}
	return nil
}

func (s *MemoryStore) GetDoc(id string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return domain.Document{}, fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
	}
	return doc, nil
}

func (s *MemoryStore) DeleteDoc(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc, ok := s.docs[id]; ok {
		delete(s.hashes, doc.Hash)
		delete(s.docs, id)
	}
	return nil
}

func (s *MemoryStore) ListDocs() ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]domain.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		doc.Text = ""
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].IngestedAt.Equal(docs[j].IngestedAt) {
			return docs[i].IngestedAt.Before(docs[j].IngestedAt)
		}
		return docs[i].ID < docs[j].ID
	})
	return docs, nil
}

func (s *MemoryStore) FindByHash(hash string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.hashes[hash]
	return id, ok, nil
}

func (s *MemoryStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

func (s *MemoryStore) Close() error {
	return nil
}
