package store

import (
	"context"
	"sort"
	"sync"

	"tradevault/internal/document/models"
	id "tradevault/pkg/domain"
	"tradevault/pkg/platform/sentinel"
)

// InMemoryStore keeps documents in process memory for unit tests and local
// development. Digest uniqueness is enforced under the store lock, mirroring
// the unique constraint the postgres store relies on.
type InMemoryStore struct {
	mu       sync.RWMutex
	docs     map[id.DocumentID]models.Document
	byDigest map[id.Digest]id.DocumentID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		docs:     make(map[id.DocumentID]models.Document),
		byDigest: make(map[id.Digest]id.DocumentID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byDigest[doc.Digest]; exists {
		return sentinel.ErrConflict
	}
	s.docs[doc.ID] = *doc
	s.byDigest[doc.Digest] = doc.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, docID id.DocumentID) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[docID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := doc
	return &out, nil
}

func (s *InMemoryStore) FindByDigest(_ context.Context, digest id.Digest) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docID, ok := s.byDigest[digest]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	doc := s.docs[docID]
	out := doc
	return &out, nil
}

func (s *InMemoryStore) Update(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.docs[doc.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if doc.Digest != prev.Digest {
		if _, exists := s.byDigest[doc.Digest]; exists {
			return sentinel.ErrConflict
		}
		delete(s.byDigest, prev.Digest)
		s.byDigest[doc.Digest] = doc.ID
	}
	s.docs[doc.ID] = *doc
	return nil
}

func (s *InMemoryStore) ListByOrg(_ context.Context, org string) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Document
	for _, doc := range s.docs {
		if doc.Org == org {
			out = append(out, doc)
		}
	}
	sortByCreation(out)
	return out, nil
}

func (s *InMemoryStore) ListAll(_ context.Context) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, doc)
	}
	sortByCreation(out)
	return out, nil
}

func sortByCreation(docs []models.Document) {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID.String() < docs[j].ID.String()
		}
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})
}
