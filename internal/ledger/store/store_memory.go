package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tradevault/internal/ledger/models"
	id "tradevault/pkg/domain"
	"tradevault/pkg/platform/sentinel"
)

// InMemoryStore keeps ledger entries in process memory. Appends assign
// strictly increasing timestamps per document under the store lock, matching
// the ordering guarantee the postgres store gets from server-side clocks.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []models.Entry
	lastAt  map[id.DocumentID]time.Time
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{lastAt: make(map[id.DocumentID]time.Time)}
}

func (s *InMemoryStore) Append(_ context.Context, entry *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if last, ok := s.lastAt[entry.DocumentID]; ok && !now.After(last) {
		now = last.Add(time.Microsecond)
	}
	entry.ID = id.LedgerEntryID(uuid.New())
	entry.CreatedAt = now
	s.lastAt[entry.DocumentID] = now
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *InMemoryStore) BackfillHashBefore(_ context.Context, entryID id.LedgerEntryID, hashBefore id.Digest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.entries {
		if s.entries[i].ID == entryID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return sentinel.ErrNotFound
	}
	target := &s.entries[idx]
	// Only the document's most recent entry may be amended, and only once.
	for i := range s.entries {
		if s.entries[i].DocumentID == target.DocumentID && s.entries[i].CreatedAt.After(target.CreatedAt) {
			return sentinel.ErrInvalidState
		}
	}
	if target.HashBefore != nil {
		return sentinel.ErrInvalidState
	}
	target.HashBefore = &hashBefore
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, entryID id.LedgerEntryID) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.entries {
		if s.entries[i].ID == entryID {
			out := s.entries[i]
			return &out, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListForDocument(_ context.Context, docID id.DocumentID) ([]models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Entry
	for _, e := range s.entries {
		if e.DocumentID == docID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) ListForOrg(_ context.Context, org string, filter models.Filter, page models.Page) ([]models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Entry
	for _, e := range s.entries {
		if org != "" && e.Org != org {
			continue
		}
		if filter.DocumentID != nil && e.DocumentID != *filter.DocumentID {
			continue
		}
		if filter.Kind != nil && e.Kind != *filter.Kind {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	limit := page.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if page.Offset >= len(out) {
		return nil, nil
	}
	out = out[page.Offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) Stats(_ context.Context, org string, now time.Time) (*models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &models.Stats{CountsByKind: make(map[models.EventKind]int)}
	perDoc := make(map[id.DocumentID]int)
	cutoff := now.Add(-24 * time.Hour)

	for _, e := range s.entries {
		if org != "" && e.Org != org {
			continue
		}
		stats.TotalEntries++
		stats.CountsByKind[e.Kind]++
		if e.CreatedAt.After(cutoff) {
			stats.Last24hCount++
		}
		perDoc[e.DocumentID]++
	}

	for docID, count := range perDoc {
		stats.TopDocuments = append(stats.TopDocuments, models.DocumentActivity{DocumentID: docID, EntryCount: count})
	}
	sort.Slice(stats.TopDocuments, func(i, j int) bool {
		if stats.TopDocuments[i].EntryCount == stats.TopDocuments[j].EntryCount {
			return stats.TopDocuments[i].DocumentID.String() < stats.TopDocuments[j].DocumentID.String()
		}
		return stats.TopDocuments[i].EntryCount > stats.TopDocuments[j].EntryCount
	})
	if len(stats.TopDocuments) > 5 {
		stats.TopDocuments = stats.TopDocuments[:5]
	}
	return stats, nil
}
