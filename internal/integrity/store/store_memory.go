package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tradevault/internal/integrity/models"
	id "tradevault/pkg/domain"
	"tradevault/pkg/platform/sentinel"
)

// InMemoryStore keeps checks and alerts in process memory.
type InMemoryStore struct {
	mu     sync.RWMutex
	checks map[id.CheckID]models.Check
	alerts map[id.AlertID]models.Alert
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		checks: make(map[id.CheckID]models.Check),
		alerts: make(map[id.AlertID]models.Alert),
	}
}

func (s *InMemoryStore) CreateCheck(_ context.Context, check *models.Check) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	check.ID = id.CheckID(uuid.New())
	check.CreatedAt = time.Now()
	s.checks[check.ID] = *check
	return nil
}

func (s *InMemoryStore) UpdateCheck(_ context.Context, check *models.Check) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.checks[check.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.checks[check.ID] = *check
	return nil
}

func (s *InMemoryStore) ListChecks(_ context.Context, filter models.CheckFilter, page models.Page) ([]models.Check, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Check
	for _, c := range s.checks {
		if filter.DocumentID != nil && c.DocumentID != *filter.DocumentID {
			continue
		}
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() > out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, page), nil
}

func (s *InMemoryStore) CreateAlert(_ context.Context, alert *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	alert.ID = id.AlertID(uuid.New())
	alert.CreatedAt = time.Now()
	s.alerts[alert.ID] = *alert
	return nil
}

func (s *InMemoryStore) FindAlert(_ context.Context, alertID id.AlertID) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	alert, ok := s.alerts[alertID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &alert, nil
}

func (s *InMemoryStore) UpdateAlert(_ context.Context, alert *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts[alert.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.alerts[alert.ID] = *alert
	return nil
}

func (s *InMemoryStore) ListAlerts(_ context.Context, filter models.AlertFilter, page models.Page) ([]models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Alert
	for _, a := range s.alerts {
		if filter.Acknowledged != nil && a.Acknowledged != *filter.Acknowledged {
			continue
		}
		if filter.Type != nil && a.Type != *filter.Type {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() > out[j].ID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, page), nil
}

func paginate[T any](items []T, page models.Page) []T {
	limit := page.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if page.Offset >= len(items) {
		return nil
	}
	items = items[page.Offset:]
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}
