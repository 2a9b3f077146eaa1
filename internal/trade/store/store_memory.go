package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tradevault/internal/trade/models"
	id "tradevault/pkg/domain"
	"tradevault/pkg/platform/sentinel"
)

// InMemoryStore keeps trades in process memory. The store lock serializes
// transitions, which is exactly the per-trade mutual exclusion the postgres
// store gets from row locks.
type InMemoryStore struct {
	mu       sync.RWMutex
	trades   map[id.TradeID]models.Trade
	byNumber map[string]id.TradeID
	history  []models.StatusHistory
	lastAt   map[id.TradeID]time.Time
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		trades:   make(map[id.TradeID]models.Trade),
		byNumber: make(map[string]id.TradeID),
		lastAt:   make(map[id.TradeID]time.Time),
	}
}

func (s *InMemoryStore) Create(_ context.Context, trade *models.Trade, initial *models.StatusHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.trades[trade.ID]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byNumber[trade.TradeNumber]; exists {
		return sentinel.ErrConflict
	}
	now := time.Now()
	if trade.CreatedAt.IsZero() {
		trade.CreatedAt = now
	}
	trade.UpdatedAt = trade.CreatedAt
	s.trades[trade.ID] = *trade
	s.byNumber[trade.TradeNumber] = trade.ID
	s.appendHistoryLocked(trade.ID, initial)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, tradeID id.TradeID) (*models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	trade, ok := s.trades[tradeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &trade, nil
}

func (s *InMemoryStore) List(_ context.Context, filter ListFilter) ([]models.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Trade
	for _, t := range s.trades {
		if filter.ParticipantID != nil && !isParticipant(&t, *filter.ParticipantID) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].TradeNumber > out[j].TradeNumber
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) Transition(_ context.Context, tradeID id.TradeID, fn TransitionFunc) (*models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trade, ok := s.trades[tradeID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	history, err := fn(&trade)
	if err != nil {
		return nil, err
	}
	trade.UpdatedAt = time.Now()
	s.trades[tradeID] = trade
	if history != nil {
		s.appendHistoryLocked(tradeID, history)
	}
	out := trade
	return &out, nil
}

func (s *InMemoryStore) ListHistory(_ context.Context, tradeID id.TradeID) ([]models.StatusHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.StatusHistory
	for _, h := range s.history {
		if h.TradeID == tradeID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// appendHistoryLocked assigns id and a strictly increasing per-trade
// timestamp; callers hold the write lock.
func (s *InMemoryStore) appendHistoryLocked(tradeID id.TradeID, h *models.StatusHistory) {
	now := time.Now()
	if last, ok := s.lastAt[tradeID]; ok && !now.After(last) {
		now = last.Add(time.Microsecond)
	}
	h.ID = uuid.New()
	h.TradeID = tradeID
	h.CreatedAt = now
	s.lastAt[tradeID] = now
	s.history = append(s.history, *h)
}

func isParticipant(t *models.Trade, userID id.UserID) bool {
	if t.BuyerID == userID || t.SellerID == userID {
		return true
	}
	return t.BankID != nil && *t.BankID == userID
}
