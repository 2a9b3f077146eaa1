// Package store persists trades and their append-only status history.
// Status moves happen under per-trade mutual exclusion so two concurrent
// transitions cannot both start from the same stale status.
package store

import (
	"context"

	"tradevault/internal/trade/models"
	id "tradevault/pkg/domain"
)

// ListFilter narrows trade listings. A nil ParticipantID lists all trades.
type ListFilter struct {
	ParticipantID *id.UserID
}

// TransitionFunc inspects and mutates a trade while the store holds its
// lock. Returning a non-nil history row records it atomically with the
// trade update; returning an error abandons the whole transition.
type TransitionFunc func(t *models.Trade) (*models.StatusHistory, error)

type Store interface {
	// Create persists the trade and its initial history row atomically.
	// A duplicate trade number yields sentinel.ErrConflict.
	Create(ctx context.Context, trade *models.Trade, initial *models.StatusHistory) error
	FindByID(ctx context.Context, tradeID id.TradeID) (*models.Trade, error)
	// List returns trades newest first, restricted to those where the
	// participant is buyer, seller, or assigned bank when a filter is set.
	List(ctx context.Context, filter ListFilter) ([]models.Trade, error)
	// Transition loads the trade under its lock, applies fn, and persists
	// the mutated trade plus any returned history row in one atomic step.
	Transition(ctx context.Context, tradeID id.TradeID, fn TransitionFunc) (*models.Trade, error)
	// ListHistory returns a trade's status history oldest first.
	ListHistory(ctx context.Context, tradeID id.TradeID) ([]models.StatusHistory, error)
}
