package service

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"tradevault/internal/trade/models"
	"tradevault/internal/trade/store"
	id "tradevault/pkg/domain"
	dErrors "tradevault/pkg/domain-errors"
	"tradevault/pkg/platform/sentinel"
)

var tradeTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tradevault_trade_transitions_total",
	Help: "Total trade status transitions applied, by target status",
}, []string{"to"})

// Service drives the trade workflow. Every status move goes through the
// transition table; document-driven auto-advances use the same table as
// manual status calls.
type Service struct {
	store store.Store
	log   *slog.Logger
}

func New(trades store.Store, log *slog.Logger) (*Service, error) {
	if trades == nil {
		return nil, errors.New("trade store is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: trades, log: log}, nil
}

// CreateInput is what a buyer supplies to initiate a trade.
type CreateInput struct {
	SellerID    id.UserID
	SellerOrg   string
	Description string
	Amount      decimal.Decimal
	Currency    string
}

// Create initiates a trade on behalf of the acting buyer. The trade starts
// in INITIATED with a matching history row.
func (s *Service) Create(ctx context.Context, actor id.Actor, in CreateInput) (*models.Trade, error) {
	if actor.Role != id.RoleCorporate && actor.Role != id.RoleBank {
		return nil, dErrors.New(dErrors.CodeForbidden, "only corporate or bank users can initiate trades")
	}
	if in.SellerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "seller is required")
	}
	if in.SellerID == actor.UserID {
		return nil, dErrors.New(dErrors.CodeBadRequest, "cannot create trade with yourself")
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "trade description is required")
	}
	if !in.Amount.IsPositive() {
		return nil, dErrors.New(dErrors.CodeValidation, "trade amount must be positive")
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "USD"
	}
	if len(currency) != 3 {
		return nil, dErrors.New(dErrors.CodeValidation, "currency must be a 3-letter code")
	}

	trade := &models.Trade{
		ID:          id.TradeID(uuid.New()),
		TradeNumber: newTradeNumber(),
		BuyerID:     actor.UserID,
		BuyerOrg:    actor.Org,
		SellerID:    in.SellerID,
		SellerOrg:   in.SellerOrg,
		Description: in.Description,
		Amount:      in.Amount,
		Currency:    currency,
		Status:      models.StatusInitiated,
	}
	initial := &models.StatusHistory{
		Status:    models.StatusInitiated,
		ChangedBy: actor.UserID,
		Remarks:   "Trade initiated by buyer",
	}
	if err := s.store.Create(ctx, trade, initial); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "trade number already in use")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create trade")
	}
	s.log.InfoContext(ctx, "trade created",
		"trade_id", trade.ID.String(),
		"trade_number", trade.TradeNumber,
		"buyer_id", actor.UserID.String(),
	)
	tradeTransitions.WithLabelValues(string(models.StatusInitiated)).Inc()
	return trade, nil
}

// Transition applies a manual status change. The actor's role in the trade
// is resolved against the trade's parties, the table decides legality, and
// status plus history commit atomically under the trade's lock.
func (s *Service) Transition(ctx context.Context, actor id.Actor, tradeID id.TradeID, to models.TradeStatus, remarks string) (*models.Trade, *models.StatusChange, error) {
	if !to.IsValid() {
		return nil, nil, dErrors.New(dErrors.CodeValidation, "invalid trade status: "+string(to))
	}

	var change models.StatusChange
	trade, err := s.store.Transition(ctx, tradeID, func(t *models.Trade) (*models.StatusHistory, error) {
		party := t.PartyRoleOf(actor)
		if party == models.PartyNone {
			return nil, dErrors.New(dErrors.CodeForbidden, "you are not authorized to update this trade")
		}
		if !models.CanTransition(t.Status, party, to) {
			return nil, models.IllegalTransitionError(t.Status, party, to)
		}
		change = models.StatusChange{
			TradeID:     t.ID,
			TradeNumber: t.TradeNumber,
			From:        t.Status,
			To:          to,
		}
		s.apply(t, actor, to)
		if remarks == "" {
			remarks = "Status changed to " + string(to)
		}
		return &models.StatusHistory{Status: to, ChangedBy: actor.UserID, Remarks: remarks}, nil
	})
	if err != nil {
		return nil, nil, s.transitionErr(err)
	}
	tradeTransitions.WithLabelValues(string(to)).Inc()
	return trade, &change, nil
}

// DocumentUploaded evaluates the document-driven auto-advance after an
// upload lands on a trade. A seller upload from INITIATED or
// SELLER_CONFIRMED advances the trade to DOCUMENTS_UPLOADED; a seller
// re-upload while already DOCUMENTS_UPLOADED is the table's self-transition
// and keeps its history trail. Uploads by other parties, or in any other
// status, change nothing and return a nil change.
func (s *Service) DocumentUploaded(ctx context.Context, actor id.Actor, tradeID id.TradeID) (*models.Trade, *models.StatusChange, error) {
	var change *models.StatusChange
	trade, err := s.store.Transition(ctx, tradeID, func(t *models.Trade) (*models.StatusHistory, error) {
		if t.PartyRoleOf(actor) != models.PartySeller {
			return nil, nil
		}
		if !models.CanTransition(t.Status, models.PartySeller, models.StatusDocumentsUploaded) {
			return nil, nil
		}
		change = &models.StatusChange{
			TradeID:     t.ID,
			TradeNumber: t.TradeNumber,
			From:        t.Status,
			To:          models.StatusDocumentsUploaded,
			Auto:        true,
		}
		remarks := "Documents uploaded"
		if t.Status == models.StatusDocumentsUploaded {
			remarks = "Documents re-uploaded"
		}
		s.apply(t, actor, models.StatusDocumentsUploaded)
		return &models.StatusHistory{Status: models.StatusDocumentsUploaded, ChangedBy: actor.UserID, Remarks: remarks}, nil
	})
	if err != nil {
		return nil, nil, s.transitionErr(err)
	}
	if change != nil && change.Changed() {
		tradeTransitions.WithLabelValues(string(models.StatusDocumentsUploaded)).Inc()
	}
	return trade, change, nil
}

// AssignBank records the buyer's choice of reviewing bank.
func (s *Service) AssignBank(ctx context.Context, actor id.Actor, tradeID id.TradeID, bankID id.UserID) (*models.Trade, error) {
	if bankID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "bank is required")
	}
	trade, err := s.store.Transition(ctx, tradeID, func(t *models.Trade) (*models.StatusHistory, error) {
		if actor.UserID != t.BuyerID {
			return nil, dErrors.New(dErrors.CodeForbidden, "only the buyer can assign a bank")
		}
		t.BankID = &bankID
		return nil, nil
	})
	if err != nil {
		return nil, s.transitionErr(err)
	}
	return trade, nil
}

// Get returns one trade. Banks, auditors, and admins see every trade;
// corporate users only trades they are a party to.
func (s *Service) Get(ctx context.Context, actor id.Actor, tradeID id.TradeID) (*models.Trade, error) {
	trade, err := s.store.FindByID(ctx, tradeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "trade not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load trade")
	}
	if !trade.CanView(actor) {
		return nil, dErrors.New(dErrors.CodeForbidden, "you don't have access to this trade")
	}
	return trade, nil
}

// List returns the trades visible to the actor, newest first. Auditors and
// admins see everything; everyone else sees trades they participate in.
func (s *Service) List(ctx context.Context, actor id.Actor) ([]models.Trade, error) {
	filter := store.ListFilter{}
	if !actor.Role.CrossOrg() {
		participant := actor.UserID
		filter.ParticipantID = &participant
	}
	trades, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list trades")
	}
	return trades, nil
}

// History returns a trade's full status history, oldest first.
func (s *Service) History(ctx context.Context, actor id.Actor, tradeID id.TradeID) ([]models.StatusHistory, error) {
	if _, err := s.Get(ctx, actor, tradeID); err != nil {
		return nil, err
	}
	history, err := s.store.ListHistory(ctx, tradeID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list trade history")
	}
	return history, nil
}

// apply mutates the trade for an already-validated move to the target
// status, including the side effects the workflow attaches to it.
func (s *Service) apply(t *models.Trade, actor id.Actor, to models.TradeStatus) {
	t.Status = to
	if to == models.StatusBankReviewing && t.BankID == nil && actor.Role == id.RoleBank {
		bankID := actor.UserID
		t.BankID = &bankID
	}
	if to == models.StatusCompleted && t.CompletedAt == nil {
		now := time.Now()
		t.CompletedAt = &now
	}
}

func (s *Service) transitionErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "trade not found")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "trade transition failed")
}

func newTradeNumber() string {
	u := uuid.New()
	return "TRD-" + strings.ToUpper(hex.EncodeToString(u[:4]))
}
