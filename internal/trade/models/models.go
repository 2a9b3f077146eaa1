package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	id "tradevault/pkg/domain"
	dErrors "tradevault/pkg/domain-errors"
)

// TradeStatus is a trade's position in the financing workflow.
type TradeStatus string

const (
	StatusInitiated         TradeStatus = "INITIATED"
	StatusSellerConfirmed   TradeStatus = "SELLER_CONFIRMED"
	StatusDocumentsUploaded TradeStatus = "DOCUMENTS_UPLOADED"
	StatusBankReviewing     TradeStatus = "BANK_REVIEWING"
	StatusBankApproved      TradeStatus = "BANK_APPROVED"
	StatusPaymentReleased   TradeStatus = "PAYMENT_RELEASED"
	StatusCompleted         TradeStatus = "COMPLETED"
	StatusDisputed          TradeStatus = "DISPUTED"
	StatusCancelled         TradeStatus = "CANCELLED"
)

var validStatuses = map[TradeStatus]bool{
	StatusInitiated:         true,
	StatusSellerConfirmed:   true,
	StatusDocumentsUploaded: true,
	StatusBankReviewing:     true,
	StatusBankApproved:      true,
	StatusPaymentReleased:   true,
	StatusCompleted:         true,
	StatusDisputed:          true,
	StatusCancelled:         true,
}

// ParseTradeStatus constructs a TradeStatus from external input.
func ParseTradeStatus(s string) (TradeStatus, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "trade status cannot be empty")
	}
	st := TradeStatus(s)
	if !validStatuses[st] {
		return "", dErrors.New(dErrors.CodeValidation, "invalid trade status: "+s)
	}
	return st, nil
}

func (s TradeStatus) IsValid() bool  { return validStatuses[s] }
func (s TradeStatus) String() string { return string(s) }

// IsTerminal reports whether no further transitions exist from this status.
func (s TradeStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// PartyRole is an actor's role within one specific trade, resolved from the
// trade's party fields and, for banks and admins, the actor's global role.
type PartyRole string

const (
	PartyNone   PartyRole = ""
	PartyBuyer  PartyRole = "buyer"
	PartySeller PartyRole = "seller"
	PartyBank   PartyRole = "bank"
	PartyAdmin  PartyRole = "admin"
)

// Trade is one financed transaction between a buyer and a seller, optionally
// reviewed by an assigned bank.
type Trade struct {
	ID          id.TradeID
	TradeNumber string
	BuyerID     id.UserID
	BuyerOrg    string
	SellerID    id.UserID
	SellerOrg   string
	BankID      *id.UserID
	Description string
	Amount      decimal.Decimal
	Currency    string
	Status      TradeStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// PartyRoleOf resolves the actor's role in this trade. Buyer and seller win
// by identity; any bank-role actor counts as the trade's bank even before one
// is assigned.
func (t *Trade) PartyRoleOf(actor id.Actor) PartyRole {
	switch {
	case actor.UserID == t.BuyerID:
		return PartyBuyer
	case actor.UserID == t.SellerID:
		return PartySeller
	case t.BankID != nil && actor.UserID == *t.BankID:
		return PartyBank
	case actor.Role == id.RoleBank:
		return PartyBank
	case actor.Role == id.RoleAdmin:
		return PartyAdmin
	default:
		return PartyNone
	}
}

// CanView reports read access. Banks see every trade for review purposes;
// auditors and admins see everything; corporate users see trades they are a
// party to.
func (t *Trade) CanView(actor id.Actor) bool {
	if actor.Role == id.RoleBank || actor.Role.CrossOrg() {
		return true
	}
	return actor.UserID == t.BuyerID || actor.UserID == t.SellerID
}

// StatusHistory is one append-only record of a status assumed by a trade.
type StatusHistory struct {
	ID        uuid.UUID
	TradeID   id.TradeID
	Status    TradeStatus
	ChangedBy id.UserID
	Remarks   string
	CreatedAt time.Time
}

// StatusChange describes a completed transition so the coordinating layer
// can record it in the audit ledger. Auto marks document-driven advances as
// opposed to manual status calls.
type StatusChange struct {
	TradeID     id.TradeID
	TradeNumber string
	From        TradeStatus
	To          TradeStatus
	Auto        bool
}

// Changed reports whether the transition actually moved the status. A
// seller re-upload while DOCUMENTS_UPLOADED is a sanctioned self-transition
// and does not count as a change.
func (c StatusChange) Changed() bool { return c.From != c.To }
