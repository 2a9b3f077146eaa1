// Package domain holds shared identifier and role types used across bounded
// contexts. IDs are distinct UUID types so the compiler rejects cross-entity
// assignment.
//
// Usage: construct via the Parse functions at trust boundaries; direct
// conversion from uuid.UUID is reserved for internal code that already holds
// a validated value.
package domain

import (
	"github.com/google/uuid"

	dErrors "tradevault/pkg/domain-errors"
)

type (
	// UserID identifies an authenticated actor.
	UserID uuid.UUID
	// DocumentID identifies a registered document record.
	DocumentID uuid.UUID
	// TradeID identifies a trade.
	TradeID uuid.UUID
	// LedgerEntryID identifies one append-only audit record.
	LedgerEntryID uuid.UUID
	// CheckID identifies a single integrity verification attempt.
	CheckID uuid.UUID
	// AlertID identifies an operator-facing alert.
	AlertID uuid.UUID
)

func (id UserID) String() string        { return uuid.UUID(id).String() }
func (id DocumentID) String() string    { return uuid.UUID(id).String() }
func (id TradeID) String() string       { return uuid.UUID(id).String() }
func (id LedgerEntryID) String() string { return uuid.UUID(id).String() }
func (id CheckID) String() string       { return uuid.UUID(id).String() }
func (id AlertID) String() string       { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id TradeID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id LedgerEntryID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id CheckID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id AlertID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return u, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	return UserID(u), err
}

func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s)
	return DocumentID(u), err
}

func ParseTradeID(s string) (TradeID, error) {
	u, err := parseUUID(s)
	return TradeID(u), err
}

func ParseLedgerEntryID(s string) (LedgerEntryID, error) {
	u, err := parseUUID(s)
	return LedgerEntryID(u), err
}

func ParseCheckID(s string) (CheckID, error) {
	u, err := parseUUID(s)
	return CheckID(u), err
}

func ParseAlertID(s string) (AlertID, error) {
	u, err := parseUUID(s)
	return AlertID(u), err
}
