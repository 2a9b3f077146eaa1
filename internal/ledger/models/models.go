package models

import (
	"time"

	id "tradevault/pkg/domain"
	dErrors "tradevault/pkg/domain-errors"
)

// EventKind enumerates the auditable events a ledger entry can record.
// Unknown kinds are rejected before append; they are never coerced.
type EventKind string

const (
	EventCreated           EventKind = "CREATED"
	EventUploaded          EventKind = "UPLOADED"
	EventVerified          EventKind = "VERIFIED"
	EventAccessed          EventKind = "ACCESSED"
	EventModified          EventKind = "MODIFIED"
	EventShared            EventKind = "SHARED"
	EventDeleted           EventKind = "DELETED"
	EventIntegrityFailed   EventKind = "INTEGRITY_FAILED"
	EventTradeStatusUpdate EventKind = "TRADE_STATUS_UPDATE"
)

var validEventKinds = map[EventKind]bool{
	EventCreated:           true,
	EventUploaded:          true,
	EventVerified:          true,
	EventAccessed:          true,
	EventModified:          true,
	EventShared:            true,
	EventDeleted:           true,
	EventIntegrityFailed:   true,
	EventTradeStatusUpdate: true,
}

// ParseEventKind constructs an EventKind from external input.
func ParseEventKind(s string) (EventKind, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "event kind cannot be empty")
	}
	k := EventKind(s)
	if !validEventKinds[k] {
		return "", dErrors.New(dErrors.CodeValidation, "invalid event kind: "+s)
	}
	return k, nil
}

func (k EventKind) IsValid() bool  { return validEventKinds[k] }
func (k EventKind) String() string { return string(k) }

// Entry is one immutable audit record. Once written its fields never change;
// the sequence of HashBefore/HashAfter values for a document forms a
// verifiable chain of identity transitions.
type Entry struct {
	ID          id.LedgerEntryID
	DocumentID  id.DocumentID
	UserID      id.UserID
	Org         string
	Kind        EventKind
	Description string
	HashBefore  *id.Digest
	HashAfter   *id.Digest
	IPAddress   string
	UserAgent   string
	Metadata    string
	CreatedAt   time.Time
}

// Filter narrows org-scoped listings.
type Filter struct {
	DocumentID *id.DocumentID
	Kind       *EventKind
}

// Page bounds a listing. Zero Limit means the store default.
type Page struct {
	Limit  int
	Offset int
}

// Stats summarizes an organization's ledger activity.
type Stats struct {
	TotalEntries int
	CountsByKind map[EventKind]int
	Last24hCount int
	TopDocuments []DocumentActivity
}

// DocumentActivity pairs a document with its entry count for the stats view.
type DocumentActivity struct {
	DocumentID id.DocumentID
	EntryCount int
}

// ChainBreak reports the first broken hash link found while verifying a
// document's entry chain.
type ChainBreak struct {
	EntryID    id.LedgerEntryID
	Position   int
	HashBefore id.Digest
	PrevAfter  id.Digest
}
