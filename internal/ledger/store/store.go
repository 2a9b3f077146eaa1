// Package store persists the append-only audit ledger. Entries get a
// server-assigned, monotonically increasing timestamp at append time; the
// only sanctioned mutation is the narrowly scoped hash_before back-fill on a
// document's most recent entry.
package store

import (
	"context"
	"time"

	"tradevault/internal/ledger/models"
	id "tradevault/pkg/domain"
)

// DefaultPageLimit bounds listings when the caller does not.
const DefaultPageLimit = 100

// Store is the persistence contract the ledger service depends on.
type Store interface {
	// Append persists the entry, assigning ID and CreatedAt. For a given
	// document, assigned timestamps are strictly increasing.
	Append(ctx context.Context, entry *models.Entry) error
	// BackfillHashBefore sets hash_before on the given entry only if it is
	// the most recently appended entry for its document and the field is
	// still unset. Returns sentinel.ErrInvalidState otherwise.
	BackfillHashBefore(ctx context.Context, entryID id.LedgerEntryID, hashBefore id.Digest) error
	FindByID(ctx context.Context, entryID id.LedgerEntryID) (*models.Entry, error)
	// ListForDocument returns a document's entries oldest first: the
	// canonical audit trail.
	ListForDocument(ctx context.Context, docID id.DocumentID) ([]models.Entry, error)
	// ListForOrg returns entries most recent first. An empty org lists all
	// organizations (cross-org roles only; the service enforces that).
	ListForOrg(ctx context.Context, org string, filter models.Filter, page models.Page) ([]models.Entry, error)
	Stats(ctx context.Context, org string, now time.Time) (*models.Stats, error)
}
