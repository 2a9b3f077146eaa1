// Package store persists document records. Implementations are
// interface-driven so the service layer can run against in-memory state in
// tests and postgres in production, with an optional Redis read-through cache
// layered on top.
package store

import (
	"context"

	"tradevault/internal/document/models"
	id "tradevault/pkg/domain"
)

// Store is the persistence contract the document service depends on.
// Create and Update return sentinel.ErrConflict on digest uniqueness
// violations and sentinel.ErrNotFound for unknown IDs.
type Store interface {
	Create(ctx context.Context, doc *models.Document) error
	FindByID(ctx context.Context, docID id.DocumentID) (*models.Document, error)
	FindByDigest(ctx context.Context, digest id.Digest) (*models.Document, error)
	Update(ctx context.Context, doc *models.Document) error
	ListByOrg(ctx context.Context, org string) ([]models.Document, error)
	ListAll(ctx context.Context) ([]models.Document, error)
}
