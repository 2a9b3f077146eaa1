package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"tradevault/internal/blobstore"
	"tradevault/internal/document/models"
	"tradevault/internal/document/store"
	id "tradevault/pkg/domain"
	dErrors "tradevault/pkg/domain-errors"
	"tradevault/pkg/platform/sentinel"
	"tradevault/pkg/requestcontext"
)

var documentsRegistered = promauto.NewCounter(prometheus.CounterOpts{
	Name: "tradevault_documents_registered_total",
	Help: "Total number of documents registered in the custody registry",
})

// Service owns document identity and registry state. It computes digests,
// enforces digest uniqueness through the store, and delegates byte placement
// to the blobstore collaborator. It never writes ledger entries: every
// mutation returns a description of what happened and the coordinating layer
// decides what the audit ledger records.
type Service struct {
	store store.Store
	blobs blobstore.Store
	log   *slog.Logger
}

func New(docs store.Store, blobs blobstore.Store, log *slog.Logger) (*Service, error) {
	if docs == nil {
		return nil, errors.New("document store is required")
	}
	if blobs == nil {
		return nil, errors.New("blob store is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: docs, blobs: blobs, log: log}, nil
}

// Register computes the content digest, places the bytes, and persists the
// record. Byte placement happens before the registry write so a placement
// failure cannot leave a registry row pointing at nothing. A digest collision
// means the content is already registered: the error carries CodeConflict and
// names the existing document.
func (s *Service) Register(ctx context.Context, actor id.Actor, content []byte, meta models.Metadata) (*models.Document, error) {
	if len(content) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "document content must not be empty")
	}
	if !meta.DocType.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid doc_type: "+string(meta.DocType))
	}

	digest := id.ComputeDigest(content)
	if existing, err := s.store.FindByDigest(ctx, digest); err == nil {
		return nil, dErrors.Newf(dErrors.CodeConflict,
			"document with this digest already exists (id: %s)", existing.ID)
	}

	locator, err := s.blobs.Place(ctx, content, meta.SuggestedName)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "byte placement failed")
	}

	now := requestcontext.Now(ctx)
	doc := &models.Document{
		ID:        id.DocumentID(uuid.New()),
		OwnerID:   actor.UserID,
		Org:       actor.Org,
		DocType:   meta.DocType,
		DocNumber: meta.DocNumber,
		Locator:   locator,
		Digest:    digest,
		IssuedAt:  meta.IssuedAt,
		TradeID:   meta.TradeID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, doc); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost the race against a concurrent identical upload.
			if existing, findErr := s.store.FindByDigest(ctx, digest); findErr == nil {
				return nil, dErrors.Newf(dErrors.CodeConflict,
					"document with this digest already exists (id: %s)", existing.ID)
			}
			return nil, dErrors.New(dErrors.CodeConflict, "document with this digest already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register document")
	}

	documentsRegistered.Inc()
	s.log.Info("document registered",
		"document_id", doc.ID, "digest", doc.Digest.Short(), "org", doc.Org)
	return doc, nil
}

// Create registers a metadata-only record with a caller-provided digest, for
// documents whose bytes live outside this system.
func (s *Service) Create(ctx context.Context, actor id.Actor, digest id.Digest, locator string, meta models.Metadata) (*models.Document, error) {
	if !meta.DocType.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid doc_type: "+string(meta.DocType))
	}
	now := requestcontext.Now(ctx)
	doc := &models.Document{
		ID:        id.DocumentID(uuid.New()),
		OwnerID:   actor.UserID,
		Org:       actor.Org,
		DocType:   meta.DocType,
		DocNumber: meta.DocNumber,
		Locator:   locator,
		Digest:    digest,
		IssuedAt:  meta.IssuedAt,
		TradeID:   meta.TradeID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, doc); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "document with this digest already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create document")
	}
	return doc, nil
}

// UpdateContent replaces content and/or metadata. The digest is recomputed
// only when new bytes are supplied; metadata-only updates leave the identity
// untouched. The returned ContentChange lets the caller record the hash
// transition atomically with this update.
func (s *Service) UpdateContent(ctx context.Context, actor id.Actor, docID id.DocumentID, newContent []byte, meta *models.MetadataUpdate) (*models.Document, models.ContentChange, error) {
	doc, err := s.getScoped(ctx, actor, docID)
	if err != nil {
		return nil, models.ContentChange{}, err
	}

	change := models.ContentChange{OldDigest: doc.Digest, NewDigest: doc.Digest}

	if meta != nil {
		if meta.DocType != nil {
			if !meta.DocType.IsValid() {
				return nil, models.ContentChange{}, dErrors.New(dErrors.CodeValidation, "invalid doc_type")
			}
			doc.DocType = *meta.DocType
			change.MetadataChanged = true
		}
		if meta.DocNumber != nil {
			doc.DocNumber = *meta.DocNumber
			change.MetadataChanged = true
		}
		if meta.IssuedAt != nil {
			doc.IssuedAt = *meta.IssuedAt
			change.MetadataChanged = true
		}
	}

	if len(newContent) > 0 {
		newDigest := id.ComputeDigest(newContent)
		locator, err := s.blobs.Place(ctx, newContent, doc.DocNumber)
		if err != nil {
			return nil, models.ContentChange{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "byte placement failed")
		}
		doc.Locator = locator
		doc.Digest = newDigest
		change.NewDigest = newDigest
		change.ContentReplaced = true
	}

	doc.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, doc); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, models.ContentChange{}, dErrors.New(dErrors.CodeConflict, "updated content matches another registered document")
		}
		return nil, models.ContentChange{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update document")
	}
	return doc, change, nil
}

// LookupByDigest resolves a document by its content identity, enforcing
// organization scope.
func (s *Service) LookupByDigest(ctx context.Context, actor id.Actor, digest id.Digest) (*models.Document, error) {
	doc, err := s.store.FindByDigest(ctx, digest)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "document not found with provided digest")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "digest lookup failed")
	}
	if !actor.CanReadOrg(doc.Org) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not authorized to access this document")
	}
	return doc, nil
}

// Get resolves a document by ID, enforcing organization scope.
func (s *Service) Get(ctx context.Context, actor id.Actor, docID id.DocumentID) (*models.Document, error) {
	return s.getScoped(ctx, actor, docID)
}

// List returns the documents the actor may see: its organization's records,
// or every record for cross-org roles.
func (s *Service) List(ctx context.Context, actor id.Actor) ([]models.Document, error) {
	if actor.Role.CrossOrg() {
		return s.store.ListAll(ctx)
	}
	return s.store.ListByOrg(ctx, actor.Org)
}

// Delete marks a document deleted. Records are never physically erased;
// deletion is an auditable event.
func (s *Service) Delete(ctx context.Context, actor id.Actor, docID id.DocumentID) (*models.Document, error) {
	doc, err := s.getScoped(ctx, actor, docID)
	if err != nil {
		return nil, err
	}
	if doc.Deleted {
		return doc, nil
	}
	doc.Deleted = true
	doc.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.Update(ctx, doc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete document")
	}
	return doc, nil
}

func (s *Service) getScoped(ctx context.Context, actor id.Actor, docID id.DocumentID) (*models.Document, error) {
	doc, err := s.store.FindByID(ctx, docID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "document lookup failed")
	}
	if !actor.CanReadOrg(doc.Org) {
		return nil, dErrors.New(dErrors.CodeForbidden, "not authorized to access this document")
	}
	return doc, nil
}
