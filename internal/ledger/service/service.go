package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	documentmodels "tradevault/internal/document/models"
	"tradevault/internal/ledger/models"
	"tradevault/internal/ledger/store"
	id "tradevault/pkg/domain"
	dErrors "tradevault/pkg/domain-errors"
	"tradevault/pkg/platform/sentinel"
	"tradevault/pkg/requestcontext"
)

var entriesAppended = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tradevault_ledger_entries_total",
	Help: "Total ledger entries appended, by event kind",
}, []string{"kind"})

// DocumentDirectory is the narrow registry view the ledger needs: enough to
// check that a target document exists and resolve its organization.
type DocumentDirectory interface {
	FindByID(ctx context.Context, docID id.DocumentID) (*documentmodels.Document, error)
}

// Service is the append-only audit ledger. Entries are immutable once
// written; the one sanctioned amendment is the hash_before back-fill on a
// document's most recent entry, kept only for callers that cannot know the
// prior digest at append time. Callers that can know it should append the
// full chain link in one write.
type Service struct {
	store store.Store
	docs  DocumentDirectory
	log   *slog.Logger
}

func New(entries store.Store, docs DocumentDirectory, log *slog.Logger) (*Service, error) {
	if entries == nil {
		return nil, errors.New("ledger store is required")
	}
	if docs == nil {
		return nil, errors.New("document directory is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: entries, docs: docs, log: log}, nil
}

// AppendInput carries everything an append needs. HashBefore and HashAfter
// are optional; supplying both records a complete chain link.
type AppendInput struct {
	DocumentID  id.DocumentID
	Kind        models.EventKind
	Description string
	HashBefore  *id.Digest
	HashAfter   *id.Digest
	Metadata    string
}

// Append validates and persists one audit record. Validation happens before
// any write: unknown event kinds and out-of-scope documents are rejected with
// no partial state. The requester IP and user agent are taken from the
// request context when present.
func (s *Service) Append(ctx context.Context, actor id.Actor, in AppendInput) (*models.Entry, error) {
	if !in.Kind.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid event kind: "+string(in.Kind))
	}
	doc, err := s.docs.FindByID(ctx, in.DocumentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "document lookup failed")
	}
	if !actor.CanReadOrg(doc.Org) {
		return nil, dErrors.New(dErrors.CodeForbidden, "document is outside the caller's organization scope")
	}

	entry := &models.Entry{
		DocumentID:  in.DocumentID,
		UserID:      actor.UserID,
		Org:         doc.Org,
		Kind:        in.Kind,
		Description: in.Description,
		HashBefore:  in.HashBefore,
		HashAfter:   in.HashAfter,
		IPAddress:   requestcontext.ClientIP(ctx),
		UserAgent:   requestcontext.UserAgent(ctx),
		Metadata:    in.Metadata,
	}
	if err := s.store.Append(ctx, entry); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to append ledger entry")
	}
	entriesAppended.WithLabelValues(string(in.Kind)).Inc()
	return entry, nil
}

// BackfillHashBefore amends the most recently appended entry for a document
// with the digest it transitioned from. It exists for the narrow window where
// the triggering hash change is known only after the entry was written;
// anything else is rejected.
func (s *Service) BackfillHashBefore(ctx context.Context, entryID id.LedgerEntryID, hashBefore id.Digest) error {
	err := s.store.BackfillHashBefore(ctx, entryID, hashBefore)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "ledger entry not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeConflict, "entry is no longer eligible for hash_before back-fill")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to back-fill hash_before")
	}
}

// ListForDocument returns the canonical audit trail for one document,
// chronological, oldest first.
func (s *Service) ListForDocument(ctx context.Context, actor id.Actor, docID id.DocumentID) ([]models.Entry, error) {
	doc, err := s.docs.FindByID(ctx, docID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "document lookup failed")
	}
	if !actor.CanReadOrg(doc.Org) {
		return nil, dErrors.New(dErrors.CodeForbidden, "document is outside the caller's organization scope")
	}
	entries, err := s.store.ListForDocument(ctx, docID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list ledger entries")
	}
	return entries, nil
}

// ListForOrg is the operational view: most recent first, optionally filtered.
// Cross-org roles see every organization.
func (s *Service) ListForOrg(ctx context.Context, actor id.Actor, filter models.Filter, page models.Page) ([]models.Entry, error) {
	if filter.Kind != nil && !filter.Kind.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid event kind filter: "+string(*filter.Kind))
	}
	entries, err := s.store.ListForOrg(ctx, s.scope(actor), filter, page)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list ledger entries")
	}
	return entries, nil
}

// Stats summarizes ledger activity in the actor's scope.
func (s *Service) Stats(ctx context.Context, actor id.Actor) (*models.Stats, error) {
	stats, err := s.store.Stats(ctx, s.scope(actor), requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute ledger stats")
	}
	return stats, nil
}

// VerifyChain walks a document's entries in order and checks that every
// non-null hash_before equals the previous chain entry's hash_after. A nil
// result means the chain is intact.
func (s *Service) VerifyChain(ctx context.Context, actor id.Actor, docID id.DocumentID) (*models.ChainBreak, error) {
	entries, err := s.ListForDocument(ctx, actor, docID)
	if err != nil {
		return nil, err
	}
	var prevAfter *id.Digest
	for i, e := range entries {
		if e.HashBefore != nil && prevAfter != nil && *e.HashBefore != *prevAfter {
			return &models.ChainBreak{
				EntryID:    e.ID,
				Position:   i,
				HashBefore: *e.HashBefore,
				PrevAfter:  *prevAfter,
			}, nil
		}
		if e.HashAfter != nil {
			prevAfter = e.HashAfter
		}
	}
	return nil, nil
}

func (s *Service) scope(actor id.Actor) string {
	if actor.Role.CrossOrg() {
		return ""
	}
	return actor.Org
}
