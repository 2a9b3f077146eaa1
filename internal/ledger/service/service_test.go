package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	documentmodels "tradevault/internal/document/models"
	documentstore "tradevault/internal/document/store"
	"tradevault/internal/ledger/models"
	ledgerstore "tradevault/internal/ledger/store"
	id "tradevault/pkg/domain"
	dErrors "tradevault/pkg/domain-errors"
	"tradevault/pkg/requestcontext"
)

type LedgerServiceSuite struct {
	suite.Suite
	svc     *Service
	docs    *documentstore.InMemoryStore
	entries *ledgerstore.InMemoryStore
	ctx     context.Context
}

func TestLedgerServiceSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceSuite))
}

func (s *LedgerServiceSuite) SetupTest() {
	s.docs = documentstore.NewInMemory()
	s.entries = ledgerstore.NewInMemory()
	svc, err := New(s.entries, s.docs, slog.Default())
	s.Require().NoError(err)
	s.svc = svc
	s.ctx = context.Background()
}

func (s *LedgerServiceSuite) actor(role id.Role, org string) id.Actor {
	return id.Actor{UserID: id.UserID(uuid.New()), Role: role, Org: org}
}

func (s *LedgerServiceSuite) seedDocument(org string) *documentmodels.Document {
	doc := &documentmodels.Document{
		ID:        id.DocumentID(uuid.New()),
		OwnerID:   id.UserID(uuid.New()),
		Org:       org,
		DocType:   documentmodels.DocTypeInvoice,
		DocNumber: "INV-" + uuid.NewString()[:8],
		Locator:   "local://uploads/test.pdf",
		Digest:    id.ComputeDigest([]byte(uuid.NewString())),
	}
	s.Require().NoError(s.docs.Create(s.ctx, doc))
	return doc
}

func (s *LedgerServiceSuite) TestAppendRecordsEntry() {
	doc := s.seedDocument("acme-exports")
	actor := s.actor(id.RoleCorporate, "acme-exports")
	after := id.ComputeDigest([]byte("v1"))

	ctx := requestcontext.WithActor(s.ctx, actor)
	entry, err := s.svc.Append(ctx, actor, AppendInput{
		DocumentID:  doc.ID,
		Kind:        models.EventUploaded,
		Description: "document uploaded",
		HashAfter:   &after,
	})
	s.Require().NoError(err)
	s.False(entry.ID.IsNil())
	s.Equal(doc.ID, entry.DocumentID)
	s.Equal(actor.UserID, entry.UserID)
	s.Equal("acme-exports", entry.Org)
	s.Equal(models.EventUploaded, entry.Kind)
	s.Require().NotNil(entry.HashAfter)
	s.Equal(after, *entry.HashAfter)
	s.False(entry.CreatedAt.IsZero())
}

func (s *LedgerServiceSuite) TestAppendRejectsUnknownKind() {
	doc := s.seedDocument("acme-exports")
	actor := s.actor(id.RoleCorporate, "acme-exports")

	_, err := s.svc.Append(s.ctx, actor, AppendInput{
		DocumentID: doc.ID,
		Kind:       models.EventKind("SOMETHING_ELSE"),
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	entries, err := s.entries.ListForDocument(s.ctx, doc.ID)
	s.Require().NoError(err)
	s.Empty(entries)
}

func (s *LedgerServiceSuite) TestAppendRejectsMissingDocument() {
	actor := s.actor(id.RoleCorporate, "acme-exports")
	_, err := s.svc.Append(s.ctx, actor, AppendInput{
		DocumentID: id.DocumentID(uuid.New()),
		Kind:       models.EventAccessed,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *LedgerServiceSuite) TestAppendRejectsForeignOrg() {
	doc := s.seedDocument("acme-exports")
	outsider := s.actor(id.RoleCorporate, "globex-imports")

	_, err := s.svc.Append(s.ctx, outsider, AppendInput{
		DocumentID: doc.ID,
		Kind:       models.EventAccessed,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *LedgerServiceSuite) TestAuditorAppendsAcrossOrgs() {
	doc := s.seedDocument("acme-exports")
	auditor := s.actor(id.RoleAuditor, "audit-partners")

	entry, err := s.svc.Append(s.ctx, auditor, AppendInput{
		DocumentID:  doc.ID,
		Kind:        models.EventVerified,
		Description: "spot check",
	})
	s.Require().NoError(err)
	s.Equal("acme-exports", entry.Org)
}

func (s *LedgerServiceSuite) TestListForDocumentOldestFirst() {
	doc := s.seedDocument("acme-exports")
	actor := s.actor(id.RoleCorporate, "acme-exports")

	for _, kind := range []models.EventKind{models.EventCreated, models.EventUploaded, models.EventAccessed} {
		_, err := s.svc.Append(s.ctx, actor, AppendInput{DocumentID: doc.ID, Kind: kind})
		s.Require().NoError(err)
	}

	entries, err := s.svc.ListForDocument(s.ctx, actor, doc.ID)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)
	s.Equal(models.EventCreated, entries[0].Kind)
	s.Equal(models.EventUploaded, entries[1].Kind)
	s.Equal(models.EventAccessed, entries[2].Kind)
	s.True(entries[0].CreatedAt.Before(entries[1].CreatedAt))
	s.True(entries[1].CreatedAt.Before(entries[2].CreatedAt))
}

func (s *LedgerServiceSuite) TestListForOrgScoping() {
	acmeDoc := s.seedDocument("acme-exports")
	globexDoc := s.seedDocument("globex-imports")
	acme := s.actor(id.RoleCorporate, "acme-exports")
	globex := s.actor(id.RoleCorporate, "globex-imports")
	auditor := s.actor(id.RoleAuditor, "audit-partners")

	_, err := s.svc.Append(s.ctx, acme, AppendInput{DocumentID: acmeDoc.ID, Kind: models.EventUploaded})
	s.Require().NoError(err)
	_, err = s.svc.Append(s.ctx, globex, AppendInput{DocumentID: globexDoc.ID, Kind: models.EventUploaded})
	s.Require().NoError(err)

	acmeView, err := s.svc.ListForOrg(s.ctx, acme, models.Filter{}, models.Page{})
	s.Require().NoError(err)
	s.Require().Len(acmeView, 1)
	s.Equal(acmeDoc.ID, acmeView[0].DocumentID)

	auditorView, err := s.svc.ListForOrg(s.ctx, auditor, models.Filter{}, models.Page{})
	s.Require().NoError(err)
	s.Len(auditorView, 2)
}

func (s *LedgerServiceSuite) TestListForOrgKindFilter() {
	doc := s.seedDocument("acme-exports")
	actor := s.actor(id.RoleCorporate, "acme-exports")

	for _, kind := range []models.EventKind{models.EventUploaded, models.EventAccessed, models.EventAccessed} {
		_, err := s.svc.Append(s.ctx, actor, AppendInput{DocumentID: doc.ID, Kind: kind})
		s.Require().NoError(err)
	}

	accessed := models.EventAccessed
	entries, err := s.svc.ListForOrg(s.ctx, actor, models.Filter{Kind: &accessed}, models.Page{})
	s.Require().NoError(err)
	s.Len(entries, 2)

	bogus := models.EventKind("nope")
	_, err = s.svc.ListForOrg(s.ctx, actor, models.Filter{Kind: &bogus}, models.Page{})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *LedgerServiceSuite) TestBackfillHashBefore() {
	doc := s.seedDocument("acme-exports")
	actor := s.actor(id.RoleCorporate, "acme-exports")
	after := id.ComputeDigest([]byte("v2"))

	entry, err := s.svc.Append(s.ctx, actor, AppendInput{
		DocumentID: doc.ID,
		Kind:       models.EventModified,
		HashAfter:  &after,
	})
	s.Require().NoError(err)

	before := id.ComputeDigest([]byte("v1"))
	s.Require().NoError(s.svc.BackfillHashBefore(s.ctx, entry.ID, before))

	// A second amendment of the same entry is refused.
	err = s.svc.BackfillHashBefore(s.ctx, entry.ID, id.ComputeDigest([]byte("v0")))
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	stored, err := s.entries.FindByID(s.ctx, entry.ID)
	s.Require().NoError(err)
	s.Require().NotNil(stored.HashBefore)
	s.Equal(before, *stored.HashBefore)
}

func (s *LedgerServiceSuite) TestBackfillRejectedOnceSuperseded() {
	doc := s.seedDocument("acme-exports")
	actor := s.actor(id.RoleCorporate, "acme-exports")

	first, err := s.svc.Append(s.ctx, actor, AppendInput{DocumentID: doc.ID, Kind: models.EventModified})
	s.Require().NoError(err)
	_, err = s.svc.Append(s.ctx, actor, AppendInput{DocumentID: doc.ID, Kind: models.EventAccessed})
	s.Require().NoError(err)

	err = s.svc.BackfillHashBefore(s.ctx, first.ID, id.ComputeDigest([]byte("v1")))
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *LedgerServiceSuite) TestVerifyChainIntact() {
	doc := s.seedDocument("acme-exports")
	actor := s.actor(id.RoleCorporate, "acme-exports")
	v1 := id.ComputeDigest([]byte("v1"))
	v2 := id.ComputeDigest([]byte("v2"))

	_, err := s.svc.Append(s.ctx, actor, AppendInput{DocumentID: doc.ID, Kind: models.EventUploaded, HashAfter: &v1})
	s.Require().NoError(err)
	_, err = s.svc.Append(s.ctx, actor, AppendInput{DocumentID: doc.ID, Kind: models.EventModified, HashBefore: &v1, HashAfter: &v2})
	s.Require().NoError(err)

	brk, err := s.svc.VerifyChain(s.ctx, actor, doc.ID)
	s.Require().NoError(err)
	s.Nil(brk)
}

func (s *LedgerServiceSuite) TestVerifyChainDetectsBreak() {
	doc := s.seedDocument("acme-exports")
	actor := s.actor(id.RoleCorporate, "acme-exports")
	v1 := id.ComputeDigest([]byte("v1"))
	rogue := id.ComputeDigest([]byte("rogue"))
	v2 := id.ComputeDigest([]byte("v2"))

	_, err := s.svc.Append(s.ctx, actor, AppendInput{DocumentID: doc.ID, Kind: models.EventUploaded, HashAfter: &v1})
	s.Require().NoError(err)
	second, err := s.svc.Append(s.ctx, actor, AppendInput{DocumentID: doc.ID, Kind: models.EventModified, HashBefore: &rogue, HashAfter: &v2})
	s.Require().NoError(err)

	brk, err := s.svc.VerifyChain(s.ctx, actor, doc.ID)
	s.Require().NoError(err)
	s.Require().NotNil(brk)
	s.Equal(second.ID, brk.EntryID)
	s.Equal(1, brk.Position)
	s.Equal(rogue, brk.HashBefore)
	s.Equal(v1, brk.PrevAfter)
}

func (s *LedgerServiceSuite) TestStats() {
	doc := s.seedDocument("acme-exports")
	other := s.seedDocument("acme-exports")
	actor := s.actor(id.RoleCorporate, "acme-exports")

	for range 3 {
		_, err := s.svc.Append(s.ctx, actor, AppendInput{DocumentID: doc.ID, Kind: models.EventAccessed})
		s.Require().NoError(err)
	}
	_, err := s.svc.Append(s.ctx, actor, AppendInput{DocumentID: other.ID, Kind: models.EventUploaded})
	s.Require().NoError(err)

	stats, err := s.svc.Stats(s.ctx, actor)
	s.Require().NoError(err)
	s.Equal(4, stats.TotalEntries)
	s.Equal(3, stats.CountsByKind[models.EventAccessed])
	s.Equal(1, stats.CountsByKind[models.EventUploaded])
	s.Equal(4, stats.Last24hCount)
	s.Require().NotEmpty(stats.TopDocuments)
	s.Equal(doc.ID, stats.TopDocuments[0].DocumentID)
	s.Equal(3, stats.TopDocuments[0].EntryCount)
}
