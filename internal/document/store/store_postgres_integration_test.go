//go:build integration

package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"tradevault/internal/document/models"
	"tradevault/internal/document/store"
	id "tradevault/pkg/domain"
	"tradevault/pkg/platform/sentinel"
	"tradevault/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx,
		"alerts", "integrity_checks", "ledger_entries", "documents")
	s.Require().NoError(err)
}

func newTestDocument(content string) *models.Document {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Document{
		ID:        id.DocumentID(uuid.New()),
		OwnerID:   id.UserID(uuid.New()),
		Org:       "acme-exports",
		DocType:   models.DocTypeInvoice,
		DocNumber: "INV-" + uuid.NewString()[:8],
		Locator:   "local://uploads/" + uuid.NewString(),
		Digest:    id.ComputeDigest([]byte(content)),
		IssuedAt:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	doc := newTestDocument("invoice bytes")
	s.Require().NoError(s.store.Create(ctx, doc))

	byID, err := s.store.FindByID(ctx, doc.ID)
	s.Require().NoError(err)
	s.Equal(doc.Digest, byID.Digest)
	s.Equal(doc.Org, byID.Org)

	byDigest, err := s.store.FindByDigest(ctx, doc.Digest)
	s.Require().NoError(err)
	s.Equal(doc.ID, byDigest.ID)
}

func (s *PostgresStoreSuite) TestFindMissing() {
	ctx := context.Background()

	_, err := s.store.FindByID(ctx, id.DocumentID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.store.FindByDigest(ctx, id.ComputeDigest([]byte("nothing here")))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentDuplicateDigest verifies that concurrent registrations of
// identical content resolve to exactly one winner at the database level.
func (s *PostgresStoreSuite) TestConcurrentDuplicateDigest() {
	ctx := context.Background()
	digest := id.ComputeDigest([]byte("contested content " + uuid.NewString()))
	const goroutines = 50

	var wg sync.WaitGroup
	var successCount atomic.Int32
	var conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			doc := newTestDocument("ignored")
			doc.Digest = digest
			switch err := s.store.Create(ctx, doc); {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflictCount.Add(1)
			default:
				s.T().Errorf("unexpected create error: %v", err)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load())
	s.Equal(int32(goroutines-1), conflictCount.Load())
}

func (s *PostgresStoreSuite) TestUpdateToTakenDigestConflicts() {
	ctx := context.Background()
	taken := newTestDocument("already registered")
	free := newTestDocument("about to collide")
	s.Require().NoError(s.store.Create(ctx, taken))
	s.Require().NoError(s.store.Create(ctx, free))

	free.Digest = taken.Digest
	free.UpdatedAt = time.Now()
	s.ErrorIs(s.store.Update(ctx, free), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestUpdateMissing() {
	ctx := context.Background()
	doc := newTestDocument("never created")
	s.ErrorIs(s.store.Update(ctx, doc), sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpdatePersistsSoftDelete() {
	ctx := context.Background()
	doc := newTestDocument("deletable")
	s.Require().NoError(s.store.Create(ctx, doc))

	doc.Deleted = true
	doc.UpdatedAt = time.Now()
	s.Require().NoError(s.store.Update(ctx, doc))

	found, err := s.store.FindByID(ctx, doc.ID)
	s.Require().NoError(err)
	s.True(found.Deleted)
}

func (s *PostgresStoreSuite) TestListScopes() {
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		doc := newTestDocument(fmt.Sprintf("acme %d", i))
		s.Require().NoError(s.store.Create(ctx, doc))
	}
	other := newTestDocument("someone else's")
	other.Org = "globex-imports"
	s.Require().NoError(s.store.Create(ctx, other))

	acme, err := s.store.ListByOrg(ctx, "acme-exports")
	s.Require().NoError(err)
	s.Len(acme, 3)

	all, err := s.store.ListAll(ctx)
	s.Require().NoError(err)
	s.Len(all, 4)
}
