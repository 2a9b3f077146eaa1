//go:build integration

package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"tradevault/internal/trade/models"
	"tradevault/internal/trade/store"
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
	err := s.postgres.TruncateTables(ctx, "trade_status_history", "trades")
	s.Require().NoError(err)
}

func newTestTrade(number string) *models.Trade {
	return &models.Trade{
		ID:          id.TradeID(uuid.New()),
		TradeNumber: number,
		BuyerID:     id.UserID(uuid.New()),
		BuyerOrg:    "globex-imports",
		SellerID:    id.UserID(uuid.New()),
		SellerOrg:   "acme-exports",
		Description: "40ft container of machine parts",
		Amount:      decimal.RequireFromString("125000.50"),
		Currency:    "USD",
		Status:      models.StatusInitiated,
	}
}

func initialHistory(trade *models.Trade) *models.StatusHistory {
	return &models.StatusHistory{
		Status:    trade.Status,
		ChangedBy: trade.BuyerID,
		Remarks:   "trade created",
	}
}

func (s *PostgresStoreSuite) createTrade(number string) *models.Trade {
	trade := newTestTrade(number)
	s.Require().NoError(s.store.Create(context.Background(), trade, initialHistory(trade)))
	return trade
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	trade := s.createTrade("TRD-0001")

	found, err := s.store.FindByID(ctx, trade.ID)
	s.Require().NoError(err)
	s.Equal(trade.TradeNumber, found.TradeNumber)
	s.Equal(models.StatusInitiated, found.Status)
	s.True(found.Amount.Equal(trade.Amount))
	s.Nil(found.BankID)
	s.Nil(found.CompletedAt)

	history, err := s.store.ListHistory(ctx, trade.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(models.StatusInitiated, history[0].Status)
}

func (s *PostgresStoreSuite) TestDuplicateTradeNumber() {
	trade := newTestTrade("TRD-0002")
	s.Require().NoError(s.store.Create(context.Background(), trade, initialHistory(trade)))

	dup := newTestTrade("TRD-0002")
	err := s.store.Create(context.Background(), dup, initialHistory(dup))
	s.ErrorIs(err, sentinel.ErrConflict)

	// The failed create must not leave an orphan history row behind.
	history, listErr := s.store.ListHistory(context.Background(), dup.ID)
	s.Require().NoError(listErr)
	s.Empty(history)
}

func (s *PostgresStoreSuite) TestTransitionPersistsAtomically() {
	ctx := context.Background()
	trade := s.createTrade("TRD-0003")

	updated, err := s.store.Transition(ctx, trade.ID, func(t *models.Trade) (*models.StatusHistory, error) {
		t.Status = models.StatusSellerConfirmed
		return &models.StatusHistory{
			Status:    models.StatusSellerConfirmed,
			ChangedBy: t.SellerID,
			Remarks:   "seller confirmed terms",
		}, nil
	})
	s.Require().NoError(err)
	s.Equal(models.StatusSellerConfirmed, updated.Status)

	history, err := s.store.ListHistory(ctx, trade.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(models.StatusInitiated, history[0].Status)
	s.Equal(models.StatusSellerConfirmed, history[1].Status)
}

func (s *PostgresStoreSuite) TestTransitionErrorRollsBack() {
	ctx := context.Background()
	trade := s.createTrade("TRD-0004")

	boom := errors.New("rejected by workflow")
	_, err := s.store.Transition(ctx, trade.ID, func(t *models.Trade) (*models.StatusHistory, error) {
		t.Status = models.StatusCancelled
		return nil, boom
	})
	s.ErrorIs(err, boom)

	found, findErr := s.store.FindByID(ctx, trade.ID)
	s.Require().NoError(findErr)
	s.Equal(models.StatusInitiated, found.Status)

	history, listErr := s.store.ListHistory(ctx, trade.ID)
	s.Require().NoError(listErr)
	s.Len(history, 1)
}

func (s *PostgresStoreSuite) TestTransitionMissing() {
	_, err := s.store.Transition(context.Background(), id.TradeID(uuid.New()),
		func(t *models.Trade) (*models.StatusHistory, error) { return nil, nil })
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentTransitionsSerialize verifies the row lock: when many
// goroutines race the same guarded move, exactly one observes the starting
// status and wins.
func (s *PostgresStoreSuite) TestConcurrentTransitionsSerialize() {
	ctx := context.Background()
	trade := s.createTrade("TRD-0005")
	const goroutines = 20

	var wg sync.WaitGroup
	var winCount atomic.Int32
	var staleCount atomic.Int32
	stale := errors.New("status already moved")

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := s.store.Transition(ctx, trade.ID, func(t *models.Trade) (*models.StatusHistory, error) {
				if t.Status != models.StatusInitiated {
					return nil, stale
				}
				t.Status = models.StatusSellerConfirmed
				return &models.StatusHistory{
					Status:    models.StatusSellerConfirmed,
					ChangedBy: t.SellerID,
				}, nil
			})
			switch {
			case err == nil:
				winCount.Add(1)
			case errors.Is(err, stale):
				staleCount.Add(1)
			default:
				s.T().Errorf("unexpected transition error: %v", err)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), winCount.Load())
	s.Equal(int32(goroutines-1), staleCount.Load())

	history, err := s.store.ListHistory(ctx, trade.ID)
	s.Require().NoError(err)
	s.Len(history, 2)
}

func (s *PostgresStoreSuite) TestListByParticipant() {
	ctx := context.Background()
	mine := s.createTrade("TRD-0006")
	for i := 0; i < 2; i++ {
		s.createTrade(fmt.Sprintf("TRD-00%d", 7+i))
	}

	asBuyer, err := s.store.List(ctx, store.ListFilter{ParticipantID: &mine.BuyerID})
	s.Require().NoError(err)
	s.Require().Len(asBuyer, 1)
	s.Equal(mine.ID, asBuyer[0].ID)

	all, err := s.store.List(ctx, store.ListFilter{})
	s.Require().NoError(err)
	s.Len(all, 3)
}
