package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"tradevault/internal/trade/models"
	id "tradevault/pkg/domain"
	"tradevault/pkg/platform/sentinel"
	txcontext "tradevault/pkg/platform/tx"
)

// PostgresStore persists trades. Transitions take a row lock on the trade,
// so concurrent status moves serialize instead of both reading the same
// stale status.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// inTx runs fn inside the ambient transaction when one is on the context,
// otherwise inside a transaction of its own.
func (s *PostgresStore) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txcontext.From(ctx); ok {
		return fn(ctx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin trade tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck
	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}
	return tx.Commit()
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

const tradeColumns = `id, trade_number, buyer_id, buyer_org, seller_id, seller_org, bank_id, description, amount, currency, status, created_at, updated_at, completed_at`

func (s *PostgresStore) Create(ctx context.Context, trade *models.Trade, initial *models.StatusHistory) error {
	return s.inTx(ctx, func(ctx context.Context) error {
		query := `
			INSERT INTO trades (` + tradeColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now(), NULL)
			RETURNING created_at, updated_at
		`
		err := s.execer(ctx).QueryRowContext(ctx, query,
			uuid.UUID(trade.ID),
			trade.TradeNumber,
			uuid.UUID(trade.BuyerID),
			trade.BuyerOrg,
			uuid.UUID(trade.SellerID),
			trade.SellerOrg,
			bankIDValue(trade.BankID),
			trade.Description,
			trade.Amount,
			trade.Currency,
			string(trade.Status),
		).Scan(&trade.CreatedAt, &trade.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return sentinel.ErrConflict
			}
			return fmt.Errorf("insert trade: %w", err)
		}
		return s.appendHistory(ctx, trade.ID, initial)
	})
}

func (s *PostgresStore) FindByID(ctx context.Context, tradeID id.TradeID) (*models.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE id = $1`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(tradeID)))
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]models.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades`
	var args []any
	if filter.ParticipantID != nil {
		query += ` WHERE buyer_id = $1 OR seller_id = $1 OR bank_id = $1`
		args = append(args, uuid.UUID(*filter.ParticipantID))
	}
	query += ` ORDER BY created_at DESC, trade_number DESC`

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	defer rows.Close()

	var out []models.Trade
	for rows.Next() {
		trade, err := scanTrade(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		out = append(out, *trade)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Transition(ctx context.Context, tradeID id.TradeID, fn TransitionFunc) (*models.Trade, error) {
	var out *models.Trade
	err := s.inTx(ctx, func(ctx context.Context) error {
		query := `SELECT ` + tradeColumns + ` FROM trades WHERE id = $1 FOR UPDATE`
		trade, err := s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(tradeID)))
		if err != nil {
			return err
		}
		history, err := fn(trade)
		if err != nil {
			return err
		}
		update := `
			UPDATE trades
			SET bank_id = $2, status = $3, completed_at = $4, updated_at = now()
			WHERE id = $1
			RETURNING updated_at
		`
		err = s.execer(ctx).QueryRowContext(ctx, update,
			uuid.UUID(trade.ID),
			bankIDValue(trade.BankID),
			string(trade.Status),
			trade.CompletedAt,
		).Scan(&trade.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update trade: %w", err)
		}
		if history != nil {
			if err := s.appendHistory(ctx, trade.ID, history); err != nil {
				return err
			}
		}
		out = trade
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) ListHistory(ctx context.Context, tradeID id.TradeID) ([]models.StatusHistory, error) {
	query := `
		SELECT id, trade_id, status, changed_by_id, remarks, created_at
		FROM trade_status_history
		WHERE trade_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(tradeID))
	if err != nil {
		return nil, fmt.Errorf("list trade history: %w", err)
	}
	defer rows.Close()

	var out []models.StatusHistory
	for rows.Next() {
		var (
			h       models.StatusHistory
			trID    uuid.UUID
			byID    uuid.UUID
			status  string
			remarks sql.NullString
		)
		if err := rows.Scan(&h.ID, &trID, &status, &byID, &remarks, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan trade history: %w", err)
		}
		h.TradeID = id.TradeID(trID)
		h.Status = models.TradeStatus(status)
		h.ChangedBy = id.UserID(byID)
		h.Remarks = remarks.String
		out = append(out, h)
	}
	return out, rows.Err()
}

// appendHistory uses clock_timestamp() so history rows written in one
// transaction still order correctly.
func (s *PostgresStore) appendHistory(ctx context.Context, tradeID id.TradeID, h *models.StatusHistory) error {
	h.ID = uuid.New()
	h.TradeID = tradeID
	query := `
		INSERT INTO trade_status_history (id, trade_id, status, changed_by_id, remarks, created_at)
		VALUES ($1, $2, $3, $4, $5, clock_timestamp())
		RETURNING created_at
	`
	err := s.execer(ctx).QueryRowContext(ctx, query,
		h.ID,
		uuid.UUID(tradeID),
		string(h.Status),
		uuid.UUID(h.ChangedBy),
		h.Remarks,
	).Scan(&h.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert trade history: %w", err)
	}
	return nil
}

func (s *PostgresStore) scanOne(row *sql.Row) (*models.Trade, error) {
	trade, err := scanTrade(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find trade: %w", err)
	}
	return trade, nil
}

func scanTrade(scan func(dest ...any) error) (*models.Trade, error) {
	var (
		trade       models.Trade
		tradeID     uuid.UUID
		buyerID     uuid.UUID
		sellerID    uuid.UUID
		bankID      uuid.NullUUID
		status      string
		completedAt sql.NullTime
	)
	err := scan(&tradeID, &trade.TradeNumber, &buyerID, &trade.BuyerOrg, &sellerID, &trade.SellerOrg,
		&bankID, &trade.Description, &trade.Amount, &trade.Currency, &status,
		&trade.CreatedAt, &trade.UpdatedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	trade.ID = id.TradeID(tradeID)
	trade.BuyerID = id.UserID(buyerID)
	trade.SellerID = id.UserID(sellerID)
	trade.Status = models.TradeStatus(status)
	if bankID.Valid {
		b := id.UserID(bankID.UUID)
		trade.BankID = &b
	}
	if completedAt.Valid {
		t := completedAt.Time
		trade.CompletedAt = &t
	}
	return &trade, nil
}

func bankIDValue(bankID *id.UserID) any {
	if bankID == nil {
		return nil
	}
	return uuid.UUID(*bankID)
}
