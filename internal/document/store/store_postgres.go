package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"tradevault/internal/document/models"
	id "tradevault/pkg/domain"
	"tradevault/pkg/platform/sentinel"
	txcontext "tradevault/pkg/platform/tx"
)

// PostgresStore persists documents in the authoritative store. The unique
// index on digest is what decides concurrent uploads of identical content:
// exactly one writer wins, the loser observes sentinel.ErrConflict.
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

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

const documentColumns = `id, owner_id, org_name, doc_type, doc_number, locator, digest, issued_at, trade_id, deleted, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(doc.ID),
		uuid.UUID(doc.OwnerID),
		doc.Org,
		string(doc.DocType),
		doc.DocNumber,
		doc.Locator,
		string(doc.Digest),
		doc.IssuedAt,
		tradeIDValue(doc.TradeID),
		doc.Deleted,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, docID id.DocumentID) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(docID)))
}

func (s *PostgresStore) FindByDigest(ctx context.Context, digest id.Digest) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE digest = $1`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, string(digest)))
}

func (s *PostgresStore) Update(ctx context.Context, doc *models.Document) error {
	query := `
		UPDATE documents
		SET doc_type = $2, doc_number = $3, locator = $4, digest = $5,
		    issued_at = $6, trade_id = $7, deleted = $8, updated_at = $9
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(doc.ID),
		string(doc.DocType),
		doc.DocNumber,
		doc.Locator,
		string(doc.Digest),
		doc.IssuedAt,
		tradeIDValue(doc.TradeID),
		doc.Deleted,
		doc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("update document: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByOrg(ctx context.Context, org string) ([]models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE org_name = $1 ORDER BY created_at, id`
	rows, err := s.execer(ctx).QueryContext(ctx, query, org)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents ORDER BY created_at, id`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list all documents: %w", err)
	}
	defer rows.Close()
	return scanAll(rows)
}

func (s *PostgresStore) scanOne(row *sql.Row) (*models.Document, error) {
	doc, err := scanDocument(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	return doc, nil
}

func scanAll(rows *sql.Rows) ([]models.Document, error) {
	var out []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, *doc)
	}
	return out, rows.Err()
}

func scanDocument(scan func(dest ...any) error) (*models.Document, error) {
	var (
		doc       models.Document
		docID     uuid.UUID
		ownerID   uuid.UUID
		docType   string
		digest    string
		tradeID   uuid.NullUUID
		issuedAt  time.Time
		createdAt time.Time
		updatedAt time.Time
	)
	err := scan(&docID, &ownerID, &doc.Org, &docType, &doc.DocNumber, &doc.Locator,
		&digest, &issuedAt, &tradeID, &doc.Deleted, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	doc.ID = id.DocumentID(docID)
	doc.OwnerID = id.UserID(ownerID)
	doc.DocType = models.DocType(docType)
	doc.Digest = id.Digest(digest)
	doc.IssuedAt = issuedAt
	doc.CreatedAt = createdAt
	doc.UpdatedAt = updatedAt
	if tradeID.Valid {
		t := id.TradeID(tradeID.UUID)
		doc.TradeID = &t
	}
	return &doc, nil
}

func tradeIDValue(tradeID *id.TradeID) any {
	if tradeID == nil {
		return nil
	}
	return uuid.UUID(*tradeID)
}
