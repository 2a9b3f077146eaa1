package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tradevault/internal/ledger/models"
	id "tradevault/pkg/domain"
	"tradevault/pkg/platform/sentinel"
	txcontext "tradevault/pkg/platform/tx"
)

// PostgresStore persists ledger entries. Ordering comes from server-assigned
// clock_timestamp(), so concurrent appends across connections still land in
// a total order per document.
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

const entryColumns = `id, document_id, user_id, org_name, event_kind, description, hash_before, hash_after, ip_address, user_agent, event_metadata, created_at`

func (s *PostgresStore) Append(ctx context.Context, entry *models.Entry) error {
	entryID := uuid.New()
	query := `
		INSERT INTO ledger_entries
			(id, document_id, user_id, org_name, event_kind, description,
			 hash_before, hash_after, ip_address, user_agent, event_metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, clock_timestamp())
		RETURNING created_at
	`
	err := s.execer(ctx).QueryRowContext(ctx, query,
		entryID,
		uuid.UUID(entry.DocumentID),
		uuid.UUID(entry.UserID),
		entry.Org,
		string(entry.Kind),
		entry.Description,
		digestValue(entry.HashBefore),
		digestValue(entry.HashAfter),
		entry.IPAddress,
		entry.UserAgent,
		entry.Metadata,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	entry.ID = id.LedgerEntryID(entryID)
	return nil
}

func (s *PostgresStore) BackfillHashBefore(ctx context.Context, entryID id.LedgerEntryID, hashBefore id.Digest) error {
	// The amended row must still be its document's most recent entry and the
	// field must be unset; anything else is a misuse of the narrow window
	// this operation exists for.
	query := `
		UPDATE ledger_entries
		SET hash_before = $2
		WHERE id = $1
		  AND hash_before IS NULL
		  AND id = (
			SELECT id FROM ledger_entries
			WHERE document_id = (SELECT document_id FROM ledger_entries WHERE id = $1)
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		  )
	`
	res, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(entryID), string(hashBefore))
	if err != nil {
		return fmt.Errorf("backfill hash_before: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("backfill hash_before: %w", err)
	}
	if affected == 0 {
		if _, findErr := s.FindByID(ctx, entryID); errors.Is(findErr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, entryID id.LedgerEntryID) (*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE id = $1`
	entry, err := scanEntry(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(entryID)).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find ledger entry: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) ListForDocument(ctx context.Context, docID id.DocumentID) ([]models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE document_id = $1 ORDER BY created_at ASC, id ASC`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(docID))
	if err != nil {
		return nil, fmt.Errorf("list document entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *PostgresStore) ListForOrg(ctx context.Context, org string, filter models.Filter, page models.Page) ([]models.Entry, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}

	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE ($1 = '' OR org_name = $1)`
	args := []any{org}
	if filter.DocumentID != nil {
		args = append(args, uuid.UUID(*filter.DocumentID))
		query += fmt.Sprintf(" AND document_id = $%d", len(args))
	}
	if filter.Kind != nil {
		args = append(args, string(*filter.Kind))
		query += fmt.Sprintf(" AND event_kind = $%d", len(args))
	}
	args = append(args, limit, page.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list org entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *PostgresStore) Stats(ctx context.Context, org string, now time.Time) (*models.Stats, error) {
	stats := &models.Stats{CountsByKind: make(map[models.EventKind]int)}
	ex := s.execer(ctx)

	kindQuery := `
		SELECT event_kind, COUNT(*) FROM ledger_entries
		WHERE ($1 = '' OR org_name = $1)
		GROUP BY event_kind
	`
	rows, err := ex.QueryContext(ctx, kindQuery, org)
	if err != nil {
		return nil, fmt.Errorf("ledger stats by kind: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scan kind count: %w", err)
		}
		stats.CountsByKind[models.EventKind(kind)] = count
		stats.TotalEntries += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	recentQuery := `
		SELECT COUNT(*) FROM ledger_entries
		WHERE ($1 = '' OR org_name = $1) AND created_at >= $2
	`
	if err := ex.QueryRowContext(ctx, recentQuery, org, now.Add(-24*time.Hour)).Scan(&stats.Last24hCount); err != nil {
		return nil, fmt.Errorf("ledger stats last 24h: %w", err)
	}

	topQuery := `
		SELECT document_id, COUNT(*) AS entry_count FROM ledger_entries
		WHERE ($1 = '' OR org_name = $1)
		GROUP BY document_id
		ORDER BY entry_count DESC
		LIMIT 5
	`
	topRows, err := ex.QueryContext(ctx, topQuery, org)
	if err != nil {
		return nil, fmt.Errorf("ledger stats top documents: %w", err)
	}
	defer topRows.Close()
	for topRows.Next() {
		var docID uuid.UUID
		var count int
		if err := topRows.Scan(&docID, &count); err != nil {
			return nil, fmt.Errorf("scan top document: %w", err)
		}
		stats.TopDocuments = append(stats.TopDocuments, models.DocumentActivity{
			DocumentID: id.DocumentID(docID),
			EntryCount: count,
		})
	}
	return stats, topRows.Err()
}

func scanEntries(rows *sql.Rows) ([]models.Entry, error) {
	var out []models.Entry
	for rows.Next() {
		entry, err := scanEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		out = append(out, *entry)
	}
	return out, rows.Err()
}

func scanEntry(scan func(dest ...any) error) (*models.Entry, error) {
	var (
		entry      models.Entry
		entryID    uuid.UUID
		docID      uuid.UUID
		userID     uuid.UUID
		kind       string
		hashBefore sql.NullString
		hashAfter  sql.NullString
		ipAddress  sql.NullString
		userAgent  sql.NullString
		metadata   sql.NullString
	)
	err := scan(&entryID, &docID, &userID, &entry.Org, &kind, &entry.Description,
		&hashBefore, &hashAfter, &ipAddress, &userAgent, &metadata, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	entry.ID = id.LedgerEntryID(entryID)
	entry.DocumentID = id.DocumentID(docID)
	entry.UserID = id.UserID(userID)
	entry.Kind = models.EventKind(kind)
	entry.IPAddress = ipAddress.String
	entry.UserAgent = userAgent.String
	entry.Metadata = metadata.String
	if hashBefore.Valid {
		d := id.Digest(hashBefore.String)
		entry.HashBefore = &d
	}
	if hashAfter.Valid {
		d := id.Digest(hashAfter.String)
		entry.HashAfter = &d
	}
	return &entry, nil
}

func digestValue(d *id.Digest) any {
	if d == nil {
		return nil
	}
	return string(*d)
}
