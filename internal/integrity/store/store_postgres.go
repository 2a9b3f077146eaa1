package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"tradevault/internal/integrity/models"
	id "tradevault/pkg/domain"
	"tradevault/pkg/platform/sentinel"
	txcontext "tradevault/pkg/platform/tx"
)

// PostgresStore persists checks and alerts in the authoritative store.
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

const checkColumns = `id, document_id, check_type, status, stored_hash, computed_hash, checked_at, checked_by, remarks, created_at`

func (s *PostgresStore) CreateCheck(ctx context.Context, check *models.Check) error {
	checkID := uuid.New()
	query := `
		INSERT INTO integrity_checks (` + checkColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, clock_timestamp())
		RETURNING created_at
	`
	err := s.execer(ctx).QueryRowContext(ctx, query,
		checkID,
		uuid.UUID(check.DocumentID),
		check.CheckType,
		string(check.Status),
		string(check.StoredHash),
		digestValue(check.ComputedHash),
		check.CheckedAt,
		check.CheckedBy,
		check.Remarks,
	).Scan(&check.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert integrity check: %w", err)
	}
	check.ID = id.CheckID(checkID)
	return nil
}

func (s *PostgresStore) UpdateCheck(ctx context.Context, check *models.Check) error {
	query := `
		UPDATE integrity_checks
		SET status = $2, computed_hash = $3, checked_at = $4, remarks = $5
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(check.ID),
		string(check.Status),
		digestValue(check.ComputedHash),
		check.CheckedAt,
		check.Remarks,
	)
	if err != nil {
		return fmt.Errorf("update integrity check: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update integrity check: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListChecks(ctx context.Context, filter models.CheckFilter, page models.Page) ([]models.Check, error) {
	query := `SELECT ` + checkColumns + ` FROM integrity_checks WHERE true`
	var args []any
	if filter.DocumentID != nil {
		args = append(args, uuid.UUID(*filter.DocumentID))
		query += fmt.Sprintf(" AND document_id = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	limit := page.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	args = append(args, limit, page.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list integrity checks: %w", err)
	}
	defer rows.Close()

	var out []models.Check
	for rows.Next() {
		var (
			check    models.Check
			checkID  uuid.UUID
			docID    uuid.UUID
			status   string
			computed sql.NullString
			checked  sql.NullTime
			remarks  sql.NullString
		)
		err := rows.Scan(&checkID, &docID, &check.CheckType, &status, (*string)(&check.StoredHash),
			&computed, &checked, &check.CheckedBy, &remarks, &check.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan integrity check: %w", err)
		}
		check.ID = id.CheckID(checkID)
		check.DocumentID = id.DocumentID(docID)
		check.Status = models.CheckStatus(status)
		check.Remarks = remarks.String
		if computed.Valid {
			d := id.Digest(computed.String)
			check.ComputedHash = &d
		}
		if checked.Valid {
			t := checked.Time
			check.CheckedAt = &t
		}
		out = append(out, check)
	}
	return out, rows.Err()
}

const alertColumns = `id, alert_type, severity, document_id, integrity_check_id, message, acknowledged, acknowledged_by_id, acknowledged_at, created_at`

func (s *PostgresStore) CreateAlert(ctx context.Context, alert *models.Alert) error {
	alertID := uuid.New()
	query := `
		INSERT INTO alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, clock_timestamp())
		RETURNING created_at
	`
	err := s.execer(ctx).QueryRowContext(ctx, query,
		alertID,
		string(alert.Type),
		string(alert.Severity),
		docIDValue(alert.DocumentID),
		checkIDValue(alert.CheckID),
		alert.Message,
		alert.Acknowledged,
		userIDValue(alert.AcknowledgedBy),
		alert.AcknowledgedAt,
	).Scan(&alert.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	alert.ID = id.AlertID(alertID)
	return nil
}

func (s *PostgresStore) FindAlert(ctx context.Context, alertID id.AlertID) (*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`
	alert, err := scanAlert(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(alertID)).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find alert: %w", err)
	}
	return alert, nil
}

func (s *PostgresStore) UpdateAlert(ctx context.Context, alert *models.Alert) error {
	query := `
		UPDATE alerts
		SET acknowledged = $2, acknowledged_by_id = $3, acknowledged_at = $4
		WHERE id = $1
	`
	res, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(alert.ID),
		alert.Acknowledged,
		userIDValue(alert.AcknowledgedBy),
		alert.AcknowledgedAt,
	)
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListAlerts(ctx context.Context, filter models.AlertFilter, page models.Page) ([]models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE true`
	var args []any
	if filter.Acknowledged != nil {
		args = append(args, *filter.Acknowledged)
		query += fmt.Sprintf(" AND acknowledged = $%d", len(args))
	}
	if filter.Type != nil {
		args = append(args, string(*filter.Type))
		query += fmt.Sprintf(" AND alert_type = $%d", len(args))
	}
	limit := page.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	args = append(args, limit, page.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	var out []models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		out = append(out, *alert)
	}
	return out, rows.Err()
}

func scanAlert(scan func(dest ...any) error) (*models.Alert, error) {
	var (
		alert     models.Alert
		alertID   uuid.UUID
		alertType string
		severity  string
		docID     uuid.NullUUID
		checkID   uuid.NullUUID
		ackBy     uuid.NullUUID
		ackAt     sql.NullTime
	)
	err := scan(&alertID, &alertType, &severity, &docID, &checkID, &alert.Message,
		&alert.Acknowledged, &ackBy, &ackAt, &alert.CreatedAt)
	if err != nil {
		return nil, err
	}
	alert.ID = id.AlertID(alertID)
	alert.Type = models.AlertType(alertType)
	alert.Severity = models.Severity(severity)
	if docID.Valid {
		d := id.DocumentID(docID.UUID)
		alert.DocumentID = &d
	}
	if checkID.Valid {
		c := id.CheckID(checkID.UUID)
		alert.CheckID = &c
	}
	if ackBy.Valid {
		u := id.UserID(ackBy.UUID)
		alert.AcknowledgedBy = &u
	}
	if ackAt.Valid {
		t := ackAt.Time
		alert.AcknowledgedAt = &t
	}
	return &alert, nil
}

func digestValue(d *id.Digest) any {
	if d == nil {
		return nil
	}
	return string(*d)
}

func docIDValue(docID *id.DocumentID) any {
	if docID == nil {
		return nil
	}
	return uuid.UUID(*docID)
}

func checkIDValue(checkID *id.CheckID) any {
	if checkID == nil {
		return nil
	}
	return uuid.UUID(*checkID)
}

func userIDValue(userID *id.UserID) any {
	if userID == nil {
		return nil
	}
	return uuid.UUID(*userID)
}
