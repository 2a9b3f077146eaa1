// Package store persists integrity checks and the alerts they raise.
package store

import (
	"context"

	"tradevault/internal/integrity/models"
	id "tradevault/pkg/domain"
)

// DefaultPageLimit bounds listings when the caller does not.
const DefaultPageLimit = 100

type Store interface {
	// CreateCheck persists the check, assigning ID and CreatedAt.
	CreateCheck(ctx context.Context, check *models.Check) error
	// UpdateCheck persists a check's outcome fields.
	UpdateCheck(ctx context.Context, check *models.Check) error
	// ListChecks returns checks most recent first.
	ListChecks(ctx context.Context, filter models.CheckFilter, page models.Page) ([]models.Check, error)

	// CreateAlert persists the alert, assigning ID and CreatedAt.
	CreateAlert(ctx context.Context, alert *models.Alert) error
	FindAlert(ctx context.Context, alertID id.AlertID) (*models.Alert, error)
	// UpdateAlert persists an alert's acknowledgement fields.
	UpdateAlert(ctx context.Context, alert *models.Alert) error
	// ListAlerts returns alerts most recent first.
	ListAlerts(ctx context.Context, filter models.AlertFilter, page models.Page) ([]models.Alert, error)
}
