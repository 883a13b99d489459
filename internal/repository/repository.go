package repository

import (
	"context"

	"github.com/jmfer1/go-emergency-alerts/internal/models"
)

// UserRepository is the read/append view over the registered-user
// directory. All returns every record in registration order; alert
// dispatch iterates that order.
type UserRepository interface {
	Add(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	All(ctx context.Context) ([]models.User, error)
}

// AlertRepository keeps the history of dispatched alerts and the help
// responses recorded against them.
type AlertRepository interface {
	AddAlert(ctx context.Context, a *models.Alert) error
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
	ListAlerts(ctx context.Context, limit int) ([]models.Alert, error)
	AddResponse(ctx context.Context, r *models.AlertResponse) error
	ListResponses(ctx context.Context, alertID string) ([]models.AlertResponse, error)
}
