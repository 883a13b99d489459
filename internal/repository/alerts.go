package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmfer1/go-emergency-alerts/internal/models"
)

func (s *SQLiteDB) AddAlert(ctx context.Context, a *models.Alert) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, message, raw_message, latitude, longitude, responders, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Message, a.RawMessage, a.Location.Latitude, a.Location.Longitude, a.Responders, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting alert: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, message, raw_message, latitude, longitude, responders, created_at
		FROM alerts WHERE id = ?`, id)

	a, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading alert: %w", err)
	}
	return a, nil
}

// ListAlerts returns the most recent alerts, newest first.
func (s *SQLiteDB) ListAlerts(ctx context.Context, limit int) ([]models.Alert, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, message, raw_message, latitude, longitude, responders, created_at
		FROM alerts ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("error listing alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning alert: %w", err)
		}
		alerts = append(alerts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}
	return alerts, nil
}

func (s *SQLiteDB) AddResponse(ctx context.Context, r *models.AlertResponse) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_responses (alert_id, user_id, message, created_at)
		VALUES (?, ?, ?, ?)`,
		r.AlertID, r.UserID, r.Message, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting alert response: %w", err)
	}
	return nil
}

func (s *SQLiteDB) ListResponses(ctx context.Context, alertID string) ([]models.AlertResponse, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT alert_id, user_id, message, created_at
		FROM alert_responses WHERE alert_id = ? ORDER BY rowid`, alertID)
	if err != nil {
		return nil, fmt.Errorf("error listing alert responses: %w", err)
	}
	defer rows.Close()

	var responses []models.AlertResponse
	for rows.Next() {
		var (
			r      models.AlertResponse
			userID sql.NullString
			msg    sql.NullString
		)
		if err := rows.Scan(&r.AlertID, &userID, &msg, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning alert response: %w", err)
		}
		r.UserID = userID.String
		r.Message = msg.String
		responses = append(responses, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert responses: %w", err)
	}
	return responses, nil
}

func scanAlert(row rowScanner) (*models.Alert, error) {
	var (
		a   models.Alert
		raw sql.NullString
	)
	if err := row.Scan(&a.ID, &a.Message, &raw, &a.Location.Latitude, &a.Location.Longitude, &a.Responders, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.RawMessage = raw.String
	return &a, nil
}
