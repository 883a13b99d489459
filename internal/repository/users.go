package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmfer1/go-emergency-alerts/internal/models"
)

const userColumns = "id, contact, name, fcm_token, latitude, longitude, attrs, created_at"

func (s *SQLiteDB) Add(ctx context.Context, u *models.User) error {
	var lat, lng any
	if u.Location != nil {
		lat = u.Location.Latitude
		lng = u.Location.Longitude
	}

	var attrs any
	if len(u.Attrs) > 0 {
		b, err := json.Marshal(u.Attrs)
		if err != nil {
			return fmt.Errorf("error encoding user attrs: %w", err)
		}
		attrs = string(b)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Contact, u.Name, u.FCMToken, lat, lng, attrs, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting user: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetByID(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading user: %w", err)
	}
	return u, nil
}

// All returns every registered user in registration (rowid) order. This is
// the scan order alert dispatch relies on.
func (s *SQLiteDB) All(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u        models.User
		contact  sql.NullString
		name     sql.NullString
		fcmToken sql.NullString
		lat, lng sql.NullFloat64
		attrs    sql.NullString
	)

	if err := row.Scan(&u.ID, &contact, &name, &fcmToken, &lat, &lng, &attrs, &u.CreatedAt); err != nil {
		return nil, err
	}

	u.Contact = contact.String
	u.Name = name.String
	u.FCMToken = fcmToken.String
	if lat.Valid && lng.Valid {
		u.Location = &models.Coordinate{Latitude: lat.Float64, Longitude: lng.Float64}
	}
	if attrs.Valid && attrs.String != "" {
		if err := json.Unmarshal([]byte(attrs.String), &u.Attrs); err != nil {
			return nil, fmt.Errorf("error decoding user attrs: %w", err)
		}
	}
	return &u, nil
}
