package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			contact TEXT,
			name TEXT,
			fcm_token TEXT,
			latitude REAL,
			longitude REAL,
			attrs TEXT,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			message TEXT NOT NULL,
			raw_message TEXT,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			responders INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS alert_responses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			alert_id TEXT NOT NULL,
			user_id TEXT,
			message TEXT,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (alert_id) REFERENCES alerts(id)
		);

		CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(created_at);
		CREATE INDEX IF NOT EXISTS idx_alert_responses_alert_id ON alert_responses(alert_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
