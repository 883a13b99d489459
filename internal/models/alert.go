package models

import "time"

// Alert is a dispatched emergency alert as persisted for the nearby-alerts
// feed. Message holds the annotated text that was actually sent out;
// RawMessage is what the caller submitted.
type Alert struct {
	ID         string     `json:"id"`
	Message    string     `json:"message"`
	RawMessage string     `json:"raw_message,omitempty"`
	Location   Coordinate `json:"location"`
	Responders int        `json:"responders"` // matched responders at dispatch time
	CreatedAt  time.Time  `json:"created_at"`
}

// AlertResponse is an offer of help recorded against an alert.
type AlertResponse struct {
	AlertID   string    `json:"alert_id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
