package models

import (
	"math/rand/v2"
	"time"
)

const (
	idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	idLength   = 12
)

// NewID returns a 12-character random alphanumeric identifier.
// Uniqueness is probabilistic only; there is no collision check.
func NewID() string {
	b := make([]byte, idLength)
	for i := range b {
		b[i] = idAlphabet[rand.IntN(len(idAlphabet))]
	}
	return string(b)
}

type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// User is a registered responder. Records are created at registration and
// never updated or deleted by this service.
type User struct {
	ID        string         `json:"id"`
	Contact   string         `json:"contact"`
	Name      string         `json:"name,omitempty"`
	FCMToken  string         `json:"fcm_token,omitempty"`
	Location  *Coordinate    `json:"location,omitempty"` // nil when the user never shared one
	Attrs     map[string]any `json:"attrs,omitempty"`    // extra registration fields, stored verbatim
	CreatedAt time.Time      `json:"created_at"`
}
