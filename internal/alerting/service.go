// Package alerting implements the proximity-based alert dispatch workflow:
// annotate the message, match nearby responders, notify them, and publish
// the alert to realtime listeners.
package alerting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jmfer1/go-emergency-alerts/internal/geo"
	"github.com/jmfer1/go-emergency-alerts/internal/models"
	"github.com/jmfer1/go-emergency-alerts/internal/repository"
	"github.com/jmfer1/go-emergency-alerts/internal/ws"
)

// DefaultNearbyRadiusKm is the default radius for nearby-alert queries.
// Distinct from the dispatch radius.
const DefaultNearbyRadiusKm = 10.0

var (
	ErrInvalidRequest = errors.New("missing required fields")
	ErrAlertNotFound  = errors.New("alert not found")
)

type AlertRequest struct {
	Origin  *models.Coordinate
	Message string
}

type AlertResult struct {
	ID                string
	Message           string
	RespondersAlerted []string
}

// Notifier fans an alert message out to matched responders.
type Notifier interface {
	Dispatch(ctx context.Context, recipients []models.User, message string)
}

// Publisher delivers finalized alerts to realtime listeners.
type Publisher interface {
	Broadcast(ev ws.Event)
}

type Service struct {
	users     repository.UserRepository
	alerts    repository.AlertRepository
	annotator Annotator
	notifier  Notifier
	publisher Publisher
	radiusKm  float64
}

func NewService(users repository.UserRepository, alerts repository.AlertRepository, annotator Annotator, notifier Notifier, publisher Publisher, radiusKm float64) *Service {
	if radiusKm <= 0 {
		radiusKm = DefaultAlertRadiusKm
	}
	return &Service{
		users:     users,
		alerts:    alerts,
		annotator: annotator,
		notifier:  notifier,
		publisher: publisher,
		radiusKm:  radiusKm,
	}
}

// SendAlert runs the dispatch pipeline. Only two failures surface to the
// caller: an invalid request and a directory read error. Annotation and
// per-recipient delivery failures degrade the result without failing it.
func (s *Service) SendAlert(ctx context.Context, req AlertRequest) (*AlertResult, error) {
	if req.Origin == nil || strings.TrimSpace(req.Message) == "" {
		return nil, ErrInvalidRequest
	}

	polished := s.annotate(ctx, req.Message)

	users, err := s.users.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("error reading user directory: %w", err)
	}

	matches := Match(*req.Origin, s.radiusKm, users)

	s.notifier.Dispatch(ctx, matches, polished)

	s.publisher.Broadcast(ws.Event{
		Event: "new_alert",
		Data: map[string]any{
			"message":  polished,
			"location": *req.Origin,
		},
	})

	alertsSent.Inc()

	alert := &models.Alert{
		ID:         models.NewID(),
		Message:    polished,
		RawMessage: req.Message,
		Location:   *req.Origin,
		Responders: len(matches),
		CreatedAt:  time.Now(),
	}
	// History is a side channel; a write failure never fails the alert.
	if err := s.alerts.AddAlert(ctx, alert); err != nil {
		slog.Error("failed to persist alert", "alert_id", alert.ID, "error", err)
	}

	contacts := make([]string, 0, len(matches))
	for _, m := range matches {
		contacts = append(contacts, m.Contact)
	}

	return &AlertResult{
		ID:                alert.ID,
		Message:           polished,
		RespondersAlerted: contacts,
	}, nil
}

// annotate never fails upward: any annotator error becomes a descriptive
// fallback string and the workflow proceeds.
func (s *Service) annotate(ctx context.Context, raw string) string {
	polished, err := s.annotator.Annotate(ctx, raw)
	if err != nil {
		annotationFailures.Inc()
		slog.Warn("annotation failed, using fallback", "error", err)
		return fmt.Sprintf("AI error: %v", err)
	}
	return polished
}

// NearbyAlert is an alert paired with its distance from the query origin.
type NearbyAlert struct {
	models.Alert
	DistanceKm float64 `json:"distance_km"`
}

// NearbyAlerts returns recent alerts within radiusKm of origin, nearest
// first. Alerts whose stored coordinates fail the distance computation are
// skipped.
func (s *Service) NearbyAlerts(ctx context.Context, origin models.Coordinate, radiusKm float64) ([]NearbyAlert, error) {
	if radiusKm <= 0 {
		radiusKm = DefaultNearbyRadiusKm
	}

	alerts, err := s.alerts.ListAlerts(ctx, 100)
	if err != nil {
		return nil, fmt.Errorf("error listing alerts: %w", err)
	}

	nearby := make([]NearbyAlert, 0)
	for _, a := range alerts {
		d, err := geo.DistanceKm(origin, a.Location)
		if err != nil {
			continue
		}
		if d <= radiusKm {
			nearby = append(nearby, NearbyAlert{Alert: a, DistanceKm: d})
		}
	}

	sort.Slice(nearby, func(i, j int) bool {
		return nearby[i].DistanceKm < nearby[j].DistanceKm
	})
	return nearby, nil
}

// Respond records an offer of help against an existing alert and publishes
// it to realtime listeners.
func (s *Service) Respond(ctx context.Context, alertID, userID, message string) error {
	if alertID == "" || strings.TrimSpace(message) == "" {
		return ErrInvalidRequest
	}

	alert, err := s.alerts.GetAlert(ctx, alertID)
	if err != nil {
		return fmt.Errorf("error reading alert: %w", err)
	}
	if alert == nil {
		return ErrAlertNotFound
	}

	resp := &models.AlertResponse{
		AlertID:   alertID,
		UserID:    userID,
		Message:   message,
		CreatedAt: time.Now(),
	}
	if err := s.alerts.AddResponse(ctx, resp); err != nil {
		return fmt.Errorf("error recording response: %w", err)
	}

	s.publisher.Broadcast(ws.Event{Event: "alert_response", Data: resp})
	return nil
}
