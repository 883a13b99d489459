package alerting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jmfer1/go-emergency-alerts/internal/models"
	"github.com/jmfer1/go-emergency-alerts/internal/ws"
)

type fakeUsers struct {
	users []models.User
	err   error
	calls int
}

func (f *fakeUsers) Add(ctx context.Context, u *models.User) error { return nil }
func (f *fakeUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	return nil, nil
}
func (f *fakeUsers) All(ctx context.Context) ([]models.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.users, nil
}

type fakeAlerts struct {
	alerts    []models.Alert
	responses []models.AlertResponse
	addErr    error
	listErr   error
}

func (f *fakeAlerts) AddAlert(ctx context.Context, a *models.Alert) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.alerts = append(f.alerts, *a)
	return nil
}
func (f *fakeAlerts) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	for _, a := range f.alerts {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, nil
}
func (f *fakeAlerts) ListAlerts(ctx context.Context, limit int) ([]models.Alert, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.alerts, nil
}
func (f *fakeAlerts) AddResponse(ctx context.Context, r *models.AlertResponse) error {
	f.responses = append(f.responses, *r)
	return nil
}
func (f *fakeAlerts) ListResponses(ctx context.Context, alertID string) ([]models.AlertResponse, error) {
	return f.responses, nil
}

type stubAnnotator struct {
	text  string
	err   error
	calls int
}

func (s *stubAnnotator) Annotate(ctx context.Context, prompt string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

type recordingNotifier struct {
	recipients []models.User
	message    string
	calls      int
}

func (r *recordingNotifier) Dispatch(ctx context.Context, recipients []models.User, message string) {
	r.calls++
	r.recipients = recipients
	r.message = message
}

type recordingPublisher struct {
	events []ws.Event
}

func (r *recordingPublisher) Broadcast(ev ws.Event) {
	r.events = append(r.events, ev)
}

func newTestService(users *fakeUsers, alerts *fakeAlerts, annotator *stubAnnotator, notifier *recordingNotifier, publisher *recordingPublisher) *Service {
	return NewService(users, alerts, annotator, notifier, publisher, DefaultAlertRadiusKm)
}

func TestSendAlert_HappyPath(t *testing.T) {
	users := &fakeUsers{users: []models.User{
		{ID: "a", Contact: "a@x", Location: loc(1.0, 1.0), FCMToken: "t1"},
		{ID: "b", Contact: "b@x", Location: loc(50.0, 50.0), FCMToken: "t2"},
	}}
	alerts := &fakeAlerts{}
	annotator := &stubAnnotator{text: "Emergency: flooding reported nearby."}
	notifier := &recordingNotifier{}
	publisher := &recordingPublisher{}

	svc := newTestService(users, alerts, annotator, notifier, publisher)

	res, err := svc.SendAlert(context.Background(), AlertRequest{
		Origin:  loc(1.0, 1.0),
		Message: "flooding",
	})
	if err != nil {
		t.Fatalf("SendAlert failed: %v", err)
	}

	if res.Message != "Emergency: flooding reported nearby." {
		t.Errorf("unexpected message: %q", res.Message)
	}
	if len(res.RespondersAlerted) != 1 || res.RespondersAlerted[0] != "a@x" {
		t.Errorf("expected responders [a@x], got %v", res.RespondersAlerted)
	}

	if notifier.calls != 1 {
		t.Fatalf("expected 1 dispatch, got %d", notifier.calls)
	}
	if len(notifier.recipients) != 1 || notifier.recipients[0].FCMToken != "t1" {
		t.Errorf("expected dispatch to t1 only, got %+v", notifier.recipients)
	}
	if notifier.message != res.Message {
		t.Errorf("dispatched message %q differs from result %q", notifier.message, res.Message)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(publisher.events))
	}
	if publisher.events[0].Event != "new_alert" {
		t.Errorf("expected new_alert event, got %q", publisher.events[0].Event)
	}

	if len(alerts.alerts) != 1 {
		t.Fatalf("expected alert persisted, got %d", len(alerts.alerts))
	}
	if alerts.alerts[0].Responders != 1 {
		t.Errorf("expected 1 responder recorded, got %d", alerts.alerts[0].Responders)
	}
}

func TestSendAlert_InvalidRequest(t *testing.T) {
	tests := []struct {
		name string
		req  AlertRequest
	}{
		{"missing origin", AlertRequest{Message: "help"}},
		{"empty message", AlertRequest{Origin: loc(1, 1)}},
		{"whitespace message", AlertRequest{Origin: loc(1, 1), Message: "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := &fakeUsers{}
			annotator := &stubAnnotator{text: "x"}
			notifier := &recordingNotifier{}
			publisher := &recordingPublisher{}
			svc := newTestService(users, &fakeAlerts{}, annotator, notifier, publisher)

			_, err := svc.SendAlert(context.Background(), tt.req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}

			// Validation fails before any collaborator is invoked.
			if annotator.calls != 0 || users.calls != 0 || notifier.calls != 0 || len(publisher.events) != 0 {
				t.Error("collaborators should not be invoked on invalid request")
			}
		})
	}
}

func TestSendAlert_AnnotationFailureDegrades(t *testing.T) {
	users := &fakeUsers{users: []models.User{
		{ID: "a", Contact: "a@x", Location: loc(1.0, 1.0), FCMToken: "t1"},
	}}
	annotator := &stubAnnotator{err: errors.New("model overloaded")}
	notifier := &recordingNotifier{}
	publisher := &recordingPublisher{}

	svc := newTestService(users, &fakeAlerts{}, annotator, notifier, publisher)

	res, err := svc.SendAlert(context.Background(), AlertRequest{
		Origin:  loc(1.0, 1.0),
		Message: "fire",
	})
	if err != nil {
		t.Fatalf("SendAlert should not fail on annotation error, got %v", err)
	}

	if !strings.HasPrefix(res.Message, "AI error:") {
		t.Errorf("expected fallback message, got %q", res.Message)
	}
	if len(res.RespondersAlerted) != 1 || res.RespondersAlerted[0] != "a@x" {
		t.Errorf("expected responders unaffected by annotation failure, got %v", res.RespondersAlerted)
	}
	if notifier.calls != 1 {
		t.Error("dispatch should still run with the fallback message")
	}
	if len(publisher.events) != 1 {
		t.Error("broadcast should still run with the fallback message")
	}
}

func TestSendAlert_DirectoryFailureIsFatal(t *testing.T) {
	users := &fakeUsers{err: errors.New("store unavailable")}
	notifier := &recordingNotifier{}
	publisher := &recordingPublisher{}

	svc := newTestService(users, &fakeAlerts{}, &stubAnnotator{text: "x"}, notifier, publisher)

	_, err := svc.SendAlert(context.Background(), AlertRequest{
		Origin:  loc(1.0, 1.0),
		Message: "help",
	})
	if err == nil {
		t.Fatal("expected directory failure to surface")
	}
	if notifier.calls != 0 || len(publisher.events) != 0 {
		t.Error("no side effects after directory failure")
	}
}

func TestSendAlert_HistoryWriteFailureIsSwallowed(t *testing.T) {
	users := &fakeUsers{}
	alerts := &fakeAlerts{addErr: errors.New("disk full")}

	svc := newTestService(users, alerts, &stubAnnotator{text: "x"}, &recordingNotifier{}, &recordingPublisher{})

	if _, err := svc.SendAlert(context.Background(), AlertRequest{Origin: loc(1, 1), Message: "help"}); err != nil {
		t.Fatalf("history write failure should not surface, got %v", err)
	}
}

func TestSendAlert_NoMatches(t *testing.T) {
	users := &fakeUsers{users: []models.User{
		{ID: "far", Contact: "far@x", Location: loc(50.0, 50.0), FCMToken: "t1"},
	}}
	notifier := &recordingNotifier{}
	publisher := &recordingPublisher{}

	svc := newTestService(users, &fakeAlerts{}, &stubAnnotator{text: "x"}, notifier, publisher)

	res, err := svc.SendAlert(context.Background(), AlertRequest{Origin: loc(1, 1), Message: "help"})
	if err != nil {
		t.Fatalf("SendAlert failed: %v", err)
	}
	if len(res.RespondersAlerted) != 0 {
		t.Errorf("expected no responders, got %v", res.RespondersAlerted)
	}
	// Dispatch and broadcast still happen, with an empty batch.
	if notifier.calls != 1 || len(publisher.events) != 1 {
		t.Error("pipeline steps must run even with no matches")
	}
}

func TestNearbyAlerts_FiltersAndSorts(t *testing.T) {
	now := time.Now()
	alerts := &fakeAlerts{alerts: []models.Alert{
		{ID: "far000000001", Location: models.Coordinate{Latitude: 0, Longitude: 0.05}, CreatedAt: now}, // ~5.6 km
		{ID: "near00000001", Location: models.Coordinate{Latitude: 0, Longitude: 0.01}, CreatedAt: now}, // ~1.1 km
		{ID: "away00000001", Location: models.Coordinate{Latitude: 50, Longitude: 50}, CreatedAt: now},
	}}

	svc := newTestService(&fakeUsers{}, alerts, &stubAnnotator{text: "x"}, &recordingNotifier{}, &recordingPublisher{})

	nearby, err := svc.NearbyAlerts(context.Background(), models.Coordinate{Latitude: 0, Longitude: 0}, 10)
	if err != nil {
		t.Fatalf("NearbyAlerts failed: %v", err)
	}

	if len(nearby) != 2 {
		t.Fatalf("expected 2 nearby alerts, got %d", len(nearby))
	}
	if nearby[0].ID != "near00000001" || nearby[1].ID != "far000000001" {
		t.Errorf("expected nearest-first order, got %s, %s", nearby[0].ID, nearby[1].ID)
	}
}

func TestRespond(t *testing.T) {
	now := time.Now()
	alerts := &fakeAlerts{alerts: []models.Alert{
		{ID: "alert0000001", Message: "help", Location: models.Coordinate{Latitude: 1, Longitude: 1}, CreatedAt: now},
	}}
	publisher := &recordingPublisher{}

	svc := newTestService(&fakeUsers{}, alerts, &stubAnnotator{text: "x"}, &recordingNotifier{}, publisher)

	if err := svc.Respond(context.Background(), "alert0000001", "u1", "on my way"); err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if len(alerts.responses) != 1 {
		t.Fatalf("expected response recorded, got %d", len(alerts.responses))
	}
	if len(publisher.events) != 1 || publisher.events[0].Event != "alert_response" {
		t.Errorf("expected alert_response broadcast, got %+v", publisher.events)
	}

	if err := svc.Respond(context.Background(), "missing00001", "u1", "hello"); !errors.Is(err, ErrAlertNotFound) {
		t.Errorf("expected ErrAlertNotFound, got %v", err)
	}
	if err := svc.Respond(context.Background(), "alert0000001", "u1", ""); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for empty message, got %v", err)
	}
}
