package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pzaytsev/remindd/internal/db"
	"github.com/pzaytsev/remindd/internal/notifier"
)

// mockNotifierService fakes the notification orchestrator.
type mockNotifierService struct {
	byReminder map[uuid.UUID]*db.ScheduledNotification

	createErr error
	cancelErr error
}

func newMockNotifierService() *mockNotifierService {
	return &mockNotifierService{byReminder: make(map[uuid.UUID]*db.ScheduledNotification)}
}

func (m *mockNotifierService) Create(ctx context.Context, req notifier.CreateRequest) (*db.ScheduledNotification, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	notif := &db.ScheduledNotification{
		ID:         uuid.New(),
		ReminderID: req.ReminderID,
		Text:       req.Text,
		DeliverAt:  req.DeliverAt,
		Channel:    req.Channel,
		Recipient:  req.Recipient,
		Status:     db.NotificationScheduled,
	}
	m.byReminder[req.ReminderID] = notif
	return notif, nil
}

func (m *mockNotifierService) Cancel(ctx context.Context, reminderID uuid.UUID) error {
	if m.cancelErr != nil {
		return m.cancelErr
	}
	notif, ok := m.byReminder[reminderID]
	if !ok {
		return db.ErrNotificationNotFound
	}
	notif.Status = db.NotificationCancelled
	return nil
}

func (m *mockNotifierService) Get(ctx context.Context, reminderID uuid.UUID) (*db.ScheduledNotification, error) {
	notif, ok := m.byReminder[reminderID]
	if !ok || notif.Status == db.NotificationCancelled {
		return nil, db.ErrNotificationNotFound
	}
	return notif, nil
}

func newNotificationRouter(svc NotifierService) chi.Router {
	h := NewNotificationHandler(zap.NewNop(), svc)
	r := chi.NewRouter()
	r.Post("/v1/notifications", h.CreateNotification)
	r.Get("/v1/notifications/{reminder_id}", h.GetNotification)
	r.Delete("/v1/notifications/{reminder_id}", h.CancelNotification)
	return r
}

func TestCreateNotification(t *testing.T) {
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
	}{
		{
			name: "valid request",
			requestBody: NotificationRequest{
				ReminderID: uuid.New(),
				Text:       "water the plants",
				DeliverAt:  future,
				Channel:    "email",
				Recipient:  "user@example.com",
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "missing reminder id",
			requestBody: NotificationRequest{
				Text:      "water the plants",
				DeliverAt: future,
				Channel:   "email",
				Recipient: "user@example.com",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "missing text",
			requestBody: NotificationRequest{
				ReminderID: uuid.New(),
				DeliverAt:  future,
				Channel:    "email",
				Recipient:  "user@example.com",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "unknown channel",
			requestBody: NotificationRequest{
				ReminderID: uuid.New(),
				Text:       "water the plants",
				DeliverAt:  future,
				Channel:    "fax",
				Recipient:  "user@example.com",
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "malformed json",
			requestBody:    "{not json",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newNotificationRouter(newMockNotifierService())

			rec := doRequest(t, router, http.MethodPost, "/v1/notifications", tt.requestBody)
			if rec.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d: %s", tt.expectedStatus, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCreateNotification_ScheduleFailure(t *testing.T) {
	svc := newMockNotifierService()
	svc.createErr = errors.New("redis down")
	router := newNotificationRouter(svc)

	rec := doRequest(t, router, http.MethodPost, "/v1/notifications", NotificationRequest{
		ReminderID: uuid.New(),
		Text:       "water the plants",
		DeliverAt:  time.Now().Add(time.Hour),
		Channel:    "email",
		Recipient:  "user@example.com",
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Type != "schedule_error" {
		t.Errorf("expected schedule_error, got %s", resp.Type)
	}
}

func TestGetNotification(t *testing.T) {
	svc := newMockNotifierService()
	router := newNotificationRouter(svc)

	reminderID := uuid.New()
	created, err := svc.Create(context.Background(), notifier.CreateRequest{
		ReminderID: reminderID,
		Text:       "water the plants",
		DeliverAt:  time.Now().Add(time.Hour),
		Channel:    "email",
		Recipient:  "user@example.com",
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	rec := doRequest(t, router, http.MethodGet, "/v1/notifications/"+reminderID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var got db.ScheduledNotification
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ID != created.ID {
		t.Error("got wrong notification")
	}
}

func TestGetNotification_NotFound(t *testing.T) {
	router := newNotificationRouter(newMockNotifierService())

	rec := doRequest(t, router, http.MethodGet, "/v1/notifications/"+uuid.NewString(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetNotification_InvalidID(t *testing.T) {
	router := newNotificationRouter(newMockNotifierService())

	rec := doRequest(t, router, http.MethodGet, "/v1/notifications/nope", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCancelNotification(t *testing.T) {
	svc := newMockNotifierService()
	router := newNotificationRouter(svc)

	reminderID := uuid.New()
	if _, err := svc.Create(context.Background(), notifier.CreateRequest{
		ReminderID: reminderID,
		Text:       "water the plants",
		DeliverAt:  time.Now().Add(time.Hour),
		Channel:    "email",
		Recipient:  "user@example.com",
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	rec := doRequest(t, router, http.MethodDelete, "/v1/notifications/"+reminderID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// Cancelled notifications read as absent afterwards.
	rec = doRequest(t, router, http.MethodGet, "/v1/notifications/"+reminderID.String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after cancel, got %d", rec.Code)
	}
}

func TestCancelNotification_NotFound(t *testing.T) {
	router := newNotificationRouter(newMockNotifierService())

	rec := doRequest(t, router, http.MethodDelete, "/v1/notifications/"+uuid.NewString(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
