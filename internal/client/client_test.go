package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pzaytsev/remindd/internal/db"
)

func TestNotificationClient_CreateNotification(t *testing.T) {
	reminderID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/notifications" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}

		var req CreateNotificationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if req.ReminderID != reminderID {
			t.Errorf("wrong reminder id in request")
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(db.ScheduledNotification{
			ID:         uuid.New(),
			ReminderID: req.ReminderID,
			Status:     db.NotificationScheduled,
		})
	}))
	defer srv.Close()

	c := NewNotificationClient(srv.URL, 5*time.Second, zap.NewNop())

	notif, err := c.CreateNotification(context.Background(), CreateNotificationRequest{
		ReminderID: reminderID,
		Text:       "water the plants",
		DeliverAt:  time.Now().Add(time.Hour),
		Channel:    db.ChannelEmail,
		Recipient:  "user@example.com",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if notif.ReminderID != reminderID {
		t.Error("response carries wrong reminder id")
	}
	if notif.Status != db.NotificationScheduled {
		t.Errorf("expected status scheduled, got %s", notif.Status)
	}
}

func TestNotificationClient_CreateNotification_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewNotificationClient(srv.URL, 5*time.Second, zap.NewNop())

	if _, err := c.CreateNotification(context.Background(), CreateNotificationRequest{
		ReminderID: uuid.New(),
	}); err == nil {
		t.Fatal("expected error on 500 response")
	}
}

func TestNotificationClient_CancelNotification(t *testing.T) {
	reminderID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		want := "/v1/notifications/" + reminderID.String()
		if r.Method != http.MethodDelete || r.URL.Path != want {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": db.NotificationCancelled})
	}))
	defer srv.Close()

	c := NewNotificationClient(srv.URL, 5*time.Second, zap.NewNop())

	if err := c.CancelNotification(context.Background(), reminderID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
}

func TestNotificationClient_CancelNotification_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewNotificationClient(srv.URL, 5*time.Second, zap.NewNop())

	err := c.CancelNotification(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got: %v", err)
	}
}

func TestStorageClient_UpdateReminderStatus(t *testing.T) {
	reminderID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		want := "/v1/reminders/" + reminderID.String() + "/status"
		if r.Method != http.MethodPut || r.URL.Path != want {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if body["status"] != db.ReminderSent {
			t.Errorf("expected status sent, got %q", body["status"])
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"id": reminderID.String(), "status": body["status"]})
	}))
	defer srv.Close()

	c := NewStorageClient(srv.URL, 5*time.Second, zap.NewNop())

	if err := c.UpdateReminderStatus(context.Background(), reminderID, db.ReminderSent); err != nil {
		t.Fatalf("update failed: %v", err)
	}
}

func TestStorageClient_UpdateReminderStatus_Conflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	c := NewStorageClient(srv.URL, 5*time.Second, zap.NewNop())

	// A 409 means the reminder already reached a terminal status. The
	// caller treats it as any other report failure: log and move on.
	if err := c.UpdateReminderStatus(context.Background(), uuid.New(), db.ReminderSent); err == nil {
		t.Fatal("expected error on 409 response")
	}
}
