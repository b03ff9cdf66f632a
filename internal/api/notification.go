package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pzaytsev/remindd/internal/db"
	"github.com/pzaytsev/remindd/internal/notifier"
)

// NotifierService defines the orchestrator operations the handler needs.
type NotifierService interface {
	Create(ctx context.Context, req notifier.CreateRequest) (*db.ScheduledNotification, error)
	Cancel(ctx context.Context, reminderID uuid.UUID) error
	Get(ctx context.Context, reminderID uuid.UUID) (*db.ScheduledNotification, error)
}

// NotificationRequest represents the incoming create request body.
type NotificationRequest struct {
	ReminderID uuid.UUID `json:"reminder_id"`
	Text       string    `json:"text"`
	DeliverAt  time.Time `json:"deliver_at"`
	Channel    string    `json:"channel"`
	Recipient  string    `json:"recipient"`
}

// NotificationHandler serves the scheduled notification API.
type NotificationHandler struct {
	logger  *zap.Logger
	service NotifierService
}

// NewNotificationHandler creates the notification service handler.
func NewNotificationHandler(logger *zap.Logger, service NotifierService) *NotificationHandler {
	return &NotificationHandler{
		logger:  logger,
		service: service,
	}
}

// CreateNotification handles POST /v1/notifications.
func (h *NotificationHandler) CreateNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req NotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body", err.Error())
		return
	}

	if req.ReminderID == uuid.Nil || req.Text == "" || req.Recipient == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "Missing required fields",
			"reminder_id, text, and recipient are required")
		return
	}

	if !db.ValidChannel(req.Channel) {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid channel", "channel must be email or push")
		return
	}

	notif, err := h.service.Create(ctx, notifier.CreateRequest{
		ReminderID: req.ReminderID,
		Text:       req.Text,
		DeliverAt:  req.DeliverAt,
		Channel:    req.Channel,
		Recipient:  req.Recipient,
	})
	if err != nil {
		h.logger.Error("failed to create notification",
			zap.Error(err),
			zap.String("reminder_id", req.ReminderID.String()),
		)
		// The record may exist in error state; this is a server failure,
		// not absence.
		writeError(w, http.StatusInternalServerError, "schedule_error", "Failed to schedule notification", "")
		return
	}

	writeJSON(w, http.StatusCreated, notif)
}

// GetNotification handles GET /v1/notifications/{reminder_id}.
// Cancelled notifications read as not found.
func (h *NotificationHandler) GetNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	reminderID, ok := h.parseReminderID(w, r)
	if !ok {
		return
	}

	notif, err := h.service.Get(ctx, reminderID)
	if err != nil {
		if !errors.Is(err, db.ErrNotificationNotFound) {
			h.logger.Error("failed to get notification",
				zap.Error(err),
				zap.String("reminder_id", reminderID.String()),
			)
		}
		writeError(w, http.StatusNotFound, "not_found", "Notification not found", "")
		return
	}

	writeJSON(w, http.StatusOK, notif)
}

// CancelNotification handles DELETE /v1/notifications/{reminder_id}.
func (h *NotificationHandler) CancelNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	reminderID, ok := h.parseReminderID(w, r)
	if !ok {
		return
	}

	if err := h.service.Cancel(ctx, reminderID); err != nil {
		if errors.Is(err, db.ErrNotificationNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Notification not found", "")
			return
		}
		h.logger.Error("failed to cancel notification",
			zap.Error(err),
			zap.String("reminder_id", reminderID.String()),
		)
		writeError(w, http.StatusInternalServerError, "cancel_error", "Failed to cancel notification", "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"reminder_id": reminderID.String(),
		"status":      db.NotificationCancelled,
	})
}

func (h *NotificationHandler) parseReminderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "reminder_id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid reminder ID", "ID must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}
