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

	"github.com/pzaytsev/remindd/internal/client"
	"github.com/pzaytsev/remindd/internal/db"
	"github.com/pzaytsev/remindd/internal/events"
	"github.com/pzaytsev/remindd/internal/metrics"
	"github.com/pzaytsev/remindd/internal/redis"
)

// ReminderRepository defines the storage operations the handler needs.
type ReminderRepository interface {
	CreateReminder(ctx context.Context, rem *db.Reminder) error
	GetReminder(ctx context.Context, id uuid.UUID) (*db.Reminder, error)
	ListReminders(ctx context.Context, status string) ([]*db.Reminder, error)
	SetReminderStatus(ctx context.Context, id uuid.UUID, status string) error
	TransitionReminderStatus(ctx context.Context, id uuid.UUID, status string) error
	DeleteReminder(ctx context.Context, id uuid.UUID) error
}

// NotificationService is the downstream notification service.
type NotificationService interface {
	CreateNotification(ctx context.Context, req client.CreateNotificationRequest) (*db.ScheduledNotification, error)
	CancelNotification(ctx context.Context, reminderID uuid.UUID) error
}

// EventPublisher publishes reminder lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, ev events.Event) error
}

// ReminderRequest represents the incoming create request body.
type ReminderRequest struct {
	Text      string    `json:"text"`
	DeliverAt time.Time `json:"deliver_at"`
	Channel   string    `json:"channel"`
	Recipient string    `json:"recipient"`
}

// StorageHandler serves the reminder API.
type StorageHandler struct {
	logger      *zap.Logger
	repo        ReminderRepository
	notifier    NotificationService
	idempotency *redis.IdempotencyService // nil if Redis not configured
	events      EventPublisher            // nil if SQS not configured
}

// NewStorageHandler creates the storage service handler. idempotency and
// publisher may be nil, which disables the corresponding feature.
func NewStorageHandler(logger *zap.Logger, repo ReminderRepository, notifier NotificationService, idempotency *redis.IdempotencyService, publisher EventPublisher) *StorageHandler {
	return &StorageHandler{
		logger:      logger,
		repo:        repo,
		notifier:    notifier,
		idempotency: idempotency,
		events:      publisher,
	}
}

// CreateReminder handles POST /v1/reminders.
// Supports idempotency via the Idempotency-Key header.
func (h *StorageHandler) CreateReminder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	idempotencyKey := r.Header.Get("Idempotency-Key")

	var req ReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body", err.Error())
		return
	}

	if req.Text == "" || req.Recipient == "" || req.Channel == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "Missing required fields", "text, channel, and recipient are required")
		return
	}

	if !db.ValidChannel(req.Channel) {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid channel", "channel must be email or push")
		return
	}

	// Delivery time is validated here and only here; downstream components
	// trust it.
	if !req.DeliverAt.After(time.Now()) {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid delivery time", "deliver_at must be strictly in the future")
		return
	}

	if idempotencyKey != "" && h.idempotency != nil {
		cachedResult, err := h.idempotency.CheckOrReserve(ctx, idempotencyKey)

		if err != nil {
			if errors.Is(err, redis.ErrDuplicateRequest) {
				writeError(w, http.StatusConflict, "duplicate_request",
					"Request is already being processed",
					"Another request with this idempotency key is in progress")
				return
			}
			h.logger.Warn("idempotency check failed, proceeding",
				zap.Error(err),
				zap.String("idempotency_key", idempotencyKey),
			)
		} else if cachedResult != nil {
			w.Header().Set("X-Idempotency-Replayed", "true")
			writeJSON(w, cachedResult.StatusCode, map[string]string{"id": cachedResult.ReminderID})
			return
		}
	}

	rem := &db.Reminder{
		ID:        uuid.New(),
		Text:      req.Text,
		DeliverAt: req.DeliverAt,
		Channel:   req.Channel,
		Recipient: req.Recipient,
		Status:    db.ReminderPending,
	}

	if err := h.repo.CreateReminder(ctx, rem); err != nil {
		h.logger.Error("failed to create reminder",
			zap.Error(err),
			zap.String("channel", req.Channel),
		)
		h.releaseIdempotency(ctx, idempotencyKey)
		writeError(w, http.StatusInternalServerError, "database_error", "Failed to create reminder", "")
		return
	}

	// Provision the delivery downstream. On failure the reminder stays
	// visible in error state: partial failure is observable, not hidden.
	_, err := h.notifier.CreateNotification(ctx, client.CreateNotificationRequest{
		ReminderID: rem.ID,
		Text:       rem.Text,
		DeliverAt:  rem.DeliverAt,
		Channel:    rem.Channel,
		Recipient:  rem.Recipient,
	})
	if err != nil {
		h.logger.Error("failed to provision notification",
			zap.Error(err),
			zap.String("reminder_id", rem.ID.String()),
		)

		if serr := h.repo.SetReminderStatus(ctx, rem.ID, db.ReminderError); serr != nil {
			h.logger.Error("failed to mark reminder as error",
				zap.Error(serr),
				zap.String("reminder_id", rem.ID.String()),
			)
		}

		h.releaseIdempotency(ctx, idempotencyKey)
		writeError(w, http.StatusBadGateway, "upstream_unavailable", "Failed to schedule notification", "")
		return
	}

	metrics.RecordReminderCreated(rem.Channel)

	h.logger.Info("reminder created",
		zap.String("reminder_id", rem.ID.String()),
		zap.String("channel", rem.Channel),
		zap.Time("deliver_at", rem.DeliverAt),
	)

	if idempotencyKey != "" && h.idempotency != nil {
		result := &redis.IdempotencyResult{
			ReminderID: rem.ID.String(),
			StatusCode: http.StatusCreated,
		}
		if err := h.idempotency.Store(ctx, idempotencyKey, result); err != nil {
			h.logger.Warn("failed to store idempotency result",
				zap.Error(err),
				zap.String("idempotency_key", idempotencyKey),
			)
		}
	}

	h.publishEvent(ctx, rem.ID, db.ReminderPending, rem.Channel)

	writeJSON(w, http.StatusCreated, rem)
}

// ListReminders handles GET /v1/reminders?status=
func (h *StorageHandler) ListReminders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := r.URL.Query().Get("status")
	if status != "" && !db.ValidReminderStatus(status) {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid status filter",
			"status must be one of: pending, sent, error, cancelled")
		return
	}

	reminders, err := h.repo.ListReminders(ctx, status)
	if err != nil {
		h.logger.Error("failed to list reminders", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "database_error", "Failed to list reminders", "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":  reminders,
		"count": len(reminders),
	})
}

// GetReminder handles GET /v1/reminders/{id}.
// Cancelled reminders are hidden from direct lookup.
func (h *StorageHandler) GetReminder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	rem, err := h.repo.GetReminder(ctx, id)
	if err != nil {
		if !errors.Is(err, db.ErrReminderNotFound) {
			h.logger.Error("failed to get reminder",
				zap.Error(err),
				zap.String("reminder_id", id.String()),
			)
		}
		writeError(w, http.StatusNotFound, "not_found", "Reminder not found", "")
		return
	}

	if rem.Status == db.ReminderCancelled {
		writeError(w, http.StatusNotFound, "not_found", "Reminder not found", "")
		return
	}

	writeJSON(w, http.StatusOK, rem)
}

// CancelReminder handles DELETE /v1/reminders/{id}.
// Cancellation is a status change; the row stays. Best-effort: if the
// delivery already fired downstream, the reminder still ends up cancelled
// locally.
func (h *StorageHandler) CancelReminder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	rem, err := h.repo.GetReminder(ctx, id)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "Reminder not found", "")
		return
	}

	if err := h.notifier.CancelNotification(ctx, id); err != nil {
		if errors.Is(err, client.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Notification not found", "")
			return
		}
		h.logger.Error("failed to cancel notification downstream",
			zap.Error(err),
			zap.String("reminder_id", id.String()),
		)
		writeError(w, http.StatusBadGateway, "upstream_unavailable", "Failed to cancel notification", "")
		return
	}

	if err := h.repo.SetReminderStatus(ctx, id, db.ReminderCancelled); err != nil {
		h.logger.Error("failed to set reminder status",
			zap.Error(err),
			zap.String("reminder_id", id.String()),
		)
		writeError(w, http.StatusInternalServerError, "database_error", "Failed to cancel reminder", "")
		return
	}

	h.logger.Info("reminder cancelled", zap.String("reminder_id", id.String()))

	h.publishEvent(ctx, id, db.ReminderCancelled, rem.Channel)

	writeJSON(w, http.StatusOK, map[string]string{
		"id":     id.String(),
		"status": db.ReminderCancelled,
	})
}

// UpdateReminderStatus handles PUT /v1/reminders/{id}/status, the
// reconciliation hook called by the notification service after a delivery
// attempt. The transition is guarded: only a pending reminder can move, so
// a late callback never overwrites a cancellation.
func (h *StorageHandler) UpdateReminderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body", err.Error())
		return
	}

	if !db.TerminalReminderStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid status",
			"status must be one of: sent, error, cancelled")
		return
	}

	err := h.repo.TransitionReminderStatus(ctx, id, req.Status)
	if err != nil {
		if errors.Is(err, db.ErrReminderNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Reminder not found", "")
			return
		}
		if errors.Is(err, db.ErrInvalidTransition) {
			writeError(w, http.StatusConflict, "invalid_transition",
				"Reminder already in a terminal status", "")
			return
		}
		h.logger.Error("failed to update reminder status",
			zap.Error(err),
			zap.String("reminder_id", id.String()),
			zap.String("status", req.Status),
		)
		writeError(w, http.StatusInternalServerError, "database_error", "Failed to update reminder", "")
		return
	}

	h.logger.Info("reminder status reconciled",
		zap.String("reminder_id", id.String()),
		zap.String("status", req.Status),
	)

	h.publishEvent(ctx, id, req.Status, "")

	writeJSON(w, http.StatusOK, map[string]string{
		"id":     id.String(),
		"status": req.Status,
	})
}

// PurgeReminder handles DELETE /v1/reminders/{id}/purge, the legacy hard
// delete kept from the first-generation API. Everything else cancels by
// status.
func (h *StorageHandler) PurgeReminder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if err := h.repo.DeleteReminder(ctx, id); err != nil {
		if errors.Is(err, db.ErrReminderNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Reminder not found", "")
			return
		}
		h.logger.Error("failed to purge reminder",
			zap.Error(err),
			zap.String("reminder_id", id.String()),
		)
		writeError(w, http.StatusInternalServerError, "database_error", "Failed to purge reminder", "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"id":     id.String(),
		"status": "purged",
	})
}

func (h *StorageHandler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid reminder ID", "ID must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// releaseIdempotency frees the processing reservation after a failed
// create so the client can retry with the same key immediately.
func (h *StorageHandler) releaseIdempotency(ctx context.Context, idempotencyKey string) {
	if idempotencyKey == "" || h.idempotency == nil {
		return
	}
	if err := h.idempotency.Release(ctx, idempotencyKey); err != nil {
		h.logger.Warn("failed to release idempotency key",
			zap.Error(err),
			zap.String("idempotency_key", idempotencyKey),
		)
	}
}

func (h *StorageHandler) publishEvent(ctx context.Context, id uuid.UUID, status, channel string) {
	if h.events == nil {
		return
	}
	ev := events.Event{
		ReminderID: id.String(),
		Status:     status,
		Channel:    channel,
	}
	if err := h.events.Publish(ctx, ev); err != nil {
		h.logger.Warn("failed to publish lifecycle event",
			zap.Error(err),
			zap.String("reminder_id", id.String()),
		)
	}
}
