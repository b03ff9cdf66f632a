package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pzaytsev/remindd/internal/db"
)

// NotificationClient is the storage service's view of the notification
// service.
type NotificationClient struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// CreateNotificationRequest asks the notification service to schedule a
// delivery for a reminder.
type CreateNotificationRequest struct {
	ReminderID uuid.UUID `json:"reminder_id"`
	Text       string    `json:"text"`
	DeliverAt  time.Time `json:"deliver_at"`
	Channel    string    `json:"channel"`
	Recipient  string    `json:"recipient"`
}

// NewNotificationClient creates a client for the notification service.
func NewNotificationClient(baseURL string, timeout time.Duration, logger *zap.Logger) *NotificationClient {
	return &NotificationClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     logger,
	}
}

// CreateNotification schedules a delivery downstream. Any failure here
// leaves the caller's reminder in error state, so the error carries enough
// context to diagnose from the storage service's logs alone.
func (c *NotificationClient) CreateNotification(ctx context.Context, req CreateNotificationRequest) (*db.ScheduledNotification, error) {
	var notif db.ScheduledNotification
	url := c.baseURL + "/v1/notifications"

	if err := doJSON(ctx, c.httpClient, http.MethodPost, url, req, &notif); err != nil {
		c.logger.Error("failed to create notification downstream",
			zap.Error(err),
			zap.String("reminder_id", req.ReminderID.String()),
		)
		return nil, fmt.Errorf("notification service create: %w", err)
	}

	return &notif, nil
}

// CancelNotification revokes the scheduled delivery for a reminder.
// Returns ErrNotFound when the notification service knows nothing about
// the reminder.
func (c *NotificationClient) CancelNotification(ctx context.Context, reminderID uuid.UUID) error {
	url := fmt.Sprintf("%s/v1/notifications/%s", c.baseURL, reminderID)

	if err := doJSON(ctx, c.httpClient, http.MethodDelete, url, nil, nil); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		c.logger.Error("failed to cancel notification downstream",
			zap.Error(err),
			zap.String("reminder_id", reminderID.String()),
		)
		return fmt.Errorf("notification service cancel: %w", err)
	}

	return nil
}
