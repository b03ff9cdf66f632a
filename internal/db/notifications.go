package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// NotificationRepository handles database operations for scheduled notifications.
type NotificationRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(db *DB, logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// CreateNotification inserts a new scheduled notification.
func (r *NotificationRepository) CreateNotification(ctx context.Context, notif *ScheduledNotification) error {
	query := `
		INSERT INTO scheduled_notifications (
			id, reminder_id, text, deliver_at, channel, recipient, status
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool().QueryRow(
		ctx,
		query,
		notif.ID,
		notif.ReminderID,
		notif.Text,
		notif.DeliverAt,
		notif.Channel,
		notif.Recipient,
		notif.Status,
	).Scan(&notif.CreatedAt, &notif.UpdatedAt)

	if err != nil {
		r.logger.Error("failed to create notification",
			zap.Error(err),
			zap.String("notification_id", notif.ID.String()),
		)
		return fmt.Errorf("insert notification: %w", err)
	}

	r.logger.Info("notification created",
		zap.String("notification_id", notif.ID.String()),
		zap.String("reminder_id", notif.ReminderID.String()),
		zap.String("channel", notif.Channel),
	)

	return nil
}

// GetNotificationByReminder retrieves the notification for a reminder id,
// regardless of status. One notification exists per reminder at any time.
func (r *NotificationRepository) GetNotificationByReminder(ctx context.Context, reminderID uuid.UUID) (*ScheduledNotification, error) {
	query := `
		SELECT id, reminder_id, text, deliver_at, channel, recipient, status, created_at, updated_at
		FROM scheduled_notifications
		WHERE reminder_id = $1
	`

	var notif ScheduledNotification
	err := r.db.Pool().QueryRow(ctx, query, reminderID).Scan(
		&notif.ID,
		&notif.ReminderID,
		&notif.Text,
		&notif.DeliverAt,
		&notif.Channel,
		&notif.Recipient,
		&notif.Status,
		&notif.CreatedAt,
		&notif.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotificationNotFound
	}

	if err != nil {
		r.logger.Error("failed to get notification",
			zap.Error(err),
			zap.String("reminder_id", reminderID.String()),
		)
		return nil, fmt.Errorf("query notification: %w", err)
	}

	return &notif, nil
}

// SetNotificationStatus overwrites the status unconditionally.
func (r *NotificationRepository) SetNotificationStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `UPDATE scheduled_notifications SET status = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.db.Pool().Exec(ctx, query, status, id)
	if err != nil {
		r.logger.Error("failed to set notification status",
			zap.Error(err),
			zap.String("notification_id", id.String()),
			zap.String("status", status),
		)
		return fmt.Errorf("update notification status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}

	return nil
}

// ClaimForDelivery atomically moves a notification from scheduled to
// sending and returns the claimed row. Returns (nil, nil) when the row is
// no longer scheduled (a duplicate fire, or a fire racing a cancellation).
// Exactly one caller can win the claim for a given notification.
func (r *NotificationRepository) ClaimForDelivery(ctx context.Context, id uuid.UUID) (*ScheduledNotification, error) {
	query := `
		UPDATE scheduled_notifications
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
		RETURNING id, reminder_id, text, deliver_at, channel, recipient, status, created_at, updated_at
	`

	var notif ScheduledNotification
	err := r.db.Pool().QueryRow(ctx, query, NotificationSending, id, NotificationScheduled).Scan(
		&notif.ID,
		&notif.ReminderID,
		&notif.Text,
		&notif.DeliverAt,
		&notif.Channel,
		&notif.Recipient,
		&notif.Status,
		&notif.CreatedAt,
		&notif.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		r.logger.Error("failed to claim notification for delivery",
			zap.Error(err),
			zap.String("notification_id", id.String()),
		)
		return nil, fmt.Errorf("claim notification: %w", err)
	}

	return &notif, nil
}

// CancelScheduled moves a notification from scheduled to cancelled.
// Returns false when the notification was not in the scheduled state
// (already fired or already cancelled); callers treat that as success,
// since cancellation racing a fire is expected.
func (r *NotificationRepository) CancelScheduled(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE scheduled_notifications
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`

	result, err := r.db.Pool().Exec(ctx, query, NotificationCancelled, id, NotificationScheduled)
	if err != nil {
		return false, fmt.Errorf("cancel notification: %w", err)
	}

	return result.RowsAffected() > 0, nil
}
