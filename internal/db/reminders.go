package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ReminderRepository handles database operations for reminders.
type ReminderRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewReminderRepository creates a new reminder repository.
func NewReminderRepository(db *DB, logger *zap.Logger) *ReminderRepository {
	return &ReminderRepository{
		db:     db,
		logger: logger,
	}
}

// CreateReminder inserts a new reminder.
func (r *ReminderRepository) CreateReminder(ctx context.Context, rem *Reminder) error {
	query := `
		INSERT INTO reminders (
			id, text, deliver_at, channel, recipient, status
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
		RETURNING created_at, updated_at
	`

	err := r.db.Pool().QueryRow(
		ctx,
		query,
		rem.ID,
		rem.Text,
		rem.DeliverAt,
		rem.Channel,
		rem.Recipient,
		rem.Status,
	).Scan(&rem.CreatedAt, &rem.UpdatedAt)

	if err != nil {
		r.logger.Error("failed to create reminder",
			zap.Error(err),
			zap.String("reminder_id", rem.ID.String()),
		)
		return fmt.Errorf("insert reminder: %w", err)
	}

	r.logger.Info("reminder created",
		zap.String("reminder_id", rem.ID.String()),
		zap.String("channel", rem.Channel),
		zap.Time("deliver_at", rem.DeliverAt),
	)

	return nil
}

// GetReminder retrieves a reminder by ID regardless of status.
// Visibility policy (cancelled reminders are hidden from direct lookup)
// belongs to the API layer, which also needs the raw row for cancellation.
func (r *ReminderRepository) GetReminder(ctx context.Context, id uuid.UUID) (*Reminder, error) {
	query := `
		SELECT id, text, deliver_at, channel, recipient, status, created_at, updated_at
		FROM reminders
		WHERE id = $1
	`

	var rem Reminder
	err := r.db.Pool().QueryRow(ctx, query, id).Scan(
		&rem.ID,
		&rem.Text,
		&rem.DeliverAt,
		&rem.Channel,
		&rem.Recipient,
		&rem.Status,
		&rem.CreatedAt,
		&rem.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReminderNotFound
	}

	if err != nil {
		r.logger.Error("failed to get reminder",
			zap.Error(err),
			zap.String("reminder_id", id.String()),
		)
		return nil, fmt.Errorf("query reminder: %w", err)
	}

	return &rem, nil
}

// ListReminders retrieves reminders, optionally filtered by exact status.
// An empty status returns everything, including cancelled reminders.
func (r *ReminderRepository) ListReminders(ctx context.Context, status string) ([]*Reminder, error) {
	query := `
		SELECT id, text, deliver_at, channel, recipient, status, created_at, updated_at
		FROM reminders
	`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reminders: %w", err)
	}
	defer rows.Close()

	var reminders []*Reminder
	for rows.Next() {
		var rem Reminder
		err := rows.Scan(
			&rem.ID,
			&rem.Text,
			&rem.DeliverAt,
			&rem.Channel,
			&rem.Recipient,
			&rem.Status,
			&rem.CreatedAt,
			&rem.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		reminders = append(reminders, &rem)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return reminders, nil
}

// SetReminderStatus overwrites the status unconditionally. Used for the
// provisioning failure flip (pending -> error) and for cancellation, where
// the local status must end up cancelled even if delivery already fired.
func (r *ReminderRepository) SetReminderStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `UPDATE reminders SET status = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.db.Pool().Exec(ctx, query, status, id)
	if err != nil {
		r.logger.Error("failed to set reminder status",
			zap.Error(err),
			zap.String("reminder_id", id.String()),
			zap.String("status", status),
		)
		return fmt.Errorf("update reminder status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrReminderNotFound
	}

	return nil
}

// TransitionReminderStatus applies a guarded pending -> terminal transition.
// A late delivery callback racing a cancellation loses here: the conditional
// UPDATE only matches pending rows, so a terminal reminder is never
// resurrected. Returns ErrInvalidTransition when the reminder exists but is
// no longer pending.
func (r *ReminderRepository) TransitionReminderStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `
		UPDATE reminders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`

	result, err := r.db.Pool().Exec(ctx, query, status, id, ReminderPending)
	if err != nil {
		r.logger.Error("failed to transition reminder status",
			zap.Error(err),
			zap.String("reminder_id", id.String()),
			zap.String("status", status),
		)
		return fmt.Errorf("transition reminder status: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Distinguish a missing row from a lost race.
		if _, err := r.GetReminder(ctx, id); err != nil {
			return err
		}
		return ErrInvalidTransition
	}

	return nil
}

// DeleteReminder physically removes a reminder. Only the legacy purge
// endpoint uses this; everything else cancels by status.
func (r *ReminderRepository) DeleteReminder(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Pool().Exec(ctx, `DELETE FROM reminders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrReminderNotFound
	}

	r.logger.Info("reminder purged", zap.String("reminder_id", id.String()))

	return nil
}
