// Package notifier orchestrates scheduled notifications: it owns the
// mapping from a reminder to a scheduler job, executes delivery when the
// job fires, and reports the outcome back to the storage service.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pzaytsev/remindd/internal/db"
	"github.com/pzaytsev/remindd/internal/delivery"
	"github.com/pzaytsev/remindd/internal/metrics"
	"github.com/pzaytsev/remindd/internal/scheduler"
)

// NotificationRepository defines the store operations the orchestrator needs.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notif *db.ScheduledNotification) error
	GetNotificationByReminder(ctx context.Context, reminderID uuid.UUID) (*db.ScheduledNotification, error)
	SetNotificationStatus(ctx context.Context, id uuid.UUID, status string) error
	ClaimForDelivery(ctx context.Context, id uuid.UUID) (*db.ScheduledNotification, error)
	CancelScheduled(ctx context.Context, id uuid.UUID) (bool, error)
}

// JobScheduler defines the scheduler operations the orchestrator needs.
type JobScheduler interface {
	Schedule(ctx context.Context, jobID string, fireAt time.Time, p scheduler.Payload) error
	Cancel(ctx context.Context, jobID string) error
}

// StatusReporter reports delivery outcomes to the storage service.
type StatusReporter interface {
	UpdateReminderStatus(ctx context.Context, reminderID uuid.UUID, status string) error
}

// CreateRequest carries the fields needed to schedule a notification.
type CreateRequest struct {
	ReminderID uuid.UUID
	Text       string
	DeliverAt  time.Time
	Channel    string
	Recipient  string
}

// Service is the notification orchestrator.
type Service struct {
	repo    NotificationRepository
	sched   JobScheduler
	sender  delivery.Sender
	storage StatusReporter
	logger  *zap.Logger
}

// New creates a notification orchestrator.
func New(repo NotificationRepository, sched JobScheduler, sender delivery.Sender, storage StatusReporter, logger *zap.Logger) *Service {
	return &Service{
		repo:    repo,
		sched:   sched,
		sender:  sender,
		storage: storage,
		logger:  logger,
	}
}

// JobID derives the scheduler job id for a notification. Deterministic, so
// cancellation can target the job without an extra index.
func JobID(notificationID uuid.UUID) string {
	return "notification:" + notificationID.String()
}

// Create persists a scheduled notification and registers its delivery job.
// When scheduling fails the notification is flipped to error synchronously
// and returned alongside the error: the record exists either way, callers
// must not assume absence on failure.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*db.ScheduledNotification, error) {
	notif := &db.ScheduledNotification{
		ID:         uuid.New(),
		ReminderID: req.ReminderID,
		Text:       req.Text,
		DeliverAt:  req.DeliverAt,
		Channel:    req.Channel,
		Recipient:  req.Recipient,
		Status:     db.NotificationScheduled,
	}

	if err := s.repo.CreateNotification(ctx, notif); err != nil {
		return nil, err
	}

	payload := scheduler.Payload{NotificationID: notif.ID}
	if err := s.sched.Schedule(ctx, JobID(notif.ID), notif.DeliverAt, payload); err != nil {
		s.logger.Error("failed to schedule delivery job",
			zap.Error(err),
			zap.String("notification_id", notif.ID.String()),
		)

		if serr := s.repo.SetNotificationStatus(ctx, notif.ID, db.NotificationError); serr != nil {
			s.logger.Error("failed to mark notification as error",
				zap.Error(serr),
				zap.String("notification_id", notif.ID.String()),
			)
		}
		notif.Status = db.NotificationError

		return notif, fmt.Errorf("schedule delivery job: %w", err)
	}

	return notif, nil
}

// OnFire is the scheduler callback. The conditional claim at the store
// makes duplicate and late fires silent no-ops: only the caller that wins
// scheduled -> sending performs the delivery.
func (s *Service) OnFire(ctx context.Context, p scheduler.Payload) {
	notif, err := s.repo.ClaimForDelivery(ctx, p.NotificationID)
	if err != nil {
		s.logger.Error("failed to claim notification",
			zap.Error(err),
			zap.String("notification_id", p.NotificationID.String()),
		)
		return
	}
	if notif == nil {
		s.logger.Debug("fire skipped, notification no longer scheduled",
			zap.String("notification_id", p.NotificationID.String()),
		)
		return
	}

	msg := delivery.Message{
		NotificationID: notif.ID,
		Channel:        notif.Channel,
		Recipient:      notif.Recipient,
		Text:           notif.Text,
	}

	status := db.NotificationSent
	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Error("delivery failed",
			zap.Error(err),
			zap.String("notification_id", notif.ID.String()),
			zap.String("channel", notif.Channel),
		)
		status = db.NotificationError
	}

	metrics.RecordDeliveryAttempt(notif.Channel, status)

	if err := s.repo.SetNotificationStatus(ctx, notif.ID, status); err != nil {
		s.logger.Error("failed to persist delivery outcome",
			zap.Error(err),
			zap.String("notification_id", notif.ID.String()),
		)
	}

	s.logger.Info("delivery attempt finished",
		zap.String("notification_id", notif.ID.String()),
		zap.String("reminder_id", notif.ReminderID.String()),
		zap.String("status", status),
	)

	// At-most-once outcome report. A failure here never rolls back the
	// locally committed status; the reminder stays pending upstream until
	// an operator re-queries.
	if err := s.storage.UpdateReminderStatus(ctx, notif.ReminderID, status); err != nil {
		s.logger.Warn("failed to report delivery outcome upstream",
			zap.Error(err),
			zap.String("reminder_id", notif.ReminderID.String()),
			zap.String("status", status),
		)
	}
}

// Cancel revokes the delivery for a reminder. Returns
// db.ErrNotificationNotFound only when no notification exists for the
// reminder id; a job that already fired is quietly left alone.
func (s *Service) Cancel(ctx context.Context, reminderID uuid.UUID) error {
	notif, err := s.repo.GetNotificationByReminder(ctx, reminderID)
	if err != nil {
		return err
	}

	if err := s.sched.Cancel(ctx, JobID(notif.ID)); err != nil {
		if !errors.Is(err, scheduler.ErrJobNotFound) {
			// Best-effort: the status change below still prevents a
			// late fire from delivering.
			s.logger.Warn("failed to cancel scheduler job",
				zap.Error(err),
				zap.String("notification_id", notif.ID.String()),
			)
		}
	}

	cancelled, err := s.repo.CancelScheduled(ctx, notif.ID)
	if err != nil {
		return err
	}
	if !cancelled {
		s.logger.Debug("notification already terminal, cancel is a no-op",
			zap.String("notification_id", notif.ID.String()),
			zap.String("status", notif.Status),
		)
	}

	s.logger.Info("notification cancelled",
		zap.String("notification_id", notif.ID.String()),
		zap.String("reminder_id", reminderID.String()),
	)

	return nil
}

// Get returns the notification for a reminder. Cancelled notifications are
// logically invisible to this read.
func (s *Service) Get(ctx context.Context, reminderID uuid.UUID) (*db.ScheduledNotification, error) {
	notif, err := s.repo.GetNotificationByReminder(ctx, reminderID)
	if err != nil {
		return nil, err
	}

	if notif.Status == db.NotificationCancelled {
		return nil, db.ErrNotificationNotFound
	}

	return notif, nil
}
