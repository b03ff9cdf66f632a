package db

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Reminder is the client-facing record owned by the storage service.
type Reminder struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	DeliverAt time.Time `json:"deliver_at"`
	Channel   string    `json:"channel"`
	Recipient string    `json:"recipient"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ScheduledNotification tracks the delivery attempt for one reminder.
// Owned by the notification service; references the reminder by id only.
type ScheduledNotification struct {
	ID         uuid.UUID `json:"id"`
	ReminderID uuid.UUID `json:"reminder_id"`
	Text       string    `json:"text"`
	DeliverAt  time.Time `json:"deliver_at"`
	Channel    string    `json:"channel"`
	Recipient  string    `json:"recipient"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Reminder status constants
const (
	ReminderPending   = "pending"
	ReminderSent      = "sent"
	ReminderError     = "error"
	ReminderCancelled = "cancelled"
)

// Scheduled notification status constants. "sending" is the transient
// claimed-for-delivery state; a notification is only ever delivered by
// the goroutine that won the scheduled -> sending transition.
const (
	NotificationScheduled = "scheduled"
	NotificationSending   = "sending"
	NotificationSent      = "sent"
	NotificationError     = "error"
	NotificationCancelled = "cancelled"
)

// Channel constants
const (
	ChannelEmail = "email"
	ChannelPush  = "push"
)

// Sentinel errors shared by both repositories.
var (
	ErrReminderNotFound     = errors.New("reminder not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidTransition    = errors.New("invalid status transition")
)

// ValidChannel reports whether c is a supported delivery channel.
func ValidChannel(c string) bool {
	return c == ChannelEmail || c == ChannelPush
}

// ValidReminderStatus reports whether s is a known reminder status.
func ValidReminderStatus(s string) bool {
	switch s {
	case ReminderPending, ReminderSent, ReminderError, ReminderCancelled:
		return true
	}
	return false
}

// TerminalReminderStatus reports whether s admits no further transitions.
// Only pending reminders may move; sent, error and cancelled are final.
func TerminalReminderStatus(s string) bool {
	switch s {
	case ReminderSent, ReminderError, ReminderCancelled:
		return true
	}
	return false
}
