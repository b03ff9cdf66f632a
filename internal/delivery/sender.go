// Package delivery holds the transport adapters that carry a reminder to
// its recipient.
package delivery

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pzaytsev/remindd/internal/db"
)

// Message is one delivery attempt: who to reach, over what channel, with
// what text.
type Message struct {
	NotificationID uuid.UUID
	Channel        string
	Recipient      string // email address or device endpoint token
	Text           string
}

// Sender is the unified interface for all delivery channels.
// Implementations: email (SES), push (SNS).
type Sender interface {
	Send(ctx context.Context, msg Message) error
	SupportsChannel(channel string) bool
}

// MultiSender routes messages to the appropriate channel sender.
type MultiSender struct {
	senders []Sender
	logger  *zap.Logger
}

// NewMultiSender creates a router over multiple underlying senders.
func NewMultiSender(logger *zap.Logger, senders ...Sender) *MultiSender {
	return &MultiSender{
		senders: senders,
		logger:  logger,
	}
}

// Send routes the message to the first sender supporting its channel.
func (m *MultiSender) Send(ctx context.Context, msg Message) error {
	for _, sender := range m.senders {
		if sender.SupportsChannel(msg.Channel) {
			m.logger.Debug("routing message to sender",
				zap.String("channel", msg.Channel),
				zap.String("notification_id", msg.NotificationID.String()),
			)
			return sender.Send(ctx, msg)
		}
	}

	return fmt.Errorf("no sender found for channel: %s", msg.Channel)
}

// SupportsChannel checks if any underlying sender supports the channel.
func (m *MultiSender) SupportsChannel(channel string) bool {
	for _, sender := range m.senders {
		if sender.SupportsChannel(channel) {
			return true
		}
	}
	return false
}

// LogSender logs messages instead of delivering them (development mode).
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.Info("logging message (development mode)",
		zap.String("notification_id", msg.NotificationID.String()),
		zap.String("channel", msg.Channel),
		zap.String("recipient", msg.Recipient),
		zap.String("text", msg.Text),
	)
	return nil
}

func (s *LogSender) SupportsChannel(channel string) bool {
	return channel == db.ChannelEmail || channel == db.ChannelPush
}
