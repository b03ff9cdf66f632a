package delivery

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pzaytsev/remindd/internal/db"
)

// channelSender supports exactly one channel and records what it sent.
type channelSender struct {
	channel string
	sent    []Message
	err     error
}

func (s *channelSender) Send(ctx context.Context, msg Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *channelSender) SupportsChannel(channel string) bool {
	return channel == s.channel
}

func TestMultiSender_RoutesByChannel(t *testing.T) {
	email := &channelSender{channel: db.ChannelEmail}
	push := &channelSender{channel: db.ChannelPush}
	multi := NewMultiSender(zap.NewNop(), email, push)

	ctx := context.Background()

	if err := multi.Send(ctx, Message{
		NotificationID: uuid.New(),
		Channel:        db.ChannelEmail,
		Recipient:      "user@example.com",
		Text:           "water the plants",
	}); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if err := multi.Send(ctx, Message{
		NotificationID: uuid.New(),
		Channel:        db.ChannelPush,
		Recipient:      "arn:aws:sns:us-east-1:123456789012:endpoint/GCM/app/token",
		Text:           "standup",
	}); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if len(email.sent) != 1 {
		t.Errorf("expected 1 email, got %d", len(email.sent))
	}
	if len(push.sent) != 1 {
		t.Errorf("expected 1 push, got %d", len(push.sent))
	}
}

func TestMultiSender_UnsupportedChannel(t *testing.T) {
	email := &channelSender{channel: db.ChannelEmail}
	multi := NewMultiSender(zap.NewNop(), email)

	err := multi.Send(context.Background(), Message{
		NotificationID: uuid.New(),
		Channel:        db.ChannelPush,
		Recipient:      "token",
	})
	if err == nil {
		t.Fatal("expected error for unsupported channel")
	}
	if len(email.sent) != 0 {
		t.Error("message was delivered to wrong sender")
	}
}

func TestMultiSender_PropagatesSendError(t *testing.T) {
	wantErr := errors.New("provider rejected message")
	email := &channelSender{channel: db.ChannelEmail, err: wantErr}
	multi := NewMultiSender(zap.NewNop(), email)

	err := multi.Send(context.Background(), Message{
		Channel:   db.ChannelEmail,
		Recipient: "user@example.com",
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected sender error, got: %v", err)
	}
}

func TestMultiSender_SupportsChannel(t *testing.T) {
	multi := NewMultiSender(zap.NewNop(), &channelSender{channel: db.ChannelEmail})

	if !multi.SupportsChannel(db.ChannelEmail) {
		t.Error("email should be supported")
	}
	if multi.SupportsChannel(db.ChannelPush) {
		t.Error("push should not be supported")
	}
}

func TestLogSender(t *testing.T) {
	s := NewLogSender(zap.NewNop())

	if !s.SupportsChannel(db.ChannelEmail) || !s.SupportsChannel(db.ChannelPush) {
		t.Error("log sender should support every delivery channel")
	}
	if s.SupportsChannel("fax") {
		t.Error("unknown channel should not be supported")
	}

	if err := s.Send(context.Background(), Message{
		NotificationID: uuid.New(),
		Channel:        db.ChannelEmail,
		Recipient:      "user@example.com",
		Text:           "water the plants",
	}); err != nil {
		t.Fatalf("log sender should never fail: %v", err)
	}
}
