package delivery

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"go.uber.org/zap"

	"github.com/pzaytsev/remindd/internal/db"
)

// SNSSender delivers push reminders via AWS SNS. The recipient is the
// platform endpoint ARN registered for the user's device token.
type SNSSender struct {
	client *sns.Client
	logger *zap.Logger
}

type SNSConfig struct {
	Region string
}

// NewSNSSender creates a new SNS sender for push notifications.
func NewSNSSender(ctx context.Context, cfg SNSConfig, logger *zap.Logger) (*SNSSender, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load default AWS config for SNS: %w", err)
	}

	return &SNSSender{
		client: sns.NewFromConfig(awsCfg),
		logger: logger,
	}, nil
}

// Send delivers a push reminder via AWS SNS.
func (s *SNSSender) Send(ctx context.Context, msg Message) error {
	if msg.Channel != db.ChannelPush {
		return fmt.Errorf("SNS sender only supports push, got: %s", msg.Channel)
	}

	if msg.Recipient == "" {
		return fmt.Errorf("push message missing recipient token")
	}
	if msg.Text == "" {
		return fmt.Errorf("push message missing text")
	}

	input := &sns.PublishInput{
		TargetArn: aws.String(msg.Recipient),
		Message:   aws.String(msg.Text),
	}

	result, err := s.client.Publish(ctx, input)
	if err != nil {
		return fmt.Errorf("sns publish failed: %w", err)
	}

	s.logger.Info("push sent via SNS",
		zap.String("notification_id", msg.NotificationID.String()),
		zap.String("message_id", *result.MessageId),
	)

	return nil
}

// SupportsChannel checks if this sender supports the push channel.
func (s *SNSSender) SupportsChannel(channel string) bool {
	return channel == db.ChannelPush
}
