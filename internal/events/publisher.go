// Package events publishes reminder lifecycle events to SQS so downstream
// consumers (audit, analytics) can follow status changes without polling
// the storage API.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

// Config holds SQS configuration.
type Config struct {
	Region   string
	QueueURL string
}

// Event is one reminder lifecycle change.
type Event struct {
	ReminderID string `json:"reminder_id"`
	Status     string `json:"status"`
	Channel    string `json:"channel"`
	OccurredAt int64  `json:"occurred_at"`
}

// Publisher sends lifecycle events to SQS.
type Publisher struct {
	client   *sqs.Client
	queueURL string
	logger   *zap.Logger
}

// NewPublisher creates a new SQS event publisher.
func NewPublisher(ctx context.Context, cfg Config, logger *zap.Logger) (*Publisher, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := sqs.NewFromConfig(awsCfg)

	logger.Info("sqs event publisher initialized",
		zap.String("queue_url", cfg.QueueURL),
	)

	return &Publisher{
		client:   client,
		queueURL: cfg.QueueURL,
		logger:   logger,
	}, nil
}

// Publish sends one lifecycle event. Best-effort: callers log failures and
// move on, the event feed is never on the request's critical path.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	if ev.OccurredAt == 0 {
		ev.OccurredAt = time.Now().Unix()
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	}

	result, err := p.client.SendMessage(ctx, input)
	if err != nil {
		p.logger.Error("failed to publish lifecycle event",
			zap.Error(err),
			zap.String("reminder_id", ev.ReminderID),
		)
		return fmt.Errorf("sqs send failed: %w", err)
	}

	p.logger.Debug("lifecycle event published",
		zap.String("reminder_id", ev.ReminderID),
		zap.String("status", ev.Status),
		zap.String("sqs_message_id", *result.MessageId),
	)

	return nil
}

// Close closes the publisher.
func (p *Publisher) Close() {
	// AWS SDK v2 clients don't require explicit Close()
}
