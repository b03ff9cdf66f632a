package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StorageClient is the notification service's view of the storage service.
// Its single job is reporting delivery outcomes back to the reminder's
// canonical record.
type StorageClient struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// NewStorageClient creates a client for the storage service.
func NewStorageClient(baseURL string, timeout time.Duration, logger *zap.Logger) *StorageClient {
	return &StorageClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     logger,
	}
}

// UpdateReminderStatus reports a delivery outcome to the storage service's
// reconciliation hook. At-most-once: the caller logs failures and never
// retries, per the reconciliation contract.
func (c *StorageClient) UpdateReminderStatus(ctx context.Context, reminderID uuid.UUID, status string) error {
	url := fmt.Sprintf("%s/v1/reminders/%s/status", c.baseURL, reminderID)
	body := map[string]string{"status": status}

	if err := doJSON(ctx, c.httpClient, http.MethodPut, url, body, nil); err != nil {
		return fmt.Errorf("storage service status update: %w", err)
	}

	return nil
}
