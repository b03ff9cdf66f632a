package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	StoragePort      int
	NotificationPort int
	LogLevel         string
	Env              string

	// Service base URLs for cross-service calls
	StorageServiceURL      string
	NotificationServiceURL string
	ClientTimeout          time.Duration

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis (job scheduler, idempotency, rate limiting)
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// Scheduler
	SchedulerPollInterval time.Duration

	// AWS services
	AWSRegion    string
	SESFromEmail string
	SNSRegion    string // region for SNS (push)

	// SQS lifecycle event feed
	SQSRegion   string
	SQSQueueURL string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is applied first, if present.
func Load() (*Config, error) {
	// Missing .env is the normal case in deployed environments.
	_ = godotenv.Load()

	cfg := &Config{
		StoragePort:      8080,
		NotificationPort: 8081,
		LogLevel:         "info",
		Env:              "development",

		StorageServiceURL:      "http://localhost:8080",
		NotificationServiceURL: "http://localhost:8081",
		ClientTimeout:          10 * time.Second,

		DBHost:     "localhost",
		DBPort:     5432,
		DBUser:     "remindd",
		DBPassword: "",
		DBName:     "remindd",
		DBSSLMode:  "disable",

		RedisHost:     "localhost",
		RedisPort:     6379,
		RedisPassword: "",
		RedisDB:       0,

		SchedulerPollInterval: 1 * time.Second,

		AWSRegion:    "us-east-1",
		SESFromEmail: "noreply@remindd.local",
	}

	if port := os.Getenv("STORAGE_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid STORAGE_PORT: %w", err)
		}
		cfg.StoragePort = p
	}

	if port := os.Getenv("NOTIFICATION_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid NOTIFICATION_PORT: %w", err)
		}
		cfg.NotificationPort = p
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if env := os.Getenv("ENV"); env != "" {
		cfg.Env = env
	}

	if url := os.Getenv("STORAGE_SERVICE_URL"); url != "" {
		cfg.StorageServiceURL = url
	}

	if url := os.Getenv("NOTIFICATION_SERVICE_URL"); url != "" {
		cfg.NotificationServiceURL = url
	}

	if timeout := os.Getenv("CLIENT_TIMEOUT"); timeout != "" {
		t, err := strconv.Atoi(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid CLIENT_TIMEOUT: %w", err)
		}
		cfg.ClientTimeout = time.Duration(t) * time.Second
	}

	// Database config
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.DBHost = host
	}

	if port := os.Getenv("DB_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_PORT: %w", err)
		}
		cfg.DBPort = p
	}

	if user := os.Getenv("DB_USER"); user != "" {
		cfg.DBUser = user
	}

	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.DBPassword = password
	}

	if dbname := os.Getenv("DB_NAME"); dbname != "" {
		cfg.DBName = dbname
	}

	if sslmode := os.Getenv("DB_SSLMODE"); sslmode != "" {
		cfg.DBSSLMode = sslmode
	}

	// Redis config
	if host := os.Getenv("REDIS_HOST"); host != "" {
		cfg.RedisHost = host
	}

	if port := os.Getenv("REDIS_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
		}
		cfg.RedisPort = p
	}

	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.RedisPassword = password
	}

	if db := os.Getenv("REDIS_DB"); db != "" {
		d, err := strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
		cfg.RedisDB = d
	}

	if interval := os.Getenv("SCHEDULER_POLL_INTERVAL_MS"); interval != "" {
		ms, err := strconv.Atoi(interval)
		if err != nil {
			return nil, fmt.Errorf("invalid SCHEDULER_POLL_INTERVAL_MS: %w", err)
		}
		cfg.SchedulerPollInterval = time.Duration(ms) * time.Millisecond
	}

	if region := os.Getenv("AWS_REGION"); region != "" {
		cfg.AWSRegion = region
	}

	if from := os.Getenv("SES_FROM_EMAIL"); from != "" {
		cfg.SESFromEmail = from
	}

	// SNS config for push
	if region := os.Getenv("SNS_REGION"); region != "" {
		cfg.SNSRegion = region
	} else {
		cfg.SNSRegion = cfg.AWSRegion
	}

	// SQS config
	if region := os.Getenv("SQS_REGION"); region != "" {
		cfg.SQSRegion = region
	} else {
		cfg.SQSRegion = cfg.AWSRegion
	}

	if url := os.Getenv("SQS_QUEUE_URL"); url != "" {
		cfg.SQSQueueURL = url
	}

	return cfg, nil
}
