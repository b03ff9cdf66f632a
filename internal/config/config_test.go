package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear any existing env vars
	os.Unsetenv("STORAGE_PORT")
	os.Unsetenv("NOTIFICATION_PORT")
	os.Unsetenv("LOG_LEVEL")
	os.Unsetenv("ENV")
	os.Unsetenv("SCHEDULER_POLL_INTERVAL_MS")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.StoragePort != 8080 {
		t.Errorf("expected storage port 8080, got %d", cfg.StoragePort)
	}

	if cfg.NotificationPort != 8081 {
		t.Errorf("expected notification port 8081, got %d", cfg.NotificationPort)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.LogLevel)
	}

	if cfg.Env != "development" {
		t.Errorf("expected env 'development', got %s", cfg.Env)
	}

	if cfg.SchedulerPollInterval != time.Second {
		t.Errorf("expected poll interval 1s, got %s", cfg.SchedulerPollInterval)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("STORAGE_PORT", "9000")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("ENV", "production")
	os.Setenv("SCHEDULER_POLL_INTERVAL_MS", "250")
	defer func() {
		os.Unsetenv("STORAGE_PORT")
		os.Unsetenv("LOG_LEVEL")
		os.Unsetenv("ENV")
		os.Unsetenv("SCHEDULER_POLL_INTERVAL_MS")
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.StoragePort != 9000 {
		t.Errorf("expected storage port 9000, got %d", cfg.StoragePort)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.LogLevel)
	}

	if cfg.Env != "production" {
		t.Errorf("expected env 'production', got %s", cfg.Env)
	}

	if cfg.SchedulerPollInterval != 250*time.Millisecond {
		t.Errorf("expected poll interval 250ms, got %s", cfg.SchedulerPollInterval)
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	os.Setenv("STORAGE_PORT", "not-a-number")
	defer os.Unsetenv("STORAGE_PORT")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid STORAGE_PORT")
	}
}
