// Package scheduler implements a durable one-shot timer queue on Redis.
//
// Jobs live in a sorted set scored by fire time, with payloads in a
// companion hash. Entries survive process restarts: anything that came due
// while the process was down fires on the first poll after startup.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pzaytsev/remindd/internal/metrics"
)

const (
	jobsKey     = "scheduler:jobs"
	payloadsKey = "scheduler:payloads"
)

var (
	// ErrJobExists indicates a job id is already queued.
	ErrJobExists = errors.New("job already scheduled")

	// ErrJobNotFound indicates there is no pending job with that id.
	// Cancellation racing a fire returns this; callers are expected to
	// treat it as a no-op.
	ErrJobNotFound = errors.New("job not found")
)

// Payload is what the scheduler hands back to the callback at fire time.
type Payload struct {
	NotificationID uuid.UUID `json:"notification_id"`
}

// Callback is invoked exactly once per claimed job, on its own goroutine.
type Callback func(ctx context.Context, p Payload)

// Config holds scheduler tuning parameters.
type Config struct {
	// PollInterval is how often the loop scans for due jobs.
	PollInterval time.Duration
	// BatchSize caps how many due jobs one tick will claim.
	BatchSize int
}

// Scheduler is a durable one-shot job queue with a background firing loop.
type Scheduler struct {
	rdb      *redis.Client
	callback Callback
	config   Config
	logger   *zap.Logger

	callbacks sync.WaitGroup
}

// New creates a scheduler on the given Redis client. The callback is fixed
// at construction; Start must be called for jobs to fire.
func New(rdb *redis.Client, callback Callback, cfg Config, logger *zap.Logger) *Scheduler {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 1 * time.Second
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}

	return &Scheduler{
		rdb:      rdb,
		callback: callback,
		config:   cfg,
		logger:   logger,
	}
}

// Schedule registers a one-shot job. Returns ErrJobExists if the job id is
// already queued. The entry is durable: it stays in Redis until claimed by
// a firing loop or cancelled.
func (s *Scheduler) Schedule(ctx context.Context, jobID string, fireAt time.Time, p Payload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	// Queue entry and payload land in one MULTI/EXEC: a poll can never
	// claim an entry whose payload is not visible yet.
	pipe := s.rdb.TxPipeline()
	addCmd := pipe.ZAddNX(ctx, jobsKey, redis.Z{
		Score:  float64(fireAt.UnixMilli()),
		Member: jobID,
	})
	pipe.HSet(ctx, payloadsKey, jobID, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("queue job: %w", err)
	}
	if addCmd.Val() == 0 {
		// Job ids derive from the notification id, so the HSet rewrote
		// an identical payload. Nothing to roll back.
		return ErrJobExists
	}

	metrics.RecordJobScheduled()

	s.logger.Info("job scheduled",
		zap.String("job_id", jobID),
		zap.Time("fire_at", fireAt),
	)

	return nil
}

// Cancel removes a pending job. Returns ErrJobNotFound if the job already
// fired or was never scheduled.
func (s *Scheduler) Cancel(ctx context.Context, jobID string) error {
	removed, err := s.rdb.ZRem(ctx, jobsKey, jobID).Result()
	if err != nil {
		return fmt.Errorf("zrem job: %w", err)
	}

	s.rdb.HDel(ctx, payloadsKey, jobID)

	if removed == 0 {
		return ErrJobNotFound
	}

	metrics.RecordJobCancelled()

	s.logger.Info("job cancelled", zap.String("job_id", jobID))

	return nil
}

// Start runs the firing loop until ctx is cancelled. Callbacks execute on
// their own goroutines so a slow delivery never delays other jobs, and
// Schedule/Cancel calls are never blocked by the loop. A claimed job is
// already gone from the queue, so cancelling ctx does not interrupt its
// callback; Start waits for in-flight callbacks before returning.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	s.logger.Info("scheduler loop started",
		zap.Duration("poll_interval", s.config.PollInterval),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler loop stopping, draining callbacks")
			s.callbacks.Wait()
			return
		case <-ticker.C:
			s.fireDue(ctx)
		}
	}
}

// fireDue claims and dispatches every job whose fire time has passed.
func (s *Scheduler) fireDue(ctx context.Context) {
	now := time.Now()

	due, err := s.rdb.ZRangeByScoreWithScores(ctx, jobsKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: int64(s.config.BatchSize),
	}).Result()
	if err != nil {
		s.logger.Error("failed to scan due jobs", zap.Error(err))
		return
	}

	for _, entry := range due {
		jobID, ok := entry.Member.(string)
		if !ok {
			continue
		}
		// ZREM is the claim: only the remover owns the job, so a job
		// fires at most once even with concurrent scheduler instances.
		removed, err := s.rdb.ZRem(ctx, jobsKey, jobID).Result()
		if err != nil {
			s.logger.Error("failed to claim job",
				zap.Error(err),
				zap.String("job_id", jobID),
			)
			continue
		}
		if removed == 0 {
			continue
		}

		raw, err := s.rdb.HGet(ctx, payloadsKey, jobID).Result()
		s.rdb.HDel(ctx, payloadsKey, jobID)
		if err != nil {
			s.logger.Error("claimed job has no payload",
				zap.Error(err),
				zap.String("job_id", jobID),
			)
			continue
		}

		var p Payload
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			s.logger.Error("failed to decode job payload",
				zap.Error(err),
				zap.String("job_id", jobID),
			)
			continue
		}

		metrics.RecordJobFired()
		metrics.RecordFireLag(now.Sub(time.UnixMilli(int64(entry.Score))))

		s.logger.Info("job fired",
			zap.String("job_id", jobID),
			zap.String("notification_id", p.NotificationID.String()),
		)

		// The claim is irreversible, so the callback must not die with
		// the loop's context. WithoutCancel keeps the context values but
		// detaches the delivery from shutdown cancellation.
		cbCtx := context.WithoutCancel(ctx)

		s.callbacks.Add(1)
		go func(p Payload) {
			defer s.callbacks.Done()
			metrics.CallbackStarted()
			defer metrics.CallbackFinished()
			s.callback(cbCtx, p)
		}(p)
	}
}
