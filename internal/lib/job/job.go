// Package job provides background maintenance processing using Asynq.
//
// Asynq is a Redis-backed job queue:
//   - The scheduler enqueues orphan cleanup on the configured cron spec.
//   - The CLI can enqueue an extra run on demand through the client.
//   - The worker server pulls tasks from Redis and runs the handlers.
package job

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ro-rah/waltz/internal/config"
	"github.com/ro-rah/waltz/internal/model"
)

// OrphanCleaner runs one orphan cleanup pass. The maintenance service
// implements it.
type OrphanCleaner interface {
	CleanupOrphans(ctx context.Context) (model.CleanupReport, error)
}

// JobService holds the Asynq client (enqueue), the scheduler and the
// worker server.
type JobService struct {
	// Client enqueues tasks into Redis. It shares the application's
	// instrumented go-redis connection.
	Client *asynq.Client

	server    *asynq.Server
	scheduler *asynq.Scheduler
	started   bool

	cfg     *config.MaintenanceConfig
	cleaner OrphanCleaner
	nrApp   *newrelic.Application
	logger  *zerolog.Logger
}

// NewJobService creates a JobService on the Redis at cfg.Redis.Address.
//
// Concurrency is low: cleanup is one statement pair per run and there is
// nothing to gain from running several at once. Queue weights still favour
// maintenance over anything else sharing the Redis.
func NewJobService(logger *zerolog.Logger, cfg *config.Config, redisClient *redis.Client, cleaner OrphanCleaner, nrApp *newrelic.Application) *JobService {
	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Address}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				QueueMaintenance: 6,
				"default":        3,
				"low":            1,
			},
			Logger: newAsynqLogger(logger),
		},
	)

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   newAsynqLogger(logger),
	})

	return &JobService{
		Client:    asynq.NewClientFromRedisClient(redisClient),
		server:    server,
		scheduler: scheduler,
		cfg:       cfg.Maintenance,
		cleaner:   cleaner,
		nrApp:     nrApp,
		logger:    logger,
	}
}

// Start registers handlers, registers the periodic cleanup when
// maintenance is enabled, and starts the worker and scheduler. Both run
// in the background until Stop.
func (j *JobService) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskCleanupOrphans, j.handleCleanupOrphansTask)

	if j.cfg != nil && j.cfg.Enabled {
		task, err := NewCleanupOrphansTask(CleanupOrphansPayload{RequestedBy: "scheduler"}, j.cfg.TaskTimeout)
		if err != nil {
			return fmt.Errorf("building scheduled cleanup task: %w", err)
		}

		entryID, err := j.scheduler.Register(j.cfg.CleanupCron, task)
		if err != nil {
			return fmt.Errorf("registering cleanup schedule %q: %w", j.cfg.CleanupCron, err)
		}

		j.logger.Info().
			Str("entry_id", entryID).
			Str("cron", j.cfg.CleanupCron).
			Msg("scheduled orphan cleanup")
	}

	j.logger.Info().Msg("starting background job server")

	if err := j.server.Start(mux); err != nil {
		return fmt.Errorf("starting job server: %w", err)
	}

	if err := j.scheduler.Start(); err != nil {
		j.server.Shutdown()
		return fmt.Errorf("starting job scheduler: %w", err)
	}

	j.started = true
	return nil
}

// EnqueueCleanup asks the workers for an extra cleanup run and returns
// its run id.
func (j *JobService) EnqueueCleanup(ctx context.Context, requestedBy string) (string, error) {
	var timeout time.Duration
	if j.cfg != nil {
		timeout = j.cfg.TaskTimeout
	}

	task, runID, err := NewOnDemandCleanupTask(requestedBy, timeout)
	if err != nil {
		return "", fmt.Errorf("building cleanup task: %w", err)
	}

	info, err := j.Client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("enqueueing cleanup task: %w", err)
	}

	j.logger.Info().
		Str("run_id", runID).
		Str("queue", info.Queue).
		Msg("enqueued orphan cleanup")

	return runID, nil
}

// Stop shuts down the scheduler and waits for running tasks to finish.
// It is a no-op when Start never succeeded. The shared Redis connection
// is left to its owner.
func (j *JobService) Stop() {
	if !j.started {
		return
	}

	j.started = false
	j.logger.Info().Msg("stopping background job server")
	j.scheduler.Shutdown()
	j.server.Shutdown()
}
