// Package server defines the Server container that composes the
// application's runtime dependencies.
//
// It owns the lifecycle of:
//   - configuration
//   - logger + optional New Relic service wrapper
//   - database pool
//   - redis client (only when an address is configured)
//   - background job service (asynq), set up once services exist
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/newrelic/go-agent/v3/integrations/nrredis-v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ro-rah/waltz/internal/config"
	"github.com/ro-rah/waltz/internal/database"
	"github.com/ro-rah/waltz/internal/lib/job"
	loggerPkg "github.com/ro-rah/waltz/internal/logger"
)

// RedisPingTimeout bounds the startup Redis check.
const RedisPingTimeout = 5 * time.Second

// Server is the application container that holds shared resources.
type Server struct {
	Config        *config.Config
	Logger        *zerolog.Logger
	LoggerService *loggerPkg.LoggerService
	DB            *database.Database

	// Redis is nil when no address is configured. Only the job worker
	// and on-demand enqueueing need it.
	Redis *redis.Client

	// Job is nil until SetupJobs.
	Job *job.JobService
}

// New connects to PostgreSQL and, if configured, Redis.
//
// A failed database connection is fatal. A configured Redis that does not
// answer is fatal too, since the only reason to configure it is to run or
// feed the job worker.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService) (*Server, error) {
	db, err := database.New(ctx, cfg, logger, loggerService)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	s := &Server{
		Config:        cfg,
		Logger:        logger,
		LoggerService: loggerService,
		DB:            db,
	}

	if cfg.Redis.Address == "" {
		return s, nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Address,
	})

	if loggerService.GetApplication() != nil {
		redisClient.AddHook(nrredis.NewHook(redisClient.Options()))
	}

	pingCtx, cancel := context.WithTimeout(ctx, RedisPingTimeout)
	defer cancel()

	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		_ = redisClient.Close()
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Address, err)
	}

	s.Redis = redisClient
	return s, nil
}

// SetupJobs builds the job service around cleaner. It needs Redis.
func (s *Server) SetupJobs(cleaner job.OrphanCleaner) error {
	if s.Redis == nil {
		return fmt.Errorf("redis is not configured, set %sREDIS__ADDRESS", config.EnvPrefix)
	}

	s.Job = job.NewJobService(s.Logger, s.Config, s.Redis, cleaner, s.LoggerService.GetApplication())
	return nil
}

// Shutdown stops the job service, then closes Redis and the database.
func (s *Server) Shutdown() error {
	if s.Job != nil {
		s.Job.Stop()
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			s.Logger.Warn().Err(err).Msg("failed to close redis client")
		}
	}

	if err := s.DB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	return nil
}
