package server

import (
	"context"
	"time"
)

// HealthCheckTimeout bounds each dependency check.
const HealthCheckTimeout = 5 * time.Second

// Check is the outcome of one dependency check.
type Check struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time"`
	Error        string `json:"error,omitempty"`
}

// HealthReport is the overall status plus one Check per dependency.
type HealthReport struct {
	Status      string           `json:"status"`
	Timestamp   time.Time        `json:"timestamp"`
	Environment string           `json:"environment"`
	Checks      map[string]Check `json:"checks"`
}

// Healthy reports whether every check passed.
func (r HealthReport) Healthy() bool {
	return r.Status == "healthy"
}

// CheckHealth pings the database and, when configured, Redis.
// Failures are logged and recorded as New Relic custom events.
func (s *Server) CheckHealth(ctx context.Context) HealthReport {
	report := HealthReport{
		Status:      "healthy",
		Timestamp:   time.Now().UTC(),
		Environment: s.Config.Primary.Env,
		Checks:      make(map[string]Check),
	}

	report.Checks["database"] = s.runCheck(ctx, "database", s.DB.Pool.Ping)

	if s.Redis != nil {
		report.Checks["redis"] = s.runCheck(ctx, "redis", func(ctx context.Context) error {
			return s.Redis.Ping(ctx).Err()
		})
	}

	for _, c := range report.Checks {
		if c.Status != "healthy" {
			report.Status = "unhealthy"
		}
	}

	return report
}

func (s *Server) runCheck(ctx context.Context, name string, ping func(context.Context) error) Check {
	ctx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()

	start := time.Now()
	err := ping(ctx)
	elapsed := time.Since(start)

	if err == nil {
		s.Logger.Info().Str("check", name).Dur("response_time", elapsed).Msg("health check passed")
		return Check{Status: "healthy", ResponseTime: elapsed.String()}
	}

	s.Logger.Error().Err(err).Str("check", name).Dur("response_time", elapsed).Msg("health check failed")

	if app := s.LoggerService.GetApplication(); app != nil {
		app.RecordCustomEvent("HealthCheckError", map[string]any{
			"check_type":       name,
			"operation":        "health_check",
			"error_type":       name + "_unhealthy",
			"response_time_ms": elapsed.Milliseconds(),
			"error_message":    err.Error(),
		})
	}

	return Check{Status: "unhealthy", ResponseTime: elapsed.String(), Error: err.Error()}
}
