package job

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// TaskCleanupOrphans is the task type stored in Redis.
	TaskCleanupOrphans = "maintenance:cleanup_orphans"

	// QueueMaintenance holds data repair tasks.
	QueueMaintenance = "maintenance"

	// DefaultCleanupTimeout bounds a cleanup run when config leaves it unset.
	DefaultCleanupTimeout = 5 * time.Minute
)

// CleanupOrphansPayload is serialized into the task.
//
// RunID ties the log lines of one run together. Scheduled tasks leave it
// empty and the handler assigns one.
type CleanupOrphansPayload struct {
	RunID       string `json:"run_id,omitempty"`
	RequestedBy string `json:"requested_by"`
}

// NewCleanupOrphansTask builds an orphan cleanup task.
//
// Cleanup is idempotent, so a failed run is retried a couple of times
// rather than left for the next schedule.
func NewCleanupOrphansTask(p CleanupOrphansPayload, timeout time.Duration, opts ...asynq.Option) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}

	if timeout <= 0 {
		timeout = DefaultCleanupTimeout
	}

	opts = append([]asynq.Option{
		asynq.MaxRetry(2),
		asynq.Queue(QueueMaintenance),
		asynq.Timeout(timeout),
	}, opts...)

	return asynq.NewTask(TaskCleanupOrphans, payload, opts...), nil
}

// NewOnDemandCleanupTask builds a one-off cleanup task with a fresh run
// id that doubles as the asynq task id, so enqueueing is traceable.
func NewOnDemandCleanupTask(requestedBy string, timeout time.Duration) (*asynq.Task, string, error) {
	runID := uuid.NewString()

	task, err := NewCleanupOrphansTask(CleanupOrphansPayload{
		RunID:       runID,
		RequestedBy: requestedBy,
	}, timeout, asynq.TaskID(runID))
	if err != nil {
		return nil, "", err
	}

	return task, runID, nil
}
