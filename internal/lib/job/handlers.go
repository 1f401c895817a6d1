package job

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/newrelic/go-agent/v3/integrations/nrpkgerrors"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"

	"github.com/ro-rah/waltz/internal/logger"
)

// handleCleanupOrphansTask runs one orphan cleanup pass.
//
// Returning an error marks the task failed and asynq schedules a retry.
func (j *JobService) handleCleanupOrphansTask(ctx context.Context, t *asynq.Task) error {
	var p CleanupOrphansPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		// A malformed payload never gets better on retry.
		return errors.Wrapf(asynq.SkipRetry, "unmarshal cleanup payload: %v", err)
	}
	if p.RunID == "" {
		p.RunID = uuid.NewString()
	}

	var txn *newrelic.Transaction
	if j.nrApp != nil {
		txn = j.nrApp.StartTransaction("job/" + TaskCleanupOrphans)
		defer txn.End()
		ctx = newrelic.NewContext(ctx, txn)
	}

	log := logger.WithTraceContext(*j.logger, txn).With().
		Str("type", TaskCleanupOrphans).
		Str("run_id", p.RunID).
		Str("requested_by", p.RequestedBy).
		Logger()

	log.Info().Msg("processing orphan cleanup task")

	report, err := j.cleaner.CleanupOrphans(ctx)
	if err != nil {
		err = errors.Wrap(err, "cleanup orphans")
		if txn != nil {
			txn.NoticeError(nrpkgerrors.Wrap(err))
		}
		log.Error().Stack().Err(err).Msg("orphan cleanup task failed")
		return err
	}

	if txn != nil {
		txn.AddAttribute("attestation_instances", report.AttestationInstances)
		txn.AddAttribute("physical_flows", report.PhysicalFlows)
	}

	log.Info().
		Int64("attestation_instances", report.AttestationInstances).
		Int64("physical_flows", report.PhysicalFlows).
		Msg("orphan cleanup task done")

	return nil
}
