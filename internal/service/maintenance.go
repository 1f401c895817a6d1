package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/ro-rah/waltz/internal/database"
	"github.com/ro-rah/waltz/internal/model"
	"github.com/ro-rah/waltz/internal/repository"
	"github.com/ro-rah/waltz/internal/sqlerr"
)

// MaintenanceService runs the data repair passes that keep child rows
// consistent with their parents.
type MaintenanceService struct {
	db     database.Beginner
	logger *zerolog.Logger
}

func NewMaintenanceService(db database.Beginner, logger *zerolog.Logger) *MaintenanceService {
	return &MaintenanceService{db: db, logger: logger}
}

// CleanupOrphans deletes orphaned pending attestation instances and soft
// removes orphaned physical flows in a single transaction. Either both
// passes land or neither does.
func (s *MaintenanceService) CleanupOrphans(ctx context.Context) (model.CleanupReport, error) {
	var report model.CleanupReport
	started := time.Now()

	err := database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		repos := repository.NewRepositories(tx, s.logger)

		removed, err := repos.AttestationInstance.CleanupOrphans(ctx)
		if err != nil {
			return err
		}
		report.AttestationInstances = removed

		removed, err = repos.PhysicalFlow.CleanupOrphans(ctx)
		if err != nil {
			return err
		}
		report.PhysicalFlows = removed

		return nil
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("orphan cleanup failed, rolled back")
		return model.CleanupReport{}, sqlerr.HandleError(err)
	}

	s.logger.Info().
		Int64("attestation_instances", report.AttestationInstances).
		Int64("physical_flows", report.PhysicalFlows).
		Dur("duration", time.Since(started)).
		Msg("orphan cleanup complete")

	return report, nil
}
