package service

import (
	"github.com/rs/zerolog"

	"github.com/ro-rah/waltz/internal/database"
	"github.com/ro-rah/waltz/internal/repository"
)

// Pool is what services need from the database: a handle to run
// repositories against and the ability to open transactions.
// *pgxpool.Pool and pgxmock pools satisfy it.
type Pool interface {
	database.DBTX
	database.Beginner
}

type Services struct {
	Maintenance *MaintenanceService
	Attestation *AttestationService
	Replacement *ReplacementService
}

func NewServices(pool Pool, repos *repository.Repositories, logger *zerolog.Logger) *Services {
	return &Services{
		Maintenance: NewMaintenanceService(pool, logger),
		Attestation: NewAttestationService(repos.AttestationInstance, logger),
		Replacement: NewReplacementService(repos.MeasurableRatingReplacement, logger),
	}
}
