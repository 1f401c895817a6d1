package repository

import (
	"github.com/rs/zerolog"

	"github.com/ro-rah/waltz/internal/database"
)

// Repositories is a container for all repository instances.
//
// Build it over the pool for normal use, or over a pgx.Tx inside
// database.WithTx to run several repository calls atomically.
type Repositories struct {
	AttestationInstance         *AttestationInstanceRepository
	EndUserApp                  *EndUserAppRepository
	EntityRelationship          *EntityRelationshipRepository
	EntityStatisticValue        *EntityStatisticValueRepository
	MeasurableRatingReplacement *MeasurableRatingReplacementRepository
	PhysicalFlow                *PhysicalFlowRepository
	SurveyInstanceRecipient     *SurveyInstanceRecipientRepository
}

// NewRepositories constructs every repository over the same connection.
func NewRepositories(db database.DBTX, logger *zerolog.Logger) *Repositories {
	return &Repositories{
		AttestationInstance:         NewAttestationInstanceRepository(db, logger),
		EndUserApp:                  NewEndUserAppRepository(db, logger),
		EntityRelationship:          NewEntityRelationshipRepository(db, logger),
		EntityStatisticValue:        NewEntityStatisticValueRepository(db, logger),
		MeasurableRatingReplacement: NewMeasurableRatingReplacementRepository(db, logger),
		PhysicalFlow:                NewPhysicalFlowRepository(db, logger),
		SurveyInstanceRecipient:     NewSurveyInstanceRecipientRepository(db, logger),
	}
}
