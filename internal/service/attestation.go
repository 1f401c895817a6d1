package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ro-rah/waltz/internal/errs"
	"github.com/ro-rah/waltz/internal/model"
	"github.com/ro-rah/waltz/internal/sqlerr"
)

// AttestationStore is the part of the attestation instance repository
// the service uses.
type AttestationStore interface {
	GetByID(ctx context.Context, id int64) (*model.AttestationInstance, error)
	AttestInstance(ctx context.Context, instanceID int64, attestedBy string, at time.Time) (bool, error)
	FindByRecipient(ctx context.Context, userID string, unattestedOnly bool) ([]model.AttestationInstance, error)
}

type AttestationService struct {
	store  AttestationStore
	logger *zerolog.Logger
	now    func() time.Time
}

func NewAttestationService(store AttestationStore, logger *zerolog.Logger) *AttestationService {
	return &AttestationService{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Attest signs off a pending instance on behalf of username.
//
// A missing instance is a not found error. An instance that is already
// attested, or that another writer attested first, is a conflict.
func (s *AttestationService) Attest(ctx context.Context, instanceID int64, username string) error {
	if username == "" {
		return errs.NewPreconditionError("username cannot be empty", nil)
	}

	ok, err := s.store.AttestInstance(ctx, instanceID, username, s.now())
	if err != nil {
		s.logger.Error().Err(err).Int64("instance_id", instanceID).Msg("failed to attest instance")
		return sqlerr.HandleError(err)
	}
	if ok {
		s.logger.Info().Int64("instance_id", instanceID).Str("attested_by", username).Msg("attestation instance attested")
		return nil
	}

	inst, err := s.store.GetByID(ctx, instanceID)
	if err != nil {
		return sqlerr.HandleError(err)
	}
	if inst == nil {
		code := "ATTESTATION_INSTANCE_NOT_FOUND"
		return errs.NewNotFoundError(fmt.Sprintf("attestation instance %d not found", instanceID), true, &code)
	}

	code := "ATTESTATION_INSTANCE_ALREADY_ATTESTED"
	return errs.NewConflictError(fmt.Sprintf("attestation instance %d is already attested", instanceID), &code)
}

// PendingFor lists the instances username still has to attest.
func (s *AttestationService) PendingFor(ctx context.Context, username string) ([]model.AttestationInstance, error) {
	insts, err := s.store.FindByRecipient(ctx, username, true)
	if err != nil {
		return nil, sqlerr.HandleError(err)
	}
	return insts, nil
}
