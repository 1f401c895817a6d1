package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ro-rah/waltz/internal/model"
	"github.com/ro-rah/waltz/internal/sqlerr"
)

// ReplacementStore is the part of the measurable rating replacement
// repository the service uses.
type ReplacementStore interface {
	Save(ctx context.Context, decommissionID int64, ref model.EntityReference, commissionDate time.Time, username string) (model.SaveResult, error)
	Remove(ctx context.Context, decommissionID, replacementID int64) (bool, error)
}

type ReplacementService struct {
	store  ReplacementStore
	logger *zerolog.Logger
}

func NewReplacementService(store ReplacementStore, logger *zerolog.Logger) *ReplacementService {
	return &ReplacementService{store: store, logger: logger}
}

// Save adds or updates the replacement of ref for a planned decommission.
func (s *ReplacementService) Save(ctx context.Context, decommissionID int64, ref model.EntityReference, commissionDate time.Time, username string) (model.SaveResult, error) {
	res, err := s.store.Save(ctx, decommissionID, ref, commissionDate, username)
	if err != nil {
		s.logger.Error().Err(err).
			Int64("decommission_id", decommissionID).
			Stringer("entity", ref).
			Msg("failed to save replacement")
		return model.SaveResult{}, sqlerr.HandleError(err)
	}

	event := s.logger.Info()
	if !res.Succeeded {
		event = s.logger.Warn()
	}
	event.
		Int64("decommission_id", decommissionID).
		Stringer("entity", ref).
		Str("operation", string(res.Operation)).
		Bool("succeeded", res.Succeeded).
		Str("username", username).
		Msg("saved replacement")

	return res, nil
}

func (s *ReplacementService) Remove(ctx context.Context, decommissionID, replacementID int64) (bool, error) {
	ok, err := s.store.Remove(ctx, decommissionID, replacementID)
	if err != nil {
		return false, sqlerr.HandleError(err)
	}

	s.logger.Info().
		Int64("decommission_id", decommissionID).
		Int64("replacement_id", replacementID).
		Bool("removed", ok).
		Msg("removed replacement")

	return ok, nil
}
