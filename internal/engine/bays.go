package engine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"depotplan/internal/domain"
	"depotplan/internal/events"
	"depotplan/internal/repo"
	"depotplan/internal/stabling"
)

// AssignBay parks a train in an available bay. A train occupies at most one bay.
func (e Engine) AssignBay(ctx context.Context, bayID, trainID string, reservedUntil *time.Time, actorID string) (domain.StablingBay, error) {
	if trainID == "" {
		return domain.StablingBay{}, invalid("train id is required")
	}
	defer e.lock(bayKey(bayID), trainKey(trainID))()
	var out domain.StablingBay
	changed := false
	err := e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		bay, err := r.GetBay(ctx, bayID)
		if err != nil {
			return err
		}
		if _, err := r.GetTrain(ctx, trainID); err != nil {
			return err
		}
		held, err := r.BayForTrain(ctx, trainID)
		switch {
		case err == nil && held.ID != bayID:
			return conflict("train %s already occupies bay %s", trainID, held.ID)
		case err != nil && !errors.Is(err, repo.ErrNotFound):
			return err
		}
		next, err := stabling.Assign(bay, trainID, reservedUntil)
		if err != nil {
			return err
		}
		out = next
		if bay.Status == next.Status && bay.TrainID != nil {
			return nil
		}
		if err := r.SaveBay(ctx, next); err != nil {
			return err
		}
		changed = true
		return e.appendEvent(ctx, tx, events.BayAssigned, "bay", bayID, actorID, events.EventPayload{
			"train_id": trainID,
		})
	})
	if err != nil {
		return domain.StablingBay{}, err
	}
	if changed {
		e.Metrics.ObserveBay("assign")
		e.Log.Info().Str("bay", bayID).Str("train_id", trainID).Msg("bay assigned")
	}
	return out, nil
}

// ReleaseBay frees a bay. Releasing an available bay is a no-op.
func (e Engine) ReleaseBay(ctx context.Context, bayID, actorID string) (domain.StablingBay, error) {
	defer e.lock(bayKey(bayID))()
	var out domain.StablingBay
	changed := false
	err := e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		bay, err := r.GetBay(ctx, bayID)
		if err != nil {
			return err
		}
		out = bay
		if bay.Status == domain.BayAvailable && bay.TrainID == nil {
			return nil
		}
		prev := ""
		if bay.TrainID != nil {
			prev = *bay.TrainID
		}
		out = stabling.Release(bay)
		if err := r.SaveBay(ctx, out); err != nil {
			return err
		}
		changed = true
		return e.appendEvent(ctx, tx, events.BayReleased, "bay", bayID, actorID, events.EventPayload{
			"train_id": prev,
			"from":     bay.Status,
		})
	})
	if err != nil {
		return domain.StablingBay{}, err
	}
	if changed {
		e.Metrics.ObserveBay("release")
		e.Log.Info().Str("bay", bayID).Msg("bay released")
	}
	return out, nil
}
