package engine

import (
	"context"
	"database/sql"

	"depotplan/internal/domain"
	"depotplan/internal/events"
	"depotplan/internal/repo"
)

func validTrainStatus(s domain.TrainStatus) bool {
	switch s {
	case domain.TrainActive, domain.TrainMaintenance, domain.TrainStandby, domain.TrainDecommissioned:
		return true
	}
	return false
}

// CreateTrain registers a train, filling unset numeric fields with fleet defaults.
func (e Engine) CreateTrain(ctx context.Context, t domain.Train, actorID string) (domain.Train, error) {
	if t.ID == "" {
		return domain.Train{}, invalid("train id is required")
	}
	if t.Number == "" {
		t.Number = t.ID
	}
	if t.Status == "" {
		t.Status = domain.TrainActive
	}
	if !validTrainStatus(t.Status) {
		return domain.Train{}, invalid("unknown train status %s", t.Status)
	}
	if t.MaintenanceInterval == 0 {
		t.MaintenanceInterval = domain.DefaultMaintenanceInterval
	}
	if t.MaintenanceInterval < 0 {
		return domain.Train{}, invalid("maintenance interval must be positive")
	}
	if t.CleaningPeriodHours == 0 {
		t.CleaningPeriodHours = domain.DefaultCleaningPeriodHours
	}
	if t.CleaningPeriodHours < 0 {
		return domain.Train{}, invalid("cleaning period must be positive")
	}
	if t.DailyMaxMileage == 0 {
		t.DailyMaxMileage = domain.DefaultDailyMaxMileage
	}
	if t.CurrentOdometer != nil && *t.CurrentOdometer < 0 {
		return domain.Train{}, invalid("odometer must not be negative")
	}
	if t.OdometerAtLastMaintenance != nil && *t.OdometerAtLastMaintenance < 0 {
		return domain.Train{}, invalid("odometer at last maintenance must not be negative")
	}
	if t.Depot == "" {
		t.Depot = e.Config.Depot.Name
	}
	now := e.now()
	t.CreatedAt, t.UpdatedAt = now, now

	err := e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		if _, err := r.GetTrain(ctx, t.ID); err == nil {
			return conflict("train %s already exists", t.ID)
		}
		if err := r.InsertTrain(ctx, t); err != nil {
			return err
		}
		return e.appendEvent(ctx, tx, events.TrainCreated, "train", t.ID, actorID, events.EventPayload{
			"number": t.Number,
			"status": t.Status,
		})
	})
	if err != nil {
		return domain.Train{}, err
	}
	return t, nil
}

// SetTrainStatus moves a train between operational states. Decommissioned is terminal.
func (e Engine) SetTrainStatus(ctx context.Context, trainID string, status domain.TrainStatus, actorID string) (domain.Train, error) {
	if !validTrainStatus(status) {
		return domain.Train{}, invalid("unknown train status %s", status)
	}
	defer e.lock(trainKey(trainID))()
	var out domain.Train
	err := e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		t, err := r.GetTrain(ctx, trainID)
		if err != nil {
			return err
		}
		if t.Status == status {
			out = t
			return nil
		}
		if t.Status == domain.TrainDecommissioned {
			return conflict("train %s is decommissioned", trainID)
		}
		old := t.Status
		t.Status = status
		t.UpdatedAt = e.now()
		if err := r.SaveTrain(ctx, t); err != nil {
			return err
		}
		out = t
		return e.appendEvent(ctx, tx, events.TrainStatusChanged, "train", trainID, actorID, events.EventPayload{
			"from": old,
			"to":   status,
		})
	})
	return out, err
}

// CreateBay adds a stabling position to the depot layout.
func (e Engine) CreateBay(ctx context.Context, b domain.StablingBay, actorID string) (domain.StablingBay, error) {
	if b.ID == "" {
		return domain.StablingBay{}, invalid("bay id is required")
	}
	if b.TrackID == "" {
		return domain.StablingBay{}, invalid("track id is required")
	}
	if b.Status == "" {
		b.Status = domain.BayAvailable
	}
	switch b.Status {
	case domain.BayAvailable, domain.BayMaintenance:
	case domain.BayOccupied:
		if b.TrainID == nil || *b.TrainID == "" {
			return domain.StablingBay{}, invalid("occupied bay %s needs a train", b.ID)
		}
	default:
		return domain.StablingBay{}, invalid("unknown bay status %s", b.Status)
	}
	if b.ShuntingDepth != nil && *b.ShuntingDepth < 0 {
		return domain.StablingBay{}, invalid("shunting depth must not be negative")
	}
	err := e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		if _, err := r.GetBay(ctx, b.ID); err == nil {
			return conflict("bay %s already exists", b.ID)
		}
		if err := r.InsertBay(ctx, b); err != nil {
			return err
		}
		return e.appendEvent(ctx, tx, events.BayCreated, "bay", b.ID, actorID, events.EventPayload{
			"track_id": b.TrackID,
			"position": b.Position,
		})
	})
	if err != nil {
		return domain.StablingBay{}, err
	}
	return b, nil
}
