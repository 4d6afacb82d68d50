package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"depotplan/internal/accrual"
	"depotplan/internal/domain"
	"depotplan/internal/events"
	"depotplan/internal/repo"
)

// MileageSummary aggregates all trips logged on one day.
type MileageSummary struct {
	Date                  string  `json:"date"`
	TotalMileage          float64 `json:"total_mileage"`
	TotalTrips            int     `json:"total_trips"`
	UniqueTrains          int     `json:"unique_trains"`
	AverageMileagePerTrip float64 `json:"average_mileage_per_trip"`
}

func (e Engine) pipeline(r repo.Repo) accrual.Pipeline {
	return accrual.Pipeline{
		Store:       r,
		SkipAccrued: e.Config.Accrual.SkipAccruedTrips,
		LoggedBy:    e.Config.Accrual.LoggedBy,
		Now:         e.now,
	}
}

// accrue runs the pipeline under the train lock inside one transaction. load
// supplies the trips from the transaction-bound repo; before, when set, runs
// first in the same transaction.
func (e Engine) accrue(ctx context.Context, trainID string, day time.Time, actorID string, before func(r repo.Repo) error, load func(r repo.Repo) ([]domain.TripRecord, error)) (accrual.Summary, error) {
	defer e.lock(trainKey(trainID))()
	var sum accrual.Summary
	err := e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		if before != nil {
			if err := before(r); err != nil {
				return err
			}
		}
		trips, err := load(r)
		if err != nil {
			return err
		}
		sum, err = e.pipeline(r).Run(ctx, trainID, trips, day)
		if err != nil {
			return err
		}
		if sum.TripCount == 0 {
			return nil
		}
		return e.appendEvent(ctx, tx, events.AccrualApplied, "train", trainID, actorID, events.EventPayload{
			"date":        sum.Date,
			"trips":       sum.TripCount,
			"mileage":     sum.MileageAdded,
			"odometer":    sum.NewOdometer,
			"assignments": sum.AssignmentsUpdated,
		})
	})
	e.Metrics.ObserveAccrual(sum.MileageAdded, err)
	if err != nil {
		e.Log.Warn().Err(err).Str("train_id", trainID).Msg("accrual failed")
		return sum, err
	}
	e.Log.Info().
		Str("train_id", trainID).
		Str("date", sum.Date).
		Int("trips", sum.TripCount).
		Float64("mileage", sum.MileageAdded).
		Int("assignments", sum.AssignmentsUpdated).
		Msg("accrual applied")
	return sum, nil
}

// RunDailyAccrual rolls the train's logged trips for day into its odometer and
// branding exposure.
func (e Engine) RunDailyAccrual(ctx context.Context, trainID string, day time.Time, actorID string) (accrual.Summary, error) {
	includeAccrued := !e.Config.Accrual.SkipAccruedTrips
	return e.accrue(ctx, trainID, day, actorID, nil, func(r repo.Repo) ([]domain.TripRecord, error) {
		return r.TripsForTrainOn(ctx, trainID, day, includeAccrued)
	})
}

// RunDailyAccrualAll accrues every ACTIVE train for day. Each train commits on
// its own; failures are joined and the remaining trains still run.
func (e Engine) RunDailyAccrualAll(ctx context.Context, day time.Time, actorID string) ([]accrual.Summary, error) {
	trains, err := e.Repo.TrainsByStatus(ctx, domain.TrainActive)
	if err != nil {
		return nil, err
	}
	var (
		out  []accrual.Summary
		errs []error
	)
	for _, t := range trains {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		sum, err := e.RunDailyAccrual(ctx, t.ID, day, actorID)
		if err != nil {
			errs = append(errs, fmt.Errorf("train %s: %w", t.ID, err))
			continue
		}
		out = append(out, sum)
	}
	return out, errors.Join(errs...)
}

// AccrueTrips runs the pipeline over an explicit batch for today.
func (e Engine) AccrueTrips(ctx context.Context, trainID string, trips []domain.TripRecord, actorID string) (accrual.Summary, error) {
	if err := accrual.Validate(trainID, trips); err != nil {
		return accrual.Summary{TrainID: trainID}, err
	}
	return e.accrue(ctx, trainID, e.now(), actorID, nil, func(repo.Repo) ([]domain.TripRecord, error) {
		return trips, nil
	})
}

// LogTrip records a completed trip and accrues it in the same transaction. The
// exposure entry is dated on the trip's start day.
func (e Engine) LogTrip(ctx context.Context, trip domain.TripRecord, actorID string) (domain.TripRecord, accrual.Summary, error) {
	if trip.TrainID == "" {
		return domain.TripRecord{}, accrual.Summary{}, invalid("train id is required")
	}
	if trip.StartTime.IsZero() || trip.EndTime.IsZero() {
		return domain.TripRecord{}, accrual.Summary{}, invalid("trip start and end are required")
	}
	if trip.ID == "" {
		trip.ID = newID("TRIP")
	}
	trip.AccruedAt = nil
	if err := accrual.Validate(trip.TrainID, []domain.TripRecord{trip}); err != nil {
		return domain.TripRecord{}, accrual.Summary{}, err
	}
	insert := func(r repo.Repo) error {
		if _, err := r.GetTrain(ctx, trip.TrainID); err != nil {
			return err
		}
		if _, err := r.GetTrip(ctx, trip.ID); err == nil {
			return conflict("trip %s already logged", trip.ID)
		}
		if err := r.InsertTrip(ctx, trip); err != nil {
			return err
		}
		return e.appendEvent(ctx, r.Tx(), events.TripLogged, "trip", trip.ID, actorID, events.EventPayload{
			"train_id": trip.TrainID,
			"route_id": trip.RouteID,
			"mileage":  trip.Mileage,
		})
	}
	sum, err := e.accrue(ctx, trip.TrainID, trip.StartTime, actorID, insert, func(repo.Repo) ([]domain.TripRecord, error) {
		return []domain.TripRecord{trip}, nil
	})
	if err != nil {
		return domain.TripRecord{}, sum, err
	}
	at := sum.AccruedAt
	trip.AccruedAt = &at
	return trip, sum, nil
}

func (e Engine) DailyMileageSummary(ctx context.Context, day time.Time) (MileageSummary, error) {
	trips, err := e.Repo.TripsOn(ctx, day)
	if err != nil {
		return MileageSummary{}, err
	}
	out := MileageSummary{Date: domain.Day(day).Format(domain.DateLayout), TotalTrips: len(trips)}
	miles := make([]float64, 0, len(trips))
	trains := map[string]bool{}
	for _, t := range trips {
		miles = append(miles, t.Mileage)
		out.TotalMileage += t.Mileage
		trains[t.TrainID] = true
	}
	out.UniqueTrains = len(trains)
	if len(miles) > 0 {
		out.AverageMileagePerTrip = stat.Mean(miles, nil)
	}
	return out, nil
}
