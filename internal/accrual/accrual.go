// Package accrual rolls completed trips into train odometers and branding exposure ledgers.
package accrual

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"

	"depotplan/internal/domain"
	"depotplan/internal/ledger"
)

// Store is the ledger surface one accrual run reads and writes. The engine hands
// in a transaction-bound implementation so a run is all-or-nothing.
type Store interface {
	ledger.FleetRegistry
	ledger.ExposureLedger
	ledger.TripLog
}

// Totals aggregates a trip batch.
type Totals struct {
	Trips        int     `json:"trips"`
	Mileage      float64 `json:"mileage"`
	Minutes      int     `json:"minutes"`
	ServiceHours int     `json:"service_hours"`
	Routes       string  `json:"routes"`
	Passengers   int     `json:"passengers"`
}

type Summary struct {
	TrainID            string    `json:"train_id"`
	Date               string    `json:"date"`
	TripCount          int       `json:"trip_count"`
	MileageAdded       float64   `json:"mileage_added"`
	ServiceHours       int       `json:"service_hours"`
	PreviousOdometer   float64   `json:"previous_odometer"`
	NewOdometer        float64   `json:"new_odometer"`
	AssignmentsUpdated int       `json:"assignments_updated"`
	BrandingUpdated    bool      `json:"branding_updated"`
	SkippedTrips       int       `json:"skipped_trips"`
	Message            string    `json:"message"`
	Entries            []int64   `json:"entries,omitempty"`
	AccruedAt          time.Time `json:"accrued_at"`
}

type Pipeline struct {
	Store Store
	// SkipAccrued drops trips that already fed a previous run.
	SkipAccrued bool
	LoggedBy    string
	Now         func() time.Time
}

func (p Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Validate rejects a batch before anything is written.
func Validate(trainID string, trips []domain.TripRecord) error {
	for _, t := range trips {
		if t.TrainID != trainID {
			return fmt.Errorf("trip %s belongs to train %s, not %s: %w", t.ID, t.TrainID, trainID, domain.ErrUnprocessable)
		}
		if t.Mileage < 0 || math.IsNaN(t.Mileage) || math.IsInf(t.Mileage, 0) {
			return fmt.Errorf("trip %s: invalid mileage %v: %w", t.ID, t.Mileage, domain.ErrInvalidInput)
		}
		if t.EndTime.Before(t.StartTime) {
			return fmt.Errorf("trip %s: end before start: %w", t.ID, domain.ErrInvalidInput)
		}
		if t.LoadFactor < 0 || t.LoadFactor > 1 {
			return fmt.Errorf("trip %s: load factor %v outside [0,1]: %w", t.ID, t.LoadFactor, domain.ErrInvalidInput)
		}
	}
	return nil
}

// Aggregate sums a trip batch. Routes keep first-seen order.
func Aggregate(trips []domain.TripRecord) Totals {
	out := Totals{Trips: len(trips)}
	miles := make([]float64, 0, len(trips))
	seen := map[string]bool{}
	var routes []string
	for _, t := range trips {
		miles = append(miles, t.Mileage)
		out.Minutes += t.DurationMinutes()
		out.Passengers += int(t.LoadFactor * 100)
		if t.RouteID != "" && !seen[t.RouteID] {
			seen[t.RouteID] = true
			routes = append(routes, t.RouteID)
		}
	}
	out.Mileage = floats.Sum(miles)
	out.ServiceHours = out.Minutes / 60
	out.Routes = strings.Join(routes, ", ")
	return out
}

// DaysInclusive counts calendar days from start through today, at least one.
func DaysInclusive(start, today time.Time) int {
	days := int(domain.Day(today).Sub(domain.Day(start)).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}

// Run accrues trips for one train on today.
func (p Pipeline) Run(ctx context.Context, trainID string, trips []domain.TripRecord, today time.Time) (Summary, error) {
	day := domain.Day(today)
	sum := Summary{TrainID: trainID, Date: day.Format(domain.DateLayout), AccruedAt: p.now().UTC()}
	if err := Validate(trainID, trips); err != nil {
		return sum, err
	}
	train, err := p.Store.GetTrain(ctx, trainID)
	if err != nil {
		return sum, err
	}
	sum.PreviousOdometer = train.Odometer()
	sum.NewOdometer = sum.PreviousOdometer

	batch := trips
	if p.SkipAccrued {
		batch = make([]domain.TripRecord, 0, len(trips))
		for _, t := range trips {
			if t.AccruedAt != nil {
				sum.SkippedTrips++
				continue
			}
			batch = append(batch, t)
		}
	}
	if len(batch) == 0 {
		sum.Message = "no trips to accrue; branding not updated"
		return sum, nil
	}

	totals := Aggregate(batch)
	sum.TripCount = totals.Trips
	sum.MileageAdded = totals.Mileage
	sum.ServiceHours = totals.ServiceHours

	next := sum.PreviousOdometer + totals.Mileage
	train.CurrentOdometer = &next
	train.UpdatedAt = sum.AccruedAt
	if err := p.Store.SaveTrain(ctx, train); err != nil {
		return sum, fmt.Errorf("save odometer: %w", err)
	}
	sum.NewOdometer = next

	assignments, err := p.Store.ActiveAssignmentsForTrain(ctx, trainID)
	if err != nil {
		return sum, err
	}
	for _, a := range assignments {
		if a.Status != domain.AssignmentActive {
			continue
		}
		entry := domain.ExposureLogEntry{
			AssignmentID:   a.ID,
			LogDate:        day,
			HoursExposed:   totals.ServiceHours,
			MileageCovered: totals.Mileage,
			StartOdometer:  sum.PreviousOdometer,
			EndOdometer:    next,
			RoutesCovered:  totals.Routes,
			TripCount:      totals.Trips,
			PassengerCount: totals.Passengers,
			LoggedBy:       p.LoggedBy,
			CreatedAt:      sum.AccruedAt,
		}
		if err := p.Store.AppendExposureLog(ctx, &entry); err != nil {
			return sum, fmt.Errorf("append exposure log for %s: %w", a.ID, err)
		}
		a.TotalHoursExposed += totals.ServiceHours
		a.TotalMileageExposed += totals.Mileage
		a.AverageDailyMileage = a.TotalMileageExposed / float64(DaysInclusive(a.AssignmentDate, day))
		if err := p.Store.SaveAssignment(ctx, a); err != nil {
			return sum, fmt.Errorf("save assignment %s: %w", a.ID, err)
		}
		sum.Entries = append(sum.Entries, entry.ID)
		sum.AssignmentsUpdated++
	}
	sum.BrandingUpdated = sum.AssignmentsUpdated > 0

	ids := make([]string, 0, len(batch))
	for _, t := range batch {
		if t.ID != "" {
			ids = append(ids, t.ID)
		}
	}
	if len(ids) > 0 {
		if err := p.Store.MarkTripsAccrued(ctx, ids, sum.AccruedAt); err != nil {
			return sum, fmt.Errorf("mark trips accrued: %w", err)
		}
	}
	sum.Message = fmt.Sprintf("accrued %.1f km over %d trips", totals.Mileage, totals.Trips)
	if !sum.BrandingUpdated {
		sum.Message += "; no active branding assignments"
	}
	return sum, nil
}
