package accrual

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depotplan/internal/domain"
)

type memStore struct {
	trains      map[string]domain.Train
	assignments map[string]domain.Assignment
	logs        []domain.ExposureLogEntry
	accrued     map[string]time.Time
	failSave    bool
}

func newMemStore() *memStore {
	return &memStore{
		trains:      map[string]domain.Train{},
		assignments: map[string]domain.Assignment{},
		accrued:     map[string]time.Time{},
	}
}

func (m *memStore) GetTrain(_ context.Context, id string) (domain.Train, error) {
	t, ok := m.trains[id]
	if !ok {
		return domain.Train{}, fmt.Errorf("train %s: %w", id, domain.ErrNotFound)
	}
	return t, nil
}

func (m *memStore) TrainsByStatus(_ context.Context, status domain.TrainStatus) ([]domain.Train, error) {
	var out []domain.Train
	for _, t := range m.trains {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) SaveTrain(_ context.Context, t domain.Train) error {
	m.trains[t.ID] = t
	return nil
}

func (m *memStore) ActiveAssignmentsForTrain(_ context.Context, id string) ([]domain.Assignment, error) {
	var out []domain.Assignment
	for _, a := range m.assignments {
		if a.TrainID == id && a.Status == domain.AssignmentActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) AppendExposureLog(_ context.Context, e *domain.ExposureLogEntry) error {
	e.ID = int64(len(m.logs) + 1)
	m.logs = append(m.logs, *e)
	return nil
}

func (m *memStore) SaveAssignment(_ context.Context, a domain.Assignment) error {
	if m.failSave {
		return errors.New("disk full")
	}
	m.assignments[a.ID] = a
	return nil
}

func (m *memStore) TripsForTrainOn(context.Context, string, time.Time, bool) ([]domain.TripRecord, error) {
	return nil, nil
}

func (m *memStore) MarkTripsAccrued(_ context.Context, ids []string, at time.Time) error {
	for _, id := range ids {
		m.accrued[id] = at
	}
	return nil
}

var today = time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

func f(v float64) *float64 { return &v }

func trip(id, route string, mileage float64, minutes int, load float64) domain.TripRecord {
	start := today.Add(6 * time.Hour)
	return domain.TripRecord{
		ID:         id,
		TrainID:    "T-01",
		RouteID:    route,
		StartTime:  start,
		EndTime:    start.Add(time.Duration(minutes) * time.Minute),
		Mileage:    mileage,
		LoadFactor: load,
	}
}

func seeded() *memStore {
	m := newMemStore()
	m.trains["T-01"] = domain.Train{ID: "T-01", Status: domain.TrainActive, CurrentOdometer: f(1000), MaintenanceInterval: 3500}
	m.assignments["A-1"] = domain.Assignment{
		ID:             "A-1",
		TrainID:        "T-01",
		ContractID:     "C-1",
		AssignmentDate: today.AddDate(0, 0, -4),
		Status:         domain.AssignmentActive,
		Contract:       domain.BrandingContract{ID: "C-1", RequiredHours: 100},
	}
	m.assignments["A-2"] = domain.Assignment{ID: "A-2", TrainID: "T-01", Status: domain.AssignmentPaused}
	return m
}

func pipeline(m *memStore) Pipeline {
	return Pipeline{Store: m, SkipAccrued: true, LoggedBy: "system", Now: func() time.Time { return today.Add(23 * time.Hour) }}
}

func TestRunAccruesExampleBatch(t *testing.T) {
	m := seeded()
	trips := []domain.TripRecord{
		trip("TR-1", "R1", 12.5, 40, 0.5),
		trip("TR-2", "R2", 7.5, 50, 0.755),
	}
	sum, err := pipeline(m).Run(context.Background(), "T-01", trips, today)
	require.NoError(t, err)

	assert.Equal(t, 20.0, sum.MileageAdded)
	assert.Equal(t, 1, sum.ServiceHours)
	assert.Equal(t, 2, sum.TripCount)
	assert.Equal(t, 1000.0, sum.PreviousOdometer)
	assert.Equal(t, 1020.0, sum.NewOdometer)
	assert.True(t, sum.BrandingUpdated)
	assert.Equal(t, 1, sum.AssignmentsUpdated)
	assert.Equal(t, "2024-03-10", sum.Date)

	assert.Equal(t, 1020.0, *m.trains["T-01"].CurrentOdometer)

	require.Len(t, m.logs, 1)
	entry := m.logs[0]
	assert.Equal(t, "A-1", entry.AssignmentID)
	assert.Equal(t, today, entry.LogDate)
	assert.Equal(t, 1, entry.HoursExposed)
	assert.Equal(t, 20.0, entry.MileageCovered)
	assert.Equal(t, 1000.0, entry.StartOdometer)
	assert.Equal(t, 1020.0, entry.EndOdometer)
	assert.Equal(t, "R1, R2", entry.RoutesCovered)
	assert.Equal(t, 2, entry.TripCount)
	assert.Equal(t, 125, entry.PassengerCount)

	a := m.assignments["A-1"]
	assert.Equal(t, 1, a.TotalHoursExposed)
	assert.Equal(t, 20.0, a.TotalMileageExposed)
	assert.InDelta(t, 4.0, a.AverageDailyMileage, 1e-9, "20 km over 5 inclusive days")
	assert.Equal(t, 0, m.assignments["A-2"].TotalHoursExposed)

	assert.Len(t, m.accrued, 2)
}

func TestRunEmptyBatchChangesNothing(t *testing.T) {
	m := seeded()
	before := m.assignments["A-1"]
	sum, err := pipeline(m).Run(context.Background(), "T-01", nil, today)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sum.MileageAdded)
	assert.False(t, sum.BrandingUpdated)
	assert.NotEmpty(t, sum.Message)
	assert.Empty(t, m.logs)
	assert.Equal(t, 1000.0, *m.trains["T-01"].CurrentOdometer)
	assert.Equal(t, before, m.assignments["A-1"])
}

func TestRunOdometerIsMonotonic(t *testing.T) {
	m := seeded()
	p := pipeline(m)
	added := []float64{0, 3.25, 10, 0, 42.5}
	total := 0.0
	for i, miles := range added {
		total += miles
		tr := trip(fmt.Sprintf("TR-%d", i), "R1", miles, 30, 0.1)
		_, err := p.Run(context.Background(), "T-01", []domain.TripRecord{tr}, today)
		require.NoError(t, err)
		got := *m.trains["T-01"].CurrentOdometer
		assert.InDelta(t, 1000+total, got, 1e-9)
	}
	assert.Len(t, m.logs, len(added))
}

func TestRunSkipsAlreadyAccruedTrips(t *testing.T) {
	m := seeded()
	done := today.Add(time.Hour)
	first := trip("TR-1", "R1", 10, 60, 0.2)
	first.AccruedAt = &done
	sum, err := pipeline(m).Run(context.Background(), "T-01", []domain.TripRecord{first}, today)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.SkippedTrips)
	assert.Equal(t, 0.0, sum.MileageAdded)
	assert.Empty(t, m.logs)

	p := pipeline(m)
	p.SkipAccrued = false
	sum, err = p.Run(context.Background(), "T-01", []domain.TripRecord{first}, today)
	require.NoError(t, err)
	assert.Equal(t, 10.0, sum.MileageAdded)
}

func TestRunRejectsBadInputBeforeWriting(t *testing.T) {
	cases := []struct {
		name string
		trip domain.TripRecord
		want error
	}{
		{"negative mileage", trip("X", "R1", -1, 10, 0.1), domain.ErrInvalidInput},
		{"end before start", func() domain.TripRecord {
			tr := trip("X", "R1", 1, 10, 0.1)
			tr.EndTime = tr.StartTime.Add(-time.Minute)
			return tr
		}(), domain.ErrInvalidInput},
		{"load factor", trip("X", "R1", 1, 10, 1.5), domain.ErrInvalidInput},
		{"foreign train", func() domain.TripRecord {
			tr := trip("X", "R1", 1, 10, 0.1)
			tr.TrainID = "T-99"
			return tr
		}(), domain.ErrUnprocessable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := seeded()
			good := trip("OK", "R1", 5, 10, 0.1)
			_, err := pipeline(m).Run(context.Background(), "T-01", []domain.TripRecord{good, tc.trip}, today)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, 1000.0, *m.trains["T-01"].CurrentOdometer)
			assert.Empty(t, m.logs)
		})
	}
}

func TestRunUnknownTrain(t *testing.T) {
	_, err := pipeline(newMemStore()).Run(context.Background(), "T-01", []domain.TripRecord{trip("X", "R1", 1, 1, 0)}, today)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRunPropagatesStoreFailure(t *testing.T) {
	m := seeded()
	m.failSave = true
	_, err := pipeline(m).Run(context.Background(), "T-01", []domain.TripRecord{trip("X", "R1", 1, 1, 0)}, today)
	assert.Error(t, err)
}

func TestRunNilOdometerStartsAtZero(t *testing.T) {
	m := seeded()
	tr := m.trains["T-01"]
	tr.CurrentOdometer = nil
	m.trains["T-01"] = tr
	sum, err := pipeline(m).Run(context.Background(), "T-01", []domain.TripRecord{trip("X", "R1", 8, 30, 0)}, today)
	require.NoError(t, err)
	assert.Equal(t, 0.0, sum.PreviousOdometer)
	assert.Equal(t, 8.0, sum.NewOdometer)
}

func TestDaysInclusive(t *testing.T) {
	assert.Equal(t, 1, DaysInclusive(today, today))
	assert.Equal(t, 5, DaysInclusive(today.AddDate(0, 0, -4), today.Add(20*time.Hour)))
	assert.Equal(t, 1, DaysInclusive(today.AddDate(0, 0, 3), today))
}

func TestAggregate(t *testing.T) {
	tot := Aggregate([]domain.TripRecord{
		trip("1", "R2", 1, 59, 0.33),
		trip("2", "R1", 2, 59, 0.0),
		trip("3", "R2", 3, 3, 1.0),
	})
	assert.Equal(t, 6.0, tot.Mileage)
	assert.Equal(t, 121, tot.Minutes)
	assert.Equal(t, 2, tot.ServiceHours)
	assert.Equal(t, "R2, R1", tot.Routes)
	assert.Equal(t, 133, tot.Passengers)
	assert.Equal(t, Totals{}, Aggregate(nil))
}
