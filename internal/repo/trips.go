package repo

import (
	"context"
	"database/sql"
	"time"

	"depotplan/internal/domain"
)

const tripColumns = `id,train_id,route_id,start_time,end_time,mileage,load_factor,accrued_at`

func scanTrip(s scanner) (domain.TripRecord, error) {
	var t domain.TripRecord
	var start, end string
	var accrued sql.NullString
	if err := s.Scan(&t.ID, &t.TrainID, &t.RouteID, &start, &end, &t.Mileage, &t.LoadFactor, &accrued); err != nil {
		return t, err
	}
	var err error
	if t.StartTime, err = parseTS(start); err != nil {
		return t, err
	}
	if t.EndTime, err = parseTS(end); err != nil {
		return t, err
	}
	t.AccruedAt, err = parseNullTS(accrued)
	return t, err
}

// InsertTrip records a trip; its calendar day is taken from the start time.
func (r Repo) InsertTrip(ctx context.Context, t domain.TripRecord) error {
	_, err := r.q().ExecContext(ctx, `INSERT INTO trips(id,train_id,route_id,start_time,end_time,trip_date,mileage,load_factor,accrued_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		t.ID, t.TrainID, t.RouteID, formatTS(t.StartTime), formatTS(t.EndTime), formatDay(t.StartTime), t.Mileage, t.LoadFactor, nullTime(t.AccruedAt))
	return err
}

func (r Repo) GetTrip(ctx context.Context, id string) (domain.TripRecord, error) {
	t, err := scanTrip(r.q().QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE id=?`, id))
	if isNoRows(err) {
		return domain.TripRecord{}, notFound("trip", id)
	}
	return t, err
}

func (r Repo) TripsForTrainOn(ctx context.Context, trainID string, day time.Time, includeAccrued bool) ([]domain.TripRecord, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE train_id=? AND trip_date=?`
	if !includeAccrued {
		query += ` AND accrued_at IS NULL`
	}
	return r.queryTrips(ctx, query+` ORDER BY start_time, id`, trainID, formatDay(day))
}

// TripsOn returns every trip started on day.
func (r Repo) TripsOn(ctx context.Context, day time.Time) ([]domain.TripRecord, error) {
	return r.queryTrips(ctx, `SELECT `+tripColumns+` FROM trips WHERE trip_date=? ORDER BY train_id, start_time, id`, formatDay(day))
}

func (r Repo) MarkTripsAccrued(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	args := []any{formatTS(at)}
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := r.q().ExecContext(ctx, `UPDATE trips SET accrued_at=? WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	return err
}

func (r Repo) queryTrips(ctx context.Context, query string, args ...any) ([]domain.TripRecord, error) {
	rows, err := r.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.TripRecord
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
