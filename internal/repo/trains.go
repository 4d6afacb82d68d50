package repo

import (
	"context"
	"database/sql"

	"depotplan/internal/domain"
)

const trainColumns = `id,number,status,current_odometer,odometer_at_last_maintenance,maintenance_interval,last_cleaning,cleaning_period_hours,daily_max_mileage,depot,created_at,updated_at`

func scanTrain(s scanner) (domain.Train, error) {
	var t domain.Train
	var cur, last sql.NullFloat64
	var cleaned, depot sql.NullString
	var created, updated string
	if err := s.Scan(&t.ID, &t.Number, &t.Status, &cur, &last, &t.MaintenanceInterval, &cleaned, &t.CleaningPeriodHours, &t.DailyMaxMileage, &depot, &created, &updated); err != nil {
		return t, err
	}
	t.CurrentOdometer = floatPtr(cur)
	t.OdometerAtLastMaintenance = floatPtr(last)
	t.Depot = depot.String
	var err error
	if t.LastCleaning, err = parseNullTS(cleaned); err != nil {
		return t, err
	}
	if t.CreatedAt, err = parseTS(created); err != nil {
		return t, err
	}
	if t.UpdatedAt, err = parseTS(updated); err != nil {
		return t, err
	}
	return t, nil
}

func (r Repo) InsertTrain(ctx context.Context, t domain.Train) error {
	_, err := r.q().ExecContext(ctx, `INSERT INTO trains(`+trainColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.Number, string(t.Status), nullFloat(t.CurrentOdometer), nullFloat(t.OdometerAtLastMaintenance),
		t.MaintenanceInterval, nullTime(t.LastCleaning), t.CleaningPeriodHours, t.DailyMaxMileage,
		nullable(t.Depot), formatTS(t.CreatedAt), formatTS(t.UpdatedAt))
	return err
}

func (r Repo) GetTrain(ctx context.Context, id string) (domain.Train, error) {
	row := r.q().QueryRowContext(ctx, `SELECT `+trainColumns+` FROM trains WHERE id=?`, id)
	t, err := scanTrain(row)
	if isNoRows(err) {
		return domain.Train{}, notFound("train", id)
	}
	return t, err
}

func (r Repo) ListTrains(ctx context.Context) ([]domain.Train, error) {
	return r.queryTrains(ctx, `SELECT `+trainColumns+` FROM trains ORDER BY id`)
}

func (r Repo) TrainsByStatus(ctx context.Context, status domain.TrainStatus) ([]domain.Train, error) {
	return r.queryTrains(ctx, `SELECT `+trainColumns+` FROM trains WHERE status=? ORDER BY id`, string(status))
}

func (r Repo) queryTrains(ctx context.Context, query string, args ...any) ([]domain.Train, error) {
	rows, err := r.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Train
	for rows.Next() {
		t, err := scanTrain(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SaveTrain writes every mutable train field back.
func (r Repo) SaveTrain(ctx context.Context, t domain.Train) error {
	res, err := r.q().ExecContext(ctx, `UPDATE trains SET number=?,status=?,current_odometer=?,odometer_at_last_maintenance=?,maintenance_interval=?,last_cleaning=?,cleaning_period_hours=?,daily_max_mileage=?,depot=?,updated_at=? WHERE id=?`,
		t.Number, string(t.Status), nullFloat(t.CurrentOdometer), nullFloat(t.OdometerAtLastMaintenance),
		t.MaintenanceInterval, nullTime(t.LastCleaning), t.CleaningPeriodHours, t.DailyMaxMileage,
		nullable(t.Depot), formatTS(t.UpdatedAt), t.ID)
	if err != nil {
		return err
	}
	return checkAffected(res, "train", t.ID)
}
