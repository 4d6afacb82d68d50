package repo

import (
	"context"
	"database/sql"

	"depotplan/internal/domain"
)

const contractColumns = `id,advertiser,start_date,end_date,required_hours,status`

func scanContract(s scanner) (domain.BrandingContract, error) {
	var c domain.BrandingContract
	var start, end string
	if err := s.Scan(&c.ID, &c.Advertiser, &start, &end, &c.RequiredHours, &c.Status); err != nil {
		return c, err
	}
	var err error
	if c.StartDate, err = parseDay(start); err != nil {
		return c, err
	}
	if c.EndDate, err = parseDay(end); err != nil {
		return c, err
	}
	return c, nil
}

func (r Repo) InsertContract(ctx context.Context, c domain.BrandingContract) error {
	_, err := r.q().ExecContext(ctx, `INSERT INTO branding_contracts(`+contractColumns+`) VALUES (?,?,?,?,?,?)`,
		c.ID, c.Advertiser, formatDay(c.StartDate), formatDay(c.EndDate), c.RequiredHours, string(c.Status))
	return err
}

func (r Repo) GetContract(ctx context.Context, id string) (domain.BrandingContract, error) {
	row := r.q().QueryRowContext(ctx, `SELECT `+contractColumns+` FROM branding_contracts WHERE id=?`, id)
	c, err := scanContract(row)
	if isNoRows(err) {
		return domain.BrandingContract{}, notFound("contract", id)
	}
	return c, err
}

func (r Repo) ListContracts(ctx context.Context) ([]domain.BrandingContract, error) {
	rows, err := r.q().QueryContext(ctx, `SELECT `+contractColumns+` FROM branding_contracts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.BrandingContract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const assignmentSelect = `SELECT a.id,a.train_id,a.contract_id,a.assignment_date,a.total_hours_exposed,a.total_mileage_exposed,a.average_daily_mileage,a.status,
c.id,c.advertiser,c.start_date,c.end_date,c.required_hours,c.status
FROM branding_assignments a JOIN branding_contracts c ON c.id=a.contract_id`

func scanAssignment(s scanner) (domain.Assignment, error) {
	var a domain.Assignment
	var assigned, cStart, cEnd string
	c := &a.Contract
	if err := s.Scan(&a.ID, &a.TrainID, &a.ContractID, &assigned, &a.TotalHoursExposed, &a.TotalMileageExposed, &a.AverageDailyMileage, &a.Status,
		&c.ID, &c.Advertiser, &cStart, &cEnd, &c.RequiredHours, &c.Status); err != nil {
		return a, err
	}
	var err error
	if a.AssignmentDate, err = parseDay(assigned); err != nil {
		return a, err
	}
	if c.StartDate, err = parseDay(cStart); err != nil {
		return a, err
	}
	if c.EndDate, err = parseDay(cEnd); err != nil {
		return a, err
	}
	return a, nil
}

func (r Repo) InsertAssignment(ctx context.Context, a domain.Assignment) error {
	_, err := r.q().ExecContext(ctx, `INSERT INTO branding_assignments(id,train_id,contract_id,assignment_date,total_hours_exposed,total_mileage_exposed,average_daily_mileage,status) VALUES (?,?,?,?,?,?,?,?)`,
		a.ID, a.TrainID, a.ContractID, formatDay(a.AssignmentDate), a.TotalHoursExposed, a.TotalMileageExposed, a.AverageDailyMileage, string(a.Status))
	return err
}

func (r Repo) GetAssignment(ctx context.Context, id string) (domain.Assignment, error) {
	row := r.q().QueryRowContext(ctx, assignmentSelect+` WHERE a.id=?`, id)
	a, err := scanAssignment(row)
	if isNoRows(err) {
		return domain.Assignment{}, notFound("assignment", id)
	}
	return a, err
}

func (r Repo) ActiveAssignmentsForTrain(ctx context.Context, trainID string) ([]domain.Assignment, error) {
	return r.queryAssignments(ctx, assignmentSelect+` WHERE a.train_id=? AND a.status=? ORDER BY a.id`, trainID, string(domain.AssignmentActive))
}

func (r Repo) AssignmentsForTrain(ctx context.Context, trainID string) ([]domain.Assignment, error) {
	return r.queryAssignments(ctx, assignmentSelect+` WHERE a.train_id=? ORDER BY a.id`, trainID)
}

func (r Repo) AssignmentsForContract(ctx context.Context, contractID string) ([]domain.Assignment, error) {
	return r.queryAssignments(ctx, assignmentSelect+` WHERE a.contract_id=? ORDER BY a.id`, contractID)
}

func (r Repo) queryAssignments(ctx context.Context, query string, args ...any) ([]domain.Assignment, error) {
	rows, err := r.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SaveAssignment writes the running totals and status back.
func (r Repo) SaveAssignment(ctx context.Context, a domain.Assignment) error {
	res, err := r.q().ExecContext(ctx, `UPDATE branding_assignments SET total_hours_exposed=?,total_mileage_exposed=?,average_daily_mileage=?,status=? WHERE id=?`,
		a.TotalHoursExposed, a.TotalMileageExposed, a.AverageDailyMileage, string(a.Status), a.ID)
	if err != nil {
		return err
	}
	return checkAffected(res, "assignment", a.ID)
}

// AppendExposureLog inserts the entry and stores its generated id on it.
func (r Repo) AppendExposureLog(ctx context.Context, e *domain.ExposureLogEntry) error {
	res, err := r.q().ExecContext(ctx, `INSERT INTO exposure_logs(assignment_id,log_date,hours_exposed,mileage_covered,start_odometer,end_odometer,routes_covered,trip_count,passenger_count,logged_by,created_at) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		e.AssignmentID, formatDay(e.LogDate), e.HoursExposed, e.MileageCovered, e.StartOdometer, e.EndOdometer,
		nullable(e.RoutesCovered), e.TripCount, e.PassengerCount, nullable(e.LoggedBy), formatTS(e.CreatedAt))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

func (r Repo) ExposureLogsForAssignment(ctx context.Context, assignmentID string) ([]domain.ExposureLogEntry, error) {
	rows, err := r.q().QueryContext(ctx, `SELECT id,assignment_id,log_date,hours_exposed,mileage_covered,start_odometer,end_odometer,routes_covered,trip_count,passenger_count,logged_by,created_at FROM exposure_logs WHERE assignment_id=? ORDER BY id`, assignmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.ExposureLogEntry
	for rows.Next() {
		var e domain.ExposureLogEntry
		var day, created string
		var routes, by sql.NullString
		if err := rows.Scan(&e.ID, &e.AssignmentID, &day, &e.HoursExposed, &e.MileageCovered, &e.StartOdometer, &e.EndOdometer, &routes, &e.TripCount, &e.PassengerCount, &by, &created); err != nil {
			return nil, err
		}
		e.RoutesCovered = routes.String
		e.LoggedBy = by.String
		if e.LogDate, err = parseDay(day); err != nil {
			return nil, err
		}
		if e.CreatedAt, err = parseTS(created); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
