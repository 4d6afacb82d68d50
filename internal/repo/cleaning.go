package repo

import (
	"context"
	"database/sql"
	"time"

	"depotplan/internal/domain"
)

const cleaningColumns = `id,train_id,type,status,team,scheduled_start,scheduled_end,actual_end,remarks`

func scanCleaning(s scanner) (domain.CleaningTask, error) {
	var c domain.CleaningTask
	var start, end string
	var actual, remarks sql.NullString
	if err := s.Scan(&c.ID, &c.TrainID, &c.Type, &c.Status, &c.Team, &start, &end, &actual, &remarks); err != nil {
		return c, err
	}
	c.Remarks = remarks.String
	var err error
	if c.ScheduledStart, err = parseTS(start); err != nil {
		return c, err
	}
	if c.ScheduledEnd, err = parseTS(end); err != nil {
		return c, err
	}
	c.ActualEnd, err = parseNullTS(actual)
	return c, err
}

func (r Repo) InsertCleaningTask(ctx context.Context, c domain.CleaningTask) error {
	_, err := r.q().ExecContext(ctx, `INSERT INTO cleaning_tasks(`+cleaningColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`,
		c.ID, c.TrainID, string(c.Type), string(c.Status), c.Team, formatTS(c.ScheduledStart), formatTS(c.ScheduledEnd), nullTime(c.ActualEnd), nullable(c.Remarks))
	return err
}

func (r Repo) GetCleaningTask(ctx context.Context, id string) (domain.CleaningTask, error) {
	c, err := scanCleaning(r.q().QueryRowContext(ctx, `SELECT `+cleaningColumns+` FROM cleaning_tasks WHERE id=?`, id))
	if isNoRows(err) {
		return domain.CleaningTask{}, notFound("cleaning task", id)
	}
	return c, err
}

// PendingCleaningForTrain lists SCHEDULED or IN_PROGRESS tasks of a train.
func (r Repo) PendingCleaningForTrain(ctx context.Context, trainID string) ([]domain.CleaningTask, error) {
	return r.queryCleaning(ctx, `SELECT `+cleaningColumns+` FROM cleaning_tasks WHERE train_id=? AND status IN (?,?) ORDER BY scheduled_start`,
		trainID, string(domain.CleaningScheduled), string(domain.CleaningInProgress))
}

// CleaningTasksBetween lists tasks scheduled to start in [from, to).
func (r Repo) CleaningTasksBetween(ctx context.Context, from, to time.Time) ([]domain.CleaningTask, error) {
	return r.queryCleaning(ctx, `SELECT `+cleaningColumns+` FROM cleaning_tasks WHERE scheduled_start>=? AND scheduled_start<? ORDER BY scheduled_start, id`,
		formatTS(from), formatTS(to))
}

func (r Repo) SaveCleaningTask(ctx context.Context, c domain.CleaningTask) error {
	res, err := r.q().ExecContext(ctx, `UPDATE cleaning_tasks SET status=?,team=?,scheduled_start=?,scheduled_end=?,actual_end=?,remarks=? WHERE id=?`,
		string(c.Status), c.Team, formatTS(c.ScheduledStart), formatTS(c.ScheduledEnd), nullTime(c.ActualEnd), nullable(c.Remarks), c.ID)
	if err != nil {
		return err
	}
	return checkAffected(res, "cleaning task", c.ID)
}

func (r Repo) queryCleaning(ctx context.Context, query string, args ...any) ([]domain.CleaningTask, error) {
	rows, err := r.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.CleaningTask
	for rows.Next() {
		c, err := scanCleaning(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
