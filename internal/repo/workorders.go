package repo

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"depotplan/internal/domain"
)

const workOrderColumns = `id,train_id,component,priority,status,summary,assigned_to,reported_at,target_completion,actual_start,actual_end,labor_hours,work_details`

func scanWorkOrder(s scanner) (domain.WorkOrder, error) {
	var w domain.WorkOrder
	var component, assigned, details, target, start, end sql.NullString
	var reported string
	var labor sql.NullFloat64
	if err := s.Scan(&w.ID, &w.TrainID, &component, &w.Priority, &w.Status, &w.Summary, &assigned, &reported, &target, &start, &end, &labor, &details); err != nil {
		return w, err
	}
	w.Component = component.String
	w.AssignedTo = assigned.String
	w.WorkDetails = details.String
	w.LaborHours = floatPtr(labor)
	var err error
	if w.ReportedAt, err = parseTS(reported); err != nil {
		return w, err
	}
	if w.TargetCompletion, err = parseNullTS(target); err != nil {
		return w, err
	}
	if w.ActualStart, err = parseNullTS(start); err != nil {
		return w, err
	}
	if w.ActualEnd, err = parseNullTS(end); err != nil {
		return w, err
	}
	return w, nil
}

func (r Repo) InsertWorkOrder(ctx context.Context, w domain.WorkOrder) error {
	_, err := r.q().ExecContext(ctx, `INSERT INTO work_orders(`+workOrderColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		w.ID, w.TrainID, nullable(w.Component), string(w.Priority), string(w.Status), w.Summary, nullable(w.AssignedTo),
		formatTS(w.ReportedAt), nullTime(w.TargetCompletion), nullTime(w.ActualStart), nullTime(w.ActualEnd),
		nullFloat(w.LaborHours), nullable(w.WorkDetails))
	return err
}

func (r Repo) GetWorkOrder(ctx context.Context, id string) (domain.WorkOrder, error) {
	row := r.q().QueryRowContext(ctx, `SELECT `+workOrderColumns+` FROM work_orders WHERE id=?`, id)
	w, err := scanWorkOrder(row)
	if isNoRows(err) {
		return domain.WorkOrder{}, notFound("work order", id)
	}
	return w, err
}

// ListWorkOrders filters by train and status when given.
func (r Repo) ListWorkOrders(ctx context.Context, trainID string, status domain.WorkOrderStatus) ([]domain.WorkOrder, error) {
	query := `SELECT ` + workOrderColumns + ` FROM work_orders`
	var where []string
	var args []any
	if trainID != "" {
		where = append(where, "train_id=?")
		args = append(args, trainID)
	}
	if status != "" {
		where = append(where, "status=?")
		args = append(args, string(status))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY reported_at, id"
	return r.queryWorkOrders(ctx, query, args...)
}

func (r Repo) WorkOrdersForTrain(ctx context.Context, trainID string) ([]domain.WorkOrder, error) {
	return r.ListWorkOrders(ctx, trainID, "")
}

func (r Repo) OpenWorkOrdersForTrain(ctx context.Context, trainID string) ([]domain.WorkOrder, error) {
	return r.queryWorkOrders(ctx, `SELECT `+workOrderColumns+` FROM work_orders WHERE train_id=? AND status<>? ORDER BY reported_at, id`,
		trainID, string(domain.WorkOrderClosed))
}

// OverdueWorkOrders lists non-closed work orders whose target completion has passed.
func (r Repo) OverdueWorkOrders(ctx context.Context, now time.Time) ([]domain.WorkOrder, error) {
	all, err := r.queryWorkOrders(ctx, `SELECT `+workOrderColumns+` FROM work_orders WHERE status<>? AND target_completion IS NOT NULL ORDER BY target_completion, id`,
		string(domain.WorkOrderClosed))
	if err != nil {
		return nil, err
	}
	var out []domain.WorkOrder
	for _, w := range all {
		if w.TargetCompletion.Before(now) {
			out = append(out, w)
		}
	}
	return out, nil
}

// CountWorkOrders counts a train's work orders in status, excluding one id.
func (r Repo) CountWorkOrders(ctx context.Context, trainID string, status domain.WorkOrderStatus, excludeID string) (int, error) {
	var n int
	err := r.q().QueryRowContext(ctx, `SELECT COUNT(*) FROM work_orders WHERE train_id=? AND status=? AND id<>?`,
		trainID, string(status), excludeID).Scan(&n)
	return n, err
}

func (r Repo) queryWorkOrders(ctx context.Context, query string, args ...any) ([]domain.WorkOrder, error) {
	rows, err := r.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.WorkOrder
	for rows.Next() {
		w, err := scanWorkOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r Repo) SaveWorkOrder(ctx context.Context, w domain.WorkOrder) error {
	res, err := r.q().ExecContext(ctx, `UPDATE work_orders SET component=?,priority=?,status=?,summary=?,assigned_to=?,target_completion=?,actual_start=?,actual_end=?,labor_hours=?,work_details=? WHERE id=?`,
		nullable(w.Component), string(w.Priority), string(w.Status), w.Summary, nullable(w.AssignedTo),
		nullTime(w.TargetCompletion), nullTime(w.ActualStart), nullTime(w.ActualEnd), nullFloat(w.LaborHours),
		nullable(w.WorkDetails), w.ID)
	if err != nil {
		return err
	}
	return checkAffected(res, "work order", w.ID)
}
