package engine

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"depotplan/internal/domain"
	"depotplan/internal/events"
	"depotplan/internal/repo"
)

// WorkOrderCreateOptions are parameters for raising a work order.
type WorkOrderCreateOptions struct {
	ID               string
	TrainID          string
	Component        string
	Summary          string
	Priority         domain.WorkOrderPriority
	TargetCompletion *time.Time
	ActorID          string
}

// WorkOrderUpdateOptions drive a status transition.
type WorkOrderUpdateOptions struct {
	ID          string
	Status      domain.WorkOrderStatus
	AssignedTo  string
	WorkDetails string
	LaborHours  *float64
	ActorID     string
	Force       bool
}

func validPriority(p domain.WorkOrderPriority) bool {
	switch p {
	case domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh, domain.PriorityCritical:
		return true
	}
	return false
}

func (e Engine) CreateWorkOrder(ctx context.Context, opts WorkOrderCreateOptions) (domain.WorkOrder, error) {
	if opts.TrainID == "" {
		return domain.WorkOrder{}, invalid("train is required")
	}
	if opts.Summary == "" {
		return domain.WorkOrder{}, invalid("summary is required")
	}
	if opts.Priority == "" {
		opts.Priority = domain.PriorityMedium
	}
	if !validPriority(opts.Priority) {
		return domain.WorkOrder{}, invalid("unknown priority %s", opts.Priority)
	}
	id := opts.ID
	if id == "" {
		id = newID("WO")
	}
	w := domain.WorkOrder{
		ID:               id,
		TrainID:          opts.TrainID,
		Component:        opts.Component,
		Priority:         opts.Priority,
		Status:           domain.WorkOrderOpen,
		Summary:          opts.Summary,
		ReportedAt:       e.now(),
		TargetCompletion: opts.TargetCompletion,
	}
	defer e.lock(trainKey(opts.TrainID))()
	err := e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		if _, err := r.GetTrain(ctx, opts.TrainID); err != nil {
			return err
		}
		if err := r.InsertWorkOrder(ctx, w); err != nil {
			return err
		}
		return e.appendEvent(ctx, tx, events.WorkOrderCreated, "work_order", w.ID, opts.ActorID, events.EventPayload{
			"train_id": w.TrainID,
			"priority": w.Priority,
			"summary":  w.Summary,
		})
	})
	if err != nil {
		return domain.WorkOrder{}, err
	}
	return w, nil
}

// UpdateWorkOrder applies one status transition. Starting work takes the train
// into MAINTENANCE; closing the last in-progress order returns it to ACTIVE.
func (e Engine) UpdateWorkOrder(ctx context.Context, opts WorkOrderUpdateOptions) (domain.WorkOrder, error) {
	current, err := e.Repo.GetWorkOrder(ctx, opts.ID)
	if err != nil {
		return domain.WorkOrder{}, err
	}
	defer e.lock(trainKey(current.TrainID))()

	var out domain.WorkOrder
	err = e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		w, err := r.GetWorkOrder(ctx, opts.ID)
		if err != nil {
			return err
		}
		old := w.Status
		if err := ensureWorkOrderTransition(old, opts.Status, opts.Force); err != nil {
			return err
		}
		now := e.now()
		w.Status = opts.Status
		if opts.AssignedTo != "" {
			w.AssignedTo = opts.AssignedTo
		}
		if opts.WorkDetails != "" {
			w.WorkDetails = opts.WorkDetails
		}
		if opts.LaborHours != nil {
			if *opts.LaborHours < 0 {
				return invalid("labor hours must not be negative")
			}
			w.LaborHours = opts.LaborHours
		}
		switch opts.Status {
		case domain.WorkOrderInProgress:
			if w.ActualStart == nil {
				w.ActualStart = &now
			}
		case domain.WorkOrderCompleted:
			if w.ActualEnd == nil {
				w.ActualEnd = &now
			}
		}
		if err := r.SaveWorkOrder(ctx, w); err != nil {
			return err
		}
		if err := e.syncTrainWithWork(ctx, r, w); err != nil {
			return err
		}
		out = w
		return e.appendEvent(ctx, tx, events.WorkOrderTransition, "work_order", w.ID, opts.ActorID, events.EventPayload{
			"train_id": w.TrainID,
			"from":     old,
			"to":       w.Status,
			"forced":   opts.Force,
		})
	})
	if err != nil {
		return domain.WorkOrder{}, err
	}
	e.Log.Info().Str("work_order", out.ID).Str("train_id", out.TrainID).Str("status", string(out.Status)).Msg("work order updated")
	return out, nil
}

func (e Engine) StartWorkOrder(ctx context.Context, id, assignee, actorID string) (domain.WorkOrder, error) {
	return e.UpdateWorkOrder(ctx, WorkOrderUpdateOptions{ID: id, Status: domain.WorkOrderInProgress, AssignedTo: assignee, ActorID: actorID})
}

func (e Engine) CompleteWorkOrder(ctx context.Context, id, details string, laborHours *float64, actorID string) (domain.WorkOrder, error) {
	return e.UpdateWorkOrder(ctx, WorkOrderUpdateOptions{ID: id, Status: domain.WorkOrderCompleted, WorkDetails: details, LaborHours: laborHours, ActorID: actorID})
}

func (e Engine) CloseWorkOrder(ctx context.Context, id, actorID string) (domain.WorkOrder, error) {
	return e.UpdateWorkOrder(ctx, WorkOrderUpdateOptions{ID: id, Status: domain.WorkOrderClosed, ActorID: actorID})
}

func (e Engine) syncTrainWithWork(ctx context.Context, r repo.Repo, w domain.WorkOrder) error {
	t, err := r.GetTrain(ctx, w.TrainID)
	if err != nil {
		return err
	}
	switch w.Status {
	case domain.WorkOrderInProgress:
		if t.Status != domain.TrainActive && t.Status != domain.TrainStandby {
			return nil
		}
		t.Status = domain.TrainMaintenance
	case domain.WorkOrderClosed:
		if t.Status != domain.TrainMaintenance {
			return nil
		}
		n, err := r.CountWorkOrders(ctx, t.ID, domain.WorkOrderInProgress, w.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		t.Status = domain.TrainActive
	default:
		return nil
	}
	t.UpdatedAt = e.now()
	return r.SaveTrain(ctx, t)
}

// OverdueWorkOrders lists unclosed orders past their target completion.
func (e Engine) OverdueWorkOrders(ctx context.Context) ([]domain.WorkOrder, error) {
	return e.Repo.OverdueWorkOrders(ctx, e.now())
}

func ensureWorkOrderTransition(old, next domain.WorkOrderStatus, force bool) error {
	if old == next {
		return conflict("work order already %s", old)
	}
	if force {
		switch next {
		case domain.WorkOrderOpen, domain.WorkOrderInProgress, domain.WorkOrderCompleted, domain.WorkOrderClosed:
			return nil
		}
		return invalid("unknown work order status %s", next)
	}
	allowed := map[domain.WorkOrderStatus][]domain.WorkOrderStatus{
		domain.WorkOrderOpen:       {domain.WorkOrderInProgress},
		domain.WorkOrderInProgress: {domain.WorkOrderCompleted},
		domain.WorkOrderCompleted:  {domain.WorkOrderClosed, domain.WorkOrderInProgress},
	}
	for _, s := range allowed[old] {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("invalid work order transition %s -> %s: %w", old, next, domain.ErrConflict)
}
