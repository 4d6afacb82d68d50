package engine

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"depotplan/internal/domain"
	"depotplan/internal/events"
	"depotplan/internal/priority"
	"depotplan/internal/repo"
)

// CreateContract registers an advertiser's exposure commitment.
func (e Engine) CreateContract(ctx context.Context, c domain.BrandingContract, actorID string) (domain.BrandingContract, error) {
	if c.Advertiser == "" {
		return domain.BrandingContract{}, invalid("advertiser is required")
	}
	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		return domain.BrandingContract{}, invalid("contract window is required")
	}
	c.StartDate, c.EndDate = domain.Day(c.StartDate), domain.Day(c.EndDate)
	if c.EndDate.Before(c.StartDate) {
		return domain.BrandingContract{}, invalid("contract ends before it starts")
	}
	if c.RequiredHours < 0 {
		return domain.BrandingContract{}, invalid("required hours must not be negative")
	}
	if c.Status == "" {
		c.Status = domain.ContractActive
	}
	switch c.Status {
	case domain.ContractActive, domain.ContractPaused, domain.ContractCompleted, domain.ContractCancelled:
	default:
		return domain.BrandingContract{}, invalid("unknown contract status %s", c.Status)
	}
	if c.ID == "" {
		c.ID = newID("BC")
	}
	err := e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		if _, err := r.GetContract(ctx, c.ID); err == nil {
			return conflict("contract %s already exists", c.ID)
		}
		if err := r.InsertContract(ctx, c); err != nil {
			return err
		}
		return e.appendEvent(ctx, tx, events.ContractCreated, "contract", c.ID, actorID, events.EventPayload{
			"advertiser":     c.Advertiser,
			"required_hours": c.RequiredHours,
		})
	})
	if err != nil {
		return domain.BrandingContract{}, err
	}
	return c, nil
}

// AssignBranding wraps a train in a contract's livery. A zero date means today.
func (e Engine) AssignBranding(ctx context.Context, trainID, contractID string, assignedOn time.Time, actorID string) (domain.Assignment, error) {
	if trainID == "" || contractID == "" {
		return domain.Assignment{}, invalid("train and contract are required")
	}
	if assignedOn.IsZero() {
		assignedOn = e.now()
	}
	defer e.lock(trainKey(trainID))()
	var out domain.Assignment
	err := e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		if _, err := r.GetTrain(ctx, trainID); err != nil {
			return err
		}
		c, err := r.GetContract(ctx, contractID)
		if err != nil {
			return err
		}
		if c.Status != domain.ContractActive {
			return conflict("contract %s is %s", contractID, c.Status)
		}
		existing, err := r.ActiveAssignmentsForTrain(ctx, trainID)
		if err != nil {
			return err
		}
		for _, a := range existing {
			if a.ContractID == contractID {
				return conflict("train %s already carries contract %s", trainID, contractID)
			}
		}
		out = domain.Assignment{
			ID:             newID("BA"),
			TrainID:        trainID,
			ContractID:     contractID,
			AssignmentDate: domain.Day(assignedOn),
			Status:         domain.AssignmentActive,
			Contract:       c,
		}
		if err := r.InsertAssignment(ctx, out); err != nil {
			return err
		}
		return e.appendEvent(ctx, tx, events.BrandingAssigned, "assignment", out.ID, actorID, events.EventPayload{
			"train_id":    trainID,
			"contract_id": contractID,
		})
	})
	if err != nil {
		return domain.Assignment{}, err
	}
	return out, nil
}

// SetAssignmentStatus pauses, resumes, completes or removes an assignment.
// Removed is terminal.
func (e Engine) SetAssignmentStatus(ctx context.Context, id string, status domain.AssignmentStatus, actorID string) (domain.Assignment, error) {
	switch status {
	case domain.AssignmentActive, domain.AssignmentPaused, domain.AssignmentCompleted, domain.AssignmentRemoved:
	default:
		return domain.Assignment{}, invalid("unknown assignment status %s", status)
	}
	current, err := e.Repo.GetAssignment(ctx, id)
	if err != nil {
		return domain.Assignment{}, err
	}
	defer e.lock(trainKey(current.TrainID))()
	var out domain.Assignment
	err = e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		a, err := r.GetAssignment(ctx, id)
		if err != nil {
			return err
		}
		out = a
		if a.Status == status {
			return nil
		}
		if a.Status == domain.AssignmentRemoved {
			return conflict("assignment %s was removed", id)
		}
		old := a.Status
		a.Status = status
		if err := r.SaveAssignment(ctx, a); err != nil {
			return err
		}
		out = a
		return e.appendEvent(ctx, tx, events.BrandingStatusChanged, "assignment", a.ID, actorID, events.EventPayload{
			"from": old,
			"to":   status,
		})
	})
	return out, err
}

func (e Engine) ContractReport(ctx context.Context, contractID string) (priority.ContractReport, error) {
	c, err := e.Repo.GetContract(ctx, contractID)
	if err != nil {
		return priority.ContractReport{}, err
	}
	assignments, err := e.Repo.AssignmentsForContract(ctx, contractID)
	if err != nil {
		return priority.ContractReport{}, err
	}
	return priority.Report(c, assignments, e.Config.Priority.AtRiskThreshold), nil
}

// ContractsAtRisk reports active, current contracts below the at-risk threshold,
// least complete first.
func (e Engine) ContractsAtRisk(ctx context.Context) ([]priority.ContractReport, error) {
	contracts, err := e.Repo.ListContracts(ctx)
	if err != nil {
		return nil, err
	}
	today := e.now()
	out := []priority.ContractReport{}
	for _, c := range contracts {
		if c.Status != domain.ContractActive || !c.Current(today) {
			continue
		}
		rep, err := e.ContractReport(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		if rep.AtRisk {
			out = append(out, rep)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CompletionPercent < out[j].CompletionPercent
	})
	return out, nil
}
