package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"depotplan/internal/domain"
	"depotplan/internal/events"
	"depotplan/internal/readiness"
	"depotplan/internal/repo"
)

// ScheduleCleaning books a slot on day for every active train that is due for
// cleaning and has nothing pending. Teams are assigned round-robin.
func (e Engine) ScheduleCleaning(ctx context.Context, day time.Time, actorID string) ([]domain.CleaningTask, error) {
	cfg := e.Config.Cleaning
	if len(cfg.Teams) == 0 {
		return nil, invalid("no cleaning teams configured")
	}
	day = domain.Day(day)
	start := day.Add(time.Duration(cfg.StartHour) * time.Hour)
	slot := time.Duration(cfg.DurationHours) * time.Hour
	fallback := e.Config.ReadinessPolicy().DefaultCleaningPeriod
	now := e.now()

	out := []domain.CleaningTask{}
	err := e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		trains, err := r.TrainsByStatus(ctx, domain.TrainActive)
		if err != nil {
			return err
		}
		for _, t := range trains {
			if !readiness.IsCleaningDue(t, fallback, now) {
				continue
			}
			pending, err := r.PendingCleaningForTrain(ctx, t.ID)
			if err != nil {
				return err
			}
			if len(pending) > 0 {
				continue
			}
			task := domain.CleaningTask{
				ID:             fmt.Sprintf("CLN-%s-%s", day.Format("20060102"), strings.ToUpper(uuid.NewString()[:8])),
				TrainID:        t.ID,
				Type:           domain.CleaningDaily,
				Status:         domain.CleaningScheduled,
				Team:           cfg.Teams[len(out)%len(cfg.Teams)],
				ScheduledStart: start,
				ScheduledEnd:   start.Add(slot),
			}
			if err := r.InsertCleaningTask(ctx, task); err != nil {
				return err
			}
			if err := e.appendEvent(ctx, tx, events.CleaningScheduled, "cleaning", task.ID, actorID, events.EventPayload{
				"train_id": t.ID,
				"team":     task.Team,
			}); err != nil {
				return err
			}
			out = append(out, task)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.Log.Info().Str("date", day.Format(domain.DateLayout)).Int("tasks", len(out)).Msg("cleaning scheduled")
	return out, nil
}

// CompleteCleaning closes a pending task and stamps the train's last cleaning.
func (e Engine) CompleteCleaning(ctx context.Context, id, remarks, actorID string) (domain.CleaningTask, error) {
	current, err := e.Repo.GetCleaningTask(ctx, id)
	if err != nil {
		return domain.CleaningTask{}, err
	}
	defer e.lock(trainKey(current.TrainID))()
	var out domain.CleaningTask
	err = e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		task, err := r.GetCleaningTask(ctx, id)
		if err != nil {
			return err
		}
		if task.Status != domain.CleaningScheduled && task.Status != domain.CleaningInProgress {
			return conflict("cleaning task %s is %s", id, task.Status)
		}
		now := e.now()
		task.Status = domain.CleaningCompleted
		task.ActualEnd = &now
		if remarks != "" {
			task.Remarks = remarks
		}
		if err := r.SaveCleaningTask(ctx, task); err != nil {
			return err
		}
		t, err := r.GetTrain(ctx, task.TrainID)
		if err != nil {
			return err
		}
		t.LastCleaning = &now
		t.UpdatedAt = now
		if err := r.SaveTrain(ctx, t); err != nil {
			return err
		}
		out = task
		return e.appendEvent(ctx, tx, events.CleaningCompleted, "cleaning", task.ID, actorID, events.EventPayload{
			"train_id": task.TrainID,
		})
	})
	return out, err
}

// CleaningSchedule lists tasks starting on day.
func (e Engine) CleaningSchedule(ctx context.Context, day time.Time) ([]domain.CleaningTask, error) {
	from := domain.Day(day)
	return e.Repo.CleaningTasksBetween(ctx, from, from.AddDate(0, 0, 1))
}
