package engine

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"depotplan/internal/domain"
	"depotplan/internal/priority"
	"depotplan/internal/readiness"
	"depotplan/internal/repo"
	"depotplan/internal/stabling"
)

const defaultWorkers = 4

// TrainStatus is the per-train view assembled by a fleet sweep.
type TrainStatus struct {
	Train          domain.Train                 `json:"train"`
	Readiness      readiness.Verdict            `json:"readiness"`
	Message        string                       `json:"message"`
	Priority       priority.Result              `json:"priority"`
	Certification  readiness.CertificationLevel `json:"certification"`
	OpenWorkOrders int                          `json:"open_work_orders"`
	Utilization    float64                      `json:"utilization"`
	Stabling       bool                         `json:"stabling_eligible"`
	Bay            string                       `json:"bay,omitempty"`
}

// InductionPlan is the nightly recommendation for the depot.
type InductionPlan struct {
	Depot                 string        `json:"depot"`
	GeneratedAt           time.Time     `json:"generated_at"`
	TotalTrains           int           `json:"total_trains"`
	ReadyTrains           int           `json:"ready_trains"`
	InMaintenance         int           `json:"in_maintenance"`
	BlockedTrains         int           `json:"blocked_trains"`
	AverageScore          float64       `json:"average_score"`
	AverageMileageBalance float64       `json:"average_mileage_balance"`
	Recommended           []TrainStatus `json:"recommended"`
	Blocked               []TrainStatus `json:"blocked"`
	CleaningDue           []string      `json:"cleaning_due"`
	Stabling              stabling.Plan `json:"stabling"`
}

func (e Engine) workers() int {
	if e.Config != nil && e.Config.Planning.Workers > 0 {
		return e.Config.Planning.Workers
	}
	return defaultWorkers
}

// Readiness evaluates a single train against its current ledgers.
func (e Engine) Readiness(ctx context.Context, trainID string) (TrainStatus, error) {
	t, err := e.Repo.GetTrain(ctx, trainID)
	if err != nil {
		return TrainStatus{}, err
	}
	bays, err := e.bayIndex(ctx)
	if err != nil {
		return TrainStatus{}, err
	}
	return e.evaluate(ctx, e.Repo, t, bays, e.now())
}

func (e Engine) evaluate(ctx context.Context, r repo.Repo, t domain.Train, bays map[string]string, now time.Time) (TrainStatus, error) {
	orders, err := r.WorkOrdersForTrain(ctx, t.ID)
	if err != nil {
		return TrainStatus{}, err
	}
	certs, err := r.CertificatesForTrain(ctx, t.ID)
	if err != nil {
		return TrainStatus{}, err
	}
	assignments, err := r.ActiveAssignmentsForTrain(ctx, t.ID)
	if err != nil {
		return TrainStatus{}, err
	}
	policy := e.Config.ReadinessPolicy()
	v := readiness.Evaluate(readiness.Input{Train: t, WorkOrders: orders, Certificates: certs}, policy, now)
	st := TrainStatus{
		Train:         t,
		Readiness:     v,
		Message:       v.Message(),
		Priority:      priority.Score(t, assignments, now, e.Config.PriorityPolicy()),
		Certification: readiness.Certification(t.ID, certs, policy.RequiredDomains, now).Level,
		Utilization:   priority.Utilization(t),
		Stabling:      stabling.Eligible(t, orders),
		Bay:           bays[t.ID],
	}
	for _, w := range orders {
		if w.Open() {
			st.OpenWorkOrders++
		}
	}
	return st, nil
}

func (e Engine) bayIndex(ctx context.Context) (map[string]string, error) {
	bays, err := e.Repo.ListBays(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(bays))
	for _, b := range bays {
		if b.TrainID != nil {
			out[*b.TrainID] = b.ID
		}
	}
	return out, nil
}

// Sweep evaluates every registered train concurrently. Results keep the
// registry's id order.
func (e Engine) Sweep(ctx context.Context) ([]TrainStatus, error) {
	trains, err := e.Repo.ListTrains(ctx)
	if err != nil {
		return nil, err
	}
	bays, err := e.bayIndex(ctx)
	if err != nil {
		return nil, err
	}
	now := e.now()
	out := make([]TrainStatus, len(trains))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers())
	for i, t := range trains {
		g.Go(func() error {
			st, err := e.evaluate(gctx, e.Repo, t, bays, now)
			if err != nil {
				return err
			}
			out[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Plan sweeps the fleet and assembles the induction recommendation. It does
// not write to any ledger.
func (e Engine) Plan(ctx context.Context) (InductionPlan, error) {
	started := time.Now()
	statuses, err := e.Sweep(ctx)
	if err != nil {
		return InductionPlan{}, err
	}
	plan := InductionPlan{
		Depot:       e.Config.Depot.Name,
		GeneratedAt: e.now(),
		TotalTrains: len(statuses),
		Recommended: []TrainStatus{},
		Blocked:     []TrainStatus{},
		CleaningDue: []string{},
	}
	var (
		scores, balances []float64
		candidates       []stabling.Candidate
		blockedReasons   []string
	)
	for _, st := range statuses {
		if st.Train.Status == domain.TrainMaintenance {
			plan.InMaintenance++
		}
		if st.Readiness.Reasons.Has(readiness.CleaningDue) {
			plan.CleaningDue = append(plan.CleaningDue, st.Train.ID)
		}
		if st.Stabling {
			candidates = append(candidates, stabling.Candidate{
				TrainID:        st.Train.ID,
				MileageBalance: st.Readiness.MileageBalance,
				PriorityScore:  st.Priority.Score,
			})
		}
		if st.Train.Status == domain.TrainDecommissioned {
			continue
		}
		balances = append(balances, st.Readiness.MileageBalance)
		if st.Readiness.Ready && st.Train.Status == domain.TrainActive {
			plan.ReadyTrains++
			plan.Recommended = append(plan.Recommended, st)
			scores = append(scores, float64(st.Priority.Score))
			continue
		}
		plan.BlockedTrains++
		plan.Blocked = append(plan.Blocked, st)
		blockedReasons = append(blockedReasons, st.Readiness.Reasons.Strings()...)
	}
	sort.SliceStable(plan.Recommended, func(i, j int) bool {
		a, b := plan.Recommended[i].Priority, plan.Recommended[j].Priority
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.TrainID < b.TrainID
	})
	if len(scores) > 0 {
		plan.AverageScore = stat.Mean(scores, nil)
	}
	if len(balances) > 0 {
		plan.AverageMileageBalance = stat.Mean(balances, nil)
	}

	bays, err := e.Repo.AvailableBays(ctx)
	if err != nil {
		return InductionPlan{}, err
	}
	plan.Stabling = stabling.Allocate(bays, candidates, e.Config.StablingOptions())

	took := time.Since(started)
	e.Metrics.ObserveSweep(took, plan.ReadyTrains, blockedReasons)
	e.Log.Info().
		Int("trains", plan.TotalTrains).
		Int("ready", plan.ReadyTrains).
		Int("blocked", plan.BlockedTrains).
		Dur("took", took).
		Msg("induction plan generated")
	return plan, nil
}

// StablingPlan ranks available bays against the trains currently eligible for stabling.
func (e Engine) StablingPlan(ctx context.Context) (stabling.Plan, error) {
	statuses, err := e.Sweep(ctx)
	if err != nil {
		return stabling.Plan{}, err
	}
	var candidates []stabling.Candidate
	for _, st := range statuses {
		if st.Stabling {
			candidates = append(candidates, stabling.Candidate{
				TrainID:        st.Train.ID,
				MileageBalance: st.Readiness.MileageBalance,
				PriorityScore:  st.Priority.Score,
			})
		}
	}
	bays, err := e.Repo.AvailableBays(ctx)
	if err != nil {
		return stabling.Plan{}, err
	}
	return stabling.Allocate(bays, candidates, e.Config.StablingOptions()), nil
}
