package priority

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"depotplan/internal/domain"
)

var now = time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

func f(v float64) *float64 { return &v }

func contract(required int) domain.BrandingContract {
	return domain.BrandingContract{
		ID:            "C-1",
		Advertiser:    "Acme",
		StartDate:     domain.Day(now).AddDate(0, -1, 0),
		EndDate:       domain.Day(now).AddDate(0, 1, 0),
		RequiredHours: required,
		Status:        domain.ContractActive,
	}
}

func assignment(exposed, required int) domain.Assignment {
	return domain.Assignment{
		ID:                "A-1",
		TrainID:           "T-01",
		ContractID:        "C-1",
		AssignmentDate:    domain.Day(now).AddDate(0, -1, 0),
		TotalHoursExposed: exposed,
		Status:            domain.AssignmentActive,
		Contract:          contract(required),
	}
}

func trainWithBalance(balance float64) domain.Train {
	return domain.Train{
		ID:                        "T-01",
		Status:                    domain.TrainActive,
		OdometerAtLastMaintenance: f(10000),
		CurrentOdometer:           f(10000 + 3500 - balance),
		MaintenanceInterval:       3500,
	}
}

func TestCompletionAtRiskExample(t *testing.T) {
	a := assignment(70, 100)
	assert.InDelta(t, 0.70, Completion(a), 1e-9)
	assert.Equal(t, UrgencyHigh, BrandingUrgency([]domain.Assignment{a}, now, DefaultAtRiskThreshold))
}

func TestCompletionZeroRequiredIsComplete(t *testing.T) {
	a := assignment(0, 0)
	assert.Equal(t, 1.0, Completion(a))
	assert.Equal(t, UrgencyMedium, BrandingUrgency([]domain.Assignment{a}, now, DefaultAtRiskThreshold))
}

func TestBrandingUrgencyIgnoresInactiveAndOutOfWindow(t *testing.T) {
	paused := assignment(10, 100)
	paused.Status = domain.AssignmentPaused
	expired := assignment(10, 100)
	expired.Contract.EndDate = domain.Day(now).AddDate(0, 0, -1)
	future := assignment(10, 100)
	future.Contract.StartDate = domain.Day(now).AddDate(0, 0, 1)
	assert.Equal(t, UrgencyLow, BrandingUrgency([]domain.Assignment{paused, expired, future}, now, 0.8))
	assert.Equal(t, UrgencyLow, BrandingUrgency(nil, now, 0.8))
}

func TestScoreComponents(t *testing.T) {
	cases := []struct {
		name        string
		balance     float64
		assignments []domain.Assignment
		cleanedAgo  time.Duration
		want        int
		urgency     Urgency
	}{
		{"wide balance no branding", 2500, nil, 0, 120, UrgencyLow},
		{"narrow balance medium branding", 1500, []domain.Assignment{assignment(90, 100)}, 0, 135, UrgencyMedium},
		{"low balance high branding recent clean", 500, []domain.Assignment{assignment(10, 100)}, 3 * time.Hour, 150, UrgencyHigh},
		{"exact 2000 is narrow", 2000, nil, 0, 110, UrgencyLow},
		{"exact 1000 is low", 1000, nil, 0, 90, UrgencyLow},
		{"old cleaning no bonus", 2500, nil, 13 * time.Hour, 120, UrgencyLow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := trainWithBalance(tc.balance)
			if tc.cleanedAgo > 0 {
				c := now.Add(-tc.cleanedAgo)
				tr.LastCleaning = &c
			}
			res := Score(tr, tc.assignments, now, DefaultPolicy())
			assert.Equal(t, tc.want, res.Score)
			assert.Equal(t, tc.urgency, res.Urgency)
			assert.InDelta(t, tc.balance, res.MileageBalance, 1e-9)
		})
	}
}

func TestScoreUnknownOdometerPenalised(t *testing.T) {
	res := Score(domain.Train{ID: "T-9", MaintenanceInterval: 3500}, nil, now, DefaultPolicy())
	assert.Equal(t, 90, res.Score)
	assert.Nil(t, res.HoursSinceCleaning)
}

func TestUtilization(t *testing.T) {
	assert.Equal(t, 50.0, Utilization(trainWithBalance(1750)))
	assert.Equal(t, 100.0, Utilization(trainWithBalance(0)))
	assert.Equal(t, 0.0, Utilization(domain.Train{}))
}

func TestReport(t *testing.T) {
	c := contract(100)
	a1 := assignment(30, 100)
	a1.TotalMileageExposed = 120
	a2 := assignment(40, 100)
	a2.ID = "A-2"
	a2.TotalMileageExposed = 80
	removed := assignment(50, 100)
	removed.Status = domain.AssignmentRemoved
	r := Report(c, []domain.Assignment{a1, a2, removed}, 0.8)
	assert.Equal(t, 70, r.TotalHoursExposed)
	assert.Equal(t, 200.0, r.TotalMileageExposed)
	assert.Equal(t, 70.0, r.CompletionPercent)
	assert.Equal(t, 30, r.RemainingHours)
	assert.True(t, r.AtRisk)
	assert.Equal(t, 2, r.Trains)

	zero := Report(contract(0), nil, 0.8)
	assert.Equal(t, 100.0, zero.CompletionPercent)
	assert.False(t, zero.AtRisk)
}
