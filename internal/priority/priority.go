// Package priority orders ready trains for dispatch.
package priority

import (
	"math"
	"time"

	"depotplan/internal/domain"
	"depotplan/internal/readiness"
)

const (
	BaseScore = 100

	highBrandingBonus   = 50
	mediumBrandingBonus = 25

	wideMileageBonus   = 20
	narrowMileageBonus = 10
	lowMileagePenalty  = -10

	cleaningBonus = 10

	wideMileageBalance   = 2000.0
	narrowMileageBalance = 1000.0
	recentCleaningHours  = 12.0
)

// DefaultAtRiskThreshold is the completion ratio below which a contract is at risk.
const DefaultAtRiskThreshold = 0.8

type Urgency int

const (
	UrgencyLow Urgency = iota
	UrgencyMedium
	UrgencyHigh
)

func (u Urgency) String() string {
	switch u {
	case UrgencyHigh:
		return "HIGH"
	case UrgencyMedium:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

func (u Urgency) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

type Policy struct {
	AtRiskThreshold float64
}

func DefaultPolicy() Policy { return Policy{AtRiskThreshold: DefaultAtRiskThreshold} }

type Result struct {
	TrainID            string   `json:"train_id"`
	Score              int      `json:"score"`
	Urgency            Urgency  `json:"branding_urgency"`
	MileageBalance     float64  `json:"mileage_balance"`
	HoursSinceCleaning *float64 `json:"hours_since_cleaning,omitempty"`
}

// Score computes the advisory dispatch priority of a train.
func Score(t domain.Train, assignments []domain.Assignment, now time.Time, p Policy) Result {
	res := Result{TrainID: t.ID, Score: BaseScore}

	res.Urgency = BrandingUrgency(assignments, now, p.AtRiskThreshold)
	switch res.Urgency {
	case UrgencyHigh:
		res.Score += highBrandingBonus
	case UrgencyMedium:
		res.Score += mediumBrandingBonus
	}

	res.MileageBalance = readiness.MileageBalance(t)
	switch {
	case res.MileageBalance > wideMileageBalance:
		res.Score += wideMileageBonus
	case res.MileageBalance > narrowMileageBalance:
		res.Score += narrowMileageBonus
	default:
		res.Score += lowMileagePenalty
	}

	if t.LastCleaning != nil {
		hours := now.Sub(*t.LastCleaning).Hours()
		res.HoursSinceCleaning = &hours
		if hours < recentCleaningHours {
			res.Score += cleaningBonus
		}
	}
	return res
}

// BrandingUrgency classifies the active, date-current assignments of a train.
func BrandingUrgency(assignments []domain.Assignment, now time.Time, threshold float64) Urgency {
	if threshold <= 0 {
		threshold = DefaultAtRiskThreshold
	}
	current := 0
	for _, a := range assignments {
		if a.Status != domain.AssignmentActive || !a.Contract.Current(now) {
			continue
		}
		if Completion(a) < threshold {
			return UrgencyHigh
		}
		current++
	}
	if current > 0 {
		return UrgencyMedium
	}
	return UrgencyLow
}

// Completion is the exposed share of the contract's required hours.
// A contract that requires no hours counts as complete.
func Completion(a domain.Assignment) float64 {
	return CompletionRatio(a.TotalHoursExposed, a.Contract.RequiredHours)
}

func CompletionRatio(exposed, required int) float64 {
	if required <= 0 {
		return 1
	}
	return float64(exposed) / float64(required)
}

// Utilization is the percentage of the maintenance interval already consumed.
func Utilization(t domain.Train) float64 {
	if t.MaintenanceInterval <= 0 {
		return 0
	}
	used := t.MaintenanceInterval - readiness.MileageBalance(t)
	return math.Round(used/t.MaintenanceInterval*10000) / 100
}
