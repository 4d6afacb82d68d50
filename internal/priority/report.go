package priority

import (
	"math"

	"depotplan/internal/domain"
)

// ContractReport summarises exposure progress for one branding contract.
type ContractReport struct {
	ContractID          string  `json:"contract_id"`
	Advertiser          string  `json:"advertiser"`
	RequiredHours       int     `json:"required_hours"`
	TotalHoursExposed   int     `json:"total_hours_exposed"`
	TotalMileageExposed float64 `json:"total_mileage_exposed"`
	CompletionPercent   float64 `json:"completion_percent"`
	RemainingHours      int     `json:"remaining_hours"`
	AtRisk              bool    `json:"at_risk"`
	Trains              int     `json:"trains"`
}

// Report folds every non-removed assignment of a contract into one summary.
func Report(c domain.BrandingContract, assignments []domain.Assignment, threshold float64) ContractReport {
	if threshold <= 0 {
		threshold = DefaultAtRiskThreshold
	}
	r := ContractReport{ContractID: c.ID, Advertiser: c.Advertiser, RequiredHours: c.RequiredHours}
	for _, a := range assignments {
		if a.ContractID != c.ID || a.Status == domain.AssignmentRemoved {
			continue
		}
		r.TotalHoursExposed += a.TotalHoursExposed
		r.TotalMileageExposed += a.TotalMileageExposed
		r.Trains++
	}
	ratio := CompletionRatio(r.TotalHoursExposed, c.RequiredHours)
	r.CompletionPercent = math.Round(ratio*10000) / 100
	r.AtRisk = ratio < threshold
	if rem := c.RequiredHours - r.TotalHoursExposed; rem > 0 {
		r.RemainingHours = rem
	}
	return r
}
