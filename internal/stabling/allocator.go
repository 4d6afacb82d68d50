// Package stabling ranks available bays by shunting cost and applies bay occupancy transitions.
package stabling

import (
	"fmt"
	"sort"
	"time"

	"depotplan/internal/domain"
	"depotplan/internal/readiness"
)

// TotalVariant selects how TotalShuntingMoves is summed.
type TotalVariant string

const (
	// TotalRanked sums shunting depth over every ranked bay.
	TotalRanked TotalVariant = "ranked"
	// TotalAssigned sums only the bays that would receive an eligible train.
	TotalAssigned TotalVariant = "assigned"
)

func ParseTotalVariant(s string) (TotalVariant, error) {
	switch TotalVariant(s) {
	case "", TotalRanked:
		return TotalRanked, nil
	case TotalAssigned:
		return TotalAssigned, nil
	}
	return "", fmt.Errorf("unknown shunting total %q: %w", s, domain.ErrInvalidInput)
}

type Options struct {
	Total TotalVariant
	Pair  bool
}

// Candidate is a train eligible for stabling together with its ordering keys.
type Candidate struct {
	TrainID        string  `json:"train_id"`
	MileageBalance float64 `json:"mileage_balance"`
	PriorityScore  int     `json:"priority_score"`
}

type Pairing struct {
	TrainID       string `json:"train_id"`
	BayID         string `json:"bay_id"`
	ShuntingDepth int    `json:"shunting_depth"`
}

type Plan struct {
	AvailableBays         int                  `json:"available_bays"`
	EligibleTrains        int                  `json:"eligible_trains"`
	CanAccommodate        bool                 `json:"can_accommodate"`
	RankedBays            []domain.StablingBay `json:"ranked_bays"`
	TotalShuntingMoves    int                  `json:"total_shunting_moves"`
	RankedShuntingMoves   int                  `json:"ranked_shunting_moves"`
	AssignedShuntingMoves int                  `json:"assigned_shunting_moves"`
	Variant               TotalVariant         `json:"variant"`
	Pairings              []Pairing            `json:"pairings,omitempty"`
}

// Eligible reports whether a train may be stabled: ACTIVE with no open work orders.
func Eligible(t domain.Train, orders []domain.WorkOrder) bool {
	return t.Status == domain.TrainActive && !readiness.HasOpenWork(orders)
}

// Allocate ranks AVAILABLE bays by shunting depth and optionally pairs trains to them.
// Input slices are not modified.
func Allocate(bays []domain.StablingBay, candidates []Candidate, opts Options) Plan {
	ranked := make([]domain.StablingBay, 0, len(bays))
	for _, b := range bays {
		if b.Status == domain.BayAvailable {
			ranked = append(ranked, b)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Depth() < ranked[j].Depth() })

	variant := opts.Total
	if variant == "" {
		variant = TotalRanked
	}
	plan := Plan{
		AvailableBays:  len(ranked),
		EligibleTrains: len(candidates),
		CanAccommodate: len(ranked) >= len(candidates),
		RankedBays:     ranked,
		Variant:        variant,
	}
	matched := min(len(ranked), len(candidates))
	for i, b := range ranked {
		plan.RankedShuntingMoves += b.Depth()
		if i < matched {
			plan.AssignedShuntingMoves += b.Depth()
		}
	}
	plan.TotalShuntingMoves = plan.RankedShuntingMoves
	if variant == TotalAssigned {
		plan.TotalShuntingMoves = plan.AssignedShuntingMoves
	}

	if opts.Pair && matched > 0 {
		order := RankCandidates(candidates)
		plan.Pairings = make([]Pairing, 0, matched)
		for i := 0; i < matched; i++ {
			plan.Pairings = append(plan.Pairings, Pairing{
				TrainID:       order[i].TrainID,
				BayID:         ranked[i].ID,
				ShuntingDepth: ranked[i].Depth(),
			})
		}
	}
	return plan
}

// RankCandidates orders trains most mileage-urgent first (smallest remaining balance),
// then by priority score descending, then by train id.
func RankCandidates(candidates []Candidate) []Candidate {
	out := append([]Candidate(nil), candidates...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.MileageBalance != b.MileageBalance {
			return a.MileageBalance < b.MileageBalance
		}
		if a.PriorityScore != b.PriorityScore {
			return a.PriorityScore > b.PriorityScore
		}
		return a.TrainID < b.TrainID
	})
	return out
}

// Assign places trainID in the bay. Only AVAILABLE bays accept a train; assigning
// the current occupant again is a no-op.
func Assign(b domain.StablingBay, trainID string, reservedUntil *time.Time) (domain.StablingBay, error) {
	if trainID == "" {
		return b, fmt.Errorf("train id is required: %w", domain.ErrInvalidInput)
	}
	if b.Status == domain.BayOccupied && b.TrainID != nil && *b.TrainID == trainID {
		return b, nil
	}
	if b.Status != domain.BayAvailable {
		return b, fmt.Errorf("bay %s is %s: %w", b.ID, b.Status, domain.ErrConflict)
	}
	out := b
	id := trainID
	out.Status = domain.BayOccupied
	out.TrainID = &id
	out.ReservedUntil = reservedUntil
	return out, nil
}

// Release frees the bay whatever its prior state.
func Release(b domain.StablingBay) domain.StablingBay {
	b.Status = domain.BayAvailable
	b.TrainID = nil
	b.ReservedUntil = nil
	return b
}
