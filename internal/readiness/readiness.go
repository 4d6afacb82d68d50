// Package readiness decides whether a single train may enter revenue service.
//
// Evaluate is a pure function of its inputs. Callers gather the train's work
// orders and certificate records from their ledgers and may evaluate many
// trains concurrently.
package readiness

import (
	"time"

	"depotplan/internal/domain"
)

// Policy tunes the certificate and cleaning predicates.
type Policy struct {
	// AllowUncertified treats a train with zero certificate records as certified.
	AllowUncertified bool
	// RequiredDomains must each hold a valid record. Empty disables the coverage check.
	RequiredDomains []domain.CertDomain
	// DefaultCleaningPeriod applies when a train has no cleaning period of its own.
	DefaultCleaningPeriod time.Duration
}

// DefaultPolicy keeps the zero-record escape hatch and requires all three domains.
func DefaultPolicy() Policy {
	return Policy{
		AllowUncertified:      true,
		RequiredDomains:       append([]domain.CertDomain(nil), domain.CertDomains...),
		DefaultCleaningPeriod: 24 * time.Hour,
	}
}

type Input struct {
	Train        domain.Train
	WorkOrders   []domain.WorkOrder
	Certificates []domain.CertificateRecord
}

type Verdict struct {
	TrainID        string    `json:"train_id"`
	Ready          bool      `json:"ready"`
	Reasons        ReasonSet `json:"reasons"`
	MileageBalance float64   `json:"mileage_balance"`
}

// Message renders the verdict reasons.
func (v Verdict) Message() string { return Describe(v.Reasons) }

func Evaluate(in Input, p Policy, now time.Time) Verdict {
	var reasons ReasonSet
	if HasOpenWork(in.WorkOrders) {
		reasons = reasons.With(OpenWork)
	}
	if CertificatesInvalid(in.Certificates, p, now) {
		reasons = reasons.With(InvalidCertificate)
	}
	if IsMaintenanceDue(in.Train) {
		reasons = reasons.With(MaintenanceDue)
	}
	if IsCleaningDue(in.Train, p.DefaultCleaningPeriod, now) {
		reasons = reasons.With(CleaningDue)
	}
	return Verdict{
		TrainID:        in.Train.ID,
		Ready:          reasons.Empty(),
		Reasons:        reasons,
		MileageBalance: MileageBalance(in.Train),
	}
}

// HasOpenWork reports whether any work order is not CLOSED.
func HasOpenWork(orders []domain.WorkOrder) bool {
	for _, w := range orders {
		if w.Open() {
			return true
		}
	}
	return false
}

// CertificatesInvalid applies the record check and, when configured, the domain coverage check.
func CertificatesInvalid(certs []domain.CertificateRecord, p Policy, now time.Time) bool {
	if len(certs) == 0 {
		return !p.AllowUncertified
	}
	covered := make(map[domain.CertDomain]bool, len(certs))
	for _, c := range certs {
		if !c.ValidOn(now) {
			return true
		}
		covered[c.Domain] = true
	}
	for _, d := range p.RequiredDomains {
		if !covered[d] {
			return true
		}
	}
	return false
}

// IsMaintenanceDue reports whether distance since the last maintenance reached the interval.
func IsMaintenanceDue(t domain.Train) bool {
	if t.CurrentOdometer == nil || t.OdometerAtLastMaintenance == nil {
		return false
	}
	return *t.CurrentOdometer-*t.OdometerAtLastMaintenance >= t.MaintenanceInterval
}

// IsCleaningDue reports whether the cleaning period has elapsed or the train was never cleaned.
func IsCleaningDue(t domain.Train, fallback time.Duration, now time.Time) bool {
	if t.LastCleaning == nil {
		return true
	}
	period := time.Duration(t.CleaningPeriodHours) * time.Hour
	if period <= 0 {
		period = fallback
	}
	return !now.Before(t.LastCleaning.Add(period))
}

// MileageBalance is the distance left before maintenance, floored at zero.
// Unknown odometer readings give zero.
func MileageBalance(t domain.Train) float64 {
	if t.CurrentOdometer == nil || t.OdometerAtLastMaintenance == nil {
		return 0
	}
	balance := t.MaintenanceInterval - (*t.CurrentOdometer - *t.OdometerAtLastMaintenance)
	if balance < 0 {
		return 0
	}
	return balance
}
