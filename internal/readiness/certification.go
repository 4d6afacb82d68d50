package readiness

import (
	"time"

	"depotplan/internal/domain"
)

type CertificationLevel string

const (
	FullyCertified     CertificationLevel = "FULLY_CERTIFIED"
	PartiallyCertified CertificationLevel = "PARTIALLY_CERTIFIED"
	NotCertified       CertificationLevel = "NOT_CERTIFIED"
)

type CertificationReport struct {
	TrainID        string              `json:"train_id"`
	Level          CertificationLevel  `json:"level"`
	ValidDomains   []domain.CertDomain `json:"valid_domains"`
	MissingDomains []domain.CertDomain `json:"missing_domains"`
}

// Certification grades how many expected domains hold a valid record on now.
// An empty domain list means all known domains.
func Certification(trainID string, certs []domain.CertificateRecord, domains []domain.CertDomain, now time.Time) CertificationReport {
	if len(domains) == 0 {
		domains = domain.CertDomains
	}
	valid := map[domain.CertDomain]bool{}
	for _, c := range certs {
		if c.ValidOn(now) {
			valid[c.Domain] = true
		}
	}
	rep := CertificationReport{TrainID: trainID, ValidDomains: []domain.CertDomain{}, MissingDomains: []domain.CertDomain{}}
	for _, d := range domains {
		if valid[d] {
			rep.ValidDomains = append(rep.ValidDomains, d)
		} else {
			rep.MissingDomains = append(rep.MissingDomains, d)
		}
	}
	switch {
	case len(rep.MissingDomains) == 0:
		rep.Level = FullyCertified
	case len(rep.ValidDomains) > 0:
		rep.Level = PartiallyCertified
	default:
		rep.Level = NotCertified
	}
	return rep
}
