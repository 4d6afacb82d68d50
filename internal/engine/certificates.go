package engine

import (
	"context"
	"database/sql"

	"depotplan/internal/domain"
	"depotplan/internal/events"
	"depotplan/internal/readiness"
	"depotplan/internal/repo"
)

func validCertDomain(d domain.CertDomain) bool {
	for _, known := range domain.CertDomains {
		if known == d {
			return true
		}
	}
	return false
}

// AddCertificate records a fitness certificate for one inspection domain.
func (e Engine) AddCertificate(ctx context.Context, c domain.CertificateRecord, actorID string) (domain.CertificateRecord, error) {
	if c.TrainID == "" {
		return domain.CertificateRecord{}, invalid("train is required")
	}
	if !validCertDomain(c.Domain) {
		return domain.CertificateRecord{}, invalid("unknown certificate domain %q", c.Domain)
	}
	if c.Status == "" {
		c.Status = domain.CertValid
	}
	switch c.Status {
	case domain.CertValid, domain.CertExpired, domain.CertRevoked:
	default:
		return domain.CertificateRecord{}, invalid("unknown certificate status %s", c.Status)
	}
	if c.IssueDate.IsZero() {
		c.IssueDate = domain.Day(e.now())
	}
	if c.ExpiryDate.IsZero() {
		return domain.CertificateRecord{}, invalid("expiry date is required")
	}
	c.IssueDate, c.ExpiryDate = domain.Day(c.IssueDate), domain.Day(c.ExpiryDate)
	if c.ExpiryDate.Before(c.IssueDate) {
		return domain.CertificateRecord{}, invalid("expiry %s before issue %s", c.ExpiryDate.Format(domain.DateLayout), c.IssueDate.Format(domain.DateLayout))
	}
	if c.ID == "" {
		c.ID = newID("CERT")
	}
	defer e.lock(trainKey(c.TrainID))()
	err := e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		if _, err := r.GetTrain(ctx, c.TrainID); err != nil {
			return err
		}
		if err := r.InsertCertificate(ctx, c); err != nil {
			return err
		}
		return e.appendEvent(ctx, tx, events.CertificateAdded, "certificate", c.ID, actorID, events.EventPayload{
			"train_id": c.TrainID,
			"domain":   c.Domain,
			"expiry":   c.ExpiryDate.Format(domain.DateLayout),
		})
	})
	if err != nil {
		return domain.CertificateRecord{}, err
	}
	return c, nil
}

// RevokeCertificate withdraws a certificate. Revoking twice is a no-op.
func (e Engine) RevokeCertificate(ctx context.Context, id, reason, actorID string) (domain.CertificateRecord, error) {
	current, err := e.Repo.GetCertificate(ctx, id)
	if err != nil {
		return domain.CertificateRecord{}, err
	}
	defer e.lock(trainKey(current.TrainID))()
	var out domain.CertificateRecord
	err = e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		c, err := r.GetCertificate(ctx, id)
		if err != nil {
			return err
		}
		out = c
		if c.Status == domain.CertRevoked {
			return nil
		}
		old := c.Status
		c.Status = domain.CertRevoked
		if err := r.SaveCertificate(ctx, c); err != nil {
			return err
		}
		out = c
		return e.appendEvent(ctx, tx, events.CertificateRevoked, "certificate", c.ID, actorID, events.EventPayload{
			"train_id": c.TrainID,
			"from":     old,
			"reason":   reason,
		})
	})
	return out, err
}

// ExpireCertificates flips VALID records whose expiry date has passed.
func (e Engine) ExpireCertificates(ctx context.Context, actorID string) ([]string, error) {
	var ids []string
	err := e.inTx(ctx, func(tx *sql.Tx, r repo.Repo) error {
		var err error
		ids, err = r.ExpireCertificates(ctx, domain.Day(e.now()))
		if err != nil || len(ids) == 0 {
			return err
		}
		return e.appendEvent(ctx, tx, events.CertificatesExpired, "certificate", "", actorID, events.EventPayload{
			"ids": ids,
		})
	})
	if err != nil {
		return nil, err
	}
	if len(ids) > 0 {
		e.Log.Info().Int("count", len(ids)).Msg("certificates expired")
	}
	return ids, nil
}

// ExpiringCertificates lists valid certificates expiring within days, or the
// configured window when days is not positive.
func (e Engine) ExpiringCertificates(ctx context.Context, days int) ([]domain.CertificateRecord, error) {
	if days <= 0 {
		days = e.Config.Certification.ExpiringWindowDays
	}
	today := domain.Day(e.now())
	return e.Repo.ExpiringCertificates(ctx, today, today.AddDate(0, 0, days))
}

func (e Engine) CertificationStatus(ctx context.Context, trainID string) (readiness.CertificationReport, error) {
	if _, err := e.Repo.GetTrain(ctx, trainID); err != nil {
		return readiness.CertificationReport{}, err
	}
	certs, err := e.Repo.CertificatesForTrain(ctx, trainID)
	if err != nil {
		return readiness.CertificationReport{}, err
	}
	return readiness.Certification(trainID, certs, e.Config.ReadinessPolicy().RequiredDomains, e.now()), nil
}
