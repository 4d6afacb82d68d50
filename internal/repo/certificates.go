package repo

import (
	"context"
	"database/sql"
	"time"

	"depotplan/internal/domain"
)

const certificateColumns = `id,train_id,domain,number,issue_date,expiry_date,status,issued_by`

func scanCertificate(s scanner) (domain.CertificateRecord, error) {
	var c domain.CertificateRecord
	var number, issuedBy sql.NullString
	var issue, expiry string
	if err := s.Scan(&c.ID, &c.TrainID, &c.Domain, &number, &issue, &expiry, &c.Status, &issuedBy); err != nil {
		return c, err
	}
	c.Number = number.String
	c.IssuedBy = issuedBy.String
	var err error
	if c.IssueDate, err = parseDay(issue); err != nil {
		return c, err
	}
	if c.ExpiryDate, err = parseDay(expiry); err != nil {
		return c, err
	}
	return c, nil
}

func (r Repo) InsertCertificate(ctx context.Context, c domain.CertificateRecord) error {
	_, err := r.q().ExecContext(ctx, `INSERT INTO certificates(`+certificateColumns+`) VALUES (?,?,?,?,?,?,?,?)`,
		c.ID, c.TrainID, string(c.Domain), nullable(c.Number), formatDay(c.IssueDate), formatDay(c.ExpiryDate),
		string(c.Status), nullable(c.IssuedBy))
	return err
}

func (r Repo) GetCertificate(ctx context.Context, id string) (domain.CertificateRecord, error) {
	row := r.q().QueryRowContext(ctx, `SELECT `+certificateColumns+` FROM certificates WHERE id=?`, id)
	c, err := scanCertificate(row)
	if isNoRows(err) {
		return domain.CertificateRecord{}, notFound("certificate", id)
	}
	return c, err
}

func (r Repo) CertificatesForTrain(ctx context.Context, trainID string) ([]domain.CertificateRecord, error) {
	return r.queryCertificates(ctx, `SELECT `+certificateColumns+` FROM certificates WHERE train_id=? ORDER BY domain, expiry_date`, trainID)
}

func (r Repo) ListCertificates(ctx context.Context) ([]domain.CertificateRecord, error) {
	return r.queryCertificates(ctx, `SELECT `+certificateColumns+` FROM certificates ORDER BY train_id, domain`)
}

// AllCertificatesValid reports whether no record of the train is invalid on asOf.
// A train without records is reported valid.
func (r Repo) AllCertificatesValid(ctx context.Context, trainID string, asOf time.Time) (bool, error) {
	var bad int
	err := r.q().QueryRowContext(ctx, `SELECT COUNT(*) FROM certificates WHERE train_id=? AND (status<>? OR expiry_date<?)`,
		trainID, string(domain.CertValid), formatDay(asOf)).Scan(&bad)
	if err != nil {
		return false, err
	}
	return bad == 0, nil
}

// ExpiringCertificates lists VALID records expiring between from and until inclusive.
func (r Repo) ExpiringCertificates(ctx context.Context, from, until time.Time) ([]domain.CertificateRecord, error) {
	return r.queryCertificates(ctx, `SELECT `+certificateColumns+` FROM certificates WHERE status=? AND expiry_date>=? AND expiry_date<=? ORDER BY expiry_date, id`,
		string(domain.CertValid), formatDay(from), formatDay(until))
}

// ExpireCertificates flips VALID records that expired before today and returns their ids.
func (r Repo) ExpireCertificates(ctx context.Context, today time.Time) ([]string, error) {
	stale, err := r.queryCertificates(ctx, `SELECT `+certificateColumns+` FROM certificates WHERE status=? AND expiry_date<? ORDER BY id`,
		string(domain.CertValid), formatDay(today))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(stale))
	for _, c := range stale {
		ids = append(ids, c.ID)
	}
	if len(ids) == 0 {
		return ids, nil
	}
	args := []any{string(domain.CertExpired)}
	for _, id := range ids {
		args = append(args, id)
	}
	if _, err := r.q().ExecContext(ctx, `UPDATE certificates SET status=? WHERE id IN (`+placeholders(len(ids))+`)`, args...); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r Repo) SaveCertificate(ctx context.Context, c domain.CertificateRecord) error {
	res, err := r.q().ExecContext(ctx, `UPDATE certificates SET domain=?,number=?,issue_date=?,expiry_date=?,status=?,issued_by=? WHERE id=?`,
		string(c.Domain), nullable(c.Number), formatDay(c.IssueDate), formatDay(c.ExpiryDate), string(c.Status), nullable(c.IssuedBy), c.ID)
	if err != nil {
		return err
	}
	return checkAffected(res, "certificate", c.ID)
}

func (r Repo) queryCertificates(ctx context.Context, query string, args ...any) ([]domain.CertificateRecord, error) {
	rows, err := r.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.CertificateRecord
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
