package readiness

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depotplan/internal/domain"
)

var now = time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

func f(v float64) *float64 { return &v }

func tp(t time.Time) *time.Time { return &t }

func freshTrain() domain.Train {
	return domain.Train{
		ID:                        "T-01",
		Status:                    domain.TrainActive,
		CurrentOdometer:           f(11000),
		OdometerAtLastMaintenance: f(10000),
		MaintenanceInterval:       3500,
		LastCleaning:              tp(now.Add(-2 * time.Hour)),
		CleaningPeriodHours:       12,
	}
}

func validCerts(trainID string) []domain.CertificateRecord {
	var out []domain.CertificateRecord
	for _, d := range domain.CertDomains {
		out = append(out, domain.CertificateRecord{
			ID:         trainID + "-" + string(d),
			TrainID:    trainID,
			Domain:     d,
			Status:     domain.CertValid,
			IssueDate:  now.AddDate(-1, 0, 0),
			ExpiryDate: domain.Day(now).AddDate(0, 1, 0),
		})
	}
	return out
}

func TestEvaluateZeroRecordsIsReadyWhenTimersClear(t *testing.T) {
	v := Evaluate(Input{Train: freshTrain()}, DefaultPolicy(), now)
	assert.True(t, v.Ready)
	assert.True(t, v.Reasons.Empty())
	assert.Equal(t, "Ready for service", v.Message())
}

func TestEvaluateZeroRecordsStrictPolicy(t *testing.T) {
	p := DefaultPolicy()
	p.AllowUncertified = false
	v := Evaluate(Input{Train: freshTrain()}, p, now)
	assert.False(t, v.Ready)
	assert.Equal(t, []ReasonCode{InvalidCertificate}, v.Reasons.Codes())
}

func TestEvaluateOpenWorkBlocks(t *testing.T) {
	for _, st := range []domain.WorkOrderStatus{domain.WorkOrderOpen, domain.WorkOrderInProgress, domain.WorkOrderCompleted} {
		t.Run(string(st), func(t *testing.T) {
			in := Input{
				Train: freshTrain(),
				WorkOrders: []domain.WorkOrder{
					{ID: "W1", Status: domain.WorkOrderClosed},
					{ID: "W2", Status: st},
				},
				Certificates: validCerts("T-01"),
			}
			v := Evaluate(in, DefaultPolicy(), now)
			assert.False(t, v.Ready)
			assert.True(t, v.Reasons.Has(OpenWork))
		})
	}
}

func TestEvaluateClosedWorkDoesNotBlock(t *testing.T) {
	in := Input{
		Train:        freshTrain(),
		WorkOrders:   []domain.WorkOrder{{ID: "W1", Status: domain.WorkOrderClosed}},
		Certificates: validCerts("T-01"),
	}
	assert.True(t, Evaluate(in, DefaultPolicy(), now).Ready)
}

func TestCertificatesInvalid(t *testing.T) {
	p := DefaultPolicy()
	cases := []struct {
		name   string
		mutate func([]domain.CertificateRecord) []domain.CertificateRecord
		want   bool
	}{
		{"all valid", func(c []domain.CertificateRecord) []domain.CertificateRecord { return c }, false},
		{"expired status", func(c []domain.CertificateRecord) []domain.CertificateRecord {
			c[1].Status = domain.CertExpired
			return c
		}, true},
		{"revoked", func(c []domain.CertificateRecord) []domain.CertificateRecord {
			c[2].Status = domain.CertRevoked
			return c
		}, true},
		{"expiry before today", func(c []domain.CertificateRecord) []domain.CertificateRecord {
			c[0].ExpiryDate = domain.Day(now).AddDate(0, 0, -1)
			return c
		}, true},
		{"expiry today still valid", func(c []domain.CertificateRecord) []domain.CertificateRecord {
			c[0].ExpiryDate = domain.Day(now)
			return c
		}, false},
		{"missing domain", func(c []domain.CertificateRecord) []domain.CertificateRecord { return c[:2] }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			certs := tc.mutate(validCerts("T-01"))
			assert.Equal(t, tc.want, CertificatesInvalid(certs, p, now))
		})
	}
}

func TestCertificatesCoverageDisabled(t *testing.T) {
	p := DefaultPolicy()
	p.RequiredDomains = nil
	certs := validCerts("T-01")[:1]
	assert.False(t, CertificatesInvalid(certs, p, now))
}

func TestIsMaintenanceDue(t *testing.T) {
	tr := freshTrain()
	tr.OdometerAtLastMaintenance = f(10000)
	tr.CurrentOdometer = f(13600)
	assert.True(t, IsMaintenanceDue(tr))
	assert.True(t, Evaluate(Input{Train: tr}, DefaultPolicy(), now).Reasons.Has(MaintenanceDue))
	assert.Equal(t, 0.0, MileageBalance(tr))

	tr.CurrentOdometer = f(13500)
	assert.True(t, IsMaintenanceDue(tr), "boundary is inclusive")

	tr.CurrentOdometer = f(13499)
	assert.False(t, IsMaintenanceDue(tr))
	assert.Equal(t, 1.0, MileageBalance(tr))

	tr.CurrentOdometer = nil
	assert.False(t, IsMaintenanceDue(tr))
	tr.CurrentOdometer = f(20000)
	tr.OdometerAtLastMaintenance = nil
	assert.False(t, IsMaintenanceDue(tr))
}

func TestIsCleaningDue(t *testing.T) {
	tr := freshTrain()
	tr.LastCleaning = nil
	assert.True(t, IsCleaningDue(tr, 24*time.Hour, now))
	assert.Equal(t, []ReasonCode{CleaningDue}, Evaluate(Input{Train: tr}, DefaultPolicy(), now).Reasons.Codes())

	tr.LastCleaning = tp(now.Add(-12 * time.Hour))
	assert.True(t, IsCleaningDue(tr, 24*time.Hour, now), "boundary is inclusive")

	tr.LastCleaning = tp(now.Add(-11 * time.Hour))
	assert.False(t, IsCleaningDue(tr, 24*time.Hour, now))

	tr.CleaningPeriodHours = 0
	tr.LastCleaning = tp(now.Add(-20 * time.Hour))
	assert.False(t, IsCleaningDue(tr, 24*time.Hour, now), "falls back to policy period")
}

func TestEvaluateAccumulatesEveryReason(t *testing.T) {
	tr := freshTrain()
	tr.CurrentOdometer = f(14000)
	tr.LastCleaning = nil
	certs := validCerts("T-01")
	certs[0].Status = domain.CertRevoked
	in := Input{
		Train:        tr,
		WorkOrders:   []domain.WorkOrder{{ID: "W1", Status: domain.WorkOrderOpen}},
		Certificates: certs,
	}
	v := Evaluate(in, DefaultPolicy(), now)
	require.False(t, v.Ready)
	assert.Equal(t, []string{"OPEN_WORK", "INVALID_CERTIFICATE", "MAINTENANCE_DUE", "CLEANING_DUE"}, v.Reasons.Strings())
	assert.Equal(t, "Not ready: open work orders, invalid fitness certificates, maintenance due, cleaning due", v.Message())
}

func TestReasonSetJSON(t *testing.T) {
	s := ReasonSet(0).With(CleaningDue).With(OpenWork)
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `["OPEN_WORK","CLEANING_DUE"]`, string(data))

	var back ReasonSet
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, s, back)

	assert.Error(t, json.Unmarshal([]byte(`["BOGUS"]`), &back))
}

func TestEmptyReasonSetMarshalsAsEmptyArray(t *testing.T) {
	data, err := json.Marshal(ReasonSet(0))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestCertificationLevels(t *testing.T) {
	certs := validCerts("T-01")
	rep := Certification("T-01", certs, nil, now)
	assert.Equal(t, FullyCertified, rep.Level)
	assert.Empty(t, rep.MissingDomains)

	certs[0].Status = domain.CertExpired
	rep = Certification("T-01", certs, nil, now)
	assert.Equal(t, PartiallyCertified, rep.Level)
	assert.Equal(t, []domain.CertDomain{domain.CertRollingStock}, rep.MissingDomains)

	rep = Certification("T-01", nil, nil, now)
	assert.Equal(t, NotCertified, rep.Level)
	assert.Len(t, rep.MissingDomains, 3)

	rep = Certification("T-01", certs[1:2], []domain.CertDomain{domain.CertSignalling}, now)
	assert.Equal(t, FullyCertified, rep.Level)
}
