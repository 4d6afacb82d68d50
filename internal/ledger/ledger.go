// Package ledger declares the read/write contracts the planning core consumes.
// Implementations return errors wrapping domain.ErrNotFound for missing identities.
package ledger

import (
	"context"
	"time"

	"depotplan/internal/domain"
)

type FleetRegistry interface {
	GetTrain(ctx context.Context, id string) (domain.Train, error)
	TrainsByStatus(ctx context.Context, status domain.TrainStatus) ([]domain.Train, error)
	SaveTrain(ctx context.Context, t domain.Train) error
}

type MaintenanceLedger interface {
	OpenWorkOrdersForTrain(ctx context.Context, trainID string) ([]domain.WorkOrder, error)
	SaveWorkOrder(ctx context.Context, w domain.WorkOrder) error
}

type CertificationLedger interface {
	CertificatesForTrain(ctx context.Context, trainID string) ([]domain.CertificateRecord, error)
	AllCertificatesValid(ctx context.Context, trainID string, asOf time.Time) (bool, error)
}

type ExposureLedger interface {
	ActiveAssignmentsForTrain(ctx context.Context, trainID string) ([]domain.Assignment, error)
	AppendExposureLog(ctx context.Context, entry *domain.ExposureLogEntry) error
	SaveAssignment(ctx context.Context, a domain.Assignment) error
}

type StablingLayout interface {
	AvailableBays(ctx context.Context) ([]domain.StablingBay, error)
	SaveBay(ctx context.Context, b domain.StablingBay) error
}

type TripLog interface {
	TripsForTrainOn(ctx context.Context, trainID string, day time.Time, includeAccrued bool) ([]domain.TripRecord, error)
	MarkTripsAccrued(ctx context.Context, ids []string, at time.Time) error
}
