package server

import (
	"time"

	"depotplan/internal/accrual"
	"depotplan/internal/domain"
)

// Request payloads. Dates are YYYY-MM-DD strings; instants are RFC 3339.

type CreateTrainRequest struct {
	ID                        string     `json:"id"`
	Number                    string     `json:"number,omitempty"`
	Status                    string     `json:"status,omitempty" enum:"ACTIVE,MAINTENANCE,STANDBY,DECOMMISSIONED"`
	CurrentOdometer           *float64   `json:"current_odometer,omitempty"`
	OdometerAtLastMaintenance *float64   `json:"odometer_at_last_maintenance,omitempty"`
	MaintenanceInterval       float64    `json:"maintenance_interval,omitempty"`
	LastCleaning              *time.Time `json:"last_cleaning,omitempty"`
	CleaningPeriodHours       int        `json:"cleaning_period_hours,omitempty"`
	DailyMaxMileage           float64    `json:"daily_max_mileage,omitempty"`
}

func (r CreateTrainRequest) toDomain() domain.Train {
	return domain.Train{
		ID:                        r.ID,
		Number:                    r.Number,
		Status:                    domain.TrainStatus(r.Status),
		CurrentOdometer:           r.CurrentOdometer,
		OdometerAtLastMaintenance: r.OdometerAtLastMaintenance,
		MaintenanceInterval:       r.MaintenanceInterval,
		LastCleaning:              r.LastCleaning,
		CleaningPeriodHours:       r.CleaningPeriodHours,
		DailyMaxMileage:           r.DailyMaxMileage,
	}
}

type SetStatusRequest struct {
	Status string `json:"status"`
}

type CreateBayRequest struct {
	ID            string `json:"id"`
	TrackID       string `json:"track_id"`
	Position      int    `json:"position,omitempty"`
	Status        string `json:"status,omitempty" enum:"AVAILABLE,OCCUPIED,MAINTENANCE"`
	ShuntingDepth *int   `json:"shunting_depth,omitempty"`
}

type AssignBayRequest struct {
	TrainID       string     `json:"train_id"`
	ReservedUntil *time.Time `json:"reserved_until,omitempty"`
}

type CreateWorkOrderRequest struct {
	ID               string     `json:"id,omitempty"`
	TrainID          string     `json:"train_id"`
	Component        string     `json:"component,omitempty"`
	Summary          string     `json:"summary"`
	Priority         string     `json:"priority,omitempty" enum:"LOW,MEDIUM,HIGH,CRITICAL"`
	TargetCompletion *time.Time `json:"target_completion,omitempty"`
}

type WorkOrderTransitionRequest struct {
	Status      string   `json:"status" enum:"OPEN,IN_PROGRESS,COMPLETED,CLOSED"`
	AssignedTo  string   `json:"assigned_to,omitempty"`
	WorkDetails string   `json:"work_details,omitempty"`
	LaborHours  *float64 `json:"labor_hours,omitempty"`
	Force       bool     `json:"force,omitempty"`
}

type CreateCertificateRequest struct {
	ID         string `json:"id,omitempty"`
	TrainID    string `json:"train_id"`
	Domain     string `json:"domain" enum:"ROLLING_STOCK,SIGNALLING,TELECOM"`
	Number     string `json:"number,omitempty"`
	IssueDate  string `json:"issue_date,omitempty" format:"date"`
	ExpiryDate string `json:"expiry_date" format:"date"`
	Status     string `json:"status,omitempty" enum:"VALID,EXPIRED,REVOKED"`
	IssuedBy   string `json:"issued_by,omitempty"`
}

type RevokeCertificateRequest struct {
	Reason string `json:"reason,omitempty"`
}

type CreateContractRequest struct {
	ID            string `json:"id,omitempty"`
	Advertiser    string `json:"advertiser"`
	StartDate     string `json:"start_date" format:"date"`
	EndDate       string `json:"end_date" format:"date"`
	RequiredHours int    `json:"required_hours,omitempty"`
	Status        string `json:"status,omitempty" enum:"ACTIVE,PAUSED,COMPLETED,CANCELLED"`
}

type AssignBrandingRequest struct {
	TrainID        string `json:"train_id"`
	ContractID     string `json:"contract_id"`
	AssignmentDate string `json:"assignment_date,omitempty" format:"date"`
}

type LogTripRequest struct {
	ID         string    `json:"id,omitempty"`
	TrainID    string    `json:"train_id"`
	RouteID    string    `json:"route_id,omitempty"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Mileage    float64   `json:"mileage"`
	LoadFactor float64   `json:"load_factor,omitempty"`
}

func (r LogTripRequest) toDomain() domain.TripRecord {
	return domain.TripRecord{
		ID:         r.ID,
		TrainID:    r.TrainID,
		RouteID:    r.RouteID,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		Mileage:    r.Mileage,
		LoadFactor: r.LoadFactor,
	}
}

// BatchTrip is one trip of an explicit accrual batch. TrainID defaults to the
// batch's train.
type BatchTrip struct {
	ID         string    `json:"id,omitempty"`
	TrainID    string    `json:"train_id,omitempty"`
	RouteID    string    `json:"route_id,omitempty"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Mileage    float64   `json:"mileage"`
	LoadFactor float64   `json:"load_factor,omitempty"`
}

type AccrueTripsRequest struct {
	TrainID string      `json:"train_id"`
	Trips   []BatchTrip `json:"trips"`
}

func (r AccrueTripsRequest) toDomain() []domain.TripRecord {
	out := make([]domain.TripRecord, 0, len(r.Trips))
	for _, t := range r.Trips {
		trainID := t.TrainID
		if trainID == "" {
			trainID = r.TrainID
		}
		out = append(out, domain.TripRecord{
			ID:         t.ID,
			TrainID:    trainID,
			RouteID:    t.RouteID,
			StartTime:  t.StartTime,
			EndTime:    t.EndTime,
			Mileage:    t.Mileage,
			LoadFactor: t.LoadFactor,
		})
	}
	return out
}

type RunAccrualRequest struct {
	TrainID string `json:"train_id,omitempty"`
	Date    string `json:"date,omitempty" format:"date"`
}

type ScheduleCleaningRequest struct {
	Date string `json:"date,omitempty" format:"date"`
}

type CompleteCleaningRequest struct {
	Remarks string `json:"remarks,omitempty"`
}

// Response payloads

type LogTripResponse struct {
	Trip    domain.TripRecord `json:"trip"`
	Accrual accrual.Summary   `json:"accrual"`
}

type ExpireCertificatesResponse struct {
	Expired []string `json:"expired"`
}

type AccrualRunResponse struct {
	Date      string            `json:"date"`
	Summaries []accrual.Summary `json:"summaries"`
	Error     string            `json:"error,omitempty"`
}

// orEmpty keeps list bodies encoding as [] rather than null.
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func parseOptionalDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return domain.ParseDay(s)
}
