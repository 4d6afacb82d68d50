package domain

import "time"

// DateLayout is the persisted form of calendar dates.
const DateLayout = "2006-01-02"

type TrainStatus string

const (
	TrainActive         TrainStatus = "ACTIVE"
	TrainMaintenance    TrainStatus = "MAINTENANCE"
	TrainStandby        TrainStatus = "STANDBY"
	TrainDecommissioned TrainStatus = "DECOMMISSIONED"
)

// Train defaults applied when a record omits them.
const (
	DefaultMaintenanceInterval = 3500.0
	DefaultCleaningPeriodHours = 12
	DefaultDailyMaxMileage     = 1000.0
)

type Train struct {
	ID                        string      `json:"id"`
	Number                    string      `json:"number"`
	Status                    TrainStatus `json:"status"`
	CurrentOdometer           *float64    `json:"current_odometer,omitempty"`
	OdometerAtLastMaintenance *float64    `json:"odometer_at_last_maintenance,omitempty"`
	MaintenanceInterval       float64     `json:"maintenance_interval"`
	LastCleaning              *time.Time  `json:"last_cleaning,omitempty"`
	CleaningPeriodHours       int         `json:"cleaning_period_hours"`
	DailyMaxMileage           float64     `json:"daily_max_mileage"`
	Depot                     string      `json:"depot,omitempty"`
	CreatedAt                 time.Time   `json:"created_at"`
	UpdatedAt                 time.Time   `json:"updated_at"`
}

// Odometer returns the current odometer reading, zero when unknown.
func (t Train) Odometer() float64 {
	if t.CurrentOdometer == nil {
		return 0
	}
	return *t.CurrentOdometer
}

type WorkOrderStatus string

const (
	WorkOrderOpen       WorkOrderStatus = "OPEN"
	WorkOrderInProgress WorkOrderStatus = "IN_PROGRESS"
	WorkOrderCompleted  WorkOrderStatus = "COMPLETED"
	WorkOrderClosed     WorkOrderStatus = "CLOSED"
)

type WorkOrderPriority string

const (
	PriorityLow      WorkOrderPriority = "LOW"
	PriorityMedium   WorkOrderPriority = "MEDIUM"
	PriorityHigh     WorkOrderPriority = "HIGH"
	PriorityCritical WorkOrderPriority = "CRITICAL"
)

// WorkOrder is a maintenance job card raised against one train.
type WorkOrder struct {
	ID               string            `json:"id"`
	TrainID          string            `json:"train_id"`
	Component        string            `json:"component,omitempty"`
	Priority         WorkOrderPriority `json:"priority"`
	Status           WorkOrderStatus   `json:"status"`
	Summary          string            `json:"summary"`
	AssignedTo       string            `json:"assigned_to,omitempty"`
	ReportedAt       time.Time         `json:"reported_at"`
	TargetCompletion *time.Time        `json:"target_completion,omitempty"`
	ActualStart      *time.Time        `json:"actual_start,omitempty"`
	ActualEnd        *time.Time        `json:"actual_end,omitempty"`
	LaborHours       *float64          `json:"labor_hours,omitempty"`
	WorkDetails      string            `json:"work_details,omitempty"`
}

// Open reports whether the work order still blocks its train.
func (w WorkOrder) Open() bool { return w.Status != WorkOrderClosed }

type CertDomain string

const (
	CertRollingStock CertDomain = "ROLLING_STOCK"
	CertSignalling   CertDomain = "SIGNALLING"
	CertTelecom      CertDomain = "TELECOM"
)

// CertDomains lists every inspection domain in a stable order.
var CertDomains = []CertDomain{CertRollingStock, CertSignalling, CertTelecom}

type CertStatus string

const (
	CertValid   CertStatus = "VALID"
	CertExpired CertStatus = "EXPIRED"
	CertRevoked CertStatus = "REVOKED"
)

type CertificateRecord struct {
	ID         string     `json:"id"`
	TrainID    string     `json:"train_id"`
	Domain     CertDomain `json:"domain"`
	Number     string     `json:"number,omitempty"`
	IssueDate  time.Time  `json:"issue_date"`
	ExpiryDate time.Time  `json:"expiry_date"`
	Status     CertStatus `json:"status"`
	IssuedBy   string     `json:"issued_by,omitempty"`
}

// ValidOn reports whether the record is VALID and unexpired on day.
func (c CertificateRecord) ValidOn(day time.Time) bool {
	return c.Status == CertValid && !c.ExpiryDate.Before(Day(day))
}

type ContractStatus string

const (
	ContractActive    ContractStatus = "ACTIVE"
	ContractPaused    ContractStatus = "PAUSED"
	ContractCompleted ContractStatus = "COMPLETED"
	ContractCancelled ContractStatus = "CANCELLED"
)

type BrandingContract struct {
	ID            string         `json:"id"`
	Advertiser    string         `json:"advertiser"`
	StartDate     time.Time      `json:"start_date"`
	EndDate       time.Time      `json:"end_date"`
	RequiredHours int            `json:"required_hours"`
	Status        ContractStatus `json:"status"`
}

// Current reports whether day falls inside the contract window, inclusive.
func (c BrandingContract) Current(day time.Time) bool {
	d := Day(day)
	return !d.Before(Day(c.StartDate)) && !d.After(Day(c.EndDate))
}

type AssignmentStatus string

const (
	AssignmentActive    AssignmentStatus = "ACTIVE"
	AssignmentPaused    AssignmentStatus = "PAUSED"
	AssignmentCompleted AssignmentStatus = "COMPLETED"
	AssignmentRemoved   AssignmentStatus = "REMOVED"
)

// Assignment links a train to a branding contract and carries running exposure totals.
type Assignment struct {
	ID                  string           `json:"id"`
	TrainID             string           `json:"train_id"`
	ContractID          string           `json:"contract_id"`
	AssignmentDate      time.Time        `json:"assignment_date"`
	TotalHoursExposed   int              `json:"total_hours_exposed"`
	TotalMileageExposed float64          `json:"total_mileage_exposed"`
	AverageDailyMileage float64          `json:"average_daily_mileage"`
	Status              AssignmentStatus `json:"status"`
	Contract            BrandingContract `json:"contract"`
}

type ExposureLogEntry struct {
	ID             int64     `json:"id"`
	AssignmentID   string    `json:"assignment_id"`
	LogDate        time.Time `json:"log_date"`
	HoursExposed   int       `json:"hours_exposed"`
	MileageCovered float64   `json:"mileage_covered"`
	StartOdometer  float64   `json:"start_odometer"`
	EndOdometer    float64   `json:"end_odometer"`
	RoutesCovered  string    `json:"routes_covered,omitempty"`
	TripCount      int       `json:"trip_count"`
	PassengerCount int       `json:"passenger_count"`
	LoggedBy       string    `json:"logged_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type BayStatus string

const (
	BayAvailable   BayStatus = "AVAILABLE"
	BayOccupied    BayStatus = "OCCUPIED"
	BayMaintenance BayStatus = "MAINTENANCE"
)

type StablingBay struct {
	ID            string     `json:"id"`
	TrackID       string     `json:"track_id"`
	Position      int        `json:"position"`
	Status        BayStatus  `json:"status"`
	TrainID       *string    `json:"train_id,omitempty"`
	ShuntingDepth *int       `json:"shunting_depth,omitempty"`
	ReservedUntil *time.Time `json:"reserved_until,omitempty"`
}

// Depth returns the shunting depth, treating a missing value as zero.
func (b StablingBay) Depth() int {
	if b.ShuntingDepth == nil {
		return 0
	}
	return *b.ShuntingDepth
}

// TripRecord is one completed revenue run.
type TripRecord struct {
	ID         string     `json:"id"`
	TrainID    string     `json:"train_id"`
	RouteID    string     `json:"route_id"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    time.Time  `json:"end_time"`
	Mileage    float64    `json:"mileage"`
	LoadFactor float64    `json:"load_factor"`
	AccruedAt  *time.Time `json:"accrued_at,omitempty"`
}

// DurationMinutes is the whole number of minutes between start and end.
func (t TripRecord) DurationMinutes() int {
	return int(t.EndTime.Sub(t.StartTime) / time.Minute)
}

type CleaningType string

const (
	CleaningDaily CleaningType = "DAILY"
	CleaningDeep  CleaningType = "DEEP"
)

type CleaningStatus string

const (
	CleaningScheduled  CleaningStatus = "SCHEDULED"
	CleaningInProgress CleaningStatus = "IN_PROGRESS"
	CleaningCompleted  CleaningStatus = "COMPLETED"
	CleaningCancelled  CleaningStatus = "CANCELLED"
)

type CleaningTask struct {
	ID             string         `json:"id"`
	TrainID        string         `json:"train_id"`
	Type           CleaningType   `json:"type"`
	Status         CleaningStatus `json:"status"`
	Team           string         `json:"team"`
	ScheduledStart time.Time      `json:"scheduled_start"`
	ScheduledEnd   time.Time      `json:"scheduled_end"`
	ActualEnd      *time.Time     `json:"actual_end,omitempty"`
	Remarks        string         `json:"remarks,omitempty"`
}

type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
