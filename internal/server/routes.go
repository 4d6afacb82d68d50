package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"depotplan/internal/accrual"
	"depotplan/internal/domain"
	"depotplan/internal/engine"
	"depotplan/internal/priority"
	"depotplan/internal/readiness"
	"depotplan/internal/report"
	"depotplan/internal/stabling"
)

type output[T any] struct {
	Body T `json:"body"`
}

func reply[T any](v T) *output[T] { return &output[T]{Body: v} }

type idPath struct {
	ID string `path:"id"`
}

// dayOrToday parses an optional YYYY-MM-DD value, defaulting to the engine's today.
func dayOrToday(e engine.Engine, field, s string) (time.Time, error) {
	day, err := parseOptionalDay(s)
	if err != nil {
		return time.Time{}, badRequest(field, err)
	}
	if day.IsZero() {
		return e.Today(), nil
	}
	return day, nil
}

func registerTrains(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-trains",
		Method:      http.MethodGet,
		Path:        "/trains",
		Summary:     "List trains",
	}, func(ctx context.Context, input *struct {
		Status string `query:"status" enum:"ACTIVE,MAINTENANCE,STANDBY,DECOMMISSIONED"`
	}) (*output[[]domain.Train], error) {
		var (
			items []domain.Train
			err   error
		)
		if input.Status != "" {
			items, err = e.Repo.TrainsByStatus(ctx, domain.TrainStatus(input.Status))
		} else {
			items, err = e.Repo.ListTrains(ctx)
		}
		if err != nil {
			return nil, handleError(err)
		}
		return reply(orEmpty(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-train",
		Method:        http.MethodPost,
		Path:          "/trains",
		Summary:       "Register a train",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body CreateTrainRequest `json:"body"`
	}) (*output[domain.Train], error) {
		t, err := e.CreateTrain(ctx, input.Body.toDomain(), actorFrom(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return reply(t), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-train",
		Method:      http.MethodGet,
		Path:        "/trains/{id}",
		Summary:     "Get a train",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*output[domain.Train], error) {
		t, err := e.Repo.GetTrain(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(t), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-train-status",
		Method:      http.MethodPut,
		Path:        "/trains/{id}/status",
		Summary:     "Change a train's operational status",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   string           `path:"id"`
		Body SetStatusRequest `json:"body"`
	}) (*output[domain.Train], error) {
		t, err := e.SetTrainStatus(ctx, input.ID, domain.TrainStatus(input.Body.Status), actorFrom(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return reply(t), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "train-readiness",
		Method:      http.MethodGet,
		Path:        "/trains/{id}/readiness",
		Summary:     "Evaluate one train for service",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*output[engine.TrainStatus], error) {
		st, err := e.Readiness(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(st), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "train-certification",
		Method:      http.MethodGet,
		Path:        "/trains/{id}/certification",
		Summary:     "Summarise a train's fitness certificates",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*output[readiness.CertificationReport], error) {
		rep, err := e.CertificationStatus(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(rep), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "train-assignments",
		Method:      http.MethodGet,
		Path:        "/trains/{id}/assignments",
		Summary:     "List a train's branding assignments",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*output[[]domain.Assignment], error) {
		if _, err := e.Repo.GetTrain(ctx, input.ID); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.AssignmentsForTrain(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(orEmpty(items)), nil
	})
}

type planExportOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

func registerPlanning(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "sweep-readiness",
		Method:      http.MethodGet,
		Path:        "/readiness",
		Summary:     "Evaluate every train",
	}, func(ctx context.Context, _ *struct{}) (*output[[]engine.TrainStatus], error) {
		items, err := e.Sweep(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(orEmpty(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "induction-plan",
		Method:      http.MethodGet,
		Path:        "/plan",
		Summary:     "Build the induction plan",
	}, func(ctx context.Context, _ *struct{}) (*output[engine.InductionPlan], error) {
		plan, err := e.Plan(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(plan), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "export-plan",
		Method:      http.MethodGet,
		Path:        "/plan/export",
		Summary:     "Download the induction plan as xlsx or pdf",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Format string `query:"format" enum:"xlsx,pdf" default:"xlsx"`
	}) (*planExportOutput, error) {
		format, err := report.ParseFormat(input.Format)
		if err != nil {
			return nil, badRequest("format", err)
		}
		plan, err := e.Plan(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		data, err := report.Build(plan, format)
		if err != nil {
			return nil, handleError(err)
		}
		return &planExportOutput{
			ContentType:        format.ContentType(),
			ContentDisposition: `attachment; filename="` + format.Filename(plan) + `"`,
			Body:               data,
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "stabling-plan",
		Method:      http.MethodGet,
		Path:        "/stabling/plan",
		Summary:     "Pair stabling candidates with free bays",
	}, func(ctx context.Context, _ *struct{}) (*output[stabling.Plan], error) {
		plan, err := e.StablingPlan(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(plan), nil
	})
}

func registerBays(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-bays",
		Method:      http.MethodGet,
		Path:        "/bays",
		Summary:     "List stabling bays",
	}, func(ctx context.Context, input *struct {
		Available bool `query:"available"`
	}) (*output[[]domain.StablingBay], error) {
		var (
			items []domain.StablingBay
			err   error
		)
		if input.Available {
			items, err = e.Repo.AvailableBays(ctx)
		} else {
			items, err = e.Repo.ListBays(ctx)
		}
		if err != nil {
			return nil, handleError(err)
		}
		return reply(orEmpty(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-bay",
		Method:        http.MethodPost,
		Path:          "/bays",
		Summary:       "Register a stabling bay",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body CreateBayRequest `json:"body"`
	}) (*output[domain.StablingBay], error) {
		b := domain.StablingBay{
			ID:            input.Body.ID,
			TrackID:       input.Body.TrackID,
			Position:      input.Body.Position,
			Status:        domain.BayStatus(input.Body.Status),
			ShuntingDepth: input.Body.ShuntingDepth,
		}
		out, err := e.CreateBay(ctx, b, actorFrom(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return reply(out), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assign-bay",
		Method:      http.MethodPost,
		Path:        "/bays/{id}/assign",
		Summary:     "Stable a train in a bay",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   string           `path:"id"`
		Body AssignBayRequest `json:"body"`
	}) (*output[domain.StablingBay], error) {
		b, err := e.AssignBay(ctx, input.ID, input.Body.TrainID, input.Body.ReservedUntil, actorFrom(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return reply(b), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "release-bay",
		Method:      http.MethodPost,
		Path:        "/bays/{id}/release",
		Summary:     "Free a bay",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*output[domain.StablingBay], error) {
		b, err := e.ReleaseBay(ctx, input.ID, actorFrom(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return reply(b), nil
	})
}

func registerWorkOrders(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-work-orders",
		Method:      http.MethodGet,
		Path:        "/work-orders",
		Summary:     "List work orders",
	}, func(ctx context.Context, input *struct {
		TrainID string `query:"train_id"`
		Status  string `query:"status" enum:"OPEN,IN_PROGRESS,COMPLETED,CLOSED"`
	}) (*output[[]domain.WorkOrder], error) {
		items, err := e.Repo.ListWorkOrders(ctx, input.TrainID, domain.WorkOrderStatus(input.Status))
		if err != nil {
			return nil, handleError(err)
		}
		return reply(orEmpty(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "overdue-work-orders",
		Method:      http.MethodGet,
		Path:        "/work-orders/overdue",
		Summary:     "List open work orders past their target completion",
	}, func(ctx context.Context, _ *struct{}) (*output[[]domain.WorkOrder], error) {
		items, err := e.OverdueWorkOrders(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(orEmpty(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-work-order",
		Method:        http.MethodPost,
		Path:          "/work-orders",
		Summary:       "Raise a work order",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body CreateWorkOrderRequest `json:"body"`
	}) (*output[domain.WorkOrder], error) {
		w, err := e.CreateWorkOrder(ctx, engine.WorkOrderCreateOptions{
			ID:               input.Body.ID,
			TrainID:          input.Body.TrainID,
			Component:        input.Body.Component,
			Summary:          input.Body.Summary,
			Priority:         domain.WorkOrderPriority(input.Body.Priority),
			TargetCompletion: input.Body.TargetCompletion,
			ActorID:          actorFrom(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return reply(w), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transition-work-order",
		Method:      http.MethodPost,
		Path:        "/work-orders/{id}/transition",
		Summary:     "Move a work order through its lifecycle",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   string                     `path:"id"`
		Body WorkOrderTransitionRequest `json:"body"`
	}) (*output[domain.WorkOrder], error) {
		w, err := e.UpdateWorkOrder(ctx, engine.WorkOrderUpdateOptions{
			ID:          input.ID,
			Status:      domain.WorkOrderStatus(input.Body.Status),
			AssignedTo:  input.Body.AssignedTo,
			WorkDetails: input.Body.WorkDetails,
			LaborHours:  input.Body.LaborHours,
			ActorID:     actorFrom(ctx),
			Force:       input.Body.Force,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return reply(w), nil
	})
}

func registerCertificates(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-certificates",
		Method:      http.MethodGet,
		Path:        "/certificates",
		Summary:     "List fitness certificates",
	}, func(ctx context.Context, input *struct {
		TrainID string `query:"train_id"`
	}) (*output[[]domain.CertificateRecord], error) {
		var (
			items []domain.CertificateRecord
			err   error
		)
		if input.TrainID != "" {
			items, err = e.Repo.CertificatesForTrain(ctx, input.TrainID)
		} else {
			items, err = e.Repo.ListCertificates(ctx)
		}
		if err != nil {
			return nil, handleError(err)
		}
		return reply(orEmpty(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "expiring-certificates",
		Method:      http.MethodGet,
		Path:        "/certificates/expiring",
		Summary:     "List valid certificates expiring soon",
	}, func(ctx context.Context, input *struct {
		Days int `query:"days"`
	}) (*output[[]domain.CertificateRecord], error) {
		items, err := e.ExpiringCertificates(ctx, input.Days)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(orEmpty(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "add-certificate",
		Method:        http.MethodPost,
		Path:          "/certificates",
		Summary:       "Record a fitness certificate",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body CreateCertificateRequest `json:"body"`
	}) (*output[domain.CertificateRecord], error) {
		issued, err := parseOptionalDay(input.Body.IssueDate)
		if err != nil {
			return nil, badRequest("issue_date", err)
		}
		expiry, err := parseOptionalDay(input.Body.ExpiryDate)
		if err != nil {
			return nil, badRequest("expiry_date", err)
		}
		c, err := e.AddCertificate(ctx, domain.CertificateRecord{
			ID:         input.Body.ID,
			TrainID:    input.Body.TrainID,
			Domain:     domain.CertDomain(input.Body.Domain),
			Number:     input.Body.Number,
			IssueDate:  issued,
			ExpiryDate: expiry,
			Status:     domain.CertStatus(input.Body.Status),
			IssuedBy:   input.Body.IssuedBy,
		}, actorFrom(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return reply(c), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "revoke-certificate",
		Method:      http.MethodPost,
		Path:        "/certificates/{id}/revoke",
		Summary:     "Revoke a certificate",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ID   string                   `path:"id"`
		Body RevokeCertificateRequest `json:"body,omitempty" required:"false"`
	}) (*output[domain.CertificateRecord], error) {
		c, err := e.RevokeCertificate(ctx, input.ID, input.Body.Reason, actorFrom(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return reply(c), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "expire-certificates",
		Method:      http.MethodPost,
		Path:        "/certificates/expire",
		Summary:     "Mark lapsed certificates EXPIRED",
	}, func(ctx context.Context, _ *struct{}) (*output[ExpireCertificatesResponse], error) {
		ids, err := e.ExpireCertificates(ctx, actorFrom(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return reply(ExpireCertificatesResponse{Expired: orEmpty(ids)}), nil
	})
}

func registerBranding(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-contracts",
		Method:      http.MethodGet,
		Path:        "/contracts",
		Summary:     "List branding contracts",
	}, func(ctx context.Context, _ *struct{}) (*output[[]domain.BrandingContract], error) {
		items, err := e.Repo.ListContracts(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(orEmpty(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-contract",
		Method:        http.MethodPost,
		Path:          "/contracts",
		Summary:       "Record a branding contract",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body CreateContractRequest `json:"body"`
	}) (*output[domain.BrandingContract], error) {
		start, err := domain.ParseDay(input.Body.StartDate)
		if err != nil {
			return nil, badRequest("start_date", err)
		}
		end, err := domain.ParseDay(input.Body.EndDate)
		if err != nil {
			return nil, badRequest("end_date", err)
		}
		c, err := e.CreateContract(ctx, domain.BrandingContract{
			ID:            input.Body.ID,
			Advertiser:    input.Body.Advertiser,
			StartDate:     start,
			EndDate:       end,
			RequiredHours: input.Body.RequiredHours,
			Status:        domain.ContractStatus(input.Body.Status),
		}, actorFrom(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return reply(c), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "contracts-at-risk",
		Method:      http.MethodGet,
		Path:        "/contracts/at-risk",
		Summary:     "List current contracts behind on exposure",
	}, func(ctx context.Context, _ *struct{}) (*output[[]priority.ContractReport], error) {
		items, err := e.ContractsAtRisk(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(orEmpty(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "contract-report",
		Method:      http.MethodGet,
		Path:        "/contracts/{id}/report",
		Summary:     "Exposure progress for one contract",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *idPath) (*output[priority.ContractReport], error) {
		rep, err := e.ContractReport(ctx, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(rep), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "assign-branding",
		Method:        http.MethodPost,
		Path:          "/branding/assignments",
		Summary:       "Wrap a train for a contract",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body AssignBrandingRequest `json:"body"`
	}) (*output[domain.Assignment], error) {
		on, err := parseOptionalDay(input.Body.AssignmentDate)
		if err != nil {
			return nil, badRequest("assignment_date", err)
		}
		a, err := e.AssignBranding(ctx, input.Body.TrainID, input.Body.ContractID, on, actorFrom(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return reply(a), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-assignment-status",
		Method:      http.MethodPut,
		Path:        "/branding/assignments/{id}/status",
		Summary:     "Pause, complete or remove a branding assignment",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   string           `path:"id"`
		Body SetStatusRequest `json:"body"`
	}) (*output[domain.Assignment], error) {
		a, err := e.SetAssignmentStatus(ctx, input.ID, domain.AssignmentStatus(input.Body.Status), actorFrom(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return reply(a), nil
	})
}

func registerTrips(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "log-trip",
		Method:        http.MethodPost,
		Path:          "/trips",
		Summary:       "Log a completed trip and accrue it",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body LogTripRequest `json:"body"`
	}) (*output[LogTripResponse], error) {
		trip, sum, err := e.LogTrip(ctx, input.Body.toDomain(), actorFrom(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return reply(LogTripResponse{Trip: trip, Accrual: sum}), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-trips",
		Method:      http.MethodGet,
		Path:        "/trips",
		Summary:     "List trips started on a day",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Date string `query:"date"`
	}) (*output[[]domain.TripRecord], error) {
		day, err := dayOrToday(e, "date", input.Date)
		if err != nil {
			return nil, err
		}
		items, err := e.Repo.TripsOn(ctx, day)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(orEmpty(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "run-accrual",
		Method:      http.MethodPost,
		Path:        "/accrual/run",
		Summary:     "Accrue one day's trips for one train or the whole fleet",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Body RunAccrualRequest `json:"body,omitempty" required:"false"`
	}) (*output[AccrualRunResponse], error) {
		day, err := dayOrToday(e, "date", input.Body.Date)
		if err != nil {
			return nil, err
		}
		resp := AccrualRunResponse{Date: day.Format(domain.DateLayout), Summaries: []accrual.Summary{}}
		if input.Body.TrainID != "" {
			sum, err := e.RunDailyAccrual(ctx, input.Body.TrainID, day, actorFrom(ctx))
			if err != nil {
				return nil, handleError(err)
			}
			resp.Summaries = append(resp.Summaries, sum)
			return reply(resp), nil
		}
		sums, err := e.RunDailyAccrualAll(ctx, day, actorFrom(ctx))
		resp.Summaries = append(resp.Summaries, sums...)
		if err != nil {
			resp.Error = err.Error()
		}
		return reply(resp), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "accrue-trips",
		Method:      http.MethodPost,
		Path:        "/accrual/trips",
		Summary:     "Accrue an explicit batch of trips for one train today",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		Body AccrueTripsRequest `json:"body"`
	}) (*output[accrual.Summary], error) {
		if input.Body.TrainID == "" {
			return nil, badRequest("train_id", errors.New("required"))
		}
		sum, err := e.AccrueTrips(ctx, input.Body.TrainID, input.Body.toDomain(), actorFrom(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return reply(sum), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "mileage-summary",
		Method:      http.MethodGet,
		Path:        "/mileage/summary",
		Summary:     "Fleet mileage for a day",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Date string `query:"date"`
	}) (*output[engine.MileageSummary], error) {
		day, err := dayOrToday(e, "date", input.Date)
		if err != nil {
			return nil, err
		}
		sum, err := e.DailyMileageSummary(ctx, day)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(sum), nil
	})
}

func registerCleaning(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "cleaning-schedule",
		Method:      http.MethodGet,
		Path:        "/cleaning",
		Summary:     "List cleaning tasks for a day",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Date string `query:"date"`
	}) (*output[[]domain.CleaningTask], error) {
		day, err := dayOrToday(e, "date", input.Date)
		if err != nil {
			return nil, err
		}
		items, err := e.CleaningSchedule(ctx, day)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(orEmpty(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "schedule-cleaning",
		Method:        http.MethodPost,
		Path:          "/cleaning/schedule",
		Summary:       "Book cleaning slots for trains that are due",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Body ScheduleCleaningRequest `json:"body,omitempty" required:"false"`
	}) (*output[[]domain.CleaningTask], error) {
		day, err := dayOrToday(e, "date", input.Body.Date)
		if err != nil {
			return nil, err
		}
		items, err := e.ScheduleCleaning(ctx, day, actorFrom(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return reply(orEmpty(items)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-cleaning",
		Method:      http.MethodPost,
		Path:        "/cleaning/{id}/complete",
		Summary:     "Mark a cleaning task done",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID   string                  `path:"id"`
		Body CompleteCleaningRequest `json:"body,omitempty" required:"false"`
	}) (*output[domain.CleaningTask], error) {
		c, err := e.CompleteCleaning(ctx, input.ID, input.Body.Remarks, actorFrom(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return reply(c), nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent events",
	}, func(ctx context.Context, input *struct {
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind" enum:"train,work_order,certificate,contract,assignment,bay,trip,cleaning"`
		EntityID   string `query:"entity_id"`
		Limit      int    `query:"limit" default:"50"`
	}) (*output[[]domain.Event], error) {
		items, err := e.LatestEvents(ctx, normalizeLimit(input.Limit), input.Type, input.EntityKind, input.EntityID)
		if err != nil {
			return nil, handleError(err)
		}
		return reply(orEmpty(items)), nil
	})
}
