package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"depotplan/internal/accrual"
	"depotplan/internal/domain"
	"depotplan/internal/engine"
)

func workOrderCmd() *cobra.Command {
	wo := &cobra.Command{
		Use:     "workorder",
		Aliases: []string{"wo"},
		Short:   "Maintenance job cards",
		Long:    "Any work order that is not CLOSED keeps its train out of service. Starting work moves the train to MAINTENANCE; closing the last active order returns it to ACTIVE.",
	}
	wo.AddCommand(workOrderAddCmd())
	wo.AddCommand(workOrderListCmd())
	wo.AddCommand(workOrderStartCmd())
	wo.AddCommand(workOrderCompleteCmd())
	wo.AddCommand(workOrderCloseCmd())
	wo.AddCommand(workOrderOverdueCmd())
	return wo
}

func workOrderAddCmd() *cobra.Command {
	var (
		opts          engine.WorkOrderCreateOptions
		priority, due string
	)
	cmd := &cobra.Command{
		Use:   "add <train>",
		Short: "Raise a work order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseTimeFlag("due", due)
			if err != nil {
				return err
			}
			opts.TrainID = args[0]
			opts.Priority = domain.WorkOrderPriority(strings.ToUpper(priority))
			opts.TargetCompletion = target
			opts.ActorID = actor()
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				w, err := e.CreateWorkOrder(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(w)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "work order id (generated when empty)")
	cmd.Flags().StringVar(&opts.Summary, "summary", "", "fault description")
	cmd.Flags().StringVar(&opts.Component, "component", "", "affected component")
	cmd.Flags().StringVar(&priority, "priority", "", "LOW|MEDIUM|HIGH|CRITICAL")
	cmd.Flags().StringVar(&due, "due", "", "target completion (RFC 3339)")
	_ = cmd.MarkFlagRequired("summary")
	return cmd
}

func workOrderListCmd() *cobra.Command {
	var trainID, status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List work orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListWorkOrders(ctx, trainID, domain.WorkOrderStatus(strings.ToUpper(status)))
				if err != nil {
					return err
				}
				return printWorkOrders(items)
			})
		},
	}
	cmd.Flags().StringVar(&trainID, "train", "", "train filter")
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	return cmd
}

func printWorkOrders(items []domain.WorkOrder) error {
	rows := make([]table.Row, 0, len(items))
	for _, w := range items {
		rows = append(rows, table.Row{w.ID, w.TrainID, w.Priority, w.Status, w.Summary, w.AssignedTo, fmtTime(w.TargetCompletion)})
	}
	return printRows(items, table.Row{"ID", "Train", "Priority", "Status", "Summary", "Assignee", "Due"}, rows)
}

func workOrderStartCmd() *cobra.Command {
	var assignee string
	cmd := &cobra.Command{
		Use:   "start <id>",
		Short: "Begin work",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				w, err := e.StartWorkOrder(ctx, args[0], assignee, actor())
				if err != nil {
					return err
				}
				return printJSONOrTable(w)
			})
		},
	}
	cmd.Flags().StringVar(&assignee, "assignee", "", "technician or crew")
	return cmd
}

func workOrderCompleteCmd() *cobra.Command {
	var (
		details string
		hours   float64
	)
	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Finish work, pending sign-off",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			labor := optionalFloat(cmd, "hours", hours)
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if viper.GetBool("force") {
					w, err := e.UpdateWorkOrder(ctx, engine.WorkOrderUpdateOptions{
						ID: args[0], Status: domain.WorkOrderCompleted, WorkDetails: details, LaborHours: labor, ActorID: actor(), Force: true,
					})
					if err != nil {
						return err
					}
					return printJSONOrTable(w)
				}
				w, err := e.CompleteWorkOrder(ctx, args[0], details, labor, actor())
				if err != nil {
					return err
				}
				return printJSONOrTable(w)
			})
		},
	}
	cmd.Flags().StringVar(&details, "details", "", "work performed")
	cmd.Flags().Float64Var(&hours, "hours", 0, "labor hours")
	return cmd
}

func workOrderCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close <id>",
		Short: "Sign off a completed work order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				w, err := e.CloseWorkOrder(ctx, args[0], actor())
				if err != nil {
					return err
				}
				return printJSONOrTable(w)
			})
		},
	}
}

func workOrderOverdueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "overdue",
		Short: "Open work orders past their target completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.OverdueWorkOrders(ctx)
				if err != nil {
					return err
				}
				return printWorkOrders(items)
			})
		},
	}
}

func certCmd() *cobra.Command {
	c := &cobra.Command{Use: "cert", Short: "Fitness certificates"}
	c.AddCommand(certAddCmd())
	c.AddCommand(certListCmd())
	c.AddCommand(certRevokeCmd())
	c.AddCommand(certExpireCmd())
	c.AddCommand(certExpiringCmd())
	c.AddCommand(certStatusCmd())
	return c
}

func certAddCmd() *cobra.Command {
	var (
		rec                     domain.CertificateRecord
		certDomain, issued, exp string
	)
	cmd := &cobra.Command{
		Use:   "add <train>",
		Short: "Record a certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if rec.IssueDate, err = parseDayFlag("issued", issued); err != nil {
				return err
			}
			if rec.ExpiryDate, err = parseDayFlag("expires", exp); err != nil {
				return err
			}
			rec.TrainID = args[0]
			rec.Domain = domain.CertDomain(strings.ToUpper(certDomain))
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				out, err := e.AddCertificate(ctx, rec, actor())
				if err != nil {
					return err
				}
				return printJSONOrTable(out)
			})
		},
	}
	cmd.Flags().StringVar(&certDomain, "domain", "", "ROLLING_STOCK|SIGNALLING|TELECOM")
	cmd.Flags().StringVar(&rec.Number, "number", "", "certificate number")
	cmd.Flags().StringVar(&issued, "issued", "", "issue date (YYYY-MM-DD, defaults to today)")
	cmd.Flags().StringVar(&exp, "expires", "", "expiry date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&rec.IssuedBy, "issued-by", "", "issuing authority")
	_ = cmd.MarkFlagRequired("domain")
	_ = cmd.MarkFlagRequired("expires")
	return cmd
}

func printCertificates(items []domain.CertificateRecord) error {
	rows := make([]table.Row, 0, len(items))
	for _, c := range items {
		rows = append(rows, table.Row{c.ID, c.TrainID, c.Domain, c.Status, fmtDay(c.IssueDate), fmtDay(c.ExpiryDate), c.IssuedBy})
	}
	return printRows(items, table.Row{"ID", "Train", "Domain", "Status", "Issued", "Expires", "Issued by"}, rows)
}

func certListCmd() *cobra.Command {
	var trainID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List certificates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var (
					items []domain.CertificateRecord
					err   error
				)
				if trainID != "" {
					items, err = e.Repo.CertificatesForTrain(ctx, trainID)
				} else {
					items, err = e.Repo.ListCertificates(ctx)
				}
				if err != nil {
					return err
				}
				return printCertificates(items)
			})
		},
	}
	cmd.Flags().StringVar(&trainID, "train", "", "train filter")
	return cmd
}

func certRevokeCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke a certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.RevokeCertificate(ctx, args[0], reason, actor())
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "revocation reason")
	return cmd
}

func certExpireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expire",
		Short: "Mark lapsed certificates EXPIRED",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ids, err := e.ExpireCertificates(ctx, actor())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"expired": ids})
				}
				fmt.Printf("expired %d certificate(s)\n", len(ids))
				for _, id := range ids {
					fmt.Println("  " + id)
				}
				return nil
			})
		},
	}
}

func certExpiringCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "expiring",
		Short: "Valid certificates expiring within the window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ExpiringCertificates(ctx, days)
				if err != nil {
					return err
				}
				return printCertificates(items)
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "window in days (defaults to config)")
	return cmd
}

func certStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <train>",
		Short: "Certification level of a train",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rep, err := e.CertificationStatus(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(rep)
			})
		},
	}
}

func contractCmd() *cobra.Command {
	c := &cobra.Command{Use: "contract", Short: "Branding contracts"}
	c.AddCommand(contractAddCmd())
	c.AddCommand(contractListCmd())
	c.AddCommand(contractReportCmd())
	c.AddCommand(contractAtRiskCmd())
	return c
}

func contractAddCmd() *cobra.Command {
	var (
		c          domain.BrandingContract
		start, end string
	)
	cmd := &cobra.Command{
		Use:   "add <advertiser>",
		Short: "Record a contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if c.StartDate, err = parseDayFlag("start", start); err != nil {
				return err
			}
			if c.EndDate, err = parseDayFlag("end", end); err != nil {
				return err
			}
			c.Advertiser = args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				out, err := e.CreateContract(ctx, c, actor())
				if err != nil {
					return err
				}
				return printJSONOrTable(out)
			})
		},
	}
	cmd.Flags().StringVar(&c.ID, "id", "", "contract id (generated when empty)")
	cmd.Flags().StringVar(&start, "start", "", "first day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "last day (YYYY-MM-DD)")
	cmd.Flags().IntVar(&c.RequiredHours, "hours", 0, "required exposure hours")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func contractListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List contracts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListContracts(ctx)
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(items))
				for _, c := range items {
					rows = append(rows, table.Row{c.ID, c.Advertiser, c.Status, fmtDay(c.StartDate), fmtDay(c.EndDate), c.RequiredHours})
				}
				return printRows(items, table.Row{"ID", "Advertiser", "Status", "Start", "End", "Hours"}, rows)
			})
		},
	}
}

func contractReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report <id>",
		Short: "Exposure progress for a contract",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rep, err := e.ContractReport(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(rep)
			})
		},
	}
}

func contractAtRiskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "at-risk",
		Short: "Current contracts behind on exposure",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ContractsAtRisk(ctx)
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(items))
				for _, r := range items {
					rows = append(rows, table.Row{r.ContractID, r.Advertiser, r.TotalHoursExposed, r.RequiredHours, fmt.Sprintf("%.1f%%", r.CompletionPercent), r.Trains})
				}
				return printRows(items, table.Row{"Contract", "Advertiser", "Exposed", "Required", "Complete", "Trains"}, rows)
			})
		},
	}
}

func brandingCmd() *cobra.Command {
	b := &cobra.Command{Use: "branding", Short: "Train wraps"}
	b.AddCommand(brandingAssignCmd())
	b.AddCommand(brandingStatusCmd())
	return b
}

func brandingAssignCmd() *cobra.Command {
	var on string
	cmd := &cobra.Command{
		Use:   "assign <train> <contract>",
		Short: "Wrap a train for a contract",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDayFlag("on", on)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.AssignBranding(ctx, args[0], args[1], day, actor())
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
	cmd.Flags().StringVar(&on, "on", "", "assignment date (YYYY-MM-DD, defaults to today)")
	return cmd
}

func brandingStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <assignment> <status>",
		Short: "Pause, complete or remove an assignment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.SetAssignmentStatus(ctx, args[0], domain.AssignmentStatus(strings.ToUpper(args[1])), actor())
				if err != nil {
					return err
				}
				return printJSONOrTable(a)
			})
		},
	}
}

func tripCmd() *cobra.Command {
	t := &cobra.Command{Use: "trip", Short: "Revenue trips"}
	t.AddCommand(tripLogCmd())
	t.AddCommand(tripListCmd())
	return t
}

func tripLogCmd() *cobra.Command {
	var (
		trip       domain.TripRecord
		start, end string
	)
	cmd := &cobra.Command{
		Use:   "log <train>",
		Short: "Log a completed trip and accrue it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := parseTimeFlag("start", start)
			if err != nil {
				return err
			}
			en, err := parseTimeFlag("end", end)
			if err != nil {
				return err
			}
			if s == nil || en == nil {
				return errors.New("--start and --end are required")
			}
			trip.TrainID = args[0]
			trip.StartTime, trip.EndTime = *s, *en
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				logged, sum, err := e.LogTrip(ctx, trip, actor())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"trip": logged, "accrual": sum})
				}
				fmt.Printf("logged %s: %s\n", logged.ID, sum.Message)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&trip.ID, "id", "", "trip id (generated when empty)")
	cmd.Flags().StringVar(&trip.RouteID, "route", "", "route id")
	cmd.Flags().StringVar(&start, "start", "", "departure (RFC 3339)")
	cmd.Flags().StringVar(&end, "end", "", "arrival (RFC 3339)")
	cmd.Flags().Float64Var(&trip.Mileage, "km", 0, "distance run")
	cmd.Flags().Float64Var(&trip.LoadFactor, "load", 0, "load factor in [0,1]")
	return cmd
}

func tripListCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Trips started on a day",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				day, err := dayOrToday(e, "date", date)
				if err != nil {
					return err
				}
				items, err := e.Repo.TripsOn(ctx, day)
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(items))
				for _, t := range items {
					rows = append(rows, table.Row{t.ID, t.TrainID, t.RouteID, t.StartTime.Format(time.RFC3339), t.DurationMinutes(), t.Mileage, t.LoadFactor, fmtTime(t.AccruedAt)})
				}
				return printRows(items, table.Row{"ID", "Train", "Route", "Start", "Minutes", "Km", "Load", "Accrued"}, rows)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day (YYYY-MM-DD, defaults to today)")
	return cmd
}

func accrualCmd() *cobra.Command {
	a := &cobra.Command{Use: "accrual", Short: "Daily mileage and exposure accrual"}
	a.AddCommand(accrualRunCmd())
	return a
}

func accrualRunCmd() *cobra.Command {
	var trainID, date, tripsFile string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Roll a day's trips into odometers and branding exposure",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				day, err := dayOrToday(e, "date", date)
				if err != nil {
					return err
				}
				var (
					sums   []accrual.Summary
					runErr error
				)
				if tripsFile != "" {
					if trainID == "" {
						return errors.New("--trips-file requires --train")
					}
					trips, err := readTripsFile(tripsFile, trainID)
					if err != nil {
						return err
					}
					sum, err := e.AccrueTrips(ctx, trainID, trips, actor())
					if err != nil {
						return err
					}
					sums = []accrual.Summary{sum}
				} else if trainID != "" {
					sum, err := e.RunDailyAccrual(ctx, trainID, day, actor())
					if err != nil {
						return err
					}
					sums = []accrual.Summary{sum}
				} else {
					sums, runErr = e.RunDailyAccrualAll(ctx, day, actor())
				}
				rows := make([]table.Row, 0, len(sums))
				for _, s := range sums {
					rows = append(rows, table.Row{s.TrainID, s.TripCount, fmt.Sprintf("%.1f", s.MileageAdded), fmt.Sprintf("%.1f", s.NewOdometer), s.AssignmentsUpdated, s.SkippedTrips})
				}
				if err := printRows(sums, table.Row{"Train", "Trips", "Km", "Odometer", "Assignments", "Skipped"}, rows); err != nil {
					return err
				}
				return runErr
			})
		},
	}
	cmd.Flags().StringVar(&trainID, "train", "", "single train (defaults to the whole fleet)")
	cmd.Flags().StringVar(&date, "date", "", "day (YYYY-MM-DD, defaults to today)")
	cmd.Flags().StringVar(&tripsFile, "trips-file", "", "accrue an explicit JSON array of trips for --train instead of the logged ones")
	return cmd
}

// readTripsFile decodes a JSON array of trips; entries without train_id belong to trainID.
func readTripsFile(path, trainID string) ([]domain.TripRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var trips []domain.TripRecord
	if err := json.Unmarshal(data, &trips); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for i := range trips {
		if trips[i].TrainID == "" {
			trips[i].TrainID = trainID
		}
		trips[i].AccruedAt = nil
	}
	return trips, nil
}

func mileageCmd() *cobra.Command {
	m := &cobra.Command{Use: "mileage", Short: "Fleet mileage"}
	var date string
	summary := &cobra.Command{
		Use:   "summary",
		Short: "Mileage logged on a day",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				day, err := dayOrToday(e, "date", date)
				if err != nil {
					return err
				}
				sum, err := e.DailyMileageSummary(ctx, day)
				if err != nil {
					return err
				}
				return printJSONOrTable(sum)
			})
		},
	}
	summary.Flags().StringVar(&date, "date", "", "day (YYYY-MM-DD, defaults to today)")
	m.AddCommand(summary)
	return m
}

func cleaningCmd() *cobra.Command {
	c := &cobra.Command{Use: "cleaning", Short: "Cleaning schedule"}
	c.AddCommand(cleaningScheduleCmd())
	c.AddCommand(cleaningCompleteCmd())
	c.AddCommand(cleaningListCmd())
	return c
}

func printCleaning(items []domain.CleaningTask) error {
	rows := make([]table.Row, 0, len(items))
	for _, c := range items {
		rows = append(rows, table.Row{c.ID, c.TrainID, c.Team, c.Status, c.ScheduledStart.Format(time.RFC3339), c.ScheduledEnd.Format(time.RFC3339)})
	}
	return printRows(items, table.Row{"ID", "Train", "Team", "Status", "Start", "End"}, rows)
}

func cleaningScheduleCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Book slots for trains due for cleaning",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				day, err := dayOrToday(e, "date", date)
				if err != nil {
					return err
				}
				items, err := e.ScheduleCleaning(ctx, day, actor())
				if err != nil {
					return err
				}
				return printCleaning(items)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day (YYYY-MM-DD, defaults to today)")
	return cmd
}

func cleaningCompleteCmd() *cobra.Command {
	var remarks string
	cmd := &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark a cleaning task done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.CompleteCleaning(ctx, args[0], remarks, actor())
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&remarks, "remarks", "", "notes")
	return cmd
}

func cleaningListCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Cleaning tasks for a day",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				day, err := dayOrToday(e, "date", date)
				if err != nil {
					return err
				}
				items, err := e.CleaningSchedule(ctx, day)
				if err != nil {
					return err
				}
				return printCleaning(items)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day (YYYY-MM-DD, defaults to today)")
	return cmd
}
