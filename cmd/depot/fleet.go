package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"depotplan/internal/app"
	"depotplan/internal/config"
	"depotplan/internal/domain"
	"depotplan/internal/engine"
	"depotplan/internal/logger"
	"depotplan/internal/metrics"
	"depotplan/internal/report"
	"depotplan/internal/server"
)

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Depot config",
		Long:  "depotplan.yml in the workspace holds readiness policy, at-risk threshold, stabling options, accrual and cleaning settings.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default depotplan.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !viper.GetBool("force") {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if name == "" {
				name = viper.GetString("depot")
			}
			if name == "" {
				name = filepath.Base(mustAbs(viper.GetString("workspace")))
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(name)), 0o644); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "depot name")
	return cmd
}

func mustAbs(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved config",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := openOptions()
			cfg, err := app.ResolveConfig(opts.Workspace, opts.ConfigPath, opts.Depot)
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			out, err := cfg.ToYAML()
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
}

func trainCmd() *cobra.Command {
	tr := &cobra.Command{Use: "train", Short: "Manage the fleet registry"}
	tr.AddCommand(trainAddCmd())
	tr.AddCommand(trainListCmd())
	tr.AddCommand(trainShowCmd())
	tr.AddCommand(trainStatusCmd())
	tr.AddCommand(trainReadinessCmd())
	return tr
}

func trainAddCmd() *cobra.Command {
	var (
		t                   domain.Train
		status, lastCleaned string
		odometer, lastMaint float64
	)
	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Register a train",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t.ID = args[0]
			t.Status = domain.TrainStatus(strings.ToUpper(status))
			t.CurrentOdometer = optionalFloat(cmd, "odometer", odometer)
			t.OdometerAtLastMaintenance = optionalFloat(cmd, "last-maintenance", lastMaint)
			cleaned, err := parseTimeFlag("last-cleaning", lastCleaned)
			if err != nil {
				return err
			}
			t.LastCleaning = cleaned
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				out, err := e.CreateTrain(ctx, t, actor())
				if err != nil {
					return err
				}
				return printJSONOrTable(out)
			})
		},
	}
	cmd.Flags().StringVar(&t.Number, "number", "", "display number (defaults to id)")
	cmd.Flags().StringVar(&status, "status", "", "ACTIVE|MAINTENANCE|STANDBY|DECOMMISSIONED")
	cmd.Flags().Float64Var(&odometer, "odometer", 0, "current odometer (km)")
	cmd.Flags().Float64Var(&lastMaint, "last-maintenance", 0, "odometer at last maintenance (km)")
	cmd.Flags().Float64Var(&t.MaintenanceInterval, "interval", 0, "maintenance interval (km)")
	cmd.Flags().StringVar(&lastCleaned, "last-cleaning", "", "last cleaning time (RFC 3339)")
	cmd.Flags().IntVar(&t.CleaningPeriodHours, "cleaning-period", 0, "cleaning period (hours)")
	cmd.Flags().Float64Var(&t.DailyMaxMileage, "daily-max", 0, "daily mileage ceiling (km)")
	return cmd
}

func trainListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List trains",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var (
					trains []domain.Train
					err    error
				)
				if status != "" {
					trains, err = e.Repo.TrainsByStatus(ctx, domain.TrainStatus(strings.ToUpper(status)))
				} else {
					trains, err = e.Repo.ListTrains(ctx)
				}
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(trains))
				for _, t := range trains {
					rows = append(rows, table.Row{t.ID, t.Number, t.Status, fmtFloat(t.CurrentOdometer), fmtFloat(t.OdometerAtLastMaintenance), t.MaintenanceInterval, fmtTime(t.LastCleaning)})
				}
				return printRows(trains, table.Row{"ID", "Number", "Status", "Odometer", "Last maint.", "Interval", "Last cleaning"}, rows)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	return cmd
}

func trainShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a train",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.Repo.GetTrain(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
}

func trainStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Change a train's operational status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.SetTrainStatus(ctx, args[0], domain.TrainStatus(strings.ToUpper(args[1])), actor())
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
}

func trainReadinessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "readiness [id]",
		Short: "Evaluate one train, or the whole fleet",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var statuses []engine.TrainStatus
				if len(args) == 1 {
					st, err := e.Readiness(ctx, args[0])
					if err != nil {
						return err
					}
					statuses = []engine.TrainStatus{st}
				} else {
					all, err := e.Sweep(ctx)
					if err != nil {
						return err
					}
					statuses = all
				}
				return printRows(statuses, statusHeader(), statusRows(statuses))
			})
		},
	}
}

func statusHeader() table.Row {
	return table.Row{"Train", "Status", "Ready", "Score", "Branding", "Balance (km)", "Cert", "Bay", "Reasons"}
}

func statusRows(items []engine.TrainStatus) []table.Row {
	rows := make([]table.Row, 0, len(items))
	for _, st := range items {
		rows = append(rows, table.Row{
			st.Train.ID,
			st.Train.Status,
			st.Readiness.Ready,
			st.Priority.Score,
			st.Priority.Urgency.String(),
			fmt.Sprintf("%.1f", st.Readiness.MileageBalance),
			st.Certification,
			st.Bay,
			strings.Join(st.Readiness.Reasons.Strings(), " "),
		})
	}
	return rows
}

func bayCmd() *cobra.Command {
	b := &cobra.Command{Use: "bay", Short: "Manage stabling bays"}
	b.AddCommand(bayAddCmd())
	b.AddCommand(bayListCmd())
	b.AddCommand(bayAssignCmd())
	b.AddCommand(bayReleaseCmd())
	return b
}

func bayAddCmd() *cobra.Command {
	var (
		b      domain.StablingBay
		status string
		depth  int
	)
	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Register a bay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b.ID = args[0]
			b.Status = domain.BayStatus(strings.ToUpper(status))
			b.ShuntingDepth = optionalInt(cmd, "depth", depth)
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				out, err := e.CreateBay(ctx, b, actor())
				if err != nil {
					return err
				}
				return printJSONOrTable(out)
			})
		},
	}
	cmd.Flags().StringVar(&b.TrackID, "track", "", "track id")
	cmd.Flags().IntVar(&b.Position, "position", 0, "position on track")
	cmd.Flags().IntVar(&depth, "depth", 0, "shunting depth")
	cmd.Flags().StringVar(&status, "status", "", "AVAILABLE|MAINTENANCE")
	return cmd
}

func bayListCmd() *cobra.Command {
	var available bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List bays",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var (
					bays []domain.StablingBay
					err  error
				)
				if available {
					bays, err = e.Repo.AvailableBays(ctx)
				} else {
					bays, err = e.Repo.ListBays(ctx)
				}
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(bays))
				for _, b := range bays {
					occupant := ""
					if b.TrainID != nil {
						occupant = *b.TrainID
					}
					rows = append(rows, table.Row{b.ID, b.TrackID, b.Position, b.Depth(), b.Status, occupant, fmtTime(b.ReservedUntil)})
				}
				return printRows(bays, table.Row{"ID", "Track", "Position", "Depth", "Status", "Train", "Reserved until"}, rows)
			})
		},
	}
	cmd.Flags().BoolVar(&available, "available", false, "only free bays, shallowest first")
	return cmd
}

func bayAssignCmd() *cobra.Command {
	var until string
	cmd := &cobra.Command{
		Use:   "assign <bay> <train>",
		Short: "Stable a train in a bay",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reserved, err := parseTimeFlag("until", until)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				b, err := e.AssignBay(ctx, args[0], args[1], reserved, actor())
				if err != nil {
					return err
				}
				return printJSONOrTable(b)
			})
		},
	}
	cmd.Flags().StringVar(&until, "until", "", "reservation end (RFC 3339)")
	return cmd
}

func bayReleaseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "release <bay>",
		Short: "Free a bay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				b, err := e.ReleaseBay(ctx, args[0], actor())
				if err != nil {
					return err
				}
				return printJSONOrTable(b)
			})
		},
	}
}

func planCmd() *cobra.Command {
	p := &cobra.Command{
		Use:   "plan",
		Short: "Induction plan",
		Long:  "Evaluates every train, ranks the ready ones by priority score and proposes stabling for the rest. Building a plan changes nothing.",
	}
	p.AddCommand(planShowCmd())
	p.AddCommand(planExportCmd())
	p.AddCommand(planStablingCmd())
	return p
}

func planShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print tonight's induction plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				plan, err := e.Plan(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(plan)
				}
				fmt.Printf("Depot %s, %s\n", plan.Depot, plan.GeneratedAt.Format(time.RFC3339))
				fmt.Printf("Trains %d, ready %d, blocked %d, in maintenance %d\n", plan.TotalTrains, plan.ReadyTrains, plan.BlockedTrains, plan.InMaintenance)
				fmt.Printf("Average score %.1f, average mileage balance %.1f km\n", plan.AverageScore, plan.AverageMileageBalance)
				if len(plan.CleaningDue) > 0 {
					fmt.Printf("Cleaning due: %s\n", strings.Join(plan.CleaningDue, ", "))
				}
				fmt.Println("\nRecommended for service:")
				if err := printRows(nil, statusHeader(), statusRows(plan.Recommended)); err != nil {
					return err
				}
				fmt.Println("\nBlocked:")
				if err := printRows(nil, statusHeader(), statusRows(plan.Blocked)); err != nil {
					return err
				}
				sp := plan.Stabling
				fmt.Printf("\nStabling: %d bays for %d trains, %d shunting moves (%s)\n", sp.AvailableBays, sp.EligibleTrains, sp.TotalShuntingMoves, sp.Variant)
				rows := make([]table.Row, 0, len(sp.Pairings))
				for _, pr := range sp.Pairings {
					rows = append(rows, table.Row{pr.TrainID, pr.BayID, pr.ShuntingDepth})
				}
				return printRows(nil, table.Row{"Train", "Bay", "Depth"}, rows)
			})
		},
	}
}

func planStablingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stabling",
		Short: "Pair stabling candidates with free bays",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				sp, err := e.StablingPlan(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(sp)
			})
		},
	}
}

func planExportCmd() *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the induction plan as xlsx or pdf",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				plan, err := e.Plan(ctx)
				if err != nil {
					return err
				}
				data, err := report.Build(plan, f)
				if err != nil {
					return err
				}
				if out == "" {
					out = f.Filename(plan)
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return err
				}
				fmt.Printf("wrote %s (%d bytes)\n", out, len(data))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "xlsx", "xlsx|pdf")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file")
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "Every mutation appends an event in the same transaction: train registrations, work-order transitions, bay moves, accrual runs and more.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				evts, err := e.LatestEvents(ctx, n, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				rows := make([]table.Row, 0, len(evts))
				for _, ev := range evts {
					rows = append(rows, table.Row{ev.ID, ev.TS, ev.Type, ev.EntityKind, ev.EntityID, ev.ActorID})
				}
				return printRows(evts, table.Row{"ID", "TS", "Type", "Kind", "Entity", "Actor"}, rows)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			rec, err := metrics.NewWithRegistry(reg)
			if err != nil {
				return err
			}
			opts := openOptions()
			opts.Metrics = rec
			e, conn, err := app.OpenEngine(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer conn.Close()
			log := logger.New("server")
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Log: log, Gatherer: reg})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			log.Info().Str("addr", addr).Str("base_path", basePath).Str("depot", e.Config.Depot.Name).Msg("serving depot planning API")
			fmt.Printf("Serving depot planning API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs, metrics at /metrics)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	return cmd
}
