package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"depotplan/internal/app"
	"depotplan/internal/db"
	"depotplan/internal/domain"
	"depotplan/internal/engine"
)

var rootCmd = &cobra.Command{
	Use:   "depot",
	Short: "Depot induction planning CLI",
	Long: `depot decides each night which trains go into revenue service, which stay
back for maintenance, and where the rest are stabled.

- Trains carry odometer, maintenance interval and cleaning timers.
- Work orders, fitness certificates and branding contracts are the ledgers a
  train is judged against.
- 'depot plan show' evaluates every train, ranks the ready ones and pairs
  stabling candidates with the shallowest free bays.
- 'depot trip log' and 'depot accrual run' roll service mileage into odometers
  and branding exposure.
- Every change lands in the event log; read it with 'depot log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("DEPOTPLAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().String("config", "", "config file (defaults to <workspace>/depotplan.yml)")
	rootCmd.PersistentFlags().String("depot", "", "depot name (overrides config)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().Bool("force", false, "force operation")
	for _, name := range []string{"workspace", "config", "depot", "json", "actor-id", "force"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(trainCmd())
	rootCmd.AddCommand(bayCmd())
	rootCmd.AddCommand(workOrderCmd())
	rootCmd.AddCommand(certCmd())
	rootCmd.AddCommand(contractCmd())
	rootCmd.AddCommand(brandingCmd())
	rootCmd.AddCommand(tripCmd())
	rootCmd.AddCommand(accrualCmd())
	rootCmd.AddCommand(mileageCmd())
	rootCmd.AddCommand(cleaningCmd())
	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

// --- helpers ---

func openOptions() app.Options {
	return app.Options{
		Workspace:  viper.GetString("workspace"),
		ConfigPath: viper.GetString("config"),
		Depot:      viper.GetString("depot"),
	}
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	e, conn, err := app.OpenEngine(ctx, openOptions())
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(ctx, e)
}

func actor() string { return viper.GetString("actor-id") }

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printRows renders rows as a table, or v as JSON under --json.
func printRows(v any, header table.Row, rows []table.Row) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(header)
	for _, r := range rows {
		tw.AppendRow(r)
	}
	tw.Render()
	return nil
}

// parseDayFlag parses YYYY-MM-DD, returning the zero time for "".
func parseDayFlag(name, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := domain.ParseDay(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return d, nil
}

func dayOrToday(e engine.Engine, name, s string) (time.Time, error) {
	d, err := parseDayFlag(name, s)
	if err != nil || !d.IsZero() {
		return d, err
	}
	return e.Today(), nil
}

func parseTimeFlag(name, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &t, nil
}

func optionalFloat(cmd *cobra.Command, name string, v float64) *float64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}

func optionalInt(cmd *cobra.Command, name string, v int) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}

func fmtTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func fmtFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.1f", *v)
}

func fmtDay(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(domain.DateLayout)
}
