package app

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"depotplan/internal/config"
	"depotplan/internal/db"
	"depotplan/internal/engine"
	"depotplan/internal/metrics"
	"depotplan/internal/migrate"
)

// ResolveConfig picks the active config. An explicit path wins, then the
// workspace depotplan.yml, then the built-in defaults. depotOverride renames the
// depot when set.
func ResolveConfig(workspace, configPath, depotOverride string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case configPath != "":
		cfg, err = config.FromFile(configPath)
	default:
		cfg, err = config.LoadOptional(workspace)
	}
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		name := depotOverride
		if name == "" {
			name = defaultDepotName()
		}
		cfg = config.Default(name)
	}
	if depotOverride != "" {
		cfg.Depot.Name = depotOverride
	}
	return cfg, nil
}

func defaultDepotName() string {
	if name := os.Getenv("DEPOTPLAN_DEPOT"); name != "" {
		return name
	}
	return "depot"
}

// Options select the workspace and config for OpenEngine.
type Options struct {
	Workspace     string
	ConfigPath    string
	Depot         string
	BusyTimeoutMS int
	// Metrics, when set, is attached to the engine.
	Metrics *metrics.Recorder
}

// OpenEngine opens and migrates the workspace database and builds an engine
// over it. The caller closes the returned DB.
func OpenEngine(ctx context.Context, opts Options) (engine.Engine, *sql.DB, error) {
	cfg, err := ResolveConfig(opts.Workspace, opts.ConfigPath, opts.Depot)
	if err != nil {
		return engine.Engine{}, nil, err
	}
	conn, err := db.Open(db.Config{Workspace: opts.Workspace, BusyTimeoutMS: opts.BusyTimeoutMS})
	if err != nil {
		return engine.Engine{}, nil, err
	}
	if _, err := migrate.MigrateContext(ctx, conn); err != nil {
		conn.Close()
		return engine.Engine{}, nil, fmt.Errorf("migrate: %w", err)
	}
	eng := engine.New(conn, cfg)
	eng.Metrics = opts.Metrics
	return eng, conn, nil
}
