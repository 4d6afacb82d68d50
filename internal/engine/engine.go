// Package engine orchestrates the ledgers and the planning core. Every mutating
// operation runs in one SQLite transaction and appends its audit event there.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"depotplan/internal/config"
	"depotplan/internal/domain"
	"depotplan/internal/events"
	"depotplan/internal/logger"
	"depotplan/internal/metrics"
	"depotplan/internal/repo"
)

type Engine struct {
	DB      *sql.DB
	Repo    repo.Repo
	Events  events.Writer
	Config  *config.Config
	Log     zerolog.Logger
	Metrics *metrics.Recorder
	Now     func() time.Time

	locks *keyedMutex
}

// New builds an engine over db. A nil cfg falls back to the default config.
func New(db *sql.DB, cfg *config.Config) Engine {
	if cfg == nil {
		cfg = config.Default("depot")
	}
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Config: cfg,
		Log:    logger.New("engine"),
		Now:    time.Now,
		locks:  newKeyedMutex(),
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

// Today is the engine clock truncated to a calendar day.
func (e Engine) Today() time.Time { return domain.Day(e.now()) }

// inTx runs fn inside a transaction with a Repo bound to it.
func (e Engine) inTx(ctx context.Context, fn func(tx *sql.Tx, r repo.Repo) error) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx, e.Repo.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) appendEvent(ctx context.Context, tx *sql.Tx, evtType, entityKind, entityID, actorID string, payload events.EventPayload) error {
	w := e.Events
	if w.Now == nil {
		w.Now = e.now
	}
	return w.Append(ctx, tx, evtType, entityKind, entityID, actorID, payload)
}

func (e Engine) lock(keys ...string) func() {
	if e.locks == nil {
		return func() {}
	}
	return e.locks.Lock(keys...)
}

func trainKey(id string) string { return "train:" + id }

func bayKey(id string) string { return "bay:" + id }

// newID returns prefix followed by a short random suffix.
func newID(prefix string) string {
	return prefix + "-" + strings.ToUpper(uuid.NewString()[:8])
}

func invalid(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, domain.ErrInvalidInput)...)
}

func conflict(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, domain.ErrConflict)...)
}

// LatestEvents returns the newest audit events, optionally filtered.
func (e Engine) LatestEvents(ctx context.Context, limit int, evtType, entityKind, entityID string) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	return e.Repo.LatestEvents(ctx, limit, evtType, entityKind, entityID)
}
