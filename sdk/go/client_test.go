package depotsdk

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depotplan/internal/config"
	"depotplan/internal/db"
	"depotplan/internal/engine"
	"depotplan/internal/logger"
	"depotplan/internal/migrate"
	"depotplan/internal/server"
)

var testNow = time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

func newClient(t *testing.T) *Client {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	e := engine.New(conn, config.Default("muttom"))
	e.Log = logger.Nop()
	e.Now = func() time.Time { return testNow }
	handler, err := server.New(server.Config{Engine: e, Log: logger.Nop(), Gatherer: prometheus.NewRegistry()})
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, "sdk-test")
}

func odo(v float64) *float64 { return &v }

func TestClientRoundTrip(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	tr, err := c.CreateTrain(ctx, Train{ID: "T-01", CurrentOdometer: odo(10500)})
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", tr.Status)

	_, err = c.CreateTrain(ctx, Train{ID: "T-01"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "conflict", apiErr.Code)

	sum, err := c.LogTrip(ctx, Trip{
		TrainID:   "T-01",
		StartTime: testNow.Add(-3 * time.Hour),
		EndTime:   testNow.Add(-2 * time.Hour),
		Mileage:   40,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.TripCount)
	assert.InDelta(t, 10540, sum.NewOdometer, 1e-9)

	run, err := c.RunAccrual(ctx, "", "2024-03-10")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10", run.Date)
	require.Len(t, run.Summaries, 1)
	assert.Empty(t, run.Error)

	st, err := c.Readiness(ctx, "T-01")
	require.NoError(t, err)
	assert.Equal(t, "T-01", st.Train.ID)

	plan, err := c.Plan(ctx)
	require.NoError(t, err)
	assert.Equal(t, "muttom", plan.Depot)
	assert.Equal(t, 1, plan.TotalTrains)

	evts, err := c.Events(ctx, 10, "train", "T-01")
	require.NoError(t, err)
	require.NotEmpty(t, evts)
	for _, ev := range evts {
		assert.Equal(t, "sdk-test", ev.ActorID)
	}
}

func TestClientBays(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()
	_, err := c.CreateTrain(ctx, Train{ID: "T-01"})
	require.NoError(t, err)

	_, err = c.AssignBay(ctx, "B9", "T-01")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)

	_, err = c.ReleaseBay(ctx, "B9")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "not_found", apiErr.Code)
}
