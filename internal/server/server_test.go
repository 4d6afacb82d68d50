package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"depotplan/internal/accrual"
	"depotplan/internal/config"
	"depotplan/internal/db"
	"depotplan/internal/domain"
	"depotplan/internal/engine"
	"depotplan/internal/logger"
	"depotplan/internal/metrics"
	"depotplan/internal/migrate"
)

var testNow = time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	reg := prometheus.NewRegistry()
	rec, err := metrics.NewWithRegistry(reg)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	e := engine.New(conn, config.Default("muttom"))
	e.Log = logger.Nop()
	e.Now = func() time.Time { return testNow }
	e.Metrics = rec
	handler, err := New(Config{Engine: e, BasePath: "/v1", Log: logger.Nop(), Gatherer: reg})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func createTrain(t *testing.T, srv *testServer, id string) domain.Train {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/trains", map[string]any{
		"id":                           id,
		"current_odometer":             10500,
		"odometer_at_last_maintenance": 10000,
		"last_cleaning":                testNow.Add(-2 * time.Hour).Format(time.RFC3339),
	}, nil)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	var tr domain.Train
	require.NoError(t, json.Unmarshal(data, &tr))
	return tr
}

func decodeError(t *testing.T, data []byte) apiErrorBody {
	t.Helper()
	var env struct {
		Error apiErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(data, &env), string(data))
	return env.Error
}

func TestHealth(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/health", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(data))
}

func TestCreateTrainAndReadiness(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	tr := createTrain(t, srv, "T-01")
	assert.Equal(t, domain.TrainActive, tr.Status)
	assert.Equal(t, "muttom", tr.Depot)

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/trains", map[string]any{"id": "T-01"}, nil)
	require.Equal(t, http.StatusConflict, res.StatusCode, string(data))
	assert.Equal(t, "conflict", decodeError(t, data).Code)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/trains/T-99", nil, nil)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "not_found", decodeError(t, data).Code)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/trains/T-01/readiness", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	var st struct {
		Readiness struct {
			Ready   bool     `json:"ready"`
			Reasons []string `json:"reasons"`
		} `json:"readiness"`
	}
	require.NoError(t, json.Unmarshal(data, &st))
	assert.True(t, st.Readiness.Ready)
	assert.Empty(t, st.Readiness.Reasons)
}

func TestWorkOrderBlocksReadiness(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	createTrain(t, srv, "T-01")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/work-orders", map[string]any{
		"train_id": "T-01",
		"summary":  "Brake pad wear",
		"priority": "HIGH",
	}, nil)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	var wo domain.WorkOrder
	require.NoError(t, json.Unmarshal(data, &wo))

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/work-orders/"+wo.ID+"/transition", map[string]any{
		"status": "CLOSED",
	}, nil)
	require.Equal(t, http.StatusConflict, res.StatusCode, string(data))

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/work-orders/"+wo.ID+"/transition", map[string]any{
		"status":      "IN_PROGRESS",
		"assigned_to": "crew-a",
	}, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/trains/T-01", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var tr domain.Train
	require.NoError(t, json.Unmarshal(data, &tr))
	assert.Equal(t, domain.TrainMaintenance, tr.Status)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/trains/T-01/readiness", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(data), "OPEN_WORK")
}

func TestPlanAndExport(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	createTrain(t, srv, "T-01")
	createTrain(t, srv, "T-02")

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v1/plan", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	var plan engine.InductionPlan
	require.NoError(t, json.Unmarshal(data, &plan))
	assert.Equal(t, "muttom", plan.Depot)
	assert.Equal(t, 2, plan.TotalTrains)
	assert.Equal(t, 2, plan.ReadyTrains)
	assert.Len(t, plan.Recommended, 2)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/plan/export?format=pdf", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Equal(t, "application/pdf", res.Header.Get("Content-Type"))
	assert.Contains(t, res.Header.Get("Content-Disposition"), "induction-plan-muttom-20240310.pdf")
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v1/plan/export?format=csv", nil, nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/metrics", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(data), "depotplan_trains_ready 2")
}

func TestBayConflictAndActorHeader(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	createTrain(t, srv, "T-01")
	createTrain(t, srv, "T-02")
	yard := map[string]string{ActorHeader: "yard-1"}

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/bays", map[string]any{
		"id":             "B1",
		"track_id":       "TR-1",
		"shunting_depth": 2,
	}, yard)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/bays/B1/assign", map[string]any{"train_id": "T-01"}, yard)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	var bay domain.StablingBay
	require.NoError(t, json.Unmarshal(data, &bay))
	assert.Equal(t, domain.BayOccupied, bay.Status)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/bays/B1/assign", map[string]any{"train_id": "T-02"}, yard)
	require.Equal(t, http.StatusConflict, res.StatusCode, string(data))

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/bays/B1/release", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/events?entity_kind=bay&entity_id=B1", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	var evts []domain.Event
	require.NoError(t, json.Unmarshal(data, &evts))
	require.Len(t, evts, 3)
	actors := map[string]string{}
	for _, e := range evts {
		actors[e.Type] = e.ActorID
	}
	assert.Equal(t, "yard-1", actors["bay.assigned"])
	assert.Equal(t, "api", actors["bay.released"])
}

func TestLogTripAndMileageSummary(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	createTrain(t, srv, "T-01")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/trips", map[string]any{
		"train_id":    "T-01",
		"route_id":    "R-ALUVA",
		"start_time":  "2024-03-10T05:00:00Z",
		"end_time":    "2024-03-10T06:00:00Z",
		"mileage":     42.5,
		"load_factor": 0.6,
	}, nil)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	var logged LogTripResponse
	require.NoError(t, json.Unmarshal(data, &logged))
	assert.InDelta(t, 10542.5, logged.Accrual.NewOdometer, 1e-9)
	assert.Equal(t, 1, logged.Accrual.TripCount)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/trips", map[string]any{
		"train_id":   "T-01",
		"start_time": "2024-03-10T07:00:00Z",
		"end_time":   "2024-03-10T06:00:00Z",
		"mileage":    10,
	}, nil)
	require.Equal(t, http.StatusBadRequest, res.StatusCode, string(data))

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/mileage/summary?date=2024-03-10", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	var sum engine.MileageSummary
	require.NoError(t, json.Unmarshal(data, &sum))
	assert.Equal(t, 1, sum.TotalTrips)
	assert.InDelta(t, 42.5, sum.TotalMileage, 1e-9)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/mileage/summary?date=10-03-2024", nil, nil)
	require.Equal(t, http.StatusBadRequest, res.StatusCode, string(data))
	assert.True(t, strings.Contains(decodeError(t, data).Message, "date"))
}

func TestCertificatesAndContracts(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	createTrain(t, srv, "T-01")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/certificates", map[string]any{
		"train_id":    "T-01",
		"domain":      "SIGNALLING",
		"expiry_date": "2024-03-12",
	}, nil)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/certificates/expiring?days=7", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	var expiring []domain.CertificateRecord
	require.NoError(t, json.Unmarshal(data, &expiring))
	assert.Len(t, expiring, 1)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/contracts", map[string]any{
		"advertiser":     "Acme Tea",
		"start_date":     "2024-03-01",
		"end_date":       "2024-04-01",
		"required_hours": 100,
	}, nil)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	var c domain.BrandingContract
	require.NoError(t, json.Unmarshal(data, &c))

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/branding/assignments", map[string]any{
		"train_id":    "T-01",
		"contract_id": c.ID,
	}, nil)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/contracts/at-risk", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Contains(t, string(data), c.ID)
}

func TestAccrueTripsBatch(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	createTrain(t, srv, "T-01")
	createTrain(t, srv, "T-02")

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/accrual/trips", map[string]any{
		"train_id": "T-01",
		"trips": []map[string]any{
			{"start_time": "2024-03-10T05:00:00Z", "end_time": "2024-03-10T06:00:00Z", "mileage": 20},
			{"start_time": "2024-03-10T06:30:00Z", "end_time": "2024-03-10T07:30:00Z", "mileage": 15.5},
		},
	}, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	var sum accrual.Summary
	require.NoError(t, json.Unmarshal(data, &sum))
	assert.Equal(t, "T-01", sum.TrainID)
	assert.Equal(t, 2, sum.TripCount)
	assert.InDelta(t, 10535.5, sum.NewOdometer, 1e-9)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/accrual/trips", map[string]any{
		"train_id": "T-01",
		"trips": []map[string]any{
			{"train_id": "T-02", "start_time": "2024-03-10T05:00:00Z", "end_time": "2024-03-10T06:00:00Z", "mileage": 5},
		},
	}, nil)
	require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode, string(data))
	assert.Equal(t, "unprocessable", decodeError(t, data).Code)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/accrual/trips", map[string]any{
		"train_id": "T-09",
		"trips":    []map[string]any{},
	}, nil)
	require.Equal(t, http.StatusNotFound, res.StatusCode, string(data))

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/trains/T-01", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	var tr domain.Train
	require.NoError(t, json.Unmarshal(data, &tr))
	require.NotNil(t, tr.CurrentOdometer)
	assert.InDelta(t, 10535.5, *tr.CurrentOdometer, 1e-9, "rejected batch leaves the odometer alone")
}

func TestOpenAPIDocument(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()

	const n = 8
	bodies := make([][]byte, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := client.Get(srv.URL + "/v1/openapi.json")
			if err != nil {
				errs[i] = err
				return
			}
			defer res.Body.Close()
			bodies[i], errs[i] = io.ReadAll(res.Body)
		}(i)
	}
	wg.Wait()
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, bodies[0], bodies[i])
	}

	var doc struct {
		Components struct {
			Schemas map[string]json.RawMessage `json:"schemas"`
		} `json:"components"`
		Paths map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(bodies[0], &doc))
	require.Contains(t, doc.Components.Schemas, "ApiError")
	assert.Contains(t, string(doc.Components.Schemas["ApiError"]), `"error"`)
	assert.Contains(t, doc.Paths, "/v1/accrual/trips")
}
