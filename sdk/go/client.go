package depotsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal depot planning HTTP API client.
type Client struct {
	BaseURL string
	// BasePath is the API prefix, /v1 when empty.
	BasePath string
	// ActorID is sent as X-Actor-Id and recorded on every event a call writes.
	ActorID    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, actorID string) *Client {
	return &Client{
		BaseURL: baseURL,
		ActorID: actorID,
		Timeout: 10 * time.Second,
	}
}

// Train is the API train model (partial).
type Train struct {
	ID              string   `json:"id"`
	Number          string   `json:"number"`
	Status          string   `json:"status"`
	CurrentOdometer *float64 `json:"current_odometer,omitempty"`
	Depot           string   `json:"depot,omitempty"`
}

// Verdict is a readiness decision.
type Verdict struct {
	TrainID        string   `json:"train_id"`
	Ready          bool     `json:"ready"`
	Reasons        []string `json:"reasons"`
	MileageBalance float64  `json:"mileage_balance"`
}

// Priority is a priority score with its branding urgency.
type Priority struct {
	Score   int    `json:"score"`
	Urgency string `json:"branding_urgency"`
}

// TrainStatus is one train as seen by a sweep.
type TrainStatus struct {
	Train          Train    `json:"train"`
	Readiness      Verdict  `json:"readiness"`
	Message        string   `json:"message"`
	Priority       Priority `json:"priority"`
	Certification  string   `json:"certification"`
	OpenWorkOrders int      `json:"open_work_orders"`
	Bay            string   `json:"bay,omitempty"`
}

// Pairing suggests a bay for a stabling candidate.
type Pairing struct {
	TrainID       string `json:"train_id"`
	BayID         string `json:"bay_id"`
	ShuntingDepth int    `json:"shunting_depth"`
}

// StablingPlan is the bay allocation part of a plan.
type StablingPlan struct {
	AvailableBays      int       `json:"available_bays"`
	EligibleTrains     int       `json:"eligible_trains"`
	CanAccommodate     bool      `json:"can_accommodate"`
	TotalShuntingMoves int       `json:"total_shunting_moves"`
	Pairings           []Pairing `json:"pairings"`
}

// Plan is the nightly induction plan.
type Plan struct {
	Depot         string        `json:"depot"`
	GeneratedAt   time.Time     `json:"generated_at"`
	TotalTrains   int           `json:"total_trains"`
	ReadyTrains   int           `json:"ready_trains"`
	BlockedTrains int           `json:"blocked_trains"`
	Recommended   []TrainStatus `json:"recommended"`
	Blocked       []TrainStatus `json:"blocked"`
	CleaningDue   []string      `json:"cleaning_due"`
	Stabling      StablingPlan  `json:"stabling"`
}

// Bay is a stabling position.
type Bay struct {
	ID            string  `json:"id"`
	TrackID       string  `json:"track_id"`
	Status        string  `json:"status"`
	TrainID       *string `json:"train_id,omitempty"`
	ShuntingDepth *int    `json:"shunting_depth,omitempty"`
}

// Trip is a completed revenue run to log.
type Trip struct {
	ID         string    `json:"id,omitempty"`
	TrainID    string    `json:"train_id"`
	RouteID    string    `json:"route_id,omitempty"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Mileage    float64   `json:"mileage"`
	LoadFactor float64   `json:"load_factor,omitempty"`
}

// AccrualSummary reports one train's accrual run.
type AccrualSummary struct {
	TrainID            string  `json:"train_id"`
	Date               string  `json:"date"`
	TripCount          int     `json:"trip_count"`
	MileageAdded       float64 `json:"mileage_added"`
	PreviousOdometer   float64 `json:"previous_odometer"`
	NewOdometer        float64 `json:"new_odometer"`
	AssignmentsUpdated int     `json:"assignments_updated"`
	Message            string  `json:"message"`
}

// AccrualRun is the result of RunAccrual.
type AccrualRun struct {
	Date      string           `json:"date"`
	Summaries []AccrualSummary `json:"summaries"`
	Error     string           `json:"error,omitempty"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateTrain registers a train.
func (c *Client) CreateTrain(ctx context.Context, t Train) (Train, error) {
	var resp Train
	err := c.do(ctx, http.MethodPost, "trains", t, &resp)
	return resp, err
}

// Plan builds tonight's induction plan.
func (c *Client) Plan(ctx context.Context) (Plan, error) {
	var resp Plan
	err := c.do(ctx, http.MethodGet, "plan", nil, &resp)
	return resp, err
}

// Readiness evaluates one train.
func (c *Client) Readiness(ctx context.Context, trainID string) (TrainStatus, error) {
	var resp TrainStatus
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("trains/%s/readiness", url.PathEscape(trainID)), nil, &resp)
	return resp, err
}

// AssignBay stables a train in a bay.
func (c *Client) AssignBay(ctx context.Context, bayID, trainID string) (Bay, error) {
	var resp Bay
	endpoint := fmt.Sprintf("bays/%s/assign", url.PathEscape(bayID))
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"train_id": trainID}, &resp)
	return resp, err
}

// ReleaseBay frees a bay.
func (c *Client) ReleaseBay(ctx context.Context, bayID string) (Bay, error) {
	var resp Bay
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("bays/%s/release", url.PathEscape(bayID)), nil, &resp)
	return resp, err
}

// LogTrip records a trip and returns the accrual it triggered.
func (c *Client) LogTrip(ctx context.Context, t Trip) (AccrualSummary, error) {
	var resp struct {
		Accrual AccrualSummary `json:"accrual"`
	}
	err := c.do(ctx, http.MethodPost, "trips", t, &resp)
	return resp.Accrual, err
}

// RunAccrual accrues day (YYYY-MM-DD, today when empty) for one train, or the
// whole fleet when trainID is empty.
func (c *Client) RunAccrual(ctx context.Context, trainID, day string) (AccrualRun, error) {
	body := map[string]any{}
	if trainID != "" {
		body["train_id"] = trainID
	}
	if day != "" {
		body["date"] = day
	}
	var resp AccrualRun
	err := c.do(ctx, http.MethodPost, "accrual/run", body, &resp)
	return resp, err
}

// Events returns recent events, newest first. entityKind and entityID are
// optional filters.
func (c *Client) Events(ctx context.Context, limit int, entityKind, entityID string) ([]Event, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	if entityKind != "" {
		q.Set("entity_kind", entityKind)
	}
	if entityID != "" {
		q.Set("entity_id", entityID)
	}
	endpoint := "events"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.ActorID != "" {
		req.Header.Set("X-Actor-Id", c.ActorID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code, apiErr.Message = env.Error.Code, env.Error.Message
		}
		return apiErr
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	basePath := c.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.Trim(basePath, "/")
}
