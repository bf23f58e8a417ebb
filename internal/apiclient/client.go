// Package apiclient is the HTTP client for the visita table API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/marcus/visita/internal/models"
)

// Sentinel errors for common HTTP error classes.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	// ErrSchemaMissing means the server's database predates the current
	// schema. The remedy is a one-time setup step, not a retry.
	ErrSchemaMissing = errors.New("server schema missing")
)

// transientError marks network failures and 5xx responses, which are safe
// to retry.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// IsTransient reports whether err is a retryable remote failure.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// Client is an HTTP client for the visita server.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// New creates a new API client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// HealthResponse is the response from GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// HealthCheck hits the /healthz endpoint to verify server reachability.
func (c *Client) HealthCheck(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.do(ctx, "GET", "/healthz", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Store methods ---

// ListStores fetches one page of stores with the given server-side
// filters. "today" in the weekday filter is resolved against the local
// clock before the request leaves the client.
func (c *Client) ListStores(ctx context.Context, page, pageSize int, filters models.StoreFilters) ([]models.Store, error) {
	f := filters.Normalize(time.Now())
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(pageSize))
	if f.Region != "" {
		params.Set("region", f.Region)
	}
	if f.PurchaseProb != "" {
		params.Set("purchase_prob", f.PurchaseProb)
	}
	if f.VisitStatus != "" {
		params.Set("visit_status", f.VisitStatus)
	}
	if f.Weekday != "" {
		params.Set("weekday", f.Weekday)
	}

	var stores []models.Store
	if err := c.do(ctx, "GET", "/v1/stores?"+params.Encode(), nil, &stores); err != nil {
		return nil, err
	}
	return stores, nil
}

// SearchStores does a free-text lookup, unpaginated, capped server-side.
func (c *Client) SearchStores(ctx context.Context, query string) ([]models.Store, error) {
	params := url.Values{}
	params.Set("q", query)
	var stores []models.Store
	if err := c.do(ctx, "GET", "/v1/stores/search?"+params.Encode(), nil, &stores); err != nil {
		return nil, err
	}
	return stores, nil
}

// GetStore fetches one store with its orders and visit history.
func (c *Client) GetStore(ctx context.Context, id int64) (*models.Store, error) {
	var store models.Store
	if err := c.do(ctx, "GET", fmt.Sprintf("/v1/stores/%d", id), nil, &store); err != nil {
		return nil, err
	}
	return &store, nil
}

// UpsertStore inserts or updates a store; the id is assigned on insert
// and echoed on update.
func (c *Client) UpsertStore(ctx context.Context, store models.Store) (*models.Store, error) {
	var saved models.Store
	if err := c.do(ctx, "PUT", "/v1/stores", store, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// DeleteStore removes a store.
func (c *Client) DeleteStore(ctx context.Context, id int64) error {
	return c.do(ctx, "DELETE", fmt.Sprintf("/v1/stores/%d", id), nil, nil)
}

// logVisitRequest mirrors the server's body for POST /v1/stores/{id}/visit.
type logVisitRequest struct {
	VisitType string    `json:"visit_type"`
	Now       time.Time `json:"now"`
	DayStart  time.Time `json:"day_start"`
	DayEnd    time.Time `json:"day_end"`
}

// LogVisit marks a store visited now. The calendar-day bounds are computed
// here, in the client's local timezone, so same-day dedup follows the
// field agent's day rather than the server's.
func (c *Client) LogVisit(ctx context.Context, storeID int64, visitType models.VisitType) (*models.VisitLog, error) {
	now := time.Now()
	dayStart, dayEnd := localDayBounds(now)
	req := logVisitRequest{
		VisitType: string(visitType),
		Now:       now,
		DayStart:  dayStart,
		DayEnd:    dayEnd,
	}
	var log models.VisitLog
	if err := c.do(ctx, "POST", fmt.Sprintf("/v1/stores/%d/visit", storeID), req, &log); err != nil {
		return nil, err
	}
	return &log, nil
}

// clearVisitRequest mirrors the server's body for DELETE /v1/stores/{id}/visit.
type clearVisitRequest struct {
	VisitType string    `json:"visit_type"`
	DayStart  time.Time `json:"day_start"`
	DayEnd    time.Time `json:"day_end"`
}

// ClearVisit reverts a store to unvisited and drops today's logs of the
// given type.
func (c *Client) ClearVisit(ctx context.Context, storeID int64, visitType models.VisitType) error {
	dayStart, dayEnd := localDayBounds(time.Now())
	req := clearVisitRequest{
		VisitType: string(visitType),
		DayStart:  dayStart,
		DayEnd:    dayEnd,
	}
	return c.do(ctx, "DELETE", fmt.Sprintf("/v1/stores/%d/visit", storeID), req, nil)
}

// ResetVisited clears the daily visited flag on every store.
func (c *Client) ResetVisited(ctx context.Context) error {
	return c.do(ctx, "POST", "/v1/stores/reset-visited", nil, nil)
}

// --- Catalog methods ---

// ListRegions fetches the region catalog, retrying once on a transient
// failure since it gates the rest of the initial load.
func (c *Client) ListRegions(ctx context.Context) ([]models.Region, error) {
	var regions []models.Region
	if err := c.doRetryTransient(ctx, "GET", "/v1/regions", nil, &regions); err != nil {
		return nil, err
	}
	return regions, nil
}

// UpsertRegion inserts or updates a region.
func (c *Client) UpsertRegion(ctx context.Context, region models.Region) (*models.Region, error) {
	var saved models.Region
	if err := c.do(ctx, "PUT", "/v1/regions", region, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// DeleteRegion removes a region.
func (c *Client) DeleteRegion(ctx context.Context, id int64) error {
	return c.do(ctx, "DELETE", fmt.Sprintf("/v1/regions/%d", id), nil, nil)
}

// ListProducts fetches the product catalog, retrying once on a transient
// failure.
func (c *Client) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := c.doRetryTransient(ctx, "GET", "/v1/products", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// UpsertProduct inserts or updates a product.
func (c *Client) UpsertProduct(ctx context.Context, product models.Product) (*models.Product, error) {
	var saved models.Product
	if err := c.do(ctx, "PUT", "/v1/products", product, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// DeleteProduct removes a product.
func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.do(ctx, "DELETE", fmt.Sprintf("/v1/products/%d", id), nil, nil)
}

// --- Order methods ---

// ListOrders fetches every order, newest first.
func (c *Client) ListOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := c.do(ctx, "GET", "/v1/orders", nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpsertOrder inserts or updates an order.
func (c *Client) UpsertOrder(ctx context.Context, order models.Order) (*models.Order, error) {
	var saved models.Order
	if err := c.do(ctx, "PUT", "/v1/orders", order, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// DeleteOrder removes an order.
func (c *Client) DeleteOrder(ctx context.Context, id int64) error {
	return c.do(ctx, "DELETE", fmt.Sprintf("/v1/orders/%d", id), nil, nil)
}

// --- Scheduled visit methods ---

// ListVisits fetches all appointments joined with store display fields.
func (c *Client) ListVisits(ctx context.Context) ([]models.Visit, error) {
	var visits []models.Visit
	if err := c.do(ctx, "GET", "/v1/visits", nil, &visits); err != nil {
		return nil, err
	}
	return visits, nil
}

// UpsertVisit inserts or updates an appointment.
func (c *Client) UpsertVisit(ctx context.Context, visit models.Visit) (*models.Visit, error) {
	var saved models.Visit
	if err := c.do(ctx, "PUT", "/v1/visits", visit, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// UpdateVisitStatus flips an appointment between pending and done.
func (c *Client) UpdateVisitStatus(ctx context.Context, id int64, status models.VisitStatus) error {
	body := map[string]string{"status": string(status)}
	return c.do(ctx, "PATCH", fmt.Sprintf("/v1/visits/%d/status", id), body, nil)
}

// DeleteVisit removes an appointment.
func (c *Client) DeleteVisit(ctx context.Context, id int64) error {
	return c.do(ctx, "DELETE", fmt.Sprintf("/v1/visits/%d", id), nil, nil)
}

// --- Visit log methods ---

// ListVisitLogs fetches every contact event, newest first.
func (c *Client) ListVisitLogs(ctx context.Context) ([]models.VisitLog, error) {
	var logs []models.VisitLog
	if err := c.do(ctx, "GET", "/v1/visit_logs", nil, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// UpsertVisitLog inserts or updates a log by id (import path).
func (c *Client) UpsertVisitLog(ctx context.Context, log models.VisitLog) (*models.VisitLog, error) {
	var saved models.VisitLog
	if err := c.do(ctx, "PUT", "/v1/visit_logs", log, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// UpdateVisitLog edits a log's note and timestamp.
func (c *Client) UpdateVisitLog(ctx context.Context, id int64, note string, visitedAt time.Time) error {
	body := map[string]any{"note": note, "visited_at": visitedAt}
	return c.do(ctx, "PATCH", fmt.Sprintf("/v1/visit_logs/%d", id), body, nil)
}

// DeleteVisitLog removes a log.
func (c *Client) DeleteVisitLog(ctx context.Context, id int64) error {
	return c.do(ctx, "DELETE", fmt.Sprintf("/v1/visit_logs/%d", id), nil, nil)
}

// --- Stats ---

// StatsResponse mirrors the server's GET /v1/stats body.
type StatsResponse struct {
	Regions         int64 `json:"regions"`
	Products        int64 `json:"products"`
	Stores          int64 `json:"stores"`
	Orders          int64 `json:"orders"`
	PendingVisits   int64 `json:"pending_visits"`
	VisitLogs       int64 `json:"visit_logs"`
	VisitedThisWeek int64 `json:"visited_this_week"`
}

// GetStats fetches collection counts.
func (c *Client) GetStats(ctx context.Context) (*StatsResponse, error) {
	var stats StatsResponse
	if err := c.do(ctx, "GET", "/v1/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// localDayBounds returns the inclusive start and end of now's calendar
// day in now's location.
func localDayBounds(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	end := start.Add(24*time.Hour - time.Nanosecond)
	return start, end
}

// --- HTTP helpers ---

// apiError is the standard error body from the server.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

// doRetryTransient executes a request, retrying exactly once when the
// first attempt fails transiently.
func (c *Client) doRetryTransient(ctx context.Context, method, path string, body, result any) error {
	err := c.do(ctx, method, path, body, result)
	if err == nil || !IsTransient(err) || ctx.Err() != nil {
		return err
	}
	return c.do(ctx, method, path, body, result)
}

// do executes an HTTP request, mapping error responses to sentinel errors.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &transientError{fmt.Errorf("http request: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &transientError{fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode >= 400 {
		var env errorEnvelope
		if json.Unmarshal(respBody, &env) == nil && env.Error.Code != "" {
			switch {
			case env.Error.Code == "schema_missing":
				return fmt.Errorf("%w: %s", ErrSchemaMissing, env.Error.Message)
			case resp.StatusCode == http.StatusUnauthorized:
				return fmt.Errorf("%w: %s", ErrUnauthorized, env.Error.Message)
			case resp.StatusCode == http.StatusNotFound:
				return fmt.Errorf("%w: %s", ErrNotFound, env.Error.Message)
			case resp.StatusCode >= 500:
				return &transientError{&env.Error}
			default:
				return &env.Error
			}
		}
		if resp.StatusCode >= 500 {
			return &transientError{fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))}
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
