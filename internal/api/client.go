// Package api fetches aggregation rows from the measurement API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lotas/matdash/internal/applog"
	"github.com/lotas/matdash/internal/types"
)

// DefaultBaseURL is used when no API URL is configured.
const DefaultBaseURL = "https://api.ooni.io"

const aggregationPath = "/api/v1/aggregation"

// TestNames lists the selectable test names.
var TestNames = []string{
	"web_connectivity",
	"http_requests",
	"dns_consistency",
	"http_invalid_request_line",
	"bridge_reachability",
	"tcp_connect",
	"http_header_field_manipulation",
	"http_host",
	"multi_protocol_traceroute",
	"meek_fronted_requests_test",
	"whatsapp",
	"vanilla_tor",
	"facebook_messenger",
	"ndt",
	"dash",
	"telegram",
	"psiphon",
	"tor",
	"riseupvpn",
	"signal",
	"stunreachability",
	"torsf",
}

// DefaultQuery returns the form defaults: web_connectivity over the last 30
// days, grouped by day on the X axis and not grouped on Y.
func DefaultQuery(now time.Time) types.Query {
	day := now.UTC()
	return types.Query{
		TestName: "web_connectivity",
		Since:    day.AddDate(0, 0, -30).Format("2006-01-02"),
		Until:    day.AddDate(0, 0, 1).Format("2006-01-02"),
		AxisX:    types.AxisDay,
		AxisY:    types.AxisNone,
	}
}

// Error is a failed API request.
type Error struct {
	URL        string
	Status     int
	StatusText string
	Message    string // error field of the response body, if any
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return e.URL
	}
	s := fmt.Sprintf("%s %d - %s", e.URL, e.Status, e.StatusText)
	if e.Message != "" {
		s += " " + e.Message
	}
	return s
}

// Client talks to the aggregation endpoint.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New returns a client for baseURL ("" means DefaultBaseURL).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 60 * time.Second},
	}
}

type aggregationResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// Fetch returns the rows for q. The API filters server-side; rows are
// returned as received.
func (c *Client) Fetch(ctx context.Context, q types.Query) ([]types.RawRow, error) {
	u := c.BaseURL + aggregationPath + "?" + q.Params().Encode()
	reqID := uuid.New().String()
	applog.Debug("api.request", "req", reqID, "url", u)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		applog.Error("api.request", err, "req", reqID, "url", u)
		return nil, fmt.Errorf("%w: %v", &Error{URL: u}, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	applog.Debug("api.response", "req", reqID, "url", u, "status", resp.StatusCode, "bytes", len(body), "elapsed", time.Since(start))

	var ar aggregationResponse
	decodeErr := json.Unmarshal(body, &ar)

	if resp.StatusCode != http.StatusOK {
		apiErr := &Error{
			URL:        u,
			Status:     resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Message:    ar.Error,
		}
		applog.Error("api.response", apiErr, "req", reqID)
		return nil, apiErr
	}
	if decodeErr != nil {
		// Some deployments return the bare row array.
		var rows []types.RawRow
		if err := json.Unmarshal(body, &rows); err == nil {
			return rows, nil
		}
		return nil, fmt.Errorf("decode response: %w", decodeErr)
	}

	rows, err := decodeResult(ar.Result)
	if err != nil {
		return nil, err
	}
	applog.Info("api.fetch", "req", reqID, "rows", len(rows), "axis_x", string(q.AxisX), "axis_y", string(q.AxisY))
	return rows, nil
}

// decodeResult accepts a row array, or a single object when the query has
// no axes.
func decodeResult(raw json.RawMessage) ([]types.RawRow, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '{' {
		var row types.RawRow
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
		return []types.RawRow{row}, nil
	}
	var rows []types.RawRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return rows, nil
}
