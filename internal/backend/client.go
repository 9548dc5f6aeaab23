package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is where the simulation service listens in development.
const DefaultBaseURL = "http://localhost:5001/api"

// Client talks to the simulation service. It does not retry.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// ReadyBackoff is the first delay between WaitReady polls. It doubles up
	// to ReadyMaxBackoff.
	ReadyBackoff    time.Duration
	ReadyMaxBackoff time.Duration
}

// NewClient creates a Client targeting baseURL. A zero timeout means 30 seconds.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		ReadyBackoff:    2 * time.Second,
		ReadyMaxBackoff: 30 * time.Second,
	}
}

// ListScenarios returns the scenarios the service can run.
func (c *Client) ListScenarios(ctx context.Context) ([]ScenarioSummary, error) {
	var out []ScenarioSummary
	if err := c.do(ctx, http.MethodGet, "/scenarios", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StartSimulation runs a scenario to completion on the service.
func (c *Client) StartSimulation(ctx context.Context, req StartRequest) (*StartResponse, error) {
	var out StartResponse
	if err := c.do(ctx, http.MethodPost, "/simulation/start", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchData returns the full time series of a simulation.
func (c *Client) FetchData(ctx context.Context, simulationID string) (*Series, error) {
	var out Series
	if err := c.do(ctx, http.MethodGet, "/simulation/data/"+url.PathEscape(simulationID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchStatus returns the lifecycle status of a simulation.
func (c *Client) FetchStatus(ctx context.Context, simulationID string) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.do(ctx, http.MethodGet, "/simulation/status/"+url.PathEscape(simulationID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FetchBrief returns the brief of a completed simulation for a perspective.
func (c *Client) FetchBrief(ctx context.Context, simulationID, perspective string) (*Brief, error) {
	path := "/simulation/brief/" + url.PathEscape(simulationID) + "?perspective=" + url.QueryEscape(perspective)
	var out Brief
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WaitReady polls the scenario listing with exponential backoff until the
// service answers or ctx is done.
func (c *Client) WaitReady(ctx context.Context) error {
	backoff := c.ReadyBackoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	maxBackoff := c.ReadyMaxBackoff
	if maxBackoff < backoff {
		maxBackoff = backoff
	}

	for {
		_, err := c.ListScenarios(ctx)
		if err == nil {
			slog.Info("simulation service is ready", "url", c.BaseURL)
			return nil
		}
		slog.Info("simulation service not ready, retrying", "backoff", backoff, "error", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for %s: %w", c.BaseURL, ctx.Err())
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// do sends a request with an optional JSON body and decodes a JSON response
// into target. Non-2xx responses become *Error.
func (c *Client) do(ctx context.Context, method, path string, body, target any) error {
	op := method + " " + strings.SplitN(path, "?", 2)[0]

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", op, err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if err := json.Unmarshal(respBody, target); err != nil {
		return fmt.Errorf("decode %s: %w", op, err)
	}
	return nil
}

// errorMessage extracts the service's error text: the "error" field, else
// "detail", else a fixed fallback.
func errorMessage(body []byte) string {
	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "Unknown error"
	}
	switch {
	case payload.Error != "":
		return payload.Error
	case payload.Detail != "":
		return payload.Detail
	}
	return "Unknown error"
}
