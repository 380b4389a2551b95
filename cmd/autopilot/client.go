package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wricardo/mcp-training/seadrive/game/engine"
	"github.com/wricardo/mcp-training/seadrive/game/service"
)

// Client drives one session over the REST API
type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SessionID is the session the client is attached to
func (c *Client) SessionID() string {
	return c.sessionID
}

// Attach points the client at an existing session
func (c *Client) Attach(sessionID string) {
	c.sessionID = sessionID
}

func (c *Client) CreateSession(ctx context.Context, configID string) (*service.SessionInfo, error) {
	var body interface{}
	if configID != "" {
		body = map[string]string{"config_id": configID}
	}

	var info service.SessionInfo
	if err := c.do(ctx, http.MethodPost, "/api/sessions", body, &info); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	c.sessionID = info.ID
	return &info, nil
}

func (c *Client) Status(ctx context.Context) (*service.VehicleStatus, error) {
	var status service.VehicleStatus
	if err := c.do(ctx, http.MethodGet, c.sessionPath("/status"), nil, &status); err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}
	return &status, nil
}

func (c *Client) Step(ctx context.Context, req service.StepRequest) (*service.StepResult, error) {
	var result service.StepResult
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/step"), req, &result); err != nil {
		return nil, fmt.Errorf("step: %w", err)
	}
	return &result, nil
}

func (c *Client) Command(ctx context.Context, cmd service.Command) (*service.CommandResult, error) {
	var result service.CommandResult
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/command"), cmd, &result); err != nil {
		return nil, fmt.Errorf("%s: %w", cmd.Type, err)
	}
	return &result, nil
}

type resetResponse struct {
	Message string                 `json:"message"`
	Status  *service.VehicleStatus `json:"status"`
}

func (c *Client) Reset(ctx context.Context) (*service.VehicleStatus, error) {
	var resp resetResponse
	if err := c.do(ctx, http.MethodPost, c.sessionPath("/reset"), nil, &resp); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	return resp.Status, nil
}

// Probe implements Prober
func (c *Client) Probe(ctx context.Context, pos engine.Position) (*service.ProbeResult, error) {
	query := url.Values{}
	query.Set("x", strconv.FormatFloat(pos.X, 'f', -1, 64))
	query.Set("y", strconv.FormatFloat(pos.Y, 'f', -1, 64))

	var result service.ProbeResult
	if err := c.do(ctx, http.MethodGet, c.sessionPath("/probe")+"?"+query.Encode(), nil, &result); err != nil {
		return nil, fmt.Errorf("probe: %w", err)
	}
	return &result, nil
}

func (c *Client) sessionPath(suffix string) string {
	return "/api/sessions/" + url.PathEscape(c.sessionID) + suffix
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (%d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s - %s", resp.Status, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
