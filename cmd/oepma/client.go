package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"oepma/internal/api"
)

// errDaemonUnavailable is returned when nothing listens on the API address.
var errDaemonUnavailable = errors.New("daemon not reachable")

// apiClient talks to the daemon's HTTP API.
type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(bind string) (*apiClient, error) {
	host, port, err := net.SplitHostPort(strings.TrimSpace(bind))
	if err != nil {
		return nil, fmt.Errorf("parse api_bind %q: %w", bind, err)
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return &apiClient{
		base: "http://" + net.JoinHostPort(host, port),
		http: &http.Client{Timeout: 35 * time.Second},
	}, nil
}

func (c *apiClient) Status(ctx context.Context) (*api.DaemonStatus, error) {
	var out api.DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) StartRun(ctx context.Context, phase string) (*api.StartRunResponse, error) {
	var out api.StartRunResponse
	if err := c.do(ctx, http.MethodPost, "/api/runs", api.StartRunRequest{Phase: phase}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) CancelRun(ctx context.Context) (*api.CancelRunResponse, error) {
	var out api.CancelRunResponse
	if err := c.do(ctx, http.MethodPost, "/api/runs/cancel", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type logQuery struct {
	Since  uint64
	Limit  int
	Follow bool
	Tail   bool
	Level  string
}

func (c *apiClient) Logs(ctx context.Context, q logQuery) (*api.LogStreamResponse, error) {
	values := url.Values{}
	if q.Since > 0 {
		values.Set("since", strconv.FormatUint(q.Since, 10))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Follow {
		values.Set("follow", "1")
	}
	if q.Tail {
		values.Set("tail", "1")
	}
	if q.Level != "" {
		values.Set("level", q.Level)
	}
	path := "/api/logs"
	if encoded := values.Encode(); encoded != "" {
		path += "?" + encoded
	}
	var out api.LogStreamResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			return fmt.Errorf("%w at %s; start it with `oepma serve`", errDaemonUnavailable, c.base)
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon: %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
