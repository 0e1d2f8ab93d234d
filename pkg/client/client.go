// Package client talks to the research pipeline server: it opens the event
// stream for a request, or submits an asynchronous job and polls it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/dossier/pkg/logger"
)

const (
	// DefaultTarget is the default research server URL.
	DefaultTarget = "http://localhost:8000"

	// DefaultTimeout bounds non-streaming calls.
	DefaultTimeout = 30 * time.Second
)

// Config holds configuration for the research client.
type Config struct {
	// Target is the research server base URL. Defaults to DefaultTarget.
	Target string

	// Timeout bounds job submission and polling requests. The event stream
	// is bounded only by its context. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// Client is an HTTP client for the research server.
type Client struct {
	target string

	// stream has no overall timeout; api does.
	stream *http.Client
	api    *http.Client

	logger *slog.Logger
}

// New creates a Client.
func New(cfg Config, log *slog.Logger) *Client {
	target := strings.TrimRight(cfg.Target, "/")
	if target == "" {
		target = DefaultTarget
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	if log == nil {
		log = logger.Nop()
	}

	return &Client{
		target: target,
		stream: &http.Client{},
		api:    &http.Client{Timeout: timeout},
		logger: log,
	}
}

// Target returns the server base URL.
func (c *Client) Target() string {
	return c.target
}

// Stream starts a streaming research run and returns the raw event stream
// body. The caller owns the body and must close it.
func (c *Client) Stream(ctx context.Context, req Request) (io.ReadCloser, error) {
	req.Mode = ModeStream
	if err := req.Validate(); err != nil {
		return nil, err
	}

	resp, err := c.post(ctx, c.stream, req)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("event stream opened",
		"target", c.target,
		"status", resp.StatusCode,
		"content_type", resp.Header.Get("Content-Type"),
	)
	return resp.Body, nil
}

// Submit starts an asynchronous research job.
func (c *Client) Submit(ctx context.Context, req Request) (*JobRef, error) {
	req.Mode = ModeAsync
	if err := req.Validate(); err != nil {
		return nil, err
	}

	resp, err := c.post(ctx, c.api, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var ref JobRef
	if err := json.NewDecoder(resp.Body).Decode(&ref); err != nil {
		return nil, fmt.Errorf("decoding job reference: %w", err)
	}
	if ref.ID == "" {
		return nil, fmt.Errorf("server accepted the job without an id")
	}

	c.logger.Debug("research job submitted", "job", ref.ID, "status", ref.Status)
	return &ref, nil
}

func (c *Client) post(ctx context.Context, hc *http.Client, body Request) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.target+"/research", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if body.Mode == ModeStream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}
	return resp, nil
}

func statusError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("research server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
}
