// Package backend is the HTTP client for the kit assembly service:
// generation, the persisted kit list and single kit lookup.
package backend

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

	"kitlab/internal/kit"
	"kitlab/internal/logging"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

// Config configures the client.
type Config struct {
	BaseURL      string
	GeneratePath string
	HistoryPath  string
	KitPath      string
	APIToken     string
	Timeout      time.Duration
}

// DefaultConfig returns sensible defaults for a local backend.
func DefaultConfig() Config {
	return Config{
		BaseURL:      "http://localhost:5000/api/kit",
		GeneratePath: "/generate",
		HistoryPath:  "/history",
		KitPath:      "/history/",
		Timeout:      120 * time.Second,
	}
}

// Client talks to the kit assembly service.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a client. Empty paths fall back to the defaults.
func NewClient(cfg Config) *Client {
	def := DefaultConfig()
	if cfg.GeneratePath == "" {
		cfg.GeneratePath = def.GeneratePath
	}
	if cfg.HistoryPath == "" {
		cfg.HistoryPath = def.HistoryPath
	}
	if cfg.KitPath == "" {
		cfg.KitPath = def.KitPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// BaseURL returns the configured service root.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// Generate posts a generation request and returns the raw response body.
// Classification is left to the caller so malformed bodies can degrade
// gracefully instead of failing here.
func (c *Client) Generate(ctx context.Context, req kit.GenerationRequest) ([]byte, error) {
	if req.History == nil {
		req.History = []kit.Turn{}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &TransportError{Op: "generate", Err: fmt.Errorf("failed to marshal request: %w", err)}
	}
	raw, err := c.do(ctx, "generate", http.MethodPost, c.cfg.GeneratePath, body)
	if err != nil {
		return nil, err
	}
	if !json.Valid(raw) {
		return nil, &TransportError{Op: "generate", Err: ErrMalformedBody}
	}
	return raw, nil
}

// ListHistory returns the persisted kits in the order the backend sent them.
func (c *Client) ListHistory(ctx context.Context) ([]kit.HistoryEntry, error) {
	raw, err := c.do(ctx, "history", http.MethodGet, c.cfg.HistoryPath, nil)
	if err != nil {
		return nil, err
	}
	if !json.Valid(raw) {
		return nil, &TransportError{Op: "history", Err: ErrMalformedBody}
	}
	return kit.DecodeHistory(raw), nil
}

// GetKit fetches one persisted kit by id.
func (c *Client) GetKit(ctx context.Context, id string) (kit.FinalKit, error) {
	if id == "" {
		return kit.FinalKit{}, &TransportError{Op: "kit", Err: ErrMissingID}
	}
	raw, err := c.do(ctx, "kit", http.MethodGet, c.cfg.KitPath+url.PathEscape(id), nil)
	if err != nil {
		return kit.FinalKit{}, err
	}
	if !json.Valid(raw) {
		return kit.FinalKit{}, &TransportError{Op: "kit", Err: ErrMalformedBody}
	}
	return kit.DecodeKit(raw), nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body []byte) ([]byte, error) {
	reqID := RequestID(ctx)
	log := logging.WithRequestID(logging.CategoryAPI, reqID)
	timer := logging.StartTimer(logging.CategoryAPI, op)
	defer timer.StopWithThreshold(5 * time.Second)

	endpoint := c.cfg.BaseURL + path
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if c.cfg.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	}

	log.Debug("%s %s", method, endpoint)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("%s failed: %v", op, err)
		return nil, &TransportError{Op: op, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Error("%s returned status %d", op, resp.StatusCode)
		return nil, &TransportError{Op: op, Status: resp.StatusCode, Err: ErrStatus}
	}

	log.Debug("%s ok (%d bytes)", op, len(data))
	return data, nil
}
