// Package rpc provides the HTTP adapter for the chain API.
package rpc

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Respawn-Gate/Respawngate/internal/domain/chain"
	"github.com/Respawn-Gate/Respawngate/internal/port/outbound"
)

const (
	infoPath  = "/v1/chain/get_info"
	tablePath = "/v1/chain/get_table_rows"
	pushPath  = "/v1/chain/push_transaction"

	// maxResponseBodySize caps response reads. Table reads are bounded by
	// their limit parameter; anything larger than this is a misbehaving
	// node, not data.
	maxResponseBodySize = 4 * 1024 * 1024 // 4MB

	defaultTimeout = 10 * time.Second
)

// Client talks to a chain API node over HTTP. It implements the
// outbound.ChainClient interface. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	// Optional instrumentation, nil outside serve mode.
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// ClientOption is a functional option for configuring Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the request timeout for the HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if c.httpClient != nil {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithInstrumentation attaches request counters and latency histograms.
// requests is labelled {endpoint, status}, duration {endpoint}.
func WithInstrumentation(requests *prometheus.CounterVec, duration *prometheus.HistogramVec) ClientOption {
	return func(c *Client) {
		c.requests = requests
		c.duration = duration
	}
}

// NewClient creates a client for the given chain API base URL,
// e.g. "https://proton.greymass.com".
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
				},
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetInfo fetches chain metadata from the node.
func (c *Client) GetInfo(ctx context.Context) (*chain.Info, error) {
	var info chain.Info
	if err := c.post(ctx, infoPath, nil, &info); err != nil {
		return nil, err
	}
	if info.ChainID == "" {
		return nil, fmt.Errorf("chain api %s: response missing chain_id", infoPath)
	}
	return &info, nil
}

// GetTableRows runs one table query. Rows come back as raw JSON; the
// node is asked for decoded (json) rows, not ABI-packed binary.
func (c *Client) GetTableRows(ctx context.Context, q chain.TableQuery) (*chain.TableRows, error) {
	req := struct {
		chain.TableQuery
		JSON bool `json:"json"`
	}{TableQuery: q, JSON: true}

	var rows chain.TableRows
	if err := c.post(ctx, tablePath, req, &rows); err != nil {
		return nil, err
	}
	return &rows, nil
}

// PushTransaction broadcasts a signed transaction. Contract assertion
// failures come back as *APIError.
func (c *Client) PushTransaction(ctx context.Context, tx *chain.SignedTransaction) (*chain.TransactResult, error) {
	var result chain.TransactResult
	if err := c.post(ctx, pushPath, tx, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// post sends one JSON request and decodes the response into out.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload := []byte("{}")
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("chain api %s: encode request: %w", path, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("chain api %s: create request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(path, start, false)
		return fmt.Errorf("chain api %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	c.observe(path, start, resp.StatusCode >= 200 && resp.StatusCode < 300)

	// Limited read to keep a misbehaving node from exhausting memory
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return fmt.Errorf("chain api %s: read response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.apiError(path, resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("chain api %s: decode response: %w", path, err)
		}
	}
	return nil
}

// apiError decodes the node's error envelope, falling back to a plain
// status error when the body is not the envelope.
func (c *Client) apiError(path string, status int, body []byte) error {
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && (apiErr.Message != "" || apiErr.Detail.What != "") {
		apiErr.Endpoint = path
		c.logger.Debug("chain api rejected request",
			"endpoint", path,
			"status", status,
			"error", apiErr.Error(),
		)
		return &apiErr
	}

	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	return fmt.Errorf("chain api %s: http status %d: %s", path, status, text)
}

func (c *Client) observe(path string, start time.Time, ok bool) {
	if c.requests == nil || c.duration == nil {
		return
	}
	status := "ok"
	if !ok {
		status = "error"
	}
	c.requests.WithLabelValues(path, status).Inc()
	c.duration.WithLabelValues(path).Observe(time.Since(start).Seconds())
}

// Compile-time check that Client implements the ChainClient interface.
var _ outbound.ChainClient = (*Client)(nil)
