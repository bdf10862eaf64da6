// Package walletd connects to a wallet daemon over HTTP. The daemon
// owns the keys and the approval UI; this adapter only relays requests
// and maps the daemon's refusals onto the wallet port errors.
package walletd

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

	"github.com/Respawn-Gate/Respawngate/internal/domain/chain"
	"github.com/Respawn-Gate/Respawngate/internal/port/outbound"
)

const (
	authorizePath = "/v1/wallet/authorize"
	verifyPath    = "/v1/wallet/verify"
	signPath      = "/v1/wallet/sign_transaction"
	releasePath   = "/v1/wallet/release"

	maxResponseBodySize = 1024 * 1024 // 1MB

	// defaultTimeout is generous because Authorize blocks until the user
	// approves or rejects in the daemon's UI.
	defaultTimeout = 2 * time.Minute
)

// Client implements the outbound.Wallet interface against a wallet
// daemon, e.g. one listening on 127.0.0.1:8899.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption is a functional option for configuring Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the per-request timeout. Keep it long enough for a
// human to reach the approve button.
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

// NewClient creates a client for the wallet daemon at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name identifies this backend in session records and logs.
func (c *Client) Name() string { return "walletd" }

type authorizeRequest struct {
	ChainID string `json:"chain_id"`
}

type authorizeResponse struct {
	Actor      chain.AccountName    `json:"actor"`
	Permission chain.PermissionName `json:"permission"`
}

// Authorize asks the daemon to approve a session. The daemon decides
// which account to expose; an empty permission defaults to "active".
func (c *Client) Authorize(ctx context.Context, chainID string) (chain.Authorization, error) {
	var resp authorizeResponse
	if err := c.post(ctx, authorizePath, authorizeRequest{ChainID: chainID}, &resp); err != nil {
		return chain.Authorization{}, err
	}
	if resp.Actor == "" {
		return chain.Authorization{}, fmt.Errorf("wallet daemon: authorize response missing actor")
	}
	if resp.Permission == "" {
		resp.Permission = "active"
	}
	return chain.Authorization{Actor: resp.Actor, Permission: resp.Permission}, nil
}

type verifyRequest struct {
	ChainID    string               `json:"chain_id"`
	Actor      chain.AccountName    `json:"actor"`
	Permission chain.PermissionName `json:"permission"`
}

// Verify silently confirms the daemon still holds an authorization.
func (c *Client) Verify(ctx context.Context, chainID string, auth chain.Authorization) error {
	return c.post(ctx, verifyPath, verifyRequest{
		ChainID:    chainID,
		Actor:      auth.Actor,
		Permission: auth.Permission,
	}, nil)
}

type signRequest struct {
	ChainID     string             `json:"chain_id"`
	Transaction *chain.Transaction `json:"transaction"`
}

// SignTransaction sends the unsigned transaction to the daemon and
// returns its broadcastable form. Header fields, serialization, and the
// signature itself are all the daemon's business.
func (c *Client) SignTransaction(ctx context.Context, chainID string, tx *chain.Transaction) (*chain.SignedTransaction, error) {
	var signed chain.SignedTransaction
	if err := c.post(ctx, signPath, signRequest{ChainID: chainID, Transaction: tx}, &signed); err != nil {
		return nil, err
	}
	if len(signed.Signatures) == 0 {
		return nil, fmt.Errorf("wallet daemon: sign response carries no signatures")
	}
	return &signed, nil
}

type releaseRequest struct {
	Actor      chain.AccountName    `json:"actor"`
	Permission chain.PermissionName `json:"permission"`
}

// Release tells the daemon the session ended.
func (c *Client) Release(ctx context.Context, auth chain.Authorization) error {
	return c.post(ctx, releasePath, releaseRequest{
		Actor:      auth.Actor,
		Permission: auth.Permission,
	}, nil)
}

type errorBody struct {
	Error string `json:"error"`
}

// post sends one JSON request and maps transport and refusal errors
// onto the port's sentinels.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("wallet daemon %s: encode request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("wallet daemon %s: create request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Covers refused connections and timeouts alike: the daemon is
		// not answering, which is not the same as the daemon saying no.
		return fmt.Errorf("%w: %s: %v", outbound.ErrWalletUnreachable, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return fmt.Errorf("wallet daemon %s: read response: %w", path, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// Fall through to decode
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusLocked:
		var eb errorBody
		if json.Unmarshal(respBody, &eb) == nil && eb.Error != "" {
			return fmt.Errorf("%w: %s", outbound.ErrAuthorizationDenied, eb.Error)
		}
		return outbound.ErrAuthorizationDenied
	default:
		text := strings.TrimSpace(string(respBody))
		if len(text) > 200 {
			text = text[:200]
		}
		return fmt.Errorf("wallet daemon %s: http status %d: %s", path, resp.StatusCode, text)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("wallet daemon %s: decode response: %w", path, err)
		}
	}
	return nil
}

// Compile-time check that Client implements the Wallet interface.
var _ outbound.Wallet = (*Client)(nil)
