// Package backend implements the HTTP client for the claim-link backend API:
// link init/confirm, send-link reporting, reward points and KYC status.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/claimlink/claimlink-go"
)

const (
	headerContentType   = "Content-Type"
	headerAPIKey        = "api-key"
	mimeApplicationJSON = "application/json"

	defaultTimeout = 30 * time.Second
)

// Config configures the backend client.
type Config struct {
	// BaseURL is the API root, e.g. "https://api.example.com".
	BaseURL string
	// APIKey is sent on every request when non-empty.
	APIKey string
	// Timeout bounds each request; zero means defaultTimeout.
	Timeout time.Duration
	Logger  *zap.Logger
	// CreateAuthHeaders, when set, supplies extra headers per request
	// (short-lived tokens and the like) on top of the static API key.
	CreateAuthHeaders func() (map[string]string, error)
}

// Client talks to the backend API. It satisfies claimlink.BackendService.
type Client struct {
	baseURL           string
	apiKey            string
	httpClient        *http.Client
	log               *zap.Logger
	createAuthHeaders func() (map[string]string, error)
}

// NewClient creates a backend client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:           cfg.BaseURL,
		apiKey:            cfg.APIKey,
		httpClient:        &http.Client{Timeout: timeout},
		log:               log,
		createAuthHeaders: cfg.CreateAuthHeaders,
	}
}

// ClaimLinkInit registers a pending claim link before any transaction is
// broadcast and uploads the attachment, returning its hosted URL.
func (c *Client) ClaimLinkInit(ctx context.Context, req claimlink.ClaimLinkInitRequest) (*claimlink.ClaimLinkInitResponse, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fields := map[string]string{
		"password":      req.Password,
		"senderAddress": req.SenderAddress,
	}
	if req.Attachment.Message != "" {
		fields["reference"] = req.Attachment.Message
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("failed to build init form: %w", err)
		}
	}
	if len(req.Attachment.FileData) > 0 {
		part, err := writer.CreateFormFile("attachment", req.Attachment.FileName)
		if err != nil {
			return nil, fmt.Errorf("failed to attach file: %w", err)
		}
		if _, err := part.Write(req.Attachment.FileData); err != nil {
			return nil, fmt.Errorf("failed to attach file: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize init form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/submit-claim-link/init", c.baseURL), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create init request: %w", err)
	}
	httpReq.Header.Set(headerContentType, writer.FormDataContentType())
	if err := c.addAuth(httpReq); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send init request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to init claim link: %s", resp.Status)
	}

	var initResp claimlink.ClaimLinkInitResponse
	if err := json.NewDecoder(resp.Body).Decode(&initResp); err != nil {
		return nil, fmt.Errorf("failed to decode init response: %w", err)
	}
	return &initResp, nil
}

// ClaimLinkConfirm finalizes a claim link after the deposit transaction is
// on-chain.
func (c *Client) ClaimLinkConfirm(ctx context.Context, req claimlink.ClaimLinkConfirmRequest) error {
	pubKey, err := claimlink.ClaimAddressFromPassword(req.Password)
	if err != nil {
		return fmt.Errorf("failed to derive claim address: %w", err)
	}

	reqBody := map[string]any{
		"pubKey":        pubKey,
		"link":          req.Link,
		"password":      req.Password,
		"txHash":        req.TxHash,
		"chainId":       string(req.ChainID),
		"senderAddress": req.SenderAddress,
		"amountUsd":     req.AmountUSD,
	}
	if req.Transaction != nil {
		reqBody["transaction"] = req.Transaction
	}

	return c.postJSON(ctx, "/submit-claim-link/confirm", "confirm claim link", reqBody, nil)
}

// CreateSendLink records a created link's metadata, keyed by the claim
// keypair's public address.
func (c *Client) CreateSendLink(ctx context.Context, report claimlink.SendLinkReport) error {
	return c.postJSON(ctx, "/send-links", "create send link", report, nil)
}

// CalculatePoints asks the backend how many reward points an action earns.
func (c *Client) CalculatePoints(ctx context.Context, req claimlink.PointsRequest) (int, error) {
	var pointsResp struct {
		Points decimal.Decimal `json:"points"`
	}
	if err := c.postJSON(ctx, "/calculate-points", "calculate points", req, &pointsResp); err != nil {
		return 0, err
	}
	return int(pointsResp.Points.IntPart()), nil
}

// KYCStatusResponse reports a user's identity verification state.
type KYCStatusResponse struct {
	Status     string `json:"status"`
	BridgeKYC  string `json:"bridgeKycStatus,omitempty"`
	BridgeTOS  string `json:"bridgeTosStatus,omitempty"`
	ApprovedAt string `json:"approvedAt,omitempty"`
}

// KYCStatus fetches the verification state for an address.
func (c *Client) KYCStatus(ctx context.Context, address string) (*KYCStatusResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/users/%s/kyc-status", c.baseURL, address), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create kyc-status request: %w", err)
	}
	httpReq.Header.Set(headerContentType, mimeApplicationJSON)
	if err := c.addAuth(httpReq); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send kyc-status request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch kyc status: %s", resp.Status)
	}

	var statusResp KYCStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&statusResp); err != nil {
		return nil, fmt.Errorf("failed to decode kyc-status response: %w", err)
	}
	return &statusResp, nil
}

func (c *Client) postJSON(ctx context.Context, path, action string, body any, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", action, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", action, err)
	}
	httpReq.Header.Set(headerContentType, mimeApplicationJSON)
	if err := c.addAuth(httpReq); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send %s request: %w", action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to %s: %s", action, resp.Status)
	}

	if out == nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", action, err)
	}
	return nil
}

func (c *Client) addAuth(req *http.Request) error {
	if c.apiKey != "" {
		req.Header.Set(headerAPIKey, c.apiKey)
	}
	if c.createAuthHeaders != nil {
		headers, err := c.createAuthHeaders()
		if err != nil {
			return fmt.Errorf("failed to create auth headers: %w", err)
		}
		for name, value := range headers {
			req.Header.Set(name, value)
		}
	}
	return nil
}
