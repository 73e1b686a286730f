// Package relay implements the HTTP client for the gas-sponsoring relay
// service. The relay broadcasts an EIP-3009 style deposit on the sender's
// behalf, so the sender only produces an EIP-712 signature.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/claimlink/claimlink-go"
)

const (
	headerContentType   = "Content-Type"
	headerAPIKey        = "api-key"
	mimeApplicationJSON = "application/json"

	// Relay submissions include the broadcast wait, so they run longer
	// than ordinary API calls.
	defaultTimeout = 90 * time.Second
)

// Config configures the relay client.
type Config struct {
	// BaseURL is the relay root, e.g. "https://relay.example.com".
	BaseURL string
	// APIKey authenticates the sponsoring account.
	APIKey string
	// Timeout bounds each request; zero means defaultTimeout.
	Timeout time.Duration
	Logger  *zap.Logger
}

// Client submits signed gasless deposits. It satisfies claimlink.GaslessRelay.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient creates a relay client.
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
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

type submitRequest struct {
	ChainID         string `json:"chainId"`
	ContractVersion string `json:"contractVersion"`
	TokenAddress    string `json:"tokenAddress"`
	Amount          string `json:"amount"`
	SenderAddress   string `json:"senderAddress"`
	ValidAfter      string `json:"validAfter"`
	ValidBefore     string `json:"validBefore"`
	Nonce           string `json:"nonce"`
	Signature       string `json:"signature"`
}

type submitResponse struct {
	TxHash string `json:"txHash"`
	Error  string `json:"error,omitempty"`
}

// SubmitDeposit forwards a gasless deposit payload and its EIP-712 signature
// to the relay and returns the hash of the sponsored transaction.
func (c *Client) SubmitDeposit(ctx context.Context, payload claimlink.GaslessPayload, signature string) (string, error) {
	reqBody := submitRequest{
		ChainID:         string(payload.ChainID),
		ContractVersion: payload.ContractVersion,
		TokenAddress:    payload.TokenAddress,
		Amount:          payload.Amount,
		SenderAddress:   payload.SenderAddress,
		ValidAfter:      payload.ValidAfter,
		ValidBefore:     payload.ValidBefore,
		Nonce:           payload.Nonce,
		Signature:       signature,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal deposit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/deposit-gasless", c.baseURL), bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create deposit request: %w", err)
	}
	req.Header.Set(headerContentType, mimeApplicationJSON)
	if c.apiKey != "" {
		req.Header.Set(headerAPIKey, c.apiKey)
	}

	c.log.Debug("submitting gasless deposit",
		zap.String("chainId", string(payload.ChainID)),
		zap.String("tokenAddress", payload.TokenAddress))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send deposit request: %w", err)
	}
	defer resp.Body.Close()

	var depositResp submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&depositResp); err != nil {
		return "", fmt.Errorf("failed to decode deposit response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if depositResp.Error != "" {
			return "", fmt.Errorf("relay rejected deposit: %s", depositResp.Error)
		}
		return "", fmt.Errorf("relay rejected deposit: %s", resp.Status)
	}
	if depositResp.TxHash == "" {
		return "", fmt.Errorf("relay returned no transaction hash")
	}

	return depositResp.TxHash, nil
}
