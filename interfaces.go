package claimlink

import (
	"context"

	"github.com/shopspring/decimal"
)

// PaymentsSDK is the external payments library the flow delegates to for
// transaction construction and link lookups. It is treated as a black box
// with a fixed contract; implementations talk to the claim contract's own
// tooling.
type PaymentsSDK interface {
	// PrepareDepositTransactions builds the unsigned transactions for a
	// standard deposit. Returns one transaction (deposit only) or two
	// (ERC-20 approval followed by the deposit).
	PrepareDepositTransactions(ctx context.Context, sender string, details LinkDetails, passwords []string) ([]PreparedTransaction, error)

	// MakeGaslessDepositPayload builds the relay payload and the EIP-712
	// message for a gas-sponsored deposit.
	MakeGaslessDepositPayload(ctx context.Context, details LinkDetails, password, sender, contractVersion string) (*GaslessBundle, error)

	// LinksFromTransaction resolves claim links from a deposit transaction
	// hash. Polls until the transaction is mined. A transaction carrying
	// several deposits yields several links.
	LinksFromTransaction(ctx context.Context, details LinkDetails, txHash string, passwords []string) ([]string, error)

	// EstimateFeeOptions estimates gas fields for a prepared transaction.
	EstimateFeeOptions(ctx context.Context, chainID ChainID, tx *PreparedTransaction) (*FeeOptions, error)
}

// WalletSigner signs and broadcasts on behalf of the active wallet.
type WalletSigner interface {
	// Address returns the sender address.
	Address() string

	// SignTypedData signs EIP-712 typed data. A nil signature with a nil
	// error means the user declined; callers treat that as a normal
	// cancellation, not a failure.
	SignTypedData(ctx context.Context, domain TypedDataDomain, types map[string][]TypedDataField, primaryType string, message map[string]interface{}) ([]byte, error)

	// SendTransaction signs and broadcasts one transaction, returning its hash.
	SendTransaction(ctx context.Context, chainID ChainID, tx PreparedTransaction, fees *FeeOptions) (string, error)

	// WaitForReceipt blocks until the transaction has the requested number
	// of confirmations, or fails.
	WaitForReceipt(ctx context.Context, chainID ChainID, txHash string, confirmations uint64) (*Receipt, error)
}

// ClaimLinkInitRequest starts a claim link on the backend and uploads any
// attachment before a transaction is sent.
type ClaimLinkInitRequest struct {
	Password      string
	SenderAddress string
	Attachment    AttachmentOptions
}

// ClaimLinkInitResponse carries the uploaded attachment URL, if any.
type ClaimLinkInitResponse struct {
	FileURL string `json:"fileUrl,omitempty"`
}

// ClaimLinkConfirmRequest finalizes a claim link on the backend after the
// deposit is on-chain.
type ClaimLinkConfirmRequest struct {
	ChainID       ChainID              `json:"chainId"`
	Link          string               `json:"link"`
	Password      string               `json:"password"`
	TxHash        string               `json:"txHash"`
	SenderAddress string               `json:"senderAddress"`
	AmountUSD     decimal.Decimal      `json:"amountUsd"`
	Transaction   *PreparedTransaction `json:"transaction,omitempty"`
}

// SendLinkReport is the best-effort record of a created link, keyed by the
// claim keypair's public address.
type SendLinkReport struct {
	PubKey          string  `json:"pubKey"`
	ChainID         ChainID `json:"chainId"`
	TxHash          string  `json:"txHash"`
	ContractVersion string  `json:"contractVersion"`
	DepositIdx      uint64  `json:"depositIdx"`
	Reference       string  `json:"reference,omitempty"`
	AttachmentURL   string  `json:"attachment,omitempty"`
}

// PointsRequest asks the backend how many reward points an action earns.
type PointsRequest struct {
	ActionType  string               `json:"actionType"`
	ChainID     ChainID              `json:"chainId"`
	UserAddress string               `json:"userAddress"`
	AmountUSD   decimal.Decimal      `json:"amountUsd"`
	Transaction *PreparedTransaction `json:"transaction,omitempty"`
}

// BackendService is the remote persistence API the orchestrator reports to.
type BackendService interface {
	ClaimLinkInit(ctx context.Context, req ClaimLinkInitRequest) (*ClaimLinkInitResponse, error)
	ClaimLinkConfirm(ctx context.Context, req ClaimLinkConfirmRequest) error
	CreateSendLink(ctx context.Context, report SendLinkReport) error
	CalculatePoints(ctx context.Context, req PointsRequest) (int, error)
}

// GaslessRelay submits a signed gasless deposit to the sponsoring endpoint
// and returns the resulting transaction hash.
type GaslessRelay interface {
	SubmitDeposit(ctx context.Context, payload GaslessPayload, signature string) (string, error)
}

// LinkStore persists created-link records and user preferences on the client
// side. Records are append-only per address.
type LinkStore interface {
	AppendCreatedLink(ctx context.Context, record CreatedLink) error
	CreatedLinks(ctx context.Context, address string) ([]CreatedLink, error)
	SaveTokenPreference(ctx context.Context, pref TokenPreference) error
	TokenPreference(ctx context.Context) (*TokenPreference, error)
}

// PriceOracle quotes token prices in the display currency (USD). Failures
// are tolerated everywhere it is consulted.
type PriceOracle interface {
	TokenPrice(ctx context.Context, chainID ChainID, tokenAddress string) (decimal.Decimal, error)
}
