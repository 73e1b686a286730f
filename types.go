package claimlink

import (
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ChainID identifies an EVM chain by its decimal chain id (e.g. "137" for
// Polygon). String form matches what the claim link and the backend API carry.
type ChainID string

// Int parses the chain id into a *big.Int for use with signers and
// EIP-712 domains.
func (c ChainID) Int() (*big.Int, error) {
	id, ok := new(big.Int).SetString(string(c), 10)
	if !ok || id.Sign() <= 0 {
		return nil, fmt.Errorf("invalid chain id: %q", c)
	}
	return id, nil
}

// Uint64 parses the chain id as a uint64.
func (c ChainID) Uint64() (uint64, error) {
	id, err := strconv.ParseUint(string(c), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid chain id: %q", c)
	}
	return id, nil
}

// TokenType classifies the deposited asset.
type TokenType string

const (
	// TokenTypeNative is the chain's gas currency (ETH, MATIC, ...).
	TokenTypeNative TokenType = "native"
	// TokenTypeFungible is an ERC-20 token.
	TokenTypeFungible TokenType = "fungible"
)

// TransactionType selects which submission path a prepared link takes.
// The two paths are mutually exclusive for a given attempt.
type TransactionType string

const (
	TransactionTypeStandard TransactionType = "not-gasless"
	TransactionTypeGasless  TransactionType = "gasless"
)

// LinkDetails holds the on-chain parameters of a claim link. Immutable once
// built; the token amount is already rounded to six decimal places and is
// exactly what the deposit transaction moves.
type LinkDetails struct {
	ChainID       ChainID         `json:"chainId"`
	TokenAddress  string          `json:"tokenAddress"`
	TokenType     TokenType       `json:"tokenType"`
	TokenDecimals int             `json:"tokenDecimals"`
	TokenAmount   decimal.Decimal `json:"tokenAmount"`
	BaseClaimURL  string          `json:"baseClaimUrl"`
	TrackID       string          `json:"trackId"`
}

// PreparedTransaction is a single unsigned transaction descriptor returned by
// the payments SDK. When a deposit needs an ERC-20 approval the SDK returns
// two of these and the approval (index 0) must confirm before the deposit
// (index 1) is broadcast.
type PreparedTransaction struct {
	To    string   `json:"to"`
	Value *big.Int `json:"value,omitempty"`
	Data  []byte   `json:"data,omitempty"`
}

// FeeOptions carries the gas fields applied when broadcasting a transaction.
// Either GasPrice (legacy) or the MaxFeePerGas pair (EIP-1559) is set.
type FeeOptions struct {
	GasLimit             *big.Int `json:"gasLimit,omitempty"`
	GasPrice             *big.Int `json:"gasPrice,omitempty"`
	MaxFeePerGas         *big.Int `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *big.Int `json:"maxPriorityFeePerGas,omitempty"`
}

// MaxCostWei returns the worst-case fee in wei (gasLimit * price), or nil if
// the options are incomplete.
func (f *FeeOptions) MaxCostWei() *big.Int {
	if f == nil || f.GasLimit == nil {
		return nil
	}
	price := f.MaxFeePerGas
	if price == nil {
		price = f.GasPrice
	}
	if price == nil {
		return nil
	}
	return new(big.Int).Mul(f.GasLimit, price)
}

// FeeEstimate is the display-facing result of fee estimation. Its absence
// never blocks submission; the fee display simply degrades to "unknown".
type FeeEstimate struct {
	Options     *FeeOptions     `json:"feeOptions"`
	CostNative  decimal.Decimal `json:"costNative"`
	CostDisplay decimal.Decimal `json:"costDisplay"`
}

// TypedDataDomain is the EIP-712 domain separator.
type TypedDataDomain struct {
	Name              string   `json:"name,omitempty"`
	Version           string   `json:"version,omitempty"`
	ChainID           *big.Int `json:"chainId,omitempty"`
	VerifyingContract string   `json:"verifyingContract,omitempty"`
}

// TypedDataField is a single field within an EIP-712 type definition.
type TypedDataField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// GaslessMessage is the EIP-712 structure the user signs to authorize a
// gas-sponsored deposit.
type GaslessMessage struct {
	Domain      TypedDataDomain             `json:"domain"`
	Types       map[string][]TypedDataField `json:"types"`
	PrimaryType string                      `json:"primaryType"`
	Values      map[string]interface{}      `json:"values"`
}

// GaslessPayload is the data submitted to the sponsoring relay together with
// the user's signature over the matching GaslessMessage.
type GaslessPayload struct {
	ChainID         ChainID `json:"chainId"`
	ContractVersion string  `json:"contractVersion"`
	TokenAddress    string  `json:"tokenAddress"`
	Amount          string  `json:"amount"`
	SenderAddress   string  `json:"senderAddress"`
	ValidAfter      string  `json:"validAfter"`
	ValidBefore     string  `json:"validBefore"`
	Nonce           string  `json:"nonce"`
}

// GaslessBundle pairs the relay payload with the message to sign. The SDK
// returns both or neither; an incomplete pair aborts the gasless path.
type GaslessBundle struct {
	Payload GaslessPayload `json:"payload"`
	Message GaslessMessage `json:"message"`
}

// Complete reports whether the bundle carries both a payload and a signable
// message.
func (b *GaslessBundle) Complete() bool {
	return b != nil && b.Payload.ChainID != "" && b.Message.PrimaryType != ""
}

// Log is a minimal receipt log entry, enough to decode the deposit event.
type Log struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
	Data    []byte   `json:"data"`
}

// Receipt is the mined result of a broadcast transaction.
type Receipt struct {
	TxHash      string `json:"txHash"`
	Status      uint64 `json:"status"`
	BlockNumber uint64 `json:"blockNumber"`
	Logs        []Log  `json:"logs"`
}

// Receipt status values.
const (
	TxStatusFailed  = 0
	TxStatusSuccess = 1
)

// AttachmentOptions is the optional message/file a sender attaches to a link.
// The file is uploaded during claim-link init and referenced by URL afterwards.
type AttachmentOptions struct {
	Message  string `json:"message,omitempty"`
	FileName string `json:"fileName,omitempty"`
	FileData []byte `json:"-"`
}

// CreatedLink is the local record of a link this client created. It is a
// client-side cache for "my created links" listings, not authoritative state.
type CreatedLink struct {
	ID            string          `json:"id"`
	Address       string          `json:"address"`
	Link          string          `json:"link"`
	DepositDate   time.Time       `json:"depositDate"`
	TokenPriceUSD decimal.Decimal `json:"tokenPriceUsd"`
	Points        int             `json:"points"`
	TxHash        string          `json:"txHash"`
	Message       string          `json:"message,omitempty"`
	AttachmentURL string          `json:"attachmentUrl,omitempty"`

	ChainID       ChainID         `json:"chainId"`
	TokenAddress  string          `json:"tokenAddress"`
	TokenType     TokenType       `json:"tokenType"`
	TokenDecimals int             `json:"tokenDecimals"`
	TokenAmount   decimal.Decimal `json:"tokenAmount"`
}

// TokenPreference is the user's last used token, remembered across flows.
type TokenPreference struct {
	ChainID      ChainID `json:"chainId"`
	TokenAddress string  `json:"tokenAddress"`
	Decimals     int     `json:"decimals"`
}
