package claimlink

import "strings"

const (
	// DefaultTrackID tags links created through this library.
	DefaultTrackID = "ui"

	// MinTokenAmount is the smallest amount a link may carry.
	MinTokenAmount = "0.000001"

	// LinkAmountDecimals is the rounding applied to the deposited amount
	// before it is embedded in the link details.
	LinkAmountDecimals = 6

	// DirectSendNativeDecimals is the rounding applied to native amounts in
	// direct wallet-to-wallet transfers.
	DirectSendNativeDecimals = 7

	// NativeFeeSafetyMargin scales the estimated gas cost when checking
	// whether a native-currency deposit still fits the sender's balance.
	NativeFeeSafetyMargin = "1.3"

	// ApprovalConfirmations is how many confirmations the approval
	// transaction needs before the dependent deposit is broadcast.
	ApprovalConfirmations = 4

	// PasswordByteLength sizes the random claim secret.
	PasswordByteLength = 16
)

// Native-token sentinel addresses. Both the zero address and the 0xeeee...
// convention appear in token lists.
var nativeTokenSentinels = map[string]bool{
	"0x0000000000000000000000000000000000000000": true,
	"0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee": true,
}

// IsNativeToken reports whether the address denotes the chain's gas currency.
func IsNativeToken(address string) bool {
	return nativeTokenSentinels[strings.ToLower(address)]
}

// ContractVersionLatest is the newest deployed claim contract version.
const ContractVersionLatest = "v4.4"

// gaslessContractVersions are the contract versions that support
// gas-sponsored (EIP-3009 authorized) deposits.
var gaslessContractVersions = map[string]bool{
	"v4.2": true,
	"v4.3": true,
	"v4.4": true,
}

// ChainConfig describes a supported chain.
type ChainConfig struct {
	Name            string
	ContractVersion string
	// SponsoredTokens are token addresses eligible for gas-sponsored
	// deposits on this chain (lowercase hex).
	SponsoredTokens []string
}

// ChainConfigs lists the chains the flow supports. Sponsored tokens are the
// canonical USDC deployments; only EIP-3009 capable tokens can be sponsored.
var ChainConfigs = map[ChainID]ChainConfig{
	// Ethereum Mainnet
	"1": {
		Name:            "ethereum",
		ContractVersion: ContractVersionLatest,
		SponsoredTokens: []string{"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"},
	},
	// Optimism
	"10": {
		Name:            "optimism",
		ContractVersion: ContractVersionLatest,
		SponsoredTokens: []string{"0x0b2c639c533813f4aa9d7837caf62653d097ff85"},
	},
	// Polygon PoS
	"137": {
		Name:            "polygon",
		ContractVersion: ContractVersionLatest,
		SponsoredTokens: []string{"0x3c499c542cef5e3811e1192ce70d8cc03d5c3359"},
	},
	// Base
	"8453": {
		Name:            "base",
		ContractVersion: ContractVersionLatest,
		SponsoredTokens: []string{"0x833589fcd6edb6e08f4c7c32d4f71b54bda02913"},
	},
	// Arbitrum One
	"42161": {
		Name:            "arbitrum",
		ContractVersion: ContractVersionLatest,
		SponsoredTokens: []string{"0xaf88d065e77c8cc2239327c5edb3a432268e5831"},
	},
	// Base Sepolia (testnet)
	"84532": {
		Name:            "base-sepolia",
		ContractVersion: ContractVersionLatest,
		SponsoredTokens: []string{"0x036cbd53842c5426634e7929541ec2318f3dcf7e"},
	},
}
