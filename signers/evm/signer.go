// Package evm provides a local-key implementation of the wallet signer used
// by the claim-link flow: EIP-712 signing for gasless deposits, transaction
// broadcast and receipt tracking over an RPC connection.
package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/claimlink/claimlink-go"
)

const receiptPollInterval = 2 * time.Second

// LocalSigner implements claimlink.WalletSigner using an in-process ECDSA
// private key and an ethclient connection. Suitable for server-side wallets
// and tests; a browser wallet would satisfy the same interface remotely.
type LocalSigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	ethClient  *ethclient.Client
}

// NewLocalSigner creates a signer from a hex-encoded private key.
//
// Args:
//
//	privateKeyHex: Hex-encoded private key (with or without "0x" prefix)
//	ethClient: RPC connection used for broadcast and receipt polling;
//	           may be nil if only SignTypedData is needed
//
// Returns:
//
//	A signer ready for use with claimlink.NewOrchestrator
//	Error if the private key is invalid
func NewLocalSigner(privateKeyHex string, ethClient *ethclient.Client) (*LocalSigner, error) {
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	return &LocalSigner{
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		ethClient:  ethClient,
	}, nil
}

// Address returns the signer's Ethereum address.
func (s *LocalSigner) Address() string {
	return s.address.Hex()
}

// SignTypedData signs EIP-712 typed data.
//
// Args:
//
//	ctx: Context for cancellation and timeout control
//	domain: EIP-712 domain separator
//	fieldTypes: Type definitions for the structured data
//	primaryType: The primary type being signed
//	message: The message data to sign
//
// Returns:
//
//	65-byte signature (r, s, v)
//	Error if signing fails
func (s *LocalSigner) SignTypedData(
	ctx context.Context,
	domain claimlink.TypedDataDomain,
	fieldTypes map[string][]claimlink.TypedDataField,
	primaryType string,
	message map[string]interface{},
) ([]byte, error) {
	typedData := apitypes.TypedData{
		Types:       make(apitypes.Types),
		PrimaryType: primaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              domain.Name,
			Version:           domain.Version,
			ChainId:           (*math.HexOrDecimal256)(domain.ChainID),
			VerifyingContract: domain.VerifyingContract,
		},
		Message: message,
	}

	for typeName, fields := range fieldTypes {
		typed := make([]apitypes.Type, len(fields))
		for i, field := range fields {
			typed[i] = apitypes.Type{Name: field.Name, Type: field.Type}
		}
		typedData.Types[typeName] = typed
	}

	if _, exists := typedData.Types["EIP712Domain"]; !exists {
		typedData.Types["EIP712Domain"] = []apitypes.Type{
			{Name: "name", Type: "string"},
			{Name: "version", Type: "string"},
			{Name: "chainId", Type: "uint256"},
			{Name: "verifyingContract", Type: "address"},
		}
	}

	dataHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to hash struct: %w", err)
	}

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to hash domain: %w", err)
	}

	// EIP-712 digest: 0x19 0x01 <domainSeparator> <dataHash>
	rawData := []byte{0x19, 0x01}
	rawData = append(rawData, domainSeparator...)
	rawData = append(rawData, dataHash...)
	digest := crypto.Keccak256(rawData)

	signature, err := crypto.Sign(digest, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}

	// Recovery ID 0/1 → 27/28
	signature[64] += 27

	return signature, nil
}

// SendTransaction signs and broadcasts one transaction, returning its hash.
// Missing fee fields are filled from the node's suggestions.
func (s *LocalSigner) SendTransaction(ctx context.Context, chainID claimlink.ChainID, tx claimlink.PreparedTransaction, fees *claimlink.FeeOptions) (string, error) {
	if s.ethClient == nil {
		return "", fmt.Errorf("SendTransaction requires an ethclient connection")
	}

	id, err := chainID.Int()
	if err != nil {
		return "", err
	}

	nonce, err := s.ethClient.PendingNonceAt(ctx, s.address)
	if err != nil {
		return "", fmt.Errorf("failed to fetch nonce: %w", err)
	}

	to := common.HexToAddress(tx.To)
	value := tx.Value
	if value == nil {
		value = new(big.Int)
	}

	gasLimit, gasTipCap, gasFeeCap, err := s.resolveFees(ctx, to, value, tx.Data, fees)
	if err != nil {
		return "", err
	}

	signed, err := types.SignNewTx(s.privateKey, types.LatestSignerForChainID(id), &types.DynamicFeeTx{
		ChainID:   id,
		Nonce:     nonce,
		GasTipCap: gasTipCap,
		GasFeeCap: gasFeeCap,
		Gas:       gasLimit,
		To:        &to,
		Value:     value,
		Data:      tx.Data,
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := s.ethClient.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("failed to broadcast transaction: %w", err)
	}

	return signed.Hash().Hex(), nil
}

func (s *LocalSigner) resolveFees(ctx context.Context, to common.Address, value *big.Int, data []byte, fees *claimlink.FeeOptions) (uint64, *big.Int, *big.Int, error) {
	var gasLimit uint64
	if fees != nil && fees.GasLimit != nil {
		gasLimit = fees.GasLimit.Uint64()
	} else {
		msg := ethereum.CallMsg{From: s.address, To: &to, Value: value, Data: data}
		estimated, err := s.ethClient.EstimateGas(ctx, msg)
		if err != nil {
			return 0, nil, nil, fmt.Errorf("failed to estimate gas: %w", err)
		}
		gasLimit = estimated
	}

	var gasTipCap, gasFeeCap *big.Int
	if fees != nil && fees.MaxFeePerGas != nil {
		gasFeeCap = fees.MaxFeePerGas
		gasTipCap = fees.MaxPriorityFeePerGas
		if gasTipCap == nil {
			gasTipCap = gasFeeCap
		}
	} else if fees != nil && fees.GasPrice != nil {
		gasFeeCap = fees.GasPrice
		gasTipCap = fees.GasPrice
	} else {
		tip, err := s.ethClient.SuggestGasTipCap(ctx)
		if err != nil {
			return 0, nil, nil, fmt.Errorf("failed to suggest gas tip: %w", err)
		}
		head, err := s.ethClient.HeaderByNumber(ctx, nil)
		if err != nil {
			return 0, nil, nil, fmt.Errorf("failed to fetch head: %w", err)
		}
		gasTipCap = tip
		// tip + 2 * baseFee leaves headroom for base-fee growth.
		gasFeeCap = new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	return gasLimit, gasTipCap, gasFeeCap, nil
}

// WaitForReceipt blocks until the transaction has the requested number of
// confirmations. Confirmation count 1 means "mined".
func (s *LocalSigner) WaitForReceipt(ctx context.Context, chainID claimlink.ChainID, txHash string, confirmations uint64) (*claimlink.Receipt, error) {
	if s.ethClient == nil {
		return nil, fmt.Errorf("WaitForReceipt requires an ethclient connection")
	}
	if confirmations == 0 {
		confirmations = 1
	}

	hash := common.HexToHash(txHash)
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := s.ethClient.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			head, headErr := s.ethClient.BlockNumber(ctx)
			if headErr == nil && head >= receipt.BlockNumber.Uint64()+confirmations-1 {
				return convertReceipt(receipt), nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func convertReceipt(receipt *types.Receipt) *claimlink.Receipt {
	logs := make([]claimlink.Log, 0, len(receipt.Logs))
	for _, l := range receipt.Logs {
		topics := make([]string, len(l.Topics))
		for i, t := range l.Topics {
			topics[i] = t.Hex()
		}
		logs = append(logs, claimlink.Log{
			Address: l.Address.Hex(),
			Topics:  topics,
			Data:    l.Data,
		})
	}
	return &claimlink.Receipt{
		TxHash:      receipt.TxHash.Hex(),
		Status:      receipt.Status,
		BlockNumber: receipt.BlockNumber.Uint64(),
		Logs:        logs,
	}
}
