package claimlink

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// DepositPreparer asks the payments SDK to build the unsigned deposit, in
// either its standard or gas-sponsored form. The two operations are mutually
// exclusive for a given attempt.
type DepositPreparer struct {
	sdk PaymentsSDK
}

// NewDepositPreparer wraps the SDK in the preparer.
func NewDepositPreparer(sdk PaymentsSDK) *DepositPreparer {
	return &DepositPreparer{sdk: sdk}
}

// PrepareStandardDeposit builds the unsigned transactions for a fee-paying
// deposit. One transaction for deposit-only, two when the token needs an
// ERC-20 approval first. No internal retry.
func (p *DepositPreparer) PrepareStandardDeposit(ctx context.Context, details LinkDetails, password, sender string) ([]PreparedTransaction, error) {
	txs, err := p.sdk.PrepareDepositTransactions(ctx, sender, details, []string{password})
	if err != nil {
		return nil, WrapFlowError(ErrCodeDepositPreparation, "failed to prepare deposit transactions", err)
	}
	if len(txs) == 0 {
		return nil, NewFlowError(ErrCodeDepositPreparation, "SDK returned no deposit transactions", nil)
	}
	return txs, nil
}

// PrepareGaslessDeposit builds the relay payload and EIP-712 message for a
// gas-sponsored deposit. Returns (nil, nil) when the SDK hands back an
// incomplete payload/message pair; callers treat that as an abort condition,
// not a crash.
func (p *DepositPreparer) PrepareGaslessDeposit(ctx context.Context, details LinkDetails, password, sender, contractVersion string) (*GaslessBundle, error) {
	bundle, err := p.sdk.MakeGaslessDepositPayload(ctx, details, password, sender, contractVersion)
	if err != nil {
		return nil, WrapFlowError(ErrCodeDepositPreparation, "failed to prepare gasless deposit", err)
	}
	if !bundle.Complete() {
		return nil, nil
	}
	return bundle, nil
}

// erc20TransferABI is the minimal ABI needed to encode transfer calldata for
// direct wallet-to-wallet sends.
const erc20TransferABI = `[{"name":"transfer","type":"function","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]}]`

// PrepareDirectTransfer builds a single unsigned transaction moving tokens
// straight to a recipient, bypassing the claim contract. Native amounts are
// rounded to seven decimal places before conversion to wei.
func PrepareDirectTransfer(recipient, tokenAddress, tokenValue string, tokenDecimals int) (*PreparedTransaction, error) {
	amount, err := decimal.NewFromString(tokenValue)
	if err != nil || amount.Sign() <= 0 {
		return nil, NewFlowError(ErrCodeInvalidAmount, "token amount is not a positive number", nil)
	}

	if IsNativeToken(tokenAddress) {
		wei := amount.Round(DirectSendNativeDecimals).Shift(18)
		return &PreparedTransaction{
			To:    recipient,
			Value: wei.BigInt(),
		}, nil
	}

	parsed, err := abi.JSON(strings.NewReader(erc20TransferABI))
	if err != nil {
		return nil, err
	}
	units := amount.Shift(int32(tokenDecimals)).BigInt()
	data, err := parsed.Pack("transfer", common.HexToAddress(recipient), units)
	if err != nil {
		return nil, err
	}
	return &PreparedTransaction{
		To:    tokenAddress,
		Value: big.NewInt(0),
		Data:  data,
	}, nil
}
