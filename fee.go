package claimlink

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// weiDecimals shifts between wei and whole native units.
const weiDecimals = 18

// FeeEstimator converts SDK gas estimates into a display-currency cost.
// Estimation failure is non-fatal everywhere: callers proceed with a nil
// estimate and the fee display degrades to "unknown".
type FeeEstimator struct {
	sdk    PaymentsSDK
	prices PriceOracle
	log    *zap.Logger
}

// NewFeeEstimator builds an estimator. prices may be nil, in which case only
// the native cost is filled in. log may be nil.
func NewFeeEstimator(sdk PaymentsSDK, prices PriceOracle, log *zap.Logger) *FeeEstimator {
	if log == nil {
		log = zap.NewNop()
	}
	return &FeeEstimator{sdk: sdk, prices: prices, log: log}
}

// Estimate computes the fee for a representative prepared transaction. The
// native cost is gasLimit * price expressed in whole native units; the
// display cost is that figure times the native token's USD price.
func (e *FeeEstimator) Estimate(ctx context.Context, chainID ChainID, tx *PreparedTransaction) (*FeeEstimate, error) {
	opts, err := e.sdk.EstimateFeeOptions(ctx, chainID, tx)
	if err != nil {
		return nil, err
	}

	est := &FeeEstimate{Options: opts}
	if cost := opts.MaxCostWei(); cost != nil {
		est.CostNative = decimal.NewFromBigInt(cost, 0).Shift(-weiDecimals)
	}

	if e.prices != nil && !est.CostNative.IsZero() {
		price, err := e.prices.TokenPrice(ctx, chainID, "0x0000000000000000000000000000000000000000")
		if err != nil {
			// Price lookup failing only loses the USD figure.
			e.log.Warn("native token price lookup failed", zap.String("chainId", string(chainID)), zap.Error(err))
		} else {
			est.CostDisplay = est.CostNative.Mul(price)
		}
	}

	return est, nil
}

// AmountAdjustment records a pre-submission reduction of the requested
// amount so a native-currency deposit still covers its own gas.
type AmountAdjustment struct {
	Original decimal.Decimal
	Adjusted decimal.Decimal
	GasCost  decimal.Decimal
}

// Error surfaces the adjustment as a recoverable, actionable notice.
func (a *AmountAdjustment) Error() *FlowError {
	return NewFlowError(ErrCodeInsufficientBalance,
		"insufficient balance for fees, amount adjusted to "+a.Adjusted.String(),
		map[string]interface{}{
			"original": a.Original.String(),
			"adjusted": a.Adjusted.String(),
			"gasCost":  a.GasCost.String(),
		})
}

// AdjustAmountForNativeFee checks a native-currency deposit against the
// sender's balance including the estimated gas cost (scaled by a safety
// margin). When the balance cannot cover amount + fee, the requested amount
// is reduced by the shortfall and the adjustment is returned so the caller
// can surface it; otherwise nil is returned and the amount stands.
func AdjustAmountForNativeFee(amount, balance, gasCost decimal.Decimal) *AmountAdjustment {
	margin := decimal.RequireFromString(NativeFeeSafetyMargin)
	padded := gasCost.Mul(margin)

	required := amount.Add(padded)
	if balance.GreaterThanOrEqual(required) {
		return nil
	}

	// Reduce the request by the padded gas cost; when the balance is below
	// the requested amount the balance is the starting point instead.
	base := amount
	if balance.LessThan(base) {
		base = balance
	}
	adjusted := base.Sub(padded).Round(LinkAmountDecimals)
	if adjusted.Sign() < 0 {
		adjusted = decimal.Zero
	}
	return &AmountAdjustment{
		Original: amount,
		Adjusted: adjusted,
		GasCost:  gasCost,
	}
}
