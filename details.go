package claimlink

import (
	"github.com/shopspring/decimal"
)

// LinkDetailsParams is the user input that becomes a LinkDetails.
type LinkDetailsParams struct {
	TokenValue    string
	ChainID       ChainID
	TokenAddress  string
	TokenDecimals int
	TokenType     TokenType
	BaseClaimURL  string
	// TrackID tags the link's origin; defaults to DefaultTrackID.
	TrackID string
}

// BuildLinkDetails derives the link's on-chain parameters from user input.
// The amount is rounded to six decimal places before being embedded; that
// rounded figure is what the deposit transaction will move. No I/O.
func BuildLinkDetails(params LinkDetailsParams) (*LinkDetails, error) {
	amount, err := decimal.NewFromString(params.TokenValue)
	if err != nil {
		return nil, WrapFlowError(ErrCodeInvalidAmount, "token amount is not a number", err)
	}

	minAmount := decimal.RequireFromString(MinTokenAmount)
	if amount.LessThan(minAmount) {
		return nil, NewFlowError(ErrCodeInvalidAmount,
			"the minimum amount to send is "+MinTokenAmount,
			map[string]interface{}{"tokenValue": params.TokenValue})
	}

	if params.ChainID == "" || params.TokenAddress == "" {
		return nil, NewFlowError(ErrCodeInvalidAmount, "chain and token must be selected", nil)
	}

	trackID := params.TrackID
	if trackID == "" {
		trackID = DefaultTrackID
	}

	return &LinkDetails{
		ChainID:       params.ChainID,
		TokenAddress:  params.TokenAddress,
		TokenType:     params.TokenType,
		TokenDecimals: params.TokenDecimals,
		TokenAmount:   amount.Round(LinkAmountDecimals),
		BaseClaimURL:  params.BaseClaimURL,
		TrackID:       trackID,
	}, nil
}

// CheckBalance verifies the sender can cover the amount, plus gas headroom
// when the token is the chain's native currency. A nil balance means the
// caller does not know the balance and the check is skipped.
func CheckBalance(balance *decimal.Decimal, tokenAddress string, amount decimal.Decimal, gasCost decimal.Decimal) error {
	if balance == nil {
		return nil
	}

	required := amount
	if IsNativeToken(tokenAddress) {
		required = required.Add(gasCost)
	}

	if balance.LessThan(required) {
		return NewFlowError(ErrCodeInsufficientBalance,
			"insufficient balance of the token you are trying to send",
			map[string]interface{}{
				"required":  required.String(),
				"available": balance.String(),
			})
	}
	return nil
}
