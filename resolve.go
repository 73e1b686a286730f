package claimlink

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// depositEventSignature is the claim contract's deposit event. The deposit
// index arrives as the first indexed topic.
const depositEventSignature = "DepositEvent(uint256,uint8,uint256,address)"

var depositEventID = crypto.Keccak256Hash([]byte(depositEventSignature))

// LinkResolver turns a mined deposit into the shareable claim link.
type LinkResolver struct {
	sdk PaymentsSDK
}

// NewLinkResolver builds a resolver around the SDK's transaction lookup.
func NewLinkResolver(sdk PaymentsSDK) *LinkResolver {
	return &LinkResolver{sdk: sdk}
}

// FromReceipt decodes the deposit event out of the receipt and assembles the
// link locally, no network round-trip. A receipt with no deposit event (for
// example a reverted transaction, or one that targeted the wrong contract)
// fails with link_resolution_failed.
func (r *LinkResolver) FromReceipt(receipt *Receipt, details LinkDetails, password string) (string, error) {
	idx, ok := depositIndexFromReceipt(receipt)
	if !ok {
		return "", NewFlowError(ErrCodeLinkResolution, "no deposit event in transaction receipt",
			map[string]interface{}{"txHash": receipt.TxHash})
	}

	return BuildLink(details.BaseClaimURL, LinkParams{
		ChainID:         details.ChainID,
		ContractVersion: LatestContractVersion(details.ChainID),
		DepositIdx:      idx,
		Password:        password,
	}), nil
}

// FromHash resolves the link through the SDK when no receipt is at hand
// (some gasless paths). The SDK polls until the transaction is mined and
// performs the same decode; a transaction carrying several deposits yields
// several links and the first is used.
func (r *LinkResolver) FromHash(ctx context.Context, txHash string, details LinkDetails, password string) (string, error) {
	links, err := r.sdk.LinksFromTransaction(ctx, details, txHash, []string{password})
	if err != nil {
		return "", WrapFlowError(ErrCodeLinkResolution, "link lookup from transaction failed", err)
	}
	if len(links) == 0 {
		return "", NewFlowError(ErrCodeLinkResolution, "transaction produced no claim links",
			map[string]interface{}{"txHash": txHash})
	}
	return links[0], nil
}

// depositIndexFromReceipt scans the receipt logs for the deposit event and
// extracts its index. Returns false when the event is absent.
func depositIndexFromReceipt(receipt *Receipt) (uint64, bool) {
	if receipt == nil {
		return 0, false
	}
	for _, log := range receipt.Logs {
		if len(log.Topics) < 2 {
			continue
		}
		if !strings.EqualFold(log.Topics[0], depositEventID.Hex()) {
			continue
		}
		idx := new(big.Int).SetBytes(common.HexToHash(log.Topics[1]).Bytes())
		if !idx.IsUint64() {
			continue
		}
		return idx.Uint64(), true
	}
	return 0, false
}
