package claimlink

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"github.com/claimlink/claimlink-go/retry"
)

// receiptWaitOptions bounds the wait for the approval transaction's receipt.
// After exhaustion the deposit is broadcast anyway; if the approval truly did
// not land the deposit fails on-chain and surfaces through the normal
// submission failure path.
var receiptWaitOptions = retry.Options{
	MaxAttempts: 3,
	Delay:       500 * time.Millisecond,
}

// defaultReceiptTimeout caps one receipt wait. Signers may poll until their
// context is done, so without a per-attempt deadline a never-mined
// transaction would stall the flow instead of degrading non-fatally.
const defaultReceiptTimeout = 15 * time.Second

// TransactionSubmitter signs and broadcasts prepared transactions in order
// through the active wallet signer.
type TransactionSubmitter struct {
	sdk    PaymentsSDK
	signer WalletSigner
	log    *zap.Logger

	receiptTimeout time.Duration
}

// NewTransactionSubmitter builds a submitter. log may be nil.
func NewTransactionSubmitter(sdk PaymentsSDK, signer WalletSigner, log *zap.Logger) *TransactionSubmitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &TransactionSubmitter{sdk: sdk, signer: signer, log: log, receiptTimeout: defaultReceiptTimeout}
}

// SubmitResult is the outcome of a submission sequence. Hash is the deposit
// transaction's hash (the last in the sequence); Receipt is set when the
// final transaction was waited on.
type SubmitResult struct {
	Hashes  []string
	Hash    string
	Receipt *Receipt
}

// Submit broadcasts the prepared transactions sequentially. For each one it
// requests fresh fee options, falling back to the caller-supplied ones when
// estimation fails. With a two-transaction sequence (approval + deposit) the
// approval must confirm before the deposit is broadcast; the receipt wait is
// retried a few times and then given up on, non-fatally.
func (s *TransactionSubmitter) Submit(ctx context.Context, chainID ChainID, txs []PreparedTransaction, fallbackFees *FeeOptions) (*SubmitResult, error) {
	if len(txs) == 0 {
		return nil, NewFlowError(ErrCodeSubmissionFailed, "no transactions to submit", nil)
	}

	result := &SubmitResult{}
	for i, tx := range txs {
		fees, err := s.sdk.EstimateFeeOptions(ctx, chainID, &tx)
		if err != nil {
			s.log.Debug("fee estimation failed, using fallback fee options",
				zap.String("chainId", string(chainID)), zap.Error(err))
			fees = fallbackFees
		}

		hash, err := s.signer.SendTransaction(ctx, chainID, tx, fees)
		if err != nil {
			return nil, WrapFlowError(ErrCodeSubmissionFailed, "transaction signing or broadcast failed", err)
		}
		result.Hashes = append(result.Hashes, hash)
		result.Hash = hash

		// Approval must land before the dependent deposit is broadcast.
		if len(txs) == 2 && i == 0 {
			s.waitForApproval(ctx, chainID, hash)
		}
	}

	// Wait for the deposit itself so the resolver can decode its logs.
	waitCtx, cancel := context.WithTimeout(ctx, s.receiptTimeout)
	receipt, err := s.signer.WaitForReceipt(waitCtx, chainID, result.Hash, 1)
	cancel()
	if err != nil {
		// The transaction is broadcast; the resolver can still work from
		// the hash alone.
		s.log.Warn("deposit receipt not available yet",
			zap.String("txHash", result.Hash), zap.Error(err))
		return result, nil
	}
	if receipt.Status == TxStatusFailed {
		return nil, NewFlowError(ErrCodeSubmissionFailed, "deposit transaction reverted",
			map[string]interface{}{"txHash": result.Hash})
	}
	result.Receipt = receipt
	return result, nil
}

func (s *TransactionSubmitter) waitForApproval(ctx context.Context, chainID ChainID, hash string) {
	err := retry.Do(ctx, receiptWaitOptions, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, s.receiptTimeout)
		defer cancel()
		_, err := s.signer.WaitForReceipt(attemptCtx, chainID, hash, ApprovalConfirmations)
		return err
	})
	if err != nil {
		s.log.Warn("approval confirmation wait exhausted, proceeding",
			zap.String("txHash", hash), zap.Error(err))
	}
}

// GaslessSubmitter obtains the user's typed-data signature and hands the
// signed payload to the sponsoring relay.
type GaslessSubmitter struct {
	signer WalletSigner
	relay  GaslessRelay
	log    *zap.Logger
}

// NewGaslessSubmitter builds a gasless submitter. log may be nil.
func NewGaslessSubmitter(signer WalletSigner, relay GaslessRelay, log *zap.Logger) *GaslessSubmitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &GaslessSubmitter{signer: signer, relay: relay, log: log}
}

// GaslessOutcome reports a gasless submission. Cancelled is a normal,
// expected outcome when the user declines to sign; it is not an error and
// leaves the flow ready for retry.
type GaslessOutcome struct {
	Cancelled bool
	TxHash    string
}

// Submit signs the bundle's EIP-712 message and forwards payload + signature
// to the relay. The relay's response contains the sponsored transaction hash.
func (g *GaslessSubmitter) Submit(ctx context.Context, bundle *GaslessBundle) (*GaslessOutcome, error) {
	if !bundle.Complete() {
		return nil, NewFlowError(ErrCodeGaslessSubmission, "gasless bundle is incomplete", nil)
	}

	msg := bundle.Message
	sig, err := g.signer.SignTypedData(ctx, msg.Domain, msg.Types, msg.PrimaryType, msg.Values)
	if err != nil {
		return nil, WrapFlowError(ErrCodeGaslessSubmission, "typed data signing failed", err)
	}
	if len(sig) == 0 {
		// User declined in the wallet.
		return &GaslessOutcome{Cancelled: true}, nil
	}

	hash, err := g.relay.SubmitDeposit(ctx, bundle.Payload, hexutil.Encode(sig))
	if err != nil {
		return nil, WrapFlowError(ErrCodeGaslessSubmission, "relay rejected the sponsored deposit", err)
	}
	return &GaslessOutcome{TxHash: hash}, nil
}
