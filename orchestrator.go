package claimlink

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Orchestrator sequences the whole link lifecycle: prepare (balance check,
// details, password, gasless-vs-standard branch, fee estimate) and then
// create-and-process (backend init, submission, link resolution, local
// persistence, backend confirm).
type Orchestrator struct {
	sdk     PaymentsSDK
	signer  WalletSigner
	backend BackendService
	relay   GaslessRelay
	store   LinkStore
	prices  PriceOracle
	log     *zap.Logger

	preparer  *DepositPreparer
	estimator *FeeEstimator
	submitter *TransactionSubmitter
	gasless   *GaslessSubmitter
	resolver  *LinkResolver

	// refreshBalances is invoked fire-and-forget after a successful flow.
	refreshBalances func(address string)
}

// OrchestratorConfig wires the orchestrator's collaborators. SDK, Signer and
// Backend are required; the rest degrade gracefully when absent.
type OrchestratorConfig struct {
	SDK             PaymentsSDK
	Signer          WalletSigner
	Backend         BackendService
	Relay           GaslessRelay
	Store           LinkStore
	Prices          PriceOracle
	Logger          *zap.Logger
	RefreshBalances func(address string)
}

// NewOrchestrator builds the flow orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		sdk:             cfg.SDK,
		signer:          cfg.Signer,
		backend:         cfg.Backend,
		relay:           cfg.Relay,
		store:           cfg.Store,
		prices:          cfg.Prices,
		log:             log,
		preparer:        NewDepositPreparer(cfg.SDK),
		estimator:       NewFeeEstimator(cfg.SDK, cfg.Prices, log),
		submitter:       NewTransactionSubmitter(cfg.SDK, cfg.Signer, log),
		gasless:         NewGaslessSubmitter(cfg.Signer, cfg.Relay, log),
		resolver:        NewLinkResolver(cfg.SDK),
		refreshBalances: cfg.RefreshBalances,
	}
}

// PrepareParams carries the user's selection into PrepareLink.
type PrepareParams struct {
	TokenValue    string
	ChainID       ChainID
	TokenAddress  string
	TokenDecimals int
	TokenType     TokenType
	BaseClaimURL  string
	// Balance of the selected token, when known. Nil skips the check.
	Balance    *decimal.Decimal
	Attachment AttachmentOptions
}

// PreparedLink is everything needed to submit after user confirmation.
// Exactly one of Transactions or Bundle is set; selecting one path precludes
// the other for this attempt.
type PreparedLink struct {
	Type     TransactionType
	Details  LinkDetails
	Password string

	Transactions []PreparedTransaction
	Bundle       *GaslessBundle

	Fee        *FeeEstimate
	Adjustment *AmountAdjustment
}

// PrepareLink runs the pre-confirmation half of the flow: validate input,
// build details, generate a fresh password, decide the submission path and
// estimate fees. Moves the session to CONFIRM on success.
func (o *Orchestrator) PrepareLink(ctx context.Context, session *FlowSession, params PrepareParams) (*PreparedLink, error) {
	if err := CheckBalance(params.Balance, params.TokenAddress, mustDecimal(params.TokenValue), decimal.Zero); err != nil {
		return nil, err
	}

	details, err := BuildLinkDetails(LinkDetailsParams{
		TokenValue:    params.TokenValue,
		ChainID:       params.ChainID,
		TokenAddress:  params.TokenAddress,
		TokenDecimals: params.TokenDecimals,
		TokenType:     params.TokenType,
		BaseClaimURL:  params.BaseClaimURL,
	})
	if err != nil {
		return nil, err
	}

	// One fresh password per attempt, never reused.
	password, err := GeneratePassword()
	if err != nil {
		return nil, err
	}

	sender := o.signer.Address()
	prepared := &PreparedLink{Details: *details, Password: password}

	if GaslessDepositPossible(params.ChainID, params.TokenAddress, "") {
		bundle, err := o.preparer.PrepareGaslessDeposit(ctx, *details, password, sender, LatestContractVersion(params.ChainID))
		if err != nil {
			return nil, err
		}
		if bundle == nil {
			// SDK returned an incomplete pair; abort quietly.
			return nil, NewFlowError(ErrCodeDepositPreparation, "gasless deposit payload unavailable", nil)
		}
		prepared.Type = TransactionTypeGasless
		prepared.Bundle = bundle
	} else {
		txs, err := o.preparer.PrepareStandardDeposit(ctx, *details, password, sender)
		if err != nil {
			return nil, err
		}
		prepared.Type = TransactionTypeStandard
		prepared.Transactions = txs

		fee, err := o.estimator.Estimate(ctx, params.ChainID, &txs[0])
		if err != nil {
			// Fee estimation failure never blocks the flow.
			o.log.Warn("fee estimation failed, proceeding without fee display",
				zap.String("chainId", string(params.ChainID)), zap.Error(err))
		} else {
			prepared.Fee = fee
		}

		// A native-currency deposit must also cover its own gas.
		if IsNativeToken(params.TokenAddress) && prepared.Fee != nil && params.Balance != nil {
			if adj := AdjustAmountForNativeFee(details.TokenAmount, *params.Balance, prepared.Fee.CostNative); adj != nil {
				prepared.Adjustment = adj
				prepared.Details.TokenAmount = adj.Adjusted

				// The deposit must move the adjusted amount, so the
				// transactions built for the original one are stale.
				txs, err = o.preparer.PrepareStandardDeposit(ctx, prepared.Details, password, sender)
				if err != nil {
					return nil, err
				}
				prepared.Transactions = txs

				if fee, feeErr := o.estimator.Estimate(ctx, params.ChainID, &txs[0]); feeErr != nil {
					o.log.Warn("fee re-estimation after amount adjustment failed, keeping previous estimate",
						zap.String("chainId", string(params.ChainID)), zap.Error(feeErr))
				} else {
					prepared.Fee = fee
				}
			}
		}
	}

	if session != nil {
		session.SetForm(params.TokenValue, params.Attachment)
		session.SetFee(prepared.Fee)
		if o.prices != nil {
			if price, err := o.prices.TokenPrice(ctx, params.ChainID, params.TokenAddress); err == nil {
				session.SetUSDValue(prepared.Details.TokenAmount.Mul(price))
			}
		}
		session.ToConfirm()
	}

	return prepared, nil
}

// CreateResult is the terminal outcome of CreateAndProcessLink.
type CreateResult struct {
	// Cancelled is set when the user declined the gasless signature; the
	// session stays at CONFIRM so they can retry.
	Cancelled bool
	Link      string
	TxHash    string
	// ConfirmWarning is set when the backend confirm call failed after the
	// deposit was already on-chain: the link is still valid.
	ConfirmWarning error
}

// CreateAndProcessLink runs the post-confirmation half of the flow. See the
// stage constants for the sequence; any middle-stage failure moves the
// session to Errored and is returned as a typed FlowError. The session lock
// guarantees one submission at a time per session.
func (o *Orchestrator) CreateAndProcessLink(ctx context.Context, session *FlowSession, prepared *PreparedLink) (*CreateResult, error) {
	if !session.tryBegin() {
		return nil, NewFlowError(ErrCodeFlowBusy, "a submission is already in flight for this session", nil)
	}
	defer session.end()

	result, err := o.run(ctx, session, prepared)
	if err != nil {
		session.setError(err)
		o.log.Error("link creation failed",
			zap.String("stage", string(session.Stage())), zap.Error(err))
		return nil, err
	}
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, session *FlowSession, prepared *PreparedLink) (*CreateResult, error) {
	sender := o.signer.Address()
	_, attachment := session.Form()

	// Initiating: register the link and upload any attachment. Nothing is
	// on-chain yet, so failure here aborts cleanly.
	session.setStage(StageInitiating)
	initResp, err := o.backend.ClaimLinkInit(ctx, ClaimLinkInitRequest{
		Password:      prepared.Password,
		SenderAddress: sender,
		Attachment:    attachment,
	})
	if err != nil {
		return nil, WrapFlowError(ErrCodeInitFailed, "claim link initialization failed", err)
	}
	fileURL := ""
	if initResp != nil {
		fileURL = initResp.FileURL
	}

	// Submitting: exactly one of the two paths runs.
	session.setStage(StageSubmitting)
	var (
		txHash  string
		receipt *Receipt
	)
	switch prepared.Type {
	case TransactionTypeStandard:
		res, err := o.submitter.Submit(ctx, prepared.Details.ChainID, prepared.Transactions, feeOptions(prepared.Fee))
		if err != nil {
			return nil, err
		}
		txHash = res.Hash
		receipt = res.Receipt
	case TransactionTypeGasless:
		outcome, err := o.gasless.Submit(ctx, prepared.Bundle)
		if err != nil {
			return nil, err
		}
		if outcome.Cancelled {
			// Not an error: leave the session at CONFIRM for retry.
			session.setStage(StageIdle)
			return &CreateResult{Cancelled: true}, nil
		}
		txHash = outcome.TxHash
	default:
		return nil, NewFlowError(ErrCodeSubmissionFailed, "prepared link has no submission path", nil)
	}
	session.setTxHash(txHash)

	// Resolving: prefer the receipt decode, fall back to the hash lookup.
	session.setStage(StageResolving)
	var link string
	if receipt != nil {
		link, err = o.resolver.FromReceipt(receipt, prepared.Details, prepared.Password)
	} else {
		link, err = o.resolver.FromHash(ctx, txHash, prepared.Details, prepared.Password)
	}
	if err != nil {
		return nil, err
	}

	// Local record first: it is a display cache, not authoritative state.
	o.persistRecord(ctx, sender, link, txHash, fileURL, attachment, prepared)

	// Confirming: the deposit is already on-chain, so a failure here only
	// warrants a warning; the link stays valid.
	session.setStage(StageConfirming)
	var confirmWarning error
	confirmErr := o.backend.ClaimLinkConfirm(ctx, ClaimLinkConfirmRequest{
		ChainID:       prepared.Details.ChainID,
		Link:          link,
		Password:      prepared.Password,
		TxHash:        txHash,
		SenderAddress: sender,
		AmountUSD:     session.USDValue(),
		Transaction:   firstTransaction(prepared),
	})
	if confirmErr != nil {
		confirmWarning = confirmErr
		o.log.Warn("claim link confirm failed after on-chain success; link remains valid",
			zap.String("link", link), zap.Error(confirmErr))
	}

	o.saveTokenPreference(ctx, prepared.Details)
	session.setOutcome(link, txHash)

	// Fire-and-forget: best-effort reporting and balance refresh. Failures
	// are logged, never surfaced.
	go o.reportSendLink(link, txHash, fileURL, prepared)
	if o.refreshBalances != nil {
		go o.refreshBalances(sender)
	}

	return &CreateResult{Link: link, TxHash: txHash, ConfirmWarning: confirmWarning}, nil
}

func (o *Orchestrator) persistRecord(ctx context.Context, sender, link, txHash, fileURL string, attachment AttachmentOptions, prepared *PreparedLink) {
	if o.store == nil {
		return
	}

	price := decimal.Zero
	if o.prices != nil {
		if p, err := o.prices.TokenPrice(ctx, prepared.Details.ChainID, prepared.Details.TokenAddress); err == nil {
			price = p
		}
	}

	// Reward points are decorative; a failed lookup records zero.
	points := 0
	if o.backend != nil {
		p, err := o.backend.CalculatePoints(ctx, PointsRequest{
			ActionType:  "CREATE_LINK",
			ChainID:     prepared.Details.ChainID,
			UserAddress: sender,
			AmountUSD:   prepared.Details.TokenAmount.Mul(price),
			Transaction: firstTransaction(prepared),
		})
		if err == nil {
			points = p
		}
	}

	record := CreatedLink{
		ID:            uuid.NewString(),
		Address:       sender,
		Link:          link,
		DepositDate:   time.Now().UTC(),
		TokenPriceUSD: price,
		Points:        points,
		TxHash:        txHash,
		Message:       attachment.Message,
		AttachmentURL: fileURL,
		ChainID:       prepared.Details.ChainID,
		TokenAddress:  prepared.Details.TokenAddress,
		TokenType:     prepared.Details.TokenType,
		TokenDecimals: prepared.Details.TokenDecimals,
		TokenAmount:   prepared.Details.TokenAmount,
	}
	if err := o.store.AppendCreatedLink(ctx, record); err != nil {
		o.log.Warn("failed to persist created link locally", zap.Error(err))
	}
}

func (o *Orchestrator) saveTokenPreference(ctx context.Context, details LinkDetails) {
	if o.store == nil {
		return
	}
	err := o.store.SaveTokenPreference(ctx, TokenPreference{
		ChainID:      details.ChainID,
		TokenAddress: details.TokenAddress,
		Decimals:     details.TokenDecimals,
	})
	if err != nil {
		o.log.Warn("failed to save token preference", zap.Error(err))
	}
}

// reportSendLink posts the created link's metadata to the backend's
// send-links endpoint, keyed by the claim keypair's public address. Runs
// after SUCCESS and is never awaited by the critical path.
func (o *Orchestrator) reportSendLink(link, txHash, fileURL string, prepared *PreparedLink) {
	params, err := ParseLink(link)
	if err != nil {
		o.log.Warn("created link is not parseable for reporting", zap.Error(err))
		return
	}
	pubKey, err := ClaimAddressFromPassword(prepared.Password)
	if err != nil {
		o.log.Warn("claim address derivation failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err = o.backend.CreateSendLink(ctx, SendLinkReport{
		PubKey:          pubKey,
		ChainID:         params.ChainID,
		TxHash:          txHash,
		ContractVersion: params.ContractVersion,
		DepositIdx:      params.DepositIdx,
		AttachmentURL:   fileURL,
	})
	if err != nil {
		o.log.Warn("send-links report failed", zap.String("link", link), zap.Error(err))
	}
}

func feeOptions(fee *FeeEstimate) *FeeOptions {
	if fee == nil {
		return nil
	}
	return fee.Options
}

func firstTransaction(prepared *PreparedLink) *PreparedTransaction {
	if prepared.Type != TransactionTypeStandard || len(prepared.Transactions) == 0 {
		return nil
	}
	tx := prepared.Transactions[0]
	return &tx
}

// mustDecimal parses a decimal string, returning zero on failure; the real
// validation happens in BuildLinkDetails.
func mustDecimal(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero
	}
	return d
}
