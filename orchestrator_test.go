package claimlink

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// usdcePolygon is an ERC-20 outside the sponsorship allow-list, so it takes
// the standard (fee-paying) path.
const usdcePolygon = "0x2791bca1f2de4661ed88a30c99a7a9449aa84174"

func standardFixture() (*mockSDK, *mockSigner, *mockBackend, *mockRelay, *mockStore) {
	sdk := &mockSDK{
		prepareTxs: []PreparedTransaction{
			{To: usdcePolygon}, // approval
			{To: "0xVault"},    // deposit
		},
		feeOptions: &FeeOptions{
			GasLimit:     big.NewInt(100_000),
			MaxFeePerGas: big.NewInt(50_000_000_000),
		},
	}
	signer := &mockSigner{
		sendHashes: []string{"0xapproval", "0xdeposit"},
		receipt:    depositReceipt(42),
	}
	return sdk, signer, &mockBackend{}, &mockRelay{}, &mockStore{}
}

func newTestOrchestrator(sdk *mockSDK, signer *mockSigner, backend *mockBackend, relay *mockRelay, store *mockStore) *Orchestrator {
	return NewOrchestrator(OrchestratorConfig{
		SDK:     sdk,
		Signer:  signer,
		Backend: backend,
		Relay:   relay,
		Store:   store,
		Prices:  &mockPrices{price: decimal.RequireFromString("1")},
	})
}

func standardParams() PrepareParams {
	return PrepareParams{
		TokenValue:    "10",
		ChainID:       "137",
		TokenAddress:  usdcePolygon,
		TokenDecimals: 6,
		TokenType:     TokenTypeFungible,
		BaseClaimURL:  "https://peanut.me/claim",
		Attachment:    AttachmentOptions{Message: "happy birthday"},
	}
}

func TestStandardFlowEndToEnd(t *testing.T) {
	t.Parallel()

	sdk, signer, backend, relay, store := standardFixture()
	orch := newTestOrchestrator(sdk, signer, backend, relay, store)
	session := NewFlowSession()

	prepared, err := orch.PrepareLink(context.Background(), session, standardParams())
	require.NoError(t, err)

	assert.Equal(t, TransactionTypeStandard, prepared.Type)
	assert.Len(t, prepared.Transactions, 2)
	assert.Nil(t, prepared.Bundle, "standard path must not carry a gasless bundle")
	assert.Zero(t, sdk.bundleCalls, "gasless preparation must not run on the standard path")
	assert.Equal(t, ViewConfirm, session.View())
	require.NotNil(t, prepared.Fee)

	result, err := orch.CreateAndProcessLink(context.Background(), session, prepared)
	require.NoError(t, err)

	// The link embeds the decoded deposit coordinates and the password.
	parsed, err := ParseLink(result.Link)
	require.NoError(t, err)
	assert.Equal(t, ChainID("137"), parsed.ChainID)
	assert.Equal(t, uint64(42), parsed.DepositIdx)
	assert.Equal(t, prepared.Password, parsed.Password)

	assert.Equal(t, "0xdeposit", result.TxHash)
	assert.Equal(t, ViewSuccess, session.View())
	assert.Equal(t, StageDone, session.Stage())
	assert.Equal(t, result.Link, session.Link())

	// Backend handshake ran in order around the broadcast.
	assert.Equal(t, 1, backend.initCalls)
	assert.Equal(t, 1, backend.confirmCalls)
	assert.Equal(t, result.Link, backend.confirmReq.Link)

	// Local record persisted for the sender.
	records, err := store.CreatedLinks(context.Background(), signer.Address())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, result.Link, records[0].Link)
	assert.Equal(t, "happy birthday", records[0].Message)

	// Last-used token remembered.
	pref, err := store.TokenPreference(context.Background())
	require.NoError(t, err)
	require.NotNil(t, pref)
	assert.Equal(t, usdcePolygon, pref.TokenAddress)

	// The relay is never touched on the standard path.
	assert.Zero(t, relay.calls)

	// Best-effort send-links report runs off the critical path.
	assert.Eventually(t, func() bool { return backend.SendLinkCalls() == 1 },
		2*time.Second, 10*time.Millisecond)
}

func TestGaslessFlowEndToEnd(t *testing.T) {
	t.Parallel()

	sdk := &mockSDK{
		bundle: &GaslessBundle{
			Payload: GaslessPayload{ChainID: "137", TokenAddress: usdcPolygon, Amount: "10"},
			Message: GaslessMessage{PrimaryType: "ReceiveWithAuthorization"},
		},
		links: []string{"https://peanut.me/claim?c=137&v=v4.4&i=9#p=resolved"},
	}
	signer := &mockSigner{signature: []byte{0x01, 0x02}}
	backend := &mockBackend{}
	relay := &mockRelay{txHash: "0xsponsored"}
	store := &mockStore{}
	orch := newTestOrchestrator(sdk, signer, backend, relay, store)
	session := NewFlowSession()

	params := standardParams()
	params.TokenAddress = usdcPolygon // sponsored on Polygon

	prepared, err := orch.PrepareLink(context.Background(), session, params)
	require.NoError(t, err)

	assert.Equal(t, TransactionTypeGasless, prepared.Type)
	require.NotNil(t, prepared.Bundle)
	assert.Empty(t, prepared.Transactions, "gasless path must not carry standard transactions")
	assert.Zero(t, sdk.prepareCalls, "standard preparation must not run on the gasless path")

	result, err := orch.CreateAndProcessLink(context.Background(), session, prepared)
	require.NoError(t, err)

	assert.Equal(t, "0xsponsored", result.TxHash)
	assert.Equal(t, 1, relay.calls)
	assert.Equal(t, ViewSuccess, session.View())

	// The signer only produced a typed-data signature, never a broadcast.
	for _, call := range signer.Calls() {
		assert.NotEqual(t, "sendTransaction", call)
	}
}

func TestGaslessDeclineLeavesConfirm(t *testing.T) {
	t.Parallel()

	sdk := &mockSDK{
		bundle: &GaslessBundle{
			Payload: GaslessPayload{ChainID: "137", TokenAddress: usdcPolygon},
			Message: GaslessMessage{PrimaryType: "ReceiveWithAuthorization"},
		},
	}
	signer := &mockSigner{signature: nil} // user declines in the wallet
	backend := &mockBackend{}
	orch := newTestOrchestrator(sdk, signer, backend, &mockRelay{}, &mockStore{})
	session := NewFlowSession()

	params := standardParams()
	params.TokenAddress = usdcPolygon

	prepared, err := orch.PrepareLink(context.Background(), session, params)
	require.NoError(t, err)

	result, err := orch.CreateAndProcessLink(context.Background(), session, prepared)
	require.NoError(t, err)

	assert.True(t, result.Cancelled)
	assert.Equal(t, ViewConfirm, session.View(), "decline keeps the user on CONFIRM for retry")
	assert.Zero(t, backend.confirmCalls)
}

func TestInitFailureAbortsBeforeAnyTransaction(t *testing.T) {
	t.Parallel()

	sdk, signer, backend, relay, store := standardFixture()
	backend.initErr = errBoom
	orch := newTestOrchestrator(sdk, signer, backend, relay, store)
	session := NewFlowSession()

	prepared, err := orch.PrepareLink(context.Background(), session, standardParams())
	require.NoError(t, err)

	_, err = orch.CreateAndProcessLink(context.Background(), session, prepared)
	assert.True(t, IsFlowCode(err, ErrCodeInitFailed))

	assert.Empty(t, signer.Calls(), "nothing may reach the chain when init fails")
	assert.Equal(t, StageErrored, session.Stage())
	assert.Equal(t, ViewConfirm, session.View())
}

func TestConfirmFailureIsSoft(t *testing.T) {
	t.Parallel()

	sdk, signer, backend, relay, store := standardFixture()
	backend.confirmErr = errBoom
	orch := newTestOrchestrator(sdk, signer, backend, relay, store)
	session := NewFlowSession()

	prepared, err := orch.PrepareLink(context.Background(), session, standardParams())
	require.NoError(t, err)

	result, err := orch.CreateAndProcessLink(context.Background(), session, prepared)
	require.NoError(t, err, "the deposit is on-chain, confirm failure must not fail the flow")

	assert.ErrorIs(t, result.ConfirmWarning, errBoom)
	assert.NotEmpty(t, result.Link)
	assert.Equal(t, ViewSuccess, session.View())

	// The local record exists even though confirm failed.
	records, _ := store.CreatedLinks(context.Background(), signer.Address())
	assert.Len(t, records, 1)
}

func TestFreshPasswordPerAttempt(t *testing.T) {
	t.Parallel()

	sdk, signer, backend, relay, store := standardFixture()
	orch := newTestOrchestrator(sdk, signer, backend, relay, store)

	first, err := orch.PrepareLink(context.Background(), NewFlowSession(), standardParams())
	require.NoError(t, err)
	second, err := orch.PrepareLink(context.Background(), NewFlowSession(), standardParams())
	require.NoError(t, err)

	assert.NotEqual(t, first.Password, second.Password)
}

func TestConcurrentSubmissionIsRejected(t *testing.T) {
	t.Parallel()

	sdk, signer, backend, relay, store := standardFixture()
	orch := newTestOrchestrator(sdk, signer, backend, relay, store)
	session := NewFlowSession()

	prepared, err := orch.PrepareLink(context.Background(), session, standardParams())
	require.NoError(t, err)

	// Simulate a run already holding the session.
	require.True(t, session.tryBegin())
	defer session.end()

	_, err = orch.CreateAndProcessLink(context.Background(), session, prepared)
	assert.True(t, IsFlowCode(err, ErrCodeFlowBusy))
	assert.Zero(t, backend.initCalls)
}

func TestPrepareLinkRejectsInsufficientBalance(t *testing.T) {
	t.Parallel()

	sdk, signer, backend, relay, store := standardFixture()
	orch := newTestOrchestrator(sdk, signer, backend, relay, store)

	params := standardParams()
	balance := decimal.RequireFromString("5")
	params.Balance = &balance

	_, err := orch.PrepareLink(context.Background(), NewFlowSession(), params)
	assert.True(t, IsFlowCode(err, ErrCodeInsufficientBalance))
}

func TestPrepareLinkAdjustsNativeAmountForFees(t *testing.T) {
	t.Parallel()

	sdk, signer, backend, relay, store := standardFixture()
	sdk.prepareTxs = []PreparedTransaction{{To: "0xVault", Value: big.NewInt(1)}}
	orch := newTestOrchestrator(sdk, signer, backend, relay, store)

	params := standardParams()
	params.TokenAddress = "0x0000000000000000000000000000000000000000"
	params.TokenType = TokenTypeNative
	params.TokenValue = "10"
	// Enough for the amount and the raw fee (0.005) but not 1.3x of it on
	// top of the full amount.
	balance := decimal.RequireFromString("10.006")
	params.Balance = &balance

	prepared, err := orch.PrepareLink(context.Background(), NewFlowSession(), params)
	require.NoError(t, err)

	require.NotNil(t, prepared.Adjustment)
	assert.True(t, prepared.Details.TokenAmount.LessThan(decimal.RequireFromString("10")))
	assert.True(t, prepared.Details.TokenAmount.Equal(prepared.Adjustment.Adjusted))
}

func TestNativeAdjustmentRebuildsDepositTransaction(t *testing.T) {
	t.Parallel()

	sdk, signer, backend, relay, store := standardFixture()
	// Build the deposit from the amount actually requested so the test can
	// tell which amount the final transaction carries.
	sdk.prepareFn = func(details LinkDetails) []PreparedTransaction {
		return []PreparedTransaction{{To: "0xVault", Value: details.TokenAmount.Shift(18).BigInt()}}
	}
	orch := newTestOrchestrator(sdk, signer, backend, relay, store)

	params := standardParams()
	params.TokenAddress = "0x0000000000000000000000000000000000000000"
	params.TokenType = TokenTypeNative
	params.TokenValue = "10"
	balance := decimal.RequireFromString("10.006")
	params.Balance = &balance

	prepared, err := orch.PrepareLink(context.Background(), NewFlowSession(), params)
	require.NoError(t, err)
	require.NotNil(t, prepared.Adjustment)

	// Preparation ran once for the requested amount and once more for the
	// fee-adjusted one.
	assert.Equal(t, 2, sdk.prepareCalls)
	require.Len(t, sdk.preparedDetails, 2)
	assert.True(t, sdk.preparedDetails[1].TokenAmount.Equal(prepared.Adjustment.Adjusted))

	// The transaction going on-chain moves the adjusted amount, not the
	// originally requested one.
	require.Len(t, prepared.Transactions, 1)
	wantWei := prepared.Adjustment.Adjusted.Shift(18).BigInt()
	assert.Zero(t, wantWei.Cmp(prepared.Transactions[0].Value))
}
