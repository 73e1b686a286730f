package claimlink

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

// mockSDK is a scriptable PaymentsSDK. Zero value returns errors from every
// method; set the relevant fields per test.
type mockSDK struct {
	mu sync.Mutex

	prepareTxs        []PreparedTransaction
	prepareErr        error
	prepareCalls      int
	preparedPasswords [][]string
	preparedDetails   []LinkDetails
	// prepareFn, when set, builds the transactions from the request
	// instead of returning prepareTxs.
	prepareFn func(details LinkDetails) []PreparedTransaction

	bundle      *GaslessBundle
	bundleErr   error
	bundleCalls int

	links      []string
	linksErr   error
	linksCalls int

	feeOptions *FeeOptions
	feeErr     error
}

func (m *mockSDK) PrepareDepositTransactions(_ context.Context, _ string, details LinkDetails, passwords []string) ([]PreparedTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prepareCalls++
	m.preparedPasswords = append(m.preparedPasswords, passwords)
	m.preparedDetails = append(m.preparedDetails, details)
	if m.prepareErr != nil {
		return nil, m.prepareErr
	}
	if m.prepareFn != nil {
		return m.prepareFn(details), nil
	}
	return m.prepareTxs, nil
}

func (m *mockSDK) MakeGaslessDepositPayload(_ context.Context, _ LinkDetails, _, _, _ string) (*GaslessBundle, error) {
	m.mu.Lock()
	m.bundleCalls++
	m.mu.Unlock()
	if m.bundleErr != nil {
		return nil, m.bundleErr
	}
	return m.bundle, nil
}

func (m *mockSDK) LinksFromTransaction(_ context.Context, _ LinkDetails, _ string, _ []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.linksCalls++
	if m.linksErr != nil {
		return nil, m.linksErr
	}
	return m.links, nil
}

func (m *mockSDK) EstimateFeeOptions(_ context.Context, _ ChainID, _ *PreparedTransaction) (*FeeOptions, error) {
	if m.feeErr != nil {
		return nil, m.feeErr
	}
	return m.feeOptions, nil
}

// mockSigner records every call in order so tests can assert sequencing.
type mockSigner struct {
	mu    sync.Mutex
	calls []string

	address string

	signature []byte
	signErr   error

	sendHashes []string
	sendErr    error
	sendCount  int

	receipt    *Receipt
	receiptErr error

	// waitBlocks makes WaitForReceipt block until its context is
	// cancelled, mimicking a transaction that never gets mined.
	waitBlocks bool
}

func (m *mockSigner) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockSigner) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *mockSigner) Address() string {
	if m.address == "" {
		return "0xSenderAddress"
	}
	return m.address
}

func (m *mockSigner) SignTypedData(_ context.Context, _ TypedDataDomain, _ map[string][]TypedDataField, _ string, _ map[string]interface{}) ([]byte, error) {
	m.record("signTypedData")
	return m.signature, m.signErr
}

func (m *mockSigner) SendTransaction(_ context.Context, _ ChainID, _ PreparedTransaction, _ *FeeOptions) (string, error) {
	m.mu.Lock()
	idx := m.sendCount
	m.sendCount++
	m.mu.Unlock()
	m.record("sendTransaction")
	if m.sendErr != nil {
		return "", m.sendErr
	}
	if idx < len(m.sendHashes) {
		return m.sendHashes[idx], nil
	}
	return "0xhash", nil
}

func (m *mockSigner) WaitForReceipt(ctx context.Context, _ ChainID, txHash string, confirmations uint64) (*Receipt, error) {
	m.record("waitForReceipt:" + txHash)
	if m.waitBlocks {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.receiptErr != nil {
		return nil, m.receiptErr
	}
	if m.receipt != nil {
		return m.receipt, nil
	}
	return &Receipt{TxHash: txHash, Status: TxStatusSuccess}, nil
}

// mockBackend records requests and can fail any endpoint.
type mockBackend struct {
	mu sync.Mutex

	initResp  *ClaimLinkInitResponse
	initErr   error
	initCalls int

	confirmErr   error
	confirmCalls int
	confirmReq   ClaimLinkConfirmRequest

	sendLinkErr   error
	sendLinkCalls int
	sendLinkReq   SendLinkReport

	points    int
	pointsErr error
}

func (m *mockBackend) ClaimLinkInit(_ context.Context, _ ClaimLinkInitRequest) (*ClaimLinkInitResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initCalls++
	if m.initErr != nil {
		return nil, m.initErr
	}
	if m.initResp != nil {
		return m.initResp, nil
	}
	return &ClaimLinkInitResponse{}, nil
}

func (m *mockBackend) ClaimLinkConfirm(_ context.Context, req ClaimLinkConfirmRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmCalls++
	m.confirmReq = req
	return m.confirmErr
}

func (m *mockBackend) CreateSendLink(_ context.Context, report SendLinkReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendLinkCalls++
	m.sendLinkReq = report
	return m.sendLinkErr
}

func (m *mockBackend) CalculatePoints(_ context.Context, _ PointsRequest) (int, error) {
	if m.pointsErr != nil {
		return 0, m.pointsErr
	}
	return m.points, nil
}

func (m *mockBackend) SendLinkCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sendLinkCalls
}

// mockRelay is a scriptable GaslessRelay.
type mockRelay struct {
	mu sync.Mutex

	txHash    string
	err       error
	calls     int
	signature string
}

func (m *mockRelay) SubmitDeposit(_ context.Context, _ GaslessPayload, signature string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.signature = signature
	if m.err != nil {
		return "", m.err
	}
	return m.txHash, nil
}

// mockStore is an in-memory LinkStore for orchestrator tests.
type mockStore struct {
	mu      sync.Mutex
	records []CreatedLink
	pref    *TokenPreference
}

func (m *mockStore) AppendCreatedLink(_ context.Context, record CreatedLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *mockStore) CreatedLinks(_ context.Context, address string) ([]CreatedLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []CreatedLink
	for _, r := range m.records {
		if r.Address == address {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockStore) SaveTokenPreference(_ context.Context, pref TokenPreference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pref = &pref
	return nil
}

func (m *mockStore) TokenPreference(_ context.Context) (*TokenPreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pref, nil
}

// mockPrices quotes a fixed price for every token.
type mockPrices struct {
	price decimal.Decimal
	err   error
}

func (m *mockPrices) TokenPrice(_ context.Context, _ ChainID, _ string) (decimal.Decimal, error) {
	if m.err != nil {
		return decimal.Decimal{}, m.err
	}
	return m.price, nil
}

var errBoom = errors.New("boom")
