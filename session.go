package claimlink

import (
	"sync"

	"github.com/shopspring/decimal"
)

// FlowView is the UI-visible step of the send flow.
type FlowView string

const (
	ViewInitial FlowView = "INITIAL"
	ViewConfirm FlowView = "CONFIRM"
	ViewSuccess FlowView = "SUCCESS"
)

// Stage tracks where the orchestrator is inside one create-and-process run.
type Stage string

const (
	StageIdle       Stage = "idle"
	StageInitiating Stage = "initiating"
	StageSubmitting Stage = "submitting"
	StageResolving  Stage = "resolving"
	StageConfirming Stage = "confirming"
	StageDone       Stage = "done"
	StageErrored    Stage = "errored"
)

// FlowSession holds the state of one send flow: the visible view, the
// in-flight stage, and the transient form data feeding the orchestrator.
// Sessions are explicit (no ambient global state) and gate the signer so at
// most one submission runs at a time.
type FlowSession struct {
	mu sync.Mutex

	view  FlowView
	stage Stage
	busy  bool

	tokenValue string
	attachment AttachmentOptions
	fee        *FeeEstimate
	link       string
	txHash     string
	usdValue   decimal.Decimal
	lastErr    error
}

// NewFlowSession starts a session at INITIAL.
func NewFlowSession() *FlowSession {
	return &FlowSession{view: ViewInitial, stage: StageIdle}
}

// View returns the current visible view.
func (s *FlowSession) View() FlowView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Stage returns the orchestrator's current stage.
func (s *FlowSession) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// SetForm records the user's input ahead of confirmation.
func (s *FlowSession) SetForm(tokenValue string, attachment AttachmentOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenValue = tokenValue
	s.attachment = attachment
}

// Form returns the recorded user input.
func (s *FlowSession) Form() (string, AttachmentOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokenValue, s.attachment
}

// SetFee records the display fee estimate (nil when estimation failed).
func (s *FlowSession) SetFee(fee *FeeEstimate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fee = fee
}

// Fee returns the display fee estimate, if any.
func (s *FlowSession) Fee() *FeeEstimate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fee
}

// SetUSDValue records the amount's display-currency value.
func (s *FlowSession) SetUSDValue(v decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usdValue = v
}

// USDValue returns the amount's display-currency value.
func (s *FlowSession) USDValue() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usdValue
}

// Link returns the resolved claim link once the flow has one.
func (s *FlowSession) Link() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.link
}

// TxHash returns the deposit transaction hash once broadcast.
func (s *FlowSession) TxHash() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txHash
}

// Err returns the last error recorded on the session.
func (s *FlowSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// ToConfirm moves INITIAL -> CONFIRM. Transitions are forward-only; calling
// this from SUCCESS is ignored.
func (s *FlowSession) ToConfirm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == ViewInitial {
		s.view = ViewConfirm
	}
}

// Reset discards all transient state and returns to INITIAL. This is the
// only way back from a later view, and only an explicit user action (leaving
// the flow, starting a new transfer) triggers it.
func (s *FlowSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = ViewInitial
	s.stage = StageIdle
	s.busy = false
	s.tokenValue = ""
	s.attachment = AttachmentOptions{}
	s.fee = nil
	s.link = ""
	s.txHash = ""
	s.usdValue = decimal.Zero
	s.lastErr = nil
}

// tryBegin claims the session for a submission run. Returns false when a run
// is already in flight; this is the explicit per-session lock that keeps a
// single signer from ever serving two sequences at once.
func (s *FlowSession) tryBegin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

// end releases the session after a run, whatever its outcome.
func (s *FlowSession) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
}

func (s *FlowSession) setStage(stage Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stage = stage
}

func (s *FlowSession) setOutcome(link, txHash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.link = link
	s.txHash = txHash
	s.stage = StageDone
	s.view = ViewSuccess
}

func (s *FlowSession) setTxHash(txHash string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txHash = txHash
}

func (s *FlowSession) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	s.stage = StageErrored
}
