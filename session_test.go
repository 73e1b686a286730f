package claimlink

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlowSessionViewTransitions(t *testing.T) {
	t.Parallel()

	s := NewFlowSession()
	assert.Equal(t, ViewInitial, s.View())
	assert.Equal(t, StageIdle, s.Stage())

	s.ToConfirm()
	assert.Equal(t, ViewConfirm, s.View())

	s.setOutcome("https://peanut.me/claim?c=137&v=v4.4&i=1#p=x", "0xdeposit")
	assert.Equal(t, ViewSuccess, s.View())
	assert.Equal(t, StageDone, s.Stage())
	assert.NotEmpty(t, s.Link())
	assert.Equal(t, "0xdeposit", s.TxHash())

	// Forward-only: SUCCESS never slides back to CONFIRM.
	s.ToConfirm()
	assert.Equal(t, ViewSuccess, s.View())
}

func TestFlowSessionResetIsTheOnlyWayBack(t *testing.T) {
	t.Parallel()

	s := NewFlowSession()
	s.SetForm("10", AttachmentOptions{Message: "happy birthday"})
	s.ToConfirm()
	s.setOutcome("link", "0xdeposit")

	s.Reset()

	assert.Equal(t, ViewInitial, s.View())
	assert.Equal(t, StageIdle, s.Stage())
	assert.Empty(t, s.Link())
	assert.Empty(t, s.TxHash())
	tokenValue, attachment := s.Form()
	assert.Empty(t, tokenValue)
	assert.Empty(t, attachment.Message)
	assert.Nil(t, s.Err())
}

func TestFlowSessionSubmissionLock(t *testing.T) {
	t.Parallel()

	s := NewFlowSession()
	assert.True(t, s.tryBegin())
	assert.False(t, s.tryBegin(), "second begin must fail while a run is in flight")

	s.end()
	assert.True(t, s.tryBegin(), "lock is reusable after end")
	s.end()
}

func TestFlowSessionErrorKeepsConfirmView(t *testing.T) {
	t.Parallel()

	s := NewFlowSession()
	s.ToConfirm()
	s.setError(errBoom)

	assert.Equal(t, ViewConfirm, s.View(), "errors keep the user on CONFIRM for retry")
	assert.Equal(t, StageErrored, s.Stage())
	assert.ErrorIs(t, s.Err(), errBoom)
}
