package claimlink

import (
	"errors"
	"fmt"
)

// FlowError is a typed error raised by a flow component. The orchestrator
// catches these at its top level and maps them to user-facing messages.
type FlowError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	cause   error
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *FlowError) Unwrap() error {
	return e.cause
}

// Error codes. The first group is fatal to its step but recoverable by the
// user retrying from CONFIRM; the rest are soft or pre-submission conditions.
const (
	ErrCodeRandomnessUnavailable = "randomness_unavailable"
	ErrCodeInitFailed            = "init_failed"
	ErrCodeDepositPreparation    = "deposit_preparation_failed"
	ErrCodeSubmissionFailed      = "transaction_submission_failed"
	ErrCodeGaslessSubmission     = "gasless_submission_failed"
	ErrCodeLinkResolution        = "link_resolution_failed"
	ErrCodeInsufficientBalance   = "insufficient_balance"
	ErrCodeInvalidAmount         = "invalid_amount"
	ErrCodeInvalidLink           = "invalid_link"
	ErrCodeFlowBusy              = "flow_busy"
)

// NewFlowError creates a flow error with optional details.
func NewFlowError(code, message string, details map[string]interface{}) *FlowError {
	return &FlowError{Code: code, Message: message, Details: details}
}

// WrapFlowError creates a flow error that wraps an underlying cause.
func WrapFlowError(code, message string, cause error) *FlowError {
	return &FlowError{Code: code, Message: message, cause: cause}
}

// IsFlowCode reports whether err is (or wraps) a FlowError with the given code.
func IsFlowCode(err error, code string) bool {
	var fe *FlowError
	return errors.As(err, &fe) && fe.Code == code
}
