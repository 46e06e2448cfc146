// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Signal errors
	ErrInvalidSignal           = &Error{Code: "INVALID_SIGNAL", Message: "invalid signal"}
	ErrUnknownSymbol           = &Error{Code: "UNKNOWN_SYMBOL", Message: "unsupported symbol"}
	ErrSignalNotFound          = &Error{Code: "SIGNAL_NOT_FOUND", Message: "signal not found"}
	ErrSignalNotPending        = &Error{Code: "SIGNAL_NOT_PENDING", Message: "signal is not pending"}
	ErrDuplicateSignal         = &Error{Code: "DUPLICATE_SIGNAL", Message: "signal already executed"}
	ErrInvalidStatusTransition = &Error{Code: "INVALID_STATUS_TRANSITION", Message: "invalid status transition"}

	// Execution errors
	ErrRiskRejected        = &Error{Code: "RISK_REJECTED", Message: "rejected by risk manager"}
	ErrInsufficientBalance = &Error{Code: "INSUFFICIENT_BALANCE", Message: "insufficient balance"}
	ErrTradeNotFound       = &Error{Code: "TRADE_NOT_FOUND", Message: "trade not found"}
	ErrTradeAlreadyClosed  = &Error{Code: "TRADE_ALREADY_CLOSED", Message: "trade already closed"}

	// Integration errors
	ErrNotifierFailed = &Error{Code: "NOTIFIER_FAILED", Message: "notifier failed"}
	ErrSourceFailed   = &Error{Code: "SOURCE_FAILED", Message: "message source failed"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// API errors
	ErrBadRequest = &Error{Code: "BAD_REQUEST", Message: "malformed request"}
)
