// Package response writes the JSON envelopes shared by every API handler.
package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/newthinker/signalbook/internal/core"
)

// Meta contains response metadata.
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
}

// SuccessResponse is the standard success response format.
type SuccessResponse struct {
	Data any  `json:"data"`
	Meta Meta `json:"meta"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Cause   string `json:"cause,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// JSON writes a success response with data.
func JSON(w http.ResponseWriter, status int, data any) {
	resp := SuccessResponse{
		Data: data,
		Meta: Meta{Timestamp: time.Now().UTC()},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// Error writes an error response.
func Error(w http.ResponseWriter, status int, err error) {
	detail := ErrorDetail{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
	}

	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		detail.Code = coreErr.Code
		detail.Message = coreErr.Message
		if coreErr.Cause != nil {
			detail.Cause = coreErr.Cause.Error()
		}
	}

	resp := ErrorResponse{Error: detail}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// Fail writes an error response with the status implied by err.
func Fail(w http.ResponseWriter, err error) {
	Error(w, StatusFor(err), err)
}

// StatusFor maps a domain error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrTradeNotFound), errors.Is(err, core.ErrSignalNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTradeAlreadyClosed),
		errors.Is(err, core.ErrDuplicateSignal),
		errors.Is(err, core.ErrSignalNotPending),
		errors.Is(err, core.ErrInvalidStatusTransition):
		return http.StatusConflict
	case errors.Is(err, core.ErrRiskRejected), errors.Is(err, core.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrInvalidSignal),
		errors.Is(err, core.ErrUnknownSymbol),
		errors.Is(err, core.ErrConfigInvalid),
		errors.Is(err, core.ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
