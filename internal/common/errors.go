package common

import (
	"errors"
	"net/http"

	"github.com/noah-isme/toko-billing/internal/billing"
	"github.com/noah-isme/toko-billing/internal/lock"
	"github.com/noah-isme/toko-billing/internal/store"
	"github.com/noah-isme/toko-billing/internal/validation"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// Classify maps domain errors onto an AppError. Anything unrecognised becomes
// a 500 carrying fallback as its message.
func Classify(err error, fallback string) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var verr *validation.ValidationError
	if errors.As(err, &verr) {
		return &AppError{Code: "VALIDATION_ERROR", Message: verr.Reason, HTTPStatus: http.StatusBadRequest, Err: err, Details: map[string]string{"field": verr.Field}}
	}
	var stockErr *store.StockError
	if errors.As(err, &stockErr) {
		return &AppError{Code: "INSUFFICIENT_STOCK", Message: "Insufficient stock", HTTPStatus: http.StatusConflict, Err: err, Details: map[string]any{
			"itemId": stockErr.ItemID, "requested": stockErr.Requested, "available": stockErr.Available,
		}}
	}
	var mismatch *billing.MismatchError
	if errors.As(err, &mismatch) {
		return &AppError{Code: "BILL_MISMATCH", Message: "Bill totals do not match its items", HTTPStatus: http.StatusUnprocessableEntity, Err: err, Details: map[string]string{
			"field": mismatch.Field, "expected": mismatch.Expected, "got": mismatch.Got,
		}}
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return NewAppError("NOT_FOUND", "Not found", http.StatusNotFound, err)
	case errors.Is(err, lock.ErrNotAcquired):
		return NewAppError("BUSY", "Another bill is being saved, please retry", http.StatusServiceUnavailable, err)
	case errors.Is(err, store.ErrDuplicate):
		return NewAppError("DUPLICATE", "Record already exists", http.StatusConflict, err)
	case errors.Is(err, store.ErrConflict):
		return NewAppError("CONFLICT", "Record is referenced by existing bills", http.StatusConflict, err)
	case errors.Is(err, billing.ErrEmptyCart):
		return NewAppError("EMPTY_BILL", "No items in bill", http.StatusBadRequest, err)
	case errors.Is(err, billing.ErrNoCustomer):
		return NewAppError("NO_CUSTOMER", "Please select a customer", http.StatusBadRequest, err)
	case errors.Is(err, billing.ErrOverpayment):
		return NewAppError("OVERPAYMENT", "Amount paid cannot exceed the grand total", http.StatusBadRequest, err)
	case errors.Is(err, billing.ErrInvalidQuantity), errors.Is(err, billing.ErrInvalidPaymentMethod):
		return NewAppError("VALIDATION_ERROR", err.Error(), http.StatusBadRequest, err)
	}
	return NewAppError("INTERNAL", fallback, http.StatusInternalServerError, err)
}

// WriteError renders err in the canonical error shape.
func WriteError(w http.ResponseWriter, err error, fallback string) {
	appErr := Classify(err, fallback)
	JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
}
