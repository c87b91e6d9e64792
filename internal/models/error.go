package models

import (
	"errors"
	"fmt"
)

var (
	ErrConflictData      = errors.New("data conflicts with existing data")
	ErrDataNotFound      = errors.New("data not found")
	ErrInternalError     = errors.New("internal error")
	ErrInvalidOrder      = errors.New("invalid order")
	ErrInvalidPhone      = errors.New("invalid phone number")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderCreation     = errors.New("order creation failed")
	ErrPaymentInProgress = errors.New("payment already initiated for order")
	ErrOrderAlreadyPaid  = errors.New("order already paid")
	ErrInvalidCartItem   = errors.New("invalid cart item")
	ErrInvalidQuote      = errors.New("invalid quote request")
	ErrUnauthorized      = errors.New("unauthorized")

	// provider error kinds
	ErrProviderAuth      = errors.New("provider authentication failed")
	ErrProviderTransport = errors.New("provider transport failure")
	ErrProviderRejected  = errors.New("provider rejected request")
)

// ProviderError describes failed call to external provider
type ProviderError struct {
	Provider   string
	Op         string
	StatusCode int
	Code       string
	Message    string
	// Kind is one of ErrProviderAuth, ErrProviderTransport, ErrProviderRejected
	Kind error
	Err  error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Code != "" || e.Message != "" {
		msg += fmt.Sprintf(": %s %s", e.Code, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap allows matching both kind and cause with errors.Is
func (e *ProviderError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
