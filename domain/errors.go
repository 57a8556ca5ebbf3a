package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrRateSource matches every RateSourceError.
	ErrRateSource = errors.New("rate source unavailable")
	// ErrUnknownCurrency matches every UnknownCurrencyError.
	ErrUnknownCurrency = errors.New("unknown currency")
)

// ValidationError a request failed shape or positivity checks
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s", e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// RateSourceError the external rate source could not produce a usable rate table
type RateSourceError struct {
	Base  Currency
	Cause error
}

func (e *RateSourceError) Error() string {
	return fmt.Sprintf("rate source [%v]: %v", e.Base, e.Cause)
}

func (e *RateSourceError) Unwrap() error {
	return e.Cause
}

func (e *RateSourceError) Is(target error) bool {
	return target == ErrRateSource
}

// UnknownCurrencyError the requested currency is absent from a rate table
type UnknownCurrencyError struct {
	Currency Currency
}

func (e *UnknownCurrencyError) Error() string {
	return fmt.Sprintf("exchange rate not found for currency: %v", e.Currency)
}

func (e *UnknownCurrencyError) Is(target error) bool {
	return target == ErrUnknownCurrency
}
