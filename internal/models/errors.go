package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTool       = errors.New("invalid generation tool")
	ErrInvalidPlan       = errors.New("invalid subscription plan")
	ErrInvalidPackage    = errors.New("invalid top-up package")
	ErrAlreadySubscribed = errors.New("account already has a subscription")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrNotFound          = errors.New("record not found")
	ErrGateway           = errors.New("payment gateway error")
	ErrPaymentPending    = errors.New("payment not yet settled by gateway")
)

// InsufficientCreditsError carries the shortfall so the client can prompt a
// top-up for the missing amount.
type InsufficientCreditsError struct {
	Required  int
	Available int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: required %d, available %d", e.Required, e.Available)
}

func (e *InsufficientCreditsError) Shortfall() int {
	return e.Required - e.Available
}
