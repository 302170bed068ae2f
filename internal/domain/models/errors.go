package models

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by sources, services and handlers.
var (
	ErrNoSpotPrice         = errors.New("no spot price")
	ErrNoGreeksData        = errors.New("no greeks data")
	ErrNoPositionsData     = errors.New("no positions data")
	ErrInsufficientHistory = errors.New("insufficient history")
	ErrModelFit            = errors.New("model fit failure")
	ErrSchemaDrift         = errors.New("schema drift")
	ErrUnknownExpiration   = errors.New("unknown expiration")
	ErrInvalidSymbol       = errors.New("invalid symbol")
)

// InsufficientHistoryError carries how many usable dates were found.
type InsufficientHistoryError struct {
	Available int
	Required  int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history: %d usable dates, need %d", e.Available, e.Required)
}

// Is lets errors.Is match ErrInsufficientHistory.
func (e *InsufficientHistoryError) Is(target error) bool {
	return target == ErrInsufficientHistory
}
