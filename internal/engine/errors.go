package engine

import (
	"errors"

	"autotrader/internal/exchange"
	"autotrader/internal/market"
)

var (
	ErrInsufficientData    = errors.New("insufficient market data")
	ErrDailyCapReached     = errors.New("daily trade cap reached")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrConfiguration       = errors.New("configuration error")
)

// ErrorClass groups failures by how the engine treats them.
type ErrorClass string

const (
	ClassTransient     ErrorClass = "transient"
	ClassInsufficient  ErrorClass = "insufficient_data"
	ClassRejection     ErrorClass = "rejection"
	ClassConfiguration ErrorClass = "configuration"
)

func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInsufficientData):
		return ClassInsufficient
	case errors.Is(err, ErrDailyCapReached):
		return ClassRejection
	case errors.Is(err, ErrConfiguration), errors.Is(err, market.ErrUnavailable), errors.Is(err, exchange.ErrInvalidOrder):
		return ClassConfiguration
	default:
		return ClassTransient
	}
}
