package status

import "errors"

var (
	ErrInvoiceNotFound = errors.New("invoice: invoice not found")
	ErrInvalidAmount   = errors.New("invoice: amount must be a positive number")
	ErrIDExhausted     = errors.New("invoice: could not generate a unique id")
	ErrCircuitOpen     = errors.New("circuit breaker: circuit is open")
	ErrTooManyRequests = errors.New("circuit breaker: too many requests while half open")
)
