package services

import "errors"

var (
	// ErrReportNotFound covers unknown, inactive and foreign-owned reports.
	ErrReportNotFound = errors.New("report not found")
	// ErrPriceUnavailable means the market data source failed or timed out.
	// It is the only retryable condition; nothing is written when it occurs.
	ErrPriceUnavailable = errors.New("market price unavailable")
	// ErrInvalidInput means bad upstream data (non-positive price, malformed
	// report). Never retried.
	ErrInvalidInput = errors.New("invalid input")
)
