package domain

import "errors"

// Error taxonomy for the trading cycles. Per-symbol failures wrap one
// of these sentinels so callers can classify with errors.Is while the
// cycle keeps going; ErrInvalidInput aborts the current cycle.
var (
	// ErrInvalidInput signals malformed configuration or input shape
	// handed to the ranker, allocator or lifecycle evaluator.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDataFetch signals a metrics/quote/screen failure for one
	// symbol. The symbol is excluded; the batch continues.
	ErrDataFetch = errors.New("data fetch failed")

	// ErrOrderRejected signals the broker refused an order. Never
	// auto-retried: the order may already have been accepted.
	ErrOrderRejected = errors.New("order rejected")

	// ErrLockHeld signals another run of the same cycle already holds
	// the run lock for today.
	ErrLockHeld = errors.New("run lock held")
)
