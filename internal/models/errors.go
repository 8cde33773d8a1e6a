package models

import "errors"

// Error taxonomy for the two stores and the order service. Store-level
// failures wrap these sentinels and bubble unmodified to the HTTP layer,
// which maps them to status codes with errors.Is.
var (
	// ErrValidation marks a rejected request (missing or invalid input).
	ErrValidation = errors.New("invalid order request")

	// ErrOrderNotFound marks a status change targeting an order number
	// unknown to the stats store.
	ErrOrderNotFound = errors.New("order not found")

	// ErrRowNotFound marks a ledger lookup that matched no row, including
	// exports requested before the ledger exists.
	ErrRowNotFound = errors.New("ledger row not found")

	// ErrStorageInit marks an unwritable backing medium during setup.
	ErrStorageInit = errors.New("storage initialization failed")

	// ErrStorageWrite marks a failed durable write.
	ErrStorageWrite = errors.New("storage write failed")
)
