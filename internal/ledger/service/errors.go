package service

import (
	"errors"
)

var (
	// ErrStorage wraps every failure of the backing store.
	ErrStorage = errors.New("ledger storage fault")

	// ErrInvalidExpense is returned when a record would break the ledger invariants.
	ErrInvalidExpense = errors.New("invalid expense")
)

// IsStorageFault reports whether err came from the backing store.
func IsStorageFault(err error) bool {
	return errors.Is(err, ErrStorage)
}

// IsInvalidExpense reports whether err is a validation failure.
func IsInvalidExpense(err error) bool {
	return errors.Is(err, ErrInvalidExpense)
}
