package model

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	// KindInsufficientStock: requested reservation/consumption exceeds what the
	// ledger can give. Recoverable by retrying with a smaller quantity.
	KindInsufficientStock ErrorKind = iota + 1
	// KindInvalidState: the target record does not permit the operation
	// (already-terminal decision entry, consume without reservation, ...).
	KindInvalidState
	// KindValidation: a required field is missing or malformed.
	KindValidation
	// KindNotFound: unknown item/branch/order/entry reference.
	KindNotFound
	// KindConcurrencyConflict: lock acquisition exhausted its retry budget.
	// Callers should retry the whole operation.
	KindConcurrencyConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindInvalidState:
		return "invalid_state"
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found"
	case KindConcurrencyConflict:
		return "concurrency_conflict"
	}
	return "unknown"
}

// DomainError carries the error taxonomy across package boundaries. Handlers
// map Kind to a transport status; the shortage fields surface to the caller on
// insufficient stock.
type DomainError struct {
	Kind      ErrorKind
	Msg       string
	ItemID    string
	BranchID  string
	Requested float64
	Available float64
	Field     string
}

func (e *DomainError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return e.Kind.String()
}

// Shortage is how much the request overshot availability.
func (e *DomainError) Shortage() float64 {
	return e.Requested - e.Available
}

func ErrInsufficientStock(itemID, branchID string, requested, available float64) error {
	return &DomainError{
		Kind:      KindInsufficientStock,
		Msg:       fmt.Sprintf("item %s at branch %s: requested %.3f, available %.3f", itemID, branchID, requested, available),
		ItemID:    itemID,
		BranchID:  branchID,
		Requested: requested,
		Available: available,
	}
}

func ErrInvalidState(format string, args ...any) error {
	return &DomainError{Kind: KindInvalidState, Msg: fmt.Sprintf(format, args...)}
}

func ErrValidation(field, format string, args ...any) error {
	return &DomainError{Kind: KindValidation, Msg: fmt.Sprintf(format, args...), Field: field}
}

func ErrNotFound(kind, id string) error {
	return &DomainError{Kind: KindNotFound, Msg: fmt.Sprintf("%s %s not found", kind, id)}
}

func ErrConcurrencyConflict(key string) error {
	return &DomainError{Kind: KindConcurrencyConflict, Msg: fmt.Sprintf("could not acquire lock for %s", key)}
}

// IsKind reports whether err (or anything it wraps) is a DomainError of kind k.
func IsKind(err error, k ErrorKind) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Kind == k
}
