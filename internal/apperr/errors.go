// Package apperr holds the error taxonomy shared by catalog, cart,
// inventory and orders. Handlers map these onto HTTP statuses; business
// code never retries them.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers a missing product, cart item or order, including
	// an order that exists but belongs to another user.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput covers request values that fail business validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyCart is returned when a conversion is attempted with no cart
	// or zero items.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrInsufficientStock is the sentinel matched by InsufficientStockError.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvalidStatus is returned for an order status outside the
	// enumerated set.
	ErrInvalidStatus = errors.New("invalid order status")

	// ErrConflict is returned when a mutation is refused because of the
	// current state of other entities, e.g. deleting a product that sits
	// in a pending order.
	ErrConflict = errors.New("conflict")

	// ErrIntegrity marks a state that should be unreachable given a
	// correct transaction boundary, e.g. an order missing right after its
	// creating transaction committed. Treat as a bug.
	ErrIntegrity = errors.New("integrity failure")
)

// InsufficientStockError reports a stock shortfall together with the
// amount actually available, so clients can display the real constraint.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Available   int32
}

func (e *InsufficientStockError) Error() string {
	if e.ProductName != "" {
		return fmt.Sprintf("insufficient stock for product %s (%s). Available: %d", e.ProductID, e.ProductName, e.Available)
	}
	return fmt.Sprintf("insufficient stock. Available: %d", e.Available)
}

// Is makes errors.Is(err, ErrInsufficientStock) match.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// NotFoundf wraps ErrNotFound with a concrete entity description.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}
