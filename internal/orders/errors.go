package orders

import (
	"errors"
	"fmt"
)

// Terminal failures of the order workflows. All of them roll the enclosing
// transaction back; none are retried.
var (
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product is not available for order")
	ErrInsufficientStock  = errors.New("not enough stock for product")
	ErrOrderNotFound      = errors.New("order not found")
)

// PersistenceError wraps an underlying storage failure so callers can treat
// it distinctly from the domain errors above.
type PersistenceError struct{ Err error }

func (e *PersistenceError) Error() string { return fmt.Sprintf("persistence failure: %v", e.Err) }
func (e *PersistenceError) Unwrap() error { return e.Err }

func persistence(err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Err: err}
}
