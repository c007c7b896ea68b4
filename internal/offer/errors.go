// Package offer holds the pure offer logic: ownership and direction
// predicates, price comparators, the edit-type decision table, the edit
// validator and the payload merger.
package offer

import "errors"

// Error kinds surfaced by the offer lifecycle. Callers wrap them with
// context and match with errors.Is.
var (
	// ErrNotFound means no offer or open offer matched an id after the
	// ownership and takeability filters.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument covers unparseable prices, unknown directions or
	// currencies, unknown payment accounts and malformed edit requests.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidState covers incompatible payment accounts and offers the
	// registry flagged with an error while placing.
	ErrInvalidState = errors.New("invalid state")
)
