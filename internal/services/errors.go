// internal/services/errors.go
package services

import (
	"errors"
	"fmt"

	"github.com/cardswap/cardswap-backend/internal/store"
)

var (
	ErrNoLocation      = errors.New("no active location set")
	ErrNoInventory     = errors.New("collection and wishlist are both empty")
	ErrInvalidState    = errors.New("action not allowed in the current trade state")
	ErrEmptyTrade      = errors.New("trade has no included cards")
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrFinalizedTrade  = errors.New("trade is already completed or cancelled")
	ErrNotFound        = errors.New("not found")
	ErrOwnership       = errors.New("resource belongs to another user")
	ErrUpstream        = errors.New("upstream failure")
	ErrValidation      = errors.New("validation failed")
)

// upstream wraps a store failure so handlers can tell it apart from domain errors.
func upstream(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrUpstream, err)
}

var domainErrors = []error{
	ErrNoLocation, ErrNoInventory, ErrInvalidState, ErrEmptyTrade,
	ErrInvalidQuantity, ErrFinalizedTrade, ErrNotFound, ErrOwnership, ErrValidation,
}

func isDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
