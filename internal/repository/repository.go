// Package repository defines the persistence ports for the storefront service.
package repository

import (
	"context"

	"github.com/Haseeb71/zagro-storefront/internal/domain"
)

// CartRepository persists cart aggregates keyed by user ID.
type CartRepository interface {
	// Get returns the cart for the user, or apperrors.NotFound when none exists.
	Get(ctx context.Context, userID string) (*domain.Cart, error)

	// Save unconditionally persists the cart.
	Save(ctx context.Context, cart *domain.Cart) error

	// SaveIfVersion persists the cart only if the stored version still equals
	// expectedVersion, bumping the cart's version on success. It returns false
	// without error when a concurrent writer got there first.
	SaveIfVersion(ctx context.Context, cart *domain.Cart, expectedVersion int) (bool, error)

	// Delete removes the user's cart. Deleting an absent cart is not an error.
	Delete(ctx context.Context, userID string) error
}

// SubmissionRepository persists order submission records.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *domain.Submission) error
	Update(ctx context.Context, submission *domain.Submission) error
	GetByID(ctx context.Context, id string) (*domain.Submission, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Submission, error)
}
