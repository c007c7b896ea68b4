// Package store defines the persistence interface for the offer engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/atmx/offer-engine/internal/model"
)

// ErrNotFound is returned (wrapped) by lookups that match nothing.
var ErrNotFound = errors.New("store: not found")

// ErrDuplicate is returned when creating a record whose id already exists.
var ErrDuplicate = errors.New("store: duplicate id")

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer. Returned offers are fresh
// copies; mutating them never changes stored state.
type Store interface {
	// --- Offer book ---

	// PutOffer inserts or replaces a published offer.
	PutOffer(ctx context.Context, offer *model.Offer) error

	// GetOffer retrieves a published offer by id.
	GetOffer(ctx context.Context, id string) (*model.Offer, error)

	// ListOffers returns the offer book in publication order.
	ListOffers(ctx context.Context) ([]*model.Offer, error)

	// DeleteOffer removes an offer from the book. Missing ids are not an error.
	DeleteOffer(ctx context.Context, id string) error

	// --- Open offers (local user) ---

	// PutOpenOffer inserts or replaces an open offer.
	PutOpenOffer(ctx context.Context, oo *model.OpenOffer) error

	// GetOpenOffer retrieves an open offer by offer id.
	GetOpenOffer(ctx context.Context, id string) (*model.OpenOffer, error)

	// ListOpenOffers returns all open offers in creation order.
	ListOpenOffers(ctx context.Context) ([]*model.OpenOffer, error)

	// DeleteOpenOffer removes an open offer. Missing ids are not an error.
	DeleteOpenOffer(ctx context.Context, id string) error

	// --- Payment accounts ---

	// CreatePaymentAccount persists a new account.
	CreatePaymentAccount(ctx context.Context, account *model.PaymentAccount) error

	// GetPaymentAccount retrieves an account by id.
	GetPaymentAccount(ctx context.Context, id string) (*model.PaymentAccount, error)

	// ListPaymentAccounts returns all accounts.
	ListPaymentAccounts(ctx context.Context) ([]model.PaymentAccount, error)

	// --- Fee ledger ---

	// InsertTransaction appends an immutable maker fee record.
	InsertTransaction(ctx context.Context, tx *model.Transaction) error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
	_ Store = (*CachedStore)(nil)
)
