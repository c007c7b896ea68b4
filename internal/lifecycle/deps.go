package lifecycle

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/atmx/offer-engine/internal/filter"
	"github.com/atmx/offer-engine/internal/model"
)

// Registry owns the offer book and the local open offers. Mutations are
// asynchronous: exactly one of the callbacks is invoked, possibly on
// another goroutine, possibly before the method returns.
type Registry interface {
	Offers(ctx context.Context) ([]*model.Offer, error)
	OpenOffers(ctx context.Context) ([]*model.OpenOffer, error)
	OpenOffer(ctx context.Context, id string) (*model.OpenOffer, bool, error)

	Create(ctx context.Context, params model.OfferParams) (*model.Offer, error)
	Place(ctx context.Context, offer *model.Offer, buyerSecurityDeposit decimal.Decimal, triggerPrice int64,
		useSavingsWallet bool, onSuccess func(model.Transaction), onError func(error))
	EditStart(ctx context.Context, openOffer *model.OpenOffer, onSuccess func(), onError func(error))
	EditPublish(ctx context.Context, edited *model.Offer, triggerPrice int64, state model.OpenOfferState,
		onSuccess func(), onError func(error))
	Remove(ctx context.Context, offer *model.Offer, onSuccess func(), onError func(error))
}

// WalletGate guards offer creation.
type WalletGate interface {
	VerifyAvailable(ctx context.Context) error
	VerifyUnlocked(ctx context.Context) error
}

// PaymentAccountStore resolves payment accounts. Unknown ids fail with an
// error wrapping store.ErrNotFound.
type PaymentAccountStore interface {
	GetPaymentAccount(ctx context.Context, id string) (*model.PaymentAccount, error)
}

// OfferCompatibility checks a new offer against the account funding it.
type OfferCompatibility interface {
	IsValidFor(offer *model.Offer, account *model.PaymentAccount) bool
}

// Takeability decides whether the local user may take an offer.
type Takeability interface {
	CanTakeOffer(ctx context.Context, offer *model.Offer, isAPICaller bool) filter.Result
}

// IdentityContext identifies the local user and the calling channel.
type IdentityContext interface {
	Fingerprint() string
	IsAPICaller(ctx context.Context) bool
}

// PriceFeed prices market-based offers. SetCurrencyCode selects the
// currency the feed tracks.
type PriceFeed interface {
	model.MarketPriceSource
	SetCurrencyCode(code string)
}

// Deps are the collaborators of a Service. All fields except NewID are
// required.
type Deps struct {
	Registry      Registry
	Wallet        WalletGate
	Accounts      PaymentAccountStore
	Compatibility OfferCompatibility
	Takeability   Takeability
	Identity      IdentityContext
	PriceFeed     PriceFeed

	// NewID generates offer ids; nil uses NewOfferID.
	NewID func() string
}
