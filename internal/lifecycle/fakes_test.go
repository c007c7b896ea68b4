package lifecycle_test

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/atmx/offer-engine/internal/filter"
	"github.com/atmx/offer-engine/internal/model"
	"github.com/atmx/offer-engine/internal/store"
)

// fakeRegistry is scripted per test and calls back synchronously.
type fakeRegistry struct {
	mu     sync.Mutex
	offers []*model.Offer
	open   []*model.OpenOffer
	calls  []string

	createErr     error
	created       model.OfferParams
	placeSyncMsg  string // set on the offer before Place returns, with onError
	placeAsyncMsg string // set on the offer right before onSuccess
	placeErr      error
	placedDeposit decimal.Decimal
	placedTrigger int64
	savingsWallet bool

	startErr       error
	publishErr     error
	publishedOffer *model.Offer
	publishedTrig  int64
	publishedState model.OpenOfferState

	removeErr error
}

func (f *fakeRegistry) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeRegistry) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeRegistry) Offers(context.Context) ([]*model.Offer, error) {
	return slices.Clone(f.offers), nil
}

func (f *fakeRegistry) OpenOffers(context.Context) ([]*model.OpenOffer, error) {
	return slices.Clone(f.open), nil
}

func (f *fakeRegistry) OpenOffer(_ context.Context, id string) (*model.OpenOffer, bool, error) {
	for _, oo := range f.open {
		if oo.ID() == id {
			return oo, true, nil
		}
	}
	return nil, false, nil
}

func (f *fakeRegistry) Create(_ context.Context, p model.OfferParams) (*model.Offer, error) {
	f.record("create")
	f.created = p
	if f.createErr != nil {
		return nil, f.createErr
	}
	return model.NewOffer(model.Payload{
		ID:                  p.ID,
		OwnerFingerprint:    me,
		Direction:           p.Direction,
		BaseCurrencyCode:    "BTC",
		CounterCurrencyCode: p.CurrencyCode,
		Price:               p.Price,
		UseMarketBasedPrice: p.UseMarketBasedPrice,
		MarketPriceMargin:   p.MarketPriceMargin,
		Amount:              p.Amount,
		MinAmount:           p.MinAmount,
		PaymentMethodID:     p.Account.PaymentMethodID,
	}), nil
}

func (f *fakeRegistry) Place(_ context.Context, o *model.Offer, deposit decimal.Decimal, trigger int64,
	useSavingsWallet bool, onSuccess func(model.Transaction), onError func(error)) {
	f.record("place")
	f.placedDeposit, f.placedTrigger, f.savingsWallet = deposit, trigger, useSavingsWallet
	if f.placeSyncMsg != "" {
		o.SetErrorMessage(f.placeSyncMsg)
		onError(fmt.Errorf("rejected: %s", f.placeSyncMsg))
		return
	}
	if f.placeErr != nil {
		onError(f.placeErr)
		return
	}
	if f.placeAsyncMsg != "" {
		o.SetErrorMessage(f.placeAsyncMsg)
	}
	o.SetState(model.OfferAvailable)
	onSuccess(model.Transaction{ID: "tx-1", OfferID: o.ID(), Fee: 12000})
}

func (f *fakeRegistry) EditStart(_ context.Context, _ *model.OpenOffer, onSuccess func(), onError func(error)) {
	f.record("edit_start")
	if f.startErr != nil {
		onError(f.startErr)
		return
	}
	onSuccess()
}

func (f *fakeRegistry) EditPublish(_ context.Context, edited *model.Offer, trigger int64, state model.OpenOfferState,
	onSuccess func(), onError func(error)) {
	f.record("edit_publish")
	f.publishedOffer, f.publishedTrig, f.publishedState = edited, trigger, state
	if f.publishErr != nil {
		onError(f.publishErr)
		return
	}
	onSuccess()
}

func (f *fakeRegistry) Remove(_ context.Context, _ *model.Offer, onSuccess func(), onError func(error)) {
	f.record("remove")
	if f.removeErr != nil {
		onError(f.removeErr)
		return
	}
	onSuccess()
}

type fakeWallet struct{ availableErr, unlockedErr error }

func (w fakeWallet) VerifyAvailable(context.Context) error { return w.availableErr }
func (w fakeWallet) VerifyUnlocked(context.Context) error  { return w.unlockedErr }

type fakeAccounts map[string]*model.PaymentAccount

func (a fakeAccounts) GetPaymentAccount(_ context.Context, id string) (*model.PaymentAccount, error) {
	if acct, ok := a[id]; ok {
		return acct, nil
	}
	return nil, fmt.Errorf("payment account %s: %w", id, store.ErrNotFound)
}

type fakeCompat struct{ invalid bool }

func (c fakeCompat) IsValidFor(*model.Offer, *model.PaymentAccount) bool { return !c.invalid }

// fakeTakeability refuses the listed offer ids.
type fakeTakeability map[string]filter.Reason

func (t fakeTakeability) CanTakeOffer(_ context.Context, o *model.Offer, _ bool) filter.Result {
	if r, ok := t[o.ID()]; ok {
		return filter.Result{Reason: r}
	}
	return filter.Result{Reason: filter.Valid}
}

type fakeIdentity struct{ fingerprint string }

func (i fakeIdentity) Fingerprint() string              { return i.fingerprint }
func (i fakeIdentity) IsAPICaller(context.Context) bool { return true }
