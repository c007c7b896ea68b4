// Package registry is the local offer registry: it owns the offer book and
// the local user's open offers, and runs every mutation asynchronously,
// reporting through success and error callbacks.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atmx/offer-engine/internal/currency"
	"github.com/atmx/offer-engine/internal/events"
	"github.com/atmx/offer-engine/internal/metrics"
	"github.com/atmx/offer-engine/internal/model"
	"github.com/atmx/offer-engine/internal/store"
)

var (
	ErrInvalidAmount  = errors.New("registry: invalid amount")
	ErrInvalidDeposit = errors.New("registry: security deposit out of range")
	ErrNoAccount      = errors.New("registry: payment account required")
	ErrUnknownOffer   = errors.New("registry: no open offer with that id")
	ErrEditInProgress = errors.New("registry: offer is already being edited")
	ErrNotInEditMode  = errors.New("registry: offer is not in edit mode")
)

// Config holds the offer economics.
type Config struct {
	Fingerprint        string
	MakerFeeRate       decimal.Decimal // fraction of amount
	MinMakerFee        int64           // satoshi
	DefaultTxFee       int64           // satoshi
	MinSecurityDeposit decimal.Decimal // fraction of amount
	MaxSecurityDeposit decimal.Decimal // fraction of amount
	MaxTradeAmount     int64           // satoshi, 0 = unlimited
}

// DefaultConfig returns the fee and deposit limits used when none are
// configured.
func DefaultConfig(fingerprint string) Config {
	return Config{
		Fingerprint:        fingerprint,
		MakerFeeRate:       decimal.RequireFromString("0.001"),
		MinMakerFee:        5000,
		DefaultTxFee:       2000,
		MinSecurityDeposit: decimal.RequireFromString("0.15"),
		MaxSecurityDeposit: decimal.RequireFromString("0.5"),
		MaxTradeAmount:     100_000_000,
	}
}

// LocalRegistry implements the registry over a store.Store.
type LocalRegistry struct {
	store  store.Store
	events events.Publisher
	feed   model.MarketPriceSource
	cfg    Config
	now    func() time.Time

	mu      sync.Mutex
	editing map[string]*model.OpenOffer // offer id -> open offer as it was when the edit started

	wg sync.WaitGroup
}

// New creates a registry. A nil publisher discards events; a nil feed
// leaves market-based offers unpriced.
func New(st store.Store, pub events.Publisher, feed model.MarketPriceSource, cfg Config) *LocalRegistry {
	if pub == nil {
		pub = events.Discard{}
	}
	return &LocalRegistry{
		store:   st,
		events:  pub,
		feed:    feed,
		cfg:     cfg,
		now:     time.Now,
		editing: make(map[string]*model.OpenOffer),
	}
}

// Wait blocks until every in-flight command has called back.
func (r *LocalRegistry) Wait() { r.wg.Wait() }

func (r *LocalRegistry) async(fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn()
	}()
}

func (r *LocalRegistry) attachFeed(o *model.Offer) *model.Offer {
	if r.feed != nil {
		o.SetPriceFeed(r.feed)
	}
	return o
}

// Offers is a snapshot of the offer book.
func (r *LocalRegistry) Offers(ctx context.Context) ([]*model.Offer, error) {
	offers, err := r.store.ListOffers(ctx)
	if err != nil {
		return nil, err
	}
	for _, o := range offers {
		r.attachFeed(o)
	}
	return offers, nil
}

// OpenOffers is a snapshot of the local user's open offers.
func (r *LocalRegistry) OpenOffers(ctx context.Context) ([]*model.OpenOffer, error) {
	open, err := r.store.ListOpenOffers(ctx)
	if err != nil {
		return nil, err
	}
	for _, oo := range open {
		r.attachFeed(oo.Offer)
	}
	return open, nil
}

// OpenOffer looks up one open offer. A missing id is (nil, false, nil).
func (r *LocalRegistry) OpenOffer(ctx context.Context, id string) (*model.OpenOffer, bool, error) {
	oo, err := r.store.GetOpenOffer(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	r.attachFeed(oo.Offer)
	return oo, true, nil
}

// Create builds a new offer in state UNKNOWN. Nothing is persisted until
// Place.
func (r *LocalRegistry) Create(_ context.Context, p model.OfferParams) (*model.Offer, error) {
	if p.Account == nil {
		return nil, ErrNoAccount
	}
	if p.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %d", ErrInvalidAmount, p.Amount)
	}
	if p.MinAmount <= 0 || p.MinAmount > p.Amount {
		return nil, fmt.Errorf("%w: min amount %d must be in (0, %d]", ErrInvalidAmount, p.MinAmount, p.Amount)
	}
	if p.BuyerSecurityDeposit.LessThan(r.cfg.MinSecurityDeposit) || p.BuyerSecurityDeposit.GreaterThan(r.cfg.MaxSecurityDeposit) {
		return nil, fmt.Errorf("%w: %s not in [%s, %s]", ErrInvalidDeposit,
			p.BuyerSecurityDeposit, r.cfg.MinSecurityDeposit, r.cfg.MaxSecurityDeposit)
	}

	amount := decimal.NewFromInt(p.Amount)
	makerFee := r.cfg.MakerFeeRate.Mul(amount).Round(0).IntPart()
	if makerFee < r.cfg.MinMakerFee {
		makerFee = r.cfg.MinMakerFee
	}
	feeCurrency := p.MakerFeeCurrencyCode
	if feeCurrency == "" {
		feeCurrency = currency.BTC
	}

	acct := p.Account
	payload := model.Payload{
		ID:                    p.ID,
		Date:                  r.now().UTC(),
		OwnerFingerprint:      r.cfg.Fingerprint,
		Direction:             p.Direction,
		BaseCurrencyCode:      currency.BTC,
		CounterCurrencyCode:   p.CurrencyCode,
		Price:                 p.Price,
		UseMarketBasedPrice:   p.UseMarketBasedPrice,
		MarketPriceMargin:     p.MarketPriceMargin,
		Amount:                p.Amount,
		MinAmount:             p.MinAmount,
		PaymentMethodID:       acct.PaymentMethodID,
		MakerPaymentAccountID: acct.ID,
		CountryCode:           acct.CountryCode,
		AcceptedCountryCodes:  acct.AcceptedCountryCodes,
		BankID:                acct.BankID,
		AcceptedBankIDs:       acct.AcceptedBankIDs,
		BuyerSecurityDeposit:  p.BuyerSecurityDeposit.Mul(amount).Round(0).IntPart(),
		SellerSecurityDeposit: r.cfg.MinSecurityDeposit.Mul(amount).Round(0).IntPart(),
		MakerFee:              makerFee,
		MakerFeeCurrencyCode:  feeCurrency,
		ProtocolVersion:       model.ProtocolVersion,
	}
	return r.attachFeed(model.NewOffer(payload)), nil
}

// Place publishes offer. Rejections known up front set the offer's error
// message and call onError before Place returns; otherwise the fee
// transaction is recorded and the offer published asynchronously.
func (r *LocalRegistry) Place(ctx context.Context, offer *model.Offer, buyerSecurityDeposit decimal.Decimal,
	triggerPrice int64, useSavingsWallet bool, onSuccess func(model.Transaction), onError func(error)) {
	p := offer.Payload()
	if r.cfg.MaxTradeAmount > 0 && p.Amount > r.cfg.MaxTradeAmount {
		err := fmt.Errorf("%w: amount %d exceeds trade limit %d", ErrInvalidAmount, p.Amount, r.cfg.MaxTradeAmount)
		offer.SetErrorMessage(err.Error())
		onError(err)
		return
	}
	if _, err := r.store.GetOpenOffer(ctx, offer.ID()); err == nil {
		err := fmt.Errorf("offer %s is already placed", offer.ID())
		offer.SetErrorMessage(err.Error())
		onError(err)
		return
	}

	slog.Debug("placing offer",
		"offer_id", offer.ID(),
		"buyer_security_deposit", buyerSecurityDeposit.String(),
		"trigger_price", triggerPrice,
		"use_savings_wallet", useSavingsWallet,
	)

	ctx = context.WithoutCancel(ctx)
	r.async(func() {
		tx := model.Transaction{
			ID:        uuid.New().String(),
			OfferID:   offer.ID(),
			Fee:       p.MakerFee + r.cfg.DefaultTxFee,
			CreatedAt: r.now().UTC(),
		}
		if err := r.store.InsertTransaction(ctx, &tx); err != nil {
			offer.SetErrorMessage("maker fee transaction failed")
			onError(fmt.Errorf("record fee tx for %s: %w", offer.ID(), err))
			return
		}
		offer.SetState(model.OfferAvailable)
		oo := &model.OpenOffer{Offer: offer, TriggerPrice: triggerPrice, State: model.OpenOfferAvailable}
		if err := r.store.PutOpenOffer(ctx, oo); err != nil {
			onError(fmt.Errorf("store open offer %s: %w", offer.ID(), err))
			return
		}
		if err := r.store.PutOffer(ctx, offer); err != nil {
			onError(fmt.Errorf("publish offer %s: %w", offer.ID(), err))
			return
		}
		r.refreshGauges(ctx)
		r.events.Publish(ctx, events.NewEvent(events.OfferPlaced, offer, oo.State, true))
		onSuccess(tx)
	})
}

// EditStart takes the offer off the book and opens an edit session.
func (r *LocalRegistry) EditStart(ctx context.Context, oo *model.OpenOffer, onSuccess func(), onError func(error)) {
	ctx = context.WithoutCancel(ctx)
	id := oo.ID()
	r.async(func() {
		current, err := r.store.GetOpenOffer(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			onError(fmt.Errorf("%w: %s", ErrUnknownOffer, id))
			return
		}
		if err != nil {
			onError(err)
			return
		}

		r.mu.Lock()
		if _, busy := r.editing[id]; busy {
			r.mu.Unlock()
			onError(fmt.Errorf("%w: %s", ErrEditInProgress, id))
			return
		}
		r.editing[id] = current
		r.mu.Unlock()

		if err := r.store.DeleteOffer(ctx, id); err != nil {
			r.endEdit(id)
			onError(fmt.Errorf("unpublish offer %s: %w", id, err))
			return
		}
		r.refreshGauges(ctx)
		r.events.Publish(ctx, events.NewEvent(events.OfferEditStarted, current.Offer, current.State, false))
		onSuccess()
	})
}

// EditPublish stores the edited offer and closes the edit session. The
// offer is republished only when state is AVAILABLE.
func (r *LocalRegistry) EditPublish(ctx context.Context, edited *model.Offer, triggerPrice int64,
	state model.OpenOfferState, onSuccess func(), onError func(error)) {
	ctx = context.WithoutCancel(ctx)
	id := edited.ID()
	r.async(func() {
		r.mu.Lock()
		_, inEdit := r.editing[id]
		r.mu.Unlock()
		if !inEdit {
			onError(fmt.Errorf("%w: %s", ErrNotInEditMode, id))
			return
		}

		oo := &model.OpenOffer{Offer: edited, TriggerPrice: triggerPrice, State: state}
		if err := r.store.PutOpenOffer(ctx, oo); err != nil {
			onError(fmt.Errorf("store edited offer %s: %w", id, err))
			return
		}
		published := state == model.OpenOfferAvailable
		if published {
			if err := r.store.PutOffer(ctx, edited); err != nil {
				onError(fmt.Errorf("republish offer %s: %w", id, err))
				return
			}
		}
		r.endEdit(id)
		r.refreshGauges(ctx)
		r.events.Publish(ctx, events.NewEvent(events.OfferEdited, edited, state, published))
		onSuccess()
	})
}

// Remove cancels an open offer and takes it off the book.
func (r *LocalRegistry) Remove(ctx context.Context, offer *model.Offer, onSuccess func(), onError func(error)) {
	ctx = context.WithoutCancel(ctx)
	id := offer.ID()
	r.async(func() {
		if _, err := r.store.GetOpenOffer(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				err = fmt.Errorf("%w: %s", ErrUnknownOffer, id)
			}
			onError(err)
			return
		}
		if err := r.store.DeleteOffer(ctx, id); err != nil {
			onError(fmt.Errorf("unpublish offer %s: %w", id, err))
			return
		}
		if err := r.store.DeleteOpenOffer(ctx, id); err != nil {
			onError(fmt.Errorf("delete open offer %s: %w", id, err))
			return
		}
		r.endEdit(id)
		offer.SetState(model.OfferRemoved)
		r.refreshGauges(ctx)
		r.events.Publish(ctx, events.NewEvent(events.OfferRemoved, offer, model.OpenOfferCanceled, false))
		onSuccess()
	})
}

func (r *LocalRegistry) endEdit(id string) {
	r.mu.Lock()
	delete(r.editing, id)
	r.mu.Unlock()
}

func (r *LocalRegistry) refreshGauges(ctx context.Context) {
	if offers, err := r.store.ListOffers(ctx); err == nil {
		metrics.OfferBookSize.Set(float64(len(offers)))
	}
	if open, err := r.store.ListOpenOffers(ctx); err == nil {
		metrics.OpenOffers.Set(float64(len(open)))
	}
}
