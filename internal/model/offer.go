package model

import (
	"encoding/json"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/atmx/offer-engine/internal/currency"
)

// MarketPriceSource supplies scaled market prices for market-based offers.
type MarketPriceSource interface {
	MarketPrice(currencyCode string) (int64, bool)
}

// Offer is a trade advertisement. The payload never changes after
// construction; the registry owns the state and error message.
type Offer struct {
	payload Payload

	mu           sync.RWMutex
	state        OfferState
	errorMessage string
	priceFeed    MarketPriceSource
}

// NewOffer wraps a copy of p in state UNKNOWN.
func NewOffer(p Payload) *Offer {
	return &Offer{payload: p.Clone(), state: OfferUnknown}
}

func (o *Offer) ID() string                  { return o.payload.ID }
func (o *Offer) Direction() Direction        { return o.payload.Direction }
func (o *Offer) OwnerFingerprint() string    { return o.payload.OwnerFingerprint }
func (o *Offer) CounterCurrencyCode() string { return o.payload.CounterCurrencyCode }
func (o *Offer) CurrencyCode() string        { return o.payload.CurrencyCode() }
func (o *Offer) UseMarketBasedPrice() bool   { return o.payload.UseMarketBasedPrice }
func (o *Offer) PaymentMethodID() string     { return o.payload.PaymentMethodID }

// Payload returns a deep copy of the immutable payload.
func (o *Offer) Payload() Payload { return o.payload.Clone() }

func (o *Offer) State() OfferState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

func (o *Offer) SetState(s OfferState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = s
}

// ErrorMessage is set by the registry when placing the offer failed.
func (o *Offer) ErrorMessage() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.errorMessage
}

func (o *Offer) SetErrorMessage(msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errorMessage = msg
}

// SetPriceFeed attaches the feed used to price market-based offers.
func (o *Offer) SetPriceFeed(feed MarketPriceSource) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.priceFeed = feed
}

// FixedPrice is the scaled price stored in the payload.
func (o *Offer) FixedPrice() int64 { return o.payload.Price }

// Price is the effective scaled price. Market-based offers are priced off
// the attached feed; without a feed price the payload price is returned
// and ok is false.
func (o *Offer) Price() (price int64, ok bool) {
	if !o.payload.UseMarketBasedPrice {
		return o.payload.Price, true
	}
	o.mu.RLock()
	feed := o.priceFeed
	o.mu.RUnlock()
	if feed == nil {
		return o.payload.Price, false
	}
	market, found := feed.MarketPrice(o.CurrencyCode())
	if !found || market <= 0 {
		return o.payload.Price, false
	}

	one := decimal.NewFromInt(1)
	margin := o.payload.MarketPriceMargin
	var factor decimal.Decimal
	// Crypto prices are quoted the other way round, so the margin flips.
	if currency.IsCryptoCurrency(o.CurrencyCode()) {
		if o.payload.Direction == Sell {
			factor = one.Sub(margin)
		} else {
			factor = one.Add(margin)
		}
	} else {
		if o.payload.Direction == Buy {
			factor = one.Sub(margin)
		} else {
			factor = one.Add(margin)
		}
	}
	return decimal.NewFromInt(market).Mul(factor).Round(0).IntPart(), true
}

// EffectivePrice is Price without the availability flag, for sorting.
func (o *Offer) EffectivePrice() int64 {
	p, _ := o.Price()
	return p
}

type offerJSON struct {
	Payload      Payload    `json:"payload"`
	State        OfferState `json:"state"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

func (o *Offer) MarshalJSON() ([]byte, error) {
	return json.Marshal(offerJSON{
		Payload:      o.payload,
		State:        o.State(),
		ErrorMessage: o.ErrorMessage(),
	})
}

func (o *Offer) UnmarshalJSON(data []byte) error {
	var v offerJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.payload = v.Payload
	o.state = v.State
	o.errorMessage = v.ErrorMessage
	return nil
}

// OpenOffer associates one of the local user's offers with control fields
// that never leave this node.
type OpenOffer struct {
	Offer        *Offer         `json:"offer"`
	TriggerPrice int64          `json:"trigger_price"` // scaled, 0 = disabled
	State        OpenOfferState `json:"state"`
}

func (oo *OpenOffer) ID() string { return oo.Offer.ID() }

// IsDeactivated reports whether the offer is withheld from the book.
func (oo *OpenOffer) IsDeactivated() bool { return oo.State == OpenOfferDeactivated }
