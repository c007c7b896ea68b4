package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

type fixedFeed map[string]int64

func (f fixedFeed) MarketPrice(code string) (int64, bool) {
	p, ok := f[code]
	return p, ok
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{"buy": Buy, "BUY": Buy, " Sell ": Sell} {
		got, err := ParseDirection(in)
		if err != nil {
			t.Fatalf("ParseDirection(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseDirection(%q) = %s, want %s", in, got, want)
		}
	}
	if _, err := ParseDirection("hold"); !errors.Is(err, ErrUnknownDirection) {
		t.Errorf("expected ErrUnknownDirection, got %v", err)
	}
}

func TestOfferPrice_Fixed(t *testing.T) {
	o := NewOffer(Payload{ID: "a", Direction: Buy, BaseCurrencyCode: "BTC", CounterCurrencyCode: "USD", Price: 500000000})
	p, ok := o.Price()
	if !ok || p != 500000000 {
		t.Errorf("expected fixed price 500000000, got %d (ok=%t)", p, ok)
	}
}

func TestOfferPrice_MarketBased(t *testing.T) {
	margin := decimal.RequireFromString("0.05")
	feed := fixedFeed{"USD": 1000000}

	buy := NewOffer(Payload{ID: "b", Direction: Buy, BaseCurrencyCode: "BTC", CounterCurrencyCode: "USD",
		UseMarketBasedPrice: true, MarketPriceMargin: margin})
	if _, ok := buy.Price(); ok {
		t.Error("market-based offer without feed should not report a price")
	}
	buy.SetPriceFeed(feed)
	if p, _ := buy.Price(); p != 950000 {
		t.Errorf("fiat BUY should price at market*(1-m): expected 950000, got %d", p)
	}

	sell := NewOffer(Payload{ID: "s", Direction: Sell, BaseCurrencyCode: "BTC", CounterCurrencyCode: "USD",
		UseMarketBasedPrice: true, MarketPriceMargin: margin})
	sell.SetPriceFeed(feed)
	if p, _ := sell.Price(); p != 1050000 {
		t.Errorf("fiat SELL should price at market*(1+m): expected 1050000, got %d", p)
	}
}

func TestOfferPayload_IsCopied(t *testing.T) {
	src := Payload{ID: "c", AcceptedCountryCodes: []string{"DE"}}
	o := NewOffer(src)
	src.AcceptedCountryCodes[0] = "FR"

	got := o.Payload()
	if got.AcceptedCountryCodes[0] != "DE" {
		t.Errorf("offer payload must not share slices with its source")
	}
	got.AcceptedCountryCodes[0] = "US"
	if o.Payload().AcceptedCountryCodes[0] != "DE" {
		t.Errorf("Payload() must return a copy")
	}
}

func TestOfferJSON(t *testing.T) {
	o := NewOffer(Payload{ID: "d", Direction: Sell, CounterCurrencyCode: "EUR", Price: 42})
	o.SetState(OfferAvailable)

	data, err := json.Marshal(o)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Offer
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.ID() != "d" || back.State() != OfferAvailable || back.FixedPrice() != 42 {
		t.Errorf("unexpected offer after JSON round trip: id=%s state=%s price=%d", back.ID(), back.State(), back.FixedPrice())
	}
}
