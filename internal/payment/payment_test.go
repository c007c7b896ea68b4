package payment

import (
	"testing"

	"github.com/atmx/offer-engine/internal/model"
)

func sepaOffer(countries ...string) *model.Offer {
	return model.NewOffer(model.Payload{
		ID:                   "o1",
		BaseCurrencyCode:     "BTC",
		CounterCurrencyCode:  "EUR",
		PaymentMethodID:      "SEPA",
		AcceptedCountryCodes: countries,
	})
}

func TestIsValidFor(t *testing.T) {
	c := NewCompatibility()
	account := &model.PaymentAccount{ID: "a1", PaymentMethodID: "sepa", TradeCurrencies: []string{"EUR"}, CountryCode: "DE"}

	if !c.IsValidFor(sepaOffer(), account) {
		t.Error("SEPA EUR account should be valid for SEPA EUR offer")
	}
	if !c.IsValidFor(sepaOffer("DE", "AT"), account) {
		t.Error("accepted country should be valid")
	}
	if c.IsValidFor(sepaOffer("FR"), account) {
		t.Error("account country outside accepted list should be invalid")
	}

	usd := &model.PaymentAccount{ID: "a2", PaymentMethodID: "SEPA", TradeCurrencies: []string{"USD"}}
	if c.IsValidFor(sepaOffer(), usd) {
		t.Error("account without offer currency should be invalid")
	}

	zelle := &model.PaymentAccount{ID: "a3", PaymentMethodID: "ZELLE", TradeCurrencies: []string{"EUR"}}
	if c.IsValidFor(sepaOffer(), zelle) {
		t.Error("different payment method should be invalid")
	}
	if c.IsValidFor(nil, account) || c.IsValidFor(sepaOffer(), nil) {
		t.Error("nil inputs should be invalid")
	}
}

func TestAnyValidFor(t *testing.T) {
	c := NewCompatibility()
	accounts := []model.PaymentAccount{
		{ID: "a1", PaymentMethodID: "ZELLE", TradeCurrencies: []string{"USD"}},
		{ID: "a2", PaymentMethodID: "SEPA", TradeCurrencies: []string{"EUR"}},
	}
	if !c.AnyValidFor(sepaOffer(), accounts) {
		t.Error("expected second account to match")
	}
	if c.AnyValidFor(sepaOffer(), accounts[:1]) {
		t.Error("expected no match")
	}
}
