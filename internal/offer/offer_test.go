package offer

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/atmx/offer-engine/internal/model"
)

const (
	me    = "fp-me"
	other = "fp-other"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newOffer(t *testing.T, id, owner string, dir model.Direction, code string, price int64) *model.Offer {
	t.Helper()
	return model.NewOffer(model.Payload{
		ID:                    id,
		OwnerFingerprint:      owner,
		Direction:             dir,
		BaseCurrencyCode:      "BTC",
		CounterCurrencyCode:   code,
		Price:                 price,
		Amount:                10000000,
		MinAmount:             5000000,
		PaymentMethodID:       "SEPA",
		MakerPaymentAccountID: "acct-1",
		CountryCode:           "DE",
		AcceptedCountryCodes:  []string{"DE", "AT"},
		BankID:                "bank-1",
		AcceptedBankIDs:       []string{"bank-1", "bank-2"},
	})
}

func newMarketOffer(t *testing.T, id string, margin string) *model.Offer {
	t.Helper()
	p := newOffer(t, id, me, model.Sell, "EUR", 0).Payload()
	p.UseMarketBasedPrice = true
	p.MarketPriceMargin = d(margin)
	return model.NewOffer(p)
}

func ids(offers []*model.Offer) []string {
	out := make([]string, len(offers))
	for i, o := range offers {
		out[i] = o.ID()
	}
	return out
}
