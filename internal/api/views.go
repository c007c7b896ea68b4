package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/atmx/offer-engine/internal/model"
	"github.com/atmx/offer-engine/internal/price"
)

var hundred = decimal.NewFromInt(100)

// OfferView is the JSON shape of an offer. Prices are decimal strings in
// the currency's precision, the margin is a percentage.
type OfferView struct {
	ID                    string           `json:"id"`
	Date                  time.Time        `json:"date"`
	Direction             model.Direction  `json:"direction"`
	BaseCurrencyCode      string           `json:"base_currency_code"`
	CounterCurrencyCode   string           `json:"counter_currency_code"`
	Price                 string           `json:"price"`
	UseMarketBasedPrice   bool             `json:"use_market_based_price"`
	MarketPriceMargin     decimal.Decimal  `json:"market_price_margin"`
	Amount                int64            `json:"amount"`
	MinAmount             int64            `json:"min_amount"`
	PaymentMethodID       string           `json:"payment_method_id"`
	MakerPaymentAccountID string           `json:"maker_payment_account_id,omitempty"`
	BuyerSecurityDeposit  int64            `json:"buyer_security_deposit"`
	SellerSecurityDeposit int64            `json:"seller_security_deposit"`
	MakerFee              int64            `json:"maker_fee"`
	MakerFeeCurrencyCode  string           `json:"maker_fee_currency_code"`
	State                 model.OfferState `json:"state"`
	IsMyOffer             bool             `json:"is_my_offer"`
}

// OpenOfferView adds the local control fields.
type OpenOfferView struct {
	OfferView
	TriggerPrice   string               `json:"trigger_price"`
	OpenOfferState model.OpenOfferState `json:"open_offer_state"`
	IsActivated    bool                 `json:"is_activated"`
}

func offerView(o *model.Offer, mine bool) OfferView {
	p := o.Payload()
	effective, _ := o.Price()
	code := p.CurrencyCode()
	return OfferView{
		ID:                    p.ID,
		Date:                  p.Date,
		Direction:             p.Direction,
		BaseCurrencyCode:      p.BaseCurrencyCode,
		CounterCurrencyCode:   p.CounterCurrencyCode,
		Price:                 price.FromScaledInteger(effective, code),
		UseMarketBasedPrice:   p.UseMarketBasedPrice,
		MarketPriceMargin:     p.MarketPriceMargin.Mul(hundred),
		Amount:                p.Amount,
		MinAmount:             p.MinAmount,
		PaymentMethodID:       p.PaymentMethodID,
		MakerPaymentAccountID: makerAccount(p, mine),
		BuyerSecurityDeposit:  p.BuyerSecurityDeposit,
		SellerSecurityDeposit: p.SellerSecurityDeposit,
		MakerFee:              p.MakerFee,
		MakerFeeCurrencyCode:  p.MakerFeeCurrencyCode,
		State:                 o.State(),
		IsMyOffer:             mine,
	}
}

// makerAccount hides the maker's account id from other users.
func makerAccount(p model.Payload, mine bool) string {
	if mine {
		return p.MakerPaymentAccountID
	}
	return ""
}

func openOfferView(oo *model.OpenOffer) OpenOfferView {
	return OpenOfferView{
		OfferView:      offerView(oo.Offer, true),
		TriggerPrice:   price.FromScaledInteger(oo.TriggerPrice, oo.Offer.CurrencyCode()),
		OpenOfferState: oo.State,
		IsActivated:    !oo.IsDeactivated(),
	}
}

func offerViews(offers []*model.Offer) []OfferView {
	views := make([]OfferView, 0, len(offers))
	for _, o := range offers {
		views = append(views, offerView(o, false))
	}
	return views
}

func openOfferViews(open []*model.OpenOffer) []OpenOfferView {
	views := make([]OpenOfferView, 0, len(open))
	for _, oo := range open {
		views = append(views, openOfferView(oo))
	}
	return views
}
