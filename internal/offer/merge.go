package offer

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/atmx/offer-engine/internal/model"
	"github.com/atmx/offer-engine/internal/price"
)

var hundred = decimal.NewFromInt(100)

// MutableFields resolves the whitelisted payload fields for req. Fields
// outside the whitelist are copied from the open offer's payload.
func MutableFields(oo *model.OpenOffer, req EditRequest) (model.MutableOfferPayloadFields, error) {
	p := oo.Offer.Payload()
	fields := model.MutableOfferPayloadFields{
		Price:                 p.Price,
		MarketPriceMargin:     p.MarketPriceMargin,
		UseMarketBasedPrice:   p.UseMarketBasedPrice,
		BaseCurrencyCode:      p.BaseCurrencyCode,
		CounterCurrencyCode:   p.CounterCurrencyCode,
		PaymentMethodID:       p.PaymentMethodID,
		MakerPaymentAccountID: p.MakerPaymentAccountID,
		CountryCode:           p.CountryCode,
		AcceptedCountryCodes:  p.AcceptedCountryCodes,
		BankID:                p.BankID,
		AcceptedBankIDs:       p.AcceptedBankIDs,
	}

	f, ok := req.Type.fields()
	if !ok {
		return fields, nil
	}

	switch {
	case f.price:
		scaled, err := price.ToScaledInteger(req.Price, p.CurrencyCode())
		if err != nil {
			return fields, fmt.Errorf("%w: cannot parse price %q: %v", ErrInvalidArgument, req.Price, err)
		}
		fields.Price = scaled
		fields.MarketPriceMargin = decimal.Zero
		fields.UseMarketBasedPrice = false
	case f.margin:
		fields.MarketPriceMargin = req.MarketPriceMargin.Div(hundred)
		fields.UseMarketBasedPrice = true
	case f.trigger:
		// Trigger-only edits keep the margin the offer already has.
		fields.UseMarketBasedPrice = true
	}
	return fields, nil
}

// MergePayload builds the replacement payload for an edit. The original
// payload is never modified; id, owner, amounts and currency codes carry
// over unchanged.
func MergePayload(oo *model.OpenOffer, req EditRequest) (model.Payload, error) {
	fields, err := MutableFields(oo, req)
	if err != nil {
		return model.Payload{}, err
	}
	slog.Info("merging offer payload", "offer_id", oo.ID(), "fields", fields.String())

	merged := oo.Offer.Payload()
	merged.Price = fields.Price
	merged.MarketPriceMargin = fields.MarketPriceMargin
	merged.UseMarketBasedPrice = fields.UseMarketBasedPrice
	merged.BaseCurrencyCode = fields.BaseCurrencyCode
	merged.CounterCurrencyCode = fields.CounterCurrencyCode
	merged.PaymentMethodID = fields.PaymentMethodID
	merged.MakerPaymentAccountID = fields.MakerPaymentAccountID
	merged.CountryCode = fields.CountryCode
	merged.AcceptedCountryCodes = fields.AcceptedCountryCodes
	merged.BankID = fields.BankID
	merged.AcceptedBankIDs = fields.AcceptedBankIDs
	return merged, nil
}

// ResolveTriggerPrice is the trigger price the edited open offer carries.
// Fixed-price offers cannot have one.
func ResolveTriggerPrice(oo *model.OpenOffer, req EditRequest) int64 {
	f, ok := req.Type.fields()
	switch {
	case !ok:
		return oo.TriggerPrice
	case f.trigger:
		return req.TriggerPrice
	case f.price:
		return 0
	}
	return oo.TriggerPrice
}
