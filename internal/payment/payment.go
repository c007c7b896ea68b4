// Package payment decides whether a payment account can settle an offer.
package payment

import (
	"slices"
	"strings"

	"github.com/atmx/offer-engine/internal/model"
)

// Compatibility implements the offer/account compatibility rules.
type Compatibility struct{}

// NewCompatibility creates the default rule set.
func NewCompatibility() Compatibility {
	return Compatibility{}
}

// IsValidFor reports whether account can be used to trade offer:
//   - same payment method
//   - the account trades the offer's currency
//   - when both sides restrict countries, the account's country is accepted
func (Compatibility) IsValidFor(offer *model.Offer, account *model.PaymentAccount) bool {
	if offer == nil || account == nil {
		return false
	}
	p := offer.Payload()
	if !strings.EqualFold(p.PaymentMethodID, account.PaymentMethodID) {
		return false
	}
	if !account.TradesCurrency(p.CurrencyCode()) {
		return false
	}
	if len(p.AcceptedCountryCodes) > 0 && account.CountryCode != "" {
		if !slices.Contains(p.AcceptedCountryCodes, account.CountryCode) {
			return false
		}
	}
	return true
}

// AnyValidFor reports whether at least one of accounts is valid for offer.
func (c Compatibility) AnyValidFor(offer *model.Offer, accounts []model.PaymentAccount) bool {
	for i := range accounts {
		if c.IsValidFor(offer, &accounts[i]) {
			return true
		}
	}
	return false
}
