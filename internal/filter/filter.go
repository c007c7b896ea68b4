// Package filter decides whether an offer in the book can be taken by the
// local user under the current filter rules.
//
// Rules are evaluated in a fixed order and the first one that fails is
// reported as the Result's Reason, so callers can explain why an offer
// they asked for by id is not available to them.
package filter

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/atmx/offer-engine/internal/model"
)

// Reason names the rule an offer failed.
type Reason string

const (
	Valid                       Reason = "VALID"
	APIDisabled                 Reason = "API_DISABLED"
	OfferBanned                 Reason = "OFFER_BANNED"
	CurrencyBanned              Reason = "CURRENCY_BANNED"
	PaymentMethodBanned         Reason = "PAYMENT_METHOD_BANNED"
	HasNoPaymentAccountForOffer Reason = "HAS_NO_PAYMENT_ACCOUNT_VALID_FOR_OFFER"
	AccountLookupFailed         Reason = "ACCOUNT_LOOKUP_FAILED"
)

// Result of a takeability check.
type Result struct {
	Reason Reason
}

// IsValid reports whether the offer passed every rule.
func (r Result) IsValid() bool { return r.Reason == Valid }

func (r Result) String() string { return string(r.Reason) }

// Rules are the operator-controlled bans.
type Rules struct {
	DisableAPI           bool
	BannedOfferIDs       []string
	BannedCurrencies     []string
	BannedPaymentMethods []string
}

// AccountLister lists the local payment accounts.
type AccountLister interface {
	ListPaymentAccounts(ctx context.Context) ([]model.PaymentAccount, error)
}

// Compatibility matches offers against payment accounts.
type Compatibility interface {
	AnyValidFor(offer *model.Offer, accounts []model.PaymentAccount) bool
}

// OfferFilter evaluates Rules plus the payment account requirement.
type OfferFilter struct {
	rules    Rules
	accounts AccountLister
	compat   Compatibility
}

// NewOfferFilter creates a filter. A nil accounts lister skips the payment
// account rule.
func NewOfferFilter(rules Rules, accounts AccountLister, compat Compatibility) *OfferFilter {
	return &OfferFilter{rules: rules, accounts: accounts, compat: compat}
}

// CanTakeOffer checks offer against all rules for a caller.
func (f *OfferFilter) CanTakeOffer(ctx context.Context, offer *model.Offer, isAPICaller bool) Result {
	// 1. API access switch.
	if isAPICaller && f.rules.DisableAPI {
		return Result{Reason: APIDisabled}
	}

	// 2. Operator bans.
	if slices.Contains(f.rules.BannedOfferIDs, offer.ID()) {
		return Result{Reason: OfferBanned}
	}
	if containsFold(f.rules.BannedCurrencies, offer.CurrencyCode()) {
		return Result{Reason: CurrencyBanned}
	}
	if containsFold(f.rules.BannedPaymentMethods, offer.PaymentMethodID()) {
		return Result{Reason: PaymentMethodBanned}
	}

	// 3. The taker needs an account able to settle the offer.
	if f.accounts != nil && f.compat != nil {
		accounts, err := f.accounts.ListPaymentAccounts(ctx)
		if err != nil {
			slog.Warn("payment account lookup failed", "offer_id", offer.ID(), "err", err)
			return Result{Reason: AccountLookupFailed}
		}
		if !f.compat.AnyValidFor(offer, accounts) {
			return Result{Reason: HasNoPaymentAccountForOffer}
		}
	}

	return Result{Reason: Valid}
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
