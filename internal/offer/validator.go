package offer

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/atmx/offer-engine/internal/model"
	"github.com/atmx/offer-engine/internal/price"
)

var (
	maxMarginPercent = decimal.NewFromInt(100)
	minMarginPercent = decimal.NewFromInt(-100)
)

// percentDigits bounds the integer part of a percentage before any
// arithmetic is done on it.
const percentDigits = 3

// ValidateMarginPercent checks that m, a percentage, lies in (-100, 100).
func ValidateMarginPercent(m decimal.Decimal) error {
	if err := price.CheckMagnitude(m, percentDigits); err != nil {
		return fmt.Errorf("%w: market price margin: %v", ErrInvalidArgument, err)
	}
	if m.LessThanOrEqual(minMarginPercent) || m.GreaterThanOrEqual(maxMarginPercent) {
		return fmt.Errorf("%w: market price margin %s%% out of range (-100, 100)",
			ErrInvalidArgument, m.String())
	}
	return nil
}

// ValidatePercent checks that p, a percentage, is small enough to do
// arithmetic on. Range rules are left to the caller.
func ValidatePercent(name string, p decimal.Decimal) error {
	if err := price.CheckMagnitude(p, percentDigits); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidArgument, name, err)
	}
	return nil
}

// ValidateEdit checks req against the open offer it targets and returns an
// ErrInvalidArgument describing the first rule violated.
func ValidateEdit(oo *model.OpenOffer, req EditRequest) error {
	f, ok := req.Type.fields()
	if !ok {
		return fmt.Errorf("%w: unknown edit type %s", ErrInvalidArgument, req.Type)
	}
	if !req.Activation.Valid() {
		return fmt.Errorf("%w: invalid activation state %d, must be -1, 0 or 1", ErrInvalidArgument, int(req.Activation))
	}

	if f.activation && req.Activation == ActivationUnspecified {
		return fmt.Errorf("%w: edit type %s requires the activation state to be specified",
			ErrInvalidArgument, req.Type)
	}
	if !f.activation && req.Activation != ActivationUnspecified {
		return fmt.Errorf("%w: edit type %s does not change the activation state",
			ErrInvalidArgument, req.Type)
	}

	if f.price {
		code := oo.Offer.CurrencyCode()
		p, err := price.ToScaledInteger(req.Price, code)
		if err != nil {
			return fmt.Errorf("%w: cannot parse price %q: %v", ErrInvalidArgument, req.Price, err)
		}
		if p <= 0 {
			return fmt.Errorf("%w: price must be positive, got %s", ErrInvalidArgument, req.Price)
		}
		if req.TriggerPrice != 0 {
			return fmt.Errorf("%w: cannot set a trigger price on fixed price offer %s",
				ErrInvalidArgument, oo.ID())
		}
	}

	if f.margin {
		if err := ValidateMarginPercent(req.MarketPriceMargin); err != nil {
			return err
		}
	}

	if f.trigger {
		if req.TriggerPrice < 0 {
			return fmt.Errorf("%w: trigger price %d cannot be negative", ErrInvalidArgument, req.TriggerPrice)
		}
		if !f.margin && !oo.Offer.UseMarketBasedPrice() {
			return fmt.Errorf("%w: cannot set a trigger price on fixed price offer %s",
				ErrInvalidArgument, oo.ID())
		}
	}
	return nil
}
