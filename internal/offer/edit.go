package offer

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/atmx/offer-engine/internal/model"
)

// EditType says which mutable fields an edit request carries. Values match
// the wire enumeration used by API clients.
type EditType int

const (
	ActivationStateOnly EditType = iota
	FixedPriceOnly
	FixedPriceAndActivationState
	MktPriceMarginOnly
	MktPriceMarginAndActivationState
	TriggerPriceOnly
	TriggerPriceAndActivationState
	MktPriceMarginAndTriggerPrice
	MktPriceMarginAndTriggerPriceAndActivationState
)

var editTypeNames = map[EditType]string{
	ActivationStateOnly:                             "ACTIVATION_STATE_ONLY",
	FixedPriceOnly:                                  "FIXED_PRICE_ONLY",
	FixedPriceAndActivationState:                    "FIXED_PRICE_AND_ACTIVATION_STATE",
	MktPriceMarginOnly:                              "MKT_PRICE_MARGIN_ONLY",
	MktPriceMarginAndActivationState:                "MKT_PRICE_MARGIN_AND_ACTIVATION_STATE",
	TriggerPriceOnly:                                "TRIGGER_PRICE_ONLY",
	TriggerPriceAndActivationState:                  "TRIGGER_PRICE_AND_ACTIVATION_STATE",
	MktPriceMarginAndTriggerPrice:                   "MKT_PRICE_MARGIN_AND_TRIGGER_PRICE",
	MktPriceMarginAndTriggerPriceAndActivationState: "MKT_PRICE_MARGIN_AND_TRIGGER_PRICE_AND_ACTIVATION_STATE",
}

func (t EditType) String() string {
	if name, ok := editTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("EditType(%d)", int(t))
}

// ParseEditType accepts the enumeration name, case-insensitively.
func ParseEditType(s string) (EditType, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for t, name := range editTypeNames {
		if name == upper {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown edit type %q", ErrInvalidArgument, s)
}

// editFields is the decision table row for one edit type.
type editFields struct {
	price      bool // fixed price replaced, margin cleared
	margin     bool // market price margin replaced
	trigger    bool // trigger price replaced
	activation bool // activation state changed
}

// fields is the decision table. Every EditType constant needs a case.
func (t EditType) fields() (editFields, bool) {
	switch t {
	case ActivationStateOnly:
		return editFields{activation: true}, true
	case FixedPriceOnly:
		return editFields{price: true}, true
	case FixedPriceAndActivationState:
		return editFields{price: true, activation: true}, true
	case MktPriceMarginOnly:
		return editFields{margin: true}, true
	case MktPriceMarginAndActivationState:
		return editFields{margin: true, activation: true}, true
	case TriggerPriceOnly:
		return editFields{trigger: true}, true
	case TriggerPriceAndActivationState:
		return editFields{trigger: true, activation: true}, true
	case MktPriceMarginAndTriggerPrice:
		return editFields{margin: true, trigger: true}, true
	case MktPriceMarginAndTriggerPriceAndActivationState:
		return editFields{margin: true, trigger: true, activation: true}, true
	}
	return editFields{}, false
}

// Known reports whether t is one of the enumerated combinations.
func (t EditType) Known() bool {
	_, ok := t.fields()
	return ok
}

// IsEditingPrice is true for the fixed-price edit types.
func (t EditType) IsEditingPrice() bool {
	f, _ := t.fields()
	return f.price
}

// IsEditingMarketMargin is true for every edit type that leaves the offer
// market-based: margin edits and trigger-price edits.
func (t EditType) IsEditingMarketMargin() bool {
	f, _ := t.fields()
	return f.margin || f.trigger
}

// IsEditingTriggerPrice is true for the trigger-price edit types.
func (t EditType) IsEditingTriggerPrice() bool {
	f, _ := t.fields()
	return f.trigger
}

// IsEditingActivationState is true for edit types paired with an
// activation change.
func (t EditType) IsEditingActivationState() bool {
	f, _ := t.fields()
	return f.activation
}

// Activation is the requested change to an open offer's activation state.
type Activation int

const (
	ActivationUnspecified Activation = -1
	ActivationDisable     Activation = 0
	ActivationEnable      Activation = 1
)

// Valid reports whether a is one of the three legal values.
func (a Activation) Valid() bool {
	switch a {
	case ActivationUnspecified, ActivationDisable, ActivationEnable:
		return true
	}
	return false
}

func (a Activation) String() string {
	switch a {
	case ActivationUnspecified:
		return "UNSPECIFIED"
	case ActivationDisable:
		return "DISABLE"
	case ActivationEnable:
		return "ENABLE"
	}
	return fmt.Sprintf("Activation(%d)", int(a))
}

// ResolveState applies a to the current activation state. Unspecified keeps
// current, enable and disable override it.
func (a Activation) ResolveState(current model.OpenOfferState) model.OpenOfferState {
	switch a {
	case ActivationEnable:
		return model.OpenOfferAvailable
	case ActivationDisable:
		return model.OpenOfferDeactivated
	}
	return current
}

// EditRequest is a sparse edit of one open offer. Only the fields named by
// Type are read.
type EditRequest struct {
	Type              EditType
	Price             string          // fixed-price edits, decimal string
	MarketPriceMargin decimal.Decimal // margin edits, percent: 2.5 = 2.5%
	TriggerPrice      int64           // trigger edits, scaled price, 0 disables
	Activation        Activation
}

func (r EditRequest) String() string {
	return fmt.Sprintf("EditRequest{type=%s, price=%q, marketPriceMargin=%s, triggerPrice=%d, activation=%s}",
		r.Type, r.Price, r.MarketPriceMargin.String(), r.TriggerPrice, r.Activation)
}
