package offer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmx/offer-engine/internal/model"
)

func TestEditTypeClassification(t *testing.T) {
	tests := []struct {
		t       EditType
		price   bool
		margin  bool
		trigger bool
	}{
		{ActivationStateOnly, false, false, false},
		{FixedPriceOnly, true, false, false},
		{FixedPriceAndActivationState, true, false, false},
		{MktPriceMarginOnly, false, true, false},
		{MktPriceMarginAndActivationState, false, true, false},
		{TriggerPriceOnly, false, true, true},
		{TriggerPriceAndActivationState, false, true, true},
		{MktPriceMarginAndTriggerPrice, false, true, true},
		{MktPriceMarginAndTriggerPriceAndActivationState, false, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.t.String(), func(t *testing.T) {
			assert.True(t, tt.t.Known())
			assert.Equal(t, tt.price, tt.t.IsEditingPrice())
			assert.Equal(t, tt.margin, tt.t.IsEditingMarketMargin())
			assert.Equal(t, tt.trigger, tt.t.IsEditingTriggerPrice())
			assert.False(t, tt.t.IsEditingPrice() && tt.t.IsEditingMarketMargin())
		})
	}

	unknown := EditType(42)
	assert.False(t, unknown.Known())
	assert.Equal(t, "EditType(42)", unknown.String())
}

func TestParseEditType(t *testing.T) {
	got, err := ParseEditType("trigger_price_only")
	require.NoError(t, err)
	assert.Equal(t, TriggerPriceOnly, got)

	_, err = ParseEditType("PRICE_AND_EVERYTHING")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestActivationResolveState(t *testing.T) {
	for _, current := range []model.OpenOfferState{model.OpenOfferAvailable, model.OpenOfferDeactivated} {
		assert.Equal(t, current, ActivationUnspecified.ResolveState(current))
		assert.Equal(t, model.OpenOfferAvailable, ActivationEnable.ResolveState(current))
		assert.Equal(t, model.OpenOfferDeactivated, ActivationDisable.ResolveState(current))
	}
	assert.False(t, Activation(2).Valid())
	assert.False(t, Activation(-2).Valid())
}

func TestValidateEdit(t *testing.T) {
	fixed := &model.OpenOffer{Offer: newOffer(t, "fixed", me, model.Buy, "USD", 500000000), State: model.OpenOfferAvailable}
	market := &model.OpenOffer{Offer: newMarketOffer(t, "mkt", "0.01"), State: model.OpenOfferAvailable}

	tests := []struct {
		name    string
		target  *model.OpenOffer
		req     EditRequest
		wantErr bool
	}{
		{"fixed price ok", fixed, EditRequest{Type: FixedPriceOnly, Price: "51000.5", Activation: ActivationUnspecified}, false},
		{"fixed price unparseable", fixed, EditRequest{Type: FixedPriceOnly, Price: "fifty", Activation: ActivationUnspecified}, true},
		{"fixed price zero", fixed, EditRequest{Type: FixedPriceOnly, Price: "0", Activation: ActivationUnspecified}, true},
		{"fixed price with trigger", fixed, EditRequest{Type: FixedPriceOnly, Price: "1", TriggerPrice: 5, Activation: ActivationUnspecified}, true},
		{"fixed price needs activation", fixed, EditRequest{Type: FixedPriceAndActivationState, Price: "1", Activation: ActivationUnspecified}, true},
		{"fixed price and disable", fixed, EditRequest{Type: FixedPriceAndActivationState, Price: "1", Activation: ActivationDisable}, false},
		{"activation only enable", fixed, EditRequest{Type: ActivationStateOnly, Activation: ActivationEnable}, false},
		{"activation only unspecified", fixed, EditRequest{Type: ActivationStateOnly, Activation: ActivationUnspecified}, true},
		{"activation out of range", fixed, EditRequest{Type: ActivationStateOnly, Activation: Activation(3)}, true},
		{"unknown edit type", fixed, EditRequest{Type: EditType(99), Activation: ActivationUnspecified}, true},
		{"margin only ok", fixed, EditRequest{Type: MktPriceMarginOnly, MarketPriceMargin: d("2.5"), Activation: ActivationUnspecified}, false},
		{"margin out of range", fixed, EditRequest{Type: MktPriceMarginOnly, MarketPriceMargin: d("100"), Activation: ActivationUnspecified}, true},
		{"margin with huge exponent", fixed, EditRequest{Type: MktPriceMarginOnly, MarketPriceMargin: d("1e2147483647"), Activation: ActivationUnspecified}, true},
		{"margin with tiny exponent", fixed, EditRequest{Type: MktPriceMarginOnly, MarketPriceMargin: d("1e-2147483648"), Activation: ActivationUnspecified}, true},
		{"margin with unrequested activation", fixed, EditRequest{Type: MktPriceMarginOnly, MarketPriceMargin: d("1"), Activation: ActivationEnable}, true},
		{"trigger on market offer", market, EditRequest{Type: TriggerPriceOnly, TriggerPrice: 4000000000, Activation: ActivationUnspecified}, false},
		{"trigger on fixed offer", fixed, EditRequest{Type: TriggerPriceOnly, TriggerPrice: 4000000000, Activation: ActivationUnspecified}, true},
		{"negative trigger", market, EditRequest{Type: TriggerPriceOnly, TriggerPrice: -1, Activation: ActivationUnspecified}, true},
		{"margin and trigger turns fixed offer market based", fixed, EditRequest{Type: MktPriceMarginAndTriggerPrice, MarketPriceMargin: d("1"), TriggerPrice: 10, Activation: ActivationUnspecified}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEdit(tt.target, tt.req)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidArgument)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
