package offer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmx/offer-engine/internal/model"
)

func assertUnwhitelistedFieldsKept(t *testing.T, before, after model.Payload) {
	t.Helper()
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, before.OwnerFingerprint, after.OwnerFingerprint)
	assert.Equal(t, before.Direction, after.Direction)
	assert.Equal(t, before.BaseCurrencyCode, after.BaseCurrencyCode)
	assert.Equal(t, before.CounterCurrencyCode, after.CounterCurrencyCode)
	assert.Equal(t, before.PaymentMethodID, after.PaymentMethodID)
	assert.Equal(t, before.MakerPaymentAccountID, after.MakerPaymentAccountID)
	assert.Equal(t, before.CountryCode, after.CountryCode)
	assert.Equal(t, before.AcceptedCountryCodes, after.AcceptedCountryCodes)
	assert.Equal(t, before.BankID, after.BankID)
	assert.Equal(t, before.AcceptedBankIDs, after.AcceptedBankIDs)
	assert.Equal(t, before.Amount, after.Amount)
	assert.Equal(t, before.MinAmount, after.MinAmount)
}

func TestMergePayload_FixedPrice(t *testing.T) {
	oo := &model.OpenOffer{Offer: newMarketOffer(t, "m1", "0.02"), TriggerPrice: 77}
	before := oo.Offer.Payload()

	merged, err := MergePayload(oo, EditRequest{Type: FixedPriceOnly, Price: "50000.12345", Activation: ActivationUnspecified})
	require.NoError(t, err)

	assert.Equal(t, int64(500001235), merged.Price)
	assert.True(t, merged.MarketPriceMargin.IsZero())
	assert.False(t, merged.UseMarketBasedPrice)
	assertUnwhitelistedFieldsKept(t, before, merged)
	assert.Equal(t, int64(0), ResolveTriggerPrice(oo, EditRequest{Type: FixedPriceOnly}))

	// Original untouched.
	assert.Equal(t, before, oo.Offer.Payload())
}

func TestMergePayload_MarketMargin(t *testing.T) {
	oo := &model.OpenOffer{Offer: newOffer(t, "f1", me, model.Buy, "USD", 4200000000), TriggerPrice: 0}
	before := oo.Offer.Payload()

	merged, err := MergePayload(oo, EditRequest{Type: MktPriceMarginOnly, MarketPriceMargin: d("2.5"), Activation: ActivationUnspecified})
	require.NoError(t, err)

	assert.True(t, merged.MarketPriceMargin.Equal(d("0.025")), "margin should be percent/100, got %s", merged.MarketPriceMargin)
	assert.True(t, merged.UseMarketBasedPrice)
	assert.Equal(t, before.Price, merged.Price)
	assertUnwhitelistedFieldsKept(t, before, merged)
}

func TestMergePayload_TriggerPriceOnlyKeepsPriceAndMargin(t *testing.T) {
	oo := &model.OpenOffer{Offer: newMarketOffer(t, "m2", "0.0315"), TriggerPrice: 100}
	before := oo.Offer.Payload()

	req := EditRequest{Type: TriggerPriceOnly, TriggerPrice: 4100000000, Activation: ActivationUnspecified}
	merged, err := MergePayload(oo, req)
	require.NoError(t, err)

	assert.Equal(t, before, merged)
	assert.Equal(t, int64(4100000000), ResolveTriggerPrice(oo, req))
}

func TestMergePayload_ActivationOnlyKeepsEverything(t *testing.T) {
	oo := &model.OpenOffer{Offer: newMarketOffer(t, "m3", "-0.01"), TriggerPrice: 55}
	before := oo.Offer.Payload()

	req := EditRequest{Type: ActivationStateOnly, Activation: ActivationDisable}
	merged, err := MergePayload(oo, req)
	require.NoError(t, err)

	assert.Equal(t, before, merged)
	assert.Equal(t, int64(55), ResolveTriggerPrice(oo, req))
}

func TestMergePayload_UnknownTypeKeepsPriceAndMargin(t *testing.T) {
	oo := &model.OpenOffer{Offer: newMarketOffer(t, "m4", "0.01")}
	before := oo.Offer.Payload()

	merged, err := MergePayload(oo, EditRequest{Type: EditType(77), Price: "1"})
	require.NoError(t, err)
	assert.Equal(t, before, merged)
}

func TestMergePayload_BadPrice(t *testing.T) {
	oo := &model.OpenOffer{Offer: newOffer(t, "f2", me, model.Buy, "USD", 1)}
	_, err := MergePayload(oo, EditRequest{Type: FixedPriceOnly, Price: "1.2.3"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
