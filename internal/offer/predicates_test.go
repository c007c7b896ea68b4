package offer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atmx/offer-engine/internal/model"
)

func TestIsMine(t *testing.T) {
	o := newOffer(t, "a", me, model.Buy, "USD", 1)
	assert.True(t, IsMine(o, me))
	assert.False(t, IsMine(o, other))
}

func TestMatchesDirectionAndCurrency(t *testing.T) {
	o := newOffer(t, "a", other, model.Sell, "USD", 1)

	assert.True(t, MatchesDirectionAndCurrency(o, "SELL", "USD"))
	assert.True(t, MatchesDirectionAndCurrency(o, "sell", "usd"))
	assert.False(t, MatchesDirectionAndCurrency(o, "BUY", "USD"))
	assert.False(t, MatchesDirectionAndCurrency(o, "SELL", "EUR"))
}

func TestSortOffers(t *testing.T) {
	build := func() []*model.Offer {
		return []*model.Offer{
			newOffer(t, "mid", other, model.Buy, "USD", 200),
			newOffer(t, "low", other, model.Buy, "USD", 100),
			newOffer(t, "high", other, model.Buy, "USD", 300),
			newOffer(t, "mid2", other, model.Buy, "USD", 200),
		}
	}

	asc := build()
	SortOffers(asc, "buy")
	assert.Equal(t, []string{"low", "mid", "mid2", "high"}, ids(asc))

	desc := build()
	SortOffers(desc, "SELL")
	assert.Equal(t, []string{"high", "mid", "mid2", "low"}, ids(desc))
}

func TestPriceComparator(t *testing.T) {
	low := newOffer(t, "low", other, model.Sell, "USD", 100)
	high := newOffer(t, "high", other, model.Sell, "USD", 300)

	assert.Negative(t, PriceComparator("BUY")(low, high))
	assert.Positive(t, PriceComparator("SELL")(low, high))
	assert.Zero(t, OpenOfferPriceComparator("sell")(&model.OpenOffer{Offer: low}, &model.OpenOffer{Offer: low}))
}

func TestSortOpenOffers(t *testing.T) {
	open := []*model.OpenOffer{
		{Offer: newOffer(t, "b", me, model.Sell, "EUR", 20)},
		{Offer: newOffer(t, "a", me, model.Sell, "EUR", 10)},
	}
	SortOpenOffers(open, "BUY")
	assert.Equal(t, "a", open[0].ID())

	SortOpenOffers(open, "SELL")
	assert.Equal(t, "b", open[0].ID())
}

// driftingFeed returns a lower price on every call.
type driftingFeed struct {
	next  int64
	calls int
}

func (f *driftingFeed) MarketPrice(string) (int64, bool) {
	f.calls++
	p := f.next
	f.next -= 100
	return p, true
}

func TestSortOffers_PricesEachOfferOnce(t *testing.T) {
	feed := &driftingFeed{next: 1000}
	offers := []*model.Offer{newMarketOffer(t, "a", "0"), newMarketOffer(t, "b", "0"), newMarketOffer(t, "c", "0")}
	for _, o := range offers {
		o.SetPriceFeed(feed)
	}

	SortOffers(offers, "BUY")
	assert.Equal(t, 3, feed.calls)
	assert.Equal(t, []string{"c", "b", "a"}, ids(offers))
}
