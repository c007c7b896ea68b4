package offer

import (
	"cmp"
	"slices"
	"strings"

	"github.com/atmx/offer-engine/internal/model"
)

// IsMine reports whether the offer was made by the holder of fingerprint.
func IsMine(o *model.Offer, fingerprint string) bool {
	return o.OwnerFingerprint() == fingerprint
}

// MatchesDirectionAndCurrency compares the direction name and the counter
// currency code, ignoring case.
func MatchesDirectionAndCurrency(o *model.Offer, direction, currencyCode string) bool {
	return strings.EqualFold(string(o.Direction()), direction) &&
		strings.EqualFold(o.CounterCurrencyCode(), currencyCode)
}

// PriceComparator orders offers for a caller listing direction: BUY lists
// cheapest first, SELL lists the highest price first. Market-based offers
// are priced on every call; SortOffers prices them once.
func PriceComparator(direction string) func(a, b *model.Offer) int {
	order := priceOrder(direction)
	return func(a, b *model.Offer) int {
		return order(a.EffectivePrice(), b.EffectivePrice())
	}
}

// OpenOfferPriceComparator is PriceComparator applied to the wrapped offer.
func OpenOfferPriceComparator(direction string) func(a, b *model.OpenOffer) int {
	byOffer := PriceComparator(direction)
	return func(a, b *model.OpenOffer) int {
		return byOffer(a.Offer, b.Offer)
	}
}

func priceOrder(direction string) func(a, b int64) int {
	if strings.EqualFold(direction, string(model.Buy)) {
		return cmp.Compare[int64]
	}
	return func(a, b int64) int { return cmp.Compare(b, a) }
}

// SortOffers sorts in place; ties keep registry order. Each offer is
// priced once, so a feed update during the sort cannot reorder it.
func SortOffers(offers []*model.Offer, direction string) {
	sortByPrice(offers, (*model.Offer).EffectivePrice, direction)
}

// SortOpenOffers sorts in place; ties keep registry order.
func SortOpenOffers(openOffers []*model.OpenOffer, direction string) {
	sortByPrice(openOffers, func(oo *model.OpenOffer) int64 { return oo.Offer.EffectivePrice() }, direction)
}

type priced[T any] struct {
	item  T
	price int64
}

func sortByPrice[T any](items []T, priceOf func(T) int64, direction string) {
	snapshot := make([]priced[T], len(items))
	for i, it := range items {
		snapshot[i] = priced[T]{item: it, price: priceOf(it)}
	}
	order := priceOrder(direction)
	slices.SortStableFunc(snapshot, func(a, b priced[T]) int {
		return order(a.price, b.price)
	})
	for i, p := range snapshot {
		items[i] = p.item
	}
}
