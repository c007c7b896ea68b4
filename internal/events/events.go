// Package events fans offer lifecycle events out to WebSocket clients and
// a Kafka topic.
package events

import (
	"context"
	"time"

	"github.com/atmx/offer-engine/internal/model"
)

// Type names an offer lifecycle transition.
type Type string

const (
	OfferPlaced      Type = "offer_placed"
	OfferEditStarted Type = "offer_edit_started"
	OfferEdited      Type = "offer_edited"
	OfferRemoved     Type = "offer_removed"
)

// Event is the JSON message published for every registry change.
type Event struct {
	Type           Type                 `json:"type"`
	OfferID        string               `json:"offer_id"`
	Direction      model.Direction      `json:"direction,omitempty"`
	CurrencyCode   string               `json:"currency_code,omitempty"`
	Price          int64                `json:"price"`
	MarketBased    bool                 `json:"market_based"`
	OfferState     model.OfferState     `json:"offer_state,omitempty"`
	OpenOfferState model.OpenOfferState `json:"open_offer_state,omitempty"`
	Published      bool                 `json:"published"` // offer is visible in the book
	Timestamp      time.Time            `json:"timestamp"`
}

// NewEvent describes o at the current time.
func NewEvent(t Type, o *model.Offer, state model.OpenOfferState, published bool) Event {
	return Event{
		Type:           t,
		OfferID:        o.ID(),
		Direction:      o.Direction(),
		CurrencyCode:   o.CurrencyCode(),
		Price:          o.FixedPrice(),
		MarketBased:    o.UseMarketBasedPrice(),
		OfferState:     o.State(),
		OpenOfferState: state,
		Published:      published,
		Timestamp:      time.Now().UTC(),
	}
}

// Publisher delivers events. Implementations must not block the caller for
// long and handle their own delivery errors.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Multi publishes to every publisher in order.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) {
	for _, p := range m {
		p.Publish(ctx, e)
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) {}
