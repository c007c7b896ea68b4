package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/atmx/offer-engine/internal/lifecycle"
	"github.com/atmx/offer-engine/internal/model"
	"github.com/atmx/offer-engine/internal/offer"
	"github.com/atmx/offer-engine/internal/price"
)

// --- Request types ---

// CreateOfferRequest is the JSON body for POST /offers. Margin and buyer
// security deposit are percentages; prices are decimal strings.
type CreateOfferRequest struct {
	CurrencyCode         string          `json:"currency_code"`
	Direction            string          `json:"direction"`
	Price                string          `json:"price"`
	UseMarketBasedPrice  bool            `json:"use_market_based_price"`
	MarketPriceMargin    decimal.Decimal `json:"market_price_margin"`
	Amount               int64           `json:"amount"`     // satoshi
	MinAmount            int64           `json:"min_amount"` // satoshi
	BuyerSecurityDeposit decimal.Decimal `json:"buyer_security_deposit"`
	TriggerPrice         string          `json:"trigger_price,omitempty"`
	PaymentAccountID     string          `json:"payment_account_id"`
	MakerFeeCurrencyCode string          `json:"maker_fee_currency_code,omitempty"`
}

// EditOfferRequest is the JSON body for PATCH /my-offers/{offerID}.
// Enable is -1 (leave as is), 0 (deactivate) or 1 (activate); omitted
// means -1.
type EditOfferRequest struct {
	EditType          string          `json:"edit_type"`
	Price             string          `json:"price,omitempty"`
	MarketPriceMargin decimal.Decimal `json:"market_price_margin"`
	TriggerPrice      string          `json:"trigger_price,omitempty"`
	Enable            *int            `json:"enable,omitempty"`
}

// --- Queries ---

// ListOffers handles GET /offers?direction=BUY&currency=USD
func (h *Handler) ListOffers(w http.ResponseWriter, r *http.Request) {
	direction, code, ok := listParams(w, r)
	if !ok {
		return
	}
	offers, err := h.offers.ListOffers(r.Context(), direction, code)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, offerViews(offers))
}

// GetOffer handles GET /offers/{offerID}
func (h *Handler) GetOffer(w http.ResponseWriter, r *http.Request) {
	o, err := h.offers.GetOffer(r.Context(), chi.URLParam(r, "offerID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, offerView(o, false))
}

// ListMyOffers handles GET /my-offers?direction=SELL&currency=EUR
func (h *Handler) ListMyOffers(w http.ResponseWriter, r *http.Request) {
	direction, code, ok := listParams(w, r)
	if !ok {
		return
	}
	open, err := h.offers.ListMyOffers(r.Context(), direction, code)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, openOfferViews(open))
}

// GetMyOffer handles GET /my-offers/{offerID}
func (h *Handler) GetMyOffer(w http.ResponseWriter, r *http.Request) {
	oo, err := h.offers.GetMyOffer(r.Context(), chi.URLParam(r, "offerID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, openOfferView(oo))
}

// --- Commands ---

// CreateOffer handles POST /offers and responds once the offer is placed.
func (h *Handler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	var req CreateOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	trigger, err := scaleTrigger(req.TriggerPrice, req.CurrencyCode)
	if err != nil {
		fail(w, r, err)
		return
	}

	var placed *model.Offer
	ctx := context.WithoutCancel(r.Context())
	done, err := h.offers.CreateAndPlace(ctx, lifecycle.CreateOfferRequest{
		CurrencyCode:         req.CurrencyCode,
		Direction:            req.Direction,
		Price:                req.Price,
		UseMarketBasedPrice:  req.UseMarketBasedPrice,
		MarketPriceMargin:    req.MarketPriceMargin,
		Amount:               req.Amount,
		MinAmount:            req.MinAmount,
		BuyerSecurityDeposit: req.BuyerSecurityDeposit,
		TriggerPrice:         trigger,
		PaymentAccountID:     req.PaymentAccountID,
		MakerFeeCurrencyCode: req.MakerFeeCurrencyCode,
	}, func(o *model.Offer) { placed = o })
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.awaitCommand(r, done); err != nil {
		fail(w, r, err)
		return
	}

	slog.Info("offer created",
		"offer_id", placed.ID(),
		"direction", placed.Direction(),
		"currency", placed.CurrencyCode(),
		"amount", req.Amount,
		"market_based", req.UseMarketBasedPrice,
	)
	writeJSON(w, http.StatusCreated, offerView(placed, true))
}

// EditOffer handles PATCH /my-offers/{offerID} and responds with the open
// offer after both edit phases finished.
func (h *Handler) EditOffer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "offerID")
	var req EditOfferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	editType, err := offer.ParseEditType(req.EditType)
	if err != nil {
		fail(w, r, err)
		return
	}
	activation := offer.ActivationUnspecified
	if req.Enable != nil {
		activation = offer.Activation(*req.Enable)
	}

	ctx := context.WithoutCancel(r.Context())
	current, err := h.offers.GetMyOpenOffer(ctx, id)
	if err != nil {
		fail(w, r, err)
		return
	}
	trigger, err := scaleTrigger(req.TriggerPrice, current.Offer.CurrencyCode())
	if err != nil {
		fail(w, r, err)
		return
	}

	res, err := h.offers.Edit(ctx, id, offer.EditRequest{
		Type:              editType,
		Price:             req.Price,
		MarketPriceMargin: req.MarketPriceMargin,
		TriggerPrice:      trigger,
		Activation:        activation,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.awaitCommand(r, res.Start); err != nil {
		fail(w, r, err)
		return
	}
	if err := h.awaitCommand(r, res.Publish); err != nil {
		fail(w, r, err)
		return
	}

	edited, err := h.offers.GetMyOpenOffer(ctx, id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, openOfferView(edited))
}

// CancelOffer handles DELETE /my-offers/{offerID}
func (h *Handler) CancelOffer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "offerID")
	done, err := h.offers.Cancel(context.WithoutCancel(r.Context()), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.awaitCommand(r, done); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listParams reads the direction and currency query parameters.
func listParams(w http.ResponseWriter, r *http.Request) (direction, code string, ok bool) {
	q := r.URL.Query()
	direction, code = q.Get("direction"), q.Get("currency")
	if code == "" {
		writeError(w, "currency is required", http.StatusBadRequest)
		return "", "", false
	}
	return direction, code, true
}

// scaleTrigger converts a decimal trigger price; blank is 0.
func scaleTrigger(s, code string) (int64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	scaled, err := price.ToScaledInteger(s, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return 0, fmt.Errorf("%w: trigger price: %v", offer.ErrInvalidArgument, err)
	}
	return scaled, nil
}
