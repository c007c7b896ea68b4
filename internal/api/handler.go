// Package api exposes the offer lifecycle over HTTP.
//
// Commands wait for the registry to call back before responding, bounded
// by the handler's command timeout.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atmx/offer-engine/internal/auth"
	"github.com/atmx/offer-engine/internal/lifecycle"
	"github.com/atmx/offer-engine/internal/model"
	"github.com/atmx/offer-engine/internal/offer"
	"github.com/atmx/offer-engine/internal/registry"
	"github.com/atmx/offer-engine/internal/store"
	"github.com/atmx/offer-engine/internal/wallet"
)

const defaultCommandTimeout = 10 * time.Second

// AccountStore persists the local payment accounts.
type AccountStore interface {
	CreatePaymentAccount(ctx context.Context, a *model.PaymentAccount) error
	ListPaymentAccounts(ctx context.Context) ([]model.PaymentAccount, error)
}

// WalletControl opens and closes the wallet.
type WalletControl interface {
	Unlock(password string, timeout time.Duration) error
	Lock()
}

// PriceUpdater accepts market price quotes.
type PriceUpdater interface {
	UpdatePrice(code string, scaled int64)
}

// Handler serves the offer API.
type Handler struct {
	offers         *lifecycle.Service
	accounts       AccountStore
	wallet         WalletControl
	prices         PriceUpdater
	auth           *auth.Service
	commandTimeout time.Duration
}

// NewHandler creates a Handler. A nil auth service disables the token
// endpoint and bearer checks.
func NewHandler(offers *lifecycle.Service, accounts AccountStore, w WalletControl, prices PriceUpdater, a *auth.Service) *Handler {
	if a == nil {
		a = auth.NewService("", "", 0)
	}
	return &Handler{
		offers:         offers,
		accounts:       accounts,
		wallet:         w,
		prices:         prices,
		auth:           a,
		commandTimeout: defaultCommandTimeout,
	}
}

// SetCommandTimeout bounds how long a command waits for the registry.
func (h *Handler) SetCommandTimeout(d time.Duration) {
	if d > 0 {
		h.commandTimeout = d
	}
}

// Routes returns the API router, meant to be mounted at /api/v1. Every
// route except the token endpoint requires a bearer token when auth is
// enabled.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/auth/token", h.IssueToken)

	r.Group(func(r chi.Router) {
		r.Use(h.auth.Middleware)

		// Offer book.
		r.Get("/offers", h.ListOffers)
		r.Post("/offers", h.CreateOffer)
		r.Get("/offers/{offerID}", h.GetOffer)

		// The local user's open offers.
		r.Get("/my-offers", h.ListMyOffers)
		r.Get("/my-offers/{offerID}", h.GetMyOffer)
		r.Patch("/my-offers/{offerID}", h.EditOffer)
		r.Delete("/my-offers/{offerID}", h.CancelOffer)

		r.Get("/payment-accounts", h.ListPaymentAccounts)
		r.Post("/payment-accounts", h.CreatePaymentAccount)

		r.Post("/wallet/unlock", h.UnlockWallet)
		r.Post("/wallet/lock", h.LockWallet)

		r.Put("/prices/{currency}", h.UpdatePrice)
	})
	return r
}

// awaitCommand waits for a registry completion; the request's own
// cancellation is not passed to the command.
func (h *Handler) awaitCommand(r *http.Request, c *lifecycle.Completion) error {
	ctx, cancel := context.WithTimeout(r.Context(), h.commandTimeout)
	defer cancel()
	return c.Wait(ctx)
}

// errStatus maps domain errors to HTTP status codes.
func errStatus(err error) int {
	switch {
	case errors.Is(err, offer.ErrNotFound), errors.Is(err, registry.ErrUnknownOffer), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, offer.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, offer.ErrInvalidState), errors.Is(err, registry.ErrEditInProgress),
		errors.Is(err, registry.ErrNotInEditMode), errors.Is(err, store.ErrDuplicate),
		errors.Is(err, wallet.ErrNotEncrypted), errors.Is(err, lifecycle.ErrPublishSkipped):
		return http.StatusConflict
	case errors.Is(err, wallet.ErrLocked):
		return http.StatusLocked
	case errors.Is(err, wallet.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, wallet.ErrWrongPassword), errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrDisabled):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// fail writes err with its mapped status. Internal errors are logged and
// not echoed.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := errStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, "internal error", status)
		return
	}
	writeError(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
