package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/atmx/offer-engine/internal/currency"
	"github.com/atmx/offer-engine/internal/model"
	"github.com/atmx/offer-engine/internal/price"
)

// CreatePaymentAccountRequest is the JSON body for POST /payment-accounts.
type CreatePaymentAccountRequest struct {
	Name                 string   `json:"name"`
	PaymentMethodID      string   `json:"payment_method_id"`
	TradeCurrencies      []string `json:"trade_currencies"`
	CountryCode          string   `json:"country_code,omitempty"`
	AcceptedCountryCodes []string `json:"accepted_country_codes,omitempty"`
	BankID               string   `json:"bank_id,omitempty"`
	AcceptedBankIDs      []string `json:"accepted_bank_ids,omitempty"`
}

// UnlockWalletRequest is the JSON body for POST /wallet/unlock. A zero
// timeout keeps the wallet open until locked.
type UnlockWalletRequest struct {
	Password       string `json:"password"`
	TimeoutSeconds int64  `json:"timeout_seconds"`
}

// UpdatePriceRequest is the JSON body for PUT /prices/{currency}.
type UpdatePriceRequest struct {
	Price string `json:"price"`
}

// TokenRequest is the JSON body for POST /auth/token.
type TokenRequest struct {
	Password string `json:"password"`
}

// TokenResponse carries a bearer token.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ListPaymentAccounts handles GET /payment-accounts
func (h *Handler) ListPaymentAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.ListPaymentAccounts(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	if accounts == nil {
		accounts = []model.PaymentAccount{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

// CreatePaymentAccount handles POST /payment-accounts
func (h *Handler) CreatePaymentAccount(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	// --- Input validation ---
	method := strings.ToUpper(strings.TrimSpace(req.PaymentMethodID))
	if method == "" {
		writeError(w, "payment_method_id is required", http.StatusBadRequest)
		return
	}
	if len(req.TradeCurrencies) == 0 {
		writeError(w, "trade_currencies must not be empty", http.StatusBadRequest)
		return
	}
	codes := make([]string, 0, len(req.TradeCurrencies))
	for _, c := range req.TradeCurrencies {
		code, err := currency.Normalize(c)
		if err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		codes = append(codes, code)
	}

	acct := &model.PaymentAccount{
		ID:                   uuid.New().String(),
		Name:                 strings.TrimSpace(req.Name),
		PaymentMethodID:      method,
		TradeCurrencies:      codes,
		CountryCode:          strings.ToUpper(req.CountryCode),
		AcceptedCountryCodes: req.AcceptedCountryCodes,
		BankID:               req.BankID,
		AcceptedBankIDs:      req.AcceptedBankIDs,
		CreatedAt:            time.Now().UTC(),
	}
	if err := h.accounts.CreatePaymentAccount(r.Context(), acct); err != nil {
		fail(w, r, err)
		return
	}

	slog.Info("payment account created", "account_id", acct.ID, "method", method, "currencies", codes)
	writeJSON(w, http.StatusCreated, acct)
}

// UnlockWallet handles POST /wallet/unlock
func (h *Handler) UnlockWallet(w http.ResponseWriter, r *http.Request) {
	var req UnlockWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.TimeoutSeconds < 0 {
		writeError(w, "timeout_seconds cannot be negative", http.StatusBadRequest)
		return
	}
	if err := h.wallet.Unlock(req.Password, time.Duration(req.TimeoutSeconds)*time.Second); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LockWallet handles POST /wallet/lock
func (h *Handler) LockWallet(w http.ResponseWriter, r *http.Request) {
	h.wallet.Lock()
	w.WriteHeader(http.StatusNoContent)
}

// UpdatePrice handles PUT /prices/{currency}
func (h *Handler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	code, err := currency.Normalize(chi.URLParam(r, "currency"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req UpdatePriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	scaled, err := price.ToScaledInteger(req.Price, code)
	if err != nil || scaled <= 0 {
		writeError(w, "price must be a positive decimal", http.StatusBadRequest)
		return
	}
	h.prices.UpdatePrice(code, scaled)
	writeJSON(w, http.StatusOK, map[string]string{
		"currency": code,
		"price":    price.FromScaledInteger(scaled, code),
	})
}

// IssueToken handles POST /auth/token
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	token, expires, err := h.auth.Issue("api", req.Password)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: token, ExpiresAt: expires})
}
