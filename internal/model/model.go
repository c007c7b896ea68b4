// Package model defines the core domain types shared across the offer engine.
// Prices are integers scaled by a currency-dependent power of ten; margins,
// deposits and fee rates use shopspring/decimal. Never float64 for money.
package model

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/atmx/offer-engine/internal/currency"
)

// Version is the application version offer ids are suffixed with.
const Version = "1.7.0"

// ProtocolVersion is stamped on every payload this node creates.
const ProtocolVersion = 4

// ErrUnknownDirection is returned when a direction name is neither BUY nor SELL.
var ErrUnknownDirection = errors.New("model: unknown direction")

// Direction is the maker's trading action.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// ParseDirection is case-insensitive.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(Buy):
		return Buy, nil
	case string(Sell):
		return Sell, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}

// OfferState is the registry-managed lifecycle state of an offer.
type OfferState string

const (
	OfferUnknown      OfferState = "UNKNOWN"
	OfferFeePaid      OfferState = "OFFER_FEE_PAID"
	OfferAvailable    OfferState = "AVAILABLE"
	OfferNotAvailable OfferState = "NOT_AVAILABLE"
	OfferRemoved      OfferState = "REMOVED"
	OfferMakerOffline OfferState = "MAKER_OFFLINE"
)

// OpenOfferState is the local activation state of an open offer.
type OpenOfferState string

const (
	OpenOfferAvailable   OpenOfferState = "AVAILABLE"
	OpenOfferReserved    OpenOfferState = "RESERVED"
	OpenOfferClosed      OpenOfferState = "CLOSED"
	OpenOfferCanceled    OpenOfferState = "CANCELED"
	OpenOfferDeactivated OpenOfferState = "DEACTIVATED"
)

// Payload is the network-visible, immutable part of an offer.
// Schema mirrors the offers table in store/migrations/001_offers.sql.
type Payload struct {
	ID                    string          `json:"id"`
	Date                  time.Time       `json:"date"`
	OwnerFingerprint      string          `json:"owner_fingerprint"`
	Direction             Direction       `json:"direction"`
	BaseCurrencyCode      string          `json:"base_currency_code"`
	CounterCurrencyCode   string          `json:"counter_currency_code"`
	Price                 int64           `json:"price"` // scaled, 0 for market-based offers without a fixed price
	UseMarketBasedPrice   bool            `json:"use_market_based_price"`
	MarketPriceMargin     decimal.Decimal `json:"market_price_margin"` // fraction, 0.05 = 5%
	Amount                int64           `json:"amount"`              // satoshi
	MinAmount             int64           `json:"min_amount"`          // satoshi
	PaymentMethodID       string          `json:"payment_method_id"`
	MakerPaymentAccountID string          `json:"maker_payment_account_id"`
	CountryCode           string          `json:"country_code,omitempty"`
	AcceptedCountryCodes  []string        `json:"accepted_country_codes,omitempty"`
	BankID                string          `json:"bank_id,omitempty"`
	AcceptedBankIDs       []string        `json:"accepted_bank_ids,omitempty"`
	BuyerSecurityDeposit  int64           `json:"buyer_security_deposit"`
	SellerSecurityDeposit int64           `json:"seller_security_deposit"`
	MakerFee              int64           `json:"maker_fee"`
	MakerFeeCurrencyCode  string          `json:"maker_fee_currency_code"`
	ProtocolVersion       int             `json:"protocol_version"`
}

// CurrencyCode is the non-BTC side of the pair, the code prices are quoted in.
func (p Payload) CurrencyCode() string {
	if p.BaseCurrencyCode == currency.BTC {
		return p.CounterCurrencyCode
	}
	return p.BaseCurrencyCode
}

// Clone returns a deep copy; the restriction slices are not shared.
func (p Payload) Clone() Payload {
	c := p
	c.AcceptedCountryCodes = slices.Clone(p.AcceptedCountryCodes)
	c.AcceptedBankIDs = slices.Clone(p.AcceptedBankIDs)
	return c
}

// MutableOfferPayloadFields is the whitelist of payload fields an edit may
// change, together with the fields that are copied from the original.
type MutableOfferPayloadFields struct {
	Price                 int64
	MarketPriceMargin     decimal.Decimal
	UseMarketBasedPrice   bool
	BaseCurrencyCode      string
	CounterCurrencyCode   string
	PaymentMethodID       string
	MakerPaymentAccountID string
	CountryCode           string
	AcceptedCountryCodes  []string
	BankID                string
	AcceptedBankIDs       []string
}

func (f MutableOfferPayloadFields) String() string {
	return fmt.Sprintf("MutableOfferPayloadFields{price=%d, marketPriceMargin=%s, useMarketBasedPrice=%t, "+
		"baseCurrencyCode=%s, counterCurrencyCode=%s, paymentMethodId=%s, makerPaymentAccountId=%s, "+
		"countryCode=%s, acceptedCountryCodes=%v, bankId=%s, acceptedBankIds=%v}",
		f.Price, f.MarketPriceMargin.String(), f.UseMarketBasedPrice,
		f.BaseCurrencyCode, f.CounterCurrencyCode, f.PaymentMethodID, f.MakerPaymentAccountID,
		f.CountryCode, f.AcceptedCountryCodes, f.BankID, f.AcceptedBankIDs)
}

// PaymentAccount is a local payment account offers are funded against.
type PaymentAccount struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	PaymentMethodID      string    `json:"payment_method_id"`
	TradeCurrencies      []string  `json:"trade_currencies"`
	CountryCode          string    `json:"country_code,omitempty"`
	AcceptedCountryCodes []string  `json:"accepted_country_codes,omitempty"`
	BankID               string    `json:"bank_id,omitempty"`
	AcceptedBankIDs      []string  `json:"accepted_bank_ids,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
}

// TradesCurrency reports whether the account can settle in code.
func (a *PaymentAccount) TradesCurrency(code string) bool {
	for _, c := range a.TradeCurrencies {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}

// Transaction is the maker fee transaction produced when an offer is placed.
type Transaction struct {
	ID        string    `json:"id"`
	OfferID   string    `json:"offer_id"`
	Fee       int64     `json:"fee"`
	CreatedAt time.Time `json:"created_at"`
}

// OfferParams is everything the registry needs to construct a new offer.
type OfferParams struct {
	ID                   string
	Direction            Direction
	CurrencyCode         string
	Amount               int64
	MinAmount            int64
	Price                int64
	UseMarketBasedPrice  bool
	MarketPriceMargin    decimal.Decimal // fraction
	BuyerSecurityDeposit decimal.Decimal // fraction of amount
	MakerFeeCurrencyCode string
	Account              *PaymentAccount
}
