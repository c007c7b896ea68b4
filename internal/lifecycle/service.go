// Package lifecycle is the offer lifecycle and query facade: it looks up
// and lists offers, creates and places new ones, edits open offers in two
// phases and cancels them. It holds no state of its own; the registry owns
// every offer.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atmx/offer-engine/internal/currency"
	"github.com/atmx/offer-engine/internal/filter"
	"github.com/atmx/offer-engine/internal/metrics"
	"github.com/atmx/offer-engine/internal/model"
	"github.com/atmx/offer-engine/internal/offer"
	"github.com/atmx/offer-engine/internal/price"
	"github.com/atmx/offer-engine/internal/store"
	"github.com/atmx/offer-engine/internal/wallet"
)

var hundred = decimal.NewFromInt(100)

// Service implements the offer operations over its Deps.
type Service struct {
	registry    Registry
	wallet      WalletGate
	accounts    PaymentAccountStore
	compat      OfferCompatibility
	takeability Takeability
	identity    IdentityContext
	priceFeed   PriceFeed
	newID       func() string
}

// NewService creates a Service.
func NewService(deps Deps) *Service {
	newID := deps.NewID
	if newID == nil {
		newID = NewOfferID
	}
	return &Service{
		registry:    deps.Registry,
		wallet:      deps.Wallet,
		accounts:    deps.Accounts,
		compat:      deps.Compatibility,
		takeability: deps.Takeability,
		identity:    deps.Identity,
		priceFeed:   deps.PriceFeed,
		newID:       newID,
	}
}

// NewOfferID returns a random letter prefix, a UUID and the compact
// application version joined by dashes.
func NewOfferID() string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	prefix := make([]byte, 5+rand.Intn(4))
	for i := range prefix {
		prefix[i] = letters[rand.Intn(len(letters))]
	}
	return fmt.Sprintf("%s-%s-%s", prefix, uuid.NewString(), strings.ReplaceAll(model.Version, ".", ""))
}

// CreateOfferRequest is a new offer as submitted by a caller.
type CreateOfferRequest struct {
	CurrencyCode         string
	Direction            string
	Price                string // decimal; ignored when blank and market-based
	UseMarketBasedPrice  bool
	MarketPriceMargin    decimal.Decimal // percent: 1.5 = 1.5%
	Amount               int64           // satoshi
	MinAmount            int64           // satoshi
	BuyerSecurityDeposit decimal.Decimal // percent of amount
	TriggerPrice         int64           // scaled, 0 = none
	PaymentAccountID     string
	MakerFeeCurrencyCode string // BTC or BSQ, blank = BTC
}

// --- Queries ---

// GetOffer returns the one offer in the book with id that the local user
// did not make and can take.
func (s *Service) GetOffer(ctx context.Context, id string) (*model.Offer, error) {
	metrics.OfferQueries.WithLabelValues("get_offer").Inc()
	offers, err := s.registry.Offers(ctx)
	if err != nil {
		return nil, fmt.Errorf("offer book snapshot: %w", err)
	}

	fingerprint := s.identity.Fingerprint()
	isAPICaller := s.identity.IsAPICaller(ctx)
	var matches []*model.Offer
	var rejected filter.Reason
	for _, o := range offers {
		if o.ID() != id || offer.IsMine(o, fingerprint) {
			continue
		}
		r := s.takeability.CanTakeOffer(ctx, o, isAPICaller)
		if !r.IsValid() {
			rejected = r.Reason
			continue
		}
		matches = append(matches, o)
	}

	if len(matches) != 1 {
		if rejected != "" && len(matches) == 0 {
			return nil, s.reject("get_offer", fmt.Errorf("%w: offer with id '%s' not found: cannot take offer: %s",
				offer.ErrNotFound, id, rejected))
		}
		return nil, s.reject("get_offer", fmt.Errorf("%w: offer with id '%s' not found", offer.ErrNotFound, id))
	}
	return matches[0], nil
}

// GetMyOffer returns the local user's open offer with id from the open
// offer snapshot.
func (s *Service) GetMyOffer(ctx context.Context, id string) (*model.OpenOffer, error) {
	metrics.OfferQueries.WithLabelValues("get_my_offer").Inc()
	open, err := s.registry.OpenOffers(ctx)
	if err != nil {
		return nil, fmt.Errorf("open offer snapshot: %w", err)
	}
	fingerprint := s.identity.Fingerprint()
	for _, oo := range open {
		if oo.ID() == id && offer.IsMine(oo.Offer, fingerprint) {
			return oo, nil
		}
	}
	return nil, s.reject("get_my_offer", fmt.Errorf("%w: offer with id '%s' not found", offer.ErrNotFound, id))
}

// GetMyOpenOffer looks the open offer up directly in the registry.
func (s *Service) GetMyOpenOffer(ctx context.Context, id string) (*model.OpenOffer, error) {
	metrics.OfferQueries.WithLabelValues("get_my_open_offer").Inc()
	oo, found, err := s.registry.OpenOffer(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("open offer lookup %s: %w", id, err)
	}
	if !found || !offer.IsMine(oo.Offer, s.identity.Fingerprint()) {
		return nil, s.reject("get_my_open_offer", fmt.Errorf("%w: openoffer with id '%s' not found", offer.ErrNotFound, id))
	}
	return oo, nil
}

// ListOffers returns the takeable offers of other users for direction and
// currency, BUY with the lowest price first, SELL with the highest first.
func (s *Service) ListOffers(ctx context.Context, direction, currencyCode string) ([]*model.Offer, error) {
	metrics.OfferQueries.WithLabelValues("list_offers").Inc()
	if _, err := model.ParseDirection(direction); err != nil {
		return nil, s.reject("list_offers", fmt.Errorf("%w: %v", offer.ErrInvalidArgument, err))
	}
	offers, err := s.registry.Offers(ctx)
	if err != nil {
		return nil, fmt.Errorf("offer book snapshot: %w", err)
	}

	fingerprint := s.identity.Fingerprint()
	isAPICaller := s.identity.IsAPICaller(ctx)
	out := make([]*model.Offer, 0, len(offers))
	for _, o := range offers {
		if offer.IsMine(o, fingerprint) || !offer.MatchesDirectionAndCurrency(o, direction, currencyCode) {
			continue
		}
		if !s.takeability.CanTakeOffer(ctx, o, isAPICaller).IsValid() {
			continue
		}
		out = append(out, o)
	}
	offer.SortOffers(out, direction)
	return out, nil
}

// ListMyOffers returns the local user's open offers for direction and
// currency, sorted like ListOffers. Takeability is not checked.
func (s *Service) ListMyOffers(ctx context.Context, direction, currencyCode string) ([]*model.OpenOffer, error) {
	metrics.OfferQueries.WithLabelValues("list_my_offers").Inc()
	if _, err := model.ParseDirection(direction); err != nil {
		return nil, s.reject("list_my_offers", fmt.Errorf("%w: %v", offer.ErrInvalidArgument, err))
	}
	open, err := s.registry.OpenOffers(ctx)
	if err != nil {
		return nil, fmt.Errorf("open offer snapshot: %w", err)
	}

	fingerprint := s.identity.Fingerprint()
	out := make([]*model.OpenOffer, 0, len(open))
	for _, oo := range open {
		if offer.IsMine(oo.Offer, fingerprint) && offer.MatchesDirectionAndCurrency(oo.Offer, direction, currencyCode) {
			out = append(out, oo)
		}
	}
	offer.SortOpenOffers(out, direction)
	return out, nil
}

// --- Commands ---

// CreateAndPlace validates req, creates the offer and places it. The
// returned completion resolves when placing finishes; onPlaced, if set,
// runs first with the placed offer. Precondition failures are returned
// directly and no registry command is issued.
func (s *Service) CreateAndPlace(ctx context.Context, req CreateOfferRequest, onPlaced func(*model.Offer)) (*Completion, error) {
	const op = "create_and_place"
	if err := s.wallet.VerifyAvailable(ctx); err != nil {
		return nil, s.reject(op, err)
	}
	if err := s.wallet.VerifyUnlocked(ctx); err != nil {
		return nil, s.reject(op, err)
	}

	account, err := s.accounts.GetPaymentAccount(ctx, req.PaymentAccountID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, s.reject(op, fmt.Errorf("%w: payment account with id '%s' not found",
			offer.ErrInvalidArgument, req.PaymentAccountID))
	}
	if err != nil {
		return nil, fmt.Errorf("payment account lookup %s: %w", req.PaymentAccountID, err)
	}

	feeCurrency, err := makerFeeCurrency(req.MakerFeeCurrencyCode)
	if err != nil {
		return nil, s.reject(op, err)
	}

	id := s.newID()
	direction, err := model.ParseDirection(req.Direction)
	if err != nil {
		return nil, s.reject(op, fmt.Errorf("%w: %v", offer.ErrInvalidArgument, err))
	}
	code, err := currency.Normalize(req.CurrencyCode)
	if err != nil {
		return nil, s.reject(op, fmt.Errorf("%w: %v", offer.ErrInvalidArgument, err))
	}
	scaled, err := s.scaledPrice(req, code)
	if err != nil {
		return nil, s.reject(op, err)
	}
	if req.TriggerPrice < 0 {
		return nil, s.reject(op, fmt.Errorf("%w: trigger price %d cannot be negative", offer.ErrInvalidArgument, req.TriggerPrice))
	}
	if req.TriggerPrice != 0 && !req.UseMarketBasedPrice {
		return nil, s.reject(op, fmt.Errorf("%w: cannot set a trigger price on a fixed price offer", offer.ErrInvalidArgument))
	}

	if err := offer.ValidateMarginPercent(req.MarketPriceMargin); err != nil {
		return nil, s.reject(op, err)
	}
	if err := offer.ValidatePercent("buyer security deposit", req.BuyerSecurityDeposit); err != nil {
		return nil, s.reject(op, err)
	}

	deposit := req.BuyerSecurityDeposit.Div(hundred)
	o, err := s.registry.Create(ctx, model.OfferParams{
		ID:                   id,
		Direction:            direction,
		CurrencyCode:         code,
		Amount:               req.Amount,
		MinAmount:            req.MinAmount,
		Price:                scaled,
		UseMarketBasedPrice:  req.UseMarketBasedPrice,
		MarketPriceMargin:    req.MarketPriceMargin.Div(hundred),
		BuyerSecurityDeposit: deposit,
		MakerFeeCurrencyCode: feeCurrency,
		Account:              account,
	})
	if err != nil {
		return nil, s.reject(op, fmt.Errorf("%w: create offer: %v", offer.ErrInvalidArgument, err))
	}

	if !s.compat.IsValidFor(o, account) {
		return nil, s.reject(op, fmt.Errorf("%w: cannot create offer with payment account '%s'. "+
			"the payment account's %s method does not support the offer's %s currency",
			offer.ErrInvalidState, account.ID, account.PaymentMethodID, o.CurrencyCode()))
	}

	done := newCompletion("place")
	s.registry.Place(ctx, o, deposit, req.TriggerPrice, true,
		func(tx model.Transaction) {
			if msg := o.ErrorMessage(); msg != "" {
				done.resolve(fmt.Errorf("%w: %s", offer.ErrInvalidState, msg))
				return
			}
			slog.Info("offer placed", "offer_id", o.ID(), "tx_id", tx.ID, "fee", tx.Fee)
			if onPlaced != nil {
				onPlaced(o)
			}
			done.resolve(nil)
		},
		func(err error) {
			slog.Error("place offer failed", "offer_id", o.ID(), "err", err)
			done.resolve(fmt.Errorf("place offer %s: %w", o.ID(), err))
		})

	if msg := o.ErrorMessage(); msg != "" {
		return nil, s.reject(op, fmt.Errorf("%w: %s", offer.ErrInvalidState, msg))
	}
	return done, nil
}

// Edit changes an open offer in two phases. Start takes the offer out of
// circulation; Publish is issued only after Start succeeds and stores the
// edited offer with its new trigger price and activation state.
func (s *Service) Edit(ctx context.Context, id string, req offer.EditRequest) (*EditResult, error) {
	const op = "edit"
	oo, err := s.GetMyOpenOffer(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := offer.ValidateEdit(oo, req); err != nil {
		return nil, s.reject(op, err)
	}
	slog.Info("edit offer params valid", "offer_id", id, "request", req.String())

	state := req.Activation.ResolveState(oo.State)
	payload, err := offer.MergePayload(oo, req)
	if err != nil {
		return nil, s.reject(op, err)
	}
	trigger := offer.ResolveTriggerPrice(oo, req)

	edited := model.NewOffer(payload)
	s.priceFeed.SetCurrencyCode(oo.Offer.CurrencyCode())
	edited.SetPriceFeed(s.priceFeed)
	edited.SetState(model.OfferAvailable)

	res := &EditResult{Start: newCompletion("edit_start"), Publish: newCompletion("edit_publish")}
	cmdCtx := context.WithoutCancel(ctx)
	var publishOnce sync.Once
	s.registry.EditStart(ctx, oo,
		func() {
			res.Start.resolve(nil)
			publishOnce.Do(func() {
				s.registry.EditPublish(cmdCtx, edited, trigger, state,
					func() {
						slog.Info("edited offer published", "offer_id", id, "state", state, "trigger_price", trigger)
						res.Publish.resolve(nil)
					},
					func(err error) {
						slog.Error("edit publish failed", "offer_id", id, "err", err)
						res.Publish.resolve(fmt.Errorf("edit publish %s: %w", id, err))
					})
			})
		},
		func(err error) {
			slog.Error("edit start failed", "offer_id", id, "err", err)
			res.Start.resolve(fmt.Errorf("edit start %s: %w", id, err))
			res.Publish.resolve(fmt.Errorf("%w: %w", ErrPublishSkipped, err))
		})
	return res, nil
}

// Cancel removes one of the local user's open offers.
func (s *Service) Cancel(ctx context.Context, id string) (*Completion, error) {
	oo, err := s.GetMyOffer(ctx, id)
	if err != nil {
		return nil, err
	}
	done := newCompletion("remove")
	s.registry.Remove(ctx, oo.Offer,
		func() {
			slog.Info("offer canceled", "offer_id", id)
			done.resolve(nil)
		},
		func(err error) {
			slog.Error("cancel offer failed", "offer_id", id, "err", err)
			done.resolve(fmt.Errorf("remove offer %s: %w", id, err))
		})
	return done, nil
}

// scaledPrice is 0 for a market-based offer without a price string.
func (s *Service) scaledPrice(req CreateOfferRequest, code string) (int64, error) {
	if req.UseMarketBasedPrice && strings.TrimSpace(req.Price) == "" {
		return 0, nil
	}
	scaled, err := price.ToScaledInteger(req.Price, code)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", offer.ErrInvalidArgument, err)
	}
	if !req.UseMarketBasedPrice && scaled <= 0 {
		return 0, fmt.Errorf("%w: price must be positive, got %q", offer.ErrInvalidArgument, req.Price)
	}
	return scaled, nil
}

func makerFeeCurrency(code string) (string, error) {
	switch c := strings.ToUpper(strings.TrimSpace(code)); c {
	case "":
		return currency.BTC, nil
	case currency.BTC, "BSQ":
		return c, nil
	default:
		return "", fmt.Errorf("%w: maker fee currency must be BTC or BSQ, got %q", offer.ErrInvalidArgument, code)
	}
}

// reject counts a precondition failure and returns err unchanged.
func (s *Service) reject(operation string, err error) error {
	metrics.OfferRejections.WithLabelValues(operation, errorKind(err)).Inc()
	return err
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, offer.ErrNotFound):
		return "not_found"
	case errors.Is(err, offer.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, offer.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, wallet.ErrUnavailable), errors.Is(err, wallet.ErrLocked):
		return "wallet"
	default:
		return "other"
	}
}
