package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/atmx/offer-engine/internal/model"
)

// offerRecord is the stored form of an offer: the payload plus the
// registry-managed state. Reads rebuild a fresh *model.Offer from it.
type offerRecord struct {
	payload      model.Payload
	state        model.OfferState
	errorMessage string
}

func recordOf(o *model.Offer) offerRecord {
	return offerRecord{payload: o.Payload(), state: o.State(), errorMessage: o.ErrorMessage()}
}

func (r offerRecord) offer() *model.Offer {
	o := model.NewOffer(r.payload)
	o.SetState(r.state)
	o.SetErrorMessage(r.errorMessage)
	return o
}

type openOfferRecord struct {
	offer        offerRecord
	triggerPrice int64
	state        model.OpenOfferState
}

func (r openOfferRecord) openOffer() *model.OpenOffer {
	return &model.OpenOffer{Offer: r.offer.offer(), TriggerPrice: r.triggerPrice, State: r.state}
}

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu         sync.RWMutex
	offers     map[string]offerRecord
	offerOrder []string
	openOffers map[string]openOfferRecord
	openOrder  []string
	accounts   map[string]model.PaymentAccount
	txs        []model.Transaction
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		offers:     make(map[string]offerRecord),
		openOffers: make(map[string]openOfferRecord),
		accounts:   make(map[string]model.PaymentAccount),
	}
}

func (s *MemoryStore) PutOffer(_ context.Context, o *model.Offer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.offers[o.ID()]; !ok {
		s.offerOrder = append(s.offerOrder, o.ID())
	}
	s.offers[o.ID()] = recordOf(o)
	return nil
}

func (s *MemoryStore) GetOffer(_ context.Context, id string) (*model.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.offers[id]
	if !ok {
		return nil, fmt.Errorf("offer %s: %w", id, ErrNotFound)
	}
	return r.offer(), nil
}

func (s *MemoryStore) ListOffers(_ context.Context) ([]*model.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	offers := make([]*model.Offer, 0, len(s.offerOrder))
	for _, id := range s.offerOrder {
		offers = append(offers, s.offers[id].offer())
	}
	return offers, nil
}

func (s *MemoryStore) DeleteOffer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.offers[id]; !ok {
		return nil
	}
	delete(s.offers, id)
	s.offerOrder = slices.DeleteFunc(s.offerOrder, func(v string) bool { return v == id })
	return nil
}

func (s *MemoryStore) PutOpenOffer(_ context.Context, oo *model.OpenOffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := oo.ID()
	if _, ok := s.openOffers[id]; !ok {
		s.openOrder = append(s.openOrder, id)
	}
	s.openOffers[id] = openOfferRecord{offer: recordOf(oo.Offer), triggerPrice: oo.TriggerPrice, state: oo.State}
	return nil
}

func (s *MemoryStore) GetOpenOffer(_ context.Context, id string) (*model.OpenOffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.openOffers[id]
	if !ok {
		return nil, fmt.Errorf("open offer %s: %w", id, ErrNotFound)
	}
	return r.openOffer(), nil
}

func (s *MemoryStore) ListOpenOffers(_ context.Context) ([]*model.OpenOffer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.OpenOffer, 0, len(s.openOrder))
	for _, id := range s.openOrder {
		out = append(out, s.openOffers[id].openOffer())
	}
	return out, nil
}

func (s *MemoryStore) DeleteOpenOffer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.openOffers[id]; !ok {
		return nil
	}
	delete(s.openOffers, id)
	s.openOrder = slices.DeleteFunc(s.openOrder, func(v string) bool { return v == id })
	return nil
}

func (s *MemoryStore) CreatePaymentAccount(_ context.Context, a *model.PaymentAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[a.ID]; ok {
		return fmt.Errorf("payment account %s: %w", a.ID, ErrDuplicate)
	}
	s.accounts[a.ID] = cloneAccount(*a)
	return nil
}

func (s *MemoryStore) GetPaymentAccount(_ context.Context, id string) (*model.PaymentAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("payment account %s: %w", id, ErrNotFound)
	}
	c := cloneAccount(a)
	return &c, nil
}

func (s *MemoryStore) ListPaymentAccounts(_ context.Context) ([]model.PaymentAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]model.PaymentAccount, 0, len(s.accounts))
	for _, a := range s.accounts {
		accounts = append(accounts, cloneAccount(a))
	}
	slices.SortFunc(accounts, func(a, b model.PaymentAccount) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return accounts, nil
}

func (s *MemoryStore) InsertTransaction(_ context.Context, tx *model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.txs = append(s.txs, *tx)
	return nil
}

// Transactions returns the recorded fee transactions.
func (s *MemoryStore) Transactions() []model.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.txs)
}

func cloneAccount(a model.PaymentAccount) model.PaymentAccount {
	a.TradeCurrencies = slices.Clone(a.TradeCurrencies)
	a.AcceptedCountryCodes = slices.Clone(a.AcceptedCountryCodes)
	a.AcceptedBankIDs = slices.Clone(a.AcceptedBankIDs)
	return a
}
