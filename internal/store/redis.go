package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atmx/offer-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) PutOffer(ctx context.Context, o *model.Offer) error {
	if err := s.primary.PutOffer(ctx, o); err != nil {
		return err
	}
	s.rdb.Del(ctx, offerKey(o.ID()), bookKey)
	return nil
}

func (s *CachedStore) DeleteOffer(ctx context.Context, id string) error {
	if err := s.primary.DeleteOffer(ctx, id); err != nil {
		return err
	}
	s.rdb.Del(ctx, offerKey(id), bookKey)
	return nil
}

func (s *CachedStore) PutOpenOffer(ctx context.Context, oo *model.OpenOffer) error {
	if err := s.primary.PutOpenOffer(ctx, oo); err != nil {
		return err
	}
	s.rdb.Del(ctx, openOfferKey(oo.ID()))
	return nil
}

func (s *CachedStore) DeleteOpenOffer(ctx context.Context, id string) error {
	if err := s.primary.DeleteOpenOffer(ctx, id); err != nil {
		return err
	}
	s.rdb.Del(ctx, openOfferKey(id))
	return nil
}

func (s *CachedStore) CreatePaymentAccount(ctx context.Context, a *model.PaymentAccount) error {
	if err := s.primary.CreatePaymentAccount(ctx, a); err != nil {
		return err
	}
	s.cache(ctx, accountKey(a.ID), a)
	return nil
}

func (s *CachedStore) InsertTransaction(ctx context.Context, tx *model.Transaction) error {
	return s.primary.InsertTransaction(ctx, tx)
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetOffer(ctx context.Context, id string) (*model.Offer, error) {
	if data, err := s.rdb.Get(ctx, offerKey(id)).Bytes(); err == nil {
		o := &model.Offer{}
		if json.Unmarshal(data, o) == nil {
			return o, nil
		}
	}

	o, err := s.primary.GetOffer(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache(ctx, offerKey(id), o)
	return o, nil
}

// ListOffers caches the whole book; any offer write drops it.
func (s *CachedStore) ListOffers(ctx context.Context) ([]*model.Offer, error) {
	if data, err := s.rdb.Get(ctx, bookKey).Bytes(); err == nil {
		var offers []*model.Offer
		if json.Unmarshal(data, &offers) == nil {
			return offers, nil
		}
	}

	offers, err := s.primary.ListOffers(ctx)
	if err != nil {
		return nil, err
	}
	s.cache(ctx, bookKey, offers)
	return offers, nil
}

func (s *CachedStore) GetOpenOffer(ctx context.Context, id string) (*model.OpenOffer, error) {
	if data, err := s.rdb.Get(ctx, openOfferKey(id)).Bytes(); err == nil {
		var oo model.OpenOffer
		if json.Unmarshal(data, &oo) == nil && oo.Offer != nil {
			return &oo, nil
		}
	}

	oo, err := s.primary.GetOpenOffer(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache(ctx, openOfferKey(id), oo)
	return oo, nil
}

func (s *CachedStore) GetPaymentAccount(ctx context.Context, id string) (*model.PaymentAccount, error) {
	if data, err := s.rdb.Get(ctx, accountKey(id)).Bytes(); err == nil {
		var a model.PaymentAccount
		if json.Unmarshal(data, &a) == nil {
			return &a, nil
		}
	}

	a, err := s.primary.GetPaymentAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache(ctx, accountKey(id), a)
	return a, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListOpenOffers(ctx context.Context) ([]*model.OpenOffer, error) {
	return s.primary.ListOpenOffers(ctx)
}

func (s *CachedStore) ListPaymentAccounts(ctx context.Context) ([]model.PaymentAccount, error) {
	return s.primary.ListPaymentAccounts(ctx)
}

// --- Cache helpers ---

func (s *CachedStore) cache(ctx context.Context, key string, v any) {
	if data, err := json.Marshal(v); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
}

const bookKey = "offers:book"

func offerKey(id string) string     { return fmt.Sprintf("offer:%s", id) }
func openOfferKey(id string) string { return fmt.Sprintf("open_offer:%s", id) }
func accountKey(id string) string   { return fmt.Sprintf("payment_account:%s", id) }
