// Package pricefeed keeps the latest market price per currency for pricing
// market-based offers.
package pricefeed

import (
	"strings"
	"sync"
	"time"
)

type quote struct {
	price     int64
	updatedAt time.Time
}

// Service is an in-memory price feed. Prices are scaled integers in the
// currency's precision. A zero maxAge keeps quotes forever.
type Service struct {
	mu           sync.RWMutex
	quotes       map[string]quote
	currencyCode string
	maxAge       time.Duration
	now          func() time.Time
}

// NewService creates an empty feed.
func NewService(maxAge time.Duration) *Service {
	return &Service{
		quotes: make(map[string]quote),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// UpdatePrice records a market price for code.
func (s *Service) UpdatePrice(code string, scaled int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[strings.ToUpper(code)] = quote{price: scaled, updatedAt: s.now()}
}

// MarketPrice returns the latest non-stale price for code.
func (s *Service) MarketPrice(code string) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[strings.ToUpper(code)]
	if !ok {
		return 0, false
	}
	if s.maxAge > 0 && s.now().Sub(q.updatedAt) > s.maxAge {
		return 0, false
	}
	return q.price, true
}

// SetCurrencyCode selects the currency the feed is focused on.
func (s *Service) SetCurrencyCode(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currencyCode = strings.ToUpper(code)
}

// CurrencyCode is the currently selected currency.
func (s *Service) CurrencyCode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currencyCode
}
