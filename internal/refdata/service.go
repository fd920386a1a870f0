package refdata

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/domain"
)

// Service manages the reference data a batch run resolves against:
// instrument metadata, owning investments, and current reference prices.
type Service struct {
	mu          sync.RWMutex
	stocks      map[string]*domain.StockInfo
	investments map[string]*domain.Investment
	prices      map[string]decimal.Decimal
}

// NewService creates an empty reference data service.
func NewService() *Service {
	return &Service{
		stocks:      make(map[string]*domain.StockInfo),
		investments: make(map[string]*domain.Investment),
		prices:      make(map[string]decimal.Decimal),
	}
}

// UpsertStock adds or replaces instrument metadata.
func (s *Service) UpsertStock(stock *domain.StockInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stocks[stock.Symbol] = stock
}

// UpsertInvestment adds or replaces an investment.
func (s *Service) UpsertInvestment(inv *domain.Investment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.investments[inv.ID] = inv
}

// UpdatePrice records the latest reference price for a symbol.
func (s *Service) UpdatePrice(symbol string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[symbol] = price
}

// Price returns the latest reference price for a symbol, or zero when
// none has been recorded.
func (s *Service) Price(symbol string) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prices[symbol]
}

// Stock returns instrument metadata for a symbol, or nil when unknown.
func (s *Service) Stock(symbol string) *domain.StockInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stocks[symbol]
}

// Snapshot returns point-in-time lookup maps for one batch run. The
// aggregator resolves against a fixed snapshot so concurrent reference
// data updates cannot split a batch across two views.
func (s *Service) Snapshot() (domain.StockLookup, domain.InvestmentLookup) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stocks := make(domain.StockLookup, len(s.stocks))
	for symbol, stock := range s.stocks {
		stocks[symbol] = stock
	}
	investments := make(domain.InvestmentLookup, len(s.investments))
	for id, inv := range s.investments {
		investments[id] = inv
	}
	return stocks, investments
}

// FillPrices sets each intent's reference price from the recorded price
// when the intent carries none. Intents whose symbol has no price are
// returned untouched; the aggregator will fail them during resolution.
func (s *Service) FillPrices(intents []domain.OrderIntent) []domain.OrderIntent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.OrderIntent, len(intents))
	for i, intent := range intents {
		if !intent.ReferencePrice.IsPositive() {
			if price, ok := s.prices[intent.Symbol]; ok {
				intent.ReferencePrice = price
			}
		}
		out[i] = intent
	}
	return out
}
