package domain

import "github.com/shopspring/decimal"

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// BrokerType identifies which regional broker executes an order.
// The pooled ("master") account is resolved per broker type.
type BrokerType string

const (
	BrokerAlpaca  BrokerType = "alpaca"
	BrokerZerodha BrokerType = "zerodha"
	BrokerPaper   BrokerType = "paper"
)

// OrderIntent is a single user's desired trade for one rebalance batch,
// expressed as a portfolio weight change. It is immutable once handed to
// the aggregator and archived after allocation completes.
type OrderIntent struct {
	ID             string          `json:"id"`
	UserID         string          `json:"user_id"`
	InvestmentID   string          `json:"investment_id"`
	Symbol         string          `json:"symbol"`
	WeightChange   decimal.Decimal `json:"weight_change"`   // percent points, signed
	ReferencePrice decimal.Decimal `json:"reference_price"` // must be > 0
	BrokerType     BrokerType      `json:"broker_type"`
}

// StockInfo is the minimal instrument metadata required to aggregate an
// intent. Resolved from the reference-data store by the caller.
type StockInfo struct {
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
	IsActive bool   `json:"is_active"`
}

// Investment is the owning basket position an intent rebalances.
// CurrentValue is the basket's market value in its own currency.
type Investment struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	CurrentValue decimal.Decimal `json:"current_value"`
	Currency     string          `json:"currency"`
}

// StockLookup resolves instrument metadata by symbol. A nil entry means
// the symbol is unknown and the intent cannot be aggregated.
type StockLookup map[string]*StockInfo

// InvestmentLookup resolves the owning investment by ID.
type InvestmentLookup map[string]*Investment
