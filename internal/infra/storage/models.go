package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/domain"
)

// Quantities and prices are persisted as strings so the decimal values
// round-trip exactly; SQLite floats would silently lose precision.

// AggregatedOrderRow is the persisted record of one pooled bulk order.
type AggregatedOrderRow struct {
	ID               uint   `gorm:"column:id;primaryKey"`
	Symbol           string `gorm:"column:symbol;index:idx_agg_key"`
	Side             string `gorm:"column:side;index:idx_agg_key"`
	BrokerType       string `gorm:"column:broker_type;index:idx_agg_key"`
	TotalQuantity    string `gorm:"column:total_quantity"`
	WeightedAvgPrice string `gorm:"column:weighted_avg_price"`
	BrokerOrderID    string `gorm:"column:broker_order_id;index"`
	Status           string `gorm:"column:status;index"`
	FailureReason    string `gorm:"column:failure_reason"`
	IntentCount      int    `gorm:"column:intent_count"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (AggregatedOrderRow) TableName() string {
	return "aggregated_orders"
}

// ExecutionOrderRow is one user's order-status record for a batch.
type ExecutionOrderRow struct {
	ID           string `gorm:"column:id;primaryKey"`
	BatchID      string `gorm:"column:batch_id;index"`
	IntentID     string `gorm:"column:intent_id;uniqueIndex"`
	UserID       string `gorm:"column:user_id;index"`
	InvestmentID string `gorm:"column:investment_id"`
	Symbol       string `gorm:"column:symbol"`
	Side         string `gorm:"column:side"`
	Status       string `gorm:"column:status;index"`
	StatusReason string `gorm:"column:status_reason"`
	Detail       string `gorm:"column:detail"` // JSON annotation for traceability
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (ExecutionOrderRow) TableName() string {
	return "execution_orders"
}

// TransactionRow is one user's ledger entry from a completed aggregate.
type TransactionRow struct {
	ID              string `gorm:"column:id;primaryKey"`
	UserID          string `gorm:"column:user_id;index"`
	InvestmentID    string `gorm:"column:investment_id;index"`
	Symbol          string `gorm:"column:symbol"`
	Type            string `gorm:"column:type"`
	Quantity        string `gorm:"column:quantity"`
	Price           string `gorm:"column:price"`
	TotalAmount     string `gorm:"column:total_amount"`
	Fees            string `gorm:"column:fees"`
	ExternalOrderID string `gorm:"column:external_order_id;index"`
	CreatedAt       time.Time
}

func (TransactionRow) TableName() string {
	return "transactions"
}

func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func toTransaction(row *TransactionRow) *domain.Transaction {
	return &domain.Transaction{
		ID:              row.ID,
		UserID:          row.UserID,
		InvestmentID:    row.InvestmentID,
		Symbol:          row.Symbol,
		Type:            domain.Side(row.Type),
		Quantity:        parseDecimal(row.Quantity),
		Price:           parseDecimal(row.Price),
		TotalAmount:     parseDecimal(row.TotalAmount),
		Fees:            parseDecimal(row.Fees),
		ExternalOrderID: row.ExternalOrderID,
		CreatedAt:       row.CreatedAt,
	}
}
