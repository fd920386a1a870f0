package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExecutionStatus is the per-user order state within one batch.
// All states other than pending are terminal for the batch; submitted may
// later be reconciled to completed or failed by the order monitor.
type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionSubmitted ExecutionStatus = "submitted"
	ExecutionFailed    ExecutionStatus = "failed"
	ExecutionSimulated ExecutionStatus = "simulated" // no quantity change required
)

// ExecutionDetail annotates a per-user order with how it was pooled,
// for traceability back to the bulk broker order.
type ExecutionDetail struct {
	AggregateKey     string          `json:"aggregated_order_key"`
	UserQuantity     decimal.Decimal `json:"user_quantity"`
	UserProportion   decimal.Decimal `json:"user_proportion"`
	TotalQuantity    decimal.Decimal `json:"total_aggregated_quantity"`
	BrokerOrderID    string          `json:"broker_order_id"`
	WeightedAvgPrice decimal.Decimal `json:"weighted_avg_price"`
}

// ExecutionOrder tracks one user's originally requested order and its
// terminal status. It is created when an intent is accepted into a batch
// and mutated only by the allocator.
type ExecutionOrder struct {
	ID           string           `json:"id"`
	BatchID      string           `json:"batch_id"`
	IntentID     string           `json:"intent_id"`
	UserID       string           `json:"user_id"`
	InvestmentID string           `json:"investment_id"`
	Symbol       string           `json:"symbol"`
	Side         Side             `json:"side"`
	Status       ExecutionStatus  `json:"status"`
	StatusReason string           `json:"status_reason,omitempty"`
	Detail       *ExecutionDetail `json:"detail,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Transaction is the ledger row written for one user when a completed
// aggregate is allocated. Exactly one per user per completed aggregate.
type Transaction struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	InvestmentID    string          `json:"investment_id"`
	Symbol          string          `json:"symbol"`
	Type            Side            `json:"type"`
	Quantity        decimal.Decimal `json:"quantity"`
	Price           decimal.Decimal `json:"price"` // the aggregate's weighted average
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Fees            decimal.Decimal `json:"fees"` // fee model lives outside this core
	ExternalOrderID string          `json:"external_order_id"`
	CreatedAt       time.Time       `json:"created_at"`
}
