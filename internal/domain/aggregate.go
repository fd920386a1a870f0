package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// QuantityPlaces is the fixed scale for computed order quantities.
// Rounding (half-up) happens exactly once, in the aggregator; downstream
// code never re-rounds.
const QuantityPlaces = 4

// AggregateStatus is the lifecycle state of one pooled broker order.
type AggregateStatus string

const (
	AggregatePending   AggregateStatus = "pending"
	AggregateCompleted AggregateStatus = "completed" // broker filled the bulk order
	AggregateSubmitted AggregateStatus = "submitted" // accepted, not yet filled
	AggregateRejected  AggregateStatus = "rejected"
)

// Terminal reports whether the aggregate reached a state the allocator
// may act on.
func (s AggregateStatus) Terminal() bool {
	return s == AggregateCompleted || s == AggregateSubmitted || s == AggregateRejected
}

// AggregateKey groups intents that share one pooled broker order.
type AggregateKey struct {
	Symbol     string
	Side       Side
	BrokerType BrokerType
}

func (k AggregateKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.Symbol, k.Side, k.BrokerType)
}

// ContributingIntent is one intent folded into an aggregate, with its
// computed quantity and the per-user execution order it maps back to.
type ContributingIntent struct {
	Intent   OrderIntent
	Quantity decimal.Decimal
	Order    *ExecutionOrder
}

// AggregatedOrder is one pooled bulk order representing many intents for
// the same (symbol, side, broker type) within a batch.
type AggregatedOrder struct {
	Symbol           string
	Side             Side
	BrokerType       BrokerType
	TotalQuantity    decimal.Decimal
	WeightedAvgPrice decimal.Decimal
	Intents          []ContributingIntent
	BrokerOrderID    string
	Status           AggregateStatus
	FailureReason    string
	CreatedAt        time.Time
}

// NewAggregatedOrder creates an empty aggregate for one grouping key.
func NewAggregatedOrder(key AggregateKey) *AggregatedOrder {
	return &AggregatedOrder{
		Symbol:           key.Symbol,
		Side:             key.Side,
		BrokerType:       key.BrokerType,
		TotalQuantity:    decimal.Zero,
		WeightedAvgPrice: decimal.Zero,
		Status:           AggregatePending,
		CreatedAt:        time.Now().UTC(),
	}
}

// Key returns the grouping key of the aggregate.
func (a *AggregatedOrder) Key() AggregateKey {
	return AggregateKey{Symbol: a.Symbol, Side: a.Side, BrokerType: a.BrokerType}
}

// Fold adds one contributing intent, maintaining the running totals.
// The weighted average is updated incrementally:
//
//	avg' = (total*avg + qty*price) / (total + qty)
//
// so the cost per fold is O(1) and the aggregate never needs a rescan.
func (a *AggregatedOrder) Fold(ci ContributingIntent) {
	newTotal := a.TotalQuantity.Add(ci.Quantity)
	if newTotal.IsPositive() {
		prev := a.TotalQuantity.Mul(a.WeightedAvgPrice)
		added := ci.Quantity.Mul(ci.Intent.ReferencePrice)
		a.WeightedAvgPrice = prev.Add(added).Div(newTotal)
	}
	a.TotalQuantity = newTotal
	a.Intents = append(a.Intents, ci)
}

// VerifyConservation checks that the folded total still equals the sum of
// contributing quantities, with exact decimal equality.
func (a *AggregatedOrder) VerifyConservation() error {
	sum := decimal.Zero
	for _, ci := range a.Intents {
		sum = sum.Add(ci.Quantity)
	}
	if !sum.Equal(a.TotalQuantity) {
		return &AllocationError{
			Key:      a.Key().String(),
			Expected: a.TotalQuantity,
			Actual:   sum,
			Reason:   "contributing quantities do not sum to aggregate total",
		}
	}
	return nil
}

// AllocationRecord maps one slice of an executed aggregate back to the
// contributing intent. Proportion is recorded for audit only; allocated
// quantity is the intent's own quantity, never re-derived from the
// proportion.
type AllocationRecord struct {
	IntentID          string          `json:"intent_id"`
	UserID            string          `json:"user_id"`
	Proportion        decimal.Decimal `json:"proportion"`
	AllocatedQuantity decimal.Decimal `json:"allocated_quantity"`
	AllocatedValue    decimal.Decimal `json:"allocated_value"`
}
