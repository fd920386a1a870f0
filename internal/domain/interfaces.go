package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// OrderStatus is the broker-side state of a placed order.
type OrderStatus string

const (
	OrderPending         OrderStatus = "pending"
	OrderPartiallyFilled OrderStatus = "partially_filled"
	OrderFilled          OrderStatus = "filled"
	OrderCancelled       OrderStatus = "cancelled"
	OrderRejected        OrderStatus = "rejected"
)

// BrokerGateway is the abstract broker contract. One implementation
// exists per broker type; the execution coordinator only ever talks to
// this interface through the pooled account connection.
type BrokerGateway interface {
	Authenticate(ctx context.Context) error
	PlaceOrder(ctx context.Context, symbol string, side Side, quantity decimal.Decimal) (orderID string, status OrderStatus, err error)
	GetOrderStatus(ctx context.Context, orderID string) (status OrderStatus, filledQuantity decimal.Decimal, err error)
	CancelOrder(ctx context.Context, orderID string) (bool, error)
}

// LedgerStore is the persistence boundary for batch results. The storage
// layer owns schema and transactions; this core only pushes mutations.
type LedgerStore interface {
	SaveAggregatedOrder(ctx context.Context, agg *AggregatedOrder) error
	CreateTransaction(ctx context.Context, tx *Transaction) error
	CreateExecutionOrder(ctx context.Context, order *ExecutionOrder) error
	UpdateExecutionOrder(ctx context.Context, order *ExecutionOrder) error
}

// ExchangeRateProvider supplies a conversion rate between an investment's
// currency and a broker's trading currency. Implementations poll an
// external source; GetRate returns the latest known rate.
type ExchangeRateProvider interface {
	Start(ctx context.Context) error
	GetRate(from, to string) decimal.Decimal
}
