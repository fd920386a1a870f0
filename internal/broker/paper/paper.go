package paper

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/domain"
)

// Fill records one simulated execution.
type Fill struct {
	OrderID  string
	Symbol   string
	Side     domain.Side
	Quantity decimal.Decimal
	Price    decimal.Decimal
}

// Gateway is a simulated broker that fills market orders synchronously
// at the last set price. It backs tests and dry runs; its semantics
// mirror a live gateway whose bulk orders fill immediately.
type Gateway struct {
	mu          sync.Mutex
	prices      map[string]decimal.Decimal
	orders      map[string]Fill
	fills       []Fill
	failSymbols map[string]error
	pending     bool // report orders as pending instead of filled
}

// NewGateway creates an empty paper gateway.
func NewGateway() *Gateway {
	return &Gateway{
		prices:      make(map[string]decimal.Decimal),
		orders:      make(map[string]Fill),
		failSymbols: make(map[string]error),
	}
}

// SetPrice sets the simulated market price for a symbol.
func (g *Gateway) SetPrice(symbol string, price decimal.Decimal) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prices[symbol] = price
}

// FailSymbol makes future orders for the symbol fail with err.
func (g *Gateway) FailSymbol(symbol string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failSymbols[symbol] = err
}

// SetPendingFills makes PlaceOrder report pending instead of filled, so
// the order monitor path can be exercised against the paper broker.
func (g *Gateway) SetPendingFills(pending bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = pending
}

// Fills returns all executions so far.
func (g *Gateway) Fills() []Fill {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Fill, len(g.fills))
	copy(out, g.fills)
	return out
}

// Authenticate always succeeds for the paper broker.
func (g *Gateway) Authenticate(ctx context.Context) error {
	return nil
}

// PlaceOrder fills a market order at the current simulated price.
func (g *Gateway) PlaceOrder(ctx context.Context, symbol string, side domain.Side, quantity decimal.Decimal) (string, domain.OrderStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err, ok := g.failSymbols[symbol]; ok {
		return "", domain.OrderRejected, domain.NewFatalBrokerError(domain.BrokerPaper, "place_order", err)
	}
	if !quantity.IsPositive() {
		return "", domain.OrderRejected, domain.NewFatalBrokerError(domain.BrokerPaper, "place_order",
			fmt.Errorf("quantity must be positive, got %s", quantity))
	}

	price, ok := g.prices[symbol]
	if !ok {
		return "", domain.OrderRejected, domain.NewFatalBrokerError(domain.BrokerPaper, "place_order",
			fmt.Errorf("no market price for %s", symbol))
	}

	fill := Fill{
		OrderID:  uuid.NewString(),
		Symbol:   symbol,
		Side:     side,
		Quantity: quantity,
		Price:    price,
	}
	g.orders[fill.OrderID] = fill
	g.fills = append(g.fills, fill)

	if g.pending {
		return fill.OrderID, domain.OrderPending, nil
	}
	return fill.OrderID, domain.OrderFilled, nil
}

// GetOrderStatus reports a previously placed order as filled.
func (g *Gateway) GetOrderStatus(ctx context.Context, orderID string) (domain.OrderStatus, decimal.Decimal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	fill, ok := g.orders[orderID]
	if !ok {
		return domain.OrderRejected, decimal.Zero, domain.NewFatalBrokerError(domain.BrokerPaper, "get_order_status",
			fmt.Errorf("unknown order %s", orderID))
	}
	return domain.OrderFilled, fill.Quantity, nil
}

// CancelOrder is a no-op for already-filled paper orders.
func (g *Gateway) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, ok := g.orders[orderID]
	return ok, nil
}
