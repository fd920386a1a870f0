package paper

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/domain"
)

func TestPaperGateway_Buy(t *testing.T) {
	gw := NewGateway()
	gw.SetPrice("AAPL", decimal.NewFromFloat(149.8))

	orderID, status, err := gw.PlaceOrder(context.Background(), "AAPL", domain.SideBuy, decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	if status != domain.OrderFilled {
		t.Errorf("Status = %s, want filled", status)
	}
	if orderID == "" {
		t.Error("Expected an order ID")
	}

	fills := gw.Fills()
	if len(fills) != 1 {
		t.Fatalf("Expected 1 fill, got %d", len(fills))
	}
	if fills[0].Side != domain.SideBuy {
		t.Errorf("Expected buy, got %s", fills[0].Side)
	}
	if !fills[0].Price.Equal(decimal.NewFromFloat(149.8)) {
		t.Errorf("Fill price = %v, want 149.8", fills[0].Price)
	}
}

func TestPaperGateway_NoPrice(t *testing.T) {
	gw := NewGateway()

	_, status, err := gw.PlaceOrder(context.Background(), "AAPL", domain.SideBuy, decimal.NewFromInt(1))
	if err == nil {
		t.Fatal("Expected error without a market price")
	}
	if status != domain.OrderRejected {
		t.Errorf("Status = %s, want rejected", status)
	}
}

func TestPaperGateway_FailSymbol(t *testing.T) {
	gw := NewGateway()
	gw.SetPrice("AAPL", decimal.NewFromInt(150))
	gw.FailSymbol("AAPL", errors.New("injected failure"))

	_, _, err := gw.PlaceOrder(context.Background(), "AAPL", domain.SideBuy, decimal.NewFromInt(1))
	if err == nil {
		t.Fatal("Expected injected failure")
	}
	var brokerErr *domain.BrokerError
	if !errors.As(err, &brokerErr) {
		t.Errorf("Expected *BrokerError, got %T", err)
	}
}

func TestPaperGateway_PendingFills(t *testing.T) {
	gw := NewGateway()
	gw.SetPrice("AAPL", decimal.NewFromInt(150))
	gw.SetPendingFills(true)

	orderID, status, err := gw.PlaceOrder(context.Background(), "AAPL", domain.SideSell, decimal.NewFromInt(2))
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	if status != domain.OrderPending {
		t.Errorf("Status = %s, want pending", status)
	}

	// Status polling resolves the pending order as filled.
	polled, filled, err := gw.GetOrderStatus(context.Background(), orderID)
	if err != nil {
		t.Fatalf("GetOrderStatus failed: %v", err)
	}
	if polled != domain.OrderFilled {
		t.Errorf("Polled status = %s, want filled", polled)
	}
	if !filled.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Filled quantity = %v, want 2", filled)
	}
}

func TestPaperGateway_RejectsNonPositiveQuantity(t *testing.T) {
	gw := NewGateway()
	gw.SetPrice("AAPL", decimal.NewFromInt(150))

	_, _, err := gw.PlaceOrder(context.Background(), "AAPL", domain.SideBuy, decimal.Zero)
	if err == nil {
		t.Fatal("Expected error for zero quantity")
	}
}

func TestPaperGateway_ImplementsInterface(t *testing.T) {
	var _ domain.BrokerGateway = (*Gateway)(nil)
}
