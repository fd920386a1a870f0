package allocation

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/domain"
)

// memStore records ledger mutations for assertions.
type memStore struct {
	transactions []*domain.Transaction
	orderUpdates []*domain.ExecutionOrder
	aggregates   []*domain.AggregatedOrder
}

func (s *memStore) SaveAggregatedOrder(ctx context.Context, agg *domain.AggregatedOrder) error {
	s.aggregates = append(s.aggregates, agg)
	return nil
}

func (s *memStore) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	s.transactions = append(s.transactions, tx)
	return nil
}

func (s *memStore) CreateExecutionOrder(ctx context.Context, order *domain.ExecutionOrder) error {
	return nil
}

func (s *memStore) UpdateExecutionOrder(ctx context.Context, order *domain.ExecutionOrder) error {
	s.orderUpdates = append(s.orderUpdates, order)
	return nil
}

func pooledAAPL() *domain.AggregatedOrder {
	agg := domain.NewAggregatedOrder(domain.AggregateKey{Symbol: "AAPL", Side: domain.SideBuy, BrokerType: domain.BrokerAlpaca})

	users := []struct {
		user  string
		qty   int64
		price int64
	}{
		{"user-1", 2, 150},
		{"user-2", 3, 151},
		{"user-3", 5, 149},
	}
	for _, u := range users {
		order := &domain.ExecutionOrder{
			ID:       u.user + "-order",
			IntentID: u.user + "-intent",
			UserID:   u.user,
			Symbol:   "AAPL",
			Status:   domain.ExecutionPending,
		}
		agg.Fold(domain.ContributingIntent{
			Intent: domain.OrderIntent{
				ID:             u.user + "-intent",
				UserID:         u.user,
				InvestmentID:   "inv-" + u.user,
				Symbol:         "AAPL",
				ReferencePrice: decimal.NewFromInt(u.price),
			},
			Quantity: decimal.NewFromInt(u.qty),
			Order:    order,
		})
	}
	return agg
}

func TestAllocator_CompletedAggregate(t *testing.T) {
	store := &memStore{}
	agg := pooledAAPL()
	agg.Status = domain.AggregateCompleted
	agg.BrokerOrderID = "broker-123"

	records, err := NewAllocator(store, nil, nil).Allocate(context.Background(), agg)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("Expected 3 allocation records, got %d", len(records))
	}

	// Each user keeps their own quantity at the pooled average of 149.8.
	wantValues := map[string]decimal.Decimal{
		"user-1": decimal.NewFromFloat(299.6),
		"user-2": decimal.NewFromFloat(449.4),
		"user-3": decimal.NewFromFloat(749.0),
	}
	totalQty := decimal.Zero
	totalValue := decimal.Zero
	for _, rec := range records {
		if !rec.AllocatedValue.Equal(wantValues[rec.UserID]) {
			t.Errorf("%s value = %v, want %v", rec.UserID, rec.AllocatedValue, wantValues[rec.UserID])
		}
		totalQty = totalQty.Add(rec.AllocatedQuantity)
		totalValue = totalValue.Add(rec.AllocatedValue)
	}

	if !totalQty.Equal(agg.TotalQuantity) {
		t.Errorf("Allocated quantity %v != aggregate total %v", totalQty, agg.TotalQuantity)
	}
	// 1498.0 = 10 * 149.8
	if !totalValue.Equal(decimal.NewFromFloat(1498.0)) {
		t.Errorf("Total allocated value = %v, want 1498.0", totalValue)
	}

	// Exactly one transaction per user, at the weighted average price.
	if len(store.transactions) != 3 {
		t.Fatalf("Expected 3 transactions, got %d", len(store.transactions))
	}
	seen := map[string]bool{}
	for _, tx := range store.transactions {
		if seen[tx.UserID] {
			t.Errorf("User %s received more than one transaction", tx.UserID)
		}
		seen[tx.UserID] = true
		if !tx.Price.Equal(decimal.NewFromFloat(149.8)) {
			t.Errorf("Transaction price = %v, want 149.8", tx.Price)
		}
		if tx.ExternalOrderID != "broker-123" {
			t.Errorf("ExternalOrderID = %q, want broker-123", tx.ExternalOrderID)
		}
		if !tx.Fees.IsZero() {
			t.Errorf("Fees = %v, want 0", tx.Fees)
		}
	}

	for _, order := range store.orderUpdates {
		if order.Status != domain.ExecutionCompleted {
			t.Errorf("Order %s status = %s, want completed", order.ID, order.Status)
		}
		if order.Detail == nil || order.Detail.BrokerOrderID != "broker-123" {
			t.Errorf("Order %s missing traceability detail", order.ID)
		}
	}
}

func TestAllocator_RejectedAggregate(t *testing.T) {
	store := &memStore{}
	agg := pooledAAPL()
	agg.Status = domain.AggregateRejected
	agg.FailureReason = "broker status rejected"

	records, err := NewAllocator(store, nil, nil).Allocate(context.Background(), agg)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	if len(records) != 0 {
		t.Errorf("Rejected aggregate must produce no records, got %d", len(records))
	}
	if len(store.transactions) != 0 {
		t.Errorf("Rejected aggregate must create no transactions, got %d", len(store.transactions))
	}
	if len(store.orderUpdates) != 3 {
		t.Fatalf("All user orders should still be updated, got %d", len(store.orderUpdates))
	}
	for _, order := range store.orderUpdates {
		if order.Status != domain.ExecutionFailed {
			t.Errorf("Order %s status = %s, want failed", order.ID, order.Status)
		}
		if order.StatusReason != "broker status rejected" {
			t.Errorf("Order %s reason = %q", order.ID, order.StatusReason)
		}
	}
}

func TestAllocator_SubmittedAggregate(t *testing.T) {
	store := &memStore{}
	agg := pooledAAPL()
	agg.Status = domain.AggregateSubmitted

	records, err := NewAllocator(store, nil, nil).Allocate(context.Background(), agg)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	if len(records) != 0 || len(store.transactions) != 0 {
		t.Error("Submitted aggregate must not create transactions yet")
	}
	for _, order := range store.orderUpdates {
		if order.Status != domain.ExecutionSubmitted {
			t.Errorf("Order %s status = %s, want submitted", order.ID, order.Status)
		}
	}
}

func TestAllocator_NonTerminalRejected(t *testing.T) {
	agg := pooledAAPL() // still pending

	_, err := NewAllocator(&memStore{}, nil, nil).Allocate(context.Background(), agg)
	if !errors.Is(err, domain.ErrNotTerminal) {
		t.Errorf("Expected ErrNotTerminal, got %v", err)
	}
}

func TestAllocator_ConservationViolation(t *testing.T) {
	store := &memStore{}
	agg := pooledAAPL()
	agg.Status = domain.AggregateCompleted
	agg.TotalQuantity = agg.TotalQuantity.Add(decimal.NewFromInt(1)) // corrupt

	_, err := NewAllocator(store, nil, nil).Allocate(context.Background(), agg)
	if err == nil {
		t.Fatal("Expected allocation error, got nil")
	}
	var allocErr *domain.AllocationError
	if !errors.As(err, &allocErr) {
		t.Fatalf("Expected *AllocationError, got %T", err)
	}

	// Nothing may be written when the invariant fails.
	if len(store.transactions) != 0 || len(store.orderUpdates) != 0 {
		t.Error("Invariant violation must not write any user records")
	}
}
