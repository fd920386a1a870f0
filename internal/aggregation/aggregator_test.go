package aggregation

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/domain"
)

func testStocks() domain.StockLookup {
	return domain.StockLookup{
		"AAPL": {Symbol: "AAPL", Exchange: "NASDAQ", Currency: "USD", IsActive: true},
		"TSLA": {Symbol: "TSLA", Exchange: "NASDAQ", Currency: "USD", IsActive: true},
		"INFY": {Symbol: "INFY", Exchange: "NSE", Currency: "INR", IsActive: true},
	}
}

func testInvestments() domain.InvestmentLookup {
	return domain.InvestmentLookup{
		"inv-1": {ID: "inv-1", UserID: "user-1", CurrentValue: decimal.NewFromInt(30000), Currency: "USD"},
		"inv-2": {ID: "inv-2", UserID: "user-2", CurrentValue: decimal.NewFromInt(45300), Currency: "USD"},
		"inv-3": {ID: "inv-3", UserID: "user-3", CurrentValue: decimal.NewFromInt(74500), Currency: "USD"},
	}
}

func collectBatch(t *testing.T, intents []domain.OrderIntent) *Batch {
	t.Helper()
	batch, err := NewCollector(nil, nil).Collect(context.Background(), intents)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	return batch
}

func TestAggregator_GroupsByKey(t *testing.T) {
	intents := []domain.OrderIntent{
		{ID: "i-1", UserID: "user-1", InvestmentID: "inv-1", Symbol: "AAPL", WeightChange: decimal.NewFromInt(1), ReferencePrice: decimal.NewFromInt(150), BrokerType: domain.BrokerAlpaca},
		{ID: "i-2", UserID: "user-2", InvestmentID: "inv-2", Symbol: "AAPL", WeightChange: decimal.NewFromInt(1), ReferencePrice: decimal.NewFromInt(151), BrokerType: domain.BrokerAlpaca},
		{ID: "i-3", UserID: "user-3", InvestmentID: "inv-3", Symbol: "AAPL", WeightChange: decimal.NewFromInt(1), ReferencePrice: decimal.NewFromInt(149), BrokerType: domain.BrokerAlpaca},
	}

	result := NewAggregator(nil, nil).Aggregate(collectBatch(t, intents), testStocks(), testInvestments())

	if len(result.Aggregates) != 1 {
		t.Fatalf("Expected 1 aggregate, got %d", len(result.Aggregates))
	}

	agg := result.Aggregates[0]
	if agg.Symbol != "AAPL" || agg.Side != domain.SideBuy {
		t.Errorf("Unexpected key: %v", agg.Key())
	}

	// 1% of 30000/45300/74500 at 150/151/149 = qty 2/3/5, total 10.
	if !agg.TotalQuantity.Equal(decimal.NewFromInt(10)) {
		t.Errorf("TotalQuantity = %v, want 10", agg.TotalQuantity)
	}

	// (2*150 + 3*151 + 5*149) / 10 = 149.8
	if !agg.WeightedAvgPrice.Equal(decimal.NewFromFloat(149.8)) {
		t.Errorf("WeightedAvgPrice = %v, want 149.8", agg.WeightedAvgPrice)
	}

	if err := agg.VerifyConservation(); err != nil {
		t.Errorf("Conservation violated: %v", err)
	}
}

func TestAggregator_SideDerivedFromSign(t *testing.T) {
	intents := []domain.OrderIntent{
		{ID: "i-1", UserID: "user-1", InvestmentID: "inv-1", Symbol: "AAPL", WeightChange: decimal.NewFromInt(2), ReferencePrice: decimal.NewFromInt(150), BrokerType: domain.BrokerAlpaca},
		{ID: "i-2", UserID: "user-2", InvestmentID: "inv-2", Symbol: "AAPL", WeightChange: decimal.NewFromInt(-2), ReferencePrice: decimal.NewFromInt(150), BrokerType: domain.BrokerAlpaca},
	}

	result := NewAggregator(nil, nil).Aggregate(collectBatch(t, intents), testStocks(), testInvestments())

	if len(result.Aggregates) != 2 {
		t.Fatalf("Expected buy and sell aggregates, got %d", len(result.Aggregates))
	}

	sides := map[domain.Side]bool{}
	for _, agg := range result.Aggregates {
		sides[agg.Side] = true
	}
	if !sides[domain.SideBuy] || !sides[domain.SideSell] {
		t.Errorf("Expected both sides, got %v", sides)
	}
}

func TestAggregator_RoundsHalfUp(t *testing.T) {
	// 1% of 1 = 0.01; 0.01 / 200 = 0.00005, which rounds half-up to 0.0001.
	investments := domain.InvestmentLookup{
		"inv-1": {ID: "inv-1", UserID: "user-1", CurrentValue: decimal.NewFromInt(1), Currency: "USD"},
	}
	intents := []domain.OrderIntent{
		{ID: "i-1", UserID: "user-1", InvestmentID: "inv-1", Symbol: "AAPL", WeightChange: decimal.NewFromInt(1), ReferencePrice: decimal.NewFromInt(200), BrokerType: domain.BrokerAlpaca},
	}

	result := NewAggregator(nil, nil).Aggregate(collectBatch(t, intents), testStocks(), investments)

	if len(result.Aggregates) != 1 {
		t.Fatalf("Expected 1 aggregate, got %d", len(result.Aggregates))
	}
	want := decimal.NewFromFloat(0.0001)
	if !result.Aggregates[0].TotalQuantity.Equal(want) {
		t.Errorf("TotalQuantity = %v, want %v", result.Aggregates[0].TotalQuantity, want)
	}
}

func TestAggregator_MissingResolution(t *testing.T) {
	intents := []domain.OrderIntent{
		{ID: "i-1", UserID: "user-1", InvestmentID: "inv-1", Symbol: "NOPE", WeightChange: decimal.NewFromInt(1), ReferencePrice: decimal.NewFromInt(10), BrokerType: domain.BrokerAlpaca},
		{ID: "i-2", UserID: "user-2", InvestmentID: "inv-missing", Symbol: "AAPL", WeightChange: decimal.NewFromInt(1), ReferencePrice: decimal.NewFromInt(10), BrokerType: domain.BrokerAlpaca},
		{ID: "i-3", UserID: "user-3", InvestmentID: "inv-3", Symbol: "AAPL", WeightChange: decimal.NewFromInt(1), ReferencePrice: decimal.NewFromInt(149), BrokerType: domain.BrokerAlpaca},
	}

	batch := collectBatch(t, intents)
	result := NewAggregator(nil, nil).Aggregate(batch, testStocks(), testInvestments())

	// A bad symbol or missing investment fails that intent only.
	if len(result.Aggregates) != 1 {
		t.Fatalf("Healthy intent should still aggregate, got %d aggregates", len(result.Aggregates))
	}
	if len(result.Skipped) != 2 {
		t.Fatalf("Expected 2 skipped orders, got %d", len(result.Skipped))
	}

	byIntent := map[string]*domain.ExecutionOrder{}
	for _, o := range result.Skipped {
		byIntent[o.IntentID] = o
	}
	if byIntent["i-1"].Status != domain.ExecutionFailed || byIntent["i-1"].StatusReason != "missing stock information" {
		t.Errorf("i-1: got %s/%q", byIntent["i-1"].Status, byIntent["i-1"].StatusReason)
	}
	if byIntent["i-2"].Status != domain.ExecutionFailed || byIntent["i-2"].StatusReason != "no owning investment" {
		t.Errorf("i-2: got %s/%q", byIntent["i-2"].Status, byIntent["i-2"].StatusReason)
	}
}

func TestAggregator_ZeroQuantitySimulated(t *testing.T) {
	intents := []domain.OrderIntent{
		{ID: "i-1", UserID: "user-1", InvestmentID: "inv-1", Symbol: "AAPL", WeightChange: decimal.Zero, ReferencePrice: decimal.NewFromInt(150), BrokerType: domain.BrokerAlpaca},
	}

	result := NewAggregator(nil, nil).Aggregate(collectBatch(t, intents), testStocks(), testInvestments())

	if len(result.Aggregates) != 0 {
		t.Errorf("Zero-quantity intent must not aggregate, got %d aggregates", len(result.Aggregates))
	}
	if len(result.Skipped) != 1 {
		t.Fatalf("Expected 1 skipped order, got %d", len(result.Skipped))
	}
	order := result.Skipped[0]
	if order.Status != domain.ExecutionSimulated {
		t.Errorf("Status = %s, want simulated", order.Status)
	}
	if order.StatusReason != "no quantity change required" {
		t.Errorf("Reason = %q", order.StatusReason)
	}
}

type fixedRate struct {
	rate decimal.Decimal
}

func (f fixedRate) Start(ctx context.Context) error { return nil }

func (f fixedRate) GetRate(from, to string) decimal.Decimal { return f.rate }

func TestAggregator_CurrencyConversion(t *testing.T) {
	// USD investment buying an INR-denominated stock at rate 83.
	intents := []domain.OrderIntent{
		{ID: "i-1", UserID: "user-1", InvestmentID: "inv-1", Symbol: "INFY", WeightChange: decimal.NewFromInt(1), ReferencePrice: decimal.NewFromInt(1500), BrokerType: domain.BrokerZerodha},
	}

	agg := NewAggregator(fixedRate{rate: decimal.NewFromInt(83)}, nil)
	result := agg.Aggregate(collectBatch(t, intents), testStocks(), testInvestments())

	if len(result.Aggregates) != 1 {
		t.Fatalf("Expected 1 aggregate, got %d", len(result.Aggregates))
	}
	// 1% of 30000 USD = 300 USD = 24900 INR; 24900 / 1500 = 16.6 shares.
	want := decimal.NewFromFloat(16.6)
	if !result.Aggregates[0].TotalQuantity.Equal(want) {
		t.Errorf("TotalQuantity = %v, want %v", result.Aggregates[0].TotalQuantity, want)
	}
}

func TestAggregator_DeterministicOrdering(t *testing.T) {
	intents := []domain.OrderIntent{
		{ID: "i-1", UserID: "user-1", InvestmentID: "inv-1", Symbol: "TSLA", WeightChange: decimal.NewFromInt(1), ReferencePrice: decimal.NewFromInt(200), BrokerType: domain.BrokerAlpaca},
		{ID: "i-2", UserID: "user-2", InvestmentID: "inv-2", Symbol: "AAPL", WeightChange: decimal.NewFromInt(1), ReferencePrice: decimal.NewFromInt(150), BrokerType: domain.BrokerAlpaca},
	}

	for i := 0; i < 10; i++ {
		result := NewAggregator(nil, nil).Aggregate(collectBatch(t, intents), testStocks(), testInvestments())
		if len(result.Aggregates) != 2 {
			t.Fatalf("Expected 2 aggregates, got %d", len(result.Aggregates))
		}
		if result.Aggregates[0].Symbol != "AAPL" || result.Aggregates[1].Symbol != "TSLA" {
			t.Fatalf("Aggregate order not deterministic: %s, %s",
				result.Aggregates[0].Symbol, result.Aggregates[1].Symbol)
		}
	}
}

func TestCollector_AssignsIDsAndPendingOrders(t *testing.T) {
	intents := []domain.OrderIntent{
		{UserID: "user-1", InvestmentID: "inv-1", Symbol: "AAPL", WeightChange: decimal.NewFromInt(1), ReferencePrice: decimal.NewFromInt(150), BrokerType: domain.BrokerAlpaca},
	}

	batch := collectBatch(t, intents)

	if batch.ID == "" {
		t.Error("Batch should get an ID")
	}
	if batch.Intents[0].ID == "" {
		t.Error("Intent should be assigned an ID")
	}
	order := batch.Orders[batch.Intents[0].ID]
	if order == nil {
		t.Fatal("Execution order missing for intent")
	}
	if order.Status != domain.ExecutionPending {
		t.Errorf("Status = %s, want pending", order.Status)
	}
	if order.BatchID != batch.ID {
		t.Errorf("Order batch ID = %s, want %s", order.BatchID, batch.ID)
	}
}
