package aggregation

import (
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/domain"
)

const (
	reasonNoInvestment = "no owning investment"
	reasonZeroQuantity = "no quantity change required"
)

var reasonMissingStock = domain.ErrMissingStockInfo.Error()

// Result is the outcome of aggregating one batch. Skipped holds the
// execution orders that never reached an aggregate, either because
// resolution failed or because the computed quantity was zero.
type Result struct {
	Aggregates []*domain.AggregatedOrder
	Skipped    []*domain.ExecutionOrder
}

// Aggregator folds a batch of intents into one pooled order per
// (symbol, side, broker type) key. It performs no broker or storage
// calls; the output is purely in-memory.
type Aggregator struct {
	rates  domain.ExchangeRateProvider
	logger *slog.Logger
}

// NewAggregator creates an aggregator. rates may be nil when all
// investments trade in their own currency.
func NewAggregator(rates domain.ExchangeRateProvider, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{rates: rates, logger: logger.With("module", "aggregator")}
}

// Aggregate drains the whole batch into aggregates. Every intent either
// lands in exactly one aggregate or is skipped with a recorded reason.
// The intent list is fully consumed before any aggregate is handed to
// execution; a group's weighted average is only meaningful once closed.
func (a *Aggregator) Aggregate(batch *Batch, stocks domain.StockLookup, investments domain.InvestmentLookup) *Result {
	result := &Result{}
	groups := make(map[domain.AggregateKey]*domain.AggregatedOrder)

	for _, intent := range batch.Intents {
		order := batch.Orders[intent.ID]

		stock := stocks[intent.Symbol]
		investment := investments[intent.InvestmentID]
		if stock == nil {
			a.skip(result, order, domain.ExecutionFailed, reasonMissingStock)
			continue
		}
		if investment == nil {
			a.skip(result, order, domain.ExecutionFailed, reasonNoInvestment)
			continue
		}
		if !intent.ReferencePrice.IsPositive() {
			a.skip(result, order, domain.ExecutionFailed, reasonMissingStock)
			continue
		}

		side, quantity := a.computeQuantity(intent, stock, investment)
		if !quantity.IsPositive() {
			a.skip(result, order, domain.ExecutionSimulated, reasonZeroQuantity)
			continue
		}

		order.Side = side

		key := domain.AggregateKey{Symbol: intent.Symbol, Side: side, BrokerType: intent.BrokerType}
		agg, ok := groups[key]
		if !ok {
			agg = domain.NewAggregatedOrder(key)
			groups[key] = agg
		}
		agg.Fold(domain.ContributingIntent{Intent: intent, Quantity: quantity, Order: order})
	}

	result.Aggregates = make([]*domain.AggregatedOrder, 0, len(groups))
	for _, agg := range groups {
		result.Aggregates = append(result.Aggregates, agg)
	}
	// Deterministic submission order regardless of map iteration.
	sort.Slice(result.Aggregates, func(i, j int) bool {
		return result.Aggregates[i].Key().String() < result.Aggregates[j].Key().String()
	})

	a.logger.Info("batch aggregated",
		slog.String("batch_id", batch.ID),
		slog.Int("aggregates", len(result.Aggregates)),
		slog.Int("skipped", len(result.Skipped)))

	return result
}

// computeQuantity turns a weight change into a signed trade. The side is
// derived from the sign of the amount change, not copied from the
// intent: a weight decrease can flip sign after rounding near zero.
// This is the single rounding site for quantities (half-up, 4 places).
func (a *Aggregator) computeQuantity(intent domain.OrderIntent, stock *domain.StockInfo, investment *domain.Investment) (domain.Side, decimal.Decimal) {
	amount := intent.WeightChange.Div(decimal.NewFromInt(100)).Mul(investment.CurrentValue)

	if a.rates != nil && stock.Currency != "" && investment.Currency != "" && stock.Currency != investment.Currency {
		rate := a.rates.GetRate(investment.Currency, stock.Currency)
		if rate.IsPositive() {
			amount = amount.Mul(rate)
		}
	}

	side := domain.SideBuy
	if amount.IsNegative() {
		side = domain.SideSell
	}

	quantity := amount.Abs().Div(intent.ReferencePrice).Round(domain.QuantityPlaces)
	return side, quantity
}

func (a *Aggregator) skip(result *Result, order *domain.ExecutionOrder, status domain.ExecutionStatus, reason string) {
	if order == nil {
		return
	}
	order.Status = status
	order.StatusReason = reason
	result.Skipped = append(result.Skipped, order)
	if status == domain.ExecutionFailed {
		a.logger.Warn("intent excluded from aggregation",
			slog.Any("error", &domain.ResolutionError{IntentID: order.IntentID, Reason: reason}))
	}
}
