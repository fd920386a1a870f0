package allocation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/domain"
	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/infra"
)

// proportionEpsilon bounds the rounding drift tolerated when checking
// that contributing proportions sum to one.
var proportionEpsilon = decimal.New(1, -8)

// Allocator redistributes an executed aggregate back to its contributing
// users: one ledger transaction per user for completed aggregates, a
// status update for every contributing execution order regardless.
type Allocator struct {
	store   domain.LedgerStore
	metrics *infra.Metrics
	logger  *slog.Logger
}

// NewAllocator creates an allocator writing through the given ledger
// store. store may be nil in dry runs; mutations are then in-memory only.
func NewAllocator(store domain.LedgerStore, metrics *infra.Metrics, logger *slog.Logger) *Allocator {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = infra.NewMetrics()
	}
	return &Allocator{store: store, metrics: metrics, logger: logger.With("module", "allocator")}
}

// Allocate maps one terminal aggregate's outcome back to each
// contributing intent. Each intent's allocated quantity is its own folded
// quantity, never re-derived from its proportion, so no rounding error
// can compound across users. Returns allocation records for completed
// aggregates; submitted and rejected aggregates only update per-user
// status and produce no records.
func (a *Allocator) Allocate(ctx context.Context, agg *domain.AggregatedOrder) ([]domain.AllocationRecord, error) {
	if !agg.Status.Terminal() {
		return nil, domain.ErrNotTerminal
	}

	if err := a.verifyInvariants(agg); err != nil {
		a.metrics.RecordAllocationError()
		a.logger.Error("allocation aborted, aggregate flagged for manual reconciliation",
			slog.String("key", agg.Key().String()),
			slog.Any("error", err))
		return nil, err
	}

	var records []domain.AllocationRecord
	for i := range agg.Intents {
		ci := &agg.Intents[i]
		proportion := ci.Quantity.Div(agg.TotalQuantity)

		if err := a.updateOrder(ctx, agg, ci, proportion); err != nil {
			return nil, err
		}

		if agg.Status != domain.AggregateCompleted {
			continue
		}

		value := ci.Quantity.Mul(agg.WeightedAvgPrice)
		records = append(records, domain.AllocationRecord{
			IntentID:          ci.Intent.ID,
			UserID:            ci.Intent.UserID,
			Proportion:        proportion,
			AllocatedQuantity: ci.Quantity,
			AllocatedValue:    value,
		})

		tx := &domain.Transaction{
			ID:              uuid.NewString(),
			UserID:          ci.Intent.UserID,
			InvestmentID:    ci.Intent.InvestmentID,
			Symbol:          agg.Symbol,
			Type:            agg.Side,
			Quantity:        ci.Quantity,
			Price:           agg.WeightedAvgPrice,
			TotalAmount:     value,
			Fees:            decimal.Zero,
			ExternalOrderID: agg.BrokerOrderID,
			CreatedAt:       time.Now().UTC(),
		}
		if a.store != nil {
			if err := a.store.CreateTransaction(ctx, tx); err != nil {
				return nil, err
			}
		}
	}

	a.logger.Info("aggregate allocated",
		slog.String("key", agg.Key().String()),
		slog.String("status", string(agg.Status)),
		slog.Int("users", len(agg.Intents)),
		slog.Int("transactions", len(records)))

	return records, nil
}

// verifyInvariants checks quantity conservation and proportion closure
// before anything is written. A violation is fatal for this aggregate
// only; user records are never truncated to force a fit.
func (a *Allocator) verifyInvariants(agg *domain.AggregatedOrder) error {
	if err := agg.VerifyConservation(); err != nil {
		return err
	}

	if agg.Status == domain.AggregateCompleted && len(agg.Intents) > 0 {
		sum := decimal.Zero
		for _, ci := range agg.Intents {
			sum = sum.Add(ci.Quantity.Div(agg.TotalQuantity))
		}
		if sum.Sub(decimal.NewFromInt(1)).Abs().GreaterThan(proportionEpsilon) {
			return &domain.AllocationError{
				Key:      agg.Key().String(),
				Expected: decimal.NewFromInt(1),
				Actual:   sum,
				Reason:   "proportions do not sum to one",
			}
		}
	}
	return nil
}

func (a *Allocator) updateOrder(ctx context.Context, agg *domain.AggregatedOrder, ci *domain.ContributingIntent, proportion decimal.Decimal) error {
	order := ci.Order
	if order == nil {
		return nil
	}

	switch agg.Status {
	case domain.AggregateCompleted:
		order.Status = domain.ExecutionCompleted
	case domain.AggregateSubmitted:
		order.Status = domain.ExecutionSubmitted
	default:
		order.Status = domain.ExecutionFailed
		order.StatusReason = agg.FailureReason
	}

	order.Detail = &domain.ExecutionDetail{
		AggregateKey:     agg.Key().String(),
		UserQuantity:     ci.Quantity,
		UserProportion:   proportion,
		TotalQuantity:    agg.TotalQuantity,
		BrokerOrderID:    agg.BrokerOrderID,
		WeightedAvgPrice: agg.WeightedAvgPrice,
	}
	order.UpdatedAt = time.Now().UTC()

	if a.store != nil {
		return a.store.UpdateExecutionOrder(ctx, order)
	}
	return nil
}
