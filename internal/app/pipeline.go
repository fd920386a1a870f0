package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/aggregation"
	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/allocation"
	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/domain"
	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/execution"
	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/infra"
)

// Pipeline runs one rebalance batch end to end: collect intents, pool
// them into aggregates, execute each aggregate once on the pooled broker
// session, then redistribute the fills back to every contributing user.
type Pipeline struct {
	collector   *aggregation.Collector
	aggregator  *aggregation.Aggregator
	coordinator *execution.Coordinator
	monitor     *execution.Monitor
	allocator   *allocation.Allocator
	store       domain.LedgerStore
	metrics     *infra.Metrics
	logger      *slog.Logger
}

// NewPipeline wires a pipeline from bootstrapped components.
func NewPipeline(b *Bootstrap) *Pipeline {
	cfg := b.Config
	orderTimeout := time.Duration(cfg.Execution.OrderTimeoutSec) * time.Second
	pollInterval := time.Duration(cfg.Execution.PollIntervalSec) * time.Second

	// A nil *ExchangeRateClient must stay a nil interface downstream.
	var rates domain.ExchangeRateProvider
	if b.Rates != nil {
		rates = b.Rates
	}

	return &Pipeline{
		collector:   aggregation.NewCollector(b.Store, b.Logger),
		aggregator:  aggregation.NewAggregator(rates, b.Logger),
		coordinator: execution.NewCoordinator(b.Registry, b.Metrics, b.Logger, orderTimeout),
		monitor:     execution.NewMonitor(b.Registry, b.Logger, pollInterval, cfg.Execution.MaxPollAttempts),
		allocator:   allocation.NewAllocator(b.Store, b.Metrics, b.Logger),
		store:       b.Store,
		metrics:     b.Metrics,
		logger:      b.Logger.With("module", "pipeline"),
	}
}

// RunReport summarizes one completed batch run.
type RunReport struct {
	BatchID string
	Result  *execution.BatchResult
	Records []domain.AllocationRecord
	Skipped []*domain.ExecutionOrder
}

// Run processes one rebalance batch. Per-aggregate failures are carried
// in the report rather than returned; only collection and storage errors
// abort the run.
func (p *Pipeline) Run(ctx context.Context, intents []domain.OrderIntent, stocks domain.StockLookup, investments domain.InvestmentLookup) (*RunReport, error) {
	batch, err := p.collector.Collect(ctx, intents)
	if err != nil {
		return nil, err
	}

	agg := p.aggregator.Aggregate(batch, stocks, investments)
	for _, order := range agg.Skipped {
		p.metrics.RecordIntentSkipped()
		if err := p.store.UpdateExecutionOrder(ctx, order); err != nil {
			return nil, err
		}
	}
	for _, a := range agg.Aggregates {
		for range a.Intents {
			p.metrics.RecordIntentAggregated()
		}
	}

	report := &RunReport{
		BatchID: batch.ID,
		Skipped: agg.Skipped,
	}

	report.Result = p.coordinator.Execute(ctx, agg.Aggregates)

	for _, outcome := range report.Result.Outcomes {
		a := outcome.Aggregate

		if a.Status == domain.AggregateSubmitted {
			if err := p.monitor.Reconcile(ctx, a); err != nil {
				p.logger.Warn("reconciliation incomplete",
					slog.String("key", a.Key().String()),
					slog.Any("error", err))
			}
		}

		records, err := p.allocator.Allocate(ctx, a)
		if err != nil {
			var allocErr *domain.AllocationError
			if errors.As(err, &allocErr) {
				// Already counted and flagged; the aggregate keeps its
				// unallocated state for manual reconciliation.
				continue
			}
			return nil, err
		}
		report.Records = append(report.Records, records...)

		if err := p.store.SaveAggregatedOrder(ctx, a); err != nil {
			return nil, err
		}
	}

	p.logger.Info("batch finished",
		slog.String("batch_id", report.BatchID),
		slog.Int("aggregates", len(report.Result.Outcomes)),
		slog.Int("allocations", len(report.Records)),
		slog.Int("skipped", len(report.Skipped)))

	return report, nil
}
