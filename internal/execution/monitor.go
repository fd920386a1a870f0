package execution

import (
	"context"
	"log/slog"
	"time"

	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/domain"
	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/infra"
)

// Monitor reconciles submitted aggregates by polling the broker until
// the bulk order reaches a terminal state. Allocation for a submitted
// aggregate only happens after the monitor promotes it.
type Monitor struct {
	registry     *Registry
	logger       *slog.Logger
	pollInterval time.Duration
	maxAttempts  int
}

// NewMonitor creates an order-status monitor.
func NewMonitor(registry *Registry, logger *slog.Logger, pollInterval time.Duration, maxAttempts int) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 12
	}
	return &Monitor{
		registry:     registry,
		logger:       logger.With("module", "order_monitor"),
		pollInterval: pollInterval,
		maxAttempts:  maxAttempts,
	}
}

// Reconcile polls the broker order behind a submitted aggregate until it
// fills, is rejected, or attempts run out. The aggregate's status is
// updated in place; a still-pending order after the final attempt leaves
// the aggregate submitted for a later reconciliation pass.
func (m *Monitor) Reconcile(ctx context.Context, agg *domain.AggregatedOrder) error {
	if agg.Status != domain.AggregateSubmitted {
		return nil
	}

	conn, _, err := m.registry.ResolvePooled(agg.BrokerType)
	if err != nil {
		return err
	}

	for attempt := 0; attempt < m.maxAttempts; attempt++ {
		status, filled, err := conn.Gateway.GetOrderStatus(ctx, agg.BrokerOrderID)
		if err != nil {
			m.logger.Warn("order status poll failed",
				slog.String("key", agg.Key().String()),
				slog.Int("attempt", attempt),
				slog.Any("error", err))
		} else {
			switch status {
			case domain.OrderFilled:
				agg.Status = domain.AggregateCompleted
				m.logger.Info("submitted aggregate filled",
					slog.String("key", agg.Key().String()),
					slog.String("filled_quantity", filled.String()))
				return nil
			case domain.OrderCancelled, domain.OrderRejected:
				agg.Status = domain.AggregateRejected
				agg.FailureReason = "broker status " + string(status)
				return nil
			}
		}

		delay := m.pollInterval
		if err != nil {
			delay = infra.CalculateBackoff(attempt)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	m.logger.Warn("aggregate still pending after max poll attempts",
		slog.String("key", agg.Key().String()),
		slog.String("broker_order_id", agg.BrokerOrderID))
	return nil
}
