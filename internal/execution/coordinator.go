package execution

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/domain"
	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/infra"
)

// Coordinator submits aggregated orders to their pooled broker sessions.
// Aggregates for the same broker type run sequentially on the shared
// session; different broker types run concurrently on independent
// sessions.
type Coordinator struct {
	registry     *Registry
	metrics      *infra.Metrics
	logger       *slog.Logger
	orderTimeout time.Duration
}

// NewCoordinator creates an execution coordinator. All collaborators are
// injected; the coordinator holds no global state.
func NewCoordinator(registry *Registry, metrics *infra.Metrics, logger *slog.Logger, orderTimeout time.Duration) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = infra.NewMetrics()
	}
	if orderTimeout <= 0 {
		orderTimeout = 15 * time.Second
	}
	return &Coordinator{
		registry:     registry,
		metrics:      metrics,
		logger:       logger.With("module", "coordinator"),
		orderTimeout: orderTimeout,
	}
}

// Execute submits every aggregate and returns the per-aggregate
// outcomes. One aggregate's rejection never aborts its siblings; only
// programming-contract violations escape as errors, and those are none
// here: every failure is captured in the result.
func (c *Coordinator) Execute(ctx context.Context, aggregates []*domain.AggregatedOrder) *BatchResult {
	result := &BatchResult{}

	groups := make(map[domain.BrokerType][]*domain.AggregatedOrder)
	for _, agg := range aggregates {
		groups[agg.BrokerType] = append(groups[agg.BrokerType], agg)
	}

	var wg sync.WaitGroup
	for brokerType, group := range groups {
		wg.Add(1)
		go func(brokerType domain.BrokerType, group []*domain.AggregatedOrder) {
			defer wg.Done()
			c.executeGroup(ctx, brokerType, group, result)
		}(brokerType, group)
	}
	wg.Wait()

	result.sortOutcomes()
	return result
}

// executeGroup runs one broker type's aggregates sequentially against
// its pooled session. The session mutex also serializes against other
// concurrently running batches for the same broker type.
func (c *Coordinator) executeGroup(ctx context.Context, brokerType domain.BrokerType, group []*domain.AggregatedOrder, result *BatchResult) {
	conn, fallback, err := c.registry.ResolvePooled(brokerType)
	if err != nil {
		for _, agg := range group {
			c.reject(agg, domain.NewFatalBrokerError(brokerType, "resolve_connection", err), result)
		}
		return
	}
	if fallback {
		result.warn("no master connection for broker type " + string(brokerType) + "; using fallback session")
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()

	authCtx, cancel := context.WithTimeout(ctx, c.orderTimeout)
	err = conn.Gateway.Authenticate(authCtx)
	cancel()
	if err != nil {
		for _, agg := range group {
			c.reject(agg, domain.NewFatalBrokerError(brokerType, "authenticate", err), result)
		}
		return
	}

	for _, agg := range group {
		c.submit(ctx, conn, agg, result)
	}
}

func (c *Coordinator) submit(ctx context.Context, conn *Connection, agg *domain.AggregatedOrder, result *BatchResult) {
	callCtx, cancel := context.WithTimeout(ctx, c.orderTimeout)
	defer cancel()

	started := time.Now()
	orderID, status, err := conn.Gateway.PlaceOrder(callCtx, agg.Symbol, agg.Side, agg.TotalQuantity)
	if err != nil {
		// A timeout is treated like any other rejection; the batch continues.
		c.reject(agg, domain.NewBrokerError(agg.BrokerType, "place_order", err), result)
		return
	}

	agg.BrokerOrderID = orderID
	switch status {
	case domain.OrderFilled:
		agg.Status = domain.AggregateCompleted
		c.metrics.RecordOrderFilled()
	case domain.OrderPending, domain.OrderPartiallyFilled:
		agg.Status = domain.AggregateSubmitted
	default:
		agg.Status = domain.AggregateRejected
		agg.FailureReason = "broker status " + string(status)
		c.metrics.RecordOrderRejected()
	}
	c.metrics.RecordOrderSubmitted(time.Since(started).Nanoseconds())

	c.logger.Info("aggregate submitted",
		slog.String("key", agg.Key().String()),
		slog.String("broker_order_id", orderID),
		slog.String("status", string(agg.Status)),
		slog.String("quantity", agg.TotalQuantity.String()))

	result.add(AggregateOutcome{Aggregate: agg})
}

func (c *Coordinator) reject(agg *domain.AggregatedOrder, err error, result *BatchResult) {
	agg.Status = domain.AggregateRejected
	agg.FailureReason = err.Error()
	c.metrics.RecordOrderRejected()
	c.logger.Warn("aggregate rejected",
		slog.String("key", agg.Key().String()),
		slog.Any("error", err))
	result.add(AggregateOutcome{Aggregate: agg, Err: err})
}
