package aggregation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/SarasDev2025/saras-trading-platform-sub000/internal/domain"
)

// Batch holds one rebalance run's intents and the per-user execution
// orders tracking them. Orders is keyed by intent ID.
type Batch struct {
	ID      string
	Intents []domain.OrderIntent
	Orders  map[string]*domain.ExecutionOrder
}

// Collector gathers per-user order intents for one batch and opens a
// pending execution order for each, so every intent has a per-user
// status record before aggregation begins.
type Collector struct {
	store  domain.LedgerStore
	logger *slog.Logger
}

// NewCollector creates a collector writing through the given ledger store.
func NewCollector(store domain.LedgerStore, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{store: store, logger: logger.With("module", "collector")}
}

// Collect opens a new batch from the given intents. Intents without an ID
// are assigned one. The full intent list must be collected before
// aggregation starts; streaming intents into a running batch is not
// supported because weighted averages are only valid over a closed group.
func (c *Collector) Collect(ctx context.Context, intents []domain.OrderIntent) (*Batch, error) {
	batch := &Batch{
		ID:      uuid.NewString(),
		Intents: make([]domain.OrderIntent, 0, len(intents)),
		Orders:  make(map[string]*domain.ExecutionOrder, len(intents)),
	}

	now := time.Now().UTC()
	for _, intent := range intents {
		if intent.ID == "" {
			intent.ID = uuid.NewString()
		}
		order := &domain.ExecutionOrder{
			ID:           uuid.NewString(),
			BatchID:      batch.ID,
			IntentID:     intent.ID,
			UserID:       intent.UserID,
			InvestmentID: intent.InvestmentID,
			Symbol:       intent.Symbol,
			Status:       domain.ExecutionPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if c.store != nil {
			if err := c.store.CreateExecutionOrder(ctx, order); err != nil {
				return nil, err
			}
		}
		batch.Intents = append(batch.Intents, intent)
		batch.Orders[intent.ID] = order
	}

	c.logger.Info("batch collected",
		slog.String("batch_id", batch.ID),
		slog.Int("intents", len(batch.Intents)))

	return batch, nil
}
